package symbolic

import (
	"fmt"
	"math/big"

	appErr "boardtex/internal/pkg/errors"
)

// Diff returns the derivative of e with respect to the symbol v.
func Diff(e Expr, v string) Expr {
	return Simplify(diff(e, v))
}

func diff(e Expr, v string) Expr {
	switch x := e.(type) {
	case Num:
		return numInt(0)
	case Sym:
		if x.Name == v {
			return numInt(1)
		}
		return numInt(0)
	case Neg:
		return Neg{X: diff(x.X, v)}
	case Add:
		return Add{L: diff(x.L, v), R: diff(x.R, v)}
	case Sub:
		return Sub{L: diff(x.L, v), R: diff(x.R, v)}
	case Mul:
		return Add{
			L: Mul{L: diff(x.L, v), R: x.R},
			R: Mul{L: x.L, R: diff(x.R, v)},
		}
	case Div:
		return Div{
			L: Sub{
				L: Mul{L: diff(x.L, v), R: x.R},
				R: Mul{L: x.L, R: diff(x.R, v)},
			},
			R: Pow{Base: x.R, Exp: numInt(2)},
		}
	case Pow:
		if !dependsOn(x.Exp, v) {
			// d(b^c) = c * b^(c-1) * b'
			return Mul{
				L: Mul{
					L: x.Exp,
					R: Pow{Base: x.Base, Exp: Sub{L: x.Exp, R: numInt(1)}},
				},
				R: diff(x.Base, v),
			}
		}
		// general: b^e * (e' log b + e b'/b)
		return Mul{
			L: Pow{Base: x.Base, Exp: x.Exp},
			R: Add{
				L: Mul{L: diff(x.Exp, v), R: Call{Fn: "log", Arg: x.Base}},
				R: Mul{L: x.Exp, R: Div{L: diff(x.Base, v), R: x.Base}},
			},
		}
	case Call:
		inner := diff(x.Arg, v)
		var outer Expr
		switch x.Fn {
		case "sin":
			outer = Call{Fn: "cos", Arg: x.Arg}
		case "cos":
			outer = Neg{X: Call{Fn: "sin", Arg: x.Arg}}
		case "tan":
			outer = Div{L: numInt(1), R: Pow{Base: Call{Fn: "cos", Arg: x.Arg}, Exp: numInt(2)}}
		case "exp":
			outer = Call{Fn: "exp", Arg: x.Arg}
		case "log":
			outer = Div{L: numInt(1), R: x.Arg}
		case "sqrt":
			outer = Div{L: numInt(1), R: Mul{L: numInt(2), R: Call{Fn: "sqrt", Arg: x.Arg}}}
		default:
			outer = numInt(0)
		}
		return Mul{L: outer, R: inner}
	}
	return numInt(0)
}

// Integrate returns an antiderivative of e with respect to v. It covers
// sums, constant multiples, powers of v, 1/v and the elementary functions
// at a bare v argument; anything richer reports ErrSymbolicParse so the
// caller can fall back.
func Integrate(e Expr, v string) (Expr, error) {
	out, err := integrate(Simplify(e), v)
	if err != nil {
		return nil, err
	}
	return Simplify(out), nil
}

func integrate(e Expr, v string) (Expr, error) {
	if !dependsOn(e, v) {
		return Mul{L: e, R: Sym{Name: v}}, nil
	}
	switch x := e.(type) {
	case Sym:
		// x.Name == v here, constants were handled above
		return Div{L: Pow{Base: x, Exp: numInt(2)}, R: numInt(2)}, nil
	case Neg:
		inner, err := integrate(x.X, v)
		if err != nil {
			return nil, err
		}
		return Neg{X: inner}, nil
	case Add:
		l, err := integrate(x.L, v)
		if err != nil {
			return nil, err
		}
		r, err := integrate(x.R, v)
		if err != nil {
			return nil, err
		}
		return Add{L: l, R: r}, nil
	case Sub:
		l, err := integrate(x.L, v)
		if err != nil {
			return nil, err
		}
		r, err := integrate(x.R, v)
		if err != nil {
			return nil, err
		}
		return Sub{L: l, R: r}, nil
	case Mul:
		if !dependsOn(x.L, v) {
			inner, err := integrate(x.R, v)
			if err != nil {
				return nil, err
			}
			return Mul{L: x.L, R: inner}, nil
		}
		if !dependsOn(x.R, v) {
			inner, err := integrate(x.L, v)
			if err != nil {
				return nil, err
			}
			return Mul{L: x.R, R: inner}, nil
		}
	case Div:
		if !dependsOn(x.R, v) {
			inner, err := integrate(x.L, v)
			if err != nil {
				return nil, err
			}
			return Div{L: inner, R: x.R}, nil
		}
		// c / v -> c log(v)
		if !dependsOn(x.L, v) {
			if s, ok := x.R.(Sym); ok && s.Name == v {
				return Mul{L: x.L, R: Call{Fn: "log", Arg: s}}, nil
			}
		}
	case Pow:
		if s, ok := x.Base.(Sym); ok && s.Name == v {
			if n, ok := x.Exp.(Num); ok {
				minusOne := big.NewRat(-1, 1)
				if n.Val.Cmp(minusOne) == 0 {
					return Call{Fn: "log", Arg: s}, nil
				}
				next := new(big.Rat).Add(n.Val, big.NewRat(1, 1))
				return Div{L: Pow{Base: s, Exp: num(next)}, R: num(next)}, nil
			}
		}
	case Call:
		if s, ok := x.Arg.(Sym); ok && s.Name == v {
			switch x.Fn {
			case "sin":
				return Neg{X: Call{Fn: "cos", Arg: s}}, nil
			case "cos":
				return Call{Fn: "sin", Arg: s}, nil
			case "exp":
				return Call{Fn: "exp", Arg: s}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no closed-form antiderivative rule", appErr.ErrSymbolicParse)
}

// Substitute replaces every occurrence of symbol v with repl.
func Substitute(e Expr, v string, repl Expr) Expr {
	switch x := e.(type) {
	case Num:
		return x
	case Sym:
		if x.Name == v {
			return repl
		}
		return x
	case Neg:
		return Neg{X: Substitute(x.X, v, repl)}
	case Add:
		return Add{L: Substitute(x.L, v, repl), R: Substitute(x.R, v, repl)}
	case Sub:
		return Sub{L: Substitute(x.L, v, repl), R: Substitute(x.R, v, repl)}
	case Mul:
		return Mul{L: Substitute(x.L, v, repl), R: Substitute(x.R, v, repl)}
	case Div:
		return Div{L: Substitute(x.L, v, repl), R: Substitute(x.R, v, repl)}
	case Pow:
		return Pow{Base: Substitute(x.Base, v, repl), Exp: Substitute(x.Exp, v, repl)}
	case Call:
		return Call{Fn: x.Fn, Arg: Substitute(x.Arg, v, repl)}
	}
	return e
}
