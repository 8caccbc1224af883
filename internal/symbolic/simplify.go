package symbolic

import (
	"math/big"
)

// Simplify performs exact constant folding plus the basic algebraic
// identities. It never approximates: sin(1) stays sin(1), 1/3 stays 1/3.
func Simplify(e Expr) Expr {
	switch x := e.(type) {
	case Num, Sym:
		return e
	case Neg:
		inner := Simplify(x.X)
		if n, ok := inner.(Num); ok {
			return num(new(big.Rat).Neg(n.Val))
		}
		if n, ok := inner.(Neg); ok {
			return n.X
		}
		return Neg{X: inner}
	case Add:
		l, r := Simplify(x.L), Simplify(x.R)
		if ln, ok := l.(Num); ok {
			if rn, ok := r.(Num); ok {
				return num(new(big.Rat).Add(ln.Val, rn.Val))
			}
			if zero(ln.Val) {
				return r
			}
		}
		if rn, ok := r.(Num); ok && zero(rn.Val) {
			return l
		}
		return Add{L: l, R: r}
	case Sub:
		l, r := Simplify(x.L), Simplify(x.R)
		if ln, ok := l.(Num); ok {
			if rn, ok := r.(Num); ok {
				return num(new(big.Rat).Sub(ln.Val, rn.Val))
			}
			if zero(ln.Val) {
				return Simplify(Neg{X: r})
			}
		}
		if rn, ok := r.(Num); ok && zero(rn.Val) {
			return l
		}
		if equal(l, r) {
			return numInt(0)
		}
		return Sub{L: l, R: r}
	case Mul:
		l, r := Simplify(x.L), Simplify(x.R)
		if ln, ok := l.(Num); ok {
			if rn, ok := r.(Num); ok {
				return num(new(big.Rat).Mul(ln.Val, rn.Val))
			}
			if zero(ln.Val) {
				return numInt(0)
			}
			if one(ln.Val) {
				return r
			}
		}
		if rn, ok := r.(Num); ok {
			if zero(rn.Val) {
				return numInt(0)
			}
			if one(rn.Val) {
				return l
			}
			// keep constants on the left: x*2 -> 2x
			return Mul{L: rn, R: l}
		}
		return Mul{L: l, R: r}
	case Div:
		l, r := Simplify(x.L), Simplify(x.R)
		if rn, ok := r.(Num); ok && !zero(rn.Val) {
			if ln, ok := l.(Num); ok {
				return num(new(big.Rat).Quo(ln.Val, rn.Val))
			}
			if one(rn.Val) {
				return l
			}
		}
		if ln, ok := l.(Num); ok && zero(ln.Val) {
			return numInt(0)
		}
		if equal(l, r) {
			if ln, ok := l.(Num); !ok || !zero(ln.Val) {
				return numInt(1)
			}
		}
		return Div{L: l, R: r}
	case Pow:
		b, p := Simplify(x.Base), Simplify(x.Exp)
		if pn, ok := p.(Num); ok {
			if zero(pn.Val) {
				return numInt(1)
			}
			if one(pn.Val) {
				return b
			}
			if bn, ok := b.(Num); ok && ratInt(pn.Val) {
				if folded, ok := ratPow(bn.Val, pn.Val.Num()); ok {
					return num(folded)
				}
			}
		}
		if bn, ok := b.(Num); ok && one(bn.Val) {
			return numInt(1)
		}
		return Pow{Base: b, Exp: p}
	case Call:
		arg := Simplify(x.Arg)
		if n, ok := arg.(Num); ok {
			if folded, ok := foldCall(x.Fn, n.Val); ok {
				return num(folded)
			}
		}
		return Call{Fn: x.Fn, Arg: arg}
	}
	return e
}

// ratPow computes base^exp for integer exponents of reasonable size.
func ratPow(base *big.Rat, exp *big.Int) (*big.Rat, bool) {
	if !exp.IsInt64() {
		return nil, false
	}
	n := exp.Int64()
	if n > 64 || n < -64 {
		return nil, false
	}
	neg := n < 0
	if neg {
		n = -n
	}
	out := big.NewRat(1, 1)
	for i := int64(0); i < n; i++ {
		out.Mul(out, base)
	}
	if neg {
		if out.Sign() == 0 {
			return nil, false
		}
		out.Inv(out)
	}
	return out, true
}

// foldCall evaluates a function at an exact point when the result is itself
// exact. Everything else stays symbolic.
func foldCall(fn string, v *big.Rat) (*big.Rat, bool) {
	switch fn {
	case "sqrt":
		if v.Sign() < 0 {
			return nil, false
		}
		if root, ok := ratSqrt(v); ok {
			return root, true
		}
	case "log":
		if one(v) {
			return big.NewRat(0, 1), true
		}
	case "exp":
		if zero(v) {
			return big.NewRat(1, 1), true
		}
	case "sin", "tan":
		if zero(v) {
			return big.NewRat(0, 1), true
		}
	case "cos":
		if zero(v) {
			return big.NewRat(1, 1), true
		}
	}
	return nil, false
}

// ratSqrt returns the exact square root of a rational when both numerator
// and denominator are perfect squares.
func ratSqrt(v *big.Rat) (*big.Rat, bool) {
	n, ok1 := intSqrt(v.Num())
	d, ok2 := intSqrt(v.Denom())
	if !ok1 || !ok2 {
		return nil, false
	}
	return new(big.Rat).SetFrac(n, d), true
}

func intSqrt(v *big.Int) (*big.Int, bool) {
	if v.Sign() < 0 {
		return nil, false
	}
	root := new(big.Int).Sqrt(v)
	check := new(big.Int).Mul(root, root)
	if check.Cmp(v) != 0 {
		return nil, false
	}
	return root, true
}
