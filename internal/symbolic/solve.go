package symbolic

import (
	"fmt"
	"math/big"
	"sort"

	appErr "boardtex/internal/pkg/errors"
)

// polyCoeffs extracts rational coefficients of e as a polynomial in v,
// keyed by degree. Non-polynomial structure reports an error.
func polyCoeffs(e Expr, v string) (map[int]*big.Rat, error) {
	switch x := e.(type) {
	case Num:
		return map[int]*big.Rat{0: new(big.Rat).Set(x.Val)}, nil
	case Sym:
		if x.Name == v {
			return map[int]*big.Rat{1: big.NewRat(1, 1)}, nil
		}
		return nil, fmt.Errorf("%w: free symbol %s in polynomial", appErr.ErrSymbolicParse, x.Name)
	case Neg:
		c, err := polyCoeffs(x.X, v)
		if err != nil {
			return nil, err
		}
		for _, val := range c {
			val.Neg(val)
		}
		return c, nil
	case Add:
		return polyCombine(x.L, x.R, v, false)
	case Sub:
		return polyCombine(x.L, x.R, v, true)
	case Mul:
		l, err := polyCoeffs(x.L, v)
		if err != nil {
			return nil, err
		}
		r, err := polyCoeffs(x.R, v)
		if err != nil {
			return nil, err
		}
		out := map[int]*big.Rat{}
		for dl, cl := range l {
			for dr, cr := range r {
				term := new(big.Rat).Mul(cl, cr)
				if cur, ok := out[dl+dr]; ok {
					cur.Add(cur, term)
				} else {
					out[dl+dr] = term
				}
			}
		}
		return out, nil
	case Div:
		r, err := polyCoeffs(x.R, v)
		if err != nil {
			return nil, err
		}
		if len(r) != 1 || r[0] == nil || r[0].Sign() == 0 {
			return nil, fmt.Errorf("%w: division by non-constant", appErr.ErrSymbolicParse)
		}
		l, err := polyCoeffs(x.L, v)
		if err != nil {
			return nil, err
		}
		inv := new(big.Rat).Inv(r[0])
		for _, val := range l {
			val.Mul(val, inv)
		}
		return l, nil
	case Pow:
		n, ok := x.Exp.(Num)
		if !ok || !ratInt(n.Val) || n.Val.Sign() < 0 || !n.Val.Num().IsInt64() || n.Val.Num().Int64() > 16 {
			return nil, fmt.Errorf("%w: non-polynomial exponent", appErr.ErrSymbolicParse)
		}
		out := map[int]*big.Rat{0: big.NewRat(1, 1)}
		base := Expr(x.Base)
		for i := int64(0); i < n.Val.Num().Int64(); i++ {
			product, err := polyCoeffs(Mul{L: coeffsExpr(out, v), R: base}, v)
			if err != nil {
				return nil, err
			}
			out = product
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: not a polynomial", appErr.ErrSymbolicParse)
}

func polyCombine(l, r Expr, v string, subtract bool) (map[int]*big.Rat, error) {
	cl, err := polyCoeffs(l, v)
	if err != nil {
		return nil, err
	}
	cr, err := polyCoeffs(r, v)
	if err != nil {
		return nil, err
	}
	for d, val := range cr {
		term := new(big.Rat).Set(val)
		if subtract {
			term.Neg(term)
		}
		if cur, ok := cl[d]; ok {
			cur.Add(cur, term)
		} else {
			cl[d] = term
		}
	}
	return cl, nil
}

// coeffsExpr rebuilds an expression from a coefficient map, used only while
// expanding small integer powers.
func coeffsExpr(c map[int]*big.Rat, v string) Expr {
	degrees := make([]int, 0, len(c))
	for d := range c {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	var out Expr
	for _, d := range degrees {
		var term Expr
		switch d {
		case 0:
			term = num(new(big.Rat).Set(c[d]))
		case 1:
			term = Mul{L: num(new(big.Rat).Set(c[d])), R: Sym{Name: v}}
		default:
			term = Mul{L: num(new(big.Rat).Set(c[d])), R: Pow{Base: Sym{Name: v}, Exp: numInt(int64(d))}}
		}
		if out == nil {
			out = term
		} else {
			out = Add{L: out, R: term}
		}
	}
	if out == nil {
		return numInt(0)
	}
	return out
}

// Solve finds the roots of lhs = rhs as a polynomial equation in v.
// Supported degrees: 1 and 2. Roots are exact expressions; irrational
// quadratic roots keep their surd form.
func Solve(lhs, rhs Expr, v string) ([]Expr, error) {
	coeffs, err := polyCoeffs(Sub{L: lhs, R: rhs}, v)
	if err != nil {
		return nil, err
	}
	degree := 0
	for d, c := range coeffs {
		if c.Sign() != 0 && d > degree {
			degree = d
		}
	}
	at := func(d int) *big.Rat {
		if c, ok := coeffs[d]; ok {
			return c
		}
		return big.NewRat(0, 1)
	}
	switch degree {
	case 0:
		return nil, fmt.Errorf("%w: equation has no unknown", appErr.ErrSymbolicParse)
	case 1:
		// a v + b = 0
		root := new(big.Rat).Quo(new(big.Rat).Neg(at(0)), at(1))
		return []Expr{num(root)}, nil
	case 2:
		a, b, c := at(2), at(1), at(0)
		// disc = b^2 - 4ac
		disc := new(big.Rat).Mul(b, b)
		fourAC := new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c))
		disc.Sub(disc, fourAC)
		twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
		negB := new(big.Rat).Neg(b)
		if disc.Sign() < 0 {
			return nil, fmt.Errorf("%w: complex roots", appErr.ErrSymbolicParse)
		}
		if root, ok := ratSqrt(disc); ok {
			r1 := new(big.Rat).Quo(new(big.Rat).Add(negB, root), twoA)
			r2 := new(big.Rat).Quo(new(big.Rat).Sub(negB, root), twoA)
			if r1.Cmp(r2) == 0 {
				return []Expr{num(r1)}, nil
			}
			return []Expr{num(r1), num(r2)}, nil
		}
		surd := Call{Fn: "sqrt", Arg: num(disc)}
		r1 := Div{L: Add{L: num(negB), R: surd}, R: num(twoA)}
		r2 := Div{L: Sub{L: num(new(big.Rat).Set(negB)), R: surd}, R: num(new(big.Rat).Set(twoA))}
		return []Expr{Simplify(r1), Simplify(r2)}, nil
	default:
		return nil, fmt.Errorf("%w: degree %d not supported", appErr.ErrSymbolicParse, degree)
	}
}

// PickVariable chooses the unknown for solve-style queries: x if present,
// otherwise the lexically first free symbol.
func PickVariable(exprs ...Expr) (string, bool) {
	names := map[string]struct{}{}
	for _, e := range exprs {
		freeSymbols(e, names)
	}
	if len(names) == 0 {
		return "", false
	}
	if _, ok := names["x"]; ok {
		return "x", true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	return sorted[0], true
}
