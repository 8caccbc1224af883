// Package symbolic is the deterministic math engine behind the chat path:
// a small expression parser plus exact (rational) evaluation, derivative,
// integral, solve and simplify, rendered as LaTeX. It fails cleanly on
// anything it cannot parse as a formal expression; that outcome is expected
// and routes the query to the generative fallback.
package symbolic

import (
	"math/big"
)

type Expr interface {
	isExpr()
}

// Num is an exact rational constant.
type Num struct {
	Val *big.Rat
}

// Sym is a free symbol.
type Sym struct {
	Name string
}

type Add struct{ L, R Expr }
type Sub struct{ L, R Expr }
type Mul struct{ L, R Expr }
type Div struct{ L, R Expr }
type Pow struct{ Base, Exp Expr }
type Neg struct{ X Expr }

// Call is a known function application: sin, cos, tan, exp, log, sqrt.
type Call struct {
	Fn  string
	Arg Expr
}

func (Num) isExpr()  {}
func (Sym) isExpr()  {}
func (Add) isExpr()  {}
func (Sub) isExpr()  {}
func (Mul) isExpr()  {}
func (Div) isExpr()  {}
func (Pow) isExpr()  {}
func (Neg) isExpr()  {}
func (Call) isExpr() {}

func num(v *big.Rat) Num      { return Num{Val: v} }
func numInt(n int64) Num      { return Num{Val: new(big.Rat).SetInt64(n)} }
func ratInt(v *big.Rat) bool  { return v.IsInt() }
func zero(v *big.Rat) bool    { return v.Sign() == 0 }
func one(v *big.Rat) bool     { return v.Cmp(big.NewRat(1, 1)) == 0 }

// equal reports structural equality.
func equal(a, b Expr) bool {
	switch x := a.(type) {
	case Num:
		y, ok := b.(Num)
		return ok && x.Val.Cmp(y.Val) == 0
	case Sym:
		y, ok := b.(Sym)
		return ok && x.Name == y.Name
	case Add:
		y, ok := b.(Add)
		return ok && equal(x.L, y.L) && equal(x.R, y.R)
	case Sub:
		y, ok := b.(Sub)
		return ok && equal(x.L, y.L) && equal(x.R, y.R)
	case Mul:
		y, ok := b.(Mul)
		return ok && equal(x.L, y.L) && equal(x.R, y.R)
	case Div:
		y, ok := b.(Div)
		return ok && equal(x.L, y.L) && equal(x.R, y.R)
	case Pow:
		y, ok := b.(Pow)
		return ok && equal(x.Base, y.Base) && equal(x.Exp, y.Exp)
	case Neg:
		y, ok := b.(Neg)
		return ok && equal(x.X, y.X)
	case Call:
		y, ok := b.(Call)
		return ok && x.Fn == y.Fn && equal(x.Arg, y.Arg)
	}
	return false
}

// freeSymbols collects symbol names in e.
func freeSymbols(e Expr, into map[string]struct{}) {
	switch x := e.(type) {
	case Sym:
		into[x.Name] = struct{}{}
	case Add:
		freeSymbols(x.L, into)
		freeSymbols(x.R, into)
	case Sub:
		freeSymbols(x.L, into)
		freeSymbols(x.R, into)
	case Mul:
		freeSymbols(x.L, into)
		freeSymbols(x.R, into)
	case Div:
		freeSymbols(x.L, into)
		freeSymbols(x.R, into)
	case Pow:
		freeSymbols(x.Base, into)
		freeSymbols(x.Exp, into)
	case Neg:
		freeSymbols(x.X, into)
	case Call:
		freeSymbols(x.Arg, into)
	}
}

// FreeSymbols returns the sorted-free symbol set of e.
func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	freeSymbols(e, out)
	return out
}

// dependsOn reports whether e contains the symbol name.
func dependsOn(e Expr, name string) bool {
	_, ok := FreeSymbols(e)[name]
	return ok
}
