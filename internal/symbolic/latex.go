package symbolic

import (
	"fmt"
	"math/big"
	"strings"
)

// printer precedence levels, used to decide where parens are needed.
const (
	prNone = iota
	prAdd
	prMul
	prPow
	prAtom
)

// LaTeX renders e as LaTeX math (without surrounding $ delimiters).
func LaTeX(e Expr) string {
	return render(e, prNone)
}

func render(e Expr, parent int) string {
	switch x := e.(type) {
	case Num:
		return ratLaTeX(x.Val, parent)
	case Sym:
		return x.Name
	case Neg:
		s := "-" + render(x.X, prMul)
		if parent > prAdd {
			return "\\left(" + s + "\\right)"
		}
		return s
	case Add:
		s := render(x.L, prAdd) + " + " + render(x.R, prAdd)
		if parent > prAdd {
			return "\\left(" + s + "\\right)"
		}
		return s
	case Sub:
		s := render(x.L, prAdd) + " - " + render(x.R, prMul)
		if parent > prAdd {
			return "\\left(" + s + "\\right)"
		}
		return s
	case Mul:
		l := render(x.L, prMul)
		r := render(x.R, prMul)
		sep := " "
		// 2 x renders juxtaposed; 2 * 3 keeps \cdot to stay unambiguous
		if endsWithDigit(l) && startsWithDigit(r) {
			sep = " \\cdot "
		}
		s := l + sep + r
		if parent > prMul {
			return "\\left(" + s + "\\right)"
		}
		return s
	case Div:
		return fmt.Sprintf("\\frac{%s}{%s}", render(x.L, prNone), render(x.R, prNone))
	case Pow:
		base := render(x.Base, prAtom)
		return fmt.Sprintf("%s^{%s}", base, render(x.Exp, prNone))
	case Call:
		arg := render(x.Arg, prNone)
		switch x.Fn {
		case "sqrt":
			return fmt.Sprintf("\\sqrt{%s}", arg)
		case "exp":
			return fmt.Sprintf("e^{%s}", arg)
		case "log":
			return fmt.Sprintf("\\ln\\left(%s\\right)", arg)
		default:
			return fmt.Sprintf("\\%s\\left(%s\\right)", x.Fn, arg)
		}
	}
	return ""
}

func ratLaTeX(v *big.Rat, parent int) string {
	if v.IsInt() {
		s := v.Num().String()
		if strings.HasPrefix(s, "-") && parent > prAdd {
			return "\\left(" + s + "\\right)"
		}
		return s
	}
	num := new(big.Rat).Set(v)
	sign := ""
	if num.Sign() < 0 {
		sign = "-"
		num.Neg(num)
	}
	s := sign + fmt.Sprintf("\\frac{%s}{%s}", num.Num().String(), num.Denom().String())
	if sign != "" && parent > prAdd {
		return "\\left(" + s + "\\right)"
	}
	return s
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

func endsWithDigit(s string) bool {
	return len(s) > 0 && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}
