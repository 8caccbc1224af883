package symbolic

import (
	"fmt"
	"regexp"
	"strings"

	appErr "boardtex/internal/pkg/errors"
)

// Engine turns a natural-language math question into an exact LaTeX answer.
// Recognized intents: derivative, integral (indefinite and definite over a
// numeric range), solve, simplify and plain evaluation. Anything it cannot
// read precisely reports ErrSymbolicParse so the caller can decide whether
// to fall back.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

var (
	reDerivative = regexp.MustCompile(`(?i)\b(?:derivative|differentiate|diff)\b(?:\s+of)?\s+(.+)`)
	reIntegral   = regexp.MustCompile(`(?i)\b(?:integral|integrate|antiderivative)\b(?:\s+of)?\s+(.+)`)
	reSolve      = regexp.MustCompile(`(?i)\bsolve\b\s+(.+)`)
	reSimplify   = regexp.MustCompile(`(?i)\bsimplify\b\s+(.+)`)
	reRange      = regexp.MustCompile(`(?i)\s+from\s+(\S+)\s+to\s+(\S+)\s*$`)
	reWithResp   = regexp.MustCompile(`(?i)\s+with\s+respect\s+to\s+([a-z])\s*$`)
	reForVar     = regexp.MustCompile(`(?i)\s+for\s+([a-z])\s*$`)
	// "sin 2x" reads as sin(2x), not sin(2)*x
	reFuncSpace = regexp.MustCompile(`(?i)\b(sin|cos|tan|exp|log|ln|sqrt)\s+([0-9a-z.]+)`)
)

// Answer evaluates the question deterministically. The returned string is a
// complete display-math reply, e.g. "$$2 x$$".
func (e *Engine) Answer(question string) (string, error) {
	q := normalizeQuestion(question)
	if q == "" {
		return "", fmt.Errorf("%w: empty question", appErr.ErrSymbolicParse)
	}

	if m := reDerivative.FindStringSubmatch(q); m != nil {
		return e.derivative(m[1])
	}
	if m := reIntegral.FindStringSubmatch(q); m != nil {
		return e.integral(m[1])
	}
	if m := reSolve.FindStringSubmatch(q); m != nil {
		return e.solve(m[1])
	}
	if m := reSimplify.FindStringSubmatch(q); m != nil {
		return e.simplify(m[1])
	}
	return e.evaluate(q)
}

func (e *Engine) derivative(rest string) (string, error) {
	rest, v := splitVariable(rest)
	expr, err := parsePrepared(rest)
	if err != nil {
		return "", err
	}
	if v == "" {
		var ok bool
		if v, ok = PickVariable(expr); !ok {
			v = "x"
		}
	}
	return display(LaTeX(Diff(expr, v))), nil
}

func (e *Engine) integral(rest string) (string, error) {
	var lo, hi string
	if m := reRange.FindStringSubmatch(rest); m != nil {
		lo, hi = m[1], m[2]
		rest = strings.TrimSpace(rest[:len(rest)-len(m[0])])
	}
	rest, v := splitVariable(rest)
	expr, err := parsePrepared(rest)
	if err != nil {
		return "", err
	}
	if v == "" {
		var ok bool
		if v, ok = PickVariable(expr); !ok {
			v = "x"
		}
	}
	anti, err := Integrate(expr, v)
	if err != nil {
		return "", err
	}
	if lo == "" {
		return display(LaTeX(anti) + " + C"), nil
	}
	loExpr, err := Parse(lo)
	if err != nil {
		return "", err
	}
	hiExpr, err := Parse(hi)
	if err != nil {
		return "", err
	}
	upper := Simplify(Substitute(anti, v, hiExpr))
	lower := Simplify(Substitute(anti, v, loExpr))
	return display(LaTeX(Simplify(Sub{L: upper, R: lower}))), nil
}

func (e *Engine) solve(rest string) (string, error) {
	rest, v := splitVariable(rest)
	lhs, rhs, err := parsePreparedEquation(rest)
	if err != nil {
		return "", err
	}
	if v == "" {
		var ok bool
		if v, ok = PickVariable(lhs, rhs); !ok {
			return "", fmt.Errorf("%w: nothing to solve for", appErr.ErrSymbolicParse)
		}
	}
	roots, err := Solve(lhs, rhs, v)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(roots))
	for _, r := range roots {
		parts = append(parts, fmt.Sprintf("%s = %s", v, LaTeX(r)))
	}
	return display(strings.Join(parts, ",\\; ")), nil
}

func (e *Engine) simplify(rest string) (string, error) {
	expr, err := parsePrepared(rest)
	if err != nil {
		return "", err
	}
	return display(LaTeX(Simplify(expr))), nil
}

var reProseWord = regexp.MustCompile(`(?i)[a-z]{2,}`)

// evaluate handles a bare expression ("2+2", "sqrt(16)"). The whole input
// must parse; conversational text fails here and routes to the fallback.
func (e *Engine) evaluate(q string) (string, error) {
	// a multi-letter word that is not a function name is prose, not math
	for _, w := range reProseWord.FindAllString(q, -1) {
		if !knownFuncs[strings.ToLower(w)] {
			return "", fmt.Errorf("%w: not a formal expression", appErr.ErrSymbolicParse)
		}
	}
	expr, err := parsePrepared(q)
	if err != nil {
		return "", err
	}
	return display(LaTeX(Simplify(expr))), nil
}

func parsePrepared(s string) (Expr, error) {
	return Parse(prepare(s))
}

func parsePreparedEquation(s string) (lhs, rhs Expr, err error) {
	return ParseEquation(prepare(s))
}

// prepare applies the textual conventions the parser itself does not know:
// function application without parens ("sin 2x") and the oo infinity
// shorthand have no exact meaning here, so oo is left to fail parsing.
func prepare(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "?")
	s = strings.TrimSuffix(s, ".")
	for i := 0; i < 3; i++ {
		next := reFuncSpace.ReplaceAllString(s, "$1($2)")
		if next == s {
			break
		}
		s = next
	}
	return s
}

// splitVariable strips a trailing "with respect to t" / "for t" clause and
// returns the named variable if present.
func splitVariable(rest string) (string, string) {
	if m := reWithResp.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(rest[:len(rest)-len(m[0])]), strings.ToLower(m[1])
	}
	if m := reForVar.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(rest[:len(rest)-len(m[0])]), strings.ToLower(m[1])
	}
	return strings.TrimSpace(rest), ""
}

func normalizeQuestion(q string) string {
	q = strings.TrimSpace(q)
	q = strings.TrimPrefix(strings.ToLower(q), "what is ")
	q = strings.TrimPrefix(q, "what's ")
	q = strings.TrimPrefix(q, "compute ")
	q = strings.TrimPrefix(q, "calculate ")
	q = strings.TrimPrefix(q, "evaluate ")
	return strings.TrimSpace(q)
}

func display(latex string) string {
	return "$$" + latex + "$$"
}
