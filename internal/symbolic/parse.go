package symbolic

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	appErr "boardtex/internal/pkg/errors"
)

var knownFuncs = map[string]bool{
	"sin": true, "cos": true, "tan": true,
	"exp": true, "log": true, "ln": true, "sqrt": true,
}

type tokenKind int

const (
	tokNum tokenKind = iota
	tokIdent
	tokFunc
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	input []rune
	pos   int
	toks  []token
}

func lex(input string) ([]token, error) {
	l := &lexer{input: []rune(strings.TrimSpace(input))}
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		switch {
		case unicode.IsSpace(r):
			l.pos++
		case unicode.IsDigit(r) || r == '.':
			l.lexNumber()
		case unicode.IsLetter(r):
			l.lexIdent()
		case strings.ContainsRune("+-*/^", r):
			l.toks = append(l.toks, token{kind: tokOp, text: string(r)})
			l.pos++
		case r == '(':
			l.toks = append(l.toks, token{kind: tokLParen, text: "("})
			l.pos++
		case r == ')':
			l.toks = append(l.toks, token{kind: tokRParen, text: ")"})
			l.pos++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", appErr.ErrSymbolicParse, string(r))
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF})
	return l.toks, nil
}

func (l *lexer) lexNumber() {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		r := l.input[l.pos]
		if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
			l.pos++
			continue
		}
		if !unicode.IsDigit(r) {
			break
		}
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokNum, text: string(l.input[start:l.pos])})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsLetter(l.input[l.pos]) {
		l.pos++
	}
	word := strings.ToLower(string(l.input[start:l.pos]))
	if knownFuncs[word] {
		l.toks = append(l.toks, token{kind: tokFunc, text: word})
		return
	}
	// an unknown multi-letter run is implicit multiplication of single
	// symbols: "xy" means x*y
	for _, r := range word {
		l.toks = append(l.toks, token{kind: tokIdent, text: string(r)})
	}
}

type parser struct {
	toks []token
	pos  int
}

// Parse reads one expression. It returns ErrSymbolicParse (wrapped) on any
// input it cannot read as a formal expression.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input near %q", appErr.ErrSymbolicParse, p.peek().text)
	}
	return e, nil
}

// ParseEquation reads "lhs = rhs"; a bare expression is treated as
// "expr = 0".
func ParseEquation(input string) (lhs, rhs Expr, err error) {
	parts := strings.Split(input, "=")
	switch len(parts) {
	case 1:
		lhs, err = Parse(parts[0])
		return lhs, numInt(0), err
	case 2:
		lhs, err = Parse(parts[0])
		if err != nil {
			return nil, nil, err
		}
		rhs, err = Parse(parts[1])
		return lhs, rhs, err
	default:
		return nil, nil, fmt.Errorf("%w: multiple '=' signs", appErr.ErrSymbolicParse)
	}
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

const (
	precAdd = 10
	precMul = 20
	precPow = 30
)

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var prec int
		var op string
		switch {
		case t.kind == tokOp && (t.text == "+" || t.text == "-"):
			prec, op = precAdd, t.text
		case t.kind == tokOp && (t.text == "*" || t.text == "/"):
			prec, op = precMul, t.text
		case t.kind == tokOp && t.text == "^":
			prec, op = precPow, t.text
		case t.kind == tokNum || t.kind == tokIdent || t.kind == tokFunc || t.kind == tokLParen:
			// implicit multiplication: 2x, 2 sin(x), (x+1)(x-1)
			prec, op = precMul, "*"
		default:
			return left, nil
		}
		if prec < minPrec {
			return left, nil
		}
		if op != "*" || t.kind == tokOp {
			p.next()
		}
		// ^ is right-associative
		nextMin := prec + 1
		if op == "^" {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		switch op {
		case "+":
			left = Add{L: left, R: right}
		case "-":
			left = Sub{L: left, R: right}
		case "*":
			left = Mul{L: left, R: right}
		case "/":
			left = Div{L: left, R: right}
		case "^":
			left = Pow{Base: left, Exp: right}
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && t.text == "-" {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg{X: x}, nil
	}
	if t.kind == tokOp && t.text == "+" {
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, fmt.Errorf("%w: bad number %q", appErr.ErrSymbolicParse, t.text)
		}
		return num(r), nil
	case tokIdent:
		return Sym{Name: t.text}, nil
	case tokFunc:
		fn := t.text
		if fn == "ln" {
			fn = "log"
		}
		if p.peek().kind == tokLParen {
			p.next()
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if p.peek().kind != tokRParen {
				return nil, fmt.Errorf("%w: missing ')' after %s", appErr.ErrSymbolicParse, fn)
			}
			p.next()
			return Call{Fn: fn, Arg: arg}, nil
		}
		// "sin x" binds the next power-level operand: sin x^2 = sin(x)^2
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Call{Fn: fn, Arg: arg}, nil
	case tokLParen:
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ')'", appErr.ErrSymbolicParse)
		}
		p.next()
		return e, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of input", appErr.ErrSymbolicParse)
	default:
		return nil, fmt.Errorf("%w: unexpected token %q", appErr.ErrSymbolicParse, t.text)
	}
}
