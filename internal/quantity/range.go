package quantity

import (
	"strconv"
	"strings"

	"github.com/atrettin/pisa/internal/units"
)

// ParseRange evaluates range expression text against a base quantity that
// supplies the values of the `nominal` and `sigma` keywords. Supported forms
// include `[7.85, 9.1] * units.deg`, `nominal + [-4, +4] * sigma`, and any
// combination of `+`, `-`, `*` over numbers, intervals, the keywords, and a
// unit tag. The result is converted to the base quantity's unit when both
// carry one.
func ParseRange(text string, base Quantity) (Range, error) {
	p := &rangeParser{text: text, tokens: lex(text), base: base}

	v, err := p.parseExpr()
	if err != nil {
		return Range{}, err
	}
	if !p.atEnd() {
		return Range{}, syntaxErr(text, "unexpected trailing %q", p.peek())
	}

	return p.finish(v, base)
}

// exprVal is an intermediate evaluation result: either a scalar (pair=false,
// lo == hi) or an interval, with an optional unit attached by a `units.<tag>`
// factor or by the nominal/sigma keywords.
type exprVal struct {
	lo, hi float64
	pair   bool
	unit   units.Unit
}

type rangeParser struct {
	text   string
	tokens []string
	pos    int
	base   Quantity
}

// lex splits range expression text into tokens. Numbers keep their sign
// handling for the parser; `units.<tag>` survives as a single token.
func lex(text string) []string {
	var tokens []string
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '[' || c == ']' || c == '(' || c == ')' || c == ',' ||
			c == '+' || c == '-' || c == '*':
			tokens = append(tokens, string(c))
			i++
		default:
			j := i
			for j < len(text) && !strings.ContainsRune(" \t[](),+-*", rune(text[j])) {
				j++
			}
			// Keep exponent signs glued to their number, e.g. 2.5e-3.
			for j < len(text)-1 && (text[j-1] == 'e' || text[j-1] == 'E') &&
				(text[j] == '+' || text[j] == '-') {
				j++
				for j < len(text) && !strings.ContainsRune(" \t[](),+-*", rune(text[j])) {
					j++
				}
			}
			// A unit tag keeps its power suffix: units.eV**2 is one token,
			// not a multiplication.
			if strings.HasPrefix(text[i:j], "units.") && strings.HasPrefix(text[j:], "**") {
				k := j + 2
				for k < len(text) && text[k] >= '0' && text[k] <= '9' {
					k++
				}
				if k > j+2 {
					j = k
				}
			}
			tokens = append(tokens, text[i:j])
			i = j
		}
	}
	return tokens
}

func (p *rangeParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *rangeParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *rangeParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *rangeParser) parseExpr() (exprVal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return exprVal{}, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.next()
		right, err := p.parseTerm()
		if err != nil {
			return exprVal{}, err
		}
		left, err = p.apply(op, left, right)
		if err != nil {
			return exprVal{}, err
		}
	}
	return left, nil
}

func (p *rangeParser) parseTerm() (exprVal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return exprVal{}, err
	}
	for p.peek() == "*" {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return exprVal{}, err
		}
		left, err = p.apply("*", left, right)
		if err != nil {
			return exprVal{}, err
		}
	}
	return left, nil
}

func (p *rangeParser) parseFactor() (exprVal, error) {
	switch tok := p.peek(); tok {
	case "":
		return exprVal{}, syntaxErr(p.text, "unexpected end of expression")
	case "+", "-":
		p.next()
		v, err := p.parseFactor()
		if err != nil {
			return exprVal{}, err
		}
		if tok == "-" {
			v.lo, v.hi = -v.hi, -v.lo
		}
		return v, nil
	case "(":
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return exprVal{}, err
		}
		if p.next() != ")" {
			return exprVal{}, syntaxErr(p.text, "missing closing parenthesis")
		}
		return v, nil
	case "[":
		return p.parseInterval()
	case "nominal":
		p.next()
		return exprVal{lo: p.base.Value, hi: p.base.Value, unit: p.base.Unit}, nil
	case "sigma":
		p.next()
		return exprVal{lo: p.base.Sigma, hi: p.base.Sigma, unit: p.base.Unit}, nil
	default:
		p.next()
		if tag, ok := strings.CutPrefix(tok, "units."); ok {
			unit, err := units.Parse(tag)
			if err != nil {
				return exprVal{}, err
			}
			return exprVal{lo: 1, hi: 1, unit: unit}, nil
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return exprVal{}, syntaxErr(p.text, "unexpected token %q", tok)
		}
		return exprVal{lo: f, hi: f}, nil
	}
}

func (p *rangeParser) parseInterval() (exprVal, error) {
	p.next() // consume '['
	lo, err := p.parseExpr()
	if err != nil {
		return exprVal{}, err
	}
	if p.next() != "," {
		return exprVal{}, syntaxErr(p.text, "interval literal needs two comma-separated bounds")
	}
	hi, err := p.parseExpr()
	if err != nil {
		return exprVal{}, err
	}
	if p.next() != "]" {
		return exprVal{}, syntaxErr(p.text, "missing closing bracket in interval literal")
	}
	if lo.pair || hi.pair {
		return exprVal{}, syntaxErr(p.text, "interval bounds must be scalars")
	}
	unit, err := p.mergeUnits(lo.unit, hi.unit)
	if err != nil {
		return exprVal{}, err
	}
	return exprVal{lo: lo.lo, hi: hi.lo, pair: true, unit: unit}, nil
}

func (p *rangeParser) apply(op string, left, right exprVal) (exprVal, error) {
	unit, err := p.mergeUnits(left.unit, right.unit)
	if err != nil {
		return exprVal{}, err
	}

	out := exprVal{pair: left.pair || right.pair, unit: unit}
	switch op {
	case "+":
		out.lo = left.lo + right.lo
		out.hi = left.hi + right.hi
	case "-":
		out.lo = left.lo - right.hi
		out.hi = left.hi - right.lo
	case "*":
		// One side is always a plain scale factor in this grammar.
		out.lo = left.lo * right.lo
		out.hi = left.hi * right.hi
		if out.lo > out.hi {
			out.lo, out.hi = out.hi, out.lo
		}
	}
	return out, nil
}

// mergeUnits combines the units of two operands. At most one side may carry
// an explicit unit tag.
func (p *rangeParser) mergeUnits(a, b units.Unit) (units.Unit, error) {
	switch {
	case a == "" || a == units.Dimensionless:
		return b, nil
	case b == "" || b == units.Dimensionless:
		return a, nil
	case a == b:
		return a, nil
	default:
		return "", syntaxErr(p.text, "conflicting units %s and %s", a, b)
	}
}

func (p *rangeParser) finish(v exprVal, base Quantity) (Range, error) {
	if !v.pair {
		return Range{}, syntaxErr(p.text, "range expression must produce an interval")
	}
	if v.unit == "" {
		v.unit = units.Dimensionless
	}
	r := Range{Lo: v.lo, Hi: v.hi, Unit: v.unit}
	if base.Unit != "" && base.Unit != units.Dimensionless && r.Unit != units.Dimensionless {
		return r.To(base.Unit)
	}
	if base.Unit != "" && r.Unit == units.Dimensionless {
		// A keyword-relative range like `nominal + [-2, 2] * sigma` inherits
		// the base unit.
		r.Unit = base.Unit
	}
	return r, nil
}
