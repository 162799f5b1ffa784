package filter

import (
	"fmt"
	"strings"
)

// Parse reads an expression produced by Expression.String. A blank input
// yields an empty expression. Unparenthesized clauses chained with || form
// one group, so `a || b && c` is read as `(a || b) && c`.
func Parse(s string) (Expression, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}

	var expr Expression
	for {
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		expr = append(expr, g)

		p.skipSpace()
		if p.eof() {
			return expr, nil
		}
		if !p.consume("&&") {
			return nil, p.errorf("expected && or end of input")
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("filter: %s at offset %d", fmt.Sprintf(format, args...), p.pos)
}

func (p *parser) group() (Group, error) {
	paren := p.consume("(")

	var g Group
	for {
		c, err := p.clause()
		if err != nil {
			return nil, err
		}
		g = append(g, c)
		if !p.consume("||") {
			break
		}
	}

	if paren && !p.consume(")") {
		return nil, p.errorf("missing )")
	}
	return g, nil
}

func (p *parser) clause() (Clause, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && isFieldByte(p.src[p.pos]) {
		p.pos++
	}
	field := p.src[start:p.pos]
	if field == "" {
		return Clause{}, p.errorf("expected field name")
	}

	var op Operator
	switch {
	case strings.HasPrefix(p.src[p.pos:], string(OpEquals)):
		op = OpEquals
	case strings.HasPrefix(p.src[p.pos:], string(OpContains)):
		op = OpContains
	default:
		return Clause{}, p.errorf("expected := or : after %q", field)
	}
	p.pos += len(op)

	value, err := p.value()
	if err != nil {
		return Clause{}, err
	}
	return Clause{Field: field, Op: op, Value: value}, nil
}

func (p *parser) value() (string, error) {
	if !p.eof() && p.src[p.pos] == '`' {
		end := strings.IndexByte(p.src[p.pos+1:], '`')
		if end < 0 {
			return "", p.errorf("unterminated value")
		}
		v := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return v, nil
	}

	start := p.pos
	for !p.eof() && !strings.ContainsRune(" \t\n()|&", rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected value")
	}
	return p.src[start:p.pos], nil
}

func isFieldByte(b byte) bool {
	return b == '_' || b == '.' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
