package schema

import (
	"fmt"
	"strings"
)

// TypeResolver is what ParseTypeExpr needs to turn names into types.
// *Snapshot implements it.
type TypeResolver interface {
	TypeByName(name string) (Type, error)
	TupleType(elems []Element, named bool) (Type, error)
	ArrayType(elem Type) (Type, error)
}

// ParseTypeExpr parses a type expression:
//
//	std::int64
//	anytype | anytuple
//	array<T>
//	tuple<T, U>
//	tuple<a: T, b: U>
//
// A tuple is named when its first element is named; then every element must
// be named.
func ParseTypeExpr(r TypeResolver, expr string) (Type, error) {
	p := &exprParser{src: expr, r: r}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

type exprParser struct {
	src string
	pos int
	r   TypeResolver
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type expression %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *exprParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ident scans one identifier without module separators.
func (p *exprParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// qualName scans ident ("::" ident)*.
func (p *exprParser) qualName() (string, error) {
	first := p.ident()
	if first == "" {
		return "", p.errorf("expected a type name")
	}
	parts := []string{first}
	for strings.HasPrefix(p.src[p.pos:], "::") {
		p.pos += 2
		next := p.ident()
		if next == "" {
			return "", p.errorf("expected a name after '::'")
		}
		parts = append(parts, next)
	}
	return strings.Join(parts, "::"), nil
}

func (p *exprParser) parseType() (Type, error) {
	name, err := p.qualName()
	if err != nil {
		return nil, err
	}
	switch name {
	case "anytype":
		return Any, nil
	case "anytuple":
		return AnyTuple, nil
	case "array":
		if p.peek() == '<' {
			return p.parseArray()
		}
	case "tuple":
		if p.peek() == '<' {
			return p.parseTuple()
		}
	}
	return p.r.TypeByName(name)
}

func (p *exprParser) parseArray() (Type, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	return p.r.ArrayType(elem)
}

func (p *exprParser) parseTuple() (Type, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	var elems []Element
	named := false
	for i := 0; p.peek() != '>'; i++ {
		if i > 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		elemName := p.elementName()
		if i == 0 {
			named = elemName != ""
		} else if named != (elemName != "") {
			return nil, p.errorf("cannot mix named and positional tuple elements")
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		elems = append(elems, Element{Name: elemName, Type: t})
	}
	p.pos++ // '>'
	if len(elems) == 0 {
		return nil, p.errorf("empty tuple")
	}
	return p.r.TupleType(elems, named)
}

// elementName consumes "name:" when present (but not "name::").
func (p *exprParser) elementName() string {
	save := p.pos
	name := p.ident()
	if name != "" && p.peek() == ':' && !strings.HasPrefix(p.src[p.pos:], "::") {
		p.pos++
		return name
	}
	p.pos = save
	return ""
}
