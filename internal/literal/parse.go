package literal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is wrapped by every error returned from Parse.
var ErrSyntax = errors.New("invalid literal")

// maxDepth bounds list/mapping nesting.
const maxDepth = 64

// Parse evaluates src as a single plain data literal: a quoted string, an
// integer, a float, True/False/None (or true/false/null), a list, or a
// mapping with string keys. Nothing else is accepted.
func Parse(src string) (Value, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.eof() {
		return Value{}, fmt.Errorf("%w: empty input", ErrSyntax)
	}
	v, err := p.value(0)
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return Value{}, p.errorf("unexpected %q", p.peek())
	}
	return v, nil
}

// ParseMap is Parse restricted to mapping literals.
func ParseMap(src string) (*Map, error) {
	v, err := Parse(src)
	if err != nil {
		return nil, err
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("%w: expected mapping, got %s", ErrSyntax, v.Kind())
	}
	return m, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, fmt.Sprintf(format, args...), p.pos)
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, p.errorf("nesting deeper than %d", maxDepth)
	}
	if p.eof() {
		return Value{}, p.errorf("unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.mapping(depth)
	case c == '[':
		return p.list(depth)
	case c == '"' || c == '\'':
		s, err := p.quoted()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.keyword()
	default:
		return Value{}, p.errorf("unexpected %q", c)
	}
}

func (p *parser) keyword() (Value, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "True", "true":
		return Bool(true), nil
	case "False", "false":
		return Bool(false), nil
	case "None", "null":
		return Null(), nil
	default:
		p.pos = start
		return Value{}, p.errorf("unknown name %q", word)
	}
}

func (p *parser) number() (Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	digits := 0
	isFloat := false
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
		digits++
	}
	if !p.eof() && p.peek() == '.' {
		isFloat = true
		p.pos++
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		p.pos = start
		return Value{}, p.errorf("malformed number")
	}
	if !p.eof() && (p.peek() == 'e' || p.peek() == 'E') {
		isFloat = true
		p.pos++
		if !p.eof() && (p.peek() == '-' || p.peek() == '+') {
			p.pos++
		}
		expDigits := 0
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
			expDigits++
		}
		if expDigits == 0 {
			return Value{}, p.errorf("malformed exponent")
		}
	}

	text := p.src[start:p.pos]
	if !isFloat {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, p.errorf("integer %s out of range", text)
		}
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, p.errorf("float %s out of range", text)
	}
	return Float(f), nil
}

func (p *parser) quoted() (string, error) {
	quote := p.peek()
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return "", p.errorf("unterminated string")
			}
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(sb *strings.Builder) error {
	c := p.peek()
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case '0':
		sb.WriteByte(0)
	case '\\', '\'', '"', '/':
		sb.WriteByte(c)
	case 'x':
		return p.hexRune(sb, 2)
	case 'u':
		return p.hexRune(sb, 4)
	default:
		// Unknown escapes are kept verbatim.
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) hexRune(sb *strings.Builder, n int) error {
	if p.pos+n > len(p.src) {
		return p.errorf("truncated escape")
	}
	code, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return p.errorf("invalid escape")
	}
	p.pos += n
	r := rune(code)
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	sb.WriteRune(r)
	return nil
}

func (p *parser) list(depth int) (Value, error) {
	p.pos++ // [
	items := []Value{}
	for {
		p.skipSpace()
		if p.eof() {
			return Value{}, p.errorf("unterminated list")
		}
		if p.peek() == ']' {
			p.pos++
			return List(items...), nil
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)

		p.skipSpace()
		if p.eof() {
			return Value{}, p.errorf("unterminated list")
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return Value{}, p.errorf("expected ',' or ']', got %q", p.peek())
		}
	}
}

func (p *parser) mapping(depth int) (Value, error) {
	p.pos++ // {
	m := NewMap()
	for {
		p.skipSpace()
		if p.eof() {
			return Value{}, p.errorf("unterminated mapping")
		}
		if p.peek() == '}' {
			p.pos++
			return MapValue(m), nil
		}
		if c := p.peek(); c != '"' && c != '\'' {
			return Value{}, p.errorf("mapping keys must be strings")
		}
		key, err := p.quoted()
		if err != nil {
			return Value{}, err
		}

		p.skipSpace()
		if p.eof() || p.peek() != ':' {
			return Value{}, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()

		v, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		m.Set(key, v)

		p.skipSpace()
		if p.eof() {
			return Value{}, p.errorf("unterminated mapping")
		}
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return Value{}, p.errorf("expected ',' or '}', got %q", p.peek())
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
