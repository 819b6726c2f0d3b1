package literal

import (
	"math"
	"strconv"
	"strings"
)

// Repr renders v in the console's literal notation: single-quoted strings
// (double-quoted when that avoids escaping), True/False/None, and
// bracketed lists and mappings. Parse accepts everything Repr produces.
func (v Value) Repr() string {
	var sb strings.Builder
	v.writeRepr(&sb)
	return sb.String()
}

// String implements fmt.Stringer using Repr.
func (v Value) String() string { return v.Repr() }

func (v Value) writeRepr(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("None")
	case KindBool:
		if v.b {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(FormatFloat(v.f))
	case KindString:
		sb.WriteString(QuoteString(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.writeRepr(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		v.m.writeRepr(sb)
	}
}

// Repr renders the mapping in literal notation, keys in insertion order.
func (m *Map) Repr() string {
	var sb strings.Builder
	m.writeRepr(&sb)
	return sb.String()
}

func (m *Map) writeRepr(sb *strings.Builder) {
	sb.WriteByte('{')
	first := true
	m.Range(func(k string, v Value) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(QuoteString(k))
		sb.WriteString(": ")
		v.writeRepr(sb)
		return true
	})
	sb.WriteByte('}')
}

// QuoteString quotes s with single quotes, switching to double quotes when
// s contains a single quote but no double quote.
func QuoteString(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			sb.WriteString(`\x`)
			h := strconv.FormatInt(int64(r), 16)
			if len(h) < 2 {
				sb.WriteByte('0')
			}
			sb.WriteString(h)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// FormatFloat renders f as the shortest text that reads back as the same
// float, always keeping a fraction or exponent so it never reads back as
// an integer.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
