package literal

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts v to the given kind. It reports false when no sensible
// conversion exists, in which case callers keep v as it is.
//
// Strings convert to numbers and booleans by parsing; integral floats
// convert to integers; integers widen to floats; scalars convert to strings
// via their literal form (strings are unchanged). Lists, mappings and null
// are only "converted" to their own kind.
func Coerce(v Value, kind Kind) (Value, bool) {
	if v.kind == kind {
		return v, true
	}

	switch kind {
	case KindInt:
		switch v.kind {
		case KindFloat:
			if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
				return Int(int64(v.f)), true
			}
		case KindString:
			s := strings.TrimSpace(v.s)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Int(i), true
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return Coerce(Float(f), KindInt)
			}
		}

	case KindFloat:
		switch v.kind {
		case KindInt:
			return Float(float64(v.i)), true
		case KindString:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil &&
				!math.IsNaN(f) && !math.IsInf(f, 0) {
				return Float(f), true
			}
		}

	case KindString:
		switch v.kind {
		case KindBool, KindInt, KindFloat:
			return String(v.Repr()), true
		}

	case KindBool:
		if v.kind == KindString {
			switch strings.TrimSpace(v.s) {
			case "True", "true":
				return Bool(true), true
			case "False", "false":
				return Bool(false), true
			}
		}
	}

	return v, false
}
