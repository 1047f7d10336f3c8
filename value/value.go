// Package value implements the tagged Value union shared by the lexer
// (string/number literals), the emitter (constant pool entries) and the
// virtual machine (the runtime value type), along with the String and
// Array types it is built from.
package value

import (
	"strconv"
	"strings"
)

// Tag identifies which field of a Value is meaningful.
type Tag uint8

const (
	// Null is the zero value: an uninitialized or absent value.
	Null Tag = iota
	// Int holds a 64-bit signed integer in I.
	Int
	// Float holds an IEEE-754 double in F.
	Float
	// Str holds an owning handle to a String in S.
	Str
	// Arr holds an owning handle to an Array in A.
	Arr
	// Fn holds a function handle. Unused: function values are tagged
	// but never constructed, since this language has no closures or
	// user-defined functions.
	Fn
)

// Value is a tagged union: only the field matching Tag is meaningful,
// the others are zero.
type Value struct {
	Tag Tag
	I   int64
	F   float64
	S   *String
	A   *Array
}

// Int64 builds an Int value.
func Int64(i int64) Value { return Value{Tag: Int, I: i} }

// Float64 builds a Float value.
func Float64(f float64) Value { return Value{Tag: Float, F: f} }

// NewStr builds a Str value from an already-interned String.
func NewStr(s *String) Value { return Value{Tag: Str, S: s} }

// NewArr builds an Arr value wrapping a freshly allocated Array.
func NewArr() Value { return Value{Tag: Arr, A: NewArray()} }

// Text renders v the way PRINT does: NULL as "null", INT/FLT in their
// decimal form (floats in the shortest 'g'-style form that round-trips,
// not printf's six-significant-digit %g), STR as its raw bytes, ARR as
// a bracketed element list.
func (v Value) Text() string {
	switch v.Tag {
	case Null:
		return "null"
	case Int:
		return strconv.FormatInt(v.I, 10)
	case Float:
		return formatFloat(v.F)
	case Str:
		return v.S.String()
	case Arr:
		parts := make([]string, 0, v.A.Len())
		for _, e := range v.A.Elems() {
			parts = append(parts, e.Text())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Fn:
		return "fn"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// NumVal coerces v to a float64 the way the VM's arithmetic dispatch
// does: INT and FLT convert directly, STR is parsed as a double
// (unparseable text yields 0, matching strtod's behavior of stopping at
// the first invalid character and returning 0 for no valid prefix), any
// other tag yields 0.
func (v Value) NumVal() float64 {
	switch v.Tag {
	case Int:
		return float64(v.I)
	case Float:
		return v.F
	case Str:
		return parseFloatPrefix(v.S.String())
	default:
		return 0
	}
}

// IntVal coerces v to an int64: INT passes through, FLT truncates
// toward zero, STR is parsed with automatic base detection (0x/0b/0
// prefixes), matching strtoull(..., 0) semantics; anything else is 0.
func (v Value) IntVal() int64 {
	switch v.Tag {
	case Int:
		return v.I
	case Float:
		return int64(v.F)
	case Str:
		return parseIntAutoBase(v.S.String())
	default:
		return 0
	}
}

// FltVal coerces v to a float64: FLT passes through, INT converts,
// STR is parsed as a double, anything else is 0.
func (v Value) FltVal() float64 {
	switch v.Tag {
	case Float:
		return v.F
	case Int:
		return float64(v.I)
	case Str:
		return parseFloatPrefix(v.S.String())
	default:
		return 0
	}
}

// Truth implements the TEST opcode: STR parses a leading numeric
// prefix after trimming only leading whitespace; if that parse
// consumes the rest of the string, the logical value of the number is
// used, otherwise the logical value of the string's length (so
// trailing non-numeric content, including trailing whitespace, keeps
// a non-empty string truthy regardless of what it parses as). ARR
// tests its length. FN is always true. NULL is always false.
func (v Value) Truth() bool {
	switch v.Tag {
	case Int:
		return v.I != 0
	case Float:
		return v.F != 0
	case Str:
		s := strings.TrimLeft(v.S.String(), " \t\n\r\f\v")
		f, consumedAll := parseFloatConsumed(s)
		if consumedAll {
			return f != 0
		}
		return v.S.Len() != 0
	case Arr:
		return v.A.Len() != 0
	case Fn:
		return true
	default:
		return false
	}
}

// Length implements the LEN opcode. STR/ARR return their element
// counts. INT returns its decimal digit count, +1 for a leading sign.
// FLT stringifies and returns that length.
func (v Value) Length() int64 {
	switch v.Tag {
	case Str:
		return int64(v.S.Len())
	case Arr:
		return int64(v.A.Len())
	case Int:
		// Counting digits via FormatInt sidesteps the rounding error
		// math.Log10 has at exact powers of ten; FormatInt's leading
		// '-' already accounts for the sign digit negative values add.
		return int64(len(strconv.FormatInt(v.I, 10)))
	case Float:
		return int64(len(formatFloat(v.F)))
	default:
		return 0
	}
}

// parseFloatPrefix parses as much of a leading numeric prefix of s as
// strconv permits; it returns 0 rather than an error for malformed or
// empty input, matching strtod's never-fail contract.
func parseFloatPrefix(s string) float64 {
	f, _ := parseFloatConsumed(strings.TrimSpace(s))
	return f
}

// parseFloatConsumed parses the longest leading numeric prefix of s
// that strconv accepts, shrinking from the right until one succeeds,
// and reports whether the parse consumed s in its entirety.
func parseFloatConsumed(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	end := len(s)
	for end > 0 {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f, end == len(s)
		}
		end--
	}
	return 0, false
}

// parseIntAutoBase parses s as an integer, auto-detecting base the way
// strtoull(s, &end, 0) does: a "0x"/"0X" prefix selects base 16, a
// leading "0" alone selects base 8, otherwise base 10. Beyond strtoull,
// a "0b"/"0B" prefix selects base 2 and "0o"/"0O" base 8. Unparseable
// input yields 0.
func parseIntAutoBase(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := len(s)
	for end > 0 {
		if n, err := strconv.ParseUint(s[:end], 0, 64); err == nil {
			if neg {
				return -int64(n)
			}
			return int64(n)
		}
		end--
	}
	return 0
}
