package vm

import (
	"math"
	"strconv"

	"github.com/rootbeersoup/riff/value"
)

// numify applies the NUM opcode in place: INT/FLT pass through their
// own coercion, STR parses as a double, anything else becomes INT 0.
func numify(v *value.Value) {
	switch v.Tag {
	case value.Int:
		*v = value.Int64(v.IntVal())
	case value.Float:
		*v = value.Float64(v.FltVal())
	case value.Str:
		*v = value.Float64(v.FltVal())
	default:
		*v = value.Int64(0)
	}
}

// negate applies the NEG opcode in place.
func negate(v *value.Value) {
	switch v.Tag {
	case value.Int:
		*v = value.Int64(-v.IntVal())
	case value.Float:
		*v = value.Float64(-v.FltVal())
	case value.Str:
		*v = value.Float64(-v.FltVal())
	default:
		*v = value.Int64(0)
	}
}

// bitNot applies the NOT opcode in place: bitwise complement after
// coercing to int.
func bitNot(v *value.Value) {
	*v = value.Int64(^v.IntVal())
}

// logicalNot applies the LNOT opcode in place.
func logicalNot(v *value.Value) {
	if v.NumVal() == 0 {
		*v = value.Int64(1)
	} else {
		*v = value.Int64(0)
	}
}

// lengthOf applies the LEN opcode in place (value.Value.Length).
func lengthOf(v *value.Value) {
	*v = value.Int64(v.Length())
}

// testOf applies the TEST opcode in place (value.Value.Truth).
func testOf(v *value.Value) {
	if v.Truth() {
		*v = value.Int64(1)
	} else {
		*v = value.Int64(0)
	}
}

// isFloaty reports whether either operand forces floating-point
// arithmetic: arithmetic is integer unless one side is already FLT.
func isFloaty(l, r *value.Value) bool {
	return l.Tag == value.Float || r.Tag == value.Float
}

func boolInt(b bool) value.Value {
	if b {
		return value.Int64(1)
	}
	return value.Int64(0)
}

// add/sub/mul perform float arithmetic if either side is FLT,
// otherwise integer arithmetic. Both write the result into l.
func add(l, r *value.Value) {
	if isFloaty(l, r) {
		*l = value.Float64(l.NumVal() + r.NumVal())
	} else {
		*l = value.Int64(l.IntVal() + r.IntVal())
	}
}

func sub(l, r *value.Value) {
	if isFloaty(l, r) {
		*l = value.Float64(l.NumVal() - r.NumVal())
	} else {
		*l = value.Int64(l.IntVal() - r.IntVal())
	}
}

func mul(l, r *value.Value) {
	if isFloaty(l, r) {
		*l = value.Float64(l.NumVal() * r.NumVal())
	} else {
		*l = value.Int64(l.IntVal() * r.IntVal())
	}
}

// div always produces a float result, even for two integer operands.
// Division by zero follows IEEE-754 (inf/NaN).
func div(l, r *value.Value) {
	*l = value.Float64(l.NumVal() / r.NumVal())
}

// mod adds the right operand to fmod's result when that result is
// negative, so a positive divisor always yields a non-negative result
// rather than C's truncating remainder. A negative raw result is the
// only case adjusted: with a negative divisor the result is not
// brought to the divisor's sign (7 % -3 is 1).
func mod(l, r *value.Value) {
	res := math.Mod(l.NumVal(), r.NumVal())
	if res < 0 {
		res += r.NumVal()
	}
	*l = value.Float64(res)
}

func pow(l, r *value.Value) {
	*l = value.Float64(math.Pow(l.FltVal(), r.FltVal()))
}

func bitAnd(l, r *value.Value) { *l = value.Int64(l.IntVal() & r.IntVal()) }
func bitOr(l, r *value.Value)  { *l = value.Int64(l.IntVal() | r.IntVal()) }
func bitXor(l, r *value.Value) { *l = value.Int64(l.IntVal() ^ r.IntVal()) }
func shl(l, r *value.Value)    { *l = value.Int64(l.IntVal() << uint(r.IntVal())) }
func shr(l, r *value.Value)    { *l = value.Int64(l.IntVal() >> uint(r.IntVal())) }

func cmpEq(l, r *value.Value) { *l = boolInt(numOrStrEqual(l, r)) }
func cmpNe(l, r *value.Value) { *l = boolInt(!numOrStrEqual(l, r)) }

func numOrStrEqual(l, r *value.Value) bool {
	if isFloaty(l, r) {
		return l.NumVal() == r.NumVal()
	}
	return l.IntVal() == r.IntVal()
}

func cmpGt(l, r *value.Value) { *l = boolInt(numCompare(l, r) > 0) }
func cmpGe(l, r *value.Value) { *l = boolInt(numCompare(l, r) >= 0) }
func cmpLt(l, r *value.Value) { *l = boolInt(numCompare(l, r) < 0) }
func cmpLe(l, r *value.Value) { *l = boolInt(numCompare(l, r) <= 0) }

// numCompare orders l and r numerically: integer ordering unless
// either side is FLT.
func numCompare(l, r *value.Value) int {
	if isFloaty(l, r) {
		lf, rf := l.NumVal(), r.NumVal()
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	li, ri := l.IntVal(), r.IntVal()
	switch {
	case li < ri:
		return -1
	case li > ri:
		return 1
	default:
		return 0
	}
}

// cat implements CAT: both operands are rebuilt into fresh strings
// (NULL becomes "", INT/FLT their decimal text), then the left cell
// becomes their concatenation.
func cat(l, r *value.Value) {
	*l = value.NewStr(value.NewString(textForCat(*l) + textForCat(*r)))
}

func textForCat(v value.Value) string {
	switch v.Tag {
	case value.Null:
		return ""
	case value.Int:
		return strconv.FormatInt(v.I, 10)
	case value.Float:
		return v.Text()
	case value.Str:
		return v.S.String()
	default:
		return ""
	}
}

// idxBinary implements IDX's fallback for non-array left operands:
// STR indexes a single byte, INT/FLT stringify first. Out-of-range
// indices yield NULL rather than reading past the string.
func idxBinary(l, r *value.Value) {
	var s string
	switch l.Tag {
	case value.Str:
		s = l.S.String()
	case value.Int, value.Float:
		s = l.Text()
	default:
		*l = value.Int64(0)
		return
	}
	idx := int(r.IntVal())
	if idx < 0 || idx >= len(s) {
		*l = value.Value{Tag: value.Null}
		return
	}
	*l = value.NewStr(value.NewString(string(s[idx])))
}
