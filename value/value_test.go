package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTextRendersEachTag(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Value{Tag: Null}, "null"},
		{"int", Int64(42), "42"},
		{"negative int", Int64(-7), "-7"},
		{"float", Float64(1.5), "1.5"},
		{"str", NewStr(NewString("hi")), "hi"},
	}
	for _, tt := range tests {
		if got := tt.v.Text(); got != tt.want {
			t.Errorf("%s: Text() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTextRendersArray(t *testing.T) {
	v := NewArr()
	v.A.At(0).Tag = Int
	v.A.At(0).I = 10
	v.A.At(1).Tag = Int
	v.A.At(1).I = 20
	if got, want := v.Text(), "{10, 20}"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestNumValCoercion(t *testing.T) {
	tests := []struct {
		v    Value
		want float64
	}{
		{Int64(3), 3},
		{Float64(2.5), 2.5},
		{NewStr(NewString("10")), 10},
		{NewStr(NewString("abc")), 0},
		{Value{Tag: Null}, 0},
	}
	for _, tt := range tests {
		if got := tt.v.NumVal(); got != tt.want {
			t.Errorf("NumVal(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestIntValAutoBase(t *testing.T) {
	tests := []struct {
		s    string
		want int64
	}{
		{"10", 10},
		{"0x10", 16},
		{"0b101", 5},
		{"-5", -5},
	}
	for _, tt := range tests {
		v := NewStr(NewString(tt.s))
		if got := v.IntVal(); got != tt.want {
			t.Errorf("IntVal(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestTruthString(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"10", true},
		{"0", false},
		{"0.0", false},
		{"abc", true},  // fully non-numeric, falls back to length
		{"", false},    // empty string, length 0
		{"3abc", true}, // partial parse, falls back to byte length
		{" 0", false},  // leading whitespace is trimmed before parsing
		{" 0 ", true},  // trailing whitespace is not consumed by the parse
	}
	for _, tt := range tests {
		v := NewStr(NewString(tt.s))
		if got := v.Truth(); got != tt.want {
			t.Errorf("Truth(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestTruthOtherTags(t *testing.T) {
	if Value{Tag: Null}.Truth() {
		t.Error("Null should be false")
	}
	if Int64(0).Truth() {
		t.Error("Int64(0) should be false")
	}
	if !Int64(1).Truth() {
		t.Error("Int64(1) should be true")
	}
	empty := NewArr()
	if empty.Truth() {
		t.Error("empty array should be false")
	}
}

func TestLengthInt(t *testing.T) {
	tests := []struct {
		i    int64
		want int64
	}{
		{0, 1},
		{5, 1},
		{99, 2},
		{100, 3},
		{-5, 2},
		{-100, 4},
	}
	for _, tt := range tests {
		if got := Int64(tt.i).Length(); got != tt.want {
			t.Errorf("Length(%d) = %d, want %d", tt.i, got, tt.want)
		}
	}
}

func TestLengthStrAndArr(t *testing.T) {
	if got := NewStr(NewString("abc")).Length(); got != 3 {
		t.Errorf("Length(\"abc\") = %d, want 3", got)
	}
	a := NewArr()
	a.A.At(0)
	a.A.At(1)
	a.A.At(2)
	if got := a.Length(); got != 3 {
		t.Errorf("Length(arr) = %d, want 3", got)
	}
}

func TestArrayStructuralEquality(t *testing.T) {
	a := NewArray()
	a.At(0).Tag = Int
	a.At(0).I = 1
	a.At(1).Tag = Int
	a.At(1).I = 2

	b := NewArray()
	b.At(0).Tag = Int
	b.At(0).I = 1
	b.At(1).Tag = Int
	b.At(1).I = 2

	if diff := cmp.Diff(a.Elems(), b.Elems()); diff != "" {
		t.Errorf("arrays differ (-a +b):\n%s", diff)
	}
}

func TestArrayGetOutOfRangeIsNull(t *testing.T) {
	a := NewArray()
	a.At(0)
	got := a.Get(5)
	if got.Tag != Null {
		t.Errorf("Get(5) on a 1-element array = %v, want Null", got)
	}
}

func TestArrayInsertWithOffset(t *testing.T) {
	a := NewArray()
	a.Insert(2, Int64(99), 2)
	if got := a.Get(0); got.Tag != Int || got.I != 99 {
		t.Errorf("Insert(2, 99, offset=2) then Get(0) = %v, want Int 99", got)
	}
}

func TestStringEqual(t *testing.T) {
	a := NewString("hello")
	b := NewString("hello")
	c := NewString("world")
	if !a.Equal(b) {
		t.Error("equal content strings should compare equal")
	}
	if a.Equal(c) {
		t.Error("different content strings should not compare equal")
	}
}
