package bytecode

import (
	"testing"

	"github.com/rootbeersoup/riff/value"
)

func TestEmitAndEmitByte(t *testing.T) {
	c := New()
	c.Emit(OpAdd)
	c.EmitByte(OpPushI, 42)
	want := []byte{byte(OpAdd), byte(OpPushI), 42}
	if len(c.Instrs) != len(want) {
		t.Fatalf("Instrs = %v, want %v", c.Instrs, want)
	}
	for i := range want {
		if c.Instrs[i] != want[i] {
			t.Errorf("Instrs[%d] = %d, want %d", i, c.Instrs[i], want[i])
		}
	}
}

func TestAddConstOverflow(t *testing.T) {
	c := New()
	for i := 0; i < MaxConsts; i++ {
		if _, err := c.AddConst(value.Int64(int64(i))); err != nil {
			t.Fatalf("AddConst #%d: unexpected error: %v", i, err)
		}
	}
	if _, err := c.AddConst(value.Int64(999)); err == nil {
		t.Fatal("expected error adding the 257th constant")
	}
}

func TestJump8ForwardPatch(t *testing.T) {
	c := New()
	addr := c.PrepareJump8(OpJmp8)
	c.Emit(OpNull) // one filler byte the jump should skip over
	if err := c.PatchJump8(addr); err != nil {
		t.Fatal(err)
	}
	// displacement is measured from the byte after the operand
	want := int8(len(c.Instrs) - (addr + 1))
	got := int8(c.Instrs[addr])
	if got != want {
		t.Errorf("patched displacement = %d, want %d", got, want)
	}
}

func TestJump16ForwardPatch(t *testing.T) {
	c := New()
	addr := c.PrepareJump16(OpJmp16)
	for i := 0; i < 10; i++ {
		c.Emit(OpNull)
	}
	if err := c.PatchJump16(addr); err != nil {
		t.Fatal(err)
	}
	hi, lo := c.Instrs[addr], c.Instrs[addr+1]
	disp := int16(uint16(hi)<<8 | uint16(lo))
	want := int16(len(c.Instrs) - (addr + 2))
	if disp != want {
		t.Errorf("patched displacement = %d, want %d", disp, want)
	}
}

func TestJump8OutOfRangeIsError(t *testing.T) {
	c := New()
	addr := c.PrepareJump8(OpJmp8)
	for i := 0; i < 200; i++ {
		c.Emit(OpNull)
	}
	if err := c.PatchJump8(addr); err == nil {
		t.Fatal("expected error for an out-of-range 8-bit displacement")
	}
}

func TestOpString(t *testing.T) {
	if OpAdd.String() != "ADD" {
		t.Errorf("OpAdd.String() = %q, want ADD", OpAdd.String())
	}
	if OpJmp16.String() != "JMP16" {
		t.Errorf("OpJmp16.String() = %q, want JMP16", OpJmp16.String())
	}
}
