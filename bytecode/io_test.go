package bytecode

import (
	"bytes"
	"testing"

	"github.com/rootbeersoup/riff/value"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New()
	c.Emit(OpPush1)
	c.EmitByte(OpPushI, 42)
	if _, err := c.AddConst(value.Int64(1000)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddConst(value.Float64(3.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddConst(value.NewStr(value.NewString("hello"))); err != nil {
		t.Fatal(err)
	}
	c.Emit(OpAdd)
	c.Emit(OpExit)

	var buf bytes.Buffer
	if err := c.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got.Instrs, c.Instrs) {
		t.Errorf("Instrs = %v, want %v", got.Instrs, c.Instrs)
	}
	if len(got.Consts) != len(c.Consts) {
		t.Fatalf("Consts len = %d, want %d", len(got.Consts), len(c.Consts))
	}
	if got.Consts[0].IntVal() != 1000 {
		t.Errorf("Consts[0] = %v, want 1000", got.Consts[0])
	}
	if got.Consts[1].FltVal() != 3.5 {
		t.Errorf("Consts[1] = %v, want 3.5", got.Consts[1])
	}
	if got.Consts[2].S.String() != "hello" {
		t.Errorf("Consts[2] = %v, want hello", got.Consts[2])
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	r := bytes.NewReader([]byte("nope"))
	if _, err := Load(r); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
