package bytecode

import (
	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/value"
)

// MaxConsts is the constant table's maximum length: it is addressed by
// a single byte operand, so no Code object can hold more than 256
// entries.
const MaxConsts = 256

// Code is a compiled program: a flat instruction stream plus the
// constant pool it indexes into. Both are read-only once execution
// starts.
type Code struct {
	Instrs []byte
	Consts []value.Value
}

// New returns an empty Code object ready for emission.
func New() *Code {
	return &Code{}
}

// Len reports the current length of the instruction stream, i.e. the
// address the next emitted byte will occupy.
func (c *Code) Len() int {
	return len(c.Instrs)
}

// Emit appends a bare opcode with no immediate operand and returns its
// address.
func (c *Code) Emit(op Op) int {
	addr := len(c.Instrs)
	c.Instrs = append(c.Instrs, byte(op))
	return addr
}

// EmitByte appends an opcode followed by a single immediate byte and
// returns the opcode's address.
func (c *Code) EmitByte(op Op, b byte) int {
	addr := len(c.Instrs)
	c.Instrs = append(c.Instrs, byte(op), b)
	return addr
}

// AddConst appends v to the constant table and returns its index. It
// fails once the table would exceed MaxConsts entries.
func (c *Code) AddConst(v value.Value) (int, error) {
	if len(c.Consts) >= MaxConsts {
		return 0, errors.Errorf("constant table overflow: cannot add more than %d entries", MaxConsts)
	}
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1, nil
}

// PrepareJump8 emits op followed by a one-byte placeholder and returns
// the index of that placeholder byte, to be filled in later by
// PatchJump8.
func (c *Code) PrepareJump8(op Op) int {
	c.Instrs = append(c.Instrs, byte(op), 0)
	return len(c.Instrs) - 1
}

// PatchJump8 fills the placeholder byte at operandAddr (as returned by
// PrepareJump8) with the signed displacement from the byte immediately
// following the operand to the current end of the instruction stream.
// The displacement must fit in a signed byte; callers needing a longer
// range should use the *16 forms instead.
func (c *Code) PatchJump8(operandAddr int) error {
	disp := len(c.Instrs) - (operandAddr + 1)
	if disp < -128 || disp > 127 {
		return errors.Errorf("jump displacement %d out of range for an 8-bit jump", disp)
	}
	c.Instrs[operandAddr] = byte(int8(disp))
	return nil
}

// PrepareJump16 emits op followed by a two-byte placeholder and returns
// the index of the first placeholder byte.
func (c *Code) PrepareJump16(op Op) int {
	c.Instrs = append(c.Instrs, byte(op), 0, 0)
	return len(c.Instrs) - 2
}

// PatchJump16 fills the two-byte placeholder at operandAddr with the
// big-endian signed displacement from the byte immediately following
// the operand to the current end of the instruction stream.
func (c *Code) PatchJump16(operandAddr int) error {
	disp := len(c.Instrs) - (operandAddr + 2)
	if disp < -32768 || disp > 32767 {
		return errors.Errorf("jump displacement %d out of range for a 16-bit jump", disp)
	}
	u := uint16(int16(disp))
	c.Instrs[operandAddr] = byte(u >> 8)
	c.Instrs[operandAddr+1] = byte(u)
	return nil
}
