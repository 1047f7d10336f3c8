// Package emitter assembles a bytecode.Code object from a stream of
// parser-driven operations. It owns constant-pool interning and
// small-literal specialization; it does not parse source itself — a
// surface-grammar parser, external to this module, calls these
// operations in the order dictated by the grammar.
package emitter

import (
	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/bytecode"
	"github.com/rootbeersoup/riff/token"
	"github.com/rootbeersoup/riff/value"
)

// Emitter assembles instructions and constants into a Code object.
type Emitter struct {
	code *bytecode.Code
}

// New returns an Emitter writing into a fresh Code object.
func New() *Emitter {
	return &Emitter{code: bytecode.New()}
}

// Code returns the Code object assembled so far. The parser calls this
// once compilation is complete.
func (e *Emitter) Code() *bytecode.Code {
	return e.code
}

// PushLiteral emits the push sequence for a FLT/INT/STR literal token,
// deduplicating against existing constant-table entries and using the
// small-integer immediate opcodes where possible.
func (e *Emitter) PushLiteral(tk token.Token) error {
	switch tk.Kind {
	case token.INT:
		if idx := e.findIntOrFlt(tk); idx >= 0 {
			e.emitPushK(idx)
			return nil
		}
		switch {
		case tk.Int == 0:
			e.code.Emit(bytecode.OpPush0)
			return nil
		case tk.Int == 1:
			e.code.Emit(bytecode.OpPush1)
			return nil
		case tk.Int == 2:
			e.code.Emit(bytecode.OpPush2)
			return nil
		case tk.Int >= 3 && tk.Int <= 255:
			e.code.EmitByte(bytecode.OpPushI, byte(tk.Int))
			return nil
		}
		idx, err := e.code.AddConst(value.Int64(tk.Int))
		if err != nil {
			return errors.Wrap(err, "push literal")
		}
		e.emitPushK(idx)
		return nil

	case token.FLT:
		if idx := e.findIntOrFlt(tk); idx >= 0 {
			e.emitPushK(idx)
			return nil
		}
		idx, err := e.code.AddConst(value.Float64(tk.Flt))
		if err != nil {
			return errors.Wrap(err, "push literal")
		}
		e.emitPushK(idx)
		return nil

	case token.STR:
		idx, err := e.internString(tk.Str)
		if err != nil {
			return errors.Wrap(err, "push literal")
		}
		e.emitPushK(idx)
		return nil

	default:
		return errors.Errorf("push literal: token kind %v is not a literal", tk.Kind)
	}
}

// PushSymbol emits the push sequence for an identifier token, using the
// PUSHS family instead of PUSHK to mark the constant as an identifier
// name rather than a string literal. The VM executes PUSHS exactly like
// PUSHK: both push a copy of the constant-table entry.
func (e *Emitter) PushSymbol(tk token.Token) error {
	idx, err := e.internString(tk.Str)
	if err != nil {
		return errors.Wrap(err, "push symbol")
	}
	e.emitPushS(idx)
	return nil
}

// findIntOrFlt returns the index of an existing constant-table entry
// exactly equal to tk's literal value, or -1 if none exists.
func (e *Emitter) findIntOrFlt(tk token.Token) int {
	for i, c := range e.code.Consts {
		switch tk.Kind {
		case token.INT:
			if c.Tag == value.Int && c.I == tk.Int {
				return i
			}
		case token.FLT:
			if c.Tag == value.Float && c.F == tk.Flt {
				return i
			}
		}
	}
	return -1
}

// internString returns the constant-table index for a string matching
// s by hash, interning it if not already present.
func (e *Emitter) internString(s string) (int, error) {
	h := value.NewString(s)
	for i, c := range e.code.Consts {
		if c.Tag == value.Str && c.S.Equal(h) {
			return i, nil
		}
	}
	return e.code.AddConst(value.NewStr(h))
}

func (e *Emitter) emitPushK(idx int) {
	switch idx {
	case 0:
		e.code.Emit(bytecode.OpPushK0)
	case 1:
		e.code.Emit(bytecode.OpPushK1)
	case 2:
		e.code.Emit(bytecode.OpPushK2)
	default:
		e.code.EmitByte(bytecode.OpPushK, byte(idx))
	}
}

func (e *Emitter) emitPushS(idx int) {
	switch idx {
	case 0:
		e.code.Emit(bytecode.OpPushS0)
	case 1:
		e.code.Emit(bytecode.OpPushS1)
	case 2:
		e.code.Emit(bytecode.OpPushS2)
	default:
		e.code.EmitByte(bytecode.OpPushS, byte(idx))
	}
}

var infixOps = map[token.Kind]bytecode.Op{
	token.Kind('+'): bytecode.OpAdd,
	token.Kind('-'): bytecode.OpSub,
	token.Kind('*'): bytecode.OpMul,
	token.Kind('/'): bytecode.OpDiv,
	token.Kind('%'): bytecode.OpMod,
	token.Kind('>'): bytecode.OpGt,
	token.Kind('<'): bytecode.OpLt,
	token.Kind('='): bytecode.OpSet,
	token.Kind('&'): bytecode.OpAnd,
	token.Kind('|'): bytecode.OpOr,
	token.Kind('^'): bytecode.OpXor,
	token.SHL:       bytecode.OpShl,
	token.SHR:       bytecode.OpShr,
	token.POW:       bytecode.OpPow,
	token.CAT:       bytecode.OpCat,
	token.GE:        bytecode.OpGe,
	token.LE:        bytecode.OpLe,
	token.EQ:        bytecode.OpEq,
	token.NE:        bytecode.OpNe,
	token.ADDX:      bytecode.OpAddX,
	token.ANDX:      bytecode.OpAndX,
	token.DIVX:      bytecode.OpDivX,
	token.MODX:      bytecode.OpModX,
	token.MULX:      bytecode.OpMulX,
	token.ORX:       bytecode.OpOrX,
	token.SUBX:      bytecode.OpSubX,
	token.XORX:      bytecode.OpXorX,
	token.CATX:      bytecode.OpCatX,
	token.POWX:      bytecode.OpPowX,
	token.SHLX:      bytecode.OpShlX,
	token.SHRX:      bytecode.OpShrX,
}

// Infix emits the opcode for a binary operator token.
func (e *Emitter) Infix(k token.Kind) error {
	op, ok := infixOps[k]
	if !ok {
		return errors.Errorf("infix: no opcode for operator %v", k)
	}
	e.code.Emit(op)
	return nil
}

var prefixOps = map[token.Kind]bytecode.Op{
	token.Kind('!'): bytecode.OpLNot,
	token.Kind('#'): bytecode.OpLen,
	token.Kind('+'): bytecode.OpNum,
	token.Kind('-'): bytecode.OpNeg,
	token.Kind('~'): bytecode.OpNot,
	token.INC:       bytecode.OpPreInc,
	token.DEC:       bytecode.OpPreDec,
}

// Prefix emits the opcode for a unary prefix operator token.
func (e *Emitter) Prefix(k token.Kind) error {
	op, ok := prefixOps[k]
	if !ok {
		return errors.Errorf("prefix: no opcode for operator %v", k)
	}
	e.code.Emit(op)
	return nil
}

var postfixOps = map[token.Kind]bytecode.Op{
	token.INC: bytecode.OpPostInc,
	token.DEC: bytecode.OpPostDec,
}

// Postfix emits the opcode for a unary postfix operator token.
func (e *Emitter) Postfix(k token.Kind) error {
	op, ok := postfixOps[k]
	if !ok {
		return errors.Errorf("postfix: no opcode for operator %v", k)
	}
	e.code.Emit(op)
	return nil
}

// PrepareJump8/16 and PatchJump8/16 delegate straight to the Code
// object; the emitter exists at this layer only to give the parser a
// single client API for both constant emission and jump patching.

func (e *Emitter) PrepareJump8(op bytecode.Op) int  { return e.code.PrepareJump8(op) }
func (e *Emitter) PrepareJump16(op bytecode.Op) int { return e.code.PrepareJump16(op) }

func (e *Emitter) PatchJump8(addr int) error  { return e.code.PatchJump8(addr) }
func (e *Emitter) PatchJump16(addr int) error { return e.code.PatchJump16(addr) }
