package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rootbeersoup/riff/bytecode"
	"github.com/rootbeersoup/riff/value"
)

func runProgram(t *testing.T, code *bytecode.Code, opts ...Option) string {
	t.Helper()
	var buf bytes.Buffer
	opts = append(opts, Output(&buf))
	inst, err := New(code, opts...)
	require.NoError(t, err)
	require.NoError(t, inst.Run())
	return buf.String()
}

func TestPrintAddition(t *testing.T) {
	code := bytecode.New()
	code.Emit(bytecode.OpPush1)
	code.Emit(bytecode.OpPush2)
	code.Emit(bytecode.OpAdd)
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "3\n", got)
}

func TestCompoundAssignOnGlobal(t *testing.T) {
	code := bytecode.New()
	aIdx, err := code.AddConst(value.NewStr(value.NewString("a")))
	require.NoError(t, err)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.EmitByte(bytecode.OpPushI, 3)
	code.Emit(bytecode.OpSet)
	code.Emit(bytecode.OpPop)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.EmitByte(bytecode.OpPushI, 4)
	code.Emit(bytecode.OpAddX)
	code.Emit(bytecode.OpPop)

	code.EmitByte(bytecode.OpGblV, byte(aIdx))
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "7\n", got)
}

func TestStringCoercedArithmetic(t *testing.T) {
	code := bytecode.New()
	aIdx, err := code.AddConst(value.NewStr(value.NewString("a")))
	require.NoError(t, err)
	tenIdx, err := code.AddConst(value.NewStr(value.NewString("10")))
	require.NoError(t, err)
	require.Equal(t, 1, tenIdx)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.Emit(bytecode.OpPushK1) // the "10" literal, specialized index 1
	code.Emit(bytecode.OpSet)
	code.Emit(bytecode.OpPop)

	code.EmitByte(bytecode.OpGblV, byte(aIdx))
	code.EmitByte(bytecode.OpPushI, 5)
	code.Emit(bytecode.OpAdd)
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "15\n", got)
}

func TestArrayLiteralAndIndex(t *testing.T) {
	code := bytecode.New()
	aIdx, err := code.AddConst(value.NewStr(value.NewString("a")))
	require.NoError(t, err)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.EmitByte(bytecode.OpPushI, 10)
	code.EmitByte(bytecode.OpPushI, 20)
	code.EmitByte(bytecode.OpPushI, 30)
	code.EmitByte(bytecode.OpArray, 3)
	code.Emit(bytecode.OpSet)
	code.Emit(bytecode.OpPop)

	code.EmitByte(bytecode.OpGblV, byte(aIdx))
	code.Emit(bytecode.OpPush1)
	code.Emit(bytecode.OpIdxV)
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "20\n", got)
}

func TestPostIncrementYieldsPreImage(t *testing.T) {
	code := bytecode.New()
	aIdx, err := code.AddConst(value.NewStr(value.NewString("a")))
	require.NoError(t, err)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.EmitByte(bytecode.OpPushI, 3)
	code.Emit(bytecode.OpSet)
	code.Emit(bytecode.OpPop)

	code.EmitByte(bytecode.OpGblA, byte(aIdx))
	code.Emit(bytecode.OpPostInc)
	code.Emit(bytecode.OpPrint1)

	code.EmitByte(bytecode.OpGblV, byte(aIdx))
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "3\n4\n", got)
}

func TestUninitializedGlobalIsNull(t *testing.T) {
	code := bytecode.New()
	aIdx, err := code.AddConst(value.NewStr(value.NewString("never_assigned")))
	require.NoError(t, err)

	code.EmitByte(bytecode.OpGblV, byte(aIdx))
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "null\n", got)
}

func TestShortCircuitOrPreservesDecisiveOperand(t *testing.T) {
	code := bytecode.New()
	hiIdx, err := code.AddConst(value.NewStr(value.NewString("hi")))
	require.NoError(t, err)
	require.Equal(t, 0, hiIdx)

	// 0 || "hi": push 0, XJNZ8 past the right operand if truthy
	// (0 is falsy, so it falls through and the right operand runs).
	code.Emit(bytecode.OpPush0)
	jmpAddr := code.PrepareJump8(bytecode.OpXJnz8)
	code.Emit(bytecode.OpPushK0)
	require.NoError(t, code.PatchJump8(jmpAddr))
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "hi\n", got)
}

func TestShortCircuitOrShortCutsOnTruthyLeft(t *testing.T) {
	code := bytecode.New()
	_, err := code.AddConst(value.NewStr(value.NewString("hi")))
	require.NoError(t, err)

	// 1 || "hi": left is truthy, so XJNZ8 takes the jump and leaves 1
	// on the stack without popping it or evaluating the right side.
	code.Emit(bytecode.OpPush1)
	jmpAddr := code.PrepareJump8(bytecode.OpXJnz8)
	code.Emit(bytecode.OpPushK0)
	require.NoError(t, code.PatchJump8(jmpAddr))
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "1\n", got)
}

func TestModulusIsNonNegativeForPositiveDivisor(t *testing.T) {
	code := bytecode.New()
	code.EmitByte(bytecode.OpPushI, 7)
	code.Emit(bytecode.OpNeg)
	code.EmitByte(bytecode.OpPushI, 3)
	code.Emit(bytecode.OpMod)
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "2\n", got)
}

func TestIdxaOnIntIsFatal(t *testing.T) {
	code := bytecode.New()
	code.EmitByte(bytecode.OpPushI, 5)
	code.Emit(bytecode.OpPush0)
	code.Emit(bytecode.OpIdxA)
	code.Emit(bytecode.OpExit)

	inst, err := New(code)
	require.NoError(t, err)
	require.Error(t, inst.Run())
}

func TestStackOverflowIsFatal(t *testing.T) {
	code := bytecode.New()
	for i := 0; i < 10; i++ {
		code.Emit(bytecode.OpPush1)
	}
	code.Emit(bytecode.OpExit)

	inst, err := New(code, StackSize(4))
	require.NoError(t, err)
	require.Error(t, inst.Run())
}

func TestArgvOffsetLookup(t *testing.T) {
	code := bytecode.New()
	code.Emit(bytecode.OpPush0) // user-visible index 0 -> internal index 0+offset(2) = "hello"
	code.Emit(bytecode.OpArgV)
	code.Emit(bytecode.OpPrint1)
	code.Emit(bytecode.OpExit)

	var buf bytes.Buffer
	inst, err := New(code, Argv([]string{"riff", "script.rf", "hello"}, false), Output(&buf))
	require.NoError(t, err)
	require.NoError(t, inst.Run())
	require.Equal(t, "hello\n", buf.String())
}

func TestPrintN(t *testing.T) {
	code := bytecode.New()
	code.EmitByte(bytecode.OpPushI, 3)
	code.Emit(bytecode.OpPush1)
	code.Emit(bytecode.OpPush2)
	code.EmitByte(bytecode.OpPrint, 3)
	code.Emit(bytecode.OpExit)

	got := runProgram(t, code)
	require.Equal(t, "3 1 2\n", got)
}
