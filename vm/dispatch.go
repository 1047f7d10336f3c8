package vm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/bytecode"
	"github.com/rootbeersoup/riff/value"
)

// Run executes the bound Code object to completion. It returns nil on
// a clean EXIT/RET, or a wrapped error if execution hits a fatal
// condition (stack overflow, invalid IDXA target, malformed jump
// target). The panic/recover wrapper turns that fatal condition into
// a returned error instead of crashing the process.
func (i *Instance) Run() (err error) {
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(e, "riff: runtime error at ip=%d sp=%d", i.ip, i.sp)
			default:
				panic(e)
			}
		}
	}()

	instrs := i.code.Instrs
	for i.ip < len(instrs) {
		i.insCount++
		op := bytecode.Op(instrs[i.ip])
		switch op {

		case bytecode.OpPush0:
			i.push(value.Int64(0))
			i.ip++
		case bytecode.OpPush1:
			i.push(value.Int64(1))
			i.ip++
		case bytecode.OpPush2:
			i.push(value.Int64(2))
			i.ip++
		case bytecode.OpPushI:
			i.push(value.Int64(int64(instrs[i.ip+1])))
			i.ip += 2

		// PUSHS behaves identically to PUSHK at execution time: both
		// push a copy of a constant-table entry. The distinction only
		// matters to the emitter, which uses PUSHS to flag the pushed
		// string as an identifier name rather than a plain value.
		case bytecode.OpPushK0, bytecode.OpPushS0:
			i.push(i.code.Consts[0])
			i.ip++
		case bytecode.OpPushK1, bytecode.OpPushS1:
			i.push(i.code.Consts[1])
			i.ip++
		case bytecode.OpPushK2, bytecode.OpPushS2:
			i.push(i.code.Consts[2])
			i.ip++
		case bytecode.OpPushK, bytecode.OpPushS:
			i.push(i.code.Consts[instrs[i.ip+1]])
			i.ip += 2

		case bytecode.OpNull:
			i.push(value.Value{Tag: value.Null})
			i.ip++

		case bytecode.OpPop:
			i.sp--
			i.ip++
		case bytecode.OpPopI:
			i.sp -= int(instrs[i.ip+1])
			i.ip += 2

		case bytecode.OpGblA:
			i.pushAddr(i.globalAddr(i.constString(instrs[i.ip+1])))
			i.ip += 2
		case bytecode.OpGblV:
			i.push(*i.globalAddr(i.constString(instrs[i.ip+1])))
			i.ip += 2

		case bytecode.OpLcl:
			slot := int(instrs[i.ip+1])
			*i.stk[slot] = value.Value{Tag: value.Null}
			i.sp++
			i.ip += 2
		case bytecode.OpLclA:
			slot := int(instrs[i.ip+1])
			i.pushAddr(i.stk[slot])
			i.ip += 2
		case bytecode.OpLclV:
			slot := int(instrs[i.ip+1])
			i.push(*i.stk[slot])
			i.ip += 2

		case bytecode.OpArgA:
			idx := int(i.stk[i.sp-1].IntVal()) + i.argvOffset
			i.stk[i.sp-1] = i.argv.At(idx)
			i.ip++
		case bytecode.OpArgV:
			idx := int(i.stk[i.sp-1].IntVal()) + i.argvOffset
			v := i.argv.Get(idx)
			i.res[i.sp-1] = v
			i.stk[i.sp-1] = &i.res[i.sp-1]
			i.ip++

		case bytecode.OpAdd:
			i.binop(add)
		case bytecode.OpSub:
			i.binop(sub)
		case bytecode.OpMul:
			i.binop(mul)
		case bytecode.OpDiv:
			i.binop(div)
		case bytecode.OpMod:
			i.binop(mod)
		case bytecode.OpPow:
			i.binop(pow)
		case bytecode.OpCat:
			i.binop(cat)
		case bytecode.OpAnd:
			i.binop(bitAnd)
		case bytecode.OpOr:
			i.binop(bitOr)
		case bytecode.OpXor:
			i.binop(bitXor)
		case bytecode.OpShl:
			i.binop(shl)
		case bytecode.OpShr:
			i.binop(shr)
		case bytecode.OpEq:
			i.binop(cmpEq)
		case bytecode.OpNe:
			i.binop(cmpNe)
		case bytecode.OpGt:
			i.binop(cmpGt)
		case bytecode.OpGe:
			i.binop(cmpGe)
		case bytecode.OpLt:
			i.binop(cmpLt)
		case bytecode.OpLe:
			i.binop(cmpLe)

		case bytecode.OpLNot:
			i.unop(logicalNot)
		case bytecode.OpLen:
			i.unop(lengthOf)
		case bytecode.OpNeg:
			i.unop(negate)
		case bytecode.OpNot:
			i.unop(bitNot)
		case bytecode.OpNum:
			i.unop(numify)
		case bytecode.OpTest:
			i.unop(testOf)

		case bytecode.OpPreInc:
			i.preIncDec(1)
		case bytecode.OpPreDec:
			i.preIncDec(-1)
		case bytecode.OpPostInc:
			i.postIncDec(1)
		case bytecode.OpPostDec:
			i.postIncDec(-1)

		case bytecode.OpAddX:
			i.compoundAssign(add)
		case bytecode.OpSubX:
			i.compoundAssign(sub)
		case bytecode.OpMulX:
			i.compoundAssign(mul)
		case bytecode.OpDivX:
			i.compoundAssign(div)
		case bytecode.OpModX:
			i.compoundAssign(mod)
		case bytecode.OpPowX:
			i.compoundAssign(pow)
		case bytecode.OpCatX:
			i.compoundAssign(cat)
		case bytecode.OpAndX:
			i.compoundAssign(bitAnd)
		case bytecode.OpOrX:
			i.compoundAssign(bitOr)
		case bytecode.OpXorX:
			i.compoundAssign(bitXor)
		case bytecode.OpShlX:
			i.compoundAssign(shl)
		case bytecode.OpShrX:
			i.compoundAssign(shr)

		case bytecode.OpSet:
			i.set()

		case bytecode.OpIdxA:
			i.idxA()
		case bytecode.OpIdxV:
			i.idxV()

		case bytecode.OpArray0:
			i.buildArray(0)
			i.ip++
		case bytecode.OpArray:
			i.buildArray(int(instrs[i.ip+1]))
			i.ip += 2
		case bytecode.OpArrayK:
			n := i.code.Consts[instrs[i.ip+1]].IntVal()
			i.buildArray(int(n))
			i.ip += 2

		case bytecode.OpJmp8:
			i.ip += 2 + int(int8(instrs[i.ip+1]))
		case bytecode.OpJmp16:
			i.ip += 3 + int(be16(instrs[i.ip+1], instrs[i.ip+2]))

		case bytecode.OpJz8:
			i.condJumpPopAlways(!i.stk[i.sp-1].Truth(), 1, int(int8(instrs[i.ip+1])))
		case bytecode.OpJnz8:
			i.condJumpPopAlways(i.stk[i.sp-1].Truth(), 1, int(int8(instrs[i.ip+1])))
		case bytecode.OpJz16:
			i.condJumpPopAlways(!i.stk[i.sp-1].Truth(), 2, int(be16(instrs[i.ip+1], instrs[i.ip+2])))
		case bytecode.OpJnz16:
			i.condJumpPopAlways(i.stk[i.sp-1].Truth(), 2, int(be16(instrs[i.ip+1], instrs[i.ip+2])))

		case bytecode.OpXJz8:
			i.condJumpPopIfFallthrough(!i.stk[i.sp-1].Truth(), 1, int(int8(instrs[i.ip+1])))
		case bytecode.OpXJnz8:
			i.condJumpPopIfFallthrough(i.stk[i.sp-1].Truth(), 1, int(int8(instrs[i.ip+1])))
		case bytecode.OpXJz16:
			i.condJumpPopIfFallthrough(!i.stk[i.sp-1].Truth(), 2, int(be16(instrs[i.ip+1], instrs[i.ip+2])))
		case bytecode.OpXJnz16:
			i.condJumpPopIfFallthrough(i.stk[i.sp-1].Truth(), 2, int(be16(instrs[i.ip+1], instrs[i.ip+2])))

		case bytecode.OpCall, bytecode.OpRet1:
			// Reserved for user-defined functions, which this
			// language doesn't have: both are no-op stubs rather
			// than terminating.
			i.ip++
		case bytecode.OpRet:
			return nil

		case bytecode.OpPrint1:
			fmt.Fprintln(i.out, i.stk[i.sp-1].Text())
			i.sp--
			i.ip++
		case bytecode.OpPrint:
			n := int(instrs[i.ip+1])
			for k := 0; k < n; k++ {
				if k > 0 {
					fmt.Fprint(i.out, " ")
				}
				fmt.Fprint(i.out, i.stk[i.sp-n+k].Text())
			}
			fmt.Fprintln(i.out)
			i.sp -= n
			i.ip += 2

		case bytecode.OpExit:
			return nil

		default:
			i.fatal("unknown opcode %d at ip=%d", op, i.ip)
		}
	}
	return nil
}

func be16(hi, lo byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}

// binop applies a two-operand arithmetic/comparison/CAT opcode: op
// mutates stk[sp-2] in place with the result, then the right operand
// is popped.
func (i *Instance) binop(op func(l, r *value.Value)) {
	op(i.stk[i.sp-2], i.stk[i.sp-1])
	i.sp--
	i.ip++
}

// unop applies a one-operand opcode in place on the stack top.
func (i *Instance) unop(op func(v *value.Value)) {
	op(i.stk[i.sp-1])
	i.ip++
}

// preIncDec implements PREINC/PREDEC: stk[sp-1] is a variable address;
// mutate it in place, then replace the stack slot with a detached copy
// of the new value.
func (i *Instance) preIncDec(delta int64) {
	addr := i.stk[i.sp-1]
	applyDelta(addr, delta)
	i.res[i.sp-1] = *addr
	i.stk[i.sp-1] = &i.res[i.sp-1]
	i.ip++
}

// postIncDec implements POSTINC/POSTDEC: snapshot the pre-update value,
// mutate the variable's cell, leave the snapshot (numified) on the
// stack.
func (i *Instance) postIncDec(delta int64) {
	addr := i.stk[i.sp-1]
	pre := *addr
	applyDelta(addr, delta)
	i.res[i.sp-1] = pre
	i.stk[i.sp-1] = &i.res[i.sp-1]
	numify(i.stk[i.sp-1])
	i.ip++
}

// applyDelta implements PREINC/PREDEC/POSTINC/POSTDEC's in-place update:
// INT/FLT add directly, STR parses to FLT first, anything else is
// simply assigned delta.
func applyDelta(v *value.Value, delta int64) {
	switch v.Tag {
	case value.Int:
		v.I += delta
	case value.Float:
		v.F += float64(delta)
	case value.Str:
		*v = value.Float64(v.FltVal() + float64(delta))
	default:
		*v = value.Int64(delta)
	}
}

// compoundAssign implements the `OP=` family: snapshot the LHS address
// into the reserve cell, apply op(snapshot, RHS), then write the result
// back through the original address.
func (i *Instance) compoundAssign(op func(l, r *value.Value)) {
	addr := i.stk[i.sp-2]
	i.res[i.sp-2] = *addr
	i.stk[i.sp-2] = &i.res[i.sp-2]
	i.binop(op)
	*addr = *i.stk[i.sp-1]
}

// set implements SET: stk[sp-1] is the RHS value, stk[sp-2] the target
// address. The result is written through the address and also left,
// detached, on the stack.
func (i *Instance) set() {
	addr := i.stk[i.sp-2]
	rhs := *i.stk[i.sp-1]
	i.res[i.sp-2] = rhs
	i.stk[i.sp-2] = &i.res[i.sp-2]
	*addr = rhs
	i.sp--
	i.ip++
}

// buildArray pops n elements and constructs an Array whose element k
// holds the value popped at stack position (n-1-k), then pushes the
// array.
func (i *Instance) buildArray(n int) {
	arr := value.NewArr()
	for k := n - 1; k >= 0; k-- {
		i.sp--
		*arr.A.At(k) = *i.stk[i.sp]
	}
	i.push(arr)
}

// idxA implements IDXA: top is the key, below is the container. NULL
// containers are promoted in place to a fresh array; ARR containers
// yield the address of the keyed element (auto-extending); any other
// type is a fatal "invalid idxa target".
func (i *Instance) idxA() {
	container := i.stk[i.sp-2]
	key := i.stk[i.sp-1]
	if container.Tag == value.Null {
		*container = value.NewArr()
	}
	if container.Tag != value.Arr {
		i.fatal("idxa called with invalid type")
	}
	addr := container.A.At(int(key.IntVal()))
	i.stk[i.sp-2] = addr
	i.sp--
	i.ip++
}

// idxV implements IDXV: like idxA but leaves a detached copy on the
// stack and, for non-array/non-null containers, falls back to IDX's
// binary-operator semantics instead of failing.
func (i *Instance) idxV() {
	container := i.stk[i.sp-2]
	key := *i.stk[i.sp-1]
	switch container.Tag {
	case value.Null:
		arr := value.NewArr()
		v := arr.A.Get(int(key.IntVal()))
		i.res[i.sp-2] = v
	case value.Arr:
		v := container.A.Get(int(key.IntVal()))
		i.res[i.sp-2] = v
	default:
		snapshot := *container
		idxBinary(&snapshot, &key)
		i.res[i.sp-2] = snapshot
	}
	i.stk[i.sp-2] = &i.res[i.sp-2]
	i.sp--
	i.ip++
}

// condJumpPopAlways implements JZ/JNZ: the test value is popped
// whether or not the jump is taken.
func (i *Instance) condJumpPopAlways(takeJump bool, operandWidth int, disp int) {
	i.sp--
	if takeJump {
		i.ip += 1 + operandWidth + disp
	} else {
		i.ip += 1 + operandWidth
	}
}

// condJumpPopIfFallthrough implements XJZ/XJNZ: the test value survives
// on the stack when the jump is taken, and is popped only when
// execution falls through — this is what lets `&&`/`||` preserve the
// decisive operand.
func (i *Instance) condJumpPopIfFallthrough(takeJump bool, operandWidth int, disp int) {
	if takeJump {
		i.ip += 1 + operandWidth + disp
	} else {
		i.sp--
		i.ip += 1 + operandWidth
	}
}
