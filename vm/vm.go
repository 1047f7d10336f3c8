// Package vm implements the stack-based interpreter that executes a
// bytecode.Code object: a single dispatch loop over a reference stack
// of *value.Value cells, a lazily-populated globals table, and the
// argv array. An Instance is configured through functional Options and
// run with a panic-recover wrapper that turns an internal fatal error
// into a returned error.
package vm

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/bytecode"
	"github.com/rootbeersoup/riff/value"
)

// defaultStackSize is the reference-stack capacity used when no
// StackSize Option overrides it.
const defaultStackSize = 256

// Option configures an Instance at construction time.
type Option func(*Instance) error

// StackSize overrides the default reference-stack capacity.
func StackSize(n int) Option {
	return func(i *Instance) error {
		if n <= 0 {
			return errors.Errorf("vm: stack size must be positive, got %d", n)
		}
		i.stackSize = n
		return nil
	}
}

// Output sets the writer PRINT/PRINT1 write to. Defaults to os.Stdout.
func Output(w io.Writer) Option {
	return func(i *Instance) error { i.out = w; return nil }
}

// Argv populates the argv array from args, using offset 3 instead of
// the default 2 when fileFirst is set.
func Argv(args []string, fileFirst bool) Option {
	return func(i *Instance) error {
		i.argv = newArgv(args)
		if fileFirst {
			i.argvOffset = 3
		} else {
			i.argvOffset = 2
		}
		return nil
	}
}

// Instance is one execution of a Code object. All VM-owned state
// (globals, argv, stack, reserve pool) lives here; nothing is shared
// across instances, so multiple Instances can run the same Code
// concurrently.
type Instance struct {
	code *bytecode.Code

	stackSize int
	stk       []*value.Value
	res       []value.Value
	sp        int
	ip        int

	globals map[string]*value.Value

	argv       *value.Array
	argvOffset int

	out      io.Writer
	insCount int64
}

// New builds an Instance bound to code, applying opts in order.
func New(code *bytecode.Code, opts ...Option) (*Instance, error) {
	i := &Instance{
		code:       code,
		stackSize:  defaultStackSize,
		globals:    make(map[string]*value.Value),
		argv:       newArgv(nil),
		argvOffset: 2,
		out:        os.Stdout,
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	i.res = make([]value.Value, i.stackSize)
	i.stk = make([]*value.Value, i.stackSize)
	for n := range i.stk {
		i.stk[n] = &i.res[n]
	}
	return i, nil
}

// InstructionCount reports how many instructions Run has dispatched.
func (i *Instance) InstructionCount() int64 {
	return i.insCount
}

// globalAddr returns the address of the global cell for name, creating
// a NULL-initialized cell on first reference.
func (i *Instance) globalAddr(name string) *value.Value {
	if v, ok := i.globals[name]; ok {
		return v
	}
	v := &value.Value{Tag: value.Null}
	i.globals[name] = v
	return v
}

// constString returns the constant-table entry at idx as a Go string,
// used to resolve GBLA/GBLV's symbol-name operand.
func (i *Instance) constString(idx byte) string {
	return i.code.Consts[idx].S.String()
}

// fatal panics with a wrapped error; Run's recover turns it into a
// returned error annotated with the current instruction pointer.
func (i *Instance) fatal(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}

// push writes v into the reserve cell at the current stack top and
// advances sp, detaching that slot from whatever address it last held.
func (i *Instance) push(v value.Value) {
	if i.sp >= i.stackSize {
		i.fatal("stack limit reached")
	}
	i.res[i.sp] = v
	i.stk[i.sp] = &i.res[i.sp]
	i.sp++
}

// pushAddr places addr itself (not a copy) at the current stack top,
// backing the address-producing opcodes GBLA and LCLA (ARGA and IDXA
// instead overwrite the top slot in place).
func (i *Instance) pushAddr(addr *value.Value) {
	if i.sp >= i.stackSize {
		i.fatal("stack limit reached")
	}
	i.stk[i.sp] = addr
	i.sp++
}
