package vm

import "github.com/rootbeersoup/riff/value"

// newArgv builds the argv array: a plain Array whose integer index i
// holds STR args[i], with no offset applied — the offset between a
// user-visible argv index and this array's storage is applied
// separately by ARGA/ARGV at lookup time.
func newArgv(args []string) *value.Array {
	a := value.NewArray()
	for i, s := range args {
		*a.At(i) = value.NewStr(value.NewString(s))
	}
	return a
}
