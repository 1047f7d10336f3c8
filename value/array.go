package value

// Array is an ordered sequence of Value cells indexed by integer, with
// an optional associative side-table for string keys. Only the integer
// form is exercised by the opcodes this spec defines; the string map
// exists because the data model allows it (§3).
type Array struct {
	elems []*Value
	assoc map[string]*Value
}

// NewArray returns an empty Array.
func NewArray() *Array {
	return &Array{}
}

// Len returns the number of integer-indexed elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.elems)
}

// grow extends the backing slice so that index i is addressable,
// filling any new slots with fresh NULL cells.
func (a *Array) grow(i int) {
	for i >= len(a.elems) {
		a.elems = append(a.elems, &Value{Tag: Null})
	}
}

// At returns the address of the element at integer index i, creating
// intervening NULL cells as needed. Indexing past the end auto-extends
// the array rather than panicking.
func (a *Array) At(i int) *Value {
	if i < 0 {
		return &Value{Tag: Null}
	}
	a.grow(i)
	return a.elems[i]
}

// Get returns a copy of the element at integer index i, or a NULL value
// if the index is out of range. Used by IDXV, which unlike IDXA must
// not mutate the array on a read.
func (a *Array) Get(i int) Value {
	if i < 0 || i >= len(a.elems) {
		return Value{Tag: Null}
	}
	return *a.elems[i]
}

// Insert places v at internal index i - offset; indices that fall
// below zero are ignored. The argv array does not use it: ARGA/ARGV add
// their offset at lookup time instead.
func (a *Array) Insert(i int, v Value, offset int) {
	idx := i - offset
	if idx < 0 {
		return
	}
	a.grow(idx)
	*a.elems[idx] = v
}

// SetAssoc stores v under the string key k.
func (a *Array) SetAssoc(k string, v Value) {
	if a.assoc == nil {
		a.assoc = make(map[string]*Value)
	}
	c := v
	a.assoc[k] = &c
}

// GetAssoc returns the value stored under string key k, or NULL.
func (a *Array) GetAssoc(k string) Value {
	if a.assoc == nil {
		return Value{Tag: Null}
	}
	if v, ok := a.assoc[k]; ok {
		return *v
	}
	return Value{Tag: Null}
}

// Elems exposes the integer-indexed backing slice. Callers must treat
// it as read-only; use At/Insert to mutate.
func (a *Array) Elems() []*Value {
	if a == nil {
		return nil
	}
	return a.elems
}
