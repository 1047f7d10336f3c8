package value

// String is a byte array with a precomputed hash, used both for string
// values and for interned identifier symbols in a Code object's constant
// table.
type String struct {
	Bytes []byte
	Hash  uint64
}

// fnv64 offset/prime. Strings are hashed with FNV-1a so that interning
// within a single constant table only needs a hash comparison, not a
// full byte-for-byte compare.
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

func hashBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// NewString builds a String value from a Go string, computing its hash.
func NewString(s string) *String {
	b := []byte(s)
	return &String{Bytes: b, Hash: hashBytes(b)}
}

// NewBytes builds a String value from a byte slice, computing its hash.
// The slice is not copied; callers must not mutate it afterwards.
func NewBytes(b []byte) *String {
	return &String{Bytes: b, Hash: hashBytes(b)}
}

// String returns the Go string form of the value.
func (s *String) String() string {
	if s == nil {
		return ""
	}
	return string(s.Bytes)
}

// Len returns the string's byte length.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bytes)
}

// Equal reports whether two strings intern to the same constant-table
// slot. Interning is hash-only: two distinct byte sequences that
// collide under FNV-1a are treated as equal and share a slot.
func (s *String) Equal(o *String) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.Hash == o.Hash
}
