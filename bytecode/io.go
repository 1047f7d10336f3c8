package bytecode

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/value"
)

// magic identifies a riff compiled-image file: the on-disk format a
// pre-compiled Code object is saved to and loaded back from.
const magic = "RIFb"

const (
	constTagInt byte = iota
	constTagFlt
	constTagStr
)

// Save writes c to w in the riff image format: a magic header, the
// instruction stream length-prefixed, then the constant pool
// length-prefixed with each entry tagged by its kind. Only INT, FLT and
// STR constants are possible (the emitter never interns an ARR or FN
// literal), so those are the only tags this format needs to carry.
func (c *Code) Save(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return errors.Wrap(err, "bytecode: write magic")
	}
	if err := writeUint32(w, uint32(len(c.Instrs))); err != nil {
		return errors.Wrap(err, "bytecode: write instruction length")
	}
	if _, err := w.Write(c.Instrs); err != nil {
		return errors.Wrap(err, "bytecode: write instructions")
	}
	if err := writeUint32(w, uint32(len(c.Consts))); err != nil {
		return errors.Wrap(err, "bytecode: write constant count")
	}
	for idx, k := range c.Consts {
		if err := writeConst(w, k); err != nil {
			return errors.Wrapf(err, "bytecode: write constant %d", idx)
		}
	}
	return nil
}

func writeConst(w io.Writer, k value.Value) error {
	switch k.Tag {
	case value.Int:
		if _, err := w.Write([]byte{constTagInt}); err != nil {
			return err
		}
		return writeUint64(w, uint64(k.I))
	case value.Float:
		if _, err := w.Write([]byte{constTagFlt}); err != nil {
			return err
		}
		return writeUint64(w, math.Float64bits(k.F))
	case value.Str:
		if _, err := w.Write([]byte{constTagStr}); err != nil {
			return err
		}
		b := []byte(k.S.String())
		if err := writeUint32(w, uint32(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	default:
		return errors.Errorf("bytecode: constant pool entry has unsupported tag %v", k.Tag)
	}
}

// Load reads a Code object previously written by Save.
func Load(r io.Reader) (*Code, error) {
	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errors.Wrap(err, "bytecode: read magic")
	}
	if string(hdr) != magic {
		return nil, errors.Errorf("bytecode: not a riff image (bad magic %q)", hdr)
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "bytecode: read instruction length")
	}
	instrs := make([]byte, n)
	if _, err := io.ReadFull(r, instrs); err != nil {
		return nil, errors.Wrap(err, "bytecode: read instructions")
	}
	nc, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "bytecode: read constant count")
	}
	if nc > MaxConsts {
		return nil, errors.Errorf("bytecode: constant count %d exceeds %d", nc, MaxConsts)
	}
	consts := make([]value.Value, nc)
	for idx := range consts {
		k, err := readConst(r)
		if err != nil {
			return nil, errors.Wrapf(err, "bytecode: read constant %d", idx)
		}
		consts[idx] = k
	}
	return &Code{Instrs: instrs, Consts: consts}, nil
}

func readConst(r io.Reader) (value.Value, error) {
	tag := make([]byte, 1)
	if _, err := io.ReadFull(r, tag); err != nil {
		return value.Value{}, err
	}
	switch tag[0] {
	case constTagInt:
		u, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int64(int64(u)), nil
	case constTagFlt:
		u, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float64(math.Float64frombits(u)), nil
	case constTagStr:
		n, err := readUint32(r)
		if err != nil {
			return value.Value{}, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return value.Value{}, err
		}
		return value.NewStr(value.NewString(string(b))), nil
	default:
		return value.Value{}, errors.Errorf("bytecode: unknown constant tag %d", tag[0])
	}
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
