package bytecode

import (
	"bytes"
	"math"

	"github.com/kleopatra999/pop/internal/errors"
)

// Writer accumulates big-endian encoded byte-code.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) PutU8(v byte) {
	w.buf.WriteByte(v)
}

func (w *Writer) PutU16(v uint16) {
	w.PutU8(byte(v >> 8))
	w.PutU8(byte(v))
}

func (w *Writer) PutU32(v uint32) {
	w.PutU16(uint16(v >> 16))
	w.PutU16(uint16(v))
}

func (w *Writer) PutU64(v uint64) {
	w.PutU32(uint32(v >> 32))
	w.PutU32(uint32(v))
}

func (w *Writer) PutF64(v float64) {
	w.PutU64(math.Float64bits(v))
}

func (w *Writer) PutAddr(v uint32) {
	w.PutU32(v)
}

// PutName writes a u8-length-prefixed identifier.
func (w *Writer) PutName(s string) {
	w.PutU8(byte(len(s)))
	w.buf.WriteString(s)
}

// PutString writes a u32-length-prefixed string.
func (w *Writer) PutString(s string) {
	w.PutU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Reader decodes big-endian byte-code from a buffer.
type Reader struct {
	code []byte
	pos  int
}

func NewReader(code []byte) *Reader {
	return &Reader{code: code}
}

func (r *Reader) Pos() uint32 {
	return uint32(r.pos)
}

func (r *Reader) AtEnd() bool {
	return r.pos >= len(r.code)
}

func (r *Reader) ReadU8() (byte, error) {
	if r.pos >= len(r.code) {
		return 0, errors.NewRuntimeError("unexpected end of byte-code")
	}
	b := r.code[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	hi, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	hi, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	hi, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (r *Reader) ReadF64() (float64, error) {
	bits, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (r *Reader) ReadAddr() (uint32, error) {
	return r.ReadU32()
}

func (r *Reader) ReadOp() (OpCode, error) {
	b, err := r.ReadU8()
	return OpCode(b), err
}

// ReadName reads a u8-length-prefixed identifier.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadU8()
	if err != nil {
		return "", err
	}
	return r.readBytes(int(n))
}

// ReadString reads a u32-length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	return r.readBytes(int(n))
}

func (r *Reader) readBytes(n int) (string, error) {
	if r.pos+n > len(r.code) {
		return "", errors.NewRuntimeError("unexpected end of byte-code")
	}
	s := string(r.code[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}
