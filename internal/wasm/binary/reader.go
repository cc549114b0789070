// Package binary decodes the WebAssembly binary format into the internal/wasm
// data model.
package binary

import (
	"encoding/binary"
	stderrors "errors"
	"io"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// errOverflow is returned when a LEB128 encoding runs past the byte count its
// bit width allows (5 bytes for 32-bit, 10 for 64-bit); excess high bits in
// the last allowed byte are not checked.
var errOverflow = stderrors.New("leb128: overflow")

// Reader wraps a byte slice with position tracking and Wasm-specific reads.
type Reader struct {
	b   []byte
	pos int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader { return &Reader{b: b} }

// Position returns the current byte offset, for diagnostics.
func (r *Reader) Position() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.b) - r.pos }

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, r.wrap(io.ErrUnexpectedEOF)
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadU32 reads an unsigned LEB128-encoded uint32.
func (r *Reader) ReadU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, r.wrap(errOverflow)
		}
	}
}

// ReadU64 reads an unsigned LEB128-encoded uint64.
func (r *Reader) ReadU64() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, r.wrap(errOverflow)
		}
	}
}

// ReadS32 reads a signed LEB128-encoded int32.
func (r *Reader) ReadS32() (int32, error) {
	var result int32
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 35 {
			return 0, r.wrap(errOverflow)
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= ^int32(0) << shift
	}
	return result, nil
}

// ReadS64 reads a signed LEB128-encoded int64.
func (r *Reader) ReadS64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, r.wrap(errOverflow)
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

// ReadF32 reads a little-endian IEEE-754 float32.
func (r *Reader) ReadF32() (float32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

// ReadF64 reads a little-endian IEEE-754 float64.
func (r *Reader) ReadF64() (float64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// ReadU32LE reads a fixed-width little-endian uint32, used only for the
// module header's magic number and version fields.
func (r *Reader) ReadU32LE() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadName reads a length-prefixed UTF-8 name.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrap(stderrors.New("invalid UTF-8 in name"))
	}
	return string(data), nil
}

// Sub carves out the next n bytes as an independent Reader, e.g. for a
// section body whose declared size must not be overrun by its decoder.
func (r *Reader) Sub(n int) (*Reader, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewReader(buf), nil
}

// AtEOF reports whether every byte has been consumed.
func (r *Reader) AtEOF() bool { return r.pos >= len(r.b) }

func (r *Reader) wrap(err error) error {
	return errors.Wrapf(err, "at byte offset %d", r.pos)
}
