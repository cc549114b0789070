package compiler

import (
	"github.com/pkg/errors"

	"github.com/waskr/waskr/internal/wasm"
	"github.com/waskr/waskr/internal/wasm/binary"
)

// opReader decodes one Wasm instruction at a time from a function body,
// tracking the byte offset each operator starts at; that offset is the
// operator index InstrumentedCallSites is keyed by. The pc saved in a frame
// is a migration point's dense restore-case index, not this offset.
type opReader struct {
	br *binary.Reader
}

func newOpReader(body []byte) *opReader {
	return &opReader{br: binary.NewReader(body)}
}

func (o *opReader) atEOF() bool { return o.br.AtEOF() }

// position returns the byte offset of the next unread byte.
func (o *opReader) position() uint32 { return uint32(o.br.Position()) }

func (o *opReader) readByte() (byte, error) { return o.br.ReadByte() }

func (o *opReader) readU32() (uint32, error) { return o.br.ReadU32() }

func (o *opReader) readS32() (int32, error) { return o.br.ReadS32() }

func (o *opReader) readS64() (int64, error) { return o.br.ReadS64() }

func (o *opReader) readF32() (float32, error) { return o.br.ReadF32() }

func (o *opReader) readF64() (float64, error) { return o.br.ReadF64() }

// memarg is a Wasm load/store immediate: alignment hint (ignored, no
// bounds-check/alignment-fault emission per spec.md §4.4) and offset.
type memarg struct {
	align  uint32
	offset uint32
}

func (o *opReader) readMemarg() (memarg, error) {
	align, err := o.readU32()
	if err != nil {
		return memarg{}, err
	}
	offset, err := o.readU32()
	if err != nil {
		return memarg{}, err
	}
	return memarg{align: align, offset: offset}, nil
}

// readBlockType reads a block's type: 0x40 for empty, a value type byte for
// a single result, or an s33 type index for a full function type (multi-
// value; rejected, out of scope per spec.md §1).
func (o *opReader) readBlockType() (blockTypeKind, wasm.ValueType, error) {
	b, err := o.readByte()
	if err != nil {
		return 0, 0, err
	}
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return blockTypeValue, wasm.ValueType(b), nil
	}
	if b == 0x40 {
		return blockTypeEmpty, 0, nil
	}
	// Any other encoding is a signed LEB128 type index: multi-value block
	// type, unsupported.
	return 0, 0, errors.New("multi-value block types are not supported")
}
