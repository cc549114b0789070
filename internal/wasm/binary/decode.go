package binary

import (
	"github.com/pkg/errors"

	"github.com/waskr/waskr/internal/wasm"
)

// Magic and Version are the fixed header fields every Wasm binary starts with.
const (
	Magic   uint32 = 0x6d736100 // "\0asm"
	Version uint32 = 0x1
)

// Section IDs, in the order the Wasm spec fixes them.
const (
	sectionCustom byte = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
	sectionDataCount
)

const (
	funcTypeByte    byte = 0x60
	emptyBlockType  byte = 0x40
	externKindFunc  byte = 0x00
	externKindTable byte = 0x01
	externKindMem   byte = 0x02
	externKindGlob  byte = 0x03
)

// DecodeModule parses a complete Wasm binary module.
func DecodeModule(data []byte) (*wasm.Module, error) {
	r := NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "read magic")
	}
	if magic != Magic {
		return nil, errors.New("not a wasm binary: bad magic number")
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "read version")
	}
	if version != Version {
		return nil, errors.Errorf("unsupported wasm version %d", version)
	}

	m := &wasm.Module{}

	for !r.AtEOF() {
		id, err := r.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "read section id")
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, errors.Wrap(err, "read section size")
		}
		sub, err := r.Sub(int(size))
		if err != nil {
			return nil, errors.Wrap(err, "read section body")
		}

		switch id {
		case sectionCustom:
			// Custom sections (name, producers, etc.) carry no semantic
			// information this compiler needs; skip without decoding.
		case sectionType:
			err = decodeTypeSection(sub, m)
		case sectionImport:
			err = decodeImportSection(sub, m)
		case sectionFunction:
			err = decodeFunctionSection(sub, m)
		case sectionTable:
			err = decodeTableSection(sub, m)
		case sectionMemory:
			err = decodeMemorySection(sub, m)
		case sectionGlobal:
			err = decodeGlobalSection(sub, m)
		case sectionExport:
			err = decodeExportSection(sub, m)
		case sectionStart:
			m.StartFunctionIndex, err = sub.ReadU32()
			m.HasStart = err == nil
		case sectionElement:
			err = decodeElementSection(sub, m)
		case sectionCode:
			err = decodeCodeSection(sub, m)
		case sectionData:
			err = decodeDataSection(sub, m)
		case sectionDataCount:
			// Only used by the decoder to preallocate/validate segment
			// counts in bulk-memory modules; not needed here since data
			// segments are read eagerly.
		default:
			return nil, errors.Errorf("unknown section id 0x%02x", id)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "section 0x%02x", id)
		}
	}

	// An export named "_start" takes precedence over a start section
	// (module-level data model: Module.StartFunctionIndex doc).
	for _, exp := range m.ExportSection {
		if exp.Kind == wasm.ExternKindFunc && exp.Name == "_start" {
			m.StartFunctionIndex = exp.Index
			m.HasStart = true
			break
		}
	}

	return m, nil
}

func decodeValueType(r *Reader) (wasm.ValueType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return wasm.ValueType(b), nil
	default:
		return 0, errors.Errorf("unsupported value type 0x%02x", b)
	}
}

func decodeTypeSection(r *Reader, m *wasm.Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.TypeSection = make([]wasm.FunctionType, count)
	for i := range m.TypeSection {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != funcTypeByte {
			return errors.Errorf("type %d: expected functype (0x60), got 0x%02x", i, form)
		}
		ft, err := decodeFunctionType(r)
		if err != nil {
			return errors.Wrapf(err, "type %d", i)
		}
		m.TypeSection[i] = ft
	}
	return nil
}

func decodeFunctionType(r *Reader) (wasm.FunctionType, error) {
	params, err := decodeValueTypeVec(r)
	if err != nil {
		return wasm.FunctionType{}, errors.Wrap(err, "params")
	}
	results, err := decodeValueTypeVec(r)
	if err != nil {
		return wasm.FunctionType{}, errors.Wrap(err, "results")
	}
	if len(results) > 1 {
		return wasm.FunctionType{}, errors.New("multi-value results are not supported")
	}
	return wasm.FunctionType{Params: params, Results: results}, nil
}

func decodeValueTypeVec(r *Reader) ([]wasm.ValueType, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ValueType, n)
	for i := range out {
		out[i], err = decodeValueType(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeLimits(r *Reader) (wasm.Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return wasm.Limits{}, err
	}
	if flag > 1 {
		return wasm.Limits{}, errors.Errorf("unsupported limits flag 0x%02x (shared or 64-bit memory)", flag)
	}
	min, err := r.ReadU32()
	if err != nil {
		return wasm.Limits{}, err
	}
	lim := wasm.Limits{Min: min}
	if flag == 1 {
		lim.Max, err = r.ReadU32()
		if err != nil {
			return wasm.Limits{}, err
		}
		lim.HasMax = true
	}
	return lim, nil
}

func decodeImportSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.ImportSection = make([]wasm.Import, n)
	for i := range m.ImportSection {
		modName, err := r.ReadName()
		if err != nil {
			return err
		}
		field, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := wasm.Import{Module: modName, Name: field}
		switch kind {
		case externKindFunc:
			imp.Kind = wasm.ExternKindFunc
			imp.DescFunc, err = r.ReadU32()
		case externKindTable:
			imp.Kind = wasm.ExternKindTable
			var elemType byte
			elemType, err = r.ReadByte()
			if err == nil && elemType != 0x70 {
				err = errors.Errorf("unsupported table element type 0x%02x", elemType)
			}
			if err == nil {
				var lim wasm.Limits
				lim, err = decodeLimits(r)
				imp.DescTable = &wasm.Table{Limits: lim}
			}
		case externKindMem:
			imp.Kind = wasm.ExternKindMemory
			var lim wasm.Limits
			lim, err = decodeLimits(r)
			imp.DescMemory = &wasm.Memory{Limits: lim}
		case externKindGlob:
			imp.Kind = wasm.ExternKindGlobal
			var vt wasm.ValueType
			vt, err = decodeValueType(r)
			if err == nil {
				var mutByte byte
				mutByte, err = r.ReadByte()
				imp.DescGlobal = &wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}
			}
		default:
			return errors.Errorf("import %d: unknown extern kind 0x%02x", i, kind)
		}
		if err != nil {
			return errors.Wrapf(err, "import %d", i)
		}
		m.ImportSection[i] = imp
	}
	return nil
}

func decodeFunctionSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.FunctionSection = make([]wasm.Index, n)
	for i := range m.FunctionSection {
		m.FunctionSection[i], err = r.ReadU32()
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeTableSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.TableSection = make([]wasm.Table, n)
	for i := range m.TableSection {
		elemType, err := r.ReadByte()
		if err != nil {
			return err
		}
		if elemType != 0x70 {
			return errors.Errorf("table %d: unsupported element type 0x%02x (only funcref)", i, elemType)
		}
		lim, err := decodeLimits(r)
		if err != nil {
			return err
		}
		m.TableSection[i] = wasm.Table{Limits: lim}
	}
	return nil
}

func decodeMemorySection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.MemorySection = make([]wasm.Memory, n)
	for i := range m.MemorySection {
		lim, err := decodeLimits(r)
		if err != nil {
			return err
		}
		m.MemorySection[i] = wasm.Memory{Limits: lim}
	}
	return nil
}

func decodeConstExpr(r *Reader) (wasm.ConstExpr, error) {
	op, err := r.ReadByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	var ce wasm.ConstExpr
	switch op {
	case 0x41: // i32.const
		v, err := r.ReadS32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprI32, I32: v}
	case 0x42: // i64.const
		v, err := r.ReadS64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprI64, I64: v}
	case 0x43: // f32.const
		v, err := r.ReadF32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprF32, F32: v}
	case 0x44: // f64.const
		v, err := r.ReadF64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprF64, F64: v}
	case 0x23: // global.get
		idx, err := r.ReadU32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce = wasm.ConstExpr{Kind: wasm.ConstExprGlobalGet, GlobalIdx: idx}
	default:
		return wasm.ConstExpr{}, errors.Errorf("unsupported constant expression opcode 0x%02x", op)
	}
	end, err := r.ReadByte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if end != 0x0b {
		return wasm.ConstExpr{}, errors.New("constant expression missing end opcode")
	}
	return ce, nil
}

func decodeGlobalSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.GlobalSection = make([]wasm.Global, n)
	for i := range m.GlobalSection {
		vt, err := decodeValueType(r)
		if err != nil {
			return err
		}
		mutByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		init, err := decodeConstExpr(r)
		if err != nil {
			return errors.Wrapf(err, "global %d init", i)
		}
		m.GlobalSection[i] = wasm.Global{
			Type: wasm.GlobalType{ValType: vt, Mutable: mutByte == 1},
			Init: init,
		}
	}
	return nil
}

func decodeExportSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.ExportSection = make([]wasm.Export, n)
	for i := range m.ExportSection {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		var kind wasm.ExternKind
		switch kindByte {
		case externKindFunc:
			kind = wasm.ExternKindFunc
		case externKindTable:
			kind = wasm.ExternKindTable
		case externKindMem:
			kind = wasm.ExternKindMemory
		case externKindGlob:
			kind = wasm.ExternKindGlobal
		default:
			return errors.Errorf("export %d: unknown extern kind 0x%02x", i, kindByte)
		}
		m.ExportSection[i] = wasm.Export{Name: name, Kind: kind, Index: idx}
	}
	return nil
}

func decodeElementSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.ElementSection = make([]wasm.ElementSegment, n)
	for i := range m.ElementSection {
		flags, err := r.ReadU32()
		if err != nil {
			return err
		}
		if flags != 0 {
			return errors.Errorf("element segment %d: only active segments on table 0 are supported", i)
		}
		offset, err := decodeConstExpr(r)
		if err != nil {
			return errors.Wrapf(err, "element segment %d offset", i)
		}
		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		init := make([]wasm.Index, count)
		for j := range init {
			init[j], err = r.ReadU32()
			if err != nil {
				return err
			}
		}
		m.ElementSection[i] = wasm.ElementSegment{TableIndex: 0, Offset: offset, Init: init}
	}
	return nil
}

func decodeDataSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.DataSection = make([]wasm.DataSegment, n)
	for i := range m.DataSection {
		flags, err := r.ReadU32()
		if err != nil {
			return err
		}
		if flags != 0 {
			return errors.Errorf("data segment %d: only active segments on memory 0 are supported", i)
		}
		offset, err := decodeConstExpr(r)
		if err != nil {
			return errors.Wrapf(err, "data segment %d offset", i)
		}
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		m.DataSection[i] = wasm.DataSegment{MemoryIndex: 0, Offset: offset, Init: cp}
	}
	return nil
}

func decodeCodeSection(r *Reader, m *wasm.Module) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.CodeSection = make([]wasm.Code, n)
	for i := range m.CodeSection {
		bodySize, err := r.ReadU32()
		if err != nil {
			return err
		}
		body, err := r.Sub(int(bodySize))
		if err != nil {
			return err
		}
		localGroupCount, err := body.ReadU32()
		if err != nil {
			return err
		}
		var locals []wasm.ValueType
		for g := uint32(0); g < localGroupCount; g++ {
			count, err := body.ReadU32()
			if err != nil {
				return err
			}
			vt, err := decodeValueType(body)
			if err != nil {
				return err
			}
			for c := uint32(0); c < count; c++ {
				locals = append(locals, vt)
			}
		}
		rest := body.b[body.pos:]
		cp := make([]byte, len(rest))
		copy(cp, rest)
		m.CodeSection[i] = wasm.Code{LocalTypes: locals, Body: cp}
	}
	return nil
}
