// Package wasm defines the module-level data model spec.md §3 describes:
// function/signature/global/table/memory declarations as decoded from a
// Wasm binary, independent of how they are later translated.
package wasm

// ValueType is a Wasm value type.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7F
	ValueTypeI64 ValueType = 0x7E
	ValueTypeF32 ValueType = 0x7D
	ValueTypeF64 ValueType = 0x7C
)

// ValueTypeName returns a human-readable name for diagnostics.
func ValueTypeName(v ValueType) string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Index is an index into one of a module's index spaces (function, type,
// global, table, memory, local).
type Index = uint32

// FunctionType is a Wasm function signature: ordered parameter types and at
// most one result type (multi-result is out of scope; spec.md §1, §3).
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Result returns the function type's single result type, if any.
func (t *FunctionType) Result() (ValueType, bool) {
	if len(t.Results) == 0 {
		return 0, false
	}
	return t.Results[0], true
}

// ExternKind is the kind of an import or export.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

// Import is a single imported function, table, memory, or global.
// Only function imports (and a single 32-bit-addressed memory import) are
// supported; anything else is a compile-time error (spec.md §4.1).
type Import struct {
	Module string
	Name   string
	Kind   ExternKind

	// DescFunc is the declared type index, valid when Kind == ExternKindFunc.
	DescFunc Index

	// DescMemory is valid when Kind == ExternKindMemory.
	DescMemory *Memory

	// DescGlobal is valid when Kind == ExternKindGlobal.
	DescGlobal *GlobalType

	// DescTable is valid when Kind == ExternKindTable.
	DescTable *Table
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ConstExpr is a constant initializer expression: a single const
// instruction, or a global.get of an imported immutable global. Anything
// more elaborate is rejected by the decoder (spec.md §4.2).
type ConstExpr struct {
	// Kind selects which field below is populated.
	Kind      ConstExprKind
	I32       int32
	I64       int64
	F32       float32
	F64       float64
	GlobalIdx Index
}

// ConstExprKind enumerates the supported constant expression forms.
type ConstExprKind byte

const (
	ConstExprI32 ConstExprKind = iota
	ConstExprI64
	ConstExprF32
	ConstExprF64
	ConstExprGlobalGet
)

// Global is a module-level global declaration.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// Limits bounds a table or memory's size, in table-elements or 64KiB pages
// respectively.
type Limits struct {
	Min uint32
	Max uint32
	HasMax bool
}

// Memory is a linear memory declaration. Only a single, 32-bit-addressed
// memory is supported (spec.md §1 Non-goals: "multiple linear memories").
type Memory struct {
	Limits Limits
}

// Table is a function-reference table declaration. Only funcref tables are
// supported (spec.md §1 Non-goals: reference types beyond funcref).
type Table struct {
	Limits Limits
}

// Export makes a function, table, memory, or global visible under `Name`.
// An export named "_start" designates the Wasm start function (spec.md §4.1).
type Export struct {
	Name  string
	Kind  ExternKind
	Index Index
}

// ElementSegment initializes a range of a table with function indices. Only
// active segments with a constant offset are supported (spec.md §1
// Non-goals: passive element segments).
type ElementSegment struct {
	TableIndex Index
	Offset     ConstExpr
	Init       []Index
}

// DataSegment initializes a range of linear memory with bytes. Only active
// segments with a constant offset are supported (spec.md §1 Non-goals:
// passive data segments).
type DataSegment struct {
	MemoryIndex Index
	Offset      ConstExpr
	Init        []byte
}

// Code is a function body as decoded from the code section: its declared
// local types (beyond the signature's parameters) and the raw operator
// byte stream, handed to the function translator as-is (spec.md §4.3).
type Code struct {
	LocalTypes []ValueType
	Body       []byte
}

// Module is the fully decoded representation of a Wasm binary.
type Module struct {
	TypeSection     []FunctionType
	ImportSection   []Import
	FunctionSection []Index // type index per module-defined function
	TableSection    []Table
	MemorySection   []Memory
	GlobalSection   []Global
	ExportSection   []Export
	ElementSection  []ElementSegment
	DataSection     []DataSegment
	CodeSection     []Code

	// StartFunctionIndex is set either from the Wasm start section or, per
	// spec.md §4.1, from an export named "_start"; the latter takes
	// precedence when both are present since §4.1 singles it out as the
	// contract the entry synthesizer relies on.
	StartFunctionIndex Index
	HasStart           bool
}

// ImportedFunctionCount returns the number of function imports, i.e. the
// offset at which module-defined function indices begin.
func (m *Module) ImportedFunctionCount() Index {
	var n Index
	for _, imp := range m.ImportSection {
		if imp.Kind == ExternKindFunc {
			n++
		}
	}
	return n
}

// ImportedGlobalCount returns the number of imported globals.
func (m *Module) ImportedGlobalCount() Index {
	var n Index
	for _, imp := range m.ImportSection {
		if imp.Kind == ExternKindGlobal {
			n++
		}
	}
	return n
}

// NumFunctions returns the total number of functions (imported + defined).
func (m *Module) NumFunctions() Index {
	return m.ImportedFunctionCount() + Index(len(m.FunctionSection))
}

// FunctionTypeIndex returns the type index of function fnIdx across both
// the import and module-defined index spaces.
func (m *Module) FunctionTypeIndex(fnIdx Index) Index {
	imported := m.ImportedFunctionCount()
	if fnIdx < imported {
		var i Index
		for _, imp := range m.ImportSection {
			if imp.Kind != ExternKindFunc {
				continue
			}
			if i == fnIdx {
				return imp.DescFunc
			}
			i++
		}
		panic("wasm: invalid imported function index")
	}
	return m.FunctionSection[fnIdx-imported]
}

// TypeOf returns the FunctionType of function fnIdx.
func (m *Module) TypeOf(fnIdx Index) *FunctionType {
	return &m.TypeSection[m.FunctionTypeIndex(fnIdx)]
}

// FunctionImport returns the Import record for an imported function index,
// or nil if fnIdx is module-defined.
func (m *Module) FunctionImport(fnIdx Index) *Import {
	if fnIdx >= m.ImportedFunctionCount() {
		return nil
	}
	var i Index
	for idx := range m.ImportSection {
		imp := &m.ImportSection[idx]
		if imp.Kind != ExternKindFunc {
			continue
		}
		if i == fnIdx {
			return imp
		}
		i++
	}
	return nil
}

// HasMemory reports whether the module declares or imports a linear memory.
func (m *Module) HasMemory() bool {
	if len(m.MemorySection) > 0 {
		return true
	}
	for _, imp := range m.ImportSection {
		if imp.Kind == ExternKindMemory {
			return true
		}
	}
	return false
}
