package compiler

import (
	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// irType maps a Wasm value type to its IR primitive (spec.md §4.2).
func irType(vt wasm.ValueType) ssa.Type {
	switch vt {
	case wasm.ValueTypeI32:
		return ir.I32
	case wasm.ValueTypeI64:
		return ir.I64
	case wasm.ValueTypeF32:
		return ir.F32
	case wasm.ValueTypeF64:
		return ir.F64
	default:
		invariantf("unknown wasm value type %d", vt)
		return ir.I32
	}
}

// wasmValueTypeOf inverts irType: the runtime API's per-type maps
// (declarations.go) are keyed by wasm.ValueType, so every call site that
// only has an ssa.Type in hand (an operand-stack value) needs this to look
// up the right push_T/pop_T symbol.
func wasmValueTypeOf(t ssa.Type) wasm.ValueType {
	switch t {
	case ir.I32:
		return wasm.ValueTypeI32
	case ir.I64:
		return wasm.ValueTypeI64
	case ir.F32:
		return wasm.ValueTypeF32
	case ir.F64:
		return wasm.ValueTypeF64
	default:
		invariantf("no wasm value type corresponds to ir type %d", t)
		return wasm.ValueTypeI32
	}
}

// irSignature lowers a Wasm function type to `(ExecEnv*, params…) -> result?`
// (spec.md §4.2): every emitted function takes the ExecEnv pointer first.
func irSignature(id ssa.SignatureID, ft *wasm.FunctionType) ssa.Signature {
	params := make([]ssa.Type, 0, len(ft.Params)+1)
	params = append(params, ir.Ptr)
	for _, p := range ft.Params {
		params = append(params, irType(p))
	}
	var results []ssa.Type
	if r, ok := ft.Result(); ok {
		results = []ssa.Type{irType(r)}
	}
	return ssa.Signature{ID: id, Params: params, Results: results}
}

// zeroValue emits a constant of the given IR type with the bit pattern
// zero, used to initialize locals and to synthesize phi values for
// unreachable edges (spec.md §4.5 tie-break: "push a zero constant").
func zeroValue(b ir.Builder, t ssa.Type) ir.Value {
	raw := b.AllocateInstruction()
	switch t {
	case ir.I32:
		raw = raw.AsIconst32(0)
	case ir.I64:
		raw = raw.AsIconst64(0)
	case ir.F32:
		raw = raw.AsF32const(0)
	case ir.F64:
		raw = raw.AsF64const(0)
	case ir.Ptr:
		raw = raw.AsIconst64(0)
	default:
		invariantf("unknown ir type %d", t)
	}
	b.InsertInstruction(raw)
	return raw.Return()
}
