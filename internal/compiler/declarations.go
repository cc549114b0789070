package compiler

import (
	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// execEnvField and execEnvOffset are the single source of truth for the ExecEnv record's
// field order: pointer, i32, i32, i32, pointer (spec.md §3, §6). Both the
// C/R instrumentation and the entry synthesizer compute offsets from here
// so the two never drift apart.
type execEnvField int

const (
	execEnvMemoryBase execEnvField = iota
	execEnvMemorySize
	execEnvMigrationState
	execEnvArgc
	execEnvArgv
)

// execEnvOffset returns the byte offset of a field within ExecEnv, assuming
// 8-byte pointers and natural alignment: ptr(8) i32(4) i32(4) i32(4) pad(4) ptr(8).
func execEnvOffset(f execEnvField) uint32 {
	switch f {
	case execEnvMemoryBase:
		return 0
	case execEnvMemorySize:
		return 8
	case execEnvMigrationState:
		return 12
	case execEnvArgc:
		return 16
	case execEnvArgv:
		return 24
	default:
		invariantf("unknown ExecEnv field %d", f)
		return 0
	}
}

// Migration state enum values, per spec.md §3.
const (
	migrationStateNone             = 0
	migrationStateCheckpointStart  = 1
	migrationStateCheckpointCont   = 2
	migrationStateRestore          = 3
)

// runtimeAPI holds the symbol name and signature of every function the
// emitted code calls into the host C/R storage runtime (spec.md §6). The
// compiler only ever declares and calls these; their bodies are an external
// collaborator.
type runtimeAPI struct {
	// Control
	PushFrame        ssa.Signature
	PopFrontFrame    ssa.Signature
	GetPCFromFrame   ssa.Signature
	FrameIsEmpty     ssa.Signature
	SetPCToFrame     ssa.Signature
	StartCheckpoint  ssa.Signature

	// Locals: push_local_T(env, v); pop_front_local_T(env) -> T, per type.
	PushLocal map[wasm.ValueType]ssa.Signature
	PopFrontLocal map[wasm.ValueType]ssa.Signature

	// Value stack: push_T(env, v); pop_T(env) -> T, per type.
	Push map[wasm.ValueType]ssa.Signature
	Pop  map[wasm.ValueType]ssa.Signature

	// Globals
	PushGlobal     map[wasm.ValueType]ssa.Signature
	PopFrontGlobal map[wasm.ValueType]ssa.Signature

	// Table
	PushTableIndex     ssa.Signature
	PopFrontTableIndex ssa.Signature

	// Memory
	MemoryGrow ssa.Signature

	symbolOf map[string]ssa.SignatureID
	nextID   ssa.SignatureID
}

// newRuntimeAPI builds the runtime API signature table. The pointer type
// used for `env` everywhere is ir.Ptr: the ExecEnv* threaded as the first
// argument of every emitted function (spec.md §3, §8: "the first argument
// to the callee is an ExecEnv* identical to the current function's first
// parameter").
func newRuntimeAPI() *runtimeAPI {
	api := &runtimeAPI{
		PushLocal:      map[wasm.ValueType]ssa.Signature{},
		PopFrontLocal:  map[wasm.ValueType]ssa.Signature{},
		Push:           map[wasm.ValueType]ssa.Signature{},
		Pop:            map[wasm.ValueType]ssa.Signature{},
		PushGlobal:     map[wasm.ValueType]ssa.Signature{},
		PopFrontGlobal: map[wasm.ValueType]ssa.Signature{},
		symbolOf:       map[string]ssa.SignatureID{},
	}

	voidSig := func(params ...ssa.Type) ssa.Signature {
		id := api.allocID()
		return ssa.Signature{ID: id, Params: params}
	}
	resultSig := func(result ssa.Type, params ...ssa.Type) ssa.Signature {
		id := api.allocID()
		return ssa.Signature{ID: id, Params: params, Results: []ssa.Type{result}}
	}

	api.PushFrame = voidSig(ir.Ptr)
	api.PopFrontFrame = voidSig(ir.Ptr)
	api.GetPCFromFrame = resultSig(ir.I32, ir.Ptr)
	api.FrameIsEmpty = resultSig(ir.I32, ir.Ptr)
	api.SetPCToFrame = voidSig(ir.Ptr, ir.I32, ir.I32)
	api.StartCheckpoint = voidSig(ir.Ptr)

	for vt, t := range valueTypeIRMap() {
		api.PushLocal[vt] = voidSig(ir.Ptr, t)
		api.PopFrontLocal[vt] = resultSig(t, ir.Ptr)
		api.Push[vt] = voidSig(ir.Ptr, t)
		api.Pop[vt] = resultSig(t, ir.Ptr)
		api.PushGlobal[vt] = voidSig(ir.Ptr, t)
		api.PopFrontGlobal[vt] = resultSig(t, ir.Ptr)
	}

	api.PushTableIndex = voidSig(ir.Ptr, ir.I32)
	api.PopFrontTableIndex = resultSig(ir.I32, ir.Ptr)
	api.MemoryGrow = resultSig(ir.I32, ir.Ptr, ir.I32)

	return api
}

func (a *runtimeAPI) allocID() ssa.SignatureID {
	id := a.nextID
	a.nextID++
	return id
}

func valueTypeIRMap() map[wasm.ValueType]ssa.Type {
	return map[wasm.ValueType]ssa.Type{
		wasm.ValueTypeI32: ir.I32,
		wasm.ValueTypeI64: ir.I64,
		wasm.ValueTypeF32: ir.F32,
		wasm.ValueTypeF64: ir.F64,
	}
}

// runtimeSymbolName returns the C-ABI symbol name for a typed runtime
// helper, e.g. runtimeSymbolName("push_local", wasm.ValueTypeI32) ==
// "push_local_i32" (spec.md §6).
func runtimeSymbolName(prefix string, vt wasm.ValueType) string {
	return prefix + "_" + wasm.ValueTypeName(vt)
}

// funcDecl is a module-level function declaration: enough to emit calls to
// it before its body (if any) is translated.
type funcDecl struct {
	Name      string
	Sig       *ssa.Signature
	IsImport  bool
	ImportMod string
	ImportName string
}

// globalDecl mirrors wasm.Global plus the storage slot the entry
// synthesizer and operator handlers reference it by.
type globalDecl struct {
	Type wasm.GlobalType
	Init wasm.ConstExpr
}

// ModuleDecls is the two-phase "declared-later" replacement spec.md §9
// calls for: every module-level declaration needed before any function
// body is translated, built once by the module walker and then
// immutably shared across all function translations.
type ModuleDecls struct {
	Module *wasm.Module

	Funcs    []funcDecl
	Sigs     []ssa.Signature
	Globals  []globalDecl
	Table    *wasm.Table

	// Instrumented holds, per module-defined function index (not counting
	// imports), whether that function's call sites/prologue should be
	// instrumented per the reachability analysis (spec.md §4.6). Populated
	// after the call graph analysis runs, before function translation.
	Instrumented map[wasm.Index]bool

	// InstrumentedCallSites maps a (caller function index, operator index)
	// pair to whether that specific call/call_indirect site is instrumented.
	InstrumentedCallSites map[callSiteKey]bool

	Runtime *runtimeAPI

	CR Options
}

type callSiteKey struct {
	FuncIdx wasm.Index
	OpIdx   uint32
}

// Options configures which parts of the checkpoint/restore instrumentation
// are active, mirroring the CLI surface spec.md §6 describes as an
// external collaborator.
type Options struct {
	EnableCR        bool
	OptimizeCR      bool // use reachability analysis instead of instrumenting every site
	DisableLoopCR   bool // suppress migration points on loop back-edges
	LegacyGlobalStore bool // emit globals/table store inline in aot_main instead of store_globals/store_table helpers
	PerSiteLocalsStackCap int // spec.md §4.6 "size cap"; 0 means use defaultSiteCap
}

const defaultSiteCap = 64

func (o Options) siteCap() int {
	if o.PerSiteLocalsStackCap > 0 {
		return o.PerSiteLocalsStackCap
	}
	return defaultSiteCap
}
