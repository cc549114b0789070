package compiler

import (
	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// entrySignature is aot_main's signature: a single ExecEnv* parameter, no
// result, grounded on synthesize.rs's aot_main_fn_type (void_type.fn_type
// over a single ptr_type argument).
func entrySignature(id ssa.SignatureID) ssa.Signature {
	return ssa.Signature{ID: id, Params: []ssa.Type{ir.Ptr}}
}

// helperSignature is store_globals'/store_table's signature: same shape as
// entrySignature, since both are externally-callable (ExecEnv*) -> void
// helpers the host runtime invokes directly at checkpoint time (spec.md
// §4.6's "checkpoint-v2" helper-function mode).
func helperSignature(id ssa.SignatureID) ssa.Signature {
	return entrySignature(id)
}

// BuildEntryFunction synthesizes aot_main's body against b, which the
// caller has already Init'd with entrySignature: entry -> init -> main,
// the same three-block shape synthesize.rs's `initialize`/`finalize` build.
// init stages every active data segment into linear memory; main optionally
// restores globals/table from a prior snapshot, calls the Wasm start
// function, optionally (legacy mode) stores globals/table back out, and
// returns.
func BuildEntryFunction(decls *ModuleDecls, b ir.Builder) error {
	entry := b.AllocateBasicBlock()
	execEnv := entry.AddParam(b, ir.Ptr)
	b.SetCurrentBlock(entry)

	initBB := b.AllocateBasicBlock()
	mainBB := b.AllocateBasicBlock()

	b.InsertInstruction(b.AllocateInstruction().AsJump(initBB, nil))

	b.SetCurrentBlock(initBB)
	if err := emitDataSegmentInit(decls, b, execEnv); err != nil {
		return err
	}
	b.InsertInstruction(b.AllocateInstruction().AsJump(mainBB, nil))

	b.SetCurrentBlock(mainBB)
	if decls.CR.EnableCR {
		emitRestoreGlobals(decls, b, execEnv)
		emitRestoreTable(decls, b, execEnv)
	}

	if !decls.Module.HasStart {
		return Malformedf(nil, "module has no start function (no _start export and no start section)")
	}
	startIdx := decls.Module.StartFunctionIndex
	startDecl := decls.Funcs[startIdx]
	call := b.AllocateInstruction().AsCall(startIdx, startDecl.Sig, []ir.Value{execEnv})
	b.InsertInstruction(call)

	if decls.CR.LegacyGlobalStore {
		emitStoreGlobals(decls, b, execEnv)
		emitStoreTable(decls, b, execEnv)
	}

	b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
	return nil
}

// BuildStoreGlobalsFunction synthesizes the externally-callable
// `store_globals` helper (spec.md §4.6 "checkpoint-v2"): lib-rt statically
// links this symbol regardless of whether CR is enabled (synthesize.rs's
// `if true || ctx.config.enable_cr` comment, preserved here as the same
// unconditional emission), so the host runtime can call it directly at
// checkpoint time without the compiled program's cooperation.
func BuildStoreGlobalsFunction(decls *ModuleDecls, b ir.Builder) error {
	entry := b.AllocateBasicBlock()
	execEnv := entry.AddParam(b, ir.Ptr)
	b.SetCurrentBlock(entry)
	emitStoreGlobals(decls, b, execEnv)
	b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
	return nil
}

// BuildStoreTableFunction synthesizes the externally-callable `store_table`
// helper, the table twin of BuildStoreGlobalsFunction.
func BuildStoreTableFunction(decls *ModuleDecls, b ir.Builder) error {
	entry := b.AllocateBasicBlock()
	execEnv := entry.AddParam(b, ir.Ptr)
	b.SetCurrentBlock(entry)
	emitStoreTable(decls, b, execEnv)
	b.InsertInstruction(b.AllocateInstruction().AsReturn(nil))
	return nil
}

// emitDataSegmentInit stages every active data segment's bytes into linear
// memory. internal/ssa has no module-level constant-data/rodata primitive
// (it models a single function body at a time, spec.md §2 item 1's "thin IR
// utility layer" deliberately stays that thin), so each segment is staged as
// a sequence of Store instructions over constant values at compile time,
// chunked into 4-byte words where the remainder allows and falling back to
// byte stores for the tail — a sequence of Wasm const+store writes is itself
// a valid, if verbose, lowering for this compiler's scope. The actual
// target-machine rendering of this as an efficient memcpy-from-rodata is a
// native backend's job (out of scope, spec.md §1).
func emitDataSegmentInit(decls *ModuleDecls, b ir.Builder, execEnv ir.Value) error {
	if len(decls.Module.DataSection) == 0 {
		return nil
	}
	base := loadMemoryBaseAt(b, execEnv)
	for _, seg := range decls.Module.DataSection {
		offset, err := constExprI32(b, seg.Offset)
		if err != nil {
			return err
		}
		addr := addOffsetAt(b, base, offset)
		data := seg.Init
		i := 0
		for ; i+4 <= len(data); i += 4 {
			word := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
			emitConstStore(b, addr, uint32(i), word, ssa.TypeI32, 0)
		}
		for ; i < len(data); i++ {
			emitConstStore(b, addr, uint32(i), uint32(data[i]), ssa.TypeI32, 8)
		}
	}
	return nil
}

// emitConstStore stores a constant value of the given width at addr+off. A
// nonzero narrowWidth routes through AsStoreNarrow (the tail byte writes);
// zero means the natural width of typ (the bulk word writes).
func emitConstStore(b ir.Builder, addr ir.Value, off uint32, v uint32, typ ssa.Type, narrowWidth uint32) {
	c := b.AllocateInstruction().AsIconst32(v)
	b.InsertInstruction(c)
	if narrowWidth == 0 {
		i := b.AllocateInstruction().AsStore(addr, c.Return(), off)
		b.InsertInstruction(i)
		return
	}
	i := b.AllocateInstruction().AsStoreNarrow(addr, c.Return(), off, narrowWidth)
	b.InsertInstruction(i)
}

// loadMemoryBaseAt is emitDataSegmentInit/emitRestore*/emitStore*'s
// builder-level equivalent of (*functionTranslator).memoryBase: a plain,
// non-volatile load, since nothing mutates ExecEnv.memory_base before
// aot_main's init block runs.
func loadMemoryBaseAt(b ir.Builder, execEnv ir.Value) ir.Value {
	i := b.AllocateInstruction().AsLoad(execEnv, execEnvOffset(execEnvMemoryBase), ssa.TypePtr, false)
	b.InsertInstruction(i)
	return i.Return()
}

// addOffsetAt is the builder-level equivalent of (*functionTranslator).addOffset.
func addOffsetAt(b ir.Builder, base, off ir.Value) ir.Value {
	ext := b.AllocateInstruction().AsUextend(off, ssa.TypePtr)
	b.InsertInstruction(ext)
	sum := b.AllocateInstruction().AsIadd(base, ext.Return())
	b.InsertInstruction(sum)
	return sum.Return()
}

// constExprI32 evaluates a Wasm constant expression that must produce an
// i32 (a data/element segment's offset): either a literal i32.const, or a
// global.get of an (always-immutable, since only function and memory
// imports are supported — walker.go's validateImports rejects a global
// import outright) module-defined global.
func constExprI32(b ir.Builder, ce wasm.ConstExpr) (ir.Value, error) {
	switch ce.Kind {
	case wasm.ConstExprI32:
		c := b.AllocateInstruction().AsIconst32(uint32(ce.I32))
		b.InsertInstruction(c)
		return c.Return(), nil
	case wasm.ConstExprGlobalGet:
		g := b.AllocateInstruction().AsGlobalGet(ce.GlobalIdx, ssa.TypeI32)
		b.InsertInstruction(g)
		return g.Return(), nil
	default:
		return nil, Malformedf(nil, "unsupported constant-offset expression kind %d", ce.Kind)
	}
}

// emitRestoreGlobals mirrors wanco/src/compile/cr/restore.rs's
// gen_restore_globals: if migration_state == RESTORE, pop every global's
// saved value off the runtime's global queue (FIFO, declaration order) and
// write it back via AsGlobalSet. internal/ssa models globals symbolically
// (GlobalGet/GlobalSet by index, no backing pointer), so this needs no
// separate load/store plumbing the way the LLVM original's mutable-global
// pointers did.
func emitRestoreGlobals(decls *ModuleDecls, b ir.Builder, execEnv ir.Value) {
	if len(decls.Globals) == 0 {
		return
	}
	cond := compareMigrationStateAt(b, execEnv, migrationStateRestore)
	elseBB := b.AllocateBasicBlock()
	b.InsertInstruction(b.AllocateInstruction().AsBrz(cond, elseBB, nil))

	// Fallthrough (cond != 0, restoring): same block, per the convention
	// compareMigrationStateAt's other call sites (checkpoint.go) use.
	rt := decls.Runtime
	for idx, g := range decls.Globals {
		vt := g.Type.ValType
		sig := rt.PopFrontGlobal[vt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("pop_front_global", vt), &sig, []ir.Value{execEnv})
		b.InsertInstruction(call)
		set := b.AllocateInstruction().AsGlobalSet(uint32(idx), call.Return())
		b.InsertInstruction(set)
	}
	b.InsertInstruction(b.AllocateInstruction().AsJump(elseBB, nil))

	b.SetCurrentBlock(elseBB)
}

// emitRestoreTable mirrors gen_restore_table: if migration_state ==
// RESTORE, pop every table-index value (FIFO, slot order) off the runtime's
// table queue and write it into table slot i via AsTableSet.
func emitRestoreTable(decls *ModuleDecls, b ir.Builder, execEnv ir.Value) {
	if decls.Table == nil {
		return
	}
	cond := compareMigrationStateAt(b, execEnv, migrationStateRestore)
	elseBB := b.AllocateBasicBlock()
	b.InsertInstruction(b.AllocateInstruction().AsBrz(cond, elseBB, nil))

	// Fallthrough (cond != 0, restoring): same block, per the convention
	// compareMigrationStateAt's other call sites (checkpoint.go) use.
	rt := decls.Runtime
	for i := uint32(0); i < decls.Table.Limits.Min; i++ {
		call := b.AllocateInstruction().AsCallExtern("pop_front_table_index", &rt.PopFrontTableIndex, []ir.Value{execEnv})
		b.InsertInstruction(call)
		idx := b.AllocateInstruction().AsIconst32(i)
		b.InsertInstruction(idx)
		set := b.AllocateInstruction().AsTableSet(0, idx.Return(), call.Return())
		b.InsertInstruction(set)
	}
	b.InsertInstruction(b.AllocateInstruction().AsJump(elseBB, nil))

	b.SetCurrentBlock(elseBB)
}

// emitStoreGlobals mirrors gen_store_globals: if migration_state ==
// CHECKPOINT_CONTINUE (i.e. a checkpoint request is unwinding through this
// point, spec.md §4.6), read every global's current value via AsGlobalGet
// and push it onto the runtime's global queue, declaration order.
func emitStoreGlobals(decls *ModuleDecls, b ir.Builder, execEnv ir.Value) {
	if len(decls.Globals) == 0 {
		return
	}
	cond := compareMigrationStateAt(b, execEnv, migrationStateCheckpointCont)
	elseBB := b.AllocateBasicBlock()
	b.InsertInstruction(b.AllocateInstruction().AsBrz(cond, elseBB, nil))

	// Fallthrough (cond != 0, checkpointing): same block, per the convention
	// compareMigrationStateAt's other call sites (checkpoint.go) use.
	rt := decls.Runtime
	for idx, g := range decls.Globals {
		vt := g.Type.ValType
		get := b.AllocateInstruction().AsGlobalGet(uint32(idx), irType(vt))
		b.InsertInstruction(get)
		sig := rt.PushGlobal[vt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("push_global", vt), &sig, []ir.Value{execEnv, get.Return()})
		b.InsertInstruction(call)
	}
	b.InsertInstruction(b.AllocateInstruction().AsJump(elseBB, nil))

	b.SetCurrentBlock(elseBB)
}

// emitStoreTable mirrors gen_store_table: read every table slot's current
// function index via AsTableGet and push it onto the runtime's table queue.
func emitStoreTable(decls *ModuleDecls, b ir.Builder, execEnv ir.Value) {
	if decls.Table == nil {
		return
	}
	cond := compareMigrationStateAt(b, execEnv, migrationStateCheckpointCont)
	elseBB := b.AllocateBasicBlock()
	b.InsertInstruction(b.AllocateInstruction().AsBrz(cond, elseBB, nil))

	// Fallthrough (cond != 0, checkpointing): same block, per the convention
	// compareMigrationStateAt's other call sites (checkpoint.go) use.
	rt := decls.Runtime
	for i := uint32(0); i < decls.Table.Limits.Min; i++ {
		get := b.AllocateInstruction().AsTableGet(0, mustIconst32(b, i))
		b.InsertInstruction(get)
		call := b.AllocateInstruction().AsCallExtern("push_table_index", &rt.PushTableIndex, []ir.Value{execEnv, get.Return()})
		b.InsertInstruction(call)
	}
	b.InsertInstruction(b.AllocateInstruction().AsJump(elseBB, nil))

	b.SetCurrentBlock(elseBB)
}

func mustIconst32(b ir.Builder, v uint32) ir.Value {
	c := b.AllocateInstruction().AsIconst32(v)
	b.InsertInstruction(c)
	return c.Return()
}
