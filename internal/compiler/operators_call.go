package compiler

import "github.com/waskr/waskr/internal/ssa"

// handleReturn branches to the function's return block with the current
// top-of-stack result, mirroring an `end` at the outermost control frame
// (spec.md §4.4: "return").
func (t *functionTranslator) handleReturn() {
	fn := &t.fc.controlStack[0]
	t.branchToPhiTarget(fn.next, &fn.endPhis)
	t.fc.markUnreachable(unreachableReturn)
}

// handleCall emits a direct call, prepending ExecEnv* to the Wasm-level
// arguments (spec.md §4.2's `(ExecEnv*, params…) -> result?` ABI). Callee
// popping happens in reverse stack order, as Wasm pushes arguments
// left-to-right.
func (t *functionTranslator) handleCall(calleeIdx uint32) error {
	ft := t.decls.Module.TypeOf(calleeIdx)
	args := t.popArgs(len(ft.Params))

	b := t.fc.builder
	fn := t.decls.Funcs[calleeIdx]

	var call *ssa.Instruction
	if fn.IsImport {
		call = b.AllocateInstruction().AsCallExtern(fn.Name, fn.Sig, args)
	} else {
		call = b.AllocateInstruction().AsCall(calleeIdx, fn.Sig, args)
	}
	b.InsertInstruction(call)

	if _, ok := ft.Result(); ok {
		t.fc.push(call.Return())
	}

	if t.decls.CR.EnableCR && t.decls.InstrumentedCallSites[callSiteKey{FuncIdx: t.fc.funcIdx, OpIdx: t.fc.opIdx}] {
		t.emitMigrationPoint(migrationSiteCallReturn)
	}
	return nil
}

// handleCallIndirect reads the callee's function index out of table 0 at
// the dynamic index on top of the stack, validates nothing beyond what the
// runtime trap path already guarantees (table bounds are a runtime concern,
// spec.md §4.4), and emits an indirect call through the type-index-derived
// signature.
func (t *functionTranslator) handleCallIndirect(typeIdx uint32) error {
	ft := &t.decls.Module.TypeSection[typeIdx]
	elemIdx := t.fc.pop()
	args := t.popArgs(len(ft.Params))

	b := t.fc.builder
	get := b.AllocateInstruction().AsTableGet(0, elemIdx)
	b.InsertInstruction(get)

	sig := t.decls.Sigs[typeIdx]
	call := b.AllocateInstruction().AsCallIndirect(get.Return(), &sig, args)
	b.InsertInstruction(call)

	if _, ok := ft.Result(); ok {
		t.fc.push(call.Return())
	}

	if t.decls.CR.EnableCR && t.decls.InstrumentedCallSites[callSiteKey{FuncIdx: t.fc.funcIdx, OpIdx: t.fc.opIdx}] {
		t.emitMigrationPoint(migrationSiteCallReturn)
	}
	return nil
}

// popArgs pops n values off the operand stack and prepends ExecEnv*,
// restoring the natural left-to-right argument order.
func (t *functionTranslator) popArgs(n int) []ssa.Value {
	wasmArgs := make([]ssa.Value, n)
	for i := n - 1; i >= 0; i-- {
		wasmArgs[i] = t.fc.pop()
	}
	return append([]ssa.Value{t.fc.execEnv}, wasmArgs...)
}

// handleSelect pops a condition and two values of the same type, pushing
// whichever value the (non-zero) condition selects.
func (t *functionTranslator) handleSelect() {
	c := t.fc.pop()
	y := t.fc.pop()
	x := t.fc.pop()
	b := t.fc.builder
	i := b.AllocateInstruction().AsSelect(c, x, y)
	b.InsertInstruction(i)
	t.fc.push(i.Return())
}
