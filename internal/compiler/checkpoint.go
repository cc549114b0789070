package compiler

import (
	"go.uber.org/zap"

	"github.com/waskr/waskr/internal/log"
	"github.com/waskr/waskr/internal/ssa"
)

// migrationSiteKind identifies where a migration point sits in a function
// body: the prologue (before any operator), a loop header (the top of the
// loop body, after the back-edge has been taken at least once), or
// immediately after an instrumented call/call_indirect returns (spec.md §4.6).
type migrationSiteKind int

const (
	migrationSitePrologue migrationSiteKind = iota
	migrationSiteLoopHeader
	migrationSiteCallReturn
)

// compareMigrationState loads ExecEnv.migration_state (volatile: spec.md
// §4.6, §9 require this so an optimizer can never hoist the read out of a
// loop and miss a checkpoint request) and compares it for equality against
// state.
func (t *functionTranslator) compareMigrationState(state int32) ssa.Value {
	return compareMigrationStateAt(t.fc.builder, t.fc.execEnv, state)
}

// setMigrationState stores a new value into ExecEnv.migration_state.
func (t *functionTranslator) setMigrationState(state int32) {
	setMigrationStateAt(t.fc.builder, t.fc.execEnv, state)
}

// compareMigrationStateAt and setMigrationStateAt are the builder-level
// primitives behind compareMigrationState/setMigrationState, factored out so
// the entry synthesizer (synthesize.go), which has no funcContext, can share
// them.
func compareMigrationStateAt(b ssa.Builder, execEnv ssa.Value, state int32) ssa.Value {
	loadVolatile := b.AllocateInstruction().AsLoad(execEnv, execEnvOffset(execEnvMigrationState), ssa.TypeI32, true)
	b.InsertInstruction(loadVolatile)

	want := b.AllocateInstruction().AsIconst32(uint32(state))
	b.InsertInstruction(want)

	cmp := b.AllocateInstruction().AsIcmp(ssa.IntEqual, loadVolatile.Return(), want.Return())
	b.InsertInstruction(cmp)
	return cmp.Return()
}

func setMigrationStateAt(b ssa.Builder, execEnv ssa.Value, state int32) {
	v := b.AllocateInstruction().AsIconst32(uint32(state))
	b.InsertInstruction(v)
	store := b.AllocateInstruction().AsStore(execEnv, v.Return(), execEnvOffset(execEnvMigrationState))
	b.InsertInstruction(store)
}

// emitMigrationPoint instruments one program point with the full
// checkpoint/restore protocol (spec.md §4.6):
//
//  1. every site (prologue, loop header, call-return) tests CHECKPOINT_START
//     as its primary trigger, so an externally-requested checkpoint is
//     observed wherever it is first seen — including a function spinning in
//     a pure loop with no call sites at all (spec.md §8 seed scenario 3);
//     call-return sites additionally test CHECKPOINT_CONTINUE as a second,
//     subsequent trigger, since a checkpoint begun deeper in the call stack
//     unwinds back through a call-return already carrying CONTINUE rather
//     than START;
//  2. whichever test (if any) matches saves this function's frame (locals,
//     then operand stack top-first) into the host runtime and returns a
//     zero/void result, unwinding one level of the call stack towards the
//     checkpoint's origin;
//  3. if neither test matches, fall through to a merge block carrying the
//     live operand stack as block parameters;
//  4. register a restore-dispatch case that, when this function is resumed
//     from a saved pc matching this migration point, pops the frame's
//     locals and stack values back out and jumps into the same merge block.
//
// The pc saved into the frame (by either save branch) and the restore case
// registered for this migration point must be the identical value, since
// AsBrTable (restore.go) indexes its targets directly by that value rather
// than searching for it — so it is computed once, here, as this migration
// point's dense position among the function's restoreCases (not its raw
// operator byte offset, which is not dense and does not fit a direct
// array-index lookup).
//
// A site whose local count or operand stack depth exceeds Options.siteCap()
// is skipped with a warning: it gets no test, no save path and no restore case.
func (t *functionTranslator) emitMigrationPoint(site migrationSiteKind) {
	b := t.fc.builder

	if limit := t.opts.siteCap(); len(t.fc.localTypes) > limit || len(t.fc.operandStack) > limit {
		log.Logger().Warn("migration point skipped: locals or stack exceed the per-site cap",
			zap.Uint32("function_index", t.fc.funcIdx),
			zap.Uint32("op_index", t.fc.opIdx),
			zap.Int("cap", limit))
		return
	}

	mergeBB := b.AllocateBasicBlock()
	caseIdx := uint32(len(t.fc.restoreCases))

	startCond := t.compareMigrationState(migrationStateCheckpointStart)
	afterStartBB := b.AllocateBasicBlock()
	b.InsertInstruction(b.AllocateInstruction().AsBrz(startCond, afterStartBB, nil))

	// Fallthrough (cond != 0): an external checkpoint request was just seen
	// here, save the frame and start unwinding.
	t.emitSaveFrameAndReturn(site, caseIdx)

	b.SetCurrentBlock(afterStartBB)
	if site == migrationSiteCallReturn {
		contCond := t.compareMigrationState(migrationStateCheckpointCont)
		afterContBB := b.AllocateBasicBlock()
		b.InsertInstruction(b.AllocateInstruction().AsBrz(contCond, afterContBB, nil))

		// Fallthrough (cond != 0): a checkpoint begun deeper in the call
		// stack is unwinding through this call-return, save and keep
		// unwinding.
		t.emitSaveFrameAndReturn(site, caseIdx)

		b.SetCurrentBlock(afterContBB)
	}

	// Neither test matched: nothing to checkpoint here, pass the stack
	// through unchanged.
	jump := b.AllocateInstruction().AsJump(mergeBB, append([]ssa.Value(nil), t.fc.operandStack...))
	b.InsertInstruction(jump)

	t.emitRestoreCase(mergeBB, caseIdx)

	b.SetCurrentBlock(mergeBB)
	for i, v := range t.fc.operandStack {
		t.fc.operandStack[i] = mergeBB.AddParam(b, v.Type())
	}
}

// emitSaveFrameAndReturn builds the checkpoint-save sequence: push_frame,
// set_pc_to_frame, push_local_T for every local, push_T for every operand
// stack value (top-first, a LIFO push so the bottom-to-top restore loop in
// emitRestoreCase can pop them back out with plain pop_T calls), and finally
// a return of the function's zero value (or void). Every save path also
// transitions migration_state to CHECKPOINT_CONTINUE before returning, so the
// caller's call-return site takes its CONTINUE branch and keeps unwinding.
// caseIdx is the dense restore-case position emitMigrationPoint computed;
// it is saved as the frame's pc instead of the raw operator byte offset so
// finalizeRestoreDispatch's br_table can index straight into its targets.
func (t *functionTranslator) emitSaveFrameAndReturn(site migrationSiteKind, caseIdx uint32) {
	b := t.fc.builder
	rt := t.decls.Runtime

	pushFrame := b.AllocateInstruction().AsCallExtern("push_frame", &rt.PushFrame, []ssa.Value{t.fc.execEnv})
	b.InsertInstruction(pushFrame)

	fnIdxConst := b.AllocateInstruction().AsIconst32(uint32(t.fc.funcIdx))
	b.InsertInstruction(fnIdxConst)
	pcConst := b.AllocateInstruction().AsIconst32(caseIdx)
	b.InsertInstruction(pcConst)
	setPC := b.AllocateInstruction().AsCallExtern("set_pc_to_frame", &rt.SetPCToFrame,
		[]ssa.Value{t.fc.execEnv, fnIdxConst.Return(), pcConst.Return()})
	b.InsertInstruction(setPC)

	for idx, lt := range t.fc.localTypes {
		vt := irType(lt)
		get := b.AllocateInstruction().AsLocalGet(uint32(idx), vt)
		b.InsertInstruction(get)
		sig := rt.PushLocal[lt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("push_local", lt), &sig,
			[]ssa.Value{t.fc.execEnv, get.Return()})
		b.InsertInstruction(call)
	}

	for i := len(t.fc.operandStack) - 1; i >= 0; i-- {
		v := t.fc.operandStack[i]
		vt := wasmValueTypeOf(v.Type())
		sig := rt.Push[vt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("push", vt), &sig,
			[]ssa.Value{t.fc.execEnv, v})
		b.InsertInstruction(call)
	}

	t.setMigrationState(migrationStateCheckpointCont)

	var resultType *ssa.Type
	if fr := &t.fc.controlStack[0]; fr.resultType != nil {
		resultType = fr.resultType
	}
	if resultType == nil {
		ret := b.AllocateInstruction().AsReturn(nil)
		b.InsertInstruction(ret)
		return
	}
	zero := zeroValue(b, *resultType)
	ret := b.AllocateInstruction().AsReturn([]ssa.Value{zero})
	b.InsertInstruction(ret)
}

// emitRestoreCase appends a restore-dispatch case for this migration point:
// a block that pops this function's saved frame (locals by
// push_front/pop_front order, stack values bottom-to-top via plain LIFO
// pop_T, the mirror of emitSaveFrameAndReturn's top-first push) and jumps
// into mergeBB carrying the restored operand stack as arguments. caseIdx is
// the same dense position emitSaveFrameAndReturn saved as the frame's pc.
func (t *functionTranslator) emitRestoreCase(mergeBB ssa.BasicBlock, caseIdx uint32) {
	b := t.fc.builder
	rt := t.decls.Runtime

	restoreBB := b.AllocateBasicBlock()
	t.fc.restoreCases = append(t.fc.restoreCases, restoreCase{pc: caseIdx, block: restoreBB})

	b.SetCurrentBlock(restoreBB)

	for idx, lt := range t.fc.localTypes {
		sig := rt.PopFrontLocal[lt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("pop_front_local", lt), &sig,
			[]ssa.Value{t.fc.execEnv})
		b.InsertInstruction(call)
		set := b.AllocateInstruction().AsLocalSet(uint32(idx), call.Return())
		b.InsertInstruction(set)
	}

	restored := make([]ssa.Value, len(t.fc.operandStack))
	for i, v := range t.fc.operandStack {
		vt := wasmValueTypeOf(v.Type())
		sig := rt.Pop[vt]
		call := b.AllocateInstruction().AsCallExtern(runtimeSymbolName("pop", vt), &sig, []ssa.Value{t.fc.execEnv})
		b.InsertInstruction(call)
		restored[i] = call.Return()
	}

	popFrame := b.AllocateInstruction().AsCallExtern("pop_front_frame", &rt.PopFrontFrame, []ssa.Value{t.fc.execEnv})
	b.InsertInstruction(popFrame)

	jump := b.AllocateInstruction().AsJump(mergeBB, restored)
	b.InsertInstruction(jump)
}
