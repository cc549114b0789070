package compiler

import "github.com/waskr/waskr/internal/ssa"

// emitRestoreDispatchTest opens every CR-instrumented function with: if
// migration_state == RESTORE, branch to a dispatch block (finalized later,
// once every migration point in the function has registered its
// restoreCase); otherwise fall through to normal translation (spec.md §4.6).
func (t *functionTranslator) emitRestoreDispatchTest(fnIdx uint32) {
	b := t.fc.builder
	cond := t.compareMigrationState(migrationStateRestore)

	dispatchBB := b.AllocateBasicBlock()
	continueBB := b.AllocateBasicBlock()

	brz := b.AllocateInstruction().AsBrz(cond, continueBB, nil)
	b.InsertInstruction(brz)
	// Fallthrough (cond != 0, restoring): jump to the dispatch block, which
	// stays empty until finalizeRestoreDispatch appends its pc switch once
	// all restoreCases exist.
	b.InsertInstruction(b.AllocateInstruction().AsJump(dispatchBB, nil))
	b.SetCurrentBlock(dispatchBB)
	t.fc.restoreDispatchBB = dispatchBB

	b.SetCurrentBlock(continueBB)
}

// finalizeRestoreDispatch builds the actual pc switch inside the dispatch
// block emitRestoreDispatchTest reserved: get_pc_from_frame(env), then a
// br_table over every restoreCase registered during translation, landing on
// an unreachable trap if the saved pc matches none of them (a corrupt or
// foreign snapshot; spec.md §4.6).
func (t *functionTranslator) finalizeRestoreDispatch(fnIdx uint32) {
	b := t.fc.builder
	rt := t.decls.Runtime

	trapBB := b.AllocateBasicBlock()
	b.SetCurrentBlock(trapBB)
	unreachable := b.AllocateInstruction().AsUnreachable()
	b.InsertInstruction(unreachable)

	b.SetCurrentBlock(t.fc.restoreDispatchBB)
	getPC := b.AllocateInstruction().AsCallExtern("get_pc_from_frame", &rt.GetPCFromFrame, []ssa.Value{t.fc.execEnv})
	b.InsertInstruction(getPC)

	if len(t.fc.restoreCases) == 0 {
		jump := b.AllocateInstruction().AsJump(trapBB, nil)
		b.InsertInstruction(jump)
		return
	}

	targets := make([]ssa.BasicBlock, len(t.fc.restoreCases))
	for i, rc := range t.fc.restoreCases {
		targets[i] = rc.block
	}
	// br_table selects targets[pc] directly, so pc must already be a dense
	// 0..N-1 index: emitMigrationPoint saves each case's array position
	// (len(restoreCases) at registration time, equal to i here) as the
	// frame's pc instead of the raw operator byte offset, so this direct
	// index always lands on the right case; a corrupt or foreign snapshot's
	// pc still falls through to trapBB via br_table's default arm.
	brTable := b.AllocateInstruction().AsBrTable(getPC.Return(), append(targets, trapBB), nil)
	b.InsertInstruction(brTable)
}
