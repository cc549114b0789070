package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waskr/waskr/internal/ssa"
)

// TestFinalizeRestoreDispatch_TargetsAreDenseByCaseIndex builds three
// migration points at non-contiguous operator byte offsets and checks that
// the br_table finalizeRestoreDispatch emits indexes targets by each case's
// dense registration position, not by that byte offset - the bug comment
// (c) in the review flagged: AsBrTable does targets[index], not a
// value-keyed search.
func TestFinalizeRestoreDispatch_TargetsAreDenseByCaseIndex(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitRestoreDispatchTest(0)

	// Emit three migration points; if the code under test mistakenly used
	// fc.opIdx (a raw byte offset) as the case key, these non-dense,
	// non-contiguous values would fail to line up with br_table's direct
	// targets[index] lookup.
	tt.fc.opIdx = 0
	tt.emitMigrationPoint(migrationSitePrologue)
	tt.fc.opIdx = 47
	tt.emitMigrationPoint(migrationSiteLoopHeader)
	tt.fc.opIdx = 912
	tt.emitMigrationPoint(migrationSiteLoopHeader)

	require.Len(t, tt.fc.restoreCases, 3)
	for i, rc := range tt.fc.restoreCases {
		require.Equal(t, uint32(i), rc.pc, "case %d must be keyed by its dense position", i)
	}

	tt.finalizeRestoreDispatch(0)

	brTable := findBrTable(t, tt.fc.builder, tt.fc.restoreDispatchBB)
	targets := brTable.BrTargets()
	require.Len(t, targets, 4) // 3 cases + trapBB default

	for i, rc := range tt.fc.restoreCases {
		require.Equal(t, rc.block.ID(), targets[i].ID(),
			"targets[%d] (what AsBrTable indexes case %d's saved pc into) must be that case's own block", i, i)
	}
}

// TestFinalizeRestoreDispatch_EmptyCasesJumpsToTrap covers the degenerate
// instrumented-but-no-migration-point function: the dispatch block must
// still be well-formed (terminated), landing unconditionally on the trap.
func TestFinalizeRestoreDispatch_EmptyCasesJumpsToTrap(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitRestoreDispatchTest(0)
	tt.finalizeRestoreDispatch(0)

	require.True(t, tt.fc.restoreDispatchBB.Terminated())
}

func findBrTable(t *testing.T, b ssa.Builder, blk ssa.BasicBlock) *ssa.Instruction {
	t.Helper()
	for _, i := range blk.Instructions() {
		if i.Opcode() == ssa.OpcodeBrTable {
			return i
		}
	}
	t.Fatalf("no br_table found in block %s", blk.Name())
	return nil
}
