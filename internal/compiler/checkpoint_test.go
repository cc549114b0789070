package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
)

// newMigrationPointFixture builds a bare functionTranslator with a single
// entry block and a void-result function-scope control frame, enough to
// call emitMigrationPoint directly without going through a whole decoded
// module.
func newMigrationPointFixture(t *testing.T) (*functionTranslator, ssa.BasicBlock) {
	t.Helper()
	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{Params: []ssa.Type{ir.Ptr}})
	entry := b.AllocateBasicBlock()
	execEnv := entry.AddParam(b, ir.Ptr)
	b.SetCurrentBlock(entry)

	fc := &funcContext{builder: b, execEnv: execEnv}
	fc.pushControl(controlFrame{kind: frameBlock, next: b.ReturnBlock()})

	decls := &ModuleDecls{Runtime: newRuntimeAPI()}
	return &functionTranslator{decls: decls, fc: fc}, entry
}

// allInstructions flattens every instruction across every block the
// builder has allocated, in allocation order, so a test can scan for a
// particular shape without caring which physical block it landed in.
func allInstructions(b ssa.Builder) []*ssa.Instruction {
	var out []*ssa.Instruction
	for i := 0; i < b.Blocks(); i++ {
		out = append(out, b.BlockByID(ssa.BasicBlockID(i)).Instructions()...)
	}
	return out
}

// constFeeding returns the constant operand of instr's iconst32 source
// value, panicking the test if v wasn't produced by an Iconst32 (every
// migration-state comparison in this package compares against exactly one).
func constFeeding(t *testing.T, instrs []*ssa.Instruction, v ssa.Value) uint32 {
	t.Helper()
	for _, i := range instrs {
		if i.Opcode() == ssa.OpcodeIconst32 && i.Return().Valid() && i.Return().ID() == v.ID() {
			return uint32(i.ConstValue())
		}
	}
	t.Fatalf("no Iconst32 instruction produces value %s", v)
	return 0
}

// icmpConstants returns, in program order, the constant each Icmp
// instruction in instrs compares its loaded operand against.
func icmpConstants(t *testing.T, instrs []*ssa.Instruction) []uint32 {
	t.Helper()
	var out []uint32
	for _, i := range instrs {
		if i.Opcode() == ssa.OpcodeIcmp {
			out = append(out, constFeeding(t, instrs, i.Arg2()))
		}
	}
	return out
}

func TestEmitMigrationPoint_PrologueTestsCheckpointStart(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitMigrationPoint(migrationSitePrologue)

	got := icmpConstants(t, allInstructions(tt.fc.builder))
	require.Equal(t, []uint32{migrationStateCheckpointStart}, got,
		"prologue must test CHECKPOINT_START, not CONTINUE, so a checkpoint request is seen on entry")
}

func TestEmitMigrationPoint_LoopHeaderTestsCheckpointStart(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitMigrationPoint(migrationSiteLoopHeader)

	got := icmpConstants(t, allInstructions(tt.fc.builder))
	require.Equal(t, []uint32{migrationStateCheckpointStart}, got,
		"a pure-loop function (spec.md seed scenario 3, loop{br 0}) has no call-return site at "+
			"all, so its only migration point must test START directly or an externally-requested "+
			"checkpoint can never be observed")
}

func TestEmitMigrationPoint_CallReturnTestsStartThenContinue(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitMigrationPoint(migrationSiteCallReturn)

	got := icmpConstants(t, allInstructions(tt.fc.builder))
	require.Equal(t, []uint32{migrationStateCheckpointStart, migrationStateCheckpointCont}, got,
		"a call-return site must test START first (a checkpoint requested while this call was "+
			"outstanding) and CONTINUE second (a checkpoint begun deeper in the call stack, already "+
			"unwinding through this frame)")
}

func TestEmitMigrationPoint_SavesDenseCaseIndexNotOpIdx(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.fc.opIdx = 4711 // a raw operator byte offset, deliberately not 0

	tt.emitMigrationPoint(migrationSitePrologue)

	require.Len(t, tt.fc.restoreCases, 1)
	require.Equal(t, uint32(0), tt.fc.restoreCases[0].pc,
		"the first migration point's case index must be its dense restoreCases position (0), "+
			"not the unrelated operator byte offset in fc.opIdx")

	// The pc constant passed to set_pc_to_frame must match the registered
	// case's pc exactly, or restore dispatches to the wrong block.
	instrs := allInstructions(tt.fc.builder)
	var sawSetPC bool
	for _, i := range instrs {
		if i.Opcode() == ssa.OpcodeCall && i.Symbol() == "set_pc_to_frame" {
			args := i.Args()
			require.Len(t, args, 3)
			require.Equal(t, uint32(0), constFeeding(t, instrs, args[2]))
			sawSetPC = true
		}
	}
	require.True(t, sawSetPC, "expected a set_pc_to_frame call in the save path")
}

func TestEmitMigrationPoint_SecondMigrationPointGetsNextDenseIndex(t *testing.T) {
	tt, _ := newMigrationPointFixture(t)
	tt.emitMigrationPoint(migrationSitePrologue)
	tt.emitMigrationPoint(migrationSiteLoopHeader)

	require.Len(t, tt.fc.restoreCases, 2)
	require.Equal(t, uint32(0), tt.fc.restoreCases[0].pc)
	require.Equal(t, uint32(1), tt.fc.restoreCases[1].pc,
		"each migration point's case index is its position among restoreCases at the time it "+
			"registers, so two points in the same function never collide")
}
