package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// TestTranslateFunction_PrologueIsSoleMigrationPointForTrivialBody runs a
// single-operator function ("end" only) through the real translateFunction
// pipeline with C/R enabled and end-to-end checks that the prologue
// contributes exactly one restore case, keyed by its dense position (0),
// matching what finalizeRestoreDispatch's br_table later indexes into.
func TestTranslateFunction_PrologueIsSoleMigrationPointForTrivialBody(t *testing.T) {
	ft := wasm.FunctionType{}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{ft},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: []byte{opEnd}}},
	}
	decls := &ModuleDecls{
		Module:                m,
		Sigs:                  []ssa.Signature{irSignature(0, &ft)},
		Runtime:               newRuntimeAPI(),
		CR:                    Options{EnableCR: true},
		Instrumented:          map[wasm.Index]bool{0: true},
		InstrumentedCallSites: map[callSiteKey]bool{},
	}

	b := ssa.NewBuilder()
	fc, err := translateFunction(decls, b, 0)
	require.NoError(t, err)

	require.Len(t, fc.restoreCases, 1, "a body with no loop and no call has exactly one migration point: the prologue")
	require.Equal(t, uint32(0), fc.restoreCases[0].pc)

	brTable := findBrTable(t, b, fc.restoreDispatchBB)
	require.Len(t, brTable.BrTargets(), 2) // the one case plus the trap default
	require.Equal(t, fc.restoreCases[0].block.ID(), brTable.BrTargets()[0].ID())
}

// TestTranslateFunction_SkipsInstrumentationWhenCRDisabled confirms a
// module translated without EnableCR contributes no restore cases and
// opens no restore-dispatch block at all.
func TestTranslateFunction_SkipsInstrumentationWhenCRDisabled(t *testing.T) {
	ft := wasm.FunctionType{}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{ft},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: []byte{opEnd}}},
	}
	decls := &ModuleDecls{
		Module:                m,
		Sigs:                  []ssa.Signature{irSignature(0, &ft)},
		Runtime:               newRuntimeAPI(),
		CR:                    Options{EnableCR: false},
		Instrumented:          map[wasm.Index]bool{},
		InstrumentedCallSites: map[callSiteKey]bool{},
	}

	b := ssa.NewBuilder()
	fc, err := translateFunction(decls, b, 0)
	require.NoError(t, err)
	require.Empty(t, fc.restoreCases)
	require.Nil(t, fc.restoreDispatchBB)
}

// TestTranslateFunction_PureLoopTestsCheckpointStartAtLoopHeader is spec.md
// §8 seed scenario 3: a function with no call sites at all, just
// `loop { br 0 }`. Its migration points are the prologue and the loop
// header, and the loop header must test CHECKPOINT_START directly - the exact regression the
// review flagged, where every non-prologue site tested only CONTINUE and a
// checkpoint request could never be observed by a function spinning in a
// pure loop.
func TestTranslateFunction_PureLoopTestsCheckpointStartAtLoopHeader(t *testing.T) {
	// loop (block type: empty) ; br 0 ; end (closes loop) ; end (closes function)
	body := []byte{opLoop, 0x40, opBr, 0x00, opEnd, opEnd}

	ft := wasm.FunctionType{}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{ft},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: body}},
	}
	decls := &ModuleDecls{
		Module:                m,
		Sigs:                  []ssa.Signature{irSignature(0, &ft)},
		Runtime:               newRuntimeAPI(),
		CR:                    Options{EnableCR: true},
		Instrumented:          map[wasm.Index]bool{0: true},
		InstrumentedCallSites: map[callSiteKey]bool{},
	}

	b := ssa.NewBuilder()
	fc, err := translateFunction(decls, b, 0)
	require.NoError(t, err)

	// Prologue + loop header.
	require.Len(t, fc.restoreCases, 2)

	got := icmpConstants(t, allInstructions(b))
	require.Equal(t, []uint32{migrationStateRestore, migrationStateCheckpointStart, migrationStateCheckpointStart}, got,
		"after the entry's RESTORE dispatch test, both the prologue and the loop header must test "+
			"CHECKPOINT_START; a pure loop has no call-return site to fall back on")
}
