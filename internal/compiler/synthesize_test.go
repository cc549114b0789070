package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// synthesizeFixture builds a ModuleDecls for a module with one global and no
// start-function parameters, enough to drive BuildEntryFunction under both
// LegacyGlobalStore settings.
func synthesizeFixture(legacy bool) *ModuleDecls {
	startSig := entrySignature(0)
	m := &wasm.Module{
		HasStart:           true,
		StartFunctionIndex: 0,
		GlobalSection: []wasm.Global{
			{Type: wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: true}},
		},
	}
	return &ModuleDecls{
		Module:  m,
		Funcs:   []funcDecl{{Name: "_start", Sig: &startSig}},
		Globals: []globalDecl{{Type: m.GlobalSection[0].Type}},
		Runtime: newRuntimeAPI(),
		CR:      Options{EnableCR: true, LegacyGlobalStore: legacy},
	}
}

// hasCallTo reports whether instrs contains a runtime-extern call to
// symbol. AsCallExtern instructions carry the same OpcodeCall as
// module-internal calls (Symbol/Sig is what distinguishes them), so this
// checks Symbol() rather than a separate "call extern" opcode.
func hasCallTo(instrs []*ssa.Instruction, symbol string) bool {
	for _, i := range instrs {
		if i.Opcode() == ssa.OpcodeCall && i.Symbol() == symbol {
			return true
		}
	}
	return false
}

// TestBuildEntryFunction_LegacyModeStoresGlobalsInline covers
// LegacyGlobalStore=true: aot_main itself pushes globals back onto the
// runtime queue after the start call returns, mirroring the "checkpoint-v1"
// inline shape synthesize.rs falls back to when the store_globals/
// store_table helper functions aren't wired.
func TestBuildEntryFunction_LegacyModeStoresGlobalsInline(t *testing.T) {
	decls := synthesizeFixture(true)
	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{ID: 0, Params: []ssa.Type{ir.Ptr}})

	require.NoError(t, BuildEntryFunction(decls, b))

	instrs := allInstructions(b)
	require.True(t, hasCallTo(instrs, runtimeSymbolName("push_global", wasm.ValueTypeI32)),
		"legacy mode must emit the global-store sequence inline in aot_main")
}

// TestBuildEntryFunction_NonLegacyModeOmitsInlineStore covers
// LegacyGlobalStore=false (checkpoint-v2): aot_main must NOT push globals
// itself; that becomes the externally-callable store_globals helper's job
// instead (BuildStoreGlobalsFunction), called directly by the host runtime.
func TestBuildEntryFunction_NonLegacyModeOmitsInlineStore(t *testing.T) {
	decls := synthesizeFixture(false)
	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{ID: 0, Params: []ssa.Type{ir.Ptr}})

	require.NoError(t, BuildEntryFunction(decls, b))

	instrs := allInstructions(b)
	require.False(t, hasCallTo(instrs, runtimeSymbolName("push_global", wasm.ValueTypeI32)),
		"non-legacy mode leaves global-store to the separate store_globals helper")
}

// TestBuildStoreGlobalsFunction_AlwaysEmitsPushRegardlessOfCR mirrors
// synthesize.rs's unconditional store_globals emission: lib-rt statically
// links this symbol whether or not C/R is enabled, so its body must always
// contain the push sequence.
func TestBuildStoreGlobalsFunction_AlwaysEmitsPushRegardlessOfCR(t *testing.T) {
	decls := synthesizeFixture(false)
	decls.CR.EnableCR = false

	b := ssa.NewBuilder()
	b.Init(&ssa.Signature{ID: 0, Params: []ssa.Type{ir.Ptr}})

	require.NoError(t, BuildStoreGlobalsFunction(decls, b))

	instrs := allInstructions(b)
	require.True(t, hasCallTo(instrs, runtimeSymbolName("push_global", wasm.ValueTypeI32)))
}
