package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/log"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
	"github.com/waskr/waskr/internal/wasm/binary"
)

// entrySignatureID, storeGlobalsSignatureID, and storeTableSignatureID are
// fixed IDs for the three synthesized functions' own signatures, allocated
// above every signature the module's type section can produce so they never
// collide with a module-defined SignatureID.
const (
	entrySignatureID        ssa.SignatureID = 1 << 30
	storeGlobalsSignatureID ssa.SignatureID = entrySignatureID + 1
	storeTableSignatureID   ssa.SignatureID = entrySignatureID + 2
)

// CompiledFunction is one translated function body: its absolute index,
// diagnostic name, and the builder holding its finished IR.
type CompiledFunction struct {
	Index   wasm.Index
	Name    string
	Builder ir.Builder
}

// CompiledModule is the result of compiling one Wasm binary: every
// module-defined function's IR, plus the synthesized entry point and (when
// not running in legacy mode) the externally-callable checkpoint helpers.
// There is no native backend in this repository (spec.md §1): a caller that
// wants an object file hands these builders' Format() output, or a future
// lowering pass, to one.
type CompiledModule struct {
	Decls *ModuleDecls

	Functions []CompiledFunction

	Entry        ir.Builder
	StoreGlobals ir.Builder
	StoreTable   ir.Builder
}

// Compile decodes a Wasm binary, builds module declarations, translates
// every module-defined function body, and synthesizes the entry point (and,
// unless opts.LegacyGlobalStore is set, the store_globals/store_table
// helpers). Internal invariant violations (invariantf panics, spec.md §7)
// are recovered here and reported as a BackendError CompileError rather than
// propagating a bare panic to the caller.
func Compile(data []byte, opts Options) (cm *CompiledModule, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v", r)
			log.Logger().Error("compile: internal invariant violation", zap.String("cause", msg))
			cm = nil
			err = BackendErrorf(fmt.Errorf("%v", r), "internal invariant violation")
		}
	}()

	m, err := binary.DecodeModule(data)
	if err != nil {
		werr := Malformedf(err, "decode module")
		log.Logger().Error("compile: decode failed", zap.Error(werr))
		return nil, werr
	}

	decls, err := BuildModuleDecls(m, opts)
	if err != nil {
		log.Logger().Error("compile: build declarations failed", zap.Error(err))
		return nil, err
	}

	cm = &CompiledModule{Decls: decls}

	for i := range m.CodeSection {
		fnIdx := wasm.Index(i)
		b := ssa.NewBuilder()
		fc, err := translateFunction(decls, b, fnIdx)
		if err != nil {
			log.Logger().Error("compile: translate function failed",
				zap.Uint32("function_index", fnIdx),
				zap.Error(err))
			return nil, err
		}
		cm.Functions = append(cm.Functions, CompiledFunction{
			Index:   fc.funcIdx,
			Name:    decls.Funcs[fc.funcIdx].Name,
			Builder: b,
		})
	}

	entryB := ssa.NewBuilder()
	entrySig := entrySignature(entrySignatureID)
	entryB.Init(&entrySig)
	if err := BuildEntryFunction(decls, entryB); err != nil {
		log.Logger().Error("compile: synthesize entry function failed", zap.Error(err))
		return nil, err
	}
	cm.Entry = entryB

	if !decls.CR.LegacyGlobalStore {
		sgB := ssa.NewBuilder()
		sgSig := helperSignature(storeGlobalsSignatureID)
		sgB.Init(&sgSig)
		if err := BuildStoreGlobalsFunction(decls, sgB); err != nil {
			log.Logger().Error("compile: synthesize store_globals failed", zap.Error(err))
			return nil, err
		}
		cm.StoreGlobals = sgB

		stB := ssa.NewBuilder()
		stSig := helperSignature(storeTableSignatureID)
		stB.Init(&stSig)
		if err := BuildStoreTableFunction(decls, stB); err != nil {
			log.Logger().Error("compile: synthesize store_table failed", zap.Error(err))
			return nil, err
		}
		cm.StoreTable = stB
	}

	return cm, nil
}

// DOTCallGraph decodes data and renders its static call graph as Graphviz
// source (callGraph.DOT, analysis.go) without running any translation. It
// backs the CLI's --dump-callgraph debug aid (SPEC_FULL.md §6).
func DOTCallGraph(data []byte) (string, error) {
	m, err := binary.DecodeModule(data)
	if err != nil {
		return "", Malformedf(err, "decode module")
	}
	cg, err := buildCallGraph(m)
	if err != nil {
		return "", err
	}
	return cg.DOT(m.StartFunctionIndex), nil
}
