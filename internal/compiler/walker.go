package compiler

import (
	"fmt"

	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasi"
	"github.com/waskr/waskr/internal/wasm"
)

// BuildModuleDecls walks a decoded module once, end to end, to produce the
// two-phase "declared later" ModuleDecls every function body is translated
// against (spec.md §9): signatures, function declarations (so a forward call
// can be emitted before its callee's body exists), globals, the table, the
// runtime API, and the call-graph-derived instrumentation sets.
func BuildModuleDecls(m *wasm.Module, opts Options) (*ModuleDecls, error) {
	if err := validateImports(m); err != nil {
		return nil, err
	}

	decls := &ModuleDecls{
		Module:                m,
		Sigs:                  make([]ssa.Signature, len(m.TypeSection)),
		Runtime:               newRuntimeAPI(),
		CR:                    opts,
		Instrumented:          map[wasm.Index]bool{},
		InstrumentedCallSites: map[callSiteKey]bool{},
	}

	for i := range m.TypeSection {
		decls.Sigs[i] = irSignature(ssa.SignatureID(i), &m.TypeSection[i])
	}

	decls.Funcs = make([]funcDecl, m.NumFunctions())
	var i int
	for idx := range m.ImportSection {
		imp := &m.ImportSection[idx]
		if imp.Kind != wasm.ExternKindFunc {
			continue
		}
		decls.Funcs[i] = funcDecl{
			Name:       imp.Module + "." + imp.Name,
			Sig:        &decls.Sigs[imp.DescFunc],
			IsImport:   true,
			ImportMod:  imp.Module,
			ImportName: imp.Name,
		}
		i++
	}
	imported := m.ImportedFunctionCount()
	exportedNames := exportedFunctionNames(m)
	for defIdx, typeIdx := range m.FunctionSection {
		absIdx := imported + wasm.Index(defIdx)
		name, ok := exportedNames[absIdx]
		if !ok {
			name = fmt.Sprintf("func_%d", absIdx)
		}
		decls.Funcs[absIdx] = funcDecl{Name: name, Sig: &decls.Sigs[typeIdx]}
	}

	decls.Globals = make([]globalDecl, len(m.GlobalSection))
	for i, g := range m.GlobalSection {
		decls.Globals[i] = globalDecl{Type: g.Type, Init: g.Init}
	}

	if len(m.TableSection) > 0 {
		decls.Table = &m.TableSection[0]
	}

	if err := computeInstrumentation(m, decls); err != nil {
		return nil, err
	}

	return decls, nil
}

// exportedFunctionNames maps an absolute function index to its export name,
// for functions exported more than once the first export wins (diagnostic
// naming only; it has no effect on codegen).
func exportedFunctionNames(m *wasm.Module) map[wasm.Index]string {
	out := map[wasm.Index]string{}
	for _, exp := range m.ExportSection {
		if exp.Kind != wasm.ExternKindFunc {
			continue
		}
		if _, ok := out[exp.Index]; !ok {
			out[exp.Index] = exp.Name
		}
	}
	return out
}

// validateImports enforces spec.md §4.1: only function imports and a
// single 32-bit-addressed memory import are supported (the decoder already
// rejects 64-bit and shared memory limits); anything else (table, global, or
// a second memory import) is a compile-time error, since this compiler has
// no mechanism to satisfy an imported global or table's storage at link
// time. A function import from wasi.ModuleName is additionally checked
// against the known WASI ABI table (internal/wasi): an unrecognized name or
// a mismatched signature fails here, loudly, rather than being silently
// accepted and left for the runtime to trap on at link or run time.
func validateImports(m *wasm.Module) error {
	sawMemory := false
	for _, imp := range m.ImportSection {
		switch imp.Kind {
		case wasm.ExternKindFunc:
			if imp.Module == wasi.ModuleName {
				ft := &m.TypeSection[imp.DescFunc]
				if err := wasi.Validate(imp.Name, ft); err != nil {
					return Unsupportedf("%s", err)
				}
			}
		case wasm.ExternKindMemory:
			if sawMemory {
				return Unsupportedf("module imports more than one memory")
			}
			sawMemory = true
		default:
			return Unsupportedf("unsupported import kind for %s.%s", imp.Module, imp.Name)
		}
	}
	return nil
}

// computeInstrumentation runs the call-graph reachability analysis and
// fills in decls.Instrumented/InstrumentedCallSites. With OptimizeCR unset,
// every module-defined function is instrumented unconditionally, and so is
// every call site whose callee is one (for call_indirect: whose table names
// one) — the safe, expensive default; calls to imported functions are never
// instrumented. OptimizeCR narrows this to functions that can reach a
// loop or a call cycle (spec.md §4.6).
func computeInstrumentation(m *wasm.Module, decls *ModuleDecls) error {
	imported := m.ImportedFunctionCount()
	numDefined := wasm.Index(len(m.CodeSection))

	if !decls.CR.EnableCR {
		return nil
	}

	cg, err := buildCallGraph(m)
	if err != nil {
		return err
	}

	var instrumentedAbs map[wasm.Index]bool
	if decls.CR.OptimizeCR {
		instrumentedAbs = cg.reachableToUnbounded(imported, numDefined)
	} else {
		instrumentedAbs = map[wasm.Index]bool{}
		for i := wasm.Index(0); i < numDefined; i++ {
			instrumentedAbs[imported+i] = true
		}
	}

	for i := wasm.Index(0); i < numDefined; i++ {
		absIdx := imported + i
		decls.Instrumented[i] = instrumentedAbs[absIdx]
	}

	for callerAbs, sites := range cg.sites {
		if !instrumentedAbs[callerAbs] {
			continue
		}
		for _, s := range sites {
			instrumented := false
			if s.calleeKnown {
				instrumented = instrumentedAbs[s.callee]
			} else {
				for t := range cg.tableTargets {
					if instrumentedAbs[t] {
						instrumented = true
						break
					}
				}
			}
			if instrumented {
				decls.InstrumentedCallSites[callSiteKey{FuncIdx: callerAbs, OpIdx: s.opIdx}] = true
			}
		}
	}
	return nil
}
