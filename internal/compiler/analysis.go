package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/waskr/waskr/internal/wasm"
)

// callSite is one call/call_indirect operator found while scanning a
// function body for the call graph: its operator index (for
// InstrumentedCallSites) and, for a direct call, the absolute callee index.
// call_indirect sites have calleeKnown == false and are treated as reaching
// every table-referenced function (spec.md §4.6: "a call through a table is
// conservatively assumed able to reach anything the table can name").
type callSite struct {
	opIdx       uint32
	calleeKnown bool
	callee      wasm.Index
}

// scanCallSites walks a function body with the same opReader/opcode table
// the real translator uses, but only far enough to find opCall/opCallIndirect
// and opLoop occurrences — a structural pre-pass, not a translation.
func scanCallSites(body []byte) (sites []callSite, hasLoop bool, err error) {
	r := newOpReader(body)
	for !r.atEOF() {
		pc := r.position()
		op, err := r.readByte()
		if err != nil {
			return nil, false, err
		}
		switch {
		case op == opLoop:
			hasLoop = true
			if _, _, err := r.readBlockType(); err != nil {
				return nil, false, err
			}
		case op == opBlock || op == opIf:
			if _, _, err := r.readBlockType(); err != nil {
				return nil, false, err
			}
		case op == opCall:
			idx, err := r.readU32()
			if err != nil {
				return nil, false, err
			}
			sites = append(sites, callSite{opIdx: pc, calleeKnown: true, callee: idx})
		case op == opCallIndirect:
			if _, err := r.readU32(); err != nil { // type index
				return nil, false, err
			}
			if _, err := r.readU32(); err != nil { // table index
				return nil, false, err
			}
			sites = append(sites, callSite{opIdx: pc, calleeKnown: false})
		case op == opBrTable:
			n, err := r.readU32()
			if err != nil {
				return nil, false, err
			}
			for i := uint32(0); i < n+1; i++ {
				if _, err := r.readU32(); err != nil {
					return nil, false, err
				}
			}
		case isLoadStoreOp(op):
			if _, err := r.readMemarg(); err != nil {
				return nil, false, err
			}
		case op == opFC:
			sub, err := r.readU32()
			if err != nil {
				return nil, false, err
			}
			switch sub {
			case opFCMemoryCopy:
				if _, err := r.readByte(); err != nil {
					return nil, false, err
				}
				if _, err := r.readByte(); err != nil {
					return nil, false, err
				}
			case opFCMemoryFill:
				if _, err := r.readByte(); err != nil {
					return nil, false, err
				}
			}
		case op == opBr || op == opBrIf || op == opLocalGet || op == opLocalSet ||
			op == opLocalTee || op == opGlobalGet || op == opGlobalSet ||
			op == opMemorySize || op == opMemoryGrow:
			if _, err := r.readU32(); err != nil {
				return nil, false, err
			}
		case op == opI32Const:
			if _, err := r.readS32(); err != nil {
				return nil, false, err
			}
		case op == opI64Const:
			if _, err := r.readS64(); err != nil {
				return nil, false, err
			}
		case op == opF32Const:
			if _, err := r.readF32(); err != nil {
				return nil, false, err
			}
		case op == opF64Const:
			if _, err := r.readF64(); err != nil {
				return nil, false, err
			}
		}
	}
	return sites, hasLoop, nil
}

// callGraph holds the call graph analysis result the module walker needs to
// populate ModuleDecls.Instrumented/InstrumentedCallSites (spec.md §4.6): a
// function is "potentially unbounded" if it contains a loop or sits on a
// call cycle, and instrumentation propagates to every function that can
// reach one.
type callGraph struct {
	sites map[wasm.Index][]callSite
	// tableTargets holds every function index named by an active element
	// segment: the conservative reachable set of a call_indirect.
	tableTargets map[wasm.Index]bool
	unbounded    map[wasm.Index]bool
	// cycleEdges records every (caller, callee) pair findCycles observed as
	// a gray-to-gray back edge, used only by DOT's red-edge coloring.
	cycleEdges map[[2]wasm.Index]bool
}

// buildCallGraph scans every module-defined function body once.
func buildCallGraph(m *wasm.Module) (*callGraph, error) {
	cg := &callGraph{
		sites:        map[wasm.Index][]callSite{},
		tableTargets: map[wasm.Index]bool{},
		unbounded:    map[wasm.Index]bool{},
		cycleEdges:   map[[2]wasm.Index]bool{},
	}
	imported := m.ImportedFunctionCount()

	for _, seg := range m.ElementSection {
		for _, fnIdx := range seg.Init {
			cg.tableTargets[fnIdx] = true
		}
	}

	hasLoop := map[wasm.Index]bool{}
	for i, code := range m.CodeSection {
		absIdx := imported + wasm.Index(i)
		sites, loop, err := scanCallSites(code.Body)
		if err != nil {
			return nil, err
		}
		cg.sites[absIdx] = sites
		hasLoop[absIdx] = loop
	}

	// A function findCycles marks as on a cycle (direct or indirect
	// recursion) is potentially unbounded even without a loop opcode
	// (spec.md §4.6).
	onCycle := cg.findCycles(imported, wasm.Index(len(m.CodeSection)))

	for i := range m.CodeSection {
		absIdx := imported + wasm.Index(i)
		if hasLoop[absIdx] || onCycle[absIdx] {
			cg.unbounded[absIdx] = true
		}
	}
	return cg, nil
}

// findCycles runs a simple three-color DFS over the direct-call edges
// (call_indirect edges fan out to every table target, which is enough to
// detect indirect recursion through the table without tracking per-site
// type compatibility). It marks the caller and the callee of every back
// edge it finds (an edge into a function still on the DFS path). A function
// that lies on a cycle strictly between those two ends, or that joins a
// cycle through an already-finished function, is not marked; it can still
// reach a marked function.
func (cg *callGraph) findCycles(imported, numDefined wasm.Index) map[wasm.Index]bool {
	const (
		white = iota
		gray
		black
	)
	color := map[wasm.Index]int{}
	onCycle := map[wasm.Index]bool{}

	var visit func(n wasm.Index)
	visit = func(n wasm.Index) {
		color[n] = gray
		for _, s := range cg.sites[n] {
			next := func(callee wasm.Index) {
				switch color[callee] {
				case white:
					visit(callee)
				case gray:
					onCycle[n] = true
					onCycle[callee] = true
					cg.cycleEdges[[2]wasm.Index{n, callee}] = true
				}
			}
			if s.calleeKnown {
				next(s.callee)
			} else {
				for t := range cg.tableTargets {
					next(t)
				}
			}
		}
		color[n] = black
	}

	for i := wasm.Index(0); i < numDefined; i++ {
		absIdx := imported + i
		if color[absIdx] == white {
			visit(absIdx)
		}
	}
	return onCycle
}

// reachableToUnbounded computes, for every module-defined function, whether
// it can reach (by zero or more calls) a function in cg.unbounded: the
// instrumentation set when Options.OptimizeCR is enabled. With OptimizeCR
// off every module-defined function is instrumented unconditionally, and so
// is every call site whose callee is one (spec.md §4.6's "OptimizeCR"
// toggle); calls to imported functions are never instrumented.
func (cg *callGraph) reachableToUnbounded(imported, numDefined wasm.Index) map[wasm.Index]bool {
	memo := map[wasm.Index]bool{}
	visiting := map[wasm.Index]bool{}

	var reaches func(n wasm.Index) bool
	reaches = func(n wasm.Index) bool {
		if v, ok := memo[n]; ok {
			return v
		}
		if cg.unbounded[n] {
			memo[n] = true
			return true
		}
		if visiting[n] {
			// Part of the recursion currently being resolved; findCycles
			// already marked these unbounded, so treat as false here to
			// avoid infinite recursion and let the unbounded check above
			// (reached via a different call order) settle it.
			return false
		}
		visiting[n] = true
		result := false
		for _, s := range cg.sites[n] {
			if s.calleeKnown {
				if reaches(s.callee) {
					result = true
				}
			} else {
				for t := range cg.tableTargets {
					if reaches(t) {
						result = true
						break
					}
				}
			}
			if result {
				break
			}
		}
		visiting[n] = false
		memo[n] = result
		return result
	}

	out := map[wasm.Index]bool{}
	for i := wasm.Index(0); i < numDefined; i++ {
		absIdx := imported + i
		out[absIdx] = reaches(absIdx)
	}
	return out
}

// DOT renders the call graph as Graphviz source, grounded on
// wanco/src/compile/cr/opt.rs's debug dump: each back edge findCycles
// recorded (the edge that closes a call cycle in its DFS) is colored red,
// the other edges of that cycle are not; a function node marked unbounded (may take infinite time
// without a migration point) is colored blue. Used by the CLI's
// --dump-callgraph flag, a debug aid with no effect on compile output.
func (cg *callGraph) DOT(startFuncIdx wasm.Index) string {
	var b strings.Builder
	fmt.Fprintln(&b, "digraph callgraph {")
	fmt.Fprintf(&b, "  entry -> %d;\n", startFuncIdx)

	callers := make([]wasm.Index, 0, len(cg.sites))
	for caller := range cg.sites {
		callers = append(callers, caller)
	}
	sort.Slice(callers, func(i, j int) bool { return callers[i] < callers[j] })

	for _, caller := range callers {
		for _, s := range cg.sites[caller] {
			if s.calleeKnown {
				cg.writeEdge(&b, caller, s.callee)
				continue
			}
			targets := make([]wasm.Index, 0, len(cg.tableTargets))
			for t := range cg.tableTargets {
				targets = append(targets, t)
			}
			sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
			for _, t := range targets {
				cg.writeEdge(&b, caller, t)
			}
		}
	}

	unbounded := make([]wasm.Index, 0, len(cg.unbounded))
	for fn := range cg.unbounded {
		unbounded = append(unbounded, fn)
	}
	sort.Slice(unbounded, func(i, j int) bool { return unbounded[i] < unbounded[j] })
	for _, fn := range unbounded {
		fmt.Fprintf(&b, "  %d [color=blue];\n", fn)
	}

	fmt.Fprintln(&b, "}")
	return b.String()
}

func (cg *callGraph) writeEdge(b *strings.Builder, caller, callee wasm.Index) {
	if cg.cycleEdges[[2]wasm.Index{caller, callee}] {
		fmt.Fprintf(b, "  %d -> %d [color=red];\n", caller, callee)
	} else {
		fmt.Fprintf(b, "  %d -> %d;\n", caller, callee)
	}
}
