package compiler

import (
	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// unreachableReason mirrors spec.md §3's UnreachableReason: the cause of
// the current dead-code region, used to decide how `else`/`end` should
// re-enter reachable translation.
type unreachableReason int

const (
	reachable unreachableReason = iota
	unreachableBr
	unreachableReturn
	unreachableUnreachable
)

// controlFrameKind tags which ControlFrame variant is stored below.
type controlFrameKind int

const (
	frameBlock controlFrameKind = iota
	frameLoop
	frameIfElse
)

// ifElseState tracks which half of an if/else construct is currently open.
type ifElseState int

const (
	ifElseStateIf ifElseState = iota
	ifElseStateElse
)

// controlFrame is the tagged union spec.md §3 describes: Block{next,
// end_phis, stack_depth} | Loop{body, next, body_phis, end_phis,
// stack_depth} | IfElse{then, else, end, state, end_phis, stack_depth}.
type controlFrame struct {
	kind controlFrameKind

	// next is the forward-branch target: `end` for block/if, the block
	// following the loop for `loop` (loop's `br` target is body instead).
	next ssa.BasicBlock
	// body is the loop's back-edge target (only for frameLoop).
	body ssa.BasicBlock

	// then/els are the if/else branch blocks (only for frameIfElse).
	then, els ssa.BasicBlock
	state     ifElseState

	// endPhis/bodyPhis collect operand-stack values from every branch that
	// targets `next`/`body` respectively, in incoming-edge order.
	endPhis  []ssa.Value
	bodyPhis []ssa.Value

	// resultType is the block type's result type, if any; endPhis is
	// shaped by it (0 or 1 phi, multi-result is out of scope).
	resultType *ssa.Type

	// stackDepthAtEntry is the operand stack depth when this frame was
	// pushed, so `end` can truncate back to it before pushing phi results.
	stackDepthAtEntry int
}

// funcContext is the mutable per-function translation state spec.md §2
// item 2 describes: current function, current op index, control-frame
// stack, value-stack frame, and unreachable tracking.
type funcContext struct {
	funcIdx wasm.Index

	builder ir.Builder

	// execEnv is the ExecEnv* value, always local 0 conceptually but kept
	// as an explicit Value since it is never reassigned.
	execEnv ir.Value

	// localTypes holds the declared type of every local, in index order:
	// first the Wasm parameters (ExecEnv* is not counted, it is a separate
	// field above), then the function body's declared locals. internal/ssa
	// models locals symbolically via LocalGet/LocalSet-by-index rather than
	// alloca+load/store, so this slice is the slot layout LocalGet/LocalSet
	// instructions index into.
	localTypes []wasm.ValueType

	// operandStack is the StackFrame spec.md §3 describes: the ordered
	// SSA values standing in for the Wasm operand stack at the current
	// builder position.
	operandStack []ir.Value

	// controlStack is strictly LIFO, per spec.md §3.
	controlStack []controlFrame

	unreachableReason unreachableReason
	unreachableDepth  int

	// opIdx is the byte offset, within the function body, of the operator
	// currently being translated, set once per operator iterated (spec.md
	// §4.3); it keys InstrumentedCallSites.
	opIdx uint32

	// restoreCases accumulates the per-site restore blocks contributed by
	// instrumented migration points, consumed when finalizing the
	// restore-dispatch switch (spec.md §4.6).
	restoreCases []restoreCase

	// restoreDispatchBB is the block emitRestoreDispatchTest allocates for
	// the eventual pc switch; finalizeRestoreDispatch fills it in once every
	// migration point in the function has contributed its restoreCases.
	restoreDispatchBB ssa.BasicBlock
}

// push appends a value to the operand stack.
func (fc *funcContext) push(v ir.Value) {
	fc.operandStack = append(fc.operandStack, v)
}

// pop removes and returns the top of the operand stack. Panics (invariant
// violation, not a CompileError) if the stack is empty: spec.md §7 labels
// this `"stack empty"`.
func (fc *funcContext) pop() ir.Value {
	n := len(fc.operandStack)
	if n == 0 {
		invariantf("stack empty")
	}
	v := fc.operandStack[n-1]
	fc.operandStack = fc.operandStack[:n-1]
	return v
}

// peekN returns the top n values without popping, in bottom-to-top order,
// used by br/br_if/br_table to collect phi incoming values without
// disturbing the stack (spec.md §4.5).
func (fc *funcContext) peekN(n int) []ir.Value {
	l := len(fc.operandStack)
	if n > l {
		invariantf("stack empty")
	}
	out := make([]ir.Value, n)
	copy(out, fc.operandStack[l-n:])
	return out
}

// truncateTo resets the operand stack to depth d, used at `end` before
// pushing the frame's phi results (spec.md §4.5).
func (fc *funcContext) truncateTo(d int) {
	if d > len(fc.operandStack) {
		invariantf("stack empty")
	}
	fc.operandStack = fc.operandStack[:d]
}

// pushControl pushes a new control frame. Strictly LIFO per spec.md §3.
func (fc *funcContext) pushControl(cf controlFrame) {
	fc.controlStack = append(fc.controlStack, cf)
}

// popControl pops the innermost control frame.
func (fc *funcContext) popControl() controlFrame {
	n := len(fc.controlStack)
	if n == 0 {
		invariantf("frame empty")
	}
	cf := fc.controlStack[n-1]
	fc.controlStack = fc.controlStack[:n-1]
	return cf
}

// controlAt returns the k-th control frame counting from the top (0 is
// innermost), used to resolve br/br_if/br_table label depths.
func (fc *funcContext) controlAt(k int) *controlFrame {
	n := len(fc.controlStack)
	idx := n - 1 - k
	if idx < 0 {
		invariantf("frame empty")
	}
	return &fc.controlStack[idx]
}

// markUnreachable sets the dead-code state after Br/Return/Unreachable
// (spec.md §4.3 item 6).
func (fc *funcContext) markUnreachable(reason unreachableReason) {
	fc.unreachableReason = reason
	fc.unreachableDepth++
}

// reachable reports whether the translator is currently in a reachable
// region (unreachableDepth == 0).
func (fc *funcContext) reachable() bool {
	return fc.unreachableDepth == 0
}

// restoreCase is one case of a function's restore-dispatch switch
// (spec.md §4.6): the saved pc that selects it, and the block the switch
// should branch to once locals/stack/frame have been popped back in.
type restoreCase struct {
	pc    uint32
	block ssa.BasicBlock
}
