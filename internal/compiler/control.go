package compiler

import (
	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// blockResultType resolves a decoded block type to the IR type its endPhis
// (or, for loop, bodyPhis) should carry.
func blockResultType(kind blockTypeKind, vt wasm.ValueType) *ssa.Type {
	if kind == blockTypeEmpty {
		return nil
	}
	t := irType(vt)
	return &t
}

// beginBlock handles the `block` operator (spec.md §4.5).
func (t *functionTranslator) beginBlock(kind blockTypeKind, vt wasm.ValueType) {
	end := t.fc.builder.AllocateBasicBlock()
	t.fc.pushControl(controlFrame{
		kind:              frameBlock,
		next:              end,
		resultType:        blockResultType(kind, vt),
		stackDepthAtEntry: len(t.fc.operandStack),
	})
}

// beginLoop handles the `loop` operator. A loop's `br 0` target is its own
// body (the back-edge), unlike block/if whose forward target is `end`.
func (t *functionTranslator) beginLoop(kind blockTypeKind, vt wasm.ValueType) {
	body := t.fc.builder.AllocateBasicBlock()
	end := t.fc.builder.AllocateBasicBlock()
	cf := controlFrame{
		kind:              frameLoop,
		body:              body,
		next:              end,
		resultType:        blockResultType(kind, vt),
		stackDepthAtEntry: len(t.fc.operandStack),
	}
	t.fc.pushControl(cf)

	jmp := t.fc.builder.AllocateInstruction().AsJump(body, nil)
	t.fc.builder.InsertInstruction(jmp)
	t.fc.builder.SetCurrentBlock(body)

	if !t.opts.DisableLoopCR && t.decls.CR.EnableCR {
		t.emitMigrationPoint(migrationSiteLoopHeader)
	}
}

// beginIf handles the `if` operator: pops the condition, branches to
// `then` when nonzero, falls through to a synthesized `else` otherwise.
func (t *functionTranslator) beginIf(kind blockTypeKind, vt wasm.ValueType) {
	cond := t.fc.pop()
	then := t.fc.builder.AllocateBasicBlock()
	els := t.fc.builder.AllocateBasicBlock()
	end := t.fc.builder.AllocateBasicBlock()

	brz := t.fc.builder.AllocateInstruction().AsBrz(cond, els, nil)
	t.fc.builder.InsertInstruction(brz)
	t.fc.builder.SetCurrentBlock(then)

	t.fc.pushControl(controlFrame{
		kind:              frameIfElse,
		then:              then,
		els:               els,
		next:              end,
		state:             ifElseStateIf,
		resultType:        blockResultType(kind, vt),
		stackDepthAtEntry: len(t.fc.operandStack),
	})
}

// handleElse handles the `else` operator: if the `then` arm fell through
// reachably, its tail contributes the first incoming edge to `end`'s phis;
// translation continues in the (already-allocated) `else` block.
func (t *functionTranslator) handleElse() {
	cf := t.fc.controlAt(0)
	if cf.kind != frameIfElse || cf.state != ifElseStateIf {
		invariantf("else without matching if")
	}
	if t.fc.reachable() {
		t.branchToPhiTarget(cf.next, &cf.endPhis)
	}
	// else/end decrement unreachable_depth per spec.md §4.3 item 6, when
	// the matching depth (1) is reached.
	if t.fc.unreachableDepth == 1 {
		t.fc.unreachableDepth = 0
		t.fc.unreachableReason = reachable
	}
	cf.state = ifElseStateElse
	t.fc.truncateTo(cf.stackDepthAtEntry)
	t.fc.builder.SetCurrentBlock(cf.els)
}

// handleEnd handles the `end` operator, closing the innermost control
// frame (or, at function scope, the function itself).
func (t *functionTranslator) handleEnd() {
	if len(t.fc.controlStack) == 1 {
		t.endFunction()
		return
	}

	cf := t.fc.popControl()

	switch cf.kind {
	case frameIfElse:
		if t.fc.reachable() {
			t.branchToPhiTarget(cf.next, &cf.endPhis)
		}
		if cf.state == ifElseStateIf {
			// No explicit else: synthesize one that branches straight to
			// `end` (spec.md §4.5).
			t.fc.builder.SetCurrentBlock(cf.els)
			if cf.resultType != nil {
				// An if without else must not produce a value: the then
				// and implicit-else arities must agree; this compiler
				// only supports empty-result if-without-else.
				invariantf("if without else must have an empty block type")
			}
			jmp := t.fc.builder.AllocateInstruction().AsJump(cf.next, nil)
			t.fc.builder.InsertInstruction(jmp)
		}
	case frameBlock:
		if t.fc.reachable() {
			t.branchToPhiTarget(cf.next, &cf.endPhis)
		}
	case frameLoop:
		if t.fc.reachable() {
			t.branchToPhiTarget(cf.next, &cf.endPhis)
		}
	}

	if t.fc.unreachableDepth > 0 {
		t.fc.unreachableDepth--
		if t.fc.unreachableDepth == 0 {
			t.fc.unreachableReason = reachable
		}
	}

	t.fc.truncateTo(cf.stackDepthAtEntry)
	t.finalizeBlockEntry(cf.next, cf.resultType)
}

// endFunction closes the outermost (function-scope) control frame: if the
// last operator already returned/trapped, the block is left unterminated
// by design (dead code); otherwise branch to the return block.
func (t *functionTranslator) endFunction() {
	cf := t.fc.popControl()
	if t.fc.reachable() {
		t.branchToPhiTarget(cf.next, &cf.endPhis)
	}
	t.fc.truncateTo(cf.stackDepthAtEntry)
}

// branchToPhiTarget emits a jump from the current block to target,
// collecting the top `arity(phis)` operand-stack values (0 or 1, since
// multi-result is out of scope) as the jump's arguments, appended to
// *phis for bookkeeping of incoming order (tie-break rule in spec.md §4.5
// applies at block-finalize time, not here).
func (t *functionTranslator) branchToPhiTarget(target ssa.BasicBlock, phis *[]ir.Value) {
	var args []ir.Value
	if len(t.fc.operandStack) > 0 {
		// The block's result arity is 0 or 1; if the target block already
		// has a declared param (set up by finalizeBlockEntry's sibling
		// logic) we pass the top value, else nothing. Since we finalize
		// block params lazily (see finalizeBlockEntry), collect at most
		// one value here and let truncation above keep extra values off
		// the stack at `end`.
		args = []ir.Value{t.fc.operandStack[len(t.fc.operandStack)-1]}
	}
	if len(args) > 0 {
		*phis = append(*phis, args[0])
	}
	jmp := t.fc.builder.AllocateInstruction().AsJump(target, args)
	t.fc.builder.InsertInstruction(jmp)
}

// finalizeBlockEntry moves translation into `next` and, if the block
// produces a result, adds the block param (phi) and pushes it onto the
// operand stack. Per spec.md §4.5's tie-break rule, a phi with zero
// incoming edges (e.g. all paths through the block trapped) is erased and
// replaced with a pushed zero constant instead of an undef value.
func (t *functionTranslator) finalizeBlockEntry(next ssa.BasicBlock, resultType *ssa.Type) {
	t.fc.builder.SetCurrentBlock(next)
	if resultType == nil {
		return
	}
	if next.Preds() == 0 {
		t.fc.push(zeroValue(t.fc.builder, *resultType))
		return
	}
	param := next.AddParam(t.fc.builder, *resultType)
	t.fc.push(param)
}

// handleBr handles `br k`: branch unconditionally to the k-th enclosing
// frame's target, carrying that frame's phi arity worth of values.
func (t *functionTranslator) handleBr(depth uint32) {
	cf := t.fc.controlAt(int(depth))
	target, phis := branchTargetAndPhis(cf)
	t.branchToPhiTarget(target, phis)
	t.fc.markUnreachable(unreachableBr)
}

// handleBrIf handles `br_if k`: peek (don't pop) the phi-arity values,
// attach them as incoming on the taken edge, then branch conditional on
// the popped condition being nonzero.
func (t *functionTranslator) handleBrIf(depth uint32) {
	cond := t.fc.pop()
	cf := t.fc.controlAt(int(depth))
	target, phis := branchTargetAndPhis(cf)

	var args []ir.Value
	if cf.resultType != nil {
		args = t.fc.peekN(1)
		*phis = append(*phis, args[0])
	}
	brnz := t.fc.builder.AllocateInstruction().AsBrnz(cond, target, args)
	t.fc.builder.InsertInstruction(brnz)

	// Fallthrough continues in a fresh block (br_if does not terminate the
	// enclosing block: it falls through when the condition is zero).
	fallthroughBlk := t.fc.builder.AllocateBasicBlock()
	jmp := t.fc.builder.AllocateInstruction().AsJump(fallthroughBlk, nil)
	t.fc.builder.InsertInstruction(jmp)
	t.fc.builder.SetCurrentBlock(fallthroughBlk)
}

// handleBrTable handles `br_table`: for each case (cases then default, in
// source order per spec.md §4.5's tie-break rule), attach the phi-arity
// peeked values as incoming, then emit a single switch on the popped index.
func (t *functionTranslator) handleBrTable(targetDepths []uint32, defaultDepth uint32) {
	idx := t.fc.pop()

	allDepths := append(append([]uint32{}, targetDepths...), defaultDepth)
	targets := make([]ssa.BasicBlock, len(allDepths))
	var args []ir.Value
	for i, d := range allDepths {
		cf := t.fc.controlAt(int(d))
		target, phis := branchTargetAndPhis(cf)
		targets[i] = target
		if cf.resultType != nil {
			if args == nil {
				args = t.fc.peekN(1)
			}
			*phis = append(*phis, args[0])
		}
	}

	sw := t.fc.builder.AllocateInstruction().AsBrTable(idx, targets, args)
	t.fc.builder.InsertInstruction(sw)
	t.fc.markUnreachable(unreachableBr)
}

// branchTargetAndPhis resolves a control frame's forward-branch target and
// the phi-incoming slice that target's arity should append to: `loop`
// branches to its body (bodyPhis), everything else branches to its end
// (endPhis).
func branchTargetAndPhis(cf *controlFrame) (ssa.BasicBlock, *[]ir.Value) {
	if cf.kind == frameLoop {
		return cf.body, &cf.bodyPhis
	}
	return cf.next, &cf.endPhis
}
