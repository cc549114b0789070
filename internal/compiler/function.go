package compiler

import (
	"github.com/pkg/errors"

	"github.com/waskr/waskr/internal/ir"
	"github.com/waskr/waskr/internal/ssa"
	"github.com/waskr/waskr/internal/wasm"
)

// functionTranslator drives the per-operator translation of a single Wasm
// function body (spec.md §4.3).
type functionTranslator struct {
	decls *ModuleDecls
	opts  Options
	fc    *funcContext
}

// translateFunction builds the IR body of module-defined function fnIdx
// (index into the module-defined function space, not counting imports).
func translateFunction(decls *ModuleDecls, b ir.Builder, fnIdx wasm.Index) (*funcContext, error) {
	absIdx := decls.Module.ImportedFunctionCount() + fnIdx
	ft := decls.Module.TypeOf(absIdx)
	code := decls.Module.CodeSection[fnIdx]
	sig := &decls.Sigs[decls.Module.FunctionTypeIndex(absIdx)]

	b.Init(sig)
	entry := b.AllocateBasicBlock()

	// The entry block's params are the function's incoming arguments
	// (ExecEnv* first, then the Wasm parameters, per spec.md §4.2's
	// `(ExecEnv*, params…) -> result?` lowering); internal/ssa has no
	// separate "function argument" value kind, so the block-argument
	// mechanism that already stands in for phis does double duty here.
	var entryParams []ir.Value
	for _, pt := range sig.Params {
		entryParams = append(entryParams, entry.AddParam(b, pt))
	}
	b.SetCurrentBlock(entry)

	fc := &funcContext{funcIdx: absIdx, builder: b}

	fc.execEnv = entryParams[0]
	for i, p := range ft.Params {
		fc.localTypes = append(fc.localTypes, p)
		set := b.AllocateInstruction().AsLocalSet(uint32(i), entryParams[i+1])
		b.InsertInstruction(set)
	}
	for _, lt := range code.LocalTypes {
		idx := uint32(len(fc.localTypes))
		fc.localTypes = append(fc.localTypes, lt)
		zero := zeroValue(b, irType(lt))
		set := b.AllocateInstruction().AsLocalSet(idx, zero)
		b.InsertInstruction(set)
	}

	t := &functionTranslator{decls: decls, opts: decls.CR, fc: fc}

	// Function-scope control frame: `end` branches to the return block.
	retBlk := b.ReturnBlock()
	var resultType *ssa.Type
	if r, ok := ft.Result(); ok {
		rt := irType(r)
		resultType = &rt
	}
	fc.pushControl(controlFrame{kind: frameBlock, next: retBlk, resultType: resultType})

	if decls.CR.EnableCR {
		t.emitRestoreDispatchTest(absIdx)
	}
	if decls.CR.EnableCR && decls.instrumented(absIdx) {
		// The prologue migration point sits before any operator has been
		// read (fc.opIdx is only assigned inside the loop below), so fc.opIdx
		// holds a sentinel no operator offset can take rather than the
		// misleading zero value. The pc saved for this site is, as for every
		// site, its dense restore-case index.
		fc.opIdx = ^uint32(0)
		t.emitMigrationPoint(migrationSitePrologue)
	}

	r := newOpReader(code.Body)
	for !r.atEOF() && len(fc.controlStack) > 0 {
		pc := uint32(r.position())
		fc.opIdx = pc
		if err := t.step(r); err != nil {
			return nil, errors.Wrapf(err, "function %d op %d", fnIdx, pc)
		}
	}

	if decls.CR.EnableCR {
		t.finalizeRestoreDispatch(absIdx)
	}

	return fc, nil
}

func (decls *ModuleDecls) instrumented(absFuncIdx wasm.Index) bool {
	defIdx := absFuncIdx - decls.Module.ImportedFunctionCount()
	return decls.Instrumented[defIdx]
}

// step decodes and dispatches exactly one operator.
func (t *functionTranslator) step(r *opReader) error {
	op, err := r.readByte()
	if err != nil {
		return err
	}

	if !t.fc.reachable() {
		return t.stepUnreachable(r, op)
	}

	switch op {
	case opUnreachable:
		i := t.fc.builder.AllocateInstruction().AsUnreachable()
		t.fc.builder.InsertInstruction(i)
		t.fc.markUnreachable(unreachableUnreachable)
	case opNop:
	case opBlock:
		kind, vt, err := r.readBlockType()
		if err != nil {
			return err
		}
		t.beginBlock(kind, vt)
	case opLoop:
		kind, vt, err := r.readBlockType()
		if err != nil {
			return err
		}
		t.beginLoop(kind, vt)
	case opIf:
		kind, vt, err := r.readBlockType()
		if err != nil {
			return err
		}
		t.beginIf(kind, vt)
	case opElse:
		t.handleElse()
	case opEnd:
		t.handleEnd()
	case opBr:
		d, err := r.readU32()
		if err != nil {
			return err
		}
		t.handleBr(d)
	case opBrIf:
		d, err := r.readU32()
		if err != nil {
			return err
		}
		t.handleBrIf(d)
	case opBrTable:
		n, err := r.readU32()
		if err != nil {
			return err
		}
		targets := make([]uint32, n)
		for i := range targets {
			targets[i], err = r.readU32()
			if err != nil {
				return err
			}
		}
		def, err := r.readU32()
		if err != nil {
			return err
		}
		t.handleBrTable(targets, def)
	case opReturn:
		t.handleReturn()
	case opCall:
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		return t.handleCall(idx)
	case opCallIndirect:
		typeIdx, err := r.readU32()
		if err != nil {
			return err
		}
		_, err = r.readU32() // table index, always 0
		if err != nil {
			return err
		}
		return t.handleCallIndirect(typeIdx)
	case opDrop:
		t.fc.pop()
	case opSelect:
		t.handleSelect()
	case opLocalGet, opLocalSet, opLocalTee, opGlobalGet, opGlobalSet:
		return t.stepVariableOp(r, op)
	case opI32Const, opI64Const, opF32Const, opF64Const:
		return t.stepConstOp(r, op)
	case opMemorySize, opMemoryGrow:
		return t.stepMemoryManageOp(op)
	case opFC:
		return t.stepMiscOp(r)
	default:
		if isLoadStoreOp(op) {
			return t.stepMemoryAccessOp(r, op)
		}
		if isNumericOp(op) {
			t.stepNumericOp(op)
			return nil
		}
		return Unsupportedf("unsupported opcode 0x%02x", op)
	}
	return nil
}

// stepUnreachable skips operators while in a dead-code region, tracking
// nested block/loop/if to increment depth and else/end to decrement it,
// re-entering reachable translation on the matching else (depth==1) or end
// (depth==1), per spec.md §4.3 item 6.
func (t *functionTranslator) stepUnreachable(r *opReader, op byte) error {
	switch op {
	case opBlock, opLoop, opIf:
		if _, _, err := r.readBlockType(); err != nil {
			return err
		}
		t.fc.unreachableDepth++
		// Track a placeholder control frame so depth bookkeeping in
		// handleEnd/handleElse stays consistent once reachable code
		// resumes; it carries no real blocks since nothing branches to it
		// while still unreachable.
		t.fc.pushControl(controlFrame{kind: frameBlock})
	case opElse:
		if t.fc.unreachableDepth == 1 {
			t.handleElse()
		}
	case opEnd:
		if t.fc.unreachableDepth == 1 {
			t.handleEnd()
			return nil
		}
		t.fc.popControl()
		t.fc.unreachableDepth--
	case opBrTable:
		n, err := r.readU32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n+1; i++ {
			if _, err := r.readU32(); err != nil {
				return err
			}
		}
	default:
		if err := skipImmediates(r, op); err != nil {
			return err
		}
	}
	return nil
}
