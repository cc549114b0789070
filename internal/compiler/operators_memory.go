package compiler

import "github.com/waskr/waskr/internal/ssa"

// isLoadStoreOp reports whether op is one of the linear-memory load/store
// operators (spec.md §4.4): effective_addr = zext(addr) + memarg.offset,
// read through ExecEnv.memory_base. No bounds checking is emitted; an
// out-of-range access is the host C/R runtime's concern, not this compiler's.
func isLoadStoreOp(op byte) bool {
	return op >= opI32Load && op <= opI64Store32
}

func (t *functionTranslator) stepMemoryAccessOp(r *opReader, op byte) error {
	ma, err := r.readMemarg()
	if err != nil {
		return err
	}
	b := t.fc.builder
	base := t.memoryBase()

	load := func(typ ssa.Type) {
		addr := t.effectiveAddr(base, ma.offset)
		i := b.AllocateInstruction().AsLoad(addr, 0, typ, false)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	loadNarrow := func(typ ssa.Type, widthBits uint32, signed bool) {
		addr := t.effectiveAddr(base, ma.offset)
		i := b.AllocateInstruction().AsLoadNarrow(addr, 0, typ, widthBits, signed)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	store := func() {
		v := t.fc.pop()
		addr := t.effectiveAddr(base, ma.offset)
		i := b.AllocateInstruction().AsStore(addr, v, 0)
		b.InsertInstruction(i)
	}
	storeNarrow := func(widthBits uint32) {
		v := t.fc.pop()
		addr := t.effectiveAddr(base, ma.offset)
		i := b.AllocateInstruction().AsStoreNarrow(addr, v, 0, widthBits)
		b.InsertInstruction(i)
	}

	switch op {
	case opI32Load:
		load(ssa.TypeI32)
	case opI64Load:
		load(ssa.TypeI64)
	case opF32Load:
		load(ssa.TypeF32)
	case opF64Load:
		load(ssa.TypeF64)
	case opI32Load8S:
		loadNarrow(ssa.TypeI32, 8, true)
	case opI32Load8U:
		loadNarrow(ssa.TypeI32, 8, false)
	case opI32Load16S:
		loadNarrow(ssa.TypeI32, 16, true)
	case opI32Load16U:
		loadNarrow(ssa.TypeI32, 16, false)
	case opI64Load8S:
		loadNarrow(ssa.TypeI64, 8, true)
	case opI64Load8U:
		loadNarrow(ssa.TypeI64, 8, false)
	case opI64Load16S:
		loadNarrow(ssa.TypeI64, 16, true)
	case opI64Load16U:
		loadNarrow(ssa.TypeI64, 16, false)
	case opI64Load32S:
		loadNarrow(ssa.TypeI64, 32, true)
	case opI64Load32U:
		loadNarrow(ssa.TypeI64, 32, false)
	case opI32Store, opI64Store, opF32Store, opF64Store:
		store()
	case opI32Store8, opI64Store8:
		storeNarrow(8)
	case opI32Store16, opI64Store16:
		storeNarrow(16)
	case opI64Store32:
		storeNarrow(32)
	default:
		invariantf("unhandled load/store opcode 0x%02x", op)
	}
	return nil
}

// memoryBase loads the current linear memory base pointer out of ExecEnv.
// This is a plain (non-volatile) load: unlike migration_state, the base
// pointer is only ever mutated by memory.grow, which this compiler already
// serializes through a runtime call and never reorders past.
func (t *functionTranslator) memoryBase() ssa.Value {
	b := t.fc.builder
	i := b.AllocateInstruction().AsLoad(t.fc.execEnv, execEnvOffset(execEnvMemoryBase), ssa.TypePtr, false)
	b.InsertInstruction(i)
	return i.Return()
}

// effectiveAddr computes base + zext(addr) + memargOffset, leaving the
// dynamic Wasm-level offset (from the operand stack) and the memarg's static
// offset as two separate adds so a peephole pass can fold the constant one.
func (t *functionTranslator) effectiveAddr(base ssa.Value, memargOffset uint32) ssa.Value {
	b := t.fc.builder
	dyn := t.fc.pop()
	ext := b.AllocateInstruction().AsUextend(dyn, ssa.TypePtr)
	b.InsertInstruction(ext)
	sum := b.AllocateInstruction().AsIadd(base, ext.Return())
	b.InsertInstruction(sum)
	if memargOffset == 0 {
		return sum.Return()
	}
	off := b.AllocateInstruction().AsIconst64(uint64(memargOffset))
	b.InsertInstruction(off)
	total := b.AllocateInstruction().AsIadd(sum.Return(), off.Return())
	b.InsertInstruction(total)
	return total.Return()
}

// stepMemoryManageOp handles memory.size/memory.grow. memory.size reads the
// page count ExecEnv.memory_size tracks; memory.grow forwards to the host
// runtime's memory_grow, which is the only thing allowed to move
// ExecEnv.memory_base (spec.md §4.4, §6).
func (t *functionTranslator) stepMemoryManageOp(op byte) error {
	b := t.fc.builder
	switch op {
	case opMemorySize:
		i := b.AllocateInstruction().AsLoad(t.fc.execEnv, execEnvOffset(execEnvMemorySize), ssa.TypeI32, false)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	case opMemoryGrow:
		delta := t.fc.pop()
		sig := t.decls.Runtime.MemoryGrow
		call := b.AllocateInstruction().AsCallExtern("memory_grow", &sig, []ssa.Value{t.fc.execEnv, delta})
		b.InsertInstruction(call)
		t.fc.push(call.Return())
	default:
		invariantf("unhandled memory-manage opcode 0x%02x", op)
	}
	return nil
}

// stepMiscOp handles the 0xfc-prefixed bulk-memory operators this compiler
// supports: memory.copy and memory.fill (spec.md §4.4's "Non-goals" excludes
// everything else behind the 0xfc prefix, e.g. table.init/table.copy).
func (t *functionTranslator) stepMiscOp(r *opReader) error {
	sub, err := r.readU32()
	if err != nil {
		return err
	}
	b := t.fc.builder
	switch sub {
	case opFCMemoryCopy:
		if _, err := r.readByte(); err != nil { // dst memory index, always 0
			return err
		}
		if _, err := r.readByte(); err != nil { // src memory index, always 0
			return err
		}
		n := t.fc.pop()
		src := t.fc.pop()
		dst := t.fc.pop()
		base := t.memoryBase()
		dstAddr := t.addOffset(base, dst)
		srcAddr := t.addOffset(base, src)
		i := b.AllocateInstruction().AsMemoryCopy(dstAddr, srcAddr, n)
		b.InsertInstruction(i)
	case opFCMemoryFill:
		if _, err := r.readByte(); err != nil { // memory index, always 0
			return err
		}
		n := t.fc.pop()
		val := t.fc.pop()
		dst := t.fc.pop()
		base := t.memoryBase()
		dstAddr := t.addOffset(base, dst)
		i := b.AllocateInstruction().AsMemoryFill(dstAddr, val, n)
		b.InsertInstruction(i)
	default:
		return Unsupportedf("unsupported misc (0xfc) opcode %d", sub)
	}
	return nil
}

// addOffset computes base + zext(off), the same address arithmetic
// effectiveAddr uses minus the memarg's static offset term.
func (t *functionTranslator) addOffset(base, off ssa.Value) ssa.Value {
	b := t.fc.builder
	ext := b.AllocateInstruction().AsUextend(off, ssa.TypePtr)
	b.InsertInstruction(ext)
	sum := b.AllocateInstruction().AsIadd(base, ext.Return())
	b.InsertInstruction(sum)
	return sum.Return()
}
