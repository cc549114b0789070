package compiler

// skipImmediates consumes the immediate operand(s) of op without building
// any IR, for opcodes encountered while translating dead code
// (stepUnreachable). Block-structured opcodes (block/loop/if/else/end) and
// br_table are handled directly by the caller since they also need depth
// bookkeeping; every other opcode's immediate shape is mirrored here.
func skipImmediates(r *opReader, op byte) error {
	switch op {
	case opUnreachable, opNop, opReturn, opDrop, opSelect:
		return nil
	case opBr, opBrIf, opCall, opLocalGet, opLocalSet, opLocalTee,
		opGlobalGet, opGlobalSet, opMemorySize, opMemoryGrow:
		_, err := r.readU32()
		return err
	case opCallIndirect:
		if _, err := r.readU32(); err != nil { // type index
			return err
		}
		_, err := r.readU32() // table index
		return err
	case opI32Const:
		_, err := r.readS32()
		return err
	case opI64Const:
		_, err := r.readS64()
		return err
	case opF32Const:
		_, err := r.readF32()
		return err
	case opF64Const:
		_, err := r.readF64()
		return err
	case opFC:
		sub, err := r.readU32()
		if err != nil {
			return err
		}
		switch sub {
		case opFCMemoryCopy:
			if _, err := r.readByte(); err != nil {
				return err
			}
			_, err := r.readByte()
			return err
		case opFCMemoryFill:
			_, err := r.readByte()
			return err
		default:
			return Unsupportedf("unsupported misc (0xfc) opcode %d in dead code", sub)
		}
	default:
		if isLoadStoreOp(op) {
			_, err := r.readMemarg()
			return err
		}
		// Every other opcode in range (numeric/comparison/conversion ops) has
		// no immediate operand.
		return nil
	}
}
