package compiler

import "github.com/waskr/waskr/internal/ssa"

// isNumericOp reports whether op is one of the pure value-stack numeric
// operators handled by stepNumericOp (comparisons, arithmetic, bitwise,
// conversions; spec.md §4.4).
func isNumericOp(op byte) bool {
	return op >= opI32Eqz && op <= opI64Extend32S
}

// stepNumericOp dispatches a numeric/bitwise/comparison/conversion
// operator. Every case pops its operands, emits the IR instruction, and
// pushes the (possibly differently-typed) result.
func (t *functionTranslator) stepNumericOp(op byte) {
	b := t.fc.builder
	unary := func(f func(x ssa.Value) *ssa.Instruction) {
		x := t.fc.pop()
		i := f(x)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	binary := func(f func(x, y ssa.Value) *ssa.Instruction) {
		y := t.fc.pop()
		x := t.fc.pop()
		i := f(x, y)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	icmp := func(cond ssa.IntegerCmpCond) {
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsIcmp(cond, x, y) })
	}
	fcmp := func(cond ssa.FloatCmpCond) {
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFcmp(cond, x, y) })
	}
	eqz := func(zero func() *ssa.Instruction, cond ssa.IntegerCmpCond) {
		x := t.fc.pop()
		z := zero()
		b.InsertInstruction(z)
		i := b.AllocateInstruction().AsIcmp(cond, x, z.Return())
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	convert := func(f func(x ssa.Value, to ssa.Type) *ssa.Instruction, to ssa.Type) {
		x := t.fc.pop()
		i := f(x, to)
		b.InsertInstruction(i)
		t.fc.push(i.Return())
	}

	switch op {
	// i32 comparisons (eqz special-cased: compare against a zero constant).
	case opI32Eqz:
		eqz(func() *ssa.Instruction { return b.AllocateInstruction().AsIconst32(0) }, ssa.IntEqual)
	case opI32Eq:
		icmp(ssa.IntEqual)
	case opI32Ne:
		icmp(ssa.IntNotEqual)
	case opI32LtS:
		icmp(ssa.IntSignedLessThan)
	case opI32LtU:
		icmp(ssa.IntUnsignedLessThan)
	case opI32GtS:
		icmp(ssa.IntSignedGreaterThan)
	case opI32GtU:
		icmp(ssa.IntUnsignedGreaterThan)
	case opI32LeS:
		icmp(ssa.IntSignedLessThanOrEqual)
	case opI32LeU:
		icmp(ssa.IntUnsignedLessThanOrEqual)
	case opI32GeS:
		icmp(ssa.IntSignedGreaterThanOrEqual)
	case opI32GeU:
		icmp(ssa.IntUnsignedGreaterThanOrEqual)

	case opI64Eqz:
		eqz(func() *ssa.Instruction { return b.AllocateInstruction().AsIconst64(0) }, ssa.IntEqual)
	case opI64Eq:
		icmp(ssa.IntEqual)
	case opI64Ne:
		icmp(ssa.IntNotEqual)
	case opI64LtS:
		icmp(ssa.IntSignedLessThan)
	case opI64LtU:
		icmp(ssa.IntUnsignedLessThan)
	case opI64GtS:
		icmp(ssa.IntSignedGreaterThan)
	case opI64GtU:
		icmp(ssa.IntUnsignedGreaterThan)
	case opI64LeS:
		icmp(ssa.IntSignedLessThanOrEqual)
	case opI64LeU:
		icmp(ssa.IntUnsignedLessThanOrEqual)
	case opI64GeS:
		icmp(ssa.IntSignedGreaterThanOrEqual)
	case opI64GeU:
		icmp(ssa.IntUnsignedGreaterThanOrEqual)

	case opF32Eq, opF64Eq:
		fcmp(ssa.FloatEqual)
	case opF32Ne, opF64Ne:
		fcmp(ssa.FloatNotEqual)
	case opF32Lt, opF64Lt:
		fcmp(ssa.FloatLessThan)
	case opF32Gt, opF64Gt:
		fcmp(ssa.FloatGreaterThan)
	case opF32Le, opF64Le:
		fcmp(ssa.FloatLessThanOrEqual)
	case opF32Ge, opF64Ge:
		fcmp(ssa.FloatGreaterThanOrEqual)

	case opI32Clz, opI64Clz:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsClz(x) })
	case opI32Ctz, opI64Ctz:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsCtz(x) })
	case opI32Popcnt, opI64Popcnt:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsPopcnt(x) })
	case opI32Add, opI64Add:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsIadd(x, y) })
	case opI32Sub, opI64Sub:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsIsub(x, y) })
	case opI32Mul, opI64Mul:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsImul(x, y) })
	case opI32DivS, opI64DivS:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSdiv(x, y) })
	case opI32DivU, opI64DivU:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsUdiv(x, y) })
	case opI32RemS, opI64RemS:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSrem(x, y) })
	case opI32RemU, opI64RemU:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsUrem(x, y) })
	case opI32And, opI64And:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsBand(x, y) })
	case opI32Or, opI64Or:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsBor(x, y) })
	case opI32Xor, opI64Xor:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsBxor(x, y) })
	case opI32Shl, opI64Shl:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsIshl(x, y) })
	case opI32ShrS, opI64ShrS:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSshr(x, y) })
	case opI32ShrU, opI64ShrU:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsUshr(x, y) })
	case opI32Rotl, opI64Rotl:
		// rotl/rotr are implemented directly by the backend's Rotl/Rotr
		// opcodes (rather than expanded to shifts+or here); the backend
		// encodes the `mask=width-1` wraparound spec.md §4.4 describes.
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsRotl(x, y) })
	case opI32Rotr, opI64Rotr:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsRotr(x, y) })

	case opF32Abs, opF64Abs:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFabs(x) })
	case opF32Neg, opF64Neg:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFneg(x) })
	case opF32Ceil, opF64Ceil:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsCeil(x) })
	case opF32Floor, opF64Floor:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFloor(x) })
	case opF32Trunc, opF64Trunc:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsTrunc(x) })
	case opF32Nearest, opF64Nearest:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsNearest(x) })
	case opF32Sqrt, opF64Sqrt:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSqrt(x) })
	case opF32Add, opF64Add:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFadd(x, y) })
	case opF32Sub, opF64Sub:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFsub(x, y) })
	case opF32Mul, opF64Mul:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFmul(x, y) })
	case opF32Div, opF64Div:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFdiv(x, y) })
	case opF32Min, opF64Min:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFmin(x, y) })
	case opF32Max, opF64Max:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFmax(x, y) })
	case opF32Copysign, opF64Copysign:
		binary(func(x, y ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsCopysign(x, y) })

	case opI32WrapI64:
		convert(b.AllocateInstruction().AsIreduce, ssa.TypeI32)
	case opI64ExtendI32S:
		convert(b.AllocateInstruction().AsSextend, ssa.TypeI64)
	case opI64ExtendI32U:
		convert(b.AllocateInstruction().AsUextend, ssa.TypeI64)
	case opI32TruncF32S, opI32TruncF64S:
		convert(b.AllocateInstruction().AsFcvtToSint, ssa.TypeI32)
	case opI32TruncF32U, opI32TruncF64U:
		convert(b.AllocateInstruction().AsFcvtToUint, ssa.TypeI32)
	case opI64TruncF32S, opI64TruncF64S:
		convert(b.AllocateInstruction().AsFcvtToSint, ssa.TypeI64)
	case opI64TruncF32U, opI64TruncF64U:
		convert(b.AllocateInstruction().AsFcvtToUint, ssa.TypeI64)
	case opF32ConvertI32S, opF32ConvertI64S:
		convert(b.AllocateInstruction().AsFcvtFromSint, ssa.TypeF32)
	case opF32ConvertI32U, opF32ConvertI64U:
		convert(b.AllocateInstruction().AsFcvtFromUint, ssa.TypeF32)
	case opF64ConvertI32S, opF64ConvertI64S:
		convert(b.AllocateInstruction().AsFcvtFromSint, ssa.TypeF64)
	case opF64ConvertI32U, opF64ConvertI64U:
		convert(b.AllocateInstruction().AsFcvtFromUint, ssa.TypeF64)
	case opF32DemoteF64:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFdemote(x) })
	case opF64PromoteF32:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsFpromote(x) })
	case opI32ReinterpretF32:
		convert(b.AllocateInstruction().AsBitcast, ssa.TypeI32)
	case opI64ReinterpretF64:
		convert(b.AllocateInstruction().AsBitcast, ssa.TypeI64)
	case opF32ReinterpretI32:
		convert(b.AllocateInstruction().AsBitcast, ssa.TypeF32)
	case opF64ReinterpretI64:
		convert(b.AllocateInstruction().AsBitcast, ssa.TypeF64)

	case opI32Extend8S:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSextendBits(x, 8) })
	case opI32Extend16S:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSextendBits(x, 16) })
	case opI64Extend8S:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSextendBits(x, 8) })
	case opI64Extend16S:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSextendBits(x, 16) })
	case opI64Extend32S:
		unary(func(x ssa.Value) *ssa.Instruction { return b.AllocateInstruction().AsSextendBits(x, 32) })

	default:
		invariantf("unhandled numeric opcode 0x%02x", op)
	}
}
