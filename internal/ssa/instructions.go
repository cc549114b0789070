package ssa

import (
	"fmt"
	"strings"
)

// Opcode identifies the operation an Instruction performs.
type Opcode uint32

const (
	OpcodeInvalid Opcode = iota

	// Constants.
	OpcodeIconst32
	OpcodeIconst64
	OpcodeF32const
	OpcodeF64const

	// Integer arithmetic.
	OpcodeIadd
	OpcodeIsub
	OpcodeImul
	OpcodeUdiv
	OpcodeSdiv
	OpcodeUrem
	OpcodeSrem
	OpcodeBand
	OpcodeBor
	OpcodeBxor
	OpcodeIshl
	OpcodeUshr
	OpcodeSshr
	OpcodeRotl
	OpcodeRotr
	OpcodeClz
	OpcodeCtz
	OpcodePopcnt

	// Float arithmetic.
	OpcodeFadd
	OpcodeFsub
	OpcodeFmul
	OpcodeFdiv
	OpcodeFmin
	OpcodeFmax
	OpcodeFabs
	OpcodeFneg
	OpcodeSqrt
	OpcodeCeil
	OpcodeFloor
	OpcodeTrunc
	OpcodeNearest
	OpcodeCopysign

	// Comparisons.
	OpcodeIcmp
	OpcodeFcmp

	// Conversions.
	OpcodeUextend      // zero extend narrower int to wider int
	OpcodeSextend      // sign extend narrower int to wider int
	OpcodeIreduce      // truncate wider int to narrower int (wrap)
	OpcodeSextendBits  // sign extend from an arbitrary bit width held in the same-width value (i32.extend8_s etc.)
	OpcodeFcvtToSint   // float -> signed int, trapping
	OpcodeFcvtToUint   // float -> unsigned int, trapping
	OpcodeFcvtFromSint // signed int -> float
	OpcodeFcvtFromUint // unsigned int -> float
	OpcodeFdemote      // f64 -> f32
	OpcodeFpromote     // f32 -> f64
	OpcodeBitcast      // reinterpret same-width bits

	// Memory.
	OpcodeLoad
	OpcodeStore
	OpcodeMemorySize
	OpcodeMemoryGrow
	OpcodeMemoryCopy
	OpcodeMemoryFill

	// Module-local storage (locals, globals, table slots). These are
	// symbolic: the backend this IR would be handed to is responsible for
	// the concrete frame/static-data layout (spec.md §1, out of scope here).
	OpcodeLocalGet
	OpcodeLocalSet
	OpcodeGlobalGet
	OpcodeGlobalSet
	OpcodeTableGet
	OpcodeTableSet

	// Control flow.
	OpcodeJump
	OpcodeBrz
	OpcodeBrnz
	OpcodeBrTable
	OpcodeReturn
	OpcodeCall
	OpcodeCallIndirect
	OpcodeSelect
	OpcodeUnreachable
	OpcodeExitWithCode

	// Backend intrinsics.
	OpcodeStackmap
)

// IntegerCmpCond is the condition code for OpcodeIcmp.
type IntegerCmpCond byte

const (
	IntEqual IntegerCmpCond = iota
	IntNotEqual
	IntSignedLessThan
	IntSignedGreaterThanOrEqual
	IntSignedGreaterThan
	IntSignedLessThanOrEqual
	IntUnsignedLessThan
	IntUnsignedGreaterThanOrEqual
	IntUnsignedGreaterThan
	IntUnsignedLessThanOrEqual
)

// FloatCmpCond is the condition code for OpcodeFcmp.
type FloatCmpCond byte

const (
	FloatEqual FloatCmpCond = iota
	FloatNotEqual
	FloatLessThan
	FloatGreaterThanOrEqual
	FloatGreaterThan
	FloatLessThanOrEqual
)

// Instruction is a single SSA instruction. Exactly one of the value-bearing
// fields is meaningful, depending on Opcode; see the As* constructors.
type Instruction struct {
	opcode Opcode

	v1, v2, v3 Value
	vs         []Value

	u64 uint64
	u32 uint32

	typ Type

	icmpCond IntegerCmpCond
	fcmpCond FloatCmpCond

	blk  *basicBlock
	targets []*basicBlock

	sig *Signature

	// symbol is the external (extern-linked) function name for a direct
	// call that targets a runtime-declared symbol rather than a module
	// function index held in `u32`.
	symbol string
	// volatile marks a Load as not eligible for hoisting/sinking by an
	// optimizer. Every migration-state read must set this (spec.md §4.6).
	volatile bool

	// memWidth is the in-memory width in bits of a narrow Load/Store (8, 16,
	// or 32); zero means the natural width of typ. signed selects sign- vs
	// zero-extension for a narrow Load.
	memWidth uint32
	signed   bool

	rValue Value
	next, prev *Instruction
}

// Opcode returns the opcode of this instruction.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Return returns the Value produced by this instruction (invalid if the
// instruction produces no value).
func (i *Instruction) Return() Value { return i.rValue }

// Arg1 returns the first value-typed operand.
func (i *Instruction) Arg1() Value { return i.v1 }

// Arg2 returns the second value-typed operand.
func (i *Instruction) Arg2() Value { return i.v2 }

// Arg3 returns the third value-typed operand.
func (i *Instruction) Arg3() Value { return i.v3 }

// Args returns the variadic operand list (call arguments, branch arguments).
func (i *Instruction) Args() []Value { return i.vs }

// Offset returns the memarg-style byte offset for Load/Store.
func (i *Instruction) Offset() uint32 { return i.u32 }

// IsVolatile reports whether a Load must not be hoisted or sunk by an
// optimizer (set for every migration-state read; spec.md §4.6, §9).
func (i *Instruction) IsVolatile() bool { return i.volatile }

// MemWidth returns the in-memory width in bits of a narrow Load/Store, or 0
// for the natural width of the instruction's type.
func (i *Instruction) MemWidth() uint32 { return i.memWidth }

// Signed reports whether a narrow Load sign-extends (true) or zero-extends
// (false) its result.
func (i *Instruction) Signed() bool { return i.signed }

// IcmpCond returns the condition code of an Icmp instruction.
func (i *Instruction) IcmpCond() IntegerCmpCond { return i.icmpCond }

// FcmpCond returns the condition code of an Fcmp instruction.
func (i *Instruction) FcmpCond() FloatCmpCond { return i.fcmpCond }

// ConstValue returns the raw bit pattern of a const instruction.
func (i *Instruction) ConstValue() uint64 { return i.u64 }

// Symbol returns the extern-linked function name of a Call to a
// runtime-declared symbol (empty for calls to a module-local function).
func (i *Instruction) Symbol() string { return i.symbol }

// CalleeIndex returns the module-local function (or local/global/table)
// index operand stashed in u32, for opcodes that address by index rather
// than by Value (OpcodeCall, OpcodeLocalGet/Set, OpcodeGlobalGet/Set,
// OpcodeTableGet).
func (i *Instruction) CalleeIndex() uint32 { return i.u32 }

// Signature returns the call signature for Call/CallIndirect.
func (i *Instruction) Signature() *Signature { return i.sig }

// BrTargets returns the jump targets: a single-element slice for
// Jump/Brz/Brnz, and N+1 (cases plus default, default last) for BrTable.
func (i *Instruction) BrTargets() []BasicBlock {
	if i.blk != nil {
		return []BasicBlock{i.blk}
	}
	out := make([]BasicBlock, len(i.targets))
	for idx, t := range i.targets {
		out[idx] = t
	}
	return out
}

func (i *Instruction) reset() {
	*i = Instruction{}
}

// --- constructors ---

func (i *Instruction) AsIconst32(v uint32) *Instruction {
	i.opcode = OpcodeIconst32
	i.u64 = uint64(v)
	i.typ = TypeI32
	return i
}

func (i *Instruction) AsIconst64(v uint64) *Instruction {
	i.opcode = OpcodeIconst64
	i.u64 = v
	i.typ = TypeI64
	return i
}

func (i *Instruction) AsF32const(v float32) *Instruction {
	i.opcode = OpcodeF32const
	i.u64 = uint64(f32bits(v))
	i.typ = TypeF32
	return i
}

func (i *Instruction) AsF64const(v float64) *Instruction {
	i.opcode = OpcodeF64const
	i.u64 = f64bits(v)
	i.typ = TypeF64
	return i
}

func (i *Instruction) asBinary(op Opcode, x, y Value) *Instruction {
	i.opcode = op
	i.v1, i.v2 = x, y
	i.typ = x.Type()
	return i
}

func (i *Instruction) AsIadd(x, y Value) *Instruction { return i.asBinary(OpcodeIadd, x, y) }
func (i *Instruction) AsIsub(x, y Value) *Instruction { return i.asBinary(OpcodeIsub, x, y) }
func (i *Instruction) AsImul(x, y Value) *Instruction { return i.asBinary(OpcodeImul, x, y) }
func (i *Instruction) AsUdiv(x, y Value) *Instruction { return i.asBinary(OpcodeUdiv, x, y) }
func (i *Instruction) AsSdiv(x, y Value) *Instruction { return i.asBinary(OpcodeSdiv, x, y) }
func (i *Instruction) AsUrem(x, y Value) *Instruction { return i.asBinary(OpcodeUrem, x, y) }
func (i *Instruction) AsSrem(x, y Value) *Instruction { return i.asBinary(OpcodeSrem, x, y) }
func (i *Instruction) AsBand(x, y Value) *Instruction { return i.asBinary(OpcodeBand, x, y) }
func (i *Instruction) AsBor(x, y Value) *Instruction  { return i.asBinary(OpcodeBor, x, y) }
func (i *Instruction) AsBxor(x, y Value) *Instruction { return i.asBinary(OpcodeBxor, x, y) }
func (i *Instruction) AsIshl(x, y Value) *Instruction { return i.asBinary(OpcodeIshl, x, y) }
func (i *Instruction) AsUshr(x, y Value) *Instruction { return i.asBinary(OpcodeUshr, x, y) }
func (i *Instruction) AsSshr(x, y Value) *Instruction { return i.asBinary(OpcodeSshr, x, y) }
func (i *Instruction) AsRotl(x, y Value) *Instruction { return i.asBinary(OpcodeRotl, x, y) }
func (i *Instruction) AsRotr(x, y Value) *Instruction { return i.asBinary(OpcodeRotr, x, y) }

func (i *Instruction) asUnary(op Opcode, x Value) *Instruction {
	i.opcode = op
	i.v1 = x
	i.typ = x.Type()
	return i
}

func (i *Instruction) AsClz(x Value) *Instruction    { return i.asUnary(OpcodeClz, x) }
func (i *Instruction) AsCtz(x Value) *Instruction    { return i.asUnary(OpcodeCtz, x) }
func (i *Instruction) AsPopcnt(x Value) *Instruction { return i.asUnary(OpcodePopcnt, x) }

func (i *Instruction) AsFadd(x, y Value) *Instruction { return i.asBinary(OpcodeFadd, x, y) }
func (i *Instruction) AsFsub(x, y Value) *Instruction { return i.asBinary(OpcodeFsub, x, y) }
func (i *Instruction) AsFmul(x, y Value) *Instruction { return i.asBinary(OpcodeFmul, x, y) }
func (i *Instruction) AsFdiv(x, y Value) *Instruction { return i.asBinary(OpcodeFdiv, x, y) }
func (i *Instruction) AsFmin(x, y Value) *Instruction { return i.asBinary(OpcodeFmin, x, y) }
func (i *Instruction) AsFmax(x, y Value) *Instruction { return i.asBinary(OpcodeFmax, x, y) }
func (i *Instruction) AsCopysign(x, y Value) *Instruction {
	return i.asBinary(OpcodeCopysign, x, y)
}

func (i *Instruction) AsFabs(x Value) *Instruction    { return i.asUnary(OpcodeFabs, x) }
func (i *Instruction) AsFneg(x Value) *Instruction    { return i.asUnary(OpcodeFneg, x) }
func (i *Instruction) AsSqrt(x Value) *Instruction    { return i.asUnary(OpcodeSqrt, x) }
func (i *Instruction) AsCeil(x Value) *Instruction    { return i.asUnary(OpcodeCeil, x) }
func (i *Instruction) AsFloor(x Value) *Instruction   { return i.asUnary(OpcodeFloor, x) }
func (i *Instruction) AsTrunc(x Value) *Instruction   { return i.asUnary(OpcodeTrunc, x) }
func (i *Instruction) AsNearest(x Value) *Instruction { return i.asUnary(OpcodeNearest, x) }

func (i *Instruction) AsIcmp(cond IntegerCmpCond, x, y Value) *Instruction {
	i.opcode = OpcodeIcmp
	i.v1, i.v2 = x, y
	i.icmpCond = cond
	i.typ = TypeI32
	return i
}

func (i *Instruction) AsFcmp(cond FloatCmpCond, x, y Value) *Instruction {
	i.opcode = OpcodeFcmp
	i.v1, i.v2 = x, y
	i.fcmpCond = cond
	i.typ = TypeI32
	return i
}

func (i *Instruction) AsUextend(x Value, to Type) *Instruction {
	i.opcode = OpcodeUextend
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsSextend(x Value, to Type) *Instruction {
	i.opcode = OpcodeSextend
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsIreduce(x Value, to Type) *Instruction {
	i.opcode = OpcodeIreduce
	i.v1 = x
	i.typ = to
	return i
}

// AsSextendBits sign-extends the low `fromBits` bits of x (already stored in
// a TypeI32/TypeI64 value) to the full width of x's type: used for Wasm's
// i32.extend8_s / i32.extend16_s / i64.extend8_s / i64.extend16_s / i64.extend32_s.
func (i *Instruction) AsSextendBits(x Value, fromBits uint32) *Instruction {
	i.opcode = OpcodeSextendBits
	i.v1 = x
	i.u32 = fromBits
	i.typ = x.Type()
	return i
}

func (i *Instruction) AsFcvtToSint(x Value, to Type) *Instruction {
	i.opcode = OpcodeFcvtToSint
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsFcvtToUint(x Value, to Type) *Instruction {
	i.opcode = OpcodeFcvtToUint
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsFcvtFromSint(x Value, to Type) *Instruction {
	i.opcode = OpcodeFcvtFromSint
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsFcvtFromUint(x Value, to Type) *Instruction {
	i.opcode = OpcodeFcvtFromUint
	i.v1 = x
	i.typ = to
	return i
}

func (i *Instruction) AsFdemote(x Value) *Instruction {
	i.opcode = OpcodeFdemote
	i.v1 = x
	i.typ = TypeF32
	return i
}

func (i *Instruction) AsFpromote(x Value) *Instruction {
	i.opcode = OpcodeFpromote
	i.v1 = x
	i.typ = TypeF64
	return i
}

func (i *Instruction) AsBitcast(x Value, to Type) *Instruction {
	i.opcode = OpcodeBitcast
	i.v1 = x
	i.typ = to
	return i
}

// AsLoad loads a `typ`-typed value from `base+offset`. volatile must be set
// for every migration-state read (spec.md §4.6, §9).
func (i *Instruction) AsLoad(base Value, offset uint32, typ Type, volatile bool) *Instruction {
	i.opcode = OpcodeLoad
	i.v1 = base
	i.u32 = offset
	i.typ = typ
	i.volatile = volatile
	return i
}

func (i *Instruction) AsStore(base, v Value, offset uint32) *Instruction {
	i.opcode = OpcodeStore
	i.v1, i.v2 = base, v
	i.u32 = offset
	return i
}

// AsLoadNarrow loads widthBits from base+offset and extends the result to
// typ (sign-extending if signed, else zero-extending): the Wasm narrow load
// family (i32.load8_s, i64.load32_u, ...). widthBits must be smaller than
// typ's natural width.
func (i *Instruction) AsLoadNarrow(base Value, offset uint32, typ Type, widthBits uint32, signed bool) *Instruction {
	i.opcode = OpcodeLoad
	i.v1 = base
	i.u32 = offset
	i.typ = typ
	i.memWidth = widthBits
	i.signed = signed
	return i
}

// AsStoreNarrow truncates v to widthBits before storing it to base+offset:
// the Wasm narrow store family (i32.store8, i64.store16, ...).
func (i *Instruction) AsStoreNarrow(base, v Value, offset uint32, widthBits uint32) *Instruction {
	i.opcode = OpcodeStore
	i.v1, i.v2 = base, v
	i.u32 = offset
	i.memWidth = widthBits
	return i
}

func (i *Instruction) AsMemorySize() *Instruction {
	i.opcode = OpcodeMemorySize
	i.typ = TypeI32
	return i
}

func (i *Instruction) AsMemoryGrow(deltaPages Value) *Instruction {
	i.opcode = OpcodeMemoryGrow
	i.v1 = deltaPages
	i.typ = TypeI32
	return i
}

func (i *Instruction) AsMemoryCopy(dst, src, n Value) *Instruction {
	i.opcode = OpcodeMemoryCopy
	i.v1, i.v2, i.v3 = dst, src, n
	return i
}

func (i *Instruction) AsMemoryFill(dst, val, n Value) *Instruction {
	i.opcode = OpcodeMemoryFill
	i.v1, i.v2, i.v3 = dst, val, n
	return i
}

func (i *Instruction) AsLocalGet(index uint32, typ Type) *Instruction {
	i.opcode = OpcodeLocalGet
	i.u32 = index
	i.typ = typ
	return i
}

func (i *Instruction) AsLocalSet(index uint32, v Value) *Instruction {
	i.opcode = OpcodeLocalSet
	i.u32 = index
	i.v1 = v
	return i
}

func (i *Instruction) AsGlobalGet(index uint32, typ Type) *Instruction {
	i.opcode = OpcodeGlobalGet
	i.u32 = index
	i.typ = typ
	return i
}

func (i *Instruction) AsGlobalSet(index uint32, v Value) *Instruction {
	i.opcode = OpcodeGlobalSet
	i.u32 = index
	i.v1 = v
	return i
}

func (i *Instruction) AsTableGet(tableIndex uint32, elemIndex Value) *Instruction {
	i.opcode = OpcodeTableGet
	i.u32 = tableIndex
	i.v1 = elemIndex
	i.typ = TypeI32
	return i
}

// AsTableSet writes a function index into table tableIndex at elemIndex,
// used only by the entry synthesizer's table-restore path (snapshot entries
// are raw function indices, the same representation TableGet reads back).
func (i *Instruction) AsTableSet(tableIndex uint32, elemIndex, v Value) *Instruction {
	i.opcode = OpcodeTableSet
	i.u32 = tableIndex
	i.v1 = elemIndex
	i.v2 = v
	return i
}

func (i *Instruction) AsJump(target BasicBlock, args []Value) *Instruction {
	i.opcode = OpcodeJump
	i.blk = target.(*basicBlock)
	i.vs = args
	return i
}

func (i *Instruction) AsBrz(c Value, target BasicBlock, args []Value) *Instruction {
	i.opcode = OpcodeBrz
	i.v1 = c
	i.blk = target.(*basicBlock)
	i.vs = args
	return i
}

func (i *Instruction) AsBrnz(c Value, target BasicBlock, args []Value) *Instruction {
	i.opcode = OpcodeBrnz
	i.v1 = c
	i.blk = target.(*basicBlock)
	i.vs = args
	return i
}

// AsBrTable branches to targets[index] clamped to the last element
// (targets[len-1] must be the default, per spec.md §4.5). args is shared
// across all targets, matching Wasm's br_table arity rule.
func (i *Instruction) AsBrTable(index Value, targets []BasicBlock, args []Value) *Instruction {
	i.opcode = OpcodeBrTable
	i.v1 = index
	i.targets = make([]*basicBlock, len(targets))
	for idx, t := range targets {
		i.targets[idx] = t.(*basicBlock)
	}
	i.vs = args
	return i
}

func (i *Instruction) AsReturn(vs []Value) *Instruction {
	i.opcode = OpcodeReturn
	i.vs = vs
	return i
}

// AsCall calls a module-local function by index with the given signature.
func (i *Instruction) AsCall(funcIndex uint32, sig *Signature, args []Value) *Instruction {
	i.opcode = OpcodeCall
	i.u32 = funcIndex
	i.sig = sig
	i.vs = args
	return i
}

// AsCallExtern calls a named external (runtime-declared) symbol.
func (i *Instruction) AsCallExtern(symbol string, sig *Signature, args []Value) *Instruction {
	i.opcode = OpcodeCall
	i.symbol = symbol
	i.sig = sig
	i.vs = args
	return i
}

func (i *Instruction) AsCallIndirect(callee Value, sig *Signature, args []Value) *Instruction {
	i.opcode = OpcodeCallIndirect
	i.v1 = callee
	i.sig = sig
	i.vs = args
	return i
}

func (i *Instruction) AsSelect(c, x, y Value) *Instruction {
	i.opcode = OpcodeSelect
	i.v1, i.v2, i.v3 = c, x, y
	i.typ = x.Type()
	return i
}

func (i *Instruction) AsUnreachable() *Instruction {
	i.opcode = OpcodeUnreachable
	return i
}

func (i *Instruction) AsExitWithCode(code uint32) *Instruction {
	i.opcode = OpcodeExitWithCode
	i.u32 = code
	return i
}

func (i *Instruction) AsStackmap() *Instruction {
	i.opcode = OpcodeStackmap
	return i
}

// resultType returns the type of the value this instruction produces, or
// typeInvalid if it produces none.
func (i *Instruction) resultType() Type {
	switch i.opcode {
	case OpcodeJump, OpcodeBrz, OpcodeBrnz, OpcodeBrTable, OpcodeReturn,
		OpcodeStore, OpcodeLocalSet, OpcodeGlobalSet, OpcodeTableSet, OpcodeUnreachable,
		OpcodeExitWithCode, OpcodeStackmap, OpcodeMemoryCopy, OpcodeMemoryFill:
		return typeInvalid
	case OpcodeCall, OpcodeCallIndirect:
		if i.sig != nil && len(i.sig.Results) > 0 {
			return i.sig.Results[0]
		}
		return typeInvalid
	default:
		return i.typ
	}
}

// String implements fmt.Stringer for debugging purposes.
func (i *Instruction) String() string {
	var b strings.Builder
	if i.rValue.Valid() {
		fmt.Fprintf(&b, "%s = ", i.rValue)
	}
	fmt.Fprintf(&b, "%s", opcodeName(i.opcode))
	return b.String()
}

func opcodeName(op Opcode) string {
	switch op {
	case OpcodeIconst32:
		return "iconst32"
	case OpcodeIconst64:
		return "iconst64"
	case OpcodeF32const:
		return "f32const"
	case OpcodeF64const:
		return "f64const"
	case OpcodeIadd:
		return "iadd"
	case OpcodeIsub:
		return "isub"
	case OpcodeImul:
		return "imul"
	case OpcodeUdiv:
		return "udiv"
	case OpcodeSdiv:
		return "sdiv"
	case OpcodeUrem:
		return "urem"
	case OpcodeSrem:
		return "srem"
	case OpcodeBand:
		return "band"
	case OpcodeBor:
		return "bor"
	case OpcodeBxor:
		return "bxor"
	case OpcodeIshl:
		return "ishl"
	case OpcodeUshr:
		return "ushr"
	case OpcodeSshr:
		return "sshr"
	case OpcodeRotl:
		return "rotl"
	case OpcodeRotr:
		return "rotr"
	case OpcodeClz:
		return "clz"
	case OpcodeCtz:
		return "ctz"
	case OpcodePopcnt:
		return "popcnt"
	case OpcodeFadd:
		return "fadd"
	case OpcodeFsub:
		return "fsub"
	case OpcodeFmul:
		return "fmul"
	case OpcodeFdiv:
		return "fdiv"
	case OpcodeFmin:
		return "fmin"
	case OpcodeFmax:
		return "fmax"
	case OpcodeFabs:
		return "fabs"
	case OpcodeFneg:
		return "fneg"
	case OpcodeSqrt:
		return "sqrt"
	case OpcodeCeil:
		return "ceil"
	case OpcodeFloor:
		return "floor"
	case OpcodeTrunc:
		return "trunc"
	case OpcodeNearest:
		return "nearest"
	case OpcodeCopysign:
		return "copysign"
	case OpcodeIcmp:
		return "icmp"
	case OpcodeFcmp:
		return "fcmp"
	case OpcodeUextend:
		return "uextend"
	case OpcodeSextend:
		return "sextend"
	case OpcodeIreduce:
		return "ireduce"
	case OpcodeSextendBits:
		return "sextend_bits"
	case OpcodeFcvtToSint:
		return "fcvt_to_sint"
	case OpcodeFcvtToUint:
		return "fcvt_to_uint"
	case OpcodeFcvtFromSint:
		return "fcvt_from_sint"
	case OpcodeFcvtFromUint:
		return "fcvt_from_uint"
	case OpcodeFdemote:
		return "fdemote"
	case OpcodeFpromote:
		return "fpromote"
	case OpcodeBitcast:
		return "bitcast"
	case OpcodeLoad:
		return "load"
	case OpcodeStore:
		return "store"
	case OpcodeMemorySize:
		return "memory_size"
	case OpcodeMemoryGrow:
		return "memory_grow"
	case OpcodeMemoryCopy:
		return "memory_copy"
	case OpcodeMemoryFill:
		return "memory_fill"
	case OpcodeLocalGet:
		return "local_get"
	case OpcodeLocalSet:
		return "local_set"
	case OpcodeGlobalGet:
		return "global_get"
	case OpcodeGlobalSet:
		return "global_set"
	case OpcodeTableGet:
		return "table_get"
	case OpcodeTableSet:
		return "table_set"
	case OpcodeJump:
		return "jump"
	case OpcodeBrz:
		return "brz"
	case OpcodeBrnz:
		return "brnz"
	case OpcodeBrTable:
		return "br_table"
	case OpcodeReturn:
		return "return"
	case OpcodeCall:
		return "call"
	case OpcodeCallIndirect:
		return "call_indirect"
	case OpcodeSelect:
		return "select"
	case OpcodeUnreachable:
		return "unreachable"
	case OpcodeExitWithCode:
		return "exit_with_code"
	case OpcodeStackmap:
		return "stackmap"
	default:
		return "invalid"
	}
}
