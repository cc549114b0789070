// Package ir is the thin IR utility layer described in spec.md §2 item 1:
// it exposes primitive numeric types, a pointer type, and the small set of
// backend intrinsics the rest of the compiler needs (count-leading-zeros,
// popcount, fabs, ceil/floor/trunc/nearbyint, sqrt, minnum/maxnum,
// copysign, and a stackmap intrinsic) without exposing the rest of the
// internal/ssa backend's surface area.
package ir

import "github.com/waskr/waskr/internal/ssa"

// Numeric and pointer types, re-exported from the backend so callers never
// need to import internal/ssa directly for type tokens.
const (
	I32 = ssa.TypeI32
	I64 = ssa.TypeI64
	F32 = ssa.TypeF32
	F64 = ssa.TypeF64
	Ptr = ssa.TypePtr
)

// Value is a backend SSA value.
type Value = ssa.Value

// Builder is the backend builder this layer wraps.
type Builder = ssa.Builder

// Clz counts the number of leading zero bits in x.
func Clz(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsClz(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Ctz counts the number of trailing zero bits in x.
func Ctz(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsCtz(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Popcnt counts the number of set bits in x.
func Popcnt(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsPopcnt(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Fabs returns the absolute value of a float.
func Fabs(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsFabs(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Ceil rounds a float up towards positive infinity.
func Ceil(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsCeil(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Floor rounds a float down towards negative infinity.
func Floor(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsFloor(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Trunc rounds a float towards zero.
func Trunc(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsTrunc(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Nearbyint rounds a float to the nearest integer, ties to even.
func Nearbyint(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsNearest(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Sqrt returns the square root of a float.
func Sqrt(b Builder, x Value) Value {
	i := b.AllocateInstruction().AsSqrt(x)
	b.InsertInstruction(i)
	return i.Return()
}

// Minnum returns the IEEE-754 minimum of x and y (NaN-propagating per Wasm
// semantics, not the "numeric" IEEE minNum that prefers the non-NaN operand).
func Minnum(b Builder, x, y Value) Value {
	i := b.AllocateInstruction().AsFmin(x, y)
	b.InsertInstruction(i)
	return i.Return()
}

// Maxnum returns the IEEE-754 maximum of x and y.
func Maxnum(b Builder, x, y Value) Value {
	i := b.AllocateInstruction().AsFmax(x, y)
	b.InsertInstruction(i)
	return i.Return()
}

// Copysign returns x with the sign bit of y.
func Copysign(b Builder, x, y Value) Value {
	i := b.AllocateInstruction().AsCopysign(x, y)
	b.InsertInstruction(i)
	return i.Return()
}

// Stackmap emits the backend's stackmap intrinsic: a safepoint marker a real
// backend would use to record live GC/migration roots at this program point.
// waskr does not implement a native backend (spec.md §1), so this is a pure
// IR marker. atFunc and atOp are not recorded on the instruction, and the
// migration-point instrumentation in internal/compiler does not call this.
func Stackmap(b Builder, atFunc, atOp uint32) {
	i := b.AllocateInstruction().AsStackmap()
	b.InsertInstruction(i)
}

// VolatileLoad loads a `typ`-typed value from base+offset and marks the load
// as non-hoistable/non-sinkable. Every read of ExecEnv.migration_state at a
// migration point must go through this, never through a plain Load: an
// optimizer is free to hoist a plain load out of a loop, which would let a
// loop-carried checkpoint request go unnoticed for arbitrarily many
// iterations (spec.md §4.6, §9).
func VolatileLoad(b Builder, base Value, offset uint32, typ ssa.Type) Value {
	i := b.AllocateInstruction().AsLoad(base, offset, typ, true)
	b.InsertInstruction(i)
	return i.Return()
}

// Load loads a `typ`-typed, non-volatile value from base+offset.
func Load(b Builder, base Value, offset uint32, typ ssa.Type) Value {
	i := b.AllocateInstruction().AsLoad(base, offset, typ, false)
	b.InsertInstruction(i)
	return i.Return()
}

// Store stores v to base+offset.
func Store(b Builder, base, v Value, offset uint32) {
	i := b.AllocateInstruction().AsStore(base, v, offset)
	b.InsertInstruction(i)
}
