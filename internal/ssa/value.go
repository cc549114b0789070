package ssa

import "fmt"

// ValueID uniquely identifies a Value within a function being built.
type ValueID uint32

// Value is a reference to the result of an instruction, a block parameter,
// or an immediate-bearing pseudo value. Values are immutable once created.
type Value struct {
	id  ValueID
	typ Type
}

// Valid reports whether v refers to a real value (the zero Value is invalid).
func (v Value) Valid() bool { return v.typ != typeInvalid }

// ID returns the unique ID of this value.
func (v Value) ID() ValueID { return v.id }

// Type returns the type of this value.
func (v Value) Type() Type { return v.typ }

// String implements fmt.Stringer for debugging.
func (v Value) String() string { return fmt.Sprintf("v%d", v.id) }
