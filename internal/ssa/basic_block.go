package ssa

import (
	"fmt"
	"strings"
)

// BasicBlock is a single basic block of a function under construction.
//
// waskr uses the "block argument" variant of SSA instead of explicit phi
// instructions: a block declares typed parameters, and every predecessor's
// terminator supplies one argument Value per parameter. This is exactly the
// mechanism spec.md §4.5 calls "end_phis"/"body_phis": the phi's incoming
// edges are the branch arguments, and the phi's outputs are the block
// parameters.
type BasicBlock interface {
	// ID returns the unique ID of this block.
	ID() BasicBlockID
	// Name returns a debug name for this block.
	Name() string
	// AddParam adds a typed parameter (a phi-equivalent) to this block.
	AddParam(b Builder, t Type) Value
	// Params returns the number of parameters on this block.
	Params() int
	// Param returns the Value of the i-th parameter.
	Param(i int) Value
	// InsertInstruction appends raw to the end of this block.
	InsertInstruction(raw *Instruction)
	// Root returns the first instruction in the block, or nil if empty.
	Root() *Instruction
	// Tail returns the last instruction in the block, or nil if empty.
	Tail() *Instruction
	// Preds returns the number of predecessors recorded so far.
	Preds() int
	// Terminated reports whether the block already ends with a
	// control-flow instruction.
	Terminated() bool
	// Instructions returns every instruction in this block, in program
	// order. Used by Format and by white-box tests that need to assert on
	// the shape of generated IR (e.g. which constant an Icmp compares
	// against) without reaching into package-private fields.
	Instructions() []*Instruction
}

// BasicBlockID uniquely identifies a basicBlock within a function.
type BasicBlockID uint32

const basicBlockIDReturn BasicBlockID = 0xffff_ffff

type blockParam struct {
	value Value
	typ   Type
}

type basicBlock struct {
	id                      BasicBlockID
	rootInstr, currentInstr *Instruction
	params                  []blockParam
	preds                   int
}

func (bb *basicBlock) ID() BasicBlockID { return bb.id }

func (bb *basicBlock) Name() string {
	if bb.id == basicBlockIDReturn {
		return "blk_ret"
	}
	return fmt.Sprintf("blk%d", bb.id)
}

func (bb *basicBlock) AddParam(b Builder, typ Type) Value {
	v := b.allocateValue(typ)
	bb.params = append(bb.params, blockParam{value: v, typ: typ})
	return v
}

func (bb *basicBlock) Params() int { return len(bb.params) }

func (bb *basicBlock) Param(i int) Value { return bb.params[i].value }

func (bb *basicBlock) InsertInstruction(next *Instruction) {
	if cur := bb.currentInstr; cur != nil {
		cur.next = next
		next.prev = cur
	} else {
		bb.rootInstr = next
	}
	bb.currentInstr = next

	switch next.opcode {
	case OpcodeJump, OpcodeBrz, OpcodeBrnz:
		next.blk.preds++
	case OpcodeBrTable:
		for _, t := range next.targets {
			t.preds++
		}
	}
}

func (bb *basicBlock) Root() *Instruction { return bb.rootInstr }
func (bb *basicBlock) Tail() *Instruction { return bb.currentInstr }
func (bb *basicBlock) Preds() int         { return bb.preds }

func (bb *basicBlock) Instructions() []*Instruction {
	var out []*Instruction
	for instr := bb.rootInstr; instr != nil; instr = instr.next {
		out = append(out, instr)
	}
	return out
}

func (bb *basicBlock) Terminated() bool {
	t := bb.currentInstr
	if t == nil {
		return false
	}
	switch t.opcode {
	case OpcodeJump, OpcodeBrTable, OpcodeReturn, OpcodeUnreachable, OpcodeExitWithCode:
		return true
	default:
		// OpcodeBrz/OpcodeBrnz are conditional branches that fall through to
		// the next instruction in this same block when untaken: they never
		// end a block on their own.
		return false
	}
}

// FormatHeader renders this block's header (id + params) for debugging.
func (bb *basicBlock) FormatHeader() string {
	ps := make([]string, len(bb.params))
	for i, p := range bb.params {
		ps[i] = fmt.Sprintf("%s:%s", p.value, p.typ)
	}
	return fmt.Sprintf("%s(%s):", bb.Name(), strings.Join(ps, ", "))
}
