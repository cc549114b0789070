package ssa

import (
	"fmt"
	"strings"
)

// Builder builds the SSA-form body of a single function. A Builder instance
// is reused across functions within one module compilation; Init resets it.
type Builder interface {
	// Init resets the builder to translate a new function with signature sig.
	Init(sig *Signature)
	// Signature returns the signature of the function currently being built.
	Signature() *Signature
	// AllocateBasicBlock creates a new, empty basic block.
	AllocateBasicBlock() BasicBlock
	// CurrentBlock returns the block instructions are currently inserted into.
	CurrentBlock() BasicBlock
	// SetCurrentBlock moves the insertion point to b.
	SetCurrentBlock(b BasicBlock)
	// AllocateInstruction returns a fresh, unattached Instruction.
	AllocateInstruction() *Instruction
	// InsertInstruction appends raw to the current block. If raw produces a
	// value, a fresh Value is allocated and raw.Return() becomes valid.
	InsertInstruction(raw *Instruction)
	// allocateValue allocates a fresh, unattached Value. Exported to other
	// files in this package only (used by BasicBlock.AddParam).
	allocateValue(typ Type) Value
	// DeclareSignature registers sig so OpcodeCall/OpcodeCallIndirect
	// instructions can reference it later.
	DeclareSignature(sig *Signature)
	// ResolveSignature looks up a previously declared signature by ID.
	ResolveSignature(id SignatureID) *Signature
	// ReturnBlock returns the function's single return block.
	ReturnBlock() BasicBlock
	// Blocks returns the number of basic blocks allocated so far.
	Blocks() int
	// BlockByID returns a previously allocated block.
	BlockByID(id BasicBlockID) BasicBlock
	// Format renders the whole function for debugging/golden tests.
	Format() string
}

type builder struct {
	sig        *Signature
	blocks     []*basicBlock
	returnBlk  *basicBlock
	current    *basicBlock
	nextValue  ValueID
	signatures map[SignatureID]*Signature
}

// NewBuilder returns a new Builder.
func NewBuilder() Builder {
	return &builder{signatures: make(map[SignatureID]*Signature)}
}

func (b *builder) Init(sig *Signature) {
	b.sig = sig
	b.blocks = b.blocks[:0]
	b.nextValue = 0
	b.returnBlk = &basicBlock{id: basicBlockIDReturn}
	b.current = nil
}

func (b *builder) Signature() *Signature { return b.sig }

func (b *builder) AllocateBasicBlock() BasicBlock {
	blk := &basicBlock{id: BasicBlockID(len(b.blocks))}
	b.blocks = append(b.blocks, blk)
	return blk
}

func (b *builder) BlockByID(id BasicBlockID) BasicBlock {
	if id == basicBlockIDReturn {
		return b.returnBlk
	}
	return b.blocks[id]
}

func (b *builder) Blocks() int { return len(b.blocks) }

func (b *builder) CurrentBlock() BasicBlock {
	if b.current == nil {
		return nil
	}
	return b.current
}

func (b *builder) SetCurrentBlock(blk BasicBlock) { b.current = blk.(*basicBlock) }

func (b *builder) AllocateInstruction() *Instruction { return &Instruction{} }

func (b *builder) allocateValue(typ Type) Value {
	v := Value{id: b.nextValue, typ: typ}
	b.nextValue++
	return v
}

func (b *builder) InsertInstruction(raw *Instruction) {
	if rt := raw.resultType(); rt != typeInvalid {
		raw.rValue = b.allocateValue(rt)
	}
	b.current.InsertInstruction(raw)
}

func (b *builder) DeclareSignature(sig *Signature) { b.signatures[sig.ID] = sig }

func (b *builder) ResolveSignature(id SignatureID) *Signature { return b.signatures[id] }

func (b *builder) ReturnBlock() BasicBlock { return b.returnBlk }

// Format renders the function body as a debug string, one basic block per
// line group, in allocation order.
func (b *builder) Format() string {
	var sb strings.Builder
	for _, blk := range b.blocks {
		sb.WriteString(blk.FormatHeader())
		sb.WriteByte('\n')
		for _, instr := range blk.Instructions() {
			fmt.Fprintf(&sb, "\t%s\n", instr)
		}
	}
	return sb.String()
}
