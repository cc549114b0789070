package ssa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_BlockParamsActAsPhis(t *testing.T) {
	b := NewBuilder()
	b.Init(&Signature{Params: []Type{TypePtr, TypeI32}, Results: []Type{TypeI32}})

	entry := b.AllocateBasicBlock()
	join := b.AllocateBasicBlock()
	joinParam := join.AddParam(b, TypeI32)
	require.Equal(t, 1, join.Params())
	require.Equal(t, joinParam, join.Param(0))

	b.SetCurrentBlock(entry)
	c := b.AllocateInstruction().AsIconst32(1)
	b.InsertInstruction(c)
	jmp := b.AllocateInstruction().AsJump(join, []Value{c.Return()})
	b.InsertInstruction(jmp)

	require.Equal(t, 1, join.Preds())
	require.True(t, entry.Terminated())
}

func TestBuilder_InstructionResultIsFreshValue(t *testing.T) {
	b := NewBuilder()
	b.Init(&Signature{Params: []Type{TypePtr}})
	blk := b.AllocateBasicBlock()
	b.SetCurrentBlock(blk)

	x := b.AllocateInstruction().AsIconst32(10)
	b.InsertInstruction(x)
	y := b.AllocateInstruction().AsIconst32(20)
	b.InsertInstruction(y)
	add := b.AllocateInstruction().AsIadd(x.Return(), y.Return())
	b.InsertInstruction(add)

	require.NotEqual(t, x.Return().ID(), y.Return().ID())
	require.NotEqual(t, y.Return().ID(), add.Return().ID())
	require.Equal(t, TypeI32, add.Return().Type())
}

func TestBasicBlock_BrTableTargetsIncludeDefaultLast(t *testing.T) {
	b := NewBuilder()
	b.Init(&Signature{Params: []Type{TypePtr}})
	entry := b.AllocateBasicBlock()
	l0 := b.AllocateBasicBlock()
	l1 := b.AllocateBasicBlock()
	def := b.AllocateBasicBlock()

	b.SetCurrentBlock(entry)
	idx := b.AllocateInstruction().AsIconst32(0)
	b.InsertInstruction(idx)
	sw := b.AllocateInstruction().AsBrTable(idx.Return(), []BasicBlock{l0, l1, def}, nil)
	b.InsertInstruction(sw)

	targets := sw.BrTargets()
	require.Len(t, targets, 3)
	require.Equal(t, def.ID(), targets[2].ID())
	require.Equal(t, 1, l0.Preds())
	require.Equal(t, 1, l1.Preds())
	require.Equal(t, 1, def.Preds())
}
