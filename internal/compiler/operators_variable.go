package compiler

func (t *functionTranslator) stepVariableOp(r *opReader, op byte) error {
	idx, err := r.readU32()
	if err != nil {
		return err
	}
	switch op {
	case opLocalGet:
		typ := irType(t.fc.localTypes[idx])
		i := t.fc.builder.AllocateInstruction().AsLocalGet(idx, typ)
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	case opLocalSet:
		v := t.fc.pop()
		i := t.fc.builder.AllocateInstruction().AsLocalSet(idx, v)
		t.fc.builder.InsertInstruction(i)
	case opLocalTee:
		v := t.fc.pop()
		i := t.fc.builder.AllocateInstruction().AsLocalSet(idx, v)
		t.fc.builder.InsertInstruction(i)
		t.fc.push(v)
	case opGlobalGet:
		g := t.decls.Globals[idx]
		typ := irType(g.Type.ValType)
		i := t.fc.builder.AllocateInstruction().AsGlobalGet(idx, typ)
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	case opGlobalSet:
		v := t.fc.pop()
		i := t.fc.builder.AllocateInstruction().AsGlobalSet(idx, v)
		t.fc.builder.InsertInstruction(i)
	}
	return nil
}
