package compiler

func (t *functionTranslator) stepConstOp(r *opReader, op byte) error {
	switch op {
	case opI32Const:
		v, err := r.readS32()
		if err != nil {
			return err
		}
		i := t.fc.builder.AllocateInstruction().AsIconst32(uint32(v))
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	case opI64Const:
		v, err := r.readS64()
		if err != nil {
			return err
		}
		i := t.fc.builder.AllocateInstruction().AsIconst64(uint64(v))
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	case opF32Const:
		v, err := r.readF32()
		if err != nil {
			return err
		}
		i := t.fc.builder.AllocateInstruction().AsF32const(v)
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	case opF64Const:
		v, err := r.readF64()
		if err != nil {
			return err
		}
		i := t.fc.builder.AllocateInstruction().AsF64const(v)
		t.fc.builder.InsertInstruction(i)
		t.fc.push(i.Return())
	}
	return nil
}
