package mir

// Deep copies. Projection slices, operand slices and optional block
// pointers are duplicated so a clone never shares storage with its source.

func clonePlace(p Place) Place {
	if p.Projection == nil {
		return Place{Local: p.Local}
	}
	proj := make([]ProjectionElem, len(p.Projection))
	copy(proj, p.Projection)
	return Place{Local: p.Local, Projection: proj}
}

func clonePlaces(ps []Place) []Place {
	if ps == nil {
		return nil
	}
	out := make([]Place, len(ps))
	for i, p := range ps {
		out[i] = clonePlace(p)
	}
	return out
}

func cloneOperand(op Operand) Operand {
	switch o := op.(type) {
	case Copy:
		return Copy{Place: clonePlace(o.Place)}
	case Move:
		return Move{Place: clonePlace(o.Place)}
	}
	return op
}

func cloneOperands(ops []Operand) []Operand {
	if ops == nil {
		return nil
	}
	out := make([]Operand, len(ops))
	for i, op := range ops {
		out[i] = cloneOperand(op)
	}
	return out
}

func cloneBlockRef(b *BasicBlock) *BasicBlock {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneRvalue(rv Rvalue) Rvalue {
	switch r := rv.(type) {
	case Use:
		return Use{Operand: cloneOperand(r.Operand)}
	case Repeat:
		return Repeat{Operand: cloneOperand(r.Operand), Count: r.Count}
	case Ref:
		return Ref{Kind: r.Kind, Place: clonePlace(r.Place)}
	case AddressOf:
		return AddressOf{Mutable: r.Mutable, Place: clonePlace(r.Place)}
	case Len:
		return Len{Place: clonePlace(r.Place)}
	case Cast:
		return Cast{Kind: r.Kind, Operand: cloneOperand(r.Operand), Type: r.Type}
	case BinaryOp:
		return BinaryOp{Op: r.Op, Left: cloneOperand(r.Left), Right: cloneOperand(r.Right)}
	case CheckedBinaryOp:
		return CheckedBinaryOp{Op: r.Op, Left: cloneOperand(r.Left), Right: cloneOperand(r.Right)}
	case UnaryOp:
		return UnaryOp{Op: r.Op, Operand: cloneOperand(r.Operand)}
	case Discriminant:
		return Discriminant{Place: clonePlace(r.Place)}
	case Aggregate:
		return Aggregate{Kind: r.Kind, Operands: cloneOperands(r.Operands)}
	}
	// ThreadLocalRef, NullaryOp hold no shared storage
	return rv
}

func cloneStatement(s Statement) Statement {
	switch st := s.(type) {
	case Assign:
		return Assign{Place: clonePlace(st.Place), Rvalue: cloneRvalue(st.Rvalue)}
	case SetDiscriminant:
		return SetDiscriminant{Place: clonePlace(st.Place), Variant: st.Variant}
	case FakeRead:
		return FakeRead{Place: clonePlace(st.Place)}
	case AscribeUserType:
		return AscribeUserType{Place: clonePlace(st.Place), Type: st.Type}
	case Retag:
		return Retag{Place: clonePlace(st.Place)}
	case LlvmInlineAsm:
		return LlvmInlineAsm{Template: st.Template, Outputs: clonePlaces(st.Outputs), Inputs: cloneOperands(st.Inputs)}
	case CopyNonOverlapping:
		return CopyNonOverlapping{Src: cloneOperand(st.Src), Dst: cloneOperand(st.Dst), Count: cloneOperand(st.Count)}
	}
	return s
}

func cloneTerminator(t Terminator) Terminator {
	switch term := t.(type) {
	case SwitchInt:
		values := append([]int64(nil), term.Targets.Values...)
		targets := append([]BasicBlock(nil), term.Targets.Targets...)
		return SwitchInt{Discr: cloneOperand(term.Discr), Targets: SwitchTargets{Values: values, Targets: targets}}
	case Drop:
		return Drop{Place: clonePlace(term.Place), Target: term.Target, Unwind: cloneBlockRef(term.Unwind)}
	case DropAndReplace:
		return DropAndReplace{Place: clonePlace(term.Place), Value: cloneOperand(term.Value), Target: term.Target, Unwind: cloneBlockRef(term.Unwind)}
	case Call:
		c := Call{Func: cloneOperand(term.Func), Symbol: term.Symbol, Args: cloneOperands(term.Args), Cleanup: cloneBlockRef(term.Cleanup)}
		if term.Destination != nil {
			c.Destination = &CallDest{Place: clonePlace(term.Destination.Place), Target: term.Destination.Target}
		}
		return c
	case Assert:
		return Assert{Cond: cloneOperand(term.Cond), Expected: term.Expected, Msg: term.Msg, Target: term.Target, Cleanup: cloneBlockRef(term.Cleanup)}
	case Yield:
		return Yield{Value: cloneOperand(term.Value), Resume: term.Resume, ResumeArg: clonePlace(term.ResumeArg), Drop: cloneBlockRef(term.Drop)}
	case FalseUnwind:
		return FalseUnwind{RealTarget: term.RealTarget, Unwind: cloneBlockRef(term.Unwind)}
	case InlineAsm:
		return InlineAsm{Template: term.Template, Destination: cloneBlockRef(term.Destination)}
	}
	// Goto, FalseEdge and the terminal kinds are plain values
	return t
}
