package mir

import "fmt"

// Successors returns every block a terminator references, including unwind,
// cleanup and imaginary edges. Duplicates are kept in order of appearance.
func Successors(t Terminator) []BasicBlock {
	var out []BasicBlock
	add := func(b *BasicBlock) {
		if b != nil {
			out = append(out, *b)
		}
	}
	switch term := t.(type) {
	case Goto:
		out = append(out, term.Target)
	case SwitchInt:
		out = append(out, term.Targets.Targets...)
	case Drop:
		out = append(out, term.Target)
		add(term.Unwind)
	case DropAndReplace:
		out = append(out, term.Target)
		add(term.Unwind)
	case Call:
		if term.Destination != nil {
			out = append(out, term.Destination.Target)
		}
		add(term.Cleanup)
	case Assert:
		out = append(out, term.Target)
		add(term.Cleanup)
	case Yield:
		out = append(out, term.Resume)
		add(term.Drop)
	case FalseEdge:
		out = append(out, term.RealTarget, term.ImaginaryTarget)
	case FalseUnwind:
		out = append(out, term.RealTarget)
		add(term.Unwind)
	case InlineAsm:
		add(term.Destination)
	case Resume, Abort, Return, Unreachable, GeneratorDrop:
	}
	return out
}

// MapTargets returns a copy of t with every referenced block id replaced by
// f(id). Unwind and imaginary edges are mapped too.
func MapTargets(t Terminator, f func(BasicBlock) BasicBlock) Terminator {
	mapRef := func(b *BasicBlock) *BasicBlock {
		if b == nil {
			return nil
		}
		v := f(*b)
		return &v
	}
	switch term := cloneTerminator(t).(type) {
	case Goto:
		return Goto{Target: f(term.Target)}
	case SwitchInt:
		for i, target := range term.Targets.Targets {
			term.Targets.Targets[i] = f(target)
		}
		return term
	case Drop:
		term.Target = f(term.Target)
		term.Unwind = mapRef(term.Unwind)
		return term
	case DropAndReplace:
		term.Target = f(term.Target)
		term.Unwind = mapRef(term.Unwind)
		return term
	case Call:
		if term.Destination != nil {
			term.Destination.Target = f(term.Destination.Target)
		}
		term.Cleanup = mapRef(term.Cleanup)
		return term
	case Assert:
		term.Target = f(term.Target)
		term.Cleanup = mapRef(term.Cleanup)
		return term
	case Yield:
		term.Resume = f(term.Resume)
		term.Drop = mapRef(term.Drop)
		return term
	case FalseEdge:
		return FalseEdge{RealTarget: f(term.RealTarget), ImaginaryTarget: f(term.ImaginaryTarget)}
	case FalseUnwind:
		term.RealTarget = f(term.RealTarget)
		term.Unwind = mapRef(term.Unwind)
		return term
	case InlineAsm:
		term.Destination = mapRef(term.Destination)
		return term
	default:
		return term
	}
}

// Predecessors builds the predecessor index of a body: for each block id,
// the sorted, duplicate-free list of blocks whose terminator references it.
// Blocks are visited in id order, so each list comes out sorted.
// Edges to dangling ids are ignored.
func Predecessors(body *Body) [][]BasicBlock {
	preds := make([][]BasicBlock, len(body.Blocks))
	for id, blk := range body.Blocks {
		if blk == nil || blk.Terminator == nil {
			continue
		}
		from := BasicBlock(id)
		for _, succ := range Successors(blk.Terminator) {
			if body.Block(succ) == nil {
				continue
			}
			list := preds[succ]
			if len(list) > 0 && list[len(list)-1] == from {
				continue
			}
			preds[succ] = append(list, from)
		}
	}
	return preds
}

// Validate checks graph well-formedness: every block has a terminator,
// every edge names an existing block and switch targets are consistent.
func (b *Body) Validate() error {
	for id, blk := range b.Blocks {
		if blk == nil || blk.Terminator == nil {
			return fmt.Errorf("%s: %s has no terminator", b.Name, BasicBlock(id))
		}
		if sw, ok := blk.Terminator.(SwitchInt); ok {
			if len(sw.Targets.Targets) != len(sw.Targets.Values)+1 {
				return fmt.Errorf("%s: %s: switchInt has %d values but %d targets",
					b.Name, BasicBlock(id), len(sw.Targets.Values), len(sw.Targets.Targets))
			}
		}
		for _, succ := range Successors(blk.Terminator) {
			if b.Block(succ) == nil {
				return fmt.Errorf("%s: %s: edge to missing block %s", b.Name, BasicBlock(id), succ)
			}
		}
	}
	return nil
}
