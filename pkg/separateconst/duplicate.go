package separateconst

import "github.com/raymyers/ralph-mir/pkg/mir"

// Duplicate applies the candidates in order. For each one it appends a copy
// of the target block and points the predecessor's normal edges at the copy.
// Every candidate gets its own copy, even when several share a target.
// Copies are taken from the blocks as they were before any rewriting.
// Candidates without a normal edge to their target, such as a diverging call
// that only reaches it by unwinding, are dropped, as are candidates naming a
// missing block. It returns the ids of the new blocks.
func Duplicate(body *mir.Body, cands []Candidate) []mir.BasicBlock {
	originals := make(map[mir.BasicBlock]*mir.BasicBlockData)
	for _, c := range cands {
		if _, seen := originals[c.Target]; seen {
			continue
		}
		if blk := body.Block(c.Target); blk != nil {
			originals[c.Target] = blk.Clone()
		}
	}

	var clones []mir.BasicBlock
	for _, c := range cands {
		pred := body.Block(c.Pred)
		orig, ok := originals[c.Target]
		if pred == nil || !ok || !hasNormalEdge(pred.Terminator, c.Target) {
			continue
		}
		clone := body.AddBlock(orig.Clone())
		pred.Terminator = retarget(pred.Terminator, c.Target, clone)
		clones = append(clones, clone)
	}
	return clones
}

// normalTargets returns the edges retarget may rewrite: the forward
// continuation of each terminator kind. Unwind, cleanup and imaginary edges
// are excluded.
func normalTargets(term mir.Terminator) []mir.BasicBlock {
	switch t := term.(type) {
	case mir.Goto:
		return []mir.BasicBlock{t.Target}
	case mir.SwitchInt:
		return t.Targets.Targets
	case mir.FalseEdge:
		return []mir.BasicBlock{t.RealTarget}
	case mir.FalseUnwind:
		return []mir.BasicBlock{t.RealTarget}
	case mir.Call:
		if t.Destination != nil {
			return []mir.BasicBlock{t.Destination.Target}
		}
	case mir.Assert:
		return []mir.BasicBlock{t.Target}
	case mir.Drop:
		return []mir.BasicBlock{t.Target}
	case mir.DropAndReplace:
		return []mir.BasicBlock{t.Target}
	}
	return nil
}

func hasNormalEdge(term mir.Terminator, target mir.BasicBlock) bool {
	for _, b := range normalTargets(term) {
		if b == target {
			return true
		}
	}
	return false
}

// retarget returns term with its normal edges to from replaced by to
func retarget(term mir.Terminator, from, to mir.BasicBlock) mir.Terminator {
	switch t := term.(type) {
	case mir.Goto:
		if t.Target == from {
			t.Target = to
		}
		return t
	case mir.SwitchInt:
		targets := make([]mir.BasicBlock, len(t.Targets.Targets))
		for i, b := range t.Targets.Targets {
			if b == from {
				b = to
			}
			targets[i] = b
		}
		t.Targets = mir.SwitchTargets{Values: t.Targets.Values, Targets: targets}
		return t
	case mir.FalseEdge:
		if t.RealTarget == from {
			t.RealTarget = to
		}
		return t
	case mir.FalseUnwind:
		if t.RealTarget == from {
			t.RealTarget = to
		}
		return t
	case mir.Call:
		if t.Destination != nil && t.Destination.Target == from {
			t.Destination = &mir.CallDest{Place: t.Destination.Place, Target: to}
		}
		return t
	case mir.Assert:
		if t.Target == from {
			t.Target = to
		}
		return t
	case mir.Drop:
		if t.Target == from {
			t.Target = to
		}
		return t
	case mir.DropAndReplace:
		if t.Target == from {
			t.Target = to
		}
		return t
	case mir.Resume, mir.Abort, mir.Return, mir.Unreachable, mir.GeneratorDrop,
		mir.InlineAsm, mir.Yield:
		return term
	}
	return term
}
