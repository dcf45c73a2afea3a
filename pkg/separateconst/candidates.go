package separateconst

import (
	"fmt"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

// Candidate is a predecessor edge selected for duplication: Pred leaves
// a constant in the determining place of Target's switch.
type Candidate struct {
	Pred   mir.BasicBlock
	Target mir.BasicBlock
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s -> %s", c.Pred, c.Target)
}

// edgeKind classifies a predecessor's control edge into the switch block
type edgeKind int

const (
	edgeIllegal  edgeKind = iota // no usable edge, or the edge itself clobbers the place
	edgeLegal                    // usable; the statements decide
	edgeConstant                 // the terminator itself stores a constant
)

// clobbers reports whether writing w may change the value read from p:
// the places overlap, or w is a local that indexes p.
func clobbers(w, p mir.Place) bool {
	return w.Overlaps(p) || p.IndexedBy(w.Local)
}

// classifyEdge decides whether term can carry a value for place into target
func classifyEdge(term mir.Terminator, target mir.BasicBlock, place mir.Place) edgeKind {
	switch t := term.(type) {
	case mir.Goto, mir.SwitchInt:
		return edgeLegal

	case mir.Drop:
		if t.Target != target || clobbers(t.Place, place) {
			return edgeIllegal
		}
		return edgeLegal

	case mir.DropAndReplace:
		if t.Target != target {
			return edgeIllegal
		}
		if t.Place.Equal(place) {
			if _, ok := t.Value.(mir.Constant); ok {
				return edgeConstant
			}
			// Replaced by a non-constant after the statements ran.
			return edgeIllegal
		}
		if clobbers(t.Place, place) {
			return edgeIllegal
		}
		return edgeLegal

	case mir.Call:
		if t.Destination == nil {
			return edgeLegal
		}
		if t.Destination.Target != target || clobbers(t.Destination.Place, place) {
			return edgeIllegal
		}
		return edgeLegal

	case mir.Assert:
		if t.Target != target {
			return edgeIllegal
		}
		return edgeLegal

	case mir.FalseEdge:
		if t.RealTarget != target {
			return edgeIllegal
		}
		return edgeLegal

	case mir.FalseUnwind:
		if t.RealTarget != target {
			return edgeIllegal
		}
		return edgeLegal

	case mir.Yield, mir.Resume, mir.Abort, mir.Return, mir.Unreachable,
		mir.GeneratorDrop, mir.InlineAsm:
		return edgeIllegal
	}
	return edgeIllegal
}

// IsLikelyConst reports whether place is provably a constant when control
// leaves block. It walks the statements backwards, following copies, casts,
// unary operations and discriminant reads to their source. It may miss
// constants but never reports a non-constant as constant.
func IsLikelyConst(block *mir.BasicBlockData, place mir.Place) bool {
	tracked := place

	for i := len(block.Statements) - 1; i >= 0; i-- {
		switch s := block.Statements[i].(type) {
		case mir.Assign:
			if !s.Place.Equal(tracked) {
				if clobbers(s.Place, tracked) {
					return false
				}
				continue
			}
			switch rv := s.Rvalue.(type) {
			case mir.Use:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return true
				}
				tracked = p
			case mir.Cast:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return true
				}
				tracked = p
			case mir.UnaryOp:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return true
				}
				tracked = p
			case mir.Discriminant:
				tracked = rv.Place
			case mir.Ref, mir.AddressOf, mir.NullaryOp:
				return true
			case mir.Repeat, mir.ThreadLocalRef, mir.Len, mir.BinaryOp,
				mir.CheckedBinaryOp, mir.Aggregate:
				return false
			default:
				return false
			}

		case mir.SetDiscriminant:
			if s.Place.Equal(tracked) {
				return true
			}
			if clobbers(s.Place, tracked) {
				return false
			}

		case mir.StorageLive, mir.StorageDead, mir.FakeRead, mir.AscribeUserType,
			mir.Retag, mir.Coverage, mir.Nop:
			// no value information

		case mir.LlvmInlineAsm, mir.CopyNonOverlapping:
			return false

		default:
			return false
		}
	}

	return false
}

// FindCandidates collects every (predecessor, switch block) pair worth
// separating. preds is the predecessor index of body; stale or dangling
// entries are skipped. The body is not modified.
func FindCandidates(body *mir.Body, preds [][]mir.BasicBlock) []Candidate {
	var cands []Candidate

	for id, blk := range body.Blocks {
		if blk == nil || id >= len(preds) {
			continue
		}
		sw, ok := blk.Terminator.(mir.SwitchInt)
		if !ok {
			continue
		}
		// With a single predecessor there is nothing to separate.
		if len(preds[id]) < 2 {
			continue
		}
		switchPlace, ok := mir.PlaceOf(sw.Discr)
		if !ok {
			continue
		}
		determining, ok := FindDeterminingPlace(blk, switchPlace)
		if !ok {
			continue
		}

		target := mir.BasicBlock(id)
		for _, p := range preds[id] {
			pred := body.Block(p)
			if pred == nil || pred.Terminator == nil {
				continue
			}
			switch classifyEdge(pred.Terminator, target, determining) {
			case edgeConstant:
				cands = append(cands, Candidate{Pred: p, Target: target})
			case edgeLegal:
				if IsLikelyConst(pred, determining) {
					cands = append(cands, Candidate{Pred: p, Target: target})
				}
			}
		}
	}

	return cands
}
