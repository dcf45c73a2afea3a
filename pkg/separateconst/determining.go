// Package separateconst implements the separate-const-switch pass.
//
// A block ending in a switchInt whose value can be traced back to a place
// that some predecessors fill with a constant is duplicated once per such
// predecessor, and that predecessor's edge is redirected to its private
// copy. A later constant-propagation pass can then resolve the copied
// switch statically, since values from other predecessors no longer merge
// into it. The pass itself never folds, merges or deletes anything.
package separateconst

import "github.com/raymyers/ralph-mir/pkg/mir"

// FindDeterminingPlace walks the statements of a switch block backwards
// from the terminator and returns the place whose value the switch on
// switchPlace is equivalent to. It fails if the block computes the value
// itself or contains a statement it cannot see through.
//
// Once a discriminant read is crossed, only the discriminant of the new place
// matters: further plain assignments to it or inside it are ignored, since a
// tag can only come from a variant write. Any other write that may change the
// tracked place fails the trace.
func FindDeterminingPlace(block *mir.BasicBlockData, switchPlace mir.Place) (mir.Place, bool) {
	tracked := switchPlace
	discrOnly := false

	for i := len(block.Statements) - 1; i >= 0; i-- {
		switch s := block.Statements[i].(type) {
		case mir.Assign:
			if !s.Place.Equal(tracked) {
				if clobbers(s.Place, tracked) && !(discrOnly && within(s.Place, tracked)) {
					return mir.Place{}, false
				}
				continue
			}
			if discrOnly {
				if d, ok := s.Rvalue.(mir.Discriminant); ok {
					tracked = d.Place
				}
				continue
			}
			switch rv := s.Rvalue.(type) {
			case mir.Use:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return mir.Place{}, false
				}
				tracked = p
			case mir.UnaryOp:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return mir.Place{}, false
				}
				tracked = p
			case mir.Cast:
				p, ok := mir.PlaceOf(rv.Operand)
				if !ok {
					return mir.Place{}, false
				}
				tracked = p
			case mir.Discriminant:
				tracked = rv.Place
				discrOnly = true
			case mir.Repeat, mir.Ref, mir.ThreadLocalRef, mir.AddressOf, mir.Len,
				mir.NullaryOp, mir.Aggregate, mir.BinaryOp, mir.CheckedBinaryOp:
				// Computed in this block; nothing to gain from predecessors.
				return mir.Place{}, false
			default:
				return mir.Place{}, false
			}

		case mir.SetDiscriminant:
			// An unlocked trace cannot be satisfied by a tag write, and a tag
			// written to the tracked place here is already fixed in this block.
			if !discrOnly || clobbers(s.Place, tracked) {
				return mir.Place{}, false
			}

		case mir.StorageLive, mir.StorageDead, mir.FakeRead, mir.AscribeUserType,
			mir.Retag, mir.Coverage, mir.Nop:
			// no value information

		case mir.LlvmInlineAsm, mir.CopyNonOverlapping:
			return mir.Place{}, false

		default:
			return mir.Place{}, false
		}
	}

	return tracked, true
}

// within reports whether w names a location inside p: p is a strict prefix
// of w.
func within(w, p mir.Place) bool {
	if len(w.Projection) <= len(p.Projection) {
		return false
	}
	return mir.Place{Local: w.Local, Projection: w.Projection[:len(p.Projection)]}.Equal(p)
}
