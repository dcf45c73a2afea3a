// Unreachable block cleanup.
// This pass removes blocks that cannot be reached from the entry block and
// renumbers the remaining ones densely, keeping their relative order.
package simplifycfg

import "github.com/raymyers/ralph-mir/pkg/mir"

// RemoveUnreachable drops blocks unreachable from bb0. All edges, including
// unwind and imaginary ones, count for reachability and are rewritten.
// It returns the number of blocks removed.
func RemoveUnreachable(body *mir.Body) int {
	if len(body.Blocks) == 0 {
		return 0
	}

	reachable := collectReachable(body)

	// Assign new dense ids
	remap := make(map[mir.BasicBlock]mir.BasicBlock, len(body.Blocks))
	kept := make([]*mir.BasicBlockData, 0, len(body.Blocks))
	for id, blk := range body.Blocks {
		if !reachable[mir.BasicBlock(id)] {
			continue
		}
		remap[mir.BasicBlock(id)] = mir.BasicBlock(len(kept))
		kept = append(kept, blk)
	}

	removed := len(body.Blocks) - len(kept)
	if removed == 0 {
		return 0
	}

	for _, blk := range kept {
		blk.Terminator = mir.MapTargets(blk.Terminator, func(b mir.BasicBlock) mir.BasicBlock {
			return remap[b]
		})
	}
	body.Blocks = kept
	return removed
}

// collectReachable returns all blocks reachable from the entry
func collectReachable(body *mir.Body) map[mir.BasicBlock]bool {
	seen := map[mir.BasicBlock]bool{0: true}
	todo := []mir.BasicBlock{0}

	for len(todo) > 0 {
		b := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		blk := body.Block(b)
		if blk == nil || blk.Terminator == nil {
			continue
		}
		for _, succ := range mir.Successors(blk.Terminator) {
			if !seen[succ] && body.Block(succ) != nil {
				seen[succ] = true
				todo = append(todo, succ)
			}
		}
	}

	return seen
}

// RemoveUnreachablePass is the pipeline entry for RemoveUnreachable
type RemoveUnreachablePass struct{}

func (RemoveUnreachablePass) Name() string       { return "remove-unreachable" }
func (RemoveUnreachablePass) Run(body *mir.Body) { RemoveUnreachable(body) }
