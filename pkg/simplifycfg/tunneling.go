// Package simplifycfg holds small CFG cleanups run after duplication passes.
//
// Branch tunneling shortcuts edges into empty blocks that only jump on:
// an edge to "bb1: { goto -> bb2; }" becomes an edge to bb2.
package simplifycfg

import "github.com/raymyers/ralph-mir/pkg/mir"

// Tunnel performs branch tunneling on a body. bb0 keeps its id even when it
// is an empty goto, since it is the entry.
func Tunnel(body *mir.Body) {
	if len(body.Blocks) == 0 {
		return
	}

	// Build map: block -> what it jumps to (if just a goto)
	jumpTargets := buildJumpTargetMap(body)
	if len(jumpTargets) == 0 {
		return
	}

	// Resolve chains
	resolved := resolveChains(jumpTargets)

	// Apply tunneling to all terminators
	for _, blk := range body.Blocks {
		blk.Terminator = mir.MapTargets(blk.Terminator, func(b mir.BasicBlock) mir.BasicBlock {
			if target, ok := resolved[b]; ok {
				return target
			}
			return b
		})
	}
}

// buildJumpTargetMap finds blocks with no statements ending in a goto
func buildJumpTargetMap(body *mir.Body) map[mir.BasicBlock]mir.BasicBlock {
	result := make(map[mir.BasicBlock]mir.BasicBlock)

	for id, blk := range body.Blocks {
		if len(blk.Statements) != 0 {
			continue
		}
		if gt, ok := blk.Terminator.(mir.Goto); ok && body.Block(gt.Target) != nil {
			result[mir.BasicBlock(id)] = gt.Target
		}
	}

	return result
}

// resolveChains follows jump chains to their ultimate target.
// Handles cycles by returning the block where a cycle is detected.
func resolveChains(jumpTargets map[mir.BasicBlock]mir.BasicBlock) map[mir.BasicBlock]mir.BasicBlock {
	result := make(map[mir.BasicBlock]mir.BasicBlock)

	for b := range jumpTargets {
		result[b] = resolveBlock(b, jumpTargets)
	}

	return result
}

// resolveBlock follows a jump chain to its ultimate target
func resolveBlock(b mir.BasicBlock, jumpTargets map[mir.BasicBlock]mir.BasicBlock) mir.BasicBlock {
	visited := make(map[mir.BasicBlock]bool)
	current := b

	for {
		if visited[current] {
			// Cycle detected - return current
			return current
		}
		visited[current] = true

		target, ok := jumpTargets[current]
		if !ok {
			// No further jump, this is the final target
			return current
		}
		current = target
	}
}

// TunnelPass is the pipeline entry for Tunnel
type TunnelPass struct{}

func (TunnelPass) Name() string       { return "tunnel" }
func (TunnelPass) Run(body *mir.Body) { Tunnel(body) }
