package separateconst

import "github.com/raymyers/ralph-mir/pkg/mir"

// Run separates constant-supplying predecessors of switch blocks in body.
// All candidates are found on the unmodified graph before any block is
// added or edge rewritten. It returns the number of blocks added.
func Run(body *mir.Body) int {
	if len(body.Blocks) == 0 {
		return 0
	}
	cands := FindCandidates(body, mir.Predecessors(body))
	return len(Duplicate(body, cands))
}

// Pass is the pipeline entry for separate-const-switch
type Pass struct{}

// Name returns the pass name used on the command line and in dump files
func (Pass) Name() string { return "separate-const-switch" }

// Run applies the pass to body
func (Pass) Run(body *mir.Body) { Run(body) }
