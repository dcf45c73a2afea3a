package pipeline

import (
	"github.com/raymyers/ralph-mir/pkg/separateconst"
	"github.com/raymyers/ralph-mir/pkg/simplifycfg"
)

// DefaultPasses is the pass list used when none is given
const DefaultPasses = "separate-const-switch"

func init() {
	Register(separateconst.Pass{})
	Register(simplifycfg.TunnelPass{})
	Register(simplifycfg.RemoveUnreachablePass{})
}
