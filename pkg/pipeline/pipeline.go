// Package pipeline runs MIR passes in a fixed order over each function body.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

// ErrUnknownPass is returned by Lookup and Parse for unregistered pass names
var ErrUnknownPass = errors.New("unknown pass")

// Pass is one transformation over a function body
type Pass interface {
	Name() string
	Run(body *mir.Body)
}

// Pipeline runs its passes in order. Dump, if set, is called after each pass
// whose name is in DumpAfter (or after every pass when DumpAll is set).
// Trace, if set, receives one line per pass with the block count change.
type Pipeline struct {
	Passes    []Pass
	DumpAfter map[string]bool
	DumpAll   bool
	Dump      func(pass string, body *mir.Body)
	Trace     io.Writer
}

// New creates a pipeline over the given passes
func New(passes ...Pass) *Pipeline {
	return &Pipeline{Passes: passes, DumpAfter: make(map[string]bool)}
}

// Run applies every pass to body
func (p *Pipeline) Run(body *mir.Body) {
	for _, pass := range p.Passes {
		before := len(body.Blocks)
		pass.Run(body)
		if p.Trace != nil {
			fmt.Fprintf(p.Trace, "%s: %s: %d -> %d blocks\n", body.Name, pass.Name(), before, len(body.Blocks))
		}
		if p.Dump != nil && (p.DumpAll || p.DumpAfter[pass.Name()]) {
			p.Dump(pass.Name(), body)
		}
	}
}

// RunProgram applies the pipeline to every body in prog
func (p *Pipeline) RunProgram(prog *mir.Program) {
	for _, body := range prog.Bodies {
		p.Run(body)
	}
}

var registry = map[string]Pass{}

// Register makes a pass available to Lookup under its name
func Register(pass Pass) {
	registry[pass.Name()] = pass
}

// Lookup returns the registered pass with the given name
func Lookup(name string) (Pass, error) {
	pass, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPass, name, strings.Join(Names(), ", "))
	}
	return pass, nil
}

// Names lists the registered pass names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse builds a pipeline from a comma-separated list of pass names
func Parse(list string) (*Pipeline, error) {
	p := New()
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pass, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		p.Passes = append(p.Passes, pass)
	}
	return p, nil
}
