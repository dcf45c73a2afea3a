package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-mir/pkg/mir"
)

// countPass records the bodies it sees and appends a return block
type countPass struct {
	name string
	seen *[]string
}

func (p countPass) Name() string { return p.name }

func (p countPass) Run(body *mir.Body) {
	*p.seen = append(*p.seen, p.name+":"+body.Name)
	body.AddBlock(&mir.BasicBlockData{Terminator: mir.Return{}})
}

func TestRunOrder(t *testing.T) {
	var seen []string
	p := New(countPass{"a", &seen}, countPass{"b", &seen})
	prog := &mir.Program{Bodies: []*mir.Body{mir.NewBody("f", 0), mir.NewBody("g", 0)}}

	p.RunProgram(prog)

	want := []string{"a:f", "b:f", "a:g", "b:g"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("pass order mismatch (-want +got):\n%s", diff)
	}
	if len(prog.Bodies[0].Blocks) != 2 {
		t.Errorf("Expected 2 blocks, got %d", len(prog.Bodies[0].Blocks))
	}
}

func TestDumpAfter(t *testing.T) {
	var seen, dumped []string
	p := New(countPass{"a", &seen}, countPass{"b", &seen})
	p.DumpAfter["b"] = true
	p.Dump = func(pass string, body *mir.Body) {
		dumped = append(dumped, pass)
	}

	p.Run(mir.NewBody("f", 0))
	if diff := cmp.Diff([]string{"b"}, dumped); diff != "" {
		t.Errorf("dumps mismatch (-want +got):\n%s", diff)
	}

	dumped = nil
	p.DumpAll = true
	p.Run(mir.NewBody("f", 0))
	if diff := cmp.Diff([]string{"a", "b"}, dumped); diff != "" {
		t.Errorf("dumps mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace(t *testing.T) {
	var seen []string
	var buf bytes.Buffer
	p := New(countPass{"grow", &seen})
	p.Trace = &buf

	p.Run(mir.NewBody("f", 0))

	if got := buf.String(); got != "f: grow: 0 -> 1 blocks\n" {
		t.Errorf("trace = %q", got)
	}
}

func TestRegistry(t *testing.T) {
	want := []string{"remove-unreachable", "separate-const-switch", "tunnel"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	pass, err := Lookup("tunnel")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if pass.Name() != "tunnel" {
		t.Errorf("Lookup returned %q", pass.Name())
	}

	_, err = Lookup("inline")
	if !errors.Is(err, ErrUnknownPass) {
		t.Errorf("Lookup error = %v, want ErrUnknownPass", err)
	}
	if err != nil && !strings.Contains(err.Error(), "separate-const-switch") {
		t.Errorf("error should list known passes: %v", err)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse(" separate-const-switch, tunnel,,remove-unreachable ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var names []string
	for _, pass := range p.Passes {
		names = append(names, pass.Name())
	}
	want := []string{"separate-const-switch", "tunnel", "remove-unreachable"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}

	if p, err := Parse(""); err != nil || len(p.Passes) != 0 {
		t.Errorf("Parse(\"\") = %v, %v", p, err)
	}
	if _, err := Parse("tunnel,bogus"); !errors.Is(err, ErrUnknownPass) {
		t.Errorf("Parse error = %v, want ErrUnknownPass", err)
	}
}

func TestDefaultPipeline(t *testing.T) {
	// Both predecessors of bb3 store constants, so the full pipeline
	// duplicates bb3 twice and then drops the orphaned original.
	body := mir.NewBody("f", 1)
	body.AddBlock(&mir.BasicBlockData{Terminator: mir.SwitchInt{
		Discr:   mir.Copy{Place: mir.LocalPlace(1)},
		Targets: mir.SwitchTargets{Values: []int64{0}, Targets: []mir.BasicBlock{1, 2}},
	}})
	for _, v := range []int64{0, 1} {
		body.AddBlock(&mir.BasicBlockData{
			Statements: []mir.Statement{mir.Assign{Place: mir.LocalPlace(2), Rvalue: mir.Use{Operand: mir.Constant{Value: v}}}},
			Terminator: mir.Goto{Target: 3},
		})
	}
	body.AddBlock(&mir.BasicBlockData{Terminator: mir.SwitchInt{
		Discr:   mir.Move{Place: mir.LocalPlace(2)},
		Targets: mir.SwitchTargets{Values: []int64{0}, Targets: []mir.BasicBlock{4, 4}},
	}})
	body.AddBlock(&mir.BasicBlockData{Terminator: mir.Return{}})

	p, err := Parse(DefaultPasses + ",tunnel,remove-unreachable")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p.Run(body)

	if len(body.Blocks) != 6 {
		t.Errorf("Expected 6 blocks, got %d", len(body.Blocks))
	}
	if err := body.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
