package mirload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

// File is the top-level YAML document
type File struct {
	Functions []Function `yaml:"functions"`
}

// Function describes one body. Locals defaults to one past the highest
// local mentioned.
type Function struct {
	Name   string  `yaml:"name"`
	Args   int     `yaml:"args"`
	Locals int     `yaml:"locals,omitempty"`
	Blocks []Block `yaml:"blocks"`
}

// Block is a basic block; its id is its position in the list
type Block struct {
	Statements []Statement `yaml:"statements,omitempty"`
	Terminator Terminator  `yaml:"terminator"`
}

// Statement is a statement mapping, selected by Kind:
// assign, set_discriminant, storage_live, storage_dead, fake_read,
// ascribe_user_type, retag, coverage, nop, llvm_asm, copy_nonoverlapping
type Statement struct {
	Kind     string   `yaml:"kind"`
	Place    string   `yaml:"place,omitempty"`
	Rvalue   *Rvalue  `yaml:"rvalue,omitempty"`
	Variant  int      `yaml:"variant,omitempty"`
	Local    int      `yaml:"local,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Counter  int      `yaml:"counter,omitempty"`
	Template string   `yaml:"template,omitempty"`
	Outputs  []string `yaml:"outputs,omitempty"`
	Inputs   []string `yaml:"inputs,omitempty"`
	Src      string   `yaml:"src,omitempty"`
	Dst      string   `yaml:"dst,omitempty"`
	Count    string   `yaml:"count,omitempty"`

	line int
}

// UnmarshalYAML records the source line for error messages
func (s *Statement) UnmarshalYAML(n *yaml.Node) error {
	type plain Statement
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line = n.Line
	return nil
}

// Rvalue is either an operand string (shorthand for use) or a mapping
// selected by Kind: use, repeat, ref, thread_local_ref, address_of, len,
// cast, binary_op, checked_binary_op, nullary_op, unary_op, discriminant,
// aggregate
type Rvalue struct {
	Kind     string   `yaml:"kind"`
	Operand  string   `yaml:"operand,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Place    string   `yaml:"place,omitempty"`
	Mutable  bool     `yaml:"mutable,omitempty"`
	Symbol   string   `yaml:"symbol,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Pointer  bool     `yaml:"pointer,omitempty"`
	Op       string   `yaml:"op,omitempty"`
	Left     string   `yaml:"left,omitempty"`
	Right    string   `yaml:"right,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	Variant  int      `yaml:"variant,omitempty"`
	Operands []string `yaml:"operands,omitempty"`

	line int
}

// UnmarshalYAML accepts the scalar shorthand "move _1" for a use
func (r *Rvalue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*r = Rvalue{Kind: "use", Operand: n.Value, line: n.Line}
		return nil
	}
	type plain Rvalue
	if err := n.Decode((*plain)(r)); err != nil {
		return err
	}
	r.line = n.Line
	return nil
}

// Terminator is a terminator mapping selected by Kind: goto, switch_int,
// resume, abort, return, unreachable, drop, drop_and_replace, call, assert,
// yield, generator_drop, false_edge, false_unwind, inline_asm
type Terminator struct {
	Kind      string   `yaml:"kind"`
	Target    *int     `yaml:"target,omitempty"`
	Discr     string   `yaml:"discr,omitempty"`
	Values    []int64  `yaml:"values,omitempty"`
	Targets   []int    `yaml:"targets,omitempty"`
	Otherwise *int     `yaml:"otherwise,omitempty"`
	Place     string   `yaml:"place,omitempty"`
	Value     string   `yaml:"value,omitempty"`
	Unwind    *int     `yaml:"unwind,omitempty"`
	Func      string   `yaml:"func,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Dest      string   `yaml:"dest,omitempty"`
	Cleanup   *int     `yaml:"cleanup,omitempty"`
	Cond      string   `yaml:"cond,omitempty"`
	Expected  *bool    `yaml:"expected,omitempty"`
	Msg       string   `yaml:"msg,omitempty"`
	Resume    *int     `yaml:"resume,omitempty"`
	ResumeArg string   `yaml:"resume_arg,omitempty"`
	Drop      *int     `yaml:"drop,omitempty"`
	Real      *int     `yaml:"real,omitempty"`
	Imaginary *int     `yaml:"imaginary,omitempty"`
	Template  string   `yaml:"template,omitempty"`

	line int
}

// UnmarshalYAML records the source line for error messages
func (t *Terminator) UnmarshalYAML(n *yaml.Node) error {
	type plain Terminator
	if err := n.Decode((*plain)(t)); err != nil {
		return err
	}
	t.line = n.Line
	return nil
}

// Parse decodes a YAML document into a program and validates every body
func Parse(data []byte) (*mir.Program, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &mir.Program{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	prog := &mir.Program{}
	for _, fn := range f.Functions {
		body, err := buildBody(fn)
		if err != nil {
			return nil, err
		}
		if err := body.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		prog.Bodies = append(prog.Bodies, body)
	}
	return prog, nil
}

// Load reads and parses a YAML document
func Load(r io.Reader) (*mir.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadFile reads and parses the YAML file at path
func LoadFile(path string) (*mir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// builder converts one Function, tracking the highest local seen
type builder struct {
	fn       string
	maxLocal mir.Local
}

func (b *builder) errorf(line int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: line %d: %s", ErrSyntax, b.fn, line, fmt.Sprintf(format, args...))
}

func (b *builder) see(l mir.Local) {
	if l > b.maxLocal {
		b.maxLocal = l
	}
}

func (b *builder) place(line int, s string) (mir.Place, error) {
	p, err := ParsePlace(s)
	if err != nil {
		return mir.Place{}, b.errorf(line, "%v", err)
	}
	b.see(p.Local)
	for _, elem := range p.Projection {
		if idx, ok := elem.(mir.Index); ok {
			b.see(idx.Local)
		}
	}
	return p, nil
}

func (b *builder) operand(line int, s string) (mir.Operand, error) {
	op, err := ParseOperand(s)
	if err != nil {
		return nil, b.errorf(line, "%v", err)
	}
	if p, ok := mir.PlaceOf(op); ok {
		b.see(p.Local)
	}
	return op, nil
}

func (b *builder) operands(line int, ss []string) ([]mir.Operand, error) {
	ops, err := parseOperands(ss)
	if err != nil {
		return nil, b.errorf(line, "%v", err)
	}
	for _, op := range ops {
		if p, ok := mir.PlaceOf(op); ok {
			b.see(p.Local)
		}
	}
	return ops, nil
}

func buildBody(fn Function) (*mir.Body, error) {
	if fn.Name == "" {
		return nil, fmt.Errorf("%w: function without a name", ErrSyntax)
	}
	b := &builder{fn: fn.Name, maxLocal: mir.Local(fn.Args)}
	body := mir.NewBody(fn.Name, fn.Args)

	for _, blk := range fn.Blocks {
		data := &mir.BasicBlockData{}
		for _, s := range blk.Statements {
			st, err := b.statement(s)
			if err != nil {
				return nil, err
			}
			data.Statements = append(data.Statements, st)
		}
		term, err := b.terminator(blk.Terminator)
		if err != nil {
			return nil, err
		}
		data.Terminator = term
		body.AddBlock(data)
	}

	body.LocalCount = int(b.maxLocal) + 1
	if fn.Locals > body.LocalCount {
		body.LocalCount = fn.Locals
	}
	return body, nil
}

func (b *builder) statement(s Statement) (mir.Statement, error) {
	switch strings.ToLower(s.Kind) {
	case "assign":
		p, err := b.place(s.line, s.Place)
		if err != nil {
			return nil, err
		}
		if s.Rvalue == nil {
			return nil, b.errorf(s.line, "assign to %s without rvalue", p)
		}
		rv, err := b.rvalue(*s.Rvalue)
		if err != nil {
			return nil, err
		}
		return mir.Assign{Place: p, Rvalue: rv}, nil
	case "set_discriminant":
		p, err := b.place(s.line, s.Place)
		if err != nil {
			return nil, err
		}
		return mir.SetDiscriminant{Place: p, Variant: s.Variant}, nil
	case "storage_live":
		b.see(mir.Local(s.Local))
		return mir.StorageLive{Local: mir.Local(s.Local)}, nil
	case "storage_dead":
		b.see(mir.Local(s.Local))
		return mir.StorageDead{Local: mir.Local(s.Local)}, nil
	case "fake_read":
		p, err := b.place(s.line, s.Place)
		if err != nil {
			return nil, err
		}
		return mir.FakeRead{Place: p}, nil
	case "ascribe_user_type":
		p, err := b.place(s.line, s.Place)
		if err != nil {
			return nil, err
		}
		return mir.AscribeUserType{Place: p, Type: s.Type}, nil
	case "retag":
		p, err := b.place(s.line, s.Place)
		if err != nil {
			return nil, err
		}
		return mir.Retag{Place: p}, nil
	case "coverage":
		return mir.Coverage{Counter: s.Counter}, nil
	case "nop":
		return mir.Nop{}, nil
	case "llvm_asm":
		st := mir.LlvmInlineAsm{Template: s.Template}
		for _, o := range s.Outputs {
			p, err := b.place(s.line, o)
			if err != nil {
				return nil, err
			}
			st.Outputs = append(st.Outputs, p)
		}
		ins, err := b.operands(s.line, s.Inputs)
		if err != nil {
			return nil, err
		}
		st.Inputs = ins
		return st, nil
	case "copy_nonoverlapping":
		src, err := b.operand(s.line, s.Src)
		if err != nil {
			return nil, err
		}
		dst, err := b.operand(s.line, s.Dst)
		if err != nil {
			return nil, err
		}
		count, err := b.operand(s.line, s.Count)
		if err != nil {
			return nil, err
		}
		return mir.CopyNonOverlapping{Src: src, Dst: dst, Count: count}, nil
	}
	return nil, b.errorf(s.line, "unknown statement kind %q", s.Kind)
}

func (b *builder) rvalue(r Rvalue) (mir.Rvalue, error) {
	switch strings.ToLower(r.Kind) {
	case "use":
		op, err := b.operand(r.line, r.Operand)
		if err != nil {
			return nil, err
		}
		return mir.Use{Operand: op}, nil
	case "repeat":
		op, err := b.operand(r.line, r.Operand)
		if err != nil {
			return nil, err
		}
		return mir.Repeat{Operand: op, Count: r.Count}, nil
	case "ref":
		p, err := b.place(r.line, r.Place)
		if err != nil {
			return nil, err
		}
		kind := mir.BorrowShared
		if r.Mutable {
			kind = mir.BorrowMut
		}
		return mir.Ref{Kind: kind, Place: p}, nil
	case "thread_local_ref":
		return mir.ThreadLocalRef{Symbol: r.Symbol}, nil
	case "address_of":
		p, err := b.place(r.line, r.Place)
		if err != nil {
			return nil, err
		}
		return mir.AddressOf{Mutable: r.Mutable, Place: p}, nil
	case "len":
		p, err := b.place(r.line, r.Place)
		if err != nil {
			return nil, err
		}
		return mir.Len{Place: p}, nil
	case "cast":
		op, err := b.operand(r.line, r.Operand)
		if err != nil {
			return nil, err
		}
		kind := mir.CastMisc
		if r.Pointer {
			kind = mir.CastPointer
		}
		return mir.Cast{Kind: kind, Operand: op, Type: r.Type}, nil
	case "binary_op", "checked_binary_op":
		op, ok := mir.ParseBinOp(r.Op)
		if !ok {
			return nil, b.errorf(r.line, "unknown binary operator %q", r.Op)
		}
		left, err := b.operand(r.line, r.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.operand(r.line, r.Right)
		if err != nil {
			return nil, err
		}
		if strings.ToLower(r.Kind) == "checked_binary_op" {
			return mir.CheckedBinaryOp{Op: op, Left: left, Right: right}, nil
		}
		return mir.BinaryOp{Op: op, Left: left, Right: right}, nil
	case "nullary_op":
		op := mir.NullSizeOf
		if strings.EqualFold(r.Op, "box") {
			op = mir.NullBox
		}
		return mir.NullaryOp{Op: op, Type: r.Type}, nil
	case "unary_op":
		op := mir.UnNot
		switch strings.ToLower(r.Op) {
		case "not":
		case "neg":
			op = mir.UnNeg
		default:
			return nil, b.errorf(r.line, "unknown unary operator %q", r.Op)
		}
		operand, err := b.operand(r.line, r.Operand)
		if err != nil {
			return nil, err
		}
		return mir.UnaryOp{Op: op, Operand: operand}, nil
	case "discriminant":
		p, err := b.place(r.line, r.Place)
		if err != nil {
			return nil, err
		}
		return mir.Discriminant{Place: p}, nil
	case "aggregate":
		ops, err := b.operands(r.line, r.Operands)
		if err != nil {
			return nil, err
		}
		return mir.Aggregate{Kind: mir.AggregateKind{Name: r.Name, Variant: r.Variant}, Operands: ops}, nil
	}
	return nil, b.errorf(r.line, "unknown rvalue kind %q", r.Kind)
}

func blockRef(b *int) *mir.BasicBlock {
	if b == nil {
		return nil
	}
	v := mir.BasicBlock(*b)
	return &v
}

func (b *builder) required(line int, field string, v *int) (mir.BasicBlock, error) {
	if v == nil {
		return 0, b.errorf(line, "missing %s", field)
	}
	return mir.BasicBlock(*v), nil
}

func (b *builder) terminator(t Terminator) (mir.Terminator, error) {
	switch strings.ToLower(t.Kind) {
	case "goto":
		target, err := b.required(t.line, "target", t.Target)
		if err != nil {
			return nil, err
		}
		return mir.Goto{Target: target}, nil

	case "switch_int":
		discr, err := b.operand(t.line, t.Discr)
		if err != nil {
			return nil, err
		}
		if len(t.Values) != len(t.Targets) {
			return nil, b.errorf(t.line, "switch_int has %d values but %d targets", len(t.Values), len(t.Targets))
		}
		otherwise, err := b.required(t.line, "otherwise", t.Otherwise)
		if err != nil {
			return nil, err
		}
		targets := make([]mir.BasicBlock, 0, len(t.Targets)+1)
		for _, target := range t.Targets {
			targets = append(targets, mir.BasicBlock(target))
		}
		targets = append(targets, otherwise)
		values := append([]int64(nil), t.Values...)
		return mir.SwitchInt{Discr: discr, Targets: mir.SwitchTargets{Values: values, Targets: targets}}, nil

	case "resume":
		return mir.Resume{}, nil
	case "abort":
		return mir.Abort{}, nil
	case "return":
		return mir.Return{}, nil
	case "unreachable":
		return mir.Unreachable{}, nil
	case "generator_drop":
		return mir.GeneratorDrop{}, nil

	case "drop":
		p, err := b.place(t.line, t.Place)
		if err != nil {
			return nil, err
		}
		target, err := b.required(t.line, "target", t.Target)
		if err != nil {
			return nil, err
		}
		return mir.Drop{Place: p, Target: target, Unwind: blockRef(t.Unwind)}, nil

	case "drop_and_replace":
		p, err := b.place(t.line, t.Place)
		if err != nil {
			return nil, err
		}
		value, err := b.operand(t.line, t.Value)
		if err != nil {
			return nil, err
		}
		target, err := b.required(t.line, "target", t.Target)
		if err != nil {
			return nil, err
		}
		return mir.DropAndReplace{Place: p, Value: value, Target: target, Unwind: blockRef(t.Unwind)}, nil

	case "call":
		args, err := b.operands(t.line, t.Args)
		if err != nil {
			return nil, err
		}
		call := mir.Call{Symbol: t.Func, Args: args, Cleanup: blockRef(t.Cleanup)}
		if t.Dest != "" {
			p, err := b.place(t.line, t.Dest)
			if err != nil {
				return nil, err
			}
			target, err := b.required(t.line, "target", t.Target)
			if err != nil {
				return nil, err
			}
			call.Destination = &mir.CallDest{Place: p, Target: target}
		}
		return call, nil

	case "assert":
		cond, err := b.operand(t.line, t.Cond)
		if err != nil {
			return nil, err
		}
		target, err := b.required(t.line, "target", t.Target)
		if err != nil {
			return nil, err
		}
		expected := true
		if t.Expected != nil {
			expected = *t.Expected
		}
		return mir.Assert{Cond: cond, Expected: expected, Msg: t.Msg, Target: target, Cleanup: blockRef(t.Cleanup)}, nil

	case "yield":
		value, err := b.operand(t.line, t.Value)
		if err != nil {
			return nil, err
		}
		resume, err := b.required(t.line, "resume", t.Resume)
		if err != nil {
			return nil, err
		}
		arg, err := b.place(t.line, t.ResumeArg)
		if err != nil {
			return nil, err
		}
		return mir.Yield{Value: value, Resume: resume, ResumeArg: arg, Drop: blockRef(t.Drop)}, nil

	case "false_edge":
		realTarget, err := b.required(t.line, "real", t.Real)
		if err != nil {
			return nil, err
		}
		imaginary, err := b.required(t.line, "imaginary", t.Imaginary)
		if err != nil {
			return nil, err
		}
		return mir.FalseEdge{RealTarget: realTarget, ImaginaryTarget: imaginary}, nil

	case "false_unwind":
		realTarget, err := b.required(t.line, "real", t.Real)
		if err != nil {
			return nil, err
		}
		return mir.FalseUnwind{RealTarget: realTarget, Unwind: blockRef(t.Unwind)}, nil

	case "inline_asm":
		return mir.InlineAsm{Template: t.Template, Destination: blockRef(t.Target)}, nil

	case "":
		return nil, b.errorf(t.line, "block without terminator")
	}
	return nil, b.errorf(t.line, "unknown terminator kind %q", t.Kind)
}
