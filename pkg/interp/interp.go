// Package interp is a reference interpreter for MIR bodies. Every place
// holds a single int64; enum tags live in a separate table. It exists to
// check that CFG transformations preserve observable behaviour.
package interp

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

var (
	// ErrStepLimit is returned when execution exceeds Interp.MaxSteps blocks
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrAssert is returned when an assert terminator fails
	ErrAssert = errors.New("assertion failed")
	// ErrUnreachable is returned on reaching unreachable, abort or resume
	ErrUnreachable = errors.New("reached a terminal block")
	// ErrUnsupported is returned for terminators the interpreter cannot run
	ErrUnsupported = errors.New("unsupported terminator")
	// ErrDivideByZero is returned by division or remainder by zero
	ErrDivideByZero = errors.New("division by zero")
)

// DefaultMaxSteps bounds execution when Interp.MaxSteps is zero
const DefaultMaxSteps = 10000

// Func implements a callee for call terminators
type Func func(args []int64) int64

// Interp evaluates bodies. The zero value is usable.
type Interp struct {
	MaxSteps int
	Calls    map[string]Func
	Trace    io.Writer
}

// Effect is an observable call made during evaluation
type Effect struct {
	Symbol string
	Args   []int64
	Result int64
}

func (e Effect) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s(%s) = %d", e.Symbol, strings.Join(args, ", "), e.Result)
}

// Result is the outcome of one evaluation. Discriminant is the tag of _0.
type Result struct {
	Return       int64
	Discriminant int64
	Steps        int
	Path         []mir.BasicBlock
	Effects      []Effect
}

type frame struct {
	vals  map[string]int64
	discr map[string]int64
}

func (f *frame) read(p mir.Place) int64 { return f.vals[p.Key()] }

func (f *frame) write(p mir.Place, v int64) { f.vals[p.Key()] = v }

func (f *frame) operand(op mir.Operand) int64 {
	switch o := op.(type) {
	case mir.Constant:
		return o.Value
	case mir.Copy:
		return f.read(o.Place)
	case mir.Move:
		return f.read(o.Place)
	}
	return 0
}

// Eval runs body from bb0 with args bound to _1.._n
func (in *Interp) Eval(body *mir.Body, args ...int64) (Result, error) {
	var res Result
	if len(body.Blocks) == 0 {
		return res, fmt.Errorf("%s: %w: empty body", body.Name, ErrUnreachable)
	}
	maxSteps := in.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}

	f := &frame{vals: make(map[string]int64), discr: make(map[string]int64)}
	for i, a := range args {
		f.write(mir.LocalPlace(mir.Local(i+1)), a)
	}

	cur := mir.BasicBlock(0)
	for {
		if res.Steps >= maxSteps {
			return res, fmt.Errorf("%s: %w (%d)", body.Name, ErrStepLimit, maxSteps)
		}
		blk := body.Block(cur)
		if blk == nil {
			return res, fmt.Errorf("%s: jump to missing block %s", body.Name, cur)
		}
		res.Steps++
		res.Path = append(res.Path, cur)
		if in.Trace != nil {
			fmt.Fprintf(in.Trace, "%s: enter %s\n", body.Name, cur)
		}

		for _, s := range blk.Statements {
			if err := in.statement(f, s); err != nil {
				return res, fmt.Errorf("%s: %s: %w", body.Name, cur, err)
			}
		}

		next, done, err := in.terminator(f, blk.Terminator, &res)
		if err != nil {
			return res, fmt.Errorf("%s: %s: %w", body.Name, cur, err)
		}
		if done {
			res.Return = f.read(mir.LocalPlace(mir.ReturnPlace))
			res.Discriminant = f.discr[mir.LocalPlace(mir.ReturnPlace).Key()]
			return res, nil
		}
		cur = next
	}
}

func (in *Interp) statement(f *frame, s mir.Statement) error {
	switch st := s.(type) {
	case mir.Assign:
		return in.assign(f, st.Place, st.Rvalue)
	case mir.SetDiscriminant:
		f.discr[st.Place.Key()] = int64(st.Variant)
	case mir.CopyNonOverlapping:
		if p, ok := mir.PlaceOf(st.Dst); ok {
			f.write(p, f.operand(st.Src))
		}
	case mir.LlvmInlineAsm:
		for _, out := range st.Outputs {
			f.write(out, 0)
		}
	case mir.StorageLive, mir.StorageDead, mir.FakeRead, mir.AscribeUserType,
		mir.Retag, mir.Coverage, mir.Nop:
	}
	return nil
}

// pseudoAddress gives references a stable value derived from their target
func pseudoAddress(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() >> 1)
}

func (in *Interp) assign(f *frame, p mir.Place, rv mir.Rvalue) error {
	switch r := rv.(type) {
	case mir.Use:
		f.write(p, f.operand(r.Operand))
	case mir.Repeat:
		f.write(p, f.operand(r.Operand))
	case mir.Ref:
		f.write(p, pseudoAddress("&"+r.Place.Key()))
	case mir.AddressOf:
		f.write(p, pseudoAddress("&raw "+r.Place.Key()))
	case mir.ThreadLocalRef:
		f.write(p, pseudoAddress("tls "+r.Symbol))
	case mir.Len:
		f.write(p, f.read(r.Place.Project(mir.Field{Index: -1})))
	case mir.Cast:
		f.write(p, f.operand(r.Operand))
	case mir.BinaryOp:
		v, err := binary(r.Op, f.operand(r.Left), f.operand(r.Right))
		if err != nil {
			return err
		}
		f.write(p, v)
	case mir.CheckedBinaryOp:
		v, err := binary(r.Op, f.operand(r.Left), f.operand(r.Right))
		if err != nil {
			return err
		}
		f.write(p, v)
		f.write(p.Project(mir.Field{Index: 0}), v)
		f.write(p.Project(mir.Field{Index: 1}), 0)
	case mir.NullaryOp:
		f.write(p, 8)
	case mir.UnaryOp:
		v := f.operand(r.Operand)
		if r.Op == mir.UnNeg {
			f.write(p, -v)
		} else {
			f.write(p, ^v)
		}
	case mir.Discriminant:
		f.write(p, f.discr[r.Place.Key()])
	case mir.Aggregate:
		var first int64
		for i, op := range r.Operands {
			v := f.operand(op)
			if i == 0 {
				first = v
			}
			f.write(p.Project(mir.Field{Index: i}), v)
		}
		f.write(p, first)
		if r.Kind.Name != "" {
			f.discr[p.Key()] = int64(r.Kind.Variant)
		}
	default:
		return fmt.Errorf("unknown rvalue %T", rv)
	}
	return nil
}

func boolVal(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func binary(op mir.BinOp, a, b int64) (int64, error) {
	switch op {
	case mir.BinAdd, mir.BinOffset:
		return a + b, nil
	case mir.BinSub:
		return a - b, nil
	case mir.BinMul:
		return a * b, nil
	case mir.BinDiv:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	case mir.BinRem:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a % b, nil
	case mir.BinBitXor:
		return a ^ b, nil
	case mir.BinBitAnd:
		return a & b, nil
	case mir.BinBitOr:
		return a | b, nil
	case mir.BinShl:
		return a << uint64(b&63), nil
	case mir.BinShr:
		return a >> uint64(b&63), nil
	case mir.BinEq:
		return boolVal(a == b), nil
	case mir.BinLt:
		return boolVal(a < b), nil
	case mir.BinLe:
		return boolVal(a <= b), nil
	case mir.BinNe:
		return boolVal(a != b), nil
	case mir.BinGe:
		return boolVal(a >= b), nil
	case mir.BinGt:
		return boolVal(a > b), nil
	}
	return 0, fmt.Errorf("unknown binary operator %d", op)
}

// terminator returns the next block, or done when the body returned
func (in *Interp) terminator(f *frame, t mir.Terminator, res *Result) (mir.BasicBlock, bool, error) {
	switch term := t.(type) {
	case mir.Goto:
		return term.Target, false, nil
	case mir.SwitchInt:
		return term.Targets.Target(f.operand(term.Discr)), false, nil
	case mir.Return:
		return 0, true, nil
	case mir.Drop:
		return term.Target, false, nil
	case mir.DropAndReplace:
		f.write(term.Place, f.operand(term.Value))
		return term.Target, false, nil
	case mir.Assert:
		if (f.operand(term.Cond) != 0) != term.Expected {
			return 0, false, fmt.Errorf("%w: %s", ErrAssert, term.Msg)
		}
		return term.Target, false, nil
	case mir.Call:
		if term.Destination == nil {
			return 0, false, fmt.Errorf("%w: diverging call to %s", ErrUnsupported, term.Symbol)
		}
		args := make([]int64, len(term.Args))
		for i, a := range term.Args {
			args[i] = f.operand(a)
		}
		var v int64
		if fn, ok := in.Calls[term.Symbol]; ok {
			v = fn(args)
		}
		res.Effects = append(res.Effects, Effect{Symbol: term.Symbol, Args: args, Result: v})
		f.write(term.Destination.Place, v)
		return term.Destination.Target, false, nil
	case mir.FalseEdge:
		return term.RealTarget, false, nil
	case mir.FalseUnwind:
		return term.RealTarget, false, nil
	case mir.Unreachable, mir.Abort, mir.Resume:
		return 0, false, fmt.Errorf("%w: %s", ErrUnreachable, mir.FormatTerminator(t))
	case mir.Yield, mir.GeneratorDrop, mir.InlineAsm:
		return 0, false, fmt.Errorf("%w: %s", ErrUnsupported, mir.FormatTerminator(t))
	}
	return 0, false, fmt.Errorf("%w: %T", ErrUnsupported, t)
}
