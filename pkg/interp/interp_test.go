package interp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-mir/pkg/mir"
	"github.com/raymyers/ralph-mir/pkg/mirload"
)

func mustParse(t *testing.T, input string) *mir.Body {
	t.Helper()
	prog, err := mirload.Parse([]byte(input))
	if err != nil {
		t.Fatalf("mirload.Parse: %v", err)
	}
	return prog.Bodies[0]
}

const absInput = `
functions:
  - name: abs
    args: 1
    blocks:
      - statements:
          - {kind: assign, place: _2, rvalue: {kind: binary_op, op: Lt, left: copy _1, right: const 0}}
        terminator: {kind: switch_int, discr: move _2, values: [0], targets: [2], otherwise: 1}
      - statements:
          - {kind: assign, place: _0, rvalue: {kind: unary_op, op: neg, operand: copy _1}}
        terminator: {kind: goto, target: 3}
      - statements:
          - {kind: assign, place: _0, rvalue: copy _1}
        terminator: {kind: goto, target: 3}
      - terminator: {kind: return}
`

func TestEvalBranches(t *testing.T) {
	body := mustParse(t, absInput)
	var in Interp
	for _, tt := range []struct {
		arg  int64
		want int64
		path []mir.BasicBlock
	}{
		{-4, 4, []mir.BasicBlock{0, 1, 3}},
		{5, 5, []mir.BasicBlock{0, 2, 3}},
		{0, 0, []mir.BasicBlock{0, 2, 3}},
	} {
		res, err := in.Eval(body, tt.arg)
		if err != nil {
			t.Fatalf("Eval(%d): %v", tt.arg, err)
		}
		if res.Return != tt.want {
			t.Errorf("Eval(%d) = %d, want %d", tt.arg, res.Return, tt.want)
		}
		if diff := cmp.Diff(tt.path, res.Path); diff != "" {
			t.Errorf("Eval(%d) path mismatch (-want +got):\n%s", tt.arg, diff)
		}
		if res.Steps != len(tt.path) {
			t.Errorf("Steps = %d, want %d", res.Steps, len(tt.path))
		}
	}
}

func TestEvalEnums(t *testing.T) {
	body := mustParse(t, `
functions:
  - name: enums
    args: 1
    blocks:
      - statements:
          - {kind: assign, place: "_2@1.0", rvalue: copy _1}
          - {kind: set_discriminant, place: _2, variant: 1}
          - {kind: assign, place: _3, rvalue: {kind: discriminant, place: _2}}
        terminator: {kind: switch_int, discr: move _3, values: [1], targets: [1], otherwise: 2}
      - statements:
          - {kind: assign, place: _0, rvalue: {kind: aggregate, name: Option, variant: 1, operands: ["copy _2@1.0"]}}
        terminator: {kind: return}
      - terminator: {kind: unreachable}
`)
	var in Interp
	res, err := in.Eval(body, 42)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if res.Return != 42 || res.Discriminant != 1 {
		t.Errorf("Eval = %d#%d, want 42#1", res.Return, res.Discriminant)
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		op   mir.BinOp
		a, b int64
		want int64
	}{
		{mir.BinAdd, 2, 3, 5},
		{mir.BinSub, 2, 3, -1},
		{mir.BinMul, 4, 3, 12},
		{mir.BinDiv, 7, 2, 3},
		{mir.BinRem, 7, 2, 1},
		{mir.BinBitXor, 6, 3, 5},
		{mir.BinBitAnd, 6, 3, 2},
		{mir.BinBitOr, 6, 3, 7},
		{mir.BinShl, 1, 4, 16},
		{mir.BinShr, 16, 2, 4},
		{mir.BinEq, 3, 3, 1},
		{mir.BinNe, 3, 3, 0},
		{mir.BinLt, 2, 3, 1},
		{mir.BinLe, 3, 3, 1},
		{mir.BinGe, 2, 3, 0},
		{mir.BinGt, 4, 3, 1},
		{mir.BinOffset, 8, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := binary(tt.op, tt.a, tt.b)
			if err != nil {
				t.Fatalf("binary: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s(%d, %d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
			}
		})
	}

	for _, op := range []mir.BinOp{mir.BinDiv, mir.BinRem} {
		if _, err := binary(op, 1, 0); !errors.Is(err, ErrDivideByZero) {
			t.Errorf("%s by zero error = %v", op, err)
		}
	}
}

func TestEvalCalls(t *testing.T) {
	body := mustParse(t, `
functions:
  - name: calls
    args: 1
    blocks:
      - terminator: {kind: call, func: double, args: [copy _1], dest: _2, target: 1}
      - terminator: {kind: call, func: record, args: [copy _2, const 7], dest: _0, target: 2}
      - terminator: {kind: return}
`)
	in := Interp{Calls: map[string]Func{
		"double": func(args []int64) int64 { return args[0] * 2 },
	}}
	res, err := in.Eval(body, 5)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := []Effect{
		{Symbol: "double", Args: []int64{5}, Result: 10},
		{Symbol: "record", Args: []int64{10, 7}, Result: 0},
	}
	if diff := cmp.Diff(want, res.Effects); diff != "" {
		t.Errorf("Effects mismatch (-want +got):\n%s", diff)
	}
	if got := res.Effects[1].String(); got != "record(10, 7) = 0" {
		t.Errorf("Effect.String() = %q", got)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"unreachable", "functions:\n  - name: f\n    blocks: [{terminator: {kind: unreachable}}]", ErrUnreachable},
		{"abort", "functions:\n  - name: f\n    blocks: [{terminator: {kind: abort}}]", ErrUnreachable},
		{"assert", "functions:\n  - name: f\n    blocks:\n      - terminator: {kind: assert, cond: const 0, msg: boom, target: 1}\n      - terminator: {kind: return}", ErrAssert},
		{"diverging call", "functions:\n  - name: f\n    blocks: [{terminator: {kind: call, func: exit}}]", ErrUnsupported},
		{"yield", "functions:\n  - name: f\n    blocks:\n      - terminator: {kind: yield, value: const 1, resume: 1, resume_arg: _1}\n      - terminator: {kind: return}", ErrUnsupported},
		{"loop", "functions:\n  - name: f\n    blocks: [{terminator: {kind: goto, target: 0}}]", ErrStepLimit},
		{"divide", "functions:\n  - name: f\n    blocks:\n      - statements: [{kind: assign, place: _0, rvalue: {kind: binary_op, op: Div, left: const 1, right: const 0}}]\n        terminator: {kind: return}", ErrDivideByZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mustParse(t, tt.input)
			in := Interp{MaxSteps: 50}
			_, err := in.Eval(body)
			if !errors.Is(err, tt.want) {
				t.Errorf("Eval error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvalEmptyBody(t *testing.T) {
	var in Interp
	if _, err := in.Eval(mir.NewBody("empty", 0)); !errors.Is(err, ErrUnreachable) {
		t.Errorf("Eval error = %v", err)
	}
}

func TestEvalTrace(t *testing.T) {
	var buf bytes.Buffer
	in := Interp{Trace: &buf}
	if _, err := in.Eval(mustParse(t, absInput), 3); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	for _, exp := range []string{"abs: enter bb0", "abs: enter bb2", "abs: enter bb3"} {
		if !strings.Contains(buf.String(), exp) {
			t.Errorf("Expected trace to contain %q, got:\n%s", exp, buf.String())
		}
	}
}

func TestEvalReferencesAreStable(t *testing.T) {
	body := mustParse(t, `
functions:
  - name: refs
    args: 0
    blocks:
      - statements:
          - {kind: assign, place: _1, rvalue: {kind: ref, place: _5}}
          - {kind: assign, place: _2, rvalue: {kind: ref, place: _5}}
          - {kind: assign, place: _0, rvalue: {kind: binary_op, op: Eq, left: copy _1, right: copy _2}}
        terminator: {kind: return}
`)
	var in Interp
	res, err := in.Eval(body)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if res.Return != 1 {
		t.Errorf("references to the same place differ")
	}
}
