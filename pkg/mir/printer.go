// MIR printing, in a format close to rustc's -Zdump-mir output
package mir

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs MIR bodies as text
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new MIR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every body, separated by blank lines
func (p *Printer) PrintProgram(prog *Program) {
	for i, body := range prog.Bodies {
		p.PrintBody(body)
		if i < len(prog.Bodies)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

// PrintBody prints a function body with its blocks in id order
func (p *Printer) PrintBody(body *Body) {
	fmt.Fprintf(p.w, "fn %s(", body.Name)
	for i := 1; i <= body.ArgCount; i++ {
		if i > 1 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, Local(i))
	}
	fmt.Fprintln(p.w, ") {")

	for id, blk := range body.Blocks {
		if id > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "    %s: {\n", BasicBlock(id))
		for _, s := range blk.Statements {
			fmt.Fprintf(p.w, "        %s;\n", FormatStatement(s))
		}
		if blk.Terminator != nil {
			fmt.Fprintf(p.w, "        %s;\n", FormatTerminator(blk.Terminator))
		}
		fmt.Fprintln(p.w, "    }")
	}
	fmt.Fprintln(p.w, "}")
}

// FormatOperand renders an operand
func FormatOperand(op Operand) string {
	switch o := op.(type) {
	case Copy:
		return "copy " + o.Place.String()
	case Move:
		return "move " + o.Place.String()
	case Constant:
		return fmt.Sprintf("const %d", o.Value)
	}
	return "???"
}

func formatOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = FormatOperand(op)
	}
	return strings.Join(parts, ", ")
}

// FormatRvalue renders an rvalue
func FormatRvalue(rv Rvalue) string {
	switch r := rv.(type) {
	case Use:
		return FormatOperand(r.Operand)
	case Repeat:
		return fmt.Sprintf("[%s; %d]", FormatOperand(r.Operand), r.Count)
	case Ref:
		if r.Kind == BorrowMut {
			return "&mut " + r.Place.String()
		}
		return "&" + r.Place.String()
	case ThreadLocalRef:
		return fmt.Sprintf("thread_local(%s)", r.Symbol)
	case AddressOf:
		if r.Mutable {
			return "&raw mut " + r.Place.String()
		}
		return "&raw const " + r.Place.String()
	case Len:
		return fmt.Sprintf("Len(%s)", r.Place)
	case Cast:
		kind := "Misc"
		if r.Kind == CastPointer {
			kind = "Pointer"
		}
		return fmt.Sprintf("%s as %s (%s)", FormatOperand(r.Operand), r.Type, kind)
	case BinaryOp:
		return fmt.Sprintf("%s(%s, %s)", r.Op, FormatOperand(r.Left), FormatOperand(r.Right))
	case CheckedBinaryOp:
		return fmt.Sprintf("Checked%s(%s, %s)", r.Op, FormatOperand(r.Left), FormatOperand(r.Right))
	case NullaryOp:
		return fmt.Sprintf("%s(%s)", r.Op, r.Type)
	case UnaryOp:
		return fmt.Sprintf("%s(%s)", r.Op, FormatOperand(r.Operand))
	case Discriminant:
		return fmt.Sprintf("discriminant(%s)", r.Place)
	case Aggregate:
		if r.Kind.Name == "" {
			return fmt.Sprintf("(%s)", formatOperands(r.Operands))
		}
		return fmt.Sprintf("%s#%d(%s)", r.Kind.Name, r.Kind.Variant, formatOperands(r.Operands))
	}
	return "???"
}

// FormatStatement renders a statement without the trailing semicolon
func FormatStatement(s Statement) string {
	switch st := s.(type) {
	case Assign:
		return fmt.Sprintf("%s = %s", st.Place, FormatRvalue(st.Rvalue))
	case SetDiscriminant:
		return fmt.Sprintf("discriminant(%s) = %d", st.Place, st.Variant)
	case StorageLive:
		return fmt.Sprintf("StorageLive(%s)", st.Local)
	case StorageDead:
		return fmt.Sprintf("StorageDead(%s)", st.Local)
	case FakeRead:
		return fmt.Sprintf("FakeRead(%s)", st.Place)
	case AscribeUserType:
		return fmt.Sprintf("AscribeUserType(%s, %s)", st.Place, st.Type)
	case Retag:
		return fmt.Sprintf("Retag(%s)", st.Place)
	case Coverage:
		return fmt.Sprintf("Coverage(%d)", st.Counter)
	case Nop:
		return "nop"
	case LlvmInlineAsm:
		return fmt.Sprintf("llvm_asm!(%q)", st.Template)
	case CopyNonOverlapping:
		return fmt.Sprintf("copy_nonoverlapping(src=%s, dst=%s, count=%s)",
			FormatOperand(st.Src), FormatOperand(st.Dst), FormatOperand(st.Count))
	}
	return "???"
}

func withUnwind(target BasicBlock, label string, unwind *BasicBlock) string {
	if unwind == nil {
		return target.String()
	}
	return fmt.Sprintf("[return: %s, %s: %s]", target, label, *unwind)
}

// FormatTerminator renders a terminator without the trailing semicolon
func FormatTerminator(t Terminator) string {
	switch term := t.(type) {
	case Goto:
		return fmt.Sprintf("goto -> %s", term.Target)
	case SwitchInt:
		var arms []string
		for i, v := range term.Targets.Values {
			arms = append(arms, fmt.Sprintf("%d: %s", v, term.Targets.Targets[i]))
		}
		if n := len(term.Targets.Targets); n > 0 {
			arms = append(arms, fmt.Sprintf("otherwise: %s", term.Targets.Targets[n-1]))
		}
		return fmt.Sprintf("switchInt(%s) -> [%s]", FormatOperand(term.Discr), strings.Join(arms, ", "))
	case Resume:
		return "resume"
	case Abort:
		return "abort"
	case Return:
		return "return"
	case Unreachable:
		return "unreachable"
	case Drop:
		return fmt.Sprintf("drop(%s) -> %s", term.Place, withUnwind(term.Target, "unwind", term.Unwind))
	case DropAndReplace:
		return fmt.Sprintf("replace(%s <- %s) -> %s", term.Place, FormatOperand(term.Value),
			withUnwind(term.Target, "unwind", term.Unwind))
	case Call:
		callee := term.Symbol
		if callee == "" && term.Func != nil {
			callee = FormatOperand(term.Func)
		}
		call := fmt.Sprintf("%s(%s)", callee, formatOperands(term.Args))
		if term.Destination == nil {
			if term.Cleanup != nil {
				return fmt.Sprintf("%s -> unwind %s", call, *term.Cleanup)
			}
			return call
		}
		return fmt.Sprintf("%s = %s -> %s", term.Destination.Place, call,
			withUnwind(term.Destination.Target, "unwind", term.Cleanup))
	case Assert:
		cond := FormatOperand(term.Cond)
		if !term.Expected {
			cond = "!" + cond
		}
		return fmt.Sprintf("assert(%s, %q) -> %s", cond, term.Msg, withUnwind(term.Target, "unwind", term.Cleanup))
	case Yield:
		if term.Drop == nil {
			return fmt.Sprintf("%s = yield(%s) -> %s", term.ResumeArg, FormatOperand(term.Value), term.Resume)
		}
		return fmt.Sprintf("%s = yield(%s) -> [resume: %s, drop: %s]", term.ResumeArg,
			FormatOperand(term.Value), term.Resume, *term.Drop)
	case GeneratorDrop:
		return "generator_drop"
	case FalseEdge:
		return fmt.Sprintf("falseEdge -> [real: %s, imaginary: %s]", term.RealTarget, term.ImaginaryTarget)
	case FalseUnwind:
		if term.Unwind == nil {
			return fmt.Sprintf("falseUnwind -> %s", term.RealTarget)
		}
		return fmt.Sprintf("falseUnwind -> [real: %s, cleanup: %s]", term.RealTarget, *term.Unwind)
	case InlineAsm:
		if term.Destination == nil {
			return fmt.Sprintf("asm!(%q)", term.Template)
		}
		return fmt.Sprintf("asm!(%q) -> %s", term.Template, *term.Destination)
	}
	return "???"
}
