package separateconst

import "github.com/raymyers/ralph-mir/pkg/mir"

func local(n int) mir.Place {
	return mir.LocalPlace(mir.Local(n))
}

func assign(p mir.Place, rv mir.Rvalue) mir.Statement {
	return mir.Assign{Place: p, Rvalue: rv}
}

func use(op mir.Operand) mir.Rvalue {
	return mir.Use{Operand: op}
}

func move(n int) mir.Operand {
	return mir.Move{Place: local(n)}
}

func konst(v int64) mir.Operand {
	return mir.Constant{Value: v}
}

func block(term mir.Terminator, stmts ...mir.Statement) *mir.BasicBlockData {
	return &mir.BasicBlockData{Statements: stmts, Terminator: term}
}

func newBody(blocks ...*mir.BasicBlockData) *mir.Body {
	body := mir.NewBody("test", 1)
	for _, b := range blocks {
		body.AddBlock(b)
	}
	body.LocalCount = 16
	return body
}

func gotoBlock(target int) mir.Terminator {
	return mir.Goto{Target: mir.BasicBlock(target)}
}

// switchOn builds switchInt(move place) -> [values[i]: targets[i], otherwise: last]
func switchOn(p mir.Place, values []int64, targets ...int) mir.SwitchInt {
	bbs := make([]mir.BasicBlock, len(targets))
	for i, t := range targets {
		bbs[i] = mir.BasicBlock(t)
	}
	return mir.SwitchInt{
		Discr:   mir.Move{Place: p},
		Targets: mir.SwitchTargets{Values: values, Targets: bbs},
	}
}

func bbRef(n int) *mir.BasicBlock {
	b := mir.BasicBlock(n)
	return &b
}

// endToEndBody is the two-predecessor scenario:
//
//	bb0: switchInt(copy _1) -> [0: bb1, otherwise: bb2]
//	bb1: discriminant(_4) = 1; _2 = discriminant(_4); goto -> bb3
//	bb2: _2 = Add(copy _5, copy _6); goto -> bb3
//	bb3: switchInt(move _2) -> [0: bb4, 1: bb5, otherwise: bb6]
//	bb4, bb5, bb6: return
func endToEndBody() *mir.Body {
	return newBody(
		block(mir.SwitchInt{
			Discr:   mir.Copy{Place: local(1)},
			Targets: mir.SwitchTargets{Values: []int64{0}, Targets: []mir.BasicBlock{1, 2}},
		}),
		block(gotoBlock(3),
			mir.SetDiscriminant{Place: local(4), Variant: 1},
			assign(local(2), mir.Discriminant{Place: local(4)}),
		),
		block(gotoBlock(3),
			assign(local(2), mir.BinaryOp{Op: mir.BinAdd, Left: mir.Copy{Place: local(5)}, Right: mir.Copy{Place: local(6)}}),
		),
		block(switchOn(local(2), []int64{0, 1}, 4, 5, 6)),
		block(mir.Return{}),
		block(mir.Return{}),
		block(mir.Return{}),
	)
}
