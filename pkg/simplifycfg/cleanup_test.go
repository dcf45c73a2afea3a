package simplifycfg

import (
	"testing"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

func TestRemoveUnreachableEmpty(t *testing.T) {
	body := mir.NewBody("empty", 0)
	if n := RemoveUnreachable(body); n != 0 {
		t.Errorf("removed %d blocks from an empty body", n)
	}
}

func TestRemoveUnreachableKeepsEntry(t *testing.T) {
	// bb0: return
	// Entry block is kept even with no predecessors
	body := newBody(returnBlock())
	if n := RemoveUnreachable(body); n != 0 {
		t.Errorf("removed %d blocks, want 0", n)
	}
	if len(body.Blocks) != 1 {
		t.Errorf("Blocks = %d, want 1", len(body.Blocks))
	}
}

func TestRemoveUnreachableRenumbers(t *testing.T) {
	// bb0: goto bb2
	// bb1: return (unreachable)
	// bb2: drop -> [return: bb4, unwind: bb3]
	// bb3: resume
	// bb4: return
	// => bb1 removed, later blocks shift down by one
	body := newBody(
		gotoBlock(2),
		returnBlock(),
		&mir.BasicBlockData{Terminator: mir.Drop{Place: mir.LocalPlace(1), Target: 4, Unwind: blockRef(3)}},
		&mir.BasicBlockData{Terminator: mir.Resume{}},
		returnBlock(),
	)

	if n := RemoveUnreachable(body); n != 1 {
		t.Fatalf("removed %d blocks, want 1", n)
	}
	if len(body.Blocks) != 4 {
		t.Fatalf("Blocks = %d, want 4", len(body.Blocks))
	}
	if gt := body.Blocks[0].Terminator.(mir.Goto); gt.Target != 1 {
		t.Errorf("Expected goto -> bb1, got %s", gt.Target)
	}
	drop := body.Blocks[1].Terminator.(mir.Drop)
	if drop.Target != 3 || *drop.Unwind != 2 {
		t.Errorf("Expected drop -> [bb3, unwind bb2], got %s", mir.FormatTerminator(drop))
	}
	if _, ok := body.Blocks[2].Terminator.(mir.Resume); !ok {
		t.Errorf("Expected bb2 to be the resume block")
	}
	if err := body.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRemoveUnreachableAfterTunnel(t *testing.T) {
	// bb0: goto bb1
	// bb1: goto bb2
	// bb2: return
	// Tunnel makes bb1 dead; cleanup removes it
	body := newBody(gotoBlock(1), gotoBlock(2), returnBlock())

	Tunnel(body)
	if n := RemoveUnreachable(body); n != 1 {
		t.Fatalf("removed %d blocks, want 1", n)
	}
	if gt := body.Blocks[0].Terminator.(mir.Goto); gt.Target != 1 {
		t.Errorf("Expected goto -> bb1, got %s", gt.Target)
	}
	if _, ok := body.Blocks[1].Terminator.(mir.Return); !ok {
		t.Errorf("Expected bb1 to return")
	}
}

func TestRemoveUnreachablePassName(t *testing.T) {
	if (RemoveUnreachablePass{}).Name() != "remove-unreachable" {
		t.Errorf("unexpected pass name %q", (RemoveUnreachablePass{}).Name())
	}
}
