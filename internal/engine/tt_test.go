package engine

import (
	"testing"

	"github.com/kestrelchess/kestrel/internal/board"
)

func TestTTProbeMissThenHit(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0xDEADBEEFCAFE1234)

	e, hit := tt.Probe(key)
	if hit {
		t.Fatal("probe of empty table reported a hit")
	}

	move := board.NewMove(board.E2, board.E4)
	tt.Save(e, key, 120, true, BoundExact, 8, move, 55)

	e, hit = tt.Probe(key)
	if !hit {
		t.Fatal("expected hit after save")
	}
	if e.Move() != move || e.Value() != 120 || e.Eval() != 55 ||
		e.Bound() != BoundExact || e.Depth() != 8 || !e.IsPV() {
		t.Errorf("stored entry mangled: move=%v value=%d eval=%d bound=%d depth=%d pv=%v",
			e.Move(), e.Value(), e.Eval(), e.Bound(), e.Depth(), e.IsPV())
	}
}

func TestTTMovePreservedOnEmptySave(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x1111222233334444)

	e, _ := tt.Probe(key)
	move := board.NewMove(board.G1, board.F3)
	tt.Save(e, key, 10, false, BoundLower, 6, move, 0)

	// A later save for the same key without a move keeps the old one.
	e, hit := tt.Probe(key)
	if !hit {
		t.Fatal("expected hit")
	}
	tt.Save(e, key, -20, false, BoundUpper, 7, board.NoMove, 0)

	e, hit = tt.Probe(key)
	if !hit {
		t.Fatal("expected hit after overwrite")
	}
	if e.Move() != move {
		t.Errorf("move not preserved: got %v, want %v", e.Move(), move)
	}
	if e.Value() != -20 || e.Bound() != BoundUpper {
		t.Errorf("value/bound not updated: %d %d", e.Value(), e.Bound())
	}
}

func TestTTShallowSaveDoesNotEvictDeep(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x5555666677778888)

	e, _ := tt.Probe(key)
	tt.Save(e, key, 300, false, BoundLower, 20, board.NewMove(board.E2, board.E4), 0)

	e, _ = tt.Probe(key)
	tt.Save(e, key, -300, false, BoundLower, 2, board.NewMove(board.D2, board.D4), 0)

	e, hit := tt.Probe(key)
	if !hit {
		t.Fatal("expected hit")
	}
	if e.Depth() != 20 {
		t.Errorf("shallow save evicted deep entry: depth=%d", e.Depth())
	}

	// An exact bound always writes.
	e, _ = tt.Probe(key)
	tt.Save(e, key, 77, false, BoundExact, 2, board.NewMove(board.D2, board.D4), 0)
	e, _ = tt.Probe(key)
	if e.Depth() != 2 || e.Value() != 77 {
		t.Errorf("exact save did not overwrite: depth=%d value=%d", e.Depth(), e.Value())
	}
}

func TestTTClearAndGenerations(t *testing.T) {
	tt := NewTranspositionTable(1)
	// A key in the hashfull sample range (first thousand clusters).
	key := uint64(0x0123456789AB0000) | 7

	e, _ := tt.Probe(key)
	tt.Save(e, key, 1, false, BoundLower, 5, board.NoMove, 0)

	if tt.Hashfull() == 0 {
		t.Error("hashfull should be non-zero after a save in the sample range")
	}

	// After aging, the old entry no longer counts toward hashfull but is
	// still probeable.
	tt.NewSearch()
	if _, hit := tt.Probe(key); !hit {
		t.Error("entry lost after generation bump")
	}

	tt.Clear()
	if _, hit := tt.Probe(key); hit {
		t.Error("entry survived Clear")
	}
}
