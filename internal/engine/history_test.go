package engine

import (
	"testing"

	"github.com/kestrelchess/kestrel/internal/board"
)

func TestGravitySaturates(t *testing.T) {
	var h ButterflyHistory
	m := board.NewMove(board.E2, board.E4)

	for i := 0; i < 10000; i++ {
		h.Update(board.White, m, 2000)
	}
	if got := h.Get(board.White, m); got > mainHistoryMax || got < mainHistoryMax/2 {
		t.Errorf("positive saturation out of range: %d", got)
	}

	for i := 0; i < 20000; i++ {
		h.Update(board.White, m, -2000)
	}
	if got := h.Get(board.White, m); got < -mainHistoryMax || got > -mainHistoryMax/2 {
		t.Errorf("negative saturation out of range: %d", got)
	}
}

func TestLowPlyShiftDown(t *testing.T) {
	var h LowPlyHistory
	m := board.NewMove(board.G1, board.F3)

	h.Update(2, m, 500)
	before := h.Get(2, m)
	if before == 0 {
		t.Fatal("update had no effect")
	}

	h.ShiftDown()

	if got := h.Get(0, m); got != before {
		t.Errorf("ply-2 statistics should move to ply 0: got %d, want %d", got, before)
	}
	if got := h.Get(2, m); got != 0 {
		t.Errorf("ply 2 should be zeroed after shift, got %d", got)
	}
	if got := h.Get(MaxLowPlyHistory-1, m); got != 0 {
		t.Errorf("top ply should be zeroed after shift, got %d", got)
	}
}

func TestContinuationSentinelIsInert(t *testing.T) {
	var ch ContinuationHistory
	s := ch.Sentinel()

	if got := s.Get(board.WhiteKnight, board.F3); got != 0 {
		t.Errorf("sentinel arena not empty: %d", got)
	}

	// Writing through the sentinel must not alias any real arena.
	s.Update(board.WhiteKnight, board.F3, 100)
	if got := ch[0][0][board.WhiteKnight][0].Get(board.WhiteKnight, board.F3); got != 0 {
		t.Errorf("sentinel aliases a live arena: %d", got)
	}
}

func TestCounterMoves(t *testing.T) {
	var cm CounterMoves
	refute := board.NewMove(board.D7, board.D5)

	cm.Update(board.WhitePawn, board.E4, refute)
	if got := cm.Get(board.WhitePawn, board.E4); got != refute {
		t.Errorf("counter move lost: %v", got)
	}
	if got := cm.Get(board.BlackPawn, board.E4); got != board.NoMove {
		t.Errorf("unrelated slot populated: %v", got)
	}
}
