package eval

import (
	"testing"

	"github.com/kestrelchess/kestrel/internal/board"
)

func TestStartingPositionIsBalanced(t *testing.T) {
	pos := board.NewPosition()
	v := Evaluate(pos)

	// Symmetric material and placement: only the tempo term and a small
	// mobility asymmetry should remain.
	if v < 0 || v > 2*Tempo+50 {
		t.Errorf("starting position evaluated at %d", v)
	}
}

func TestSideToMoveSymmetry(t *testing.T) {
	// The same position from the other side differs only by tempo terms.
	white := mustParse(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	black := mustParse(t, "rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3")

	wv := Evaluate(white)
	bv := Evaluate(black)
	if diff := wv - bv; diff < -5 || diff > 5 {
		t.Errorf("mirrored positions diverge: white %d, black %d", wv, bv)
	}
}

func TestMaterialDominates(t *testing.T) {
	// White is up a queen.
	pos := mustParse(t, "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if v := Evaluate(pos); v < 800 {
		t.Errorf("queen-up position evaluated at only %d", v)
	}

	// And from the losing side's view.
	pos = mustParse(t, "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	if v := Evaluate(pos); v > -800 {
		t.Errorf("queen-down position evaluated at %d", v)
	}
}

func mustParse(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}
	return pos
}
