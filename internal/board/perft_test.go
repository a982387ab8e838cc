package board

import (
	"testing"

	dragon "github.com/dylhunn/dragontoothmg"
)

// Known node counts for the standard perft positions.
var perftCases = []struct {
	name   string
	fen    string
	depths []uint64 // index 0 = depth 1
}{
	{
		name:   "startpos",
		fen:    StartFEN,
		depths: []uint64{20, 400, 8902, 197281, 4865609},
	},
	{
		name:   "kiwipete",
		fen:    "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		depths: []uint64{48, 2039, 97862, 4085603},
	},
	{
		name:   "endgame",
		fen:    "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		depths: []uint64{14, 191, 2812, 43238, 674624},
	},
	{
		name:   "promotions",
		fen:    "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		depths: []uint64{6, 264, 9467, 422333},
	},
	{
		name:   "talkchess",
		fen:    "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		depths: []uint64{44, 1486, 62379, 2103487},
	},
}

func TestPerft(t *testing.T) {
	for _, tc := range perftCases {
		pos, err := ParseFEN(tc.fen)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		maxDepth := len(tc.depths)
		if testing.Short() && maxDepth > 3 {
			maxDepth = 3
		}
		for d := 1; d <= maxDepth; d++ {
			got := pos.Perft(d)
			if got != tc.depths[d-1] {
				t.Errorf("%s perft(%d) = %d, want %d", tc.name, d, got, tc.depths[d-1])
			}
		}
	}
}

// dragonPerft walks the same tree with an independent move generator.
func dragonPerft(b *dragon.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		unapply := b.Apply(m)
		nodes += dragonPerft(b, depth-1)
		unapply()
	}
	return nodes
}

// TestPerftCrossCheck validates the move generator against dragontoothmg
// on positions with castling, pins, en passant and promotions in play.
func TestPerftCrossCheck(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r2q1rk1/pP1p2pp/Q4n2/bbp1p3/Np6/1B3NBn/pPPP1PPP/R3K2R b KQ - 0 1",
		"rnbqkb1r/ppppp1pp/7n/4Pp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	}

	depth := 4
	if testing.Short() {
		depth = 3
	}

	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("%s: %v", fen, err)
		}
		db := dragon.ParseFen(fen)

		want := dragonPerft(&db, depth)
		got := pos.Perft(depth)
		if got != want {
			t.Errorf("perft(%d) mismatch on %q: got %d, oracle says %d", depth, fen, got, want)
		}
	}
}

func TestMakeUnmakeRestoresState(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	before := *pos
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		if !undo.Valid {
			t.Fatalf("legal move %s rejected by MakeMove", m)
		}
		pos.UnmakeMove(m, undo)

		if *pos != before {
			t.Fatalf("state not restored after %s", m)
		}
	}
}
