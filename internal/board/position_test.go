package board

import "testing"

func mustParse(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}
	return pos
}

func mustMove(t *testing.T, pos *Position, s string) Move {
	t.Helper()
	m, err := ParseMove(s, pos)
	if err != nil {
		t.Fatalf("move %q: %v", s, err)
	}
	return m
}

func TestSeeGe(t *testing.T) {
	cases := []struct {
		name      string
		fen       string
		move      string
		threshold int
		want      bool
	}{
		{"free pawn", "4k3/8/8/4p3/8/8/4R3/4K3 w - - 0 1", "e2e5", 0, true},
		{"free pawn exact", "4k3/8/8/4p3/8/8/4R3/4K3 w - - 0 1", "e2e5", 100, true},
		{"free pawn over", "4k3/8/8/4p3/8/8/4R3/4K3 w - - 0 1", "e2e5", 101, false},
		{"rook takes defended pawn", "4k3/8/3p4/4p3/8/8/4R3/4K3 w - - 0 1", "e2e5", 0, false},
		{"knight takes defended pawn", "4k3/8/3p4/4p3/8/3N4/8/4K3 w - - 0 1", "d3e5", 0, false},
		{"knight trade", "4k3/8/8/4n3/8/3N4/8/4K3 w - - 0 1", "d3e5", 0, true},
		{"knight trade threshold", "4k3/8/8/4n3/8/3N4/8/4K3 w - - 0 1", "d3e5", 300, true},
		{"knight trade over", "4k3/8/8/4n3/8/3N4/8/4K3 w - - 0 1", "d3e5", 326, false},
		{"quiet move to attacked square", "4k3/8/3p4/8/8/8/4R3/4K3 w - - 0 1", "e2e5", 0, false},
		{"quiet move to safe square", "4k3/8/3p4/8/8/8/4R3/4K3 w - - 0 1", "e2e3", 0, true},
	}

	for _, tc := range cases {
		pos := mustParse(t, tc.fen)
		m := mustMove(t, pos, tc.move)
		if got := pos.SeeGe(m, tc.threshold); got != tc.want {
			t.Errorf("%s: SeeGe(%s, %d) = %v, want %v", tc.name, tc.move, tc.threshold, got, tc.want)
		}
	}
}

func TestGivesCheck(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		move string
		want bool
	}{
		{"direct rook check", "4k3/8/8/8/8/8/4R3/4K3 w - - 0 1", "e2e7", true},
		{"no check", "4k3/8/8/8/8/8/4R3/4K3 w - - 0 1", "e2d2", false},
		{"discovered check", "4k3/8/8/8/8/4B3/4R3/4K3 w - - 0 1", "e3c5", true},
		{"knight no check", "4k3/8/8/8/4N3/8/8/4K3 w - - 0 1", "e4c5", false},
		{"knight check", "4k3/8/8/8/4N3/8/8/4K3 w - - 0 1", "e4d6", true},
		{"pawn push check", "3k4/8/4P3/8/8/8/8/4K3 w - - 0 1", "e6e7", true},
		{"promotion check", "3k4/4P3/8/8/8/8/8/4K3 w - - 0 1", "e7e8q", true},
	}

	for _, tc := range cases {
		pos := mustParse(t, tc.fen)
		m := mustMove(t, pos, tc.move)
		got := pos.GivesCheck(m)
		if got != tc.want {
			t.Errorf("%s: GivesCheck(%s) = %v, want %v", tc.name, tc.move, got, tc.want)
		}

		// Cross-check against make/unmake ground truth.
		undo := pos.MakeMove(m)
		if undo.Valid {
			if pos.InCheck() != tc.want {
				t.Errorf("%s: board disagrees, InCheck=%v after %s", tc.name, pos.InCheck(), tc.move)
			}
			pos.UnmakeMove(m, undo)
		}
	}
}

func TestKeyAfterMatchesMake(t *testing.T) {
	pos := NewPosition()

	// A knight move leaves castling rights and en passant untouched, so
	// the incremental key must match the made position exactly.
	m := mustMove(t, pos, "g1f3")
	want := pos.KeyAfter(m)
	undo := pos.MakeMove(m)
	if pos.Hash != want {
		t.Errorf("KeyAfter(g1f3) = %016x, MakeMove produced %016x", want, pos.Hash)
	}
	pos.UnmakeMove(m, undo)
}

func TestHasGameCycle(t *testing.T) {
	pos := NewPosition()
	var keys []uint64

	for _, ms := range []string{"g1f3", "g8f6", "f3g1"} {
		m := mustMove(t, pos, ms)
		keys = append(keys, pos.Hash)
		pos.MakeMove(m)
	}

	// Black can play Ng8 and repeat the starting position.
	if !pos.HasGameCycle(1, keys) {
		t.Error("expected upcoming repetition after knight shuffle")
	}

	// No cycle is available from the start.
	start := NewPosition()
	if start.HasGameCycle(1, nil) {
		t.Error("starting position cannot have a game cycle")
	}
}

func TestBlockersAndDiscovery(t *testing.T) {
	// White bishop on e3 shields the black king on e8 from the e2 rook.
	pos := mustParse(t, "4k3/8/8/8/8/4B3/4R3/4K3 w - - 0 1")

	blockers := pos.BlockersForKing(Black)
	if !blockers.IsSet(E3) {
		t.Error("bishop on e3 should be a blocker for the black king")
	}

	m := mustMove(t, pos, "e3c5")
	if !pos.IsDiscoveryCheckOnKing(Black, m) {
		t.Error("moving the e3 bishop should be a discovered check candidate")
	}
}

func TestPseudoLegalHint(t *testing.T) {
	pos := NewPosition()

	good := mustMove(t, pos, "e2e4")
	if !pos.PseudoLegalHint(good) {
		t.Errorf("e2e4 should pass the pseudo-legality hint")
	}

	// A move from an empty square can never be pseudo-legal.
	if pos.PseudoLegalHint(NewMove(E4, E5)) {
		t.Error("move from empty square accepted")
	}

	// Capturing an own piece is never pseudo-legal.
	if pos.PseudoLegalHint(NewMove(D1, E2)) {
		t.Error("capturing own piece accepted")
	}
}
