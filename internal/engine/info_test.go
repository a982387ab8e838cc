package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

func TestInfoString(t *testing.T) {
	info := Info{
		Depth:    12,
		SelDepth: 18,
		MultiPV:  1,
		Score:    ScoreCP(34),
		Nodes:    123456,
		NPS:      1000000,
		Time:     1500 * time.Millisecond,
		PV:       []board.Move{board.NewMove(board.E2, board.E4)},
	}

	s := info.String()
	for _, want := range []string{
		"depth 12", "seldepth 18", "multipv 1", "score cp 34",
		"nodes 123456", "nps 1000000", "time 1500", "pv e2e4",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("info line missing %q: %s", want, s)
		}
	}
}

func TestInfoStringBounds(t *testing.T) {
	score := ScoreCP(50)
	score.LowerBound = true
	s := Info{Depth: 5, Score: score}.String()
	if !strings.Contains(s, "score cp 50 lowerbound") {
		t.Errorf("lowerbound missing: %s", s)
	}

	mate := ScoreMate(-3)
	s = Info{Depth: 5, Score: mate}.String()
	if !strings.Contains(s, "score mate -3") {
		t.Errorf("mate score wrong: %s", s)
	}
}

func TestInfoCurrMove(t *testing.T) {
	info := Info{Depth: 9, CurrMove: board.NewMove(board.G1, board.F3), CurrMoveNumber: 4}
	s := info.String()
	if s != "depth 9 currmove g1f3 currmovenumber 4" {
		t.Errorf("currmove line = %q", s)
	}
}

func TestScoreFromInternalMate(t *testing.T) {
	if s := scoreFromInternal(Mate - 3); !s.IsMate || s.MateIn != 2 {
		t.Errorf("mate-in-3-plies = %+v, want mate 2", s)
	}
	if s := scoreFromInternal(-(Mate - 4)); !s.IsMate || s.MateIn != -2 {
		t.Errorf("mated-in-4-plies = %+v, want mate -2", s)
	}
	if s := scoreFromInternal(124); s.IsMate || s.CP != 100 {
		t.Errorf("one pawn should normalize to 100cp, got %+v", s)
	}
}

func TestWDLStats(t *testing.T) {
	wdl := wdlStats(0, 30)
	sum := wdl[0] + wdl[1] + wdl[2]
	if sum != 1000 {
		t.Errorf("wdl does not sum to 1000: %v", wdl)
	}
	if wdl[0] != wdl[2] {
		t.Errorf("symmetric score gives asymmetric wdl: %v", wdl)
	}

	winning := wdlStats(500, 30)
	if winning[0] <= winning[2] {
		t.Errorf("winning score should favor wins: %v", winning)
	}
}
