package uci

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kestrelchess/kestrel/internal/board"
	"github.com/kestrelchess/kestrel/internal/engine"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	pool := engine.NewPool(engine.DefaultOptions())
	u := New(pool, zerolog.Nop())
	var out bytes.Buffer
	u.SetOutput(&out)
	return u, &out
}

func TestHandleUCIListsOptions(t *testing.T) {
	u, out := newTestUCI(t)
	u.Handle("uci")

	s := out.String()
	for _, want := range []string{
		"id name Kestrel",
		"option name Hash",
		"option name Threads",
		"option name MultiPV",
		"option name Contempt",
		"option name Analysis Contempt",
		"option name Skill Level",
		"option name UCI_LimitStrength",
		"option name UCI_Elo",
		"option name UCI_ShowWDL",
		"option name SyzygyPath",
		"uciok",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("uci output missing %q", want)
		}
	}
}

func TestPositionAndGoProduceBestmove(t *testing.T) {
	u, out := newTestUCI(t)

	u.Handle("position startpos moves e2e4 e7e5")
	u.Handle("go depth 4")
	u.pool.WaitSearchFinished()

	s := out.String()
	if !strings.Contains(s, "bestmove ") {
		t.Fatalf("no bestmove in output:\n%s", s)
	}
	if !strings.Contains(s, "info depth") {
		t.Error("no info lines emitted")
	}

	// The reported bestmove must be legal in the set position.
	var bestStr string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "bestmove ") {
			bestStr = strings.Fields(line)[1]
		}
	}
	legal := u.position.GenerateLegalMoves()
	found := false
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i).String() == bestStr {
			found = true
		}
	}
	if !found {
		t.Errorf("bestmove %q is not legal in the searched position", bestStr)
	}
}

func TestStalemateEmitsNullMove(t *testing.T) {
	u, out := newTestUCI(t)

	u.Handle("position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	u.Handle("go depth 5")
	u.pool.WaitSearchFinished()

	s := out.String()
	if !strings.Contains(s, "bestmove 0000") {
		t.Errorf("stalemate must answer bestmove 0000, got:\n%s", s)
	}
	if !strings.Contains(s, "score cp 0") {
		t.Errorf("stalemate info should carry score cp 0, got:\n%s", s)
	}
}

func TestSetOptionRoundTrip(t *testing.T) {
	u, _ := newTestUCI(t)

	u.Handle("setoption name Threads value 2")
	u.Handle("setoption name MultiPV value 3")
	u.Handle("setoption name Skill Level value 10")
	u.Handle("setoption name UCI_ShowWDL value true")

	opts := u.pool.Options()
	if opts.Threads != 2 {
		t.Errorf("Threads = %d, want 2", opts.Threads)
	}
	if opts.MultiPV != 3 {
		t.Errorf("MultiPV = %d, want 3", opts.MultiPV)
	}
	if opts.SkillLevel != 10 {
		t.Errorf("SkillLevel = %d, want 10", opts.SkillLevel)
	}
	if !opts.ShowWDL {
		t.Error("ShowWDL not applied")
	}
}

func TestIsReady(t *testing.T) {
	u, out := newTestUCI(t)
	u.Handle("isready")
	if !strings.Contains(out.String(), "readyok") {
		t.Error("isready did not answer readyok")
	}
}

func TestPositionWithFENAndMoves(t *testing.T) {
	u, _ := newTestUCI(t)

	u.Handle("position fen r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1 moves e5g6")
	if u.position.SideToMove != board.Black {
		t.Error("side to move wrong after applied move")
	}
	if len(u.prevKeys) != 1 {
		t.Errorf("expected one history key, got %d", len(u.prevKeys))
	}
}

func TestSearchmovesRestriction(t *testing.T) {
	u, out := newTestUCI(t)

	u.Handle("position startpos")
	u.Handle("go depth 4 searchmoves a2a3")
	u.pool.WaitSearchFinished()

	if !strings.Contains(out.String(), "bestmove a2a3") {
		t.Errorf("searchmoves ignored:\n%s", out.String())
	}
}
