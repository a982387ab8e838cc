package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

// searchResult collects the callbacks of a single search.
type searchResult struct {
	mu       sync.Mutex
	infos    []Info
	best     board.Move
	ponder   board.Move
	bestSent int
}

func runSearch(t *testing.T, fen string, limits Limits, opts Options) (*Pool, *searchResult) {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}

	pool := NewPool(opts)
	res := &searchResult{}
	pool.OnInfo = func(info Info) {
		res.mu.Lock()
		res.infos = append(res.infos, info)
		res.mu.Unlock()
	}
	pool.OnBestMove = func(best, ponder board.Move) {
		res.mu.Lock()
		res.best = best
		res.ponder = ponder
		res.bestSent++
		res.mu.Unlock()
	}

	pool.StartSearch(pos, nil, limits)
	pool.WaitSearchFinished()
	return pool, res
}

func lastPVInfo(res *searchResult) (Info, bool) {
	res.mu.Lock()
	defer res.mu.Unlock()
	for i := len(res.infos) - 1; i >= 0; i-- {
		if res.infos[i].CurrMove == board.NoMove {
			return res.infos[i], true
		}
	}
	return Info{}, false
}

func TestSearchFindsMateInOne(t *testing.T) {
	_, res := runSearch(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		Limits{Depth: 4}, DefaultOptions())

	if res.best.String() != "a1a8" {
		t.Errorf("best move = %s, want a1a8", res.best)
	}
	info, ok := lastPVInfo(res)
	if !ok {
		t.Fatal("no info emitted")
	}
	if !info.Score.IsMate || info.Score.MateIn != 1 {
		t.Errorf("score = %v, want mate 1", info.Score)
	}
	if res.bestSent != 1 {
		t.Errorf("bestmove emitted %d times", res.bestSent)
	}
}

func TestSearchDefendsSanely(t *testing.T) {
	// Black to move facing the back-rank threat: the search must return a
	// finite score and a legal move.
	pos, _ := board.ParseFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1")
	_, res := runSearch(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1",
		Limits{Depth: 4}, DefaultOptions())

	if res.best == board.NoMove {
		t.Fatal("no best move returned")
	}
	if !pos.GenerateLegalMoves().Contains(res.best) {
		t.Errorf("best move %s is not legal", res.best)
	}
	info, _ := lastPVInfo(res)
	if info.Score.IsMate {
		t.Errorf("unexpected mate score %v", info.Score)
	}
}

func TestSearchCheckmatedAtRoot(t *testing.T) {
	// The fool's mate position: white is already checkmated.
	_, res := runSearch(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		Limits{Depth: 1}, DefaultOptions())

	if res.best != board.NoMove {
		t.Errorf("expected bestmove 0000, got %s", res.best)
	}
	info, ok := lastPVInfo(res)
	if !ok {
		t.Fatal("no info emitted")
	}
	if info.Depth != 0 || !info.Score.IsMate || info.Score.MateIn != 0 {
		t.Errorf("expected depth 0 mate 0, got depth %d score %v", info.Depth, info.Score)
	}
}

func TestSearchStalemateAtRoot(t *testing.T) {
	_, res := runSearch(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
		Limits{Depth: 6}, DefaultOptions())

	if res.best != board.NoMove {
		t.Errorf("expected bestmove 0000, got %s", res.best)
	}
	info, ok := lastPVInfo(res)
	if !ok {
		t.Fatal("no info emitted")
	}
	if info.Depth != 0 || info.Score.IsMate || info.Score.CP != 0 {
		t.Errorf("expected depth 0 cp 0, got depth %d score %v", info.Depth, info.Score)
	}
}

func TestSearchWithStopSetWritesNothing(t *testing.T) {
	pool := NewPool(DefaultOptions())
	pos := board.NewPosition()

	w := pool.workers[0]
	w.prepare(pos, nil, buildRootMoves(pos, nil))
	pool.stop.Store(true)

	v := w.searchPV(0, -Infinite, Infinite, 5, false)
	if v != ValueDraw {
		t.Errorf("aborted search returned %d, want %d", v, ValueDraw)
	}
	if pool.TT.Hashfull() != 0 {
		t.Error("aborted search wrote to the transposition table")
	}
	if n := w.nodes.Load(); n > 1 {
		t.Errorf("aborted search visited %d nodes", n)
	}
}

func TestExtractPonderFromTT(t *testing.T) {
	pool := NewPool(DefaultOptions())
	pos := board.NewPosition()

	first, _ := board.ParseMove("e2e4", pos)
	after := pos.Copy()
	after.MakeMove(first)
	reply, _ := board.ParseMove("e7e5", after)

	e, _ := pool.TT.Probe(after.Hash)
	pool.TT.Save(e, after.Hash, 20, false, BoundExact, 6, reply, 10)

	rm := &RootMove{Move: first, PV: []board.Move{first}}
	if !pool.extractPonderFromTT(rm, pos) {
		t.Fatal("ponder extraction failed despite a TT entry")
	}
	if len(rm.PV) < 2 {
		t.Fatal("PV not extended")
	}
	if rm.PV[1] != reply {
		t.Errorf("ponder move = %v, want %v", rm.PV[1], reply)
	}

	// The extracted move must be legal in the position after the first.
	if !after.GenerateLegalMoves().Contains(rm.PV[1]) {
		t.Error("extracted ponder move is illegal")
	}
}

func TestZugzwangVerification(t *testing.T) {
	if testing.Short() {
		t.Skip("deep search")
	}
	// King and pawn versus king, won for white. Null-move pruning without
	// verification returns false cutoffs in these positions.
	_, res := runSearch(t, "4k3/8/4K3/4P3/8/8/8/8 w - - 0 1",
		Limits{Depth: 14}, DefaultOptions())

	info, ok := lastPVInfo(res)
	if !ok {
		t.Fatal("no info emitted")
	}
	if !info.Score.IsMate && info.Score.CP < 150 {
		t.Errorf("winning KPK position scored %v", info.Score)
	}
	if res.best == board.NoMove {
		t.Error("no best move in a won position")
	}
}

func TestDrawValueStaysTight(t *testing.T) {
	pool := NewPool(DefaultOptions())
	w := pool.workers[0]
	for i := 0; i < 8; i++ {
		w.nodes.Add(1)
		if v := w.drawValue(); v < -1 || v > 1 {
			t.Fatalf("draw value %d outside [-1, 1]", v)
		}
	}
}

func TestAspirationConvergesWithSeededScore(t *testing.T) {
	pos := board.NewPosition()
	pool := NewPool(DefaultOptions())

	var infos []Info
	pool.OnInfo = func(info Info) { infos = append(infos, info) }
	pool.OnBestMove = func(best, ponder board.Move) {}

	// Seed a wildly wrong previous score so the first aspiration windows
	// fail and must widen.
	pool.workers[0].previousScore = 300

	pool.StartSearch(pos, nil, Limits{Depth: 10})
	pool.WaitSearchFinished()

	var last Info
	for _, info := range infos {
		if info.CurrMove == board.NoMove {
			last = info
		}
	}
	if last.Depth != 10 {
		t.Errorf("search did not converge to depth 10, stopped at %d", last.Depth)
	}
	if last.Score.IsMate || last.Score.CP > 200 || last.Score.CP < -200 {
		t.Errorf("implausible startpos score %v", last.Score)
	}
}

func TestNodeLimitStops(t *testing.T) {
	pool, _ := runSearch(t, board.StartFEN, Limits{Nodes: 20000}, DefaultOptions())

	if n := pool.NodesSearched(); n > 60000 {
		t.Errorf("node limit badly overshot: %d nodes", n)
	}
}

func TestMoveTimeStops(t *testing.T) {
	start := time.Now()
	runSearch(t, board.StartFEN, Limits{MoveTime: 150 * time.Millisecond}, DefaultOptions())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("movetime search ran %v", elapsed)
	}
}

func TestMultiThreadSearchAgrees(t *testing.T) {
	opts := DefaultOptions()
	opts.Threads = 4
	pos, _ := board.ParseFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")
	_ = pos

	_, res := runSearch(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		Limits{Depth: 6}, opts)

	if res.best.String() != "a1a8" {
		t.Errorf("parallel search best move = %s, want a1a8", res.best)
	}
	if res.bestSent != 1 {
		t.Errorf("bestmove emitted %d times", res.bestSent)
	}
}

func TestMultiPVReportsDistinctLines(t *testing.T) {
	opts := DefaultOptions()
	opts.MultiPV = 3

	_, res := runSearch(t, board.StartFEN, Limits{Depth: 6}, opts)

	res.mu.Lock()
	defer res.mu.Unlock()

	seen := map[int]board.Move{}
	for _, info := range res.infos {
		if info.CurrMove != board.NoMove || len(info.PV) == 0 {
			continue
		}
		seen[info.MultiPV] = info.PV[0]
	}
	if len(seen) < 3 {
		t.Fatalf("expected 3 multipv lines, saw %d", len(seen))
	}
	if seen[1] == seen[2] || seen[2] == seen[3] || seen[1] == seen[3] {
		t.Errorf("multipv lines share first moves: %v", seen)
	}
}
