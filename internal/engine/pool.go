package engine

import (
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelchess/kestrel/internal/board"
	"github.com/kestrelchess/kestrel/internal/eval"
	"github.com/kestrelchess/kestrel/internal/tablebase"
)

// Options is the runtime configuration surface, fed from UCI setoption.
type Options struct {
	Threads          int
	HashMB           int
	MultiPV          int
	Contempt         int // centipawns
	AnalysisContempt string
	AnalyseMode      bool
	SkillLevel       int
	LimitStrength    bool
	Elo              int
	ShowWDL          bool
	MoveOverhead     time.Duration
	SyzygyProbeDepth int
}

// DefaultOptions mirrors the values advertised over UCI.
func DefaultOptions() Options {
	return Options{
		Threads:          1,
		HashMB:           64,
		MultiPV:          1,
		Contempt:         24,
		AnalysisContempt: "Both",
		SkillLevel:       20,
		Elo:              1350,
		MoveOverhead:     10 * time.Millisecond,
		SyzygyProbeDepth: 1,
	}
}

// Pool owns the worker threads and everything they share: transposition
// table, breadcrumbs, stop flags and the clock. One search runs at a time.
type Pool struct {
	TT     *TranspositionTable
	crumbs BreadcrumbTable
	tm     TimeManager

	// Late-move-reduction base table, rebuilt whenever the thread count
	// changes: more threads search wider, so reductions grow with them.
	reductions [MaxPly]int

	opts      Options
	evaluator eval.Func
	tb        tablebase.Prober

	workers []*worker
	limits  Limits

	stop            atomic.Bool
	ponder          atomic.Bool
	stopOnPonderhit atomic.Bool
	increaseDepth   atomic.Bool

	tbCardinality int
	tbProbeDepth  int
	rootColor     board.Color
	skill         skillSelector

	done chan struct{}

	// OnInfo receives every info payload; OnBestMove fires exactly once
	// per search.
	OnInfo     func(Info)
	OnBestMove func(best, ponder board.Move)
}

// NewPool builds a pool with the given options and the default evaluator.
func NewPool(opts Options) *Pool {
	p := &Pool{
		TT:        NewTranspositionTable(opts.HashMB),
		opts:      opts,
		evaluator: eval.Evaluate,
		tb:        tablebase.NoopProber{},
	}
	p.applyThreadCount()
	done := make(chan struct{})
	close(done)
	p.done = done
	return p
}

// SetEvaluator swaps the static evaluator; the default is the built-in
// classical one.
func (p *Pool) SetEvaluator(f eval.Func) {
	if f != nil {
		p.evaluator = f
	}
}

// SetTablebase wires a prober in; nil restores the noop.
func (p *Pool) SetTablebase(tb tablebase.Prober) {
	if tb == nil {
		tb = tablebase.NoopProber{}
	}
	p.tb = tb
}

// SetOptions applies a new option set between searches.
func (p *Pool) SetOptions(opts Options) {
	if opts.HashMB != p.opts.HashMB {
		p.TT.Resize(opts.HashMB)
	}
	p.opts = opts
	p.applyThreadCount()
}

// Options returns the active option set.
func (p *Pool) Options() Options {
	return p.opts
}

func (p *Pool) applyThreadCount() {
	n := p.opts.Threads
	if n < 1 {
		n = 1
	}
	for len(p.workers) < n {
		p.workers = append(p.workers, newWorker(len(p.workers), p))
	}
	p.workers = p.workers[:n]
	p.initReductions()
}

func (p *Pool) initReductions() {
	threads := float64(len(p.workers))
	for i := 1; i < MaxPly; i++ {
		p.reductions[i] = int((21.3 + 2*math.Log(threads)) *
			math.Log(float64(i)+0.25*math.Log(float64(i))))
	}
}

// NewGame clears all learned state: transposition table and per-thread
// histories.
func (p *Pool) NewGame() {
	p.WaitSearchFinished()
	p.TT.Clear()
	for _, w := range p.workers {
		w.hist.clear()
	}
}

// NodesSearched aggregates node counts across workers.
func (p *Pool) NodesSearched() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.nodes.Load()
	}
	return n
}

// TBHits aggregates tablebase hits across workers.
func (p *Pool) TBHits() uint64 {
	var n uint64
	for _, w := range p.workers {
		n += w.tbHits.Load()
	}
	return n
}

// StartSearch launches a search asynchronously. prevKeys are the Zobrist
// keys of the game positions before the root, oldest first, used for
// repetition detection across the root boundary.
func (p *Pool) StartSearch(pos *board.Position, prevKeys []uint64, limits Limits) {
	p.WaitSearchFinished()

	p.limits = limits
	p.stop.Store(false)
	p.stopOnPonderhit.Store(false)
	p.ponder.Store(limits.Ponder)
	p.increaseDepth.Store(true)
	p.rootColor = pos.SideToMove
	p.skill = newSkillSelector(p.opts)

	p.tm.Overhead = p.opts.MoveOverhead
	p.tm.Init(&p.limits, pos.SideToMove, pos.GamePly())
	p.TT.NewSearch()

	rootMoves := buildRootMoves(pos, limits.SearchMoves)
	if len(rootMoves) == 0 {
		// No legal moves: mate or stalemate at the root.
		score := ScoreCP(0)
		if pos.InCheck() {
			score = ScoreMate(0)
		}
		p.emitInfo(Info{Depth: 0, MultiPV: 1, Score: score})
		p.emitBestMove(board.NoMove, board.NoMove)
		done := make(chan struct{})
		close(done)
		p.done = done
		return
	}

	p.rankRootMoves(pos, rootMoves)

	for _, w := range p.workers {
		w.prepare(pos, prevKeys, rootMoves)
	}

	p.done = make(chan struct{})
	go p.run()
}

// run drives the whole search: worker fan-out, the ponder/infinite wait,
// best-thread selection and the single bestmove emission.
func (p *Pool) run() {
	defer close(p.done)

	var g errgroup.Group
	for _, w := range p.workers[1:] {
		w := w
		g.Go(func() error {
			w.iterate()
			return nil
		})
	}

	main := p.workers[0]
	main.iterate()

	// Under ponder or infinite the protocol forbids emitting bestmove
	// until told; busy-wait for the stop or the ponderhit.
	for !p.stop.Load() && (p.ponder.Load() || p.limits.Infinite) {
		time.Sleep(time.Millisecond)
	}

	p.stop.Store(true)
	_ = g.Wait()

	if p.skill.enabled() {
		p.skill.commit(main)
	}

	main.previousScore = main.rootMoves[0].Score

	best := p.bestThread()
	if best != main {
		p.reportPV(best, best.completedDepth, best.rootMoves[0].Score, -Infinite, Infinite)
	}

	bestRM := &best.rootMoves[0]
	ponderMove := board.NoMove
	if len(bestRM.PV) > 1 {
		ponderMove = bestRM.PV[1]
	} else if p.extractPonderFromTT(bestRM, best.pos) {
		ponderMove = bestRM.PV[1]
	}

	p.emitBestMove(bestRM.Move, ponderMove)
}

// StopSearch aborts the running search, if any.
func (p *Pool) StopSearch() {
	p.stop.Store(true)
}

// PonderHit converts a ponder search into a normal one; if the clock
// already expired the search stops immediately.
func (p *Pool) PonderHit() {
	p.ponder.Store(false)
	if p.stopOnPonderhit.Load() {
		p.stop.Store(true)
	}
}

// WaitSearchFinished blocks until the current search, if any, has fully
// quiesced.
func (p *Pool) WaitSearchFinished() {
	if p.done != nil {
		<-p.done
	}
}

// Searching reports whether a search is in flight.
func (p *Pool) Searching() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// checkTime is called from the main worker's node counter.
func (p *Pool) checkTime() {
	if p.stop.Load() {
		return
	}

	if p.limits.Nodes > 0 && p.NodesSearched() >= p.limits.Nodes {
		p.stop.Store(true)
		return
	}

	// While pondering the clock never stops the search directly.
	if p.ponder.Load() {
		return
	}

	elapsed := p.tm.Elapsed()

	if p.limits.UseTimeManagement() && elapsed > p.tm.Maximum()-10*time.Millisecond {
		p.stop.Store(true)
		return
	}

	if p.limits.MoveTime > 0 && elapsed >= p.limits.MoveTime {
		p.stop.Store(true)
	}
}

// bestThread tallies a depth-weighted vote over the workers' best moves,
// preferring shorter mates and avoiding longer ones.
func (p *Pool) bestThread() *worker {
	best := p.workers[0]

	if p.opts.MultiPV != 1 || p.limits.Depth > 0 || p.skill.enabled() || len(p.workers) == 1 {
		return best
	}

	minScore := best.rootMoves[0].Score
	for _, w := range p.workers[1:] {
		if w.rootMoves[0].Score < minScore {
			minScore = w.rootMoves[0].Score
		}
	}

	votes := make(map[board.Move]int64)
	for _, w := range p.workers {
		votes[w.rootMoves[0].Move] +=
			int64(w.rootMoves[0].Score-minScore+14) * int64(w.completedDepth)
	}

	for _, w := range p.workers[1:] {
		bs := best.rootMoves[0].Score
		ws := w.rootMoves[0].Score

		if bs >= TbWinInMaxPly {
			// Proven win: prefer the shorter mate.
			if ws > bs {
				best = w
			}
		} else if ws >= TbWinInMaxPly ||
			(ws > -TbWinInMaxPly && votes[w.rootMoves[0].Move] > votes[best.rootMoves[0].Move]) {
			best = w
		}
	}

	return best
}

// extractPonderFromTT fills in a second PV move from the transposition
// table when the search stopped with a bare best move.
func (p *Pool) extractPonderFromTT(rm *RootMove, pos *board.Position) bool {
	if rm.Move == board.NoMove {
		return false
	}

	work := pos.Copy()
	undo := work.MakeMove(rm.Move)
	if !undo.Valid {
		return false
	}
	defer work.UnmakeMove(rm.Move, undo)

	tte, hit := p.TT.Probe(work.Hash)
	if !hit {
		return false
	}
	m := tte.Move()
	if m == board.NoMove || !work.GenerateLegalMoves().Contains(m) {
		return false
	}
	rm.PV = append(rm.PV, m)
	return true
}

// buildRootMoves lists the legal root moves, restricted by searchmoves.
func buildRootMoves(pos *board.Position, searchMoves []board.Move) []RootMove {
	legal := pos.GenerateLegalMoves()
	out := make([]RootMove, 0, legal.Len())
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if len(searchMoves) > 0 {
			found := false
			for _, sm := range searchMoves {
				if sm == m {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, RootMove{Move: m, PV: []board.Move{m},
			Score: -Infinite, PreviousScore: -Infinite, AverageScore: -Infinite})
	}
	return out
}

// rankRootMoves asks the tablebases to classify the root moves; on
// success, search-time probing is disabled since the root verdict already
// dominates.
func (p *Pool) rankRootMoves(pos *board.Position, rootMoves []RootMove) {
	p.tbCardinality = 0
	p.tbProbeDepth = p.opts.SyzygyProbeDepth

	if !p.tb.Available() {
		return
	}

	p.tbCardinality = p.tb.MaxPieces()
	if pos.PieceCount() > p.tbCardinality || pos.CanCastleAny() {
		return
	}

	results, ok := p.tb.ProbeRoot(pos)
	if !ok {
		return
	}

	for i := range rootMoves {
		for _, r := range results {
			if r.Move != rootMoves[i].Move {
				continue
			}
			rootMoves[i].TBRank = tbRank(r.WDL, r.DTZ)
			rootMoves[i].TBScore = tbValueFromWDL(int(r.WDL), 0, 1)
			break
		}
	}

	// The root is already resolved; inner probes add nothing.
	p.tbCardinality = 0
}

// tbRank orders root moves within and across WDL classes.
func tbRank(wdl tablebase.WDL, dtz int) int {
	switch wdl {
	case tablebase.WDLWin:
		return 1000 - dtz
	case tablebase.WDLCursedWin:
		return 900
	case tablebase.WDLDraw:
		return 0
	case tablebase.WDLBlessedLoss:
		return -900
	default:
		return -1000 + dtz
	}
}

// tbValueFromWDL maps a WDL verdict onto the score scale, just inside the
// tablebase range so proven mates still outrank it.
func tbValueFromWDL(wdl, ply, drawScore int) int {
	switch {
	case wdl < -drawScore:
		return -MateInMaxPly + ply + 1
	case wdl > drawScore:
		return MateInMaxPly - ply - 1
	default:
		return ValueDraw + 2*wdl*drawScore
	}
}

// baseContempt converts the Contempt option into internal units and
// applies the analysis-contempt policy.
func (p *Pool) baseContempt() int {
	ct := p.opts.Contempt * 206 / 100 // endgame pawns

	if p.opts.AnalyseMode {
		switch p.opts.AnalysisContempt {
		case "Off":
			ct = 0
		case "White":
			if p.rootColor == board.Black {
				ct = -ct
			}
		case "Black":
			if p.rootColor == board.White {
				ct = -ct
			}
		}
	}
	return ct
}

func (p *Pool) emitInfo(info Info) {
	if p.OnInfo != nil {
		p.OnInfo(info)
	}
}

func (p *Pool) emitBestMove(best, ponder board.Move) {
	if p.OnBestMove != nil {
		p.OnBestMove(best, ponder)
	}
}

// ExportMainHistory copies the main thread's butterfly history, the
// cross-session learning payload.
func (p *Pool) ExportMainHistory() [2][64 * 64]int16 {
	return [2][64 * 64]int16(p.workers[0].hist.main)
}

// ImportMainHistory seeds every worker's butterfly history, typically
// from a persisted snapshot of a previous session.
func (p *Pool) ImportMainHistory(h [2][64 * 64]int16) {
	for _, w := range p.workers {
		w.hist.main = ButterflyHistory(h)
	}
}
