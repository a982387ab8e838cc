package engine

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
	"github.com/kestrelchess/kestrel/internal/eval"
)

const tempoValue = eval.Tempo

// currmoveReportDelay defers per-move info lines until a search is long
// enough for a human to care.
const currmoveReportDelay = 3 * time.Second

// RootMove is one candidate at the root with its running statistics.
type RootMove struct {
	Move          board.Move
	PV            []board.Move
	Score         int
	PreviousScore int
	AverageScore  int
	SelDepth      int
	TBRank        int
	TBScore       int
}

// sortRootMoves stable-sorts the slice window [first, last) by tablebase
// rank then score, preserving insertion order among equals so the current
// best stays in front across iterations.
func sortRootMoves(moves []RootMove, first, last int) {
	sort.SliceStable(moves[first:last], func(i, j int) bool {
		a, b := &moves[first+i], &moves[first+j]
		if a.TBRank != b.TBRank {
			return a.TBRank > b.TBRank
		}
		return a.Score > b.Score
	})
}

// worker is one search thread: the root controller plus all thread-local
// state. Workers share only the transposition table, the breadcrumbs and
// the pool's atomic flags.
type worker struct {
	id     int
	pool   *Pool
	tt     *TranspositionTable
	crumbs *BreadcrumbTable
	tm     *TimeManager

	pos        *board.Position
	keyHistory []uint64
	rootKeyLen int

	hist  historyTables
	stack searchStack
	pv    PVTable

	rootMoves      []RootMove
	rootDepth      int
	completedDepth int
	selDepth       int
	pvIdx, pvLast  int

	nodes  atomic.Uint64
	tbHits atomic.Uint64

	bestMoveChanges    float64
	failedHighCnt      int
	nmpMinPly          int
	nmpColor           board.Color
	ttHitAverage       uint64
	contempt           int
	rootColor          board.Color
	multiPV            int
	searchAgainCounter int
	callsCnt           int

	// Main-thread-only bookkeeping for time management.
	previousScore         int
	previousTimeReduction float64
	lastBestMove          board.Move
	lastBestMoveDepth     int
	iterValue             [4]int
	iterIdx               int
}

func newWorker(id int, pool *Pool) *worker {
	return &worker{
		id:     id,
		pool:   pool,
		tt:     pool.TT,
		crumbs: &pool.crumbs,
		tm:     &pool.tm,

		previousTimeReduction: 1.0,
	}
}

func (w *worker) isMain() bool { return w.id == 0 }

// prepare sets up the worker for a new search on its own copy of the
// position and root move list.
func (w *worker) prepare(pos *board.Position, gameKeys []uint64, rootMoves []RootMove) {
	w.pos = pos.Copy()
	w.keyHistory = make([]uint64, len(gameKeys), len(gameKeys)+MaxPly)
	copy(w.keyHistory, gameKeys)
	w.rootKeyLen = len(gameKeys)

	w.rootMoves = make([]RootMove, len(rootMoves))
	for i := range rootMoves {
		w.rootMoves[i] = rootMoves[i]
		w.rootMoves[i].PV = append([]board.Move(nil), rootMoves[i].PV...)
	}

	w.rootDepth = 0
	w.completedDepth = 0
	w.selDepth = 0
	w.nodes.Store(0)
	w.tbHits.Store(0)
	w.bestMoveChanges = 0
	w.failedHighCnt = 0
	w.nmpMinPly = 0
	w.nmpColor = board.NoColor
	w.ttHitAverage = ttHitAverageWindow * ttHitAverageResolution / 2
	w.rootColor = pos.SideToMove
	w.multiPV = max(w.pool.opts.MultiPV, 1)
	if w.pool.skill.enabled() {
		// Handicapped play picks among several candidate lines.
		w.multiPV = max(w.multiPV, 4)
	}
	w.multiPV = min(w.multiPV, len(w.rootMoves))
	w.searchAgainCounter = 0
	w.callsCnt = 0

	w.hist.lowPly.ShiftDown()
	w.stack.init(w.hist.continuation.Sentinel())
	w.pv = PVTable{}
}

// pushKey records the current position key on the search path.
func (w *worker) pushKey() {
	w.keyHistory = append(w.keyHistory, w.pos.Hash)
}

func (w *worker) popKey() {
	w.keyHistory = w.keyHistory[:len(w.keyHistory)-1]
}

// countNode bumps the node counter; on the main thread it also drives the
// clock and node-limit checks at ~1024-node granularity.
func (w *worker) countNode() {
	w.nodes.Add(1)
	if w.isMain() {
		w.callsCnt--
		if w.callsCnt <= 0 {
			if w.pool.limits.Nodes > 0 {
				w.callsCnt = int(min64(1024, w.pool.limits.Nodes/1024))
			} else {
				w.callsCnt = 1024
			}
			if w.callsCnt < 1 {
				w.callsCnt = 1
			}
			w.pool.checkTime()
		}
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// evaluate runs the configured evaluator, folding in dynamic contempt
// from the root side's point of view.
func (w *worker) evaluate() int {
	v := w.pool.evaluator(w.pos)
	if w.pos.SideToMove == w.rootColor {
		v += w.contempt
	} else {
		v -= w.contempt
	}
	return clamp(v, -KnownWin+1, KnownWin-1)
}

// drawValue keeps draws slightly asymmetric between threads so they do
// not all agree on dead-equal lines.
func (w *worker) drawValue() int {
	return ValueDraw + int(2*(w.nodes.Load()&1)) - 1
}

// isDraw reports 50-move, repetition and material draws on the search
// path. A single repetition inside the search tree counts; positions
// before the root need a second occurrence.
func (w *worker) isDraw(ply int) bool {
	pos := w.pos
	if pos.Rule50() >= 100 {
		return !pos.InCheck() || pos.HasLegalMoves()
	}
	if pos.IsInsufficientMaterial() {
		return true
	}

	n := len(w.keyHistory)
	end := min(pos.Rule50(), pos.PliesFromNull)
	count := 0
	for i := 4; i <= end && i <= n; i += 2 {
		if w.keyHistory[n-i] == pos.Hash {
			// Within the search tree one repetition is decisive.
			if n-i >= w.rootKeyLen {
				return true
			}
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// improvingAt compares the static eval against two plies ago, falling
// back four plies when the side was in check in between.
func (w *worker) improvingAt(ply int) bool {
	ss := w.stack.at(ply)
	two := w.stack.at(ply - 2).staticEval
	if two == ValueNone {
		four := w.stack.at(ply - 4).staticEval
		return four == ValueNone || ss.staticEval > four
	}
	return ss.staticEval > two
}

// contHistArena selects the continuation-history arena a move indexes for
// its follow-ups.
func (w *worker) contHistArena(inCheck, capture bool, pc board.Piece, to board.Square) *PieceToHistory {
	return &w.hist.continuation[boolToInt(inCheck)][boolToInt(capture)][pc][to]
}

// rootMoveActive reports whether move belongs to the MultiPV slice being
// searched at the root.
func (w *worker) rootMoveActive(move board.Move) bool {
	for i := w.pvIdx; i < w.pvLast; i++ {
		if w.rootMoves[i].Move == move {
			return true
		}
	}
	return false
}

func (w *worker) findRootMove(move board.Move) *RootMove {
	for i := range w.rootMoves {
		if w.rootMoves[i].Move == move {
			return &w.rootMoves[i]
		}
	}
	return &w.rootMoves[0]
}

// updateContinuationHistories rewards the move at (pc, to) in the arenas
// of the previous 1, 2, 4 and 6 plies. In check only the nearest two
// carry signal.
func (w *worker) updateContinuationHistories(ply int, pc board.Piece, to board.Square, bonus int) {
	ss := w.stack.at(ply)
	for _, i := range [4]int{1, 2, 4, 6} {
		if ss.inCheck && i > 2 {
			break
		}
		if ply-i < -stackOffset+1 {
			break
		}
		prev := w.stack.at(ply - i)
		if prev.currentMove != board.NoMove {
			prev.contHist.Update(pc, to, bonus)
		}
	}
}

// updateQuietStats records a quiet move that caused a fail-high: killers,
// butterfly and continuation histories, countermove and low-ply history.
func (w *worker) updateQuietStats(ply int, move board.Move, bonus, depth int) {
	ss := w.stack.at(ply)
	if ss.killers[0] != move {
		ss.killers[1] = ss.killers[0]
		ss.killers[0] = move
	}

	us := w.pos.SideToMove
	w.hist.main.Update(us, move, bonus)
	w.updateContinuationHistories(ply, w.pos.MovedPiece(move), move.To(), bonus)

	if prev := w.stack.at(ply - 1).currentMove; prev != board.NoMove {
		prevSq := prev.To()
		w.hist.counters.Update(w.pos.PieceAt(prevSq), prevSq, move)
	}

	if depth > 11 && ply < MaxLowPlyHistory {
		w.hist.lowPly.Update(ply, move, statBonus(depth-7))
	}
}

// updateAllStats applies the end-of-node history updates once a best move
// is known.
func (w *worker) updateAllStats(ply int, bestMove board.Move, bestValue, beta, depth int,
	prevSq board.Square, priorCapture bool, quiets, captures []board.Move) {

	pos := w.pos
	bonus1 := statBonus(depth + 1)
	bonus2 := statBonus(depth)
	if bestValue > beta+pawnValueMg {
		bonus2 = bonus1
	}

	if !pos.CaptureOrPromotion(bestMove) {
		w.updateQuietStats(ply, bestMove, bonus2, depth)

		for _, q := range quiets {
			w.hist.main.Update(pos.SideToMove, q, -bonus2)
			w.updateContinuationHistories(ply, pos.MovedPiece(q), q.To(), -bonus2)
		}
	} else {
		w.hist.capture.Update(pos.MovedPiece(bestMove), bestMove.To(),
			capturedType(pos, bestMove), bonus1)
	}

	// Penalize an early quiet previous move that let this node refute it.
	// After a TT hit the first move tried was the hash move, so "early"
	// shifts one slot up.
	if prevSq != board.NoSquare && !priorCapture {
		prevSS := w.stack.at(ply - 1)
		if prevSS.moveCount == 1+boolToInt(prevSS.ttHit) ||
			prevSS.currentMove == prevSS.killers[0] {
			w.updateContinuationHistories(ply-1, pos.PieceAt(prevSq), prevSq, -bonus1)
		}
	}

	for _, c := range captures {
		w.hist.capture.Update(pos.MovedPiece(c), c.To(), capturedType(pos, c), -bonus1)
	}
}

// iterate is the iterative-deepening driver each worker runs until the
// pool raises stop.
func (w *worker) iterate() {
	mainThread := w.isMain()
	limits := &w.pool.limits

	var totBestMoveChanges float64
	timeReduction := 1.0

	if mainThread {
		seed := w.previousScore
		if seed == 0 || seed == -Infinite {
			seed = ValueDraw
		}
		for i := range w.iterValue {
			w.iterValue[i] = seed
		}
	}

	for {
		w.rootDepth++
		if w.rootDepth >= MaxPly || w.pool.stop.Load() {
			break
		}
		// Only the main thread honors the depth limit; helpers keep going
		// until the pool raises stop behind it.
		if mainThread && limits.Depth > 0 && w.rootDepth > limits.Depth {
			break
		}

		if mainThread {
			totBestMoveChanges /= 2
		}

		for i := range w.rootMoves {
			w.rootMoves[i].PreviousScore = w.rootMoves[i].Score
		}

		// When the clock is mostly spent the main thread stops raising the
		// target depth for helpers; they re-search instead of diving.
		if !mainThread && !w.pool.increaseDepth.Load() {
			w.searchAgainCounter++
		}

		bestValue := -Infinite

		for w.pvIdx = 0; w.pvIdx < w.multiPV && !w.pool.stop.Load(); w.pvIdx++ {
			w.pvLast = w.tbRankEnd(w.pvIdx)
			w.selDepth = 0

			alpha, beta := -Infinite, Infinite
			delta := 0
			prev := 0

			// Aspiration windows from depth 4: start near the previous
			// score and widen on failure.
			if w.rootDepth >= 4 {
				prev = w.rootMoves[w.pvIdx].PreviousScore
				delta = 17
				alpha = max(prev-delta, -Infinite)
				beta = min(prev+delta, Infinite)

				// Dynamic contempt scales with how well we stand.
				ct := w.pool.baseContempt()
				w.contempt = ct + (113-ct/2)*prev/(abs(prev)+147)
			}

			w.failedHighCnt = 0
			for {
				adjustedDepth := max(1, w.rootDepth-w.failedHighCnt-w.searchAgainCounter)
				bestValue = w.searchPV(0, alpha, beta, adjustedDepth, false)

				sortRootMoves(w.rootMoves, w.pvIdx, w.pvLast)

				if w.pool.stop.Load() {
					break
				}

				if mainThread && w.multiPV == 1 && (bestValue <= alpha || bestValue >= beta) &&
					w.tm.Elapsed() > currmoveReportDelay {
					w.pool.reportPV(w, w.rootDepth, bestValue, alpha, beta)
				}

				if bestValue <= alpha {
					// Fail low: pull beta toward the window, re-open alpha.
					beta = (alpha + beta) / 2
					alpha = max(bestValue-delta, -Infinite)
					w.failedHighCnt = 0
					if mainThread {
						w.pool.stopOnPonderhit.Store(false)
					}
				} else if bestValue >= beta {
					beta = min(bestValue+delta, Infinite)
					w.failedHighCnt++
				} else {
					break
				}

				delta += delta/4 + 5
			}

			sortRootMoves(w.rootMoves, 0, w.pvIdx+1)

			if mainThread && (w.pool.stop.Load() || w.pvIdx+1 == w.multiPV ||
				w.tm.Elapsed() > currmoveReportDelay) {
				w.pool.reportPV(w, w.rootDepth, bestValue, alpha, beta)
			}
		}

		if !w.pool.stop.Load() {
			w.completedDepth = w.rootDepth
		}

		if !mainThread {
			continue
		}

		if w.pool.skill.enabled() && w.pool.skill.timeToPick(w.rootDepth) {
			w.pool.skill.pickBest(w, w.multiPV)
		}

		best := &w.rootMoves[0]

		if best.Move != w.lastBestMove {
			w.lastBestMove = best.Move
			w.lastBestMoveDepth = w.rootDepth
		}

		// A mate limit counts in moves, not plies.
		if limits.Mate > 0 && bestValue >= MateInMaxPly &&
			Mate-bestValue <= 2*limits.Mate {
			w.pool.stop.Store(true)
		}

		if !limits.UseTimeManagement() {
			continue
		}

		if w.pool.stop.Load() || w.pool.stopOnPonderhit.Load() {
			continue
		}

		// Rescale the time budget from search feedback.
		fallingEval := float64(318+6*(w.previousScore-bestValue)+
			6*(w.iterValue[w.iterIdx]-bestValue)) / 825.0
		fallingEval = clampFloat(fallingEval, 0.5, 1.5)

		if w.lastBestMoveDepth+9 < w.completedDepth {
			timeReduction = 1.92
		} else {
			timeReduction = 0.95
		}
		reductionFactor := (1.47 + w.previousTimeReduction) / (2.32 * timeReduction)

		for _, th := range w.pool.workers {
			totBestMoveChanges += th.bestMoveChanges
			th.bestMoveChanges = 0
		}
		instability := 1 + 2*totBestMoveChanges/float64(len(w.pool.workers))

		totalTime := time.Duration(float64(w.tm.Optimum()) *
			fallingEval * reductionFactor * instability)
		if len(w.rootMoves) == 1 {
			if totalTime > 500*time.Millisecond {
				totalTime = 500 * time.Millisecond
			}
		}
		elapsed := w.tm.Elapsed()
		if elapsed > totalTime {
			// While pondering the stop waits for ponderhit.
			if w.pool.ponder.Load() {
				w.pool.stopOnPonderhit.Store(true)
			} else {
				w.pool.stop.Store(true)
			}
		} else {
			w.pool.increaseDepth.Store(
				!(w.pool.ponder.Load() || float64(elapsed) > float64(totalTime)*0.58))
		}

		w.iterValue[w.iterIdx] = bestValue
		w.iterIdx = (w.iterIdx + 1) & 3
	}

	if mainThread {
		w.previousTimeReduction = timeReduction
	}
}

// tbRankEnd finds the end of the root-move group sharing pvIdx's
// tablebase rank, bounding MultiPV lines within the same WDL class.
func (w *worker) tbRankEnd(pvIdx int) int {
	if pvIdx >= len(w.rootMoves) {
		return len(w.rootMoves)
	}
	rank := w.rootMoves[pvIdx].TBRank
	end := pvIdx + 1
	for end < len(w.rootMoves) && w.rootMoves[end].TBRank == rank {
		end++
	}
	return end
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
