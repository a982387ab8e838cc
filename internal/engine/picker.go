package engine

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// Move picker stages. A picker walks the stages in order, emitting moves
// lazily so a beta cutoff on the hash move costs no generation at all.
const (
	stageTTMove = iota
	stageCaptureInit
	stageGoodCapture
	stageKiller0
	stageKiller1
	stageCounter
	stageQuietInit
	stageQuiet
	stageBadCapture

	stageQSTTMove
	stageQSCaptureInit
	stageQSCapture
	stageQSCheckInit
	stageQSCheck

	stageProbCutInit
	stageProbCut

	stageDone
)

// movePicker enumerates pseudo-legal moves in heuristic order. A picker
// is single-use; restart by constructing a new one.
type movePicker struct {
	pos       *board.Position
	hist      *historyTables
	contHist  [4]*PieceToHistory
	ttMove    board.Move
	killers   [2]board.Move
	counter   board.Move
	stage     int
	depth     int
	ply       int
	threshold int

	moves  *board.MoveList
	scores [256]int
	cur    int

	badCaptures    [32]board.Move
	badCaptureCnt  int
	skipQuiets     bool
	evasions       bool
	emitted        [4]board.Move // ttMove/killers/counter already returned
	emittedCnt     int
	lowPlyOrdering bool
}

// newMovePicker builds a picker for the main search.
func newMovePicker(pos *board.Position, hist *historyTables, contHist [4]*PieceToHistory,
	ttMove board.Move, killers [2]board.Move, counter board.Move, depth, ply int) *movePicker {

	mp := &movePicker{
		pos:            pos,
		hist:           hist,
		contHist:       contHist,
		killers:        killers,
		counter:        counter,
		depth:          depth,
		ply:            ply,
		lowPlyOrdering: ply < MaxLowPlyHistory,
	}
	mp.stage = stageCaptureInit
	if ttMove != board.NoMove && pos.PseudoLegalHint(ttMove) {
		mp.ttMove = ttMove
		mp.stage = stageTTMove
	}
	return mp
}

// newQMovePicker builds a picker for the quiescence search. Quiet checks
// are generated only at depth DepthQSChecks.
func newQMovePicker(pos *board.Position, hist *historyTables, contHist [4]*PieceToHistory,
	ttMove board.Move, depth int) *movePicker {

	mp := &movePicker{
		pos:      pos,
		hist:     hist,
		contHist: contHist,
		depth:    depth,
		evasions: pos.InCheck(),
	}
	mp.stage = stageQSCaptureInit
	if ttMove != board.NoMove && pos.PseudoLegalHint(ttMove) {
		mp.ttMove = ttMove
		mp.stage = stageQSTTMove
	}
	return mp
}

// newProbCutPicker builds a picker emitting only captures whose static
// exchange beats the threshold.
func newProbCutPicker(pos *board.Position, hist *historyTables, threshold int) *movePicker {
	return &movePicker{
		pos:       pos,
		hist:      hist,
		stage:     stageProbCutInit,
		threshold: threshold,
	}
}

// SkipQuiets tells the picker that move-count pruning is active; pending
// quiet stages are dropped.
func (mp *movePicker) SkipQuiets() {
	mp.skipQuiets = true
}

func (mp *movePicker) markEmitted(m board.Move) {
	if mp.emittedCnt < len(mp.emitted) {
		mp.emitted[mp.emittedCnt] = m
		mp.emittedCnt++
	}
}

func (mp *movePicker) wasEmitted(m board.Move) bool {
	for i := 0; i < mp.emittedCnt; i++ {
		if mp.emitted[i] == m {
			return true
		}
	}
	return false
}

// pickBest selects the highest-scored remaining move, swapping it into
// the cursor slot.
func (mp *movePicker) pickBest() board.Move {
	best := mp.cur
	for i := mp.cur + 1; i < mp.moves.Len(); i++ {
		if mp.scores[i] > mp.scores[best] {
			best = i
		}
	}
	if best != mp.cur {
		mp.moves.Swap(mp.cur, best)
		mp.scores[mp.cur], mp.scores[best] = mp.scores[best], mp.scores[mp.cur]
	}
	m := mp.moves.Get(mp.cur)
	mp.cur++
	return m
}

func (mp *movePicker) scoreCaptures() {
	for i := 0; i < mp.moves.Len(); i++ {
		m := mp.moves.Get(i)
		victim := capturedType(mp.pos, m)
		attacker := mp.pos.MovedPiece(m)
		mp.scores[i] = 6*int(board.PieceValue[victim]) +
			mp.hist.capture.Get(attacker, m.To(), victim)
	}
}

func (mp *movePicker) scoreQuiets() {
	us := mp.pos.SideToMove
	for i := 0; i < mp.moves.Len(); i++ {
		m := mp.moves.Get(i)
		pc := mp.pos.MovedPiece(m)
		s := 2 * mp.hist.main.Get(us, m)
		s += 2 * mp.contHist[0].Get(pc, m.To())
		s += mp.contHist[1].Get(pc, m.To())
		s += mp.contHist[2].Get(pc, m.To())
		s += mp.contHist[3].Get(pc, m.To())
		if mp.lowPlyOrdering {
			s += 4 * mp.hist.lowPly.Get(mp.ply, m) / (1 + mp.depth)
		}
		mp.scores[i] = s
	}
}

// Next returns the next move in heuristic order, or NoMove when the
// picker is exhausted. Emitted moves are pseudo-legal; the caller still
// performs the legality check.
func (mp *movePicker) Next() board.Move {
	for {
		switch mp.stage {
		case stageTTMove, stageQSTTMove:
			mp.stage++
			mp.markEmitted(mp.ttMove)
			return mp.ttMove

		case stageCaptureInit, stageQSCaptureInit:
			// In check the quiescence picker emits every evasion, quiet
			// ones included, so mate detection stays sound.
			if mp.evasions {
				mp.moves = mp.pos.GeneratePseudoLegal(board.GenAll)
			} else {
				mp.moves = mp.pos.GeneratePseudoLegal(board.GenCaptures)
			}
			mp.scoreCaptures()
			mp.cur = 0
			mp.stage++

		case stageGoodCapture:
			if mp.cur >= mp.moves.Len() {
				mp.stage = stageKiller0
				continue
			}
			m := mp.pickBest()
			if mp.wasEmitted(m) {
				continue
			}
			// Captures failing SEE wait until every quiet has been tried.
			if !mp.pos.SeeGe(m, -int(mp.scores[mp.cur-1])/18) {
				if mp.badCaptureCnt < len(mp.badCaptures) {
					mp.badCaptures[mp.badCaptureCnt] = m
					mp.badCaptureCnt++
				}
				continue
			}
			return m

		case stageKiller0, stageKiller1:
			k := mp.killers[mp.stage-stageKiller0]
			mp.stage++
			if k != board.NoMove && !mp.wasEmitted(k) &&
				!k.IsCapture(mp.pos) && mp.pos.PseudoLegalHint(k) {
				mp.markEmitted(k)
				return k
			}

		case stageCounter:
			mp.stage = stageQuietInit
			c := mp.counter
			if c != board.NoMove && !mp.wasEmitted(c) &&
				!c.IsCapture(mp.pos) && mp.pos.PseudoLegalHint(c) {
				mp.markEmitted(c)
				return c
			}

		case stageQuietInit:
			if mp.skipQuiets {
				mp.stage = stageBadCapture
				mp.cur = 0
				continue
			}
			mp.moves = mp.pos.GeneratePseudoLegal(board.GenQuiets)
			mp.scoreQuiets()
			mp.cur = 0
			mp.stage = stageQuiet

		case stageQuiet:
			if mp.skipQuiets || mp.cur >= mp.moves.Len() {
				mp.stage = stageBadCapture
				mp.cur = 0
				continue
			}
			m := mp.pickBest()
			if mp.wasEmitted(m) {
				continue
			}
			return m

		case stageBadCapture:
			if mp.cur >= mp.badCaptureCnt {
				mp.stage = stageDone
				continue
			}
			m := mp.badCaptures[mp.cur]
			mp.cur++
			return m

		case stageQSCapture:
			if mp.cur >= mp.moves.Len() {
				if mp.depth >= DepthQSChecks && !mp.evasions {
					mp.stage = stageQSCheckInit
					continue
				}
				mp.stage = stageDone
				continue
			}
			m := mp.pickBest()
			if mp.wasEmitted(m) {
				continue
			}
			return m

		case stageQSCheckInit:
			mp.moves = mp.pos.GeneratePseudoLegal(board.GenQuietChecks)
			mp.cur = 0
			mp.stage = stageQSCheck

		case stageQSCheck:
			if mp.cur >= mp.moves.Len() {
				mp.stage = stageDone
				continue
			}
			m := mp.moves.Get(mp.cur)
			mp.cur++
			if mp.wasEmitted(m) {
				continue
			}
			return m

		case stageProbCutInit:
			mp.moves = mp.pos.GeneratePseudoLegal(board.GenCaptures)
			mp.scoreCaptures()
			mp.cur = 0
			mp.stage = stageProbCut

		case stageProbCut:
			if mp.cur >= mp.moves.Len() {
				mp.stage = stageDone
				continue
			}
			m := mp.pickBest()
			if !mp.pos.SeeGe(m, mp.threshold) {
				continue
			}
			return m

		default:
			return board.NoMove
		}
	}
}

// capturedType returns the piece type a capture wins; promotions without
// a capture count as pawns for history purposes.
func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	captured := pos.PieceAt(m.To())
	if captured == board.NoPiece {
		return board.Pawn
	}
	return captured.Type()
}
