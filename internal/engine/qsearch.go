package engine

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

const qsFutilityMargin = 155

// qsearch resolves tactics at the horizon: captures, promotions and, at
// the first quiescence ply, quiet checks. TT entries written here use one
// of the two fixed quiescence depths.
func (w *worker) qsearch(nt nodeType, ply, alpha, beta, depth int) int {
	pvNode := nt == nodePV
	pos := w.pos
	ss := w.stack.at(ply)

	if pvNode {
		w.pv.reset(ply)
		if ply+1 > w.selDepth {
			w.selDepth = ply + 1
		}
	}

	w.countNode()

	ss.inCheck = pos.InCheck()
	ss.moveCount = 0

	if w.pool.stop.Load() || w.isDraw(ply) || ply >= MaxPly {
		if ply >= MaxPly && !ss.inCheck {
			return w.evaluate()
		}
		return w.drawValue()
	}

	// Fixed TT depth: checks-included or captures-only.
	ttDepth := DepthQSNoChecks
	if ss.inCheck || depth >= DepthQSChecks {
		ttDepth = DepthQSChecks
	}

	posKey := pos.Hash
	tte, ttHit := w.tt.Probe(posKey)
	ss.ttHit = ttHit

	ttValue := ValueNone
	ttMove := board.NoMove
	if ttHit {
		ttValue = valueFromTT(tte.Value(), ply, pos.Rule50())
		ttMove = tte.Move()
	}
	pvHit := ttHit && tte.IsPV()

	if !pvNode && ttHit && tte.Depth() >= ttDepth &&
		ttValue != ValueNone &&
		boundCovers(tte.Bound(), ttValue, beta) {
		return ttValue
	}

	var bestValue, futilityBase int
	pureStaticEval := ValueNone

	// Stand pat: the static eval bounds the node when not in check.
	if ss.inCheck {
		ss.staticEval = ValueNone
		bestValue = -Infinite
		futilityBase = -Infinite
	} else {
		if ttHit {
			pureStaticEval = tte.Eval()
			if pureStaticEval == ValueNone {
				pureStaticEval = w.evaluate()
			}
			bestValue = pureStaticEval
			ss.staticEval = bestValue
			// The TT value may be a tighter bound.
			if ttValue != ValueNone && boundCovers(tte.Bound(), ttValue, bestValue+1) {
				bestValue = ttValue
			}
		} else {
			prevEval := w.stack.at(ply - 1).staticEval
			if w.stack.at(ply-1).currentMove == board.NoMove && prevEval != ValueNone && ply > 0 {
				pureStaticEval = -prevEval + 2*tempoValue
			} else {
				pureStaticEval = w.evaluate()
			}
			bestValue = pureStaticEval
			ss.staticEval = bestValue
		}

		if bestValue >= beta {
			if !ttHit {
				w.tt.Save(tte, posKey, valueToTT(bestValue, ply), false,
					BoundLower, DepthNone, board.NoMove, pureStaticEval)
			}
			return bestValue
		}

		if pvNode && bestValue > alpha {
			alpha = bestValue
		}

		futilityBase = bestValue + qsFutilityMargin
	}

	contHists := [4]*PieceToHistory{
		w.stack.at(ply - 1).contHist,
		w.stack.at(ply - 2).contHist,
		w.stack.at(ply - 4).contHist,
		w.stack.at(ply - 6).contHist,
	}

	mp := newQMovePicker(pos, &w.hist, contHists, ttMove, depth)
	pinned := pos.ComputePinned()

	bestMove := board.NoMove

	for {
		move := mp.Next()
		if move == board.NoMove {
			break
		}
		if !pos.IsLegalFast(move, pinned) {
			continue
		}

		ss.moveCount++
		moveCount := ss.moveCount

		givesCheck := pos.GivesCheck(move)
		isCapture := move.IsCapture(pos)

		// Futility pruning: a capture that cannot lift the eval to alpha
		// is skipped. Advanced pawn pushes and en passant stay in.
		if bestValue > -TbWinInMaxPly && !givesCheck &&
			futilityBase > -KnownWin &&
			!pos.AdvancedPawnPush(move) && !move.IsEnPassant() {

			if moveCount > 2 {
				continue
			}

			futilityValue := futilityBase + board.PieceValue[capturedType(pos, move)]
			if futilityValue <= alpha {
				if futilityValue > bestValue {
					bestValue = futilityValue
				}
				continue
			}

			if futilityBase <= alpha && !pos.SeeGe(move, 1) {
				if futilityBase > bestValue {
					bestValue = futilityBase
				}
				continue
			}
		}

		// SEE gate: losing exchanges never stand in quiescence, except a
		// discovered check where the mover is not really hanging.
		if !ss.inCheck && !pos.SeeGe(move, 0) &&
			!(givesCheck && pos.IsDiscoveryCheckOnKing(pos.SideToMove.Other(), move)) {
			continue
		}

		ss.currentMove = move
		ss.contHist = w.contHistArena(ss.inCheck, isCapture, pos.MovedPiece(move), move.To())

		w.pushKey()
		undo := pos.MakeMove(move)
		value := -w.qsearch(nt, ply+1, -beta, -alpha, depth-1)
		pos.UnmakeMove(move, undo)
		w.popKey()

		if w.pool.stop.Load() {
			return ValueDraw
		}

		if value > bestValue {
			bestValue = value

			if value > alpha {
				bestMove = move

				if pvNode {
					w.pv.update(ply, move)
				}

				if pvNode && value < beta {
					alpha = value
				} else {
					break // fail high
				}
			}
		}
	}

	// Checkmate is decided here: in check with no moves means mated.
	if ss.inCheck && bestValue == -Infinite {
		return matedIn(ply)
	}

	b := BoundUpper
	if bestValue >= beta {
		b = BoundLower
	} else if pvNode && bestMove != board.NoMove {
		b = BoundExact
	}
	w.tt.Save(tte, posKey, valueToTT(bestValue, ply), pvHit, b, ttDepth, bestMove, pureStaticEval)

	return bestValue
}
