package engine

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// Node types. PV nodes keep the principal variation and search with an
// open window; everything else runs null-window.
type nodeType int

const (
	nodeNonPV nodeType = iota
	nodePV
)

const (
	razorMargin               = 510
	counterMovePruneThreshold = 0

	ttHitAverageWindow     = 4096
	ttHitAverageResolution = 1024
)

// pawnValueMg mirrors the evaluator's middlegame pawn for history bonus
// thresholds and last-capture extensions.
const pawnValueMg = 124

// reduction computes the base LMR amount for a move from the pool's
// thread-count-scaled table.
func (w *worker) reduction(improving bool, depth, moveCount int) int {
	r := w.pool.reductions[min(depth, MaxPly-1)] * w.pool.reductions[min(moveCount, MaxPly-1)]
	red := (r + 503) / 1024
	if !improving && r > 915 {
		red++
	}
	return red
}

// futilityMargin is the eval headroom required to skip a child node.
func futilityMargin(depth int, improving bool) int {
	return 234 * (depth - boolToInt(improving))
}

// futilityMoveCount bounds how many late moves are searched at all.
func futilityMoveCount(improving bool, depth int) int {
	if improving {
		return 3 + depth*depth
	}
	return (3 + depth*depth) / 2
}

// searchPV and searchNonPV are the two monomorphized entry points over
// the shared search body.
func (w *worker) searchPV(ply, alpha, beta, depth int, cutNode bool) int {
	return w.search(nodePV, ply, alpha, beta, depth, cutNode)
}

func (w *worker) searchNonPV(ply, alpha, beta, depth int, cutNode bool) int {
	return w.search(nodeNonPV, ply, alpha, beta, depth, cutNode)
}

// search is the recursive negamax body. It updates the stack, PV,
// histories and transposition table as side effects and returns a score
// strictly inside (-Infinite, Infinite).
func (w *worker) search(nt nodeType, ply, alpha, beta, depth int, cutNode bool) int {
	pvNode := nt == nodePV
	rootNode := pvNode && ply == 0
	pos := w.pos
	ss := w.stack.at(ply)

	// Dive into quiescence at the horizon.
	if depth <= 0 {
		return w.qsearch(nt, ply, alpha, beta, DepthQSChecks)
	}

	// Check for a move that draws by repetition, or an upcoming move that
	// would. Raising alpha prunes the whole subtree behind the cycle.
	if !rootNode && pos.Rule50() >= 3 && alpha < ValueDraw &&
		pos.HasGameCycle(ply, w.keyHistory) {
		alpha = w.drawValue()
		if alpha >= beta {
			return alpha
		}
	}

	if pvNode {
		w.pv.reset(ply)
		if ply+1 > w.selDepth {
			w.selDepth = ply + 1
		}
	}

	w.countNode()

	ss.inCheck = pos.InCheck()
	ss.moveCount = 0
	ss.statScore = 0
	priorCapture := pos.CapturedPiece() != board.NoPiece

	if rootNode {
		// An already-aborted search must not touch any shared state.
		if w.pool.stop.Load() {
			return ValueDraw
		}
	} else {
		// Step 2. Aborted search and immediate draw.
		if w.pool.stop.Load() || w.isDraw(ply) || ply >= MaxPly {
			if ply >= MaxPly && !ss.inCheck {
				return w.evaluate()
			}
			return w.drawValue()
		}

		// Step 3. Mate distance pruning. A shorter mate was found upstream;
		// nothing from here can beat it.
		alpha = max(alpha, matedIn(ply))
		beta = min(beta, mateIn(ply+1))
		if alpha >= beta {
			return alpha
		}
	}

	// Grandchildren start with fresh killer slots; the child keeps the
	// ones its earlier siblings filled.
	grandChild := w.stack.at(min(ply+2, MaxPly+1))
	grandChild.killers[0] = board.NoMove
	grandChild.killers[1] = board.NoMove
	ss.currentMove = board.NoMove
	ss.contHist = w.hist.continuation.Sentinel()

	prevMove := w.stack.at(ply - 1).currentMove
	prevSq := board.NoSquare
	if prevMove != board.NoMove {
		prevSq = prevMove.To()
	}

	// Step 4. Transposition table probe. Exclusion searches get their own
	// keyspace by folding the excluded move into the key.
	excludedMove := ss.excludedMove
	posKey := pos.Hash ^ (uint64(excludedMove) << 16)
	tte, ttHit := w.tt.Probe(posKey)
	ss.ttHit = ttHit

	ttValue := ValueNone
	ttMove := board.NoMove
	if ttHit {
		ttValue = valueFromTT(tte.Value(), ply, pos.Rule50())
		ttMove = tte.Move()
	}
	if rootNode {
		ttMove = w.rootMoves[w.pvIdx].Move
	}
	if excludedMove == board.NoMove {
		ss.ttPv = pvNode || (ttHit && tte.IsPV())
	}
	formerPv := ss.ttPv && !pvNode

	if ss.ttPv && depth > 12 && ply-1 < MaxLowPlyHistory &&
		!priorCapture && prevMove != board.NoMove {
		w.hist.lowPly.Update(ply-1, prevMove, statBonus(depth-5))
	}

	// Running average of TT hits; feeds the LMR ladder.
	w.ttHitAverage = (ttHitAverageWindow-1)*w.ttHitAverage/ttHitAverageWindow +
		ttHitAverageResolution*boolToUint64(ttHit)

	// At non-PV nodes a sufficiently deep TT entry ends the node, unless
	// the 50-move counter is high enough to make stored scores suspect.
	if !pvNode && ttHit && tte.Depth() >= depth &&
		ttValue != ValueNone &&
		boundCovers(tte.Bound(), ttValue, beta) &&
		pos.Rule50() < 90 {

		if ttMove != board.NoMove {
			if ttValue >= beta {
				if !pos.CaptureOrPromotion(ttMove) {
					w.updateQuietStats(ply, ttMove, statBonus(depth), depth)
				}
				// Penalize the quiet previous move that allowed the cut.
				if prevSq != board.NoSquare && !priorCapture &&
					w.stack.at(ply-1).moveCount <= 2 {
					w.updateContinuationHistories(ply-1, pos.PieceAt(prevSq), prevSq,
						-statBonus(depth+1))
				}
			} else if !pos.CaptureOrPromotion(ttMove) {
				penalty := -statBonus(depth)
				w.hist.main.Update(pos.SideToMove, ttMove, penalty)
				w.updateContinuationHistories(ply, pos.MovedPiece(ttMove), ttMove.To(), penalty)
			}
		}
		return ttValue
	}

	// Step 5. Tablebase probe.
	maxValue := Infinite
	if !rootNode && w.pool.tbCardinality > 0 && excludedMove == board.NoMove {
		piecesCount := pos.PieceCount()
		if piecesCount <= w.pool.tbCardinality &&
			(piecesCount < w.pool.tbCardinality || depth >= w.pool.tbProbeDepth) &&
			pos.Rule50() == 0 && !pos.CanCastleAny() {

			if wdl, ok := w.pool.tb.Probe(pos); ok {
				w.tbHits.Add(1)

				const drawScore = 1 // 50-move rule in force
				value := tbValueFromWDL(int(wdl), ply, drawScore)

				b := BoundExact
				if int(wdl) < -drawScore {
					b = BoundUpper
				} else if int(wdl) > drawScore {
					b = BoundLower
				}

				if b == BoundExact ||
					(b == BoundLower && value >= beta) ||
					(b == BoundUpper && value <= alpha) {
					w.tt.Save(tte, posKey, valueToTT(value, ply), ss.ttPv, b,
						min(depth+6, MaxPly-1), board.NoMove, ValueNone)
					return value
				}

				if pvNode {
					if b == BoundLower {
						if value > alpha {
							alpha = value
						}
					} else {
						maxValue = value
					}
				}
			}
		}
	}

	eval := ValueNone
	pureStaticEval := ValueNone
	improving := false

	if ss.inCheck {
		// No usable static eval in check; skip straight to the moves.
		ss.staticEval = ValueNone
	} else {
		// Step 6. Static evaluation.
		if ttHit {
			pureStaticEval = tte.Eval()
			if pureStaticEval == ValueNone {
				pureStaticEval = w.evaluate()
			}
			eval = pureStaticEval
			ss.staticEval = eval

			// A literal draw eval would blind the node to repetition nuance.
			if eval == ValueDraw {
				eval = w.drawValue()
			}

			// The stored value may be a tighter bound on the eval.
			if ttValue != ValueNone && boundCovers(tte.Bound(), ttValue, eval+1) {
				eval = ttValue
			}
		} else {
			prevEval := w.stack.at(ply - 1).staticEval
			if prevMove == board.NoMove && prevEval != ValueNone && ply > 0 {
				// After a null move the mirrored estimate beats a fresh eval.
				pureStaticEval = -prevEval + 2*tempoValue
			} else {
				pureStaticEval = w.evaluate()
			}
			eval = pureStaticEval
			ss.staticEval = eval
			w.tt.Save(tte, posKey, ValueNone, ss.ttPv, BoundNone, DepthNone,
				board.NoMove, pureStaticEval)
		}

		// Step 7. Razoring: a hopeless eval one ply from the horizon
		// resolves in quiescence immediately.
		if !rootNode && depth == 1 && eval <= alpha-razorMargin {
			return w.qsearch(nt, ply, alpha, beta, DepthQSChecks)
		}

		improving = w.improvingAt(ply)

		// Step 8. Futility for the child: a comfortable static margin over
		// beta at shallow depth is returned outright.
		if !pvNode && depth < 8 &&
			eval-futilityMargin(depth, improving) >= beta && eval < KnownWin {
			return eval
		}

		// Step 9. Null move search with verification.
		if !pvNode && prevMove != board.NoMove &&
			w.stack.at(ply-1).statScore < 22977 &&
			eval >= beta &&
			eval >= pureStaticEval &&
			pureStaticEval >= beta-30*depth-28*boolToInt(improving)+84*boolToInt(ss.ttPv)+168 &&
			excludedMove == board.NoMove &&
			pos.HasNonPawnMaterial() &&
			(ply >= w.nmpMinPly || pos.SideToMove != w.nmpColor) {

			r := (1015+85*depth)/256 + min((eval-beta)/191, 3)

			ss.currentMove = board.NoMove
			ss.contHist = w.hist.continuation.Sentinel()

			w.pushKey()
			undo := pos.MakeNullMove()
			nullValue := -w.searchNonPV(ply+1, -beta, -beta+1, depth-r, !cutNode)
			pos.UnmakeNullMove(undo)
			w.popKey()

			if nullValue >= beta {
				// Mate and TB scores out of a null search are not proof.
				if nullValue >= TbWinInMaxPly {
					nullValue = beta
				}

				if w.nmpMinPly != 0 || (abs(beta) < KnownWin && depth < 14) {
					return nullValue
				}

				// Verification search at high depth, with null move disabled
				// for our side until deep enough in this subtree.
				w.nmpMinPly = ply + 3*(depth-r)/4
				w.nmpColor = pos.SideToMove

				v := w.searchNonPV(ply, beta-1, beta, depth-r, false)

				w.nmpMinPly = 0

				if v >= beta {
					return nullValue
				}
			}
		}

		// Step 10. ProbCut: a capture comfortably beating beta at reduced
		// depth means this node almost certainly fails high.
		if !pvNode && depth > 4 && abs(beta) < TbWinInMaxPly {
			probCutBeta := beta + 183 - 49*boolToInt(improving)

			if !(ttHit && tte.Depth() >= depth-3 && ttValue != ValueNone && ttValue < probCutBeta) {
				mp := newProbCutPicker(pos, &w.hist, probCutBeta-pureStaticEval)
				pinned := pos.ComputePinned()
				tries := 2 + 2*boolToInt(cutNode)

				for tries > 0 {
					m := mp.Next()
					if m == board.NoMove {
						break
					}
					if m == excludedMove || !pos.IsLegalFast(m, pinned) {
						continue
					}
					tries--

					ss.currentMove = m
					ss.contHist = w.contHistArena(ss.inCheck, true, pos.MovedPiece(m), m.To())

					w.pushKey()
					undo := pos.MakeMove(m)

					// Verify with quiescence first, then a reduced search.
					value := -w.qsearch(nodeNonPV, ply+1, -probCutBeta, -probCutBeta+1, DepthQSChecks)
					if value >= probCutBeta {
						value = -w.searchNonPV(ply+1, -probCutBeta, -probCutBeta+1, depth-4, !cutNode)
					}

					pos.UnmakeMove(m, undo)
					w.popKey()

					if value >= probCutBeta {
						w.tt.Save(tte, posKey, valueToTT(value, ply), ss.ttPv,
							BoundLower, depth-3, m, pureStaticEval)
						return value
					}
				}
			}
		}

		// Step 11. Internal iterative reduction on PV nodes without a
		// TT move.
		if pvNode && depth >= 6 && ttMove == board.NoMove {
			depth -= 2
		}
	}

	contHists := [4]*PieceToHistory{
		w.stack.at(ply - 1).contHist,
		w.stack.at(ply - 2).contHist,
		w.stack.at(ply - 4).contHist,
		w.stack.at(ply - 6).contHist,
	}

	counterMove := board.NoMove
	if prevSq != board.NoSquare {
		counterMove = w.hist.counters.Get(pos.PieceAt(prevSq), prevSq)
	}

	mp := newMovePicker(pos, &w.hist, contHists, ttMove, ss.killers, counterMove, depth, ply)
	pinned := pos.ComputePinned()

	// Mark the node so sibling threads reduce moves we already cover.
	var crumb markedGuard
	if ply < 8 {
		crumb = w.crumbs.enter(w.id, posKey)
	}
	defer crumb.release()

	value := -Infinite
	bestValue := -Infinite
	bestMove := board.NoMove
	moveCountPruning := false
	ttCapture := ttMove != board.NoMove && pos.CaptureOrPromotion(ttMove)
	singularQuietLMR := false

	var capturesSearched []board.Move
	var quietsSearched []board.Move

	// Step 12. Loop through the moves. The count lives in a local because
	// exclusion searches recurse through this same stack frame.
	moveCount := 0
	for {
		move := mp.Next()
		if move == board.NoMove {
			break
		}
		if move == excludedMove {
			continue
		}

		// At root only the active MultiPV slice is searched.
		if rootNode && !w.rootMoveActive(move) {
			continue
		}

		if !rootNode && !pos.IsLegalFast(move, pinned) {
			continue
		}

		moveCount++
		ss.moveCount = moveCount

		if rootNode && w.isMain() && w.tm.Elapsed() > currmoveReportDelay {
			w.pool.reportCurrmove(depth, move, moveCount+w.pvIdx)
		}

		if pvNode {
			w.stack.at(ply + 1).ttPv = false
		}

		extension := 0
		captureOrPromotion := pos.CaptureOrPromotion(move)
		movedPiece := pos.MovedPiece(move)
		givesCheck := pos.GivesCheck(move)

		newDepth := depth - 1

		// Step 13. Pruning at shallow depth.
		if !rootNode && pos.HasNonPawnMaterial() && bestValue > -TbWinInMaxPly {
			moveCountPruning = moveCount >= futilityMoveCount(improving, depth)
			if moveCountPruning {
				mp.SkipQuiets()
			}

			lmrDepth := max(newDepth-w.reduction(improving, depth, moveCount), 0)

			if !captureOrPromotion && !givesCheck {
				// Counter-move-history based pruning.
				historyGate := 4 + boolToInt(w.stack.at(ply-1).statScore > 0 ||
					w.stack.at(ply-1).moveCount == 1)
				if lmrDepth < historyGate &&
					contHists[0].Get(movedPiece, move.To()) < counterMovePruneThreshold &&
					contHists[1].Get(movedPiece, move.To()) < counterMovePruneThreshold {
					continue
				}

				// Futility pruning for the parent node.
				if lmrDepth < 7 && !ss.inCheck &&
					ss.staticEval+266+170*lmrDepth <= alpha &&
					contHists[0].Get(movedPiece, move.To())+
						contHists[1].Get(movedPiece, move.To())+
						contHists[2].Get(movedPiece, move.To())+
						contHists[3].Get(movedPiece, move.To())/2 < 27376 {
					continue
				}

				// Quiet moves losing too much material are hopeless.
				if !pos.SeeGe(move, -(30-min(lmrDepth, 18))*lmrDepth*lmrDepth) {
					continue
				}
			} else {
				// Capture history based pruning at the lowest depth.
				if !givesCheck && lmrDepth < 1 &&
					w.hist.capture.Get(movedPiece, move.To(), capturedType(pos, move)) < 0 {
					continue
				}

				// SEE based pruning for losing captures.
				if !pos.SeeGe(move, -213*depth) {
					continue
				}
			}
		}

		// Step 14. Extensions.
		if depth >= 7 && move == ttMove && !rootNode &&
			excludedMove == board.NoMove &&
			ttValue != ValueNone && abs(ttValue) < KnownWin &&
			tte.Bound()&BoundLower != 0 &&
			tte.Depth() >= depth-3 &&
			pos.IsLegalFast(move, pinned) {

			// Singular extension: if every alternative fails well below the
			// TT value, the TT move is the only move and deserves a ply.
			singularBeta := ttValue - (boolToInt(formerPv)+4)*depth/2
			singularDepth := (depth - 1 + 3*boolToInt(formerPv)) / 2

			ss.excludedMove = move
			v := w.searchNonPV(ply, singularBeta-1, singularBeta, singularDepth, cutNode)
			ss.excludedMove = board.NoMove

			if v < singularBeta {
				extension = 1
				singularQuietLMR = !ttCapture
			} else if singularBeta >= beta {
				// Multi-cut: even with the best move excluded the node beats
				// beta, so more than one move does.
				return singularBeta
			} else if ttValue >= beta {
				// Alternatives nearly reach beta too; confirm the fail-high
				// with a deeper null-window search before trusting it.
				ss.excludedMove = move
				v = w.searchNonPV(ply, beta-1, beta, (depth+3)/2, cutNode)
				ss.excludedMove = board.NoMove
				if v >= beta {
					return beta
				}
			}
		} else if givesCheck &&
			(pos.IsDiscoveryCheckOnKing(pos.SideToMove.Other(), move) || pos.SeeGe(move, 0)) {
			extension = 1
		} else if captured := pos.CapturedPiece(); captured != board.NoPiece &&
			board.PieceValue[captured.Type()] > board.PieceValue[board.Pawn] &&
			pos.NonPawnMaterial(board.White)+pos.NonPawnMaterial(board.Black) <= 2*board.PieceValue[board.Rook] {
			// Last-captures extension: recapture sequences in nearly bare
			// positions must play out before the evaluation is trusted.
			extension = 1
		}

		// Irreversible moves close to a 50-move draw restart the counter;
		// the critical move gets extra depth.
		if move == ttMove && pos.Rule50() > 80 &&
			(captureOrPromotion || movedPiece.Type() == board.Pawn) {
			extension = 2
		}

		newDepth += extension

		ss.moveCount = moveCount
		ss.currentMove = move
		ss.contHist = w.contHistArena(ss.inCheck, captureOrPromotion, movedPiece, move.To())

		// Step 15. Make the move.
		w.pushKey()
		undo := pos.MakeMove(move)

		doFullDepthSearch := false
		didLMR := false

		// Step 16. Late move reductions.
		if depth >= 3 && moveCount > 1+2*boolToInt(rootNode) &&
			(!captureOrPromotion ||
				moveCountPruning ||
				ss.staticEval+board.PieceValue[capturedPieceTypeAfter(pos)] <= alpha ||
				cutNode ||
				w.ttHitAverage < 432*ttHitAverageResolution*ttHitAverageWindow/1024) {

			r := w.reduction(improving, depth, moveCount)

			if w.ttHitAverage > 537*ttHitAverageResolution*ttHitAverageWindow/1024 {
				r--
			}

			if crumb.otherThread {
				r++
			}

			if ss.ttPv {
				r -= 2
			}

			if (rootNode || !pvNode) && depth > 10 && w.bestMoveChanges <= 2 {
				r++
			}

			if moveCountPruning && !formerPv {
				r++
			}

			if w.stack.at(ply-1).moveCount > 13 {
				r--
			}

			if singularQuietLMR {
				r--
			}

			if !captureOrPromotion {
				if ttCapture {
					r++
				}

				if rootNode {
					r += w.failedHighCnt * w.failedHighCnt * moveCount / 512
				}

				if cutNode {
					r += 2
				}

				// A piece fleeing a profitable capture usually deserves full
				// depth to prove the escape.
				if move.Flag() == board.FlagNormal && !pos.SeeGe(move.Reverse(), 0) {
					r -= 2 + boolToInt(ss.ttPv) - boolToInt(movedPiece.Type() == board.Pawn)
				}

				ss.statScore = w.hist.main.Get(pos.SideToMove.Other(), move) +
					contHists[0].Get(movedPiece, move.To()) +
					contHists[1].Get(movedPiece, move.To()) +
					contHists[2].Get(movedPiece, move.To()) - 5287

				if ss.statScore >= -105 && w.stack.at(ply-1).statScore < -103 {
					r--
				} else if w.stack.at(ply-1).statScore >= -122 && ss.statScore < -129 {
					r++
				}

				r -= ss.statScore / 14884
			} else {
				// Late captures at low depth rarely recover.
				if depth < 8 && moveCount > 2 {
					r++
				}

				// A capture still leaving us below alpha is overrated by its
				// victim value alone.
				if !givesCheck &&
					ss.staticEval+board.PieceValue[capturedPieceTypeAfter(pos)]+210*depth <= alpha {
					r++
				}
			}

			d := clamp(newDepth-r, 1, newDepth)
			value = -w.searchNonPV(ply+1, -alpha-1, -alpha, d, true)

			doFullDepthSearch = value > alpha && d != newDepth
			didLMR = true
		} else {
			doFullDepthSearch = !pvNode || moveCount > 1
		}

		// Step 17. Full-depth null-window search when LMR was skipped or
		// the reduced search was beaten.
		if doFullDepthSearch {
			value = -w.searchNonPV(ply+1, -alpha-1, -alpha, newDepth, !cutNode)

			if didLMR && !captureOrPromotion {
				bonus := -statBonus(newDepth)
				if value > alpha {
					bonus = statBonus(newDepth)
					if move == ss.killers[0] {
						bonus += bonus / 4
					}
				}
				w.updateContinuationHistories(ply, movedPiece, move.To(), bonus)
			}
		}

		// The first PV move, and any move improving alpha inside the
		// window, is re-searched with the full window.
		if pvNode && (moveCount == 1 || (value > alpha && (rootNode || value < beta))) {
			value = -w.searchPV(ply+1, -beta, -alpha, newDepth, false)
		}

		// Step 18. Unmake.
		pos.UnmakeMove(move, undo)
		w.popKey()

		// Step 19. An aborted search result is garbage; return without
		// touching the TT, PV or histories.
		if w.pool.stop.Load() {
			return ValueDraw
		}

		if rootNode {
			rm := w.findRootMove(move)
			if rm.AverageScore == -Infinite {
				rm.AverageScore = value
			} else {
				rm.AverageScore = (rm.AverageScore + value) / 2
			}

			if moveCount == 1 || value > alpha {
				rm.Score = value
				rm.SelDepth = w.selDepth
				rm.PV = rm.PV[:1]
				rm.PV = append(rm.PV, w.pv.line(ply+1)...)

				if moveCount > 1 {
					w.bestMoveChanges++
				}
			} else {
				// Keep unsearched moves behind the sorted prefix.
				rm.Score = -Infinite
			}
		}

		if value > bestValue {
			bestValue = value

			if value > alpha {
				bestMove = move

				if pvNode && !rootNode {
					w.pv.update(ply, move)
				}

				if pvNode && value < beta {
					alpha = value
				} else {
					break // fail high
				}
			}
		}

		if move != bestMove {
			if captureOrPromotion && len(capturesSearched) < 32 {
				capturesSearched = append(capturesSearched, move)
			} else if !captureOrPromotion && len(quietsSearched) < 64 {
				quietsSearched = append(quietsSearched, move)
			}
		}
	}

	ss.moveCount = moveCount

	// Step 20. Mate, stalemate and singular-exclusion terminals.
	if moveCount == 0 {
		if excludedMove != board.NoMove {
			bestValue = alpha
		} else if ss.inCheck {
			bestValue = matedIn(ply)
		} else {
			bestValue = ValueDraw
		}
	} else if bestMove != board.NoMove {
		w.updateAllStats(ply, bestMove, bestValue, beta, depth, prevSq, priorCapture,
			quietsSearched, capturesSearched)
	} else if (depth >= 3 || pvNode) && !priorCapture && prevSq != board.NoSquare {
		// The node failed low quietly; credit the opponent's last move.
		w.updateContinuationHistories(ply-1, pos.PieceAt(prevSq), prevSq, statBonus(depth))
	}

	if pvNode && bestValue > maxValue {
		bestValue = maxValue
	}

	// Propagate ttPv across fail-lows and through the best child.
	if bestValue <= alpha {
		ss.ttPv = ss.ttPv || (w.stack.at(ply-1).ttPv && depth > 3)
	} else if moveCount > 0 && depth > 3 {
		ss.ttPv = ss.ttPv && w.stack.at(ply+1).ttPv
	}

	// Step 21. Store the result, except under exclusion or in secondary
	// MultiPV slots where it would poison the primary line.
	if excludedMove == board.NoMove && !(rootNode && w.pvIdx > 0) {
		b := BoundUpper
		if bestValue >= beta {
			b = BoundLower
		} else if pvNode && bestMove != board.NoMove {
			b = BoundExact
		}
		w.tt.Save(tte, posKey, valueToTT(bestValue, ply), ss.ttPv, b, depth, bestMove, pureStaticEval)
	}

	return bestValue
}

// boundCovers reports whether the stored bound makes ttValue decisive
// against the given threshold.
func boundCovers(b Bound, ttValue, threshold int) bool {
	if ttValue >= threshold {
		return b&BoundLower != 0
	}
	return b&BoundUpper != 0
}

// capturedPieceTypeAfter reads the capture that MakeMove just recorded,
// for terms computed with the move already on the board.
func capturedPieceTypeAfter(pos *board.Position) board.PieceType {
	captured := pos.CapturedPiece()
	if captured == board.NoPiece {
		return board.Pawn
	}
	return captured.Type()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
