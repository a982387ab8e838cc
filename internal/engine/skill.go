package engine

import (
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

// skillSelector weakens play by sometimes choosing a sub-optimal root
// move. Level 20 plays full strength; lower levels pick among the top
// MultiPV candidates with noise proportional to how weak the level is.
type skillSelector struct {
	level int
	best  board.Move
	rng   uint64
}

func newSkillSelector(opts Options) skillSelector {
	level := opts.SkillLevel
	if opts.LimitStrength {
		level = clamp((opts.Elo-1350)/75, 0, 20)
	}
	return skillSelector{
		level: level,
		rng:   uint64(time.Now().UnixNano()) | 1,
	}
}

func (s *skillSelector) enabled() bool {
	return s.level < 20
}

// timeToPick delays the handicap decision until the search has reached a
// depth matching the level, so weak levels decide on shallow information.
func (s *skillSelector) timeToPick(depth int) bool {
	return depth == 1+s.level
}

func (s *skillSelector) next() uint64 {
	s.rng ^= s.rng >> 12
	s.rng ^= s.rng << 25
	s.rng ^= s.rng >> 27
	return s.rng * 0x2545F4914F6CDD1D
}

// pickBest chooses the handicapped move among the first multiPV root
// moves: each candidate gets its score plus a noise term that grows with
// weakness and with the spread of the candidate scores, and the best
// perturbed sum wins. The true best move is never exceeded, only
// abandoned.
func (s *skillSelector) pickBest(w *worker, multiPV int) board.Move {
	n := min(multiPV, len(w.rootMoves))
	if n == 0 {
		return board.NoMove
	}

	topScore := w.rootMoves[0].Score
	spread := min(topScore-w.rootMoves[n-1].Score, pawnValueMg)
	weakness := 120 - 2*s.level

	best := board.NoMove
	maxScore := -Infinite

	for i := 0; i < n; i++ {
		score := w.rootMoves[i].Score
		push := weakness*(topScore-score) + spread*int(s.next()%uint64(weakness+1))
		push /= 128
		if score+push >= maxScore {
			maxScore = score + push
			best = w.rootMoves[i].Move
		}
	}

	s.best = best
	return best
}

// commit moves the chosen handicapped move to the front of the main
// thread's root list before bestmove is emitted.
func (s *skillSelector) commit(w *worker) {
	pick := s.best
	if pick == board.NoMove {
		pick = s.pickBest(w, w.multiPV)
	}
	for i := range w.rootMoves {
		if w.rootMoves[i].Move == pick {
			w.rootMoves[0], w.rootMoves[i] = w.rootMoves[i], w.rootMoves[0]
			break
		}
	}
}
