package engine

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// Saturation limits per table. Updates use the gravity formula
// entry += bonus - entry*|bonus|/limit, which converges toward ±limit.
const (
	mainHistoryMax         = 16384
	lowPlyHistoryMax       = 16384
	captureHistoryMax      = 29000
	continuationHistoryMax = 32000
)

// statBonus is the depth-scaled reward applied to history entries.
func statBonus(depth int) int {
	if depth > 13 {
		return 29
	}
	return 17*depth*depth + 134*depth - 134
}

// gravity applies a saturating update to a counter.
func gravity(entry *int16, bonus, limit int) {
	v := int(*entry) + bonus - int(*entry)*abs(bonus)/limit
	*entry = int16(clamp(v, -limit, limit))
}

// ButterflyHistory scores quiet moves by side and from/to squares.
type ButterflyHistory [2][64 * 64]int16

func (h *ButterflyHistory) Get(c board.Color, m board.Move) int {
	return int(h[c][int(m.From())*64+int(m.To())])
}

func (h *ButterflyHistory) Update(c board.Color, m board.Move, bonus int) {
	gravity(&h[c][int(m.From())*64+int(m.To())], bonus, mainHistoryMax)
}

// LowPlyHistory scores quiet moves near the root, keyed by ply.
type LowPlyHistory [MaxLowPlyHistory][64 * 64]int16

func (h *LowPlyHistory) Get(ply int, m board.Move) int {
	return int(h[ply][int(m.From())*64+int(m.To())])
}

func (h *LowPlyHistory) Update(ply int, m board.Move, bonus int) {
	gravity(&h[ply][int(m.From())*64+int(m.To())], bonus, lowPlyHistoryMax)
}

// ShiftDown ages the table at the start of a new root search: statistics
// gathered at ply N now describe ply N-2, and the deepest two plies start
// fresh.
func (h *LowPlyHistory) ShiftDown() {
	copy(h[:MaxLowPlyHistory-2], h[2:])
	for i := MaxLowPlyHistory - 2; i < MaxLowPlyHistory; i++ {
		h[i] = [64 * 64]int16{}
	}
}

// CaptureHistory scores captures by moving piece, target square and
// captured piece type.
type CaptureHistory [12][64][6]int16

func (h *CaptureHistory) Get(pc board.Piece, to board.Square, captured board.PieceType) int {
	if pc >= board.NoPiece || captured >= board.King {
		return 0
	}
	return int(h[pc][to][captured])
}

func (h *CaptureHistory) Update(pc board.Piece, to board.Square, captured board.PieceType, bonus int) {
	if pc >= board.NoPiece || captured >= board.King {
		return
	}
	gravity(&h[pc][to][captured], bonus, captureHistoryMax)
}

// PieceToHistory is one continuation-history arena: scores keyed by the
// (piece, to-square) of a follow-up move. Stack frames hold pointers into
// ContinuationHistory so updates at ply N can reach the tables selected
// at plies N-1, N-2, N-4 and N-6.
type PieceToHistory [12][64]int16

func (h *PieceToHistory) Get(pc board.Piece, to board.Square) int {
	if pc >= board.NoPiece {
		return 0
	}
	return int(h[pc][to])
}

func (h *PieceToHistory) Update(pc board.Piece, to board.Square, bonus int) {
	if pc >= board.NoPiece {
		return
	}
	gravity(&h[pc][to], bonus, continuationHistoryMax)
}

// ContinuationHistory maps a prior move's (piece, to-square) to the arena
// scoring its continuations. The second index pair [inCheck][capture]
// separates statistics gathered in different node classes.
type ContinuationHistory [2][2][13][64]PieceToHistory

// Sentinel returns the arena used when there is no prior move (ply 0 or
// after a null move).
func (h *ContinuationHistory) Sentinel() *PieceToHistory {
	return &h[0][0][board.NoPiece][0]
}

// CounterMoves remembers the refutation of a move keyed by its piece and
// to-square.
type CounterMoves [13][64]board.Move

func (cm *CounterMoves) Get(pc board.Piece, to board.Square) board.Move {
	return cm[pc][to]
}

func (cm *CounterMoves) Update(pc board.Piece, to board.Square, m board.Move) {
	cm[pc][to] = m
}

// historyTables bundles the per-thread statistics. Each worker owns one
// set; nothing here is shared or synchronized.
type historyTables struct {
	main         ButterflyHistory
	lowPly       LowPlyHistory
	capture      CaptureHistory
	continuation ContinuationHistory
	counters     CounterMoves
}

func (ht *historyTables) clear() {
	ht.main = ButterflyHistory{}
	ht.lowPly = LowPlyHistory{}
	ht.capture = CaptureHistory{}
	ht.continuation = ContinuationHistory{}
	ht.counters = CounterMoves{}
}
