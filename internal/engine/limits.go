package engine

import (
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

// Limits carries everything a "go" command may constrain the search by.
type Limits struct {
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int
	MoveTime  time.Duration
	Depth     int
	Nodes     uint64
	Mate      int
	Infinite  bool
	Ponder    bool

	// SearchMoves restricts the root to the listed moves when non-empty.
	SearchMoves []board.Move
}

// UseTimeManagement reports whether the clock, rather than a fixed
// constraint, decides when to stop.
func (l *Limits) UseTimeManagement() bool {
	return l.Time[board.White] > 0 || l.Time[board.Black] > 0
}
