package engine

import (
	"math"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

// TimeManager converts the clock situation into an optimum and a maximum
// budget for the current move. The iterative-deepening driver rescales
// the optimum every iteration from search feedback; the maximum is a hard
// wall enforced by the main thread.
type TimeManager struct {
	startTime   time.Time
	optimumTime time.Duration
	maximumTime time.Duration

	// Move Overhead option: slack for GUI and transport latency.
	Overhead time.Duration
}

// Init arms the clock for a new search. ply is the game ply of the root
// position.
func (tm *TimeManager) Init(limits *Limits, us board.Color, ply int) {
	tm.startTime = time.Now()

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}

	if !limits.UseTimeManagement() {
		tm.optimumTime = time.Hour * 24
		tm.maximumTime = time.Hour * 24
		return
	}

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]
	overhead := tm.Overhead
	if overhead <= 0 {
		overhead = 10 * time.Millisecond
	}

	mtg := limits.MovesToGo
	if mtg == 0 || mtg > 50 {
		mtg = 50
	}

	// Never plan with less than one millisecond on the clock.
	budget := timeLeft + inc*time.Duration(mtg-1) - overhead*time.Duration(2+mtg)
	if budget < time.Millisecond {
		budget = time.Millisecond
	}

	// A move-horizon model: early moves deserve a larger share, and the
	// share shrinks as the expected remaining moves grow.
	optScale := math.Min(
		0.008+math.Pow(float64(ply)+3.0, 0.5)/250.0,
		0.2*float64(timeLeft)/float64(budget))
	maxScale := math.Min(7.0, 4.0+float64(ply)/12.0)

	tm.optimumTime = time.Duration(optScale * float64(budget))
	tm.maximumTime = time.Duration(math.Min(
		0.8*float64(timeLeft)-float64(overhead),
		maxScale*float64(tm.optimumTime)))

	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < tm.optimumTime {
		tm.maximumTime = tm.optimumTime
	}
}

// Elapsed returns the wall time since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Optimum is the budget the driver rescales each iteration.
func (tm *TimeManager) Optimum() time.Duration {
	return tm.optimumTime
}

// Maximum is the hard wall; the main thread stops the search 10ms before
// reaching it.
func (tm *TimeManager) Maximum() time.Duration {
	return tm.maximumTime
}
