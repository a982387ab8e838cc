package engine

import (
	"testing"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

func TestTimeManagerFixedMoveTime(t *testing.T) {
	var tm TimeManager
	limits := &Limits{MoveTime: 250 * time.Millisecond}
	tm.Init(limits, board.White, 0)

	if tm.Optimum() != 250*time.Millisecond || tm.Maximum() != 250*time.Millisecond {
		t.Errorf("movetime budgets wrong: opt=%v max=%v", tm.Optimum(), tm.Maximum())
	}
}

func TestTimeManagerInfinite(t *testing.T) {
	var tm TimeManager
	tm.Init(&Limits{Infinite: true}, board.White, 0)

	if tm.Maximum() < time.Hour {
		t.Errorf("infinite search got a finite budget: %v", tm.Maximum())
	}
}

func TestTimeManagerClockBudgets(t *testing.T) {
	var tm TimeManager
	limits := &Limits{}
	limits.Time[board.White] = 60 * time.Second
	limits.Inc[board.White] = time.Second

	tm.Init(limits, board.White, 20)

	if tm.Optimum() <= 0 {
		t.Fatal("optimum not positive")
	}
	if tm.Maximum() < tm.Optimum() {
		t.Errorf("maximum %v below optimum %v", tm.Maximum(), tm.Optimum())
	}
	// Never plan to spend most of the clock on one move.
	if tm.Maximum() > 48*time.Second {
		t.Errorf("maximum %v exceeds 80%% of remaining time", tm.Maximum())
	}
	if tm.Optimum() > 10*time.Second {
		t.Errorf("optimum %v is an implausible share of a 60s clock", tm.Optimum())
	}
}

func TestTimeManagerLowClock(t *testing.T) {
	var tm TimeManager
	limits := &Limits{}
	limits.Time[board.Black] = 80 * time.Millisecond

	tm.Init(limits, board.Black, 60)

	if tm.Maximum() > 80*time.Millisecond {
		t.Errorf("maximum %v exceeds the whole remaining clock", tm.Maximum())
	}
}
