package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kestrelchess/kestrel/internal/board"
)

// Score is a UCI-facing score: centipawns or moves-to-mate, with an
// optional bound qualifier.
type Score struct {
	CP         int
	MateIn     int
	IsMate     bool
	LowerBound bool
	UpperBound bool
}

// ScoreCP builds a centipawn score.
func ScoreCP(cp int) Score { return Score{CP: cp} }

// ScoreMate builds a mate-in-N score (negative N: we get mated).
func ScoreMate(n int) Score { return Score{MateIn: n, IsMate: true} }

// scoreFromInternal converts an internal value to the UCI convention.
func scoreFromInternal(v int) Score {
	if v >= MateInMaxPly {
		return ScoreMate((Mate - v + 1) / 2)
	}
	if v <= -MateInMaxPly {
		return ScoreMate(-(Mate + v) / 2)
	}
	// Normalize to centipawns on the conventional 100cp-pawn scale.
	return ScoreCP(v * 100 / pawnValueMg)
}

func (s Score) String() string {
	var b strings.Builder
	if s.IsMate {
		fmt.Fprintf(&b, "mate %d", s.MateIn)
	} else {
		fmt.Fprintf(&b, "cp %d", s.CP)
	}
	if s.LowerBound {
		b.WriteString(" lowerbound")
	} else if s.UpperBound {
		b.WriteString(" upperbound")
	}
	return b.String()
}

// Info is one UCI info payload. CurrMove lines and PV lines share the
// type; unset fields stay off the wire.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    Score
	WDL      *[3]int
	Nodes    uint64
	NPS      uint64
	Hashfull int
	TBHits   uint64
	Time     time.Duration
	PV       []board.Move

	CurrMove       board.Move
	CurrMoveNumber int
}

// String renders the payload as a UCI info line (without the "info "
// prefix).
func (info Info) String() string {
	var b strings.Builder

	if info.CurrMove != board.NoMove {
		fmt.Fprintf(&b, "depth %d currmove %s currmovenumber %d",
			info.Depth, info.CurrMove, info.CurrMoveNumber)
		return b.String()
	}

	fmt.Fprintf(&b, "depth %d", info.Depth)
	if info.SelDepth > 0 {
		fmt.Fprintf(&b, " seldepth %d", info.SelDepth)
	}
	if info.MultiPV > 0 {
		fmt.Fprintf(&b, " multipv %d", info.MultiPV)
	}
	fmt.Fprintf(&b, " score %s", info.Score)
	if info.WDL != nil {
		fmt.Fprintf(&b, " wdl %d %d %d", info.WDL[0], info.WDL[1], info.WDL[2])
	}
	fmt.Fprintf(&b, " nodes %d nps %d", info.Nodes, info.NPS)
	if info.Hashfull > 0 {
		fmt.Fprintf(&b, " hashfull %d", info.Hashfull)
	}
	if info.TBHits > 0 {
		fmt.Fprintf(&b, " tbhits %d", info.TBHits)
	}
	fmt.Fprintf(&b, " time %d", info.Time.Milliseconds())
	if len(info.PV) > 0 {
		b.WriteString(" pv")
		for _, m := range info.PV {
			b.WriteByte(' ')
			b.WriteString(m.String())
		}
	}
	return b.String()
}

// winRateModel estimates the win probability permille for the side to
// move from an internal score and the game ply, with a logistic curve
// whose slope flattens as the game advances.
func winRateModel(v, ply int) int {
	m := float64(min(ply, 240)) / 64.0
	a := ((-8.24/3.0*m+64.8)*m+19.4)*m + 316.0
	b := ((-3.37/3.0*m+28.4)*m-56.5)*m + 72.7
	x := clampFloat(float64(v), -1000, 1000)
	rate := 0.5 + 1000/(1+math.Exp((a-x)/b))
	if rate < 0 {
		rate = 0
	}
	if rate > 1000 {
		rate = 1000
	}
	return int(rate)
}

// wdlStats converts a score into win/draw/loss permille for UCI_ShowWDL.
func wdlStats(v, ply int) [3]int {
	wdlW := winRateModel(v, ply)
	wdlL := winRateModel(-v, ply)
	return [3]int{wdlW, 1000 - wdlW - wdlL, wdlL}
}

// reportPV emits the full MultiPV block for one iteration.
func (p *Pool) reportPV(w *worker, depth, bestValue, alpha, beta int) {
	elapsed := p.tm.Elapsed()
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	nodes := p.NodesSearched()
	nps := uint64(float64(nodes) / elapsed.Seconds())

	for i := 0; i < w.multiPV; i++ {
		rm := &w.rootMoves[i]
		updated := rm.Score != -Infinite

		if depth == 1 && !updated && i > 0 {
			continue
		}

		d := depth
		v := rm.Score
		if !updated {
			d = depth - 1
			v = rm.PreviousScore
		}
		if v == -Infinite {
			continue
		}

		tb := rm.TBRank != 0 && abs(v) < MateInMaxPly
		if tb {
			v = rm.TBScore
		}

		score := scoreFromInternal(v)
		if i == 0 && !tb && updated {
			if bestValue >= beta {
				score.LowerBound = true
			} else if bestValue <= alpha {
				score.UpperBound = true
			}
		}

		info := Info{
			Depth:    d,
			SelDepth: rm.SelDepth,
			MultiPV:  i + 1,
			Score:    score,
			Nodes:    nodes,
			NPS:      nps,
			TBHits:   p.TBHits(),
			Time:     elapsed,
			PV:       rm.PV,
		}
		if elapsed > time.Second {
			info.Hashfull = p.TT.Hashfull()
		}
		if p.opts.ShowWDL {
			wdl := wdlStats(v, w.pos.GamePly())
			info.WDL = &wdl
		}
		p.emitInfo(info)
	}
}

// reportCurrmove emits the periodic root progress line.
func (p *Pool) reportCurrmove(depth int, move board.Move, number int) {
	p.emitInfo(Info{Depth: depth, CurrMove: move, CurrMoveNumber: number})
}
