// Package tablebase defines the endgame tablebase seam the search probes.
// The engine consumes only this interface; wiring an actual Syzygy prober
// behind it is a deployment concern.
package tablebase

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// WDL is a win/draw/loss classification under the 50-move rule.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // loss the 50-move rule may rescue
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // win the 50-move rule may void
	WDLWin         WDL = 2
)

// RootResult is the tablebase verdict for one root move.
type RootResult struct {
	Move board.Move
	WDL  WDL
	DTZ  int
}

// Prober answers position lookups. Implementations must be safe for
// concurrent use: every search thread probes through the same value. A
// failed probe reports ok=false and carries no information; the search
// goes on without a tablebase result at that node, and probing is not
// disabled for the nodes below it.
type Prober interface {
	// Probe classifies the position from the side to move's view.
	Probe(pos *board.Position) (wdl WDL, ok bool)

	// ProbeRoot classifies every legal root move, or reports ok=false if
	// the position cannot be ranked.
	ProbeRoot(pos *board.Position) (results []RootResult, ok bool)

	// MaxPieces is the largest piece count the tables cover.
	MaxPieces() int

	// Available reports whether any tables are loaded.
	Available() bool
}

// NoopProber is the placeholder wired in when no tablebases exist.
type NoopProber struct{}

func (NoopProber) Probe(*board.Position) (WDL, bool)              { return WDLDraw, false }
func (NoopProber) ProbeRoot(*board.Position) ([]RootResult, bool) { return nil, false }
func (NoopProber) MaxPieces() int                                 { return 0 }
func (NoopProber) Available() bool                                { return false }
