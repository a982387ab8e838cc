package engine

import (
	"github.com/kestrelchess/kestrel/internal/board"
)

// Bound describes how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1
	BoundLower Bound = 2
	BoundExact Bound = BoundUpper | BoundLower
)

// TTEntry is one slot of the transposition table: 10 bytes, lossy.
// genBound8 packs the generation (upper 5 bits, stepped by 8), a PV flag
// (bit 2) and the bound (bits 0-1). depth8 stores depth-depthOffset so
// the quiescence sentinels remain representable and even a bare-eval
// entry (depth DepthNone) reads back as occupied. A zero depth8 marks an
// unused slot.
type TTEntry struct {
	key16     uint16
	move16    uint16
	value16   int16
	eval16    int16
	genBound8 uint8
	depth8    uint8
}

const (
	generationDelta = 8    // one step of the aging clock
	generationMask  = 0xF8 // generation bits within genBound8

	// depthOffset sits one below DepthNone so every stored depth is a
	// positive byte.
	depthOffset = DepthNone - 1
)

// Move returns the stored best move.
func (e *TTEntry) Move() board.Move { return board.Move(e.move16) }

// Value returns the stored score, rebased to distance-from-node.
func (e *TTEntry) Value() int { return int(e.value16) }

// Eval returns the stored static evaluation.
func (e *TTEntry) Eval() int { return int(e.eval16) }

// Depth returns the stored search depth.
func (e *TTEntry) Depth() int { return int(e.depth8) + depthOffset }

// Bound returns the stored bound type.
func (e *TTEntry) Bound() Bound { return Bound(e.genBound8 & 0x3) }

// IsPV reports whether the entry was stored from a PV node.
func (e *TTEntry) IsPV() bool { return e.genBound8&0x4 != 0 }

// ttCluster groups three entries sharing an index; with two spare bytes
// it fills half a cache line.
type ttCluster struct {
	entries [3]TTEntry
	_       [2]byte
}

// TranspositionTable is the shared, lock-free, lossy search cache. Reads
// and writes deliberately race: every consumer re-validates what it gets
// back, and a torn entry degrades to a miss or a useless move that the
// search discards after the legality check.
type TranspositionTable struct {
	clusters   []ttCluster
	generation uint8
}

// NewTranspositionTable allocates a table of the given size in MiB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	count := uint64(sizeMB) * 1024 * 1024 / 32
	count = roundDownPowerOfTwo(count)
	return &TranspositionTable{
		clusters: make([]ttCluster, count),
	}
}

func roundDownPowerOfTwo(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Resize replaces the table with one of the new size, dropping contents.
func (tt *TranspositionTable) Resize(sizeMB int) {
	*tt = *NewTranspositionTable(sizeMB)
}

// NewSearch advances the aging clock. Called once per root search.
func (tt *TranspositionTable) NewSearch() {
	tt.generation += generationDelta
}

// Clear zeroes every entry. Called on ucinewgame.
func (tt *TranspositionTable) Clear() {
	for i := range tt.clusters {
		tt.clusters[i] = ttCluster{}
	}
	tt.generation = 0
}

// relativeAge measures how many generations ago an entry was written,
// in generationDelta units, immune to wrap-around.
func (tt *TranspositionTable) relativeAge(genBound8 uint8) int {
	return int((generationDelta + tt.generation - genBound8) & generationMask)
}

// Probe looks up key. On a hit it returns the matching entry and true.
// On a miss it returns the replacement victim, the least valuable entry
// of the cluster, and false; Save writes through that pointer.
func (tt *TranspositionTable) Probe(key uint64) (*TTEntry, bool) {
	cluster := &tt.clusters[key&uint64(len(tt.clusters)-1)]
	key16 := uint16(key >> 48)

	for i := range cluster.entries {
		e := &cluster.entries[i]
		if e.key16 == key16 && e.depth8 != 0 {
			// Refresh the generation so a useful entry survives aging.
			e.genBound8 = tt.generation | (e.genBound8 & 0x7)
			return e, true
		}
	}

	replace := &cluster.entries[0]
	for i := 1; i < len(cluster.entries); i++ {
		e := &cluster.entries[i]
		if int(replace.depth8)-tt.relativeAge(replace.genBound8) >
			int(e.depth8)-tt.relativeAge(e.genBound8) {
			replace = e
		}
	}
	return replace, false
}

// Save conditionally overwrites the entry with the new data. The stored
// move is preserved when the caller has none for the same position. A
// different position is always overwritten; for the same position the new
// data is written when it carries an exact bound or when its depth plus 4
// (plus 2 more at PV nodes) exceeds the stored depth less the entry's
// relative age, so results up to three plies shallower (five at PV nodes)
// still replace a current-generation entry.
func (tt *TranspositionTable) Save(e *TTEntry, key uint64, value int, pv bool, bound Bound, depth int, move board.Move, eval int) {
	key16 := uint16(key >> 48)

	if move != board.NoMove || key16 != e.key16 {
		e.move16 = uint16(move)
	}

	pvBonus := 0
	if pv {
		pvBonus = 1
	}

	if bound == BoundExact ||
		key16 != e.key16 ||
		depth+2*pvBonus+4 > e.Depth()-tt.relativeAge(e.genBound8) {
		e.key16 = key16
		e.value16 = int16(value)
		e.eval16 = int16(eval)
		pvBit := uint8(0)
		if pv {
			pvBit = 0x4
		}
		e.genBound8 = tt.generation | pvBit | uint8(bound)
		e.depth8 = uint8(depth - depthOffset)
	}
}

// Hashfull estimates table occupancy in permille, sampling the first
// thousand clusters for entries of the current generation. The result is
// rounded up, so a single such entry already reports 1.
func (tt *TranspositionTable) Hashfull() int {
	sample := 1000
	if len(tt.clusters) < sample {
		sample = len(tt.clusters)
	}
	cnt := 0
	for i := 0; i < sample; i++ {
		for j := range tt.clusters[i].entries {
			e := &tt.clusters[i].entries[j]
			if e.depth8 != 0 && e.genBound8&generationMask == tt.generation {
				cnt++
			}
		}
	}
	return (cnt*1000 + sample*3 - 1) / (sample * 3)
}
