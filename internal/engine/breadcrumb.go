package engine

import "sync/atomic"

// A breadcrumb marks "some thread is searching the position with this key
// near the root". Workers consult the table to reduce moves other threads
// are already exploring; everything about it is best effort.
type breadcrumb struct {
	thread atomic.Int32
	key    atomic.Uint64
}

const breadcrumbSlots = 1024

// BreadcrumbTable is the shared fixed-size marker array.
type BreadcrumbTable [breadcrumbSlots]breadcrumb

// threadNone marks a free slot. Worker ids are stored offset by one so the
// zero value means empty.
const threadNone = 0

// markedGuard records a claim taken at a node; release undoes it.
type markedGuard struct {
	slot  *breadcrumb
	owned bool
	// otherThread is true when another worker already holds this position.
	otherThread bool
}

// enter tries to claim the slot for key. Only positions at shallow ply are
// marked; the caller skips the table entirely deeper down.
func (bt *BreadcrumbTable) enter(threadID int, key uint64) markedGuard {
	slot := &bt[key&(breadcrumbSlots-1)]
	g := markedGuard{slot: slot}

	tid := slot.thread.Load()
	if tid == threadNone {
		slot.thread.Store(int32(threadID + 1))
		slot.key.Store(key)
		g.owned = true
	} else if int(tid) != threadID+1 && slot.key.Load() == key {
		g.otherThread = true
	}
	return g
}

// release clears the slot if this guard owns it.
func (g *markedGuard) release() {
	if g.owned {
		g.slot.thread.Store(threadNone)
	}
}
