package authflow

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// inflightGuard is the explicit single-slot submission gate. The UI's
// disabled submit control enforces the same discipline visually; the guard
// makes it a hard contract that survives without a UI.
type inflightGuard struct {
	busy atomic.Bool
}

// acquire reports whether the caller now owns the in-flight slot.
func (g *inflightGuard) acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *inflightGuard) release() {
	g.busy.Store(false)
}

// loading reports whether a submission currently holds the slot.
func (g *inflightGuard) loading() bool {
	return g.busy.Load()
}

func newFormID() string {
	return uuid.NewString()
}
