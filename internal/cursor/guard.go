package cursor

import "sync/atomic"

// Guard flags programmatic cursor moves on the editor side so the resulting
// selection events are not mistaken for user navigation.
type Guard struct {
	active atomic.Bool
}

// Do runs fn with the guard raised. Nested calls run fn without touching the
// flag.
func (g *Guard) Do(fn func()) {
	if !g.active.CompareAndSwap(false, true) {
		fn()
		return
	}
	defer g.active.Store(false)
	fn()
}

// Active reports whether a guarded move is in progress.
func (g *Guard) Active() bool {
	return g.active.Load()
}
