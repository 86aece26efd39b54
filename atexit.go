package bsbng

import (
	"sync"
	"sync/atomic"
)

// atExit holds the cleanup functions verbs register while they run, e.g.
// persisting a build's diagnostic log regardless of whether the build
// itself succeeded.
var atExit struct {
	sync.Mutex
	fns    []func() error
	closed uint32
}

// RegisterAtExit queues fn to run once, from RunAtExit, after the current
// verb finishes. Typically called right after creating the resource fn
// needs to flush or close, so the registration can't be forgotten further
// down a verb's control flow.
func RegisterAtExit(fn func() error) {
	if atomic.LoadUint32(&atExit.closed) != 0 {
		panic("BUG: RegisterAtExit must not be called from an atExit func")
	}
	atExit.Lock()
	defer atExit.Unlock()
	atExit.fns = append(atExit.fns, fn)
}

// RunAtExit runs every function registered via RegisterAtExit, in
// registration order, stopping at the first error. It is safe to call at
// most once per process run.
func RunAtExit() error {
	atomic.StoreUint32(&atExit.closed, 1)
	for _, fn := range atExit.fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
