package engine

import "sync"

// LaneLock provides per-customer serialization. It ensures that turns for
// the same customer run one at a time, while turns for different
// customers run concurrently.
//
// Design: a global mutex protects the lane map; each lane has its own
// mutex for intra-customer serialization. The global mutex is held only
// briefly to look up or create the per-customer mutex.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// lane stores per-customer synchronization metadata.
// refs counts goroutines that acquired (or are waiting on) this lane.
// stale marks lanes eligible for cleanup once refs drops to zero.
type lane struct {
	mu    sync.Mutex
	refs  int
	stale bool
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[string]*lane),
	}
}

// Acquire gets or creates the per-customer mutex and locks it.
// The caller must call Release with the same customer id when done.
func (l *LaneLock) Acquire(customerID string) {
	l.mu.Lock()
	ln, ok := l.lanes[customerID]
	if !ok {
		ln = &lane{}
		l.lanes[customerID] = ln
	}
	ln.refs++
	ln.stale = false
	l.mu.Unlock()

	// Lock outside the global mutex so other customers are not blocked.
	ln.mu.Lock()
}

// Release unlocks the per-customer mutex.
// The caller must have previously called Acquire with the same id.
func (l *LaneLock) Release(customerID string) {
	l.mu.Lock()
	ln, ok := l.lanes[customerID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	deleteNow := ln.refs == 0 && ln.stale
	if deleteNow {
		delete(l.lanes, customerID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// MarkStale flags every idle lane for removal and removes those with no
// holders. Wired to a periodic job so the lane map does not grow without
// bound.
func (l *LaneLock) MarkStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ln := range l.lanes {
		if ln.refs == 0 {
			if ln.stale {
				delete(l.lanes, id)
				continue
			}
			ln.stale = true
		}
	}
}
