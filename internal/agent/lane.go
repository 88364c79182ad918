package agent

import "sync"

// LaneLock serializes work per session: requests of one session run one at
// a time in arrival order of lock acquisition, while different sessions run
// in parallel. The map lock is held only to find or create a lane.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

// refs counts goroutines holding or waiting on the lane.
type lane struct {
	mu   sync.Mutex
	refs int
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{lanes: make(map[string]*lane)}
}

// Acquire locks the session's lane. The caller must call Release.
func (l *LaneLock) Acquire(session string) {
	l.mu.Lock()
	ln, ok := l.lanes[session]
	if !ok {
		ln = &lane{}
		l.lanes[session] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the map lock so other sessions are not blocked.
	ln.mu.Lock()
}

// Release unlocks the session's lane and forgets it once unused.
func (l *LaneLock) Release(session string) {
	l.mu.Lock()
	ln, ok := l.lanes[session]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, session)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Len returns the number of sessions with work in flight.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
