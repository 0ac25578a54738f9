package services

import "sync"

// postLocks is a keyed mutex: one lock per post id, dropped when unused.
type postLocks struct {
	mu    sync.Mutex
	locks map[string]*postLock
}

type postLock struct {
	mu   sync.Mutex
	refs int
}

func newPostLocks() *postLocks {
	return &postLocks{locks: make(map[string]*postLock)}
}

// lock blocks until the post's lock is held and returns its release func.
func (p *postLocks) lock(postID string) func() {
	p.mu.Lock()
	l, ok := p.locks[postID]
	if !ok {
		l = &postLock{}
		p.locks[postID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, postID)
		}
		p.mu.Unlock()
	}
}

// size returns the number of posts with a held or awaited lock.
func (p *postLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
