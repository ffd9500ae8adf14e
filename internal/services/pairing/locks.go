package pairing

import (
	"sync"

	"relaychat/internal/domain"
)

// peerLocks hands out one mutex per peer and forgets it once unused.
type peerLocks struct {
	mu sync.Mutex
	m  map[domain.UserID]*peerLock
}

type peerLock struct {
	mu   sync.Mutex
	refs int
}

func (l *peerLocks) lock(peer domain.UserID) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[domain.UserID]*peerLock)
	}
	pl, ok := l.m[peer]
	if !ok {
		pl = &peerLock{}
		l.m[peer] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.m, peer)
		}
		l.mu.Unlock()
	}
}
