package ledger

import "sync"

// accountLocks serializes balance mutations per account: at most one
// in-flight mutation per account at a time. Mutexes are created lazily and
// never discarded; the population is bounded by the account count.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *accountLocks) get(id uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

func (l *accountLocks) Lock(id uint) {
	l.get(id).Lock()
}

func (l *accountLocks) Unlock(id uint) {
	l.get(id).Unlock()
}

// LockPair acquires both account locks in ascending ID order regardless of
// argument order, so concurrent opposing transfers cannot deadlock.
func (l *accountLocks) LockPair(a, b uint) {
	if a > b {
		a, b = b, a
	}
	l.Lock(a)
	if a != b {
		l.Lock(b)
	}
}

func (l *accountLocks) UnlockPair(a, b uint) {
	if a > b {
		a, b = b, a
	}
	if a != b {
		l.Unlock(b)
	}
	l.Unlock(a)
}
