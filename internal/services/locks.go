package services

import "sync"

// portfolioLocks serializes writers per portfolio ID. The ledger itself is
// pure, so the only mutable state is the persisted journal; holding the
// portfolio's lock across load-apply-save keeps appends strictly ordered
// within this process. The Version column on the portfolio row catches
// writers in other processes.
type portfolioLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPortfolioLocks() *portfolioLocks {
	return &portfolioLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a portfolio ID, creating it on first use, and
// returns the unlock function.
func (l *portfolioLocks) Lock(portfolioID string) func() {
	l.mu.Lock()
	m, ok := l.locks[portfolioID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[portfolioID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
