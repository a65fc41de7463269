package memory

import (
	"context"
	"strings"
	"sync"

	"clipstream-backend/application/ports"
)

// PairLocker serializes pair-scoped mutations inside one process with a
// keyed mutex. It mirrors the DynamoDB locker's contract for tests and
// single-node runs.
type PairLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPairLocker creates an in-process pair locker
func NewPairLocker() *PairLocker {
	return &PairLocker{locks: make(map[string]*sync.Mutex)}
}

func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "#" + b
}

// AcquirePair blocks until the pair lock is held
func (pl *PairLocker) AcquirePair(_ context.Context, a, b string) (ports.PairLock, error) {
	key := pairKey(a, b)

	pl.mu.Lock()
	m, ok := pl.locks[key]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[key] = m
	}
	pl.mu.Unlock()

	m.Lock()
	return &pairLock{m: m}, nil
}

type pairLock struct {
	m    *sync.Mutex
	once sync.Once
}

// Release unlocks the pair; releasing twice is a no-op
func (l *pairLock) Release(_ context.Context) error {
	l.once.Do(l.m.Unlock)
	return nil
}
