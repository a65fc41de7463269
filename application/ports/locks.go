package ports

import "context"

// PairLock is a held lock over an unordered pair of entity ids
type PairLock interface {
	Release(ctx context.Context) error
}

// PairLocker serializes mutations that touch the same two documents. The lock
// key is derived from the pair regardless of argument order, so follow(a,b)
// and follow(b,a) contend on the same lock.
type PairLocker interface {
	AcquirePair(ctx context.Context, a, b string) (PairLock, error)
}
