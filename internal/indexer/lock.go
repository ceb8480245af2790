package indexer

import "sync/atomic"

// indexLock provides non-blocking mutual exclusion for index runs. A second
// concurrent run must fail fast instead of queueing behind the first.
type indexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *indexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called after a successful
// TryAcquire.
func (l *indexLock) Release() {
	l.state.Store(0)
}
