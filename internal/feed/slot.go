package feed

import "sync/atomic"

// slot is a non-blocking single-holder lock. A failed TryAcquire never waits.
type slot struct {
	held atomic.Bool
}

// TryAcquire takes the slot if it is free.
func (s *slot) TryAcquire() bool {
	return s.held.CompareAndSwap(false, true)
}

// Release frees the slot.
func (s *slot) Release() {
	s.held.Store(false)
}

// Held reports whether the slot is taken.
func (s *slot) Held() bool {
	return s.held.Load()
}
