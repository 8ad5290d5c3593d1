package frameproc

import "context"

// Semaphore provides a counting semaphore bounding frame-level concurrency.
// It limits the number of decoded frames in flight to keep memory bounded.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a new semaphore with the given number of permits.
func NewSemaphore(count int) *Semaphore {
	if count <= 0 {
		count = 1
	}
	s := &Semaphore{
		permits: make(chan struct{}, count),
	}
	for i := 0; i < count; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire takes a permit, honoring cancellation.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case <-s.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the semaphore.
func (s *Semaphore) Release() {
	select {
	case s.permits <- struct{}{}:
	default:
		// Semaphore is full, this shouldn't happen in normal use
	}
}

// Chan returns the underlying permit channel for use with select.
func (s *Semaphore) Chan() <-chan struct{} {
	return s.permits
}
