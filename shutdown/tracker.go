// Package shutdown coordinates graceful teardown of the daemon: tracking
// in-flight generations, running registered cleanup hooks in order, and
// forcing exit on a repeated signal.
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTrackerClosed is returned when an operation is started on a closed tracker.
var ErrTrackerClosed = errors.New("shutdown: operation tracker is closed")

// ErrWaitTimeout is returned when Wait gives up before all operations finish.
var ErrWaitTimeout = errors.New("shutdown: operations did not complete in time")

// OperationTracker counts in-flight operations so shutdown can wait for
// them. Once closed it rejects new operations; running ones finish.
type OperationTracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	active int64
	closed bool
}

// NewOperationTracker returns an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start registers a new operation. It returns false when the tracker is
// closed; a true return obliges the caller to call Done exactly once.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.active, 1)
	return true
}

// Done marks one started operation as finished.
func (t *OperationTracker) Done() {
	atomic.AddInt64(&t.active, -1)
	t.wg.Done()
}

// Wait blocks until every tracked operation has finished, or returns
// ErrWaitTimeout after the given duration.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// Close stops the tracker from accepting new operations.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of operations currently in flight.
func (t *OperationTracker) ActiveCount() int64 {
	return atomic.LoadInt64(&t.active)
}

// IsClosed reports whether Close has been called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
