package shutdown

import (
	"testing"
	"time"
)

func TestTrackerStartAndDone(t *testing.T) {
	tracker := NewOperationTracker()

	if !tracker.Start() {
		t.Fatal("Start() = false on an open tracker")
	}
	if tracker.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", tracker.ActiveCount())
	}
	tracker.Done()
	if tracker.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after Done, want 0", tracker.ActiveCount())
	}
}

func TestTrackerRejectsAfterClose(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Close()

	if tracker.Start() {
		t.Error("Start() = true on a closed tracker")
	}
	if !tracker.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
}

func TestTrackerWaitReturnsWhenOperationsFinish(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Start()

	go func() {
		time.Sleep(20 * time.Millisecond)
		tracker.Done()
	}()

	if err := tracker.Wait(time.Second); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestTrackerWaitTimesOut(t *testing.T) {
	tracker := NewOperationTracker()
	tracker.Start()
	defer tracker.Done()

	if err := tracker.Wait(20 * time.Millisecond); err != ErrWaitTimeout {
		t.Errorf("Wait() error = %v, want ErrWaitTimeout", err)
	}
}
