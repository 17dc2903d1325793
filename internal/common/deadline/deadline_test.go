package deadline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeadline_FiresAfterDuration(t *testing.T) {
	fired := make(chan struct{})
	dl := After(10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("deadline never fired")
	}
	if !dl.Fired() {
		t.Error("expected Fired to report true after the callback ran")
	}
	if dl.Cancel() {
		t.Error("expected Cancel to fail after the callback ran")
	}
}

func TestDeadline_CancelPreventsCallback(t *testing.T) {
	var calls atomic.Int32
	dl := After(20*time.Millisecond, func() {
		calls.Add(1)
	})

	if !dl.Cancel() {
		t.Fatal("expected Cancel to succeed before the deadline")
	}

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected callback to be suppressed, ran %d times", got)
	}
	if dl.Fired() {
		t.Error("expected Fired to report false after a successful cancel")
	}
}

func TestDeadline_CancelIdempotent(t *testing.T) {
	dl := After(time.Hour, func() {})

	if !dl.Cancel() {
		t.Fatal("expected first Cancel to succeed")
	}
	if !dl.Cancel() {
		t.Error("expected repeated Cancel of a cancelled deadline to keep reporting prevention")
	}
}

func TestDeadline_ExactlyOneWinner(t *testing.T) {
	// Race Cancel against the timer repeatedly; either the callback runs or
	// Cancel reports prevention, never both and never neither.
	for i := 0; i < 200; i++ {
		var calls atomic.Int32
		done := make(chan struct{})
		var once sync.Once
		dl := After(time.Millisecond, func() {
			calls.Add(1)
			once.Do(func() { close(done) })
		})

		prevented := dl.Cancel()
		if prevented {
			time.Sleep(2 * time.Millisecond)
			if calls.Load() != 0 {
				t.Fatal("Cancel reported prevention but the callback ran")
			}
		} else {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Cancel reported too late but the callback never ran")
			}
		}
		if calls.Load() > 1 {
			t.Fatal("callback ran more than once")
		}
	}
}
