package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualOrdering(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.RequestFrame(func(now time.Time) {
		order = append(order, "frame1")
		if !now.Equal(epoch.Add(16 * time.Millisecond)) {
			t.Errorf("frame timestamp = %v", now)
		}
		// Requested during a frame: runs on the next one
		m.RequestFrame(func(time.Time) { order = append(order, "next") })
	})
	m.RequestFrame(func(time.Time) { order = append(order, "frame2") })
	m.Post(func() { order = append(order, "posted") })

	m.Advance(16 * time.Millisecond)
	want := []string{"posted", "frame1", "frame2"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	if m.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", m.Pending())
	}
	m.Advance(16 * time.Millisecond)
	if order[len(order)-1] != "next" {
		t.Errorf("chained request did not run: %v", order)
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual(epoch)
	ran := 0

	id := m.RequestFrame(func(time.Time) { ran++ })
	m.CancelFrame(id)
	m.CancelFrame(id)
	m.CancelFrame(999)
	m.Advance(time.Millisecond)
	if ran != 0 {
		t.Fatal("cancelled callback ran")
	}

	// Cancelling a request already detached for this frame
	var second FrameID
	m.RequestFrame(func(time.Time) { m.CancelFrame(second) })
	second = m.RequestFrame(func(time.Time) { ran++ })
	m.Advance(time.Millisecond)
	if ran != 0 {
		t.Error("callback cancelled mid-frame still ran")
	}
}

func TestManualFlush(t *testing.T) {
	m := NewManual(epoch)
	posted, framed := 0, 0
	m.Post(func() { posted++ })
	m.RequestFrame(func(time.Time) { framed++ })

	m.Flush()
	if posted != 1 || framed != 0 {
		t.Errorf("after Flush posted=%d framed=%d", posted, framed)
	}
	if !m.Now().Equal(epoch) {
		t.Error("Flush moved time")
	}

	m.Step(3, 10*time.Millisecond)
	if framed != 1 {
		t.Errorf("framed = %d, want 1", framed)
	}
	if got := m.Now().Sub(epoch); got != 30*time.Millisecond {
		t.Errorf("elapsed = %v", got)
	}
}

func TestFrameIDsAreNonZero(t *testing.T) {
	m := NewManual(epoch)
	a := m.RequestFrame(func(time.Time) {})
	b := m.RequestFrame(func(time.Time) {})
	if a == 0 || b == 0 || a == b {
		t.Errorf("ids a=%d b=%d", a, b)
	}
}

func TestLoopRunsFrames(t *testing.T) {
	l := NewLoop(200)
	if l.Interval() != 5*time.Millisecond {
		t.Fatalf("Interval() = %v", l.Interval())
	}

	done := make(chan time.Time, 1)
	var mu sync.Mutex
	var order []string

	l.Post(func() {
		mu.Lock()
		order = append(order, "posted")
		mu.Unlock()
	})
	l.RequestFrame(func(now time.Time) {
		mu.Lock()
		order = append(order, "frame")
		mu.Unlock()
		done <- now
	})

	l.Start()
	l.Start()
	defer l.Stop()

	select {
	case now := <-done:
		if now.IsZero() {
			t.Error("zero frame timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "posted" {
		t.Errorf("order = %v", order)
	}
}

func TestLoopStopIdempotent(t *testing.T) {
	l := NewLoop(0)
	if l.Interval() != time.Second/DefaultFPS {
		t.Errorf("default interval = %v", l.Interval())
	}
	l.Start()
	if !l.Running() {
		t.Fatal("loop not running after Start")
	}
	l.Stop()
	l.Stop()
	if l.Running() {
		t.Error("loop still running after Stop")
	}
}

func TestLoopCrashHandler(t *testing.T) {
	crashed := make(chan any, 1)
	l := NewLoop(200, WithCrashHandler(func(r any) { crashed <- r }))
	l.RequestFrame(func(time.Time) { panic("boom") })
	l.Start()
	defer l.Stop()

	select {
	case r := <-crashed:
		if r != "boom" {
			t.Errorf("recovered %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crash handler not called")
	}
}
