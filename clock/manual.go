package clock

import (
	"sync"
	"time"
)

// Manual is a Host stepped explicitly, for deterministic tests and
// offline rendering
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	queue frameQueue
}

// NewManual creates a manual host positioned at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Host
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// RequestFrame implements Host
func (m *Manual) RequestFrame(fn FrameFunc) FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.request(fn)
}

// CancelFrame implements Host
func (m *Manual) CancelFrame(id FrameID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.cancel(id)
}

// Post implements Host
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.post(fn)
}

// Advance moves time forward by d and runs one frame: posted tasks first,
// then every callback pending at the start of the frame
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	posted, pending := m.queue.take()
	m.mu.Unlock()

	runBatch(&m.mu, &m.queue, now, posted, pending)
}

// Step runs n frames spaced d apart
func (m *Manual) Step(n int, d time.Duration) {
	for range n {
		m.Advance(d)
	}
}

// Flush runs posted tasks without producing a frame
func (m *Manual) Flush() {
	m.mu.Lock()
	posted := m.queue.posted
	m.queue.posted = nil
	m.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
}

// Pending returns the number of frame callbacks waiting for the next frame
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.pendingCount()
}
