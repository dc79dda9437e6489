package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFPS paces a Loop created with a non-positive rate
const DefaultFPS = 60

// LoopOption configures a Loop
type LoopOption func(*Loop)

// WithCrashHandler receives panics recovered from the loop goroutine
// The loop does not resume after a crash
func WithCrashHandler(fn func(r any)) LoopOption {
	return func(l *Loop) {
		l.crash = fn
	}
}

// WithTimeSource overrides time.Now for frame timestamps
func WithTimeSource(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// Loop is a ticker-driven Host running every callback on one goroutine
// A stopped Loop cannot be restarted
type Loop struct {
	interval time.Duration
	now      func() time.Time
	crash    func(r any)

	mu    sync.Mutex
	queue frameQueue

	frames atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewLoop creates a stopped loop ticking at fps frames per second
func NewLoop(fps int, opts ...LoopOption) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	l := &Loop{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Interval returns the tick period
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Frames returns the number of ticks processed
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Now implements Host
func (l *Loop) Now() time.Time {
	return l.now()
}

// RequestFrame implements Host
func (l *Loop) RequestFrame(fn FrameFunc) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.request(fn)
}

// CancelFrame implements Host
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue.cancel(id)
}

// Post implements Host
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue.post(fn)
}

// Start launches the loop goroutine
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		l.wg.Add(1)
		go l.run()
	}
}

// Stop halts the loop and waits for the current tick to finish
// Must not be called from a callback running on the loop
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.running.CompareAndSwap(true, false) {
			close(l.stopChan)
			l.wg.Wait()
		}
		l.mu.Lock()
		l.queue.reset()
		l.mu.Unlock()
	})
}

// Running reports whether the loop goroutine is active
func (l *Loop) Running() bool {
	return l.running.Load()
}

func (l *Loop) run() {
	defer l.wg.Done()
	if l.crash != nil {
		defer func() {
			if r := recover(); r != nil {
				l.running.Store(false)
				l.crash(r)
			}
		}()
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.tick(l.now())
		}
	}
}

// tick runs posted tasks, then the frame batch detached at tick start
func (l *Loop) tick(now time.Time) {
	l.mu.Lock()
	posted, pending := l.queue.take()
	l.mu.Unlock()

	runBatch(&l.mu, &l.queue, now, posted, pending)
	l.frames.Add(1)
}

// runBatch executes a detached batch without holding mu
// Requests cancelled by an earlier callback in the batch are skipped
func runBatch(mu *sync.Mutex, q *frameQueue, now time.Time, posted []func(), pending []frameRequest) {
	for _, fn := range posted {
		fn()
	}
	for _, r := range pending {
		mu.Lock()
		live := q.claim(r.id)
		mu.Unlock()
		if live {
			r.fn(now)
		}
	}
}
