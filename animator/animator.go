// Package animator advances per-pattern playback against a shared host frame
// callback and reports frame changes through callbacks and bus events.
package animator

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lixenwraith/glyphloom/clock"
	"github.com/lixenwraith/glyphloom/event"
	"github.com/lixenwraith/glyphloom/pattern"
)

// animation is the side table entry for one pattern
// frames is a private copy, yoyo reverses it in place
type animation struct {
	pattern    *pattern.Pattern
	source     []pattern.Frame
	frames     []pattern.Frame
	total      time.Duration
	opts       pattern.ResolvedAnimation
	state      State
	frame      int
	elapsed    time.Duration
	repeatLeft int
	revision   uint64
}

func (a *animation) rewind() {
	a.frames = pattern.CloneFrames(a.source)
	a.total = pattern.TotalDuration(a.frames)
	a.frame = 0
	a.elapsed = 0
	a.repeatLeft = a.opts.Repeat
	a.revision++
}

// Option configures an Animator
type Option func(*Animator)

// WithBus publishes events on a shared bus
func WithBus(b *event.Bus) Option {
	return func(a *Animator) {
		if b != nil {
			a.bus = b
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Animator) {
		if l != nil {
			a.log = l
		}
	}
}

// Animator owns playback state for every registered pattern
// One host frame request is outstanding while any pattern plays
type Animator struct {
	host clock.Host
	bus  *event.Bus
	log  *slog.Logger

	mu         sync.Mutex
	animations map[string]*animation
	order      []string
	frameID    clock.FrameID
	lastFrame  time.Time
}

// New creates an animator driven by host
func New(host clock.Host, opts ...Option) *Animator {
	a := &Animator{
		host:       host,
		bus:        event.NewBus(),
		log:        slog.New(slog.DiscardHandler),
		animations: make(map[string]*animation),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bus returns the event bus animation events are published on
func (a *Animator) Bus() *event.Bus {
	return a.bus
}

// AddPattern registers p with options layered over its defaults
// Re-adding an id replaces its state and keeps its position in the order
func (a *Animator) AddPattern(p *pattern.Pattern, opts pattern.AnimationOptions) error {
	if p == nil || len(p.Frames) == 0 {
		return pattern.NewError(pattern.CodeInvalidPattern, "cannot animate a pattern without frames", p, nil)
	}

	anim := &animation{
		pattern: p,
		source:  pattern.CloneFrames(p.Frames),
		opts:    p.DefaultAnimation.Merge(opts).Resolve(),
		state:   StateLoaded,
	}
	anim.rewind()

	a.mu.Lock()
	if prev, ok := a.animations[p.ID]; ok {
		anim.revision = prev.revision + 1
	} else {
		a.order = append(a.order, p.ID)
	}
	a.animations[p.ID] = anim
	a.mu.Unlock()

	a.log.Debug("pattern added to animator", "id", p.ID, "frames", len(p.Frames), "repeat", anim.opts.Repeat)
	a.publish(pattern.EventLoad, p, nil)
	return nil
}

// RemovePattern discards the state of id and its subscriptions
func (a *Animator) RemovePattern(id string) bool {
	a.mu.Lock()
	anim, ok := a.animations[id]
	if ok {
		delete(a.animations, id)
		a.order = slices.DeleteFunc(a.order, func(s string) bool { return s == id })
		a.stopIfIdleLocked()
	}
	a.mu.Unlock()

	if !ok {
		return false
	}
	a.publish(pattern.EventUnload, anim.pattern, nil)
	a.bus.Clear(id)
	return true
}

// Play starts or resumes playback; a completed animation restarts from
// the first frame
func (a *Animator) Play(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return false
	}
	switch anim.state {
	case StatePlaying:
		return true
	case StateCompleted:
		anim.rewind()
	}
	anim.state = StatePlaying
	a.ensureLoopLocked()
	return true
}

// Pause freezes a playing animation
func (a *Animator) Pause(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return false
	}
	if anim.state == StatePlaying {
		anim.state = StatePaused
		a.stopIfIdleLocked()
	}
	return true
}

// Reset rewinds to the first frame without changing the play state
func (a *Animator) Reset(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return false
	}
	anim.rewind()
	return true
}

// SetFrames replaces the frame sequence of id and rewinds its timeline
func (a *Animator) SetFrames(id string, frames []pattern.Frame) bool {
	if len(frames) == 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return false
	}
	anim.source = pattern.CloneFrames(frames)
	anim.rewind()
	if anim.state == StateCompleted {
		anim.state = StatePlaying
		a.ensureLoopLocked()
	}
	return true
}

// CurrentFrame returns a copy of the displayed frame and its index
func (a *Animator) CurrentFrame(id string) (pattern.Frame, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return pattern.Frame{}, 0, false
	}
	return anim.frames[anim.frame].Clone(), anim.frame, true
}

// Position returns the frame index and the content revision of id
// The revision changes whenever the frame sequence is replaced or reordered
func (a *Animator) Position(id string) (index int, revision uint64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return 0, 0, false
	}
	return anim.frame, anim.revision, true
}

// State returns the playback state of id
func (a *Animator) State(id string) (State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	anim, ok := a.animations[id]
	if !ok {
		return 0, false
	}
	return anim.state, true
}

// Len returns the number of registered patterns
func (a *Animator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.animations)
}

// Running reports whether a host frame request is outstanding
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frameID != 0
}

// Subscribe registers handler for events of id
func (a *Animator) Subscribe(id string, handler pattern.Handler) event.Subscription {
	return a.bus.Subscribe(id, handler)
}

// Unsubscribe removes a handler registered with Subscribe
func (a *Animator) Unsubscribe(s event.Subscription) {
	a.bus.Unsubscribe(s)
}

// Cleanup cancels the frame loop and discards all state and subscriptions
func (a *Animator) Cleanup() {
	a.mu.Lock()
	if a.frameID != 0 {
		a.host.CancelFrame(a.frameID)
		a.frameID = 0
	}
	clear(a.animations)
	a.order = nil
	a.mu.Unlock()

	a.bus.Reset()
}

func (a *Animator) ensureLoopLocked() {
	if a.frameID != 0 {
		return
	}
	a.lastFrame = a.host.Now()
	a.frameID = a.host.RequestFrame(a.tick)
}

func (a *Animator) stopIfIdleLocked() {
	if a.frameID == 0 {
		return
	}
	for _, anim := range a.animations {
		if anim.state == StatePlaying {
			return
		}
	}
	a.host.CancelFrame(a.frameID)
	a.frameID = 0
}

// tick is the shared host frame callback
func (a *Animator) tick(now time.Time) {
	a.mu.Lock()
	a.frameID = 0
	dt := now.Sub(a.lastFrame)
	if dt < 0 {
		dt = 0
	}
	a.lastFrame = now

	var notify []func()
	playing := false
	for _, id := range a.order {
		anim := a.animations[id]
		if anim.state != StatePlaying {
			continue
		}
		notify = a.advance(anim, dt, notify)
		if anim.state == StatePlaying {
			playing = true
		}
	}
	if playing {
		a.frameID = a.host.RequestFrame(a.tick)
	}
	a.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// advance moves one playing animation forward by dt and queues its
// notifications in detection order
func (a *Animator) advance(anim *animation, dt time.Duration, notify []func()) []func() {
	anim.elapsed += dt
	active := anim.elapsed - anim.opts.Delay
	if active < 0 {
		return notify
	}

	prev := anim.frame
	if anim.total <= 0 {
		return a.complete(anim, prev, notify)
	}
	for active >= anim.total {
		if anim.repeatLeft == 0 {
			return a.complete(anim, prev, notify)
		}
		if anim.repeatLeft > 0 {
			anim.repeatLeft--
		}
		if anim.opts.Yoyo {
			slices.Reverse(anim.frames)
			anim.revision++
		}
		anim.elapsed -= anim.total
		active -= anim.total
	}

	anim.frame = frameAt(anim.frames, active)
	if anim.frame == prev {
		return notify
	}

	progress := float64(active) / float64(anim.total)
	onUpdate := anim.opts.OnUpdate
	p, idx := anim.pattern, anim.frame
	return append(notify, func() {
		onUpdate(progress)
		a.publish(pattern.EventAnimate, p, pattern.AnimatePayload{Frame: idx, Progress: progress})
	})
}

func (a *Animator) complete(anim *animation, prev int, notify []func()) []func() {
	anim.state = StateCompleted
	anim.frame = len(anim.frames) - 1
	anim.elapsed = anim.opts.Delay + anim.total

	opts, p, idx := anim.opts, anim.pattern, anim.frame
	changed := idx != prev
	a.log.Debug("animation completed", "id", p.ID)
	return append(notify, func() {
		if changed {
			opts.OnUpdate(1)
		}
		opts.OnComplete()
		a.publish(pattern.EventAnimate, p, pattern.AnimatePayload{Frame: idx, Progress: 1, Completed: true})
	})
}

// frameAt returns the first frame whose cumulative window contains t
func frameAt(frames []pattern.Frame, t time.Duration) int {
	var end time.Duration
	for i, f := range frames {
		end += f.Duration
		if t < end {
			return i
		}
	}
	return len(frames) - 1
}

func (a *Animator) publish(typ pattern.EventType, p *pattern.Pattern, data any) {
	a.bus.Publish(pattern.Event{
		Type:      typ,
		Pattern:   p,
		Timestamp: a.host.Now(),
		Data:      data,
	})
}
