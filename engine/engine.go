// Package engine is the pattern engine facade: it owns the pattern
// registry, wires generator, animator and renderer together, runs the
// render loop on a clock host and routes pointer interaction.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/glyphloom/animator"
	"github.com/lixenwraith/glyphloom/clock"
	"github.com/lixenwraith/glyphloom/config"
	"github.com/lixenwraith/glyphloom/event"
	"github.com/lixenwraith/glyphloom/generator"
	"github.com/lixenwraith/glyphloom/pattern"
	"github.com/lixenwraith/glyphloom/render"
	"github.com/lixenwraith/glyphloom/status"
)

// ErrClosed is returned by operations after Cleanup
var ErrClosed = errors.New("engine: closed")

const statsInterval = time.Second

// Option configures an Engine
type Option func(*Engine)

// WithHost drives the engine from an external frame host
// Without it the engine runs its own clock.Loop at the configured FPS
func WithHost(h clock.Host) Option {
	return func(e *Engine) {
		e.host = h
	}
}

// WithGenerator replaces the default randomly seeded generator
func WithGenerator(g *generator.Generator) Option {
	return func(e *Engine) {
		e.gen = g
	}
}

// WithLogger overrides the package logger for this engine
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithRegistry publishes metrics into a shared registry
func WithRegistry(r *status.Registry) Option {
	return func(e *Engine) {
		e.stats = r
	}
}

type entry struct {
	pattern     *pattern.Pattern
	options     pattern.RenderOptions
	interaction *pattern.InteractionConfig
	ready       bool

	// Texture content last uploaded, owned by the render loop
	frameIndex int
	revision   uint64
}

// Engine is the facade over generator, animator and renderer
type Engine struct {
	cfg     config.Config
	surface render.Surface
	host    clock.Host
	loop    *clock.Loop // owned host, nil with WithHost
	log     *slog.Logger
	stats   *status.Registry

	genMu sync.Mutex
	gen   *generator.Generator

	bus      *event.Bus
	animator *animator.Animator
	renderer *render.Renderer

	mu         sync.Mutex
	patterns   map[string]*entry
	order      []string
	running    bool
	closed     bool
	frameID    clock.FrameID
	frameCount int
	lastStats  time.Time
	lastFrame  time.Time
	frameTime  time.Duration
	fps        float64

	m metrics
}

// metrics caches registry pointers
type metrics struct {
	fps       *status.AtomicFloat
	frameTime *status.AtomicDuration
	patterns  *atomic.Int64
	memory    *atomic.Int64
	gpuMemory *atomic.Int64
	frames    *atomic.Int64
	draws     *atomic.Int64
	errors    *atomic.Int64
}

// New creates an engine drawing to surface
func New(surface render.Surface, cfg config.Config, opts ...Option) (*Engine, error) {
	if surface == nil {
		return nil, fmt.Errorf("engine: nil surface")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		surface:  surface,
		patterns: make(map[string]*entry),
		bus:      event.NewBus(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = Logger()
	}
	if e.host == nil {
		e.loop = clock.NewLoop(cfg.TargetFPS)
		e.host = e.loop
	}
	if e.gen == nil {
		e.gen = generator.New(pattern.Complexity(cfg.OptimizationLevel), 0)
	}
	if e.stats == nil {
		e.stats = status.NewRegistry()
	}

	r, err := render.New(surface, cfg.UseModernAPI,
		render.WithLogger(e.log.With("component", "render")),
		render.WithTimeSource(e.host.Now),
	)
	if err != nil {
		return nil, err
	}
	e.renderer = r
	e.animator = animator.New(e.host,
		animator.WithBus(e.bus),
		animator.WithLogger(e.log.With("component", "animator")),
	)

	e.m = metrics{
		fps:       e.stats.Floats.Get(status.EngineFPS),
		frameTime: e.stats.Durations.Get(status.EngineFrameTime),
		patterns:  e.stats.Ints.Get(status.EnginePatterns),
		memory:    e.stats.Ints.Get(status.EngineMemory),
		gpuMemory: e.stats.Ints.Get(status.EngineGPUMemory),
		frames:    e.stats.Ints.Get(status.EngineFrames),
		draws:     e.stats.Ints.Get(status.RenderDraws),
		errors:    e.stats.Ints.Get(status.RenderErrors),
	}
	e.stats.Strings.Get(status.RenderAPI).Set(r.API().String())

	e.log.Info("engine created", "api", r.API(), "max_patterns", cfg.MaxPatterns, "fps", cfg.TargetFPS)
	return e, nil
}

// Config returns the active configuration
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Registry returns the metrics registry the engine publishes to
func (e *Engine) Registry() *status.Registry {
	return e.stats
}

// Renderer exposes the renderer for inspection
func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}

// Animator exposes the animator for inspection
func (e *Engine) Animator() *animator.Animator {
	return e.animator
}

func (e *Engine) capacityError() error {
	return pattern.NewError(pattern.CodeMaxPatterns,
		fmt.Sprintf("maximum pattern limit reached (%d)", e.cfg.MaxPatterns), nil, nil)
}

// GeneratePattern synthesizes a pattern at complexity and adds it
func (e *Engine) GeneratePattern(width, height int, complexity pattern.Complexity, frameCount int) (*pattern.Pattern, error) {
	e.mu.Lock()
	closed, full := e.closed, len(e.patterns) >= e.cfg.MaxPatterns
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if full {
		return nil, e.capacityError()
	}

	e.genMu.Lock()
	e.gen.SetComplexity(complexity)
	p, err := e.gen.GeneratePattern(width, height, frameCount)
	e.genMu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := e.AddPattern(p, pattern.AnimationOptions{}, nil); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// AddPattern registers p with the renderer and animator
// interaction may be nil
func (e *Engine) AddPattern(p *pattern.Pattern, opts pattern.AnimationOptions, interaction *pattern.InteractionConfig) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clone()

	// Reserve the slot so capacity and duplicate checks hold without
	// keeping the lock across renderer and animator calls
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if _, ok := e.patterns[p.ID]; ok {
		e.mu.Unlock()
		return pattern.NewError(pattern.CodeDuplicateID,
			fmt.Sprintf("pattern with id %s already exists", p.ID), p, nil)
	}
	if len(e.patterns) >= e.cfg.MaxPatterns {
		e.mu.Unlock()
		return e.capacityError()
	}
	ent := &entry{pattern: p}
	if interaction != nil && interaction.Transform != nil {
		ent.interaction = interaction
	}
	e.patterns[p.ID] = ent
	e.order = append(e.order, p.ID)
	e.mu.Unlock()

	if err := e.renderer.LoadPattern(p); err != nil {
		e.dropEntry(p.ID)
		return err
	}
	if err := e.animator.AddPattern(p, opts); err != nil {
		e.renderer.UnloadPattern(p.ID)
		e.dropEntry(p.ID)
		return err
	}
	_, rev, _ := e.animator.Position(p.ID)

	e.mu.Lock()
	ent.revision = rev
	ent.ready = true
	e.mu.Unlock()

	if e.cfg.AutoPlay {
		e.animator.Play(p.ID)
	}
	e.publishCounts()
	e.log.Debug("pattern added", "id", p.ID, "size", fmt.Sprintf("%dx%d", p.Metrics.Width, p.Metrics.Height),
		"frames", len(p.Frames), "interactive", ent.interaction != nil)
	return nil
}

func (e *Engine) dropEntry(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.patterns[id]; !ok {
		return false
	}
	delete(e.patterns, id)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == id })
	return true
}

// RemovePattern unregisters id and releases its texture
func (e *Engine) RemovePattern(id string) bool {
	if !e.dropEntry(id) {
		return false
	}
	e.animator.RemovePattern(id)
	e.renderer.UnloadPattern(id)
	e.publishCounts()
	e.log.Debug("pattern removed", "id", id)
	return true
}

// Play starts or resumes id
func (e *Engine) Play(id string) bool { return e.animator.Play(id) }

// Pause freezes id
func (e *Engine) Pause(id string) bool { return e.animator.Pause(id) }

// Reset rewinds id to its first frame
func (e *Engine) Reset(id string) bool { return e.animator.Reset(id) }

// SetRenderOptions sets the options used when drawing id
func (e *Engine) SetRenderOptions(id string, opts pattern.RenderOptions) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.patterns[id]
	if !ok {
		return false
	}
	ent.options = opts
	return true
}

// Pattern returns a copy of the registered pattern
func (e *Engine) Pattern(id string) (*pattern.Pattern, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.patterns[id]
	if !ok || !ent.ready {
		return nil, false
	}
	return ent.pattern.Clone(), true
}

// Patterns returns copies of all patterns in draw order
func (e *Engine) Patterns() []*pattern.Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*pattern.Pattern, 0, len(e.order))
	for _, id := range e.order {
		if ent := e.patterns[id]; ent.ready {
			out = append(out, ent.pattern.Clone())
		}
	}
	return out
}

// Len returns the number of registered patterns
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.patterns)
}

// Subscribe registers handler for events of id
func (e *Engine) Subscribe(id string, handler pattern.Handler) event.Subscription {
	return e.bus.Subscribe(id, handler)
}

// Unsubscribe removes a handler registered with Subscribe
func (e *Engine) Unsubscribe(s event.Subscription) {
	e.bus.Unsubscribe(s)
}

// Start begins the render loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.closed {
		e.mu.Unlock()
		return
	}
	e.running = true
	now := e.host.Now()
	e.lastStats = now
	e.lastFrame = time.Time{}
	e.frameCount = 0
	e.frameID = e.host.RequestFrame(e.frame)
	e.mu.Unlock()

	if e.loop != nil {
		e.loop.Start()
	}
	e.log.Info("render loop started")
}

// Stop halts the render loop; animations keep their state
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	if e.frameID != 0 {
		e.host.CancelFrame(e.frameID)
		e.frameID = 0
	}
	e.log.Info("render loop stopped")
}

// Running reports whether the render loop is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

type drawItem struct {
	id   string
	ent  *entry
	opts pattern.RenderOptions
}

// frame is the render loop body, one call per host frame
func (e *Engine) frame(now time.Time) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.frameID = 0
	e.frameCount++
	if !e.lastFrame.IsZero() {
		e.frameTime = now.Sub(e.lastFrame)
	}
	e.lastFrame = now
	if span := now.Sub(e.lastStats); span >= statsInterval {
		e.fps = math.Round(float64(e.frameCount) * float64(time.Second) / float64(span))
		e.frameCount = 0
		e.lastStats = now
	}
	items := make([]drawItem, 0, len(e.order))
	for _, id := range e.order {
		ent := e.patterns[id]
		if ent.ready {
			items = append(items, drawItem{id: id, ent: ent, opts: ent.options})
		}
	}
	e.mu.Unlock()

	e.renderer.BeginFrame()
	for _, it := range items {
		e.drawPattern(it)
	}
	if err := e.renderer.EndFrame(); err != nil && !errors.Is(err, render.ErrClosed) {
		e.log.Warn("present failed", "error", err)
	}
	e.publishFrame()

	e.mu.Lock()
	if e.running && e.frameID == 0 {
		e.frameID = e.host.RequestFrame(e.frame)
	}
	e.mu.Unlock()
}

func (e *Engine) drawPattern(it drawItem) {
	idx, rev, ok := e.animator.Position(it.id)
	if !ok {
		return
	}
	if !e.cfg.StaticTextures && (idx != it.ent.frameIndex || rev != it.ent.revision) {
		frame, _, ok := e.animator.CurrentFrame(it.id)
		if ok {
			if err := e.renderer.UpdatePattern(it.id, frame); err != nil {
				e.reportError(it.ent.pattern, fmt.Errorf("engine: upload frame %d: %w", idx, err))
				return
			}
			it.ent.frameIndex, it.ent.revision = idx, rev
		}
	}
	if err := e.renderer.Render(it.id, it.opts); err != nil {
		e.reportError(it.ent.pattern, err)
		return
	}
	e.m.draws.Add(1)
}

func (e *Engine) reportError(p *pattern.Pattern, err error) {
	e.m.errors.Add(1)
	e.log.Warn("render failed", "id", p.ID, "error", err)
	e.bus.Publish(pattern.Event{Type: pattern.EventError, Pattern: p, Timestamp: e.host.Now(), Data: err})
}

// PointerMove queues a pointer position in client coordinates; it is
// translated by the surface bounds and handled on the host goroutine
func (e *Engine) PointerMove(clientX, clientY float64) {
	e.host.Post(func() { e.handlePointer(clientX, clientY) })
}

func (e *Engine) handlePointer(clientX, clientY float64) {
	b := e.surface.Bounds()
	pos := pattern.Position{X: clientX - float64(b.Min.X), Y: clientY - float64(b.Min.Y)}

	e.mu.Lock()
	var targets []*entry
	for _, id := range e.order {
		if ent := e.patterns[id]; ent.ready && ent.interaction != nil {
			targets = append(targets, ent)
		}
	}
	e.mu.Unlock()

	for _, ent := range targets {
		p := ent.pattern
		frame := ent.interaction.Transform(pos)
		if err := frame.Validate(p.Metrics.Width, p.Metrics.Height); err != nil {
			e.reportError(p, pattern.NewError(pattern.CodeInvalidPattern, "interaction produced an invalid frame", p, err))
			continue
		}
		frames := []pattern.Frame{frame}

		e.mu.Lock()
		if e.patterns[p.ID] != ent {
			e.mu.Unlock()
			continue
		}
		p.Frames = frames
		e.mu.Unlock()

		e.animator.SetFrames(p.ID, frames)
		e.bus.Publish(pattern.Event{Type: pattern.EventInteract, Pattern: p, Timestamp: e.host.Now(), Data: pos})
	}
}

// Stats returns a snapshot of engine statistics
func (e *Engine) Stats() pattern.EngineStats {
	gpu := e.renderer.Metrics().TextureBytes
	e.mu.Lock()
	defer e.mu.Unlock()
	return pattern.EngineStats{
		FPS:            e.fps,
		ActivePatterns: len(e.patterns),
		MemoryUsage:    e.memoryLocked(),
		GPUMemory:      gpu,
		LastFrameTime:  e.frameTime,
	}
}

func (e *Engine) memoryLocked() int {
	total := 0
	for _, ent := range e.patterns {
		total += ent.pattern.Metrics.MemoryUsage
	}
	return total
}

func (e *Engine) publishCounts() {
	gpu := e.renderer.Metrics().TextureBytes
	e.mu.Lock()
	n, mem := len(e.patterns), e.memoryLocked()
	e.mu.Unlock()
	e.m.patterns.Store(int64(n))
	e.m.memory.Store(int64(mem))
	e.m.gpuMemory.Store(int64(gpu))
}

func (e *Engine) publishFrame() {
	e.mu.Lock()
	fps, ft := e.fps, e.frameTime
	e.mu.Unlock()
	e.m.fps.Set(fps)
	e.m.frameTime.Set(ft)
	e.m.frames.Add(1)
}

// Cleanup stops the loop and releases all animator and renderer state
// Safe to call more than once
func (e *Engine) Cleanup() {
	e.Stop()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	clear(e.patterns)
	e.order = nil
	e.mu.Unlock()

	if e.loop != nil {
		e.loop.Stop()
	}
	e.animator.Cleanup()
	e.renderer.Cleanup()
	e.bus.Reset()
	e.publishCounts()
	e.log.Info("engine cleaned up")
}
