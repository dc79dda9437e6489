package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/lixenwraith/glyphloom/pattern"
)

// ProgramLabel names the shared quad program
const ProgramLabel = "glyphloom.quad"

// PerformanceMetrics is a snapshot of renderer counters
type PerformanceMetrics struct {
	FPS          float64
	FrameTime    time.Duration
	Patterns     int
	Textures     int
	TextureBytes int
	PatternBytes int
	Draws        uint64
}

type patternData struct {
	texture   Texture
	positions Buffer
	texcoords Buffer
	cols      int
	rows      int
	memory    int
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeSource overrides time.Now for frame metrics
func WithTimeSource(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// Renderer owns one device context, the shared program and a texture per
// loaded pattern
type Renderer struct {
	surface Surface
	device  Device
	caps    Caps
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	program   Program
	patterns  map[string]*patternData
	metrics   PerformanceMetrics
	lastFrame time.Time
	closed    bool
}

// New acquires a context from surface, modern first when preferModern,
// and compiles the quad program
func New(surface Surface, preferModern bool, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		surface:  surface,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
		patterns: make(map[string]*patternData),
	}
	for _, opt := range opts {
		opt(r)
	}

	apis := []API{APILegacy}
	if preferModern {
		apis = []API{APIModern, APILegacy}
	}
	var errs []error
	for _, api := range apis {
		dev, err := surface.Context(api)
		if err == nil {
			r.device = dev
			break
		}
		r.log.Debug("context unavailable", "api", api, "error", err)
		errs = append(errs, err)
	}
	if r.device == nil {
		return nil, fmt.Errorf("render: initialization failed: %w", errors.Join(append([]error{ErrNotSupported}, errs...)...))
	}
	r.caps = r.device.Caps()

	desc, spirv, err := compileProgram(ProgramLabel, quadShaderWGSL)
	if err != nil {
		return nil, err
	}
	prog, err := r.device.CreateProgram(desc, spirv)
	if err != nil {
		return nil, &ShaderError{Stage: "link", Log: err.Error(), Err: err}
	}
	r.program = prog
	r.lastFrame = r.now()

	r.log.Info("renderer initialized", "api", r.caps.API, "device", r.caps.Name, "spirv_words", len(spirv))
	return r, nil
}

// API returns the acquired context generation
func (r *Renderer) API() API {
	return r.caps.API
}

// Caps returns the device capabilities
func (r *Renderer) Caps() Caps {
	return r.caps
}

// Surface returns the surface the renderer draws to
func (r *Renderer) Surface() Surface {
	return r.surface
}

// LoadPattern rasterizes the first frame into a new texture; reloading
// an id releases its previous texture first
func (r *Renderer) LoadPattern(p *pattern.Pattern) error {
	if p == nil || len(p.Frames) == 0 {
		return pattern.NewError(pattern.CodeLoadError, "failed to load pattern", p, errors.New("pattern has no frames"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return pattern.NewError(pattern.CodeLoadError, "failed to load pattern", p, ErrClosed)
	}

	if prev, ok := r.patterns[p.ID]; ok {
		r.releaseLocked(prev)
		delete(r.patterns, p.ID)
	}

	data, err := r.uploadLocked(p)
	if err != nil {
		return pattern.NewError(pattern.CodeLoadError, "failed to load pattern", p, err)
	}
	r.patterns[p.ID] = data
	r.refreshCountsLocked()

	r.log.Debug("pattern loaded", "id", p.ID, "cols", data.cols, "rows", data.rows)
	return nil
}

func (r *Renderer) uploadLocked(p *pattern.Pattern) (*patternData, error) {
	cols, rows := p.Metrics.Width, p.Metrics.Height
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("render: invalid dimensions %dx%d", cols, rows)
	}

	extent := r.device.TextureExtent(cols, rows)
	tex, err := r.device.CreateTexture(textureDescriptor(p.ID, extent), samplerDescriptor(p.ID), p.Frames[0])
	if err != nil {
		return nil, err
	}
	positions, err := r.device.CreateBuffer(quadPositions)
	if err != nil {
		r.device.DeleteTexture(tex)
		return nil, err
	}
	texcoords, err := r.device.CreateBuffer(quadTexCoords)
	if err != nil {
		r.device.DeleteBuffer(positions)
		r.device.DeleteTexture(tex)
		return nil, err
	}

	return &patternData{
		texture:   tex,
		positions: positions,
		texcoords: texcoords,
		cols:      cols,
		rows:      rows,
		memory:    p.Metrics.MemoryUsage,
	}, nil
}

// UpdatePattern re-rasterizes frame into the texture of id
func (r *Renderer) UpdatePattern(id string, frame pattern.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.patterns[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}
	return r.device.UpdateTexture(data.texture, frame)
}

// UnloadPattern releases the texture and buffers of id
func (r *Renderer) UnloadPattern(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.patterns[id]
	if !ok {
		return false
	}
	r.releaseLocked(data)
	delete(r.patterns, id)
	r.refreshCountsLocked()
	return true
}

// Has reports whether id is loaded
func (r *Renderer) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.patterns[id]
	return ok
}

// BeginFrame clears the target to black
func (r *Renderer) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.device.Clear(Black)
	}
}

// EndFrame presents the target
func (r *Renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.device.Present()
}

// Render draws the texture of id as a tinted quad and updates metrics
func (r *Renderer) Render(id string, opts pattern.RenderOptions) error {
	opts = opts.WithDefaults()
	tint, err := ParseHex(opts.Color)
	if err != nil {
		return err
	}
	var bg [4]float32
	if opts.Background != "" {
		c, err := ParseHex(opts.Background)
		if err != nil {
			return err
		}
		bg[0], bg[1], bg[2] = c.Floats()
		bg[3] = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	data, ok := r.patterns[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}

	tr, tg, tb := tint.Floats()
	sw, sh := r.surface.Size()
	call := DrawCall{
		Program:     r.program,
		Texture:     data.texture,
		Positions:   data.positions,
		TexCoords:   data.texcoords,
		Transform:   quadTransform(opts.Viewport, opts.Scale, sw, sh),
		Tint:        [4]float32{tr, tg, tb, float32(opts.OpacityValue())},
		Background:  bg,
		Blend:       opts.Blend,
		VertexCount: quadVertexCount,
	}
	if err := r.device.Draw(call); err != nil {
		return fmt.Errorf("render: draw %s: %w", id, err)
	}

	now := r.now()
	frameTime := now.Sub(r.lastFrame)
	r.lastFrame = now
	r.metrics.FrameTime = frameTime
	if frameTime > 0 {
		r.metrics.FPS = float64(time.Second) / float64(frameTime)
	}
	r.metrics.Draws++
	return nil
}

// quadTransform maps the unit quad onto viewport (empty = whole surface)
// and scales it about the viewport center
func quadTransform(viewport image.Rectangle, scale float64, sw, sh int) [4]float32 {
	if sw <= 0 || sh <= 0 {
		return [4]float32{float32(scale), float32(scale), 0, 0}
	}
	if viewport.Empty() {
		viewport = image.Rect(0, 0, sw, sh)
	}
	w, h := float64(sw), float64(sh)
	sx := float64(viewport.Dx()) / w * scale
	sy := float64(viewport.Dy()) / h * scale
	cx := float64(viewport.Min.X+viewport.Max.X)/w - 1
	cy := 1 - float64(viewport.Min.Y+viewport.Max.Y)/h
	return [4]float32{float32(sx), float32(sy), float32(cx), float32(cy)}
}

// Metrics returns a snapshot of renderer counters
func (r *Renderer) Metrics() PerformanceMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.metrics
	if !r.closed {
		m.Textures = r.device.LiveTextures()
		m.TextureBytes = r.device.TextureBytes()
	}
	return m
}

// LiveTextures returns the device texture count
func (r *Renderer) LiveTextures() int {
	return r.device.LiveTextures()
}

// Cleanup deletes every texture, buffer and the program; safe to repeat
func (r *Renderer) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for id, data := range r.patterns {
		r.releaseLocked(data)
		delete(r.patterns, id)
	}
	r.device.DeleteProgram(r.program)
	r.program = 0
	r.closed = true
	r.refreshCountsLocked()
	r.log.Debug("renderer cleaned up", "live_textures", r.device.LiveTextures())
}

func (r *Renderer) releaseLocked(data *patternData) {
	r.device.DeleteTexture(data.texture)
	r.device.DeleteBuffer(data.positions)
	r.device.DeleteBuffer(data.texcoords)
}

func (r *Renderer) refreshCountsLocked() {
	r.metrics.Patterns = len(r.patterns)
	total := 0
	for _, data := range r.patterns {
		total += data.memory
	}
	r.metrics.PatternBytes = total
}
