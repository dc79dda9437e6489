// Package generator synthesizes character-grid patterns from a seeded
// pseudo-random stream. Output is deterministic for a given seed and call
// sequence.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/lixenwraith/glyphloom/pattern"
)

// Glyph palettes per complexity tier
var palettes = map[pattern.Complexity][]rune{
	pattern.ComplexitySimple:  []rune(".,-~+=@"),
	pattern.ComplexityBlocks:  []rune("░▒▓█■▪●◆◇"),
	pattern.ComplexityBoxDraw: []rune("╔╗╚╝║═╠╣╦╩╬"),
}

// Palette returns a copy of the glyph palette for a tier
func Palette(c pattern.Complexity) []rune {
	p := palettes[c]
	out := make([]rune, len(p))
	copy(out, p)
	return out
}

// DefaultAnimation is attached to every generated pattern
func DefaultAnimation() pattern.AnimationOptions {
	return pattern.AnimationOptions{
		Duration: pattern.DefaultDuration,
		Easing:   pattern.DefaultEasing,
		Repeat:   pattern.Repeat(pattern.RepeatForever),
		Yoyo:     pattern.Bool(true),
	}
}

const (
	maxAttractors = 3
	idSpread      = 1000
)

// Option configures a Generator
type Option func(*Generator)

// WithClock sets the time source used for pattern ids
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator produces patterns, variations and interpolations
// Not safe for concurrent use; the engine serializes access
type Generator struct {
	complexity pattern.Complexity
	rng        *LCG
	now        func() time.Time
}

// New creates a generator; seed 0 selects a random seed
func New(complexity pattern.Complexity, seed int64, opts ...Option) *Generator {
	if !complexity.Valid() {
		complexity = pattern.ComplexitySimple
	}
	if seed == 0 {
		seed = rand.Int64N(Modulus-1) + 1
	}
	g := &Generator{
		complexity: complexity,
		rng:        NewLCG(seed),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complexity returns the active palette tier
func (g *Generator) Complexity() pattern.Complexity {
	return g.complexity
}

// SetComplexity switches the palette tier, invalid tiers are ignored
func (g *Generator) SetComplexity(c pattern.Complexity) {
	if c.Valid() {
		g.complexity = c
	}
}

// SetSeed restarts the random stream
func (g *Generator) SetSeed(seed int64) {
	g.rng.Seed(seed)
}

func (g *Generator) randomGlyph() rune {
	chars := palettes[g.complexity]
	return chars[int(g.rng.Float64()*float64(len(chars)))]
}

// GeneratePattern builds a background pattern with frameCount frames
func (g *Generator) GeneratePattern(width, height, frameCount int) (*pattern.Pattern, error) {
	if width <= 0 || height <= 0 {
		return nil, pattern.NewError(pattern.CodeInvalidPattern,
			fmt.Sprintf("invalid dimensions %dx%d", width, height), nil, nil)
	}
	if frameCount < 1 {
		frameCount = 1
	}

	metrics := pattern.Metrics{
		Width:      width,
		Height:     height,
		Complexity: g.complexity,
	}

	frames := make([]pattern.Frame, 0, frameCount)
	for range frameCount {
		frame := g.GenerateFrame(width, height)
		frames = append(frames, frame)
		metrics.MemoryUsage += frame.Glyphs() * pattern.BytesPerGlyph
	}

	return &pattern.Pattern{
		ID:               fmt.Sprintf("pattern_%d_%d", g.now().UnixMilli(), int(g.rng.Float64()*idSpread)),
		Type:             pattern.TypeBackground,
		Frames:           frames,
		Metrics:          metrics,
		DefaultAnimation: DefaultAnimation(),
	}, nil
}

type point struct{ x, y int }

// GenerateFrame places glyphs with probability 1/(1+d), d being the distance
// to the nearest of 1-3 random attractors
func (g *Generator) GenerateFrame(width, height int) pattern.Frame {
	count := int(g.rng.Float64()*maxAttractors) + 1
	attractors := make([]point, count)
	for i := range attractors {
		attractors[i] = point{
			x: int(g.rng.Float64() * float64(width)),
			y: int(g.rng.Float64() * float64(height)),
		}
	}

	content := make([]string, height)
	var sb strings.Builder
	for y := range height {
		sb.Reset()
		for x := range width {
			nearest := math.Inf(1)
			for _, a := range attractors {
				d := math.Hypot(float64(x-a.x), float64(y-a.y))
				if d < nearest {
					nearest = d
				}
			}
			if g.rng.Float64() < 1/(1+nearest) {
				sb.WriteRune(g.randomGlyph())
			} else {
				sb.WriteByte(' ')
			}
		}
		content[y] = sb.String()
	}

	return pattern.Frame{Content: content, Duration: pattern.DefaultDuration}
}

// GenerateVariation replaces each non-space glyph with probability amount
func (g *Generator) GenerateVariation(p *pattern.Pattern, amount float64) *pattern.Pattern {
	out := *p
	out.ID = fmt.Sprintf("%s_var_%d", p.ID, g.now().UnixMilli())
	out.Frames = make([]pattern.Frame, len(p.Frames))

	for i, frame := range p.Frames {
		content := make([]string, len(frame.Content))
		for y, row := range frame.Content {
			runes := []rune(row)
			for x, r := range runes {
				if r == ' ' || g.rng.Float64() > amount {
					continue
				}
				runes[x] = g.randomGlyph()
			}
			content[y] = string(runes)
		}
		out.Frames[i] = pattern.Frame{Content: content, Duration: frame.Duration}
	}
	return &out
}

// InterpolatePatterns blends a toward b: each cell takes b's glyph with
// probability t. Both patterns must share dimensions
func (g *Generator) InterpolatePatterns(a, b *pattern.Pattern, t float64) (*pattern.Pattern, error) {
	if a.Metrics.Width != b.Metrics.Width || a.Metrics.Height != b.Metrics.Height {
		return nil, pattern.NewError(pattern.CodeDimensionMismatch,
			fmt.Sprintf("patterns must have the same dimensions for interpolation (%dx%d vs %dx%d)",
				a.Metrics.Width, a.Metrics.Height, b.Metrics.Width, b.Metrics.Height), a, nil)
	}
	if len(b.Frames) == 0 {
		return nil, pattern.NewError(pattern.CodeInvalidPattern, "interpolation target has no frames", b, nil)
	}

	frames := make([]pattern.Frame, len(a.Frames))
	for i, f := range a.Frames {
		other := b.Frames[len(b.Frames)-1]
		if i < len(b.Frames) {
			other = b.Frames[i]
		}
		frames[i] = g.interpolateFrames(f, other, t)
	}

	metrics := a.Metrics
	metrics.MemoryUsage = lerpInt(a.Metrics.MemoryUsage, b.Metrics.MemoryUsage, t)

	anim := a.DefaultAnimation
	anim.Duration = lerpDuration(durationOrDefault(a.DefaultAnimation.Duration),
		durationOrDefault(b.DefaultAnimation.Duration), t)

	return &pattern.Pattern{
		ID:               fmt.Sprintf("interpolated_%d", g.now().UnixMilli()),
		Type:             a.Type,
		Frames:           frames,
		Metrics:          metrics,
		DefaultAnimation: anim,
	}, nil
}

func (g *Generator) interpolateFrames(a, b pattern.Frame, t float64) pattern.Frame {
	content := make([]string, len(a.Content))
	for y, row := range a.Content {
		runes := []rune(row)
		var other []rune
		if y < len(b.Content) {
			other = []rune(b.Content[y])
		}
		for x := range runes {
			if g.rng.Float64() < t && x < len(other) {
				runes[x] = other[x]
			}
		}
		content[y] = string(runes)
	}
	return pattern.Frame{
		Content:  content,
		Duration: lerpDuration(a.Duration, b.Duration, t),
	}
}

func durationOrDefault(d time.Duration) time.Duration {
	if d == 0 {
		return pattern.DefaultDuration
	}
	return d
}

func lerpInt(a, b int, t float64) int {
	return int(math.Round(float64(a)*(1-t) + float64(b)*t))
}

// lerpDuration rounds to whole milliseconds
func lerpDuration(a, b time.Duration, t float64) time.Duration {
	ms := math.Round(float64(a.Milliseconds())*(1-t) + float64(b.Milliseconds())*t)
	return time.Duration(ms) * time.Millisecond
}
