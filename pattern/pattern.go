// Package pattern defines the data model shared by the generator, animator,
// renderer and engine: patterns, frames, animation options and typed errors.
package pattern

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Type classifies a pattern by its role on the page
type Type string

const (
	TypeBorder     Type = "border"
	TypeBackground Type = "background"
	TypeAccent     Type = "accent"
)

// Valid reports whether t is one of the known pattern types
func (t Type) Valid() bool {
	switch t {
	case TypeBorder, TypeBackground, TypeAccent:
		return true
	}
	return false
}

// Complexity selects the glyph palette tier (1-3)
type Complexity int

const (
	ComplexitySimple  Complexity = 1
	ComplexityBlocks  Complexity = 2
	ComplexityBoxDraw Complexity = 3
)

const (
	MinComplexity = ComplexitySimple
	MaxComplexity = ComplexityBoxDraw
)

// Valid reports whether c is within the supported tiers
func (c Complexity) Valid() bool {
	return c >= MinComplexity && c <= MaxComplexity
}

// Position is a surface-local pointer coordinate
type Position struct {
	X, Y float64
}

// Frame is one still character grid of an animation with its display time
type Frame struct {
	Content  []string
	Duration time.Duration
}

// Validate checks that the frame is exactly height rows of width runes
func (f Frame) Validate(width, height int) error {
	if len(f.Content) != height {
		return fmt.Errorf("frame has %d rows, want %d", len(f.Content), height)
	}
	for i, row := range f.Content {
		if n := utf8.RuneCountInString(row); n != width {
			return fmt.Errorf("frame row %d has %d columns, want %d", i, n, width)
		}
	}
	if f.Duration < 0 {
		return fmt.Errorf("frame duration %v is negative", f.Duration)
	}
	return nil
}

// Clone returns a frame with its own row slice
func (f Frame) Clone() Frame {
	content := make([]string, len(f.Content))
	copy(content, f.Content)
	return Frame{Content: content, Duration: f.Duration}
}

// Glyphs returns the number of runes in the frame content
func (f Frame) Glyphs() int {
	n := 0
	for _, row := range f.Content {
		n += utf8.RuneCountInString(row)
	}
	return n
}

// Metrics describes pattern dimensions and its estimated memory footprint
type Metrics struct {
	Width       int
	Height      int
	Complexity  Complexity
	MemoryUsage int // bytes, 2 per glyph
}

// BytesPerGlyph is the memory estimate used for frame content
const BytesPerGlyph = 2

// Pattern is an identified, animated unit of ASCII content
type Pattern struct {
	ID               string
	Type             Type
	Frames           []Frame
	DefaultAnimation AnimationOptions
	Metrics          Metrics
}

// Validate checks the pattern identity and the frame invariant
func (p *Pattern) Validate() error {
	if p == nil {
		return NewError(CodeInvalidPattern, "nil pattern", nil, nil)
	}
	if p.ID == "" {
		return NewError(CodeInvalidPattern, "pattern id is empty", p, nil)
	}
	if p.Type != "" && !p.Type.Valid() {
		return NewError(CodeInvalidPattern, fmt.Sprintf("unknown pattern type %q", p.Type), p, nil)
	}
	if p.Metrics.Width <= 0 || p.Metrics.Height <= 0 {
		return NewError(CodeInvalidPattern,
			fmt.Sprintf("invalid dimensions %dx%d", p.Metrics.Width, p.Metrics.Height), p, nil)
	}
	if len(p.Frames) == 0 {
		return NewError(CodeInvalidPattern, "pattern has no frames", p, nil)
	}
	for i, f := range p.Frames {
		if err := f.Validate(p.Metrics.Width, p.Metrics.Height); err != nil {
			return NewError(CodeInvalidPattern, fmt.Sprintf("frame %d", i), p, err)
		}
	}
	return nil
}

// Clone deep-copies frames so the copy can be mutated independently
func (p *Pattern) Clone() *Pattern {
	if p == nil {
		return nil
	}
	c := *p
	c.Frames = CloneFrames(p.Frames)
	return &c
}

// TotalDuration sums all frame durations
func (p *Pattern) TotalDuration() time.Duration {
	return TotalDuration(p.Frames)
}

// CloneFrames copies a frame sequence including row slices
func CloneFrames(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f.Clone()
	}
	return out
}

// TotalDuration sums the durations of a frame sequence
func TotalDuration(frames []Frame) time.Duration {
	var total time.Duration
	for _, f := range frames {
		total += f.Duration
	}
	return total
}

// InteractionConfig binds pointer movement to a content transform
// Transform produces the replacement frame for the pointer position
type InteractionConfig struct {
	Transform func(pos Position) Frame
}
