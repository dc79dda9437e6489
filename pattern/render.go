package pattern

import (
	"image"
	"time"
)

// BlendMode selects how a pattern quad composites onto the surface
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
)

// RenderOptions tune a single pattern draw
type RenderOptions struct {
	Scale      float64
	Opacity    *float64 // nil means fully opaque
	Color      string   // tint as #rrggbb
	Background string   // optional #rrggbb clear color for the glyph texture
	Blend      BlendMode

	// Viewport positions the quad in surface units, empty covers the whole surface
	Viewport image.Rectangle
}

// Opacity returns a pointer for RenderOptions.Opacity
func Opacity(v float64) *float64 { return &v }

// Render defaults
const (
	DefaultScale = 1.0
	DefaultColor = "#ffffff"
)

// WithDefaults returns a copy with unset fields populated
func (o RenderOptions) WithDefaults() RenderOptions {
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Opacity == nil {
		o.Opacity = Opacity(1)
	}
	if o.Color == "" {
		o.Color = DefaultColor
	}
	if o.Blend == "" {
		o.Blend = BlendNormal
	}
	return o
}

// OpacityValue returns the effective opacity clamped to [0,1]
func (o RenderOptions) OpacityValue() float64 {
	if o.Opacity == nil {
		return 1
	}
	v := *o.Opacity
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EngineStats is a point-in-time snapshot of engine performance
type EngineStats struct {
	FPS            float64
	ActivePatterns int
	MemoryUsage    int // pattern content bytes
	GPUMemory      int // texture bytes
	LastFrameTime  time.Duration
}
