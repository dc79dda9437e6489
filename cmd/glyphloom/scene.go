package main

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/lixenwraith/glyphloom/engine"
	"github.com/lixenwraith/glyphloom/generator"
	"github.com/lixenwraith/glyphloom/pattern"
)

const (
	rippleID     = "ripple"
	rippleWidth  = 24
	rippleHeight = 8
	rippleColor  = "#5fd7ff"
)

// cellMapper converts a surface-local pointer position into grid cells
type cellMapper func(pattern.Position) (float64, float64)

// rippleTransform draws concentric rings around the pointer inside area
func rippleTransform(area image.Rectangle, toCell cellMapper, palette []rune) func(pattern.Position) pattern.Frame {
	w, h := area.Dx(), area.Dy()
	return func(pos pattern.Position) pattern.Frame {
		cx, cy := toCell(pos)
		cx -= float64(area.Min.X)
		cy -= float64(area.Min.Y)

		rows := make([]string, h)
		var sb strings.Builder
		for y := range h {
			sb.Reset()
			for x := range w {
				// Cells are roughly twice as tall as wide
				d := math.Hypot(float64(x)-cx, (float64(y)-cy)*2)
				ring := int(d)
				if ring%2 == 1 || ring >= 2*len(palette) {
					sb.WriteByte(' ')
					continue
				}
				sb.WriteRune(palette[(ring/2)%len(palette)])
			}
			rows[y] = sb.String()
		}
		return pattern.Frame{Content: rows, Duration: 500 * time.Millisecond}
	}
}

// ripplePattern is the interactive accent's idle state
func ripplePattern(w, h int) *pattern.Pattern {
	blank := strings.Repeat(" ", w)
	rows := make([]string, h)
	for i := range rows {
		rows[i] = blank
	}
	edge := "+" + strings.Repeat("-", w-2) + "+"
	rows[0], rows[h-1] = edge, edge
	return &pattern.Pattern{
		ID:     rippleID,
		Type:   pattern.TypeAccent,
		Frames: []pattern.Frame{{Content: rows, Duration: time.Second}},
		Metrics: pattern.Metrics{
			Width:       w,
			Height:      h,
			Complexity:  pattern.ComplexitySimple,
			MemoryUsage: w * h * pattern.BytesPerGlyph,
		},
	}
}

// centered returns a w x h rectangle centered in a cols x rows grid
func centered(cols, rows, w, h int) image.Rectangle {
	x := max(0, (cols-w)/2)
	y := max(0, (rows-h)/2)
	return image.Rect(x, y, x+w, y+h)
}

type sceneOptions struct {
	cols, rows  int
	complexity  pattern.Complexity
	frames      int
	cellOf      cellMapper
	pixelRect   func(image.Rectangle) image.Rectangle
	interactive bool
}

// buildScene adds a full-surface background and a centered ripple accent
func buildScene(eng *engine.Engine, o sceneOptions) error {
	bg, err := eng.GeneratePattern(o.cols, o.rows, o.complexity, o.frames)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	eng.SetRenderOptions(bg.ID, pattern.RenderOptions{Color: "#3a3a5a"})

	if eng.Config().MaxPatterns < 2 {
		return nil
	}
	w, h := min(rippleWidth, o.cols), min(rippleHeight, o.rows)
	if w < 2 || h < 2 {
		return nil
	}
	area := centered(o.cols, o.rows, w, h)

	var interaction *pattern.InteractionConfig
	if o.interactive {
		interaction = &pattern.InteractionConfig{
			Transform: rippleTransform(area, o.cellOf, generator.Palette(o.complexity)),
		}
	}
	anim := pattern.AnimationOptions{Repeat: pattern.Repeat(0)}
	if err := eng.AddPattern(ripplePattern(w, h), anim, interaction); err != nil {
		return fmt.Errorf("accent: %w", err)
	}
	eng.SetRenderOptions(rippleID, pattern.RenderOptions{
		Color:    rippleColor,
		Viewport: o.pixelRect(area),
		Blend:    pattern.BlendScreen,
	})
	return nil
}
