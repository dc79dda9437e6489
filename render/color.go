package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/glyphloom/pattern"
)

// RGB is an 8-bit per channel color used by the cell device and tint math
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
)

// ParseHex parses #rrggbb or #rgb
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("render: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("render: invalid hex color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Floats returns channels normalized to [0,1]
func (c RGB) Floats() (r, g, b float32) {
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255
}

// Tcell converts to a true-color tcell color
func (c RGB) Tcell() tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// FromTcell converts a tcell color, default and palette-less colors map to black
func FromTcell(c tcell.Color) RGB {
	r, g, b := c.RGB()
	if r < 0 || g < 0 || b < 0 {
		return Black
	}
	return RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
}

func clamp(v float64) uint8 {
	if v >= 255.0 {
		return 255
	}
	if v <= 0.0 {
		return 0
	}
	return uint8(v)
}

// fastDiv255 approximates x / 255: (x + (x >> 8) + 1) >> 8
func fastDiv255(x int) int {
	return (x + (x >> 8) + 1) >> 8
}

// Blend is source-over with constant alpha
func Blend(dst, src RGB, alpha float64) RGB {
	if alpha >= 1.0 {
		return src
	}
	if alpha <= 0.0 {
		return dst
	}
	inv := 1.0 - alpha
	return RGB{
		R: uint8(float64(src.R)*alpha + float64(dst.R)*inv),
		G: uint8(float64(src.G)*alpha + float64(dst.G)*inv),
		B: uint8(float64(src.B)*alpha + float64(dst.B)*inv),
	}
}

// Multiply darkens: dst*src, mixed by alpha
func Multiply(dst, src RGB, alpha float64) RGB {
	if alpha <= 0.0 {
		return dst
	}
	return Blend(dst, RGB{
		R: uint8(fastDiv255(int(dst.R) * int(src.R))),
		G: uint8(fastDiv255(int(dst.G) * int(src.G))),
		B: uint8(fastDiv255(int(dst.B) * int(src.B))),
	}, alpha)
}

// Screen lightens: 1-(1-dst)*(1-src), mixed by alpha
func Screen(dst, src RGB, alpha float64) RGB {
	if alpha <= 0.0 {
		return dst
	}
	return Blend(dst, RGB{
		R: uint8(255 - fastDiv255((255-int(dst.R))*(255-int(src.R)))),
		G: uint8(255 - fastDiv255((255-int(dst.G))*(255-int(src.G)))),
		B: uint8(255 - fastDiv255((255-int(dst.B))*(255-int(src.B)))),
	}, alpha)
}

// overlayChannel multiplies below mid-gray and screens above it
func overlayChannel(d, s uint8) uint8 {
	if d < 128 {
		return uint8(fastDiv255(2 * int(d) * int(s)))
	}
	return uint8(255 - fastDiv255(2*(255-int(d))*(255-int(s))))
}

// Overlay keeps destination highlights and shadows, mixed by alpha
func Overlay(dst, src RGB, alpha float64) RGB {
	if alpha <= 0.0 {
		return dst
	}
	return Blend(dst, RGB{
		R: overlayChannel(dst.R, src.R),
		G: overlayChannel(dst.G, src.G),
		B: overlayChannel(dst.B, src.B),
	}, alpha)
}

// Composite applies a pattern blend mode, unknown modes fall back to normal
func Composite(mode pattern.BlendMode, dst, src RGB, alpha float64) RGB {
	switch mode {
	case pattern.BlendMultiply:
		return Multiply(dst, src, alpha)
	case pattern.BlendScreen:
		return Screen(dst, src, alpha)
	case pattern.BlendOverlay:
		return Overlay(dst, src, alpha)
	}
	return Blend(dst, src, alpha)
}

// Scale multiplies all channels by factor, clamped
func Scale(c RGB, factor float64) RGB {
	return RGB{
		R: clamp(float64(c.R) * factor),
		G: clamp(float64(c.G) * factor),
		B: clamp(float64(c.B) * factor),
	}
}

// Lerp interpolates from a (t=0) to b (t=1)
func Lerp(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return RGB{
		R: uint8(float64(a.R) + t*float64(int(b.R)-int(a.R))),
		G: uint8(float64(a.G) + t*float64(int(b.G)-int(a.G))),
		B: uint8(float64(a.B) + t*float64(int(b.B)-int(a.B))),
	}
}
