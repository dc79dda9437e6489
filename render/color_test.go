package render

import (
	"image/color"
	"testing"

	"github.com/lixenwraith/glyphloom/pattern"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
		ok   bool
	}{
		{"#ffffff", White, true},
		{"#ff8000", RGB{255, 128, 0}, true},
		{"0a0b0c", RGB{10, 11, 12}, true},
		{"#f00", RGB{255, 0, 0}, true},
		{"#zzzzzz", RGB{}, false},
		{"#1234", RGB{}, false},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseHex(%q) err = %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestCompositeIdentities(t *testing.T) {
	dst := RGB{100, 150, 200}
	if got := Composite(pattern.BlendScreen, dst, Black, 1); got != dst {
		t.Errorf("screen with black = %+v", got)
	}
	if got := Composite(pattern.BlendMultiply, dst, White, 1); got != dst {
		t.Errorf("multiply with white = %+v", got)
	}
	if got := Composite(pattern.BlendNormal, dst, White, 0); got != dst {
		t.Errorf("zero alpha changed dst: %+v", got)
	}
	if got := Composite("unknown", dst, White, 1); got != White {
		t.Errorf("unknown mode = %+v, want normal", got)
	}
	if got := Overlay(Black, White, 1); got != Black {
		t.Errorf("overlay on black = %+v", got)
	}
}

func TestShadeTexel(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}
	got := shadeTexel(white, [4]float32{1, 0, 0, 0.5}, [4]float32{})
	if got.R != 255 || got.G != 0 || got.B != 0 || got.A != 127 {
		t.Errorf("white texel red tint = %+v", got)
	}

	black := color.NRGBA{0, 0, 0, 255}
	got = shadeTexel(black, [4]float32{1, 1, 1, 1}, [4]float32{0, 0, 1, 1})
	if got.B != 255 || got.R != 0 {
		t.Errorf("uncovered texel background = %+v", got)
	}
}

func TestScaleAndLerp(t *testing.T) {
	if got := Scale(RGB{200, 100, 50}, 2); got != (RGB{255, 200, 100}) {
		t.Errorf("Scale = %+v", got)
	}
	if got := Lerp(Black, White, 0.5); got.R < 126 || got.R > 128 {
		t.Errorf("Lerp midpoint = %+v", got)
	}
}
