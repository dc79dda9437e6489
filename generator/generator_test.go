package generator

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lixenwraith/glyphloom/pattern"
)

func fixedClock() func() time.Time {
	ts := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return ts }
}

func TestLCGSequence(t *testing.T) {
	l := NewLCG(1)
	// 16807^1 and 16807^2 mod (2^31-1)
	want := []int64{16807, 282475249}
	for i, w := range want {
		l.Float64()
		if l.state != w {
			t.Fatalf("step %d: state = %d, want %d", i, l.state, w)
		}
	}

	for _, seed := range []int64{0, -5, Modulus, 1 << 62} {
		l.Seed(seed)
		if l.state < 1 || l.state >= Modulus {
			t.Errorf("Seed(%d) left state %d outside [1, M-1]", seed, l.state)
		}
		for range 1000 {
			v := l.Float64()
			if v < 0 || v >= 1 {
				t.Fatalf("Seed(%d): value %v outside [0,1)", seed, v)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	for c := pattern.MinComplexity; c <= pattern.MaxComplexity; c++ {
		a := New(c, 42, WithClock(fixedClock()))
		b := New(c, 42, WithClock(fixedClock()))

		pa, err := a.GeneratePattern(24, 8, 3)
		if err != nil {
			t.Fatal(err)
		}
		pb, err := b.GeneratePattern(24, 8, 3)
		if err != nil {
			t.Fatal(err)
		}

		for i := range pa.Frames {
			if !slices.Equal(pa.Frames[i].Content, pb.Frames[i].Content) {
				t.Fatalf("complexity %d frame %d differs between identical seeds", c, i)
			}
		}
		if pa.ID != pb.ID {
			t.Errorf("ids differ: %s vs %s", pa.ID, pb.ID)
		}
	}
}

func TestSetSeedRestartsStream(t *testing.T) {
	g := New(pattern.ComplexityBlocks, 7)
	first := g.GenerateFrame(16, 4)
	g.GenerateFrame(16, 4)

	g.SetSeed(7)
	again := g.GenerateFrame(16, 4)
	if !slices.Equal(first.Content, again.Content) {
		t.Error("SetSeed did not reproduce the first frame")
	}
}

func TestFrameInvariantAllTiers(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {10, 5}, {37, 13}, {80, 24}}
	for c := pattern.MinComplexity; c <= pattern.MaxComplexity; c++ {
		g := New(c, 99)
		palette := Palette(c)
		for _, s := range sizes {
			p, err := g.GeneratePattern(s.w, s.h, 4)
			if err != nil {
				t.Fatal(err)
			}
			if len(p.Frames) != 4 {
				t.Fatalf("got %d frames, want 4", len(p.Frames))
			}
			if err := p.Validate(); err != nil {
				t.Fatalf("complexity %d size %dx%d: %v", c, s.w, s.h, err)
			}
			for _, f := range p.Frames {
				for _, row := range f.Content {
					for _, r := range row {
						if r != ' ' && !slices.Contains(palette, r) {
							t.Fatalf("glyph %q not in tier %d palette", r, c)
						}
					}
				}
			}
		}
	}
}

func TestGeneratePatternMetadata(t *testing.T) {
	g := New(pattern.ComplexitySimple, 3, WithClock(fixedClock()))
	p, err := g.GeneratePattern(10, 5, 2)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(p.ID, "pattern_1700000000000_") {
		t.Errorf("id %q lacks timestamp prefix", p.ID)
	}
	if p.Type != pattern.TypeBackground {
		t.Errorf("type = %s", p.Type)
	}
	if want := 2 * 10 * 5 * pattern.BytesPerGlyph; p.Metrics.MemoryUsage != want {
		t.Errorf("memory = %d, want %d", p.Metrics.MemoryUsage, want)
	}
	r := p.DefaultAnimation.Resolve()
	if r.Repeat != pattern.RepeatForever || !r.Yoyo || r.Duration != time.Second {
		t.Errorf("default animation = %+v", r)
	}
	for _, f := range p.Frames {
		if f.Duration != time.Second {
			t.Errorf("frame duration = %v", f.Duration)
		}
	}

	if _, err := g.GeneratePattern(0, 5, 1); !errors.Is(err, pattern.ErrInvalidPattern) {
		t.Errorf("zero width: err = %v", err)
	}
}

func TestAttractorProducesGlyphs(t *testing.T) {
	// Distance 0 to an attractor gives probability 1, so every frame has content
	g := New(pattern.ComplexitySimple, 1234)
	for range 50 {
		f := g.GenerateFrame(8, 8)
		if strings.TrimSpace(strings.Join(f.Content, "")) == "" {
			t.Fatal("frame without any glyph")
		}
	}
}

func TestGenerateVariation(t *testing.T) {
	g := New(pattern.ComplexityBlocks, 11, WithClock(fixedClock()))
	p, err := g.GeneratePattern(20, 6, 2)
	if err != nil {
		t.Fatal(err)
	}

	same := g.GenerateVariation(p, 0)
	for i := range p.Frames {
		if !slices.Equal(p.Frames[i].Content, same.Frames[i].Content) {
			t.Error("amount 0 changed content")
		}
	}
	if same.ID != p.ID+"_var_1700000000000" {
		t.Errorf("variation id = %q", same.ID)
	}

	full := g.GenerateVariation(p, 1)
	if err := full.Validate(); err != nil {
		t.Fatal(err)
	}
	for i, f := range full.Frames {
		for y, row := range f.Content {
			orig := []rune(p.Frames[i].Content[y])
			for x, r := range []rune(row) {
				if (orig[x] == ' ') != (r == ' ') {
					t.Fatalf("variation changed space layout at frame %d (%d,%d)", i, x, y)
				}
			}
		}
	}
	p.Frames[0].Content[0] = strings.Repeat("x", 20)
	if full.Frames[0].Content[0] == p.Frames[0].Content[0] {
		t.Error("variation shares rows with source")
	}
}

func TestInterpolateBoundaries(t *testing.T) {
	g := New(pattern.ComplexitySimple, 5, WithClock(fixedClock()))
	a, _ := g.GeneratePattern(12, 4, 2)
	g.SetComplexity(pattern.ComplexityBoxDraw)
	b, _ := g.GeneratePattern(12, 4, 1)
	b.DefaultAnimation.Duration = 3 * time.Second

	zero, err := g.InterpolatePatterns(a, b, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Frames {
		if !slices.Equal(zero.Frames[i].Content, a.Frames[i].Content) {
			t.Errorf("t=0 frame %d differs from a", i)
		}
	}
	if zero.Metrics.MemoryUsage != a.Metrics.MemoryUsage {
		t.Errorf("t=0 memory = %d", zero.Metrics.MemoryUsage)
	}

	one, err := g.InterpolatePatterns(a, b, 1)
	if err != nil {
		t.Fatal(err)
	}
	// b has a single frame; a's second frame falls back to it
	for i := range one.Frames {
		if !slices.Equal(one.Frames[i].Content, b.Frames[0].Content) {
			t.Errorf("t=1 frame %d differs from b", i)
		}
	}
	if one.DefaultAnimation.Duration != 3*time.Second {
		t.Errorf("t=1 duration = %v", one.DefaultAnimation.Duration)
	}

	half, _ := g.InterpolatePatterns(a, b, 0.5)
	if half.DefaultAnimation.Duration != 2*time.Second {
		t.Errorf("t=0.5 duration = %v, want 2s", half.DefaultAnimation.Duration)
	}
	if !strings.HasPrefix(half.ID, "interpolated_") {
		t.Errorf("id = %q", half.ID)
	}
}

func TestInterpolateDimensionMismatch(t *testing.T) {
	g := New(pattern.ComplexitySimple, 8)
	a, _ := g.GeneratePattern(10, 4, 1)
	b, _ := g.GeneratePattern(11, 4, 1)

	before := *g.rng
	_, err := g.InterpolatePatterns(a, b, 0.5)
	if !errors.Is(err, pattern.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want dimension mismatch", err)
	}
	if *g.rng != before {
		t.Error("random stream advanced before the dimension check")
	}
}

func TestComplexityBounds(t *testing.T) {
	g := New(pattern.Complexity(9), 1)
	if g.Complexity() != pattern.ComplexitySimple {
		t.Errorf("invalid tier not normalized: %d", g.Complexity())
	}
	g.SetComplexity(0)
	if g.Complexity() != pattern.ComplexitySimple {
		t.Errorf("SetComplexity accepted 0")
	}
	g.SetComplexity(pattern.ComplexityBoxDraw)
	f := g.GenerateFrame(5, 5)
	for _, row := range f.Content {
		if utf8.RuneCountInString(row) != 5 {
			t.Fatalf("row width %d", utf8.RuneCountInString(row))
		}
	}
}
