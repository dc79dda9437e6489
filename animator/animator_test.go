package animator

import (
	"slices"
	"testing"
	"time"

	"github.com/lixenwraith/glyphloom/clock"
	"github.com/lixenwraith/glyphloom/pattern"
)

const step = 100 * time.Millisecond

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// threeFrames returns a 1x1 pattern with frames A, B, C of 100ms each
func threeFrames(id string) *pattern.Pattern {
	return &pattern.Pattern{
		ID:   id,
		Type: pattern.TypeAccent,
		Frames: []pattern.Frame{
			{Content: []string{"A"}, Duration: step},
			{Content: []string{"B"}, Duration: step},
			{Content: []string{"C"}, Duration: step},
		},
		Metrics: pattern.Metrics{Width: 1, Height: 1, Complexity: pattern.ComplexitySimple},
	}
}

func newTestAnimator(t *testing.T) (*Animator, *clock.Manual) {
	t.Helper()
	host := clock.NewManual(epoch)
	return New(host), host
}

func currentGlyph(t *testing.T, a *Animator, id string) string {
	t.Helper()
	f, _, ok := a.CurrentFrame(id)
	if !ok {
		t.Fatalf("pattern %s not registered", id)
	}
	return f.Content[0]
}

func TestRepeatZeroCompletesOnce(t *testing.T) {
	a, host := newTestAnimator(t)
	completed := 0
	var updates []float64

	p := threeFrames("once")
	err := a.AddPattern(p, pattern.AnimationOptions{
		Repeat:     pattern.Repeat(0),
		OnComplete: func() { completed++ },
		OnUpdate:   func(v float64) { updates = append(updates, v) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := a.State("once"); s != StateLoaded {
		t.Fatalf("initial state = %s", s)
	}

	a.Play("once")
	host.Advance(step)
	if got := currentGlyph(t, a, "once"); got != "B" {
		t.Fatalf("after 100ms frame = %s, want B", got)
	}
	host.Advance(step)
	if got := currentGlyph(t, a, "once"); got != "C" {
		t.Fatalf("after 200ms frame = %s, want C", got)
	}
	host.Advance(step)

	if s, _ := a.State("once"); s != StateCompleted {
		t.Fatalf("state = %s, want completed", s)
	}
	if got := currentGlyph(t, a, "once"); got != "C" {
		t.Errorf("completed on %s, want last frame", got)
	}
	if a.Running() || host.Pending() != 0 {
		t.Error("frame loop still scheduled after completion")
	}

	host.Step(5, step)
	if completed != 1 {
		t.Errorf("OnComplete fired %d times", completed)
	}
	if len(updates) != 2 {
		t.Errorf("OnUpdate fired %d times, want 2 (%v)", len(updates), updates)
	}
}

func TestRepeatTwoRunsThreeLoops(t *testing.T) {
	a, host := newTestAnimator(t)
	completed := 0
	a.AddPattern(threeFrames("twice"), pattern.AnimationOptions{
		Repeat:     pattern.Repeat(2),
		OnComplete: func() { completed++ },
	})
	a.Play("twice")

	host.Step(8, step)
	if s, _ := a.State("twice"); s != StatePlaying {
		t.Fatalf("after 800ms state = %s, want playing", s)
	}
	host.Advance(step)
	if s, _ := a.State("twice"); s != StateCompleted {
		t.Fatalf("after 900ms state = %s, want completed", s)
	}
	if completed != 1 {
		t.Errorf("OnComplete fired %d times", completed)
	}
}

func TestInfiniteYoyo(t *testing.T) {
	a, host := newTestAnimator(t)
	p := threeFrames("yoyo")
	p.DefaultAnimation = pattern.AnimationOptions{Repeat: pattern.Repeat(pattern.RepeatForever), Yoyo: pattern.Bool(true)}
	a.AddPattern(p, pattern.AnimationOptions{})
	a.Play("yoyo")

	_, rev0, _ := a.Position("yoyo")
	var seen []string
	for range 6 {
		host.Advance(step)
		seen = append(seen, currentGlyph(t, a, "yoyo"))
	}
	want := []string{"B", "C", "C", "B", "A", "A"}
	if !slices.Equal(seen, want) {
		t.Errorf("yoyo sequence = %v, want %v", seen, want)
	}
	if _, rev, _ := a.Position("yoyo"); rev == rev0 {
		t.Error("revision unchanged after reversal")
	}

	host.Step(100, step)
	if s, _ := a.State("yoyo"); s != StatePlaying {
		t.Errorf("infinite animation state = %s", s)
	}
	if p.Frames[0].Content[0] != "A" {
		t.Error("reversal leaked into the registered pattern")
	}
}

func TestDelay(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("late"), pattern.AnimationOptions{Delay: 250 * time.Millisecond})
	a.Play("late")

	host.Advance(200 * time.Millisecond)
	host.Advance(step)
	if got := currentGlyph(t, a, "late"); got != "A" {
		t.Fatalf("frame inside delay window = %s", got)
	}
	host.Advance(step)
	if got := currentGlyph(t, a, "late"); got != "B" {
		t.Errorf("frame after delay = %s, want B", got)
	}
}

func TestPauseResume(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("p"), pattern.AnimationOptions{})
	a.Play("p")
	host.Advance(step)

	a.Pause("p")
	if a.Running() {
		t.Error("loop still running with nothing playing")
	}
	host.Advance(time.Second)
	if got := currentGlyph(t, a, "p"); got != "B" {
		t.Fatalf("paused frame = %s, want B", got)
	}

	a.Play("p")
	host.Advance(step)
	if got := currentGlyph(t, a, "p"); got != "C" {
		t.Errorf("resumed frame = %s, want C", got)
	}
}

func TestPlayAfterCompletionRewinds(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("r"), pattern.AnimationOptions{})
	a.Play("r")
	host.Step(3, step)
	if s, _ := a.State("r"); s != StateCompleted {
		t.Fatalf("state = %s", s)
	}

	a.Play("r")
	if got := currentGlyph(t, a, "r"); got != "A" {
		t.Errorf("restart frame = %s, want A", got)
	}
	host.Advance(step)
	if got := currentGlyph(t, a, "r"); got != "B" {
		t.Errorf("restart did not advance: %s", got)
	}
}

func TestResetKeepsPlayState(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("x"), pattern.AnimationOptions{})
	a.Play("x")
	host.Step(2, step)

	a.Reset("x")
	if got := currentGlyph(t, a, "x"); got != "A" {
		t.Errorf("after reset frame = %s", got)
	}
	if s, _ := a.State("x"); s != StatePlaying {
		t.Errorf("reset changed state to %s", s)
	}
}

func TestZeroDurationCompletesImmediately(t *testing.T) {
	a, host := newTestAnimator(t)
	p := threeFrames("z")
	for i := range p.Frames {
		p.Frames[i].Duration = 0
	}
	p.DefaultAnimation.Repeat = pattern.Repeat(pattern.RepeatForever)
	a.AddPattern(p, pattern.AnimationOptions{})
	a.Play("z")
	host.Advance(time.Millisecond)
	if s, _ := a.State("z"); s != StateCompleted {
		t.Errorf("state = %s, want completed", s)
	}
}

func TestEvents(t *testing.T) {
	a, host := newTestAnimator(t)
	var types []pattern.EventType
	var last pattern.AnimatePayload
	a.Subscribe("e", func(ev pattern.Event) {
		types = append(types, ev.Type)
		if pl, ok := ev.Data.(pattern.AnimatePayload); ok {
			last = pl
		}
	})

	a.AddPattern(threeFrames("e"), pattern.AnimationOptions{})
	a.Play("e")
	host.Step(3, step)
	if !last.Completed || last.Frame != 2 || last.Progress != 1 {
		t.Errorf("final payload = %+v", last)
	}
	a.RemovePattern("e")

	want := []pattern.EventType{pattern.EventLoad, pattern.EventAnimate, pattern.EventAnimate, pattern.EventAnimate, pattern.EventUnload}
	if !slices.Equal(types, want) {
		t.Errorf("events = %v, want %v", types, want)
	}
	if a.Bus().Count("e") != 0 {
		t.Error("subscriptions survived removal")
	}
}

func TestCallbacksRunWithoutLock(t *testing.T) {
	a, host := newTestAnimator(t)
	var seen State
	a.AddPattern(threeFrames("cb"), pattern.AnimationOptions{
		OnUpdate: func(float64) { seen, _ = a.State("cb") },
	})
	a.Play("cb")
	host.Advance(step)
	if seen != StatePlaying {
		t.Errorf("state seen from callback = %s", seen)
	}
}

func TestCleanup(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("a"), pattern.AnimationOptions{})
	a.AddPattern(threeFrames("b"), pattern.AnimationOptions{})
	a.Subscribe("a", func(pattern.Event) {})
	a.Play("a")

	a.Cleanup()
	a.Cleanup()
	if a.Len() != 0 || a.Running() || host.Pending() != 0 {
		t.Errorf("after cleanup len=%d running=%v pending=%d", a.Len(), a.Running(), host.Pending())
	}
	if a.Bus().Count("a") != 0 {
		t.Error("subscriptions survived cleanup")
	}
	if a.Play("a") {
		t.Error("Play succeeded on a cleaned pattern")
	}
}

func TestAddPatternRejectsEmpty(t *testing.T) {
	a, _ := newTestAnimator(t)
	if err := a.AddPattern(&pattern.Pattern{ID: "empty"}, pattern.AnimationOptions{}); err == nil {
		t.Error("pattern without frames accepted")
	}
	if a.Len() != 0 {
		t.Error("rejected pattern registered")
	}
}

func TestSetFramesRewinds(t *testing.T) {
	a, host := newTestAnimator(t)
	a.AddPattern(threeFrames("s"), pattern.AnimationOptions{})
	a.Play("s")
	host.Advance(step)

	_, rev, _ := a.Position("s")
	if !a.SetFrames("s", []pattern.Frame{{Content: []string{"Z"}, Duration: step}}) {
		t.Fatal("SetFrames failed")
	}
	idx, rev2, _ := a.Position("s")
	if idx != 0 || rev2 == rev {
		t.Errorf("after SetFrames idx=%d rev %d -> %d", idx, rev, rev2)
	}
	if got := currentGlyph(t, a, "s"); got != "Z" {
		t.Errorf("frame = %s, want Z", got)
	}
}
