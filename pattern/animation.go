package pattern

import "time"

// Default animation values applied by Resolve
const (
	DefaultDuration = time.Second
	DefaultEasing   = "linear"
)

// RepeatForever loops an animation indefinitely
const RepeatForever = -1

// AnimationOptions configures playback; zero/nil fields are unset and inherit
type AnimationOptions struct {
	Duration   time.Duration
	Easing     string
	Delay      time.Duration
	Repeat     *int  // nil inherits, RepeatForever loops
	Yoyo       *bool // nil inherits
	OnComplete func()
	OnUpdate   func(progress float64)
}

// Repeat returns a pointer for AnimationOptions.Repeat
func Repeat(n int) *int { return &n }

// Bool returns a pointer for AnimationOptions.Yoyo
func Bool(b bool) *bool { return &b }

// Merge layers over on top of o, set fields of over win
func (o AnimationOptions) Merge(over AnimationOptions) AnimationOptions {
	if over.Duration != 0 {
		o.Duration = over.Duration
	}
	if over.Easing != "" {
		o.Easing = over.Easing
	}
	if over.Delay != 0 {
		o.Delay = over.Delay
	}
	if over.Repeat != nil {
		o.Repeat = Repeat(*over.Repeat)
	}
	if over.Yoyo != nil {
		o.Yoyo = Bool(*over.Yoyo)
	}
	if over.OnComplete != nil {
		o.OnComplete = over.OnComplete
	}
	if over.OnUpdate != nil {
		o.OnUpdate = over.OnUpdate
	}
	return o
}

// ResolvedAnimation is a fully populated option record
type ResolvedAnimation struct {
	Duration   time.Duration
	Easing     string
	Delay      time.Duration
	Repeat     int
	Yoyo       bool
	OnComplete func()
	OnUpdate   func(progress float64)
}

// Resolve fills every unset field with its default
func (o AnimationOptions) Resolve() ResolvedAnimation {
	r := ResolvedAnimation{
		Duration:   DefaultDuration,
		Easing:     DefaultEasing,
		Delay:      o.Delay,
		OnComplete: func() {},
		OnUpdate:   func(float64) {},
	}
	if o.Duration != 0 {
		r.Duration = o.Duration
	}
	if o.Easing != "" {
		r.Easing = o.Easing
	}
	if r.Delay < 0 {
		r.Delay = 0
	}
	if o.Repeat != nil {
		r.Repeat = *o.Repeat
		if r.Repeat < RepeatForever {
			r.Repeat = RepeatForever
		}
	}
	if o.Yoyo != nil {
		r.Yoyo = *o.Yoyo
	}
	if o.OnComplete != nil {
		r.OnComplete = o.OnComplete
	}
	if o.OnUpdate != nil {
		r.OnUpdate = o.OnUpdate
	}
	return r
}
