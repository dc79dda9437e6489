package status

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
)

// Metric names published by the engine
const (
	EngineFPS       = "engine.fps"
	EnginePatterns  = "engine.patterns"
	EngineMemory    = "engine.memory"
	EngineGPUMemory = "engine.gpu_memory"
	EngineFrameTime = "engine.frame_time"
	EngineFrames    = "engine.frames"
	RenderDraws     = "render.draws"
	RenderErrors    = "render.errors"
	RenderAPI       = "render.api"
)

// Registry groups metric maps by value type
type Registry struct {
	Ints      *MetricMap[atomic.Int64]
	Floats    *MetricMap[AtomicFloat]
	Durations *MetricMap[AtomicDuration]
	Strings   *MetricMap[AtomicString]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		Ints:      NewMetricMap[atomic.Int64](),
		Floats:    NewMetricMap[AtomicFloat](),
		Durations: NewMetricMap[AtomicDuration](),
		Strings:   NewMetricMap[AtomicString](),
	}
}

// TotalCount returns the number of metrics across all maps
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count() + r.Durations.Count() + r.Strings.Count()
}

// Entry is one formatted metric
type Entry struct {
	Key   string
	Value string
}

// Snapshot formats every metric, sorted by key
func (r *Registry) Snapshot() []Entry {
	entries := make([]Entry, 0, r.TotalCount())
	r.Ints.Range(func(k string, v *atomic.Int64) {
		entries = append(entries, Entry{k, strconv.FormatInt(v.Load(), 10)})
	})
	r.Floats.Range(func(k string, v *AtomicFloat) {
		entries = append(entries, Entry{k, strconv.FormatFloat(v.Get(), 'f', 1, 64)})
	})
	r.Durations.Range(func(k string, v *AtomicDuration) {
		entries = append(entries, Entry{k, v.Get().String()})
	})
	r.Strings.Range(func(k string, v *AtomicString) {
		entries = append(entries, Entry{k, v.Get()})
	})
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Key, b.Key) })
	return entries
}

// Lines renders the snapshot as "key: value" rows
func (r *Registry) Lines() []string {
	snap := r.Snapshot()
	lines := make([]string, len(snap))
	for i, e := range snap {
		lines[i] = fmt.Sprintf("%s: %s", e.Key, e.Value)
	}
	return lines
}
