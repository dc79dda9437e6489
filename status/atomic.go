package status

import (
	"math"
	"sync/atomic"
	"time"
)

// AtomicFloat stores a float64 as its bit pattern; zero value reads 0
type AtomicFloat struct {
	bits atomic.Uint64
}

func (f *AtomicFloat) Set(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// AtomicDuration is a lock-free time.Duration
type AtomicDuration struct {
	ns atomic.Int64
}

func (d *AtomicDuration) Set(v time.Duration) {
	d.ns.Store(int64(v))
}

func (d *AtomicDuration) Get() time.Duration {
	return time.Duration(d.ns.Load())
}

// AtomicString holds a short label such as the active context api
type AtomicString struct {
	ptr atomic.Pointer[string]
}

func (s *AtomicString) Set(v string) {
	s.ptr.Store(&v)
}

func (s *AtomicString) Get() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
