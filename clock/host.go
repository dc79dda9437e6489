// Package clock provides the per-frame callback host that drives animation
// and rendering, the equivalent of a display-refresh callback queue.
package clock

import "time"

// FrameID identifies a pending frame request; zero is never issued
type FrameID uint64

// FrameFunc receives the frame timestamp
type FrameFunc func(now time.Time)

// Host schedules frame callbacks and serializes posted tasks
//
// Contract:
//   - RequestFrame callbacks run once, on the next frame, in request order
//   - Callbacks requested during a frame run on the following frame
//   - Post tasks run on the host goroutine before the next frame's callbacks
//   - CancelFrame on an unknown or already-run id is a no-op
type Host interface {
	Now() time.Time
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
	Post(fn func())
}

type frameRequest struct {
	id FrameID
	fn FrameFunc
}

// frameQueue is the request bookkeeping shared by Loop and Manual
// Callers hold their own lock around every method
type frameQueue struct {
	nextID  FrameID
	pending []frameRequest
	live    map[FrameID]struct{}
	posted  []func()
}

func (q *frameQueue) request(fn FrameFunc) FrameID {
	if q.live == nil {
		q.live = make(map[FrameID]struct{})
	}
	q.nextID++
	q.pending = append(q.pending, frameRequest{id: q.nextID, fn: fn})
	q.live[q.nextID] = struct{}{}
	return q.nextID
}

// cancel also covers requests already detached by take
func (q *frameQueue) cancel(id FrameID) {
	delete(q.live, id)
	for i, r := range q.pending {
		if r.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *frameQueue) post(fn func()) {
	q.posted = append(q.posted, fn)
}

// take detaches the current batch so callbacks can enqueue the next one
func (q *frameQueue) take() ([]func(), []frameRequest) {
	posted, pending := q.posted, q.pending
	q.posted, q.pending = nil, nil
	return posted, pending
}

// claim reports whether a detached request is still live and retires it
func (q *frameQueue) claim(id FrameID) bool {
	if _, ok := q.live[id]; !ok {
		return false
	}
	delete(q.live, id)
	return true
}

func (q *frameQueue) pendingCount() int {
	return len(q.pending)
}

func (q *frameQueue) reset() {
	q.pending = nil
	q.posted = nil
	q.live = nil
}
