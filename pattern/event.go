package pattern

import "time"

// EventType identifies a pattern lifecycle event
type EventType int

const (
	// EventLoad fires when a pattern is registered with the animator
	EventLoad EventType = iota

	// EventUnload fires when a pattern is removed from the animator
	EventUnload

	// EventAnimate fires when the current frame changes or playback completes
	// Payload: AnimatePayload
	EventAnimate

	// EventInteract fires after a pointer transform replaced a pattern's frames
	// Payload: Position
	EventInteract

	// EventError reports a non-fatal failure in the render loop
	// Payload: error
	EventError
)

var eventTypeNames = [...]string{
	EventLoad:     "load",
	EventUnload:   "unload",
	EventAnimate:  "animate",
	EventInteract: "interact",
	EventError:    "error",
}

func (t EventType) String() string {
	if int(t) >= 0 && int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// Event is delivered to subscribers of a pattern id
type Event struct {
	Type      EventType
	Pattern   *Pattern
	Timestamp time.Time
	Data      any
}

// AnimatePayload accompanies EventAnimate
type AnimatePayload struct {
	Frame     int
	Progress  float64
	Completed bool
}

// Handler receives pattern events
type Handler func(Event)
