package animator

// State is the playback state of one registered pattern
type State int

const (
	// StateLoaded is the initial state after AddPattern
	StateLoaded State = iota
	// StatePlaying accumulates elapsed time on every frame
	StatePlaying
	// StatePaused keeps position, elapsed time is frozen
	StatePaused
	// StateCompleted holds the last frame after the final repeat
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}
