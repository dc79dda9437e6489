package generator

// Park-Miller minimal standard generator constants
const (
	Multiplier int64 = 16807
	Modulus    int64 = 2147483647
)

// LCG is a Lehmer linear congruential generator
// Values lie in [0, 1); the stream is fully determined by the seed
type LCG struct {
	state int64
}

// NewLCG creates a generator positioned at seed
func NewLCG(seed int64) *LCG {
	l := &LCG{}
	l.Seed(seed)
	return l
}

// Seed restarts the stream, seeds are folded into [1, Modulus-1]
func (l *LCG) Seed(seed int64) {
	s := seed % Modulus
	if s < 0 {
		s += Modulus
	}
	if s == 0 {
		// Zero is a fixed point of the recurrence
		s = 1
	}
	l.state = s
}

// Float64 advances the stream and returns the next value
func (l *LCG) Float64() float64 {
	l.state = l.state * Multiplier % Modulus
	return float64(l.state-1) / float64(Modulus-1)
}
