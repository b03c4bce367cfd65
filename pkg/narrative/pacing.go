package narrative

import (
	"time"
)

// PacingConfig controls the reading delay inserted before each
// dialogue line. The delay suspends only the calling player's
// goroutine.
type PacingConfig struct {
	// CharsPerSecond the delay is scaled by.
	CharsPerSecond float64
	// MinDuration floor for very short lines.
	MinDuration time.Duration
	// MaxDuration cap so long lines never stall a session.
	MaxDuration time.Duration
}

// DefaultPacing reads like unhurried dialogue without dragging.
var DefaultPacing = PacingConfig{
	CharsPerSecond: 25.0,
	MinDuration:    800 * time.Millisecond,
	MaxDuration:    4 * time.Second,
}

// PacingDuration computes the bounded delay for a line of the given
// length.
func PacingDuration(lineLength int, config PacingConfig) time.Duration {
	if config.CharsPerSecond <= 0 {
		config = DefaultPacing
	}

	duration := time.Duration(float64(lineLength) / config.CharsPerSecond * float64(time.Second))

	if duration < config.MinDuration {
		duration = config.MinDuration
	}
	if duration > config.MaxDuration {
		duration = config.MaxDuration
	}
	return duration
}
