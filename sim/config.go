package sim

import (
	"fmt"
	"time"
)

// Defaults used when a caller has no preference.
const (
	DefaultFPS          = 10
	DefaultMaxTimesteps = 3000
)

// AdapterConfig groups the per-adapter episode parameters.
type AdapterConfig struct {
	FPS          int // simulation ticks per second of game time (must be > 0)
	MaxTimesteps int // episode length at which a step is forced terminal (must be > 0)
}

// NewAdapterConfig creates an AdapterConfig. Zero values are kept; Validate
// rejects them.
func NewAdapterConfig(fps, maxTimesteps int) AdapterConfig {
	return AdapterConfig{FPS: fps, MaxTimesteps: maxTimesteps}
}

// DefaultAdapterConfig returns 10 fps and 3000 timesteps.
func DefaultAdapterConfig() AdapterConfig {
	return NewAdapterConfig(DefaultFPS, DefaultMaxTimesteps)
}

// Validate rejects non-positive fields.
func (c AdapterConfig) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be > 0, got %d", ErrInvalidArgument, c.FPS)
	}
	if c.MaxTimesteps <= 0 {
		return fmt.Errorf("%w: max timesteps must be > 0, got %d", ErrInvalidArgument, c.MaxTimesteps)
	}
	return nil
}

// TickDuration is the game time covered by one step.
func (c AdapterConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
