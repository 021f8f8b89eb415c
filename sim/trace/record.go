// Package trace provides episode recording for batched rollouts.
// It has no dependencies on sim/ and stores pure data types.
package trace

// EpisodeRecord captures one finished episode of one environment.
type EpisodeRecord struct {
	EnvIndex  int
	Episode   int // per-env episode counter, starting at 0
	Steps     int
	Reward    float64
	Truncated bool // ended by the timestep limit rather than the game
}

// StepRecord captures a single step of one environment.
type StepRecord struct {
	EnvIndex int
	Timestep int // timestep within the episode, starting at 1
	Action   int
	Reward   float64
	Done     bool
}
