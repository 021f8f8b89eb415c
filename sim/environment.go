package sim

import (
	"time"

	"github.com/muniverse-agent/asyncenv/sim/action"
	"github.com/muniverse-agent/asyncenv/sim/registry"
)

// Environment is the simulation an AsyncEnv drives.
// Implementations need not be safe for concurrent use: an AsyncEnv calls
// them from its worker goroutine only.
type Environment interface {
	// Reset starts a new episode.
	Reset() error

	// Step applies events in order during one tick of the given duration and
	// reports the reward earned and whether the episode ended naturally.
	Step(tick time.Duration, events ...action.Event) (reward float64, done bool, err error)

	// Observe renders the current frame.
	Observe() (Observation, error)

	// Close releases the simulation's resources.
	Close() error
}

// EnvFactory creates the Environment for a resolved Spec.
type EnvFactory func(spec *registry.Spec) (Environment, error)

// SpecSource resolves environment names. *registry.Registry implements it.
type SpecSource interface {
	SpecForName(name string) (*registry.Spec, bool)
}

// Observation is a rendered frame: row-major RGB, one byte per channel.
type Observation struct {
	Width  int
	Height int
	Pix    []uint8 // len(Pix) == Width*Height*3
}

// NewObservation allocates a black frame.
func NewObservation(width, height int) Observation {
	return Observation{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Offset returns the index of pixel (x, y)'s red channel in Pix.
func (o Observation) Offset(x, y int) int {
	return (y*o.Width + x) * 3
}

// Clone returns a deep copy.
func (o Observation) Clone() Observation {
	o.Pix = append([]uint8(nil), o.Pix...)
	return o
}

// ObservationSpace declares the shape of an AsyncEnv's observations:
// Height x Width x Depth bytes in [0, 255].
type ObservationSpace struct {
	Height int
	Width  int
	Depth  int
}

// Shape returns [Height, Width, Depth].
func (s ObservationSpace) Shape() []int {
	return []int{s.Height, s.Width, s.Depth}
}

// Contains reports whether obs matches the declared shape.
func (s ObservationSpace) Contains(obs Observation) bool {
	return s.Depth == 3 && obs.Width == s.Width && obs.Height == s.Height &&
		len(obs.Pix) == s.Width*s.Height*s.Depth
}
