package wrap

import (
	"fmt"

	"github.com/muniverse-agent/asyncenv/sim"
)

// FrameStack keeps the most recent N observations of one environment.
// Not thread-safe.
type FrameStack struct {
	frames []sim.Observation
}

// NewFrameStack creates a stack of n frames.
func NewFrameStack(n int) (*FrameStack, error) {
	if n < 1 {
		return nil, fmt.Errorf("frame stack size must be >= 1, got %d", n)
	}
	return &FrameStack{frames: make([]sim.Observation, n)}, nil
}

// Reset fills every slot with a copy of obs and returns the stack.
func (f *FrameStack) Reset(obs sim.Observation) []sim.Observation {
	for i := range f.frames {
		f.frames[i] = obs.Clone()
	}
	return f.Frames()
}

// Push drops the oldest frame, appends obs and returns the stack, oldest first.
func (f *FrameStack) Push(obs sim.Observation) []sim.Observation {
	copy(f.frames, f.frames[1:])
	f.frames[len(f.frames)-1] = obs.Clone()
	return f.Frames()
}

// Frames returns the stack, oldest first. The slice is a copy; the frames
// are shared and must not be modified.
func (f *FrameStack) Frames() []sim.Observation {
	return append([]sim.Observation(nil), f.frames...)
}

// Len returns the stack size.
func (f *FrameStack) Len() int {
	return len(f.frames)
}
