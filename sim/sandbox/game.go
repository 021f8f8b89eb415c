// Package sandbox provides Game, an in-process Environment that stands in for
// a browser simulation: a small seeded reaction game rendered into RGB frames.
//
// Each input of the game (one per whitelisted key, or the pointer for tap
// games) has a hidden target state that changes every few ticks and is drawn
// as a lit column band. A tick earns reward 1 when every held input matches
// its target. Episodes end naturally after a seeded random number of ticks.
package sandbox

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/muniverse-agent/asyncenv/sim"
	"github.com/muniverse-agent/asyncenv/sim/action"
	"github.com/muniverse-agent/asyncenv/sim/registry"
)

var (
	ErrClosed   = errors.New("sandbox: game closed")
	ErrNotReset = errors.New("sandbox: step before reset")
)

// Config controls a Game's dynamics.
type Config struct {
	Seed int64

	// Latency is the wall-clock time each Reset and Step takes, modelling a
	// slow simulation. Zero means no delay.
	Latency time.Duration

	// MeanEpisodeTicks is the mean natural episode length. Lengths are drawn
	// uniformly from [Mean/2, 3*Mean/2]. Zero means 100.
	MeanEpisodeTicks int

	// TargetPeriod is the number of ticks between target changes. Zero means 5.
	TargetPeriod int
}

// DefaultConfig returns a Config with the zero-value defaults filled in.
func DefaultConfig(seed int64) Config {
	return Config{Seed: seed, MeanEpisodeTicks: 100, TargetPeriod: 5}
}

// Game implements sim.Environment.
type Game struct {
	spec    *registry.Spec
	cfg     Config
	rng     *rand.Rand
	inputs  map[string]int // key code -> input index; the pointer is index 0 for tap games
	pointer bool

	target    []bool
	held      []bool
	ticks     int
	ticksLeft int
	clock     time.Duration
	events    int
	started   bool
	closed    bool
}

// NewGame creates a Game for spec.
func NewGame(spec *registry.Spec, cfg Config) *Game {
	if cfg.MeanEpisodeTicks <= 0 {
		cfg.MeanEpisodeTicks = 100
	}
	if cfg.TargetPeriod <= 0 {
		cfg.TargetPeriod = 5
	}
	g := &Game{
		spec:    spec,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		inputs:  make(map[string]int),
		pointer: spec.MouseRequired,
	}
	n := 1
	if !g.pointer {
		n = len(spec.KeyWhitelist)
		for i, code := range spec.KeyWhitelist {
			g.inputs[code] = i
		}
	}
	g.target = make([]bool, n)
	g.held = make([]bool, n)
	return g
}

// Reset starts a new episode.
func (g *Game) Reset() error {
	if g.closed {
		return ErrClosed
	}
	g.sleep()
	for i := range g.held {
		g.held[i] = false
	}
	g.ticks = 0
	g.clock = 0
	mean := g.cfg.MeanEpisodeTicks
	g.ticksLeft = mean/2 + g.rng.Intn(mean+1)
	if g.ticksLeft < 1 {
		g.ticksLeft = 1
	}
	g.rollTarget()
	g.started = true
	return nil
}

// Step applies events in order, advances the clock by tick, and scores the tick.
func (g *Game) Step(tick time.Duration, events ...action.Event) (float64, bool, error) {
	if g.closed {
		return 0, false, ErrClosed
	}
	if !g.started {
		return 0, false, ErrNotReset
	}
	g.sleep()
	for _, evt := range events {
		if err := g.apply(evt); err != nil {
			return 0, false, err
		}
	}
	g.events += len(events)

	var reward float64
	if g.matches() {
		reward = 1
	}
	g.ticks++
	g.clock += tick
	g.ticksLeft--
	if g.ticks%g.cfg.TargetPeriod == 0 {
		g.rollTarget()
	}
	done := g.ticksLeft <= 0
	if done {
		g.started = false
	}
	return reward, done, nil
}

func (g *Game) apply(evt action.Event) error {
	switch e := evt.(type) {
	case action.KeyEvent:
		idx, ok := g.inputs[e.Code]
		if g.pointer || !ok {
			return fmt.Errorf("sandbox: key %q not accepted by %s", e.Code, g.spec.Name)
		}
		g.held[idx] = e.Type == action.KeyDown
	case action.MouseEvent:
		if !g.pointer {
			return fmt.Errorf("sandbox: pointer event sent to keyboard game %s", g.spec.Name)
		}
		if e.X < 0 || e.X >= g.spec.Width || e.Y < 0 || e.Y >= g.spec.Height {
			return fmt.Errorf("sandbox: pointer (%d,%d) outside %dx%d", e.X, e.Y, g.spec.Width, g.spec.Height)
		}
		g.held[0] = e.Type == action.MousePressed
	default:
		return fmt.Errorf("sandbox: unsupported event %T", evt)
	}
	return nil
}

func (g *Game) matches() bool {
	for i := range g.target {
		if g.target[i] != g.held[i] {
			return false
		}
	}
	return true
}

func (g *Game) rollTarget() {
	for i := range g.target {
		g.target[i] = g.rng.Intn(2) == 1
	}
}

func (g *Game) sleep() {
	if g.cfg.Latency > 0 {
		time.Sleep(g.cfg.Latency)
	}
}

// Observe renders the frame: the top three quarters show one vertical band
// per input, lit white when the target wants it held; the bottom quarter
// shows the held inputs in green.
func (g *Game) Observe() (sim.Observation, error) {
	if g.closed {
		return sim.Observation{}, ErrClosed
	}
	w, h := g.spec.Width, g.spec.Height
	obs := sim.NewObservation(w, h)
	split := h * 3 / 4
	n := len(g.target)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			band := x * n / w
			off := obs.Offset(x, y)
			switch {
			case y < split && g.target[band]:
				obs.Pix[off], obs.Pix[off+1], obs.Pix[off+2] = 0xff, 0xff, 0xff
			case y >= split && g.held[band]:
				obs.Pix[off+1] = 0xff
			default:
				obs.Pix[off+2] = 0x40
			}
		}
	}
	return obs, nil
}

// Close marks the game closed. Closing twice is an error.
func (g *Game) Close() error {
	if g.closed {
		return ErrClosed
	}
	g.closed = true
	return nil
}

// Target returns a copy of the current target state.
func (g *Game) Target() []bool { return append([]bool(nil), g.target...) }

// Held returns a copy of the held input state.
func (g *Game) Held() []bool { return append([]bool(nil), g.held...) }

// Clock returns the game time elapsed in the current episode.
func (g *Game) Clock() time.Duration { return g.clock }

// Events returns the number of events applied since creation.
func (g *Game) Events() int { return g.events }

// Factory returns a sim.EnvFactory whose games draw their seeds, in creation
// order, from rng's env_0, env_1, ... subsystems.
func Factory(cfg Config, rng *sim.PartitionedRNG) sim.EnvFactory {
	var mu sync.Mutex
	next := 0
	return func(spec *registry.Spec) (sim.Environment, error) {
		mu.Lock()
		c := cfg
		c.Seed = rng.SeedFor(sim.SubsystemEnv(next))
		next++
		mu.Unlock()
		return NewGame(spec, c), nil
	}
}
