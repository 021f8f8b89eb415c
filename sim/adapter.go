package sim

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muniverse-agent/asyncenv/sim/action"
	"github.com/muniverse-agent/asyncenv/sim/registry"
)

var (
	// ErrInvalidArgument marks construction-time configuration errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWorkerStopped is returned by a Wait after the worker has exited.
	ErrWorkerStopped = errors.New("environment worker stopped")
)

// Info is the per-step metadata mapping. AsyncEnv always returns it empty.
type Info map[string]any

// StepResult is the response to a StepStart.
type StepResult struct {
	Obs    Observation
	Reward float64
	Done   bool
	Info   Info
}

// AsyncEnv owns one Environment and the worker goroutine that drives it.
//
// All methods are called from the caller's goroutine. StepStart and
// ResetStart never block; each must be followed by its matching Wait before
// the next Start. Close must be called exactly once.
type AsyncEnv struct {
	id               string
	spec             *registry.Spec
	config           AdapterConfig
	actionSpace      action.Discrete
	observationSpace ObservationSpace

	commands  *Queue[command]
	responses *Queue[response]
	done      chan struct{}

	// Written by the worker before it publishes the matching response.
	timestep atomic.Int64
	closeErr error
}

// NewAsyncEnv resolves name through specs, selects the action converter and
// creates the Environment with factory, then starts the worker. Unknown names,
// unsupported pointer modalities, unknown keys and bad configs fail with
// ErrInvalidArgument before any environment or goroutine is created.
func NewAsyncEnv(name string, specs SpecSource, factory EnvFactory, cfg AdapterConfig) (*AsyncEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, ok := specs.SpecForName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown environment: %s", ErrInvalidArgument, name)
	}
	converter, err := NewConverter(spec)
	if err != nil {
		return nil, err
	}
	env, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("create environment %s: %w", name, err)
	}

	a := &AsyncEnv{
		id:          uuid.NewString(),
		spec:        spec,
		config:      cfg,
		actionSpace: converter.ActionSpace(),
		observationSpace: ObservationSpace{
			Height: spec.Height,
			Width:  spec.Width,
			Depth:  3,
		},
		commands:  NewQueue[command](),
		responses: NewQueue[response](),
		done:      make(chan struct{}),
	}
	w := &worker{
		env:          env,
		converter:    converter,
		tick:         cfg.TickDuration(),
		maxTimesteps: cfg.MaxTimesteps,
		owner:        a,
		log: logrus.WithFields(logrus.Fields{
			"env":  a.id,
			"name": spec.Name,
		}),
	}
	go w.run()
	return a, nil
}

// NewConverter selects the converter for a spec: a TapConverter at the
// screen centre for tap games, otherwise a KeyConverter over the whitelist.
func NewConverter(spec *registry.Spec) (action.Converter, error) {
	if spec.MouseRequired {
		if spec.MouseType != registry.MouseTap {
			return nil, fmt.Errorf("%w: unsupported mouse type: %s", ErrInvalidArgument, spec.MouseType)
		}
		return action.NewTapConverter(spec.Width/2, spec.Height/2), nil
	}
	converter, err := action.KeyConverterForCodes(spec.KeyWhitelist)
	if err != nil {
		return nil, fmt.Errorf("%w: spec %s: %v", ErrInvalidArgument, spec.Name, err)
	}
	return converter, nil
}

// ID returns the adapter's unique id, used in log fields.
func (a *AsyncEnv) ID() string { return a.id }

// Spec returns the resolved spec. It must not be modified.
func (a *AsyncEnv) Spec() *registry.Spec { return a.spec }

// Config returns the adapter's episode parameters.
func (a *AsyncEnv) Config() AdapterConfig { return a.config }

// ActionSpace returns the legal domain of StepStart's action.
func (a *AsyncEnv) ActionSpace() action.Discrete { return a.actionSpace }

// ObservationSpace returns Height x Width x 3.
func (a *AsyncEnv) ObservationSpace() ObservationSpace { return a.observationSpace }

// Timestep returns the episode timestep as of the last consumed response.
// It is always in [0, MaxTimesteps) between a Wait and the next Start.
func (a *AsyncEnv) Timestep() int { return int(a.timestep.Load()) }

// ResetStart enqueues a reset.
func (a *AsyncEnv) ResetStart() {
	a.commands.Enqueue(command{kind: cmdReset})
}

// ResetWait blocks until the pending reset completes and returns the first
// observation of the new episode.
func (a *AsyncEnv) ResetWait() (Observation, error) {
	resp, err := a.wait()
	if err != nil {
		return Observation{}, err
	}
	return resp.obs, nil
}

// StepStart enqueues a step with a raw action from ActionSpace.
func (a *AsyncEnv) StepStart(act int) {
	a.commands.Enqueue(command{kind: cmdStep, action: act})
}

// StepWait blocks until the pending step completes. A Done result has already
// reset the environment, so the next StepStart begins a new episode.
func (a *AsyncEnv) StepWait() (StepResult, error) {
	resp, err := a.wait()
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Obs:    resp.obs,
		Reward: resp.reward,
		Done:   resp.done,
		Info:   Info{},
	}, nil
}

func (a *AsyncEnv) wait() (response, error) {
	resp, ok := a.responses.Dequeue()
	if !ok {
		return response{}, ErrWorkerStopped
	}
	if resp.err != nil {
		return response{}, resp.err
	}
	return resp, nil
}

// Close shuts the worker down, waits for it to exit, and returns the error
// from closing the Environment.
func (a *AsyncEnv) Close() error {
	a.commands.Enqueue(command{kind: cmdShutdown})
	<-a.done
	return a.closeErr
}

// Alive reports whether the worker is still running.
func (a *AsyncEnv) Alive() bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}
