// Package batch drives groups of AsyncEnvs so their simulation latency
// overlaps: every adapter in a sub-batch is started before any is waited on.
package batch

import (
	"errors"
	"fmt"

	"github.com/muniverse-agent/asyncenv/sim"
)

// Stepper is the two-phase API a batch drives. *sim.AsyncEnv implements it.
type Stepper interface {
	ResetStart()
	ResetWait() (sim.Observation, error)
	StepStart(action int)
	StepWait() (sim.StepResult, error)
	Close() error
}

// Env is a set of sub-batches of Steppers. Sub-batches are independent: a
// driver may step one while another is still in flight. Methods for a single
// sub-batch must not be called concurrently.
type Env struct {
	subBatches [][]Stepper
}

// New creates an Env from sub-batches of equal, non-zero size.
func New(subBatches [][]Stepper) (*Env, error) {
	if len(subBatches) == 0 {
		return nil, fmt.Errorf("%w: no sub-batches", sim.ErrInvalidArgument)
	}
	size := len(subBatches[0])
	for i, sb := range subBatches {
		if len(sb) == 0 || len(sb) != size {
			return nil, fmt.Errorf("%w: sub-batch %d has %d envs, want %d > 0",
				sim.ErrInvalidArgument, i, len(sb), size)
		}
	}
	return &Env{subBatches: subBatches}, nil
}

// Create builds numEnvs AsyncEnvs for name split into numSubBatches groups.
// numSubBatches must divide numEnvs. If any adapter fails to construct, the
// ones already created are closed.
func Create(name string, numEnvs, numSubBatches int, specs sim.SpecSource,
	factory sim.EnvFactory, cfg sim.AdapterConfig) (*Env, error) {
	if numEnvs <= 0 || numSubBatches <= 0 {
		return nil, fmt.Errorf("%w: need positive env and sub-batch counts, got %d and %d",
			sim.ErrInvalidArgument, numEnvs, numSubBatches)
	}
	if numEnvs%numSubBatches != 0 {
		return nil, fmt.Errorf("%w: sub-batches (%d) must divide env count (%d)",
			sim.ErrInvalidArgument, numSubBatches, numEnvs)
	}
	perBatch := numEnvs / numSubBatches
	subBatches := make([][]Stepper, numSubBatches)
	var created []Stepper
	for i := range subBatches {
		for j := 0; j < perBatch; j++ {
			env, err := sim.NewAsyncEnv(name, specs, factory, cfg)
			if err != nil {
				closeAll(created)
				return nil, err
			}
			subBatches[i] = append(subBatches[i], env)
			created = append(created, env)
		}
	}
	return New(subBatches)
}

// NumSubBatches returns the number of sub-batches.
func (e *Env) NumSubBatches() int {
	return len(e.subBatches)
}

// NumEnvsPerSubBatch returns the size of each sub-batch.
func (e *Env) NumEnvsPerSubBatch() int {
	return len(e.subBatches[0])
}

// SubBatch returns the Steppers of sub-batch i. The slice must not be modified.
func (e *Env) SubBatch(i int) []Stepper {
	return e.subBatches[i]
}

// ResetStart starts a reset of every env in sub-batch i.
func (e *Env) ResetStart(i int) {
	for _, env := range e.subBatches[i] {
		env.ResetStart()
	}
}

// ResetWait waits for every env in sub-batch i. All waits are drained even
// when some fail, so sub-batch i stays in step with its commands.
func (e *Env) ResetWait(i int) ([]sim.Observation, error) {
	envs := e.subBatches[i]
	obs := make([]sim.Observation, len(envs))
	var errs []error
	for j, env := range envs {
		o, err := env.ResetWait()
		if err != nil {
			errs = append(errs, fmt.Errorf("env %d: %w", j, err))
			continue
		}
		obs[j] = o
	}
	return obs, errors.Join(errs...)
}

// StepStart starts a step of every env in sub-batch i with one action each.
func (e *Env) StepStart(i int, actions []int) error {
	envs := e.subBatches[i]
	if len(actions) != len(envs) {
		return fmt.Errorf("%w: got %d actions for %d envs", sim.ErrInvalidArgument, len(actions), len(envs))
	}
	for j, env := range envs {
		env.StepStart(actions[j])
	}
	return nil
}

// StepWait waits for every env in sub-batch i, in env order.
func (e *Env) StepWait(i int) ([]sim.StepResult, error) {
	envs := e.subBatches[i]
	results := make([]sim.StepResult, len(envs))
	var errs []error
	for j, env := range envs {
		res, err := env.StepWait()
		if err != nil {
			errs = append(errs, fmt.Errorf("env %d: %w", j, err))
			continue
		}
		results[j] = res
	}
	return results, errors.Join(errs...)
}

// Close closes every env and joins their errors.
func (e *Env) Close() error {
	var all []Stepper
	for _, sb := range e.subBatches {
		all = append(all, sb...)
	}
	return closeAll(all)
}

func closeAll(envs []Stepper) error {
	var errs []error
	for _, env := range envs {
		if err := env.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
