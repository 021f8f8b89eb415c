package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muniverse-agent/asyncenv/sim/action"
)

type commandKind int

const (
	cmdReset commandKind = iota
	cmdStep
	cmdShutdown
)

func (k commandKind) String() string {
	switch k {
	case cmdReset:
		return "reset"
	case cmdStep:
		return "step"
	case cmdShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// command is consumed exactly once by the worker, in submission order.
type command struct {
	kind   commandKind
	action int // cmdStep only
}

// response is produced once per non-shutdown command.
// A reset response carries only obs.
type response struct {
	obs    Observation
	reward float64
	done   bool
	err    error
}

// worker exclusively owns the Environment, the converter and the timestep
// counter. Nothing else touches them.
type worker struct {
	env          Environment
	converter    action.Converter
	tick         time.Duration
	maxTimesteps int
	timestep     int

	owner *AsyncEnv
	log   *logrus.Entry
}

// run consumes commands until shutdown or the first simulation fault.
// A fault is delivered as the error of the failing command's response; the
// worker then releases the Environment and exits, and later Waits return
// ErrWorkerStopped.
func (w *worker) run() {
	defer close(w.owner.done)
	defer w.owner.responses.Close()
	defer w.release()

	for {
		cmd, _ := w.owner.commands.Dequeue()
		w.log.Debugf("<< %s", cmd.kind)

		var resp response
		switch cmd.kind {
		case cmdShutdown:
			return
		case cmdReset:
			resp = w.reset()
		case cmdStep:
			resp = w.step(cmd.action)
		default:
			resp.err = fmt.Errorf("unknown command %s", cmd.kind)
		}

		w.owner.timestep.Store(int64(w.timestep))
		w.owner.responses.Enqueue(resp)
		if resp.err != nil {
			w.log.Errorf("simulation fault, stopping worker: %v", resp.err)
			return
		}
	}
}

func (w *worker) reset() response {
	if err := w.restart(); err != nil {
		return response{err: err}
	}
	obs, err := w.env.Observe()
	if err != nil {
		return response{err: fmt.Errorf("observe: %w", err)}
	}
	return response{obs: obs}
}

func (w *worker) step(act int) response {
	events := w.converter.Convert(act)
	reward, done, err := w.env.Step(w.tick, events...)
	if err != nil {
		return response{err: fmt.Errorf("step: %w", err)}
	}
	w.timestep++
	if w.timestep >= w.maxTimesteps {
		w.log.Debugf("episode truncated at %d timesteps", w.timestep)
		done = true
	}
	if done {
		if err := w.restart(); err != nil {
			return response{err: err}
		}
	}
	obs, err := w.env.Observe()
	if err != nil {
		return response{err: fmt.Errorf("observe: %w", err)}
	}
	return response{obs: obs, reward: reward, done: done}
}

// restart begins a new episode: environment, converter and counter.
func (w *worker) restart() error {
	w.timestep = 0
	if err := w.env.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	w.converter.Reset()
	return nil
}

func (w *worker) release() {
	if err := w.env.Close(); err != nil {
		w.log.Warnf("close environment: %v", err)
		w.owner.closeErr = err
	}
}
