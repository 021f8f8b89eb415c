package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muniverse-agent/asyncenv/sim/action"
	"github.com/muniverse-agent/asyncenv/sim/registry"
)

var errFakeStep = errors.New("tick failed")

// fakeEnv records every call the worker makes.
type fakeEnv struct {
	spec *registry.Spec

	mu           sync.Mutex
	resets       int
	closes       int
	totalSteps   int
	episodeSteps int
	events       [][]action.Event
	ticks        []time.Duration

	doneAfter  int // natural terminal after this many steps per episode; 0 = never
	failOnStep int // Step fails when totalSteps would reach this; 0 = never
	closeErr   error
}

func (f *fakeEnv) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.episodeSteps = 0
	return nil
}

func (f *fakeEnv) Step(tick time.Duration, events ...action.Event) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnStep != 0 && f.totalSteps+1 == f.failOnStep {
		return 0, false, errFakeStep
	}
	f.totalSteps++
	f.episodeSteps++
	f.events = append(f.events, events)
	f.ticks = append(f.ticks, tick)
	return float64(f.totalSteps), f.doneAfter != 0 && f.episodeSteps >= f.doneAfter, nil
}

func (f *fakeEnv) Observe() (Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obs := NewObservation(f.spec.Width, f.spec.Height)
	obs.Pix[0] = uint8(f.totalSteps)
	return obs, nil
}

func (f *fakeEnv) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func (f *fakeEnv) snapshot() (resets, closes int, events [][]action.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets, f.closes, append([][]action.Event(nil), f.events...)
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New([]*registry.Spec{
		{Name: "Keys-v0", Width: 8, Height: 6, KeyWhitelist: []string{"ArrowUp", "ArrowDown"}},
		{Name: "Tap-v0", Width: 10, Height: 20, MouseRequired: true, MouseType: registry.MouseTap},
		{Name: "Mouse-v0", Width: 10, Height: 20, MouseRequired: true, MouseType: "mouse"},
		{Name: "BadKey-v0", Width: 4, Height: 4, KeyWhitelist: []string{"NotAKey"}},
	})
	require.NoError(t, err)
	return r
}

// newTestEnv builds an AsyncEnv over a fakeEnv; configure tweaks the fake
// before the worker starts.
func newTestEnv(t *testing.T, name string, cfg AdapterConfig, configure func(*fakeEnv)) (*AsyncEnv, *fakeEnv) {
	t.Helper()
	var fake *fakeEnv
	factory := func(spec *registry.Spec) (Environment, error) {
		fake = &fakeEnv{spec: spec}
		if configure != nil {
			configure(fake)
		}
		return fake, nil
	}
	a, err := NewAsyncEnv(name, testRegistry(t), factory, cfg)
	require.NoError(t, err)
	return a, fake
}

func TestNewAsyncEnv_InvalidArguments_NoEnvironmentCreated(t *testing.T) {
	cases := []struct {
		name string
		env  string
		cfg  AdapterConfig
	}{
		{"unknown name", "Missing-v0", DefaultAdapterConfig()},
		{"unsupported mouse type", "Mouse-v0", DefaultAdapterConfig()},
		{"unknown key code", "BadKey-v0", DefaultAdapterConfig()},
		{"zero fps", "Keys-v0", NewAdapterConfig(0, 10)},
		{"zero max timesteps", "Keys-v0", NewAdapterConfig(10, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a factory that records whether it was called
			called := false
			factory := func(spec *registry.Spec) (Environment, error) {
				called = true
				return &fakeEnv{spec: spec}, nil
			}

			// WHEN constructing the adapter
			a, err := NewAsyncEnv(tc.env, testRegistry(t), factory, tc.cfg)

			// THEN construction fails with an invalid-argument error before any environment exists
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
			assert.False(t, called)
		})
	}
}

func TestNewAsyncEnv_FactoryError_Propagated(t *testing.T) {
	boom := errors.New("no browser")
	factory := func(*registry.Spec) (Environment, error) { return nil, boom }

	_, err := NewAsyncEnv("Keys-v0", testRegistry(t), factory, DefaultAdapterConfig())

	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
}

func TestAsyncEnv_Spaces(t *testing.T) {
	keys, _ := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), nil)
	defer keys.Close()
	tap, _ := newTestEnv(t, "Tap-v0", DefaultAdapterConfig(), nil)
	defer tap.Close()

	assert.Equal(t, action.Discrete{N: 4}, keys.ActionSpace())
	assert.Equal(t, []int{6, 8, 3}, keys.ObservationSpace().Shape())
	assert.Equal(t, action.Discrete{N: 2}, tap.ActionSpace())
	assert.Equal(t, []int{20, 10, 3}, tap.ObservationSpace().Shape())
	assert.NotEqual(t, keys.ID(), tap.ID())
	assert.Equal(t, "Tap-v0", tap.Spec().Name)
}

func TestAsyncEnv_Reset_ReturnsObservation(t *testing.T) {
	a, fake := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), nil)
	defer a.Close()

	a.ResetStart()
	obs, err := a.ResetWait()

	require.NoError(t, err)
	assert.True(t, a.ObservationSpace().Contains(obs))
	resets, _, _ := fake.snapshot()
	assert.Equal(t, 1, resets)
	assert.Equal(t, 0, a.Timestep())
}

func TestAsyncEnv_Step_AppliesConvertedEventsInOneTick(t *testing.T) {
	// GIVEN a keyboard adapter at 20 fps
	a, fake := newTestEnv(t, "Keys-v0", NewAdapterConfig(20, 100), nil)
	defer a.Close()
	a.ResetStart()
	_, err := a.ResetWait()
	require.NoError(t, err)

	// WHEN stepping with up, up, down, nothing
	for _, act := range []int{0b01, 0b01, 0b10, 0b00} {
		a.StepStart(act)
		res, err := a.StepWait()
		require.NoError(t, err)
		assert.False(t, res.Done)
		assert.NotNil(t, res.Info)
		assert.Empty(t, res.Info)
	}

	// THEN each tick received only the key transitions, in key order
	_, _, events := fake.snapshot()
	up, _ := action.KeyForCode("ArrowUp")
	down, _ := action.KeyForCode("ArrowDown")
	require.Len(t, events, 4)
	assert.Equal(t, []action.Event{up.WithType(action.KeyDown)}, events[0])
	assert.Empty(t, events[1])
	assert.Equal(t, []action.Event{up.WithType(action.KeyUp), down.WithType(action.KeyDown)}, events[2])
	assert.Equal(t, []action.Event{down.WithType(action.KeyUp)}, events[3])
	for _, tick := range fake.ticks {
		assert.Equal(t, 50*time.Millisecond, tick)
	}
	assert.Equal(t, 4, a.Timestep())
}

func TestAsyncEnv_Truncation_DoneOnMaxTimesteps(t *testing.T) {
	// GIVEN max timesteps T=5 and an environment that never ends naturally
	const T = 5
	a, fake := newTestEnv(t, "Tap-v0", NewAdapterConfig(10, T), nil)
	defer a.Close()
	a.ResetStart()
	_, err := a.ResetWait()
	require.NoError(t, err)

	// WHEN stepping T times
	for i := 1; i <= T; i++ {
		a.StepStart(0)
		res, err := a.StepWait()
		require.NoError(t, err)

		// THEN only the T-th step is done
		if i < T {
			assert.False(t, res.Done, "step %d", i)
			assert.Equal(t, i, a.Timestep())
		} else {
			assert.True(t, res.Done, "step %d", i)
			assert.Equal(t, 0, a.Timestep())
		}
	}

	// AND the environment was reset by the worker without an explicit ResetStart
	resets, _, _ := fake.snapshot()
	assert.Equal(t, 2, resets)

	// AND the next episode truncates after another T steps
	for i := 1; i <= T; i++ {
		a.StepStart(0)
		res, err := a.StepWait()
		require.NoError(t, err)
		assert.Equal(t, i == T, res.Done, "second episode step %d", i)
	}
}

func TestAsyncEnv_NaturalDone_ResetsConverter(t *testing.T) {
	// GIVEN a tap game that ends after 2 steps
	a, fake := newTestEnv(t, "Tap-v0", DefaultAdapterConfig(), func(f *fakeEnv) { f.doneAfter = 2 })
	defer a.Close()
	a.ResetStart()
	_, err := a.ResetWait()
	require.NoError(t, err)

	// WHEN holding the pointer through the end of the episode and into the next
	var dones []bool
	for i := 0; i < 3; i++ {
		a.StepStart(1)
		res, err := a.StepWait()
		require.NoError(t, err)
		dones = append(dones, res.Done)
	}

	// THEN the second step ends the episode, and the held pointer is pressed
	// again on the first step of the next episode
	assert.Equal(t, []bool{false, true, false}, dones)
	_, _, events := fake.snapshot()
	require.Len(t, events, 3)
	assert.Len(t, events[0], 1)
	assert.Empty(t, events[1])
	require.Len(t, events[2], 1)
	assert.Equal(t, action.MousePressed, events[2][0].EventType())
	assert.Equal(t, 1, a.Timestep())
}

func TestAsyncEnv_RedundantResetAfterDone_Harmless(t *testing.T) {
	a, fake := newTestEnv(t, "Tap-v0", NewAdapterConfig(10, 1), nil)
	defer a.Close()

	a.StepStart(1)
	res, err := a.StepWait()
	require.NoError(t, err)
	require.True(t, res.Done)

	a.ResetStart()
	_, err = a.ResetWait()
	require.NoError(t, err)

	resets, _, _ := fake.snapshot()
	assert.Equal(t, 2, resets)
	assert.Equal(t, 0, a.Timestep())
}

func TestAsyncEnv_QueuedSteps_ResponsesInSubmissionOrder(t *testing.T) {
	// GIVEN three steps issued before any wait
	a, _ := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), nil)
	defer a.Close()
	a.StepStart(1)
	a.StepStart(2)
	a.StepStart(3)

	// WHEN the waits are drained
	var rewards []float64
	var frames []uint8
	for i := 0; i < 3; i++ {
		res, err := a.StepWait()
		require.NoError(t, err)
		rewards = append(rewards, res.Reward)
		frames = append(frames, res.Obs.Pix[0])
	}

	// THEN responses match submission order
	assert.Equal(t, []float64{1, 2, 3}, rewards)
	assert.Equal(t, []uint8{1, 2, 3}, frames)
}

func TestAsyncEnv_Close_ReleasesEnvironmentOnce(t *testing.T) {
	a, fake := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), nil)
	a.ResetStart()
	_, err := a.ResetWait()
	require.NoError(t, err)

	require.NoError(t, a.Close())

	_, closes, _ := fake.snapshot()
	assert.Equal(t, 1, closes)
	assert.False(t, a.Alive())
	_, waitErr := a.StepWait()
	assert.True(t, errors.Is(waitErr, ErrWorkerStopped))
}

func TestAsyncEnv_Close_ReportsEnvironmentCloseError(t *testing.T) {
	boom := errors.New("browser crashed on exit")
	a, _ := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), func(f *fakeEnv) { f.closeErr = boom })

	assert.Equal(t, boom, a.Close())
}

func TestAsyncEnv_SimulationFault_StopsWorker(t *testing.T) {
	// GIVEN an environment whose second tick fails
	a, fake := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), func(f *fakeEnv) { f.failOnStep = 2 })

	a.StepStart(0)
	_, err := a.StepWait()
	require.NoError(t, err)

	// WHEN the failing tick runs
	a.StepStart(0)
	_, err = a.StepWait()

	// THEN the fault surfaces on the wait
	assert.True(t, errors.Is(err, errFakeStep), "got %v", err)

	// AND later waits fail instead of hanging
	a.StepStart(0)
	_, err = a.StepWait()
	assert.True(t, errors.Is(err, ErrWorkerStopped), "got %v", err)

	// AND Close still returns and the environment was released exactly once
	assert.NoError(t, a.Close())
	_, closes, _ := fake.snapshot()
	assert.Equal(t, 1, closes)
}

func TestAsyncEnv_IndependentAdapters(t *testing.T) {
	// GIVEN one healthy and one faulty adapter
	good, _ := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), nil)
	defer good.Close()
	bad, _ := newTestEnv(t, "Keys-v0", DefaultAdapterConfig(), func(f *fakeEnv) { f.failOnStep = 1 })
	defer bad.Close()

	// WHEN both are started before either is waited on
	good.StepStart(1)
	bad.StepStart(1)
	_, badErr := bad.StepWait()
	res, goodErr := good.StepWait()

	// THEN the fault stays local to the faulty adapter
	assert.Error(t, badErr)
	require.NoError(t, goodErr)
	assert.Equal(t, 1.0, res.Reward)
}
