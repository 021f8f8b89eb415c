package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/muniverse-agent/asyncenv/sim"
	"github.com/muniverse-agent/asyncenv/sim/batch"
	"github.com/muniverse-agent/asyncenv/sim/registry"
	"github.com/muniverse-agent/asyncenv/sim/sandbox"
	"github.com/muniverse-agent/asyncenv/sim/trace"
	"github.com/muniverse-agent/asyncenv/sim/wrap"
)

var (
	// CLI flags for the batched rollout
	envName       string        // Environment name in the spec registry
	numEnvs       int           // Total number of adapters
	numSubBatches int           // Number of independently stepped sub-batches
	fps           int           // Simulation ticks per second of game time
	maxTimesteps  int           // Episode length limit
	numSteps      int           // Steps per adapter
	seed          int64         // Master seed for policy and sandbox games
	latency       time.Duration // Wall-clock delay per sandbox tick
	downsample    int           // Observation stride (1 = off)
	frameStack    int           // Observations kept per adapter
	grayscale     bool          // Convert observations to grayscale
	traceLevel    string        // Rollout trace verbosity
)

// rolloutOptions groups the run command's parameters.
type rolloutOptions struct {
	EnvName       string
	NumEnvs       int
	NumSubBatches int
	Adapter       sim.AdapterConfig
	Steps         int
	Seed          int64
	Latency       time.Duration
	Pipeline      wrap.Pipeline
	FrameStack    int
	TraceLevel    trace.TraceLevel
}

// runCmd drives a batch of sandbox games with a uniform random policy
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batched random-policy rollout against sandbox games",
	Run: func(cmd *cobra.Command, args []string) {
		if envName == "" {
			logrus.Fatalf("Environment name not provided (--env). See `asyncenv specs`.")
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}
		reg, err := loadRegistry(specsPath)
		if err != nil {
			logrus.Fatalf("Failed to load spec registry: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := rolloutOptions{
			EnvName:       envName,
			NumEnvs:       numEnvs,
			NumSubBatches: numSubBatches,
			Adapter:       sim.NewAdapterConfig(fps, maxTimesteps),
			Steps:         numSteps,
			Seed:          seed,
			Latency:       latency,
			Pipeline:      wrap.Pipeline{Stride: downsample, Grayscale: grayscale},
			FrameStack:    frameStack,
			TraceLevel:    trace.TraceLevel(traceLevel),
		}
		logrus.Infof("Starting rollout of %s: %d envs in %d sub-batches, %d steps, fps=%d, max timesteps=%d",
			opts.EnvName, opts.NumEnvs, opts.NumSubBatches, opts.Steps, fps, maxTimesteps)

		startTime := time.Now()
		summary, err := runRollout(ctx, reg, opts)
		if err != nil {
			logrus.Fatalf("Rollout failed: %v", err)
		}
		printSummary(os.Stdout, summary, time.Since(startTime))
		logrus.Info("Rollout complete.")
	},
}

// runRollout steps every adapter opts.Steps times. Each sub-batch is
// restarted as soon as its results are collected, so the other sub-batches'
// ticks keep running while one is being processed.
func runRollout(ctx context.Context, reg *registry.Registry, opts rolloutOptions) (*trace.TraceSummary, error) {
	spec, ok := reg.SpecForName(opts.EnvName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown environment: %s", sim.ErrInvalidArgument, opts.EnvName)
	}
	conv, err := sim.NewConverter(spec)
	if err != nil {
		return nil, err
	}
	space := conv.ActionSpace()

	rng := sim.NewPartitionedRNG(opts.Seed)
	policy := rng.ForSubsystem(sim.SubsystemPolicy)
	gameCfg := sandbox.DefaultConfig(0)
	gameCfg.Latency = opts.Latency

	env, err := batch.Create(opts.EnvName, opts.NumEnvs, opts.NumSubBatches, reg,
		sandbox.Factory(gameCfg, rng), opts.Adapter)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logrus.Warnf("Closing environments: %v", err)
		}
	}()

	perBatch := env.NumEnvsPerSubBatch()
	stacks := make([]*wrap.FrameStack, opts.NumEnvs)
	for i := range stacks {
		if stacks[i], err = wrap.NewFrameStack(max(opts.FrameStack, 1)); err != nil {
			return nil, err
		}
	}
	rt := trace.NewRolloutTrace(trace.TraceConfig{Level: opts.TraceLevel, MaxTimesteps: opts.Adapter.MaxTimesteps})
	if opts.TraceLevel == "" || opts.TraceLevel == trace.TraceLevelNone {
		// The summary needs episode records.
		rt.Config.Level = trace.TraceLevelEpisodes
	}

	for i := 0; i < env.NumSubBatches(); i++ {
		env.ResetStart(i)
	}
	var errs []error
	for i := 0; i < env.NumSubBatches(); i++ {
		obs, err := env.ResetWait(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for j, o := range obs {
			frame, err := opts.Pipeline.Apply(o)
			if err != nil {
				return nil, err
			}
			stacks[i*perBatch+j].Reset(frame)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	actions := make([][]int, env.NumSubBatches())
	start := func(i int) error {
		actions[i] = actions[i][:0]
		for range perBatch {
			actions[i] = append(actions[i], policy.Intn(space.N))
		}
		return env.StepStart(i, actions[i])
	}
	for i := 0; i < env.NumSubBatches(); i++ {
		if err := start(i); err != nil {
			return nil, err
		}
	}

	for step := 0; step < opts.Steps; step++ {
		for i := 0; i < env.NumSubBatches(); i++ {
			results, err := env.StepWait(i)
			if err != nil {
				return nil, fmt.Errorf("step %d, sub-batch %d: %w", step, i, err)
			}
			for j, res := range results {
				idx := i*perBatch + j
				frame, err := opts.Pipeline.Apply(res.Obs)
				if err != nil {
					return nil, err
				}
				if res.Done {
					stacks[idx].Reset(frame)
				} else {
					stacks[idx].Push(frame)
				}
				if ep, done := rt.RecordStep(idx, actions[i][j], res.Reward, res.Done); done {
					logrus.WithFields(logrus.Fields{"env": idx, "episode": ep.Episode}).
						Infof("reward=%.2f steps=%d truncated=%v", ep.Reward, ep.Steps, ep.Truncated)
				}
			}
			// Every sub-batch is left with one step in flight only while more steps remain.
			if step+1 < opts.Steps {
				if err := start(i); err != nil {
					return nil, err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			logrus.Warnf("Rollout interrupted after %d steps", step+1)
			break
		}
	}

	final := opts.Pipeline.Space(sim.ObservationSpace{Height: spec.Height, Width: spec.Width, Depth: 3})
	logrus.Debugf("Policy observation: %d frames of %v", stacks[0].Len(), final.Shape())
	return trace.Summarize(rt), nil
}

// printSummary writes the rollout statistics to w.
func printSummary(w io.Writer, s *trace.TraceSummary, elapsed time.Duration) {
	fmt.Fprintln(w, "=== Rollout Summary ===")
	fmt.Fprintf(w, "episodes:        %d\n", s.Episodes)
	fmt.Fprintf(w, "truncated:       %d\n", s.TruncatedCount)
	fmt.Fprintf(w, "total_steps:     %d\n", s.TotalSteps)
	fmt.Fprintf(w, "mean_reward:     %.3f\n", s.MeanReward)
	fmt.Fprintf(w, "max_reward:      %.3f\n", s.MaxReward)
	fmt.Fprintf(w, "min_reward:      %.3f\n", s.MinReward)
	fmt.Fprintf(w, "mean_length:     %.1f\n", s.MeanLength)
	fmt.Fprintf(w, "wall_time_s:     %.3f\n", elapsed.Seconds())
}

func init() {
	runCmd.Flags().StringVar(&envName, "env", "", "Environment name in the spec registry")
	runCmd.Flags().IntVar(&numEnvs, "num-envs", 8, "Total number of environment adapters")
	runCmd.Flags().IntVar(&numSubBatches, "num-sub-batches", 2, "Number of sub-batches (must divide --num-envs)")
	runCmd.Flags().IntVar(&fps, "fps", sim.DefaultFPS, "Simulation ticks per second of game time")
	runCmd.Flags().IntVar(&maxTimesteps, "max-timesteps", sim.DefaultMaxTimesteps, "Max timesteps per episode")
	runCmd.Flags().IntVar(&numSteps, "steps", 1000, "Steps per environment")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the policy and sandbox games")
	runCmd.Flags().DurationVar(&latency, "latency", 0, "Wall-clock delay per sandbox tick (e.g. 20ms)")
	runCmd.Flags().IntVar(&downsample, "downsample", 4, "Observation downsampling stride (1 disables)")
	runCmd.Flags().IntVar(&frameStack, "frame-stack", 4, "Number of stacked observations per environment")
	runCmd.Flags().BoolVar(&grayscale, "grayscale", false, "Convert observations to grayscale")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "episodes", "Rollout trace level (none, episodes, steps)")
}
