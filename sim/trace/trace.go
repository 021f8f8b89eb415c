package trace

// TraceLevel controls the verbosity of rollout tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEpisodes captures one record per finished episode.
	TraceLevelEpisodes TraceLevel = "episodes"
	// TraceLevelSteps additionally captures every step.
	TraceLevelSteps TraceLevel = "steps"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelEpisodes: true,
	TraceLevelSteps:    true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level        TraceLevel
	MaxTimesteps int // episode limit, used to flag truncated episodes
}

// RolloutTrace collects records during a rollout.
// Not thread-safe; record from the driver goroutine.
type RolloutTrace struct {
	Config   TraceConfig
	Episodes []EpisodeRecord
	Steps    []StepRecord

	// per-env running state
	running map[int]*EpisodeRecord
	counts  map[int]int
}

// NewRolloutTrace creates a RolloutTrace ready for recording.
func NewRolloutTrace(config TraceConfig) *RolloutTrace {
	return &RolloutTrace{
		Config:   config,
		Episodes: make([]EpisodeRecord, 0),
		Steps:    make([]StepRecord, 0),
		running:  make(map[int]*EpisodeRecord),
		counts:   make(map[int]int),
	}
}

// RecordEpisode appends a finished episode.
func (rt *RolloutTrace) RecordEpisode(record EpisodeRecord) {
	if rt.Config.Level == TraceLevelNone || rt.Config.Level == "" {
		return
	}
	rt.Episodes = append(rt.Episodes, record)
}

// RecordStep accumulates one step of env and returns the finished episode
// when done is true. Steps are stored only at TraceLevelSteps; the episode
// is recorded at any level other than none.
func (rt *RolloutTrace) RecordStep(env, act int, reward float64, done bool) (EpisodeRecord, bool) {
	ep, ok := rt.running[env]
	if !ok {
		ep = &EpisodeRecord{EnvIndex: env, Episode: rt.counts[env]}
		rt.running[env] = ep
	}
	ep.Steps++
	ep.Reward += reward
	if rt.Config.Level == TraceLevelSteps {
		rt.Steps = append(rt.Steps, StepRecord{
			EnvIndex: env,
			Timestep: ep.Steps,
			Action:   act,
			Reward:   reward,
			Done:     done,
		})
	}
	if !done {
		return EpisodeRecord{}, false
	}
	finished := *ep
	finished.Truncated = rt.Config.MaxTimesteps > 0 && finished.Steps >= rt.Config.MaxTimesteps
	delete(rt.running, env)
	rt.counts[env]++
	rt.RecordEpisode(finished)
	return finished, true
}
