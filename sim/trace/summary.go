package trace

// TraceSummary aggregates statistics from a RolloutTrace.
type TraceSummary struct {
	Episodes       int
	TruncatedCount int
	TotalSteps     int
	MeanReward     float64
	MaxReward      float64
	MinReward      float64
	MeanLength     float64
	EpisodesPerEnv map[int]int // env index → finished episodes
}

// Summarize computes aggregate statistics from a RolloutTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RolloutTrace) *TraceSummary {
	summary := &TraceSummary{
		EpisodesPerEnv: make(map[int]int),
	}
	if rt == nil || len(rt.Episodes) == 0 {
		return summary
	}

	summary.Episodes = len(rt.Episodes)
	summary.MaxReward = rt.Episodes[0].Reward
	summary.MinReward = rt.Episodes[0].Reward
	totalReward := 0.0
	for _, ep := range rt.Episodes {
		summary.EpisodesPerEnv[ep.EnvIndex]++
		summary.TotalSteps += ep.Steps
		totalReward += ep.Reward
		if ep.Truncated {
			summary.TruncatedCount++
		}
		if ep.Reward > summary.MaxReward {
			summary.MaxReward = ep.Reward
		}
		if ep.Reward < summary.MinReward {
			summary.MinReward = ep.Reward
		}
	}
	summary.MeanReward = totalReward / float64(summary.Episodes)
	summary.MeanLength = float64(summary.TotalSteps) / float64(summary.Episodes)

	return summary
}
