package trace

import "testing"

func TestRolloutTrace_RecordStep_EmitsEpisodeOnDone(t *testing.T) {
	// GIVEN an episode-level trace
	rt := NewRolloutTrace(TraceConfig{Level: TraceLevelEpisodes, MaxTimesteps: 10})

	// WHEN env 0 takes three steps, the last one done
	for i := 0; i < 2; i++ {
		if _, done := rt.RecordStep(0, 1, 1.5, false); done {
			t.Fatalf("step %d: unexpected episode end", i)
		}
	}
	ep, done := rt.RecordStep(0, 0, 2, true)

	// THEN one episode record with the sums is produced
	if !done {
		t.Fatal("expected an episode to finish")
	}
	if ep.Steps != 3 || ep.Reward != 5 || ep.Episode != 0 || ep.Truncated {
		t.Errorf("unexpected record %+v", ep)
	}
	if len(rt.Episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(rt.Episodes))
	}
	if len(rt.Steps) != 0 {
		t.Errorf("episode level must not store steps, got %d", len(rt.Steps))
	}
}

func TestRolloutTrace_EnvsTrackedIndependently(t *testing.T) {
	rt := NewRolloutTrace(TraceConfig{Level: TraceLevelEpisodes})

	rt.RecordStep(0, 0, 1, false)
	rt.RecordStep(1, 0, 10, true)
	ep, _ := rt.RecordStep(0, 0, 1, true)
	next, _ := rt.RecordStep(1, 0, 3, true)

	if ep.EnvIndex != 0 || ep.Reward != 2 || ep.Steps != 2 {
		t.Errorf("env 0 record %+v", ep)
	}
	if next.EnvIndex != 1 || next.Episode != 1 || next.Reward != 3 {
		t.Errorf("env 1 second record %+v", next)
	}
}

func TestRolloutTrace_TruncatedAtLimit(t *testing.T) {
	rt := NewRolloutTrace(TraceConfig{Level: TraceLevelEpisodes, MaxTimesteps: 2})

	rt.RecordStep(0, 0, 0, false)
	ep, _ := rt.RecordStep(0, 0, 0, true)

	if !ep.Truncated {
		t.Error("episode reaching MaxTimesteps must be flagged truncated")
	}
}

func TestRolloutTrace_StepLevel_StoresSteps(t *testing.T) {
	rt := NewRolloutTrace(TraceConfig{Level: TraceLevelSteps})

	rt.RecordStep(2, 3, 0.5, false)
	rt.RecordStep(2, 1, 0.5, true)

	if len(rt.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(rt.Steps))
	}
	if rt.Steps[1].Timestep != 2 || rt.Steps[1].Action != 1 || !rt.Steps[1].Done {
		t.Errorf("unexpected step %+v", rt.Steps[1])
	}
}

func TestRolloutTrace_NoneLevel_RecordsNothing(t *testing.T) {
	rt := NewRolloutTrace(TraceConfig{Level: TraceLevelNone})

	_, done := rt.RecordStep(0, 0, 1, true)

	if !done {
		t.Error("RecordStep must still report episode ends")
	}
	if len(rt.Episodes) != 0 || len(rt.Steps) != 0 {
		t.Error("none level must not store records")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "episodes", "steps"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("%q should be valid", level)
		}
	}
	if IsValidTraceLevel("decisions") {
		t.Error("decisions should be invalid")
	}
}
