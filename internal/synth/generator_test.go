package synth

import (
	"testing"

	"impactsim/domain/core"
	"impactsim/domain/sim"
)

func mustParams(t *testing.T, e float64, d int, c float64, id int) sim.SimulationParameters {
	t.Helper()
	p, err := sim.NewParameters(e, d, c, id)
	if err != nil {
		t.Fatalf("NewParameters failed: %v", err)
	}
	return p
}

// TestGenerate_Deterministic verifies two calls with the same tuple
// produce bit-identical series.
func TestGenerate_Deterministic(t *testing.T) {
	params := mustParams(t, 0.1, 90, sim.BaselineCoeffSD, 3)

	a, err := Generate(params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if a.Len() != b.Len() {
		t.Fatalf("Length mismatch: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			t.Fatalf("Step %d differs between identical generations: %+v vs %+v", i, a.Steps[i], b.Steps[i])
		}
	}
}

// TestGenerate_DistinctTuplesDistinctSeeds verifies trials do not share
// random state: different simulation IDs give different draws.
func TestGenerate_DistinctTuplesDistinctSeeds(t *testing.T) {
	p1 := mustParams(t, 0.1, 30, sim.BaselineCoeffSD, 1)
	p2 := mustParams(t, 0.1, 30, sim.BaselineCoeffSD, 2)

	if p1.Seed() == p2.Seed() {
		t.Fatalf("Distinct tuples derived the same seed %d", p1.Seed())
	}

	a, _ := Generate(p1)
	b, _ := Generate(p2)
	if a.Steps[0].Noise == b.Steps[0].Noise && a.Steps[0].Level == b.Steps[0].Level {
		t.Error("Expected different draws for different simulation IDs")
	}
}

// TestGenerate_NullConsistency verifies e=0 reduces to the pure null
// series: no scaling anywhere, multiplicative factor exactly 1.
func TestGenerate_NullConsistency(t *testing.T) {
	params := mustParams(t, 0, 180, sim.BaselineCoeffSD, 7)

	series, err := Generate(params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, step := range series.Steps {
		if step.Observed != step.Signal+step.Noise {
			t.Fatalf("t=%d: null series observed %v != signal+noise %v", step.T, step.Observed, step.Signal+step.Noise)
		}
	}
}

// TestGenerate_BoundaryContinuity verifies the noiseless signal is
// built identically on both sides of t=365/366; only the scaling of
// the observation changes.
func TestGenerate_BoundaryContinuity(t *testing.T) {
	params := mustParams(t, 0.25, 60, sim.BaselineCoeffSD, 11)

	series, _ := Generate(params)
	for _, step := range series.Steps {
		signal := step.Beta1*step.Predictor1 + step.Beta2*step.Predictor2 + step.Level
		if step.Signal != signal {
			t.Fatalf("t=%d: signal not constructed from components: %v vs %v", step.T, step.Signal, signal)
		}
		want := step.Signal + step.Noise
		if step.T > params.PrePeriod {
			want = (step.Signal + step.Noise) * (1 + params.EffectSize)
		}
		if step.Observed != want {
			t.Fatalf("t=%d: observed %v, want %v", step.T, step.Observed, want)
		}
	}
}

// TestGenerateSeeded_StructuralGating verifies the coefficient walks
// use the baseline step sd up to and including t=455 regardless of the
// structural setting, switching to c only beyond the break point.
func TestGenerateSeeded_StructuralGating(t *testing.T) {
	baseline := mustParams(t, 0.1, 180, sim.BaselineCoeffSD, 5)
	changed := mustParams(t, 0.1, 180, 0.5, 5)

	seed := int64(20240901)
	a := GenerateSeeded(baseline, seed)
	b := GenerateSeeded(changed, seed)

	for i := 0; i < sim.StructuralBreak; i++ {
		if a.Steps[i].Beta1 != b.Steps[i].Beta1 || a.Steps[i].Beta2 != b.Steps[i].Beta2 {
			t.Fatalf("t=%d: coefficients diverged before the structural break", a.Steps[i].T)
		}
	}

	// The level walk consumes the same stream positions in both runs, so
	// it must stay identical even after the break.
	for i := range a.Steps {
		if a.Steps[i].Level != b.Steps[i].Level {
			t.Fatalf("t=%d: level walk affected by structural setting", a.Steps[i].T)
		}
	}

	diverged := false
	for i := sim.StructuralBreak; i < len(a.Steps); i++ {
		if a.Steps[i].Beta1 != b.Steps[i].Beta1 {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Error("Expected coefficient walks to diverge after the structural break")
	}
}

// TestGenerate_EndToEndScenario pins the spec scenario: e=0.1, d=180,
// no structural change.
func TestGenerate_EndToEndScenario(t *testing.T) {
	params := mustParams(t, 0.1, 180, sim.BaselineCoeffSD, 1)

	series, err := Generate(params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if series.Len() != 545 {
		t.Fatalf("Expected 365+180=545 steps, got %d", series.Len())
	}

	pre, post := series.Split()
	if len(pre) != 365 || len(post) != 180 {
		t.Fatalf("Split sizes wrong: pre=%d post=%d", len(pre), len(post))
	}

	for _, step := range post {
		if step.Observed != (step.Signal+step.Noise)*1.1 {
			t.Fatalf("t=%d: post-period observation not scaled by exactly 1.1", step.T)
		}
	}
	for _, step := range pre {
		if step.Observed != step.Signal+step.Noise {
			t.Fatalf("t=%d: pre-period observation must be unshocked", step.T)
		}
	}
}

// TestGenerate_RejectsInvalidParameters verifies malformed tuples fail
// before any simulation work.
func TestGenerate_RejectsInvalidParameters(t *testing.T) {
	cases := []sim.SimulationParameters{
		{EffectSize: -0.1, CampaignDays: 30, StructuralSD: sim.BaselineCoeffSD, PrePeriod: sim.PrePeriodDays, SimulationID: 1},
		{EffectSize: 0.1, CampaignDays: 0, StructuralSD: sim.BaselineCoeffSD, PrePeriod: sim.PrePeriodDays, SimulationID: 1},
		{EffectSize: 0.1, CampaignDays: 30, StructuralSD: 0, PrePeriod: sim.PrePeriodDays, SimulationID: 1},
		{EffectSize: 0.1, CampaignDays: 30, StructuralSD: sim.BaselineCoeffSD, PrePeriod: sim.PrePeriodDays, SimulationID: 0},
	}

	for _, p := range cases {
		if _, err := Generate(p); !core.IsParameterError(err) {
			t.Errorf("Expected parameter error for %+v, got %v", p, err)
		}
	}
}
