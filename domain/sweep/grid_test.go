package sweep

import (
	"testing"

	"impactsim/domain/core"
	"impactsim/domain/sim"
)

func TestDefaultGrid_FilteredEnumeration(t *testing.T) {
	trials, err := DefaultGrid(2).Enumerate()
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	// Baseline trials: 6 effects at d=180 plus 4 durations at e=0.1,
	// minus the shared (0.1,180) cell = 9 combinations.
	// Structural trials: 2 active sds pinned to (0.1,180) = 2 combinations.
	// 11 combinations x 2 simulations.
	if len(trials) != 22 {
		t.Fatalf("Expected 22 trials, got %d", len(trials))
	}

	for _, p := range trials {
		if p.StructuralChange() {
			if p.EffectSize != ReferenceEffect || p.CampaignDays != ReferenceDuration {
				t.Errorf("Structural trial outside the reference cell: %s", p.Key())
			}
			continue
		}
		if p.CampaignDays != ReferenceDuration && p.EffectSize != ReferenceEffect {
			t.Errorf("Baseline trial varies both axes at once: %s", p.Key())
		}
	}
}

func TestEnumerate_Deduplicates(t *testing.T) {
	g := Grid{
		EffectSizes:   []float64{0.1, 0.1},
		CampaignDays:  []int{30},
		StructuralSDs: []float64{sim.BaselineCoeffSD},
		Simulations:   3,
	}

	trials, err := g.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("Expected duplicate axis values to collapse to 3 trials, got %d", len(trials))
	}
}

func TestEnumerate_DeterministicOrder(t *testing.T) {
	g := DefaultGrid(2)
	a, _ := g.Enumerate()
	b, _ := g.Enumerate()

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Enumeration order differs at %d: %s vs %s", i, a[i].Key(), b[i].Key())
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i-1].Key() >= a[i].Key() {
			t.Fatalf("Enumeration not sorted at %d: %s >= %s", i, a[i-1].Key(), a[i].Key())
		}
	}
}

func TestEnumerate_RejectsMalformedAxes(t *testing.T) {
	bad := Grid{
		EffectSizes:   []float64{-1},
		CampaignDays:  []int{30},
		StructuralSDs: []float64{sim.BaselineCoeffSD},
		Simulations:   1,
	}
	if _, err := bad.Enumerate(); !core.IsParameterError(err) {
		t.Errorf("Expected parameter error for negative effect size, got %v", err)
	}

	zeroSims := DefaultGrid(0)
	if _, err := zeroSims.Enumerate(); err == nil {
		t.Error("Expected error for zero simulations")
	}

	filteredOut := Grid{
		EffectSizes:   []float64{0.5},
		CampaignDays:  []int{30},
		StructuralSDs: []float64{sim.BaselineCoeffSD},
		Simulations:   1,
		Filters:       []Filter{func(sim.SimulationParameters) bool { return false }},
	}
	if _, err := filteredOut.Enumerate(); err != core.ErrEmptyGrid {
		t.Errorf("Expected ErrEmptyGrid, got %v", err)
	}
}
