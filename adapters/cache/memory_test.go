package cache

import (
	"context"
	"testing"

	"impactsim/domain/sim"
)

func params(t *testing.T, id int) sim.SimulationParameters {
	t.Helper()
	p, err := sim.NewParameters(0.1, 30, sim.BaselineCoeffSD, id)
	if err != nil {
		t.Fatalf("NewParameters failed: %v", err)
	}
	return p
}

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := params(t, 1)

	if _, found, _ := m.Get(ctx, p); found {
		t.Fatal("Empty cache reported a hit")
	}

	est := &sim.EffectEstimate{Params: p, AvgEffect: sim.Interval{Point: 1, Lower: 0.5, Upper: 1.5}}
	if err := m.Put(ctx, est); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := m.Get(ctx, p)
	if err != nil || !found {
		t.Fatalf("Get after Put: found=%v err=%v", found, err)
	}
	if got.AvgEffect != est.AvgEffect {
		t.Errorf("Round trip changed the estimate: %+v", got.AvgEffect)
	}

	has, _ := m.Has(ctx, p)
	if !has {
		t.Error("Has must report the stored entry")
	}

	if other, _ := m.Has(ctx, params(t, 2)); other {
		t.Error("Has reported an entry for a different tuple")
	}
}

func TestMemory_ListAndOverwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for id := 1; id <= 5; id++ {
		est := &sim.EffectEstimate{Params: params(t, id)}
		if err := m.Put(ctx, est); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	// At most one result per distinct tuple: a second Put replaces.
	updated := &sim.EffectEstimate{Params: params(t, 3), AvgEffect: sim.Interval{Point: 9}}
	if err := m.Put(ctx, updated); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	all, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(all))
	}

	got, _, _ := m.Get(ctx, params(t, 3))
	if got.AvgEffect.Point != 9 {
		t.Errorf("Overwrite did not replace the entry: %+v", got.AvgEffect)
	}
}
