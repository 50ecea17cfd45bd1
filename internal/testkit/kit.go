// Package testkit provides deterministic fixtures for service and
// adapter tests: an in-memory cache, a scripted estimator, and small
// sweep grids that run in milliseconds.
package testkit

import (
	"context"
	"sync"

	"impactsim/adapters/cache"
	"impactsim/domain/sim"
	"impactsim/domain/sweep"
	"impactsim/ports"
)

// Kit bundles the in-memory collaborators a test needs.
type Kit struct {
	Cache     *cache.Memory
	Estimator *StubEstimator
}

// NewKit creates a fresh kit with empty state.
func NewKit() *Kit {
	return &Kit{
		Cache:     cache.NewMemory(),
		Estimator: NewStubEstimator(),
	}
}

// SmallGrid is a filterless grid small enough for unit tests: two
// effect sizes, two durations, no structural change.
func SmallGrid(simulations int) sweep.Grid {
	return sweep.Grid{
		EffectSizes:   []float64{0, 0.1},
		CampaignDays:  []int{7, 30},
		StructuralSDs: []float64{sim.BaselineCoeffSD},
		Simulations:   simulations,
	}
}

// StubEstimator implements EstimatorPort with scripted behavior and
// call counting, so tests can assert how often estimation actually ran.
type StubEstimator struct {
	mu    sync.Mutex
	calls int

	// FailOn, when set, makes matching requests fail with Err.
	FailOn func(req ports.EstimateRequest) bool
	Err    error
}

// NewStubEstimator creates a stub that always succeeds.
func NewStubEstimator() *StubEstimator {
	return &StubEstimator{}
}

var _ ports.EstimatorPort = (*StubEstimator)(nil)

// Calls returns how many times Estimate ran.
func (s *StubEstimator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Estimate returns a fixed rejecting estimate derived from the request
// shape, or the scripted failure.
func (s *StubEstimator) Estimate(ctx context.Context, req ports.EstimateRequest) (*sim.EffectEstimate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.FailOn != nil && s.FailOn(req) {
		return nil, s.Err
	}

	horizon := float64(req.PostEnd - req.PreEnd)
	return &sim.EffectEstimate{
		AvgEffect: sim.Interval{Point: 2, Lower: 1, Upper: 3},
		CumEffect: sim.Interval{Point: 2 * horizon, Lower: horizon, Upper: 3 * horizon},
		RelEffect: sim.Interval{Point: 0.1, Lower: 0.05, Upper: 0.15},
	}, nil
}
