// Package sweep builds the finite set of trials a simulation run
// evaluates. The grid is declared as a full Cartesian product composed
// with filters, so the sweep's filtering rules live in one place
// instead of ad hoc branches inside the runner.
package sweep

import (
	"sort"

	"impactsim/domain/core"
	"impactsim/domain/sim"
)

// Filter decides whether one combination belongs to the sweep.
type Filter func(p sim.SimulationParameters) bool

// Grid declares the swept parameter axes plus the filters that prune
// the Cartesian product down to the evaluated combinations.
type Grid struct {
	EffectSizes   []float64
	CampaignDays  []int
	StructuralSDs []float64
	Simulations   int
	Filters       []Filter
}

// Reference settings the default study holds fixed while varying one
// axis at a time.
const (
	ReferenceEffect   = 0.1
	ReferenceDuration = 180
)

// DefaultGrid reproduces the study's sweep: effect sizes explored at
// the reference duration, durations explored at the reference effect,
// and the structural-change scenario pinned to both references.
func DefaultGrid(simulations int) Grid {
	return Grid{
		EffectSizes:   []float64{0, 0.001, 0.01, 0.05, 0.1, 0.25},
		CampaignDays:  []int{7, 30, 90, 180},
		StructuralSDs: []float64{sim.BaselineCoeffSD, 0.1, 0.5},
		Simulations:   simulations,
		Filters: []Filter{
			OneAxisAtATime(ReferenceEffect, ReferenceDuration),
			StructuralAtReference(ReferenceEffect, ReferenceDuration),
		},
	}
}

// OneAxisAtATime keeps combinations that vary effect size or duration
// but not both, bounding total trial count: the effect axis is swept at
// the reference duration and the duration axis at the reference effect.
func OneAxisAtATime(refEffect float64, refDuration int) Filter {
	return func(p sim.SimulationParameters) bool {
		if p.StructuralChange() {
			return true // handled by the structural filter
		}
		return p.CampaignDays == refDuration || p.EffectSize == refEffect
	}
}

// StructuralAtReference restricts structural-change trials to the
// reference (effect, duration) cell.
func StructuralAtReference(refEffect float64, refDuration int) Filter {
	return func(p sim.SimulationParameters) bool {
		if !p.StructuralChange() {
			return true
		}
		return p.EffectSize == refEffect && p.CampaignDays == refDuration
	}
}

// Enumerate expands the grid into the deduplicated, deterministically
// ordered set of trial parameters. Every tuple is validated before the
// run starts; a malformed axis is fatal to the whole sweep.
func (g Grid) Enumerate() ([]sim.SimulationParameters, error) {
	if g.Simulations <= 0 {
		return nil, core.NewParameterError("simulations", "must be positive")
	}
	seen := make(map[string]bool)
	var out []sim.SimulationParameters

	for _, e := range g.EffectSizes {
		for _, d := range g.CampaignDays {
			for _, c := range g.StructuralSDs {
				for id := 1; id <= g.Simulations; id++ {
					p, err := sim.NewParameters(e, d, c, id)
					if err != nil {
						return nil, err
					}
					if !g.accepts(p) {
						continue
					}
					if seen[p.Key()] {
						continue
					}
					seen[p.Key()] = true
					out = append(out, p)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, core.ErrEmptyGrid
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (g Grid) accepts(p sim.SimulationParameters) bool {
	for _, f := range g.Filters {
		if !f(p) {
			return false
		}
	}
	return true
}
