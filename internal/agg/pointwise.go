package agg

import (
	"fmt"
	"math"
	"sort"

	"impactsim/domain/sim"

	"github.com/montanaflynn/stats"
)

// PointError is the mean absolute percentage error of the estimated
// pointwise effect at one post-intervention step, across the trials of
// a group, with a 95% normal-approximation interval on the mean.
type PointError struct {
	T     int     `json:"t"`
	N     int     `json:"n"`
	MAPE  float64 `json:"mape"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PointwiseError computes the per-step error curve for a homogeneous
// group of trials (same effect size and duration; callers group first).
// Trials cached without their per-timestep series are skipped. The
// constructed true effect at each step is response/(1+e)*e, so a group
// with a zero effect size has no defined percentage error.
func PointwiseError(group []*sim.EffectEstimate) ([]PointError, error) {
	perStep := make(map[int][]float64)

	for _, est := range group {
		e := est.Params.EffectSize
		if e == 0 {
			return nil, fmt.Errorf("pointwise error undefined for zero effect size (trial %s)", est.Params.Key())
		}
		for _, pt := range est.Series {
			truth := pt.Response / (1 + e) * e
			if truth == 0 {
				continue
			}
			ape := math.Abs((pt.Effect-truth)/truth) * 100
			perStep[pt.T] = append(perStep[pt.T], ape)
		}
	}

	if len(perStep) == 0 {
		return nil, fmt.Errorf("no per-timestep series available in group of %d trials", len(group))
	}

	out := make([]PointError, 0, len(perStep))
	for t, apes := range perStep {
		mean, err := stats.Mean(apes)
		if err != nil {
			return nil, fmt.Errorf("mean at t=%d: %w", t, err)
		}
		pe := PointError{T: t, N: len(apes), MAPE: mean, Lower: mean, Upper: mean}
		if len(apes) > 1 {
			sd, err := stats.StandardDeviationSample(apes)
			if err != nil {
				return nil, fmt.Errorf("stddev at t=%d: %w", t, err)
			}
			se := sd / math.Sqrt(float64(len(apes)))
			pe.Lower = mean - waldZ*se
			pe.Upper = mean + waldZ*se
		}
		out = append(out, pe)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].T < out[j].T })
	return out, nil
}
