package ports

import (
	"context"

	"impactsim/domain/sim"
)

// EstimatorConfig selects the dynamic-regression variant the backend
// fits. Iterations and Seed only matter to sampling backends; the
// local heuristic adapter is deterministic and ignores them.
type EstimatorConfig struct {
	PriorLevelSD  float64 `json:"prior_level_sd"`
	Iterations    int     `json:"iterations"`
	Seed          int64   `json:"seed"`
	IncludeSeries bool    `json:"include_series"`
}

// EstimateRequest carries one trial's observed series, its aligned
// predictor columns, and the pre/post period split (half-open indices
// into the series: pre = [0,PreEnd), post = [PreEnd,PostEnd)).
type EstimateRequest struct {
	Response   []float64
	Predictor1 []float64
	Predictor2 []float64
	PreEnd     int
	PostEnd    int
	Config     EstimatorConfig
}

// EstimatorPort is the external causal-effect estimator. Given an
// observed series and a period split it returns average and cumulative
// effect estimates with 95% bounds. The estimation method behind the
// port (state-space filtering, spike-and-slab sampling) is the
// collaborator's responsibility, not this module's.
//
// A call may be long-running and is treated as a blocking, CPU-bound
// operation; callers bound total concurrency rather than expecting the
// backend to parallelize internally.
type EstimatorPort interface {
	Estimate(ctx context.Context, req EstimateRequest) (*sim.EffectEstimate, error)
}
