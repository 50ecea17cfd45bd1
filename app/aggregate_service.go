package app

import (
	"context"

	"impactsim/domain/core"
	"impactsim/domain/sim"
	"impactsim/internal"
	"impactsim/internal/agg"
	"impactsim/ports"
)

// AggregateService recomputes summary statistics from the trial cache.
// Aggregates are derived, never persisted: whatever is decodable in the
// cache at call time is the population.
type AggregateService struct {
	cache ports.TrialCache
	log   *internal.Logger
}

// NewAggregateService creates an aggregate service over a cache.
func NewAggregateService(cache ports.TrialCache) *AggregateService {
	return &AggregateService{cache: cache, log: internal.DefaultLogger.Named("aggregate")}
}

// RejectionRates computes per-group null-rejection rates under both
// inference regimes.
func (s *AggregateService) RejectionRates(ctx context.Context, groupBy []agg.Field) (map[agg.GroupKey]*agg.AggregateStatistic, error) {
	results, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Aggregate(results, groupBy, agg.RejectRule), nil
}

// Coverage computes per-group coverage of the true effect size by the
// relative-effect interval.
func (s *AggregateService) Coverage(ctx context.Context, groupBy []agg.Field) (map[agg.GroupKey]*agg.AggregateStatistic, error) {
	results, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Aggregate(results, groupBy, agg.CoverageRule), nil
}

// PointwiseErrors computes the per-timestep error curve for each group.
// Null trials are excluded before grouping: with a zero effect size the
// percentage error is undefined, and they would otherwise poison every
// group that shares their structural setting. Groups whose trials were
// cached without their per-timestep series are skipped with a warning
// rather than failing the whole report.
func (s *AggregateService) PointwiseErrors(ctx context.Context, groupBy []agg.Field) (map[agg.GroupKey][]agg.PointError, error) {
	results, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	nonNull := make([]*sim.EffectEstimate, 0, len(results))
	for _, est := range results {
		if est.Params.EffectSize != 0 {
			nonNull = append(nonNull, est)
		}
	}

	out := make(map[agg.GroupKey][]agg.PointError)
	for key, group := range agg.GroupBy(nonNull, groupBy) {
		curve, err := agg.PointwiseError(group)
		if err != nil {
			s.log.Warn("skipping pointwise errors for group %s: %v", key, err)
			continue
		}
		out[key] = curve
	}
	return out, nil
}

func (s *AggregateService) load(ctx context.Context) ([]*sim.EffectEstimate, error) {
	results, err := s.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, core.ErrTrialNotFound
	}
	s.log.Debug("loaded %d trials from cache", len(results))
	return results, nil
}
