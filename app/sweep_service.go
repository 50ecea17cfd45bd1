package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"impactsim/domain/core"
	"impactsim/domain/sim"
	"impactsim/domain/sweep"
	"impactsim/internal"
	"impactsim/internal/synth"
	"impactsim/ports"

	"golang.org/x/sync/semaphore"
)

// SweepService orchestrates the Cartesian sweep: it enumerates the
// grid, generates each missing trial's series, drives the estimator,
// and persists results keyed by the parameter tuple so repeated runs
// skip already-computed cases.
type SweepService struct {
	estimator ports.EstimatorPort
	cache     ports.TrialCache
	log       *internal.Logger
}

// SweepOptions tune one sweep execution.
type SweepOptions struct {
	Estimator ports.EstimatorConfig

	// Concurrency bounds the number of in-flight estimator calls. Each
	// call is CPU-bound and blocking, so this should not exceed the
	// available compute units. Zero means sequential.
	Concurrency int

	// ProgressEvery reports progress after every N completed trials.
	// Advisory only; zero disables reporting.
	ProgressEvery int
}

// TrialFailure records one isolated per-trial estimation failure.
type TrialFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// RunSummary is the end-of-run accounting: every requested trial is
// either a cache hit, a success, or a failure.
type RunSummary struct {
	RunID     core.RunID     `json:"run_id"`
	Requested int            `json:"requested"`
	CacheHits int            `json:"cache_hits"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []TrialFailure `json:"failures,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// NewSweepService creates a sweep service.
func NewSweepService(estimator ports.EstimatorPort, cache ports.TrialCache) *SweepService {
	return &SweepService{
		estimator: estimator,
		cache:     cache,
		log:       internal.DefaultLogger.Named("sweep"),
	}
}

// RunSweep executes the grid. Only a malformed grid is fatal: each
// trial's estimation failure is recorded in the summary and excluded
// from the returned results, and already-cached entries are returned
// without regenerating or re-estimating anything.
func (s *SweepService) RunSweep(ctx context.Context, grid sweep.Grid, opts SweepOptions) (map[string]*sim.EffectEstimate, *RunSummary, error) {
	trials, err := grid.Enumerate()
	if err != nil {
		return nil, nil, err
	}

	summary := &RunSummary{RunID: core.NewRunID(), Requested: len(trials)}
	start := time.Now()
	s.log.Info("run %s: sweeping %d trials", summary.RunID, len(trials))

	workers := int64(opts.Concurrency)
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(workers)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed atomic.Int64
	)
	results := make(map[string]*sim.EffectEstimate, len(trials))

	for _, params := range trials {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: stop launching trials. Everything stored
			// so far stays valid, so the run is safely resumable.
			s.log.Warn("run %s interrupted: %v", summary.RunID, err)
			break
		}

		wg.Add(1)
		go func(params sim.SimulationParameters) {
			defer wg.Done()
			defer sem.Release(1)

			est, hit, failure := s.runTrial(ctx, params, opts.Estimator)

			mu.Lock()
			switch {
			case failure != nil:
				summary.Failed++
				summary.Failures = append(summary.Failures, *failure)
			case hit:
				summary.CacheHits++
				results[params.Key()] = est
			default:
				summary.Succeeded++
				results[params.Key()] = est
			}
			mu.Unlock()

			s.reportProgress(int(completed.Add(1)), len(trials), start, opts.ProgressEvery)
		}(params)
	}

	wg.Wait()
	summary.Duration = time.Since(start)
	s.log.Info("run %s finished: %d requested, %d cached, %d succeeded, %d failed in %s",
		summary.RunID, summary.Requested, summary.CacheHits, summary.Succeeded, summary.Failed, summary.Duration)
	return results, summary, nil
}

// runTrial resolves one parameter tuple: cache hit, fresh estimate, or
// isolated failure.
func (s *SweepService) runTrial(ctx context.Context, params sim.SimulationParameters, cfg ports.EstimatorConfig) (est *sim.EffectEstimate, hit bool, failure *TrialFailure) {
	cached, found, err := s.cache.Get(ctx, params)
	switch {
	case err != nil && core.IsTrialError(err):
		// Corrupt entry: overwrite it with a fresh estimate below.
		s.log.Warn("recomputing: %v", err)
	case err != nil:
		s.log.Warn("cache lookup failed for %s, recomputing: %v", params.Key(), err)
	}
	if found {
		return cached, true, nil
	}

	series, err := synth.Generate(params)
	if err != nil {
		return nil, false, &TrialFailure{Key: params.Key(), Reason: err.Error()}
	}

	p1, p2 := series.Predictors()
	cfg.Seed = core.DeriveSeed(params.Key(), "estimator")
	req := ports.EstimateRequest{
		Response:   series.Observed(),
		Predictor1: p1,
		Predictor2: p2,
		PreEnd:     params.PrePeriod,
		PostEnd:    params.TotalDays(),
		Config:     cfg,
	}

	est, err = s.estimator.Estimate(ctx, req)
	if err != nil {
		wrapped := core.NewEstimationError(params.Key(), err)
		s.log.Warn("%v", wrapped)
		return nil, false, &TrialFailure{Key: params.Key(), Reason: wrapped.Error()}
	}
	est.Params = params

	if err := s.cache.Put(ctx, est); err != nil {
		// The estimate itself is valid; losing the write only costs a
		// recompute on the next run.
		s.log.Warn("failed to persist trial %s: %v", params.Key(), err)
	}
	return est, false, nil
}

func (s *SweepService) reportProgress(done, total int, start time.Time, every int) {
	if every <= 0 || done%every != 0 || done == 0 {
		return
	}
	elapsed := time.Since(start)
	remaining := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
	s.log.Info("progress: %d/%d trials, ~%s remaining", done, total, remaining.Round(time.Second))
}
