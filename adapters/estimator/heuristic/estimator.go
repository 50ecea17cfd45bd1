// Package heuristic implements EstimatorPort with a local dynamic
// regression. It exists so the pipeline runs end-to-end without the
// external sampling-based collaborator: pre-period OLS on the predictor
// columns plus a level-drift term in the prediction variance that
// widens intervals with the forecast horizon. Deterministic; Iterations
// and Seed in the config are ignored here and only matter to sampling
// backends behind the same port.
package heuristic

import (
	"context"
	"math"

	"impactsim/domain/core"
	"impactsim/domain/sim"
	"impactsim/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const minPrePeriod = 30

// Estimator is the local dynamic-regression estimator.
type Estimator struct{}

// New creates a heuristic estimator.
func New() *Estimator {
	return &Estimator{}
}

var _ ports.EstimatorPort = (*Estimator)(nil)

// Estimate fits the pre-period and scores the post-period counterfactual.
func (e *Estimator) Estimate(ctx context.Context, req ports.EstimateRequest) (*sim.EffectEstimate, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coef, err := fitPrePeriod(req)
	if err != nil {
		return nil, err
	}

	residuals := make([]float64, req.PreEnd)
	for i := 0; i < req.PreEnd; i++ {
		residuals[i] = req.Response[i] - predict(coef, req.Predictor1[i], req.Predictor2[i])
	}
	obsSD, err := stats.StandardDeviationSample(residuals)
	if err != nil {
		return nil, core.NewEstimationError("", err)
	}

	levelSD := req.Config.PriorLevelSD
	if levelSD <= 0 {
		levelSD = estimateLevelSD(residuals)
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)

	horizon := req.PostEnd - req.PreEnd
	effects := make([]float64, 0, horizon)
	preds := make([]float64, 0, horizon)
	var series []sim.EffectPoint
	var cumEffect float64

	for i := req.PreEnd; i < req.PostEnd; i++ {
		h := float64(i - req.PreEnd + 1)
		pred := predict(coef, req.Predictor1[i], req.Predictor2[i])
		effect := req.Response[i] - pred
		effects = append(effects, effect)
		preds = append(preds, pred)
		cumEffect += effect

		if req.Config.IncludeSeries {
			pointSD := math.Sqrt(obsSD*obsSD + h*levelSD*levelSD)
			cumSD := cumulativeSD(obsSD, levelSD, h)
			series = append(series, sim.EffectPoint{
				T:          i + 1,
				Response:   req.Response[i],
				Predicted:  pred,
				PredLower:  pred - z*pointSD,
				PredUpper:  pred + z*pointSD,
				Effect:     effect,
				EffectLow:  effect - z*pointSD,
				EffectHigh: effect + z*pointSD,
				CumEffect:  cumEffect,
				CumLow:     cumEffect - z*cumSD,
				CumHigh:    cumEffect + z*cumSD,
			})
		}
	}

	avgEffect := cumEffect / float64(horizon)
	cumSD := cumulativeSD(obsSD, levelSD, float64(horizon))
	avgSD := cumSD / float64(horizon)

	meanPred, err := stats.Mean(preds)
	if err != nil {
		return nil, core.NewEstimationError("", err)
	}
	// A relative effect only makes sense against a strictly positive
	// counterfactual; dividing by a negative baseline would invert the
	// interval bounds.
	if meanPred < 1e-9 {
		return nil, core.NewEstimationError("", errDegenerateBaseline)
	}

	est := &sim.EffectEstimate{
		AvgEffect: sim.Interval{
			Point: avgEffect,
			Lower: avgEffect - z*avgSD,
			Upper: avgEffect + z*avgSD,
		},
		CumEffect: sim.Interval{
			Point: cumEffect,
			Lower: cumEffect - z*cumSD,
			Upper: cumEffect + z*cumSD,
		},
		RelEffect: sim.Interval{
			Point: avgEffect / meanPred,
			Lower: (avgEffect - z*avgSD) / meanPred,
			Upper: (avgEffect + z*avgSD) / meanPred,
		},
		Series: series,
	}
	return est, nil
}

type coefficients struct {
	intercept float64
	b1        float64
	b2        float64
}

func predict(c coefficients, p1, p2 float64) float64 {
	return c.intercept + c.b1*p1 + c.b2*p2
}

// fitPrePeriod solves the pre-period least squares problem via QR.
func fitPrePeriod(req ports.EstimateRequest) (coefficients, error) {
	n := req.PreEnd
	design := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		design.Set(i, 1, req.Predictor1[i])
		design.Set(i, 2, req.Predictor2[i])
		y.SetVec(i, req.Response[i])
	}

	var qr mat.QR
	qr.Factorize(design)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return coefficients{}, core.NewEstimationError("", err)
	}

	c := coefficients{
		intercept: beta.AtVec(0),
		b1:        beta.AtVec(1),
		b2:        beta.AtVec(2),
	}
	if math.IsNaN(c.intercept) || math.IsNaN(c.b1) || math.IsNaN(c.b2) {
		return coefficients{}, core.NewEstimationError("", errSingularFit)
	}
	return c, nil
}

// estimateLevelSD recovers the level-innovation scale from the first
// differences of the pre-period residuals. Differencing a random walk
// plus white noise gives variance q^2 + 2s^2; the s^2 part is ignored
// here, which errs on the wide side for the intervals.
func estimateLevelSD(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	diffs := make([]float64, len(residuals)-1)
	for i := 1; i < len(residuals); i++ {
		diffs[i-1] = residuals[i] - residuals[i-1]
	}
	sd, err := stats.StandardDeviationSample(diffs)
	if err != nil {
		return 0
	}
	return sd / math.Sqrt2
}

// cumulativeSD is the standard deviation of the cumulative effect over
// h steps when the counterfactual error is white observation noise plus
// a level random walk: Var = h*s^2 + q^2 * h(h+1)(2h+1)/6.
func cumulativeSD(obsSD, levelSD, h float64) float64 {
	walkVar := levelSD * levelSD * h * (h + 1) * (2*h + 1) / 6
	return math.Sqrt(h*obsSD*obsSD + walkVar)
}

func validate(req ports.EstimateRequest) error {
	if req.PreEnd < minPrePeriod {
		return core.ErrInvalidPeriods
	}
	if req.PostEnd <= req.PreEnd || req.PostEnd > len(req.Response) {
		return core.ErrInvalidPeriods
	}
	if len(req.Predictor1) != len(req.Response) || len(req.Predictor2) != len(req.Response) {
		return core.ErrInvalidPeriods
	}
	for i := 0; i < req.PostEnd; i++ {
		if math.IsNaN(req.Response[i]) || math.IsInf(req.Response[i], 0) {
			return core.NewEstimationError("", errNonFiniteInput)
		}
	}
	return nil
}
