package sim

// Interval is a point estimate with its 95% lower/upper bounds.
type Interval struct {
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v falls inside [Lower, Upper].
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lower && v <= iv.Upper
}

// EffectPoint is one post-intervention step of the estimator's
// per-timestep output.
type EffectPoint struct {
	T          int     `json:"t"`
	Response   float64 `json:"response"`
	Predicted  float64 `json:"predicted"`
	PredLower  float64 `json:"pred_lower"`
	PredUpper  float64 `json:"pred_upper"`
	Effect     float64 `json:"effect"`
	EffectLow  float64 `json:"effect_lower"`
	EffectHigh float64 `json:"effect_upper"`
	CumEffect  float64 `json:"cum_effect"`
	CumLow     float64 `json:"cum_lower"`
	CumHigh    float64 `json:"cum_upper"`
}

// EffectEstimate is the estimator's output for one completed trial.
// Read-only once produced; one-to-one with the trial's parameter tuple.
type EffectEstimate struct {
	Params SimulationParameters `json:"params"`

	AvgEffect Interval `json:"avg_effect"`
	CumEffect Interval `json:"cum_effect"`
	RelEffect Interval `json:"rel_effect"`

	// Series is the optional per-timestep prediction series; nil when the
	// compact summary-only cache format is in use.
	Series []EffectPoint `json:"series,omitempty"`
}

// Rejects reports whether the trial rejects the null of no effect:
// the lower bound of the average-effect 95% interval exceeds zero.
func (e *EffectEstimate) Rejects() bool {
	return e.AvgEffect.Lower > 0
}

// Covers reports whether the average-relative-effect interval contains
// the true effect size.
func (e *EffectEstimate) Covers(trueEffect float64) bool {
	return e.RelEffect.Contains(trueEffect)
}

// WithoutSeries returns a copy stripped of the per-timestep series, for
// the compact cache format.
func (e *EffectEstimate) WithoutSeries() *EffectEstimate {
	out := *e
	out.Series = nil
	return &out
}
