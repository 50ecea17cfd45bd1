package sim

// TimeStep holds every component of the data-generating process at one
// time index, so tests and downstream truth reconstruction can separate
// signal, noise, and the multiplicative shock.
type TimeStep struct {
	T          int     `json:"t"`
	Predictor1 float64 `json:"predictor1"`
	Predictor2 float64 `json:"predictor2"`
	Beta1      float64 `json:"beta1"`
	Beta2      float64 `json:"beta2"`
	Level      float64 `json:"level"`
	Noise      float64 `json:"noise"`
	Signal     float64 `json:"signal"`
	Observed   float64 `json:"observed"`
}

// SyntheticSeries is one simulated trial's data, ordered by time step
// t = 1..PrePeriod+CampaignDays.
type SyntheticSeries struct {
	Params SimulationParameters `json:"params"`
	Steps  []TimeStep           `json:"steps"`
}

// Len returns the number of time steps.
func (s *SyntheticSeries) Len() int {
	return len(s.Steps)
}

// Observed returns the observed outcome values in time order.
func (s *SyntheticSeries) Observed() []float64 {
	out := make([]float64, len(s.Steps))
	for i, step := range s.Steps {
		out[i] = step.Observed
	}
	return out
}

// Predictors returns the two predictor columns aligned with Observed.
func (s *SyntheticSeries) Predictors() ([]float64, []float64) {
	p1 := make([]float64, len(s.Steps))
	p2 := make([]float64, len(s.Steps))
	for i, step := range s.Steps {
		p1[i] = step.Predictor1
		p2[i] = step.Predictor2
	}
	return p1, p2
}

// Split partitions the series into pre-period [1,PrePeriod] and
// post-period [PrePeriod+1, PrePeriod+CampaignDays] slices of steps.
func (s *SyntheticSeries) Split() (pre, post []TimeStep) {
	cut := s.Params.PrePeriod
	if cut > len(s.Steps) {
		cut = len(s.Steps)
	}
	return s.Steps[:cut], s.Steps[cut:]
}
