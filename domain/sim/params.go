package sim

import (
	"fmt"

	"impactsim/domain/core"
)

// Baseline evolution scales of the data-generating process. The
// structural-change scenario is active exactly when a trial's
// StructuralSD differs from BaselineCoeffSD.
const (
	PrePeriodDays   = 365
	StructuralBreak = PrePeriodDays + 90

	BaselineCoeffSD = 0.01
	LevelSD         = 0.1
	NoiseSD         = 0.1
	InitialLevel    = 20.0
	InitialCoeff    = 1.0

	PredictorPeriodShort = 90
	PredictorPeriodLong  = 360
)

// SimulationParameters uniquely identifies one simulated trial.
// Immutable once constructed.
type SimulationParameters struct {
	EffectSize   float64 `json:"effect_size"`
	CampaignDays int     `json:"campaign_days"`
	StructuralSD float64 `json:"structural_sd"`
	PrePeriod    int     `json:"pre_period"`
	SimulationID int     `json:"simulation_id"`
}

// NewParameters constructs a validated parameter tuple with the fixed
// 365-day pre-period.
func NewParameters(effectSize float64, campaignDays int, structuralSD float64, simulationID int) (SimulationParameters, error) {
	p := SimulationParameters{
		EffectSize:   effectSize,
		CampaignDays: campaignDays,
		StructuralSD: structuralSD,
		PrePeriod:    PrePeriodDays,
		SimulationID: simulationID,
	}
	if err := p.Validate(); err != nil {
		return SimulationParameters{}, err
	}
	return p, nil
}

// Validate rejects malformed tuples before any simulation work begins.
func (p SimulationParameters) Validate() error {
	if p.EffectSize < 0 {
		return core.NewParameterError("effect_size", "must be non-negative")
	}
	if p.CampaignDays <= 0 {
		return core.NewParameterError("campaign_days", "must be positive")
	}
	if p.StructuralSD <= 0 {
		return core.NewParameterError("structural_sd", "must be positive")
	}
	if p.PrePeriod != PrePeriodDays {
		return core.NewParameterError("pre_period", fmt.Sprintf("must equal %d", PrePeriodDays))
	}
	if p.SimulationID <= 0 {
		return core.NewParameterError("simulation_id", "must be positive")
	}
	return nil
}

// StructuralChange reports whether the coefficient walks switch to the
// trial's StructuralSD after the structural break point.
func (p SimulationParameters) StructuralChange() bool {
	return p.StructuralSD != BaselineCoeffSD
}

// TotalDays is the full length of the simulated series.
func (p SimulationParameters) TotalDays() int {
	return p.PrePeriod + p.CampaignDays
}

// Key encodes the tuple as a stable cache key. The same encoding feeds
// seed derivation, so identical tuples always replay identical series.
func (p SimulationParameters) Key() string {
	return fmt.Sprintf("e=%g|d=%d|c=%g|pre=%d|sim=%d",
		p.EffectSize, p.CampaignDays, p.StructuralSD, p.PrePeriod, p.SimulationID)
}

// Seed derives the deterministic generator seed for this trial.
func (p SimulationParameters) Seed() int64 {
	return core.DeriveSeed(p.Key(), "generator")
}
