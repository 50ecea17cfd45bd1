// Package agg turns a set of per-trial effect estimates into the
// study's summary statistics: rejection rates, coverage probabilities,
// and pointwise error curves. Every statistic here is a deterministic
// pure function of the input result set; aggregates are recomputed from
// the cache on demand and never persisted on their own.
package agg

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"impactsim/domain/sim"

	"gonum.org/v1/gonum/stat/distuv"
)

// Field names one parameter dimension results can be grouped by.
type Field string

const (
	FieldEffectSize   Field = "effect_size"
	FieldCampaignDays Field = "campaign_days"
	FieldStructuralSD Field = "structural_sd"
)

// GroupKey is the stable encoding of one group's field values.
type GroupKey string

// DecisionRule classifies one trial as a success or failure for a
// proportion statistic.
type DecisionRule func(est *sim.EffectEstimate) bool

// RejectRule counts a trial as a success when it rejects the null of no
// effect (average-effect 95% lower bound above zero).
func RejectRule(est *sim.EffectEstimate) bool {
	return est.Rejects()
}

// CoverageRule counts a trial as a success when the relative-effect
// interval covers the trial's own true effect size.
func CoverageRule(est *sim.EffectEstimate) bool {
	return est.Covers(est.Params.EffectSize)
}

// AggregateStatistic holds one group's success counts plus interval
// estimates of the underlying proportion under both inference regimes.
type AggregateStatistic struct {
	Key       GroupKey `json:"key"`
	N         int      `json:"n"`
	Successes int      `json:"successes"`

	// Bayes is the Beta-Binomial posterior under a uniform Beta(1,1)
	// prior: point = posterior mean, bounds = 2.5/97.5% Beta quantiles.
	Bayes sim.Interval `json:"bayes"`

	// Freq is the maximum-likelihood proportion with its Wald interval.
	Freq sim.Interval `json:"freq"`
}

const waldZ = 1.96

// Aggregate groups the results by the requested parameter fields and
// computes the proportion statistic for the given decision rule.
func Aggregate(results []*sim.EffectEstimate, groupBy []Field, rule DecisionRule) map[GroupKey]*AggregateStatistic {
	out := make(map[GroupKey]*AggregateStatistic)
	for key, group := range GroupBy(results, groupBy) {
		n := len(group)
		k := 0
		for _, est := range group {
			if rule(est) {
				k++
			}
		}
		out[key] = Proportion(key, k, n)
	}
	return out
}

// Proportion builds the Bayesian and frequentist interval estimates for
// k successes out of n trials.
func Proportion(key GroupKey, successes, n int) *AggregateStatistic {
	st := &AggregateStatistic{Key: key, N: n, Successes: successes}
	if n == 0 {
		return st
	}

	alpha := 1 + float64(successes)
	beta := 1 + float64(n-successes)
	posterior := distuv.Beta{Alpha: alpha, Beta: beta}
	st.Bayes = sim.Interval{
		Point: alpha / (alpha + beta),
		Lower: posterior.Quantile(0.025),
		Upper: posterior.Quantile(0.975),
	}

	p := float64(successes) / float64(n)
	se := math.Sqrt(p * (1 - p) / float64(n))
	st.Freq = sim.Interval{
		Point: p,
		Lower: p - waldZ*se,
		Upper: p + waldZ*se,
	}
	return st
}

// GroupBy partitions results by the values of the chosen fields. An
// empty field list collapses everything into a single group.
func GroupBy(results []*sim.EffectEstimate, fields []Field) map[GroupKey][]*sim.EffectEstimate {
	groups := make(map[GroupKey][]*sim.EffectEstimate)
	for _, est := range results {
		key := keyFor(est.Params, fields)
		groups[key] = append(groups[key], est)
	}
	return groups
}

func keyFor(p sim.SimulationParameters, fields []Field) GroupKey {
	if len(fields) == 0 {
		return GroupKey("all")
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case FieldEffectSize:
			parts = append(parts, fmt.Sprintf("e=%g", p.EffectSize))
		case FieldCampaignDays:
			parts = append(parts, fmt.Sprintf("d=%d", p.CampaignDays))
		case FieldStructuralSD:
			parts = append(parts, fmt.Sprintf("c=%g", p.StructuralSD))
		}
	}
	return GroupKey(strings.Join(parts, "|"))
}

// SortedKeys returns the group keys in deterministic order, for stable
// report output.
func SortedKeys[V any](m map[GroupKey]V) []GroupKey {
	keys := make([]GroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
