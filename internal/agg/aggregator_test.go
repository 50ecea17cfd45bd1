package agg

import (
	"testing"

	"impactsim/domain/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimate(t *testing.T, e float64, d int, id int, avg, rel sim.Interval) *sim.EffectEstimate {
	t.Helper()
	params, err := sim.NewParameters(e, d, sim.BaselineCoeffSD, id)
	require.NoError(t, err)
	return &sim.EffectEstimate{Params: params, AvgEffect: avg, RelEffect: rel}
}

func TestProportion_ClosedForm(t *testing.T) {
	// count=5, n=10: frequentist p=0.5, Wald interval 0.5 +/- 1.96*sqrt(0.025);
	// Bayesian posterior mean 6/12 = 0.5 under the uniform prior.
	st := Proportion("all", 5, 10)

	assert.Equal(t, 10, st.N)
	assert.Equal(t, 5, st.Successes)

	assert.InDelta(t, 0.5, st.Freq.Point, 1e-12)
	assert.InDelta(t, 0.1901, st.Freq.Lower, 1e-3)
	assert.InDelta(t, 0.8099, st.Freq.Upper, 1e-3)

	assert.InDelta(t, 0.5, st.Bayes.Point, 1e-12)
	assert.Less(t, st.Bayes.Lower, 0.5)
	assert.Greater(t, st.Bayes.Upper, 0.5)
	assert.Greater(t, st.Bayes.Lower, 0.0)
	assert.Less(t, st.Bayes.Upper, 1.0)
	// The Beta(6,6) credible interval is narrower than [0,1] but wide
	// enough to be honest for n=10.
	assert.Greater(t, st.Bayes.Upper-st.Bayes.Lower, 0.3)
}

func TestProportion_Extremes(t *testing.T) {
	all := Proportion("all", 10, 10)
	assert.Equal(t, 1.0, all.Freq.Point)
	// Wald collapses at the boundary; the Bayesian interval does not.
	assert.Equal(t, 1.0, all.Freq.Lower)
	assert.Less(t, all.Bayes.Lower, 1.0)
	assert.Less(t, all.Bayes.Point, 1.0)

	none := Proportion("all", 0, 10)
	assert.Equal(t, 0.0, none.Freq.Point)
	assert.Greater(t, none.Bayes.Upper, 0.0)

	empty := Proportion("all", 0, 0)
	assert.Equal(t, 0, empty.N)
	assert.Equal(t, sim.Interval{}, empty.Bayes)
}

func TestAggregate_RejectionRate(t *testing.T) {
	rejecting := sim.Interval{Point: 2, Lower: 1, Upper: 3}
	notRejecting := sim.Interval{Point: 0.5, Lower: -0.5, Upper: 1.5}

	results := []*sim.EffectEstimate{
		estimate(t, 0.1, 180, 1, rejecting, sim.Interval{}),
		estimate(t, 0.1, 180, 2, rejecting, sim.Interval{}),
		estimate(t, 0.1, 180, 3, notRejecting, sim.Interval{}),
		estimate(t, 0.1, 30, 1, rejecting, sim.Interval{}),
	}

	byDuration := Aggregate(results, []Field{FieldCampaignDays}, RejectRule)
	require.Len(t, byDuration, 2)

	long := byDuration[GroupKey("d=180")]
	require.NotNil(t, long)
	assert.Equal(t, 3, long.N)
	assert.Equal(t, 2, long.Successes)
	assert.InDelta(t, 2.0/3.0, long.Freq.Point, 1e-12)

	short := byDuration[GroupKey("d=30")]
	require.NotNil(t, short)
	assert.Equal(t, 1, short.N)
	assert.Equal(t, 1, short.Successes)
}

func TestAggregate_CoverageScenario(t *testing.T) {
	// e=0.1 with every interval [0.05, 0.15]: coverage must be exactly 1.
	covering := sim.Interval{Point: 0.1, Lower: 0.05, Upper: 0.15}

	var results []*sim.EffectEstimate
	for id := 1; id <= 20; id++ {
		results = append(results, estimate(t, 0.1, 180, id, sim.Interval{}, covering))
	}

	byEffect := Aggregate(results, []Field{FieldEffectSize}, CoverageRule)
	st := byEffect[GroupKey("e=0.1")]
	require.NotNil(t, st)
	assert.Equal(t, 20, st.N)
	assert.Equal(t, 20, st.Successes)
	assert.Equal(t, 1.0, st.Freq.Point)
	assert.InDelta(t, 21.0/22.0, st.Bayes.Point, 1e-12)
}

func TestGroupBy_KeyComposition(t *testing.T) {
	results := []*sim.EffectEstimate{
		estimate(t, 0.05, 90, 1, sim.Interval{}, sim.Interval{}),
		estimate(t, 0.05, 90, 2, sim.Interval{}, sim.Interval{}),
		estimate(t, 0.25, 90, 1, sim.Interval{}, sim.Interval{}),
	}

	groups := GroupBy(results, []Field{FieldEffectSize, FieldCampaignDays})
	require.Len(t, groups, 2)
	assert.Len(t, groups[GroupKey("e=0.05|d=90")], 2)
	assert.Len(t, groups[GroupKey("e=0.25|d=90")], 1)

	all := GroupBy(results, nil)
	assert.Len(t, all[GroupKey("all")], 3)
}

func TestPointwiseError(t *testing.T) {
	// Response 2.2 at e=0.1 gives a constructed truth of exactly 0.2.
	mk := func(id int, effect float64) *sim.EffectEstimate {
		est := estimate(t, 0.1, 180, id, sim.Interval{}, sim.Interval{})
		est.Series = []sim.EffectPoint{{T: 366, Response: 2.2, Effect: effect}}
		return est
	}

	pts, err := PointwiseError([]*sim.EffectEstimate{mk(1, 0.25), mk(2, 0.22)})
	require.NoError(t, err)
	require.Len(t, pts, 1)

	// APEs are 25% and 10%: mean 17.5, sample sd sqrt(112.5).
	assert.Equal(t, 366, pts[0].T)
	assert.Equal(t, 2, pts[0].N)
	assert.InDelta(t, 17.5, pts[0].MAPE, 1e-9)
	assert.InDelta(t, 17.5-1.96*7.5, pts[0].Lower, 1e-9)
	assert.InDelta(t, 17.5+1.96*7.5, pts[0].Upper, 1e-9)
}

func TestPointwiseError_ZeroEffectRejected(t *testing.T) {
	est := estimate(t, 0, 180, 1, sim.Interval{}, sim.Interval{})
	est.Series = []sim.EffectPoint{{T: 366, Response: 2.0, Effect: 0.1}}

	_, err := PointwiseError([]*sim.EffectEstimate{est})
	assert.Error(t, err)
}

func TestPointwiseError_NoSeries(t *testing.T) {
	est := estimate(t, 0.1, 180, 1, sim.Interval{}, sim.Interval{})
	_, err := PointwiseError([]*sim.EffectEstimate{est})
	assert.Error(t, err)
}
