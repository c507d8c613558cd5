package s1_stationarity

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
)

func noise(seed uint64, n int) []float64 {
	r := rand.New(rand.NewPCG(seed, 7))
	x := make([]float64, n)
	for i := range x {
		x[i] = r.NormFloat64()
	}
	return x
}

// explosive 폭발적 AR(1): 단위근 기각 불가
func explosive(n int) []float64 {
	x := make([]float64, n)
	x[0] = 1
	r := rand.New(rand.NewPCG(99, 1))
	for i := 1; i < n; i++ {
		x[i] = 1.05*x[i-1] + 0.1*r.NormFloat64()
	}
	return x
}

func periods(n int) []contracts.Period {
	out := make([]contracts.Period, n)
	p := contracts.MustParsePeriod("2009T1")
	for i := range out {
		out[i] = p
		p = p.Next()
	}
	return out
}

func TestAnalyzer_Test(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), zerolog.Nop())

	r := a.Test(KindMacro, "noise", noise(1, 120))
	assert.Equal(t, StatusStationary, r.Status)
	assert.Less(t, r.PValue, 0.05)

	r = a.Test(KindMacro, "explosive", explosive(60))
	assert.Equal(t, StatusNonStationary, r.Status)

	r = a.Test(KindMacro, "flat", []float64{1, 1, 1, 1, 1, 1, 1, 1})
	assert.Equal(t, StatusIndeterminate, r.Status)
	assert.NotEmpty(t, r.Reason)
	assert.True(t, math.IsNaN(r.PValue))
}

func TestAnalyzer_TestAllSortedAndDropsNaN(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), zerolog.Nop())

	x := noise(2, 80)
	x[0] = math.NaN()
	results := a.TestAll(KindMacro, map[string][]float64{
		"TCH_diff1": x,
		"IPL":       noise(3, 80),
		"short":     {1, 2},
	})
	require.Len(t, results, 3)
	assert.Equal(t, "IPL", results[0].Series)
	assert.Equal(t, "TCH_diff1", results[1].Series)
	assert.Equal(t, StatusStationary, results[1].Status, "leading NaN is dropped before testing")
	assert.Equal(t, StatusIndeterminate, results[2].Status)
}

func TestAnalyzer_Candidates(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), zerolog.Nop())

	t.Run("mixed sign series", func(t *testing.T) {
		results := a.Candidates("IPL_diff1", noise(4, 60), 1600)
		require.Len(t, results, 5)

		got := map[string]Status{}
		for _, r := range results {
			assert.Equal(t, KindCandidate, r.Kind)
			got[r.Transform] = r.Status
		}
		assert.NotEqual(t, StatusIndeterminate, got[TransformRaw])
		assert.NotEqual(t, StatusIndeterminate, got[TransformDiff2])
		assert.NotEqual(t, StatusIndeterminate, got[TransformHPCycle])
		assert.Equal(t, StatusIndeterminate, got[TransformLogDiff], "log-difference needs strictly positive data")
		assert.Equal(t, StatusIndeterminate, got[TransformBoxCoxDiff])
	})

	t.Run("positive series", func(t *testing.T) {
		x := noise(5, 60)
		for i := range x {
			x[i] = 10 + x[i]
		}
		results := a.Candidates("IPL", x, 1600)
		require.Len(t, results, 5)
		for _, r := range results {
			assert.NotEqual(t, StatusIndeterminate, r.Status, r.Transform)
		}
	})
}

func TestCycleDecomposer_AlignsToValidIndex(t *testing.T) {
	d := NewCycleDecomposer(0)
	assert.Equal(t, 1600.0, d.Lambda())

	x := []float64{math.NaN(), 1, 3, 2, 5, 4, math.NaN(), 6}
	comp, err := d.Decompose("IPL_diff1", 0, x)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 7}, comp.Index)
	require.Len(t, comp.Cycle, 6)
	for k, i := range comp.Index {
		assert.InDelta(t, x[i], comp.Trend[k]+comp.Cycle[k], 1e-9)
	}

	full := comp.Scatter(len(x))
	assert.True(t, math.IsNaN(full[0]))
	assert.True(t, math.IsNaN(full[6]))
	assert.Equal(t, comp.Cycle[5], full[7])

	_, err = d.Decompose("short", 0, []float64{math.NaN(), 1})
	assert.ErrorIs(t, err, contracts.ErrIndeterminate)
}

func TestDecider_Decide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceCycleSegments = []int{4}
	a := NewAnalyzer(cfg, zerolog.Nop())
	d := NewDecider(cfg, a, NewCycleDecomposer(cfg.HPLambda), zerolog.Nop())

	n := 100
	rw := explosive(n)
	rw[10] = math.NaN()

	series := map[int]s0_data.SegmentSeries{
		1: {Segment: 1, Periods: periods(n), Values: noise(11, n)},
		2: {Segment: 2, Periods: periods(n), Values: rw},
		3: {Segment: 3, Periods: periods(3), Values: []float64{1, 2, 3}},
		4: {Segment: 4, Periods: periods(n), Values: noise(12, n)},
		5: {Segment: 5},
	}

	out, decisions := d.Decide(series)
	require.Len(t, decisions, 5)
	for i, dec := range decisions {
		assert.Equal(t, i+1, dec.Segment, "decisions are ordered by segment id")
	}

	assert.False(t, decisions[0].Substituted)
	assert.Equal(t, series[1].Values, out[1].Values)

	assert.True(t, decisions[1].Substituted)
	require.NotNil(t, decisions[1].Cycle)
	assert.Equal(t, KindSegmentCycle, decisions[1].Cycle.Kind)
	assert.True(t, math.IsNaN(out[2].Values[10]), "missing rows stay missing after substitution")
	assert.NotEqual(t, rw[0], out[2].Values[0])

	assert.Equal(t, StatusIndeterminate, decisions[2].Raw.Status)
	assert.False(t, decisions[2].Substituted)

	assert.True(t, decisions[3].Forced)
	assert.True(t, decisions[3].Substituted)

	assert.Equal(t, StatusIndeterminate, decisions[4].Raw.Status)

	results := Results(decisions)
	assert.Len(t, results, 7)
}

func TestLevelSeries_KeepsFirstQuarter(t *testing.T) {
	p := contracts.MustParsePeriod("2009T1")
	rows := make([]contracts.MacroRecord, 3)
	for i := range rows {
		rows[i] = contracts.MacroRecord{Period: p, OutputLevel: float64(100 + i), PriceIndex: 50, Unemployment: 9, Inflation: 1.5}
		p = p.Next()
	}
	rows[1].Inflation = math.NaN()

	cols := LevelSeries(rows)
	require.Len(t, cols, 4)
	assert.Equal(t, []float64{100, 101, 102}, cols["PIB"])
	assert.Len(t, cols["IPL"], 3)
	assert.Len(t, dropMissing(cols["Inflation"]), 2, "missing values are dropped per column")
	assert.Len(t, dropMissing(cols["TCH"]), 3)
}
