package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

func table(periods int, target []float64) contracts.ModelingTable {
	t := contracts.ModelingTable{Target: target}
	for i := 0; i < periods; i++ {
		t.Periods = append(t.Periods, contracts.Period{Year: 2010 + i/4, Quarter: i%4 + 1})
		t.OutputLevel = append(t.OutputLevel, 100)
		t.PriceIndexCycle = append(t.PriceIndexCycle, 0.1)
		t.UnemploymentDiff = append(t.UnemploymentDiff, 0.2)
		t.InflationDiff = append(t.InflationDiff, 0.3)
	}
	return t
}

func TestQualityGate_Check(t *testing.T) {
	gate := NewQualityGate(DefaultConfig())
	date := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	tables := map[int]contracts.ModelingTable{}
	for _, seg := range contracts.AllSegments() {
		tables[seg] = table(4, []float64{0.1, 0.2, 0.3, 0.4})
	}
	bad := tables[3]
	bad.Target = []float64{0.1, math.NaN(), 0.3, 0.4}
	tables[3] = bad

	snapshot := gate.Check(date, tables, 0)

	assert.Equal(t, date, snapshot.Date)
	assert.Equal(t, 20, snapshot.TotalRows)
	assert.Equal(t, 19, snapshot.ValidRows)
	assert.InDelta(t, 0.95, snapshot.Coverage["indicator"], 1e-12)
	assert.InDelta(t, 1.0, snapshot.Coverage["macro"], 1e-12)
	assert.InDelta(t, 1.0, snapshot.Coverage["segments"], 1e-12)
	assert.True(t, snapshot.Passed)
	assert.True(t, snapshot.IsValid())
}

func TestQualityGate_MissingSegments(t *testing.T) {
	gate := NewQualityGate(DefaultConfig())

	tables := map[int]contracts.ModelingTable{1: table(4, []float64{1, 2, 3, 4})}
	snapshot := gate.Check(time.Now(), tables, 6)

	assert.Equal(t, 10, snapshot.TotalRows)
	assert.InDelta(t, 0.4, snapshot.Coverage["indicator"], 1e-12)
	assert.InDelta(t, 0.2, snapshot.Coverage["segments"], 1e-12)
	assert.False(t, snapshot.Passed)
}

func TestQualityGate_calculateScore(t *testing.T) {
	gate := &QualityGate{
		config: Config{},
	}

	tests := []struct {
		name     string
		coverage map[string]float64
		wantMin  float64
		wantMax  float64
	}{
		{
			name: "perfect coverage",
			coverage: map[string]float64{
				"indicator": 1.0,
				"macro":     1.0,
				"segments":  1.0,
			},
			wantMin: 0.99,
			wantMax: 1.01,
		},
		{
			name: "good coverage",
			coverage: map[string]float64{
				"indicator": 0.95,
				"macro":     0.90,
				"segments":  0.80,
			},
			wantMin: 0.85,
			wantMax: 0.95,
		},
		{
			name: "poor coverage",
			coverage: map[string]float64{
				"indicator": 0.50,
				"macro":     0.50,
				"segments":  0.40,
			},
			wantMin: 0.45,
			wantMax: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := gate.calculateScore(tt.coverage)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
			t.Logf("Score: %.4f", score)
		})
	}
}
