package contracts

import (
	"fmt"
	"math"
)

// ModelingTable FeatureEngine 입력 정규 테이블 (컬럼형, 기간 오름차순)
// 학습 경로와 시나리오 경로가 같은 스키마를 사용함. 시나리오는 Target 이 nil.
type ModelingTable struct {
	Periods          []Period
	OutputLevel      []float64 // PIB
	PriceIndexCycle  []float64 // IPL_diff1_hp
	UnemploymentDiff []float64 // TCH_diff1
	InflationDiff    []float64 // Inflation_diff1
	Target           []float64 // CCF 지표 (세그먼트 전용)
}

// Len returns the number of rows
func (t ModelingTable) Len() int {
	return len(t.Periods)
}

// HasTarget reports whether the table carries a target column
func (t ModelingTable) HasTarget() bool {
	return t.Target != nil
}

// Validate checks column lengths and strict period ordering
func (t ModelingTable) Validate() error {
	n := len(t.Periods)
	cols := map[string][]float64{
		"PIB":             t.OutputLevel,
		"IPL_diff1_hp":    t.PriceIndexCycle,
		"TCH_diff1":       t.UnemploymentDiff,
		"Inflation_diff1": t.InflationDiff,
	}
	for name, c := range cols {
		if len(c) != n {
			return fmt.Errorf("modeling table: column %s has %d rows, want %d", name, len(c), n)
		}
	}
	if t.Target != nil && len(t.Target) != n {
		return fmt.Errorf("modeling table: target has %d rows, want %d", len(t.Target), n)
	}
	for i := 1; i < n; i++ {
		if !t.Periods[i-1].Before(t.Periods[i]) {
			return fmt.Errorf("modeling table: periods not strictly increasing at %s", t.Periods[i])
		}
	}
	return nil
}

// TableFromSnapshots builds a target-less table from prepared macro snapshots
func TableFromSnapshots(snaps []MacroSnapshot) ModelingTable {
	t := ModelingTable{
		Periods:          make([]Period, len(snaps)),
		OutputLevel:      make([]float64, len(snaps)),
		PriceIndexCycle:  make([]float64, len(snaps)),
		UnemploymentDiff: make([]float64, len(snaps)),
		InflationDiff:    make([]float64, len(snaps)),
	}
	for i, s := range snaps {
		t.Periods[i] = s.Period
		t.OutputLevel[i] = s.OutputLevel
		t.PriceIndexCycle[i] = s.PriceIndexDiffHP
		t.UnemploymentDiff[i] = s.UnemploymentDiff
		t.InflationDiff[i] = s.InflationDiff
	}
	return t
}

// IsMissing NaN/Inf 는 결측으로 취급
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
