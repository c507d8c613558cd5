package s2_features

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
)

// PrepareMacro derives first differences and the HP cycle of the differenced price index.
// ⭐ SSOT: 학습 거시 이력과 시나리오 경로가 모두 이 함수만 사용함
//
//  1. 기간 정렬 (중복 기간은 오류)
//  2. PIB/IPL/TCH/Inflation 1차 차분
//  3. IPL_diff1 의 유효 인덱스에서 HP 순환 → 기간 단위로 되돌려 씀
//  4. 모델 드라이버에 NaN 이 남은 행 제거
func PrepareMacro(rows []contracts.MacroRecord, decomposer *s1_stationarity.CycleDecomposer) ([]contracts.MacroSnapshot, error) {
	sorted := append([]contracts.MacroRecord(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Period.Before(sorted[j].Period) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Period == sorted[i-1].Period {
			return nil, &contracts.DataQualityError{Field: "period", Value: sorted[i].Period.String(), Err: fmt.Errorf("duplicate macro period")}
		}
	}

	n := len(sorted)
	snaps := make([]contracts.MacroSnapshot, n)
	ipl := make([]float64, n)
	for i, r := range sorted {
		s := contracts.MacroSnapshot{
			Period:           r.Period,
			OutputLevel:      r.OutputLevel,
			PriceIndex:       r.PriceIndex,
			Unemployment:     r.Unemployment,
			Inflation:        r.Inflation,
			OutputDiff:       math.NaN(),
			PriceIndexDiff:   math.NaN(),
			UnemploymentDiff: math.NaN(),
			InflationDiff:    math.NaN(),
			PriceIndexDiffHP: math.NaN(),
		}
		if i > 0 {
			prev := sorted[i-1]
			s.OutputDiff = r.OutputLevel - prev.OutputLevel
			s.PriceIndexDiff = r.PriceIndex - prev.PriceIndex
			s.UnemploymentDiff = r.Unemployment - prev.Unemployment
			s.InflationDiff = r.Inflation - prev.Inflation
		}
		ipl[i] = s.PriceIndexDiff
		snaps[i] = s
	}

	comp, err := decomposer.Decompose("IPL_diff1", 0, ipl)
	if err != nil {
		return nil, fmt.Errorf("prepare macro: %w", err)
	}
	for k, i := range comp.Index {
		snaps[i].PriceIndexDiffHP = comp.Cycle[k]
	}

	out := make([]contracts.MacroSnapshot, 0, n)
	for _, s := range snaps {
		if s.Complete() {
			out = append(out, s)
		}
	}
	return out, nil
}
