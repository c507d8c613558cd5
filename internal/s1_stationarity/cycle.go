package s1_stationarity

import (
	"fmt"
	"math"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/stats"
)

// CycleComponent HP 분해 결과, 원천 시계열의 유효 인덱스에 정렬됨
type CycleComponent struct {
	Source  string
	Segment int   // 0 = 세그먼트 무관
	Index   []int // 원천 시계열에서 유한값 위치
	Trend   []float64
	Cycle   []float64
}

// CycleDecomposer Hodrick-Prescott 분해기 (고정 λ)
type CycleDecomposer struct {
	lambda float64
}

// NewCycleDecomposer creates a decomposer; lambda ≤ 0 falls back to the quarterly 1600
func NewCycleDecomposer(lambda float64) *CycleDecomposer {
	if lambda <= 0 {
		lambda = stats.HPLambdaQuarterly
	}
	return &CycleDecomposer{lambda: lambda}
}

// Lambda returns the smoothing parameter
func (d *CycleDecomposer) Lambda() float64 {
	return d.lambda
}

// Decompose filters the finite observations of x and returns trend/cycle aligned to them.
// NaN 위치(차분 warm-up 등)는 Index 에서 빠지며 나머지 위치는 그대로 유지됨.
func (d *CycleDecomposer) Decompose(source string, segment int, x []float64) (CycleComponent, error) {
	idx := make([]int, 0, len(x))
	vals := make([]float64, 0, len(x))
	for i, v := range x {
		if !contracts.IsMissing(v) {
			idx = append(idx, i)
			vals = append(vals, v)
		}
	}

	trend, cycle, err := stats.HPFilter(vals, d.lambda)
	if err != nil {
		return CycleComponent{}, fmt.Errorf("hp decomposition of %s: %w", source, err)
	}
	return CycleComponent{
		Source:  source,
		Segment: segment,
		Index:   idx,
		Trend:   trend,
		Cycle:   cycle,
	}, nil
}

// Scatter writes the cycle back onto a full-length series (NaN outside Index)
func (c CycleComponent) Scatter(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	for k, i := range c.Index {
		out[i] = c.Cycle[k]
	}
	return out
}
