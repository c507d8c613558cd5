package contracts

import (
	"math"
	"time"
)

// 세그먼트 범위 (등급 파티션)
const (
	MinSegment = 1
	MaxSegment = 5
)

// AllSegments returns segment ids 1..5 in order
func AllSegments() []int {
	segs := make([]int, 0, MaxSegment-MinSegment+1)
	for s := MinSegment; s <= MaxSegment; s++ {
		segs = append(segs, s)
	}
	return segs
}

// IsValidSegment checks 1..5
func IsValidSegment(id int) bool {
	return id >= MinSegment && id <= MaxSegment
}

// SegmentRecord 세그먼트 원천 행 (수집 시 생성, 이후 불변)
type SegmentRecord struct {
	SegmentID int    `json:"segment_id"`
	PeriodKey string `json:"period"`    // 정규화 전 원본 키
	Indicator string `json:"indicator"` // 소수점 쉼표 문자열 ("12,5")
}

// MacroRecord 거시 원천 행 (분기 키로 변환된 상태)
type MacroRecord struct {
	Period       Period    `json:"period"`
	Date         time.Time `json:"date"` // 원본 월말 날짜
	OutputLevel  float64   `json:"pib"`
	PriceIndex   float64   `json:"ipl"`
	Unemployment float64   `json:"tch"`
	Inflation    float64   `json:"inflation"`
}

// MacroSnapshot 분기별 거시 변수 + 파생 변환 (1차 차분, HP 순환)
type MacroSnapshot struct {
	Period           Period  `json:"period"`
	OutputLevel      float64 `json:"pib"`
	PriceIndex       float64 `json:"ipl"`
	Unemployment     float64 `json:"tch"`
	Inflation        float64 `json:"inflation"`
	OutputDiff       float64 `json:"pib_diff1"`
	PriceIndexDiff   float64 `json:"ipl_diff1"`
	UnemploymentDiff float64 `json:"tch_diff1"`
	InflationDiff    float64 `json:"inflation_diff1"`
	PriceIndexDiffHP float64 `json:"ipl_diff1_hp"` // HP 순환 성분 of PriceIndexDiff
}

// Complete reports whether every model driver is finite
func (m MacroSnapshot) Complete() bool {
	for _, v := range []float64{m.OutputLevel, m.UnemploymentDiff, m.InflationDiff, m.PriceIndexDiffHP} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// 시나리오 이름 (SSOT)
const (
	ScenarioCentral     = "CENT"
	ScenarioPessimistic = "PESS"
	ScenarioOptimistic  = "OPT"
)

// DefaultScenarios returns CENT, PESS, OPT
func DefaultScenarios() []string {
	return []string{ScenarioCentral, ScenarioPessimistic, ScenarioOptimistic}
}

// ScenarioTrajectory 이름 붙은 거시 경로
type ScenarioTrajectory struct {
	Name string        `json:"name"`
	Rows []MacroRecord `json:"rows"`
}

// ScenarioTable 시나리오 원천 테이블: date + "<driver>_<scenario>" 컬럼
type ScenarioTable struct {
	Dates   []time.Time
	Columns map[string][]float64
}

// DataQualitySnapshot 수집 단계 품질 스냅샷 (S0 → S1 게이트)
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`
	TotalRows    int                `json:"total_rows"`
	ValidRows    int                `json:"valid_rows"`
	Rejected     int                `json:"rejected"`      // 행 단위 DataQualityError 수
	Coverage     map[string]float64 `json:"coverage"`      // 항목별 커버리지
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`
}

// IsValid checks if the snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid() bool {
	return d.QualityScore >= 0.7 && d.ValidRows > 0
}

// CoverageRate returns the average coverage rate across all items
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, v := range d.Coverage {
		total += v
	}
	return total / float64(len(d.Coverage))
}
