package quality

import (
	"time"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// QualityGate validates merged segment tables and generates snapshots
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinScore             float64 `yaml:"min_score" json:"min_score"`                           // 0.7
	MinIndicatorCoverage float64 `yaml:"min_indicator_coverage" json:"min_indicator_coverage"` // 0.9
	MinMacroCoverage     float64 `yaml:"min_macro_coverage" json:"min_macro_coverage"`         // 0.8
}

// DefaultConfig returns the thresholds used when no config is given
func DefaultConfig() Config {
	return Config{
		MinScore:             0.7,
		MinIndicatorCoverage: 0.9,
		MinMacroCoverage:     0.8,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check computes coverage over the merged per-segment tables
// ⭐ SSOT: S0 → S1 품질 검증 (실패해도 실행은 계속, 스냅샷으로 기록)
func (g *QualityGate) Check(date time.Time, tables map[int]contracts.ModelingTable, rejected int) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Date:     date,
		Rejected: rejected,
		Coverage: make(map[string]float64),
	}

	var total, withIndicator, withMacro, valid, populated int
	for _, seg := range contracts.AllSegments() {
		t := tables[seg]
		if t.Len() > 0 {
			populated++
		}
		for i := 0; i < t.Len(); i++ {
			total++
			hasInd := t.Target != nil && !contracts.IsMissing(t.Target[i])
			hasMacro := !contracts.IsMissing(t.OutputLevel[i]) &&
				!contracts.IsMissing(t.UnemploymentDiff[i]) &&
				!contracts.IsMissing(t.InflationDiff[i]) &&
				!contracts.IsMissing(t.PriceIndexCycle[i])
			if hasInd {
				withIndicator++
			}
			if hasMacro {
				withMacro++
			}
			if hasInd && hasMacro {
				valid++
			}
		}
	}

	snapshot.TotalRows = total + rejected
	snapshot.ValidRows = valid
	snapshot.Coverage["indicator"] = ratio(withIndicator, total+rejected)
	snapshot.Coverage["macro"] = ratio(withMacro, total)
	snapshot.Coverage["segments"] = ratio(populated, contracts.MaxSegment-contracts.MinSegment+1)

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.QualityScore >= g.config.MinScore &&
		snapshot.Coverage["indicator"] >= g.config.MinIndicatorCoverage &&
		snapshot.Coverage["macro"] >= g.config.MinMacroCoverage

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"indicator": 0.50, // 목표 변수
		"macro":     0.30, // 조인된 거시 변수
		"segments":  0.20, // 세그먼트 존재
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
