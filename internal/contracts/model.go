package contracts

import (
	"fmt"
	"strings"
	"time"
)

// ModelFamily 모델 계열
type ModelFamily string

const (
	// FamilyEnsemble 랜덤 포레스트 회귀 (피처 선택 주체)
	FamilyEnsemble ModelFamily = "ensemble"
	// FamilyLinear 절편 포함 OLS (앙상블이 고른 피처 재사용)
	FamilyLinear ModelFamily = "linear"
)

// AllFamilies returns model families in persistence order
func AllFamilies() []ModelFamily {
	return []ModelFamily{FamilyEnsemble, FamilyLinear}
}

// ParseFamily accepts "ensemble"/"linear" and the legacy "RF"/"OLS" selectors
func ParseFamily(s string) (ModelFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ensemble", "rf":
		return FamilyEnsemble, nil
	case "linear", "ols":
		return FamilyLinear, nil
	default:
		return "", fmt.Errorf("unknown model family %q (ensemble|linear)", s)
	}
}

// Label 차트/CSV 용 약칭
func (f ModelFamily) Label() string {
	switch f {
	case FamilyEnsemble:
		return "RF"
	case FamilyLinear:
		return "OLS"
	default:
		return strings.ToUpper(string(f))
	}
}

// SelectedFeatureSet 세그먼트별 선택 피처 (순서 유지, 중복 없음)
// 두 모델 계열이 공유함
type SelectedFeatureSet struct {
	Segment  int      `json:"segment"`
	Features []string `json:"features"`
}

// NewSelectedFeatureSet dedupes names preserving first occurrence order
func NewSelectedFeatureSet(segment int, names []string) SelectedFeatureSet {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return SelectedFeatureSet{Segment: segment, Features: out}
}

// Empty reports whether no feature was selected
func (s SelectedFeatureSet) Empty() bool {
	return len(s.Features) == 0
}

// 잔차 가정 위반 코드
const (
	ViolationDurbinWatson = "DW"
	ViolationBreuschPagan = "BP"
	ViolationShapiro      = "Shapiro"
	ViolationJarqueBera   = "JB"
)

// TestOutcome 단일 검정 결과
type TestOutcome struct {
	Name          string  `json:"name"`
	Statistic     float64 `json:"statistic"`
	PValue        float64 `json:"p_value"`
	HasPValue     bool    `json:"has_p_value"` // DW 는 통계량만 있음
	Indeterminate bool    `json:"indeterminate"`
	Reason        string  `json:"reason,omitempty"`
}

// DiagnosticsReport 세그먼트별 적합도 + 위반 가정 목록
type DiagnosticsReport struct {
	Segment    int           `json:"segment"`
	R2Ensemble float64       `json:"r2_ensemble"`
	R2Linear   float64       `json:"r2_linear"`
	Tests      []TestOutcome `json:"tests"`
	Violations []string      `json:"violations"`
}

// SummaryRow 학습 성공 세그먼트 1행
type SummaryRow struct {
	Segment    int       `json:"segment"`
	R2Ensemble float64   `json:"r2_ensemble"`
	R2Linear   float64   `json:"r2_linear"`
	Violations []string  `json:"violations"`
	Features   []string  `json:"features"`
	RunID      string    `json:"run_id"`
	TrainedAt  time.Time `json:"trained_at"`
}

// ViolationsLabel "DW, BP" or "none"
func (r SummaryRow) ViolationsLabel() string {
	if len(r.Violations) == 0 {
		return "none"
	}
	return strings.Join(r.Violations, ", ")
}

// FeaturesLabel comma-joined feature list
func (r SummaryRow) FeaturesLabel() string {
	return strings.Join(r.Features, ", ")
}

// PredictionRow (period, segment, scenario, ensemble, linear)
type PredictionRow struct {
	Period   Period  `json:"period"`
	Segment  int     `json:"segment"`
	Scenario string  `json:"scenario"`
	Ensemble float64 `json:"ccf_ensemble"`
	Linear   float64 `json:"ccf_linear"`
}

// Value returns the prediction of the given family
func (r PredictionRow) Value(f ModelFamily) float64 {
	if f == FamilyLinear {
		return r.Linear
	}
	return r.Ensemble
}
