package s3_training

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/stats"
)

// DiagnosticsConfig 잔차 가정 위반 기준
type DiagnosticsConfig struct {
	DWLower float64 `yaml:"dw_lower" json:"dw_lower"` // 1.5
	DWUpper float64 `yaml:"dw_upper" json:"dw_upper"` // 2.5
	Alpha   float64 `yaml:"alpha" json:"alpha"`       // 0.05, p ≤ alpha 이면 위반
}

// DefaultDiagnosticsConfig returns the conventional thresholds
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{DWLower: 1.5, DWUpper: 2.5, Alpha: 0.05}
}

// Diagnose runs DW, BP, Shapiro-Wilk and Jarque-Bera on linear residuals.
// exog 는 절편을 포함한 설계 행렬. 계산 불가 검정은 indeterminate 로 남고 위반으로 치지 않음
func Diagnose(cfg DiagnosticsConfig, resid []float64, exog mat.Matrix) ([]contracts.TestOutcome, []string) {
	tests := make([]contracts.TestOutcome, 0, 4)
	var violations []string

	dw, err := stats.DurbinWatson(resid)
	o := outcome(contracts.ViolationDurbinWatson, stats.TestResult{Statistic: dw, PValue: math.NaN()}, err)
	o.HasPValue = false
	tests = append(tests, o)
	if !o.Indeterminate && (dw < cfg.DWLower || dw > cfg.DWUpper) {
		violations = append(violations, contracts.ViolationDurbinWatson)
	}

	pTests := []struct {
		name string
		run  func() (stats.TestResult, error)
	}{
		{contracts.ViolationBreuschPagan, func() (stats.TestResult, error) { return stats.BreuschPagan(resid, exog) }},
		{contracts.ViolationShapiro, func() (stats.TestResult, error) { return stats.ShapiroWilk(resid) }},
		{contracts.ViolationJarqueBera, func() (stats.TestResult, error) { return stats.JarqueBera(resid) }},
	}
	for _, pt := range pTests {
		res, err := pt.run()
		o := outcome(pt.name, res, err)
		tests = append(tests, o)
		if !o.Indeterminate && o.PValue <= cfg.Alpha {
			violations = append(violations, pt.name)
		}
	}
	return tests, violations
}

func outcome(name string, res stats.TestResult, err error) contracts.TestOutcome {
	o := contracts.TestOutcome{Name: name, Statistic: res.Statistic, PValue: res.PValue, HasPValue: true}
	if err != nil {
		o.Indeterminate = true
		o.Statistic = math.NaN()
		o.PValue = math.NaN()
		o.Reason = err.Error()
		if !errors.Is(err, contracts.ErrIndeterminate) {
			o.Reason = "unexpected: " + o.Reason
		}
	}
	return o
}
