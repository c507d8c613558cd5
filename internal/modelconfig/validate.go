package modelconfig

import (
	"fmt"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ModelID == "" {
		return ValidationError{"meta.model_id", "required"}
	}

	// === History ===
	if _, err := contracts.ParsePeriod(cfg.History.CutoffPeriod); err != nil {
		return ValidationError{"history.cutoff_period", err.Error()}
	}

	// === Quality ===
	for field, v := range map[string]float64{
		"quality.min_score":              cfg.Quality.MinScore,
		"quality.min_indicator_coverage": cfg.Quality.MinIndicatorCoverage,
		"quality.min_macro_coverage":     cfg.Quality.MinMacroCoverage,
	} {
		if v < 0 || v > 1 {
			return ValidationError{field, "must be in [0, 1]"}
		}
	}

	// === Stationarity ===
	st := cfg.Stationarity
	if st.Significance <= 0 || st.Significance >= 1 {
		return ValidationError{"stationarity.significance", "must be in (0, 1)"}
	}
	if st.HPLambda <= 0 {
		return ValidationError{"stationarity.hp_lambda", "must be > 0"}
	}
	if st.MinCycleObs < 4 {
		return ValidationError{"stationarity.min_cycle_obs", "must be >= 4"}
	}
	for _, seg := range st.ForceCycleSegments {
		if !contracts.IsValidSegment(seg) {
			return ValidationError{"stationarity.force_cycle_segments", fmt.Sprintf("segment %d not in 1..5", seg)}
		}
	}

	// === Training ===
	tr := cfg.Training
	if tr.Workers < 1 || tr.Workers > contracts.MaxSegment {
		return ValidationError{"training.workers", "must be in [1, 5]"}
	}
	if tr.FitTimeout <= 0 {
		return ValidationError{"training.fit_timeout", "must be > 0"}
	}
	if tr.Forest.NEstimators < 1 {
		return ValidationError{"training.forest.n_estimators", "must be >= 1"}
	}
	if tr.Forest.MinSamplesLeaf < 1 {
		return ValidationError{"training.forest.min_samples_leaf", "must be >= 1"}
	}
	d := tr.Diagnostics
	if d.DWLower >= d.DWUpper || d.DWLower < 0 || d.DWUpper > 4 {
		return ValidationError{"training.diagnostics", "need 0 <= dw_lower < dw_upper <= 4"}
	}
	if d.Alpha <= 0 || d.Alpha >= 1 {
		return ValidationError{"training.diagnostics.alpha", "must be in (0, 1)"}
	}

	// === Scenarios ===
	if len(cfg.Scenarios.Scenarios) == 0 {
		return ValidationError{"scenarios.names", "at least one scenario required"}
	}
	seen := map[string]bool{}
	for _, name := range cfg.Scenarios.Scenarios {
		if name == "" {
			return ValidationError{"scenarios.names", "empty scenario name"}
		}
		if seen[name] {
			return ValidationError{"scenarios.names", fmt.Sprintf("duplicate scenario %s", name)}
		}
		seen[name] = true
	}
	if cfg.Scenarios.Workers < 1 {
		return ValidationError{"scenarios.workers", "must be >= 1"}
	}

	// === Report ===
	if _, err := contracts.ParseFamily(cfg.Report.ChartFamily); err != nil {
		return ValidationError{"report.chart_family", err.Error()}
	}
	if cfg.Report.Charts && (cfg.Report.ChartWidthCm <= 0 || cfg.Report.ChartHeightCm <= 0) {
		return ValidationError{"report.chart_width_cm", "chart size must be > 0"}
	}

	// === Schedule ===
	if cfg.Schedule.Retries < 0 {
		return ValidationError{"schedule.retries", "must be >= 0"}
	}
	if cfg.Schedule.Retries > 0 && cfg.Schedule.RetryDelay <= 0 {
		return ValidationError{"schedule.retry_delay", "must be > 0 when retries > 0"}
	}

	return nil
}

// Cutoff returns the parsed history cutoff (Validate 이후 호출)
func (c *Config) Cutoff() contracts.Period {
	p, err := contracts.ParsePeriod(c.History.CutoffPeriod)
	if err != nil {
		return contracts.Period{Year: 2009, Quarter: 1}
	}
	return p
}

// ChartFamily returns the family drawn in history+forecast charts
func (c *Config) ChartFamily() contracts.ModelFamily {
	f, err := contracts.ParseFamily(c.Report.ChartFamily)
	if err != nil {
		return contracts.FamilyEnsemble
	}
	return f
}
