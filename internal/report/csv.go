// Package report 학습 요약 / 시나리오 예측 / 정상성 결과 내보내기 + 차트 + Postgres 적재
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
)

// 출력 파일 이름
const (
	SummaryFile      = "resume_modelisation.csv"
	StationarityFile = "stationarity.csv"
	PredictionsDir   = "predictions"
)

// PredictionsFile returns predictions/predictions_<S>.csv relative to the output dir
func PredictionsFile(scenario string) string {
	return filepath.Join(PredictionsDir, fmt.Sprintf("predictions_%s.csv", scenario))
}

// WriteSummary writes one row per trained segment, ordered as given (segment 순)
func WriteSummary(dir string, rows []contracts.SummaryRow) (string, error) {
	records := [][]string{{"segment", "r2_rf", "r2_ols", "violations", "features"}}
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.Segment),
			round3(r.R2Ensemble),
			round3(r.R2Linear),
			r.ViolationsLabel(),
			r.FeaturesLabel(),
		})
	}
	path := filepath.Join(dir, SummaryFile)
	return path, writeCSV(path, records)
}

// WritePredictions writes all rows of one scenario (세그먼트 → 기간 순)
func WritePredictions(dir, scenario string, rows []contracts.PredictionRow) (string, error) {
	records := [][]string{{"date", "period", "segment", "scenario", "CCF_RF", "CCF_OLS"}}
	for _, r := range rows {
		records = append(records, []string{
			r.Period.Start().Format("2006-01-02"),
			r.Period.String(),
			strconv.Itoa(r.Segment),
			r.Scenario,
			formatFloat(r.Ensemble),
			formatFloat(r.Linear),
		})
	}
	path := filepath.Join(dir, PredictionsFile(scenario))
	return path, writeCSV(path, records)
}

// WriteStationarity writes every ADF result (macro, 후보 변환, 세그먼트 원계열/순환)
func WriteStationarity(dir string, results []s1_stationarity.Result) (string, error) {
	records := [][]string{{"kind", "series", "segment", "transform", "status", "statistic", "p_value", "used_lag", "nobs", "reason"}}
	for _, r := range results {
		seg := ""
		if r.Segment > 0 {
			seg = strconv.Itoa(r.Segment)
		}
		records = append(records, []string{
			string(r.Kind),
			r.Series,
			seg,
			r.Transform,
			string(r.Status),
			formatFloat(r.Statistic),
			formatFloat(r.PValue),
			strconv.Itoa(r.UsedLag),
			strconv.Itoa(r.NObs),
			r.Reason,
		})
	}
	path := filepath.Join(dir, StationarityFile)
	return path, writeCSV(path, records)
}

func writeCSV(path string, records [][]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// round3 R² 소수 셋째 자리 반올림 (half away from zero)
func round3(v float64) string {
	if contracts.IsMissing(v) {
		return ""
	}
	return decimal.NewFromFloat(v).Round(3).String()
}

func formatFloat(v float64) string {
	if contracts.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
