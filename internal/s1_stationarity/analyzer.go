// Package s1_stationarity 단위근 검정 + HP 순환 대체 결정 (S1)
package s1_stationarity

import (
	"errors"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/stats"
)

// Status 정상성 판정
type Status string

const (
	StatusStationary    Status = "stationary"
	StatusNonStationary Status = "non_stationary"
	StatusIndeterminate Status = "indeterminate"
)

// Kind 검정 대상 분류 (리포트용)
type Kind string

const (
	KindMacro        Kind = "macro"
	KindCandidate    Kind = "candidate"
	KindSegmentRaw   Kind = "segment_raw"
	KindSegmentCycle Kind = "segment_cycle"
)

// 후보 변환 이름
const (
	TransformRaw        = "raw"
	TransformDiff2      = "diff2"
	TransformHPCycle    = "hp_cycle"
	TransformLogDiff    = "log_diff"
	TransformBoxCoxDiff = "boxcox_diff"
)

// Result 단일 시계열 검정 결과
type Result struct {
	Kind      Kind    `json:"kind"`
	Series    string  `json:"series"`
	Segment   int     `json:"segment,omitempty"`
	Transform string  `json:"transform,omitempty"`
	Status    Status  `json:"status"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	UsedLag   int     `json:"used_lag"`
	NObs      int     `json:"nobs"`
	Reason    string  `json:"reason,omitempty"`
}

// Config 정상성 단계 설정
type Config struct {
	Significance       float64 `yaml:"significance" json:"significance"`                 // 0.05
	HPLambda           float64 `yaml:"hp_lambda" json:"hp_lambda"`                       // 1600
	ForceCycleSegments []int   `yaml:"force_cycle_segments" json:"force_cycle_segments"` // 검정과 무관하게 대체
	MinCycleObs        int     `yaml:"min_cycle_obs" json:"min_cycle_obs"`               // 10
}

// DefaultConfig returns quarterly defaults
func DefaultConfig() Config {
	return Config{
		Significance: 0.05,
		HPLambda:     stats.HPLambdaQuarterly,
		MinCycleObs:  10,
	}
}

// Analyzer 단위근 검정기 (상수+추세 ADF)
// 계산 불가 시계열은 indeterminate 로 기록되고 실행은 계속됨
type Analyzer struct {
	significance float64
	log          zerolog.Logger
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(cfg Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		significance: cfg.Significance,
		log:          log.With().Str("component", "s1_stationarity.analyzer").Logger(),
	}
}

// Test runs the unit-root test on a finite series
func (a *Analyzer) Test(kind Kind, name string, x []float64) Result {
	res := Result{Kind: kind, Series: name, Statistic: math.NaN(), PValue: math.NaN()}

	adf, err := stats.ADF(x)
	if err != nil {
		res.Status = StatusIndeterminate
		res.Reason = err.Error()
		res.NObs = len(x)
		if !errors.Is(err, contracts.ErrIndeterminate) {
			a.log.Error().Err(err).Str("series", name).Msg("unit-root test failed")
		}
		return res
	}

	res.Statistic = adf.Statistic
	res.PValue = adf.PValue
	res.UsedLag = adf.UsedLag
	res.NObs = adf.NObs
	res.Status = StatusNonStationary
	if adf.PValue < a.significance {
		res.Status = StatusStationary
	}
	return res
}

// TestAll tests every series (NaN dropped) and returns results sorted by name
func (a *Analyzer) TestAll(kind Kind, series map[string][]float64) []Result {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Result, 0, len(names))
	for _, name := range names {
		r := a.Test(kind, name, dropMissing(series[name]))
		a.logResult(r)
		out = append(out, r)
	}
	return out
}

// Candidates evaluates raw, second difference, HP cycle, log-difference and
// Box-Cox difference of one series. 선택은 하지 않음 (최소 p-value 를 로그로만 권고).
func (a *Analyzer) Candidates(name string, x []float64, lambda float64) []Result {
	x = dropMissing(x)
	out := make([]Result, 0, 5)

	add := func(transform string, series []float64, err error) {
		var r Result
		if err != nil {
			r = Result{Kind: KindCandidate, Series: name, Status: StatusIndeterminate,
				Statistic: math.NaN(), PValue: math.NaN(), Reason: err.Error()}
		} else {
			r = a.Test(KindCandidate, name, series)
		}
		r.Transform = transform
		a.logResult(r)
		out = append(out, r)
	}

	add(TransformRaw, x, nil)
	add(TransformDiff2, stats.Diff(x), nil)

	_, cycle, err := stats.HPFilter(x, lambda)
	add(TransformHPCycle, cycle, err)

	if allPositive(x) {
		logs := make([]float64, len(x))
		for i, v := range x {
			logs[i] = math.Log(v)
		}
		add(TransformLogDiff, stats.Diff(logs), nil)

		bc, _, err := stats.BoxCox(x)
		add(TransformBoxCoxDiff, stats.Diff(bc), err)
	} else {
		reason := errors.New("series is not strictly positive")
		add(TransformLogDiff, nil, reason)
		add(TransformBoxCoxDiff, nil, reason)
	}

	best := -1
	for i, r := range out {
		if r.Status == StatusIndeterminate {
			continue
		}
		if best < 0 || r.PValue < out[best].PValue {
			best = i
		}
	}
	if best >= 0 {
		a.log.Info().
			Str("series", name).
			Str("suggested_transform", out[best].Transform).
			Float64("p_value", out[best].PValue).
			Msg("candidate transform with lowest unit-root p-value (advisory)")
	}
	return out
}

func (a *Analyzer) logResult(r Result) {
	var ev *zerolog.Event
	if r.Status == StatusIndeterminate {
		ev = a.log.Warn().Str("reason", r.Reason)
	} else {
		ev = a.log.Info().Float64("p_value", r.PValue).Float64("statistic", r.Statistic)
	}
	if r.Segment != 0 {
		ev = ev.Int("segment", r.Segment)
	}
	ev.Str("kind", string(r.Kind)).
		Str("series", r.Series).
		Str("transform", r.Transform).
		Str("status", string(r.Status)).
		Str("stage", contracts.StageDecideTransform.String()).
		Msg("unit-root test")
}

// MacroSeries exposes the prepared macro columns under their canonical names
func MacroSeries(snaps []contracts.MacroSnapshot) map[string][]float64 {
	cols := map[string][]float64{}
	put := func(name string, v float64) { cols[name] = append(cols[name], v) }
	for _, s := range snaps {
		put("PIB", s.OutputLevel)
		put("IPL", s.PriceIndex)
		put("TCH", s.Unemployment)
		put("Inflation", s.Inflation)
		put("PIB_diff1", s.OutputDiff)
		put("IPL_diff1", s.PriceIndexDiff)
		put("TCH_diff1", s.UnemploymentDiff)
		put("Inflation_diff1", s.InflationDiff)
		put("IPL_diff1_hp", s.PriceIndexDiffHP)
	}
	return cols
}

// LevelSeries 원 수준 계열 (차분 전 이력, 첫 분기 포함)
func LevelSeries(rows []contracts.MacroRecord) map[string][]float64 {
	cols := map[string][]float64{}
	for _, r := range rows {
		cols["PIB"] = append(cols["PIB"], r.OutputLevel)
		cols["IPL"] = append(cols["IPL"], r.PriceIndex)
		cols["TCH"] = append(cols["TCH"], r.Unemployment)
		cols["Inflation"] = append(cols["Inflation"], r.Inflation)
	}
	return cols
}

func dropMissing(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !contracts.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func allPositive(x []float64) bool {
	if len(x) == 0 {
		return false
	}
	for _, v := range x {
		if !(v > 0) {
			return false
		}
	}
	return true
}
