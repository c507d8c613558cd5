// Package s2_features 거시 준비 + 결정론적 피처 엔진 (S2/S3 공용)
package s2_features

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// WarmUp 제거되는 선행 행 수 (ma5 → 4행)
const WarmUp = 4

// formulaRevision 컬럼 이름이 같아도 계산식이 바뀌면 올림 (지문에 포함)
const formulaRevision = 2

// 스트레스 구간 (분기 시작일 기준)
var (
	stressStart = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	stressEnd   = time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
	postStress  = time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
)

// base 입력 드라이버 (행 위치 기준)
type base struct {
	pib, tch, inf, ipl []float64
	periods            []contracts.Period
}

type feature struct {
	name string
	at   func(b *base, i int) float64
}

// ⭐ SSOT: 출력 컬럼 순서. 바꾸면 FeatureVersion 이 달라지고 기존 아티팩트는 거부됨
var features = []feature{
	{"PIB", col(pibOf, 0)},
	{"TCH_diff1", col(tchOf, 0)},
	{"Inflation_diff1", col(infOf, 0)},
	{"IPL_diff1_hp", col(iplOf, 0)},
	{"PIB_lag1", col(pibOf, 1)},
	{"TCH_diff1_lag1", col(tchOf, 1)},
	{"Inflation_diff1_lag1", col(infOf, 1)},
	{"IPL_diff1_hp_lag1", col(iplOf, 1)},
	{"PIB_lag2", col(pibOf, 2)},
	{"TCH_diff1_lag2", col(tchOf, 2)},
	{"Inflation_diff1_lag2", col(infOf, 2)},
	{"IPL_diff1_hp_lag2", col(iplOf, 2)},
	{"PIB_ma3", ma(pibOf, 3)},
	{"TCH_ma3", ma(tchOf, 3)},
	{"Inflation_ma3", ma(infOf, 3)},
	{"IPL_ma3", ma(iplOf, 3)},
	{"PIB_ma5", ma(pibOf, 5)},
	{"TCH_ma5", ma(tchOf, 5)},
	{"Inflation_ma5", ma(infOf, 5)},
	{"IPL_ma5", ma(iplOf, 5)},
	{"PIB_x_TCH", product(pibOf, tchOf)},
	{"PIB_x_Inflation", product(pibOf, infOf)},
	{"TCH_x_IPL", product(tchOf, iplOf)},
	{"Inflation_x_IPL", product(infOf, iplOf)},
	{"PIB_x_TCH_ma3", func(b *base, i int) float64 { return b.pib[i] * ma(tchOf, 3)(b, i) }},
	{"PIB_squared", square(pibOf)},
	{"TCH_diff1_squared", square(tchOf)},
	{"Inflation_diff1_squared", square(infOf)},
	{"IPL_diff1_hp_squared", square(iplOf)},
	{"year", func(b *base, i int) float64 { return float64(b.periods[i].Year) }},
	{"quarter", func(b *base, i int) float64 { return float64(b.periods[i].Quarter) }},
	{"is_covid", func(b *base, i int) float64 { return indicator(inStress(b.periods[i].Start())) }},
	{"post_covid", func(b *base, i int) float64 { return indicator(!b.periods[i].Start().Before(postStress)) }},
	{"PIB_pct_change", func(b *base, i int) float64 {
		if i < 1 {
			return math.NaN()
		}
		return b.pib[i]/b.pib[i-1] - 1
	}},
	{"TCH_diff1_abs", func(b *base, i int) float64 { return math.Abs(b.tch[i]) }},
	{"PIB_x_TCH_squared", func(b *base, i int) float64 { return b.pib[i] * b.tch[i] * b.tch[i] }},
}

func pibOf(b *base) []float64 { return b.pib }
func tchOf(b *base) []float64 { return b.tch }
func infOf(b *base) []float64 { return b.inf }
func iplOf(b *base) []float64 { return b.ipl }

// col 현재값(k=0) 또는 k 행 전 값
func col(src func(*base) []float64, k int) func(*base, int) float64 {
	return func(b *base, i int) float64 {
		if i-k < 0 {
			return math.NaN()
		}
		return src(b)[i-k]
	}
}

// ma 후행 w 행 평균, 창 안에 결측이 있으면 NaN
func ma(src func(*base) []float64, w int) func(*base, int) float64 {
	return func(b *base, i int) float64 {
		if i-w+1 < 0 {
			return math.NaN()
		}
		x := src(b)
		sum := 0.0
		for j := i - w + 1; j <= i; j++ {
			if contracts.IsMissing(x[j]) {
				return math.NaN()
			}
			sum += x[j]
		}
		return sum / float64(w)
	}
}

func product(a, c func(*base) []float64) func(*base, int) float64 {
	return func(b *base, i int) float64 { return a(b)[i] * c(b)[i] }
}

func square(src func(*base) []float64) func(*base, int) float64 {
	return func(b *base, i int) float64 {
		v := src(b)[i]
		return v * v
	}
}

func inStress(t time.Time) bool {
	return !t.Before(stressStart) && !t.After(stressEnd)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Names returns the output columns in canonical order
func Names() []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.name
	}
	return out
}

var featureVersion = computeVersion()

func computeVersion() string {
	h := sha256.New()
	fmt.Fprintf(h, "rev=%d;warmup=%d;stress=%s..%s;post=%s;cols=",
		formulaRevision, WarmUp, stressStart.Format(time.DateOnly), stressEnd.Format(time.DateOnly), postStress.Format(time.DateOnly))
	h.Write([]byte(strings.Join(Names(), ",")))
	return "fe-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// FeatureVersion 피처 파라미터 지문 (아티팩트에 기록, 예측 시 검증)
func FeatureVersion() string {
	return featureVersion
}

// Frame 피처 행렬 (컬럼형). 결측 행 제거 후 0부터 재색인됨
type Frame struct {
	Periods []contracts.Period
	Source  []int // 입력 테이블의 행 위치
	Names   []string
	Columns [][]float64 // Columns[j][i]
	Target  []float64   // 입력에 타깃이 없으면 nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.Periods)
}

// Column returns a column by name
func (f *Frame) Column(name string) ([]float64, bool) {
	for j, n := range f.Names {
		if n == name {
			return f.Columns[j], true
		}
	}
	return nil, false
}

// Matrix builds an n×len(names) design matrix in the given column order.
// 알 수 없는 이름은 ErrArtifactMismatch 로 감쌈 (저장된 피처셋과 엔진 불일치)
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, contracts.ErrEmptyFeatureSet
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("%w: frame has no rows", contracts.ErrDataQuality)
	}
	m := mat.NewDense(f.Len(), len(names), nil)
	for j, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature %q", contracts.ErrArtifactMismatch, name)
		}
		m.SetCol(j, c)
	}
	return m, nil
}

// Enrich computes the full feature set.
// 모든 피처는 현재/과거 행만 참조함 (미래 행을 잘라도 앞쪽 출력은 불변)
// 결측(NaN/Inf) 이 하나라도 있는 행은 타깃 포함 제거됨
func Enrich(t contracts.ModelingTable) (*Frame, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	b := &base{
		pib:     t.OutputLevel,
		tch:     t.UnemploymentDiff,
		inf:     t.InflationDiff,
		ipl:     t.PriceIndexCycle,
		periods: t.Periods,
	}

	n := t.Len()
	f := &Frame{
		Names:   Names(),
		Columns: make([][]float64, len(features)),
	}
	for j := range f.Columns {
		f.Columns[j] = make([]float64, 0, n)
	}
	if t.HasTarget() {
		f.Target = make([]float64, 0, n)
	}

	row := make([]float64, len(features))
	for i := 0; i < n; i++ {
		complete := !(t.HasTarget() && contracts.IsMissing(t.Target[i]))
		for j, feat := range features {
			if !complete {
				break
			}
			row[j] = feat.at(b, i)
			complete = !contracts.IsMissing(row[j])
		}
		if !complete {
			continue
		}
		for j := range features {
			f.Columns[j] = append(f.Columns[j], row[j])
		}
		f.Periods = append(f.Periods, t.Periods[i])
		f.Source = append(f.Source, i)
		if t.HasTarget() {
			f.Target = append(f.Target, t.Target[i])
		}
	}
	return f, nil
}
