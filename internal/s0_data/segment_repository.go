package s0_data

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// SegmentSeries 세그먼트 지표 시계열 (기간 오름차순, NaN = 파싱 실패 행)
type SegmentSeries struct {
	Segment int
	Periods []contracts.Period
	Values  []float64
}

// Valid returns the positions and values of finite observations
func (s SegmentSeries) Valid() ([]int, []float64) {
	idx := make([]int, 0, len(s.Values))
	vals := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if !contracts.IsMissing(v) {
			idx = append(idx, i)
			vals = append(vals, v)
		}
	}
	return idx, vals
}

// Substitute returns a copy whose values at idx are replaced by repl (per-period substitution)
func (s SegmentSeries) Substitute(idx []int, repl []float64) (SegmentSeries, error) {
	if len(idx) != len(repl) {
		return SegmentSeries{}, fmt.Errorf("segment %d: %d positions but %d values", s.Segment, len(idx), len(repl))
	}
	out := SegmentSeries{
		Segment: s.Segment,
		Periods: append([]contracts.Period(nil), s.Periods...),
		Values:  append([]float64(nil), s.Values...),
	}
	for k, i := range idx {
		if i < 0 || i >= len(out.Values) {
			return SegmentSeries{}, fmt.Errorf("segment %d: position %d out of range", s.Segment, i)
		}
		out.Values[i] = repl[k]
	}
	return out, nil
}

// SegmentRepository 세그먼트 원천 정규화 + 거시 left join + 세그먼트 분할
// ⭐ SSOT: 기간 키 정규화는 contracts.ParsePeriod 한 곳에서만
type SegmentRepository struct {
	log zerolog.Logger
}

// NewSegmentRepository creates a new SegmentRepository
func NewSegmentRepository(log zerolog.Logger) *SegmentRepository {
	return &SegmentRepository{
		log: log.With().Str("component", "s0_data.segments").Logger(),
	}
}

// Partition normalizes raw records into one series per segment id (1..5).
// 행 단위 오류(잘못된 소수, 잘못된 기간 키, 범위 밖 세그먼트, 중복 기간)는 로그 후 반환 목록에 담김.
// 잘못된 소수 행은 NaN 으로 남아 이후 NaN 제거 단계에서 빠짐.
func (r *SegmentRepository) Partition(records []contracts.SegmentRecord) (map[int]SegmentSeries, []error) {
	type obs struct {
		period contracts.Period
		value  float64
	}
	bySeg := make(map[int][]obs, contracts.MaxSegment)
	seen := make(map[int]map[contracts.Period]bool, contracts.MaxSegment)
	var issues []error

	for _, rec := range records {
		if !contracts.IsValidSegment(rec.SegmentID) {
			issues = append(issues, &contracts.DataQualityError{
				Segment: rec.SegmentID, Period: rec.PeriodKey, Field: "segment_id",
				Value: fmt.Sprint(rec.SegmentID), Err: fmt.Errorf("segment id out of range %d..%d", contracts.MinSegment, contracts.MaxSegment),
			})
			continue
		}
		period, err := contracts.ParsePeriod(rec.PeriodKey)
		if err != nil {
			issues = append(issues, &contracts.DataQualityError{
				Segment: rec.SegmentID, Period: rec.PeriodKey, Field: "period", Value: rec.PeriodKey, Err: err,
			})
			continue
		}
		if seen[rec.SegmentID] == nil {
			seen[rec.SegmentID] = make(map[contracts.Period]bool)
		}
		if seen[rec.SegmentID][period] {
			issues = append(issues, &contracts.DataQualityError{
				Segment: rec.SegmentID, Period: rec.PeriodKey, Field: "period", Value: rec.PeriodKey, Err: fmt.Errorf("duplicate period"),
			})
			continue
		}
		seen[rec.SegmentID][period] = true

		value, err := ParseIndicator(rec.Indicator)
		if err != nil {
			var dq *contracts.DataQualityError
			if errors.As(err, &dq) {
				dq.Segment = rec.SegmentID
				dq.Period = rec.PeriodKey
			}
			issues = append(issues, err)
			value = math.NaN()
		}
		bySeg[rec.SegmentID] = append(bySeg[rec.SegmentID], obs{period: period, value: value})
	}

	for _, err := range issues {
		var dq *contracts.DataQualityError
		ev := r.log.Warn().Err(err).Str("stage", contracts.StageIngest.String())
		if errors.As(err, &dq) {
			ev = ev.Int("segment", dq.Segment).Str("period", dq.Period)
		}
		ev.Msg("segment row rejected")
	}

	out := make(map[int]SegmentSeries, contracts.MaxSegment)
	for _, seg := range contracts.AllSegments() {
		rows := bySeg[seg]
		sort.Slice(rows, func(i, j int) bool { return rows[i].period.Before(rows[j].period) })
		s := SegmentSeries{
			Segment: seg,
			Periods: make([]contracts.Period, len(rows)),
			Values:  make([]float64, len(rows)),
		}
		for i, o := range rows {
			s.Periods[i] = o.period
			s.Values[i] = o.value
		}
		out[seg] = s
	}

	r.log.Info().
		Int("records", len(records)).
		Int("rejected", len(issues)).
		Str("stage", contracts.StageIngest.String()).
		Msg("segment records partitioned")

	return out, issues
}

// Merge left-joins each segment series to the macro snapshots on the period key.
// 거시 매칭이 없는 행은 NaN 거시값을 받고 FeatureEngine 의 NaN 제거에서 빠짐.
// 결과는 항상 1..5 전체 키를 가짐 (행이 없는 세그먼트는 빈 테이블).
func (r *SegmentRepository) Merge(series map[int]SegmentSeries, macro []contracts.MacroSnapshot) map[int]contracts.ModelingTable {
	byPeriod := make(map[contracts.Period]contracts.MacroSnapshot, len(macro))
	for _, m := range macro {
		byPeriod[m.Period] = m
	}

	out := make(map[int]contracts.ModelingTable, contracts.MaxSegment)
	for _, seg := range contracts.AllSegments() {
		s := series[seg]
		n := len(s.Periods)
		t := contracts.ModelingTable{
			Periods:          append([]contracts.Period(nil), s.Periods...),
			OutputLevel:      make([]float64, n),
			PriceIndexCycle:  make([]float64, n),
			UnemploymentDiff: make([]float64, n),
			InflationDiff:    make([]float64, n),
			Target:           append(make([]float64, 0, n), s.Values...),
		}
		unmatched := 0
		for i, p := range s.Periods {
			m, ok := byPeriod[p]
			if !ok {
				unmatched++
				t.OutputLevel[i] = math.NaN()
				t.PriceIndexCycle[i] = math.NaN()
				t.UnemploymentDiff[i] = math.NaN()
				t.InflationDiff[i] = math.NaN()
				continue
			}
			t.OutputLevel[i] = m.OutputLevel
			t.PriceIndexCycle[i] = m.PriceIndexDiffHP
			t.UnemploymentDiff[i] = m.UnemploymentDiff
			t.InflationDiff[i] = m.InflationDiff
		}
		if unmatched > 0 {
			r.log.Warn().
				Int("segment", seg).
				Int("unmatched", unmatched).
				Str("stage", contracts.StageMerge.String()).
				Msg("segment periods without macro match")
		}
		out[seg] = t
	}
	return out
}
