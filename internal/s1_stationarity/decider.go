package s1_stationarity

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
)

// Decision 세그먼트별 변환 결정
type Decision struct {
	Segment     int     `json:"segment"`
	Raw         Result  `json:"raw"`
	Substituted bool    `json:"substituted"` // 지표 → HP 순환 대체 여부
	Forced      bool    `json:"forced"`      // force_cycle_segments 로 강제됨
	Cycle       *Result `json:"cycle,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Decider 세그먼트 지표의 정상성 검정 → 비정상이면 HP 순환 성분으로 대체
// ⭐ SSOT: 대체는 분해가 반환한 유효 인덱스에서 기간 단위로만 수행
type Decider struct {
	analyzer   *Analyzer
	decomposer *CycleDecomposer
	force      map[int]bool
	minCycle   int
	log        zerolog.Logger
}

// NewDecider creates a Decider
func NewDecider(cfg Config, analyzer *Analyzer, decomposer *CycleDecomposer, log zerolog.Logger) *Decider {
	force := make(map[int]bool, len(cfg.ForceCycleSegments))
	for _, s := range cfg.ForceCycleSegments {
		force[s] = true
	}
	return &Decider{
		analyzer:   analyzer,
		decomposer: decomposer,
		force:      force,
		minCycle:   cfg.MinCycleObs,
		log:        log.With().Str("component", "s1_stationarity.decider").Logger(),
	}
}

// Decide returns transformed copies of the series plus one decision per segment (ordered by id).
// 비정상(p ≥ 유의수준) 또는 강제 세그먼트는 대체, indeterminate 는 원 시계열 유지.
func (d *Decider) Decide(series map[int]s0_data.SegmentSeries) (map[int]s0_data.SegmentSeries, []Decision) {
	out := make(map[int]s0_data.SegmentSeries, len(series))
	decisions := make([]Decision, 0, len(series))

	for _, seg := range contracts.AllSegments() {
		s, ok := series[seg]
		if !ok {
			continue
		}
		dec, transformed := d.decideOne(s)
		out[seg] = transformed
		decisions = append(decisions, dec)
	}
	return out, decisions
}

func (d *Decider) decideOne(s s0_data.SegmentSeries) (Decision, s0_data.SegmentSeries) {
	log := d.log.With().Int("segment", s.Segment).Str("stage", contracts.StageDecideTransform.String()).Logger()

	_, vals := s.Valid()
	raw := d.analyzer.Test(KindSegmentRaw, segmentSeriesName(s.Segment), vals)
	raw.Segment = s.Segment
	d.analyzer.logResult(raw)

	dec := Decision{Segment: s.Segment, Raw: raw, Forced: d.force[s.Segment]}

	switch {
	case dec.Forced:
		dec.Reason = "forced by configuration"
	case raw.Status == StatusNonStationary:
		dec.Reason = "raw indicator has a unit root"
	case raw.Status == StatusIndeterminate:
		dec.Reason = "raw test indeterminate, keeping raw indicator"
		log.Warn().Str("reason", raw.Reason).Msg("stationarity indeterminate")
		return dec, s
	default:
		dec.Reason = "raw indicator is stationary"
		return dec, s
	}

	comp, err := d.decomposer.Decompose(segmentSeriesName(s.Segment), s.Segment, s.Values)
	if err != nil {
		dec.Reason = fmt.Sprintf("hp decomposition failed, keeping raw indicator: %v", err)
		log.Error().Err(err).Msg("cycle substitution skipped")
		return dec, s
	}
	transformed, err := s.Substitute(comp.Index, comp.Cycle)
	if err != nil {
		dec.Reason = fmt.Sprintf("cycle substitution failed, keeping raw indicator: %v", err)
		log.Error().Err(err).Msg("cycle substitution skipped")
		return dec, s
	}
	dec.Substituted = true

	cycleRes := Result{
		Kind:      KindSegmentCycle,
		Series:    segmentSeriesName(s.Segment) + "_cycle",
		Status:    StatusIndeterminate,
		Statistic: math.NaN(),
		PValue:    math.NaN(),
	}
	if len(comp.Cycle) < d.minCycle {
		cycleRes.Reason = fmt.Sprintf("only %d cycle observations, need %d", len(comp.Cycle), d.minCycle)
		cycleRes.NObs = len(comp.Cycle)
	} else {
		cycleRes = d.analyzer.Test(KindSegmentCycle, cycleRes.Series, comp.Cycle)
	}
	cycleRes.Segment = s.Segment
	d.analyzer.logResult(cycleRes)
	dec.Cycle = &cycleRes

	log.Info().
		Bool("forced", dec.Forced).
		Int("substituted_periods", len(comp.Index)).
		Msg("indicator substituted by hp cycle")
	return dec, transformed
}

func segmentSeriesName(seg int) string {
	return fmt.Sprintf("segment_%d", seg)
}

// Results flattens decisions into report rows (raw then cycle)
func Results(decisions []Decision) []Result {
	out := make([]Result, 0, 2*len(decisions))
	for _, d := range decisions {
		out = append(out, d.Raw)
		if d.Cycle != nil {
			out = append(out, *d.Cycle)
		}
	}
	return out
}
