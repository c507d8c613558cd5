// Package s3_training 세그먼트별 피처 선택 + RF/OLS 학습 + 잔차 진단 (S3/S4)
package s3_training

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/model"
	"github.com/wonny/ifrs9-ccf/internal/s2_features"
	"github.com/wonny/ifrs9-ccf/internal/stats"
)

// MinTrainingRows 피처 생성 후 최소 행 수 (Shapiro-Wilk 최소 표본)
const MinTrainingRows = 3

// Config 학습 단계 설정
type Config struct {
	Workers     int                `yaml:"workers" json:"workers"`         // 5
	FitTimeout  time.Duration      `yaml:"fit_timeout" json:"fit_timeout"` // 세그먼트당 2m
	Forest      model.ForestConfig `yaml:"forest" json:"forest"`
	Diagnostics DiagnosticsConfig  `yaml:"diagnostics" json:"diagnostics"`
}

// DefaultConfig returns training defaults
func DefaultConfig() Config {
	return Config{
		Workers:     5,
		FitTimeout:  2 * time.Minute,
		Forest:      model.DefaultForestConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// SegmentResult 세그먼트 학습 결과 (성공 시 Row/Diagnostics, 실패 시 Err)
type SegmentResult struct {
	Segment     int
	Row         *contracts.SummaryRow
	Diagnostics *contracts.DiagnosticsReport
	Err         error
}

// Trainer 세그먼트 모델 학습기
// ⭐ SSOT: 세그먼트 간 공유 상태는 아티팩트 저장소(세그먼트별 키)뿐
type Trainer struct {
	cfg  Config
	repo *artifact.Repository
	log  zerolog.Logger
}

// NewTrainer creates a new Trainer
func NewTrainer(cfg Config, repo *artifact.Repository, log zerolog.Logger) *Trainer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Trainer{
		cfg:  cfg,
		repo: repo,
		log:  log.With().Str("component", "s3_training.trainer").Logger(),
	}
}

// Train fits every segment concurrently and returns results ordered by segment id.
// 세그먼트 오류는 결과에 담기고 다른 세그먼트 학습을 막지 않음
func (t *Trainer) Train(ctx context.Context, tables map[int]contracts.ModelingTable, prov artifact.Provenance) []SegmentResult {
	segments := make([]int, 0, len(tables))
	for seg := range tables {
		segments = append(segments, seg)
	}
	sort.Ints(segments)

	t.log.Info().
		Int("segments", len(segments)).
		Int("workers", t.cfg.Workers).
		Str("run_id", prov.RunID).
		Str("stage", contracts.StageTrain.String()).
		Msg("starting segment training")

	results := make([]SegmentResult, len(segments))
	var g errgroup.Group
	g.SetLimit(t.cfg.Workers)
	for i, seg := range segments {
		g.Go(func() error {
			results[i] = t.trainWithDeadline(ctx, seg, tables[seg], prov)
			return nil
		})
	}
	_ = g.Wait()

	success, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			success++
		}
	}
	t.log.Info().
		Int("success", success).
		Int("failed", failed).
		Int("total", len(results)).
		Msg("segment training completed")

	return results
}

func (t *Trainer) trainWithDeadline(ctx context.Context, seg int, table contracts.ModelingTable, prov artifact.Provenance) SegmentResult {
	log := t.log.With().Int("segment", seg).Str("stage", contracts.StageTrain.String()).Logger()

	if t.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.FitTimeout)
		defer cancel()
	}

	done := make(chan SegmentResult, 1)
	go func() {
		done <- t.trainSegment(ctx, seg, table, prov, log)
	}()

	var res SegmentResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = SegmentResult{Segment: seg, Err: fmt.Errorf("segment %d: %w", seg, ctx.Err())}
	}

	if res.Err != nil {
		log.Error().Err(res.Err).Msg("segment training failed, skipping")
	}
	return res
}

func (t *Trainer) trainSegment(ctx context.Context, seg int, table contracts.ModelingTable, prov artifact.Provenance, log zerolog.Logger) SegmentResult {
	fail := func(err error) SegmentResult {
		return SegmentResult{Segment: seg, Err: err}
	}

	if !table.HasTarget() {
		return fail(&contracts.DataQualityError{Segment: seg, Field: "indicator", Err: errors.New("no target column")})
	}
	frame, err := s2_features.Enrich(table)
	if err != nil {
		return fail(fmt.Errorf("segment %d features: %w", seg, err))
	}
	if frame.Len() < MinTrainingRows {
		return fail(&contracts.DataQualityError{Segment: seg, Field: "rows", Value: fmt.Sprint(frame.Len()),
			Err: fmt.Errorf("need at least %d complete rows after feature warm-up", MinTrainingRows)})
	}

	xAll, err := frame.Matrix(frame.Names)
	if err != nil {
		return fail(err)
	}
	y := frame.Target

	// 1. 전체 피처 RF → 중요도 기반 선택
	full := model.NewForest(t.cfg.Forest)
	if err := full.FitContext(ctx, xAll, y); err != nil {
		return fail(fmt.Errorf("segment %d ensemble: %w", seg, err))
	}
	set, err := model.SelectByImportance(seg, frame.Names, full.Importances())
	if err != nil {
		return fail(fmt.Errorf("segment %d selection: %w", seg, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	xSel, err := frame.Matrix(set.Features)
	if err != nil {
		return fail(err)
	}

	// 2. 선택 피처로 RF 재학습
	rf := model.NewForest(t.cfg.Forest)
	if err := rf.FitContext(ctx, xSel, y); err != nil {
		return fail(fmt.Errorf("segment %d ensemble refit: %w", seg, err))
	}
	rfPred, err := rf.Predict(xSel)
	if err != nil {
		return fail(err)
	}

	// 3. 같은 피처로 OLS (독립 선택 없음)
	lin := model.NewLinear()
	if err := lin.Fit(xSel, y); err != nil {
		return fail(fmt.Errorf("segment %d linear: %w", seg, err))
	}
	ols := lin.Result()
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// 4. 잔차 진단
	tests, violations := Diagnose(t.cfg.Diagnostics, ols.Residuals, stats.WithIntercept(xSel))
	for _, o := range tests {
		if o.Indeterminate {
			log.Warn().Str("test", o.Name).Str("reason", o.Reason).Msg("residual test indeterminate")
		}
	}

	// 5. 저장
	if err := t.repo.SaveSegment(ctx, set, prov, rf, lin); err != nil {
		return fail(fmt.Errorf("segment %d persist: %w", seg, err))
	}

	r2rf := stats.RSquared(y, rfPred)
	diag := &contracts.DiagnosticsReport{
		Segment:    seg,
		R2Ensemble: r2rf,
		R2Linear:   ols.R2,
		Tests:      tests,
		Violations: violations,
	}
	row := &contracts.SummaryRow{
		Segment:    seg,
		R2Ensemble: r2rf,
		R2Linear:   ols.R2,
		Violations: violations,
		Features:   set.Features,
		RunID:      prov.RunID,
		TrainedAt:  prov.TrainedAt,
	}

	log.Info().
		Int("rows", frame.Len()).
		Int("features", len(set.Features)).
		Float64("r2_ensemble", r2rf).
		Float64("r2_linear", ols.R2).
		Strs("violations", violations).
		Msg("segment trained")

	return SegmentResult{Segment: seg, Row: row, Diagnostics: diag}
}

// SummaryRows 성공한 세그먼트 요약 (세그먼트 순)
func SummaryRows(results []SegmentResult) []contracts.SummaryRow {
	rows := make([]contracts.SummaryRow, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Row != nil {
			rows = append(rows, *r.Row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Segment < rows[j].Segment })
	return rows
}
