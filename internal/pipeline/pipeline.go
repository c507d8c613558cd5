// Package pipeline 학습 배치 (S0→S4) + 시나리오 예측 (S5) 오케스트레이션
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/modelconfig"
	"github.com/wonny/ifrs9-ccf/internal/report"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/internal/s0_data/collector"
	"github.com/wonny/ifrs9-ccf/internal/s0_data/quality"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/internal/s3_training"
	"github.com/wonny/ifrs9-ccf/internal/s4_projection"
	"github.com/wonny/ifrs9-ccf/pkg/config"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

// Deps 외부 자원
type Deps struct {
	Store artifact.Store
	Pool  *pgxpool.Pool // nil 이면 Postgres 싱크 비활성
}

// Pipeline 단계 컴포넌트를 묶은 실행기
// ⭐ SSOT: 단계 순서와 run id 발급은 여기서만
type Pipeline struct {
	env        *config.Config
	model      *modelconfig.Config
	configHash string

	collector  *collector.Collector
	segments   *s0_data.SegmentRepository
	gate       *quality.QualityGate
	analyzer   *s1_stationarity.Analyzer
	decomposer *s1_stationarity.CycleDecomposer
	decider    *s1_stationarity.Decider
	artifacts  *artifact.Repository
	trainer    *s3_training.Trainer
	projector  *s4_projection.Projector

	reports   *report.Repository
	snapshots *quality.Repository

	log *logger.Logger
	now func() time.Time
}

// New wires every stage from the environment and model configuration
func New(env *config.Config, model *modelconfig.Config, deps Deps, log *logger.Logger) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline: artifact store is required")
	}
	if err := modelconfig.Validate(model); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	hash, err := modelconfig.Hash(model)
	if err != nil {
		return nil, fmt.Errorf("pipeline: hash model config: %w", err)
	}

	zl := log.Zerolog()
	decomposer := s1_stationarity.NewCycleDecomposer(model.Stationarity.HPLambda)
	analyzer := s1_stationarity.NewAnalyzer(model.Stationarity, zl)
	artifacts := artifact.NewRepository(deps.Store)

	p := &Pipeline{
		env:        env,
		model:      model,
		configHash: hash,
		collector: collector.NewCollector(collector.Sources{
			SegmentFile:  env.Paths.SegmentFile,
			MacroFile:    env.Paths.MacroFile,
			ScenarioFile: env.Paths.ScenarioFile,
		}, log),
		segments:   s0_data.NewSegmentRepository(zl),
		gate:       quality.NewQualityGate(model.Quality),
		analyzer:   analyzer,
		decomposer: decomposer,
		decider:    s1_stationarity.NewDecider(model.Stationarity, analyzer, decomposer, zl),
		artifacts:  artifacts,
		trainer:    s3_training.NewTrainer(model.Training, artifacts, zl),
		projector:  s4_projection.NewProjector(model.Scenarios, artifacts, decomposer, zl),
		log:        log.WithField("module", "pipeline"),
		now:        time.Now,
	}
	if deps.Pool != nil {
		p.reports = report.NewRepository(deps.Pool)
		p.snapshots = quality.NewRepository(deps.Pool)
	}
	return p, nil
}

// ConfigHash returns the SHA-256 of the model configuration
func (p *Pipeline) ConfigHash() string {
	return p.configHash
}

// EnsureSchema creates the Postgres sink tables (싱크 비활성 시 no-op)
func (p *Pipeline) EnsureSchema(ctx context.Context) error {
	if p.reports == nil {
		return nil
	}
	if err := p.snapshots.EnsureSchema(ctx); err != nil {
		return err
	}
	return p.reports.EnsureSchema(ctx)
}

func (p *Pipeline) chartSize() report.ChartSize {
	return report.ChartSize{WidthCm: p.model.Report.ChartWidthCm, HeightCm: p.model.Report.ChartHeightCm}
}
