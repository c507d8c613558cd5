// Package s4_projection 거시 시나리오 재생 + 세그먼트별 CCF 예측 (S5)
package s4_projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/model"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/internal/s2_features"
)

// Config 예측 단계 설정
type Config struct {
	Scenarios []string `yaml:"names" json:"names"`     // CENT, PESS, OPT
	Workers   int      `yaml:"workers" json:"workers"` // 동시 시나리오 수
}

// DefaultConfig returns the three standard scenarios
func DefaultConfig() Config {
	return Config{Scenarios: contracts.DefaultScenarios(), Workers: 3}
}

// SegmentSkip 예측에서 빠진 세그먼트
type SegmentSkip struct {
	Segment int
	Err     error
}

// ScenarioResult 시나리오 1개의 예측 결과
type ScenarioResult struct {
	Scenario string
	Rows     []contracts.PredictionRow // 세그먼트 → 기간 순
	Skipped  []SegmentSkip
	Err      error // 시나리오 단위 실패 (컬럼 누락 등)
}

// segmentModels 세그먼트별로 한 번만 로드되는 아티팩트
type segmentModels struct {
	features []string
	ensemble model.Model
	linear   model.Model
}

// Projector 시나리오 예측기. 아티팩트 저장소는 읽기 전용으로만 사용
type Projector struct {
	cfg        Config
	repo       *artifact.Repository
	decomposer *s1_stationarity.CycleDecomposer
	version    string
	log        zerolog.Logger
}

// NewProjector creates a new Projector
func NewProjector(cfg Config, repo *artifact.Repository, decomposer *s1_stationarity.CycleDecomposer, log zerolog.Logger) *Projector {
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = contracts.DefaultScenarios()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Projector{
		cfg:        cfg,
		repo:       repo,
		decomposer: decomposer,
		version:    s2_features.FeatureVersion(),
		log:        log.With().Str("component", "s4_projection.projector").Logger(),
	}
}

// Project predicts every configured scenario for the given segments.
// 결과는 설정된 시나리오 순서를 따름
func (p *Projector) Project(ctx context.Context, table contracts.ScenarioTable, segments []int) []ScenarioResult {
	loaded, skipped := p.load(ctx, segments)

	results := make([]ScenarioResult, len(p.cfg.Scenarios))
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, name := range p.cfg.Scenarios {
		g.Go(func() error {
			results[i] = p.projectScenario(ctx, table, name, segments, loaded, skipped)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// load 세그먼트 아티팩트를 한 번 읽음. 누락은 여기서 한 번만 로그
func (p *Projector) load(ctx context.Context, segments []int) (map[int]*segmentModels, map[int]error) {
	loaded := make(map[int]*segmentModels, len(segments))
	skipped := make(map[int]error)

	for _, seg := range segments {
		m, err := p.loadSegment(ctx, seg)
		if err != nil {
			skipped[seg] = err
			ev := p.log.Warn()
			if !errors.Is(err, contracts.ErrArtifactMissing) && !errors.Is(err, contracts.ErrArtifactMismatch) {
				ev = p.log.Error()
			}
			ev.Err(err).
				Int("segment", seg).
				Str("stage", contracts.StageProject.String()).
				Msg("segment artifacts unavailable, skipping segment for all scenarios")
			continue
		}
		loaded[seg] = m
	}
	return loaded, skipped
}

func (p *Projector) loadSegment(ctx context.Context, seg int) (*segmentModels, error) {
	arts, err := p.repo.LoadSegment(ctx, seg, p.version, contracts.FamilyEnsemble, contracts.FamilyLinear)
	if err != nil {
		return nil, err
	}
	return &segmentModels{
		features: arts.Set.Features,
		ensemble: arts.Models[contracts.FamilyEnsemble],
		linear:   arts.Models[contracts.FamilyLinear],
	}, nil
}

func (p *Projector) projectScenario(ctx context.Context, table contracts.ScenarioTable, name string, segments []int,
	loaded map[int]*segmentModels, skipped map[int]error) ScenarioResult {
	log := p.log.With().Str("scenario", name).Str("stage", contracts.StageProject.String()).Logger()
	res := ScenarioResult{Scenario: name}

	fail := func(err error) ScenarioResult {
		res.Err = fmt.Errorf("scenario %s: %w", name, err)
		log.Error().Err(err).Msg("scenario skipped")
		return res
	}

	frame, err := p.Features(table, name)
	if err != nil {
		return fail(err)
	}
	if frame.Len() == 0 {
		return fail(fmt.Errorf("%w: no complete rows after feature warm-up", contracts.ErrDataQuality))
	}

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err, ok := skipped[seg]; ok {
			res.Skipped = append(res.Skipped, SegmentSkip{Segment: seg, Err: err})
			continue
		}
		rows, err := predictSegment(frame, seg, name, loaded[seg])
		if err != nil {
			log.Error().Err(err).Int("segment", seg).Msg("segment prediction failed, skipping")
			res.Skipped = append(res.Skipped, SegmentSkip{Segment: seg, Err: err})
			continue
		}
		res.Rows = append(res.Rows, rows...)
	}

	log.Info().
		Int("rows", len(res.Rows)).
		Int("periods", frame.Len()).
		Int("skipped_segments", len(res.Skipped)).
		Msg("scenario projected")
	return res
}

// Features replays one scenario through the training feature path
// ⭐ SSOT: ExtractScenario → PrepareMacro → FeatureEngine, 학습과 동일한 함수
func (p *Projector) Features(table contracts.ScenarioTable, name string) (*s2_features.Frame, error) {
	traj, err := s0_data.ExtractScenario(table, name)
	if err != nil {
		return nil, err
	}
	snaps, err := s2_features.PrepareMacro(traj.Rows, p.decomposer)
	if err != nil {
		return nil, err
	}
	return s2_features.Enrich(contracts.TableFromSnapshots(snaps))
}

func predictSegment(frame *s2_features.Frame, seg int, scenario string, m *segmentModels) ([]contracts.PredictionRow, error) {
	x, err := frame.Matrix(m.features)
	if err != nil {
		return nil, &contracts.ArtifactError{Segment: seg, Key: artifact.FeatureSetKey(seg), Err: err}
	}
	ens, err := m.ensemble.Predict(x)
	if err != nil {
		return nil, err
	}
	lin, err := m.linear.Predict(x)
	if err != nil {
		return nil, err
	}

	// 두 계열 모두 유한한 행만 (구성상 동일하지만 교집합으로 맞춤)
	rows := make([]contracts.PredictionRow, 0, frame.Len())
	for i, period := range frame.Periods {
		if contracts.IsMissing(ens[i]) || contracts.IsMissing(lin[i]) {
			continue
		}
		rows = append(rows, contracts.PredictionRow{
			Period:   period,
			Segment:  seg,
			Scenario: scenario,
			Ensemble: ens[i],
			Linear:   lin[i],
		})
	}
	return rows, nil
}
