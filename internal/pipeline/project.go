package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/report"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/internal/s4_projection"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

// ProjectReport 시나리오 예측 실행 결과
type ProjectReport struct {
	RunID     string
	Family    contracts.ModelFamily // 실적+예측 차트에 그린 계열
	Scenarios []s4_projection.ScenarioResult
	Files     []string
}

// Rows returns the number of prediction rows across scenarios
func (r *ProjectReport) Rows() int {
	n := 0
	for _, s := range r.Scenarios {
		n += len(s.Rows)
	}
	return n
}

// RunReport 학습 + 예측 연속 실행 결과
type RunReport struct {
	Train   *TrainReport
	Project *ProjectReport
}

// Project replays every scenario through the persisted artifacts.
// family 가 비어 있으면 report.chart_family 사용
func (p *Pipeline) Project(ctx context.Context, family contracts.ModelFamily) (*ProjectReport, error) {
	return p.project(ctx, uuid.NewString(), family)
}

// Run trains then projects under one run id
func (p *Pipeline) Run(ctx context.Context, family contracts.ModelFamily) (*RunReport, error) {
	runID := uuid.NewString()
	train, err := p.train(ctx, runID)
	if err != nil {
		return &RunReport{Train: train}, err
	}
	proj, err := p.project(ctx, runID, family)
	return &RunReport{Train: train, Project: proj}, err
}

func (p *Pipeline) project(ctx context.Context, runID string, family contracts.ModelFamily) (*ProjectReport, error) {
	if family == "" {
		family = p.model.ChartFamily()
	}
	log := p.log.WithFields(map[string]interface{}{
		"run_id": runID,
		"family": string(family),
		"stage":  contracts.StageProject.String(),
	})
	log.Info("Scenario projection started")

	// 세그먼트 이력은 차트 실적선 용도 (실패해도 예측은 계속)
	snap, _ := p.collector.Collect(ctx, s0_data.TableScenario, s0_data.TableSegments)
	if err := snap.Results[0].Error; err != nil {
		return nil, fmt.Errorf("ingest scenarios: %w", err)
	}
	var history map[int]s0_data.SegmentSeries
	if snap.Results[1].Error == nil {
		history, _ = p.segments.Partition(snap.Segments)
	} else {
		log.WithError(snap.Results[1].Error).Warn("Segment history unavailable, charts without history")
	}

	rep := &ProjectReport{RunID: runID, Family: family}
	rep.Scenarios = p.projector.Project(ctx, snap.Scenarios, contracts.AllSegments())

	out := p.env.Paths.OutputDir
	byScenario := make(map[string][]contracts.PredictionRow, len(rep.Scenarios))
	var errs []error
	for _, res := range rep.Scenarios {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		byScenario[res.Scenario] = res.Rows

		path, err := report.WritePredictions(out, res.Scenario, res.Rows)
		if err != nil {
			return rep, err
		}
		rep.Files = append(rep.Files, path)

		if p.reports != nil {
			if err := p.reports.SavePredictions(ctx, runID, res.Rows); err != nil {
				log.WithError(err).WithField("scenario", res.Scenario).Error("Failed to save predictions")
			}
		}
	}

	if p.model.Report.Charts {
		rep.Files = append(rep.Files, p.charts(log, family, history, byScenario)...)
	}

	log.WithFields(map[string]interface{}{
		"success": len(byScenario),
		"failed":  len(errs),
		"total":   len(rep.Scenarios),
		"rows":    rep.Rows(),
	}).Info("Scenario projection completed")

	if rep.Rows() == 0 {
		errs = append(errs, fmt.Errorf("%w: no segment artifacts usable for projection", contracts.ErrArtifactMissing))
		return rep, errors.Join(errs...)
	}
	return rep, nil
}

// charts 차트 실패는 로그만 (CSV 가 기준 산출물)
func (p *Pipeline) charts(log *logger.Logger, family contracts.ModelFamily,
	history map[int]s0_data.SegmentSeries, rows map[string][]contracts.PredictionRow) []string {
	out := p.env.Paths.OutputDir
	size := p.chartSize()
	scenarios := p.model.Scenarios.Scenarios

	var files []string
	for _, seg := range contracts.AllSegments() {
		trained := false
		for _, name := range scenarios {
			trained = trained || hasSegment(rows[name], seg)
		}
		if !trained {
			continue
		}
		h := history[seg]
		path, err := report.WriteHistoryChart(out, size, seg, family,
			report.Series{Periods: h.Periods, Values: h.Values}, scenarios, rows)
		if err != nil {
			log.WithError(err).WithField("segment", seg).Warn("Failed to draw history chart")
		} else {
			files = append(files, path)
		}

		for _, name := range scenarios {
			if !hasSegment(rows[name], seg) {
				continue
			}
			path, err := report.WriteScenarioChart(out, size, name, seg, rows[name])
			if err != nil {
				log.WithError(err).WithFields(map[string]interface{}{"segment": seg, "scenario": name}).Warn("Failed to draw scenario chart")
				continue
			}
			files = append(files, path)
		}
	}
	return files
}

func hasSegment(rows []contracts.PredictionRow, seg int) bool {
	for _, r := range rows {
		if r.Segment == seg {
			return true
		}
	}
	return false
}
