package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/report"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/internal/s2_features"
	"github.com/wonny/ifrs9-ccf/internal/s3_training"
)

// StationarityReport S1 검정 결과 전체
type StationarityReport struct {
	Macro      []s1_stationarity.Result
	Candidates []s1_stationarity.Result
	Decisions  []s1_stationarity.Decision
}

// Results flattens macro, candidate and segment tests in report order
func (r StationarityReport) Results() []s1_stationarity.Result {
	out := make([]s1_stationarity.Result, 0, len(r.Macro)+len(r.Candidates)+2*len(r.Decisions))
	out = append(out, r.Macro...)
	out = append(out, r.Candidates...)
	return append(out, s1_stationarity.Results(r.Decisions)...)
}

// TrainReport 학습 실행 결과
type TrainReport struct {
	RunID        string
	ConfigHash   string
	Stationarity StationarityReport
	Quality      *contracts.DataQualitySnapshot
	Segments     []s3_training.SegmentResult // 세그먼트 id 순
	Summary      []contracts.SummaryRow
	Files        []string
}

// analysis S0→S2 중간 결과
type analysis struct {
	macro       []contracts.MacroSnapshot
	raw         map[int]s0_data.SegmentSeries
	transformed map[int]s0_data.SegmentSeries
	rejected    int
	report      StationarityReport
}

// Train runs Ingest → DecideTransform → Merge → Train → Persist under a fresh run id
func (p *Pipeline) Train(ctx context.Context) (*TrainReport, error) {
	return p.train(ctx, uuid.NewString())
}

// Stationarity runs only Ingest → DecideTransform and writes stationarity.csv
func (p *Pipeline) Stationarity(ctx context.Context) (StationarityReport, string, error) {
	snap, err := p.collector.Collect(ctx, s0_data.TableSegments, s0_data.TableMacro)
	if err != nil {
		return StationarityReport{}, "", fmt.Errorf("ingest: %w", err)
	}
	a, err := p.analyze(snap.Segments, snap.Macro)
	if err != nil {
		return StationarityReport{}, "", err
	}
	path, err := report.WriteStationarity(p.env.Paths.OutputDir, a.report.Results())
	if err != nil {
		return a.report, "", err
	}
	return a.report, path, nil
}

func (p *Pipeline) train(ctx context.Context, runID string) (*TrainReport, error) {
	log := p.log.WithFields(map[string]interface{}{
		"run_id":      runID,
		"config_hash": p.configHash,
	})
	log.Info("Training run started")

	// ===== S0: Ingest =====
	snap, err := p.collector.Collect(ctx, s0_data.TableSegments, s0_data.TableMacro)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	// ===== S1: DecideTransform =====
	a, err := p.analyze(snap.Segments, snap.Macro)
	if err != nil {
		return nil, err
	}

	// ===== S2: Merge =====
	tables := p.segments.Merge(a.transformed, a.macro)

	rep := &TrainReport{RunID: runID, ConfigHash: p.configHash, Stationarity: a.report}
	rep.Quality = p.gate.Check(p.now(), tables, a.rejected)
	qlog := log.WithFields(map[string]interface{}{
		"quality_score": rep.Quality.QualityScore,
		"valid_rows":    rep.Quality.ValidRows,
		"rejected_rows": rep.Quality.Rejected,
		"stage":         contracts.StageMerge.String(),
	})
	if rep.Quality.Passed {
		qlog.Info("Data quality gate passed")
	} else {
		qlog.Warn("Data quality gate below threshold, training continues")
	}
	if p.snapshots != nil {
		if err := p.snapshots.SaveSnapshot(ctx, runID, rep.Quality); err != nil {
			log.WithError(err).Error("Failed to save quality snapshot")
		}
	}

	// ===== S3: Train =====
	prov := artifact.Provenance{
		FeatureVersion: s2_features.FeatureVersion(),
		ConfigHash:     p.configHash,
		RunID:          runID,
		TrainedAt:      p.now().UTC(),
	}
	rep.Segments = p.trainer.Train(ctx, tables, prov)
	rep.Summary = s3_training.SummaryRows(rep.Segments)

	// ===== S4: Persist (summary + stationarity) =====
	out := p.env.Paths.OutputDir
	path, err := report.WriteSummary(out, rep.Summary)
	if err != nil {
		return rep, err
	}
	rep.Files = append(rep.Files, path)
	if path, err = report.WriteStationarity(out, a.report.Results()); err != nil {
		return rep, err
	}
	rep.Files = append(rep.Files, path)

	if p.reports != nil {
		if err := p.reports.SaveSummary(ctx, rep.Summary); err != nil {
			log.WithError(err).Error("Failed to save training summary")
		}
	}

	log.WithFields(map[string]interface{}{
		"success": len(rep.Summary),
		"failed":  len(rep.Segments) - len(rep.Summary),
		"total":   len(rep.Segments),
		"stage":   contracts.StagePersist.String(),
	}).Info("Training run completed")

	if len(rep.Summary) == 0 {
		return rep, fmt.Errorf("%w: no segment trained", contracts.ErrDataQuality)
	}
	return rep, nil
}

// analyze prepares the macro history, partitions the segments and decides the transforms
func (p *Pipeline) analyze(records []contracts.SegmentRecord, macroRows []contracts.MacroRecord) (*analysis, error) {
	history := s0_data.FilterFrom(macroRows, p.model.Cutoff())
	macro, err := s2_features.PrepareMacro(history, p.decomposer)
	if err != nil {
		return nil, fmt.Errorf("prepare macro: %w", err)
	}
	if len(macro) == 0 {
		return nil, fmt.Errorf("%w: no complete macro period from %s", contracts.ErrDataQuality, p.model.Cutoff())
	}

	raw, rejected := p.segments.Partition(records)
	transformed, decisions := p.decider.Decide(raw)

	// 수준 계열은 차분으로 잃는 첫 분기 없이 이력 그대로 검정
	series := s1_stationarity.MacroSeries(macro)
	for name, x := range s1_stationarity.LevelSeries(history) {
		series[name] = x
	}
	// 후보 변환은 차분 물가지수 (HP 전 원 계열) 에 대해서만
	return &analysis{
		macro:       macro,
		raw:         raw,
		transformed: transformed,
		rejected:    len(rejected),
		report: StationarityReport{
			Macro:      p.analyzer.TestAll(s1_stationarity.KindMacro, series),
			Candidates: p.analyzer.Candidates("IPL_diff1", series["IPL_diff1"], p.decomposer.Lambda()),
			Decisions:  decisions,
		},
	}, nil
}
