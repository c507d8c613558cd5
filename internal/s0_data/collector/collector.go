// Package collector S0 원천 테이블 (세그먼트 / 거시 이력 / 시나리오) 동시 수집
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

// Sources 원천 파일 경로
type Sources struct {
	SegmentFile  string
	MacroFile    string
	ScenarioFile string
}

// Collector orchestrates reading the source tables
// ⭐ SSOT: 원천 테이블 수집은 이 패키지에서만
type Collector struct {
	sources Sources
	logger  *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(sources Sources, log *logger.Logger) *Collector {
	return &Collector{
		sources: sources,
		logger:  log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of one table read
type FetchResult struct {
	Table    string
	Path     string
	Rows     int
	Rejected []error // 건너뛴 행 (DataQualityError)
	Duration time.Duration
	Error    error
}

// Snapshot 수집된 원천 테이블 (요청하지 않은 테이블은 비어 있음)
type Snapshot struct {
	Segments  []contracts.SegmentRecord
	Macro     []contracts.MacroRecord
	Scenarios contracts.ScenarioTable
	Results   []FetchResult // 요청 순서
}

// Rejected returns every skipped row across tables, in request order
func (s *Snapshot) Rejected() []error {
	var out []error
	for _, r := range s.Results {
		out = append(out, r.Rejected...)
	}
	return out
}

// Collect reads the requested tables concurrently (s0_data.TableSegments / TableMacro / TableScenario).
// 하나라도 실패하면 모든 실패를 묶은 error 반환, 성공한 테이블은 Snapshot 에 남음
func (c *Collector) Collect(ctx context.Context, tables ...string) (*Snapshot, error) {
	c.logger.WithFields(map[string]interface{}{
		"tables": tables,
		"stage":  contracts.StageIngest.String(),
	}).Info("Starting source collection")

	snap := &Snapshot{Results: make([]FetchResult, len(tables))}
	var mu sync.Mutex // snap 필드 보호

	type task struct {
		idx   int
		table string
	}
	taskCh := make(chan task, len(tables))
	for i, t := range tables {
		taskCh <- task{idx: i, table: t}
	}
	close(taskCh)

	// 결과는 인덱스로 수집 (공유 슬라이스에 append 하지 않음)
	var wg sync.WaitGroup
	for i := 0; i < len(tables); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range taskCh {
				snap.Results[tk.idx] = c.fetch(ctx, tk.table, snap, &mu)
			}
		}()
	}
	wg.Wait()

	var errs []error
	successCount := 0
	for _, r := range snap.Results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Table, r.Error))
			continue
		}
		successCount++
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  len(errs),
		"total":   len(snap.Results),
	}).Info("Source collection completed")

	return snap, errors.Join(errs...)
}

// fetch reads one table
func (c *Collector) fetch(ctx context.Context, table string, snap *Snapshot, mu *sync.Mutex) FetchResult {
	res := FetchResult{Table: table}
	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	start := time.Now()
	switch table {
	case s0_data.TableSegments:
		res.Path = c.sources.SegmentFile
		rows, err := s0_data.ReadSegments(res.Path)
		res.Rows, res.Error = len(rows), err
		mu.Lock()
		snap.Segments = rows
		mu.Unlock()
	case s0_data.TableMacro:
		res.Path = c.sources.MacroFile
		rows, rejected, err := s0_data.ReadMacro(res.Path)
		res.Rows, res.Rejected, res.Error = len(rows), rejected, err
		mu.Lock()
		snap.Macro = rows
		mu.Unlock()
	case s0_data.TableScenario:
		res.Path = c.sources.ScenarioFile
		t, rejected, err := s0_data.ReadScenarios(res.Path)
		res.Rows, res.Rejected, res.Error = len(t.Dates), rejected, err
		mu.Lock()
		snap.Scenarios = t
		mu.Unlock()
	default:
		res.Error = fmt.Errorf("unknown table %q", table)
	}
	res.Duration = time.Since(start)

	fields := map[string]interface{}{
		"table":    table,
		"path":     res.Path,
		"rows":     res.Rows,
		"rejected": len(res.Rejected),
		"duration": res.Duration.String(),
	}
	for _, rerr := range res.Rejected {
		c.logger.WithError(rerr).WithFields(map[string]interface{}{
			"table": table,
			"stage": contracts.StageIngest.String(),
		}).Warn("source row rejected")
	}
	if res.Error != nil {
		c.logger.WithError(res.Error).WithFields(fields).Error("Failed to read source table")
		return res
	}
	c.logger.WithFields(fields).Info("Source table read")
	return res
}
