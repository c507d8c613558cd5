package quality

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// Repository handles data quality snapshot persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot saves a data quality snapshot for a run
func (r *Repository) SaveSnapshot(ctx context.Context, runID string, snapshot *contracts.DataQualitySnapshot) error {
	query := `
		INSERT INTO ccf.data_quality_snapshots (
			run_id, snapshot_time, quality_score, total_rows, valid_rows, rejected_rows,
			indicator_coverage, macro_coverage, segment_coverage, passed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			snapshot_time = EXCLUDED.snapshot_time,
			quality_score = EXCLUDED.quality_score,
			total_rows = EXCLUDED.total_rows,
			valid_rows = EXCLUDED.valid_rows,
			rejected_rows = EXCLUDED.rejected_rows,
			indicator_coverage = EXCLUDED.indicator_coverage,
			macro_coverage = EXCLUDED.macro_coverage,
			segment_coverage = EXCLUDED.segment_coverage,
			passed = EXCLUDED.passed
	`

	_, err := r.pool.Exec(ctx, query,
		runID,
		snapshot.Date,
		snapshot.QualityScore,
		snapshot.TotalRows,
		snapshot.ValidRows,
		snapshot.Rejected,
		snapshot.Coverage["indicator"],
		snapshot.Coverage["macro"],
		snapshot.Coverage["segments"],
		snapshot.Passed,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent quality snapshot
func (r *Repository) GetLatest(ctx context.Context) (*contracts.DataQualitySnapshot, error) {
	query := `
		SELECT
			snapshot_time, quality_score, total_rows, valid_rows, rejected_rows,
			indicator_coverage, macro_coverage, segment_coverage, passed
		FROM ccf.data_quality_snapshots
		ORDER BY snapshot_time DESC
		LIMIT 1
	`

	snapshot := &contracts.DataQualitySnapshot{
		Coverage: make(map[string]float64),
	}

	var indicatorCov, macroCov, segmentCov float64

	err := r.pool.QueryRow(ctx, query).Scan(
		&snapshot.Date,
		&snapshot.QualityScore,
		&snapshot.TotalRows,
		&snapshot.ValidRows,
		&snapshot.Rejected,
		&indicatorCov,
		&macroCov,
		&segmentCov,
		&snapshot.Passed,
	)
	if err != nil {
		return nil, fmt.Errorf("get latest quality snapshot: %w", err)
	}

	snapshot.Coverage["indicator"] = indicatorCov
	snapshot.Coverage["macro"] = macroCov
	snapshot.Coverage["segments"] = segmentCov

	return snapshot, nil
}

// EnsureSchema creates the snapshot table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS ccf`); err != nil {
		return fmt.Errorf("ensure ccf schema: %w", err)
	}
	ddl := `
		CREATE TABLE IF NOT EXISTS ccf.data_quality_snapshots (
			run_id             TEXT PRIMARY KEY,
			snapshot_time      TIMESTAMPTZ NOT NULL,
			quality_score      DOUBLE PRECISION NOT NULL,
			total_rows         INTEGER NOT NULL,
			valid_rows         INTEGER NOT NULL,
			rejected_rows      INTEGER NOT NULL,
			indicator_coverage DOUBLE PRECISION NOT NULL,
			macro_coverage     DOUBLE PRECISION NOT NULL,
			segment_coverage   DOUBLE PRECISION NOT NULL,
			passed             BOOLEAN NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure quality schema: %w", err)
	}
	return nil
}
