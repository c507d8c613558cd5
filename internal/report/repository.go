package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// Repository 학습 요약 + 시나리오 예측 Postgres 적재 (DATABASE_URL 설정 시)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the report tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE SCHEMA IF NOT EXISTS ccf`,
		`CREATE TABLE IF NOT EXISTS ccf.training_summary (
			run_id      TEXT NOT NULL,
			segment     SMALLINT NOT NULL,
			r2_ensemble DOUBLE PRECISION,
			r2_linear   DOUBLE PRECISION,
			violations  TEXT[] NOT NULL,
			features    TEXT[] NOT NULL,
			trained_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, segment)
		)`,
		`CREATE TABLE IF NOT EXISTS ccf.scenario_predictions (
			run_id       TEXT NOT NULL,
			scenario     TEXT NOT NULL,
			segment      SMALLINT NOT NULL,
			period       TEXT NOT NULL,
			period_start DATE NOT NULL,
			ccf_ensemble DOUBLE PRECISION NOT NULL,
			ccf_linear   DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, scenario, segment, period)
		)`,
	}
	for _, q := range ddl {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure report schema: %w", err)
		}
	}
	return nil
}

// SaveSummary 요약 행 일괄 저장
func (r *Repository) SaveSummary(ctx context.Context, rows []contracts.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO ccf.training_summary
			(run_id, segment, r2_ensemble, r2_linear, violations, features, trained_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, segment) DO UPDATE SET
			r2_ensemble = EXCLUDED.r2_ensemble,
			r2_linear = EXCLUDED.r2_linear,
			violations = EXCLUDED.violations,
			features = EXCLUDED.features,
			trained_at = EXCLUDED.trained_at`

	for _, row := range rows {
		violations := row.Violations
		if violations == nil {
			violations = []string{}
		}
		batch.Queue(query, row.RunID, row.Segment, nullable(row.R2Ensemble), nullable(row.R2Linear),
			violations, row.Features, row.TrainedAt)
	}

	return r.send(ctx, batch, len(rows), "save training summary")
}

// SavePredictions 한 시나리오의 예측 행 일괄 저장
func (r *Repository) SavePredictions(ctx context.Context, runID string, rows []contracts.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO ccf.scenario_predictions
			(run_id, scenario, segment, period, period_start, ccf_ensemble, ccf_linear)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, scenario, segment, period) DO UPDATE SET
			ccf_ensemble = EXCLUDED.ccf_ensemble,
			ccf_linear = EXCLUDED.ccf_linear`

	for _, row := range rows {
		batch.Queue(query, runID, row.Scenario, row.Segment, row.Period.String(), row.Period.Start(),
			row.Ensemble, row.Linear)
	}

	return r.send(ctx, batch, len(rows), "save predictions")
}

func (r *Repository) send(ctx context.Context, batch *pgx.Batch, n int, op string) error {
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s (row %d): %w", op, i, err)
		}
	}
	return nil
}

// nullable NaN → NULL
func nullable(v float64) *float64 {
	if contracts.IsMissing(v) {
		return nil
	}
	return &v
}
