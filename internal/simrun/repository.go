package simrun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ubi-africa/ridesim/internal/simcore"
)

// RunRepository persists Run records, following the teacher's raw-SQL,
// JSON-marshaled-nested-field repository pattern.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository constructs a RunRepository over an existing pool.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Create inserts a new run record.
func (r *RunRepository) Create(ctx context.Context, run Run) error {
	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO simulation_runs (
			id, seed, config, metrics, started_at, finished_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.Seed, configJSON, metricsJSON, run.StartedAt, run.FinishedAt,
	)
	return err
}

// GetByID retrieves a run record by its id.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (Run, error) {
	query := `
		SELECT id, seed, config, metrics, started_at, finished_at
		FROM simulation_runs WHERE id = $1`

	var (
		run                     Run
		configJSON, metricsJSON []byte
		started, finished       sql.NullTime
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Seed, &configJSON, &metricsJSON, &started, &finished,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, simcore.ErrRunNotFound
		}
		return Run{}, err
	}

	if started.Valid {
		run.StartedAt = started.Time
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if err := json.Unmarshal(configJSON, &run.Config); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
		return Run{}, err
	}
	return run, nil
}

// CreateRunsTable creates the simulation_runs table (for testing/migrations),
// mirroring the teacher's CreateRidesTable convention.
func (r *RunRepository) CreateRunsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			id UUID PRIMARY KEY,
			seed BIGINT NOT NULL,
			config JSONB NOT NULL,
			metrics JSONB NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_simulation_runs_started_at ON simulation_runs(started_at);
	`
	_, err := r.pool.Exec(ctx, query)
	return err
}
