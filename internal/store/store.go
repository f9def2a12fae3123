// Package store persists run records to PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DBPool = (*pgxpool.Pool)(nil)

// Store provides a PostgreSQL implementation of schemas.RunStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.RunStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id UUID PRIMARY KEY,
    task TEXT NOT NULL,
    app TEXT NOT NULL,
    task_name TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    succeeded BOOLEAN NOT NULL,
    captured_states INTEGER NOT NULL,
    dataset_path TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS step_outcomes (
    run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    description TEXT NOT NULL,
    status TEXT NOT NULL,
    attempts_used INTEGER NOT NULL,
    final_action TEXT NOT NULL,
    final_target TEXT NOT NULL,
    reason TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);`

const insertRunSQL = `
INSERT INTO runs (id, task, app, task_name, started_at, finished_at, succeeded, captured_states, dataset_path, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

const insertOutcomeSQL = `
INSERT INTO step_outcomes (run_id, position, description, status, attempts_used, final_action, final_target, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

const listRunsSQL = `
SELECT id, task, app, task_name, started_at, finished_at, succeeded, captured_states, dataset_path, error
FROM runs
ORDER BY started_at DESC
LIMIT $1;`

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the run tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun writes the run and its step outcomes in one transaction.
func (s *Store) SaveRun(ctx context.Context, run schemas.RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, insertRunSQL,
		run.ID, run.Task, run.App, run.TaskName,
		run.StartedAt, run.FinishedAt, run.Succeeded,
		run.CapturedStates, run.DatasetPath, run.Error,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, o := range run.Outcomes {
		if _, err := tx.Exec(ctx, insertOutcomeSQL,
			run.ID, i+1, o.Description, string(o.Status), o.AttemptsUsed,
			string(o.FinalAction), o.FinalTarget, o.Reason,
		); err != nil {
			return fmt.Errorf("failed to insert outcome %d of run %s: %w", i+1, run.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Run persisted.", zap.String("run_id", run.ID), zap.Int("outcomes", len(run.Outcomes)))
	return nil
}

// ListRuns returns the most recent runs without their step outcomes.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]schemas.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []schemas.RunRecord
	for rows.Next() {
		var r schemas.RunRecord
		if err := rows.Scan(
			&r.ID, &r.Task, &r.App, &r.TaskName,
			&r.StartedAt, &r.FinishedAt, &r.Succeeded,
			&r.CapturedStates, &r.DatasetPath, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return runs, nil
}
