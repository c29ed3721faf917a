// Package postgres provides Postgres-backed run persistence.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/placescout/placescout/internal/scout"
)

// RunStoreConfig controls the Postgres connection pool used for runs.
type RunStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RunStore persists runs and their serialized results in the runs table.
type RunStore struct {
	pool querier
}

// NewRunStore creates a Postgres-backed RunStore using the provided config.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{pool: pool}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(pool querier) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateRun inserts a new run row.
func (s *RunStore) CreateRun(ctx context.Context, run scout.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	const query = `
INSERT INTO runs (
	id,
	query,
	location,
	max_results,
	detailed_results,
	status,
	started_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.pool.Exec(ctx, query,
		run.ID,
		run.Params.Query,
		run.Params.Location,
		run.Params.MaxResults,
		run.Params.DetailedResults,
		string(run.Status),
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRunStatus transitions a run's status.
func (s *RunStore) UpdateRunStatus(ctx context.Context, id string, status scout.RunStatus, errText string) error {
	const query = `UPDATE runs SET status = $2, error_text = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(status), errText)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scout.ErrRunNotFound
	}
	return nil
}

// CompleteRun records the terminal status and the serialized result.
func (s *RunStore) CompleteRun(ctx context.Context, id string, status scout.RunStatus, errText string, result *scout.RunResult, duration time.Duration) error {
	var (
		resultJSON  []byte
		resultCount int
		err         error
	)
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal run result: %w", err)
		}
		resultCount = result.TotalResults
	}

	const query = `
UPDATE runs SET
	status = $2,
	error_text = $3,
	finished_at = $4,
	duration_ms = $5,
	result_count = $6,
	result = $7
WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		id,
		string(status),
		errText,
		time.Now().UTC(),
		duration.Milliseconds(),
		resultCount,
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scout.ErrRunNotFound
	}
	return nil
}

const runColumns = `id, query, location, max_results, detailed_results, status, error_text, started_at, finished_at, result_count, duration_ms`

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (scout.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM runs WHERE id = $1`, runColumns)
	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return scout.Run{}, scout.ErrRunNotFound
	}
	if err != nil {
		return scout.Run{}, fmt.Errorf("select run: %w", err)
	}
	return run, nil
}

// GetRunResult fetches a completed run's serialized result. A known run
// without a result yet returns nil.
func (s *RunStore) GetRunResult(ctx context.Context, id string) (*scout.RunResult, error) {
	const query = `SELECT result FROM runs WHERE id = $1`
	var raw []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scout.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select run result: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var result scout.RunResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal run result: %w", err)
	}
	return &result, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]scout.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM runs ORDER BY started_at DESC LIMIT $1`, runColumns)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []scout.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (scout.Run, error) {
	var (
		run     scout.Run
		status  string
		errText *string
	)
	err := row.Scan(
		&run.ID,
		&run.Params.Query,
		&run.Params.Location,
		&run.Params.MaxResults,
		&run.Params.DetailedResults,
		&status,
		&errText,
		&run.StartedAt,
		&run.FinishedAt,
		&run.ResultCount,
		&run.DurationMs,
	)
	if err != nil {
		return scout.Run{}, err
	}
	run.Status = scout.RunStatus(status)
	if errText != nil {
		run.ErrorText = *errText
	}
	return run, nil
}
