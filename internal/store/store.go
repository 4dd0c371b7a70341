// Package store persists tab sessions and execution results in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// ErrNotFound is returned when no row exists for the requested key.
var ErrNotFound = errors.New("not found")

// DBPool abstracts the pgxpool.Pool so tests can mock it.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides the PostgreSQL persistence layer.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveTabSession upserts the session state for a tab.
func (s *Store) SaveTabSession(ctx context.Context, tabID int, session *schemas.TabSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode tab session: %w", err)
	}

	sql := `
        INSERT INTO tab_sessions (key, session, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET
            session = EXCLUDED.session,
            updated_at = EXCLUDED.updated_at;
    `
	if _, err := s.pool.Exec(ctx, sql, schemas.StorageKey(tabID), raw, time.Now()); err != nil {
		return fmt.Errorf("failed to save tab session: %w", err)
	}
	return nil
}

// GetTabSession loads the session state for a tab.
func (s *Store) GetTabSession(ctx context.Context, tabID int) (*schemas.TabSession, error) {
	var raw []byte
	sql := `SELECT session FROM tab_sessions WHERE key = $1;`
	err := s.pool.QueryRow(ctx, sql, schemas.StorageKey(tabID)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: tab %d", ErrNotFound, tabID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tab session: %w", err)
	}

	var session schemas.TabSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode tab session: %w", err)
	}
	return &session, nil
}

// ClearTabSession removes the session state for a tab, e.g. on tab close.
func (s *Store) ClearTabSession(ctx context.Context, tabID int) error {
	sql := `DELETE FROM tab_sessions WHERE key = $1;`
	if _, err := s.pool.Exec(ctx, sql, schemas.StorageKey(tabID)); err != nil {
		return fmt.Errorf("failed to clear tab session: %w", err)
	}
	return nil
}

// SaveExecutionResult records the outcome of one application run. Aborted
// runs are stored as pending so a later run retries the job.
func (s *Store) SaveExecutionResult(ctx context.Context, env schemas.ResultEnvelope) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && rollbackErr != pgx.ErrTxClosed {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	softData, err := json.Marshal(env.SoftData)
	if err != nil {
		return fmt.Errorf("encode soft data: %w", err)
	}
	if len(env.SoftData) == 0 {
		softData = []byte("{}")
	}

	sql := `
        INSERT INTO execution_results (job_id, fingerprint, result, soft_data, source, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (job_id, fingerprint) DO UPDATE SET
            result = EXCLUDED.result,
            soft_data = execution_results.soft_data || EXCLUDED.soft_data,
            source = EXCLUDED.source,
            recorded_at = EXCLUDED.recorded_at;
    `
	if _, err := tx.Exec(ctx, sql,
		env.ID, env.Fingerprint, string(env.Result.Storable()),
		softData, env.Source, time.Now()); err != nil {
		return fmt.Errorf("failed to save execution result for job %s: %w", env.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExecutionResult returns the recorded result for a job, ErrNotFound when
// the job has never been attempted.
func (s *Store) GetExecutionResult(ctx context.Context, key schemas.JobKey) (schemas.ExecutionResult, error) {
	var result string
	sql := `SELECT result FROM execution_results WHERE job_id = $1 AND fingerprint = $2;`
	err := s.pool.QueryRow(ctx, sql, key.ID, key.Fingerprint).Scan(&result)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: job %s", ErrNotFound, key.ID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load execution result: %w", err)
	}
	return schemas.ExecutionResult(result), nil
}
