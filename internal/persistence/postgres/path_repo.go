package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/almrun/internal/persistence"
)

// Schema creates the table written by the path repository
const Schema = `
CREATE TABLE IF NOT EXISTS path_records (
	run_id     TEXT        NOT NULL,
	scenario   TEXT        NOT NULL,
	path       INTEGER     NOT NULL,
	kind       TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	timestep   INTEGER     NOT NULL,
	fields     JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, path, kind, key, timestep)
)`

// pathRepo implements PathRepo for PostgreSQL
type pathRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPathRepo creates a new PostgreSQL path repository
func NewPathRepo(db *sqlx.DB, timeout time.Duration) persistence.PathRepo {
	return &pathRepo{
		db:      db,
		timeout: timeout,
	}
}

// Write stores a finished path atomically; re-writing a path replaces its rows
func (r *pathRepo) Write(ctx context.Context, rows []persistence.Row) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_records (run_id, scenario, path, kind, key, timestep, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, path, kind, key, timestep) DO UPDATE SET
			scenario = EXCLUDED.scenario,
			fields = EXCLUDED.fields`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		fieldsJSON, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields for %s %s t=%d: %w", row.Kind, row.Key, row.Timestep, err)
		}

		_, err = stmt.ExecContext(ctx,
			row.RunID, row.Scenario, row.Path, row.Kind, row.Key, row.Timestep, fieldsJSON)
		if err != nil {
			return fmt.Errorf("failed to insert path record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit path records: %w", err)
	}
	return nil
}

// ListPath returns every row of one path
func (r *pathRepo) ListPath(ctx context.Context, runID string, path int) ([]persistence.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, scenario, path, kind, key, timestep, fields
		FROM path_records
		WHERE run_id = $1 AND path = $2
		ORDER BY kind, key, timestep`

	rows, err := r.db.QueryxContext(ctx, query, runID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query path records: %w", err)
	}
	defer rows.Close()

	var out []persistence.Row
	for rows.Next() {
		var row persistence.Row
		var fieldsJSON []byte
		if err := rows.Scan(&row.RunID, &row.Scenario, &row.Path, &row.Kind, &row.Key, &row.Timestep, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan path record: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &row.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate path records: %w", err)
	}
	return out, nil
}

// CountRun returns the number of stored rows for a run
func (r *pathRepo) CountRun(ctx context.Context, runID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM path_records WHERE run_id = $1`, runID); err != nil {
		return 0, fmt.Errorf("failed to count path records: %w", err)
	}
	return n, nil
}

// DeleteRun removes all rows of a run
func (r *pathRepo) DeleteRun(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM path_records WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}
