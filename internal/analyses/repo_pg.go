package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tender-backend/internal/classify"
	"tender-backend/internal/payload"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Upsert inserts the analysis or replaces the previous attempt for the same
// document. The payload tree is serialized to a single text column.
func (r *PGRepo) Upsert(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, run_id, document_id, role, status, attempt, payload, trace,
	error_code, error_message, created_at, started_at, completed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (document_id) DO UPDATE SET
	id = EXCLUDED.id,
	status = EXCLUDED.status,
	attempt = EXCLUDED.attempt,
	payload = EXCLUDED.payload,
	trace = EXCLUDED.trace,
	error_code = EXCLUDED.error_code,
	error_message = EXCLUDED.error_message,
	started_at = EXCLUDED.started_at,
	completed_at = EXCLUDED.completed_at`

	var payloadText sql.NullString
	if analysis.Payload != nil {
		payloadText = sql.NullString{String: analysis.Payload.Encode(), Valid: true}
	}
	trace, err := json.Marshal(analysis.Trace)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.RunID,
		analysis.DocumentID,
		string(analysis.Role),
		analysis.Status,
		analysis.Attempt,
		payloadText,
		trace,
		nullIfEmpty(analysis.ErrorCode),
		analysis.ErrorMessage,
		analysis.CreatedAt,
		analysis.StartedAt,
		analysis.CompletedAt,
	)
	return err
}

// GetByID returns an analysis by its ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT id, run_id, document_id, role, status, attempt, payload, trace,
	error_code, error_message, created_at, started_at, completed_at
FROM analyses WHERE id = $1`
	return scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
}

// GetByDocument returns the latest analysis for a document.
func (r *PGRepo) GetByDocument(ctx context.Context, documentID string) (Analysis, error) {
	const query = `
SELECT id, run_id, document_id, role, status, attempt, payload, trace,
	error_code, error_message, created_at, started_at, completed_at
FROM analyses WHERE document_id = $1`
	return scanAnalysis(r.DB.QueryRowContext(ctx, query, documentID))
}

// ListByRun returns all analyses for a run ordered by creation time.
func (r *PGRepo) ListByRun(ctx context.Context, runID string) ([]Analysis, error) {
	const query = `
SELECT id, run_id, document_id, role, status, attempt, payload, trace,
	error_code, error_message, created_at, started_at, completed_at
FROM analyses WHERE run_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

// DeleteByRun removes every analysis belonging to a run.
func (r *PGRepo) DeleteByRun(ctx context.Context, runID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE run_id = $1`, runID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a           Analysis
		role        string
		payloadText sql.NullString
		trace       []byte
		errorCode   sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.RunID, &a.DocumentID, &role, &a.Status, &a.Attempt,
		&payloadText, &trace, &errorCode, &a.ErrorMessage,
		&a.CreatedAt, &a.StartedAt, &a.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	a.Role = classify.Role(role)
	if payloadText.Valid {
		node, err := payload.Parse(payloadText.String)
		if err != nil {
			return Analysis{}, err
		}
		a.Payload = node
	}
	if len(trace) > 0 {
		if err := json.Unmarshal(trace, &a.Trace); err != nil {
			return Analysis{}, err
		}
	}
	if errorCode.Valid {
		a.ErrorCode = errorCode.String
	}
	return a, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
