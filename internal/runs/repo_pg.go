package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tender-backend/internal/classify"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/memory"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// CreateRun inserts the run.
func (r *PGRepo) CreateRun(ctx context.Context, run Run) error {
	const query = `
INSERT INTO runs (id, cross_analysis, memory, created_at, last_access_at)
VALUES ($1, NULL, NULL, $2, $3)`
	_, err := r.DB.ExecContext(ctx, query, run.ID, run.CreatedAt, run.LastAccessAt)
	return err
}

// GetRun returns the run with its documents.
func (r *PGRepo) GetRun(ctx context.Context, runID string) (Run, error) {
	const query = `
SELECT id, cross_analysis, memory, created_at, last_access_at
FROM runs WHERE id = $1`
	var (
		run       Run
		crossText sql.NullString
		memText   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, runID).Scan(
		&run.ID, &crossText, &memText, &run.CreatedAt, &run.LastAccessAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if crossText.Valid {
		var cross crossanalysis.CrossAnalysis
		if err := json.Unmarshal([]byte(crossText.String), &cross); err != nil {
			return Run{}, err
		}
		run.CrossAnalysis = &cross
	}
	if memText.Valid {
		var mem memory.TechnicalMemory
		if err := json.Unmarshal([]byte(memText.String), &mem); err != nil {
			return Run{}, err
		}
		run.Memory = &mem
	}

	docs, err := r.ListDocuments(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	run.Documents = docs
	return run, nil
}

// Touch updates the run's last access timestamp.
func (r *PGRepo) Touch(ctx context.Context, runID string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE runs SET last_access_at = $2 WHERE id = $1`, runID, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendDocument adds a document to its run.
func (r *PGRepo) AppendDocument(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, run_id, file_name, role, source, content, tables, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	tables, err := json.Marshal(doc.Tables)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		doc.ID, doc.RunID, doc.FileName, string(doc.Role), string(doc.Source),
		doc.Text, tables, doc.CreatedAt,
	)
	return err
}

// ListDocuments returns a run's documents in creation order.
func (r *PGRepo) ListDocuments(ctx context.Context, runID string) ([]Document, error) {
	const query = `
SELECT id, run_id, file_name, role, source, content, tables, created_at
FROM documents WHERE run_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc    Document
			role   string
			source string
			tables []byte
		)
		if err := rows.Scan(&doc.ID, &doc.RunID, &doc.FileName, &role, &source, &doc.Text, &tables, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Role = classify.Role(role)
		doc.Source = classify.Source(source)
		if len(tables) > 0 {
			if err := json.Unmarshal(tables, &doc.Tables); err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetCrossAnalysis replaces the run's cross-analysis slot in one write.
func (r *PGRepo) SetCrossAnalysis(ctx context.Context, runID string, cross crossanalysis.CrossAnalysis) error {
	data, err := json.Marshal(cross)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE runs SET cross_analysis = $2 WHERE id = $1`, runID, string(data))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetMemory replaces the run's technical memory slot in one write.
func (r *PGRepo) SetMemory(ctx context.Context, runID string, mem memory.TechnicalMemory) error {
	data, err := json.Marshal(mem)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE runs SET memory = $2 WHERE id = $1`, runID, string(data))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListPurgeable returns run IDs whose last access is before the cutoff.
func (r *PGRepo) ListPurgeable(ctx context.Context, lastAccessBefore time.Time) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM runs WHERE last_access_at < $1 ORDER BY id`, lastAccessBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRun removes the run and its documents.
func (r *PGRepo) DeleteRun(ctx context.Context, runID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE run_id = $1`, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, runID); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
