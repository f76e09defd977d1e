package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one indexed analysis. Metadata columns hold scalars only; the
// structured analysis payload is serialized to a single text column.
type Entry struct {
	ID         string
	RunID      string
	DocumentID string
	Role       string
	FileName   string
	Payload    string
	Embedding  []float32
	CreatedAt  time.Time
}

// Match is a similarity search hit.
type Match struct {
	Entry Entry
	Score float64
}

// Filter restricts the search corpus. Zero-value fields are unconstrained,
// so the zero Filter searches globally. ExcludeRunID keeps a run's own
// entries out of its historical comparisons.
type Filter struct {
	RunID        string
	ExcludeRunID string
	Role         string
}

// Index stores analysis embeddings in a local SQLite file and answers
// cosine-similarity queries over them.
type Index struct {
	db *sql.DB
}

// Open initializes the index at the given path, creating the file and its
// parent directory as needed.
func Open(path string) (*Index, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS analysis_vectors (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		role TEXT NOT NULL,
		file_name TEXT NOT NULL,
		payload TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_run ON analysis_vectors(run_id);
	CREATE INDEX IF NOT EXISTS idx_vectors_role ON analysis_vectors(role);
	`
	_, err := i.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}

// Add stores or replaces an entry.
func (i *Index) Add(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return errors.New("entry ID is required")
	}
	if len(entry.Embedding) == 0 {
		return errors.New("entry embedding is required")
	}
	const query = `
	INSERT OR REPLACE INTO analysis_vectors
		(id, run_id, document_id, role, file_name, payload, embedding, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := i.db.ExecContext(ctx, query,
		entry.ID, entry.RunID, entry.DocumentID, entry.Role, entry.FileName,
		entry.Payload, encodeEmbedding(entry.Embedding), entry.CreatedAt.UTC(),
	)
	return err
}

// Search returns the topK entries most similar to the query embedding,
// best first. Entries with a zero-magnitude embedding never match.
func (i *Index) Search(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	query := `SELECT id, run_id, document_id, role, file_name, payload, embedding, created_at FROM analysis_vectors`
	var (
		conds []string
		args  []any
	)
	if filter.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.ExcludeRunID != "" {
		conds = append(conds, "run_id != ?")
		args = append(args, filter.ExcludeRunID)
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	for n, c := range conds {
		if n == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			e    Entry
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.DocumentID, &e.Role, &e.FileName, &e.Payload, &blob, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Embedding = decodeEmbedding(blob)
		score := cosine(embedding, e.Embedding)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Entry: e, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score == matches[b].Score {
			return matches[a].Entry.ID < matches[b].Entry.ID
		}
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByRun removes every entry belonging to a run.
func (i *Index) DeleteByRun(ctx context.Context, runID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM analysis_vectors WHERE run_id = ?`, runID)
	return err
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
