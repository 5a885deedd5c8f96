package resource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps resources in a single SQLite file and ranks them by
// brute-force cosine similarity. Fine for a few thousand resources.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "./data/resources.db"
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS resources (
		id          TEXT PRIMARY KEY,
		namespace   TEXT NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL DEFAULT '',
		link        TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		embedding   BLOB NOT NULL,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_resources_namespace ON resources(namespace);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	// files created before the source column existed
	_, err = s.db.ExecContext(ctx, `ALTER TABLE resources ADD COLUMN source TEXT NOT NULL DEFAULT ''`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return fmt.Errorf("adding source column: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_resources_source ON resources(namespace, source)`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	embeddingJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO resources (id, namespace, source, title, link, description, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Namespace, rec.Source, rec.Title, rec.Link, rec.Description, embeddingJSON, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting resource: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Nearest(ctx context.Context, namespace string, embedding []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, link, description, embedding
		FROM resources
		WHERE namespace = ?
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m             Match
			embeddingJSON []byte
			vec           []float32
		)
		if err := rows.Scan(&m.ID, &m.Metadata.Title, &m.Metadata.Link, &m.Metadata.Description, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &vec); err != nil {
			continue
		}
		m.Score = cosineSimilarity(embedding, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, namespace, source string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM resources WHERE namespace = ? AND source = ?", namespace, source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources WHERE namespace = ?", namespace).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
