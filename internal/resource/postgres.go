package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgStore struct {
	db  *pgxpool.Pool
	dim int
}

func NewPgStore(db *pgxpool.Pool, dim int) *PgStore {
	return &PgStore{db: db, dim: dim}
}

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS resource (
			id          TEXT PRIMARY KEY,
			namespace   TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL DEFAULT '',
			link        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dim),
		`ALTER TABLE resource ADD COLUMN IF NOT EXISTS source TEXT NOT NULL DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS resource_namespace_idx ON resource (namespace)`,
		`CREATE INDEX IF NOT EXISTS resource_source_idx ON resource (namespace, source)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure resource schema: %w", err)
		}
	}
	return nil
}

func (s *PgStore) Upsert(ctx context.Context, rec Record) error {
	if len(rec.Embedding) != s.dim {
		return fmt.Errorf("embedding size %d (expected %d)", len(rec.Embedding), s.dim)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO resource (id, namespace, source, title, link, description, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			namespace   = EXCLUDED.namespace,
			source      = EXCLUDED.source,
			title       = EXCLUDED.title,
			link        = EXCLUDED.link,
			description = EXCLUDED.description,
			embedding   = EXCLUDED.embedding,
			updated_at  = EXCLUDED.updated_at
	`,
		rec.ID,
		rec.Namespace,
		rec.Source,
		rec.Title,
		rec.Link,
		rec.Description,
		pgvector.NewVector(rec.Embedding),
		rec.UpdatedAt,
	)
	return err
}

// Nearest orders by L2 distance within one namespace.
func (s *PgStore) Nearest(ctx context.Context, namespace string, embedding []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 1
	}

	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx, `
		SELECT id, title, link, description, embedding <-> $2 AS distance
		FROM resource
		WHERE namespace = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`, namespace, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID,
			&m.Metadata.Title,
			&m.Metadata.Link,
			&m.Metadata.Description,
			&m.Score,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (s *PgStore) DeleteSource(ctx context.Context, namespace, source string) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM resource WHERE namespace = $1 AND source = $2`, namespace, source)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgStore) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM resource WHERE namespace = $1`, namespace).Scan(&n)
	return n, err
}

func (s *PgStore) Close() error {
	s.db.Close()
	return nil
}
