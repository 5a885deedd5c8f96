package resource

import (
	"context"
	"time"
)

const DefaultNamespace = "auto_loan_resources"

// Metadata is what a resource index stores next to each vector.
type Metadata struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// Record is one indexed resource. Source names the document it was cut from
// (a file path or page URL); all chunks of one document share it.
type Record struct {
	ID        string
	Namespace string
	Source    string
	Metadata
	Embedding []float32
	UpdatedAt time.Time
}

// Match is a nearest-neighbour hit. Score is the backend's distance or
// similarity; callers only rely on ordering.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Nearest(ctx context.Context, namespace string, embedding []float32, limit int) ([]Match, error)
}

// Store is an Index that can also be written to by the importer.
type Store interface {
	Index
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, rec Record) error
	// DeleteSource drops every record of source in namespace and reports how
	// many were removed.
	DeleteSource(ctx context.Context, namespace, source string) (int, error)
	Count(ctx context.Context, namespace string) (int, error)
	Close() error
}
