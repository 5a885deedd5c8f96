package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josinaldojr/finlit-quiz/internal/db"
)

// DefaultDimensions matches the vector length the resource index was first
// provisioned with.
const DefaultDimensions = 512

// OpenStore picks a backend from the URL scheme: postgres:// or
// postgresql:// for pgvector, sqlite:// or file: for an embedded SQLite file.
func OpenStore(ctx context.Context, rawURL string, dim int) (Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	if dim <= 0 {
		dim = DefaultDimensions
	}

	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		pool, err := db.NewPool(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return NewPgStore(pool, dim), nil

	case strings.HasPrefix(rawURL, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(rawURL, "sqlite://"))

	case strings.HasPrefix(rawURL, "file:"):
		return NewSQLiteStore(rawURL)

	default:
		return nil, fmt.Errorf("unsupported resource index url %q", rawURL)
	}
}

// RecordID derives a stable id so re-importing the same resource overwrites it.
func RecordID(namespace, source, title string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"|"+source+"|"+title)).String()
}
