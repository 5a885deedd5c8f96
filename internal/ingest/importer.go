// Package ingest loads financial resources into a resource index: local
// documents, a crawled site, or a watched directory.
package ingest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/josinaldojr/finlit-quiz/internal/resource"
)

const (
	defaultChunkSize = 2000
	descriptionLen   = 280
)

type Importer struct {
	store     resource.Store
	embedder  resource.Embedder
	namespace string
	chunkSize int
	client    *http.Client
}

func NewImporter(store resource.Store, embedder resource.Embedder, namespace string) *Importer {
	if strings.TrimSpace(namespace) == "" {
		namespace = resource.DefaultNamespace
	}
	return &Importer{
		store:     store,
		embedder:  embedder,
		namespace: namespace,
		chunkSize: defaultChunkSize,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (im *Importer) Namespace() string { return im.namespace }

// storeDocument replaces every record previously cut from source with one
// record per chunk of content. It returns how many records were written.
func (im *Importer) storeDocument(ctx context.Context, title, link, source, content string) (int, error) {
	if _, err := im.forget(ctx, source); err != nil {
		return 0, err
	}

	chunks := splitIntoChunks(content, im.chunkSize)
	stored := 0

	for i, c := range chunks {
		chunkTitle := title
		if len(chunks) > 1 {
			chunkTitle = fmt.Sprintf("%s (part %d)", title, i+1)
		}

		vec, err := im.embedder.Embed(ctx, c)
		if err != nil {
			return stored, fmt.Errorf("embedding %q: %w", chunkTitle, err)
		}

		rec := resource.Record{
			ID:        resource.RecordID(im.namespace, source, chunkTitle),
			Namespace: im.namespace,
			Source:    source,
			Metadata: resource.Metadata{
				Title:       chunkTitle,
				Link:        link,
				Description: describe(c, descriptionLen),
			},
			Embedding: vec,
			UpdatedAt: time.Now(),
		}
		if err := im.store.Upsert(ctx, rec); err != nil {
			return stored, fmt.Errorf("upsert %q: %w", chunkTitle, err)
		}

		stored++
		log.Printf("[ingest] stored namespace=%s len=%d title=%s", im.namespace, len(c), chunkTitle)
	}

	return stored, nil
}

func (im *Importer) forget(ctx context.Context, source string) (int, error) {
	n, err := im.store.DeleteSource(ctx, im.namespace, source)
	if err != nil {
		return 0, fmt.Errorf("dropping old records of %s: %w", source, err)
	}
	if n > 0 {
		log.Printf("[ingest] dropped %d old records namespace=%s source=%s", n, im.namespace, source)
	}
	return n, nil
}
