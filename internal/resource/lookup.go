package resource

import (
	"context"
	"log"
	"strings"

	"github.com/josinaldojr/finlit-quiz/internal/quiz"
)

const (
	defaultTitle = "Financial Resource"
	defaultLink  = "#"
)

// Lookup finds the resource closest to a reference text. It swallows every
// failure; a nil result just means no resource is attached.
type Lookup struct {
	embedder  Embedder
	index     Index
	namespace string
}

func NewLookup(embedder Embedder, index Index, namespace string) *Lookup {
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &Lookup{embedder: embedder, index: index, namespace: namespace}
}

func (l *Lookup) Enabled() bool {
	return l != nil && l.embedder != nil && l.index != nil
}

func (l *Lookup) FindResource(ctx context.Context, referenceText string) *quiz.ResourceRef {
	if !l.Enabled() {
		return nil
	}

	vec, err := l.embedder.Embed(ctx, referenceText)
	if err != nil {
		log.Printf("[resource] embedding reference text: %v", err)
		return nil
	}

	matches, err := l.index.Nearest(ctx, l.namespace, vec, 1)
	if err != nil {
		log.Printf("[resource] querying namespace=%s: %v", l.namespace, err)
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	return toRef(matches[0].Metadata)
}

func toRef(m Metadata) *quiz.ResourceRef {
	ref := &quiz.ResourceRef{
		Title:       strings.TrimSpace(m.Title),
		Link:        strings.TrimSpace(m.Link),
		Description: strings.TrimSpace(m.Description),
	}
	if ref.Title == "" {
		ref.Title = defaultTitle
	}
	if ref.Link == "" {
		ref.Link = defaultLink
	}
	return ref
}

var _ quiz.ResourceFinder = (*Lookup)(nil)
