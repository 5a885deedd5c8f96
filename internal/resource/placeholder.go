package resource

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// PlaceholderEmbedder returns random vectors. The values carry no meaning, so
// lookups through it are effectively random; it only exists for running the
// resource feature without an embedding model.
type PlaceholderEmbedder struct {
	dim int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPlaceholderEmbedder(dim int) *PlaceholderEmbedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &PlaceholderEmbedder{
		dim: dim,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *PlaceholderEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]float32, p.dim)
	for i := range out {
		out[i] = p.rnd.Float32()
	}
	return out, nil
}
