package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// Retriever ranks stored chunks by cosine similarity to the query embedding
type Retriever struct {
	store    *Store
	embedder core.Embedder
	logger   *zap.Logger
}

// NewRetriever creates a new retriever
func NewRetriever(store *Store, embedder core.Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Retrieve returns the k chunks most similar to the query, best first
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]core.Passage, error) {
	if k <= 0 {
		return []core.Passage{}, nil
	}

	chunks, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		r.logger.Warn("Knowledge index is empty", zap.String("path", r.store.path))
		return []core.Passage{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	passages := make([]core.Passage, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, core.Passage{
			Source: c.Source,
			Text:   c.Content,
			Score:  cosine(vectors[0], c.Embedding),
		})
	}
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// cosine returns the cosine similarity of two vectors, 0 when undefined
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
