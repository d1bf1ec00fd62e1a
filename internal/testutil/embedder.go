package testutil

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
)

// FakeEmbedder is a deterministic in-memory embedder for tests. Texts
// registered with Set embed to the exact vector given; any other text
// embeds to a pseudo-random unit vector seeded from its hash, so the
// same text always maps to the same vector and unrelated texts land far
// apart in cosine space.
type FakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	vectors map[string][]float32

	// Err, when set, is returned by every Embed call. Used to drive
	// embedding-failure paths.
	Err error
}

// NewFakeEmbedder creates a FakeEmbedder producing vectors of the given
// dimensionality.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{dim: dim, vectors: make(map[string][]float32)}
}

// Set pins the embedding for an exact text. Vectors shorter than the
// embedder's dimensionality are zero-padded.
func (e *FakeEmbedder) Set(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	padded := make([]float32, e.dim)
	copy(padded, vec)
	e.vectors[text] = padded
}

// Embed implements the embedder contract used by the retrieval store.
func (e *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if vec, ok := e.vectors[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) // #nosec G404 -- deterministic test data
	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return vec, nil
}
