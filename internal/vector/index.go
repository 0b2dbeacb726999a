// Package vector provides vector indexes with explicit int64 IDs and
// inner-product similarity search.
package vector

import "context"

// Index stores embeddings under explicit vector IDs and answers k-NN queries.
// Vectors are expected to be L2-normalized before insertion so that inner
// product equals cosine similarity. Inserting a vector under an ID that is
// already live is undefined; callers remove the old ID first.
type Index interface {
	// Add inserts vectors under the given IDs. len(ids) must equal len(vectors).
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	// Remove deletes the given IDs. Removing an absent ID is a no-op.
	Remove(ctx context.Context, ids []int64) error
	// Search returns up to k hits ordered by inner product, descending.
	// An empty index yields an empty result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	// Save persists the index to path. Not atomic; see the snapshot store.
	Save(path string) error
	// Load replaces the index contents from path. A missing file leaves the
	// index unchanged and returns nil.
	Load(path string) error
	// Size returns the number of live vectors.
	Size() int
	Close() error
	Type() string
}

// Hit is a single search result.
type Hit struct {
	ID    int64
	Score float64
}
