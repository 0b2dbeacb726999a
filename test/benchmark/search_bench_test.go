package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/vecid"
	"github.com/artisan-point/listingsearch/internal/vector"
)

func BenchmarkFlatIndexSearch(b *testing.B) {
	idx, _ := vector.NewFlatIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	ids := make([]int64, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
		vecs[i][1] = 1
		vector.Normalize(vecs[i])
		ids[i] = int64(i + 1)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "handmade walnut serving bowl kitchen tableware")
	}
}

func BenchmarkVectorID(b *testing.B) {
	keys := make([]string, 64)
	for i := range keys {
		keys[i] = fmt.Sprintf("listing-%04d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vecid.VectorID(keys[i%len(keys)])
	}
}
