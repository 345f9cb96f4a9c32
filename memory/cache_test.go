package memory_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
	"github.com/Gabrielmcp78/mem0-sub001/memory/embedder/mock"
)

// countingEmbedder counts calls into the wrapped embedder.
type countingEmbedder struct {
	inner   memory.Embedder
	embeds  atomic.Int64
	batches atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches.Add(1)
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func TestCachedEmbedder_Embed(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: mock.New(32)}

	cached, err := memory.NewCachedEmbedder(counting, 100)
	if err != nil {
		t.Fatalf("Failed to create cached embedder: %v", err)
	}
	defer cached.Close()

	first, err := cached.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	cached.Wait()

	second, err := cached.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if got := counting.embeds.Load(); got != 1 {
		t.Errorf("Expected 1 inner embed call, got %d", got)
	}
	if len(first) != len(second) {
		t.Fatalf("Vector length changed between calls")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("Cached embedding differs from original")
		}
	}
}

func TestCachedEmbedder_EmbedBatchPartialHit(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: mock.New(32)}

	cached, err := memory.NewCachedEmbedder(counting, 100)
	if err != nil {
		t.Fatalf("Failed to create cached embedder: %v", err)
	}
	defer cached.Close()

	if _, err := cached.Embed(ctx, "alpha"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	cached.Wait()

	embs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(embs))
	}
	for i, emb := range embs {
		if len(emb) != 32 {
			t.Errorf("Vector %d has wrong size %d", i, len(emb))
		}
	}

	// "alpha" was cached; only the two misses go through the inner batch.
	if got := counting.batches.Load(); got != 1 {
		t.Errorf("Expected 1 inner batch call, got %d", got)
	}

	want, _ := counting.inner.Embed(ctx, "alpha")
	for i := range want {
		if embs[0][i] != want[i] {
			t.Fatal("Cached vector for alpha does not match direct embedding")
		}
	}
}

func TestCachedEmbedder_Dimensions(t *testing.T) {
	cached, err := memory.NewCachedEmbedder(mock.New(48), 10)
	if err != nil {
		t.Fatalf("Failed to create cached embedder: %v", err)
	}
	defer cached.Close()

	if cached.Dimensions() != 48 {
		t.Errorf("Expected dimensions 48, got %d", cached.Dimensions())
	}
}
