package mock

import (
	"context"
	"math"
	"testing"
)

func TestEmbedDeterministic(t *testing.T) {
	ctx := context.Background()
	m := New(64)

	a, err := m.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := m.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != 64 {
		t.Fatalf("Expected 64 dimensions, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Identical text must embed identically")
		}
	}

	c, _ := m.Embed(ctx, "goodbye world")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Different text should embed differently")
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	emb, err := New(128).Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var norm float64
	for _, v := range emb {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("Expected unit vector, got norm %f", math.Sqrt(norm))
	}
}

func TestEmbedBatch(t *testing.T) {
	ctx := context.Background()
	m := New(32)

	embs, err := m.EmbedBatch(ctx, []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(embs))
	}

	single, _ := m.Embed(ctx, "two")
	for i := range single {
		if embs[1][i] != single[i] {
			t.Fatal("Batch embedding must match single embedding")
		}
	}
}

func TestDefaultDimensions(t *testing.T) {
	if got := New(0).Dimensions(); got != 384 {
		t.Errorf("Expected default 384 dimensions, got %d", got)
	}
}
