package testprovider

import (
	"context"
	"math"
	"testing"
)

func TestEmbedIsDeterministic(t *testing.T) {
	p := New(16)
	a, err := p.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := p.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic embedding, differed at index %d", i)
		}
	}
}

func TestEmbedIsUnitNorm(t *testing.T) {
	p := New(8)
	v, err := p.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("expected unit norm, got %v", norm)
	}
}

func TestEmbedDiffersByText(t *testing.T) {
	p := New(16)
	a, _ := p.Embed(context.Background(), "alpha")
	b, _ := p.Embed(context.Background(), "beta")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Error("expected distinct texts to produce distinct embeddings")
	}
}
