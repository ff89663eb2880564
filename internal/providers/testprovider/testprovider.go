// Package testprovider is a deterministic, network-free
// providers.EmbeddingProvider/LLMProvider stand-in for tests, grounded
// on the teacher's stub-provider pattern in internal/ai/manager_test.go.
package testprovider

import (
	"context"
	"hash/fnv"
	"math"
)

// Provider hashes text into a reproducible unit vector so the same
// input always yields the same embedding across a test run, with no
// network dependency.
type Provider struct {
	dims int
}

// New returns a Provider producing dims-dimensional embeddings.
func New(dims int) *Provider {
	return &Provider{dims: dims}
}

func (p *Provider) Dimensions() int {
	return p.dims
}

// Embed deterministically derives a unit vector from text via FNV
// hashing of successive seeds, so callers can assert stable results
// without a real embedding model.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, p.dims)
	var sumSq float64
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		// Map the hash into [-1, 1).
		f := float32(h.Sum32())/float32(math.MaxUint32)*2 - 1
		v[i] = f
		sumSq += float64(f) * float64(f)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] /= norm
	}
	return v, nil
}

// Complete echoes a fixed, deterministic summary of prompt.
func (p *Provider) Complete(_ context.Context, prompt string) (string, error) {
	if len(prompt) > 120 {
		prompt = prompt[:120]
	}
	return "summary: " + prompt, nil
}
