package vectorindex

import (
	"fmt"
	"math/rand"
	"testing"
)

func randomUnitVector(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	var sumSq float64
	for i := range v {
		f := float32(rng.NormFloat64())
		v[i] = f
		sumSq += float64(f) * float64(f)
	}
	return normalize(v)
}

func TestHNSWInsertSearchFindsItself(t *testing.T) {
	idx := NewHNSW(Config{Dimensions: 8, Seed: 42})
	rng := rand.New(rand.NewSource(1))
	v := randomUnitVector(rng, 8)
	if err := idx.Insert("a", v); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(v, 1, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected to find self, got %+v", results)
	}
	if results[0].Score < 0.999 {
		t.Errorf("expected near-exact self match, got score %f", results[0].Score)
	}
}

func TestHNSWEmptyIndexReturnsEmptyNotError(t *testing.T) {
	idx := NewHNSW(Config{Dimensions: 4, Seed: 1})
	results, err := idx.Search([]float32{1, 0, 0, 0}, 5, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestHNSWDimensionMismatch(t *testing.T) {
	idx := NewHNSW(Config{Dimensions: 4, Seed: 1})
	if err := idx.Insert("a", []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search([]float32{1, 0}, 1, 0, nil); err != ErrDimensionMismatch {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestHNSWRemovePromotesEntryPoint(t *testing.T) {
	idx := NewHNSW(Config{Dimensions: 4, Seed: 7})
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		idx.Insert(fmt.Sprintf("n%d", i), randomUnitVector(rng, 4))
	}
	entry := idx.entryPoint
	idx.Remove(entry)
	if idx.Len() != 49 {
		t.Fatalf("expected 49 nodes after removal, got %d", idx.Len())
	}
	if _, ok := idx.nodes[entry]; ok {
		t.Error("removed node still present")
	}
	if idx.entryPoint == entry {
		t.Error("entry point should have been promoted after its removal")
	}
}

func TestHNSWExcludedIDsAreFiltered(t *testing.T) {
	idx := NewHNSW(Config{Dimensions: 4, Seed: 3})
	rng := rand.New(rand.NewSource(3))
	vecs := make(map[string][]float32)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("n%d", i)
		v := randomUnitVector(rng, 4)
		vecs[id] = v
		idx.Insert(id, v)
	}
	query := vecs["n0"]
	results, err := idx.Search(query, 5, 0, map[string]bool{"n0": true})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.ID == "n0" {
			t.Error("excluded id n0 appeared in results")
		}
	}
}

// TestHNSWRecallAgreesWithLinearScan asserts the spec's required top-1
// agreement >= 95% between the ANN index and an exhaustive linear scan
// over a 10k random corpus (spec §4.2).
func TestHNSWRecallAgreesWithLinearScan(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large recall test in short mode")
	}
	const n = 10000
	const dims = 32
	rng := rand.New(rand.NewSource(99))

	hnsw := NewHNSW(Config{Dimensions: dims, M: DefaultM, EfConstruction: DefaultEfConstruction, Seed: 99})
	linear := NewLinear(dims)

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("node-%d", i)
		ids[i] = id
		v := randomUnitVector(rng, dims)
		if err := hnsw.Insert(id, v); err != nil {
			t.Fatal(err)
		}
		if err := linear.Insert(id, v); err != nil {
			t.Fatal(err)
		}
	}

	const queries = 200
	agree := 0
	for q := 0; q < queries; q++ {
		query := randomUnitVector(rng, dims)
		hnswTop, err := hnsw.Search(query, 1, 0, nil)
		if err != nil {
			t.Fatal(err)
		}
		linearTop, err := linear.Search(query, 1, 0, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(hnswTop) == 0 || len(linearTop) == 0 {
			continue
		}
		if hnswTop[0].ID == linearTop[0].ID {
			agree++
		}
	}

	recall := float64(agree) / float64(queries)
	if recall < 0.95 {
		t.Errorf("top-1 agreement %f below required 0.95", recall)
	}
}
