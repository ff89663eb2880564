package retrieval

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/core/internal/storage"
	"github.com/mycelicmemory/core/internal/vectorindex"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := storage.Open(storage.Options{Path: path, Dimensions: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putMemory(t *testing.T, store *storage.Store, content string, age time.Duration, now time.Time) *storage.Node {
	t.Helper()
	n := &storage.Node{
		ID:        uuid.NewString(),
		Content:   content,
		Type:      storage.MemoryEpisodic,
		Layer:     storage.LayerLongTerm,
		CreatedAt: now.Add(-age),
		UpdatedAt: now.Add(-age),
		Importance: 0.5,
		Confidence: 0.9,
		IsLatest:  true,
		UserID:    "u1",
	}
	if err := store.PutNode(n, nil, nil); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	return n
}

// TestQueryTemporalRecencyOrdering grounds spec §8 scenario 4: with
// memories 30/7/1 days old, "what happened recently" classifies temporal,
// and recency favors the 1-day-old memory over the 30-day-old one.
func TestQueryTemporalRecencyOrdering(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	old := putMemory(t, store, "I went hiking thirty days ago.", 30*24*time.Hour, now)
	mid := putMemory(t, store, "I went hiking seven days ago.", 7*24*time.Hour, now)
	recent := putMemory(t, store, "I went hiking yesterday.", 24*time.Hour, now)

	// The query words match no memory text, so the memories reach the
	// result set through the vector strategy.
	vec := []float32{1, 0, 0, 0}
	idx := vectorindex.NewHNSW(vectorindex.Config{Dimensions: 4, Seed: 1})
	for _, n := range []*storage.Node{old, mid, recent} {
		if err := idx.Insert(n.ID, vec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	resp, err := Query(store, idx, "what happened recently", "u1", vec, 10, now)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.QueryType != TypeTemporal {
		t.Errorf("expected temporal classification, got %v", resp.QueryType)
	}

	var recentResult, oldResult *ScoredResult
	for i := range resp.Results {
		if resp.Results[i].Node.ID == recent.ID {
			recentResult = &resp.Results[i]
		}
	}
	if recentResult == nil {
		t.Fatalf("expected the 1-day-old memory among results")
	}
	if recentResult.Breakdown.Recency <= 0.95 {
		t.Errorf("expected recency > 0.95 for 1-day-old memory, got %v", recentResult.Breakdown.Recency)
	}

	for i := range resp.Results {
		if resp.Results[i].Node.Content == "I went hiking thirty days ago." {
			oldResult = &resp.Results[i]
		}
	}
	if oldResult != nil && oldResult.Breakdown.Recency >= 0.5 {
		t.Errorf("expected recency < 0.5 for 30-day-old memory, got %v", oldResult.Breakdown.Recency)
	}
}

// TestQueryFactLookup grounds spec §8 scenario 5: "what is my mom's
// name" classifies factual and surfaces a fact_match contribution.
func TestQueryFactLookup(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	mem := putMemory(t, store, "My mom's name is Sarah.", time.Hour, now)
	fact := &storage.Fact{
		ID:                uuid.NewString(),
		Subject:           "user",
		Predicate:         "mom_name",
		Object:            "Sarah",
		PredicateCategory: storage.CategoryRelationship,
		Confidence:        0.9,
		SourceMemoryID:    mem.ID,
		UserID:            "u1",
		IsLatest:          true,
		CreatedAt:         now,
	}
	if err := store.PutFact(fact); err != nil {
		t.Fatalf("PutFact: %v", err)
	}

	idx := vectorindex.NewHNSW(vectorindex.Config{Dimensions: 4, Seed: 1})
	resp, err := Query(store, idx, "what is my mom's name", "u1", nil, 10, now)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.QueryType != TypeFactual {
		t.Errorf("expected factual classification, got %v", resp.QueryType)
	}

	var found bool
	for _, r := range resp.Results {
		if r.Node.ID == mem.ID && r.Breakdown.FactMatch >= 0.8 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the mom-name memory to surface with fact_match >= 0.8, got %+v", resp.Results)
	}
}
