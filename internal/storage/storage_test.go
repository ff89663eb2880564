package storage

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(Options{Path: path, Dimensions: 4})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func unitVector(vals ...float32) []float32 {
	var sumSq float64
	for _, v := range vals {
		sumSq += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = v / norm
	}
	return out
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("got schema version %d, want %d", version, SchemaVersion)
	}
	for _, table := range []string{"nodes", "edges", "embeddings", "facts", "entities", "goal_clusters", "memory_metadata_v2", "memory_goal_links", "sessions", "schema_version"} {
		exists, err := tableExists(s.db, table)
		if err != nil {
			t.Fatalf("tableExists(%s): %v", table, err)
		}
		if !exists {
			t.Errorf("table %s should exist after Open", table)
		}
	}
}

func TestPutNodeWithEdgesAndEmbeddingIsAtomic(t *testing.T) {
	s := newTestStore(t)

	n1 := &Node{ID: uuid.NewString(), Content: "I live in NYC.", Type: MemoryEpisodic, Layer: LayerLongTerm, Importance: 0.6, Confidence: 0.9, IsLatest: true, UserID: "u1"}
	if err := s.PutNode(n1, nil, unitVector(1, 0, 0, 0)); err != nil {
		t.Fatalf("PutNode n1: %v", err)
	}

	n2 := &Node{ID: uuid.NewString(), Content: "I moved to San Francisco.", Type: MemoryEpisodic, Layer: LayerLongTerm, Importance: 0.6, Confidence: 0.9, IsLatest: true, UserID: "u1"}
	edge := &Edge{ID: uuid.NewString(), FromID: n2.ID, ToID: n1.ID, RelationshipType: RelSupersedes, Weight: 1.0}
	if err := s.PutNode(n2, []*Edge{edge}, unitVector(0, 1, 0, 0)); err != nil {
		t.Fatalf("PutNode n2: %v", err)
	}

	got, err := s.GetEmbedding(n2.ID)
	if err != nil || got == nil {
		t.Fatalf("GetEmbedding(n2): %v, %v", got, err)
	}
	edges, err := s.GetEdgesFrom(n2.ID)
	if err != nil || len(edges) != 1 {
		t.Fatalf("GetEdgesFrom(n2): %v, %v", edges, err)
	}
}

func TestPutNodeDimensionMismatchRejected(t *testing.T) {
	s := newTestStore(t)
	n := &Node{ID: uuid.NewString(), Content: "x", Type: MemoryGeneral, Layer: LayerWorking, Confidence: 1, Importance: 0.5, IsLatest: true}
	err := s.PutNode(n, nil, []float32{1, 0})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestDeleteNodeCascadeRemovesEmbeddingAndEdges(t *testing.T) {
	s := newTestStore(t)
	n1 := &Node{ID: uuid.NewString(), Content: "a", Type: MemoryGeneral, Layer: LayerWorking, Confidence: 1, Importance: 0.5, IsLatest: true}
	n2 := &Node{ID: uuid.NewString(), Content: "b", Type: MemoryGeneral, Layer: LayerWorking, Confidence: 1, Importance: 0.5, IsLatest: true}
	if err := s.PutNode(n1, nil, unitVector(1, 0, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.PutNode(n2, nil, unitVector(0, 1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	edge := &Edge{ID: uuid.NewString(), FromID: n1.ID, ToID: n2.ID, RelationshipType: RelRelated, Weight: 0.5}
	if err := s.PutEdge(edge); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteNode(n1.ID, DeleteCascade); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if got, _ := s.GetNode(n1.ID); got != nil {
		t.Error("node should be gone")
	}
	if got, _ := s.GetEmbedding(n1.ID); got != nil {
		t.Error("embedding should be gone")
	}
	edges, _ := s.GetEdgesFrom(n1.ID)
	if len(edges) != 0 {
		t.Errorf("expected no outgoing edges, got %d", len(edges))
	}
}

func TestGetUnknownNodeReturnsNilNotError(t *testing.T) {
	s := newTestStore(t)
	n, err := s.GetNode(uuid.NewString())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != nil {
		t.Error("expected nil node for unknown id")
	}
}

func TestDeleteUnknownNodeIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteNode(uuid.NewString(), DeleteCascade); err != nil {
		t.Fatalf("delete of unknown id should be a no-op: %v", err)
	}
}

func TestPutFactSupersedesMutuallyExclusiveCategory(t *testing.T) {
	s := newTestStore(t)
	f1 := &Fact{ID: uuid.NewString(), Subject: "user", Predicate: "lives_in", Object: "NYC", PredicateCategory: CategoryLocation, Confidence: 0.9, UserID: "u1"}
	if err := s.PutFact(f1); err != nil {
		t.Fatal(err)
	}
	f2 := &Fact{ID: uuid.NewString(), Subject: "user", Predicate: "lives_in", Object: "San Francisco", PredicateCategory: CategoryLocation, Confidence: 0.85, UserID: "u1"}
	if err := s.PutFact(f2); err != nil {
		t.Fatal(err)
	}

	facts, err := s.GetFactsBySubject("user", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected exactly one is_latest fact, got %d", len(facts))
	}
	if facts[0].Object != "San Francisco" {
		t.Errorf("expected the newer fact to remain latest, got %q", facts[0].Object)
	}
}

func TestPutFactCoexistenceForNonExclusiveCategory(t *testing.T) {
	s := newTestStore(t)
	f1 := &Fact{ID: uuid.NewString(), Subject: "user", Predicate: "likes", Object: "running", PredicateCategory: CategoryPreference, Confidence: 0.85, UserID: "u1"}
	f2 := &Fact{ID: uuid.NewString(), Subject: "user", Predicate: "likes", Object: "swimming", PredicateCategory: CategoryPreference, Confidence: 0.85, UserID: "u1"}
	if err := s.PutFact(f1); err != nil {
		t.Fatal(err)
	}
	if err := s.PutFact(f2); err != nil {
		t.Fatal(err)
	}
	facts, err := s.GetFactsBySubject("user", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected both preferences to coexist, got %d", len(facts))
	}
}

func TestFactNormalization(t *testing.T) {
	s := newTestStore(t)
	f := &Fact{ID: uuid.NewString(), Subject: "  The User  ", Predicate: " LIVES_IN ", Object: " NYC ", PredicateCategory: CategoryLocation, Confidence: 0.9, UserID: "u1"}
	if err := s.PutFact(f); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetFact(f.ID)
	if err != nil || got == nil {
		t.Fatalf("GetFact: %v, %v", got, err)
	}
	if got.Subject != "the user" || got.Predicate != "lives_in" {
		t.Errorf("expected normalized subject/predicate, got %q/%q", got.Subject, got.Predicate)
	}
	if got.Object != "NYC" {
		t.Errorf("object should preserve case, got %q", got.Object)
	}
}

func TestEntityUniquenessIncrementsMentionCount(t *testing.T) {
	s := newTestStore(t)
	e1 := &Entity{ID: uuid.NewString(), Name: "Sarah", Type: EntityPerson, UserID: "u1"}
	if err := s.PutEntity(e1); err != nil {
		t.Fatal(err)
	}
	e2 := &Entity{ID: uuid.NewString(), Name: "Sarah", Type: EntityPerson, UserID: "u1"}
	if err := s.PutEntity(e2); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindEntity("sarah", EntityPerson, "u1")
	if err != nil || got == nil {
		t.Fatalf("FindEntity: %v, %v", got, err)
	}
	if got.MentionCount != 2 {
		t.Errorf("expected mention_count 2 after second mention, got %d", got.MentionCount)
	}
}

func TestMetadataValueRoundTrip(t *testing.T) {
	m := Metadata{
		"session_id": StringValue("sess-1"),
		"turn":       IntValue(3),
		"scores":     ArrayValue([]Value{DoubleValue(0.5), DoubleValue(0.9)}),
	}
	encoded, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeMetadata(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded["session_id"].Str != "sess-1" {
		t.Errorf("expected session_id round trip, got %+v", decoded["session_id"])
	}
	if decoded["turn"].Int != 3 {
		t.Errorf("expected turn round trip, got %+v", decoded["turn"])
	}
	if len(decoded["scores"].Array) != 2 {
		t.Errorf("expected array round trip, got %+v", decoded["scores"])
	}
}

func TestListEmbeddingsRebuildsFromStorage(t *testing.T) {
	s := newTestStore(t)
	ids := map[string][]float32{
		uuid.NewString(): unitVector(1, 0, 0, 0),
		uuid.NewString(): unitVector(0, 1, 0, 0),
	}
	for id, vec := range ids {
		n := &Node{ID: id, Content: "x", Type: MemoryGeneral, Layer: LayerWorking, Confidence: 1, Importance: 0.5, IsLatest: true}
		if err := s.PutNode(n, nil, vec); err != nil {
			t.Fatal(err)
		}
	}
	seen := 0
	err := s.ListEmbeddings(func(nodeID string, vector []float32) error {
		seen++
		if _, ok := ids[nodeID]; !ok {
			t.Errorf("unexpected node id %s", nodeID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != len(ids) {
		t.Errorf("expected %d embeddings, saw %d", len(ids), seen)
	}
}
