package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mycelicmemory/core/internal/contradiction"
	"github.com/mycelicmemory/core/internal/providers/testprovider"
	"github.com/mycelicmemory/core/internal/storage"
	"github.com/mycelicmemory/core/pkg/config"
)

const testDims = 16

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Embedding.Dimensions = testDims
	cfg.VectorIndex.Kind = "linear"

	f, err := Open(cfg, testprovider.New(testDims), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestStoreMessageWriteThrough(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	id, err := f.StoreMessage(ctx, "remember to buy milk", "user", "sess-1", "u1", nil)
	if err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	node, err := f.store.GetNode(id)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node == nil {
		t.Fatal("expected node to be persisted")
	}
	if f.index.Len() != 1 {
		t.Fatalf("expected 1 vector in index, got %d", f.index.Len())
	}
}

func TestContradictionSupersession(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	first, err := f.StoreMemoryWithConflictDetection(ctx, "I live in NYC.", "u1", 0.6, nil)
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	if len(first.Facts) == 0 {
		t.Fatal("expected a fact extracted from the first memory")
	}

	second, err := f.StoreMemoryWithConflictDetection(ctx, "I moved to San Francisco.", "u1", 0.6, nil)
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Contradictions) == 0 {
		t.Fatal("expected a contradiction between NYC and San Francisco")
	}
	if second.Contradictions[0].Resolution != contradiction.ResolutionNewSupersedes {
		t.Fatalf("expected new_supersedes, got %v", second.Contradictions[0].Resolution)
	}

	oldFact, err := f.store.GetFact(first.Facts[0].ID)
	if err != nil {
		t.Fatalf("GetFact: %v", err)
	}
	if oldFact.IsLatest {
		t.Error("expected the NYC fact to no longer be latest")
	}

	edges, err := f.store.GetEdgesFrom(second.MemoryID)
	if err != nil {
		t.Fatalf("GetEdgesFrom: %v", err)
	}
	found := false
	for _, e := range edges {
		if e.RelationshipType == storage.RelSupersedes {
			found = true
		}
	}
	if !found {
		t.Error("expected a supersedes edge from the new memory")
	}

	oldNode, err := f.store.GetNode(first.MemoryID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if oldNode.IsLatest {
		t.Error("expected the NYC node to no longer be latest")
	}
	if oldNode.SupersededBy != second.MemoryID {
		t.Errorf("expected superseded_by %q, got %q", second.MemoryID, oldNode.SupersededBy)
	}

	hits, err := f.index.Search(firstEmbedding(t, f, first.MemoryID), 5, 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ID == first.MemoryID {
			t.Error("expected the superseded node to be removed from the vector index")
		}
	}
}

// firstEmbedding re-embeds the NYC memory's content through the same
// deterministic test provider used to store it, so the search query
// vector is comparable to what was indexed.
func firstEmbedding(t *testing.T, f *Facade, nodeID string) []float32 {
	t.Helper()
	node, err := f.store.GetNode(nodeID)
	if err != nil || node == nil {
		t.Fatalf("GetNode: %v", err)
	}
	vec, err := f.embed(context.Background(), node.Content)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vec
}

func TestPreferenceCoexistence(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, err := f.StoreMemoryWithConflictDetection(ctx, "I like running.", "u1", 0.5, nil)
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := f.StoreMemoryWithConflictDetection(ctx, "I like swimming.", "u1", 0.5, nil)
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if len(second.Contradictions) != 0 {
		t.Errorf("expected no contradiction between coexisting preferences, got %d", len(second.Contradictions))
	}

	facts, err := f.store.GetFactsBySubject("user", "u1")
	if err != nil {
		t.Fatalf("GetFactsBySubject: %v", err)
	}
	latest := 0
	for _, fct := range facts {
		if fct.IsLatest {
			latest++
		}
	}
	if latest < 2 {
		t.Errorf("expected both preference facts to remain latest, got %d", latest)
	}
}

func TestDeleteMemoryRemovesFromIndexAndStorage(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	id, err := f.StoreMessage(ctx, "temporary note", "user", "", "u1", nil)
	if err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if err := f.DeleteMemory(id, storage.DeleteCascade); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}

	node, err := f.store.GetNode(id)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node != nil {
		t.Error("expected node to be deleted")
	}
	if f.index.Len() != 0 {
		t.Errorf("expected index to be empty after delete, got %d", f.index.Len())
	}
}

func TestStoreConversationOneNodePerTurn(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	transcript := "User: are we still on for tuesday?\nAssistant: yes, 3pm works for me.\nUser: great, see you then."
	ids, err := f.StoreConversation(ctx, transcript, "sess-conv", "u1")
	if err != nil {
		t.Fatalf("StoreConversation: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 turns persisted, got %d", len(ids))
	}

	memories, err := f.GetSessionMemories("sess-conv")
	if err != nil {
		t.Fatalf("GetSessionMemories: %v", err)
	}
	if len(memories) != 3 {
		t.Errorf("expected 3 session memories, got %d", len(memories))
	}
}

func TestStartEndSession(t *testing.T) {
	f := newTestFacade(t)

	sess, err := f.StartSession("", "conversation", nil)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a detected session id")
	}
	if err := f.EndSession(sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}

func TestGetMemoryStats(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	if _, err := f.StoreMessage(ctx, "one fact to count", "user", "", "u1", nil); err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}

	stats, err := f.GetMemoryStats()
	if err != nil {
		t.Fatalf("GetMemoryStats: %v", err)
	}
	if stats.NodeCount != 1 {
		t.Errorf("expected NodeCount=1, got %d", stats.NodeCount)
	}
}

func TestClearAllMemories(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.StoreMessage(ctx, "note", "user", "", "u1", nil); err != nil {
			t.Fatalf("StoreMessage: %v", err)
		}
	}
	if err := f.ClearAllMemories("u1"); err != nil {
		t.Fatalf("ClearAllMemories: %v", err)
	}
	if f.index.Len() != 0 {
		t.Errorf("expected index empty after clearing, got %d", f.index.Len())
	}
	stats, err := f.GetMemoryStats()
	if err != nil {
		t.Fatalf("GetMemoryStats: %v", err)
	}
	if stats.NodeCount != 0 {
		t.Errorf("expected NodeCount=0 after clearing, got %d", stats.NodeCount)
	}
}

func TestStartupRecoveryRebuildsIndex(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Embedding.Dimensions = testDims
	cfg.VectorIndex.Kind = "linear"
	ctx := context.Background()

	f1, err := Open(cfg, testprovider.New(testDims), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := f1.StoreMessage(ctx, "durable note", "user", "", "u1", nil)
	if err != nil {
		t.Fatalf("StoreMessage: %v", err)
	}
	if err := f1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Open(cfg, testprovider.New(testDims), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f2.Close()
	if f2.index.Len() != 1 {
		t.Fatalf("expected startup recovery to reload 1 embedding, got %d", f2.index.Len())
	}

	resp, err := f2.QueryAcrossSessions(ctx, "durable note", "u1", 5)
	if err != nil {
		t.Fatalf("QueryAcrossSessions: %v", err)
	}
	found := false
	for _, r := range resp.Results {
		if r.Node.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("expected the durable note to be retrievable after reopen")
	}
}
