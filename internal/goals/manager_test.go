package goals

import (
	"path/filepath"
	"testing"

	"github.com/mycelicmemory/core/internal/storage"
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

func TestIsGoal(t *testing.T) {
	if !IsGoal("My goal is to run a marathon.") {
		t.Error("expected 'goal' keyword to mark content as a goal")
	}
	if !IsGoal("I want to learn Spanish.") {
		t.Error("expected 'want to' keyword to mark content as a goal")
	}
	if IsGoal("The sky is blue today.") {
		t.Error("expected plain statement to not be classified as a goal")
	}
}

func TestClassifyOrderProgressBeforeBlocker(t *testing.T) {
	if got := Classify("I finished my run today, but it hurt a little."); got != LinkProgress {
		t.Errorf("expected progress to win when both progress and blocker keywords present, got %v", got)
	}
}

func TestClassifyBlocker(t *testing.T) {
	if got := Classify("Couldn't run today, my knee hurt."); got != LinkBlocker {
		t.Errorf("expected blocker classification, got %v", got)
	}
}

func TestClassifyRelatedToDefault(t *testing.T) {
	if got := Classify("Marathons are held in the fall usually."); got != LinkRelatedTo {
		t.Errorf("expected related_to default classification, got %v", got)
	}
}

// TestGoalClusteringMarathonScenario grounds spec §8 scenario 3: register
// a marathon goal, then link a progress memory and a blocker memory; the
// resulting cluster must have progress_count=1, blocker_count=1.
func TestGoalClusteringMarathonScenario(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store)

	cluster, err := mgr.RegisterGoal("mem-goal", "My goal is to run a marathon.", "u1")
	if err != nil {
		t.Fatalf("RegisterGoal: %v", err)
	}

	if _, err := mgr.Link("mem-progress", "I ran 10 miles today.", 0.7, "u1"); err != nil {
		t.Fatalf("Link progress: %v", err)
	}
	if _, err := mgr.Link("mem-blocker", "Couldn't run — my knee hurt.", -0.4, "u1"); err != nil {
		t.Fatalf("Link blocker: %v", err)
	}

	ctx, err := mgr.CoachingContext(cluster.ID)
	if err != nil {
		t.Fatalf("CoachingContext: %v", err)
	}
	if ctx == nil {
		t.Fatal("expected non-nil coaching context")
	}
	if ctx.ProgressCount != 1 {
		t.Errorf("expected progress_count=1, got %d", ctx.ProgressCount)
	}
	if ctx.BlockerCount != 1 {
		t.Errorf("expected blocker_count=1, got %d", ctx.BlockerCount)
	}
}

func TestLinkSkipsBelowThreshold(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store)

	if _, err := mgr.RegisterGoal("mem-goal", "My goal is to learn piano.", "u1"); err != nil {
		t.Fatalf("RegisterGoal: %v", err)
	}

	results, err := mgr.Link("mem-unrelated", "I had cereal for breakfast.", 0, "u1")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no links for an unrelated memory, got %+v", results)
	}
}

func TestTrendImproving(t *testing.T) {
	samples := []storage.EmotionalSample{
		{Valence: -0.5}, {Valence: -0.4}, {Valence: 0.4}, {Valence: 0.5},
	}
	if got := trajectoryTrend(samples); got != TrendImproving {
		t.Errorf("expected improving trend, got %v", got)
	}
}

func TestTrendStableByDefault(t *testing.T) {
	samples := []storage.EmotionalSample{{Valence: 0.1}, {Valence: 0.15}}
	if got := trajectoryTrend(samples); got != TrendStable {
		t.Errorf("expected stable trend, got %v", got)
	}
}
