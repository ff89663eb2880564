package contradiction

import (
	"testing"
	"time"

	"github.com/mycelicmemory/core/internal/storage"
)

// TestCheckNYCToSFSupersession grounds spec §8 scenario 1: "I live in
// NYC." then "I moved to San Francisco." must produce a direct
// contradiction resolved as new_supersedes.
func TestCheckNYCToSFSupersession(t *testing.T) {
	existing := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "New York",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}
	newFact := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "San Francisco",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.85,
	}

	result := Check(newFact, []storage.Fact{existing})

	if result.Type != TypeDirect {
		t.Errorf("expected direct contradiction, got %v", result.Type)
	}
	if result.Resolution != ResolutionNewSupersedes {
		t.Errorf("expected new_supersedes, got %v", result.Resolution)
	}
	if result.Confidence <= 0.5 {
		t.Errorf("expected confidence above base 0.5, got %v", result.Confidence)
	}
}

// TestCheckPreferenceCoexistence grounds spec §8 scenario 2: likes
// running then likes swimming must not contradict (preference is not
// mutually exclusive).
func TestCheckPreferenceCoexistence(t *testing.T) {
	existing := storage.Fact{
		Subject: "user", Predicate: "likes", Object: "running",
		PredicateCategory: storage.CategoryPreference, Confidence: 0.85,
	}
	newFact := storage.Fact{
		Subject: "user", Predicate: "likes", Object: "swimming",
		PredicateCategory: storage.CategoryPreference, Confidence: 0.85,
	}

	result := Check(newFact, []storage.Fact{existing})

	if result.Type != TypeNone {
		t.Errorf("expected no contradiction for coexisting preferences, got %v", result.Type)
	}
}

func TestCheckDifferentSubjectNoContradiction(t *testing.T) {
	existing := storage.Fact{
		Subject: "alice", Predicate: "lives_in", Object: "Boston",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}
	newFact := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "Denver",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}

	result := Check(newFact, []storage.Fact{existing})
	if result.Type != TypeNone {
		t.Errorf("expected no contradiction across different subjects, got %v", result.Type)
	}
}

func TestCheckEquivalentObjectsNoContradiction(t *testing.T) {
	existing := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "NYC",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}
	newFact := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "New York",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}

	result := Check(newFact, []storage.Fact{existing})
	if result.Type != TypeNone {
		t.Errorf("expected NYC/New York alias to be equivalent, got %v", result.Type)
	}
}

func TestCheckImpliedContradictionViaSynonym(t *testing.T) {
	existing := storage.Fact{
		Subject: "user", Predicate: "resides_in", Object: "Chicago",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.8,
	}
	newFact := storage.Fact{
		Subject: "user", Predicate: "lives_in", Object: "Austin",
		PredicateCategory: storage.CategoryLocation, Confidence: 0.9,
	}

	result := Check(newFact, []storage.Fact{existing})
	if result.Type != TypeImplied {
		t.Errorf("expected implied contradiction via synonym group, got %v", result.Type)
	}
}

func TestResolveKeepsHighConfidenceExisting(t *testing.T) {
	old := storage.Fact{Predicate: "lives_in", PredicateCategory: storage.CategoryLocation, Confidence: 0.95}
	newFact := storage.Fact{Predicate: "lives_in", PredicateCategory: storage.CategoryLocation, Confidence: 0.6}
	if got := resolve(old, newFact); got != ResolutionKeepExisting {
		t.Errorf("expected keep_existing when existing confidence dominates, got %v", got)
	}
}

func TestResolveValidFromOrdering(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := storage.Fact{ValidFrom: &earlier, Confidence: 0.9}
	newFact := storage.Fact{ValidFrom: &later, Confidence: 0.9}
	if got := resolve(old, newFact); got != ResolutionNewSupersedes {
		t.Errorf("expected new_supersedes when new valid_from is later, got %v", got)
	}
	if got := resolve(newFact, old); got != ResolutionKeepExisting {
		t.Errorf("expected keep_existing when comparing against earlier new fact, got %v", got)
	}
}
