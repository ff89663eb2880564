package extraction

import (
	"testing"
	"time"

	"github.com/mycelicmemory/core/internal/storage"
)

var fixedNow = time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

func findFact(facts []storage.Fact, predicate string) (storage.Fact, bool) {
	for _, f := range facts {
		if f.Predicate == predicate {
			return f, true
		}
	}
	return storage.Fact{}, false
}

func TestExtractLivesIn(t *testing.T) {
	r := Extract("I live in San Francisco.", "mem-1", "u1", fixedNow)
	f, ok := findFact(r.Facts, "lives_in")
	if !ok {
		t.Fatalf("expected lives_in fact, got %+v", r.Facts)
	}
	if f.Subject != "user" {
		t.Errorf("expected normalized subject 'user', got %q", f.Subject)
	}
	if f.Object != "San Francisco." && f.Object != "San Francisco" {
		t.Errorf("unexpected object %q", f.Object)
	}
	if f.PredicateCategory != storage.CategoryLocation {
		t.Errorf("expected location category, got %v", f.PredicateCategory)
	}
	if f.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", f.Confidence)
	}
}

// TestExtractMovedToSupersedesLivesIn grounds spec §8 scenario 1: the
// second utterance should still classify as lives_in so the contradiction
// engine has two comparable facts to resolve.
func TestExtractMovedToSupersedesLivesIn(t *testing.T) {
	r := Extract("I moved to San Francisco.", "mem-2", "u1", fixedNow)
	f, ok := findFact(r.Facts, "lives_in")
	if !ok {
		t.Fatalf("expected lives_in fact from moved_to rule, got %+v", r.Facts)
	}
	if f.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", f.Confidence)
	}
}

// TestExtractPreferenceCoexistence grounds spec §8 scenario 2: two
// distinct "likes" objects, both valid, neither superseding the other at
// the extraction layer (coexistence is decided downstream by the
// contradiction engine's category check).
func TestExtractPreferenceCoexistence(t *testing.T) {
	r1 := Extract("I like running.", "mem-3", "u1", fixedNow)
	r2 := Extract("I like swimming.", "mem-4", "u1", fixedNow)
	f1, ok1 := findFact(r1.Facts, "likes")
	f2, ok2 := findFact(r2.Facts, "likes")
	if !ok1 || !ok2 {
		t.Fatalf("expected likes facts from both utterances")
	}
	if f1.PredicateCategory != storage.CategoryPreference || f2.PredicateCategory != storage.CategoryPreference {
		t.Errorf("expected preference category for both facts")
	}
	if f1.Object == f2.Object {
		t.Errorf("expected distinct objects, got %q twice", f1.Object)
	}
}

// TestExtractFactLookup grounds spec §8 scenario 5.
func TestExtractFactLookup(t *testing.T) {
	r := Extract("My mom's name is Sarah.", "mem-5", "u1", fixedNow)
	f, ok := findFact(r.Facts, "mom_name")
	if !ok {
		t.Fatalf("expected mom_name fact, got %+v", r.Facts)
	}
	if f.Object != "Sarah" {
		t.Errorf("expected object Sarah, got %q", f.Object)
	}
	if f.PredicateCategory != storage.CategoryRelationship {
		t.Errorf("expected relationship category, got %v", f.PredicateCategory)
	}
}

func TestExtractGoal(t *testing.T) {
	r := Extract("My goal is to run a marathon.", "mem-6", "u1", fixedNow)
	if len(r.Entities) == 0 {
		t.Fatalf("expected a goal entity from 'goal is to' phrase")
	}
	found := false
	for _, e := range r.Entities {
		if e.Type == storage.EntityGoal {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an EntityGoal among %+v", r.Entities)
	}
}

func TestExtractObjectLengthRejection(t *testing.T) {
	r := Extract("I like a.", "mem-7", "u1", fixedNow)
	if _, ok := findFact(r.Facts, "likes"); ok {
		t.Errorf("expected single-character object to be rejected")
	}
}

func TestExtractHeuristicFallback(t *testing.T) {
	r := Extract("The weather report mentioned Thunderstorms approaching quickly.", "mem-8", "u1", fixedNow)
	f, ok := findFact(r.Facts, "about_topic")
	if !ok {
		t.Fatalf("expected heuristic about_topic fallback fact, got %+v", r.Facts)
	}
	if f.Confidence != 0.7 {
		t.Errorf("expected fallback confidence 0.7, got %v", f.Confidence)
	}
}

func TestExtractTemporalYesterday(t *testing.T) {
	r := Extract("I went running yesterday.", "mem-9", "u1", fixedNow)
	if r.Temporal.EventTime == nil {
		t.Fatalf("expected an event time for 'yesterday'")
	}
	want := fixedNow.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if !r.Temporal.EventTime.Equal(want) {
		t.Errorf("expected %v, got %v", want, *r.Temporal.EventTime)
	}
	if r.Temporal.Granularity != GranularityDay {
		t.Errorf("expected day granularity, got %v", r.Temporal.Granularity)
	}
	if r.Temporal.Type != TemporalPast {
		t.Errorf("expected past type, got %v", r.Temporal.Type)
	}
}

func TestExtractTemporalLastWeek(t *testing.T) {
	r := Extract("Last week I started a new job.", "mem-10", "u1", fixedNow)
	if r.Temporal.EventTime == nil {
		t.Fatalf("expected an event time for 'last week'")
	}
	if r.Temporal.Granularity != GranularityWeek {
		t.Errorf("expected week granularity, got %v", r.Temporal.Granularity)
	}
}

func TestExtractTemporalNoSignalDefaultsUnknown(t *testing.T) {
	r := Extract("I enjoy quiet mornings.", "mem-11", "u1", fixedNow)
	if r.Temporal.EventTime != nil {
		t.Errorf("expected no event time, got %v", *r.Temporal.EventTime)
	}
	if r.Temporal.Granularity != GranularityUnknown {
		t.Errorf("expected unknown granularity, got %v", r.Temporal.Granularity)
	}
}

func TestExtractValencePrimaryEmotion(t *testing.T) {
	r := Extract("I am so excited and happy about this!", "mem-12", "u1", fixedNow)
	if r.Valence.PrimaryEmotion != "joy" {
		t.Errorf("expected primary emotion joy, got %q", r.Valence.PrimaryEmotion)
	}
	if r.Valence.Sentiment <= 0 {
		t.Errorf("expected positive sentiment, got %v", r.Valence.Sentiment)
	}
}

func TestExtractValenceNeutralDefault(t *testing.T) {
	r := Extract("The invoice is due on the fifteenth.", "mem-13", "u1", fixedNow)
	if r.Valence.PrimaryEmotion != "neutral" {
		t.Errorf("expected neutral, got %q", r.Valence.PrimaryEmotion)
	}
	if r.Valence.Intensity != 0.5 {
		t.Errorf("expected intensity 0.5, got %v", r.Valence.Intensity)
	}
	if r.Valence.Sentiment != 0 {
		t.Errorf("expected sentiment 0, got %v", r.Valence.Sentiment)
	}
}

func TestExtractSubjectNormalizationInvariant(t *testing.T) {
	r := Extract("I work at Acme Corp as Engineer.", "mem-14", "u1", fixedNow)
	for _, f := range r.Facts {
		if f.Subject == "user" {
			continue
		}
		t.Errorf("expected normalized lowercase subject, got %q", f.Subject)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	text := "I live in Chicago and my favorite food is tacos."
	r1 := Extract(text, "mem-15", "u1", fixedNow)
	r2 := Extract(text, "mem-15", "u1", fixedNow)
	if len(r1.Facts) != len(r2.Facts) {
		t.Fatalf("expected deterministic fact count, got %d and %d", len(r1.Facts), len(r2.Facts))
	}
	for i := range r1.Facts {
		a, b := r1.Facts[i], r2.Facts[i]
		if a.Subject != b.Subject || a.Predicate != b.Predicate || a.Object != b.Object {
			t.Errorf("non-deterministic extraction at index %d: %+v vs %+v", i, a, b)
		}
	}
}
