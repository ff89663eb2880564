package extraction

import (
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/core/internal/storage"
)

// Result is the extraction pipeline's full output: `extract(text,
// source_id, user_id) -> { facts, entities, temporal, valence }` (spec
// §4.3).
type Result struct {
	Facts    []storage.Fact
	Entities []storage.Entity
	Temporal TemporalInfo
	Valence  Valence
}

// Extract is a network-free function of its inputs: text, the id of the
// memory it came from, the owning user, and the time it was recorded.
// Calling it twice with identical arguments produces identical facts,
// entities, temporal info, and valence, except for the fact and entity
// ids, which are fresh uuid.NewString values on every call.
func Extract(text, sourceMemoryID, userID string, storageTime time.Time) Result {
	facts := make([]storage.Fact, 0, 4)
	for _, c := range extractFacts(text) {
		facts = append(facts, storage.Fact{
			ID:                uuid.NewString(),
			Subject:           c.Subject,
			Predicate:         c.Predicate,
			Object:            c.Object,
			PredicateCategory: c.Category,
			Confidence:        c.Confidence,
			SourceMemoryID:    sourceMemoryID,
			DetectionMethod:   "regex",
			UserID:            userID,
			IsLatest:          true,
			CreatedAt:         storageTime,
		})
	}

	temporal := extractTemporal(text, storageTime)
	if temporal.EventTime != nil {
		for i := range facts {
			facts[i].ValidFrom = temporal.EventTime
		}
	}

	entities := make([]storage.Entity, 0, 4)
	for _, c := range extractEntities(text) {
		entities = append(entities, storage.Entity{
			ID:             uuid.NewString(),
			Name:           c.Name,
			NormalizedName: normalizeSubject(c.Name),
			Type:           c.Type,
			FirstMentioned: storageTime,
			MentionCount:   1,
			RelatedFactIDs: relatedFactIDs(facts, c.Name),
			UserID:         userID,
		})
	}

	return Result{
		Facts:    facts,
		Entities: entities,
		Temporal: temporal,
		Valence:  extractValence(text),
	}
}

// relatedFactIDs links an entity mention to any fact extracted from the
// same text whose object names it, so FindEntity callers can walk
// straight to the facts that mention them.
func relatedFactIDs(facts []storage.Fact, entityName string) []string {
	var ids []string
	norm := normalizeSubject(entityName)
	for _, f := range facts {
		if normalizeSubject(f.Object) == norm {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
