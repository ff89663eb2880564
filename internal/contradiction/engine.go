package contradiction

import (
	"strings"

	"github.com/mycelicmemory/core/internal/storage"
)

// ContradictionType classifies how two facts conflict.
type ContradictionType string

const (
	TypeNone     ContradictionType = "none"
	TypeDirect   ContradictionType = "direct"
	TypeImplied  ContradictionType = "implied"
	TypeTemporal ContradictionType = "temporal"
)

// Resolution is the policy chosen for a detected contradiction.
type Resolution string

const (
	ResolutionNewSupersedes   Resolution = "new_supersedes"
	ResolutionKeepExisting    Resolution = "keep_existing"
	ResolutionCoexist         Resolution = "coexist"
	ResolutionNeedsUserInput  Resolution = "needs_user_input"
	ResolutionNone            Resolution = "none"
)

// Result is the engine's output for a single (new, existing) pair
// comparison; Check returns the result for the first existing fact that
// conflicts, not a ranked best candidate.
type Result struct {
	Type       ContradictionType
	Existing   *storage.Fact
	New        *storage.Fact
	Resolution Resolution
	Confidence float64
}

// cityAliases and companyAliases fold common abbreviations to a
// canonical form for the object-equivalence check (spec §4.4 step 4).
var cityAliases = map[string]string{
	"nyc": "new york", "sf": "san francisco", "la": "los angeles",
}

var companyAliases = map[string]string{
	"msft": "microsoft", "fb": "meta", "goog": "google",
}

func normalizeObject(s string) string {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.TrimRight(n, ".,!?")
	if canon, ok := cityAliases[n]; ok {
		return canon
	}
	if canon, ok := companyAliases[n]; ok {
		return canon
	}
	return n
}

// overlapRatio is len(shorter)/len(longer) when the shorter string is
// contained in the longer one, and 0 otherwise; it is used as a loose
// object-equivalence signal (spec §4.4 step 4: "substring overlap ratio > 0.7").
func overlapRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if strings.Contains(longer, shorter) {
		return float64(len(shorter)) / float64(len(longer))
	}
	return 0
}

func objectsEquivalent(a, b string) bool {
	na, nb := normalizeObject(a), normalizeObject(b)
	if na == nb {
		return true
	}
	return overlapRatio(na, nb) > 0.7
}

// Check implements `check(new_fact, existing_facts_same_user) ->
// ContradictionResult` (spec §4.4). It walks existing in order and
// returns the first non-none verdict found against a related,
// non-equivalent fact; if no existing fact conflicts, it returns a
// `none` result.
func Check(newFact storage.Fact, existing []storage.Fact) Result {
	newSubject := strings.ToLower(strings.TrimSpace(newFact.Subject))

	for i := range existing {
		old := existing[i]
		if strings.ToLower(strings.TrimSpace(old.Subject)) != newSubject {
			continue
		}
		if !related(old.Predicate, newFact.Predicate) {
			continue
		}
		if !old.PredicateCategory.MutuallyExclusive() {
			continue
		}
		if objectsEquivalent(old.Object, newFact.Object) {
			continue
		}

		ctype := TypeImplied
		if old.Predicate == newFact.Predicate {
			ctype = TypeDirect
		}

		return Result{
			Type:       ctype,
			Existing:   &existing[i],
			New:        &newFact,
			Resolution: resolve(old, newFact),
			Confidence: confidence(old, newFact, ctype),
		}
	}

	return Result{Type: TypeNone, Resolution: ResolutionNone}
}

// resolve applies the first-matching-rule resolution policy (spec §4.4
// step 6).
func resolve(old, newFact storage.Fact) Resolution {
	switch {
	case old.ValidFrom != nil && newFact.ValidFrom != nil:
		if newFact.ValidFrom.After(*old.ValidFrom) {
			return ResolutionNewSupersedes
		}
		return ResolutionKeepExisting
	case old.ValidFrom == nil && newFact.ValidFrom != nil:
		return ResolutionNewSupersedes
	case old.Confidence > newFact.Confidence+0.2:
		return ResolutionKeepExisting
	default:
		return ResolutionNewSupersedes
	}
}

// confidence implements the additive confidence formula (spec §4.4
// step 7), clipped to 1.
func confidence(old, newFact storage.Fact, ctype ContradictionType) float64 {
	c := 0.5
	if ctype == TypeDirect {
		c += 0.2
	}
	switch old.PredicateCategory {
	case storage.CategoryLocation, storage.CategoryAttribute:
		c += 0.15
	}
	c += (newFact.Confidence + old.Confidence) / 10
	if c > 1 {
		c = 1
	}
	return c
}
