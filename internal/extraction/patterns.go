package extraction

import (
	"regexp"
	"strings"

	"github.com/mycelicmemory/core/internal/storage"
)

// FactCandidate is one regex pattern's output before subject
// normalization and object-length filtering are applied.
type FactCandidate struct {
	Subject   string
	Predicate string
	Object    string
	Category  storage.PredicateCategory
	Confidence float64
}

// factRule maps a compiled pattern to a builder that produces zero or
// more fact candidates from its submatches.
type factRule struct {
	name    string
	pattern *regexp.Regexp
	build   func(match []string) []FactCandidate
}

// subjectAliases collapses first-person self-references to a single
// canonical subject (spec §4.3).
var subjectAliases = map[string]string{
	"i": "user", "me": "user", "myself": "user", "user": "user", "the user": "user",
}

func normalizeSubject(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if canon, ok := subjectAliases[lower]; ok {
		return canon
	}
	return lower
}

// factRules is the ordered list of canonical patterns (spec §4.3).
// Extract evaluates every rule against the whole text and keeps the
// candidates of every rule that matches; the order only fixes the order
// in which candidates are emitted, and no rule suppresses another.
var factRules = []factRule{
	{
		name:    "lives_in",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:live|reside|stay)\s+in\s+([A-Za-z][A-Za-z .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "lives_in", Object: strings.TrimSpace(m[1]), Category: storage.CategoryLocation, Confidence: 0.9}}
		},
	},
	{
		name:    "moved_to",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:moved|relocated)\s+to\s+([A-Za-z][A-Za-z .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "lives_in", Object: strings.TrimSpace(m[1]), Category: storage.CategoryLocation, Confidence: 0.85}}
		},
	},
	{
		name:    "works_at",
		pattern: regexp.MustCompile(`(?i)\bI\s+work\s+at\s+([A-Za-z][A-Za-z0-9 .,'&-]{1,60}?)(?:\s+as\s+([A-Za-z][A-Za-z .'-]{1,60}))?(?:[.!?]|$)`),
		build: func(m []string) []FactCandidate {
			out := []FactCandidate{{Subject: "user", Predicate: "works_at", Object: strings.TrimSpace(m[1]), Category: storage.CategoryAttribute, Confidence: 0.9}}
			if len(m) > 2 && strings.TrimSpace(m[2]) != "" {
				out = append(out, FactCandidate{Subject: "user", Predicate: "job_title", Object: strings.TrimSpace(m[2]), Category: storage.CategoryAttribute, Confidence: 0.9})
			}
			return out
		},
	},
	{
		name:    "is_a",
		pattern: regexp.MustCompile(`(?i)\bI\s+am\s+(?:a|an)?\s*([A-Za-z][A-Za-z .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "profession", Object: strings.TrimSpace(m[1]), Category: storage.CategoryAttribute, Confidence: 0.8}}
		},
	},
	{
		name:    "favorite",
		pattern: regexp.MustCompile(`(?i)\bmy\s+favorite\s+([A-Za-z]+)\s+is\s+([A-Za-z][A-Za-z0-9 .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			predicate := "favorite_" + strings.ToLower(strings.TrimSpace(m[1]))
			return []FactCandidate{{Subject: "user", Predicate: predicate, Object: strings.TrimSpace(m[2]), Category: storage.CategoryPreference, Confidence: 0.9}}
		},
	},
	{
		name:    "likes",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:like|love|enjoy|prefer)\s+([A-Za-z][A-Za-z0-9 .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "likes", Object: strings.TrimSpace(m[1]), Category: storage.CategoryPreference, Confidence: 0.85}}
		},
	},
	{
		name:    "dislikes",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:hate|dislike|avoid)\s+([A-Za-z][A-Za-z0-9 .'-]{1,60})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "dislikes", Object: strings.TrimSpace(m[1]), Category: storage.CategoryPreference, Confidence: 0.85}}
		},
	},
	{
		name:    "kin",
		pattern: regexp.MustCompile(`(?i)\bmy\s+(mom|mother|dad|father|sister|brother|wife|husband|partner|son|daughter|friend)(?:'s name)?\s+is\s+([A-Za-z][A-Za-z .'-]{1,40})`),
		build: func(m []string) []FactCandidate {
			predicate := strings.ToLower(strings.TrimSpace(m[1])) + "_name"
			return []FactCandidate{{Subject: "user", Predicate: predicate, Object: strings.TrimSpace(m[2]), Category: storage.CategoryRelationship, Confidence: 0.9}}
		},
	},
	{
		name:    "birthday",
		pattern: regexp.MustCompile(`(?i)\bmy\s+birthday\s+is\s+(?:on\s+)?([A-Za-z]+ \d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?)`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "birthday", Object: strings.TrimSpace(m[1]), Category: storage.CategoryTemporal, Confidence: 0.9}}
		},
	},
	{
		name:    "age",
		pattern: regexp.MustCompile(`(?i)\bI\s*(?:am|'m)\s+(\d{1,3})\s*(?:years old|yo)\b`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "age", Object: strings.TrimSpace(m[1]), Category: storage.CategoryAttribute, Confidence: 0.9}}
		},
	},
	{
		name:    "goal",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:want to|plan to|hope to)\s+([A-Za-z][A-Za-z0-9 .,'-]{1,80})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "goal", Object: strings.TrimSpace(m[1]), Category: storage.CategoryGoal, Confidence: 0.85}}
		},
	},
	{
		name:    "habit",
		pattern: regexp.MustCompile(`(?i)\bI\s+(?:usually|always|often)\s+([A-Za-z][A-Za-z0-9 .,'-]{1,80})`),
		build: func(m []string) []FactCandidate {
			return []FactCandidate{{Subject: "user", Predicate: "habit", Object: strings.TrimSpace(m[1]), Category: storage.CategoryHabit, Confidence: 0.8}}
		},
	},
}

// validObject rejects degenerate matches: objects must be in [2,100]
// characters after trimming (spec §4.3).
func validObject(s string) bool {
	n := len(strings.TrimSpace(s))
	return n >= 2 && n <= 100
}

// extractFacts runs every rule and falls back to heuristic topic tagging
// when nothing matched (spec §4.3).
func extractFacts(text string) []FactCandidate {
	var out []FactCandidate
	matched := false
	for _, rule := range factRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, c := range rule.build(m) {
			c.Object = strings.TrimRight(strings.TrimSpace(c.Object), ".,!?;:")
			if !validObject(c.Object) {
				continue
			}
			c.Subject = normalizeSubject(c.Subject)
			out = append(out, c)
			matched = true
		}
	}
	if !matched {
		if topic := heuristicTopic(text); topic != "" {
			out = append(out, FactCandidate{
				Subject: "memory", Predicate: "about_topic", Object: topic,
				Category: storage.CategoryBelief, Confidence: 0.7,
			})
		}
	}
	return out
}

// heuristicTopic picks the longest capitalized-or-noun-like token run as
// a last-resort topic when no regex pattern matched.
func heuristicTopic(text string) string {
	words := strings.Fields(text)
	best := ""
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'")
		if len(w) > len(best) && len(w) >= 3 {
			best = w
		}
	}
	if !validObject(best) {
		return ""
	}
	return best
}
