package goals

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

var en = stopwords.MustGet("en")

// tokenSet lowercases, splits on whitespace, strips punctuation, and
// drops stopwords, returning a set suitable for Jaccard similarity (spec
// §4.5: "stopword-filtered token sets").
func tokenSet(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w == "" || en.Contains(w) {
			continue
		}
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// relevanceThreshold is the score above which a memory is linked to a
// goal (spec §4.5).
const relevanceThreshold = 0.3

// Relevance computes the (memory, goal) relevance score: Jaccard
// similarity between stopword-filtered token sets plus keyword-family
// bonuses (spec §4.5).
func Relevance(memoryContent, goalContent string) float64 {
	score := jaccard(tokenSet(memoryContent), tokenSet(goalContent))
	if containsAny(memoryContent, progressKeywords) {
		score += 0.15
	}
	if containsAny(memoryContent, blockerKeywords) {
		score += 0.15
	}
	if containsAny(memoryContent, motivationKeywords) {
		score += 0.10
	}
	if score > 1 {
		score = 1
	}
	return score
}

// ShouldLink reports whether a relevance score clears the linking
// threshold (spec §4.5).
func ShouldLink(score float64) bool {
	return score > relevanceThreshold
}
