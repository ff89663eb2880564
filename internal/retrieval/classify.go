package retrieval

import "strings"

// QueryType is the result of classifying a query string (spec §4.6).
type QueryType string

const (
	TypeEmotional    QueryType = "emotional"
	TypeGoalProgress QueryType = "goal_progress"
	TypeTemporal     QueryType = "temporal"
	TypeFactual      QueryType = "factual"
	TypeConceptual   QueryType = "conceptual"
	TypeExploratory  QueryType = "exploratory"
)

var emotionalKeywords = []string{"feel", "feeling", "felt", "emotion", "mood", "happy", "sad", "anxious", "stressed", "excited"}
var goalProgressKeywords = []string{"goal", "progress", "working on", "how am i doing", "trying to", "objective"}
var temporalKeywords = []string{"recently", "yesterday", "last week", "last month", "when did", "today", "ago", "happened"}
var factualKeywords = []string{"what is", "what's", "who is", "where do", "where is", "name", "when is my"}
var conceptualKeywords = []string{"how does", "why", "explain", "understand", "think about", "opinion"}

// Classify implements the first-hit-wins query classification order
// emotional -> goal_progress -> temporal -> factual -> conceptual ->
// exploratory (spec §4.6).
func Classify(query string) QueryType {
	lower := strings.ToLower(query)
	switch {
	case matchesAny(lower, emotionalKeywords):
		return TypeEmotional
	case matchesAny(lower, goalProgressKeywords):
		return TypeGoalProgress
	case matchesAny(lower, temporalKeywords):
		return TypeTemporal
	case matchesAny(lower, factualKeywords):
		return TypeFactual
	case matchesAny(lower, conceptualKeywords):
		return TypeConceptual
	default:
		return TypeExploratory
	}
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
