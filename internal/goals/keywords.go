package goals

import "strings"

// goalKeywords is the closed is-a-goal keyword set (spec §4.5).
var goalKeywords = []string{
	"goal", "want to", "plan to", "trying to", "working on", "aim to",
	"hope to", "need to", "going to", "will", "resolution", "objective",
	"target", "dream", "aspire",
}

// progressKeywords, blockerKeywords, and motivationKeywords are the
// closed families used to classify a linked memory (spec §4.5). progress
// is checked first, then blocker, then motivation; anything left over is
// related_to.
var progressKeywords = []string{
	"ran", "finished", "completed", "did", "achieved", "managed to",
	"made progress", "hit a milestone", "today i", "this week i",
}

var blockerKeywords = []string{
	"couldn't", "can't", "unable to", "hurt", "injured", "failed",
	"struggled", "gave up", "missed", "skipped", "setback",
}

var motivationKeywords = []string{
	"motivated", "inspired", "because i want", "reminds me why",
	"keeps me going", "excited to", "can't wait to",
}

// IsGoal reports whether content contains any of the closed is-a-goal
// keywords (spec §4.5).
func IsGoal(content string) bool {
	return containsAny(content, goalKeywords)
}

// LinkType is the memory_goal_links classification (mirrors
// storage.MemoryGoalLinkType so this package stays storage-agnostic for
// its pure classification logic).
type LinkType string

const (
	LinkProgress   LinkType = "progress"
	LinkBlocker    LinkType = "blocker"
	LinkMotivation LinkType = "motivation"
	LinkRelatedTo  LinkType = "related_to"
)

// Classify picks the first matching keyword family in the fixed order
// progress -> blocker -> motivation -> related_to (spec §4.5).
func Classify(content string) LinkType {
	switch {
	case containsAny(content, progressKeywords):
		return LinkProgress
	case containsAny(content, blockerKeywords):
		return LinkBlocker
	case containsAny(content, motivationKeywords):
		return LinkMotivation
	default:
		return LinkRelatedTo
	}
}

func containsAny(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
