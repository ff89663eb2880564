package memory

import (
	"regexp"
	"strings"
)

// Turn is one speaker turn recovered from a raw conversation transcript,
// ready to become its own Memory Node (one node per stored utterance).
type Turn struct {
	Role    string
	Content string
}

// turnMarker matches a line that opens a new speaker turn, e.g.
// "User: are we still on for Tuesday?" or "Assistant: yes, 3pm works.".
var turnMarker = regexp.MustCompile(`(?i)^\s*(user|assistant|system|human|ai)\s*:\s*(.*)$`)

// SplitConversationTurns splits a raw multi-turn transcript into Turns
// for store_conversation. When the transcript carries explicit
// "Role: text" markers those win; otherwise it falls back to one turn
// per paragraph, alternating user/assistant starting with user.
func SplitConversationTurns(transcript string) []Turn {
	lines := strings.Split(transcript, "\n")

	var turns []Turn
	var curRole string
	var curContent strings.Builder
	sawMarker := false

	flush := func() {
		if curRole == "" {
			return
		}
		content := strings.TrimSpace(curContent.String())
		if content != "" {
			turns = append(turns, Turn{Role: curRole, Content: content})
		}
		curContent.Reset()
	}

	for _, line := range lines {
		if m := turnMarker.FindStringSubmatch(line); m != nil {
			flush()
			curRole = normalizeRole(m[1])
			sawMarker = true
			curContent.WriteString(m[2])
			curContent.WriteString("\n")
			continue
		}
		if curRole != "" {
			curContent.WriteString(line)
			curContent.WriteString("\n")
		}
	}
	flush()

	if sawMarker && len(turns) > 0 {
		return turns
	}

	paragraphs := splitIntoParagraphs(transcript)
	roles := [2]string{"user", "assistant"}
	turns = turns[:0]
	for i, p := range paragraphs {
		turns = append(turns, Turn{Role: roles[i%2], Content: p})
	}
	return turns
}

func normalizeRole(r string) string {
	switch strings.ToLower(r) {
	case "human":
		return "user"
	case "ai":
		return "assistant"
	default:
		return strings.ToLower(r)
	}
}

// splitIntoParagraphs splits content on blank lines, dropping empties.
func splitIntoParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	var paragraphs []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
