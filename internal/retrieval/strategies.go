package retrieval

import (
	"regexp"
	"strings"

	"github.com/orsinium-labs/stopwords"

	"github.com/mycelicmemory/core/internal/goals"
	"github.com/mycelicmemory/core/internal/storage"
	"github.com/mycelicmemory/core/internal/vectorindex"
)

var en = stopwords.MustGet("en")

// candidate is one strategy's vote for a node: which score component it
// contributes to, and how strongly.
type candidate struct {
	nodeID    string
	component string // "vector", "keyword", "fact_match", or "importance" (goal-based)
	score     float64
	reason    string
}

// vectorStrategy returns the top-2k ANN neighbors above a 0.2 cosine
// threshold (spec §4.6).
func vectorStrategy(idx vectorindex.Index, queryEmbedding []float32, k int) ([]candidate, error) {
	if queryEmbedding == nil {
		return nil, nil
	}
	results, err := idx.Search(queryEmbedding, 2*k, 0.2, nil)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(results))
	for _, r := range results {
		out = append(out, candidate{nodeID: r.ID, component: "vector", score: float64(r.Score), reason: "vector similarity"})
	}
	return out, nil
}

// tokenSet lowercases, strips punctuation, and removes stopwords.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w == "" || en.Contains(w) {
			continue
		}
		set[w] = true
	}
	return set
}

// keywordStrategy scores FTS5-generated candidates by stopword-filtered
// token-intersection ratio, with a substring bonus (spec §4.6).
func keywordStrategy(store *storage.Store, userID, query string, limit int) ([]candidate, error) {
	nodes, err := store.SearchFTS(userID, query, limit)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenSet(query)
	lowerQuery := strings.ToLower(query)
	out := make([]candidate, 0, len(nodes))
	for _, n := range nodes {
		score := keywordOverlap(queryTokens, n.Content, lowerQuery)
		if score <= 0 {
			continue
		}
		out = append(out, candidate{nodeID: n.ID, component: "keyword", score: score, reason: "keyword overlap"})
	}
	return out, nil
}

func keywordOverlap(queryTokens map[string]bool, content, lowerQuery string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenSet(content)
	hit := 0
	for w := range queryTokens {
		if contentTokens[w] {
			hit++
		}
	}
	score := float64(hit) / float64(len(queryTokens))
	if lowerQuery != "" && strings.Contains(strings.ToLower(content), lowerQuery) {
		score += 0.3
	}
	if score > 1 {
		score = 1
	}
	return score
}

var capitalizedEntity = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)
var quotedEntity = regexp.MustCompile(`"([^"]+)"`)

// factLookupStrategy runs only when the query classifies as factual: for
// every capitalized or quoted entity mentioned in the query, look up
// facts by subject (spec §4.6).
func factLookupStrategy(store *storage.Store, userID, query string) ([]candidate, error) {
	subjects := map[string]bool{"user": true}
	for _, m := range capitalizedEntity.FindAllString(query, -1) {
		subjects[strings.ToLower(m)] = true
	}
	for _, m := range quotedEntity.FindAllStringSubmatch(query, -1) {
		subjects[strings.ToLower(m[1])] = true
	}

	var out []candidate
	for subject := range subjects {
		facts, err := store.GetFactsBySubject(subject, userID)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			if f.SourceMemoryID == "" {
				continue
			}
			out = append(out, candidate{
				nodeID: f.SourceMemoryID, component: "fact_match", score: f.Confidence,
				reason: "fact lookup: " + f.Predicate,
			})
		}
	}
	return out, nil
}

// goalBasedStrategy runs only when the query classifies as
// goal_progress: every goal relevant to the query contributes all of
// its linked memories as candidates with a fixed 0.8 score, counted
// toward the importance component since a goal-linked memory is
// inherently significant rather than textually similar to the query
// (spec §4.6 does not name a dedicated goal component).
func goalBasedStrategy(store *storage.Store, userID, query string) ([]candidate, error) {
	clusters, err := store.ListGoalClusters(userID)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, c := range clusters {
		if goals.Relevance(query, c.GoalContent) <= 0.2 {
			continue
		}
		for _, id := range linkedMemoryIDs(c) {
			out = append(out, candidate{nodeID: id, component: "importance", score: 0.8, reason: "goal-linked: " + c.GoalContent})
		}
	}
	return out, nil
}

func linkedMemoryIDs(c *storage.GoalCluster) []string {
	ids := make([]string, 0, len(c.ProgressIDs)+len(c.BlockerIDs)+len(c.MotivationIDs)+len(c.InsightIDs))
	ids = append(ids, c.ProgressIDs...)
	ids = append(ids, c.BlockerIDs...)
	ids = append(ids, c.MotivationIDs...)
	ids = append(ids, c.InsightIDs...)
	return ids
}
