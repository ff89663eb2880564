package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/mycelicmemory/core/internal/storage"
	"github.com/mycelicmemory/core/internal/vectorindex"
)

// ScoredResult is one ranked hit from Query: the memory, its final
// score, the per-component breakdown that produced it, and why it was
// retrieved (spec §4.6).
type ScoredResult struct {
	Node       *storage.Node
	Score      float64
	Breakdown  Breakdown
	Reason     string
}

// Breakdown is the six weighted components plus the layer boost applied
// multiplicatively (spec §4.6).
type Breakdown struct {
	Vector     float64
	Keyword    float64
	Recency    float64
	Importance float64
	Utility    float64
	FactMatch  float64
	LayerBoost float64
}

// Response is `query(text, user_id, top_k) -> {results, query_type,
// strategies_used, elapsed_ms}` (spec §4.6).
type Response struct {
	Results        []ScoredResult
	QueryType      QueryType
	StrategiesUsed []string
	ElapsedMS      int64
}

// Query runs the classification, parallel strategy, and score-merge
// pipeline against store and idx. queryEmbedding may be nil if no
// embedding provider produced one; the vector strategy is then skipped.
// now is the instant the query runs, passed explicitly to keep scoring
// deterministic and testable.
func Query(store *storage.Store, idx vectorindex.Index, queryText, userID string, queryEmbedding []float32, topK int, now time.Time) (Response, error) {
	started := now
	queryType := Classify(queryText)
	weights := WeightsFor(queryType)

	var vectorCandidates, keywordCandidates, factCandidates, goalCandidates []candidate
	strategiesUsed := []string{"vector", "keyword"}

	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		vectorCandidates, err = vectorStrategy(idx, queryEmbedding, topK)
		return err
	})
	p.Go(func() error {
		var err error
		keywordCandidates, err = keywordStrategy(store, userID, queryText, 2*topK)
		return err
	})
	if queryType == TypeFactual {
		strategiesUsed = append(strategiesUsed, "fact_lookup")
		p.Go(func() error {
			var err error
			factCandidates, err = factLookupStrategy(store, userID, queryText)
			return err
		})
	}
	if queryType == TypeGoalProgress {
		strategiesUsed = append(strategiesUsed, "goal_based")
		p.Go(func() error {
			var err error
			goalCandidates, err = goalBasedStrategy(store, userID, queryText)
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return Response{}, err
	}

	merged := make(map[string]*mergedCandidate)
	applyCandidates(merged, vectorCandidates)
	applyCandidates(merged, keywordCandidates)
	applyCandidates(merged, factCandidates)
	applyCandidates(merged, goalCandidates)

	results := make([]ScoredResult, 0, len(merged))
	for nodeID, mc := range merged {
		node, err := store.GetNode(nodeID)
		if err != nil {
			return Response{}, err
		}
		if node == nil || !node.IsLatest {
			continue
		}
		results = append(results, score(node, mc, weights, now))
	}

	sortResultsDesc(results)
	if len(results) > topK {
		results = results[:topK]
	}

	return Response{
		Results:        results,
		QueryType:      queryType,
		StrategiesUsed: strategiesUsed,
		ElapsedMS:      time.Since(started).Milliseconds(),
	}, nil
}

type mergedCandidate struct {
	vector     float64
	keyword    float64
	factMatch  float64
	importance float64
	reason     string
}

func applyCandidates(merged map[string]*mergedCandidate, cands []candidate) {
	for _, c := range cands {
		mc, ok := merged[c.nodeID]
		if !ok {
			mc = &mergedCandidate{}
			merged[c.nodeID] = mc
		}
		switch c.component {
		case "vector":
			mc.vector = math.Max(mc.vector, c.score)
		case "keyword":
			mc.keyword = math.Max(mc.keyword, c.score)
		case "fact_match":
			mc.factMatch = math.Max(mc.factMatch, c.score)
		case "importance":
			mc.importance = math.Max(mc.importance, c.score)
		}
		if mc.reason == "" {
			mc.reason = c.reason
		}
	}
}

// score implements the score merge formula: breakdown components,
// recency by layer-specific decay, utility as the useful/total
// retrieval ratio, layer_boost from retrieval priority, and the final
// clipped weighted sum (spec §4.6).
func score(node *storage.Node, mc *mergedCandidate, w Weights, now time.Time) ScoredResult {
	ageDays := now.Sub(node.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := math.Exp(-node.Layer.DecayRate() * ageDays)

	utility := 0.5
	if node.TotalRetrievals > 0 {
		utility = float64(node.UsefulRetrievals) / float64(node.TotalRetrievals)
	}

	importance := math.Max(node.Importance, mc.importance)
	layerBoost := float64(node.Layer.RetrievalPriority()) / 100

	breakdown := Breakdown{
		Vector:     mc.vector,
		Keyword:    mc.keyword,
		Recency:    recency,
		Importance: importance,
		Utility:    utility,
		FactMatch:  mc.factMatch,
		LayerBoost: layerBoost,
	}

	weighted := w.Vector*breakdown.Vector + w.Keyword*breakdown.Keyword + w.Recency*breakdown.Recency +
		w.Importance*breakdown.Importance + w.Utility*breakdown.Utility + w.FactMatch*breakdown.FactMatch
	final := weighted * (1 + 0.1*layerBoost)
	if final > 1 {
		final = 1
	}

	return ScoredResult{Node: node, Score: final, Breakdown: breakdown, Reason: mc.reason}
}

// sortResultsDesc orders by final score descending; ties are broken by
// recency then by id, so results are deterministic across runs even
// when map iteration order randomizes the merge (spec §4.6, §8).
func sortResultsDesc(results []ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Breakdown.Recency != b.Breakdown.Recency {
			return a.Breakdown.Recency > b.Breakdown.Recency
		}
		return a.Node.ID < b.Node.ID
	})
}
