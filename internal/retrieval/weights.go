package retrieval

// Weights is the per-query-type weight vector over the six score
// components (spec §4.6). Every row sums to 1.0.
type Weights struct {
	Vector     float64
	Keyword    float64
	Recency    float64
	Importance float64
	Utility    float64
	FactMatch  float64
}

// weightTable is the spec's literal weight table, keyed by query type.
var weightTable = map[QueryType]Weights{
	TypeFactual:      {Vector: 0.20, Keyword: 0.40, Recency: 0.10, Importance: 0.10, Utility: 0.05, FactMatch: 0.15},
	TypeConceptual:   {Vector: 0.50, Keyword: 0.10, Recency: 0.10, Importance: 0.15, Utility: 0.10, FactMatch: 0.05},
	TypeTemporal:     {Vector: 0.15, Keyword: 0.15, Recency: 0.45, Importance: 0.10, Utility: 0.05, FactMatch: 0.10},
	TypeGoalProgress: {Vector: 0.25, Keyword: 0.15, Recency: 0.20, Importance: 0.20, Utility: 0.10, FactMatch: 0.10},
	TypeExploratory:  {Vector: 0.35, Keyword: 0.15, Recency: 0.20, Importance: 0.15, Utility: 0.10, FactMatch: 0.05},
	TypeEmotional:    {Vector: 0.30, Keyword: 0.20, Recency: 0.15, Importance: 0.15, Utility: 0.10, FactMatch: 0.10},
}

// WeightsFor returns the weight vector for a query type.
func WeightsFor(t QueryType) Weights {
	return weightTable[t]
}

// Sum returns the total of all six components, used by tests asserting
// every row sums to 1.0 (spec §8 invariant).
func (w Weights) Sum() float64 {
	return w.Vector + w.Keyword + w.Recency + w.Importance + w.Utility + w.FactMatch
}
