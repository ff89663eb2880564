// Package retrieval is the Retrieval Engine: it classifies a query,
// runs several scoring strategies in parallel, and merges their output
// into one ranked, explainable result set.
package retrieval
