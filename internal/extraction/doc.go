// Package extraction is the Extraction Pipeline: a deterministic,
// network-free rule/regex extractor that turns a single input string into
// structured facts, tracked entities, temporal information, and an
// emotional valence vector.
package extraction
