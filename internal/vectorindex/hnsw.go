package vectorindex

import (
	"math"
	"math/rand"
	"sync"
)

// Default HNSW parameters (spec §4.2, §6), matching the defaults observed
// across the ecosystem's own HNSW-backed vector stores.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
)

type hnswNode struct {
	id        string
	vector    []float32
	level     int
	neighbors [][]string // neighbors[layer] = neighbor ids at that layer
}

// HNSW is a hierarchical navigable small world graph over unit-normalized
// embeddings (spec §4.2).
type HNSW struct {
	mu             sync.RWMutex
	dims           int
	m              int
	efConstruction int
	entryPoint     string
	maxLevel       int
	nodes          map[string]*hnswNode
	rng            *rand.Rand
}

// Config configures an HNSW index.
type Config struct {
	Dimensions     int
	M              int
	EfConstruction int
	// Seed makes level assignment deterministic, primarily for tests.
	Seed int64
}

// NewHNSW returns an empty HNSW index. Unset M/EfConstruction fall back
// to the spec defaults (M=16, efConstruction=200).
func NewHNSW(cfg Config) *HNSW {
	m := cfg.M
	if m <= 0 {
		m = DefaultM
	}
	ef := cfg.EfConstruction
	if ef <= 0 {
		ef = DefaultEfConstruction
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &HNSW{
		dims:           cfg.Dimensions,
		m:              m,
		efConstruction: ef,
		maxLevel:       -1,
		nodes:          make(map[string]*hnswNode),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// randomLevel draws level ~ floor(-ln(U(0,1)) / ln(2)) (spec §4.2).
func (h *HNSW) randomLevel() int {
	u := h.rng.Float64()
	for u == 0 {
		u = h.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) / math.Ln2))
}

func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func (h *HNSW) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = make(map[string]*hnswNode)
	h.entryPoint = ""
	h.maxLevel = -1
}

// Insert adds id with vector, greedily descending from the current entry
// point with ef=1 down to the new node's level, then beam-searching each
// layer from 0..target_level with ef=efConstruction, keeping the M
// closest neighbors at each layer (spec §4.2).
func (h *HNSW) Insert(id string, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dims == 0 {
		h.dims = len(vector)
	}
	if len(vector) != h.dims {
		return ErrDimensionMismatch
	}
	vec := normalize(append([]float32(nil), vector...))
	level := h.randomLevel()

	// Replacing an existing id: detach old edges first.
	if existing, ok := h.nodes[id]; ok {
		h.detach(existing)
	}

	node := &hnswNode{id: id, vector: vec, level: level, neighbors: make([][]string, level+1)}
	h.nodes[id] = node

	if h.entryPoint == "" {
		h.entryPoint = id
		h.maxLevel = level
		return nil
	}

	ep := h.entryPoint
	// Greedy descend with ef=1 from the top down to target level+1.
	for l := h.maxLevel; l > level; l-- {
		ep = h.greedyClosest(ep, vec, l)
	}

	// Beam search and connect at each layer from min(level, maxLevel) down to 0.
	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(vec, ep, h.efConstruction, l, nil)
		neighbors := selectMClosest(candidates, h.m)
		for _, nb := range neighbors {
			node.neighbors[l] = append(node.neighbors[l], nb.ID)
			h.addBackLink(nb.ID, id, l)
		}
		if len(candidates) > 0 {
			ep = candidates[0].ID
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = id
	}
	return nil
}

func (h *HNSW) addBackLink(fromID, toID string, layer int) {
	n, ok := h.nodes[fromID]
	if !ok || layer >= len(n.neighbors) {
		return
	}
	n.neighbors[layer] = append(n.neighbors[layer], toID)
	if len(n.neighbors[layer]) > h.m {
		// Prune to the M closest by re-scoring against this node's own vector.
		cands := make([]Result, 0, len(n.neighbors[layer]))
		for _, nid := range n.neighbors[layer] {
			if other, ok := h.nodes[nid]; ok {
				cands = append(cands, Result{ID: nid, Score: dot(n.vector, other.vector)})
			}
		}
		kept := selectMClosest(cands, h.m)
		pruned := make([]string, len(kept))
		for i, r := range kept {
			pruned[i] = r.ID
		}
		n.neighbors[layer] = pruned
	}
}

// detach removes every back-reference to n at every layer; if n was the
// entry point, the surviving node with the highest level is promoted
// (spec §4.2 Deletion).
func (h *HNSW) detach(n *hnswNode) {
	for l, neighbors := range n.neighbors {
		for _, nbID := range neighbors {
			nb, ok := h.nodes[nbID]
			if !ok || l >= len(nb.neighbors) {
				continue
			}
			nb.neighbors[l] = removeID(nb.neighbors[l], n.id)
		}
	}
	delete(h.nodes, n.id)

	if h.entryPoint == n.id {
		h.entryPoint = ""
		h.maxLevel = -1
		for _, other := range h.nodes {
			if other.level > h.maxLevel {
				h.maxLevel = other.level
				h.entryPoint = other.id
			}
		}
	}
}

// Remove deletes id; removing an unknown id is a no-op.
func (h *HNSW) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.nodes[id]
	if !ok {
		return
	}
	h.detach(n)
}

// Search greedily descends from the top layer to layer 1 with ef=1, then
// beam-searches layer 0 with ef=2k (no separate efSearch setting is
// applied), filtering by excluded
// ids and score >= threshold (spec §4.2). An empty index returns an empty
// result, not an error.
func (h *HNSW) Search(query []float32, k int, threshold float32, excluded map[string]bool) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.dims != 0 && len(query) != h.dims {
		return nil, ErrDimensionMismatch
	}
	if len(h.nodes) == 0 {
		return nil, nil
	}
	q := normalize(query)

	ep := h.entryPoint
	for l := h.maxLevel; l > 0; l-- {
		ep = h.greedyClosest(ep, q, l)
	}

	ef := 2 * k
	if ef < k {
		ef = k
	}
	candidates := h.searchLayer(q, ep, ef, 0, excluded)

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			out = append(out, c)
		}
	}
	sortResultsDesc(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// greedyClosest does a single-candidate (ef=1) greedy walk at layer l,
// moving to any neighbor strictly closer to query than the current best.
func (h *HNSW) greedyClosest(start string, query []float32, layer int) string {
	best := start
	bestScore := dot(query, h.nodes[start].vector)
	improved := true
	for improved {
		improved = false
		cur := h.nodes[best]
		if layer >= len(cur.neighbors) {
			break
		}
		for _, nbID := range cur.neighbors[layer] {
			nb, ok := h.nodes[nbID]
			if !ok {
				continue
			}
			score := dot(query, nb.vector)
			if score > bestScore {
				bestScore = score
				best = nbID
				improved = true
			}
		}
	}
	return best
}

// searchLayer is a beam search with the given ef at layer, starting from
// entry, returning up to ef candidates sorted by descending score.
func (h *HNSW) searchLayer(query []float32, entry string, ef, layer int, excluded map[string]bool) []Result {
	visited := map[string]bool{entry: true}
	entryNode, ok := h.nodes[entry]
	if !ok {
		return nil
	}
	candidates := []Result{{ID: entry, Score: dot(query, entryNode.vector)}}
	var results []Result
	if excluded == nil || !excluded[entry] {
		results = append(results, candidates[0])
	}

	for len(candidates) > 0 {
		sortResultsDesc(candidates)
		cur := candidates[0]
		candidates = candidates[1:]

		curNode, ok := h.nodes[cur.ID]
		if !ok || layer >= len(curNode.neighbors) {
			continue
		}
		for _, nbID := range curNode.neighbors[layer] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nb, ok := h.nodes[nbID]
			if !ok {
				continue
			}
			score := dot(query, nb.vector)
			candidates = append(candidates, Result{ID: nbID, Score: score})
			if excluded == nil || !excluded[nbID] {
				results = append(results, Result{ID: nbID, Score: score})
			}
		}
		if len(results) >= ef && len(candidates) > 0 {
			sortResultsDesc(candidates)
			sortResultsDesc(results)
			if candidates[0].Score < results[ef-1].Score {
				break
			}
		}
	}
	sortResultsDesc(results)
	if len(results) > ef {
		results = results[:ef]
	}
	return results
}

func selectMClosest(candidates []Result, m int) []Result {
	sortResultsDesc(candidates)
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	return candidates
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
