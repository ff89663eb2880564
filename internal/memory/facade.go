package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/core/internal/contradiction"
	"github.com/mycelicmemory/core/internal/extraction"
	"github.com/mycelicmemory/core/internal/goals"
	"github.com/mycelicmemory/core/internal/logging"
	"github.com/mycelicmemory/core/internal/providers"
	"github.com/mycelicmemory/core/internal/retrieval"
	"github.com/mycelicmemory/core/internal/storage"
	"github.com/mycelicmemory/core/internal/vectorindex"
	"github.com/mycelicmemory/core/pkg/config"
)

var log = logging.GetLogger("memory")

// dedupSimilarityThreshold is the spec-fixed cosine bar for treating a
// newly extracted fact as a duplicate of one already on file, checked
// before the Contradiction Engine ever sees it (SPEC_FULL.md §D).
const dedupSimilarityThreshold = 0.85

// Facade is the composition root: it owns the Storage Engine and Vector
// Index and wires extraction, contradiction detection, goal clustering
// and retrieval into a single ingest/query/session API. Nothing outside
// this package talks to those subsystems directly.
type Facade struct {
	store    *storage.Store
	index    vectorindex.Index
	goalMgr  *goals.Manager
	embedder providers.EmbeddingProvider
	llm      providers.LLMProvider
	sessions *SessionDetector
	cfg      *config.Config
}

// Open opens storage at cfg.Database.Path, builds the configured Vector
// Index, and performs startup recovery: streaming every persisted
// embedding back into the index before the facade accepts calls (spec
// §4.7, §9 crash-recovery invariant). llm may be nil; the facade's
// response-synthesis helper is then unavailable.
func Open(cfg *config.Config, embedder providers.EmbeddingProvider, llm providers.LLMProvider) (*Facade, error) {
	store, err := storage.Open(storage.Options{
		Path:            cfg.Database.Path,
		Dimensions:      cfg.Embedding.Dimensions,
		EnableVecMirror: cfg.Database.EnableVecMirror,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	index := buildIndex(cfg)
	count := 0
	if err := store.ListEmbeddings(func(id string, vector []float32) error {
		if err := index.Insert(id, vector); err != nil {
			return err
		}
		count++
		return nil
	}); err != nil {
		store.Close()
		return nil, fmt.Errorf("rebuild vector index: %w", err)
	}
	log.Info("startup recovery complete", "embeddings_loaded", count)

	strategy := SessionStrategy(cfg.Session.Strategy)
	if strategy == "" {
		strategy = SessionStrategyGitDirectory
	}
	detector := NewSessionDetector(strategy)
	detector.ManualID = cfg.Session.ManualID

	return &Facade{
		store:    store,
		index:    index,
		goalMgr:  goals.NewManager(store),
		embedder: embedder,
		llm:      llm,
		sessions: detector,
		cfg:      cfg,
	}, nil
}

func buildIndex(cfg *config.Config) vectorindex.Index {
	if cfg.VectorIndex.Kind == "linear" {
		return vectorindex.NewLinear(cfg.Embedding.Dimensions)
	}
	return vectorindex.NewHNSW(vectorindex.Config{
		Dimensions:     cfg.Embedding.Dimensions,
		M:              cfg.VectorIndex.M,
		EfConstruction: cfg.VectorIndex.EfConstruction,
	})
}

// Close releases the underlying storage connection.
func (f *Facade) Close() error {
	return f.store.Close()
}

// embed validates the provider's returned vector against the configured
// dimension before any write touches storage or the index (spec §7
// "Embedding" error kind).
func (f *Facade) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	if f.embedder.Dimensions() > 0 && len(vec) != f.embedder.Dimensions() {
		return nil, fmt.Errorf("embedding provider returned %d dims, wants %d", len(vec), f.embedder.Dimensions())
	}
	return vec, nil
}

// StoreMessage implements `store_message(text, role, session?, metadata)
// -> id` (spec §4.7): embeds text, persists the node, and writes the
// embedding through to both storage and the vector index before
// returning, so the write-through ordering guarantee holds.
func (f *Facade) StoreMessage(ctx context.Context, text, role, sessionID, userID string, metadata storage.Metadata) (string, error) {
	vec, err := f.embed(ctx, text)
	if err != nil {
		return "", err
	}

	if metadata == nil {
		metadata = storage.Metadata{}
	}
	if role != "" {
		metadata["role"] = storage.StringValue(role)
	}
	if sessionID != "" {
		metadata["session_id"] = storage.StringValue(sessionID)
	}

	node := &storage.Node{
		ID:         uuid.NewString(),
		Content:    text,
		Type:       storage.MemoryConversation,
		Layer:      initialLayer(0.5),
		Importance: 0.5,
		Confidence: 1.0,
		IsLatest:   true,
		UserID:     userID,
		Metadata:   metadata,
	}

	if err := f.store.PutNode(node, nil, vec); err != nil {
		return "", fmt.Errorf("store message: %w", err)
	}
	if err := f.index.Insert(node.ID, vec); err != nil {
		// The durable write already succeeded; best-effort undo it so a
		// node never outlives its queryable embedding.
		_ = f.store.DeleteNode(node.ID, storage.DeleteNodeOnly)
		return "", fmt.Errorf("index embedding: %w", err)
	}
	return node.ID, nil
}

// ConflictResult is the outcome of StoreMemoryWithConflictDetection: the
// persisted memory id plus every fact/entity extracted from it and how
// each contradiction was resolved.
type ConflictResult struct {
	MemoryID       string
	Facts          []storage.Fact
	Entities       []storage.Entity
	Contradictions []contradiction.Result
	Duplicates     int
}

// StoreMemoryWithConflictDetection implements the conflict-aware ingest
// path (spec §4.7): persist the node, run the Extraction Pipeline, then
// for each candidate fact run duplicate detection before the
// Contradiction Engine sees it (SPEC_FULL.md §D redesign decision), and
// finally persist entities and extend goal-cluster links.
func (f *Facade) StoreMemoryWithConflictDetection(ctx context.Context, text, userID string, importance float64, metadata storage.Metadata) (ConflictResult, error) {
	vec, err := f.embed(ctx, text)
	if err != nil {
		return ConflictResult{}, err
	}

	now := time.Now().UTC()
	extracted := extraction.Extract(text, "", userID, now)

	if metadata == nil {
		metadata = storage.Metadata{}
	}
	node := &storage.Node{
		ID:               uuid.NewString(),
		Content:          text,
		Type:             storage.MemorySemantic,
		Layer:            initialLayer(importance),
		Importance:       importance,
		Confidence:       1.0,
		IsLatest:         true,
		UserID:           userID,
		EmotionalValence: toStorageValence(extracted.Valence),
		Entities:         entityNames(extracted.Entities),
		Metadata:         metadata,
	}
	if extracted.Temporal.EventTime != nil {
		node.EventDate = extracted.Temporal.EventTime
	}

	if err := f.store.PutNode(node, nil, vec); err != nil {
		return ConflictResult{}, fmt.Errorf("store memory: %w", err)
	}
	if err := f.index.Insert(node.ID, vec); err != nil {
		_ = f.store.DeleteNode(node.ID, storage.DeleteNodeOnly)
		return ConflictResult{}, fmt.Errorf("index embedding: %w", err)
	}

	result := ConflictResult{MemoryID: node.ID}

	for _, candidate := range extracted.Facts {
		candidate.SourceMemoryID = node.ID

		existing, err := f.store.GetFactsBySubject(candidate.Subject, userID)
		if err != nil {
			return result, fmt.Errorf("lookup existing facts: %w", err)
		}
		existingLatest := make([]storage.Fact, 0, len(existing))
		for _, e := range existing {
			if e.IsLatest {
				existingLatest = append(existingLatest, *e)
			}
		}

		dup, err := f.isDuplicateFact(candidate, existingLatest, vec)
		if err != nil {
			return result, err
		}
		if dup {
			result.Duplicates++
			continue
		}

		cr := contradiction.Check(candidate, existingLatest)
		if cr.Type != contradiction.TypeNone {
			result.Contradictions = append(result.Contradictions, cr)
			if cr.Resolution == contradiction.ResolutionKeepExisting {
				continue
			}
			if cr.Resolution == contradiction.ResolutionNewSupersedes && cr.Existing != nil {
				if err := f.store.PutEdge(&storage.Edge{
					ID:               uuid.NewString(),
					FromID:           node.ID,
					ToID:             cr.Existing.SourceMemoryID,
					RelationshipType: storage.RelSupersedes,
					Weight:           cr.Confidence,
				}); err != nil {
					return result, fmt.Errorf("put supersession edge: %w", err)
				}
				if err := f.supersedeNode(cr.Existing.SourceMemoryID, node.ID); err != nil {
					return result, err
				}
			}
		}

		if err := f.store.PutFact(&candidate); err != nil {
			return result, fmt.Errorf("put fact: %w", err)
		}
		result.Facts = append(result.Facts, candidate)
	}

	for _, entity := range extracted.Entities {
		if err := f.store.PutEntity(&entity); err != nil {
			return result, fmt.Errorf("put entity: %w", err)
		}
		result.Entities = append(result.Entities, entity)
	}

	if _, err := f.goalMgr.Link(node.ID, text, extracted.Valence.Sentiment, userID); err != nil {
		return result, fmt.Errorf("link goal clusters: %w", err)
	}

	return result, nil
}

// supersedeNode flips the old node's is_latest/superseded_by flags and
// drops its embedding from the Vector Index so it stops surfacing in
// vector/keyword retrieval: "archived memories are excluded from
// retrieval by default" (spec §4.4).
func (f *Facade) supersedeNode(oldNodeID, newNodeID string) error {
	old, err := f.store.GetNode(oldNodeID)
	if err != nil {
		return fmt.Errorf("load superseded node: %w", err)
	}
	if old == nil {
		return nil
	}
	old.IsLatest = false
	old.SupersededBy = newNodeID
	if err := f.store.PutNode(old, nil, nil); err != nil {
		return fmt.Errorf("persist superseded node: %w", err)
	}
	f.index.Remove(oldNodeID)
	return nil
}

// isDuplicateFact reports whether candidate restates an existing latest
// fact on the same subject/predicate/object whose source memory's
// embedding is within dedupSimilarityThreshold cosine of vec.
func (f *Facade) isDuplicateFact(candidate storage.Fact, existing []storage.Fact, vec []float32) (bool, error) {
	for _, e := range existing {
		if !strings.EqualFold(e.Predicate, candidate.Predicate) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(e.Object), strings.TrimSpace(candidate.Object)) {
			continue
		}
		emb, err := f.store.GetEmbedding(e.SourceMemoryID)
		if err != nil {
			return false, fmt.Errorf("lookup source embedding: %w", err)
		}
		if emb == nil {
			continue
		}
		if cosineSimilarity(vec, emb.Vector) >= dedupSimilarityThreshold {
			return true, nil
		}
	}
	return false, nil
}

// Turn splitting and multi-node persistence for store_conversation.

// StoreConversation implements `store_conversation` (spec §4.7,
// SPEC_FULL.md §C): splits a raw transcript into turns and persists one
// Memory Node per turn, preserving the spec's one-node-per-utterance
// invariant rather than sub-chunking a single node.
func (f *Facade) StoreConversation(ctx context.Context, transcript, sessionID, userID string) ([]string, error) {
	turns := SplitConversationTurns(transcript)
	ids := make([]string, 0, len(turns))
	for _, turn := range turns {
		id, err := f.StoreMessage(ctx, turn.Content, turn.Role, sessionID, userID, nil)
		if err != nil {
			return ids, fmt.Errorf("store turn %d: %w", len(ids), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteMemory implements `delete_memory(id, mode)` (spec §4.1, §4.7):
// removes the node from storage per mode and drops it from the vector
// index so it can never surface in a later search.
func (f *Facade) DeleteMemory(id string, mode storage.DeleteMode) error {
	if err := f.store.DeleteNode(id, mode); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	f.index.Remove(id)
	return nil
}

// RetrieveContext implements `retrieve_context(query, user_id, top_k)`
// (spec §4.6, §4.7): runs the full weighted retrieval pipeline. When
// sessionID is non-empty, results are narrowed to nodes tagged with it.
func (f *Facade) RetrieveContext(ctx context.Context, queryText, userID, sessionID string, topK int) (retrieval.Response, error) {
	resp, err := f.query(ctx, queryText, userID, topK)
	if err != nil {
		return retrieval.Response{}, err
	}
	if sessionID == "" {
		return resp, nil
	}
	filtered := resp.Results[:0]
	for _, r := range resp.Results {
		if containsTag(r.Node.ContainerTags, sessionID) || nodeSessionID(r.Node) == sessionID {
			filtered = append(filtered, r)
		}
	}
	resp.Results = filtered
	return resp, nil
}

// QueryAcrossSessions implements `query_across_sessions(query, user_id,
// top_k)` (spec §4.7): the same retrieval pipeline, with no session
// narrowing, so memories from every past conversation are eligible.
func (f *Facade) QueryAcrossSessions(ctx context.Context, queryText, userID string, topK int) (retrieval.Response, error) {
	return f.query(ctx, queryText, userID, topK)
}

func (f *Facade) query(ctx context.Context, queryText, userID string, topK int) (retrieval.Response, error) {
	if topK <= 0 {
		topK = f.cfg.Retrieval.DefaultTopK
	}
	var queryEmbedding []float32
	if f.embedder != nil {
		vec, err := f.embed(ctx, queryText)
		if err != nil {
			log.Warn("query embedding failed, falling back to keyword-only retrieval", "error", err)
		} else {
			queryEmbedding = vec
		}
	}
	return retrieval.Query(f.store, f.index, queryText, userID, queryEmbedding, topK, time.Now().UTC())
}

// GetTimeline implements `get_timeline` (spec §4.7): every node for
// userID created strictly after since and strictly before until, newest
// first, bounded by limit.
func (f *Facade) GetTimeline(userID string, since, until time.Time, limit int) ([]*storage.Node, error) {
	filter := storage.NodeFilter{UserID: userID}
	if !since.IsZero() {
		filter.CreatedAfter = &since
	}
	if !until.IsZero() {
		filter.CreatedBefore = &until
	}
	nodes, err := f.store.QueryNodes(filter, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("get timeline: %w", err)
	}
	return nodes, nil
}

// StartSession implements `start_session` (spec §4.7). An empty id is
// resolved via the configured SessionDetector.
func (f *Facade) StartSession(id, sessionType string, metadata storage.Metadata) (*storage.Session, error) {
	if id == "" {
		id = f.sessions.DetectSessionID()
	}
	sess := &storage.Session{ID: id, Start: time.Now().UTC(), Type: sessionType, Metadata: metadata}
	if err := f.store.StartSession(sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// EndSession implements `end_session` (spec §4.7).
func (f *Facade) EndSession(id string) error {
	if err := f.store.EndSession(id, time.Now().UTC()); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// GetSessionMemories implements `get_session_memories` (spec §4.7).
func (f *Facade) GetSessionMemories(sessionID string) ([]*storage.Node, error) {
	nodes, err := f.store.GetSessionMemories(sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session memories: %w", err)
	}
	return nodes, nil
}

// ExtractFacts implements `extract_facts` (spec §4.7) as a standalone
// call, independent of storing anything: useful for a caller that wants
// to preview extraction before committing a memory.
func (f *Facade) ExtractFacts(text, sourceMemoryID, userID string) extraction.Result {
	return extraction.Extract(text, sourceMemoryID, userID, time.Now().UTC())
}

// GetMemoryStats implements `get_memory_stats` (spec §4.7).
func (f *Facade) GetMemoryStats() (*storage.Stats, error) {
	return f.store.GetStats()
}

// IndexSize reports how many vectors are currently held in the Vector
// Index, for `doctor`-style diagnostics comparing it against the
// persisted node count (spec §9 crash-recovery invariant).
func (f *Facade) IndexSize() int {
	return f.index.Len()
}

// ClearAllMemories implements `clear_all_memories` (spec §4.7): deletes
// every node owned by userID, cascading edges/embeddings/facts, and
// drops each from the vector index.
func (f *Facade) ClearAllMemories(userID string) error {
	nodes, err := f.store.QueryNodes(storage.NodeFilter{UserID: userID}, 0, 0)
	if err != nil {
		return fmt.Errorf("clear all memories: list: %w", err)
	}
	for _, n := range nodes {
		if err := f.store.DeleteNode(n.ID, storage.DeleteCascade); err != nil {
			return fmt.Errorf("clear all memories: delete %s: %w", n.ID, err)
		}
		f.index.Remove(n.ID)
	}
	return nil
}

// RegisterGoal delegates to the Goal Clustering layer's `register_goal`
// (spec §4.5).
func (f *Facade) RegisterGoal(memoryID, content, userID string) (*storage.GoalCluster, error) {
	return f.goalMgr.RegisterGoal(memoryID, content, userID)
}

// CoachingContext delegates to the Goal Clustering layer's
// `coaching_context` (spec §4.5).
func (f *Facade) CoachingContext(goalID string) (*goals.CoachingContext, error) {
	return f.goalMgr.CoachingContext(goalID)
}

// Synthesize wraps the optional LLM provider into `(system, user) ->
// string` (spec §6), for callers that want retrieved memories turned
// into prose rather than a raw ranked list. Returns an error if no LLM
// provider was configured.
func (f *Facade) Synthesize(ctx context.Context, system, user string) (string, error) {
	if f.llm == nil {
		return "", fmt.Errorf("memory: no LLM provider configured")
	}
	return f.llm.Complete(ctx, system+"\n\n"+user)
}

// initialLayer maps an ingest-time importance score to a starting layer
// so the recency component (spec §4.6: a layer-specific decay rate) is
// actually reachable on the facade ingest path instead of every memory
// sitting at LayerWorking's zero decay rate forever. Importance is the
// only signal available at store time: the most important memories
// start at core (never decays, top retrieval priority), mid importance
// starts in the decaying long_term/short_term tiers so recency pulls
// older ones down over time, and low-importance memories start at
// working, same as before.
func initialLayer(importance float64) storage.Layer {
	switch {
	case importance >= 0.9:
		return storage.LayerCore
	case importance >= 0.6:
		return storage.LayerLongTerm
	case importance >= 0.3:
		return storage.LayerShortTerm
	default:
		return storage.LayerWorking
	}
}

func toStorageValence(v extraction.Valence) storage.Valence {
	return storage.Valence{
		Primary:   v.PrimaryEmotion,
		Intensity: v.Intensity,
		Secondary: v.Secondary,
		Sentiment: v.Sentiment,
	}
}

func entityNames(entities []storage.Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func nodeSessionID(n *storage.Node) string {
	v, ok := n.Metadata["session_id"]
	if !ok || v.Kind != storage.KindString {
		return ""
	}
	return v.Str
}

// cosineSimilarity assumes neither vector is nil and both share a
// length; mismatched lengths return 0 rather than panicking, since a
// dimension drift is a storage-layer concern, not this one.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
