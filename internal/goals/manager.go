package goals

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/core/internal/storage"
)

// Manager owns goal clusters for one store. It keeps no in-memory copy:
// every call reads and writes the goal_clusters table (spec §9: the table
// is the source of truth).
type Manager struct {
	store *storage.Store
}

// NewManager returns a Manager backed by store. Nothing is cached beyond
// the Store's own connection; every call re-reads or re-writes through
// it, so there is no separate rehydration step to forget.
func NewManager(store *storage.Store) *Manager {
	return &Manager{store: store}
}

// LinkResult is one outcome of Link: the goal a memory was attached to,
// how it was classified, and its relevance score.
type LinkResult struct {
	GoalID    string
	LinkType  LinkType
	Relevance float64
}

// RegisterGoal implements `register_goal(memory_id, content, user_id) ->
// cluster` (spec §4.5): it creates a new goal cluster rooted at the
// given memory.
func (m *Manager) RegisterGoal(memoryID, content, userID string) (*storage.GoalCluster, error) {
	cluster := &storage.GoalCluster{
		ID:           uuid.NewString(),
		GoalMemoryID: memoryID,
		GoalContent:  content,
		CreatedAt:    time.Now().UTC(),
		UserID:       userID,
	}
	if err := m.store.PutGoalCluster(cluster); err != nil {
		return nil, fmt.Errorf("register goal: %w", err)
	}
	return cluster, nil
}

// Link implements `link(memory_id, content, valence, user_id) ->
// [link_result]` (spec §4.5): every goal cluster for userID whose
// relevance to content clears the threshold gets this memory appended to
// the appropriate bucket and its emotional trajectory extended.
func (m *Manager) Link(memoryID, content string, valence float64, userID string) ([]LinkResult, error) {
	clusters, err := m.store.ListGoalClusters(userID)
	if err != nil {
		return nil, fmt.Errorf("link: list goal clusters: %w", err)
	}

	var results []LinkResult
	for _, cluster := range clusters {
		score := Relevance(content, cluster.GoalContent)
		if !ShouldLink(score) {
			continue
		}

		linkType := Classify(content)
		switch linkType {
		case LinkProgress:
			cluster.ProgressIDs = append(cluster.ProgressIDs, memoryID)
		case LinkBlocker:
			cluster.BlockerIDs = append(cluster.BlockerIDs, memoryID)
		case LinkMotivation:
			cluster.MotivationIDs = append(cluster.MotivationIDs, memoryID)
		default:
			cluster.InsightIDs = append(cluster.InsightIDs, memoryID)
		}
		cluster.EmotionalTrajectory = append(cluster.EmotionalTrajectory, storage.EmotionalSample{
			At: time.Now().UTC(), Valence: valence,
		})

		if err := m.store.PutGoalCluster(cluster); err != nil {
			return nil, fmt.Errorf("link: put goal cluster: %w", err)
		}
		if err := m.store.PutMemoryGoalLink(&storage.MemoryGoalLink{
			ID:        uuid.NewString(),
			MemoryID:  memoryID,
			GoalID:    cluster.ID,
			LinkType:  storage.MemoryGoalLinkType(linkType),
			Relevance: score,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("link: put memory goal link: %w", err)
		}

		results = append(results, LinkResult{GoalID: cluster.ID, LinkType: linkType, Relevance: score})
	}
	return results, nil
}

// Trend is the direction of a goal's emotional trajectory.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// CoachingContext implements `coaching_context(goal_id) -> summary` (spec
// §4.5): counts per bucket and a trend derived from the first/second
// half mean-sentiment comparison.
type CoachingContext struct {
	GoalID          string
	GoalContent     string
	ProgressCount   int
	BlockerCount    int
	MotivationCount int
	InsightCount    int
	Trend           Trend
}

// CoachingContext returns nil, nil if goalID is unknown.
func (m *Manager) CoachingContext(goalID string) (*CoachingContext, error) {
	cluster, err := m.store.GetGoalCluster(goalID)
	if err != nil {
		return nil, fmt.Errorf("coaching context: %w", err)
	}
	if cluster == nil {
		return nil, nil
	}
	return &CoachingContext{
		GoalID:          cluster.ID,
		GoalContent:     cluster.GoalContent,
		ProgressCount:   len(cluster.ProgressIDs),
		BlockerCount:    len(cluster.BlockerIDs),
		MotivationCount: len(cluster.MotivationIDs),
		InsightCount:    len(cluster.InsightIDs),
		Trend:           trajectoryTrend(cluster.EmotionalTrajectory),
	}, nil
}

// trajectoryTrend compares the mean sentiment of the first and second
// half of the trajectory; |delta| > 0.2 is improving/declining, else
// stable (spec §4.5).
func trajectoryTrend(samples []storage.EmotionalSample) Trend {
	if len(samples) < 2 {
		return TrendStable
	}
	mid := len(samples) / 2
	firstMean := meanValence(samples[:mid])
	secondMean := meanValence(samples[mid:])
	delta := secondMean - firstMean
	switch {
	case delta > 0.2:
		return TrendImproving
	case delta < -0.2:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func meanValence(samples []storage.EmotionalSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Valence
	}
	return sum / float64(len(samples))
}
