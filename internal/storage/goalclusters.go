package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// PutGoalCluster inserts or updates a goal cluster. The table is the
// source of truth; goals.Manager keeps no in-memory copy and reads it on
// every call (spec §9, resolving the open question on GoalMemoryManager
// persistence in favor of the table).
func (s *Store) PutGoalCluster(g *GoalCluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO goal_clusters (
			id, goal_memory_id, goal_content, created_at, progress_ids, blocker_ids,
			motivation_ids, insight_ids, emotional_trajectory, user_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			progress_ids=excluded.progress_ids, blocker_ids=excluded.blocker_ids,
			motivation_ids=excluded.motivation_ids, insight_ids=excluded.insight_ids,
			emotional_trajectory=excluded.emotional_trajectory
	`,
		g.ID, g.GoalMemoryID, g.GoalContent, timeStr(g.CreatedAt),
		encodeStrings(g.ProgressIDs), encodeStrings(g.BlockerIDs), encodeStrings(g.MotivationIDs),
		encodeStrings(g.InsightIDs), encodeTrajectory(g.EmotionalTrajectory), g.UserID,
	)
	if err != nil {
		return fmt.Errorf("put goal cluster: %w", err)
	}
	return nil
}

func scanGoalCluster(row interface{ Scan(...interface{}) error }) (*GoalCluster, error) {
	var g GoalCluster
	var createdAt, progress, blocker, motivation, insight, trajectory string
	err := row.Scan(&g.ID, &g.GoalMemoryID, &g.GoalContent, &createdAt, &progress, &blocker, &motivation, &insight, &trajectory, &g.UserID)
	if err != nil {
		return nil, err
	}
	g.ProgressIDs = decodeStrings(progress)
	g.BlockerIDs = decodeStrings(blocker)
	g.MotivationIDs = decodeStrings(motivation)
	g.InsightIDs = decodeStrings(insight)
	g.EmotionalTrajectory = decodeTrajectory(trajectory)
	if g.CreatedAt, err = parseTimeStr(createdAt); err != nil {
		return nil, err
	}
	return &g, nil
}

const goalClusterColumns = `
	id, goal_memory_id, goal_content, created_at, progress_ids, blocker_ids,
	motivation_ids, insight_ids, emotional_trajectory, user_id
`

// GetGoalCluster returns nil, nil if id is unknown.
func (s *Store) GetGoalCluster(id string) (*GoalCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow("SELECT "+goalClusterColumns+" FROM goal_clusters WHERE id = ?", id)
	g, err := scanGoalCluster(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal cluster: %w", err)
	}
	return g, nil
}

// ListGoalClusters returns every goal cluster for userID; goals.Manager
// and the retrieval goal-based strategy call it on each use.
func (s *Store) ListGoalClusters(userID string) ([]*GoalCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query("SELECT "+goalClusterColumns+" FROM goal_clusters WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("list goal clusters: %w", err)
	}
	defer rows.Close()
	var out []*GoalCluster
	for rows.Next() {
		g, err := scanGoalCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal cluster: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PutMemoryGoalLink records why memoryID was linked to goalID.
func (s *Store) PutMemoryGoalLink(link *MemoryGoalLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO memory_goal_links (id, memory_id, goal_id, relationship_type, relevance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, link.ID, link.MemoryID, link.GoalID, string(link.LinkType), link.Relevance, timeStr(link.CreatedAt))
	if err != nil {
		return fmt.Errorf("put memory goal link: %w", err)
	}
	return nil
}
