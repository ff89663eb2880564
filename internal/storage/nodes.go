package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PutNode persists node, optionally with edges and an embedding, as one
// transaction: a put_node that carries edges and an embedding is one
// atomic unit, and on failure all three roll back (spec §4.1).
func (s *Store) PutNode(node *Node, edges []*Edge, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	if node.Confidence < 0 || node.Confidence > 1 || node.Importance < 0 || node.Importance > 1 {
		return ErrInvalidNode
	}
	if node.SupersededBy != "" {
		node.IsLatest = false
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put_node: %w", err)
	}
	defer tx.Rollback()

	if err := putNodeTx(tx, node); err != nil {
		return err
	}
	for _, e := range edges {
		if err := putEdgeTx(tx, e); err != nil {
			return err
		}
	}
	if embedding != nil {
		if s.dims > 0 && len(embedding) != s.dims {
			return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(embedding), s.dims)
		}
		if err := putEmbeddingTx(tx, node.ID, embedding); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putNodeTx(tx *sql.Tx, n *Node) error {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.ConversationDate.IsZero() {
		n.ConversationDate = n.CreatedAt
	}
	metaJSON, err := n.Metadata.Encode()
	if err != nil {
		return fmt.Errorf("encode node metadata: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (
			id, content, type, layer, created_at, updated_at, conversation_date, event_date,
			importance, confidence, is_latest, is_static, superseded_by, goal_id,
			container_tags, user_id, access_count, useful_retrievals, total_retrievals,
			last_accessed, entities, topics, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, type=excluded.type, layer=excluded.layer,
			updated_at=excluded.updated_at, conversation_date=excluded.conversation_date,
			event_date=excluded.event_date, importance=excluded.importance,
			confidence=excluded.confidence, is_latest=excluded.is_latest,
			is_static=excluded.is_static, superseded_by=excluded.superseded_by,
			goal_id=excluded.goal_id, container_tags=excluded.container_tags,
			access_count=excluded.access_count, useful_retrievals=excluded.useful_retrievals,
			total_retrievals=excluded.total_retrievals, last_accessed=excluded.last_accessed,
			entities=excluded.entities, topics=excluded.topics, metadata=excluded.metadata
	`,
		n.ID, n.Content, string(n.Type), string(n.Layer), timeStr(n.CreatedAt), timeStr(n.UpdatedAt),
		timeStr(n.ConversationDate), nullTimeStr(n.EventDate), n.Importance, n.Confidence,
		boolToInt(n.IsLatest), boolToInt(n.IsStatic), nullStr(n.SupersededBy), nullStr(n.GoalID),
		encodeStrings(n.ContainerTags), n.UserID, n.AccessCount, n.UsefulRetrievals, n.TotalRetrievals,
		nullTimeStr(n.LastAccessed), encodeStrings(n.Entities), encodeStrings(n.Topics), metaJSON,
	)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	return putNodeMetadataTx(tx, n)
}

// putNodeMetadataTx mirrors the retrieval-facing fields split out of nodes
// (spec §6: memory_metadata_v2) so the external contract's table survives
// independently of the narrow node/embedding write-through path.
func putNodeMetadataTx(tx *sql.Tx, n *Node) error {
	valenceJSON, err := json.Marshal(n.EmotionalValence)
	if err != nil {
		return fmt.Errorf("encode emotional valence: %w", err)
	}
	temporalInfo := n.TemporalInfo
	if temporalInfo == "" {
		temporalInfo = "{}"
	}
	_, err = tx.Exec(`
		INSERT INTO memory_metadata_v2 (
			memory_id, layer, temporal_info, emotional_valence,
			useful_retrievals, total_retrievals, superseded_by, goal_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			layer=excluded.layer, temporal_info=excluded.temporal_info,
			emotional_valence=excluded.emotional_valence,
			useful_retrievals=excluded.useful_retrievals, total_retrievals=excluded.total_retrievals,
			superseded_by=excluded.superseded_by, goal_id=excluded.goal_id
	`,
		n.ID, string(n.Layer), temporalInfo, string(valenceJSON),
		n.UsefulRetrievals, n.TotalRetrievals, nullStr(n.SupersededBy), nullStr(n.GoalID),
	)
	if err != nil {
		return fmt.Errorf("put node metadata: %w", err)
	}
	return nil
}

// NodeMetadata is the memory_metadata_v2 row for a node, as read back by
// GetNodeMetadata.
type NodeMetadata struct {
	Layer            Layer
	TemporalInfo     string
	EmotionalValence Valence
	UsefulRetrievals int
	TotalRetrievals  int
	SupersededBy     string
	GoalID           string
}

// GetNodeMetadata returns nil, nil if nodeID has no metadata row.
func (s *Store) GetNodeMetadata(nodeID string) (*NodeMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	var m NodeMetadata
	var layer, valenceJSON string
	var supersededBy, goalID sql.NullString
	err := s.db.QueryRow(`
		SELECT layer, temporal_info, emotional_valence, useful_retrievals, total_retrievals, superseded_by, goal_id
		FROM memory_metadata_v2 WHERE memory_id = ?
	`, nodeID).Scan(&layer, &m.TemporalInfo, &valenceJSON, &m.UsefulRetrievals, &m.TotalRetrievals, &supersededBy, &goalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node metadata: %w", err)
	}
	m.Layer = Layer(layer)
	m.SupersededBy = supersededBy.String
	m.GoalID = goalID.String
	if err := json.Unmarshal([]byte(valenceJSON), &m.EmotionalValence); err != nil {
		return nil, fmt.Errorf("decode emotional valence: %w", err)
	}
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanNode(row interface{ Scan(...interface{}) error }) (*Node, error) {
	var n Node
	var createdAt, updatedAt, convDate string
	var eventDate, supersededBy, goalID, lastAccessed sql.NullString
	var containerTags, entities, topics, metaJSON string
	var typ, layer string
	var isLatest, isStatic int

	err := row.Scan(
		&n.ID, &n.Content, &typ, &layer, &createdAt, &updatedAt, &convDate, &eventDate,
		&n.Importance, &n.Confidence, &isLatest, &isStatic, &supersededBy, &goalID,
		&containerTags, &n.UserID, &n.AccessCount, &n.UsefulRetrievals, &n.TotalRetrievals,
		&lastAccessed, &entities, &topics, &metaJSON,
	)
	if err != nil {
		return nil, err
	}
	n.Type = MemoryType(typ)
	n.Layer = Layer(layer)
	n.IsLatest = isLatest != 0
	n.IsStatic = isStatic != 0
	n.SupersededBy = supersededBy.String
	n.GoalID = goalID.String
	n.ContainerTags = decodeStrings(containerTags)
	n.Entities = decodeStrings(entities)
	n.Topics = decodeStrings(topics)

	n.CreatedAt, err = parseTimeStr(createdAt)
	if err != nil {
		return nil, err
	}
	n.UpdatedAt, err = parseTimeStr(updatedAt)
	if err != nil {
		return nil, err
	}
	n.ConversationDate, err = parseTimeStr(convDate)
	if err != nil {
		return nil, err
	}
	if n.EventDate, err = parseNullTime(eventDate); err != nil {
		return nil, err
	}
	if n.LastAccessed, err = parseNullTime(lastAccessed); err != nil {
		return nil, err
	}
	n.Metadata, err = DecodeMetadata(metaJSON)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const nodeColumns = `
	id, content, type, layer, created_at, updated_at, conversation_date, event_date,
	importance, confidence, is_latest, is_static, superseded_by, goal_id,
	container_tags, user_id, access_count, useful_retrievals, total_retrievals,
	last_accessed, entities, topics, metadata
`

// GetNode returns nil, nil if id is unknown (spec §7 "Not found").
func (s *Store) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow("SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

// QueryNodes returns nodes matching every constraint in filter, newest
// first, bounded by limit/offset (spec §4.1).
func (s *Store) QueryNodes(filter NodeFilter, limit, offset int) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}

	var clauses []string
	var args []interface{}

	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, timeStr(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, timeStr(*filter.CreatedBefore))
	}
	if filter.ContentContains != "" {
		clauses = append(clauses, "content LIKE ?")
		args = append(args, "%"+filter.ContentContains+"%")
	}
	if filter.MetadataKey != "" && filter.MetadataKeyValue == "" {
		clauses = append(clauses, "json_extract(metadata, ?) IS NOT NULL")
		args = append(args, "$."+filter.MetadataKey)
	}
	if filter.MetadataKey != "" && filter.MetadataKeyValue != "" {
		clauses = append(clauses, "json_extract(metadata, ?) = ?")
		args = append(args, "$."+filter.MetadataKey+".value", filter.MetadataKeyValue)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "json_extract(metadata, '$.session_id.value') = ?")
		args = append(args, filter.SessionID)
	}
	if filter.ExcludeArchived {
		clauses = append(clauses, "layer != 'archived'")
	}

	query := "SELECT " + nodeColumns + " FROM nodes"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNode removes node id per mode (spec §4.1). Both edge foreign keys
// are ON DELETE CASCADE, so deleting the node row removes every edge
// touching it whatever the mode: node_and_outgoing/node_and_incoming
// first delete the edges in that direction explicitly, node_only first
// deletes all touching edges, and cascade leaves it to the foreign keys.
// No mode keeps any of the node's edges. Deleting an unknown id is a
// no-op (spec §7).
func (s *Store) DeleteNode(id string, mode DeleteMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete_node: %w", err)
	}
	defer tx.Rollback()

	switch mode {
	case DeleteNodeAndOut:
		if _, err := tx.Exec(`DELETE FROM edges WHERE from_id = ?`, id); err != nil {
			return fmt.Errorf("delete outgoing edges: %w", err)
		}
	case DeleteNodeAndIncoming:
		if _, err := tx.Exec(`DELETE FROM edges WHERE to_id = ?`, id); err != nil {
			return fmt.Errorf("delete incoming edges: %w", err)
		}
	case DeleteNodeOnly:
		// node_only removes every edge touching the node, the same set
		// the foreign-key cascade would remove.
		if _, err := tx.Exec(`DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
			return fmt.Errorf("detach edges: %w", err)
		}
	case DeleteCascade:
		// ON DELETE CASCADE on the nodes row handles edges, embeddings,
		// facts, goal_clusters and memory_metadata_v2 below.
	}

	if _, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return tx.Commit()
}

// RecordAccess increments a node's retrieval counters (spec §3 lifecycle:
// "mutated by retrieval (access counters)"). useful is nil when the host
// application hasn't yet judged the retrieval.
func (s *Store) RecordAccess(id string, useful *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	now := timeStr(time.Now().UTC())
	if useful != nil && *useful {
		_, err := s.db.Exec(`UPDATE nodes SET access_count = access_count + 1, total_retrievals = total_retrievals + 1, useful_retrievals = useful_retrievals + 1, last_accessed = ? WHERE id = ?`, now, id)
		return err
	}
	_, err := s.db.Exec(`UPDATE nodes SET access_count = access_count + 1, total_retrievals = total_retrievals + 1, last_accessed = ? WHERE id = ?`, now, id)
	return err
}
