package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// PutEdge persists a single edge as its own transaction. Use PutNode's
// edges parameter instead when an edge must be atomic with a node write.
func (s *Store) PutEdge(e *Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put_edge: %w", err)
	}
	defer tx.Rollback()
	if err := putEdgeTx(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func putEdgeTx(tx *sql.Tx, e *Edge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	metaJSON, err := e.Metadata.Encode()
	if err != nil {
		return fmt.Errorf("encode edge metadata: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO edges (id, from_id, to_id, relationship_type, weight, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET weight=excluded.weight, metadata=excluded.metadata
	`, e.ID, e.FromID, e.ToID, string(e.RelationshipType), e.Weight, timeStr(e.CreatedAt), metaJSON)
	if err != nil {
		return fmt.Errorf("put edge: %w", err)
	}
	return nil
}

func scanEdge(row interface{ Scan(...interface{}) error }) (*Edge, error) {
	var e Edge
	var relType, createdAt, metaJSON string
	if err := row.Scan(&e.ID, &e.FromID, &e.ToID, &relType, &e.Weight, &createdAt, &metaJSON); err != nil {
		return nil, err
	}
	e.RelationshipType = RelationshipType(relType)
	var err error
	if e.CreatedAt, err = parseTimeStr(createdAt); err != nil {
		return nil, err
	}
	if e.Metadata, err = DecodeMetadata(metaJSON); err != nil {
		return nil, err
	}
	return &e, nil
}

const edgeColumns = `id, from_id, to_id, relationship_type, weight, created_at, metadata`

func (s *Store) queryEdges(query string, args ...interface{}) ([]*Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEdgesFrom returns every edge with from_id = id.
func (s *Store) GetEdgesFrom(id string) ([]*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	return s.queryEdges("SELECT "+edgeColumns+" FROM edges WHERE from_id = ?", id)
}

// GetEdgesTo returns every edge with to_id = id.
func (s *Store) GetEdgesTo(id string) ([]*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	return s.queryEdges("SELECT "+edgeColumns+" FROM edges WHERE to_id = ?", id)
}

// GetEdgesBetween returns every edge directly connecting fromID and toID
// in either direction.
func (s *Store) GetEdgesBetween(fromID, toID string) ([]*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	return s.queryEdges(
		"SELECT "+edgeColumns+" FROM edges WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)",
		fromID, toID, toID, fromID,
	)
}
