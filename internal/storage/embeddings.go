package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// PutEmbedding persists a node's embedding as its own transaction. The
// write-through contract (spec §5) requires callers to also insert the
// vector into the Vector Index; this method only updates Storage.
func (s *Store) PutEmbedding(nodeID string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	if s.dims > 0 && len(vector) != s.dims {
		return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(vector), s.dims)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put_embedding: %w", err)
	}
	defer tx.Rollback()
	if err := putEmbeddingTx(tx, nodeID, vector); err != nil {
		return err
	}
	return tx.Commit()
}

func putEmbeddingTx(tx *sql.Tx, nodeID string, vector []float32) error {
	_, err := tx.Exec(`
		INSERT INTO embeddings (node_id, vector, dimensions, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET vector=excluded.vector, dimensions=excluded.dimensions
	`, nodeID, encodeVector(vector), len(vector), timeStr(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	// Best-effort mirror into the vec0 virtual table, if present; absence
	// (older DB, build without the sqlite-vec extension loaded) must not
	// fail the durable write.
	if _, verr := tx.Exec(`
		INSERT INTO vec_embeddings (node_id, embedding) VALUES (?, ?)
		ON CONFLICT(node_id) DO UPDATE SET embedding=excluded.embedding
	`, nodeID, encodeVector(vector)); verr != nil {
		log.Debug("vec0 mirror write skipped", "error", verr)
	}
	return nil
}

// GetEmbedding returns nil, nil if nodeID has no embedding. Dimension
// mismatch between the stored element count and the dimensions column
// fails the read but does not corrupt stored state (spec §4.1).
func (s *Store) GetEmbedding(nodeID string) (*Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	var blob []byte
	var dims int
	var createdAt string
	err := s.db.QueryRow(`SELECT vector, dimensions, created_at FROM embeddings WHERE node_id = ?`, nodeID).
		Scan(&blob, &dims, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, err
	}
	if len(vec) != dims {
		return nil, fmt.Errorf("%w: blob holds %d elements, dimensions column says %d", ErrDimensionMismatch, len(vec), dims)
	}
	t, err := parseTimeStr(createdAt)
	if err != nil {
		return nil, err
	}
	return &Embedding{NodeID: nodeID, Vector: vec, Dimensions: dims, CreatedAt: t}, nil
}

// ListEmbeddings streams every stored embedding, used by the Client
// Facade's startup recovery to rebuild the Vector Index (spec §4.7, §9:
// "never persist the graph; persist only the raw embeddings").
func (s *Store) ListEmbeddings(fn func(nodeID string, vector []float32) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	rows, err := s.db.Query(`SELECT node_id, vector, dimensions FROM embeddings`)
	if err != nil {
		return fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nodeID string
		var blob []byte
		var dims int
		if err := rows.Scan(&nodeID, &blob, &dims); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			log.Warn("skipping embedding with corrupt blob", "node_id", nodeID, "error", err)
			continue
		}
		if len(vec) != dims {
			log.Warn("skipping embedding with dimension drift", "node_id", nodeID, "stored", len(vec), "recorded", dims)
			continue
		}
		if err := fn(nodeID, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// DeleteEmbedding removes a node's embedding. Deleting an unknown id is a
// no-op (spec §7).
func (s *Store) DeleteEmbedding(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete_embedding: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM embeddings WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM vec_embeddings WHERE node_id = ?`, nodeID); err != nil {
		log.Debug("vec0 mirror delete skipped", "error", err)
	}
	return tx.Commit()
}
