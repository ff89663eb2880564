package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// StartSession records a new session (spec §3, §6). Membership of nodes
// in a session is recorded via node metadata `session_id`, not a foreign
// key, so nodes survive a session row being pruned.
func (s *Store) StartSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	if sess.Start.IsZero() {
		sess.Start = time.Now().UTC()
	}
	metaJSON, err := sess.Metadata.Encode()
	if err != nil {
		return fmt.Errorf("encode session metadata: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, start, end, type, metadata) VALUES (?, ?, ?, ?, ?)
	`, sess.ID, timeStr(sess.Start), nullTimeStr(sess.End), sess.Type, metaJSON)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// EndSession stamps a session's end time.
func (s *Store) EndSession(id string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sessions SET end = ? WHERE id = ?`, timeStr(end), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(...interface{}) error }) (*Session, error) {
	var sess Session
	var start string
	var end sql.NullString
	var metaJSON string
	if err := row.Scan(&sess.ID, &start, &end, &sess.Type, &metaJSON); err != nil {
		return nil, err
	}
	var err error
	if sess.Start, err = parseTimeStr(start); err != nil {
		return nil, err
	}
	if sess.End, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if sess.Metadata, err = DecodeMetadata(metaJSON); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession returns nil, nil if id is unknown.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(`SELECT id, start, end, type, metadata FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetSessionMemories returns every node whose metadata.session_id matches
// sessionID, oldest first.
func (s *Store) GetSessionMemories(sessionID string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		"SELECT "+nodeColumns+" FROM nodes WHERE json_extract(metadata, '$.session_id.value') = ? ORDER BY created_at ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get session memories: %w", err)
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
