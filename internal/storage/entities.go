package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PutEntity inserts or updates a tracked entity. Uniqueness is
// (normalized_name, type, user_id) (spec §3); a second mention of the
// same entity increments mention_count instead of creating a duplicate.
func (s *Store) PutEntity(e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	e.NormalizedName = strings.ToLower(strings.TrimSpace(e.Name))
	if e.FirstMentioned.IsZero() {
		e.FirstMentioned = time.Now().UTC()
	}
	if e.MentionCount == 0 {
		e.MentionCount = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put_entity: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRow(
		`SELECT id FROM entities WHERE normalized_name = ? AND type = ? AND user_id = ?`,
		e.NormalizedName, string(e.Type), e.UserID,
	).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO entities (id, name, normalized_name, type, aliases, first_mentioned, mention_count, related_fact_ids, user_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Name, e.NormalizedName, string(e.Type), encodeStrings(e.Aliases), timeStr(e.FirstMentioned),
			e.MentionCount, encodeStrings(e.RelatedFactIDs), e.UserID)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lookup entity: %w", err)
	default:
		e.ID = existingID
		_, err = tx.Exec(`
			UPDATE entities SET mention_count = mention_count + 1, aliases = ?, related_fact_ids = ?
			WHERE id = ?
		`, encodeStrings(e.Aliases), encodeStrings(e.RelatedFactIDs), existingID)
		if err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
	}
	return tx.Commit()
}

func scanEntity(row interface{ Scan(...interface{}) error }) (*Entity, error) {
	var e Entity
	var typ, firstMentioned, aliases, relatedFacts string
	err := row.Scan(&e.ID, &e.Name, &e.NormalizedName, &typ, &aliases, &firstMentioned, &e.MentionCount, &relatedFacts, &e.UserID)
	if err != nil {
		return nil, err
	}
	e.Type = EntityType(typ)
	e.Aliases = decodeStrings(aliases)
	e.RelatedFactIDs = decodeStrings(relatedFacts)
	if e.FirstMentioned, err = parseTimeStr(firstMentioned); err != nil {
		return nil, err
	}
	return &e, nil
}

const entityColumns = `id, name, normalized_name, type, aliases, first_mentioned, mention_count, related_fact_ids, user_id`

// FindEntity looks up an entity by its (normalized_name, type, user_id)
// uniqueness key, returning nil, nil when absent.
func (s *Store) FindEntity(normalizedName string, typ EntityType, userID string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow(
		"SELECT "+entityColumns+" FROM entities WHERE normalized_name = ? AND type = ? AND user_id = ?",
		normalizedName, string(typ), userID,
	)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find entity: %w", err)
	}
	return e, nil
}

// ListEntities returns every tracked entity for userID, optionally
// filtered to a single type.
func (s *Store) ListEntities(userID string, typ EntityType) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	query := "SELECT " + entityColumns + " FROM entities WHERE user_id = ?"
	args := []interface{}{userID}
	if typ != "" {
		query += " AND type = ?"
		args = append(args, string(typ))
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()
	var out []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
