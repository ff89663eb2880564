package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PutFact persists a fact. When its category is mutually exclusive (spec
// §3: location, relationship, attribute), any other is_latest=true fact
// sharing (subject, predicate_category, user_id) is flipped to
// is_latest=false first, preserving the invariant that at most one
// mutually-exclusive fact is active per subject (spec §8).
func (s *Store) PutFact(f *Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	f.Subject = strings.ToLower(strings.TrimSpace(f.Subject))
	f.Predicate = strings.ToLower(strings.TrimSpace(f.Predicate))
	f.Object = strings.TrimSpace(f.Object)
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if !f.IsLatest {
		f.IsLatest = true
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin put_fact: %w", err)
	}
	defer tx.Rollback()

	if f.PredicateCategory.MutuallyExclusive() {
		if _, err := tx.Exec(
			`UPDATE facts SET is_latest = 0 WHERE subject = ? AND predicate_category = ? AND user_id = ? AND is_latest = 1 AND id != ?`,
			f.Subject, string(f.PredicateCategory), f.UserID, f.ID,
		); err != nil {
			return fmt.Errorf("supersede prior facts: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO facts (
			id, memory_id, subject, predicate, object, predicate_category, confidence,
			valid_from, valid_until, detection_method, created_at, user_id, is_latest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			object=excluded.object, confidence=excluded.confidence,
			valid_from=excluded.valid_from, valid_until=excluded.valid_until,
			is_latest=excluded.is_latest
	`,
		f.ID, f.SourceMemoryID, f.Subject, f.Predicate, f.Object, string(f.PredicateCategory),
		f.Confidence, nullTimeStr(f.ValidFrom), nullTimeStr(f.ValidUntil), f.DetectionMethod,
		timeStr(f.CreatedAt), f.UserID, boolToInt(f.IsLatest),
	)
	if err != nil {
		return fmt.Errorf("put fact: %w", err)
	}
	return tx.Commit()
}

func scanFact(row interface{ Scan(...interface{}) error }) (*Fact, error) {
	var f Fact
	var category, createdAt string
	var vf, vu sql.NullString
	var isLatest int
	err := row.Scan(
		&f.ID, &f.SourceMemoryID, &f.Subject, &f.Predicate, &f.Object, &category, &f.Confidence,
		&vf, &vu, &f.DetectionMethod, &createdAt, &f.UserID, &isLatest,
	)
	if err != nil {
		return nil, err
	}
	f.PredicateCategory = PredicateCategory(category)
	f.IsLatest = isLatest != 0
	if f.ValidFrom, err = parseNullTime(vf); err != nil {
		return nil, err
	}
	if f.ValidUntil, err = parseNullTime(vu); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = parseTimeStr(createdAt); err != nil {
		return nil, err
	}
	return &f, nil
}

const factColumns = `
	id, memory_id, subject, predicate, object, predicate_category, confidence,
	valid_from, valid_until, detection_method, created_at, user_id, is_latest
`

// GetFactsBySubject returns every is_latest fact for (subject, userID),
// used by the contradiction engine (spec §4.4 step 1) and the fact-lookup
// retrieval strategy (spec §4.6).
func (s *Store) GetFactsBySubject(subject, userID string) ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	rows, err := s.db.Query(
		"SELECT "+factColumns+" FROM facts WHERE subject = ? AND user_id = ? AND is_latest = 1",
		subject, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get facts by subject: %w", err)
	}
	defer rows.Close()
	var out []*Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFact returns nil, nil if id is unknown.
func (s *Store) GetFact(id string) (*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	row := s.db.QueryRow("SELECT "+factColumns+" FROM facts WHERE id = ?", id)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	return f, nil
}
