package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one idempotent schema step. Migrations check for column/
// table existence before altering, per spec §4.1.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

// migrations holds every schema step, starting with migration 1, which
// creates the bootstrap CoreSchema/FTS5Schema on a fresh database.
var migrations = []migration{
	{
		version: 1,
		apply: func(tx *sql.Tx) error {
			if _, err := tx.Exec(CoreSchema); err != nil {
				return fmt.Errorf("apply core schema: %w", err)
			}
			if _, err := tx.Exec(FTS5Schema); err != nil {
				return fmt.Errorf("apply fts5 schema: %w", err)
			}
			return nil
		},
	},
}

// currentVersion computes max(version) from schema_version, returning 0 on
// a brand-new database where the table itself may not exist yet.
func currentVersion(db *sql.DB) (int, error) {
	exists, err := tableExists(db, "schema_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// migrate applies migrations current+1..target in order, each in its own
// transaction, recording the new version with its applied_at timestamp
// (spec §4.1). A version found on disk beyond what this binary knows is a
// schema regression and refuses to open.
func migrate(db *sql.DB, target int) error {
	current, err := currentVersion(db)
	if err != nil {
		return err
	}
	if current > target {
		return fmt.Errorf("%w: on-disk version %d > binary target %d", ErrSchemaRegression, current, target)
	}

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
