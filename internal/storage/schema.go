package storage

// SchemaVersion is the target schema version this binary knows how to
// migrate to (spec §4.1: schema versioning).
const SchemaVersion = 1

// CoreSchema is the external-contract table layout (spec §6). Table and
// column names here are part of the persisted-database contract for
// backup/restore tooling and must not be renamed casually.
const CoreSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	layer TEXT NOT NULL DEFAULT 'working',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	conversation_date TEXT NOT NULL,
	event_date TEXT,
	importance REAL NOT NULL DEFAULT 0.5 CHECK (importance >= 0.0 AND importance <= 1.0),
	confidence REAL NOT NULL DEFAULT 1.0 CHECK (confidence >= 0.0 AND confidence <= 1.0),
	is_latest INTEGER NOT NULL DEFAULT 1,
	is_static INTEGER NOT NULL DEFAULT 0,
	superseded_by TEXT,
	goal_id TEXT,
	container_tags TEXT NOT NULL DEFAULT '[]',
	user_id TEXT NOT NULL DEFAULT '',
	access_count INTEGER NOT NULL DEFAULT 0,
	useful_retrievals INTEGER NOT NULL DEFAULT 0,
	total_retrievals INTEGER NOT NULL DEFAULT 0,
	last_accessed TEXT,
	entities TEXT NOT NULL DEFAULT '[]',
	topics TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_nodes_user ON nodes(user_id);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_nodes_layer ON nodes(layer);
CREATE INDEX IF NOT EXISTS idx_nodes_created_at ON nodes(created_at);
CREATE INDEX IF NOT EXISTS idx_nodes_is_latest ON nodes(is_latest);
CREATE INDEX IF NOT EXISTS idx_nodes_goal_id ON nodes(goal_id);

CREATE TABLE IF NOT EXISTS edges (
	id TEXT PRIMARY KEY,
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	weight REAL NOT NULL CHECK (weight >= 0.0 AND weight <= 1.0),
	created_at TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	FOREIGN KEY (from_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
	FOREIGN KEY (to_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(relationship_type);
CREATE INDEX IF NOT EXISTS idx_edges_from_to ON edges(from_id, to_id);

CREATE TABLE IF NOT EXISTS embeddings (
	node_id TEXT PRIMARY KEY,
	vector BLOB NOT NULL,
	dimensions INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	memory_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL,
	predicate_category TEXT NOT NULL,
	confidence REAL NOT NULL CHECK (confidence >= 0.0 AND confidence <= 1.0),
	valid_from TEXT,
	valid_until TEXT,
	detection_method TEXT NOT NULL,
	created_at TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	is_latest INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (memory_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE INDEX IF NOT EXISTS idx_facts_memory ON facts(memory_id);
CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts(subject);
CREATE INDEX IF NOT EXISTS idx_facts_subject_predicate ON facts(subject, predicate);
CREATE INDEX IF NOT EXISTS idx_facts_category ON facts(predicate_category);
CREATE INDEX IF NOT EXISTS idx_facts_user ON facts(user_id);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	type TEXT NOT NULL,
	aliases TEXT NOT NULL DEFAULT '[]',
	first_mentioned TEXT NOT NULL,
	mention_count INTEGER NOT NULL DEFAULT 1,
	related_fact_ids TEXT NOT NULL DEFAULT '[]',
	user_id TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_unique ON entities(normalized_name, type, user_id);

CREATE TABLE IF NOT EXISTS goal_clusters (
	id TEXT PRIMARY KEY,
	goal_memory_id TEXT NOT NULL,
	goal_content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	progress_ids TEXT NOT NULL DEFAULT '[]',
	blocker_ids TEXT NOT NULL DEFAULT '[]',
	motivation_ids TEXT NOT NULL DEFAULT '[]',
	insight_ids TEXT NOT NULL DEFAULT '[]',
	emotional_trajectory TEXT NOT NULL DEFAULT '[]',
	user_id TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (goal_memory_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE INDEX IF NOT EXISTS idx_goal_clusters_user ON goal_clusters(user_id);
CREATE INDEX IF NOT EXISTS idx_goal_clusters_memory ON goal_clusters(goal_memory_id);

-- memory_metadata_v2 holds retrieval-facing fields split out of nodes so
-- the write-through path (node -> embedding) can stay a narrow, fast
-- transaction while layer/valence/utility bookkeeping evolves separately.
CREATE TABLE IF NOT EXISTS memory_metadata_v2 (
	memory_id TEXT PRIMARY KEY,
	layer TEXT NOT NULL DEFAULT 'working',
	temporal_info TEXT NOT NULL DEFAULT '{}',
	emotional_valence TEXT NOT NULL DEFAULT '{}',
	useful_retrievals INTEGER NOT NULL DEFAULT 0,
	total_retrievals INTEGER NOT NULL DEFAULT 0,
	superseded_by TEXT,
	goal_id TEXT,
	FOREIGN KEY (memory_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS memory_goal_links (
	id TEXT PRIMARY KEY,
	memory_id TEXT NOT NULL,
	goal_id TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	relevance REAL NOT NULL CHECK (relevance >= 0.0 AND relevance <= 1.0),
	created_at TEXT NOT NULL,
	FOREIGN KEY (memory_id) REFERENCES nodes(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED,
	FOREIGN KEY (goal_id) REFERENCES goal_clusters(id) ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED
);

CREATE INDEX IF NOT EXISTS idx_goal_links_memory ON memory_goal_links(memory_id);
CREATE INDEX IF NOT EXISTS idx_goal_links_goal ON memory_goal_links(goal_id);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	start TEXT NOT NULL,
	end TEXT,
	type TEXT NOT NULL DEFAULT 'conversation',
	metadata TEXT NOT NULL DEFAULT '{}'
);
`

// FTS5Schema mirrors node content into an FTS5 table for the keyword
// retrieval strategy's tokenized overlap scoring (spec §4.6). This is
// plumbing for the keyword score component, not a general-purpose
// full-text-search feature, which the spec explicitly excludes (§1).
const FTS5Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
	id UNINDEXED,
	content,
	user_id UNINDEXED
);

CREATE TRIGGER IF NOT EXISTS nodes_fts_insert AFTER INSERT ON nodes BEGIN
	INSERT INTO nodes_fts(id, content, user_id) VALUES (new.id, new.content, new.user_id);
END;

CREATE TRIGGER IF NOT EXISTS nodes_fts_delete AFTER DELETE ON nodes BEGIN
	DELETE FROM nodes_fts WHERE id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS nodes_fts_update AFTER UPDATE ON nodes BEGIN
	UPDATE nodes_fts SET content = new.content, user_id = new.user_id WHERE id = old.id;
END;
`

// VecSchema mirrors embeddings into a sqlite-vec vec0 virtual table. No
// code in the module reads vec_embeddings: neither the core contract
// paths nor `doctor` query it.
const VecSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
	node_id TEXT PRIMARY KEY,
	embedding FLOAT[%d]
);
`
