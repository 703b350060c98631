package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// The primary keys on messages and actions are what make pulls and plans
// idempotent; inserts rely on them instead of checking first.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	folder     VARCHAR(128) NOT NULL,
	seq        INTEGER NOT NULL,
	subject    TEXT,
	message_id TEXT,
	date       DATETIME,
	size       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (folder, seq)
);

CREATE TABLE IF NOT EXISTS actions (
	folder       VARCHAR(128) NOT NULL,
	seq          INTEGER NOT NULL,
	action       TEXT NOT NULL,
	completed_at DATETIME,
	PRIMARY KEY (folder, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_message_id ON messages(message_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	phase       TEXT NOT NULL CHECK(phase IN ('pull', 'plan', 'apply')),
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	processed   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_actions_pending ON actions(completed_at, folder, seq);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
