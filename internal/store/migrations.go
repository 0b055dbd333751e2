package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Dates are stored as TEXT "YYYY-MM-DD" and times of day as TEXT
// "HH:MM:SS" so that lexical order equals chronological order.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL CHECK(trim(name) <> ''),
	note             TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	deadline_date    TEXT,
	deadline_time    TEXT,
	start_after_date TEXT,
	start_after_time TEXT,
	scheduled_date   TEXT,
	scheduled_time   TEXT
);

CREATE TABLE IF NOT EXISTS task_paths (
	ancestor   INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	descendant INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	depth      INTEGER NOT NULL CHECK(depth >= 0),
	PRIMARY KEY (ancestor, descendant)
);

CREATE INDEX IF NOT EXISTS idx_task_paths_descendant ON task_paths(descendant, depth);

CREATE TABLE IF NOT EXISTS task_completions (
	id      TEXT PRIMARY KEY,
	task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	done_at DATETIME NOT NULL,
	skipped INTEGER NOT NULL DEFAULT 0 CHECK(skipped IN (0, 1))
);

CREATE INDEX IF NOT EXISTS idx_task_completions_task_done ON task_completions(task_id, done_at);

CREATE TABLE IF NOT EXISTS task_recurrences (
	id         TEXT PRIMARY KEY,
	task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	start_date TEXT NOT NULL,
	end_date   TEXT CHECK(end_date IS NULL OR end_date >= start_date),
	type       TEXT NOT NULL CHECK(type IN ('day', 'week', 'day_of_month', 'week_of_month', 'year')),
	step       INTEGER NOT NULL CHECK(step >= 1)
);

CREATE INDEX IF NOT EXISTS idx_task_recurrences_task_id ON task_recurrences(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tasks_schedule
	ON tasks(scheduled_date, scheduled_time);

CREATE INDEX IF NOT EXISTS idx_tasks_deadline
	ON tasks(deadline_date, deadline_time);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
