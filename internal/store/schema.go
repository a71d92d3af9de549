package store

// schemaVersion is checked at open time (spec.md §9: "a version check at
// open time is sufficient" instead of runtime schema-drift detection).
const schemaVersion = 1

// schema creates the five tables and trigger-maintained aggregates
// described in spec.md §3 and §6. Event kind ids are fixed: find=1,
// create=2, modify=3, delete=4, move=5, restore=6.
const schema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_types (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

INSERT OR IGNORE INTO event_types (id, name) VALUES
	(1, 'find'),
	(2, 'create'),
	(3, 'modify'),
	(4, 'delete'),
	(5, 'move'),
	(6, 'restore');

CREATE TABLE IF NOT EXISTS files (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	inode     INTEGER NOT NULL UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp  INTEGER NOT NULL,
	event_type INTEGER NOT NULL REFERENCES event_types(id),
	file_id    INTEGER NOT NULL REFERENCES files(id),
	path       TEXT NOT NULL,
	name       TEXT NOT NULL,
	dir        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_file ON events(file_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_events_order ON events(timestamp DESC, id DESC);

CREATE TABLE IF NOT EXISTS measurements (
	event_id INTEGER PRIMARY KEY REFERENCES events(id),
	inode    INTEGER NOT NULL,
	size     INTEGER NOT NULL,
	lines    INTEGER NOT NULL,
	blocks   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS aggregates (
	file_id             INTEGER PRIMARY KEY REFERENCES files(id),
	count_find          INTEGER NOT NULL DEFAULT 0,
	count_create        INTEGER NOT NULL DEFAULT 0,
	count_modify        INTEGER NOT NULL DEFAULT 0,
	count_delete        INTEGER NOT NULL DEFAULT 0,
	count_move          INTEGER NOT NULL DEFAULT 0,
	count_restore       INTEGER NOT NULL DEFAULT 0,
	first_event_at      INTEGER,
	last_event_at       INTEGER,
	size_min            INTEGER,
	size_first          INTEGER,
	size_last           INTEGER
);

-- Trigger-maintained aggregates (spec.md §3, §4.3 step 4). One trigger per
-- event kind keeps the UPDATE list short and avoids a CASE-heavy single
-- trigger that would be harder to audit against the invariants in §8.
CREATE TRIGGER IF NOT EXISTS agg_insert_find AFTER INSERT ON events
WHEN NEW.event_type = 1
BEGIN
	INSERT INTO aggregates (file_id, count_find, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_find = count_find + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS agg_insert_create AFTER INSERT ON events
WHEN NEW.event_type = 2
BEGIN
	INSERT INTO aggregates (file_id, count_create, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_create = count_create + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS agg_insert_modify AFTER INSERT ON events
WHEN NEW.event_type = 3
BEGIN
	INSERT INTO aggregates (file_id, count_modify, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_modify = count_modify + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS agg_insert_delete AFTER INSERT ON events
WHEN NEW.event_type = 4
BEGIN
	INSERT INTO aggregates (file_id, count_delete, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_delete = count_delete + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS agg_insert_move AFTER INSERT ON events
WHEN NEW.event_type = 5
BEGIN
	INSERT INTO aggregates (file_id, count_move, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_move = count_move + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

CREATE TRIGGER IF NOT EXISTS agg_insert_restore AFTER INSERT ON events
WHEN NEW.event_type = 6
BEGIN
	INSERT INTO aggregates (file_id, count_restore, first_event_at, last_event_at)
		VALUES (NEW.file_id, 1, NEW.timestamp, NEW.timestamp)
	ON CONFLICT(file_id) DO UPDATE SET
		count_restore = count_restore + 1,
		first_event_at = MIN(COALESCE(first_event_at, NEW.timestamp), NEW.timestamp),
		last_event_at = MAX(COALESCE(last_event_at, NEW.timestamp), NEW.timestamp);
END;

-- Size min/first/last is maintained from measurements, not events, since
-- only four of the six kinds carry one.
CREATE TRIGGER IF NOT EXISTS agg_measurement_insert AFTER INSERT ON measurements
BEGIN
	UPDATE aggregates SET
		size_first = COALESCE(size_first, NEW.size),
		size_last = NEW.size,
		size_min = MIN(COALESCE(size_min, NEW.size), NEW.size)
	WHERE file_id = (SELECT file_id FROM events WHERE id = NEW.event_id);
END;
`
