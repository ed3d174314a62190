package storage

// SchemaVersion is bumped whenever schema changes.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS access_log (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	time_ns     INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	remote      TEXT NOT NULL,
	listen      TEXT NOT NULL,
	method      TEXT NOT NULL,
	uri         TEXT NOT NULL,
	host        TEXT NOT NULL DEFAULT '',
	status      INTEGER NOT NULL,
	bytes_in    INTEGER NOT NULL,
	bytes_out   INTEGER NOT NULL,
	server_name TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	cgi         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_access_log_time ON access_log(time_ns);
CREATE INDEX IF NOT EXISTS idx_access_log_status ON access_log(status);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const selectSchemaVersion = `SELECT MAX(version) FROM schema_version`

const insertRecord = `
INSERT INTO access_log (
	id, request_id, time_ns, duration_ns, remote, listen, method, uri, host,
	status, bytes_in, bytes_out, server_name, location, cgi
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
SELECT id, request_id, time_ns, duration_ns, remote, listen, method, uri, host,
	status, bytes_in, bytes_out, server_name, location, cgi
FROM access_log`
