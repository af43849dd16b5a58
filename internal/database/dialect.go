package database

import (
	"strconv"
	"strings"
)

// Supported database drivers.
const (
	// DriverSQLite selects the embedded SQLite backend.
	DriverSQLite = "sqlite"

	// DriverPostgres selects a PostgreSQL server reached through a DSN.
	DriverPostgres = "postgres"
)

// dialect holds the per-driver differences of the graph schema and queries.
type dialect struct {
	name   string
	schema string

	// dollarPlaceholders rewrites "?" into "$1", "$2", ...
	dollarPlaceholders bool
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	schema: `
	-- Pages are the graph nodes; a NULL title marks a stub
	CREATE TABLE IF NOT EXISTS page (
		page_id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		ext_page_id TEXT NOT NULL UNIQUE,
		missing INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_page_title ON page(title);
	CREATE INDEX IF NOT EXISTS idx_page_stub ON page(page_id) WHERE title IS NULL AND missing = 0;

	-- Links are directed edges: from_page_id links to to_page_id
	CREATE TABLE IF NOT EXISTS link (
		link_id INTEGER PRIMARY KEY AUTOINCREMENT,
		to_page_id INTEGER NOT NULL REFERENCES page(page_id),
		from_page_id INTEGER NOT NULL REFERENCES page(page_id),
		length INTEGER NOT NULL DEFAULT 1,
		UNIQUE(to_page_id, from_page_id)
	);

	CREATE INDEX IF NOT EXISTS idx_link_from ON link(from_page_id);

	-- Continuations parked at shutdown, resumed by the next crawl
	CREATE TABLE IF NOT EXISTS continuation (
		continuation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		token TEXT NOT NULL,
		UNIQUE(target, token)
	);
	`,
}

var postgresDialect = dialect{
	name: DriverPostgres,
	schema: `
	CREATE TABLE IF NOT EXISTS page (
		page_id BIGSERIAL PRIMARY KEY,
		title TEXT,
		ext_page_id TEXT NOT NULL UNIQUE,
		missing INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_page_title ON page(title);
	CREATE INDEX IF NOT EXISTS idx_page_stub ON page(page_id) WHERE title IS NULL AND missing = 0;

	CREATE TABLE IF NOT EXISTS link (
		link_id BIGSERIAL PRIMARY KEY,
		to_page_id BIGINT NOT NULL REFERENCES page(page_id),
		from_page_id BIGINT NOT NULL REFERENCES page(page_id),
		length INTEGER NOT NULL DEFAULT 1,
		UNIQUE(to_page_id, from_page_id)
	);

	CREATE INDEX IF NOT EXISTS idx_link_from ON link(from_page_id);

	CREATE TABLE IF NOT EXISTS continuation (
		continuation_id BIGSERIAL PRIMARY KEY,
		target TEXT NOT NULL,
		token TEXT NOT NULL,
		UNIQUE(target, token)
	);
	`,
	dollarPlaceholders: true,
}

// dialectFor returns the dialect of the named driver.
func dialectFor(driver string) (dialect, bool) {
	switch driver {
	case "", DriverSQLite:
		return sqliteDialect, true
	case DriverPostgres:
		return postgresDialect, true
	default:
		return dialect{}, false
	}
}

// rebind rewrites "?" placeholders for drivers that use numbered ones.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.dollarPlaceholders {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// boolToInt encodes a flag for the INTEGER missing column.
// lib/pq would send a Go bool as text, which INTEGER columns reject.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
