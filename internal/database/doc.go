// Package database provides the SQL-backed graph store for linkcrawl.
//
// The GraphDB stores:
//   - Pages, keyed by the external source's page identifier
//   - Directed links between pages, deduplicated per ordered pair
//   - Continuations parked at shutdown so the next crawl can resume them
//
// SQLite (via modernc.org/sqlite) is the default backend: it is CGO-free and
// keeps the whole graph in a single file. PostgreSQL (via github.com/lib/pq)
// can be selected for larger crawls. Queries are written once with "?"
// placeholders and rebound per dialect.
//
// Only the Persister stage mutates the graph, always inside a Tx. Other
// stages open their own GraphDB and issue read queries only.
package database
