package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkcrawl/internal/model"
)

// DefaultFileName is the SQLite database file created inside Options.Dir.
const DefaultFileName = "linkcrawl.db"

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// GraphDB provides SQL-backed storage for the crawl graph.
// Each pipeline stage opens its own GraphDB; only the Persister writes.
type GraphDB struct {
	// db is the underlying SQL database connection pool.
	db *sql.DB

	// dialect carries the driver specific schema and placeholder style.
	dialect dialect

	// location is the SQLite file path or the PostgreSQL DSN.
	location string
}

// Options configures GraphDB behavior.
type Options struct {
	// Driver is DriverSQLite (default) or DriverPostgres.
	Driver string

	// Dir is the directory holding the SQLite database file.
	Dir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// CreateIfNotExists creates the SQLite file and its directory if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the writer.
	EnableWAL bool

	// BusyTimeout is how long SQLite waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		Driver:            DriverSQLite,
		CreateIfNotExists: true,
		EnableWAL:         true,
		BusyTimeout:       5 * time.Second,
	}
}

// Open opens or creates a GraphDB and ensures the schema exists.
func Open(opts Options) (*GraphDB, error) {
	d, ok := dialectFor(opts.Driver)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}

	var (
		db       *sql.DB
		location string
		err      error
	)
	switch d.name {
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, errors.New("postgres driver requires a DSN")
		}
		location = opts.DSN
		db, err = sql.Open(DriverPostgres, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(4)
	default:
		location, db, err = openSQLite(opts)
		if err != nil {
			return nil, err
		}
	}
	db.SetConnMaxLifetime(time.Hour)

	gdb := &GraphDB{
		db:       db,
		dialect:  d,
		location: location,
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.name == DriverSQLite && opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := gdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return gdb, nil
}

// openSQLite opens the SQLite file described by opts.
func openSQLite(opts Options) (string, *sql.DB, error) {
	dbPath := filepath.Join(opts.Dir, DefaultFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return "", nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return "", nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return "", nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?mode=%s&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		dbPath, mode, busy.Milliseconds())

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection per GraphDB: SQLite has one writer, and each
	// stage owns a separate GraphDB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return dbPath, db, nil
}

// Close closes the database connection.
func (g *GraphDB) Close() error {
	return g.db.Close()
}

// Location returns the SQLite file path or the PostgreSQL DSN.
func (g *GraphDB) Location() string {
	return g.location
}

// Driver returns the driver name of the store.
func (g *GraphDB) Driver() string {
	return g.dialect.name
}

// createTables creates the database schema if it doesn't exist.
func (g *GraphDB) createTables() error {
	_, err := g.db.ExecContext(context.Background(), g.dialect.schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindStubPage returns the external id of the oldest page that has no title
// yet. ok is false when every known page is resolved.
func (g *GraphDB) FindStubPage(ctx context.Context) (string, bool, error) {
	query := g.dialect.rebind(`
	SELECT ext_page_id FROM page
	WHERE title IS NULL AND missing = 0
	ORDER BY page_id
	LIMIT 1
	`)

	var extID string
	err := g.db.QueryRowContext(ctx, query).Scan(&extID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find stub page: %w", err)
	}
	return extID, true, nil
}

// GetPage retrieves a page by external id. It returns nil when absent.
func (g *GraphDB) GetPage(ctx context.Context, extID string) (*model.Page, error) {
	return findPage(ctx, g.db, g.dialect, "ext_page_id", extID)
}

// IncomingLinks returns the external ids of pages linking to extID,
// in insertion order.
func (g *GraphDB) IncomingLinks(ctx context.Context, extID string) ([]string, error) {
	query := g.dialect.rebind(`
	SELECT f.ext_page_id
	FROM link l
	JOIN page t ON t.page_id = l.to_page_id
	JOIN page f ON f.page_id = l.from_page_id
	WHERE t.ext_page_id = ?
	ORDER BY l.link_id
	`)

	rows, err := g.db.QueryContext(ctx, query, extID)
	if err != nil {
		return nil, fmt.Errorf("failed to query incoming links: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var from string
		if err := rows.Scan(&from); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		results = append(results, from)
	}

	return results, rows.Err()
}

// PendingContinuations returns the continuations parked by a previous
// shutdown, oldest first.
func (g *GraphDB) PendingContinuations(ctx context.Context) ([]model.Continuation, error) {
	query := g.dialect.rebind(`
	SELECT target, token FROM continuation
	ORDER BY continuation_id
	`)

	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query continuations: %w", err)
	}
	defer rows.Close()

	var results []model.Continuation
	for rows.Next() {
		var c model.Continuation
		if err := rows.Scan(&c.Target, &c.Token); err != nil {
			return nil, fmt.Errorf("failed to scan continuation: %w", err)
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// Stats summarizes the graph. topN bounds the TopLinked list; zero skips it.
func (g *GraphDB) Stats(ctx context.Context, topN int) (*model.GraphStats, error) {
	stats := &model.GraphStats{GeneratedAt: time.Now()}

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Pages, "SELECT COUNT(*) FROM page"},
		{&stats.Resolved, "SELECT COUNT(*) FROM page WHERE title IS NOT NULL"},
		{&stats.Stubs, "SELECT COUNT(*) FROM page WHERE title IS NULL AND missing = 0"},
		{&stats.Missing, "SELECT COUNT(*) FROM page WHERE title IS NULL AND missing = 1"},
		{&stats.Links, "SELECT COUNT(*) FROM link"},
		{&stats.PendingContinuations, "SELECT COUNT(*) FROM continuation"},
	}
	for _, c := range counts {
		if err := g.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to compute graph stats: %w", err)
		}
	}

	if topN > 0 {
		top, err := g.TopLinked(ctx, topN)
		if err != nil {
			return nil, err
		}
		stats.TopLinked = top
	}

	return stats, nil
}

// TopLinked returns the pages with the most incoming links.
func (g *GraphDB) TopLinked(ctx context.Context, limit int) ([]model.PageDegree, error) {
	query := g.dialect.rebind(`
	SELECT p.page_id, p.ext_page_id, p.title, p.missing, COUNT(l.link_id) AS incoming
	FROM page p
	JOIN link l ON l.to_page_id = p.page_id
	GROUP BY p.page_id, p.ext_page_id, p.title, p.missing
	ORDER BY incoming DESC, p.page_id
	LIMIT ?
	`)

	rows, err := g.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top linked pages: %w", err)
	}
	defer rows.Close()

	var results []model.PageDegree
	for rows.Next() {
		var (
			pd    model.PageDegree
			title sql.NullString
		)
		if err := rows.Scan(&pd.Page.ID, &pd.Page.ExternalID, &title, &pd.Page.Missing, &pd.Incoming); err != nil {
			return nil, fmt.Errorf("failed to scan page degree: %w", err)
		}
		pd.Page.Title = title.String
		results = append(results, pd)
	}

	return results, rows.Err()
}

// findPage looks up one page by the given unique-ish column.
func findPage(ctx context.Context, q querier, d dialect, column, value string) (*model.Page, error) {
	// column is always a package constant, never user input.
	query := d.rebind(`
	SELECT page_id, ext_page_id, title, missing
	FROM page
	WHERE ` + column + ` = ?
	ORDER BY page_id
	LIMIT 1
	`)

	var (
		page  model.Page
		title sql.NullString
	)
	err := q.QueryRowContext(ctx, query, value).Scan(&page.ID, &page.ExternalID, &title, &page.Missing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	page.Title = title.String

	return &page, nil
}
