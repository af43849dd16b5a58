package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/linkcrawl/internal/model"
)

// PageOutcome reports what UpsertPage did with an observation.
type PageOutcome int

const (
	// PageUnchanged means the page already existed and nothing was written.
	PageUnchanged PageOutcome = iota

	// PageInserted means a new page row was created.
	PageInserted

	// PageResolved means an existing stub received its title.
	PageResolved

	// PageMarkedMissing means an existing stub was reported nonexistent.
	PageMarkedMissing
)

// String returns a human-readable name of the outcome.
func (o PageOutcome) String() string {
	switch o {
	case PageUnchanged:
		return "unchanged"
	case PageInserted:
		return "inserted"
	case PageResolved:
		return "resolved"
	case PageMarkedMissing:
		return "marked missing"
	default:
		return "unknown"
	}
}

// Tx is a graph store transaction. All Persister writes for one batch go
// through a single Tx so a batch is applied completely or not at all.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
}

// Begin starts a transaction.
func (g *GraphDB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, dialect: g.dialect}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is
// not an error, so it can be deferred unconditionally.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// FindPageByExternalID returns the page with the given external id, or nil.
func (t *Tx) FindPageByExternalID(ctx context.Context, extID string) (*model.Page, error) {
	return findPage(ctx, t.tx, t.dialect, "ext_page_id", extID)
}

// FindPageByTitle returns the first page with the given title, or nil.
func (t *Tx) FindPageByTitle(ctx context.Context, title string) (*model.Page, error) {
	return findPage(ctx, t.tx, t.dialect, "title", model.NormalizeTitle(title))
}

// UpsertPage applies a page observation and returns the page's internal id.
//
// Matching is by external id first, then by title when the observation
// carries one. A matching stub is resolved in place; a resolved page is
// left untouched. Only when nothing matches is a new row inserted.
func (t *Tx) UpsertPage(ctx context.Context, obs model.PageObservation) (int64, PageOutcome, error) {
	title := model.NormalizeTitle(obs.Title)

	existing, err := t.FindPageByExternalID(ctx, obs.ExternalID)
	if err != nil {
		return 0, PageUnchanged, err
	}
	if existing != nil {
		if !existing.IsStub() {
			return existing.ID, PageUnchanged, nil
		}
		switch {
		case title != "":
			if err := t.exec(ctx, "UPDATE page SET title = ? WHERE page_id = ?", title, existing.ID); err != nil {
				return 0, PageUnchanged, fmt.Errorf("failed to resolve page: %w", err)
			}
			return existing.ID, PageResolved, nil
		case obs.Missing:
			if err := t.exec(ctx, "UPDATE page SET missing = 1 WHERE page_id = ?", existing.ID); err != nil {
				return 0, PageUnchanged, fmt.Errorf("failed to mark page missing: %w", err)
			}
			return existing.ID, PageMarkedMissing, nil
		default:
			return existing.ID, PageUnchanged, nil
		}
	}

	if title != "" {
		byTitle, err := t.FindPageByTitle(ctx, title)
		if err != nil {
			return 0, PageUnchanged, err
		}
		if byTitle != nil {
			return byTitle.ID, PageUnchanged, nil
		}
	}

	var titleArg sql.NullString
	if title != "" {
		titleArg = sql.NullString{String: title, Valid: true}
	}

	query := t.dialect.rebind(`
	INSERT INTO page (title, ext_page_id, missing)
	VALUES (?, ?, ?)
	RETURNING page_id
	`)

	var id int64
	missing := boolToInt(obs.Missing && title == "")
	if err := t.tx.QueryRowContext(ctx, query, titleArg, obs.ExternalID, missing).Scan(&id); err != nil {
		return 0, PageUnchanged, fmt.Errorf("failed to insert page: %w", err)
	}

	return id, PageInserted, nil
}

// LinkExists reports whether the ordered edge from -> to is stored.
func (t *Tx) LinkExists(ctx context.Context, toID, fromID int64) (bool, error) {
	query := t.dialect.rebind(`
	SELECT COUNT(*) FROM link
	WHERE to_page_id = ? AND from_page_id = ?
	`)

	var count int
	if err := t.tx.QueryRowContext(ctx, query, toID, fromID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return count > 0, nil
}

// InsertLink stores the ordered edge from -> to with the default length.
func (t *Tx) InsertLink(ctx context.Context, toID, fromID int64) error {
	err := t.exec(ctx,
		"INSERT INTO link (to_page_id, from_page_id, length) VALUES (?, ?, ?)",
		toID, fromID, model.DefaultLinkLength,
	)
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// SaveContinuation parks a continuation for the next crawl.
// Saving the same continuation twice keeps a single row.
func (t *Tx) SaveContinuation(ctx context.Context, c model.Continuation) error {
	err := t.exec(ctx,
		"INSERT INTO continuation (target, token) VALUES (?, ?) ON CONFLICT (target, token) DO NOTHING",
		c.Target, c.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to save continuation: %w", err)
	}
	return nil
}

// DeleteContinuation forgets a parked continuation once it was consumed.
func (t *Tx) DeleteContinuation(ctx context.Context, c model.Continuation) error {
	err := t.exec(ctx,
		"DELETE FROM continuation WHERE target = ? AND token = ?",
		c.Target, c.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete continuation: %w", err)
	}
	return nil
}

// exec runs a statement with rebound placeholders.
func (t *Tx) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
	return err
}
