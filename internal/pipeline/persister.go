package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/model"
)

// GraphWriter opens write transactions on the graph store.
type GraphWriter interface {
	Begin(ctx context.Context) (*database.Tx, error)
}

// ResolveFunc is called for every page that received its title.
type ResolveFunc func(externalID, title string)

// Persister is the only writer of the graph store.
//
// Each batch is applied in one transaction. Continuations are handed back to
// the Frontier through a select that also keeps receiving batches, so a full
// feedback channel never stalls the Persister.
type Persister struct {
	store    GraphWriter
	in       <-chan model.Batch
	feedback chan model.Continuation

	maxFailures int
	onResolve   ResolveFunc
	logger      *slog.Logger

	// pending holds continuations not yet accepted by the feedback channel,
	// oldest first.
	pending  []model.Continuation
	failures int
	stats    Stats
}

// Run applies batches until its input is closed. Continuations that were
// never picked up by the Frontier are then parked in the store.
func (p *Persister) Run(ctx context.Context) error {
	defer close(p.feedback)

	for {
		var (
			send chan<- model.Continuation
			next model.Continuation
		)
		if len(p.pending) > 0 {
			send = p.feedback
			next = p.pending[0]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case send <- next:
			p.pending = p.pending[1:]
			p.stats.Continuations++
		case batch, ok := <-p.in:
			if !ok {
				return p.shutdown(ctx)
			}
			if err := p.handle(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// handle applies one batch and tracks consecutive storage failures.
func (p *Persister) handle(ctx context.Context, batch model.Batch) error {
	counts, resolved, err := p.apply(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.failures++
		p.stats.BatchesFailed++
		p.logger.Error("batch dropped",
			"target", batch.Target,
			"reason", "storage",
			"consecutive_failures", p.failures,
			"error", err,
		)
		if p.failures >= p.maxFailures {
			return fmt.Errorf("%w: %d consecutive failures: %w", ErrStoreUnavailable, p.failures, err)
		}
		return nil
	}

	p.failures = 0
	p.stats.add(counts)

	for _, page := range resolved {
		p.logger.Info("resolved page", "page", page.ExternalID, "title", page.Title)
		if p.onResolve != nil {
			p.onResolve(page.ExternalID, page.Title)
		}
	}

	if batch.HasMore() {
		p.pending = append(p.pending, model.Continuation{Target: batch.Target, Token: batch.Next})
	}
	return nil
}

// apply writes one batch atomically and returns what it changed.
func (p *Persister) apply(ctx context.Context, batch model.Batch) (Stats, []model.PageObservation, error) {
	var (
		counts   Stats
		resolved []model.PageObservation
	)

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return counts, nil, err
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	ids := make(map[string]int64, len(batch.Pages))
	for _, obs := range batch.Pages {
		id, outcome, err := tx.UpsertPage(ctx, obs)
		if err != nil {
			return counts, nil, err
		}
		ids[obs.ExternalID] = id

		switch outcome {
		case database.PageInserted:
			counts.PagesInserted++
			if obs.HasTitle() {
				resolved = append(resolved, obs)
			}
		case database.PageResolved:
			counts.PagesResolved++
			resolved = append(resolved, obs)
		case database.PageMarkedMissing:
			counts.PagesMissing++
		case database.PageUnchanged:
		}
	}

	for _, link := range batch.Links {
		toID, toOK, err := lookupPage(ctx, tx, ids, link.To)
		if err != nil {
			return counts, nil, err
		}
		fromID, fromOK, err := lookupPage(ctx, tx, ids, link.From)
		if err != nil {
			return counts, nil, err
		}
		if !toOK || !fromOK {
			counts.LinksDropped++
			p.logger.Debug("dropping dangling link", "to", link.To, "from", link.From)
			continue
		}

		exists, err := tx.LinkExists(ctx, toID, fromID)
		if err != nil {
			return counts, nil, err
		}
		if exists {
			counts.LinksDuplicate++
			continue
		}
		if err := tx.InsertLink(ctx, toID, fromID); err != nil {
			return counts, nil, err
		}
		counts.LinksInserted++
	}

	if batch.Token != "" {
		// The request resumed a parked continuation; it is consumed now.
		if err := tx.DeleteContinuation(ctx, model.Continuation{Target: batch.Target, Token: batch.Token}); err != nil {
			return counts, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return counts, nil, err
	}
	counts.BatchesApplied++

	return counts, resolved, nil
}

// lookupPage resolves an external id to an internal id, preferring ids
// already assigned in this batch.
func lookupPage(ctx context.Context, tx *database.Tx, ids map[string]int64, extID string) (int64, bool, error) {
	if id, ok := ids[extID]; ok {
		return id, true, nil
	}
	page, err := tx.FindPageByExternalID(ctx, extID)
	if err != nil {
		return 0, false, err
	}
	if page == nil {
		return 0, false, nil
	}
	ids[extID] = page.ID
	return page.ID, true, nil
}

// shutdown parks every continuation the Frontier did not consume. The
// Frontier has already returned when the input closes, so the feedback
// channel has no reader left.
func (p *Persister) shutdown(ctx context.Context) error {
	var undelivered []model.Continuation
	for drained := false; !drained; {
		select {
		case c := <-p.feedback:
			undelivered = append(undelivered, c)
			p.stats.Continuations--
		default:
			drained = true
		}
	}
	undelivered = append(undelivered, p.pending...)
	p.pending = nil

	if len(undelivered) == 0 {
		return nil
	}
	return p.park(ctx, undelivered)
}

// park saves continuations in one transaction for the next run.
func (p *Persister) park(ctx context.Context, conts []model.Continuation) error {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to park continuations: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for _, c := range conts {
		if err := tx.SaveContinuation(ctx, c); err != nil {
			return fmt.Errorf("failed to park continuations: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to park continuations: %w", err)
	}

	p.stats.Parked += len(conts)
	p.logger.Info("parked continuations", "count", len(conts))
	return nil
}
