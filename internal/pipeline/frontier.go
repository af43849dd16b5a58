package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkcrawl/internal/model"
)

// FrontierStore is the read-only view of the graph store used by the Frontier.
type FrontierStore interface {
	// FindStubPage returns an unresolved page, if any.
	FindStubPage(ctx context.Context) (string, bool, error)

	// PendingContinuations returns the continuations parked by a previous run.
	PendingContinuations(ctx context.Context) ([]model.Continuation, error)
}

// Frontier chooses the targets to expand next.
//
// Continuations fed back by the Persister take precedence over the stub
// scan. Requests are buffered up to capacity and flushed in arrival order
// when the buffer is full or on every poll tick.
type Frontier struct {
	store    FrontierStore
	seeds    []string
	feedback <-chan model.Continuation
	out      chan<- model.ExpansionRequest

	capacity       int
	pollInterval   time.Duration
	stubRetryAfter time.Duration
	logger         *slog.Logger
	now            func() time.Time

	buffer []model.ExpansionRequest

	// lastStub is the stub most recently offered by the scan. The same stub
	// is not offered again until a different one was seen, or until
	// stubRetryAfter has passed so a stub whose fetch failed is retried.
	lastStub   string
	lastStubAt time.Time

	stats Stats
}

// Run emits expansion requests until stop is closed or ctx is done.
// On stop it flushes the buffer and closes its output; it does not touch the
// store after stop was observed.
func (f *Frontier) Run(ctx context.Context, stop <-chan struct{}) error {
	defer close(f.out)

	if err := f.prime(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return f.shutdown(ctx)
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return f.shutdown(ctx)
		case c, ok := <-f.feedback:
			if !ok {
				f.feedback = nil
				continue
			}
			f.enqueue(c.Request())
			if len(f.buffer) >= f.capacity {
				if err := f.flush(ctx); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := f.fill(ctx, stop); err != nil {
				return err
			}
			if err := f.flush(ctx); err != nil {
				return err
			}
		}
	}
}

// prime queues parked continuations and seeds before the first scan.
func (f *Frontier) prime(ctx context.Context) error {
	pending, err := f.store.PendingContinuations(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	if len(pending) > 0 {
		f.logger.Info("resuming parked continuations", "count", len(pending))
	}

	requests := make([]model.ExpansionRequest, 0, len(pending)+len(f.seeds))
	for _, c := range pending {
		requests = append(requests, c.Request())
	}
	for _, seed := range f.seeds {
		requests = append(requests, model.ExpansionRequest{Target: seed})
	}
	f.stats.Resumed = len(pending)

	for _, req := range requests {
		f.enqueue(req)
		if len(f.buffer) >= f.capacity {
			if err := f.flush(ctx); err != nil {
				return err
			}
		}
	}
	return f.flush(ctx)
}

// fill tops the buffer up: fed back continuations first, then one stub scan.
func (f *Frontier) fill(ctx context.Context, stop <-chan struct{}) error {
	f.drainFeedback()
	if len(f.buffer) >= f.capacity {
		return nil
	}

	select {
	case <-stop:
		return nil
	default:
	}

	target, ok, err := f.store.FindStubPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	if !ok || !f.offer(target) {
		return nil
	}

	f.logger.Debug("offering stub", "target", target)
	f.enqueue(model.ExpansionRequest{Target: target})
	return nil
}

// drainFeedback moves waiting continuations into the buffer without blocking.
func (f *Frontier) drainFeedback() {
	for len(f.buffer) < f.capacity {
		select {
		case c, ok := <-f.feedback:
			if !ok {
				f.feedback = nil
				return
			}
			f.enqueue(c.Request())
		default:
			return
		}
	}
}

// offer reports whether a stub returned by the scan should be requested.
func (f *Frontier) offer(target string) bool {
	now := f.now()
	if target == f.lastStub {
		if f.stubRetryAfter <= 0 || now.Sub(f.lastStubAt) < f.stubRetryAfter {
			return false
		}
		f.logger.Debug("retrying stub", "target", target)
	}
	f.lastStub = target
	f.lastStubAt = now
	return true
}

func (f *Frontier) enqueue(req model.ExpansionRequest) {
	f.buffer = append(f.buffer, req)
}

// flush sends the whole buffer downstream in arrival order.
func (f *Frontier) flush(ctx context.Context) error {
	for i, req := range f.buffer {
		select {
		case f.out <- req:
			f.stats.Requests++
		case <-ctx.Done():
			f.buffer = f.buffer[i:]
			return ctx.Err()
		}
	}
	f.buffer = f.buffer[:0]
	return nil
}

func (f *Frontier) shutdown(ctx context.Context) error {
	f.logger.Debug("frontier stopping", "buffered", len(f.buffer))
	return f.flush(ctx)
}
