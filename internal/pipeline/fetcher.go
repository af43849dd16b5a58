package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/linkcrawl/internal/model"
	"github.com/nao1215/linkcrawl/internal/wiki"
)

// Source answers "which pages link to pageID", one result page per call.
type Source interface {
	LinksHere(ctx context.Context, pageID, token string) (*wiki.Result, error)
}

// Fetcher turns each expansion request into one batch of observations.
//
// A failed call is logged with its reason and the request is dropped;
// it never stops the loop.
type Fetcher struct {
	source Source
	in     <-chan model.ExpansionRequest
	out    chan<- model.Batch

	capacity int
	logger   *slog.Logger

	buffer []model.Batch
	stats  Stats
}

// Run processes requests until its input is closed, then flushes and closes
// its output.
func (f *Fetcher) Run(ctx context.Context) error {
	defer close(f.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-f.in:
			if !ok {
				f.logger.Debug("fetcher stopping", "buffered", len(f.buffer))
				return f.flush(ctx)
			}

			batch, ok, err := f.fetch(ctx, req)
			if err != nil {
				return err
			}
			if ok {
				f.buffer = append(f.buffer, batch)
			}

			// Flush when full or when no request is waiting, so a slow
			// trickle of requests is not held back.
			if len(f.buffer) >= f.capacity || len(f.in) == 0 {
				if err := f.flush(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// fetch issues one call for req. ok is false when the call failed and the
// request was dropped.
func (f *Fetcher) fetch(ctx context.Context, req model.ExpansionRequest) (model.Batch, bool, error) {
	result, err := f.source.LinksHere(ctx, req.Target, req.Token)
	if err != nil {
		if ctx.Err() != nil {
			return model.Batch{}, false, ctx.Err()
		}

		reason := wiki.Reason(err)
		if f.stats.FetchErrors == nil {
			f.stats.FetchErrors = make(map[string]int)
		}
		f.stats.FetchErrors[reason]++
		f.logger.Warn("fetch failed",
			"target", req.Target,
			"continuation", req.IsContinuation(),
			"reason", reason,
			"error", err,
		)
		return model.Batch{}, false, nil
	}

	f.stats.Fetches++
	batch := newBatch(req, result)
	f.logger.Debug("fetched",
		"target", req.Target,
		"pages", len(batch.Pages),
		"links", len(batch.Links),
		"more", batch.HasMore(),
	)
	return batch, true, nil
}

// newBatch converts a decoded result into observations. Every links-here
// entry yields a stub observation and an edge into the queried page.
func newBatch(req model.ExpansionRequest, result *wiki.Result) model.Batch {
	batch := model.Batch{
		Target: req.Target,
		Token:  req.Token,
		Next:   result.Continue,
	}

	for _, page := range result.Pages {
		batch.Pages = append(batch.Pages, model.PageObservation{
			ExternalID: page.PageID,
			Title:      page.Title,
			Missing:    page.Missing,
		})
		for _, from := range page.LinksHere {
			batch.Pages = append(batch.Pages, model.PageObservation{ExternalID: from})
			batch.Links = append(batch.Links, model.LinkObservation{To: page.PageID, From: from})
		}
	}

	return batch
}

func (f *Fetcher) flush(ctx context.Context) error {
	for i, batch := range f.buffer {
		select {
		case f.out <- batch:
		case <-ctx.Done():
			f.buffer = f.buffer[i:]
			return ctx.Err()
		}
	}
	f.buffer = f.buffer[:0]
	return nil
}
