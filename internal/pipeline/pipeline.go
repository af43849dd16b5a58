package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkcrawl/internal/model"
)

// Default pipeline settings.
const (
	// DefaultCapacity bounds each stage's outbound buffer and channel.
	DefaultCapacity = 10

	// DefaultFeedbackSize is the buffer of the Persister -> Frontier channel.
	DefaultFeedbackSize = 64

	// DefaultPollInterval is how often the Frontier scans for stubs and
	// flushes a partial buffer.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultStubRetryAfter is how long the Frontier waits before offering
	// the same stub again.
	DefaultStubRetryAfter = time.Minute

	// DefaultMaxStoreFailures is the number of consecutive failed batches
	// after which the Persister gives up.
	DefaultMaxStoreFailures = 5
)

// Pipeline wires the Frontier, Fetcher and Persister together.
type Pipeline struct {
	frontierStore FrontierStore
	source        Source
	graph         GraphWriter

	seeds            []string
	capacity         int
	feedbackSize     int
	pollInterval     time.Duration
	stubRetryAfter   time.Duration
	maxStoreFailures int
	onResolve        ResolveFunc
	logger           *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSeeds queues targets that are expanded before the first stub scan.
func WithSeeds(seeds ...string) Option {
	return func(p *Pipeline) {
		p.seeds = append(p.seeds, seeds...)
	}
}

// WithCapacity sets the buffer size of every stage.
func WithCapacity(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithFeedbackSize sets the buffer of the feedback channel.
func WithFeedbackSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.feedbackSize = n
		}
	}
}

// WithPollInterval sets how often the Frontier scans the store.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithStubRetryAfter sets when an unchanged stub may be offered again.
// Zero never re-offers a stub until a different one was seen.
func WithStubRetryAfter(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.stubRetryAfter = d
		}
	}
}

// WithMaxStoreFailures sets the consecutive failure threshold.
func WithMaxStoreFailures(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxStoreFailures = n
		}
	}
}

// WithOnResolve registers a callback for resolved pages. It runs on the
// Persister goroutine.
func WithOnResolve(fn ResolveFunc) Option {
	return func(p *Pipeline) {
		p.onResolve = fn
	}
}

// New creates a Pipeline. frontierStore and graph should be separate store
// handles; only graph is written to.
func New(frontierStore FrontierStore, source Source, graph GraphWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		frontierStore:    frontierStore,
		source:           source,
		graph:            graph,
		capacity:         DefaultCapacity,
		feedbackSize:     DefaultFeedbackSize,
		pollInterval:     DefaultPollInterval,
		stubRetryAfter:   DefaultStubRetryAfter,
		maxStoreFailures: DefaultMaxStoreFailures,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Run crawls until ctx is canceled or a stage fails.
//
// Canceling ctx is a graceful stop: the Frontier stops producing and the
// remaining work drains through the Fetcher and Persister before Run
// returns nil. A stage error aborts all stages and is returned.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	stats := Stats{StartedAt: time.Now()}

	stop := make(chan struct{})
	release := context.AfterFunc(ctx, func() { close(stop) })
	defer release()

	// Stages only abort on a stage error; the caller's cancellation reaches
	// them through stop and channel closure.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	requests := make(chan model.ExpansionRequest, p.capacity)
	batches := make(chan model.Batch, p.capacity)
	feedback := make(chan model.Continuation, p.feedbackSize)

	frontier := p.newFrontier(feedback, requests)
	fetcher := p.newFetcher(requests, batches)
	persister := p.newPersister(batches, feedback)

	p.logger.Info("pipeline started",
		"capacity", p.capacity,
		"seeds", len(p.seeds),
	)

	g.Go(func() error { return frontier.Run(gctx, stop) })
	g.Go(func() error { return fetcher.Run(gctx) })
	g.Go(func() error { return persister.Run(gctx) })

	err := g.Wait()

	stats.add(frontier.stats)
	stats.add(fetcher.stats)
	stats.add(persister.stats)
	stats.FinishedAt = time.Now()

	if err != nil {
		p.logger.Error("pipeline aborted", "error", err)
		return stats, err
	}

	p.logger.Info("pipeline stopped",
		"requests", stats.Requests,
		"batches", stats.BatchesApplied,
		"elapsed", stats.Duration(),
	)
	return stats, nil
}

func (p *Pipeline) newFrontier(feedback <-chan model.Continuation, out chan<- model.ExpansionRequest) *Frontier {
	return &Frontier{
		store:          p.frontierStore,
		seeds:          p.seeds,
		feedback:       feedback,
		out:            out,
		capacity:       p.capacity,
		pollInterval:   p.pollInterval,
		stubRetryAfter: p.stubRetryAfter,
		logger:         p.logger.With("stage", "frontier"),
		now:            time.Now,
	}
}

func (p *Pipeline) newFetcher(in <-chan model.ExpansionRequest, out chan<- model.Batch) *Fetcher {
	return &Fetcher{
		source:   p.source,
		in:       in,
		out:      out,
		capacity: p.capacity,
		logger:   p.logger.With("stage", "fetcher"),
	}
}

func (p *Pipeline) newPersister(in <-chan model.Batch, feedback chan model.Continuation) *Persister {
	return &Persister{
		store:       p.graph,
		in:          in,
		feedback:    feedback,
		maxFailures: p.maxStoreFailures,
		onResolve:   p.onResolve,
		logger:      p.logger.With("stage", "persister"),
	}
}
