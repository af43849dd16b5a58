package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/pipeline"
	"github.com/nao1215/linkcrawl/internal/wiki"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-page-id...]",
		Short: "Crawl the links-here graph until interrupted",
		Long: `Crawl expands the graph breadth-first. Every page id given as an argument
is expanded first, then the oldest unresolved page in the store, forever.

Press Ctrl-C (or send SIGTERM) to stop. Requests in flight are completed and
stored; a second signal terminates immediately.

Examples:
  # Start from the page "Jesus" (page id 1095706)
  linkcrawl crawl 1095706

  # Resume a previous crawl
  linkcrawl crawl

  # Store the graph in PostgreSQL
  linkcrawl crawl --db-driver postgres --dsn postgres://localhost/linkcrawl 1095706

  # Crawl another wiki through a SOCKS5 proxy
  linkcrawl crawl --endpoint https://de.wikipedia.org/w/api.php --proxy 127.0.0.1:1080 1`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// API flags
	cmd.Flags().String("endpoint", config.DefaultEndpoint, "MediaWiki action API endpoint")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent sent to the API")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout of a single API request")
	cmd.Flags().Float64P("rate-limit", "r", config.DefaultRateLimit, "API requests per second (0 disables pacing)")
	cmd.Flags().IntP("limit", "l", config.DefaultLimit, "Links-here entries per API response")
	cmd.Flags().Int("namespace", 0, "Namespace of linking pages")

	// Pipeline flags
	cmd.Flags().Int("capacity", config.DefaultCapacity, "Buffer size of each pipeline stage")
	cmd.Flags().Duration("poll-interval", config.DefaultPollInterval, "How often the store is scanned for unresolved pages")
	cmd.Flags().Duration("stub-retry", config.DefaultStubRetryAfter, "When an unresolved page is offered again (0 waits for another page)")
	cmd.Flags().Int("max-store-failures", config.DefaultMaxStoreFailures, "Consecutive failed writes before the crawl stops")

	cmd.Flags().BoolP("quiet", "q", false, "Do not print resolved pages")

	addStoreFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	// The first signal stops the crawl gracefully; releasing the handler
	// afterwards lets a second signal kill the process.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, func() {
		logger.Info("received shutdown signal, draining...")
		stop()
	})

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), quiet)
}

// buildCrawlConfig creates a Config from the file, the environment, and
// the crawl flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	err = joinErrors(
		override(cmd, "endpoint", &cfg.Endpoint, f.GetString),
		override(cmd, "user-agent", &cfg.UserAgent, f.GetString),
		override(cmd, "proxy", &cfg.ProxyAddress, f.GetString),
		override(cmd, "timeout", &cfg.Timeout, f.GetDuration),
		override(cmd, "rate-limit", &cfg.RateLimit, f.GetFloat64),
		override(cmd, "limit", &cfg.Limit, f.GetInt),
		override(cmd, "namespace", &cfg.Namespace, f.GetInt),
		override(cmd, "capacity", &cfg.Capacity, f.GetInt),
		override(cmd, "poll-interval", &cfg.PollInterval, f.GetDuration),
		override(cmd, "stub-retry", &cfg.StubRetryAfter, f.GetDuration),
		override(cmd, "max-store-failures", &cfg.MaxStoreFailures, f.GetInt),
		applyStoreFlags(cmd, cfg),
	)
	if err != nil {
		return nil, err
	}

	seeds, err := parseSeeds(args)
	if err != nil {
		return nil, err
	}
	cfg.Seeds = seeds

	return cfg, nil
}

// parseSeeds checks that every seed is a page id.
func parseSeeds(args []string) ([]string, error) {
	seeds := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid page id %q: must be a positive integer", arg)
		}
		seeds = append(seeds, strconv.FormatUint(id, 10))
	}
	return seeds, nil
}

// runCrawl runs the pipeline until ctx is canceled or the store fails.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, quiet bool) error {
	logger.Info("starting crawl",
		"endpoint", cfg.Endpoint,
		"driver", cfg.DBDriver,
		"seeds", cfg.Seeds,
	)

	// The Frontier reads through its own handle so its polling never waits
	// on the Persister's transactions.
	frontierDB, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer frontierDB.Close()

	graphDB, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer graphDB.Close()

	logger.Info("database opened", "driver", graphDB.Driver())

	httpClient, err := wiki.NewHTTPClient(wiki.TransportOptions{
		Timeout:      cfg.Timeout,
		ProxyAddress: cfg.ProxyAddress,
		UserAgent:    cfg.UserAgent,
		BearerToken:  cfg.BearerToken,
		Headers:      cfg.Headers,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client, err := wiki.NewClient(cfg.Endpoint,
		wiki.WithHTTPClient(httpClient),
		wiki.WithRateLimit(cfg.RateLimit),
		wiki.WithLimit(cfg.Limit),
		wiki.WithNamespace(cfg.Namespace),
		wiki.WithMaxBodySize(cfg.MaxBodySize),
	)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSeeds(cfg.Seeds...),
		pipeline.WithCapacity(cfg.Capacity),
		pipeline.WithPollInterval(cfg.PollInterval),
		pipeline.WithStubRetryAfter(cfg.StubRetryAfter),
		pipeline.WithMaxStoreFailures(cfg.MaxStoreFailures),
	}
	if !quiet {
		opts = append(opts, pipeline.WithOnResolve(func(externalID, title string) {
			fmt.Fprintf(out, "%10s  %s\n", externalID, title)
		}))
	}

	fmt.Fprintf(out, "Crawl started at %s\n", time.Now().Format(time.RFC3339))

	stats, err := pipeline.New(frontierDB, client, graphDB, opts...).Run(ctx)

	printCrawlSummary(out, stats)

	if err != nil {
		if errors.Is(err, pipeline.ErrStoreUnavailable) || errors.Is(err, pipeline.ErrStoreRead) {
			return fmt.Errorf("crawl stopped, graph store unavailable: %w", err)
		}
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

// printCrawlSummary prints what one crawl did.
func printCrawlSummary(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "\nCrawl finished at %s (%s)\n",
		stats.FinishedAt.Format(time.RFC3339), stats.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Requests:       %d (%d resumed)\n", stats.Requests, stats.Resumed)
	fmt.Fprintf(w, "  Fetches:        %d ok, %d failed\n", stats.Fetches, stats.TotalFetchErrors())
	fmt.Fprintf(w, "  Batches:        %d applied, %d failed\n", stats.BatchesApplied, stats.BatchesFailed)
	fmt.Fprintf(w, "  Pages:          %d new, %d resolved, %d missing\n",
		stats.PagesInserted, stats.PagesResolved, stats.PagesMissing)
	fmt.Fprintf(w, "  Links:          %d new, %d known, %d dropped\n",
		stats.LinksInserted, stats.LinksDuplicate, stats.LinksDropped)
	fmt.Fprintf(w, "  Continuations:  %d followed, %d parked\n", stats.Continuations, stats.Parked)

	if len(stats.FetchErrors) > 0 {
		reasons := make([]string, 0, len(stats.FetchErrors))
		for reason := range stats.FetchErrors {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		fmt.Fprintln(w, "  Fetch errors:")
		for _, reason := range reasons {
			fmt.Fprintf(w, "    %-20s %d\n", reason, stats.FetchErrors[reason])
		}
	}
}
