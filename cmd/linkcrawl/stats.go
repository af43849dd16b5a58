package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/report"
)

// errPageNotFound is returned by stats --page for an unknown page id.
var errPageNotFound = errors.New("page not found in graph")

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the crawled graph",
		Long: `Stats prints the number of pages, unresolved pages, and links in the graph
together with the most linked pages.

Examples:
  # Plain text summary
  linkcrawl stats

  # Markdown report with a chart, written to a file
  linkcrawl stats --markdown -o report/graph.md

  # JSON for other tools
  linkcrawl stats --json

  # Pages linking to one page
  linkcrawl stats --page 1095706`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().IntP("top", "n", config.DefaultTopN,
		"Number of most linked pages to list (0 to skip)")
	cmd.Flags().StringP("page", "p", "",
		"List the pages linking to this page id instead of the summary")

	addStoreFlags(cmd)

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	page, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}

	db, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if page != "" {
		return writeIncoming(cmd.Context(), db, page, cmd.OutOrStdout())
	}
	return writeStats(cmd.Context(), cfg, db, cmd.OutOrStdout())
}

// buildStatsConfig creates a Config from the file, the environment, and
// the stats flags.
func buildStatsConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	err = joinErrors(
		override(cmd, "json", &cfg.JSONReport, f.GetBool),
		override(cmd, "markdown", &cfg.MarkdownReport, f.GetBool),
		override(cmd, "output", &cfg.ReportFile, f.GetString),
		override(cmd, "top", &cfg.TopN, f.GetInt),
		applyStoreFlags(cmd, cfg),
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeStats renders the graph summary in the requested format.
func writeStats(ctx context.Context, cfg *config.Config, db *database.GraphDB, stdout io.Writer) error {
	stats, err := db.Stats(ctx, cfg.TopN)
	if err != nil {
		return err
	}

	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output)
	}

	if _, err := w.Write(stats); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// createReportFile creates or truncates path and its parent directories.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// writeIncoming lists the pages linking to extID.
func writeIncoming(ctx context.Context, db *database.GraphDB, extID string, w io.Writer) error {
	page, err := db.GetPage(ctx, extID)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("%w: %s", errPageNotFound, extID)
	}

	incoming, err := db.IncomingLinks(ctx, extID)
	if err != nil {
		return err
	}

	title := page.Title
	switch {
	case page.Missing:
		title = "(missing)"
	case page.IsStub():
		title = "(unresolved)"
	}
	fmt.Fprintf(w, "%s  %s\n", page.ExternalID, title)
	fmt.Fprintf(w, "%d page(s) link here\n", len(incoming))

	for _, from := range incoming {
		linking, err := db.GetPage(ctx, from)
		if err != nil {
			return err
		}
		label := "(unresolved)"
		if linking != nil && linking.Title != "" {
			label = linking.Title
		}
		fmt.Fprintf(w, "  %10s  %s\n", from, label)
	}
	return nil
}
