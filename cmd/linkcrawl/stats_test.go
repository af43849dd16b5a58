package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/model"
)

// seedGraph stores "Jesus" (1095706) linked from a stub (15034) and a
// resolved page (7), and returns the database directory.
func seedGraph(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	opts := database.DefaultOptions()
	opts.Dir = dir
	db, err := database.Open(opts)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	ids := map[string]int64{}
	for _, obs := range []model.PageObservation{
		{ExternalID: "1095706", Title: "Jesus"},
		{ExternalID: "15034"},
		{ExternalID: "7", Title: "Christianity"},
	} {
		id, _, err := tx.UpsertPage(ctx, obs)
		if err != nil {
			t.Fatal(err)
		}
		ids[obs.ExternalID] = id
	}
	for _, from := range []string{"15034", "7"} {
		if err := tx.InsertLink(ctx, ids["1095706"], ids[from]); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	return dir
}

// runStats executes the stats command against the database in dir.
func runStats(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetArgs(append([]string{"stats", "--config", writeEmptyConfig(t), "--db-dir", dir}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestStatsCmd(t *testing.T) {
	t.Parallel()

	dir := seedGraph(t)

	t.Run("plain text summary", func(t *testing.T) {
		t.Parallel()

		output, err := runStats(t, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Pages:          3", "Stubs:        1", "Links:          2", "Jesus"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("json summary", func(t *testing.T) {
		t.Parallel()

		output, err := runStats(t, dir, "--json", "--top", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var stats model.GraphStats
		if err := json.Unmarshal([]byte(output), &stats); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, output)
		}
		if stats.Pages != 3 || stats.Resolved != 2 || stats.Stubs != 1 || stats.Links != 2 {
			t.Errorf("unexpected counts: %+v", stats)
		}
		if len(stats.TopLinked) != 1 || stats.TopLinked[0].Page.ExternalID != "1095706" {
			t.Errorf("expected Jesus as the only top linked page, got %+v", stats.TopLinked)
		}
	})

	t.Run("markdown summary to file", func(t *testing.T) {
		t.Parallel()

		reportPath := filepath.Join(t.TempDir(), "reports", "graph.md")
		output, err := runStats(t, dir, "--markdown", "-o", reportPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output != "" {
			t.Errorf("expected nothing on stdout, got %q", output)
		}

		content, err := os.ReadFile(reportPath) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(content), "# linkcrawl Graph Report") {
			t.Errorf("expected markdown report, got:\n%s", content)
		}
	})

	t.Run("json and markdown conflict", func(t *testing.T) {
		t.Parallel()

		if _, err := runStats(t, dir, "--json", "--markdown"); err == nil {
			t.Error("expected error for conflicting formats")
		}
	})

	t.Run("incoming links of a page", func(t *testing.T) {
		t.Parallel()

		output, err := runStats(t, dir, "--page", "1095706")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"1095706  Jesus", "2 page(s) link here", "(unresolved)", "Christianity"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		t.Parallel()

		_, err := runStats(t, dir, "--page", "999")
		if !errors.Is(err, errPageNotFound) {
			t.Errorf("expected errPageNotFound, got %v", err)
		}
	})
}

func TestStatsCmd_MissingDatabase(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never-crawled")
	if _, err := runStats(t, dir); err == nil {
		t.Error("expected error for missing database")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected stats not to create the database directory")
	}
}
