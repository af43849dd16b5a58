package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/linkcrawl/internal/model"
)

// TestNew tests the Pipeline constructor.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New(nil, nil, nil)

		if p.capacity != DefaultCapacity || p.pollInterval != DefaultPollInterval {
			t.Errorf("unexpected defaults: %+v", p)
		}
		if p.maxStoreFailures != DefaultMaxStoreFailures || p.stubRetryAfter != DefaultStubRetryAfter {
			t.Errorf("unexpected defaults: %+v", p)
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		p := New(nil, nil, nil,
			WithCapacity(3),
			WithFeedbackSize(7),
			WithPollInterval(time.Second),
			WithStubRetryAfter(0),
			WithMaxStoreFailures(2),
			WithSeeds("a", "b"),
		)

		if p.capacity != 3 || p.feedbackSize != 7 || p.pollInterval != time.Second {
			t.Errorf("options not applied: %+v", p)
		}
		if p.stubRetryAfter != 0 || p.maxStoreFailures != 2 || len(p.seeds) != 2 {
			t.Errorf("options not applied: %+v", p)
		}
	})

	t.Run("ignores invalid sizes", func(t *testing.T) {
		t.Parallel()

		p := New(nil, nil, nil, WithCapacity(0), WithMaxStoreFailures(-1), WithPollInterval(0))

		if p.capacity != DefaultCapacity || p.maxStoreFailures != DefaultMaxStoreFailures || p.pollInterval != DefaultPollInterval {
			t.Errorf("invalid options applied: %+v", p)
		}
	})
}

// TestPipelineRun tests full crawls against a scripted source.
func TestPipelineRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls the seed page", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		frontierDB := openStore(t, dir)
		persisterDB := openStore(t, dir)

		source := newScriptedSource()
		source.page("1095706", "", "Jesus", "", "100", "200")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := New(frontierDB, source, persisterDB,
			WithLogger(discardLogger()),
			WithSeeds("1095706"),
			WithPollInterval(time.Millisecond),
			WithStubRetryAfter(0),
			WithOnResolve(func(externalID, _ string) {
				if externalID == "1095706" {
					cancel()
				}
			}),
		)

		stats, err := p.Run(ctx)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if stats.PagesInserted != 3 || stats.LinksInserted != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if stats.FinishedAt.Before(stats.StartedAt) {
			t.Error("expected finish after start")
		}

		graph, err := persisterDB.Stats(context.Background(), 0)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if graph.Pages != 3 || graph.Links != 2 || graph.Resolved != 1 || graph.Stubs != 2 {
			t.Errorf("unexpected graph: %+v", graph)
		}

		page, _ := persisterDB.GetPage(context.Background(), "1095706")
		if page == nil || page.Title != "Jesus" {
			t.Errorf("expected resolved seed, got %+v", page)
		}
		for _, id := range []string{"100", "200"} {
			stub, _ := persisterDB.GetPage(context.Background(), id)
			if stub == nil || !stub.IsStub() {
				t.Errorf("expected stub %s, got %+v", id, stub)
			}
		}
	})

	t.Run("follows pagination through the feedback cycle", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		frontierDB := openStore(t, dir)
		persisterDB := openStore(t, dir)

		source := newScriptedSource()
		source.page("T", "", "Tee", "c1", "1")
		source.page("T", "c1", "Tee", "c2", "2")
		source.page("T", "c2", "Tee", "", "3")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := New(frontierDB, source, persisterDB,
			WithLogger(discardLogger()),
			WithSeeds("T"),
			WithPollInterval(time.Millisecond),
			WithStubRetryAfter(0),
		)

		done := make(chan error, 1)
		go func() {
			_, err := p.Run(ctx)
			done <- err
		}()

		waitFor(t, 10*time.Second, func() bool {
			from, err := persisterDB.IncomingLinks(context.Background(), "T")
			return err == nil && len(from) == 3
		})
		cancel()
		if err := <-done; err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if got := source.callsFor("T"); !equalStrings(got, []string{"", "c1", "c2"}) {
			t.Errorf("expected three ordered calls, got %q", got)
		}
		from, _ := persisterDB.IncomingLinks(context.Background(), "T")
		if !equalStrings(from, []string{"1", "2", "3"}) {
			t.Errorf("expected union of all pages, got %v", from)
		}
		pending, _ := persisterDB.PendingContinuations(context.Background())
		if len(pending) != 0 {
			t.Errorf("expected no parked continuations, got %v", pending)
		}
	})

	t.Run("resumes a parked continuation", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		frontierDB := openStore(t, dir)
		persisterDB := openStore(t, dir)
		ctx := context.Background()

		tx, err := persisterDB.Begin(ctx)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		if _, _, err := tx.UpsertPage(ctx, model.PageObservation{ExternalID: "T", Title: "Tee"}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := tx.SaveContinuation(ctx, model.Continuation{Target: "T", Token: "c1"}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit failed: %v", err)
		}

		source := newScriptedSource()
		source.page("T", "c1", "Tee", "", "9")

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		p := New(frontierDB, source, persisterDB,
			WithLogger(discardLogger()),
			WithPollInterval(time.Millisecond),
			WithStubRetryAfter(0),
		)

		done := make(chan Stats, 1)
		go func() {
			stats, _ := p.Run(runCtx)
			done <- stats
		}()

		waitFor(t, 10*time.Second, func() bool {
			from, err := persisterDB.IncomingLinks(ctx, "T")
			return err == nil && len(from) == 1
		})
		cancel()
		stats := <-done

		if stats.Resumed != 1 {
			t.Errorf("expected one resumed continuation, got %d", stats.Resumed)
		}
		if got := source.callsFor("T"); !equalStrings(got, []string{"c1"}) {
			t.Errorf("expected only the parked call, got %q", got)
		}
		pending, _ := persisterDB.PendingContinuations(ctx)
		if len(pending) != 0 {
			t.Errorf("expected the continuation to be consumed, got %v", pending)
		}
	})

	t.Run("aborts on sustained store failure", func(t *testing.T) {
		t.Parallel()

		frontierDB := openStore(t, t.TempDir())
		source := newScriptedSource()
		source.page("T", "", "Tee", "")

		p := New(frontierDB, source, &failingWriter{},
			WithLogger(discardLogger()),
			WithSeeds("T"),
			WithPollInterval(time.Millisecond),
			WithMaxStoreFailures(1),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := p.Run(ctx)
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
		if stats.BatchesFailed != 1 {
			t.Errorf("expected one failed batch, got %d", stats.BatchesFailed)
		}
	})

	t.Run("stops cleanly when already canceled", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		frontierDB := openStore(t, dir)
		persisterDB := openStore(t, dir)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := New(frontierDB, newScriptedSource(), persisterDB, WithLogger(discardLogger()))
		if _, err := p.Run(ctx); err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
	})
}
