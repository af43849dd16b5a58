package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/model"
	"github.com/nao1215/linkcrawl/internal/wiki"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openStore opens a graph store handle in dir and closes it with the test.
func openStore(t *testing.T, dir string) *database.GraphDB {
	t.Helper()

	opts := database.DefaultOptions()
	opts.Dir = dir
	db, err := database.Open(opts)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sourceCall records one LinksHere invocation.
type sourceCall struct {
	target string
	token  string
}

// scriptedSource answers LinksHere from a fixed script keyed by target and
// token. Unscripted requests fail with a transport error.
type scriptedSource struct {
	mu      sync.Mutex
	results map[sourceCall]*wiki.Result
	errs    map[sourceCall]error
	calls   []sourceCall
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		results: make(map[sourceCall]*wiki.Result),
		errs:    make(map[sourceCall]error),
	}
}

// page scripts a response for target at token.
func (s *scriptedSource) page(target, token, title, next string, linksHere ...string) {
	s.results[sourceCall{target, token}] = &wiki.Result{
		Pages:    []wiki.PageLinks{{PageID: target, Title: title, LinksHere: linksHere}},
		Continue: next,
	}
}

func (s *scriptedSource) LinksHere(_ context.Context, pageID, token string) (*wiki.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := sourceCall{pageID, token}
	s.calls = append(s.calls, call)
	if err, ok := s.errs[call]; ok {
		return nil, err
	}
	if r, ok := s.results[call]; ok {
		return r, nil
	}
	return nil, wiki.ErrTransport
}

// callsFor returns the tokens requested for target, in call order.
func (s *scriptedSource) callsFor(target string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tokens []string
	for _, c := range s.calls {
		if c.target == target {
			tokens = append(tokens, c.token)
		}
	}
	return tokens
}

// failingWriter fails Begin according to plan, one entry per call, then
// delegates to next. A nil next fails every call.
type failingWriter struct {
	mu   sync.Mutex
	next GraphWriter
	plan []bool
}

var errStoreDown = errors.New("store down")

func (w *failingWriter) Begin(ctx context.Context) (*database.Tx, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.plan) > 0 {
		fail := w.plan[0]
		w.plan = w.plan[1:]
		if fail {
			return nil, errStoreDown
		}
	}
	if w.next == nil {
		return nil, errStoreDown
	}
	return w.next.Begin(ctx)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// jesusBatch is the decoded first response for page 1095706.
func jesusBatch() model.Batch {
	return newBatch(model.ExpansionRequest{Target: "1095706"}, &wiki.Result{
		Pages: []wiki.PageLinks{{PageID: "1095706", Title: "Jesus", LinksHere: []string{"100", "200"}}},
	})
}
