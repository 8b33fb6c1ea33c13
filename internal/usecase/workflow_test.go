package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thoughttotable/backend/internal/domain"
)

// fakeGateway is an in-memory RetailerGateway. Search results and injected
// failures are keyed by query / product id. AwaitLogin blocks until the
// context is cancelled, standing in for a human who never finishes signing
// in on their own.
type fakeGateway struct {
	mu          sync.Mutex
	results     map[string][]domain.MatchCandidate
	searchErr   map[string]error
	addErr      map[string]error
	searchCalls []string
	addCalls    []string
	closed      bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results:   make(map[string][]domain.MatchCandidate),
		searchErr: make(map[string]error),
		addErr:    make(map[string]error),
	}
}

func (g *fakeGateway) Search(ctx context.Context, query string) ([]domain.MatchCandidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchCalls = append(g.searchCalls, query)
	if err := g.searchErr[query]; err != nil {
		return nil, err
	}
	return g.results[query], nil
}

func (g *fakeGateway) AddToCart(ctx context.Context, candidate domain.MatchCandidate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.addErr[candidate.ProductID]; err != nil {
		return err
	}
	g.addCalls = append(g.addCalls, candidate.ProductID)
	return nil
}

func (g *fakeGateway) AwaitLogin(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGateway) addCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.addCalls)
}

func (g *fakeGateway) searchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.searchCalls)
}

func (g *fakeGateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// fakeCache is an in-memory SearchCache without expiry.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]domain.MatchCandidate
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]domain.MatchCandidate)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]domain.MatchCandidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.data[key]; ok {
		return cached, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *fakeCache) Set(ctx context.Context, key string, candidates []domain.MatchCandidate, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = candidates
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

// listEntries builds minimal shopping list entries whose search query is the
// entry name itself.
func listEntries(names ...string) []domain.ShoppingListEntry {
	entries := make([]domain.ShoppingListEntry, len(names))
	for i, name := range names {
		entries[i] = domain.ShoppingListEntry{Name: name, SearchQuery: name}
	}
	return entries
}

// stockGateway preloads one perfectly titled product per entry name.
func stockGateway(names ...string) *fakeGateway {
	gateway := newFakeGateway()
	for i, name := range names {
		gateway.results[name] = []domain.MatchCandidate{
			{ProductID: "p" + string(rune('1'+i)), Title: name, URL: "https://example.com/ip/" + name},
		}
	}
	return gateway
}

func newTestWorkflow(gateway domain.RetailerGateway, entries []domain.ShoppingListEntry, config WorkflowConfig) *CartWorkflow {
	matcher := NewCartMatcher(gateway, nil, MatcherConfig{MinConfidence: 0.4})
	return NewCartWorkflow("run-test", entries, matcher, gateway, config)
}

func waitForState(t *testing.T, w *CartWorkflow, want domain.WorkflowState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still in %s", want, w.State())
}

func waitDone(t *testing.T, w *CartWorkflow) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for run to finish, state = %s", w.State())
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	gateway := stockGateway("whole milk", "eggs")
	w := newTestWorkflow(gateway, listEntries("whole milk", "eggs"), WorkflowConfig{})

	go w.Run(context.Background())

	waitForState(t, w, domain.StateAwaitingLogin)
	w.SignalLoginComplete()

	waitForState(t, w, domain.StateAwaitingConfirmation)

	preview := w.Snapshot()
	for i, result := range preview.Results {
		if result.Status != domain.LineStatusMatched {
			t.Errorf("Results[%d].Status = %s, want matched", i, result.Status)
		}
		if result.Chosen == nil {
			t.Errorf("Results[%d].Chosen = nil, want candidate", i)
		}
	}

	if err := w.Confirm(true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateCompleted {
		t.Errorf("State = %s, want completed", final.State)
	}
	for i, result := range final.Results {
		if result.Status != domain.LineStatusAdded {
			t.Errorf("Results[%d].Status = %s, want added", i, result.Status)
		}
	}
	if gateway.addCount() != 2 {
		t.Errorf("add calls = %d, want 2", gateway.addCount())
	}
	if !gateway.isClosed() {
		t.Error("gateway not closed after run")
	}
}

func TestWorkflowAbortDuringConfirmation(t *testing.T) {
	gateway := stockGateway("whole milk")
	w := newTestWorkflow(gateway, listEntries("whole milk"), WorkflowConfig{})

	go w.Run(context.Background())

	w.SignalLoginComplete()
	waitForState(t, w, domain.StateAwaitingConfirmation)

	w.Abort()
	w.Abort() // safe to repeat
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateFailed {
		t.Errorf("State = %s, want failed", final.State)
	}
	if final.FailureReason != "aborted" {
		t.Errorf("FailureReason = %q, want aborted", final.FailureReason)
	}
	if gateway.addCount() != 0 {
		t.Errorf("add calls = %d, want 0 after abort", gateway.addCount())
	}
	if !gateway.isClosed() {
		t.Error("gateway not closed after abort")
	}
}

func TestWorkflowAbortDuringLogin(t *testing.T) {
	gateway := stockGateway("whole milk")
	w := newTestWorkflow(gateway, listEntries("whole milk"), WorkflowConfig{})

	go w.Run(context.Background())

	waitForState(t, w, domain.StateAwaitingLogin)
	w.Abort()
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateFailed || final.FailureReason != "aborted" {
		t.Errorf("got %s/%q, want failed/aborted", final.State, final.FailureReason)
	}
	if gateway.searchCount() != 0 {
		t.Errorf("search calls = %d, want 0", gateway.searchCount())
	}
}

func TestWorkflowLoginTimeout(t *testing.T) {
	gateway := stockGateway("whole milk")
	w := newTestWorkflow(gateway, listEntries("whole milk"), WorkflowConfig{LoginTimeout: 25 * time.Millisecond})

	go w.Run(context.Background())
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateFailed {
		t.Errorf("State = %s, want failed", final.State)
	}
	if final.FailureReason != "login_timeout" {
		t.Errorf("FailureReason = %q, want login_timeout", final.FailureReason)
	}
}

func TestWorkflowSearchFailureIsolation(t *testing.T) {
	gateway := stockGateway("whole milk", "eggs")
	gateway.searchErr["unobtainium"] = errors.New("bot check tripped")

	w := newTestWorkflow(gateway, listEntries("whole milk", "unobtainium", "eggs"), WorkflowConfig{})

	go w.Run(context.Background())
	w.SignalLoginComplete()
	waitForState(t, w, domain.StateAwaitingConfirmation)

	preview := w.Snapshot()
	if got := preview.Results[1].Status; got != domain.LineStatusAddFailed {
		t.Errorf("failing entry Status = %s, want add_failed", got)
	}
	if preview.Results[1].Error == "" {
		t.Error("failing entry has no recorded error")
	}
	for _, i := range []int{0, 2} {
		if got := preview.Results[i].Status; got != domain.LineStatusMatched {
			t.Errorf("Results[%d].Status = %s, want matched", i, got)
		}
	}

	// Declining completes the run without touching the cart.
	if err := w.Confirm(false); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateCompleted {
		t.Errorf("State = %s, want completed after decline", final.State)
	}
	if gateway.addCount() != 0 {
		t.Errorf("add calls = %d, want 0 after decline", gateway.addCount())
	}
}

func TestWorkflowNoCandidatesIsNotFound(t *testing.T) {
	gateway := stockGateway("whole milk")
	// "saffron" searches fine but returns nothing.

	w := newTestWorkflow(gateway, listEntries("whole milk", "saffron"), WorkflowConfig{})

	go w.Run(context.Background())
	w.SignalLoginComplete()
	waitForState(t, w, domain.StateAwaitingConfirmation)

	if err := w.Confirm(true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitDone(t, w)

	final := w.Snapshot()
	if got := final.Results[0].Status; got != domain.LineStatusAdded {
		t.Errorf("Results[0].Status = %s, want added", got)
	}
	if got := final.Results[1].Status; got != domain.LineStatusNotFound {
		t.Errorf("Results[1].Status = %s, want not_found", got)
	}
	if gateway.addCount() != 1 {
		t.Errorf("add calls = %d, want 1", gateway.addCount())
	}
}

func TestWorkflowAddFailureIsolation(t *testing.T) {
	gateway := stockGateway("whole milk", "eggs")
	gateway.addErr["p2"] = errors.New("add button vanished")

	w := newTestWorkflow(gateway, listEntries("whole milk", "eggs"), WorkflowConfig{})

	go w.Run(context.Background())
	w.SignalLoginComplete()
	waitForState(t, w, domain.StateAwaitingConfirmation)

	if err := w.Confirm(true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	waitDone(t, w)

	final := w.Snapshot()
	if final.State != domain.StateCompleted {
		t.Errorf("State = %s, want completed", final.State)
	}
	if got := final.Results[0].Status; got != domain.LineStatusAdded {
		t.Errorf("Results[0].Status = %s, want added", got)
	}
	if got := final.Results[1].Status; got != domain.LineStatusAddFailed {
		t.Errorf("Results[1].Status = %s, want add_failed", got)
	}
	if final.Results[1].Error == "" {
		t.Error("failed add has no recorded error")
	}
}

func TestWorkflowResultsKeepListOrder(t *testing.T) {
	names := []string{"apples", "bread", "cheddar", "dill", "eggs"}
	gateway := stockGateway(names...)
	w := newTestWorkflow(gateway, listEntries(names...), WorkflowConfig{SearchConcurrency: 4})

	go w.Run(context.Background())
	w.SignalLoginComplete()
	waitForState(t, w, domain.StateAwaitingConfirmation)

	preview := w.Snapshot()
	for i, name := range names {
		if preview.Results[i].Entry.Name != name {
			t.Errorf("Results[%d].Entry.Name = %q, want %q", i, preview.Results[i].Entry.Name, name)
		}
	}

	w.Abort()
	waitDone(t, w)
}

func TestWorkflowConfirmOutsideConfirmationState(t *testing.T) {
	gateway := stockGateway("whole milk")
	w := newTestWorkflow(gateway, listEntries("whole milk"), WorkflowConfig{})

	go w.Run(context.Background())
	waitForState(t, w, domain.StateAwaitingLogin)

	if err := w.Confirm(true); !errors.Is(err, domain.ErrWorkflowConflict) {
		t.Errorf("Confirm while awaiting login: error = %v, want ErrWorkflowConflict", err)
	}

	w.Abort()
	waitDone(t, w)

	if err := w.Confirm(true); !errors.Is(err, domain.ErrWorkflowConflict) {
		t.Errorf("Confirm after terminal state: error = %v, want ErrWorkflowConflict", err)
	}
}

func TestWorkflowLoginSignalIsIdempotent(t *testing.T) {
	gateway := stockGateway("whole milk")
	w := newTestWorkflow(gateway, listEntries("whole milk"), WorkflowConfig{})

	go w.Run(context.Background())

	w.SignalLoginComplete()
	w.SignalLoginComplete()

	waitForState(t, w, domain.StateAwaitingConfirmation)
	w.Abort()
	waitDone(t, w)
}
