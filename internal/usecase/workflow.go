package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thoughttotable/backend/internal/domain"
)

// WorkflowConfig holds configuration for one cart run.
type WorkflowConfig struct {
	// LoginTimeout bounds the AwaitingLogin suspension; zero waits forever.
	LoginTimeout time.Duration
	// SearchConcurrency caps parallel retailer searches. Keeping this low
	// avoids hammering the retailer and tripping anti-automation defenses.
	SearchConcurrency int
	// AddConcurrency caps parallel add-to-cart calls.
	AddConcurrency     int
	EnableDebugLogging bool
}

// CartWorkflow drives one cart session through its states:
//
//	Idle -> AwaitingLogin -> Searching -> PreviewReady ->
//	AwaitingConfirmation -> Adding -> Completed
//
// Failed is reachable from every state. The human-facing signals (login
// done, whole-cart confirmation, abort) arrive over channels so cancellation
// behaves the same at every suspension point. The workflow owns its
// CartLineResult set exclusively for the duration of the run; external
// observers only ever see consistent snapshots in original list order.
type CartWorkflow struct {
	id      string
	matcher *CartMatcher
	gateway domain.RetailerGateway
	config  WorkflowConfig

	mu            sync.Mutex
	state         domain.WorkflowState
	failureReason string
	results       []domain.CartLineResult

	loginCh   chan struct{}
	loginOnce sync.Once
	confirmCh chan bool
	abortCh   chan struct{}
	abortOnce sync.Once
	done      chan struct{}
}

// NewCartWorkflow creates a run over the given entries. The gateway is owned
// by the workflow from this point on and is closed on every exit path.
func NewCartWorkflow(id string, entries []domain.ShoppingListEntry, matcher *CartMatcher, gateway domain.RetailerGateway, config WorkflowConfig) *CartWorkflow {
	if config.SearchConcurrency <= 0 {
		config.SearchConcurrency = 3
	}
	if config.AddConcurrency <= 0 {
		config.AddConcurrency = 1
	}

	results := make([]domain.CartLineResult, len(entries))
	for i, entry := range entries {
		results[i] = domain.CartLineResult{Entry: entry, Status: domain.LineStatusPending}
	}

	return &CartWorkflow{
		id:        id,
		matcher:   matcher,
		gateway:   gateway,
		config:    config,
		state:     domain.StateIdle,
		results:   results,
		loginCh:   make(chan struct{}),
		confirmCh: make(chan bool, 1),
		abortCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the run identifier.
func (w *CartWorkflow) ID() string { return w.id }

// State returns the current workflow state.
func (w *CartWorkflow) State() domain.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done is closed when the run reaches a terminal state.
func (w *CartWorkflow) Done() <-chan struct{} { return w.done }

// Snapshot returns a consistent copy of the run for external observers.
func (w *CartWorkflow) Snapshot() domain.WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	results := make([]domain.CartLineResult, len(w.results))
	copy(results, w.results)

	return domain.WorkflowSnapshot{
		RunID:         w.id,
		State:         w.state,
		FailureReason: w.failureReason,
		Results:       results,
	}
}

// SignalLoginComplete tells a run suspended in AwaitingLogin that the human
// finished authenticating. Safe to call more than once.
func (w *CartWorkflow) SignalLoginComplete() {
	w.loginOnce.Do(func() { close(w.loginCh) })
}

// Confirm delivers the whole-cart decision. Valid only while the run is
// suspended in AwaitingConfirmation.
func (w *CartWorkflow) Confirm(approved bool) error {
	if state := w.State(); state != domain.StateAwaitingConfirmation {
		return fmt.Errorf("%w: run is %s, not awaiting confirmation", domain.ErrWorkflowConflict, state)
	}
	select {
	case w.confirmCh <- approved:
		return nil
	default:
		return fmt.Errorf("%w: confirmation already delivered", domain.ErrWorkflowConflict)
	}
}

// Abort cancels the run from any state. A run suspended in a wait state
// transitions to Failed without issuing further retailer calls. Safe to call
// more than once.
func (w *CartWorkflow) Abort() {
	w.abortOnce.Do(func() { close(w.abortCh) })
}

// Run executes the workflow to completion or failure and returns the final
// result set. The retailer session is released on every exit path.
func (w *CartWorkflow) Run(ctx context.Context) ([]domain.CartLineResult, error) {
	defer close(w.done)
	defer func() {
		if err := w.gateway.Close(); err != nil {
			log.Printf("[WORKFLOW] %s: closing retailer session: %v", w.id, err)
		}
	}()

	if err := w.awaitLogin(ctx); err != nil {
		return w.fail(err)
	}

	if err := w.searchAll(ctx); err != nil {
		return w.fail(err)
	}

	w.setState(domain.StatePreviewReady)
	// The preview is exposed through Snapshot; handing control to the human
	// is synchronous.
	w.setState(domain.StateAwaitingConfirmation)

	approved, err := w.awaitConfirmation(ctx)
	if err != nil {
		return w.fail(err)
	}

	if approved {
		if err := w.addAll(ctx); err != nil {
			return w.fail(err)
		}
	} else if w.config.EnableDebugLogging {
		log.Printf("[WORKFLOW] %s: cart declined, completing without adds", w.id)
	}

	w.setState(domain.StateCompleted)
	return w.resultsCopy(), nil
}

// awaitLogin suspends until the human signals login, the gateway detects it,
// the optional timeout elapses, or the run is aborted.
func (w *CartWorkflow) awaitLogin(ctx context.Context) error {
	w.setState(domain.StateAwaitingLogin)

	loginCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gatewayDone := make(chan error, 1)
	go func() { gatewayDone <- w.gateway.AwaitLogin(loginCtx) }()

	var timeout <-chan time.Time
	if w.config.LoginTimeout > 0 {
		timer := time.NewTimer(w.config.LoginTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-w.loginCh:
		return nil
	case err := <-gatewayDone:
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
		}
		return nil
	case <-timeout:
		return domain.ErrLoginTimeout
	case <-w.abortCh:
		return domain.ErrWorkflowAborted
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrWorkflowAborted, ctx.Err())
	}
}

// searchAll matches every entry against the retailer, bounded by the search
// concurrency cap. One entry's failure never aborts the batch; results are
// committed in original list order in a single step so observers never see a
// torn set.
func (w *CartWorkflow) searchAll(ctx context.Context) error {
	w.setState(domain.StateSearching)

	entries := w.resultsCopy()
	staging := make([]domain.CartLineResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.SearchConcurrency)

	for i := range entries {
		i := i
		g.Go(func() error {
			if err := w.checkAborted(gctx); err != nil {
				return err
			}

			result := domain.CartLineResult{Entry: entries[i].Entry}

			candidates, err := w.matcher.Match(gctx, entries[i].Entry)
			switch {
			case err != nil:
				// Per-entry isolation: record and keep going.
				result.Status = domain.LineStatusAddFailed
				result.Error = err.Error()
			default:
				if chosen, ok := w.matcher.Select(entries[i].Entry, candidates); ok {
					result.Status = domain.LineStatusMatched
					result.Chosen = chosen
				} else {
					result.Status = domain.LineStatusNotFound
				}
			}

			staging[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	w.commitResults(staging)
	return nil
}

// awaitConfirmation suspends for the whole-cart yes/no decision.
func (w *CartWorkflow) awaitConfirmation(ctx context.Context) (bool, error) {
	select {
	case approved := <-w.confirmCh:
		return approved, nil
	case <-w.abortCh:
		return false, domain.ErrWorkflowAborted
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", domain.ErrWorkflowAborted, ctx.Err())
	}
}

// addAll adds every matched entry to the cart, bounded by the add
// concurrency cap. Add failures are recorded per entry and do not abort the
// remaining adds.
func (w *CartWorkflow) addAll(ctx context.Context) error {
	w.setState(domain.StateAdding)

	staging := w.resultsCopy()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.AddConcurrency)

	for i := range staging {
		i := i
		if staging[i].Status != domain.LineStatusMatched {
			continue
		}
		g.Go(func() error {
			if err := w.checkAborted(gctx); err != nil {
				return err
			}

			if err := w.gateway.AddToCart(gctx, *staging[i].Chosen); err != nil {
				staging[i].Status = domain.LineStatusAddFailed
				staging[i].Error = fmt.Errorf("%w: %v", domain.ErrAddFailed, err).Error()
				return nil
			}

			staging[i].Status = domain.LineStatusAdded
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	w.commitResults(staging)
	return nil
}

func (w *CartWorkflow) checkAborted(ctx context.Context) error {
	select {
	case <-w.abortCh:
		return domain.ErrWorkflowAborted
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrWorkflowAborted, ctx.Err())
	default:
		return nil
	}
}

func (w *CartWorkflow) setState(state domain.WorkflowState) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()

	if w.config.EnableDebugLogging {
		log.Printf("[WORKFLOW] %s: -> %s", w.id, state)
	}
}

// fail transitions to Failed with a stable reason and returns the results as
// they stood.
func (w *CartWorkflow) fail(err error) ([]domain.CartLineResult, error) {
	reason := "failed"
	switch {
	case errors.Is(err, domain.ErrLoginTimeout):
		reason = "login_timeout"
	case errors.Is(err, domain.ErrWorkflowAborted):
		reason = "aborted"
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		reason = "capability_unavailable"
	}

	w.mu.Lock()
	w.state = domain.StateFailed
	w.failureReason = reason
	w.mu.Unlock()

	log.Printf("[WORKFLOW] %s: failed (%s): %v", w.id, reason, err)
	return w.resultsCopy(), err
}

func (w *CartWorkflow) commitResults(results []domain.CartLineResult) {
	w.mu.Lock()
	w.results = results
	w.mu.Unlock()
}

func (w *CartWorkflow) resultsCopy() []domain.CartLineResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	results := make([]domain.CartLineResult, len(w.results))
	copy(results, w.results)
	return results
}
