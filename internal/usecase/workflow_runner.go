package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/thoughttotable/backend/internal/domain"
)

// RunnerConfig bundles the per-run configuration.
type RunnerConfig struct {
	Workflow WorkflowConfig
	Matcher  MatcherConfig
}

// WorkflowRunner starts and tracks cart runs. Only one run may be active at
// a time; runs never share a retailer session or mutable state.
type WorkflowRunner struct {
	factory domain.RetailerGatewayFactory
	cache   domain.SearchCache
	config  RunnerConfig

	mu     sync.Mutex
	runs   map[string]*CartWorkflow
	active string
}

// NewWorkflowRunner creates a runner. cache may be nil.
func NewWorkflowRunner(factory domain.RetailerGatewayFactory, cache domain.SearchCache, config RunnerConfig) *WorkflowRunner {
	return &WorkflowRunner{
		factory: factory,
		cache:   cache,
		config:  config,
		runs:    make(map[string]*CartWorkflow),
	}
}

// Start launches a new cart run over the given entries and returns it. The
// run executes in the background; callers observe it via Snapshot and drive
// it via the signal methods.
func (r *WorkflowRunner) Start(entries []domain.ShoppingListEntry) (*CartWorkflow, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: shopping list is empty", domain.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != "" {
		if current, ok := r.runs[r.active]; ok && !current.State().Terminal() {
			return nil, domain.ErrWorkflowConflict
		}
	}

	gateway, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
	}

	matcher := NewCartMatcher(gateway, r.cache, r.config.Matcher)
	workflow := NewCartWorkflow(uuid.NewString(), entries, matcher, gateway, r.config.Workflow)

	r.runs[workflow.ID()] = workflow
	r.active = workflow.ID()

	go func() {
		if _, err := workflow.Run(context.Background()); err != nil {
			log.Printf("[WORKFLOW] run %s ended with error: %v", workflow.ID(), err)
		}
	}()

	return workflow, nil
}

// Get returns a run by id.
func (r *WorkflowRunner) Get(id string) (*CartWorkflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return workflow, nil
}
