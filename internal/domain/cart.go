package domain

// MatchCandidate is a single retailer search result considered for an entry.
// Ephemeral: produced per search, never persisted beyond the session.
type MatchCandidate struct {
	ProductID  string  `json:"productId"`
	Title      string  `json:"title"`
	Price      *Money  `json:"price,omitempty"`
	URL        string  `json:"url"`
	MatchScore float64 `json:"matchScore"` // 0..1
}

// LineStatus is the lifecycle status of one cart line.
type LineStatus string

const (
	LineStatusPending  LineStatus = "pending"
	LineStatusMatched  LineStatus = "matched"
	LineStatusNotFound LineStatus = "not_found"
	LineStatusAddFailed LineStatus = "add_failed"
	LineStatusAdded    LineStatus = "added"
)

// CartLineResult tracks one shopping-list entry through the cart workflow.
// Created pending at search time; reaches exactly one terminal status per run.
type CartLineResult struct {
	Entry  ShoppingListEntry `json:"entry"`
	Status LineStatus        `json:"status"`
	Chosen *MatchCandidate   `json:"chosenCandidate,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// WorkflowState names the stages of a cart run.
type WorkflowState string

const (
	StateIdle                 WorkflowState = "idle"
	StateAwaitingLogin        WorkflowState = "awaiting_login"
	StateSearching            WorkflowState = "searching"
	StatePreviewReady         WorkflowState = "preview_ready"
	StateAwaitingConfirmation WorkflowState = "awaiting_confirmation"
	StateAdding               WorkflowState = "adding"
	StateCompleted            WorkflowState = "completed"
	StateFailed               WorkflowState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// WorkflowSnapshot is a consistent view of a run for external observers.
// Results are always in original list order and never torn mid-transition.
type WorkflowSnapshot struct {
	RunID         string           `json:"runId"`
	State         WorkflowState    `json:"state"`
	FailureReason string           `json:"failureReason,omitempty"`
	Results       []CartLineResult `json:"results"`
}
