package domain

import (
	"context"
	"time"
)

// ExtractionClient defines the interface for the recipe extraction service.
// Extraction failure is fatal for the recipe (no partial extraction).
type ExtractionClient interface {
	Extract(ctx context.Context, recipeURL string) (*ExtractedRecipe, error)
}

// RetailerGateway defines the black-box retailer automation capability:
// possibly slow, possibly failing I/O. Close must be safe to call on every
// exit path, including abort.
type RetailerGateway interface {
	Search(ctx context.Context, query string) ([]MatchCandidate, error)
	AddToCart(ctx context.Context, candidate MatchCandidate) error
	AwaitLogin(ctx context.Context) error
	Close() error
}

// RetailerGatewayFactory produces a fresh gateway per cart run so session
// resources have run-scoped lifetimes.
type RetailerGatewayFactory func() (RetailerGateway, error)

// CostEstimator provides best-effort per-entry cost estimates.
// A nil result means no estimate is available; that is not an error.
type CostEstimator interface {
	Estimate(entry ShoppingListEntry) *Money
}

// SearchCache defines the interface for caching retailer search results
// within a session.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]MatchCandidate, error)
	Set(ctx context.Context, key string, candidates []MatchCandidate, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
