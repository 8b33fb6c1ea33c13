// Package cost attaches rough per-entry price estimates to shopping lists.
// Estimates are heuristic by grocery category; they exist to give the
// preview an order-of-magnitude total, not to predict the register.
package cost

import (
	"strings"

	"github.com/thoughttotable/backend/internal/domain"
)

// categoryEstimates holds typical per-item costs in cents by category.
var categoryEstimates = map[string]int64{
	"produce": 250,
	"dairy":   350,
	"meat":    800,
	"seafood": 1100,
	"pantry":  300,
	"spices":  450,
	"frozen":  500,
	"bakery":  350,
}

// bulkUnits are units that usually mean buying more than one retail item.
var bulkUnits = map[string]bool{
	"lb": true, "lbs": true, "kg": true,
}

// HeuristicEstimator estimates entry costs from a fixed category table.
type HeuristicEstimator struct{}

// NewHeuristicEstimator creates an estimator.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

// Estimate returns a best-effort cost for an entry, or nil when the category
// is unknown. A nil estimate is excluded from totals rather than zeroed.
func (e *HeuristicEstimator) Estimate(entry domain.ShoppingListEntry) *domain.Money {
	base, ok := categoryEstimates[strings.ToLower(entry.Category)]
	if !ok {
		return nil
	}

	// Weight-based quantities usually span multiple retail units.
	if bulkUnits[strings.ToLower(entry.Unit)] {
		base *= 2
	}

	return &domain.Money{Cents: base, Currency: "USD"}
}
