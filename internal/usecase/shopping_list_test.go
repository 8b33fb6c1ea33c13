package usecase

import (
	"errors"
	"testing"

	"github.com/thoughttotable/backend/internal/domain"
)

// stubEstimator prices everything in a fixed category table; unknown
// categories get no estimate, mirroring the production heuristic.
type stubEstimator struct {
	prices map[string]int64
}

func (s *stubEstimator) Estimate(entry domain.ShoppingListEntry) *domain.Money {
	cents, ok := s.prices[entry.Category]
	if !ok {
		return nil
	}
	return &domain.Money{Cents: cents, Currency: "USD"}
}

func TestBuild(t *testing.T) {
	builder := NewShoppingListBuilder(nil, BuilderConfig{})

	t.Run("rejects non-positive servings", func(t *testing.T) {
		raws := []domain.RawIngredient{{QuantityText: "1 cup", Name: "rice"}}

		if _, err := builder.Build("", raws, 0, 4); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
		if _, err := builder.Build("", raws, 4, 0); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("scales quantities by the serving ratio", func(t *testing.T) {
		raws := []domain.RawIngredient{{QuantityText: "1 cup", Name: "jasmine rice"}}

		list, err := builder.Build("Fried Rice", raws, 8, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(list.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(list.Entries))
		}
		entry := list.Entries[0]
		if entry.DisplayQuantity != "2" {
			t.Errorf("DisplayQuantity = %q, want 2", entry.DisplayQuantity)
		}
		if entry.Unit != "cups" {
			t.Errorf("Unit = %q, want cups", entry.Unit)
		}
		if list.TargetServings != 8 || list.OriginalServings != 4 {
			t.Errorf("servings = %d/%d, want 8/4", list.TargetServings, list.OriginalServings)
		}
	})

	t.Run("merges identical units by exact sum", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "2 cups", Name: "heavy cream"},
			{QuantityText: "⅝ cup", Name: "heavy cream"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(list.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(list.Entries))
		}
		entry := list.Entries[0]
		if entry.DisplayQuantity != "2 ⅝" {
			t.Errorf("DisplayQuantity = %q, want %q", entry.DisplayQuantity, "2 ⅝")
		}
		if entry.Unit != "cups" {
			t.Errorf("Unit = %q, want cups", entry.Unit)
		}
	})

	t.Run("merge key is case and whitespace insensitive", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "1 cup", Name: "Heavy  Cream"},
			{QuantityText: "1 cup", Name: "heavy cream"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(list.Entries))
		}
		// First occurrence's spelling wins.
		if list.Entries[0].Name != "Heavy  Cream" {
			t.Errorf("Name = %q, want first occurrence's form", list.Entries[0].Name)
		}
		if list.Entries[0].DisplayQuantity != "2" {
			t.Errorf("DisplayQuantity = %q, want 2", list.Entries[0].DisplayQuantity)
		}
	})

	t.Run("mismatched units become a compound quantity", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "2 cups", Name: "spinach"},
			{QuantityText: "1", Name: "spinach"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(list.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(list.Entries))
		}
		entry := list.Entries[0]
		if entry.DisplayQuantity != "2 cups + 1 item" {
			t.Errorf("DisplayQuantity = %q, want %q", entry.DisplayQuantity, "2 cups + 1 item")
		}
		if entry.Unit != "" {
			t.Errorf("Unit = %q, want empty for compound quantity", entry.Unit)
		}
	})

	t.Run("preserves insertion order of first occurrence", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "1 lb", Name: "chicken thighs"},
			{QuantityText: "2 cups", Name: "rice"},
			{QuantityText: "1 lb", Name: "chicken thighs"},
			{QuantityText: "3", Name: "scallions"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantOrder := []string{"chicken thighs", "rice", "scallions"}
		if len(list.Entries) != len(wantOrder) {
			t.Fatalf("len(Entries) = %d, want %d", len(list.Entries), len(wantOrder))
		}
		for i, want := range wantOrder {
			if list.Entries[i].Name != want {
				t.Errorf("Entries[%d].Name = %q, want %q", i, list.Entries[i].Name, want)
			}
		}
	})

	t.Run("unparsable line degrades instead of failing", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{Name: "fresh dill, for garnish"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(list.Entries))
		}
		entry := list.Entries[0]
		if !entry.Degraded {
			t.Error("Degraded = false, want true for defaulted parse")
		}
		if entry.Name != "fresh dill" {
			t.Errorf("Name = %q, want %q", entry.Name, "fresh dill")
		}
	})

	t.Run("builds retailer search queries per entry", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "2 lbs", Name: "russet potatoes", Category: "produce"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := list.Entries[0].SearchQuery; got != "fresh russet potatoes" {
			t.Errorf("SearchQuery = %q, want %q", got, "fresh russet potatoes")
		}
	})
}

func TestBuildCostEstimates(t *testing.T) {
	estimator := &stubEstimator{prices: map[string]int64{
		"produce": 250,
		"dairy":   350,
	}}
	builder := NewShoppingListBuilder(estimator, BuilderConfig{})

	t.Run("absent estimates are excluded from the total, not zeroed", func(t *testing.T) {
		raws := []domain.RawIngredient{
			{QuantityText: "2", Name: "avocados", Category: "produce"},
			{QuantityText: "1 cup", Name: "heavy cream", Category: "dairy"},
			{QuantityText: "1", Name: "mystery ingredient"},
		}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if list.Entries[0].EstimatedCost == nil || list.Entries[0].EstimatedCost.Cents != 250 {
			t.Errorf("produce cost = %v, want 250 cents", list.Entries[0].EstimatedCost)
		}
		if list.Entries[2].EstimatedCost != nil {
			t.Errorf("unknown category cost = %v, want nil", list.Entries[2].EstimatedCost)
		}
		if list.EstimatedTotal == nil || list.EstimatedTotal.Cents != 600 {
			t.Errorf("EstimatedTotal = %v, want 600 cents", list.EstimatedTotal)
		}
	})

	t.Run("no estimates at all leaves the total absent", func(t *testing.T) {
		raws := []domain.RawIngredient{{QuantityText: "1", Name: "mystery ingredient"}}

		list, err := builder.Build("", raws, 4, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if list.EstimatedTotal != nil {
			t.Errorf("EstimatedTotal = %v, want nil", list.EstimatedTotal)
		}
	})
}
