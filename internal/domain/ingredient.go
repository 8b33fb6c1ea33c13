package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// UnitConfidence describes how a quantity's unit was determined
type UnitConfidence string

const (
	// ConfidenceExact means the unit token matched the recognized vocabulary
	ConfidenceExact UnitConfidence = "exact"
	// ConfidenceInferred means the unit was derived from a size descriptor
	// ("large", "medium") rather than a real measure
	ConfidenceInferred UnitConfidence = "inferred"
	// ConfidenceNone means no unit was found; the value counts whole items
	ConfidenceNone UnitConfidence = "none"
)

// RawIngredient is one ingredient line as returned by the extraction service.
// Immutable once created.
type RawIngredient struct {
	QuantityText string `json:"quantityText"`
	Name         string `json:"name"`
	Notes        string `json:"notes,omitempty"`
	Category     string `json:"category,omitempty"` // produce, dairy, meat, seafood, pantry, spices, frozen, bakery
}

// Rational is an exact fraction carried through scaling so repeated
// re-renders never drift. JSON form is the num/den pair, not a float.
type Rational struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// NewRational builds a Rational from a big.Rat.
func NewRational(r *big.Rat) Rational {
	return Rational{Num: r.Num().Int64(), Den: r.Denom().Int64()}
}

// RationalFromInts builds a normalized Rational from a numerator and denominator.
func RationalFromInts(num, den int64) Rational {
	return NewRational(big.NewRat(num, den))
}

// Rat converts back to a big.Rat for arithmetic.
func (r Rational) Rat() *big.Rat {
	if r.Den == 0 {
		return big.NewRat(0, 1)
	}
	return big.NewRat(r.Num, r.Den)
}

// Float64 returns an approximate float value for display math.
func (r Rational) Float64() float64 {
	f, _ := r.Rat().Float64()
	return f
}

func (r Rational) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParsedQuantity is the structured amount extracted from a free-text
// quantity. Value is always present: lines with no parseable leading number
// default to 1 with ConfidenceNone ("one unit of the described thing") and
// are tagged Defaulted so callers can tell degraded parses from real ones.
type ParsedQuantity struct {
	Value          Rational       `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	UnitConfidence UnitConfidence `json:"unitConfidence"`
	Defaulted      bool           `json:"defaulted,omitempty"`
}

// ScaledIngredient is a ParsedQuantity after multiplication by the serving
// ratio, plus its human-readable rendering. Immutable once created.
type ScaledIngredient struct {
	Name            string         `json:"name"`
	Quantity        ParsedQuantity `json:"quantity"`
	DisplayQuantity string         `json:"displayQuantity"`
}

// Money is an exact cost in minor currency units.
type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

func (m Money) String() string {
	if m.Currency == "" || m.Currency == "USD" {
		return fmt.Sprintf("$%d.%02d", m.Cents/100, m.Cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}

// Add returns the sum of two amounts. Currencies are assumed to match.
func (m Money) Add(other Money) Money {
	currency := m.Currency
	if currency == "" {
		currency = other.Currency
	}
	return Money{Cents: m.Cents + other.Cents, Currency: currency}
}

// ShoppingListEntry is one line of the final shopping list, post-merge.
// Uniqueness key is the lower-cased, whitespace-normalized ingredient name.
type ShoppingListEntry struct {
	Name            string `json:"name"`
	DisplayQuantity string `json:"displayQuantity"`
	Unit            string `json:"unit,omitempty"`
	EstimatedCost   *Money `json:"estimatedCost,omitempty"`
	SearchQuery     string `json:"searchQuery"`
	Category        string `json:"category,omitempty"`
	Degraded        bool   `json:"degraded,omitempty"` // at least one source line defaulted during parsing
}

// NormalizedName returns the merge key for an ingredient name.
func NormalizedName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ShoppingList is the finalized, deduplicated output of the list builder.
// Entry order follows first occurrence in the recipe.
type ShoppingList struct {
	Title            string              `json:"title,omitempty"`
	OriginalServings int                 `json:"originalServings"`
	TargetServings   int                 `json:"targetServings"`
	Entries          []ShoppingListEntry `json:"entries"`
	EstimatedTotal   *Money              `json:"estimatedTotal,omitempty"` // sum of present estimates only
}

// ExtractedRecipe is what the extraction service returns for a recipe URL.
type ExtractedRecipe struct {
	Title            string          `json:"title"`
	OriginalServings int             `json:"originalServings"`
	Ingredients      []RawIngredient `json:"ingredients"`
}
