package usecase

import (
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/thoughttotable/backend/internal/domain"
)

// BuilderConfig holds configuration for the shopping list builder
type BuilderConfig struct {
	EnableDebugLogging bool
}

// ShoppingListBuilder converts extracted ingredients into a scaled,
// deduplicated shopping list. Entries keep the insertion order of their
// first occurrence so the list tracks the recipe's instruction order.
type ShoppingListBuilder struct {
	parser       *QuantityParser
	scaler       *Scaler
	preprocessor *QueryPreprocessor
	costs        domain.CostEstimator
	debug        bool
}

// NewShoppingListBuilder creates a builder. costs may be nil, in which case
// no estimates are attached.
func NewShoppingListBuilder(costs domain.CostEstimator, config BuilderConfig) *ShoppingListBuilder {
	return &ShoppingListBuilder{
		parser:       NewQuantityParser(),
		scaler:       NewScaler(),
		preprocessor: NewQueryPreprocessor(config.EnableDebugLogging),
		costs:        costs,
		debug:        config.EnableDebugLogging,
	}
}

// listAccumulator collects quantities merged under one normalized name.
type listAccumulator struct {
	name       string
	category   string
	unit       string
	confidence domain.UnitConfidence
	value      *big.Rat // exact running sum; nil once the entry went compound
	parts      []string // compound display parts for incompatible units
	degraded   bool
}

// Build parses, scales, and merges raw ingredients into a shopping list.
// Both serving counts must be positive.
func (b *ShoppingListBuilder) Build(title string, raws []domain.RawIngredient, targetServings, originalServings int) (*domain.ShoppingList, error) {
	if targetServings <= 0 || originalServings <= 0 {
		return nil, fmt.Errorf("%w: servings must be positive", domain.ErrInvalidRequest)
	}
	ratio := big.NewRat(int64(targetServings), int64(originalServings))

	entries := make(map[string]*listAccumulator)
	var order []string

	for _, raw := range raws {
		quantity, name := b.parseRaw(raw)

		scaled, err := b.scaler.Scale(name, quantity, ratio)
		if err != nil {
			return nil, err
		}

		key := domain.NormalizedName(name)
		if key == "" {
			continue
		}

		acc, exists := entries[key]
		if !exists {
			entries[key] = &listAccumulator{
				name:       name,
				category:   raw.Category,
				unit:       scaled.Quantity.Unit,
				confidence: scaled.Quantity.UnitConfidence,
				value:      scaled.Quantity.Value.Rat(),
				degraded:   scaled.Quantity.Defaulted,
			}
			order = append(order, key)
			continue
		}

		acc.degraded = acc.degraded || scaled.Quantity.Defaulted
		b.merge(acc, scaled)
	}

	list := &domain.ShoppingList{
		Title:            title,
		OriginalServings: originalServings,
		TargetServings:   targetServings,
		Entries:          make([]domain.ShoppingListEntry, 0, len(order)),
	}

	var total *domain.Money
	for _, key := range order {
		entry := b.finalize(entries[key])
		if b.costs != nil {
			entry.EstimatedCost = b.costs.Estimate(entry)
		}
		// Absent estimates are excluded from the total, not zeroed.
		if entry.EstimatedCost != nil {
			if total == nil {
				total = &domain.Money{Currency: entry.EstimatedCost.Currency}
			}
			sum := total.Add(*entry.EstimatedCost)
			total = &sum
		}
		list.Entries = append(list.Entries, entry)
	}
	list.EstimatedTotal = total

	return list, nil
}

// parseRaw extracts the quantity and name from one raw ingredient. The
// extraction service usually separates them already; when it doesn't, the
// whole line is parsed and the remainder becomes the name.
func (b *ShoppingListBuilder) parseRaw(raw domain.RawIngredient) (domain.ParsedQuantity, string) {
	if raw.QuantityText == "" && raw.Name != "" {
		return b.parser.ParseLine(raw.Name)
	}

	quantity, remainder := b.parser.ParseLine(raw.QuantityText)
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = remainder
	}
	return quantity, name
}

// merge folds a newly scaled ingredient into an existing accumulator.
// Matching units sum exactly; mismatched units become a compound description
// rather than silently dropping either amount.
func (b *ShoppingListBuilder) merge(acc *listAccumulator, scaled domain.ScaledIngredient) {
	newValue := scaled.Quantity.Value.Rat()

	if len(acc.parts) == 0 && acc.unit == scaled.Quantity.Unit {
		acc.value = new(big.Rat).Add(acc.value, newValue)
		if acc.confidence == domain.ConfidenceNone {
			acc.confidence = scaled.Quantity.UnitConfidence
		}
		return
	}

	if len(acc.parts) == 0 {
		acc.parts = []string{compoundPart(RenderQuantity(acc.value), acc.unit, acc.value)}
		acc.value = nil
		acc.unit = ""
	}
	acc.parts = append(acc.parts, compoundPart(scaled.DisplayQuantity, scaled.Quantity.Unit, newValue))

	if b.debug {
		log.Printf("[LIST] Incompatible units for %q, keeping compound quantity: %s",
			acc.name, strings.Join(acc.parts, " + "))
	}
}

// finalize renders an accumulator as a shopping list entry.
func (b *ShoppingListBuilder) finalize(acc *listAccumulator) domain.ShoppingListEntry {
	entry := domain.ShoppingListEntry{
		Name:        acc.name,
		Category:    acc.category,
		Degraded:    acc.degraded,
		SearchQuery: b.preprocessor.BuildSearchQuery(acc.name, acc.category),
	}

	if len(acc.parts) > 0 {
		entry.DisplayQuantity = strings.Join(acc.parts, " + ")
		return entry
	}

	entry.DisplayQuantity = RenderQuantity(acc.value)
	entry.Unit = DisplayUnit(acc.unit, acc.value)
	return entry
}

// compoundPart renders one leg of a compound quantity. Unitless amounts read
// as item counts so "2 cups + 1 item" stays unambiguous.
func compoundPart(display, unit string, v *big.Rat) string {
	if unit == "" {
		if v != nil && v.Cmp(big.NewRat(1, 1)) > 0 {
			return display + " items"
		}
		return display + " item"
	}
	return FormatAmount(display, unit, v)
}
