package usecase

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/thoughttotable/backend/internal/domain"
)

// renderFractions are the glyphs a rendered value may snap to, in ascending
// order. A remainder within renderTolerance of one of these renders as the
// glyph; anything else falls back to a two-place decimal.
var renderFractions = []struct {
	value *big.Rat
	glyph string
}{
	{big.NewRat(1, 8), "⅛"},
	{big.NewRat(1, 4), "¼"},
	{big.NewRat(1, 3), "⅓"},
	{big.NewRat(3, 8), "⅜"},
	{big.NewRat(1, 2), "½"},
	{big.NewRat(5, 8), "⅝"},
	{big.NewRat(2, 3), "⅔"},
	{big.NewRat(3, 4), "¾"},
	{big.NewRat(7, 8), "⅞"},
}

var renderTolerance = big.NewRat(1, 16)

// unitPlurals maps canonical units to their plural display form. Units
// absent here display unchanged (oz, g, tbsp and friends don't pluralize).
var unitPlurals = map[string]string{
	"cup": "cups", "lb": "lbs", "quart": "quarts", "pint": "pints",
	"gallon": "gallons", "clove": "cloves", "head": "heads",
	"bunch": "bunches", "can": "cans", "jar": "jars",
	"package": "packages", "bag": "bags", "box": "boxes",
	"stalk": "stalks", "sprig": "sprigs", "slice": "slices",
	"piece": "pieces", "pinch": "pinches", "dash": "dashes",
	"small": "small", "medium": "medium", "large": "large", "whole": "whole",
}

// Scaler multiplies parsed quantities by a serving ratio using exact
// rational arithmetic, so repeated scalings never accumulate float drift.
type Scaler struct{}

// NewScaler creates a scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Scale multiplies q by ratio (target servings / original servings) and
// renders the result. ratio must be positive.
//
// A quantity that was defaulted during parsing still scales numerically;
// fractional counts of non-measurable items are reported as degraded rather
// than corrected silently.
func (s *Scaler) Scale(name string, q domain.ParsedQuantity, ratio *big.Rat) (domain.ScaledIngredient, error) {
	if ratio == nil || ratio.Sign() <= 0 {
		return domain.ScaledIngredient{}, fmt.Errorf("%w: scale ratio must be positive", domain.ErrInvalidRequest)
	}

	scaled := new(big.Rat).Mul(q.Value.Rat(), ratio)

	return domain.ScaledIngredient{
		Name: name,
		Quantity: domain.ParsedQuantity{
			Value:          domain.NewRational(scaled),
			Unit:           q.Unit,
			UnitConfidence: q.UnitConfidence,
			Defaulted:      q.Defaulted,
		},
		DisplayQuantity: RenderQuantity(scaled),
	}, nil
}

// RenderQuantity renders an exact value as a whole number plus the nearest
// common fraction glyph when the remainder is within 1/16 of one, otherwise
// as a decimal rounded to two places.
func RenderQuantity(v *big.Rat) string {
	whole := new(big.Int).Quo(v.Num(), v.Denom())
	frac := new(big.Rat).Sub(v, new(big.Rat).SetInt(whole))

	if frac.Sign() == 0 {
		return whole.String()
	}

	// Remainder within tolerance of a whole step rounds up.
	if distance(frac, big.NewRat(1, 1)).Cmp(renderTolerance) < 0 {
		return new(big.Int).Add(whole, big.NewInt(1)).String()
	}
	if distance(frac, new(big.Rat)).Cmp(renderTolerance) < 0 {
		return whole.String()
	}

	if glyph, ok := nearestFraction(frac); ok {
		if whole.Sign() > 0 {
			return whole.String() + " " + glyph
		}
		return glyph
	}

	f, _ := v.Float64()
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// DisplayUnit returns the unit as it should read next to a rendered value,
// pluralized when the value exceeds one.
func DisplayUnit(unit string, v *big.Rat) string {
	if unit == "" {
		return ""
	}
	if v != nil && v.Cmp(big.NewRat(1, 1)) > 0 {
		if plural, ok := unitPlurals[unit]; ok {
			return plural
		}
	}
	return unit
}

// FormatAmount joins a rendered quantity and its display unit.
func FormatAmount(display, unit string, v *big.Rat) string {
	u := DisplayUnit(unit, v)
	if u == "" {
		return display
	}
	return strings.TrimSpace(display + " " + u)
}

func nearestFraction(frac *big.Rat) (string, bool) {
	best := ""
	var bestDist *big.Rat
	for _, candidate := range renderFractions {
		d := distance(frac, candidate.value)
		if d.Cmp(renderTolerance) >= 0 {
			continue
		}
		if bestDist == nil || d.Cmp(bestDist) < 0 {
			best = candidate.glyph
			bestDist = d
		}
	}
	return best, bestDist != nil
}

func distance(a, b *big.Rat) *big.Rat {
	d := new(big.Rat).Sub(a, b)
	return d.Abs(d)
}
