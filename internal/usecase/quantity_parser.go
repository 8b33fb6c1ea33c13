package usecase

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/thoughttotable/backend/internal/domain"
)

// vulgarFractions maps unicode fraction runes to their ASCII a/b form.
// Normalized before any other processing so the grammar only sees one shape.
var vulgarFractions = map[rune]string{
	'¼': "1/4", '½': "1/2", '¾': "3/4",
	'⅓': "1/3", '⅔': "2/3",
	'⅕': "1/5", '⅖': "2/5", '⅗': "3/5", '⅘': "4/5",
	'⅙': "1/6", '⅚': "5/6",
	'⅛': "1/8", '⅜': "3/8", '⅝': "5/8", '⅞': "7/8",
}

// canonicalUnits maps recognized unit tokens (singular, plural, abbreviated)
// to a canonical unit name. Tokens outside this vocabulary are kept as
// descriptive text, never treated as a unit.
var canonicalUnits = map[string]string{
	"cup": "cup", "cups": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbsps": "tbsp", "tbs": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp", "tsps": "tsp",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"gram": "g", "grams": "g", "g": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "ml": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "l": "l",
	"quart": "quart", "quarts": "quart", "qt": "quart",
	"pint": "pint", "pints": "pint", "pt": "pint",
	"gallon": "gallon", "gallons": "gallon", "gal": "gallon",
	"clove": "clove", "cloves": "clove",
	"head": "head", "heads": "head",
	"bunch": "bunch", "bunches": "bunch",
	"can": "can", "cans": "can",
	"jar": "jar", "jars": "jar",
	"package": "package", "packages": "package", "pkg": "package",
	"bag": "bag", "bags": "bag",
	"box": "box", "boxes": "box",
	"stalk": "stalk", "stalks": "stalk",
	"sprig": "sprig", "sprigs": "sprig",
	"slice": "slice", "slices": "slice",
	"piece": "piece", "pieces": "piece",
	"pinch": "pinch", "pinches": "pinch",
	"dash": "dash", "dashes": "dash",
}

// sizeDescriptors are count-style qualifiers ("2 large eggs"). They behave
// like a unit but carry less information, so they are tagged inferred.
var sizeDescriptors = map[string]bool{
	"small": true, "medium": true, "large": true, "whole": true,
}

// QuantityParser turns a free-text ingredient quantity into a structured
// amount. Parsing never fails: input with no parseable leading number
// degrades to a defaulted count of one so downstream scaling always has a
// numeric value.
type QuantityParser struct{}

// NewQuantityParser creates a quantity parser.
func NewQuantityParser() *QuantityParser {
	return &QuantityParser{}
}

// Parse parses the leading quantity of a raw string.
func (p *QuantityParser) Parse(raw string) domain.ParsedQuantity {
	q, _ := p.ParseLine(raw)
	return q
}

// ParseLine parses the leading quantity and returns the remainder of the
// line (the ingredient description) with parenthetical and post-comma
// annotations stripped. Only the leading token sequence is treated as
// quantity; numbers embedded in annotations are never the primary amount.
func (p *QuantityParser) ParseLine(raw string) (domain.ParsedQuantity, string) {
	normalized := normalizeVulgarFractions(raw)
	tokens := strings.Fields(normalized)

	value, consumed := scanNumber(tokens)
	if value == nil || value.Sign() < 0 {
		return domain.ParsedQuantity{
			Value:          domain.RationalFromInts(1, 1),
			UnitConfidence: domain.ConfidenceNone,
			Defaulted:      true,
		}, stripAnnotations(strings.Join(tokens, " "))
	}

	rest := tokens[consumed:]
	unit, confidence, unitConsumed := scanUnit(rest)

	return domain.ParsedQuantity{
		Value:          domain.NewRational(value),
		Unit:           unit,
		UnitConfidence: confidence,
	}, stripAnnotations(strings.Join(rest[unitConsumed:], " "))
}

// normalizeVulgarFractions rewrites unicode fraction runes as spaced ASCII
// fractions so "1½" tokenizes to "1 1/2".
func normalizeVulgarFractions(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if ascii, ok := vulgarFractions[r]; ok {
			b.WriteByte(' ')
			b.WriteString(ascii)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanNumber recognizes the leading numeric grammar:
//
//	number := INT | DECIMAL | FRACTION | INT FRACTION
//	range  := number ("-" | "–" | "—" | "to") number
//
// A range collapses to the arithmetic mean of its endpoints. Returns the
// value and the number of tokens consumed, or (nil, 0) when the line does
// not begin with a number.
func scanNumber(tokens []string) (*big.Rat, int) {
	value, consumed := scanSingleNumber(tokens)
	if value == nil {
		return nil, 0
	}

	// Range with a separator token: "4 - 6", "4 to 6".
	if len(tokens) > consumed+1 && isRangeSeparator(tokens[consumed]) {
		if upper, n := scanSingleNumber(tokens[consumed+1:]); upper != nil {
			return meanOf(value, upper), consumed + 1 + n
		}
	}

	return value, consumed
}

// scanSingleNumber recognizes INT, DECIMAL, FRACTION, INT FRACTION, or a
// single-token range like "4-6".
func scanSingleNumber(tokens []string) (*big.Rat, int) {
	if len(tokens) == 0 {
		return nil, 0
	}

	tok := strings.Trim(tokens[0], ",")

	// Single-token range: both sides must parse as plain numbers.
	if lo, hi, ok := splitRangeToken(tok); ok {
		return meanOf(lo, hi), 1
	}

	value, ok := parseNumberToken(tok)
	if !ok {
		return nil, 0
	}

	// Mixed number: a whole part followed by a proper fraction ("1 1/2").
	if value.IsInt() && len(tokens) > 1 {
		next := strings.Trim(tokens[1], ",")
		if strings.Contains(next, "/") {
			if frac, ok := parseNumberToken(next); ok {
				return new(big.Rat).Add(value, frac), 2
			}
		}
	}

	return value, 1
}

// parseNumberToken parses "3", "3.5", or "1/2" into an exact rational.
func parseNumberToken(tok string) (*big.Rat, bool) {
	if tok == "" || tok[0] < '0' || tok[0] > '9' {
		return nil, false
	}
	value, ok := new(big.Rat).SetString(tok)
	if !ok || value.Sign() < 0 {
		return nil, false
	}
	return value, true
}

func isRangeSeparator(tok string) bool {
	switch tok {
	case "-", "–", "—", "to":
		return true
	}
	return false
}

// splitRangeToken splits "4-6" / "4–6" into its endpoints.
func splitRangeToken(tok string) (*big.Rat, *big.Rat, bool) {
	for _, sep := range []string{"–", "—", "-"} {
		lo, hi, found := strings.Cut(tok, sep)
		if !found {
			continue
		}
		lower, ok1 := parseNumberToken(lo)
		upper, ok2 := parseNumberToken(hi)
		if ok1 && ok2 {
			return lower, upper, true
		}
	}
	return nil, nil, false
}

func meanOf(a, b *big.Rat) *big.Rat {
	sum := new(big.Rat).Add(a, b)
	return sum.Mul(sum, big.NewRat(1, 2))
}

// scanUnit extracts a trailing unit token from the recognized vocabulary.
func scanUnit(tokens []string) (string, domain.UnitConfidence, int) {
	if len(tokens) == 0 {
		return "", domain.ConfidenceNone, 0
	}

	tok := strings.ToLower(strings.Trim(tokens[0], ".,"))
	if canonical, ok := canonicalUnits[tok]; ok {
		return canonical, domain.ConfidenceExact, 1
	}
	if sizeDescriptors[tok] {
		return tok, domain.ConfidenceInferred, 1
	}
	return "", domain.ConfidenceNone, 0
}

// annotationPattern matches parenthetical clauses, including unclosed ones
// running to end of line.
var annotationPattern = regexp.MustCompile(`\([^)]*\)?`)

// stripAnnotations removes parenthetical and post-comma clauses so they end
// up as notes rather than part of the name or the search query.
func stripAnnotations(s string) string {
	s = annotationPattern.ReplaceAllString(s, " ")
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return strings.Join(strings.Fields(s), " ")
}
