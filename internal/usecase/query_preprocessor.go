package usecase

import (
	"log"
	"regexp"
	"strings"
)

// Compiled regex patterns for query preprocessing
var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	multiSpacePattern    = regexp.MustCompile(`\s+`)
	orphanPunctPattern   = regexp.MustCompile(`\s+[,\-;:]+\s+|[,\-;:]+\s*$|^\s*[,\-;:]+`)
)

// queryNoiseWords are preparation and qualifier terms that narrow retailer
// search results for the worse ("finely chopped yellow onion" should search
// as "yellow onion").
var queryNoiseWords = map[string]bool{
	// Preparation instructions
	"chopped": true, "diced": true, "minced": true, "sliced": true,
	"grated": true, "shredded": true, "peeled": true, "crushed": true,
	"melted": true, "softened": true, "divided": true, "cubed": true,
	"trimmed": true, "halved": true, "quartered": true, "julienned": true,
	"finely": true, "thinly": true, "roughly": true, "coarsely": true,
	"freshly": true, "lightly": true,
	// Serving qualifiers
	"optional": true, "garnish": true, "taste": true, "serving": true,
	"needed": true, "plus": true, "more": true, "about": true,
	"approximately": true, "preferably": true,
}

// QueryPreprocessor turns an ingredient name into a retailer search query:
// annotations and preparation noise stripped, category hint applied.
type QueryPreprocessor struct {
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a query preprocessor.
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{enableDebugLogging: enableDebugLogging}
}

// BuildSearchQuery cleans an ingredient name for retailer search and applies
// a category-based hint the way a shopper would type it.
func (p *QueryPreprocessor) BuildSearchQuery(name, category string) string {
	if name == "" {
		return ""
	}

	original := name

	// Step 1: Drop parenthetical annotations and anything after a comma.
	cleaned := parentheticalPattern.ReplaceAllString(name, " ")
	if idx := strings.Index(cleaned, ","); idx > 0 {
		cleaned = cleaned[:idx]
	}

	// Step 2: Remove preparation/qualifier noise words.
	cleaned = p.removeNoiseWords(cleaned)

	// Step 3: Clean up orphaned punctuation and whitespace.
	cleaned = orphanPunctPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))

	// Step 4: Category hint.
	cleaned = applyCategoryHint(cleaned, category)

	if p.enableDebugLogging {
		log.Printf("[QUERY] Input: %q -> Output: %q", original, cleaned)
	}

	return cleaned
}

// applyCategoryHint biases the query toward the right aisle. Produce and
// meat want the fresh item, not the canned or frozen lookalike; spices need
// the qualifier or the search drowns in flavored products.
func applyCategoryHint(query, category string) string {
	if query == "" {
		return query
	}
	switch strings.ToLower(category) {
	case "produce", "meat", "seafood":
		if !strings.HasPrefix(strings.ToLower(query), "fresh ") {
			return "fresh " + query
		}
	case "spices":
		lower := strings.ToLower(query)
		if !strings.Contains(lower, "spice") && !strings.Contains(lower, "seasoning") {
			return query + " seasoning"
		}
	}
	return query
}

// removeNoiseWords drops preparation and qualifier terms from the query.
func (p *QueryPreprocessor) removeNoiseWords(s string) string {
	words := strings.Fields(s)
	var kept []string

	for _, word := range words {
		cleanWord := strings.ToLower(strings.Trim(word, ",.!?;:-'\""))
		if !queryNoiseWords[cleanWord] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}
