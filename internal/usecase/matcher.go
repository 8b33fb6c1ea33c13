package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/thoughttotable/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Token weight categories for scoring
const (
	weightFood        = 3.0 // Core food terms (milk, chicken, potato)
	weightDescriptive = 2.0 // Descriptive terms (whole, organic, russet)
	weightDefault     = 1.0 // Everything else
	fuzzyWeightFactor = 0.8 // Fuzzy matches get 80% of normal weight
)

// Scoring adjustments, applied on the normalized 0..1 scale.
const (
	substringBonus      = 0.10 // entry name is a substring of the candidate title
	disqualifierPenalty = 0.25 // per disqualifying modifier the entry never asked for
)

// foodTerms contains high-importance food keywords (weight 3.0)
var foodTerms = map[string]bool{
	// Proteins
	"chicken": true, "beef": true, "pork": true, "fish": true, "salmon": true,
	"turkey": true, "lamb": true, "shrimp": true, "tuna": true, "bacon": true,
	"sausage": true, "steak": true, "ham": true,
	// Dairy
	"milk": true, "cheese": true, "yogurt": true, "butter": true, "cream": true,
	"eggs": true, "egg": true, "cheddar": true, "mozzarella": true, "parmesan": true,
	// Grains
	"bread": true, "rice": true, "pasta": true, "cereal": true, "oats": true,
	"wheat": true, "flour": true, "noodles": true, "tortilla": true,
	// Produce
	"apple": true, "banana": true, "orange": true, "lettuce": true, "tomato": true,
	"potato": true, "potatoes": true, "onion": true, "carrot": true, "broccoli": true,
	"spinach": true, "garlic": true, "celery": true, "lemon": true, "lime": true,
	"avocado": true, "cucumber": true, "pepper": true, "corn": true, "beans": true,
	"mushroom": true, "mushrooms": true, "cilantro": true, "parsley": true,
	// Pantry
	"oil": true, "vinegar": true, "sugar": true, "salt": true, "honey": true,
	"sauce": true, "broth": true, "stock": true, "syrup": true, "mustard": true,
	"mayonnaise": true, "ketchup": true, "salsa": true,
	// Beverages
	"juice": true, "soda": true, "coffee": true, "tea": true, "water": true,
}

// descriptiveTerms contains medium-importance descriptive keywords (weight 2.0)
var descriptiveTerms = map[string]bool{
	"whole": true, "skim": true, "heavy": true, "light": true, "reduced": true,
	"organic": true, "natural": true, "fresh": true, "frozen": true,
	"canned": true, "dried": true, "raw": true, "smoked": true, "roasted": true,
	"white": true, "brown": true, "red": true, "yellow": true, "green": true,
	"russet": true, "sweet": true, "baby": true, "extra": true, "virgin": true,
	"boneless": true, "skinless": true, "ground": true, "lean": true,
	"unsalted": true, "salted": true, "unsweetened": true, "sweetened": true,
}

// disqualifyingModifiers mark candidates as a different product than asked
// for. A candidate whose title carries one the entry never mentioned is
// penalized ("heavy cream" must not match "diet heavy cream flavored soda").
var disqualifyingModifiers = map[string]bool{
	"diet": true, "flavored": true, "flavor": true, "zero": true,
	"sugar-free": true, "decaf": true, "imitation": true, "substitute": true,
	"artificial": true, "scented": true, "candle": true, "toy": true,
}

// matchStopWords includes basic English stop words plus retail listing noise
var matchStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// Size/quantity units
	"oz": true, "fl": true, "lb": true, "lbs": true, "ml": true,
	"gallon": true, "quart": true, "pint": true, "liter": true, "liters": true,
	"gram": true, "grams": true, "kg": true, "ounce": true, "ounces": true,
	"cup": true, "cups": true, "tbsp": true, "tsp": true,
	// Packaging terms
	"pack": true, "packs": true, "count": true, "ct": true, "pk": true,
	"box": true, "bag": true, "bottle": true, "bottles": true, "can": true,
	"cans": true, "carton": true, "container": true, "pouch": true, "jar": true,
	// Marketing/generic terms
	"size": true, "value": true, "family": true, "each": true, "per": true,
	"great": true, "marketside": true, "brand": true,
}

// MatcherConfig holds configuration for the cart matcher
type MatcherConfig struct {
	MinConfidence       float64 // 0..1; candidates below are never selected
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
	CacheTTL            time.Duration
	EnableDebugLogging  bool
}

// CartMatcher issues retailer searches for shopping-list entries, scores the
// candidates lexically, and selects a best match above the confidence
// threshold. Search failures are reported per entry; they never abort a
// batch.
type CartMatcher struct {
	gateway             domain.RetailerGateway
	cache               domain.SearchCache
	minConfidence       float64
	enableFuzzyMatching bool
	fuzzyEditDistance   int
	cacheTTL            time.Duration
	debug               bool
}

// NewCartMatcher creates a matcher. cache may be nil to disable result
// caching.
func NewCartMatcher(gateway domain.RetailerGateway, cache domain.SearchCache, config MatcherConfig) *CartMatcher {
	threshold := config.MinConfidence
	if threshold <= 0 {
		threshold = 0.4 // Default 40% threshold
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1 // Default edit distance of 1
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	return &CartMatcher{
		gateway:             gateway,
		cache:               cache,
		minConfidence:       threshold,
		enableFuzzyMatching: config.EnableFuzzyMatching,
		fuzzyEditDistance:   fuzzyDist,
		cacheTTL:            cacheTTL,
		debug:               config.EnableDebugLogging,
	}
}

// Match searches the retailer for an entry and returns scored candidates in
// descending score order.
func (m *CartMatcher) Match(ctx context.Context, entry domain.ShoppingListEntry) ([]domain.MatchCandidate, error) {
	if entry.SearchQuery == "" && entry.Name == "" {
		return nil, domain.ErrInvalidRequest
	}

	query := entry.SearchQuery
	if query == "" {
		query = entry.Name
	}

	candidates, err := m.search(ctx, query)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].MatchScore = m.scoreCandidate(entry, candidates[i])
		if m.debug {
			log.Printf("[MATCH] %q vs %q -> %.2f", entry.Name, candidates[i].Title, candidates[i].MatchScore)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	return candidates, nil
}

// Select returns the highest-scoring candidate when it clears the confidence
// threshold. A below-threshold batch reports false so the entry surfaces as
// not_found for human decision instead of being silently skipped.
func (m *CartMatcher) Select(entry domain.ShoppingListEntry, candidates []domain.MatchCandidate) (*domain.MatchCandidate, bool) {
	best := (*domain.MatchCandidate)(nil)
	for i := range candidates {
		if best == nil || candidates[i].MatchScore > best.MatchScore {
			best = &candidates[i]
		}
	}

	if best == nil || best.MatchScore < m.minConfidence {
		if m.debug && best != nil {
			log.Printf("[MATCH] Best candidate for %q below threshold: %.2f < %.2f",
				entry.Name, best.MatchScore, m.minConfidence)
		}
		return nil, false
	}

	chosen := *best
	return &chosen, true
}

// search runs a retailer search through the session cache.
func (m *CartMatcher) search(ctx context.Context, query string) ([]domain.MatchCandidate, error) {
	cacheKey := "search:" + domain.NormalizedName(query)

	if m.cache != nil {
		if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
			return cached, nil
		}
	}

	candidates, err := m.gateway.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, cacheKey, candidates, m.cacheTTL); err != nil && m.debug {
			log.Printf("[MATCH] Cache write failed for %q: %v", query, err)
		}
	}

	return candidates, nil
}

// scoreCandidate computes lexical similarity between the entry name and a
// candidate title on a 0..1 scale. Weighted token coverage of the entry
// dominates; candidate-side coverage and Jaccard keep generic titles from
// winning on length alone. Disqualifying modifiers the entry never asked
// for subtract a flat penalty each.
func (m *CartMatcher) scoreCandidate(entry domain.ShoppingListEntry, candidate domain.MatchCandidate) float64 {
	entryTokens := tokenizeForMatch(entry.Name)
	titleTokens := tokenizeForMatch(candidate.Title)

	if len(entryTokens) == 0 || len(titleTokens) == 0 {
		return 0
	}

	entryCoverage := m.weightedCoverage(entryTokens, titleTokens)
	titleCoverage := m.weightedCoverage(titleTokens, entryTokens)

	matched, _ := findIntersection(entryTokens, titleTokens)
	union := findUnion(entryTokens, titleTokens)
	jaccard := float64(matched) / float64(union)

	score := entryCoverage*0.60 + titleCoverage*0.20 + jaccard*0.20

	// Exact substring bonus.
	entryLower := strings.ToLower(strings.TrimSpace(entry.Name))
	titleLower := strings.ToLower(candidate.Title)
	if len(entryLower) > 3 && strings.Contains(titleLower, entryLower) {
		score += substringBonus
	}

	// Disqualifying modifiers present in the title but absent from the entry.
	entrySet := make(map[string]bool, len(entryTokens))
	for _, t := range entryTokens {
		entrySet[t] = true
	}
	for _, t := range titleTokens {
		if disqualifyingModifiers[t] && !entrySet[t] {
			score -= disqualifierPenalty
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// weightedCoverage returns the weighted fraction of tokens in base that are
// found in other, counting fuzzy matches at reduced weight when enabled.
func (m *CartMatcher) weightedCoverage(base, other []string) float64 {
	otherSet := make(map[string]bool, len(other))
	for _, t := range other {
		otherSet[t] = true
	}

	var matchedWeight, totalWeight float64
	for _, token := range base {
		w := tokenWeight(token)
		totalWeight += w

		if otherSet[token] {
			matchedWeight += w
			continue
		}
		if m.enableFuzzyMatching {
			for _, candidate := range other {
				if fuzzyTokenMatch(token, candidate, m.fuzzyEditDistance) {
					matchedWeight += w * fuzzyWeightFactor
					break
				}
			}
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return matchedWeight / totalWeight
}

func tokenWeight(token string) float64 {
	if foodTerms[token] {
		return weightFood
	}
	if descriptiveTerms[token] {
		return weightDescriptive
	}
	return weightDefault
}

// tokenizeForMatch splits a string into normalized lowercase tokens.
// Removes punctuation, stop words, retail noise, and pure numeric tokens.
func tokenizeForMatch(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if matchStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens > 4 chars to avoid false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
