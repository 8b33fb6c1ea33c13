package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/thoughttotable/backend/internal/domain"
)

// defaultServings is assumed when the extraction service cannot determine
// the recipe's yield.
const defaultServings = 4

// Client calls the recipe extraction service: raw recipe URL in, structured
// ingredient records plus the original serving count out. Extraction failure
// is fatal for the recipe; there is no partial extraction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	debug      bool
}

// NewClient creates an extraction service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// SetDebug enables request/response logging.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// HTTPClient exposes the underlying client for transport injection in tests.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type extractRequest struct {
	URL string `json:"url"`
}

// Extract asks the service to parse the recipe at recipeURL. Transient
// failures are retried up to 3 times with exponential backoff.
func (c *Client) Extract(ctx context.Context, recipeURL string) (*domain.ExtractedRecipe, error) {
	if recipeURL == "" {
		return nil, domain.ErrInvalidRequest
	}

	payload, err := json.Marshal(extractRequest{URL: recipeURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/extract", c.baseURL)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		recipe, retryable, err := c.doExtract(ctx, endpoint, payload)
		if err == nil {
			return recipe, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if c.debug {
			log.Printf("[EXTRACT] Attempt %d failed: %v", attempt, err)
		}

		select {
		case <-time.After(exponentialBackoff(attempt)):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, lastErr)
}

// doExtract performs one request. The second return value reports whether
// the failure is worth retrying.
func (c *Client) doExtract(ctx context.Context, endpoint string, payload []byte) (*domain.ExtractedRecipe, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ThoughtToTable/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading response: %v", domain.ErrExtractionFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrExtractionFailed, resp.StatusCode)
	default:
		// 4xx means the page itself is unparsable; retrying won't help.
		return nil, false, fmt.Errorf("%w: status %d, body: %s", domain.ErrExtractionFailed, resp.StatusCode, string(body))
	}

	var recipe domain.ExtractedRecipe
	if err := json.Unmarshal(body, &recipe); err != nil {
		return nil, false, fmt.Errorf("%w: decoding response: %v", domain.ErrExtractionFailed, err)
	}

	if len(recipe.Ingredients) == 0 {
		return nil, false, fmt.Errorf("%w: no ingredients extracted", domain.ErrExtractionFailed)
	}

	if recipe.OriginalServings <= 0 {
		if c.debug {
			log.Printf("[EXTRACT] No serving count for %q, assuming %d", recipe.Title, defaultServings)
		}
		recipe.OriginalServings = defaultServings
	}

	if c.debug {
		log.Printf("[EXTRACT] %q: %d ingredients, %d servings", recipe.Title, len(recipe.Ingredients), recipe.OriginalServings)
	}

	return &recipe, false, nil
}

// exponentialBackoff returns the wait before the given retry attempt.
func exponentialBackoff(attempt int) time.Duration {
	backoff := 500 * time.Millisecond
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}
