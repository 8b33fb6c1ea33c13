// Package retailer drives the retailer storefront through a real browser.
// The site has no public cart API, so searching and cart management happen
// the way a shopper would do them, rate limited to stay under the
// anti-automation radar.
package retailer

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"github.com/thoughttotable/backend/internal/domain"
)

// productTileSelector anchors result extraction; every product tile on the
// search page carries this attribute.
const productTileSelector = "div[data-item-id]"

// Layered selector fallbacks: the storefront markup shifts between
// experiments, so each field is tried against several known shapes.
var (
	titleSelectors = []string{
		"span[data-automation-id='product-title']",
		"[data-automation-id='product-title']",
		"span.normal",
	}
	priceSelectors = []string{
		"[data-automation-id='product-price'] span.f2",
		"[data-automation-id='product-price']",
		"div[data-automation-id='product-price']",
		".price-main",
	}
	addButtonSelectors = []string{
		"button[data-automation-id='add-to-cart-button']",
		"button[data-testid='add-to-cart-btn']",
	}
	addButtonXPaths = []string{
		"//button[contains(text(), 'Add to cart')]",
		"//button[contains(@aria-label, 'Add to cart')]",
	}
	accountMarkerSelectors = []string{
		"a[link-identifier='Account']",
		"[data-automation-id='account-menu']",
	}
)

// Config holds browser automation configuration.
type Config struct {
	BaseURL           string
	Headless          bool
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	MaxResults        int
	RequestsPerMinute int
	LoginPollInterval time.Duration
	Debug             bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://www.walmart.com",
		Headless:          false,
		NavigationTimeout: 30 * time.Second,
		ElementTimeout:    10 * time.Second,
		MaxResults:        8,
		RequestsPerMinute: 12,
		LoginPollInterval: 2 * time.Second,
	}
}

// Browser is a RetailerGateway backed by a Chrome instance driven over the
// DevTools protocol. The browser launches lazily on first use and is torn
// down by Close.
type Browser struct {
	config  Config
	limiter *rate.Limiter
	metrics *Metrics

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
}

// New creates a retailer browser gateway. metrics may be nil.
func New(config Config, metrics *Metrics) *Browser {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = defaults.NavigationTimeout
	}
	if config.ElementTimeout <= 0 {
		config.ElementTimeout = defaults.ElementTimeout
	}
	if config.MaxResults <= 0 {
		config.MaxResults = defaults.MaxResults
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.LoginPollInterval <= 0 {
		config.LoginPollInterval = defaults.LoginPollInterval
	}

	// Burst of 1 keeps navigations strictly paced.
	limiter := rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)

	return &Browser{
		config:  config,
		limiter: limiter,
		metrics: metrics,
	}
}

// ensureStarted launches Chrome and connects on first use.
func (b *Browser) ensureStarted() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, domain.ErrCapabilityUnavailable
	}
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().Headless(b.config.Headless).NoSandbox(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chrome: %v", domain.ErrCapabilityUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("%w: connect to chrome: %v", domain.ErrCapabilityUnavailable, err)
	}

	b.launcher = l
	b.browser = browser
	return browser, nil
}

// Search loads the storefront search page for query and extracts candidates
// from the product grid.
func (b *Browser) Search(ctx context.Context, query string) ([]domain.MatchCandidate, error) {
	if query == "" {
		return nil, domain.ErrInvalidRequest
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	browser, err := b.ensureStarted()
	if err != nil {
		return nil, err
	}

	b.metrics.IncSearch()
	started := time.Now()

	searchURL := fmt.Sprintf("%s/search?q=%s", b.config.BaseURL, url.QueryEscape(query))
	if b.config.Debug {
		log.Printf("[RETAILER] Searching: %s", searchURL)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: searchURL})
	if err != nil {
		b.metrics.IncError("page_create")
		return nil, fmt.Errorf("%w: open search page: %v", domain.ErrSearchFailed, err)
	}
	defer page.Close()

	page = page.Context(ctx)

	// Wait for the product grid; no grid within the timeout means no results.
	if _, err := page.Timeout(b.config.ElementTimeout).Element(productTileSelector); err != nil {
		b.metrics.ObserveSearch(time.Since(started), 0)
		if b.config.Debug {
			log.Printf("[RETAILER] No results for %q", query)
		}
		return nil, nil
	}

	tiles, err := page.Elements(productTileSelector)
	if err != nil {
		b.metrics.IncError("grid_read")
		return nil, fmt.Errorf("%w: read product grid: %v", domain.ErrSearchFailed, err)
	}

	candidates := make([]domain.MatchCandidate, 0, b.config.MaxResults)
	for _, tile := range tiles {
		if len(candidates) >= b.config.MaxResults {
			break
		}
		candidate, ok := b.extractCandidate(tile)
		if ok {
			candidates = append(candidates, candidate)
		}
	}

	b.metrics.ObserveSearch(time.Since(started), len(candidates))
	if b.config.Debug {
		log.Printf("[RETAILER] %d candidates for %q", len(candidates), query)
	}
	return candidates, nil
}

// extractCandidate pulls one product tile apart. Tiles missing a title are
// sponsored placeholders or ads and are skipped.
func (b *Browser) extractCandidate(tile *rod.Element) (domain.MatchCandidate, bool) {
	title := firstText(tile, titleSelectors)
	if title == "" {
		return domain.MatchCandidate{}, false
	}

	candidate := domain.MatchCandidate{
		Title: title,
		Price: ParsePrice(firstText(tile, priceSelectors)),
	}

	if id, err := tile.Attribute("data-item-id"); err == nil && id != nil {
		candidate.ProductID = *id
	}

	candidate.URL = b.productURL(tile)
	return candidate, true
}

// productURL finds the tile's product page link.
func (b *Browser) productURL(tile *rod.Element) string {
	links, err := tile.Elements("a[href*='/ip/']")
	if err != nil || len(links) == 0 {
		return ""
	}
	href, err := links[0].Attribute("href")
	if err != nil || href == nil {
		return ""
	}
	if strings.HasPrefix(*href, "/") {
		return b.config.BaseURL + *href
	}
	return *href
}

// AddToCart opens the candidate's product page and clicks through the known
// add-button variants.
func (b *Browser) AddToCart(ctx context.Context, candidate domain.MatchCandidate) error {
	if candidate.URL == "" {
		b.metrics.IncAdd("no_url")
		return fmt.Errorf("%w: candidate %q has no product URL", domain.ErrAddFailed, candidate.Title)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAddFailed, err)
	}

	browser, err := b.ensureStarted()
	if err != nil {
		return err
	}

	if b.config.Debug {
		log.Printf("[RETAILER] Adding to cart: %s", candidate.Title)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: candidate.URL})
	if err != nil {
		b.metrics.IncError("page_create")
		return fmt.Errorf("%w: open product page: %v", domain.ErrAddFailed, err)
	}
	defer page.Close()

	page = page.Context(ctx)

	button := b.findAddButton(page)
	if button == nil {
		b.metrics.IncAdd("button_not_found")
		return fmt.Errorf("%w: add button not found for %q", domain.ErrAddFailed, candidate.Title)
	}

	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		b.metrics.IncAdd("click_failed")
		return fmt.Errorf("%w: click add button: %v", domain.ErrAddFailed, err)
	}

	// Let the cart update settle before the next navigation.
	_ = page.Timeout(b.config.ElementTimeout).WaitStable(time.Second)

	b.metrics.IncAdd("success")
	return nil
}

// findAddButton tries each known selector variant with a short timeout.
func (b *Browser) findAddButton(page *rod.Page) *rod.Element {
	perSelector := b.config.ElementTimeout / time.Duration(len(addButtonSelectors)+len(addButtonXPaths))
	if perSelector < time.Second {
		perSelector = time.Second
	}

	for _, selector := range addButtonSelectors {
		if el, err := page.Timeout(perSelector).Element(selector); err == nil {
			return el
		}
	}
	for _, xpath := range addButtonXPaths {
		if el, err := page.Timeout(perSelector).ElementX(xpath); err == nil {
			return el
		}
	}
	return nil
}

// AwaitLogin opens the storefront and polls for the signed-in account marker
// until it appears or ctx is cancelled. The page stays open so the human can
// complete the sign-in in the visible browser.
func (b *Browser) AwaitLogin(ctx context.Context) error {
	browser, err := b.ensureStarted()
	if err != nil {
		return err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: b.config.BaseURL})
	if err != nil {
		return fmt.Errorf("%w: open storefront: %v", domain.ErrCapabilityUnavailable, err)
	}

	if b.config.Debug {
		log.Printf("[RETAILER] Waiting for sign-in at %s", b.config.BaseURL)
	}

	ticker := time.NewTicker(b.config.LoginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, selector := range accountMarkerSelectors {
				elements, err := page.Elements(selector)
				if err == nil && len(elements) > 0 {
					if b.config.Debug {
						log.Printf("[RETAILER] Sign-in detected")
					}
					return nil
				}
			}
		}
	}
}

// firstText returns the text of the first selector that matches under el.
// Lookups are non-waiting; absent fields are common and not worth a timeout.
func firstText(el *rod.Element, selectors []string) string {
	for _, selector := range selectors {
		matches, err := el.Elements(selector)
		if err != nil || len(matches) == 0 {
			continue
		}
		text, err := matches[0].Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text
		}
	}
	return ""
}

// Close tears the browser down. Safe to call multiple times and on a
// gateway that never started.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	return err
}
