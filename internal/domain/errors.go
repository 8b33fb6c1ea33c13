package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNoCandidates is returned when a retailer search yields no results
	ErrNoCandidates = errors.New("no candidates found")

	// ErrLowConfidence is returned when the best match is below the confidence threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrSearchFailed is returned when the retailer search capability errors
	ErrSearchFailed = errors.New("retailer search failed")

	// ErrAddFailed is returned when adding a product to the cart fails
	ErrAddFailed = errors.New("add to cart failed")

	// ErrLoginTimeout is returned when the login wait exceeds its deadline
	ErrLoginTimeout = errors.New("login timeout")

	// ErrCapabilityUnavailable is returned when the browser capability is lost
	ErrCapabilityUnavailable = errors.New("retailer capability unavailable")

	// ErrWorkflowAborted is returned when a run is cancelled from a suspended state
	ErrWorkflowAborted = errors.New("workflow aborted")

	// ErrWorkflowConflict is returned when a run is started while another is active
	ErrWorkflowConflict = errors.New("another cart run is already active")

	// ErrRunNotFound is returned when a run id is unknown
	ErrRunNotFound = errors.New("cart run not found")

	// ErrExtractionFailed is returned when the extraction service cannot parse a recipe
	ErrExtractionFailed = errors.New("recipe extraction failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
