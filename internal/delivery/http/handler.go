package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thoughttotable/backend/internal/domain"
	"github.com/thoughttotable/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extraction domain.ExtractionClient
	builder    *usecase.ShoppingListBuilder
	runner     *usecase.WorkflowRunner
	metrics    http.Handler
}

// NewHandler creates a new HTTP handler. registry may be nil, in which case
// the metrics endpoint serves an empty exposition.
func NewHandler(extraction domain.ExtractionClient, builder *usecase.ShoppingListBuilder, runner *usecase.WorkflowRunner, registry *prometheus.Registry) *Handler {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Handler{
		extraction: extraction,
		builder:    builder,
		runner:     runner,
		metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "thoughttotable-backend",
		"version": "1.0.0",
	})
}

// Metrics serves the Prometheus exposition endpoint
func (h *Handler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// BuildShoppingListRequest is the request body for list building.
type BuildShoppingListRequest struct {
	RecipeURL      string `json:"recipeUrl" binding:"required"`
	TargetServings int    `json:"targetServings" binding:"required,min=1"`
}

// BuildShoppingList extracts a recipe and returns its scaled shopping list
func (h *Handler) BuildShoppingList(c *gin.Context) {
	var req BuildShoppingListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	list, err := h.buildFromRecipe(c, req.RecipeURL, req.TargetServings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// StartCartRunRequest is the request body for starting a cart run. Callers
// either send a previously built list's entries, or a recipe URL to extract
// and build in one step.
type StartCartRunRequest struct {
	Entries        []domain.ShoppingListEntry `json:"entries"`
	RecipeURL      string                     `json:"recipeUrl"`
	TargetServings int                        `json:"targetServings"`
}

// StartCartRun launches a cart workflow over a shopping list
func (h *Handler) StartCartRun(c *gin.Context) {
	var req StartCartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	entries := req.Entries
	if len(entries) == 0 && req.RecipeURL != "" {
		list, err := h.buildFromRecipe(c, req.RecipeURL, req.TargetServings)
		if err != nil {
			respondError(c, err)
			return
		}
		entries = list.Entries
	}

	workflow, err := h.runner.Start(entries)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, workflow.Snapshot())
}

// GetCartRun returns the current snapshot of a run
func (h *Handler) GetCartRun(c *gin.Context) {
	workflow, err := h.runner.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workflow.Snapshot())
}

// SignalLogin tells a run awaiting login that the human finished signing in
func (h *Handler) SignalLogin(c *gin.Context) {
	workflow, err := h.runner.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if workflow.State().Terminal() {
		respondError(c, domain.ErrWorkflowConflict)
		return
	}

	workflow.SignalLoginComplete()
	c.JSON(http.StatusAccepted, workflow.Snapshot())
}

// ConfirmCartRunRequest is the whole-cart confirmation decision. Approve is a
// pointer so an explicit false still binds.
type ConfirmCartRunRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// ConfirmCartRun delivers the whole-cart approve/decline decision
func (h *Handler) ConfirmCartRun(c *gin.Context) {
	var req ConfirmCartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	workflow, err := h.runner.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := workflow.Confirm(*req.Approve); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, workflow.Snapshot())
}

// AbortCartRun cancels a run from whatever state it is in
func (h *Handler) AbortCartRun(c *gin.Context) {
	workflow, err := h.runner.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	workflow.Abort()
	c.JSON(http.StatusAccepted, workflow.Snapshot())
}

// buildFromRecipe extracts a recipe and builds its scaled shopping list.
func (h *Handler) buildFromRecipe(c *gin.Context, recipeURL string, targetServings int) (*domain.ShoppingList, error) {
	recipe, err := h.extraction.Extract(c.Request.Context(), recipeURL)
	if err != nil {
		return nil, err
	}
	return h.builder.Build(recipe.Title, recipe.Ingredients, targetServings, recipe.OriginalServings)
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrWorkflowConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExtractionFailed):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
