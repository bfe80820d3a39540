package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/pkg/generation"
	"github.com/modelforge/modelforge/pkg/metrics"
	"github.com/modelforge/modelforge/pkg/models"
)

// GenerationHandler handles model generation endpoints
type GenerationHandler struct {
	service *generation.Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(service *generation.Service, m *metrics.Metrics, timeout time.Duration) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		metrics: m,
		timeout: timeout,
	}
}

// Generate runs one model generation for the authenticated user.
// POST /api/v1/generate
//
// Validation failures are 400s and never reach the backend. Dispatch
// failures still return 200: the body carries the placeholder result
// plus the failure kind, so the client always has something to render.
func (h *GenerationHandler) Generate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	userID := c.Get("user_id").(int)

	var form models.GenerateForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	start := time.Now()
	result, err := h.service.Generate(ctx, userID, form)

	if err != nil && generation.IsValidation(err) {
		h.metrics.RecordGeneration("validation", time.Since(start))
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   generation.Kind(err),
			Message: err.Error(),
		})
	}

	resp := models.GenerateResponse{Result: result}
	if err != nil {
		resp.Error = generation.Kind(err)
		resp.Message = "Generation failed; a placeholder model was substituted."
		h.metrics.RecordGeneration(generation.Kind(err), time.Since(start))
	} else {
		h.metrics.RecordGeneration("success", time.Since(start))
	}

	return c.JSON(http.StatusOK, resp)
}

// CurrentResult returns the user's latest generation result.
// GET /api/v1/result
func (h *GenerationHandler) CurrentResult(c echo.Context) error {
	userID := c.Get("user_id").(int)

	result, ok := h.service.CurrentResult(userID)
	if !ok {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "no_result",
			Message: "No model has been generated in this session yet.",
		})
	}

	return c.JSON(http.StatusOK, models.GenerateResponse{Result: result})
}
