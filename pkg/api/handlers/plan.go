package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/plans"
)

// PlanHandler answers plan-tier lookups for the session.
type PlanHandler struct {
	plans *plans.Service
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *plans.Service) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// GetPlan returns the authenticated user's plan tier. Lookup failures
// degrade to free inside the service, so this always succeeds.
// GET /api/v1/me/plan
func (h *PlanHandler) GetPlan(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID := c.Get("user_id").(int)
	tier := h.plans.GetPlan(ctx, userID)

	return c.JSON(http.StatusOK, models.PlanResponse{
		PlanTier: string(tier),
	})
}
