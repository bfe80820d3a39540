package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	custommw "github.com/modelforge/modelforge/pkg/api/middleware"
	"github.com/modelforge/modelforge/pkg/billing"
	"github.com/modelforge/modelforge/pkg/generation"
	"github.com/modelforge/modelforge/pkg/metrics"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/plans"
)

// BillingHandler handles checkout, pricing and Stripe webhooks.
type BillingHandler struct {
	billing    *billing.Service
	gate       billing.Gate
	plans      *plans.Service
	generation *generation.Service
	metrics    *metrics.Metrics
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(b *billing.Service, gate billing.Gate, p *plans.Service, g *generation.Service, m *metrics.Metrics) *BillingHandler {
	return &BillingHandler{
		billing:    b,
		gate:       gate,
		plans:      p,
		generation: g,
		metrics:    m,
	}
}

// Checkout runs the payment gate and, when it passes, dispatches a
// Stripe checkout session.
// POST /api/v1/checkout
//
// The route uses optional auth: the gate itself decides whether a
// signed-out user is blocked, so anonymous requests must reach it.
func (h *BillingHandler) Checkout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	identity := custommw.IdentityFrom(c)
	state := h.plans.StateFor(ctx, identity)

	hasModel := false
	modelURL := req.ModelURL
	if identity != nil {
		if result, ok := h.generation.CurrentResult(identity.ID); ok && !result.IsPlaceholder {
			hasModel = true
			if modelURL == "" {
				modelURL = result.ModelAssetURL
			}
		}
	}

	decision := h.gate.Evaluate(state, req.PriceID, hasModel)
	h.metrics.RecordCheckoutDecision(decision.String())

	switch decision {
	case billing.NoActionNeeded:
		return c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "No payment is required.",
		})
	case billing.BlockedNeedsModel:
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "needs_model",
			Message: "Generate a model first, then purchase the download.",
		})
	case billing.BlockedNeedsSignIn:
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "needs_sign_in",
			Message: "Sign in to complete your purchase.",
		})
	}

	resp, err := h.billing.CreateCheckoutSession(ctx, identity.ID, req.PriceID, modelURL)
	if err != nil {
		h.metrics.RecordCheckoutDecision("failed")
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "checkout_failed",
			Message: "Could not start checkout. Please try again.",
		})
	}

	return c.JSON(http.StatusOK, resp)
}

// GetPricing returns the public pricing table.
// GET /api/v1/pricing
func (h *BillingHandler) GetPricing(c echo.Context) error {
	return c.JSON(http.StatusOK, h.billing.GetPricing())
}

// StripeWebhook receives Stripe events.
// POST /api/v1/webhooks/stripe
func (h *BillingHandler) StripeWebhook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "invalid_payload",
		})
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if err := h.billing.HandleWebhook(ctx, payload, signature); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "webhook_error",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
