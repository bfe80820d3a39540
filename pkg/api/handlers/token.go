package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/pkg/api/errors"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/models"
)

// TokenHandler issues anti-forgery tokens for mutating requests.
type TokenHandler struct {
	csrf *auth.CSRFService
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(csrf *auth.CSRFService) *TokenHandler {
	return &TokenHandler{csrf: csrf}
}

// IssueToken mints a fresh single-use anti-forgery token.
// GET /api/v1/csrf-token
//
// Failure here is an error response, never an empty token: clients must
// not fall back to unauthenticated mutating requests.
func (h *TokenHandler) IssueToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	token, expiresAt, err := h.csrf.Issue(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}
