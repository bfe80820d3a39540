package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/models"
)

// CSRFHeader is the request header carrying the anti-forgery token.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware rejects mutating requests whose anti-forgery token is
// missing, invalid, expired, or already used.
func CSRFMiddleware(csrf *auth.CSRFService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(CSRFHeader)
			if token == "" {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "missing_csrf_token",
					Message: "X-CSRF-Token header is required",
				})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()

			if err := csrf.Verify(ctx, token); err != nil {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "invalid_csrf_token",
					Message: "Anti-forgery token is invalid or expired. Fetch a new one.",
				})
			}

			return next(c)
		}
	}
}
