package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/models"
)

// JWTMiddlewareWithBlacklist creates a JWT authentication middleware with blacklist support
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Get authorization header
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			// Check Bearer prefix
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}

			token := parts[1]

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			// Validate JWT with blacklist check
			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: err.Error(),
				})
			}

			// Store token in context for potential logout
			c.Set("token", token)

			// Set user info in context
			c.Set("user_id", claims.UserID)
			c.Set("user_email", claims.Email)
			c.Set("user_tier", claims.Tier)

			return next(c)
		}
	}
}

// OptionalJWTMiddleware decodes the bearer token when one is present but
// lets anonymous requests through. Used on routes where the handler
// itself decides what signed-out users may do, like the payment gate.
func OptionalJWTMiddleware(secret string, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, parts[1], secret, blacklist)
			if err != nil {
				// A bad token on an optional route is treated as anonymous.
				return next(c)
			}

			c.Set("token", parts[1])
			c.Set("user_id", claims.UserID)
			c.Set("user_email", claims.Email)
			c.Set("user_tier", claims.Tier)

			return next(c)
		}
	}
}

// IdentityFrom extracts the authenticated identity from the Echo context,
// or nil when the request is anonymous.
func IdentityFrom(c echo.Context) *models.Identity {
	id, ok := c.Get("user_id").(int)
	if !ok {
		return nil
	}
	email, _ := c.Get("user_email").(string)
	return &models.Identity{ID: id, Email: email}
}
