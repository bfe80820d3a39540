package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/modelforge/modelforge/config"
	"github.com/modelforge/modelforge/pkg/api/errors"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/email"
	"github.com/modelforge/modelforge/pkg/generation"
	"github.com/modelforge/modelforge/pkg/metrics"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/users"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users        *users.Store
	config       *config.Config
	blacklist    *auth.TokenBlacklist
	emailService *email.Service
	generation   *generation.Service
	metrics      *metrics.Metrics
	validator    *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userStore *users.Store, cfg *config.Config, blacklist *auth.TokenBlacklist, emailService *email.Service, gen *generation.Service, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		users:        userStore,
		config:       cfg,
		blacklist:    blacklist,
		emailService: emailService,
		generation:   gen,
		metrics:      m,
		validator:    validator.New(),
	}
}

// Register creates a new account and signs the user in.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.InternalError(c, err)
	}

	u, err := h.users.Create(ctx, req.Email, req.Name, hashedPassword, time.Now().Unix())
	if err != nil {
		if err == users.ErrEmailTaken {
			return c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "user_exists",
				Message: "User with this email already exists",
			})
		}
		return errors.InternalError(c, err)
	}

	h.metrics.RecordUserRegistered()

	if err := h.emailService.SendWelcomeEmail(u.Email, u.Name); err != nil {
		log.Printf("⚠️  Failed to send welcome email to %s: %v", u.Email, err)
	}

	return h.respondWithToken(c, u)
}

// Login verifies credentials and returns a session token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.metrics.RecordLoginAttempt(false)
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Email or password is incorrect",
		})
	}

	h.metrics.RecordLoginAttempt(true)
	return h.respondWithToken(c, u)
}

// Logout revokes the current token and clears the session's result slot.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := c.Get("user_id").(int)
	token, _ := c.Get("token").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if token != "" {
		ttl := time.Duration(h.config.JWTExpirationHours) * time.Hour
		if err := h.blacklist.Add(ctx, token, ttl); err != nil {
			log.Printf("⚠️  Failed to blacklist token on logout: %v", err)
		}
	}

	// Session state resets to signed-out: plan becomes free, result gone.
	h.generation.ClearSession(userID)

	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Signed out",
	})
}

// Me returns the authenticated user's profile.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	userID := c.Get("user_id").(int)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return errors.NotFoundError(c, "user")
	}

	return c.JSON(http.StatusOK, userInfo(u))
}

func (h *AuthHandler) respondWithToken(c echo.Context, u *users.User) error {
	token, err := auth.GenerateJWT(u.ID, u.Email, string(u.PlanTier), h.config.JWTSecret, h.config.JWTExpirationHours)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  userInfo(u),
	})
}

func userInfo(u *users.User) *models.UserInfo {
	return &models.UserInfo{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		PlanTier: string(u.PlanTier),
	}
}
