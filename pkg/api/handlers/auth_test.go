package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge/modelforge/config"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/email"
	"github.com/modelforge/modelforge/pkg/generation"
	"github.com/modelforge/modelforge/pkg/models"
	"github.com/modelforge/modelforge/pkg/users"
)

type authTestEnv struct {
	handler    *AuthHandler
	users      *users.Store
	blacklist  *auth.TokenBlacklist
	generation *generation.Service
	config     *config.Config
}

func setupAuthTest(t *testing.T) *authTestEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { cacheClient.Close() })

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 24,
	}

	userStore := users.NewStore(cacheClient)
	blacklist := auth.NewTokenBlacklist(cacheClient)
	emailService := email.NewService("noreply@modelforge.io", "ModelForge", "https://modelforge.io", "")

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"modelUrl":"https://assets.example.com/models/result.glb"}`))
	}))
	t.Cleanup(backend.Close)

	dispatcher := generation.NewDispatcher(backend.URL, testPlaceholderURL, testTokens{}, 5*time.Second)
	generationService := generation.NewService(dispatcher, nil, nil)

	return &authTestEnv{
		handler:    NewAuthHandler(userStore, cfg, blacklist, emailService, generationService, testMetrics),
		users:      userStore,
		blacklist:  blacklist,
		generation: generationService,
		config:     cfg,
	}
}

func postJSON(t *testing.T, handler echo.HandlerFunc, path string, body interface{}, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}

	require.NoError(t, handler(c))
	return rec
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupAuthTest(t)

	rec := postJSON(t, env.handler.Register, "/api/v1/auth/register", models.RegisterRequest{
		Email:    "maker@example.com",
		Password: "super-secret-1",
		Name:     "Maker",
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "maker@example.com", resp.User.Email)
	assert.Equal(t, "free", resp.User.PlanTier)

	claims, err := auth.ValidateJWT(resp.Token, env.config.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	env := setupAuthTest(t)

	req := models.RegisterRequest{
		Email:    "maker@example.com",
		Password: "super-secret-1",
		Name:     "Maker",
	}

	rec := postJSON(t, env.handler.Register, "/api/v1/auth/register", req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, env.handler.Register, "/api/v1/auth/register", req, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user_exists", resp.Error)
}

func TestAuthHandler_Register_InvalidRequest(t *testing.T) {
	env := setupAuthTest(t)

	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing email", models.RegisterRequest{Password: "super-secret-1", Name: "Maker"}},
		{"bad email", models.RegisterRequest{Email: "not-an-email", Password: "super-secret-1", Name: "Maker"}},
		{"short password", models.RegisterRequest{Email: "maker@example.com", Password: "short", Name: "Maker"}},
		{"missing name", models.RegisterRequest{Email: "maker@example.com", Password: "super-secret-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, env.handler.Register, "/api/v1/auth/register", tt.req, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTest(t)

	postJSON(t, env.handler.Register, "/api/v1/auth/register", models.RegisterRequest{
		Email:    "maker@example.com",
		Password: "super-secret-1",
		Name:     "Maker",
	}, nil)

	rec := postJSON(t, env.handler.Login, "/api/v1/auth/login", models.LoginRequest{
		Email:    "maker@example.com",
		Password: "super-secret-1",
	}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAuthTest(t)

	postJSON(t, env.handler.Register, "/api/v1/auth/register", models.RegisterRequest{
		Email:    "maker@example.com",
		Password: "super-secret-1",
		Name:     "Maker",
	}, nil)

	rec := postJSON(t, env.handler.Login, "/api/v1/auth/login", models.LoginRequest{
		Email:    "maker@example.com",
		Password: "wrong-password",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_credentials", resp.Error)
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	env := setupAuthTest(t)

	rec := postJSON(t, env.handler.Login, "/api/v1/auth/login", models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAuthTest(t)

	u, err := env.users.Create(context.Background(), "maker@example.com", "Maker", "hash", time.Now().Unix())
	require.NoError(t, err)

	token, err := auth.GenerateJWT(u.ID, u.Email, "free", env.config.JWTSecret, 24)
	require.NoError(t, err)

	// Give the session a result so we can watch it reset
	env.generation.Slot(u.ID).Commit(
		env.generation.Slot(u.ID).Begin(),
		models.GenerationResult{ModelAssetURL: "https://assets.example.com/models/a.glb"},
	)

	rec := postJSON(t, env.handler.Logout, "/api/v1/auth/logout", nil, func(c echo.Context) {
		c.Set("user_id", u.ID)
		c.Set("token", token)
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	blacklisted, err := env.blacklist.IsBlacklisted(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Signing out clears the session's generation state
	assert.False(t, env.generation.HasRealResult(u.ID))
}

func TestAuthHandler_Me(t *testing.T) {
	env := setupAuthTest(t)

	u, err := env.users.Create(context.Background(), "maker@example.com", "Maker", "hash", time.Now().Unix())
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", u.ID)

	require.NoError(t, env.handler.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var info models.UserInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, u.ID, info.ID)
	assert.Equal(t, "maker@example.com", info.Email)
}
