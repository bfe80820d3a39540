package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
)

func setupTokenTest(t *testing.T) (*TokenHandler, *auth.CSRFService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { cacheClient.Close() })

	csrf := auth.NewCSRFService(cacheClient, "test-secret", 15*time.Minute)
	return NewTokenHandler(csrf), csrf, mr
}

func TestTokenHandler_IssueToken(t *testing.T) {
	handler, csrf, _ := setupTokenTest(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.IssueToken(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	assert.NoError(t, csrf.Verify(req.Context(), resp.Token))
}

func TestTokenHandler_IssueToken_StoreDown(t *testing.T) {
	handler, _, mr := setupTokenTest(t)
	mr.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.IssueToken(c))

	// An error response, never a 200 with an empty token
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"token"`)
}
