package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFService_IssueAndVerify(t *testing.T) {
	cacheClient, _ := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)
	ctx := context.Background()

	token, expiresAt, err := svc.Issue(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	assert.NoError(t, svc.Verify(ctx, token))
}

func TestCSRFService_TokensAreSingleUse(t *testing.T) {
	cacheClient, _ := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, token))

	// The nonce was consumed, replaying the token must fail
	assert.Error(t, svc.Verify(ctx, token))
}

func TestCSRFService_VerifyExpired(t *testing.T) {
	cacheClient, mr := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, time.Minute)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	assert.Error(t, svc.Verify(ctx, token))
}

func TestCSRFService_VerifyWrongSecret(t *testing.T) {
	cacheClient, _ := setupTestCache(t)
	ctx := context.Background()

	token, _, err := NewCSRFService(cacheClient, "other-secret", 15*time.Minute).Issue(ctx)
	require.NoError(t, err)

	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)
	assert.Error(t, svc.Verify(ctx, token))
}

func TestCSRFService_VerifyGarbage(t *testing.T) {
	cacheClient, _ := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)

	assert.Error(t, svc.Verify(context.Background(), "not-a-token"))
}

func TestCSRFService_TokenSource(t *testing.T) {
	cacheClient, _ := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)
	ctx := context.Background()

	token, err := svc.Token(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, svc.Verify(ctx, token))
}

func TestCSRFService_TokenFailsWhenStoreDown(t *testing.T) {
	cacheClient, mr := setupTestCache(t)
	svc := NewCSRFService(cacheClient, testSecret, 15*time.Minute)

	mr.Close()

	// No token may be produced when the nonce cannot be registered
	token, err := svc.Token(context.Background())
	assert.Error(t, err)
	assert.Empty(t, token)
}
