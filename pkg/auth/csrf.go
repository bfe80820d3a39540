package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/modelforge/modelforge/pkg/cache"
)

// csrfClaims is the payload of an anti-forgery token: a random nonce
// plus the standard expiry claims.
type csrfClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// CSRFService issues and verifies short-lived anti-forgery tokens for
// mutating requests. Tokens are HMAC-signed JWTs whose nonce is held in
// Redis for the token lifetime; verification consumes the nonce, so a
// token is good for exactly one request.
type CSRFService struct {
	cache  *cache.Client
	secret string
	ttl    time.Duration
}

// NewCSRFService creates a new anti-forgery token service
func NewCSRFService(cache *cache.Client, secret string, ttl time.Duration) *CSRFService {
	return &CSRFService{
		cache:  cache,
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a fresh anti-forgery token and registers its nonce.
func (s *CSRFService) Issue(ctx context.Context) (string, time.Time, error) {
	nonce := uuid.NewString()
	expiresAt := time.Now().Add(s.ttl)

	claims := &csrfClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign csrf token: %w", err)
	}

	key := fmt.Sprintf("csrf:nonce:%s", nonce)
	if err := s.cache.Set(ctx, key, "issued", s.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store csrf nonce: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks signature and expiry, then consumes the nonce. A second
// verification of the same token fails.
func (s *CSRFService) Verify(ctx context.Context, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &csrfClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return fmt.Errorf("invalid csrf token: %w", err)
	}

	claims, ok := token.Claims.(*csrfClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid csrf token")
	}

	key := fmt.Sprintf("csrf:nonce:%s", claims.Nonce)
	if _, err := s.cache.GetDel(ctx, key); err != nil {
		if err == cache.Nil {
			return fmt.Errorf("csrf token already used or expired")
		}
		return fmt.Errorf("failed to check csrf nonce: %w", err)
	}

	return nil
}

// Token implements the generation dispatcher's TokenSource: the dispatcher
// attaches a fresh token to every outbound backend request. Errors are
// returned as-is so callers fail closed instead of sending an empty token.
func (s *CSRFService) Token(ctx context.Context) (string, error) {
	token, _, err := s.Issue(ctx)
	return token, err
}
