package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/modelforge/modelforge/pkg/models"
)

// TokenSource provides the anti-forgery token attached to every backend
// request. An error here fails the dispatch closed: the request is never
// sent unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// backendResponse is the success body shape: only modelUrl matters,
// anything else the backend sends is ignored.
type backendResponse struct {
	ModelURL string `json:"modelUrl"`
}

// Dispatcher sends generation payloads to the configured backend and
// turns every failure mode into a placeholder result, so the caller
// always gets something renderable back.
type Dispatcher struct {
	endpoint       string
	placeholderURL string
	client         *http.Client
	tokens         TokenSource
}

// NewDispatcher creates a dispatcher for the given backend endpoint.
func NewDispatcher(endpoint, placeholderURL string, tokens TokenSource, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		endpoint:       endpoint,
		placeholderURL: placeholderURL,
		client:         &http.Client{Timeout: timeout},
		tokens:         tokens,
	}
}

// placeholder is the fallback substituted on any failure.
func (d *Dispatcher) placeholder() models.GenerationResult {
	return models.GenerationResult{
		ModelAssetURL: d.placeholderURL,
		IsPlaceholder: true,
	}
}

// Dispatch POSTs the payload and interprets the outcome. On any failure
// the returned result is the placeholder and the error names the kind;
// the result is always usable regardless of the error. No automatic retry.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) (models.GenerationResult, error) {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		// Fail closed: never send the request with an empty token.
		log.Printf("⚠️  Anti-forgery token fetch failed, aborting dispatch: %v", err)
		return d.placeholder(), fmt.Errorf("%w: token fetch failed: %v", ErrTransport, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return d.placeholder(), fmt.Errorf("%w: encode payload: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return d.placeholder(), fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("❌ Generation backend unreachable (request %s): %v", payload.RequestID, err)
		return d.placeholder(), fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("❌ Generation backend returned %d (request %s): %s", resp.StatusCode, payload.RequestID, diag)
		return d.placeholder(), fmt.Errorf("%w: status %d", ErrBackend, resp.StatusCode)
	}

	var parsed backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("❌ Generation backend sent unparseable body (request %s): %v", payload.RequestID, err)
		return d.placeholder(), fmt.Errorf("%w: %v", ErrMissingResult, err)
	}

	if parsed.ModelURL == "" {
		log.Printf("⚠️  Generation backend success without modelUrl (request %s)", payload.RequestID)
		return d.placeholder(), ErrMissingResult
	}

	return models.GenerationResult{
		ModelAssetURL: parsed.ModelURL,
		IsPlaceholder: false,
	}, nil
}
