package access

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/giftgate/internal/models"
)

// Verifier is the remote identity verification service.
// A returned error means the call failed at the transport level.
type Verifier interface {
	VerifyAccess(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error)
	VerifyMagicLink(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error)
}

// HTTPVerifierConfig configures an HTTPVerifier
type HTTPVerifierConfig struct {
	BaseURL       string
	EnvironmentID string
	APIKey        string
	Timeout       time.Duration
}

// HTTPVerifier calls the remote verification endpoints over HTTP
type HTTPVerifier struct {
	baseURL       string
	environmentID string
	apiKey        string
	client        *http.Client
}

// NewHTTPVerifier creates a verifier. Timeouts are owned by the HTTP client.
func NewHTTPVerifier(cfg HTTPVerifierConfig) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		environmentID: cfg.EnvironmentID,
		apiKey:        cfg.APIKey,
		client:        &http.Client{Timeout: cfg.Timeout},
	}
}

// VerifyAccess posts {siteId, method, value} to /validate-access
func (v *HTTPVerifier) VerifyAccess(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
	var resp models.VerifyAccessResponse
	if err := v.post(ctx, "/validate-access", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyMagicLink posts {token} to /verify-magic-link
func (v *HTTPVerifier) VerifyMagicLink(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
	var resp models.VerifyMagicLinkResponse
	if err := v.post(ctx, "/verify-magic-link", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends body as JSON and decodes the reply into out. 5xx responses and
// undecodable bodies are transport failures; 4xx bodies are decoded so the
// server's {valid:false, error} reaches the caller.
func (v *HTTPVerifier) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	if v.environmentID != "" {
		req.Header.Set("X-Environment-ID", v.environmentID)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read verification response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("verification service returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode verification response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
