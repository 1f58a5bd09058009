package access

import (
	"context"
	"sync"

	"github.com/BradenHooton/giftgate/internal/models"
)

// MockVerifier implements Verifier for testing
type MockVerifier struct {
	VerifyAccessFunc    func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error)
	VerifyMagicLinkFunc func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error)

	mu    sync.Mutex
	calls int
}

func (m *MockVerifier) VerifyAccess(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.VerifyAccessFunc != nil {
		return m.VerifyAccessFunc(ctx, req)
	}
	return &models.VerifyAccessResponse{Valid: false}, nil
}

func (m *MockVerifier) VerifyMagicLink(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.VerifyMagicLinkFunc != nil {
		return m.VerifyMagicLinkFunc(ctx, req)
	}
	return &models.VerifyMagicLinkResponse{Valid: false}, nil
}

// Calls returns how many remote calls were made
func (m *MockVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
