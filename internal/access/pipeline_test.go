package access_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/BradenHooton/giftgate/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	emailSite  = models.Site{ID: "site-1", Name: "Acme", ValidationMethod: models.MethodEmail, WelcomePageEnabled: true}
	serialSite = models.Site{ID: "site-2", Name: "Globex", ValidationMethod: models.MethodSerialCard}
)

type siteMap map[string]models.Site

func (s siteMap) Site(id string) (models.Site, bool) {
	site, ok := s[id]
	return site, ok
}

type pipelineRig struct {
	clock    *clock.Fake
	sink     *security.MemorySink
	verifier *access.MockVerifier
	sessions *session.Manager
	storage  *access.MemoryStore
	pipeline *access.Pipeline
}

func newPipelineRig(t *testing.T) *pipelineRig {
	t.Helper()

	fc := clock.NewFake(time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	sink := security.NewMemorySink()
	events := security.NewEventLogger(fc, logger, sink)
	verifier := &access.MockVerifier{}
	sessions := session.NewManager(session.Config{Clock: fc, Events: events, Logger: logger})
	t.Cleanup(sessions.Close)
	storage := access.NewMemoryStore()

	p := access.NewPipeline(access.Deps{
		Verifier: verifier,
		Limiter:  security.NewRateLimiter(security.NewMemoryWindowStore(fc), fc, logger),
		Sessions: sessions,
		Storage:  storage,
		Events:   events,
		Sites:    siteMap{emailSite.ID: emailSite, serialSite.ID: serialSite},
		Logger:   logger,
	}, access.Config{MaxAttempts: 5, Window: 15 * time.Minute})

	return &pipelineRig{clock: fc, sink: sink, verifier: verifier, sessions: sessions, storage: storage, pipeline: p}
}

// accessActions filters out the session manager's own events
func (r *pipelineRig) accessActions() []string {
	var out []string
	for _, a := range r.sink.Actions() {
		if a == "authentication/success" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func validEmployee() *models.VerifyAccessResponse {
	return &models.VerifyAccessResponse{
		Valid:        true,
		SessionToken: "sess-123",
		Employee:     &models.Employee{ID: "emp-1", Name: "Alice Doe", Email: "alice@acme.com"},
	}
}

func TestValidate_Success(t *testing.T) {
	rig := newPipelineRig(t)
	var sent models.VerifyAccessRequest
	rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
		sent = req
		return validEmployee(), nil
	}

	res, err := rig.pipeline.Validate(context.Background(), access.Attempt{
		Site:      emailSite,
		Value:     "  alice@acme.com ",
		ClientKey: "visitor-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerifyAccessRequest{SiteID: "site-1", Method: models.MethodEmail, Value: "alice@acme.com"}, sent)
	assert.Equal(t, "alice@acme.com", res.Identifier)
	assert.Equal(t, access.NextStepWelcome, res.Next)
	assert.Equal(t, "site-1", res.SiteID)

	snap := rig.sessions.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, "alice@acme.com", snap.Identifier)
	assert.Equal(t, &models.User{ID: "alice@acme.com", Email: "alice@acme.com"}, snap.User)

	assert.Equal(t, map[string]string{
		models.StorageKeySession: "sess-123",
		models.StorageKeyName:    "Alice Doe",
		models.StorageKeyEmail:   "alice@acme.com",
		models.StorageKeyID:      "emp-1",
		models.StorageKeySiteID:  "site-1",
	}, rig.storage.All())

	assert.Equal(t, []string{"access_validation_success/success"}, rig.accessActions())
}

func TestValidate_WelcomeDisabledRoutesToGiftSelection(t *testing.T) {
	rig := newPipelineRig(t)
	rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
		return validEmployee(), nil
	}

	res, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: serialSite, Value: "SN-0001"})

	require.NoError(t, err)
	assert.Equal(t, access.NextStepGiftSelection, res.Next)
}

func TestValidate_InvalidEmailFormatSkipsRemote(t *testing.T) {
	rig := newPipelineRig(t)

	res, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: emailSite, Value: "not-an-email"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
	assert.Equal(t, 0, rig.verifier.Calls(), "remote endpoint must not be called")
	assert.False(t, rig.sessions.Authenticated())
	assert.Equal(t, []string{"access_validation_invalid_format/failure"}, rig.accessActions())

	var attemptErr *access.AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.NotEmpty(t, attemptErr.Message)
}

func TestValidate_EmptyAfterSanitizingIsInvalidFormat(t *testing.T) {
	for _, site := range []models.Site{emailSite, serialSite} {
		t.Run(string(site.ValidationMethod), func(t *testing.T) {
			rig := newPipelineRig(t)
			rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
				return validEmployee(), nil
			}

			res, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: site, Value: " <> ", ClientKey: "v"})

			assert.Nil(t, res)
			assert.ErrorIs(t, err, models.ErrInvalidFormat)
			assert.Equal(t, 0, rig.verifier.Calls())
			assert.False(t, rig.sessions.Authenticated())
			assert.Equal(t, 0, rig.clock.Pending(), "no inactivity timer may be armed")
			assert.Equal(t, []string{"access_validation_invalid_format/failure"}, rig.sink.Actions())
		})
	}
}

func TestValidate_EmptyAttemptsDoNotConsumeRateLimit(t *testing.T) {
	rig := newPipelineRig(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := rig.pipeline.Validate(ctx, access.Attempt{Site: serialSite, Value: "", ClientKey: "v"})
		require.ErrorIs(t, err, models.ErrInvalidFormat)
	}

	_, err := rig.pipeline.Validate(ctx, access.Attempt{Site: serialSite, Value: "SN-000123", ClientKey: "v"})
	assert.ErrorIs(t, err, models.ErrInvalidCredential)
}

func TestValidate_InvalidFormatMessageFollowsMethod(t *testing.T) {
	rig := newPipelineRig(t)

	_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: serialSite, Value: "<>"})

	var attemptErr *access.AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.Equal(t, "Please enter a valid serial number.", attemptErr.Message)
}

func TestValidate_NonEmailMethodsSkipFormatCheck(t *testing.T) {
	rig := newPipelineRig(t)

	_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: serialSite, Value: "x"})

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
	assert.Equal(t, 1, rig.verifier.Calls())
}

func TestValidate_SanitizesBeforeVerifying(t *testing.T) {
	rig := newPipelineRig(t)
	var sent string
	rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
		sent = req.Value
		return &models.VerifyAccessResponse{Valid: false}, nil
	}

	_, _ = rig.pipeline.Validate(context.Background(), access.Attempt{Site: serialSite, Value: "<SN-1>onclick=x"})

	assert.Equal(t, "SN-1x", sent)
}

func TestValidate_InvalidCredentialUsesServerMessage(t *testing.T) {
	rig := newPipelineRig(t)
	rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
		return &models.VerifyAccessResponse{Valid: false, Error: "Employee not found"}, nil
	}

	_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: emailSite, Value: "bob@acme.com"})

	var attemptErr *access.AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.ErrorIs(t, err, models.ErrInvalidCredential)
	assert.Equal(t, "Employee not found", attemptErr.Message)
	assert.False(t, rig.sessions.Authenticated())
	assert.Empty(t, rig.storage.All())

	events := rig.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionAccessFailed, events[0].Action)
	assert.Equal(t, "Employee not found", events[0].Details["error"])
}

func TestValidate_InvalidCredentialGenericMessage(t *testing.T) {
	rig := newPipelineRig(t)

	_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: emailSite, Value: "bob@acme.com"})

	var attemptErr *access.AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.NotEmpty(t, attemptErr.Message)
}

func TestValidate_NetworkError(t *testing.T) {
	rig := newPipelineRig(t)
	transportErr := errors.New("dial tcp: connection refused")
	rig.verifier.VerifyAccessFunc = func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
		return nil, transportErr
	}

	_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: emailSite, Value: "bob@acme.com"})

	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, []string{"access_validation_error/failure"}, rig.accessActions())
	assert.Equal(t, transportErr.Error(), rig.sink.Events()[0].Details["error"])
}

func TestValidate_RateLimitedAfterMaxAttempts(t *testing.T) {
	rig := newPipelineRig(t)
	ctx := context.Background()
	attempt := access.Attempt{Site: emailSite, Value: "bob@acme.com", ClientKey: "visitor-1"}

	for i := 0; i < 5; i++ {
		_, err := rig.pipeline.Validate(ctx, attempt)
		require.ErrorIs(t, err, models.ErrInvalidCredential)
	}

	_, err := rig.pipeline.Validate(ctx, attempt)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 5, rig.verifier.Calls(), "rejected attempt must not reach the remote")

	var attemptErr *access.AttemptError
	require.ErrorAs(t, err, &attemptErr)
	assert.Equal(t, 15*time.Minute, attemptErr.RetryAfter)

	events := rig.sink.Events()
	last := events[len(events)-1]
	assert.Equal(t, models.ActionAccessRateLimit, last.Action)
	assert.Equal(t, 900, last.Details["retry_after_seconds"])

	// Another visitor is unaffected
	_, err = rig.pipeline.Validate(ctx, access.Attempt{Site: emailSite, Value: "bob@acme.com", ClientKey: "visitor-2"})
	assert.ErrorIs(t, err, models.ErrInvalidCredential)

	rig.clock.Advance(15 * time.Minute)
	_, err = rig.pipeline.Validate(ctx, attempt)
	assert.ErrorIs(t, err, models.ErrInvalidCredential, "window reset allows a new attempt")
}

func TestValidate_RateLimitCountsInvalidFormatAttempts(t *testing.T) {
	rig := newPipelineRig(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rig.pipeline.Validate(ctx, access.Attempt{Site: emailSite, Value: "nope"})
		require.ErrorIs(t, err, models.ErrInvalidFormat)
	}

	_, err := rig.pipeline.Validate(ctx, access.Attempt{Site: emailSite, Value: "nope"})
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestValidate_EachOutcomeEmitsExactlyOneEvent(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		verify func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error)
	}{
		{"format", "bad", nil},
		{"credential", "bob@acme.com", nil},
		{"network", "bob@acme.com", func(ctx context.Context, req models.VerifyAccessRequest) (*models.VerifyAccessResponse, error) {
			return nil, errors.New("timeout")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rig := newPipelineRig(t)
			rig.verifier.VerifyAccessFunc = tc.verify

			_, err := rig.pipeline.Validate(context.Background(), access.Attempt{Site: emailSite, Value: tc.value})

			assert.Error(t, err)
			assert.Len(t, rig.sink.Events(), 1)
		})
	}
}

func TestVerifyMagicLink_Success(t *testing.T) {
	rig := newPipelineRig(t)
	var sentToken string
	rig.verifier.VerifyMagicLinkFunc = func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
		sentToken = req.Token
		return &models.VerifyMagicLinkResponse{
			Valid:        true,
			SessionToken: "sess-ml",
			Employee:     &models.Employee{ID: "emp-9", Name: "Nina", Email: "nina@acme.com"},
			SiteID:       "site-1",
		}, nil
	}

	res, err := rig.pipeline.VerifyMagicLink(context.Background(), " tok-abc ", "visitor-1")

	require.NoError(t, err)
	assert.Equal(t, "tok-abc", sentToken)
	assert.Equal(t, "nina@acme.com", res.Identifier)
	assert.Equal(t, access.NextStepWelcome, res.Next)

	snap := rig.sessions.Snapshot()
	assert.Equal(t, "nina@acme.com", snap.Identifier)
	assert.Equal(t, "Nina", snap.User.Name)

	siteID, _ := rig.storage.Get(models.StorageKeySiteID)
	assert.Equal(t, "site-1", siteID)
	token, _ := rig.storage.Get(models.StorageKeySession)
	assert.Equal(t, "sess-ml", token)
	assert.Equal(t, []string{"magic_link_success/success"}, rig.accessActions())
}

func TestVerifyMagicLink_UnknownSiteRoutesToGiftSelection(t *testing.T) {
	rig := newPipelineRig(t)
	rig.verifier.VerifyMagicLinkFunc = func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
		return &models.VerifyMagicLinkResponse{
			Valid:    true,
			Employee: &models.Employee{ID: "e", Email: "e@acme.com"},
			SiteID:   "unknown",
		}, nil
	}

	res, err := rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")

	require.NoError(t, err)
	assert.Equal(t, access.NextStepGiftSelection, res.Next)
}

func TestVerifyMagicLink_Failures(t *testing.T) {
	t.Run("expired link", func(t *testing.T) {
		rig := newPipelineRig(t)
		rig.verifier.VerifyMagicLinkFunc = func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
			return &models.VerifyMagicLinkResponse{Valid: false, Error: "Link expired"}, nil
		}

		_, err := rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")

		var attemptErr *access.AttemptError
		require.ErrorAs(t, err, &attemptErr)
		assert.ErrorIs(t, err, models.ErrInvalidCredential)
		assert.Equal(t, "Link expired", attemptErr.Message)
		assert.Equal(t, []string{"magic_link_failed/failure"}, rig.accessActions())
	})

	t.Run("response without employee email", func(t *testing.T) {
		rig := newPipelineRig(t)
		rig.verifier.VerifyMagicLinkFunc = func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
			return &models.VerifyMagicLinkResponse{
				Valid:    true,
				SiteID:   emailSite.ID,
				Employee: &models.Employee{ID: "emp-9", Name: "No Mail", Email: "<>"},
			}, nil
		}

		res, err := rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")

		assert.Nil(t, res)
		assert.ErrorIs(t, err, models.ErrInvalidCredential)
		assert.False(t, rig.sessions.Authenticated())
		assert.Equal(t, 0, rig.clock.Pending())
		assert.Empty(t, rig.storage.All(), "nothing is persisted for a rejected link")
		assert.Equal(t, []string{"magic_link_failed/failure"}, rig.sink.Actions())
	})

	t.Run("transport failure", func(t *testing.T) {
		rig := newPipelineRig(t)
		rig.verifier.VerifyMagicLinkFunc = func(ctx context.Context, req models.VerifyMagicLinkRequest) (*models.VerifyMagicLinkResponse, error) {
			return nil, errors.New("502 bad gateway")
		}

		_, err := rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")

		assert.ErrorIs(t, err, models.ErrNetwork)
		assert.Equal(t, []string{"magic_link_error/failure"}, rig.accessActions())
	})

	t.Run("rate limited", func(t *testing.T) {
		rig := newPipelineRig(t)
		for i := 0; i < 5; i++ {
			_, _ = rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")
		}

		_, err := rig.pipeline.VerifyMagicLink(context.Background(), "tok", "v")

		assert.ErrorIs(t, err, models.ErrRateLimited)
		assert.Equal(t, 5, rig.verifier.Calls())
		actions := rig.accessActions()
		assert.Equal(t, "magic_link_rate_limit/failure", actions[len(actions)-1])
	})
}

func TestNextStepFor(t *testing.T) {
	assert.Equal(t, access.NextStepWelcome, access.NextStepFor(models.Site{WelcomePageEnabled: true}))
	assert.Equal(t, access.NextStepGiftSelection, access.NextStepFor(models.Site{}))
}

func TestAttemptError_Error(t *testing.T) {
	err := &access.AttemptError{Kind: models.ErrNetwork, Cause: errors.New("eof")}
	assert.Equal(t, "verification service unreachable: eof", err.Error())

	plain := &access.AttemptError{Kind: models.ErrInvalidFormat}
	assert.Equal(t, models.ErrInvalidFormat.Error(), plain.Error())
}
