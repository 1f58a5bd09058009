package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!"

func TestVisitorTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewVisitorTokenManager(testSecret, time.Hour, nil)

	token, id, err := tm.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.VisitorID)
	assert.Equal(t, "visitor", claims.Type)
	assert.Equal(t, 3600, tm.MaxAge())
}

func TestVisitorTokenManager_RejectsExpired(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tm := NewVisitorTokenManager(testSecret, time.Hour, fc)

	token, _, err := tm.Issue()
	require.NoError(t, err)

	fc.Advance(2 * time.Hour)
	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestVisitorTokenManager_RejectsForeignSignature(t *testing.T) {
	other := NewVisitorTokenManager("another-secret-32-characters-xx", time.Hour, nil)
	token, _, err := other.Issue()
	require.NoError(t, err)

	tm := NewVisitorTokenManager(testSecret, time.Hour, nil)
	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestVisitorTokenManager_RejectsWrongType(t *testing.T) {
	claims := &VisitorClaims{
		Type:      "access",
		VisitorID: "v1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tm := NewVisitorTokenManager(testSecret, time.Hour, nil)
	_, err = tm.Validate(token)
	assert.Error(t, err)
}

func TestVisitorMiddleware(t *testing.T) {
	tm := NewVisitorTokenManager(testSecret, time.Hour, nil)
	cookies := CookieConfig{SameSite: "strict"}

	var seen string
	handler := VisitorMiddleware(tm, cookies, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetVisitorID(r)
	}))

	t.Run("issues cookie for new visitor", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		require.NotEmpty(t, seen)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, VisitorCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	})

	t.Run("reuses valid cookie", func(t *testing.T) {
		token, id, err := tm.Issue()
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/cart", nil)
		r.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: token})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, id, seen)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("replaces tampered cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/cart", nil)
		r.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "garbage"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.NotEmpty(t, seen)
		assert.Len(t, w.Result().Cookies(), 1)
	})
}

func TestVisitorTokenManager_RefreshKeepsVisitorID(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tm := NewVisitorTokenManager(testSecret, time.Hour, fc)

	token, id, err := tm.Issue()
	require.NoError(t, err)
	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.False(t, tm.NeedsRefresh(claims))

	fc.Advance(31 * time.Minute)
	assert.True(t, tm.NeedsRefresh(claims))

	refreshed, err := tm.Refresh(id)
	require.NoError(t, err)

	fc.Advance(45 * time.Minute)
	_, err = tm.Validate(token)
	assert.Error(t, err, "original token has expired")

	claims, err = tm.Validate(refreshed)
	require.NoError(t, err)
	assert.Equal(t, id, claims.VisitorID)
}

func TestVisitorMiddleware_SlidesCookie(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tm := NewVisitorTokenManager(testSecret, time.Hour, fc)

	var seen string
	var isNew bool
	handler := VisitorMiddleware(tm, CookieConfig{}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetVisitorID(r)
		isNew = IsNewVisitor(r)
	}))

	serve := func(method, token string) *http.Cookie {
		r := httptest.NewRequest(method, "/cart", nil)
		if token != "" {
			r.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: token})
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		for _, c := range w.Result().Cookies() {
			if c.Name == VisitorCookieName {
				return c
			}
		}
		return nil
	}

	first := serve(http.MethodGet, "")
	require.NotNil(t, first)
	assert.True(t, isNew)
	id := seen

	t.Run("state-changing request re-signs cookie", func(t *testing.T) {
		fc.Advance(10 * time.Minute)
		c := serve(http.MethodPost, first.Value)
		require.NotNil(t, c)
		assert.Equal(t, id, seen)
		assert.False(t, isNew)
		assert.Equal(t, 3600, c.MaxAge)
		first = c
	})

	t.Run("fresh cookie is left alone on reads", func(t *testing.T) {
		fc.Advance(10 * time.Minute)
		assert.Nil(t, serve(http.MethodGet, first.Value))
		assert.Equal(t, id, seen)
	})

	t.Run("read past half lifetime re-signs cookie", func(t *testing.T) {
		fc.Advance(25 * time.Minute)
		c := serve(http.MethodGet, first.Value)
		require.NotNil(t, c)
		assert.Equal(t, id, seen)
		first = c
	})

	t.Run("visitor stays the same well past one lifetime", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			fc.Advance(20 * time.Minute)
			c := serve(http.MethodPost, first.Value)
			require.NotNil(t, c)
			first = c
			assert.Equal(t, id, seen)
			assert.False(t, isNew)
		}
	})
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteDefaultMode, parseSameSite(""))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
