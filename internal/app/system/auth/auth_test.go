package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	_, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop())
	assert.Error(t, err)
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequireSignedIn_WithUser_Passes(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/api/session", nil), &auth.SessionUser{ID: "u1"})
	rec := httptest.NewRecorder()
	auth.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignIn_ThenLoadSessionUser(t *testing.T) {
	sm := newTestSessionManager(t)

	signIn := httptest.NewRecorder()
	err := sm.SignIn(signIn, httptest.NewRequest("GET", "/", nil), auth.SessionUser{
		ID:    "65f000000000000000000001",
		Name:  "Ada Agent",
		Email: "ada@example.com",
	})
	require.NoError(t, err)
	cookies := signIn.Result().Cookies()
	require.Len(t, cookies, 1)

	var got *auth.SessionUser
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/session", nil)
	req.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got, "expected user in context")
	assert.Equal(t, "65f000000000000000000001", got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestLoadSessionUser_NoCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	found := true
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.False(t, found, "expected no user without a session cookie")
}

func TestLoadSessionUser_ForeignKeyIgnored(t *testing.T) {
	other, err := auth.NewSessionManager("another-session-key-that-is-32-chars!", "test-session", "", time.Hour, false, zap.NewNop())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, other.SignIn(rec, httptest.NewRequest("GET", "/", nil), auth.SessionUser{ID: "u1"}))

	sm := newTestSessionManager(t)
	found := true
	handler := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, found, "a cookie signed with another key must be ignored")
}
