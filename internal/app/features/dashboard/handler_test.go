package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/onepager/internal/app/features/dashboard"
	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeSessions struct {
	view        session.SessionView
	peeked      bool
	refreshed   int
	invalidated []swrcache.Mask
}

func (f *fakeSessions) SessionData(context.Context, string) session.SessionView { return f.view }

func (f *fakeSessions) PeekSessionData(context.Context, string) session.SessionView {
	f.peeked = true
	return session.SessionView{Session: session.Empty(), Loading: true}
}

func (f *fakeSessions) RefreshSession(ctx context.Context, _ string) session.SessionView {
	f.refreshed++
	return f.view
}

func (f *fakeSessions) WorkspaceFrom(_ context.Context, v session.SessionView) session.WorkspaceView {
	out := session.WorkspaceView{Workspace: v.Session.Workspace, Loading: v.Loading}
	if v.Session.Membership != nil {
		out.Role = v.Session.Membership.Role
	}
	return out
}

func (f *fakeSessions) Invalidate(_ string, scope swrcache.Mask) {
	f.invalidated = append(f.invalidated, scope)
}

type fakeMemberships struct {
	rows []models.WorkspaceRole
}

func (f fakeMemberships) ListForUser(_ context.Context, _ primitive.ObjectID, only *primitive.ObjectID, _ int64) ([]models.WorkspaceRole, error) {
	var out []models.WorkspaceRole
	for _, r := range f.rows {
		if only == nil || r.Workspace.ID == *only {
			out = append(out, r)
		}
	}
	return out, nil
}

func row(slug, role string) models.WorkspaceRole {
	ws := models.Workspace{ID: primitive.NewObjectID(), Slug: slug, Name: slug}
	return models.WorkspaceRole{Workspace: ws, Membership: models.Membership{WorkspaceID: ws.ID, Role: role}}
}

func newHandler(sessions *fakeSessions, rows ...models.WorkspaceRole) *dashboard.Handler {
	resolver := workspace.NewResolver(fakeMemberships{rows: rows}, zap.NewNop())
	return dashboard.NewHandler(sessions, resolver, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
}

func signedIn(r *http.Request, email string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Email: email})
}

func TestServeSession_RequiresUser(t *testing.T) {
	h := newHandler(&fakeSessions{})
	rec := httptest.NewRecorder()
	h.ServeSession(rec, httptest.NewRequest("GET", "/api/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeSession_NoWaitPeeks(t *testing.T) {
	sessions := &fakeSessions{}
	h := newHandler(sessions)
	rec := httptest.NewRecorder()
	h.ServeSession(rec, signedIn(httptest.NewRequest("GET", "/api/session?nowait=1", nil), ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sessions.peeked)

	var body struct {
		Session struct {
			Workspaces []json.RawMessage `json:"workspaces"`
			Workspace  *json.RawMessage  `json:"workspace"`
		} `json:"session"`
		Loading bool `json:"loading"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Loading)
	assert.Nil(t, body.Session.Workspace)
	assert.NotNil(t, body.Session.Workspaces, "workspaces must encode as [] not null")
}

func TestServeProfile_FallsBackToSessionEmail(t *testing.T) {
	h := newHandler(&fakeSessions{view: session.SessionView{Session: session.Empty()}})
	rec := httptest.NewRecorder()
	h.ServeProfile(rec, signedIn(httptest.NewRequest("GET", "/api/session/profile", nil), "kim@example.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	var got session.ProfileView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "kim", got.Name)
	assert.Equal(t, "kim@example.com", got.Email)
	assert.Equal(t, "", got.Avatar)
}

func TestHandleInvalidate(t *testing.T) {
	sessions := &fakeSessions{}
	h := newHandler(sessions)

	rec := httptest.NewRecorder()
	h.HandleInvalidate(rec, signedIn(httptest.NewRequest("POST", "/api/session/invalidate?scope=profile", nil), ""))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []swrcache.Mask{session.ScopeProfile}, sessions.invalidated)

	rec = httptest.NewRecorder()
	h.HandleInvalidate(rec, signedIn(httptest.NewRequest("POST", "/api/session/invalidate?scope=billing", nil), ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSwitchWorkspace(t *testing.T) {
	w1, w2 := row("w1", models.RoleOwner), row("w2", models.RoleAgent)
	sessions := &fakeSessions{view: session.SessionView{Session: models.SessionAggregate{
		Workspace: &w1.Workspace, Membership: &w1.Membership, Workspaces: []models.WorkspaceRole{w2, w1},
	}}}
	h := newHandler(sessions, w2, w1)

	prefs := preference.New(preference.NewMemoryStorage(), zap.NewNop())
	req := httptest.NewRequest("POST", "/api/session/workspace", strings.NewReader(`{"workspace_id":"`+w1.Workspace.ID.Hex()+`"}`))
	req = signedIn(req.WithContext(preference.WithStore(req.Context(), prefs)), "")

	rec := httptest.NewRecorder()
	h.HandleSwitchWorkspace(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, w1.Workspace.ID.Hex(), prefs.PreferredWorkspace())
	assert.Equal(t, 1, sessions.refreshed)

	var got struct {
		Workspace struct {
			Slug string `json:"slug"`
		} `json:"workspace"`
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "w1", got.Workspace.Slug)
	assert.Equal(t, models.RoleOwner, got.Role)
}

func TestHandleSwitchWorkspace_NotAMember(t *testing.T) {
	mine := row("mine", models.RoleOwner)
	sessions := &fakeSessions{}
	h := newHandler(sessions, mine)

	prefs := preference.New(preference.NewMemoryStorage(), zap.NewNop())
	prefs.SetPreferredWorkspace(mine.Workspace.ID.Hex())
	req := httptest.NewRequest("POST", "/api/session/workspace", strings.NewReader(`{"workspace_id":"`+primitive.NewObjectID().Hex()+`"}`))
	req = signedIn(req.WithContext(preference.WithStore(req.Context(), prefs)), "")

	rec := httptest.NewRecorder()
	h.HandleSwitchWorkspace(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, mine.Workspace.ID.Hex(), prefs.PreferredWorkspace(), "failed switch must not touch the preference")
	assert.Equal(t, 0, sessions.refreshed)
}

func TestHandleSwitchWorkspace_BadBody(t *testing.T) {
	h := newHandler(&fakeSessions{})
	for _, body := range []string{``, `{}`, `{"workspace_id":"nope"}`} {
		rec := httptest.NewRecorder()
		h.HandleSwitchWorkspace(rec, signedIn(httptest.NewRequest("POST", "/api/session/workspace", strings.NewReader(body)), ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRoutes_RefreshIsLimited(t *testing.T) {
	sessions := &fakeSessions{view: session.SessionView{Session: session.Empty()}}
	h := newHandler(sessions)
	h.RefreshLimit = func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uierrors.Write(w, http.StatusTooManyRequests, "slow down")
		})
	}
	router := dashboard.Routes(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedIn(httptest.NewRequest("POST", "/refresh", nil), ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, sessions.refreshed)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signedIn(httptest.NewRequest("GET", "/", nil), ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}
