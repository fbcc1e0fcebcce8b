package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body %q", rec.Body.String())
	return body.Error
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.Conflict(rec, "plan limit reached")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "plan limit reached", decodeError(t, rec))
}

func TestLogServerError_HidesCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/session", nil)
	el.LogServerError(rec, req, "session read failed", stderrors.New("mongo: secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail", "response body leaked the underlying error")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/api/session", logs.All()[0].ContextMap()["path"])
}
