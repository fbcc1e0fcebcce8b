// Package errors writes the JSON error bodies every API handler returns:
//
//	{ "error": "workspace not found" }
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes {"error": msg} with the given status.
func Write(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

func BadRequest(w http.ResponseWriter, msg string) { Write(w, http.StatusBadRequest, msg) }
func Forbidden(w http.ResponseWriter, msg string)  { Write(w, http.StatusForbidden, msg) }
func NotFound(w http.ResponseWriter, msg string)   { Write(w, http.StatusNotFound, msg) }
func Conflict(w http.ResponseWriter, msg string)   { Write(w, http.StatusConflict, msg) }

// Unauthorized writes the 401 body.
func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, "unauthorized")
}

// RouteNotFound is the router's NotFound handler.
func RouteNotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "not found")
}

// MethodNotAllowed is the router's MethodNotAllowed handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Write(w, http.StatusMethodNotAllowed, "method not allowed")
}

// ErrorLogger logs unexpected failures with request context and answers
// with a generic 500.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogServerError logs err and writes a 500 whose body never leaks err.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	e.log.Error(msg, fields...)
	Write(w, http.StatusInternalServerError, "internal error")
}
