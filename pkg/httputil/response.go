// Package httputil holds the JSON response and query-parameter helpers
// shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/glowcart/storefront-search/pkg/errors"
	"github.com/glowcart/storefront-search/pkg/logger"
	"github.com/glowcart/storefront-search/pkg/validator"
)

// ErrorBody is the JSON body of an error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes an ErrorBody. Server-side
// failures are logged with the request-scoped logger and their details are
// not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	body := ErrorBody{RequestID: logger.CorrelationIDFromContext(r.Context())}
	status := apperrors.HTTPStatus(err)

	var valErr *validator.ValidationError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &valErr):
		body.Code = "VALIDATION_ERROR"
		body.Error = valErr.Error()
		body.Fields = valErr.Fields()
	case errors.As(err, &appErr):
		body.Code = appErr.Code
		body.Error = appErr.Message
	default:
		body.Code = "INTERNAL_ERROR"
		body.Error = "an internal error occurred"
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), fallback).ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	}

	WriteJSON(w, status, body)
}

// QueryString returns the trimmed query parameter, or nil when it is absent
// or blank.
func QueryString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// QueryInt parses an integer query parameter, returning def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

// QueryFloat parses an optional decimal query parameter.
func QueryFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s must be a number", name))
	}
	return &f, nil
}

// QueryBool parses a boolean query parameter, returning false when absent.
func QueryBool(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.InvalidInput(fmt.Sprintf("%s must be true or false", name))
	}
	return b, nil
}
