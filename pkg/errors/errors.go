// Package errors defines the error taxonomy shared by the catalog, index and
// sync layers and its mapping onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Callers branch on them with errors.Is.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConnectivity      = errors.New("search index unreachable")
	ErrIndexUnavailable  = errors.New("search index unavailable")
	// ErrPartialBulk accompanies a result listing the failed items; the
	// succeeded items stay written.
	ErrPartialBulk = errors.New("bulk operation partially failed")
)

// AppError is an error with a stable code, a caller-facing message and the
// HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, sentinel error, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound reports a missing catalog product or index document.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND", http.StatusNotFound, ErrNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists reports a create on something that exists.
func AlreadyExists(resource, name string) *AppError {
	return newAppError("ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists,
		fmt.Sprintf("%s %q already exists", resource, name))
}

// AlreadyInProgress reports an operation whose exclusive lock is held.
func AlreadyInProgress(operation string) *AppError {
	return newAppError("ALREADY_IN_PROGRESS", http.StatusConflict, ErrAlreadyInProgress,
		fmt.Sprintf("%s is already in progress", operation))
}

// InvalidInput reports a missing or malformed argument.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, message)
}

// Connectivity reports an unreachable search backend. The cause stays
// reachable through errors.Is and errors.As.
func Connectivity(err error) *AppError {
	return newAppError("INDEX_UNREACHABLE", http.StatusServiceUnavailable,
		errors.Join(ErrConnectivity, err), "search index is unreachable")
}

// IndexUnavailable reports a search index that does not exist.
func IndexUnavailable(index string) *AppError {
	return newAppError("INDEX_UNAVAILABLE", http.StatusServiceUnavailable, ErrIndexUnavailable,
		fmt.Sprintf("search index %q is unavailable", index))
}

// HTTPStatus returns the HTTP status code for err. Errors outside the
// taxonomy, including ErrPartialBulk, map to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConnectivity), errors.Is(err, ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
