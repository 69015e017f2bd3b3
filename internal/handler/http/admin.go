package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/glowcart/storefront-search/internal/domain"
	"github.com/glowcart/storefront-search/internal/indexsync"
	apperrors "github.com/glowcart/storefront-search/pkg/errors"
	"github.com/glowcart/storefront-search/pkg/httputil"
	"github.com/glowcart/storefront-search/pkg/logger"
	"github.com/glowcart/storefront-search/pkg/validator"
)

// Syncer runs admin synchronization actions.
type Syncer interface {
	Execute(ctx context.Context, req indexsync.Request) (*domain.SyncResult, error)
	Status(ctx context.Context) (*domain.SyncStatus, error)
}

// AdminHandler handles the admin sync endpoints.
type AdminHandler struct {
	syncer Syncer
	logger *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(syncer Syncer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{syncer: syncer, logger: logger}
}

// Status handles GET /api/v1/admin/sync
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncer.Status(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// Sync handles POST /api/v1/admin/sync
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req indexsync.Request
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.syncer.Execute(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrPartialBulk) && result != nil {
			logger.FromContext(r.Context(), h.logger).WarnContext(r.Context(), "sync partially failed",
				slog.String("action", req.Action),
				slog.Int("failed", len(result.Failed)),
			)
			result.Success = false
			httputil.WriteJSON(w, http.StatusOK, result)
			return
		}
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// fail writes {success: false, message} with the status mapped from err.
// Admin callers get the underlying message, including for server errors.
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), h.logger).ErrorContext(r.Context(), "sync failed",
			slog.String("error", err.Error()),
		)
	}

	msg := err.Error()
	if status < http.StatusInternalServerError {
		msg = errorMessage(err)
	}
	httputil.WriteJSON(w, status, domain.SyncResult{Success: false, Message: msg})
}
