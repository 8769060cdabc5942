// Package handler exposes the owner's audit trail, newest first.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/audit"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/transport/http/shared"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Service defines the audit read operations.
type Service interface {
	List(ctx context.Context, ownerID string) ([]audit.Event, error)
}

// Handler serves the audit routes.
type Handler struct {
	logger    *slog.Logger
	svc       Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates the audit Handler.
func New(svc Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		svc:       svc,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	au := chi.NewRouter()
	au.Use(middleware.Recovery(h.logger))
	au.Use(middleware.RequestID)
	au.Use(middleware.Logger(h.logger))
	au.Use(middleware.Timeout(10 * time.Second))
	au.Use(middleware.Latency(h.metrics))
	au.Use(middleware.RequireAuth(h.validator, h.logger))
	au.Get("/", h.handleList)

	r.Mount("/audit", au)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.OwnerID(ctx)
	if ownerID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	events, err := h.svc.List(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "events": events})
}
