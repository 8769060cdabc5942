// Package handler exposes the canonical registrant collection: list with
// search and ordering, manual record management, and the team draw.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/draw"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/registration"
	"eventdesk/internal/registration/service"
	"eventdesk/internal/transport/http/shared"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Service defines the registrant operations the handler fronts.
type Service interface {
	List(ctx context.Context, ownerID string, opts registration.ListOptions) ([]registration.Registrant, error)
	CreateManual(ctx context.Context, ownerID string, input service.ManualInput) (*registration.Registrant, error)
	UpdateManual(ctx context.Context, ownerID, id string, input service.ManualInput) (*registration.Registrant, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Handler serves the registrant routes.
type Handler struct {
	logger    *slog.Logger
	svc       Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates the registrant Handler.
func New(svc Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		svc:       svc,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the registrant routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	reg := chi.NewRouter()
	reg.Use(middleware.Recovery(h.logger))
	reg.Use(middleware.RequestID)
	reg.Use(middleware.Logger(h.logger))
	reg.Use(middleware.Timeout(30 * time.Second))
	reg.Use(middleware.ContentTypeJSON)
	reg.Use(middleware.Latency(h.metrics))
	reg.Use(middleware.RequireAuth(h.validator, h.logger))
	reg.Get("/", h.handleList)
	reg.Post("/", h.handleCreate)
	reg.Put("/{id}", h.handleUpdate)
	reg.Delete("/{id}", h.handleDelete)
	reg.Post("/draw", h.handleDraw)

	r.Mount("/registrants", reg)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	opts := registration.ListOptions{
		Search:     r.URL.Query().Get("search"),
		Descending: strings.EqualFold(r.URL.Query().Get("order"), "desc"),
	}
	switch strings.ToLower(r.URL.Query().Get("sortBy")) {
	case "", "number":
		opts.SortBy = registration.SortByNumber
	case "name":
		opts.SortBy = registration.SortByName
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "sortBy must be number or name"))
		return
	}

	regs, err := h.svc.List(ctx, ownerID, opts)
	if err != nil {
		h.logError(ctx, "failed to list registrants", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "registrants": regs})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	var input service.ManualInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.CreateManual(ctx, ownerID, input)
	if err != nil {
		h.logError(ctx, "failed to create registrant", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "registrant": reg})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	var input service.ManualInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.UpdateManual(ctx, ownerID, chi.URLParam(r, "id"), input)
	if err != nil {
		h.logError(ctx, "failed to update registrant", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "registrant": reg})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx, ownerID, chi.URLParam(r, "id")); err != nil {
		h.logError(ctx, "failed to delete registrant", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type drawRequest struct {
	Teams int   `json:"teams"`
	Seed  int64 `json:"seed"`
}

// handleDraw deals the eligible registrants into teams. The seed is optional
// and defaults to the current time, so repeated draws differ unless the
// caller pins one.
func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	regs, err := h.svc.List(ctx, ownerID, registration.ListOptions{})
	if err != nil {
		h.logError(ctx, "failed to load registrants for draw", err)
		shared.WriteError(w, err)
		return
	}

	teams, err := draw.Assign(regs, req.Teams, req.Seed)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "teams": teams, "seed": req.Seed})
}

func (h *Handler) owner(ctx context.Context, w http.ResponseWriter) (string, bool) {
	ownerID := requestcontext.OwnerID(ctx)
	if ownerID == "" {
		h.logger.ErrorContext(ctx, "owner missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return ownerID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
