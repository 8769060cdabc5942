// Package handler exposes the external-source gateway: one POST route
// carrying the action vocabulary and one GET route reporting the last run.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/extsource"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/reconcile"
	"eventdesk/internal/registration"
	"eventdesk/internal/transport/http/shared"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Gateway actions. An empty or unknown-free request defaults to a full
// fetch-and-reconcile run.
const (
	ActionListTables = "list-tables"
	ActionDescribe   = "describe"
	ActionEvents     = "events"
	ActionReconcile  = "reconcile"
)

// Service defines the reconciliation operations the gateway fronts.
type Service interface {
	Run(ctx context.Context, ownerID string, filter extsource.Filter) (reconcile.Result, error)
	LastRun(ownerID string) reconcile.Result
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]extsource.Column, error)
	Events(ctx context.Context) ([]extsource.Event, error)
}

// StatusList accepts either a JSON array of statuses or one comma-separated
// string, normalizing both into canonical payment statuses.
type StatusList []registration.PaymentStatus

func (l *StatusList) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return errors.New("statuses must be an array or a comma-separated string")
		}
		raw = strings.Split(joined, ",")
	}

	out := make(StatusList, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.EqualFold(s, "ALL") {
			out = append(out, registration.PaymentStatus("ALL"))
			continue
		}
		out = append(out, registration.MapExternalStatus(s))
	}
	*l = out
	return nil
}

type actionRequest struct {
	Action   string     `json:"action"`
	Table    string     `json:"table"`
	EventID  string     `json:"eventId"`
	Statuses StatusList `json:"statuses"`
}

// Handler serves the gateway routes.
type Handler struct {
	logger    *slog.Logger
	svc       Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates the gateway Handler.
func New(svc Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		svc:       svc,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the gateway routes with the chi router. The timeout is
// generous: a full reconcile run fetches up to the row cap from a remote
// source.
func (h *Handler) Register(r chi.Router) {
	gw := chi.NewRouter()
	gw.Use(middleware.Recovery(h.logger))
	gw.Use(middleware.RequestID)
	gw.Use(middleware.Logger(h.logger))
	gw.Use(middleware.Timeout(5 * time.Minute))
	gw.Use(middleware.ContentTypeJSON)
	gw.Use(middleware.Latency(h.metrics))
	gw.Use(middleware.RequireAuth(h.validator, h.logger))
	gw.Post("/", h.handleAction)
	gw.Get("/status", h.handleStatus)

	r.Mount("/sync", gw)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ownerID := requestcontext.OwnerID(ctx)
	if ownerID == "" {
		h.logger.ErrorContext(ctx, "owner missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WarnContext(ctx, "invalid gateway request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	switch req.Action {
	case ActionListTables:
		tables, err := h.svc.ListTables(ctx)
		if err != nil {
			h.writeActionError(ctx, w, req.Action, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "tables": tables})

	case ActionDescribe:
		cols, err := h.svc.DescribeTable(ctx, req.Table)
		if err != nil {
			h.writeActionError(ctx, w, req.Action, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "table": req.Table, "columns": cols})

	case ActionEvents:
		events, err := h.svc.Events(ctx)
		if err != nil {
			h.writeActionError(ctx, w, req.Action, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "events": events})

	case "", ActionReconcile:
		res, err := h.svc.Run(ctx, ownerID, extsource.Filter{
			EventID:  req.EventID,
			Statuses: req.Statuses,
		})
		if err != nil {
			h.writeActionError(ctx, w, ActionReconcile, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})

	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown action: "+req.Action))
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.OwnerID(ctx)
	if ownerID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "result": h.svc.LastRun(ownerID)})
}

func (h *Handler) writeActionError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	h.logger.ErrorContext(ctx, "gateway action failed",
		"request_id", requestcontext.RequestID(ctx),
		"action", action,
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
