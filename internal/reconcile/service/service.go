// Package service orchestrates the fetch-and-reconcile flow against the
// external source: connect, introspect, fetch, merge, persist. One run per
// explicit caller action; mutual exclusion between sessions is cooperative
// (last writer wins), not enforced here.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventdesk/internal/audit"
	"eventdesk/internal/extsource"
	"eventdesk/internal/reconcile"
	"eventdesk/internal/reconcile/metrics"
	"eventdesk/internal/registration"
	regstore "eventdesk/internal/registration/store"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Connector opens a verified connection to the external source. Injected so
// tests can supply a stub database.
type Connector func(ctx context.Context, dsn string) (*sql.DB, error)

// Service runs reconciliation and the read-only gateway actions against the
// external source.
type Service struct {
	sourceDSN string
	fetcher   *extsource.Fetcher
	events    *extsource.EventLister
	store     regstore.Store
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	connect   Connector

	mu      sync.Mutex
	lastRun map[string]reconcile.Result
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the reconciliation metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit sets the audit publisher.
func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithConnector overrides how external connections are opened.
func WithConnector(connect Connector) Option {
	return func(s *Service) {
		if connect != nil {
			s.connect = connect
		}
	}
}

// WithEventLister sets the upstream event lister.
func WithEventLister(events *extsource.EventLister) Option {
	return func(s *Service) {
		s.events = events
	}
}

// New constructs a Service.
func New(sourceDSN string, fetcher *extsource.Fetcher, store regstore.Store, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("registrant store is required")
	}
	svc := &Service{
		sourceDSN: sourceDSN,
		fetcher:   fetcher,
		store:     store,
		logger:    slog.Default(),
		tracer:    otel.Tracer("eventdesk/reconcile"),
		connect:   extsource.Connect,
		lastRun:   make(map[string]reconcile.Result),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.events == nil {
		svc.events = extsource.NewEventLister(nil, svc.logger)
	}
	return svc, nil
}

// LastRun reports the most recent run result for the owner, StateIdle when
// none has happened in this process.
func (s *Service) LastRun(ownerID string) reconcile.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.lastRun[ownerID]; ok {
		return res
	}
	return reconcile.Result{State: reconcile.StateIdle}
}

func (s *Service) setLastRun(ownerID string, res reconcile.Result) {
	s.mu.Lock()
	s.lastRun[ownerID] = res
	s.mu.Unlock()
}

// Run executes one full fetch-and-reconcile pass for the owner. Any failure
// aborts the run with a zero count; the caller must re-invoke from scratch.
func (s *Service) Run(ctx context.Context, ownerID string, filter extsource.Filter) (reconcile.Result, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.run")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	fail := func(state reconcile.RunState, err error) (reconcile.Result, error) {
		span.RecordError(err)
		s.metrics.IncRun(audit.OutcomeFailure)
		res := reconcile.Result{State: reconcile.StateFailed, Error: err.Error()}
		s.setLastRun(ownerID, res)
		s.emitAudit(ctx, ownerID, audit.OutcomeFailure, err.Error(), 0)
		s.logger.ErrorContext(ctx, "reconciliation failed",
			"request_id", requestID,
			"phase", string(state),
			"error", err.Error(),
		)
		return res, err
	}

	// CONNECTING: the connection is per-run and closed on every exit path.
	start := time.Now()
	db, err := s.connect(ctx, s.sourceDSN)
	if err != nil {
		return fail(reconcile.StateConnecting, err)
	}
	defer db.Close()
	s.metrics.ObservePhase("connect", time.Since(start))

	// FETCHING: schema discovery (INTROSPECTING) happens inside the fetcher
	// and shares its failure mode.
	start = time.Now()
	external, err := s.fetcher.Fetch(ctx, db, filter)
	if err != nil {
		return fail(reconcile.StateFetching, err)
	}
	s.metrics.ObservePhase("fetch", time.Since(start))
	s.metrics.ObserveFetchedRows(len(external))
	span.SetAttributes(attribute.Int("external.count", len(external)))

	// MERGING: preserve manual records, renumber everything densely, and
	// swap both subsets in one store transaction.
	start = time.Now()
	current, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return fail(reconcile.StateMerging, dErrors.Wrap(err, dErrors.CodeInternal, "load current collection"))
	}
	manual := make([]registration.Registrant, 0, len(current))
	for _, reg := range current {
		if reg.IsManual {
			manual = append(manual, reg)
		}
	}

	merged := reconcile.Merge(ownerID, external, manual)
	if err := s.store.ReplaceAll(ctx, ownerID, merged); err != nil {
		return fail(reconcile.StateMerging, dErrors.Wrap(err, dErrors.CodeInternal, "replace collection"))
	}
	s.metrics.ObservePhase("merge", time.Since(start))

	res := reconcile.Result{
		State:         reconcile.StateDone,
		ExternalCount: len(external),
		ManualCount:   len(manual),
		Total:         len(merged),
	}
	s.setLastRun(ownerID, res)
	s.metrics.IncRun(audit.OutcomeSuccess)
	s.emitAudit(ctx, ownerID, audit.OutcomeSuccess, "", res.Total)
	s.logger.InfoContext(ctx, "reconciliation finished",
		"request_id", requestID,
		"external_count", res.ExternalCount,
		"manual_count", res.ManualCount,
	)
	return res, nil
}

func (s *Service) emitAudit(ctx context.Context, ownerID, outcome, detail string, count int) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		OwnerID: ownerID,
		Action:  "reconcile",
		Outcome: outcome,
		Detail:  detail,
		Count:   count,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}
}

// ListTables exposes the external table listing for the gateway vocabulary.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.connect(ctx, s.sourceDSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return extsource.ListTables(ctx, db)
}

// DescribeTable exposes column introspection for the gateway vocabulary.
func (s *Service) DescribeTable(ctx context.Context, table string) ([]extsource.Column, error) {
	if table == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "table is required")
	}
	db, err := s.connect(ctx, s.sourceDSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return extsource.DescribeTable(ctx, db, table)
}

// Events lists upstream events; an external source without an events table
// yields an empty list, not an error.
func (s *Service) Events(ctx context.Context) ([]extsource.Event, error) {
	db, err := s.connect(ctx, s.sourceDSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return s.events.List(ctx, db, s.sourceDSN)
}
