// Package service implements registrant listing and manual record
// management over a Store. Dense numbering is owned here and by the sync
// reconciler; stores stay pure I/O.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"eventdesk/internal/audit"
	"eventdesk/internal/registration"
	"eventdesk/internal/registration/metrics"
	"eventdesk/internal/registration/store"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Service exposes the canonical registrant collection to handlers and the
// draw module.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
	coll    *collate.Collator
	now     func() time.Time
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

// WithMetrics sets the registration metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit sets the audit publisher. Mutations are audited; reads are not.
func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithClock sets the clock function for testability.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. The collator is locale-aware (pt-BR) so names
// with diacritics sort the way the list view expects.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("registrant store is required")
	}
	svc := &Service{
		store:  st,
		logger: slog.Default(),
		coll:   collate.New(language.BrazilianPortuguese, collate.IgnoreCase),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// List returns the owner's collection filtered and ordered per opts.
func (s *Service) List(ctx context.Context, ownerID string, opts registration.ListOptions) ([]registration.Registrant, error) {
	regs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrants")
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		regs = filterRegistrants(regs, q)
	}
	s.sortRegistrants(regs, opts)
	return regs, nil
}

func filterRegistrants(regs []registration.Registrant, query string) []registration.Registrant {
	q := strings.ToLower(query)
	out := regs[:0:0]
	for _, r := range regs {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Church), q) ||
			strings.Contains(strings.ToLower(r.District), q) ||
			strconv.Itoa(r.Number) == q {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) sortRegistrants(regs []registration.Registrant, opts registration.ListOptions) {
	less := func(a, b registration.Registrant) bool { return a.Number < b.Number }
	if opts.SortBy == registration.SortByName {
		less = func(a, b registration.Registrant) bool {
			if c := s.coll.CompareString(a.Name, b.Name); c != 0 {
				return c < 0
			}
			return a.Number < b.Number
		}
	}
	sort.SliceStable(regs, func(i, j int) bool {
		if opts.Descending {
			return less(regs[j], regs[i])
		}
		return less(regs[i], regs[j])
	})
}

// ManualInput carries user-entered fields for a manual registrant.
type ManualInput struct {
	Name           string `json:"name"`
	BirthDate      string `json:"birthDate"`
	Church         string `json:"church"`
	District       string `json:"district"`
	PhotoURL       string `json:"photoUrl"`
	WalkbandNumber string `json:"walkbandNumber"`
}

// CreateManual appends a manual registrant at the end of the owner's
// numbering. Manual records always carry StatusManual and no external ID.
func (s *Service) CreateManual(ctx context.Context, ownerID string, input ManualInput) (*registration.Registrant, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	regs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load collection")
	}

	number := len(regs) + 1
	reg := registration.Registrant{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Number:         number,
		Name:           input.Name,
		BirthDate:      input.BirthDate,
		Age:            ageFromBirthDate(input.BirthDate, s.now()),
		Church:         input.Church,
		District:       input.District,
		PhotoURL:       input.PhotoURL,
		PaymentStatus:  registration.StatusManual,
		IsManual:       true,
		WalkbandNumber: input.WalkbandNumber,
		CreatedAt:      s.now(),
	}
	if reg.WalkbandNumber == "" {
		reg.WalkbandNumber = strconv.Itoa(number)
	}

	if err := s.store.Insert(ctx, reg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registrant")
	}
	s.metrics.IncManualMutation("create")
	s.emitAudit(ctx, ownerID, "registrant.create", reg.Name)
	s.logger.InfoContext(ctx, "manual registrant created",
		"request_id", requestcontext.RequestID(ctx),
		"number", reg.Number,
	)
	return &reg, nil
}

// UpdateManual edits a manual registrant. Externally-synced records are
// owned by the reconciliation pass and reject direct edits.
func (s *Service) UpdateManual(ctx context.Context, ownerID, id string, input ManualInput) (*registration.Registrant, error) {
	reg, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, dErrors.New(dErrors.CodeNotFound, "registrant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrant")
	}
	if !reg.IsManual {
		return nil, dErrors.New(dErrors.CodeConflict, "externally-synced registrants cannot be edited")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	reg.Name = input.Name
	reg.BirthDate = input.BirthDate
	reg.Age = ageFromBirthDate(input.BirthDate, s.now())
	reg.Church = input.Church
	reg.District = input.District
	reg.PhotoURL = input.PhotoURL
	if input.WalkbandNumber != "" {
		reg.WalkbandNumber = input.WalkbandNumber
	}

	if err := s.store.Update(ctx, *reg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registrant")
	}
	s.metrics.IncManualMutation("update")
	s.emitAudit(ctx, ownerID, "registrant.update", reg.Name)
	return reg, nil
}

// Delete removes one registrant and closes the numbering gap by renumbering
// the remainder densely, preserving order.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		if err == store.ErrNotFound {
			return dErrors.New(dErrors.CodeNotFound, "registrant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registrant")
	}

	regs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to renumber collection")
	}
	for i := range regs {
		regs[i].Number = i + 1
		regs[i].WalkbandNumber = strconv.Itoa(i + 1)
	}
	if err := s.store.ReplaceAll(ctx, ownerID, regs); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to renumber collection")
	}
	s.metrics.IncManualMutation("delete")
	s.emitAudit(ctx, ownerID, "registrant.delete", id)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, ownerID, action, detail string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		OwnerID: ownerID,
		Action:  action,
		Outcome: audit.OutcomeSuccess,
		Detail:  detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}
}

// ageFromBirthDate computes full years between a YYYY-MM-DD birth date and
// now. Unparseable input yields zero rather than an error.
func ageFromBirthDate(birthDate string, now time.Time) int {
	born, err := time.Parse("2006-01-02", strings.TrimSpace(birthDate))
	if err != nil {
		return 0
	}
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
