package extsource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"eventdesk/internal/registration"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/requestcontext"
)

// Fetcher reads registrations from a live external connection and reshapes
// rows into canonical Records. It holds no connection itself; callers pass
// the per-invocation Querier.
type Fetcher struct {
	mediaBaseURL string
	logger       *slog.Logger
}

// NewFetcher constructs a Fetcher. mediaBaseURL is the single canonical base
// every photo URL is rewritten onto.
func NewFetcher(mediaBaseURL string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"), logger: logger}
}

// Fetch discovers the registration schema, loads the reference lookups, and
// returns at most MaxRows records ordered by external creation time
// ascending. Any query error aborts the whole fetch; partial results are
// never returned.
func (f *Fetcher) Fetch(ctx context.Context, q Querier, filter Filter) ([]Record, error) {
	schema, err := DiscoverRegistrationSchema(ctx, q)
	if err != nil {
		return nil, err
	}

	lookups, err := f.loadLookups(ctx, q, schema)
	if err != nil {
		return nil, err
	}

	query, args := f.buildQuery(ctx, schema, filter)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query external registrations")
	}
	defer rows.Close()

	selected := selectedColumns(schema)
	records := make([]Record, 0, 64)
	for rows.Next() {
		dest := make([]any, len(selected))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan external registration")
		}
		values := make(map[string]any, len(selected))
		for i, field := range selected {
			values[field] = *(dest[i].(*any))
		}
		records = append(records, f.buildRecord(values, lookups))
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read external registrations")
	}
	return records, nil
}

// lookupData holds the fully-loaded reference tables. Bounded by external
// data size; acceptable because these are small reference tables.
type lookupData struct {
	districts map[string]string
	churches  map[string]string
	lots      map[string]Lot
}

func (f *Fetcher) loadLookups(ctx context.Context, q Querier, schema *RegistrationSchema) (*lookupData, error) {
	data := &lookupData{
		districts: map[string]string{},
		churches:  map[string]string{},
		lots:      map[string]Lot{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if schema.Lookups.District != "" {
		g.Go(func() error {
			m, err := loadNameLookup(gctx, q, schema.Lookups.District)
			if err != nil {
				return err
			}
			data.districts = m
			return nil
		})
	}
	if schema.Lookups.Church != "" {
		g.Go(func() error {
			m, err := loadNameLookup(gctx, q, schema.Lookups.Church)
			if err != nil {
				return err
			}
			data.churches = m
			return nil
		})
	}
	if schema.Lookups.Lot != "" {
		g.Go(func() error {
			m, err := loadLotLookup(gctx, q, schema.Lookups.Lot)
			if err != nil {
				return err
			}
			data.lots = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// loadNameLookup reads an id -> display-name reference table, resolving its
// columns by the same candidate heuristics as everything else.
func loadNameLookup(ctx context.Context, q Querier, table string) (map[string]string, error) {
	cols, err := DescribeTable(ctx, q, table)
	if err != nil {
		return nil, err
	}
	names := columnNames(cols)
	idCol := matchName(names, []string{"id"})
	nameCol := matchName(names, []string{"nome", "name", "descricao", "description"})
	if idCol == "" || nameCol == "" {
		return map[string]string{}, nil
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s, %s FROM %s",
		quoteIdent(idCol), quoteIdent(nameCol), quoteIdent(table)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("load %s lookup", table))
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, name any
		if err := rows.Scan(&id, &name); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("scan %s lookup", table))
		}
		out[asString(id)] = asString(name)
	}
	return out, rows.Err()
}

func loadLotLookup(ctx context.Context, q Querier, table string) (map[string]Lot, error) {
	cols, err := DescribeTable(ctx, q, table)
	if err != nil {
		return nil, err
	}
	names := columnNames(cols)
	idCol := matchName(names, []string{"id"})
	nameCol := matchName(names, []string{"nome", "name", "descricao", "description"})
	startCol := matchName(names, []string{"data_inicio", "inicio", "starts_at", "start_date"})
	endCol := matchName(names, []string{"data_fim", "fim", "ends_at", "end_date"})
	if idCol == "" || nameCol == "" {
		return map[string]Lot{}, nil
	}

	selectCols := []string{quoteIdent(idCol), quoteIdent(nameCol)}
	for _, c := range []string{startCol, endCol} {
		if c != "" {
			selectCols = append(selectCols, quoteIdent(c))
		}
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(selectCols, ", "), quoteIdent(table)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load lot lookup")
	}
	defer rows.Close()

	out := map[string]Lot{}
	for rows.Next() {
		dest := make([]any, len(selectCols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan lot lookup")
		}
		lot := Lot{
			ID:   asInt64(*(dest[0].(*any))),
			Name: asString(*(dest[1].(*any))),
		}
		idx := 2
		if startCol != "" {
			lot.StartsAt = normalizeTimestamp(*(dest[idx].(*any)))
			idx++
		}
		if endCol != "" {
			lot.EndsAt = normalizeTimestamp(*(dest[idx].(*any)))
		}
		out[asString(*(dest[0].(*any)))] = lot
	}
	return out, rows.Err()
}

// selectedColumns returns the logical field order of the SELECT the fetcher
// issues; only resolved columns participate.
func selectedColumns(schema *RegistrationSchema) []string {
	fields := []string{"id", "name"}
	if schema.BirthDate != "" {
		fields = append(fields, "birth_date")
	}
	if schema.Age != "" {
		fields = append(fields, "age")
	}
	if schema.Status != "" {
		fields = append(fields, "status")
	}
	if schema.Photo != "" {
		fields = append(fields, "photo")
	}
	if schema.DistrictRef != "" {
		fields = append(fields, "district")
	}
	if schema.ChurchRef != "" {
		fields = append(fields, "church")
	}
	if schema.LotRef != "" {
		fields = append(fields, "lot")
	}
	if schema.CreatedAt != "" {
		fields = append(fields, "created_at")
	}
	return fields
}

func (schema *RegistrationSchema) columnFor(field string) string {
	switch field {
	case "id":
		return schema.ID
	case "name":
		return schema.Name
	case "birth_date":
		return schema.BirthDate
	case "age":
		return schema.Age
	case "status":
		return schema.Status
	case "photo":
		return schema.Photo
	case "district":
		return schema.DistrictRef
	case "church":
		return schema.ChurchRef
	case "lot":
		return schema.LotRef
	case "created_at":
		return schema.CreatedAt
	}
	return ""
}

func (f *Fetcher) buildQuery(ctx context.Context, schema *RegistrationSchema, filter Filter) (string, []any) {
	fields := selectedColumns(schema)
	cols := make([]string, len(fields))
	for i, field := range fields {
		cols[i] = quoteIdent(schema.columnFor(field))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(schema.Table))

	var where []string
	var args []any

	if statuses := expandStatusFilter(filter.Statuses); len(statuses) > 0 && schema.Status != "" {
		placeholders := strings.TrimRight(strings.Repeat("?, ", len(statuses)), ", ")
		where = append(where, fmt.Sprintf("UPPER(%s) IN (%s)", quoteIdent(schema.Status), placeholders))
		for _, s := range statuses {
			args = append(args, s)
		}
	}

	if filter.EventID != "" {
		if schema.EventRef == "" {
			// Availability over strictness: schema drift may remove the event
			// link, and a full fetch beats a failed one.
			f.logger.WarnContext(ctx, "event filter ignored: no event link column in registration table",
				"request_id", requestcontext.RequestID(ctx),
				"table", schema.Table,
				"event_id", filter.EventID,
			)
		} else {
			where = append(where, quoteIdent(schema.EventRef)+" = ?")
			args = append(args, filter.EventID)
		}
	}

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if schema.CreatedAt != "" {
		sb.WriteString(" ORDER BY " + quoteIdent(schema.CreatedAt) + " ASC")
	} else {
		sb.WriteString(" ORDER BY " + quoteIdent(schema.ID) + " ASC")
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d", MaxRows))
	return sb.String(), args
}

// expandStatusFilter turns requested canonical statuses into the uppercase
// upstream synonym union. Returns nil (no clause) for an empty set, a set
// containing ALL, or the full PAID/PENDING/CANCELLED set.
func expandStatusFilter(statuses []registration.PaymentStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	distinct := map[registration.PaymentStatus]bool{}
	for _, s := range statuses {
		if strings.EqualFold(string(s), "ALL") {
			return nil
		}
		distinct[s] = true
	}
	if distinct[registration.StatusPaid] && distinct[registration.StatusPending] && distinct[registration.StatusCancelled] {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, canonical := range registration.AllStatuses {
		if !distinct[canonical] {
			continue
		}
		for _, syn := range registration.SynonymsFor(canonical) {
			upper := strings.ToUpper(syn)
			if !seen[upper] {
				seen[upper] = true
				out = append(out, upper)
			}
		}
	}
	return out
}

func (f *Fetcher) buildRecord(values map[string]any, lookups *lookupData) Record {
	rec := Record{
		ExternalID: asString(values["id"]),
		FullName:   asString(values["name"]),
		BirthDate:  normalizeBirthDate(values["birth_date"]),
		RawStatus:  asString(values["status"]),
		PhotoURL:   NormalizePhotoURL(asString(values["photo"]), f.mediaBaseURL),
		CreatedAt:  normalizeTimestamp(values["created_at"]),
		District:   DefaultMissingLookup,
		Church:     DefaultMissingLookup,
	}

	if age := asInt64(values["age"]); age > 0 {
		rec.Age = int(age)
	} else {
		rec.Age = ageFromBirthDate(rec.BirthDate)
	}

	if ref := asString(values["district"]); ref != "" {
		if name, ok := lookups.districts[ref]; ok && name != "" {
			rec.District = name
		}
	}
	if ref := asString(values["church"]); ref != "" {
		if name, ok := lookups.churches[ref]; ok && name != "" {
			rec.Church = name
		}
	}
	if ref := asString(values["lot"]); ref != "" {
		if lot, ok := lookups.lots[ref]; ok {
			l := lot
			rec.Lot = &l
		}
	}
	return rec
}
