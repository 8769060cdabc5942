package extsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dErrors "eventdesk/pkg/domain-errors"
)

// Candidate lists, in priority order, all matched case-insensitively. The
// external schema varies per deployment; the first hit wins.
var (
	eventsTableCandidates = []string{"event", "events", "evento", "eventos"}
	eventsIDCandidates    = []string{"id", "event_id", "evento_id"}
	eventsNameCandidates  = []string{"name", "nome", "title", "titulo", "descricao", "description"}

	registrationTableCandidates = []string{"inscricoes", "inscricao", "registrations", "registration", "inscritos"}
	eventLinkCandidates         = []string{"evento_id", "event_id", "id_evento"}

	districtTableCandidates = []string{"distritos", "distrito", "districts", "district"}
	churchTableCandidates   = []string{"igrejas", "igreja", "churches", "church"}
	lotTableCandidates      = []string{"lotes", "lote", "lots", "lot"}

	registrationFieldCandidates = map[string][]string{
		"id":         {"id", "inscricao_id", "registration_id"},
		"name":       {"nome_completo", "nome", "name", "full_name"},
		"birth_date": {"data_nascimento", "birth_date", "nascimento", "data_nasc"},
		"age":        {"idade", "age"},
		"status":     {"status", "situacao", "status_pagamento", "payment_status"},
		"photo":      {"foto", "foto_url", "photo", "photo_url", "imagem"},
		"district":   {"distrito_id", "district_id", "id_distrito"},
		"church":     {"igreja_id", "church_id", "id_igreja"},
		"lot":        {"lote_id", "lot_id", "id_lote"},
		"created_at": {"created_at", "criado_em", "data_criacao", "data_inscricao"},
	}
)

// EventsTable is the discovered shape of the upstream events table.
type EventsTable struct {
	Table      string `json:"table"`
	IDColumn   string `json:"idColumn"`
	NameColumn string `json:"nameColumn"`
}

// RegistrationSchema holds the resolved identifiers the fetcher queries by.
// Optional columns resolve to "" when absent.
type RegistrationSchema struct {
	Table       string
	ID          string
	Name        string
	BirthDate   string
	Age         string
	Status      string
	Photo       string
	DistrictRef string
	ChurchRef   string
	LotRef      string
	CreatedAt   string
	EventRef    string
	Lookups     LookupTables
}

// LookupTables names the discovered reference tables, "" when absent.
type LookupTables struct {
	District string
	Church   string
	Lot      string
}

// ListTables lists all table names in the external database.
func ListTables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list external tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list external tables")
	}
	return tables, nil
}

// DescribeTable returns the column names and types of one upstream table.
func DescribeTable(ctx context.Context, q Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, "DESCRIBE "+quoteIdent(table))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("describe table %s", table))
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read describe shape")
	}

	var cols []Column
	for rows.Next() {
		// DESCRIBE yields Field, Type, Null, Key, Default, Extra; only the
		// first two matter and drivers disagree on the rest's types.
		dest := make([]any, len(colNames))
		var field, colType sql.NullString
		dest[0] = &field
		if len(dest) > 1 {
			dest[1] = &colType
		}
		for i := 2; i < len(dest); i++ {
			dest[i] = new(sql.RawBytes)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan described column")
		}
		cols = append(cols, Column{Name: field.String, Type: colType.String})
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "describe table")
	}
	return cols, nil
}

// DiscoverEventsTable finds the events table by candidate matching. A nil
// result with nil error means no events table exists: callers must treat
// that as an empty event list, not a failure.
func DiscoverEventsTable(ctx context.Context, q Querier) (*EventsTable, error) {
	tables, err := ListTables(ctx, q)
	if err != nil {
		return nil, err
	}
	table := matchName(tables, eventsTableCandidates)
	if table == "" {
		return nil, nil
	}

	cols, err := DescribeTable(ctx, q, table)
	if err != nil {
		return nil, err
	}
	names := columnNames(cols)

	idCol := matchName(names, eventsIDCandidates)
	nameCol := matchName(names, eventsNameCandidates)
	// Fall back to the first available column rather than failing discovery.
	if idCol == "" && len(names) > 0 {
		idCol = names[0]
	}
	if nameCol == "" && len(names) > 0 {
		nameCol = names[0]
	}
	if idCol == "" {
		return nil, nil
	}
	return &EventsTable{Table: table, IDColumn: idCol, NameColumn: nameCol}, nil
}

// DiscoverRegistrationSchema resolves the registration table and its columns.
// Unlike events discovery, a missing registration table is fatal: there is
// nothing to fetch.
func DiscoverRegistrationSchema(ctx context.Context, q Querier) (*RegistrationSchema, error) {
	tables, err := ListTables(ctx, q)
	if err != nil {
		return nil, err
	}
	table := matchName(tables, registrationTableCandidates)
	if table == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "no registration table found in external source")
	}

	cols, err := DescribeTable(ctx, q, table)
	if err != nil {
		return nil, err
	}
	names := columnNames(cols)

	schema := &RegistrationSchema{
		Table:       table,
		ID:          matchName(names, registrationFieldCandidates["id"]),
		Name:        matchName(names, registrationFieldCandidates["name"]),
		BirthDate:   matchName(names, registrationFieldCandidates["birth_date"]),
		Age:         matchName(names, registrationFieldCandidates["age"]),
		Status:      matchName(names, registrationFieldCandidates["status"]),
		Photo:       matchName(names, registrationFieldCandidates["photo"]),
		DistrictRef: matchName(names, registrationFieldCandidates["district"]),
		ChurchRef:   matchName(names, registrationFieldCandidates["church"]),
		LotRef:      matchName(names, registrationFieldCandidates["lot"]),
		CreatedAt:   matchName(names, registrationFieldCandidates["created_at"]),
		EventRef:    matchName(names, eventLinkCandidates),
		Lookups: LookupTables{
			District: matchName(tables, districtTableCandidates),
			Church:   matchName(tables, churchTableCandidates),
			Lot:      matchName(tables, lotTableCandidates),
		},
	}
	if schema.ID == "" || schema.Name == "" {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("registration table %s has no recognizable id/name columns", table))
	}
	return schema, nil
}

// matchName returns the first candidate present in names, compared
// case-insensitively, preserving the name's upstream spelling.
func matchName(names, candidates []string) string {
	for _, cand := range candidates {
		for _, name := range names {
			if strings.EqualFold(name, cand) {
				return name
			}
		}
	}
	return ""
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// quoteIdent backtick-quotes a MySQL identifier. Identifiers come from SHOW
// TABLES output, not user input, but quoting keeps odd names working.
func quoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
