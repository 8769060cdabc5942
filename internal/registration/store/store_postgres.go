package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eventdesk/internal/registration"
	"eventdesk/pkg/platform/tx"
)

// PostgresStore persists registrants in PostgreSQL. All statements resolve
// the connection through pkg/platform/tx so callers can scope multi-step
// operations to one transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registrant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registrants table when absent. Production deploys
// run schema management out of band; this keeps local and container runs
// self-sufficient.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registrants (
			id              TEXT PRIMARY KEY,
			owner_id        TEXT NOT NULL,
			number          INTEGER NOT NULL,
			name            TEXT NOT NULL,
			birth_date      TEXT NOT NULL DEFAULT '',
			age             INTEGER NOT NULL DEFAULT 0,
			church          TEXT NOT NULL DEFAULT '',
			district        TEXT NOT NULL DEFAULT '',
			photo_url       TEXT NOT NULL DEFAULT '',
			payment_status  TEXT NOT NULL,
			is_manual       BOOLEAN NOT NULL,
			external_id     TEXT,
			walkband_number TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL,
			UNIQUE (owner_id, number)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure registrants schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS registrants_owner_idx ON registrants (owner_id)
	`)
	if err != nil {
		return fmt.Errorf("ensure registrants index: %w", err)
	}
	return nil
}

const registrantColumns = `
	id, owner_id, number, name, birth_date, age, church, district,
	photo_url, payment_status, is_manual, external_id, walkband_number, created_at
`

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]registration.Registrant, error) {
	query := `
		SELECT ` + registrantColumns + `
		FROM registrants
		WHERE owner_id = $1
		ORDER BY number ASC
	`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	defer rows.Close()

	var regs []registration.Registrant
	for rows.Next() {
		reg, err := scanRegistrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	return regs, nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (*registration.Registrant, error) {
	query := `
		SELECT ` + registrantColumns + `
		FROM registrants
		WHERE owner_id = $1 AND id = $2
	`
	row := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, ownerID, id)
	reg, err := scanRegistrant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	return &reg, nil
}

func (s *PostgresStore) Insert(ctx context.Context, reg registration.Registrant) error {
	query := `
		INSERT INTO registrants (` + registrantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		reg.ID, reg.OwnerID, reg.Number, reg.Name, reg.BirthDate, reg.Age,
		reg.Church, reg.District, reg.PhotoURL, string(reg.PaymentStatus),
		reg.IsManual, nullableExternalID(reg), reg.WalkbandNumber, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registrant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, reg registration.Registrant) error {
	query := `
		UPDATE registrants SET
			number = $3, name = $4, birth_date = $5, age = $6, church = $7,
			district = $8, photo_url = $9, payment_status = $10, is_manual = $11,
			external_id = $12, walkband_number = $13
		WHERE owner_id = $1 AND id = $2
	`
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		reg.OwnerID, reg.ID, reg.Number, reg.Name, reg.BirthDate, reg.Age,
		reg.Church, reg.District, reg.PhotoURL, string(reg.PaymentStatus),
		reg.IsManual, nullableExternalID(reg), reg.WalkbandNumber,
	)
	if err != nil {
		return fmt.Errorf("update registrant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registrant: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx,
		`DELETE FROM registrants WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete registrant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registrant: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAll swaps the owner's entire collection inside one transaction:
// delete both subsets, then bulk-insert the new collection via unnest for
// O(1) round trips instead of O(n).
func (s *PostgresStore) ReplaceAll(ctx context.Context, ownerID string, regs []registration.Registrant) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		execer := tx.Resolve(ctx, s.db)
		if _, err := execer.ExecContext(ctx,
			`DELETE FROM registrants WHERE owner_id = $1 AND is_manual = FALSE`, ownerID); err != nil {
			return fmt.Errorf("clear external registrants: %w", err)
		}
		if _, err := execer.ExecContext(ctx,
			`DELETE FROM registrants WHERE owner_id = $1 AND is_manual = TRUE`, ownerID); err != nil {
			return fmt.Errorf("clear manual registrants: %w", err)
		}
		if len(regs) == 0 {
			return nil
		}

		n := len(regs)
		ids := make([]string, n)
		numbers := make([]int64, n)
		names := make([]string, n)
		birthDates := make([]string, n)
		ages := make([]int64, n)
		churches := make([]string, n)
		districts := make([]string, n)
		photoURLs := make([]string, n)
		statuses := make([]string, n)
		manuals := make([]bool, n)
		externalIDs := make([]string, n) // empty string becomes NULL via NULLIF
		walkbands := make([]string, n)
		createdAts := make([]string, n)
		for i, reg := range regs {
			ids[i] = reg.ID
			numbers[i] = int64(reg.Number)
			names[i] = reg.Name
			birthDates[i] = reg.BirthDate
			ages[i] = int64(reg.Age)
			churches[i] = reg.Church
			districts[i] = reg.District
			photoURLs[i] = reg.PhotoURL
			statuses[i] = string(reg.PaymentStatus)
			manuals[i] = reg.IsManual
			if !reg.IsManual {
				externalIDs[i] = reg.ExternalID
			}
			walkbands[i] = reg.WalkbandNumber
			createdAts[i] = reg.CreatedAt.UTC().Format(time.RFC3339Nano)
		}

		query := `
			INSERT INTO registrants (` + registrantColumns + `)
			SELECT
				unnest($2::text[]), $1, unnest($3::bigint[]), unnest($4::text[]),
				unnest($5::text[]), unnest($6::bigint[]), unnest($7::text[]),
				unnest($8::text[]), unnest($9::text[]), unnest($10::text[]),
				unnest($11::boolean[]), NULLIF(unnest($12::text[]), ''),
				unnest($13::text[]), unnest($14::text[])::timestamptz
		`
		if _, err := execer.ExecContext(ctx, query,
			ownerID, pq.Array(ids), pq.Array(numbers), pq.Array(names),
			pq.Array(birthDates), pq.Array(ages), pq.Array(churches),
			pq.Array(districts), pq.Array(photoURLs), pq.Array(statuses),
			pq.Array(manuals), pq.Array(externalIDs), pq.Array(walkbands),
			pq.Array(createdAts),
		); err != nil {
			return fmt.Errorf("bulk insert registrants: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrant(row rowScanner) (registration.Registrant, error) {
	var reg registration.Registrant
	var status string
	var externalID sql.NullString
	err := row.Scan(
		&reg.ID, &reg.OwnerID, &reg.Number, &reg.Name, &reg.BirthDate, &reg.Age,
		&reg.Church, &reg.District, &reg.PhotoURL, &status, &reg.IsManual,
		&externalID, &reg.WalkbandNumber, &reg.CreatedAt,
	)
	if err != nil {
		return registration.Registrant{}, err
	}
	reg.PaymentStatus = registration.PaymentStatus(status)
	reg.ExternalID = externalID.String
	return reg, nil
}

func nullableExternalID(reg registration.Registrant) sql.NullString {
	if reg.IsManual || reg.ExternalID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: reg.ExternalID, Valid: true}
}
