package extsource

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	dErrors "eventdesk/pkg/domain-errors"
)

// Querier is the narrow query surface the introspector and fetcher need.
// Satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Connect opens and verifies a connection to the external MySQL source. The
// connection is per-invocation: callers must Close it on every exit path.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	driverDSN, err := DriverDSN(dsn)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid external source DSN")
	}
	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cannot open external source")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cannot reach external source")
	}
	return db, nil
}

// DriverDSN accepts either a mysql:// URL or a native go-sql-driver DSN and
// returns the driver form with parseTime enabled so date columns scan as
// time.Time when the server cooperates.
func DriverDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}

	if strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse DSN: %w", err)
		}
		host := u.Hostname()
		if host == "" {
			return "", fmt.Errorf("DSN is missing a host")
		}
		port := u.Port()
		if port == "" {
			port = "3306"
		}
		dbName := strings.TrimPrefix(u.Path, "/")
		if dbName == "" {
			return "", fmt.Errorf("DSN is missing a database name")
		}
		user := u.User.Username()
		pass, _ := u.User.Password()
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbName), nil
	}

	if strings.Contains(dsn, "parseTime") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true", nil
}
