package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// dialect captures the per-driver differences the SQL store cares about: how to open
// the pool and how to classify driver errors.
type dialect struct {
	driver       string
	maxOpenConns int
	pragmas      []string
	isUnique     func(err error) bool
	isTransient  func(err error) bool
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case DriverPostgres, "pq":
		return dialect{
			driver:       DriverPostgres,
			maxOpenConns: 25,
			isUnique:     pqUniqueViolation,
			isTransient:  pqTransient,
		}, nil
	case DriverSQLite, "sqlite":
		return dialect{
			driver: DriverSQLite,
			// SQLite only supports one writer at a time
			maxOpenConns: 1,
			pragmas: []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA foreign_keys = ON",
			},
			isUnique:    sqliteUniqueViolation,
			isTransient: sqliteTransient,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driverName)
	}
}

func pqUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// pqTransient treats connection exceptions (08), rollbacks such as serialization
// failures (40), resource exhaustion (53) and operator intervention (57) as retryable.
func pqTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57":
			return true
		}
		return false
	}
	return commonTransient(err)
}

func sqliteUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func sqliteTransient(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked
	}
	return commonTransient(err)
}

func commonTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
