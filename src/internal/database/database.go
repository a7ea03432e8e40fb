// Package database opens gorm connections for the metadata store and SQL backends.
//
// The dialect is picked from the DSN: sqlserver:// for SQL Server,
// postgres:// or postgresql:// for PostgreSQL, and anything that looks like a
// SQLite path (":memory:", "file:...", "sqlite://...", *.db) for SQLite.
package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

type Dialect string

const (
	DialectSQLServer Dialect = "sqlserver"
	DialectPostgres  Dialect = "postgres"
	DialectSQLite    Dialect = "sqlite"
)

// Options tune the underlying sql.DB pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DialectOf reports which driver serves dsn.
func DialectOf(dsn string) (Dialect, error) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case lower == "":
		return "", fmt.Errorf("empty DSN")
	case strings.HasPrefix(lower, "sqlserver://"):
		return DialectSQLServer, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "file:"),
		lower == ":memory:",
		hasSQLiteSuffix(lower):
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported DSN %q", Redact(dsn))
}

func hasSQLiteSuffix(dsn string) bool {
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") || strings.HasSuffix(path, ".sqlite3")
}

// Dialector returns the gorm dialector for dsn.
func Dialector(dsn string) (gorm.Dialector, error) {
	dialect, err := DialectOf(dsn)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case DialectSQLServer:
		return sqlserver.Open(dsn), nil
	case DialectPostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	}
}

// Open connects to dsn and applies the pool options.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", Redact(dsn), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Redact hides the password part of URL-style DSNs.
func Redact(dsn string) string {
	schemeEnd := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return dsn
	}
	userInfo := dsn[schemeEnd+3 : at]
	if i := strings.IndexByte(userInfo, ':'); i >= 0 {
		return dsn[:schemeEnd+3] + userInfo[:i] + ":***" + dsn[at:]
	}
	return dsn
}

type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...interface{}) {
	log.Debugf(strings.TrimSpace(format), args...)
}

func newGormLogger() gormlogger.Interface {
	level := gormlogger.Silent
	if log.IsVerbose() {
		level = gormlogger.Warn
	}
	return gormlogger.New(gormLogWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
