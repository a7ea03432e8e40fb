package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectOf(t *testing.T) {
	tests := []struct {
		dsn     string
		want    Dialect
		wantErr bool
	}{
		{"sqlserver://sa:pw@db:1433?database=DFMDB", DialectSQLServer, false},
		{"postgres://u:p@localhost/ws02", DialectPostgres, false},
		{"postgresql://u:p@localhost/ws02", DialectPostgres, false},
		{":memory:", DialectSQLite, false},
		{"file::memory:?cache=shared", DialectSQLite, false},
		{"/var/lib/ws02/meta.db", DialectSQLite, false},
		{"meta.sqlite3?_busy_timeout=5000", DialectSQLite, false},
		{"sqlite://meta.db", DialectSQLite, false},
		{"", "", true},
		{"mysql://u:p@db/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := DialectOf(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "sqlserver://sa:***@db:1433?database=x", Redact("sqlserver://sa:secret@db:1433?database=x"))
	assert.Equal(t, "postgres://db/x", Redact("postgres://db/x"))
	assert.Equal(t, ":memory:", Redact(":memory:"))
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(":memory:", Options{MaxOpenConns: 1})
	require.NoError(t, err)
	defer Close(db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}
