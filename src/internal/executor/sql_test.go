package executor

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/database"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/syntax"
)

var ws01 = domain.HostEndpoint{Code: "WS01", Name: "Middle01", Address: "127.0.0.1"}

// seedBackend creates <dir>/WS01.db with an ORDERS table.
func seedBackend(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "WS01.db"), database.Options{MaxOpenConns: 1})
	require.NoError(t, err)
	defer database.Close(db)

	for _, stmt := range []string{
		`CREATE TABLE ORDERS (ORDER_NO TEXT, ORDER_DATE TEXT, AMOUNT INTEGER, NOTE TEXT)`,
		`INSERT INTO ORDERS VALUES ('A-1', '2024-01-01', 100, NULL)`,
		`INSERT INTO ORDERS VALUES ('A-2', '2024-01-01', 250, 'rush')`,
		`INSERT INTO ORDERS VALUES ('B-1', '2024-01-02', 75, NULL)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return dir
}

func newSQLExecutor(t *testing.T, dir string, statements map[string]string) *SQLExecutor {
	t.Helper()
	e := NewSQLExecutor(syntax.FromMap(statements), []*config.ConnectionConfig{
		{Name: "ERP", DSN: filepath.Join(dir, "{{host_code}}.db")},
	}, nil)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func sqlDef(action, key string) *domain.ApiDefinition {
	return &domain.ApiDefinition{Code: "T2T_01_MULTIPLE_API", Kind: domain.ExecSQL, Connection: "ERP", ActionType: action, SyntaxKey: key}
}

func dateParam(v string) domain.ValidatedParams {
	return domain.ValidatedParams{{Position: 1, Name: "date", Value: v}}
}

func TestSQLExecutor_Query(t *testing.T) {
	dir := seedBackend(t)
	e := newSQLExecutor(t, dir, map[string]string{
		"Q": "SELECT ORDER_NO, AMOUNT, NOTE FROM ORDERS WHERE ORDER_DATE = ? ORDER BY ORDER_NO",
	})

	rs, err := e.Execute(context.Background(), sqlDef(domain.ActionQuery, "Q"), dateParam("2024-01-01"), ws01)
	require.NoError(t, err)
	require.Len(t, rs.Sets, 1)

	set := rs.Sets[0]
	assert.Equal(t, []string{"ORDER_NO", "AMOUNT", "NOTE"}, set.Columns)
	require.Len(t, set.Rows, 2)
	assert.Equal(t, "A-1", set.Rows[0][0])
	assert.EqualValues(t, 100, set.Rows[0][1])
	assert.Nil(t, set.Rows[0][2])
	assert.Equal(t, "rush", set.Rows[1][2])
}

func TestSQLExecutor_Execute(t *testing.T) {
	dir := seedBackend(t)
	e := newSQLExecutor(t, dir, map[string]string{
		"U": "UPDATE ORDERS SET NOTE = 'seen' WHERE ORDER_DATE = ?",
	})

	rs, err := e.Execute(context.Background(), sqlDef(domain.ActionExecute, "U"), dateParam("2024-01-01"), ws01)
	require.NoError(t, err)
	assert.Equal(t, []string{RowsAffectedColumn}, rs.Sets[0].Columns)
	assert.EqualValues(t, 2, rs.Sets[0].Rows[0][0])
}

func TestSQLExecutor_ConfigProblems(t *testing.T) {
	dir := seedBackend(t)
	e := newSQLExecutor(t, dir, map[string]string{
		"TWO": "SELECT * FROM ORDERS WHERE ORDER_DATE = ? AND ORDER_NO = ?",
	})

	tests := []struct {
		name string
		def  *domain.ApiDefinition
	}{
		{"missing key", sqlDef(domain.ActionQuery, "NOPE")},
		{"placeholder mismatch", sqlDef(domain.ActionQuery, "TWO")},
		{"unknown connection", &domain.ApiDefinition{Code: "X", Kind: domain.ExecSQL, Connection: "CRM", SyntaxKey: "TWO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(context.Background(), tt.def, dateParam("2024-01-01"), ws01)
			assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid), "got %v", err)
		})
	}
}

func TestSQLExecutor_RemoteFailure(t *testing.T) {
	dir := seedBackend(t)
	e := newSQLExecutor(t, dir, map[string]string{"BAD": "SELECT * FROM NO_SUCH_TABLE"})

	_, err := e.Execute(context.Background(), sqlDef(domain.ActionQuery, "BAD"), nil, ws01)
	var execErr *errors.ExecutionError
	require.True(t, stderrors.As(err, &execErr), "got %v", err)
	assert.Equal(t, errors.KindRemoteFailure, execErr.Kind)
	assert.Equal(t, "WS01", execErr.Host)
}

func TestSQLExecutor_Timeout(t *testing.T) {
	dir := seedBackend(t)
	e := newSQLExecutor(t, dir, map[string]string{"Q": "SELECT 1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	_, err := e.Execute(ctx, sqlDef(domain.ActionQuery, "Q"), nil, ws01)
	assert.True(t, stderrors.Is(err, errors.NewTimeoutError("", nil)), "got %v", err)
}

func TestSQLExecutor_ConnectionFailure(t *testing.T) {
	e := NewSQLExecutor(syntax.FromMap(map[string]string{"Q": "SELECT 1"}), []*config.ConnectionConfig{
		{Name: "ERP", DSN: "postgres://gw:secret@{{host_address}}:1/erp?sslmode=disable&connect_timeout=2"},
	}, nil)

	_, err := e.Execute(context.Background(), sqlDef(domain.ActionQuery, "Q"), nil, ws01)
	assert.True(t, stderrors.Is(err, errors.NewConnectionFailureError("", nil)), "got %v", err)
}

func TestBindStatement(t *testing.T) {
	two := domain.ValidatedParams{{Position: 1, Name: "a", Value: "x"}, {Position: 2, Name: "b", Value: "y"}}

	tests := []struct {
		name     string
		action   string
		text     string
		params   domain.ValidatedParams
		wantStmt string
		wantArgs []interface{}
		wantErr  bool
	}{
		{"positional", domain.ActionQuery, "SELECT ? , ?", two, "SELECT ? , ?", []interface{}{"x", "y"}, false},
		{"no placeholders ignores params", domain.ActionQuery, "SELECT 1", two, "SELECT 1", nil, false},
		{"procedure appends args", domain.ActionProcedure, "dbo.usp_report", two, "EXEC dbo.usp_report ?, ?", []interface{}{"x", "y"}, false},
		{"procedure keeps explicit exec", domain.ActionProcedure, "exec dbo.usp_report ?, ?", two, "exec dbo.usp_report ?, ?", []interface{}{"x", "y"}, false},
		{"procedure without params", domain.ActionProcedure, "dbo.usp_ping", nil, "EXEC dbo.usp_ping", []interface{}{}, false},
		{"quoted question marks", domain.ActionQuery, "SELECT A FROM T WHERE C LIKE '%?%' AND D = ? AND E = ?", two,
			"SELECT A FROM T WHERE C LIKE '%?%' AND D = ? AND E = ?", []interface{}{"x", "y"}, false},
		{"escaped quote in literal", domain.ActionQuery, "SELECT 'it''s ?' , ?, [col?] FROM T -- why?\nWHERE B = ? /* ? */", two,
			"SELECT 'it''s ?' , ?, [col?] FROM T -- why?\nWHERE B = ? /* ? */", []interface{}{"x", "y"}, false},
		{"literal only", domain.ActionQuery, "SELECT '?'", two, "SELECT '?'", nil, false},
		{"mismatch", domain.ActionQuery, "SELECT ?", two, "", nil, true},
		{"empty", domain.ActionQuery, "  ", nil, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, err := BindStatement(tt.action, tt.text, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStmt, stmt)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRenderDSN(t *testing.T) {
	host := domain.HostEndpoint{Code: "WS02", Name: "Middle02", Address: "192.168.222.138"}
	assert.Equal(t,
		"sqlserver://gw:pw@192.168.222.138:1433?database=ERP&app name=Middle02-WS02",
		RenderDSN("sqlserver://gw:pw@{{host_address}}:1433?database=ERP&app name={{host_name}}-{{host_code}}", host))
	assert.Equal(t, "erp.db", RenderDSN("erp.db", host))
	assert.Equal(t, "x{{other}}", RenderDSN("x{{other}}", host))
}
