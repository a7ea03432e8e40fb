package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasttemplate"
	"gorm.io/gorm"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/database"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// RowsAffectedColumn is the single column returned by EXECUTE actions.
const RowsAffectedColumn = "ROWS_AFFECTED"

// SQLExecutor runs statements from the catalogue against named connections.
//
// Connection DSNs are templates rendered with the selected host, so one
// connection name can point at a different server per host. Pools are kept
// per rendered DSN for the executor's lifetime.
type SQLExecutor struct {
	catalog     domain.StatementCatalog
	connections map[string]*config.ConnectionConfig
	limiter     *Limiter

	mu    sync.Mutex
	pools map[string]*gorm.DB
	open  func(dsn string, opts database.Options) (*gorm.DB, error)
}

// NewSQLExecutor creates an executor for the [[connection]] sections.
func NewSQLExecutor(catalog domain.StatementCatalog, connections []*config.ConnectionConfig, limiter *Limiter) *SQLExecutor {
	byName := make(map[string]*config.ConnectionConfig, len(connections))
	for _, c := range connections {
		byName[c.Name] = c
	}
	if limiter == nil {
		limiter = NewLimiter()
	}
	return &SQLExecutor{
		catalog:     catalog,
		connections: byName,
		limiter:     limiter,
		pools:       make(map[string]*gorm.DB),
		open:        database.Open,
	}
}

// Execute implements domain.Executor.
func (e *SQLExecutor) Execute(ctx context.Context, def *domain.ApiDefinition, params domain.ValidatedParams, host domain.HostEndpoint) (*domain.RowSet, error) {
	conn, ok := e.connections[def.Connection]
	if !ok {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("%s: unknown connection %q", def.Code, def.Connection), nil)
	}

	text, ok := e.catalog.Lookup(def.SyntaxKey)
	if !ok {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("%s: no statement for key %q", def.Code, def.SyntaxKey), nil)
	}

	stmt, args, err := BindStatement(def.ActionType, text, params)
	if err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("%s: %v", def.Code, err), nil)
	}

	dsn := RenderDSN(conn.DSN, host)
	db, err := e.pool(dsn, conn)
	if err != nil {
		return nil, errors.NewConnectionFailureError(host.Code, err)
	}

	ctx, cancel := context.WithTimeout(ctx, conn.GetStatementTimeout())
	defer cancel()

	release, err := e.limiter.Acquire(ctx, "sql:"+dsn, conn.GetMaxOpenConns())
	if err != nil {
		return nil, errors.NewTimeoutError(host.Code, err)
	}
	defer release()

	logger.Debugf("[%s] %s on %s: %s %v", domain.RequestIDFrom(ctx), def.Code, host.Code, stmt, args)

	start := time.Now()
	var result *domain.RowSet
	if def.ActionType == domain.ActionExecute {
		result, err = execStatement(ctx, db, stmt, args)
	} else {
		result, err = queryStatement(ctx, db, stmt, args)
	}
	if err != nil {
		return nil, classify(ctx, host.Code, err)
	}

	logger.Debugf("[%s] %s on %s returned %d row(s) in %s", domain.RequestIDFrom(ctx), def.Code, host.Code, result.RowCount(), time.Since(start))
	return result, nil
}

func execStatement(ctx context.Context, db *gorm.DB, stmt string, args []interface{}) (*domain.RowSet, error) {
	res := db.WithContext(ctx).Exec(stmt, args...)
	if res.Error != nil {
		return nil, res.Error
	}
	return &domain.RowSet{Sets: []domain.ResultSet{{
		Columns: []string{RowsAffectedColumn},
		Rows:    [][]interface{}{{res.RowsAffected}},
	}}}, nil
}

func queryStatement(ctx context.Context, db *gorm.DB, stmt string, args []interface{}) (*domain.RowSet, error) {
	rows, err := db.WithContext(ctx).Raw(stmt, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets, err := readResultSets(rows)
	if err != nil {
		return nil, err
	}
	return &domain.RowSet{Sets: sets}, nil
}

// readResultSets reads every result set the statement produced.
func readResultSets(rows *sql.Rows) ([]domain.ResultSet, error) {
	var sets []domain.ResultSet
	for {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}

		set := domain.ResultSet{Columns: cols}
		for rows.Next() {
			values := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, err
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			set.Rows = append(set.Rows, values)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		sets = append(sets, set)

		if !rows.NextResultSet() {
			break
		}
	}
	return sets, rows.Err()
}

// BindStatement prepares text for the given action.
//
// Parameters bind positionally to '?' placeholders in field order. A
// statement must have no placeholders or exactly one per parameter; with none
// the parameters are not sent, except for PROCEDURE where they are appended
// as arguments of the call.
func BindStatement(action, text string, params domain.ValidatedParams) (string, []interface{}, error) {
	stmt := strings.TrimSpace(text)
	if stmt == "" {
		return "", nil, fmt.Errorf("statement is empty")
	}

	placeholders := countPlaceholders(stmt)
	switch {
	case placeholders == len(params):
		if placeholders == 0 && action == domain.ActionProcedure {
			stmt = procedureCall(stmt, 0)
		}
		return stmt, params.Args(), nil
	case placeholders == 0 && action == domain.ActionProcedure:
		return procedureCall(stmt, len(params)), params.Args(), nil
	case placeholders == 0:
		return stmt, nil, nil
	}
	return "", nil, fmt.Errorf("statement has %d placeholder(s) but %d parameter(s) are declared", placeholders, len(params))
}

// countPlaceholders counts '?' outside string literals, quoted or bracketed
// identifiers and comments.
func countPlaceholders(stmt string) int {
	n := 0
	for i := 0; i < len(stmt); i++ {
		switch c := stmt[i]; c {
		case '?':
			n++
		case '\'', '"':
			i = skipPast(stmt, i+1, string(c))
		case '[':
			i = skipPast(stmt, i+1, "]")
		case '-':
			if strings.HasPrefix(stmt[i:], "--") {
				i = skipPast(stmt, i+2, "\n")
			}
		case '/':
			if strings.HasPrefix(stmt[i:], "/*") {
				i = skipPast(stmt, i+2, "*/")
			}
		}
	}
	return n
}

// skipPast returns the index of the last byte of the first end at or after
// from, or len(s) when end never occurs. A doubled quote inside a literal
// reads as the literal closing and reopening, which counts the same.
func skipPast(s string, from int, end string) int {
	if from > len(s) {
		return len(s)
	}
	j := strings.Index(s[from:], end)
	if j < 0 {
		return len(s)
	}
	return from + j + len(end) - 1
}

func procedureCall(stmt string, n int) string {
	upper := strings.ToUpper(stmt)
	if !strings.HasPrefix(upper, "EXEC ") && !strings.HasPrefix(upper, "EXECUTE ") && !strings.HasPrefix(upper, "CALL ") {
		stmt = "EXEC " + stmt
	}
	if n == 0 {
		return stmt
	}
	return stmt + " " + strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// RenderDSN substitutes the host placeholders of a connection DSN.
func RenderDSN(tmpl string, host domain.HostEndpoint) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return fasttemplate.ExecuteStringStd(tmpl, "{{", "}}", map[string]interface{}{
		config.DSN_TMPL_HOST_CODE:    host.Code,
		config.DSN_TMPL_HOST_NAME:    host.Name,
		config.DSN_TMPL_HOST_ADDRESS: host.Address,
	})
}

func (e *SQLExecutor) pool(dsn string, conn *config.ConnectionConfig) (*gorm.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.pools[dsn]; ok {
		return db, nil
	}

	db, err := e.open(dsn, database.Options{
		MaxOpenConns:    conn.GetMaxOpenConns(),
		MaxIdleConns:    conn.GetMaxOpenConns(),
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	e.pools[dsn] = db
	logger.Infof("Opened connection %s to %s", conn.Name, database.Redact(dsn))
	return db, nil
}

// Close releases every pool.
func (e *SQLExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for dsn, db := range e.pools {
		if err := database.Close(db); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.pools, dsn)
	}
	return firstErr
}
