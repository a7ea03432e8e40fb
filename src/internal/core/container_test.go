package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhsoft/ws02-gateway/src/internal/config"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
	"github.com/jhsoft/ws02-gateway/src/internal/mocks"
	"github.com/jhsoft/ws02-gateway/src/internal/syntax"
)

const containerConfig = `
[general]
sql_properties_file = "sql.properties"
enable_metrics = true

[config_store]
dsn = ":memory:"

[[connection]]
name = "ERP"
dsn = "file:erp-{{host_code}}?mode=memory"
`

func newTestDependencies(t *testing.T, audit *bytes.Buffer) *AppDependencies {
	t.Helper()
	cfg, err := config.ParseConfig([]byte(containerConfig))
	require.NoError(t, err)

	db := mocks.NewMetadataDB(t)
	mocks.MultipleAPIFixture().Seed(t, db)

	deps, err := NewAppDependencies(AppConfig{
		Config:      cfg,
		MetaDB:      db,
		Statements:  syntax.FromMap(map[string]string{"T2T_01_MULTIPLE": "SELECT 1 AS ORDER_NO"}),
		AuditOutput: audit,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	return deps
}

func TestNewAppDependencies(t *testing.T) {
	deps := newTestDependencies(t, &bytes.Buffer{})

	assert.Equal(t, []string{"SQL"}, deps.ExecutorNames(), "SSH is not registered without [ssh]")
	assert.Equal(t, []string{"WS01 (192.168.222.136)", "WS02 (192.168.222.138)"}, deps.HostNames())
	assert.NotNil(t, deps.PrometheusRegistry())
	assert.Equal(t, 1, deps.Statements().Len())

	def, err := deps.Store().Resolve(context.Background(), "T2T_01_MULTIPLE_API")
	require.NoError(t, err)
	assert.Equal(t, "ERP", def.Connection)
}

func TestNewAppDependencies_IncompleteConfig(t *testing.T) {
	_, err := NewAppDependencies(AppConfig{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestNewAppDependencies_UnknownEncoding(t *testing.T) {
	cfg, err := config.ParseConfig([]byte(containerConfig + `
[[encoding]]
syntax_key = "T2T_01_MULTIPLE"
scheme = "rot13"
`))
	require.NoError(t, err)

	_, err = NewAppDependencies(AppConfig{
		Config:     cfg,
		MetaDB:     mocks.NewMetadataDB(t),
		Statements: syntax.FromMap(nil),
	})
	assert.Error(t, err)
}

func TestDispatcher_DeniedCallerIsAudited(t *testing.T) {
	var audit bytes.Buffer
	deps := newTestDependencies(t, &audit)

	res, err := deps.Dispatcher().Dispatch(context.Background(), gateway.Request{
		Code:     "T2T_01_MULTIPLE_API",
		CallerIP: "192.168.1.5",
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDenied, errors.CodeOf(err))
	assert.Equal(t, errors.ErrCodeDenied, res.Failure)

	assert.Contains(t, audit.String(), `"decision":"denied"`)
	assert.Contains(t, audit.String(), `"caller_ip":"192.168.1.5"`)
}

func TestDispatcher_UnknownCode(t *testing.T) {
	deps := newTestDependencies(t, &bytes.Buffer{})

	_, err := deps.Dispatcher().Dispatch(context.Background(), gateway.Request{Code: "NOPE", CallerIP: "127.0.0.1"})
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}
