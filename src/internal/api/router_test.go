package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhsoft/ws02-gateway/src/internal/access"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/gateway"
	"github.com/jhsoft/ws02-gateway/src/internal/mocks"
	"github.com/jhsoft/ws02-gateway/src/internal/params"
	"github.com/jhsoft/ws02-gateway/src/internal/syntax"
)

type stubCatalog struct {
	*mocks.MockConfigStore
	pingErr error
}

func (s stubCatalog) ListCodes(context.Context) ([]string, error) {
	return []string{"T2T_01_MULTIPLE_API"}, nil
}

func (s stubCatalog) Ping(context.Context) error { return s.pingErr }

func testDef(t *testing.T) *domain.ApiDefinition {
	t.Helper()
	matcher, err := params.CompileRule(`^\d{4}-\d{2}-\d{2}$`)
	require.NoError(t, err)
	intranet, err := access.ParseRule("10.0.0.0/8")
	require.NoError(t, err)

	return &domain.ApiDefinition{
		Code:       "T2T_01_MULTIPLE_API",
		Kind:       domain.ExecSQL,
		ActionType: domain.ActionQuery,
		SyntaxKey:  "T2T_01_MULTIPLE",
		Outputs:    []domain.OutputNode{{Level: 1, Fields: []string{"ORDER_NO", "AMOUNT"}}},
		IPRules:    []domain.IPRule{{Pattern: "10.0.0.0/8", Matcher: intranet}},
		Hosts: []domain.HostBinding{
			{Position: 1, HostCode: "WS01", Enabled: true, Endpoint: domain.HostEndpoint{Code: "WS01", Name: "Middle01", Address: "127.0.0.1"}},
		},
		Fields: []domain.FieldRule{{Position: 1, Name: "date", Default: "2024-01-01", Matcher: matcher}},
	}
}

type fixture struct {
	handler  http.Handler
	executor *mocks.MockExecutor
	catalog  stubCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &mocks.MockConfigStore{Definitions: map[string]*domain.ApiDefinition{"T2T_01_MULTIPLE_API": testDef(t)}}
	exec := &mocks.MockExecutor{
		ExecuteFunc: func(_ context.Context, _ *domain.ApiDefinition, p domain.ValidatedParams, _ domain.HostEndpoint) (*domain.RowSet, error) {
			return &domain.RowSet{Sets: []domain.ResultSet{{
				Columns: []string{"ORDER_NO", "AMOUNT"},
				Rows:    [][]interface{}{{"A-1", p[0].Value}},
			}}}, nil
		},
	}
	catalog := stubCatalog{MockConfigStore: store}

	d := gateway.NewDispatcher(gateway.Options{Store: store, Executor: exec})
	h := NewHandler(d, catalog, syntax.FromMap(map[string]string{"T2T_01_MULTIPLE": "SELECT 1"}), HandlerOptions{
		Executors: []string{"SQL"},
		Hosts:     []string{"WS01"},
		Version:   VersionInfo{Version: "test"},
	})

	trusted, err := ParseTrustedProxies([]string{"192.168.1.1", "172.20.0.0/16"})
	require.NoError(t, err)

	return &fixture{
		handler:  NewRouter(h, RouterOptions{TrustedProxies: trusted, Metrics: http.NotFoundHandler()}),
		executor: exec,
		catalog:  catalog,
	}
}

func (f *fixture) do(method, target, remote, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = remote + ":40000"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestInvoke_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/invoke/T2T_01_MULTIPLE_API?date=2023-12-31", "10.1.1.1", `{"date":"2024-02-03"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Code      string              `json:"code"`
			RequestID string              `json:"request_id"`
			Host      string              `json:"host"`
			RowCount  int                 `json:"row_count"`
			Rows      []map[string]string `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WS01", resp.Data.Host)
	assert.Equal(t, 1, resp.Data.RowCount)
	assert.Equal(t, "2024-02-03", resp.Data.Rows[0]["AMOUNT"], "body overrides query")
	assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.Data.RequestID)
	assert.NotEmpty(t, resp.Data.RequestID)
}

func TestInvoke_GetUsesQueryAndDefaults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "10.1.1.1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"AMOUNT":"2024-01-01"`)
}

func TestInvoke_EmptyQueryValueTakesDefault(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API?date=", "10.1.1.1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"AMOUNT":"2024-01-01"`)
}

func TestInvoke_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		target string
		remote string
		body   string
		status  int
		code    ErrorCode
		details map[string]interface{}
	}{
		{"unknown code", "/api/v1/invoke/NOPE", "10.1.1.1", "", http.StatusNotFound, ErrCodeNotFound, nil},
		{"bad parameter", "/api/v1/invoke/T2T_01_MULTIPLE_API?date=yesterday", "10.1.1.1", "", http.StatusBadRequest, ErrCodeValidationFailed, nil},
		{"denied caller", "/api/v1/invoke/T2T_01_MULTIPLE_API", "8.8.8.8", "", http.StatusForbidden, ErrCodeForbidden,
			map[string]interface{}{"api_code": "T2T_01_MULTIPLE_API", "caller_ip": "8.8.8.8"}},
		{"non scalar body", "/api/v1/invoke/T2T_01_MULTIPLE_API", "10.1.1.1", `{"date":[1]}`, http.StatusBadRequest, ErrCodeInvalidRequest, nil},
		{"broken json", "/api/v1/invoke/T2T_01_MULTIPLE_API", "10.1.1.1", `{"date":`, http.StatusBadRequest, ErrCodeInvalidRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			method := http.MethodGet
			if tt.body != "" {
				method = http.MethodPost
			}
			rec := f.do(method, tt.target, tt.remote, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.details != nil {
				assert.Equal(t, tt.details, apiErr.Details)
			}
			assert.Empty(t, f.executor.Calls())
		})
	}
}

func TestInvoke_ValidationDetails(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API?date=yesterday", "10.1.1.1", "", nil)

	apiErr := decodeError(t, rec)
	fields, ok := apiErr.Details["fields"].([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "date", fields[0].(map[string]interface{})["field"])
}

func TestInvoke_BackendFailureIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.executor.ExecuteFunc = func(_ context.Context, _ *domain.ApiDefinition, _ domain.ValidatedParams, h domain.HostEndpoint) (*domain.RowSet, error) {
		return nil, errors.NewConnectionFailureError(h.Code, fmt.Errorf("connection refused"))
	}

	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "10.1.1.1", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrCodeUnavailable, decodeError(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestInvoke_ConfigInvalidIsGeneric(t *testing.T) {
	f := newFixture(t)
	f.catalog.ResolveFunc = func(context.Context, string) (*domain.ApiDefinition, error) {
		return nil, errors.NewConfigInvalidError("T2T_01_MULTIPLE_API has no output levels", nil)
	}

	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "10.1.1.1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "output levels")
}

func TestCallerIP_TrustedProxies(t *testing.T) {
	f := newFixture(t)

	// direct untrusted peer: forwarding header ignored
	rec := f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "8.8.8.8", "", map[string]string{"X-Forwarded-For": "10.1.1.1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// trusted proxy chain: right-most untrusted hop is the caller
	rec = f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "192.168.1.1", "", map[string]string{"X-Forwarded-For": "8.8.8.8, 10.1.1.1, 172.20.0.5"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/invoke/T2T_01_MULTIPLE_API", "192.168.1.1", "", map[string]string{"X-Forwarded-For": "10.1.1.1, 8.8.8.8"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDescribe_PrivateOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/apis/T2T_01_MULTIPLE_API", "192.168.5.5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data APIDescription `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "T2T_01_MULTIPLE", resp.Data.SyntaxKey)
	assert.True(t, resp.Data.Statement)
	assert.Equal(t, "10.0.0.0/8", resp.Data.AllowedIPs[0].Pattern)
	assert.Equal(t, "Middle01", resp.Data.Hosts[0].Name)

	rec = f.do(http.MethodGet, "/api/v1/apis/NOPE", "192.168.5.5", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/apis", "8.8.8.8", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/apis", "127.0.0.1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "T2T_01_MULTIPLE_API")

	rec = f.do(http.MethodGet, "/metrics", "8.8.8.8", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/health", "8.8.8.8", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.catalog.pingErr = fmt.Errorf("dial tcp 10.9.9.9:1433: login failed for user 'gw'")
	h := NewHandler(nil, f.catalog, nil, HandlerOptions{})
	rec = httptest.NewRecorder()
	NewRouter(h, RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Healthy)
	assert.Equal(t, "Metadata store is unreachable", resp.Checks["config_store"].Message)
	assert.NotContains(t, rec.Body.String(), "10.9.9.9")
	assert.NotContains(t, rec.Body.String(), "login failed")
}

func TestRequestID_KeepsClientUUID(t *testing.T) {
	f := newFixture(t)
	const id = "6f1c1f9e-6a8b-4a55-9a57-0c0d6f3b8a10"

	rec := f.do(http.MethodGet, "/api/v1/invoke/NOPE", "10.1.1.1", "", map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, id, decodeError(t, rec).RequestID)

	rec = f.do(http.MethodGet, "/api/v1/invoke/NOPE", "10.1.1.1", "", map[string]string{RequestIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestParseTrustedProxies(t *testing.T) {
	nets, err := ParseTrustedProxies([]string{"10.0.0.1", "::1", "172.16.0.0/12"})
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.True(t, nets[0].Contains(net.ParseIP("10.0.0.1")))
	assert.False(t, nets[0].Contains(net.ParseIP("10.0.0.2")))

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}
