// Package mocks provides test doubles for the gateway pipeline.
//
// This package should ONLY be imported in test files (_test.go).
package mocks

import (
	"context"
	"sync"

	"github.com/jhsoft/ws02-gateway/src/internal/access"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// MockConfigStore is a mock implementation of domain.ConfigStore.
//
// If ResolveFunc is nil, definitions are served from Definitions by code and
// unknown codes fail with NOT_FOUND.
//
// Example usage:
//
//	store := &mocks.MockConfigStore{
//	    Definitions: map[string]*domain.ApiDefinition{"T2T_01": def},
//	}
type MockConfigStore struct {
	ResolveFunc func(ctx context.Context, code string) (*domain.ApiDefinition, error)
	Definitions map[string]*domain.ApiDefinition

	mu    sync.Mutex
	calls []string
}

// Resolve returns the definition of code.
func (m *MockConfigStore) Resolve(ctx context.Context, code string) (*domain.ApiDefinition, error) {
	m.mu.Lock()
	m.calls = append(m.calls, code)
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, code)
	}
	if def, ok := m.Definitions[code]; ok {
		return def.Clone(), nil
	}
	return nil, errors.NewNotFoundError("unknown api code " + code)
}

// Calls returns the codes passed to Resolve.
func (m *MockConfigStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ExecuteCall records one Execute invocation.
type ExecuteCall struct {
	Code   string
	Host   domain.HostEndpoint
	Params domain.ValidatedParams
}

// MockExecutor is a mock implementation of domain.Executor.
//
// If ExecuteFunc is nil, Execute returns an empty RowSet with one empty
// result set per output level of the definition.
type MockExecutor struct {
	ExecuteFunc func(ctx context.Context, def *domain.ApiDefinition, params domain.ValidatedParams, host domain.HostEndpoint) (*domain.RowSet, error)

	mu    sync.Mutex
	calls []ExecuteCall
}

// Execute runs the configured behavior.
func (m *MockExecutor) Execute(ctx context.Context, def *domain.ApiDefinition, params domain.ValidatedParams, host domain.HostEndpoint) (*domain.RowSet, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ExecuteCall{Code: def.Code, Host: host, Params: params})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, def, params, host)
	}
	rs := &domain.RowSet{Sets: make([]domain.ResultSet, len(def.Outputs))}
	for i, out := range def.Outputs {
		rs.Sets[i].Columns = append([]string(nil), out.Fields...)
	}
	return rs, nil
}

// Calls returns the recorded invocations in order.
func (m *MockExecutor) Calls() []ExecuteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecuteCall(nil), m.calls...)
}

// MockAuditor collects audit entries in memory.
type MockAuditor struct {
	RecordFunc func(entry access.AuditEntry)

	mu      sync.Mutex
	entries []access.AuditEntry
}

// Record stores entry and calls RecordFunc if set.
func (m *MockAuditor) Record(entry access.AuditEntry) {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	if m.RecordFunc != nil {
		m.RecordFunc(entry)
	}
}

// Entries returns the recorded entries in order.
func (m *MockAuditor) Entries() []access.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]access.AuditEntry(nil), m.entries...)
}

// MockAuthorizer wraps an Authorize func and counts calls.
type MockAuthorizer struct {
	AuthorizeFunc func(ctx context.Context, def *domain.ApiDefinition, callerIP string) error

	mu    sync.Mutex
	calls int
}

// Authorize allows every caller unless AuthorizeFunc says otherwise.
func (m *MockAuthorizer) Authorize(ctx context.Context, def *domain.ApiDefinition, callerIP string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, def, callerIP)
	}
	return nil
}

// CallCount returns the number of Authorize calls.
func (m *MockAuthorizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
