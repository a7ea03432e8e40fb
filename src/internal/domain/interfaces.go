// Package domain defines the gateway's data model and the interfaces between
// pipeline stages.
//
// Implementations live in their own packages (store, executor, routing, ...);
// depending on these interfaces keeps the dispatcher testable with the mocks
// package.
package domain

import "context"

// ConfigStore resolves API codes against the metadata tables.
type ConfigStore interface {
	// Resolve returns the definition with all four attached collections read
	// from one snapshot. It fails with NotFound or ConfigInvalid.
	Resolve(ctx context.Context, code string) (*ApiDefinition, error)
}

// Executor runs an API's action on one host.
//
// Implementations never retry; failover belongs to the caller.
type Executor interface {
	Execute(ctx context.Context, def *ApiDefinition, params ValidatedParams, host HostEndpoint) (*RowSet, error)
}

// HostDirectory is the fixed lookup from host code to endpoint.
type HostDirectory interface {
	Lookup(code string) (HostEndpoint, bool)
}

// StatementCatalog maps syntax-configuration keys to statement or command text.
type StatementCatalog interface {
	Lookup(key string) (string, bool)
}
