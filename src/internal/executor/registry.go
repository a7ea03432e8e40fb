// Package executor runs an API's action on one backend host.
//
// One executor is registered per execution kind; Registry dispatches on the
// definition's kind so adding a backend touches only the registration in the
// container. Executors never retry; failover belongs to the router.
package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
)

var logger = log.Named("executor")

// Registry dispatches to the executor registered for an API's kind.
type Registry struct {
	executors map[domain.ExecKind]domain.Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.ExecKind]domain.Executor)}
}

// Register sets the executor for kind, replacing any previous one.
func (r *Registry) Register(kind domain.ExecKind, exec domain.Executor) {
	r.executors[kind] = exec
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []domain.ExecKind {
	kinds := make([]domain.ExecKind, 0, len(r.executors))
	for k := range r.executors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Execute implements domain.Executor.
func (r *Registry) Execute(ctx context.Context, def *domain.ApiDefinition, params domain.ValidatedParams, host domain.HostEndpoint) (*domain.RowSet, error) {
	exec, ok := r.executors[def.Kind]
	if !ok {
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("no executor registered for kind %q", def.Kind), nil)
	}
	return exec.Execute(ctx, def, params, host)
}
