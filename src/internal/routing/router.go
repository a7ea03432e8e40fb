package routing

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// Attempt records one host tried during a request.
type Attempt struct {
	Position int
	Host     domain.HostEndpoint
	Err      error
	Duration time.Duration
}

// RunFunc executes an action on one host.
type RunFunc func(ctx context.Context, host domain.HostEndpoint) (*domain.RowSet, error)

// Router selects hosts for an API. It holds no per-request state.
type Router struct {
	resolver Resolver
}

// NewRouter creates a router. A nil resolver leaves addresses unchanged.
func NewRouter(resolver Resolver) *Router {
	if resolver == nil {
		resolver = StaticResolver{}
	}
	return &Router{resolver: resolver}
}

// Candidates returns the enabled bindings in ascending position.
func Candidates(bindings []domain.HostBinding) []domain.HostBinding {
	enabled := make([]domain.HostBinding, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled {
			enabled = append(enabled, b)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Position < enabled[j].Position })
	return enabled
}

// Select returns the lowest-position enabled host.
func (r *Router) Select(bindings []domain.HostBinding) (domain.HostEndpoint, error) {
	candidates := Candidates(bindings)
	if len(candidates) == 0 {
		return domain.HostEndpoint{}, errors.NewNoHostAvailableError("no enabled host binding", nil)
	}
	return candidates[0].Endpoint, nil
}

// Failover runs fn against each enabled host in ascending position until one
// succeeds. Each host is tried at most once.
//
// An execution failure moves on to the next host. Any other error, or the
// request context ending, stops the walk. When every host failed the result
// is NO_HOST_AVAILABLE wrapping the last failure.
func (r *Router) Failover(ctx context.Context, bindings []domain.HostBinding, fn RunFunc) (*domain.RowSet, []Attempt, error) {
	candidates := Candidates(bindings)
	if len(candidates) == 0 {
		return nil, nil, errors.NewNoHostAvailableError("no enabled host binding", nil)
	}

	attempts := make([]Attempt, 0, len(candidates))
	var lastErr error

	for _, binding := range candidates {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = errors.NewTimeoutError(binding.HostCode, err)
			}
			return nil, attempts, lastErr
		}

		host := binding.Endpoint
		start := time.Now()

		result, err := r.run(ctx, host, fn)
		attempts = append(attempts, Attempt{Position: binding.Position, Host: host, Err: err, Duration: time.Since(start)})
		if err == nil {
			return result, attempts, nil
		}

		if !stderrors.Is(err, errors.ErrExecution) {
			return nil, attempts, err
		}
		logger.Warnf("Host %s (position %d) failed: %v", host, binding.Position, err)
		lastErr = err
	}

	if ctx.Err() != nil {
		return nil, attempts, lastErr
	}
	return nil, attempts, errors.NewNoHostAvailableError(
		fmt.Sprintf("all %d enabled host(s) failed", len(candidates)), lastErr)
}

func (r *Router) run(ctx context.Context, host domain.HostEndpoint, fn RunFunc) (*domain.RowSet, error) {
	addr, err := r.resolver.Resolve(ctx, host.Address)
	if err != nil {
		return nil, errors.NewConnectionFailureError(host.Code, err)
	}
	host.Address = addr
	return fn(ctx, host)
}
