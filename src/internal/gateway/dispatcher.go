// Package gateway drives one API request through the pipeline:
// resolve, validate, authorize, execute with failover, assemble.
package gateway

import (
	"context"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/access"
	"github.com/jhsoft/ws02-gateway/src/internal/assembler"
	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/params"
	"github.com/jhsoft/ws02-gateway/src/internal/routing"
)

var logger = log.Named("gateway")

// Authorizer decides whether a caller may invoke an API.
type Authorizer interface {
	Authorize(ctx context.Context, def *domain.ApiDefinition, callerIP string) error
}

// HostRouter runs an action against an API's hosts with failover.
type HostRouter interface {
	Failover(ctx context.Context, bindings []domain.HostBinding, fn routing.RunFunc) (*domain.RowSet, []routing.Attempt, error)
}

// ResultAssembler shapes result sets into the response tree.
type ResultAssembler interface {
	Assemble(def *domain.ApiDefinition, rs *domain.RowSet) ([]*assembler.Node, error)
}

// ValidateFunc checks caller input against field rules.
type ValidateFunc func(rules []domain.FieldRule, input map[string]string) (domain.ValidatedParams, error)

// Options configures a Dispatcher. Store and Executor are required; a nil
// Guard checks allowlists without auditing.
type Options struct {
	Store     domain.ConfigStore
	Guard     Authorizer
	Executor  domain.Executor
	Router    HostRouter
	Assembler ResultAssembler
	Validate  ValidateFunc
	Metrics   *Metrics
	// Timeout bounds the whole request. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// Request is one invocation.
type Request struct {
	Code     string
	Params   map[string]string
	CallerIP string
}

// Result describes how a request ended. It is returned for failures too.
type Result struct {
	Code      string
	RequestID string
	Nodes     []*assembler.Node
	// Host is the endpoint that produced the rows.
	Host     domain.HostEndpoint
	Attempts []routing.Attempt
	Rows     int

	State   State
	Failure errors.ErrorCode
	Trace   []State
}

// Dispatcher is safe for concurrent use. Nothing is shared between requests
// beyond the collaborators it was built with.
type Dispatcher struct {
	store     domain.ConfigStore
	guard     Authorizer
	executor  domain.Executor
	router    HostRouter
	assembler ResultAssembler
	validate  ValidateFunc
	metrics   *Metrics
	timeout   time.Duration
}

func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		store:     opts.Store,
		guard:     opts.Guard,
		executor:  opts.Executor,
		router:    opts.Router,
		assembler: opts.Assembler,
		validate:  opts.Validate,
		metrics:   opts.Metrics,
		timeout:   opts.Timeout,
	}
	if d.guard == nil {
		d.guard = access.NewGuard(nil)
	}
	if d.router == nil {
		d.router = routing.NewRouter(nil)
	}
	if d.assembler == nil {
		d.assembler = assembler.New(nil)
	}
	if d.validate == nil {
		d.validate = params.Validate
	}
	return d
}

// Dispatch runs req through the pipeline. Each stage runs only after the
// previous one succeeded; the first failure ends the request with its kind.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	d.metrics.begin()

	lc := newLifecycle()
	res := &Result{Code: req.Code, RequestID: domain.RequestIDFrom(ctx)}

	err := d.run(ctx, req, lc, res)
	if err != nil {
		lc.fail(err)
		logger.Warnf("[%s] %s failed after %s: %v", res.RequestID, req.Code, lc.trace[len(lc.trace)-2], err)
	} else {
		lc.advance(StateCompleted)
		logger.Debugf("[%s] %s completed on %s: %d row(s) in %s", res.RequestID, req.Code, res.Host.Code, res.Rows, time.Since(start))
	}

	res.State, res.Failure, res.Trace = lc.state, lc.failure, lc.trace
	d.metrics.finish(req.Code, err, time.Since(start))
	return res, err
}

func (d *Dispatcher) run(ctx context.Context, req Request, lc *lifecycle, res *Result) error {
	def, err := d.store.Resolve(ctx, req.Code)
	if err != nil {
		return err
	}
	lc.advance(StateResolved)

	values, err := d.validate(def.Fields, req.Params)
	if err != nil {
		return err
	}
	lc.advance(StateValidated)

	if err := d.guard.Authorize(ctx, def, req.CallerIP); err != nil {
		return err
	}
	lc.advance(StateAuthorized)

	lc.advance(StateExecuting)
	var served domain.HostEndpoint
	rows, attempts, err := d.router.Failover(ctx, def.Hosts, func(ctx context.Context, host domain.HostEndpoint) (*domain.RowSet, error) {
		rs, err := d.executor.Execute(ctx, def, values, host)
		if err == nil {
			served = host
		}
		return rs, err
	})
	res.Attempts = attempts
	d.metrics.attempts(attempts)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = &domain.RowSet{}
	}
	res.Host = served
	res.Rows = rows.RowCount()

	nodes, err := d.assembler.Assemble(def, rows)
	if err != nil {
		return err
	}
	lc.advance(StateAssembled)
	res.Nodes = nodes
	return nil
}
