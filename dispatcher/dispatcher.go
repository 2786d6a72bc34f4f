// Package dispatcher turns requested function calls into execution plans
// and runs them: dependency inference, topological ordering, bounded
// retries, and the middleware chain around every executor invocation.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agendo/engine/middleware"
	"github.com/agendo/engine/registry"
	"github.com/agendo/engine/retry"
	"github.com/agendo/engine/types"
)

// Executor performs the real side effect behind a function call (database
// write, external API call). Implementations live outside this module and
// must be safe to retry.
type Executor interface {
	Execute(ctx context.Context, call types.FunctionCall, fn types.RegisteredFunction, cctx types.ConversationContext) (*types.FunctionResult, error)
}

// Dispatcher routes function calls through the middleware chain to the
// executor, individually or as multi-step plans.
type Dispatcher struct {
	registry *registry.Registry
	executor Executor
	base     []middleware.Middleware
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	metrics    middleware.CallMetrics
	authorizer middleware.Authorizer
	limiter    *rate.Limiter
}

// WithMetrics wires a collector into the base metrics middleware.
func WithMetrics(collector middleware.CallMetrics) Option {
	return func(o *options) { o.metrics = collector }
}

// WithAuthorizer wires an authorizer into the base auth middleware.
func WithAuthorizer(authorizer middleware.Authorizer) Option {
	return func(o *options) { o.authorizer = authorizer }
}

// WithRateLimiter wires a limiter into the base rate-limit middleware.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

// New creates a Dispatcher over a registry and an executor. The base
// middleware chain is metrics, auth, and rate limiting; auth and rate
// limiting are pass-throughs until wired via options.
func New(reg *registry.Registry, executor Executor, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{
		registry: reg,
		executor: executor,
		base: []middleware.Middleware{
			middleware.Metrics(o.metrics),
			middleware.Auth(o.authorizer),
			middleware.RateLimit(o.limiter),
		},
		logger: logger.With(zap.String("component", "dispatcher")),
	}
}

// Registry returns the dispatcher's function registry.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Dispatch resolves one call by name scoped to the caller's domain and
// routes it through the middleware chain. A missing function yields a
// structured failure result, never an error.
func (d *Dispatcher) Dispatch(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
	fn, ok := d.registry.GetFunctionByName(call.Name, cctx.Domain())
	if !ok {
		d.logger.Warn("function not found",
			zap.String("function", call.Name),
			zap.String("domain", cctx.Domain()),
		)
		return &types.FunctionResult{
			Success:        false,
			Message:        "Function " + call.Name + " not found",
			ShouldContinue: false,
		}, nil
	}
	return d.handlerFor(fn)(ctx, call, cctx)
}

// handlerFor composes the effective middleware chain for a function: the
// dispatcher's base chain plus the function's own middleware, merged and
// sorted by descending priority around the executor. The chain is built
// once per plan step, not re-derived per attempt.
func (d *Dispatcher) handlerFor(fn types.RegisteredFunction) middleware.Handler {
	inner := func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
		return d.executor.Execute(ctx, call, fn, cctx)
	}
	mws := middleware.Merge(d.base, d.registry.MiddlewareFor(fn))
	return middleware.Compose(inner, mws...)
}

// stepPolicy returns the retry policy for a step: the plan-wide override
// when present, otherwise the function's own attempt allowance.
func (d *Dispatcher) stepPolicy(plan *ExecutionPlan, step *ExecutionStep) retry.Policy {
	if plan.Retry != nil {
		return *plan.Retry
	}
	return retry.PolicyWithAttempts(step.Function.MaxAttempts())
}

// executeStep runs one step through its composed handler with retries.
// Executor errors are retried up to the step's attempt budget; a
// structured unsuccessful result is a business outcome and is returned
// as-is.
func (d *Dispatcher) executeStep(ctx context.Context, plan *ExecutionPlan, step *ExecutionStep) StepResult {
	start := time.Now()
	handler := d.handlerFor(step.Function)
	retryer := retry.New(d.stepPolicy(plan, step), d.logger)

	var result *types.FunctionResult
	retries, err := retryer.Do(ctx, func() error {
		var execErr error
		result, execErr = handler(ctx, step.Call, plan.Context)
		return execErr
	})

	sr := StepResult{
		StepID:     step.ID,
		Function:   step.Function.Name,
		Result:     result,
		RetryCount: retries,
		Duration:   time.Since(start),
	}
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	sr.Success = result != nil && result.Success
	if !sr.Success && result != nil {
		sr.Error = result.Message
	}
	return sr
}
