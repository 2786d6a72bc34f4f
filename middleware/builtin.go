package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agendo/engine/types"
)

// Default middleware names, referenced by registered functions.
const (
	NameLogging           = "logging"
	NameMetrics           = "metrics"
	NameAuth              = "auth"
	NameRateLimit         = "rate_limit"
	NameBookingValidation = "booking_validation"
)

// Priorities for the built-in middleware. The base dispatcher chain runs
// rate limiting outermost, then auth, then metrics; per-function logging
// sits above all of them and validation sits closest to the executor.
const (
	PriorityLogging    = 100
	PriorityRateLimit  = 90
	PriorityAuth       = 80
	PriorityMetrics    = 70
	PriorityValidation = 10
)

// CallMetrics receives timing observations from the metrics middleware.
type CallMetrics interface {
	ObserveCall(function, domain string, duration time.Duration, success bool)
}

// Logging returns the middleware attached to every registered function.
// It records the call name, tenant, outcome and duration.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Middleware{
		Name:     NameLogging,
		Priority: PriorityLogging,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				start := time.Now()
				result, err := next(ctx, call, cctx)
				fields := []zap.Field{
					zap.String("function", call.Name),
					zap.String("tenant_id", cctx.TenantID),
					zap.Duration("duration", time.Since(start)),
				}
				switch {
				case err != nil:
					logger.Error("function call failed", append(fields, zap.Error(err))...)
				case result != nil && !result.Success:
					logger.Warn("function call unsuccessful", append(fields, zap.String("message", result.Message))...)
				default:
					logger.Info("function call completed", fields...)
				}
				return result, err
			}
		},
	}
}

// Metrics returns the base middleware recording success/error timing.
func Metrics(collector CallMetrics) Middleware {
	return Middleware{
		Name:     NameMetrics,
		Priority: PriorityMetrics,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				start := time.Now()
				result, err := next(ctx, call, cctx)
				if collector != nil {
					success := err == nil && result != nil && result.Success
					collector.ObserveCall(call.Name, cctx.Domain(), time.Since(start), success)
				}
				return result, err
			}
		},
	}
}

// Authorizer decides whether a call may proceed. A nil Authorizer makes
// the auth middleware a pass-through.
type Authorizer interface {
	Authorize(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) error
}

// Auth returns the base authentication middleware. It is an extension
// point: without an Authorizer every call passes through unchanged.
func Auth(authorizer Authorizer) Middleware {
	return Middleware{
		Name:     NameAuth,
		Priority: PriorityAuth,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				if authorizer != nil {
					if err := authorizer.Authorize(ctx, call, cctx); err != nil {
						return &types.FunctionResult{
							Success:        false,
							Message:        err.Error(),
							ShouldContinue: false,
						}, nil
					}
				}
				return next(ctx, call, cctx)
			}
		},
	}
}

// RateLimit returns the base rate-limiting middleware. With a nil limiter
// it is a pass-through; with a limiter, calls beyond the budget fail
// softly so the caller may retry later.
func RateLimit(limiter *rate.Limiter) Middleware {
	return Middleware{
		Name:     NameRateLimit,
		Priority: PriorityRateLimit,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				if limiter != nil && !limiter.Allow() {
					return &types.FunctionResult{
						Success:        false,
						Message:        "rate limit exceeded for " + call.Name,
						ShouldContinue: true,
					}, nil
				}
				return next(ctx, call, cctx)
			}
		},
	}
}

// BookingValidation returns the middleware attached to booking-category
// functions. It fails fast when the date or time argument is missing,
// before the executor performs any side effect.
func BookingValidation() Middleware {
	return Middleware{
		Name:     NameBookingValidation,
		Priority: PriorityValidation,
		Wrap: func(next Handler) Handler {
			return func(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
				args, err := call.ParsedArguments()
				if err != nil {
					return &types.FunctionResult{
						Success:        false,
						Message:        "invalid arguments: " + err.Error(),
						ShouldContinue: false,
					}, nil
				}
				for _, required := range []string{"date", "time"} {
					if v, ok := args[required]; !ok || v == "" {
						return &types.FunctionResult{
							Success:        false,
							Message:        "missing required argument: " + required,
							ShouldContinue: false,
						}, nil
					}
				}
				return next(ctx, call, cctx)
			}
		},
	}
}
