package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agendo/engine/cache"
	"github.com/agendo/engine/dispatcher"
	"github.com/agendo/engine/types"
	"github.com/agendo/engine/workflow"
)

// busyResult is returned when the concurrency cap is reached. It is a
// soft failure: the conversation may retry the call.
func busyResult() *types.FunctionResult {
	return &types.FunctionResult{
		Success:        false,
		Message:        "System is busy processing other requests. Please try again in a moment.",
		ShouldContinue: true,
	}
}

// Dispatch executes one function call through the full pipeline: the
// concurrency cap, the result cache, and the dispatcher's middleware
// chain. At capacity it returns a soft failure instead of queueing.
func (e *Engine) Dispatch(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error) {
	if !e.sem.TryAcquire(1) {
		e.logger.Warn("concurrency cap reached",
			zap.String("function", call.Name),
			zap.String("tenant", cctx.TenantID),
		)
		if e.collector != nil {
			e.collector.ObserveCapRejection()
		}
		return busyResult(), nil
	}
	defer e.sem.Release(1)

	if e.collector != nil {
		e.collector.CallStarted()
		defer e.collector.CallFinished()
	}
	e.stats.callStarted(call.Name)
	defer e.stats.callFinished()

	key := cache.Key(call.Name, call.Arguments, cctx.TenantID, cctx.Domain())
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			if e.collector != nil {
				e.collector.ObserveCacheHit()
			}
			e.stats.cacheHit()
			e.logger.Debug("result served from cache", zap.String("function", call.Name))
			return cached, nil
		}
		if e.collector != nil {
			e.collector.ObserveCacheMiss()
		}
	}

	if e.cfg.Engine.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Engine.CallTimeout)
		defer cancel()
	}

	result, err := e.dispatcher.Dispatch(ctx, call, cctx)
	e.stats.callCompleted(err == nil && result != nil && result.Success)
	if err != nil {
		return nil, err
	}

	if e.cache != nil && result.Success {
		e.cache.Set(ctx, key, result, e.ttlFor(call.Name))
	}
	return result, nil
}

// DispatchPlan plans and executes a batch of calls. Plan execution
// bypasses the result cache; steps observe each other's side effects.
func (e *Engine) DispatchPlan(ctx context.Context, calls []types.FunctionCall, cctx types.ConversationContext, opts dispatcher.PlanOptions) (*dispatcher.ExecutionResult, error) {
	if !e.sem.TryAcquire(1) {
		e.logger.Warn("concurrency cap reached for plan", zap.String("tenant", cctx.TenantID))
		if e.collector != nil {
			e.collector.ObserveCapRejection()
		}
		return nil, types.NewError(types.ErrConcurrencyCap,
			"system is busy processing other requests")
	}
	defer e.sem.Release(1)

	if opts.Timeout == 0 {
		opts.Timeout = e.cfg.Engine.PlanTimeout
	}

	result, err := e.dispatcher.DispatchPlan(ctx, calls, cctx, opts)
	if err != nil {
		return nil, err
	}
	if e.collector != nil {
		e.collector.ObservePlan(opts.Parallel, result.Success)
	}
	for _, sr := range result.Steps {
		e.stats.callCompleted(sr.Success)
		e.stats.record(sr.Function)
	}
	return result, nil
}

// ExecuteWorkflow runs a registered workflow to completion.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, cctx types.ConversationContext, variables map[string]any) (*workflow.Execution, error) {
	exec, err := e.workflows.Execute(ctx, workflowID, cctx, variables)
	if err != nil {
		return nil, err
	}
	e.stats.workflowExecuted()
	if e.collector != nil {
		e.collector.ObserveWorkflow(workflowID, string(exec.Status))
	}
	return exec, nil
}

// ttlFor picks the cache lifetime for a function's results by name:
// availability answers go stale fast, informational answers last longer.
func (e *Engine) ttlFor(name string) time.Duration {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "availability"), strings.Contains(lower, "check"):
		return e.cfg.Cache.AvailabilityTTL
	case strings.Contains(lower, "info"), strings.Contains(lower, "get"):
		return e.cfg.Cache.InfoTTL
	default:
		return e.cfg.Cache.DefaultTTL
	}
}
