package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agendo/engine/types"
)

// DispatchPlan builds an execution plan for the requested calls and runs
// it. Sequential mode (the default) walks the steps in topological order
// and stops at the first fatal failure; parallel mode fans out every step
// at once and joins all results.
//
// The only error returned is a pre-execution planning failure (a
// dependency cycle); individual step failures are recovered into the
// ExecutionResult.
func (d *Dispatcher) DispatchPlan(ctx context.Context, calls []types.FunctionCall, cctx types.ConversationContext, opts PlanOptions) (*ExecutionResult, error) {
	start := time.Now()
	plan := d.buildPlan(calls, cctx, opts)

	d.logger.Info("executing plan",
		zap.String("plan_id", plan.ID),
		zap.Int("requested", len(calls)),
		zap.Int("steps", len(plan.Steps)),
		zap.Bool("parallel", plan.Parallel),
	)

	if plan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Timeout)
		defer cancel()
	}

	var (
		stepResults []StepResult
		err         error
	)
	if plan.Parallel {
		stepResults = d.executeParallel(ctx, plan)
	} else {
		stepResults, err = d.executeSequential(ctx, plan)
		if err != nil {
			return nil, err
		}
	}

	result := &ExecutionResult{
		PlanID:   plan.ID,
		Success:  true,
		Steps:    stepResults,
		Duration: time.Since(start),
	}
	for _, sr := range stepResults {
		if !sr.Success {
			result.Success = false
			result.FailedSteps = append(result.FailedSteps, sr.StepID)
			continue
		}
		if sr.Result != nil {
			result.Actions = append(result.Actions, sr.Result.Actions...)
		}
	}

	d.logger.Info("plan completed",
		zap.String("plan_id", plan.ID),
		zap.Bool("success", result.Success),
		zap.Int("failed_steps", len(result.FailedSteps)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// executeSequential runs steps strictly in topological order. A failed
// step aborts the remainder of the plan unless its result explicitly
// signals that execution may continue.
func (d *Dispatcher) executeSequential(ctx context.Context, plan *ExecutionPlan) ([]StepResult, error) {
	sorted, err := topologicalSort(plan.Steps)
	if err != nil {
		d.logger.Error("plan rejected", zap.String("plan_id", plan.ID), zap.Error(err))
		return nil, err
	}

	results := make([]StepResult, 0, len(sorted))
	for _, step := range sorted {
		sr := d.executeStep(ctx, plan, step)
		results = append(results, sr)

		if !sr.Success {
			if sr.Result != nil && sr.Result.ShouldContinue {
				continue
			}
			d.logger.Warn("plan aborted on failed step",
				zap.String("plan_id", plan.ID),
				zap.String("step_id", step.ID),
			)
			break
		}
	}
	return results, nil
}

// executeParallel fans out every step concurrently and joins all results.
// A failed step never aborts the join; its failure is preserved in the
// corresponding StepResult.
func (d *Dispatcher) executeParallel(ctx context.Context, plan *ExecutionPlan) []StepResult {
	results := make([]StepResult, len(plan.Steps))

	var g errgroup.Group
	for i, step := range plan.Steps {
		i, step := i, step
		g.Go(func() error {
			results[i] = d.executeStep(ctx, plan, step)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	return results
}
