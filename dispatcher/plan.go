package dispatcher

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendo/engine/retry"
	"github.com/agendo/engine/types"
)

// ExecutionStep is one call inside an execution plan.
type ExecutionStep struct {
	ID           string                   `json:"id"`
	Function     types.RegisteredFunction `json:"function"`
	Call         types.FunctionCall       `json:"call"`
	Dependencies []string                 `json:"dependencies,omitempty"`
	Priority     int                      `json:"priority"`
}

// ExecutionPlan is the ordered bag of steps built for one dispatch
// request. Plans are created per call and discarded after execution.
type ExecutionPlan struct {
	ID       string                    `json:"id"`
	Steps    []*ExecutionStep          `json:"steps"`
	Context  types.ConversationContext `json:"context"`
	Parallel bool                      `json:"parallel"`
	Timeout  time.Duration             `json:"timeout"`
	Retry    *retry.Policy             `json:"-"`
}

// PlanOptions configures plan construction and execution.
type PlanOptions struct {
	// Parallel dispatches all steps concurrently instead of walking the
	// dependency order.
	Parallel bool
	// Timeout is an upper bound on total plan wall-clock time. Zero means
	// no bound.
	Timeout time.Duration
	// Retry overrides the per-function retry allowance for every step.
	Retry *retry.Policy
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepID     string                `json:"step_id"`
	Function   string                `json:"function"`
	Success    bool                  `json:"success"`
	Result     *types.FunctionResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	RetryCount int                   `json:"retry_count"`
	Duration   time.Duration         `json:"duration"`
}

// ExecutionResult is the aggregate outcome of a plan.
type ExecutionResult struct {
	PlanID      string        `json:"plan_id"`
	Success     bool          `json:"success"`
	Steps       []StepResult  `json:"steps"`
	Duration    time.Duration `json:"duration"`
	FailedSteps []string      `json:"failed_steps,omitempty"`
	Actions     []string      `json:"actions,omitempty"`
}

// buildPlan resolves each call against the registry and wires step
// dependencies. Calls whose function cannot be resolved for the caller's
// domain are skipped silently: no step is created for them.
func (d *Dispatcher) buildPlan(calls []types.FunctionCall, cctx types.ConversationContext, opts PlanOptions) *ExecutionPlan {
	plan := &ExecutionPlan{
		ID:       "plan_" + uuid.NewString(),
		Context:  cctx,
		Parallel: opts.Parallel,
		Timeout:  opts.Timeout,
		Retry:    opts.Retry,
	}

	for i, call := range calls {
		fn, ok := d.registry.GetFunctionByName(call.Name, cctx.Domain())
		if !ok {
			d.logger.Debug("skipping unresolved call", zap.String("function", call.Name))
			continue
		}
		step := &ExecutionStep{
			ID:       stepID(i, call.Name),
			Function: fn,
			Call:     call,
			Priority: fn.Priority(),
		}
		step.Dependencies = inferDependencies(step, plan.Steps)
		plan.Steps = append(plan.Steps, step)
	}

	return plan
}

func stepID(index int, name string) string {
	return "step_" + name + "_" + strconv.Itoa(index)
}

// inferDependencies computes the dependency edges for a new step against
// the steps already in the plan.
//
// Declared metadata wins: when the function lists DependsOn names, the
// step depends on every earlier step executing one of them. Otherwise a
// booking heuristic applies: a call whose name contains "book" depends on
// every earlier call whose name contains "check" or "availability".
func inferDependencies(step *ExecutionStep, earlier []*ExecutionStep) []string {
	if declared := step.Function.Metadata.DependsOn; len(declared) > 0 {
		var deps []string
		for _, prev := range earlier {
			for _, name := range declared {
				if prev.Function.Name == name {
					deps = append(deps, prev.ID)
					break
				}
			}
		}
		return deps
	}

	lower := strings.ToLower(step.Call.Name)
	if !strings.Contains(lower, "book") {
		return nil
	}
	var deps []string
	for _, prev := range earlier {
		prevName := strings.ToLower(prev.Call.Name)
		if strings.Contains(prevName, "check") || strings.Contains(prevName, "availability") {
			deps = append(deps, prev.ID)
		}
	}
	return deps
}
