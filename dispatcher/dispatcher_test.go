package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agendo/engine/registry"
	"github.com/agendo/engine/retry"
	"github.com/agendo/engine/types"
)

// stubExecutor scripts per-function behavior and records invocations.
type stubExecutor struct {
	mu    sync.Mutex
	calls map[string]int
	// failures is how many times a function errors before succeeding
	failures map[string]int
	results  map[string]*types.FunctionResult
	errs     map[string]error
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		results:  make(map[string]*types.FunctionResult),
		errs:     make(map[string]error),
	}
}

func (s *stubExecutor) Execute(_ context.Context, call types.FunctionCall, _ types.RegisteredFunction, _ types.ConversationContext) (*types.FunctionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[call.Name]++

	if s.failures[call.Name] > 0 {
		s.failures[call.Name]--
		return nil, errors.New("transient executor failure")
	}
	if err := s.errs[call.Name]; err != nil {
		return nil, err
	}
	if result := s.results[call.Name]; result != nil {
		return result, nil
	}
	return &types.FunctionResult{Success: true, Message: "ok"}, nil
}

func (s *stubExecutor) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func testContext() types.ConversationContext {
	return types.ConversationContext{
		TenantID:     "tenant_1",
		PhoneNumber:  "+5511999990000",
		TenantConfig: types.TenantConfig{Domain: "beauty"},
	}
}

func newTestDispatcher(t *testing.T, executor Executor) *Dispatcher {
	t.Helper()
	reg := registry.New(zap.NewNop())
	for _, fn := range []types.RegisteredFunction{
		{ID: "beauty_check", Name: "check_availability", Domain: "beauty"},
		{ID: "beauty_book", Name: "book_service", Domain: "beauty"},
		{ID: "beauty_info", Name: "get_business_info", Domain: "beauty"},
	} {
		require.True(t, reg.Register(fn))
	}
	return New(reg, executor, zap.NewNop())
}

func bookingArgs() json.RawMessage {
	return json.RawMessage(`{"date":"2026-09-01","time":"10:00"}`)
}

func TestDispatchUnknownFunction(t *testing.T) {
	d := newTestDispatcher(t, newStubExecutor())

	result, err := d.Dispatch(context.Background(), types.FunctionCall{Name: "no_such_function"}, testContext())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.ShouldContinue)
	assert.Contains(t, result.Message, "no_such_function")
}

func TestDispatchRunsMiddleware(t *testing.T) {
	executor := newStubExecutor()
	d := newTestDispatcher(t, executor)

	// booking validation rejects the call before the executor runs
	result, err := d.Dispatch(context.Background(), types.FunctionCall{
		Name:      "book_service",
		Arguments: json.RawMessage(`{"date":"2026-09-01"}`),
	}, testContext())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "time")
	assert.Zero(t, executor.callCount("book_service"))

	result, err = d.Dispatch(context.Background(), types.FunctionCall{
		Name:      "book_service",
		Arguments: bookingArgs(),
	}, testContext())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, executor.callCount("book_service"))
}

func TestDispatchPlanSequential(t *testing.T) {
	executor := newStubExecutor()
	executor.results["check_availability"] = &types.FunctionResult{
		Success: true,
		Actions: []string{"availability_checked"},
	}
	d := newTestDispatcher(t, executor)

	calls := []types.FunctionCall{
		{Name: "check_availability", Arguments: bookingArgs()},
		{Name: "book_service", Arguments: bookingArgs()},
	}
	result, err := d.DispatchPlan(context.Background(), calls, testContext(), PlanOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Steps, 2)

	// the inferred check -> book edge forces the availability check first
	assert.Equal(t, "check_availability", result.Steps[0].Function)
	assert.Equal(t, "book_service", result.Steps[1].Function)
	assert.Equal(t, []string{"availability_checked"}, result.Actions)
}

func TestDispatchPlanStopsOnFatalFailure(t *testing.T) {
	executor := newStubExecutor()
	executor.results["check_availability"] = &types.FunctionResult{
		Success:        false,
		Message:        "no slots available",
		ShouldContinue: false,
	}
	d := newTestDispatcher(t, executor)

	calls := []types.FunctionCall{
		{Name: "check_availability", Arguments: bookingArgs()},
		{Name: "get_business_info"},
	}
	result, err := d.DispatchPlan(context.Background(), calls, testContext(), PlanOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, []string{result.Steps[0].StepID}, result.FailedSteps)
	assert.Zero(t, executor.callCount("get_business_info"))
}

func TestDispatchPlanContinuesOnSoftFailure(t *testing.T) {
	executor := newStubExecutor()
	executor.results["check_availability"] = &types.FunctionResult{
		Success:        false,
		Message:        "slot taken",
		ShouldContinue: true,
	}
	d := newTestDispatcher(t, executor)

	calls := []types.FunctionCall{
		{Name: "check_availability", Arguments: bookingArgs()},
		{Name: "get_business_info"},
	}
	result, err := d.DispatchPlan(context.Background(), calls, testContext(), PlanOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, 1, executor.callCount("get_business_info"))
}

func TestDispatchPlanSkipsUnresolvedCalls(t *testing.T) {
	executor := newStubExecutor()
	d := newTestDispatcher(t, executor)

	calls := []types.FunctionCall{
		{Name: "no_such_function"},
		{Name: "get_business_info"},
	}
	result, err := d.DispatchPlan(context.Background(), calls, testContext(), PlanOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "get_business_info", result.Steps[0].Function)
}

func TestDispatchPlanParallel(t *testing.T) {
	executor := newStubExecutor()
	executor.errs["get_business_info"] = errors.New("backend down")
	d := newTestDispatcher(t, executor)

	fastRetry := &retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	calls := []types.FunctionCall{
		{Name: "check_availability", Arguments: bookingArgs()},
		{Name: "get_business_info"},
	}
	result, err := d.DispatchPlan(context.Background(), calls, testContext(), PlanOptions{
		Parallel: true,
		Retry:    fastRetry,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Steps, 2)

	// one step failed, the other still ran to completion
	assert.Len(t, result.FailedSteps, 1)
	assert.Equal(t, 1, executor.callCount("check_availability"))
}

func TestExecuteStepRetryCount(t *testing.T) {
	t.Run("two failures then success", func(t *testing.T) {
		executor := newStubExecutor()
		executor.failures["get_business_info"] = 2
		d := newTestDispatcher(t, executor)

		fastRetry := &retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
		result, err := d.DispatchPlan(context.Background(), []types.FunctionCall{
			{Name: "get_business_info"},
		}, testContext(), PlanOptions{Retry: fastRetry})
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.True(t, result.Steps[0].Success)
		assert.Equal(t, 2, result.Steps[0].RetryCount)
		assert.Equal(t, 3, executor.callCount("get_business_info"))
	})

	t.Run("exhausted budget", func(t *testing.T) {
		executor := newStubExecutor()
		executor.errs["get_business_info"] = errors.New("permanently down")
		d := newTestDispatcher(t, executor)

		fastRetry := &retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
		result, err := d.DispatchPlan(context.Background(), []types.FunctionCall{
			{Name: "get_business_info"},
		}, testContext(), PlanOptions{Retry: fastRetry})
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.False(t, result.Steps[0].Success)
		assert.Equal(t, 3, result.Steps[0].RetryCount)
		assert.Contains(t, result.Steps[0].Error, "failed after 3 attempts")
	})

	t.Run("business failure is not retried", func(t *testing.T) {
		executor := newStubExecutor()
		executor.results["get_business_info"] = &types.FunctionResult{
			Success: false,
			Message: "closed on sundays",
		}
		d := newTestDispatcher(t, executor)

		result, err := d.DispatchPlan(context.Background(), []types.FunctionCall{
			{Name: "get_business_info"},
		}, testContext(), PlanOptions{})
		require.NoError(t, err)
		require.Len(t, result.Steps, 1)
		assert.False(t, result.Steps[0].Success)
		assert.Zero(t, result.Steps[0].RetryCount)
		assert.Equal(t, 1, executor.callCount("get_business_info"))
		assert.Equal(t, "closed on sundays", result.Steps[0].Error)
	})
}

func TestInferDependencies(t *testing.T) {
	t.Run("declared metadata wins", func(t *testing.T) {
		earlier := []*ExecutionStep{
			{ID: "step_get_business_info_0", Function: types.RegisteredFunction{Name: "get_business_info"}},
		}
		s := &ExecutionStep{
			Call: types.FunctionCall{Name: "book_service"},
			Function: types.RegisteredFunction{
				Name:     "book_service",
				Metadata: types.FunctionMetadata{DependsOn: []string{"get_business_info"}},
			},
		}
		deps := inferDependencies(s, earlier)
		assert.Equal(t, []string{"step_get_business_info_0"}, deps)
	})

	t.Run("booking heuristic", func(t *testing.T) {
		earlier := []*ExecutionStep{
			{ID: "step_check_availability_0", Call: types.FunctionCall{Name: "check_availability"}, Function: types.RegisteredFunction{Name: "check_availability"}},
			{ID: "step_get_business_info_1", Call: types.FunctionCall{Name: "get_business_info"}, Function: types.RegisteredFunction{Name: "get_business_info"}},
		}
		s := &ExecutionStep{
			Call:     types.FunctionCall{Name: "book_service"},
			Function: types.RegisteredFunction{Name: "book_service"},
		}
		deps := inferDependencies(s, earlier)
		assert.Equal(t, []string{"step_check_availability_0"}, deps)
	})

	t.Run("non-booking call has no inferred deps", func(t *testing.T) {
		earlier := []*ExecutionStep{
			{ID: "step_check_availability_0", Call: types.FunctionCall{Name: "check_availability"}},
		}
		s := &ExecutionStep{
			Call:     types.FunctionCall{Name: "get_business_info"},
			Function: types.RegisteredFunction{Name: "get_business_info"},
		}
		assert.Empty(t, inferDependencies(s, earlier))
	})
}

func TestDispatchPlanTimeout(t *testing.T) {
	d := newTestDispatcher(t, slowExecutor{delay: 50 * time.Millisecond})

	result, err := d.DispatchPlan(context.Background(), []types.FunctionCall{
		{Name: "get_business_info"},
	}, testContext(), PlanOptions{
		Timeout: 5 * time.Millisecond,
		Retry:   &retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

type slowExecutor struct {
	delay time.Duration
}

func (s slowExecutor) Execute(ctx context.Context, _ types.FunctionCall, _ types.RegisteredFunction, _ types.ConversationContext) (*types.FunctionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return &types.FunctionResult{Success: true}, nil
	}
}
