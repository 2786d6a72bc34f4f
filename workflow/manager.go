package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendo/engine/types"
)

// Dispatcher executes function_call steps. The dispatcher package's
// Dispatcher satisfies this.
type Dispatcher interface {
	Dispatch(ctx context.Context, call types.FunctionCall, cctx types.ConversationContext) (*types.FunctionResult, error)
}

// NotificationSender delivers notification-step messages through an
// external channel (WhatsApp, email, SMS). Implementations live outside
// this module.
type NotificationSender interface {
	Send(ctx context.Context, channel, template string, recipients []string, vars map[string]any) error
}

// Manager registers workflow definitions and executes them with a
// branch-following loop: each step routes to its OnSuccess or OnFailure
// successor, a visited set guards against cycles, and step results feed
// the shared variable store.
type Manager struct {
	mu         sync.RWMutex
	workflows  map[string]Definition
	executions map[string]*Execution
	dispatcher Dispatcher
	httpClient *http.Client
	notifier   NotificationSender
	logger     *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used by webhook steps.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

// WithNotifier sets the sender used by notification steps.
func WithNotifier(notifier NotificationSender) Option {
	return func(m *Manager) { m.notifier = notifier }
}

// New creates a Manager bound to a dispatcher and registers the default
// booking workflow.
func New(dispatcher Dispatcher, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		workflows:  make(map[string]Definition),
		executions: make(map[string]*Execution),
		dispatcher: dispatcher,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(zap.String("component", "workflow_manager")),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registerDefaults()
	return m
}

// Register validates and stores a workflow definition. It returns false
// when the id is taken or the definition is invalid; invalid workflows
// are never stored.
func (m *Manager) Register(def Definition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workflows[def.ID]; exists {
		m.logger.Warn("workflow already registered", zap.String("workflow_id", def.ID))
		return false
	}
	if err := validate(def); err != nil {
		m.logger.Error("invalid workflow rejected",
			zap.String("workflow_id", def.ID),
			zap.Error(err),
		)
		return false
	}

	m.workflows[def.ID] = def
	m.logger.Info("workflow registered",
		zap.String("workflow_id", def.ID),
		zap.Int("steps", len(def.Steps)),
	)
	return true
}

// validate checks the structural invariants of a definition: id, name and
// at least one step are required, step ids must be unique, and every
// declared dependency must reference a step in the same workflow.
func validate(def Definition) error {
	if def.ID == "" {
		return types.NewError(types.ErrWorkflowValidation, "workflow id is required")
	}
	if def.Name == "" {
		return types.NewError(types.ErrWorkflowValidation, "workflow name is required")
	}
	if len(def.Steps) == 0 {
		return types.NewError(types.ErrWorkflowValidation, "at least one step is required")
	}

	stepIDs := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if stepIDs[step.ID] {
			return types.Errorf(types.ErrWorkflowValidation, "duplicate step id: %s", step.ID)
		}
		stepIDs[step.ID] = true
	}
	for _, step := range def.Steps {
		for _, dep := range step.Dependencies {
			if !stepIDs[dep] {
				return types.Errorf(types.ErrWorkflowValidation,
					"step %s depends on non-existent step: %s", step.ID, dep)
			}
		}
	}
	return nil
}

// Execute runs a workflow to completion. It returns an error only when
// the workflow is unknown or inactive; step failures are captured in the
// returned Execution.
func (m *Manager) Execute(ctx context.Context, workflowID string, cctx types.ConversationContext, initialVariables map[string]any) (*Execution, error) {
	m.mu.RLock()
	def, exists := m.workflows[workflowID]
	m.mu.RUnlock()

	if !exists {
		return nil, types.Errorf(types.ErrWorkflowNotFound, "workflow %s not found", workflowID)
	}
	if !def.Metadata.IsActive {
		return nil, types.Errorf(types.ErrWorkflowInactive, "workflow %s is not active", workflowID)
	}

	exec := &Execution{
		ID:          "exec_" + uuid.NewString(),
		WorkflowID:  workflowID,
		Context:     cctx,
		Status:      StatusRunning,
		CurrentStep: def.FirstStep(),
		StartTime:   time.Now(),
		Variables:   make(map[string]any, len(initialVariables)),
	}
	for k, v := range initialVariables {
		exec.Variables[k] = v
	}
	for _, step := range def.Steps {
		exec.Steps = append(exec.Steps, &StepExecution{StepID: step.ID, Status: StepPending})
	}

	m.mu.Lock()
	m.executions[exec.ID] = exec
	m.mu.Unlock()

	m.logger.Info("starting workflow execution",
		zap.String("execution_id", exec.ID),
		zap.String("workflow_id", workflowID),
	)

	m.runSteps(ctx, def, exec)

	now := time.Now()
	exec.EndTime = &now
	for _, se := range exec.Steps {
		if se.Status == StepPending {
			se.Status = StepSkipped
		}
	}

	m.logger.Info("workflow execution finished",
		zap.String("execution_id", exec.ID),
		zap.String("status", string(exec.Status)),
	)
	return exec, nil
}

// runSteps walks the branch-following loop. The loop terminates when the
// next step id is empty or already visited (cycle guard). When a branch
// target is missing or the loop ends after a failure, the execution
// finishes with the last step's actual status rather than defaulting to
// success.
func (m *Manager) runSteps(ctx context.Context, def Definition, exec *Execution) {
	visited := make(map[string]bool, len(def.Steps))
	currentID := def.FirstStep()
	lastSucceeded := true

	for currentID != "" && !visited[currentID] {
		visited[currentID] = true
		exec.CurrentStep = currentID

		step, found := def.StepByID(currentID)
		if !found {
			exec.Status = StatusFailed
			exec.Error = types.Errorf(types.ErrStepNotFound,
				"step %s not found in workflow %s", currentID, def.ID).Error()
			return
		}
		se := exec.stepExecution(currentID)

		m.logger.Debug("executing workflow step",
			zap.String("execution_id", exec.ID),
			zap.String("step_id", step.ID),
			zap.String("step_type", string(step.Type)),
		)

		se.Status = StepRunning
		start := time.Now()
		se.StartTime = &start

		outcome, err := m.executeStep(ctx, step, exec)
		end := time.Now()
		se.EndTime = &end

		if err != nil {
			se.Status = StepFailed
			se.Error = err.Error()

			if step.RetryPolicy != nil && se.RetryCount < step.RetryPolicy.MaxRetries {
				se.RetryCount++
				se.Status = StepPending
				if step.RetryPolicy.Delay > 0 {
					select {
					case <-ctx.Done():
						exec.Status = StatusCancelled
						exec.Error = ctx.Err().Error()
						return
					case <-time.After(step.RetryPolicy.Delay):
					}
				}
				delete(visited, currentID)
				continue
			}

			lastSucceeded = false
			currentID = step.OnFailure
			if currentID == "" {
				exec.Status = StatusFailed
				exec.Error = err.Error()
				return
			}
			continue
		}

		se.Status = StepCompleted
		se.Result = outcome
		if outcome.Data != nil {
			exec.mergeVariables(outcome.Data)
		}

		lastSucceeded = outcome.Success
		if outcome.Success {
			currentID = step.OnSuccess
		} else {
			currentID = step.OnFailure
		}
	}

	if lastSucceeded {
		exec.Status = StatusCompleted
	} else {
		exec.Status = StatusFailed
	}
}

// GetWorkflow returns a registered definition.
func (m *Manager) GetWorkflow(id string) (Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.workflows[id]
	return def, ok
}

// GetExecution returns a past or running execution by id.
func (m *Manager) GetExecution(id string) (*Execution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exec, ok := m.executions[id]
	return exec, ok
}

// ListWorkflows returns all registered definitions.
func (m *Manager) ListWorkflows() []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]Definition, 0, len(m.workflows))
	for _, def := range m.workflows {
		defs = append(defs, def)
	}
	return defs
}

// ListExecutions returns all recorded executions.
func (m *Manager) ListExecutions() []*Execution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	execs := make([]*Execution, 0, len(m.executions))
	for _, exec := range m.executions {
		execs = append(execs, exec)
	}
	return execs
}

// executeStep runs one step according to its type.
func (m *Manager) executeStep(ctx context.Context, step Step, exec *Execution) (*stepOutcome, error) {
	switch step.Type {
	case StepFunctionCall:
		return m.executeFunctionCall(ctx, step, exec)
	case StepCondition:
		return m.executeCondition(step, exec), nil
	case StepWebhook:
		return m.executeWebhook(ctx, step, exec), nil
	case StepNotification:
		return m.executeNotification(ctx, step, exec)
	case StepParallel:
		return &stepOutcome{Success: true, Message: "parallel group completed"}, nil
	case StepSequential:
		return &stepOutcome{Success: true, Message: "sequential group completed"}, nil
	default:
		return nil, types.Errorf(types.ErrWorkflowValidation, "unknown step type: %s", step.Type)
	}
}

func (m *Manager) executeFunctionCall(ctx context.Context, step Step, exec *Execution) (*stepOutcome, error) {
	if step.Config.FunctionName == "" {
		return nil, types.NewError(types.ErrWorkflowValidation,
			"function name is required for function_call step")
	}

	resolved := resolveVariables(step.Config.Arguments, exec.Variables)
	args, err := json.Marshal(resolved)
	if err != nil {
		return nil, err
	}

	result, err := m.dispatcher.Dispatch(ctx, types.FunctionCall{
		Name:      step.Config.FunctionName,
		Arguments: args,
	}, exec.Context)
	if err != nil {
		return nil, err
	}
	return &stepOutcome{
		Success: result.Success,
		Message: result.Message,
		Data:    result.Data,
	}, nil
}

// executeCondition evaluates the step's condition against the variables.
// A malformed or failing condition is treated as false; it never crashes
// the workflow.
func (m *Manager) executeCondition(step Step, exec *Execution) *stepOutcome {
	cond := step.Config.Condition
	if cond == nil && step.Config.Expression != "" {
		parsed, err := ParseExpression(step.Config.Expression)
		if err != nil {
			m.logger.Warn("condition parse failed",
				zap.String("step_id", step.ID),
				zap.String("expression", step.Config.Expression),
				zap.Error(err),
			)
			return &stepOutcome{Success: false, Message: "condition parse failed"}
		}
		cond = &parsed
	}
	if cond == nil {
		m.logger.Warn("condition step without condition", zap.String("step_id", step.ID))
		return &stepOutcome{Success: false, Message: "condition is required for condition step"}
	}

	passed, err := cond.Evaluate(exec.Variables)
	if err != nil {
		m.logger.Warn("condition evaluation failed",
			zap.String("step_id", step.ID),
			zap.Error(err),
		)
		return &stepOutcome{Success: false, Message: "condition evaluation failed"}
	}
	message := "condition failed"
	if passed {
		message = "condition passed"
	}
	return &stepOutcome{Success: passed, Message: message}
}

// executeWebhook posts the execution variables as JSON to the configured
// endpoint. Success is an HTTP 2xx status; transport errors are a failed
// outcome, not a workflow error.
func (m *Manager) executeWebhook(ctx context.Context, step Step, exec *Execution) *stepOutcome {
	cfg := step.Config.Webhook
	if cfg == nil {
		return &stepOutcome{Success: false, Message: "webhook config is required for webhook step"}
	}

	body, err := json.Marshal(exec.Variables)
	if err != nil {
		return &stepOutcome{Success: false, Message: "webhook body marshal failed: " + err.Error()}
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return &stepOutcome{Success: false, Message: "webhook request failed: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &stepOutcome{Success: false, Message: "webhook error: " + err.Error()}
	}
	defer resp.Body.Close()

	var data map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&data)

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	message := "webhook failed: " + resp.Status
	if success {
		message = "webhook succeeded: " + resp.Status
	}
	return &stepOutcome{Success: success, Message: message, Data: data}
}

// executeNotification hands the message to the notification sender. The
// step reports success once the send call is made; delivery confirmation
// is not awaited.
func (m *Manager) executeNotification(ctx context.Context, step Step, exec *Execution) (*stepOutcome, error) {
	cfg := step.Config.Notification
	if cfg == nil {
		return nil, types.NewError(types.ErrWorkflowValidation,
			"notification config is required for notification step")
	}

	recipients := make([]string, len(cfg.Recipients))
	for i, r := range cfg.Recipients {
		recipients[i] = resolveString(r, exec.Variables)
	}

	if m.notifier != nil {
		if err := m.notifier.Send(ctx, cfg.Channel, cfg.Template, recipients, exec.Variables); err != nil {
			m.logger.Warn("notification send reported error",
				zap.String("step_id", step.ID),
				zap.String("channel", cfg.Channel),
				zap.Error(err),
			)
		}
	}
	m.logger.Info("notification sent",
		zap.String("channel", cfg.Channel),
		zap.String("template", cfg.Template),
		zap.Int("recipients", len(recipients)),
	)
	return &stepOutcome{Success: true, Message: "notification sent"}, nil
}
