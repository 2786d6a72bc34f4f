package workflow

import (
	"time"

	"github.com/agendo/engine/types"
)

// Status is the overall state of a workflow execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// StepStatus is the state of one step within an execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepExecution tracks one step's progress within a workflow execution.
type StepExecution struct {
	StepID     string       `json:"step_id"`
	Status     StepStatus   `json:"status"`
	StartTime  *time.Time   `json:"start_time,omitempty"`
	EndTime    *time.Time   `json:"end_time,omitempty"`
	Result     *stepOutcome `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	RetryCount int          `json:"retry_count"`
}

// stepOutcome is the normalized result every step type produces.
type stepOutcome struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Execution is one run of a workflow definition. It is created at
// ExecuteWorkflow time, mutated step by step, and ends in either the
// completed or failed status.
type Execution struct {
	ID          string                    `json:"id"`
	WorkflowID  string                    `json:"workflow_id"`
	Context     types.ConversationContext `json:"context"`
	Status      Status                    `json:"status"`
	CurrentStep string                    `json:"current_step,omitempty"`
	StartTime   time.Time                 `json:"start_time"`
	EndTime     *time.Time                `json:"end_time,omitempty"`
	Steps       []*StepExecution          `json:"steps"`
	Variables   map[string]any            `json:"variables"`
	Error       string                    `json:"error,omitempty"`
}

// stepExecution finds the tracking record for a step id.
func (e *Execution) stepExecution(stepID string) *StepExecution {
	for _, se := range e.Steps {
		if se.StepID == stepID {
			return se
		}
	}
	return nil
}

// mergeVariables folds a step result's data into the execution variables
// so downstream steps can reference newly produced values.
func (e *Execution) mergeVariables(data map[string]any) {
	for k, v := range data {
		e.Variables[k] = v
	}
}
