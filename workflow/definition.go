// Package workflow defines multi-step business processes as branching
// step graphs and executes them against a mutable variable store.
package workflow

import (
	"time"
)

// StepType identifies what a workflow step does.
type StepType string

const (
	// StepFunctionCall dispatches a registered function.
	StepFunctionCall StepType = "function_call"
	// StepCondition evaluates a typed condition against the variables.
	StepCondition StepType = "condition"
	// StepWebhook performs an HTTP call with the variables as JSON body.
	StepWebhook StepType = "webhook"
	// StepNotification sends a templated message through a channel.
	StepNotification StepType = "notification"
	// StepParallel is a composite placeholder for nested parallel groups.
	StepParallel StepType = "parallel"
	// StepSequential is a composite placeholder for nested sequences.
	StepSequential StepType = "sequential"
)

// TriggerType identifies what starts a workflow.
type TriggerType string

const (
	TriggerIntent         TriggerType = "intent"
	TriggerFunctionResult TriggerType = "function_result"
	TriggerTime           TriggerType = "time"
	TriggerEvent          TriggerType = "event"
	TriggerManual         TriggerType = "manual"
)

// Trigger describes what starts a workflow.
type Trigger struct {
	Type    TriggerType `json:"type" yaml:"type"`
	Pattern string      `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// WebhookConfig configures a webhook step.
type WebhookConfig struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// NotificationConfig configures a notification step.
type NotificationConfig struct {
	Channel    string   `json:"channel" yaml:"channel"` // whatsapp, email, sms
	Template   string   `json:"template" yaml:"template"`
	Recipients []string `json:"recipients" yaml:"recipients"`
}

// StepConfig carries the type-specific configuration of a step. Exactly
// one of the sections is used, matching the step's type.
type StepConfig struct {
	// FunctionName and Arguments configure a function_call step.
	// Argument values that are exactly "{{name}}" are substituted from
	// the execution variables.
	FunctionName string         `json:"function_name,omitempty" yaml:"function_name,omitempty"`
	Arguments    map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	// Condition configures a condition step. Expression is the string
	// form and is parsed on first evaluation.
	Condition  *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Expression string     `json:"expression,omitempty" yaml:"expression,omitempty"`
	// Webhook configures a webhook step.
	Webhook *WebhookConfig `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	// Notification configures a notification step.
	Notification *NotificationConfig `json:"notification,omitempty" yaml:"notification,omitempty"`
}

// RetryPolicy is the per-step retry configuration. A failing step with
// retries remaining is re-queued instead of branching to OnFailure.
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Delay      time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// Step is one node in a workflow definition.
type Step struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Type   StepType   `json:"type" yaml:"type"`
	Config StepConfig `json:"config" yaml:"config"`
	// Dependencies declares step ids this step logically follows. They
	// are validated at registration; execution order is driven by the
	// OnSuccess/OnFailure branches.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// OnSuccess and OnFailure name the next step for each outcome. An
	// empty id ends the workflow.
	OnSuccess   string       `json:"on_success,omitempty" yaml:"on_success,omitempty"`
	OnFailure   string       `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
	RetryPolicy *RetryPolicy `json:"retry_policy,omitempty" yaml:"retry_policy,omitempty"`
}

// Metadata describes a workflow definition.
type Metadata struct {
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
}

// Definition is a named, versioned workflow graph. Definitions are
// immutable once registered; re-register under the same id to change one.
type Definition struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Trigger     Trigger     `json:"trigger" yaml:"trigger"`
	Steps       []Step      `json:"steps" yaml:"steps"`
	Conditions  []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Metadata    Metadata    `json:"metadata" yaml:"metadata"`
}

// FirstStep returns the id of the workflow's entry step.
func (d Definition) FirstStep() string {
	if len(d.Steps) == 0 {
		return ""
	}
	return d.Steps[0].ID
}

// StepByID finds a step in the definition.
func (d Definition) StepByID(id string) (Step, bool) {
	for _, step := range d.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return Step{}, false
}
