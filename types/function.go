package types

import (
	"encoding/json"
	"time"
)

// FunctionCall is one requested invocation of a registered function.
// Arguments is the raw JSON object produced by the LLM tool call.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParsedArguments unmarshals the call arguments into a generic map.
// A nil or empty argument payload yields an empty map.
func (c FunctionCall) ParsedArguments() (map[string]any, error) {
	args := make(map[string]any)
	if len(c.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(c.Arguments, &args); err != nil {
		return nil, err
	}
	return args, nil
}

// FunctionResult is the outcome of executing one function call.
//
// ShouldContinue distinguishes fatal failures from informational ones:
// a sequential plan stops on a failed step unless the result explicitly
// signals that execution may continue (e.g. "slot unavailable" is a
// failure the conversation can recover from).
type FunctionResult struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	ShouldContinue bool           `json:"should_continue"`
	Actions        []string       `json:"actions,omitempty"`
}

// RateLimit bounds how often a function may be invoked. Requests doubles
// as the function's retry allowance when a plan step fails.
type RateLimit struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// FunctionMetadata carries the operational metadata attached to a
// registered function.
type FunctionMetadata struct {
	Version     string     `json:"version,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	RateLimit   *RateLimit `json:"rate_limit,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	Deprecated  bool       `json:"deprecated,omitempty"`
	ReplacedBy  string     `json:"replaced_by,omitempty"`
	// DependsOn declares the function names this function must run after
	// when batched into one plan. Declared dependencies take precedence
	// over the name-based inference heuristic.
	DependsOn []string `json:"depends_on,omitempty"`
}

// RegisteredFunction is one invocable action in the registry's catalog.
type RegisteredFunction struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	// Domain is the business vertical that owns this function. Two
	// functions with the same name in different domains are distinct.
	Domain string `json:"domain"`
	// Category is resolved at registration: an explicitly declared
	// category wins, otherwise it is inferred from the name.
	Category Category         `json:"category,omitempty"`
	Metadata FunctionMetadata `json:"metadata"`
	// MiddlewareNames lists additional named middleware this function
	// runs through, on top of the dispatcher's base chain.
	MiddlewareNames []string `json:"middleware,omitempty"`
}

// Priority returns the plan priority derived from the function category.
func (f RegisteredFunction) Priority() int {
	return f.Category.Priority()
}

// MaxAttempts returns the retry allowance for plan steps executing this
// function: the configured rate-limit request budget, or 3 when absent.
func (f RegisteredFunction) MaxAttempts() int {
	if f.Metadata.RateLimit != nil && f.Metadata.RateLimit.Requests > 0 {
		return f.Metadata.RateLimit.Requests
	}
	return 3
}
