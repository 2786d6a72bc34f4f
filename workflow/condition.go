package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agendo/engine/types"
)

// Operator is one of the closed set of comparison operators a condition
// step may use. Workflow definitions never carry executable code; a
// condition is data, evaluated by this interpreter.
type Operator string

const (
	OpEquals         Operator = "eq"
	OpNotEquals      Operator = "ne"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpContains       Operator = "contains"
	OpExists         Operator = "exists"
)

// Condition compares one execution variable against a literal value.
type Condition struct {
	Variable string   `json:"variable" yaml:"variable"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// exprOperators maps the textual operators accepted in expression form to
// their canonical Operator. Longer symbols come first so "==" is not
// consumed as "=".
var exprOperators = []struct {
	symbol string
	op     Operator
}{
	{"==", OpEquals},
	{"!=", OpNotEquals},
	{">=", OpGreaterOrEqual},
	{"<=", OpLessOrEqual},
	{">", OpGreaterThan},
	{"<", OpLessThan},
	{"contains", OpContains},
	{"exists", OpExists},
}

// ParseExpression parses the string form of a condition:
//
//	{{variable}} <op> literal
//	{{variable}} exists
//
// Literals are parsed as bool, number, or bare/quoted string.
func ParseExpression(expr string) (Condition, error) {
	trimmed := strings.TrimSpace(expr)
	if !strings.HasPrefix(trimmed, "{{") {
		return Condition{}, types.Errorf(types.ErrConditionEvaluation,
			"expression must start with a {{variable}} reference: %q", expr)
	}
	end := strings.Index(trimmed, "}}")
	if end < 0 {
		return Condition{}, types.Errorf(types.ErrConditionEvaluation,
			"unterminated variable reference: %q", expr)
	}
	variable := strings.TrimSpace(trimmed[2:end])
	rest := strings.TrimSpace(trimmed[end+2:])
	if variable == "" {
		return Condition{}, types.Errorf(types.ErrConditionEvaluation,
			"empty variable reference: %q", expr)
	}

	for _, candidate := range exprOperators {
		if !strings.HasPrefix(rest, candidate.symbol) {
			continue
		}
		literal := strings.TrimSpace(strings.TrimPrefix(rest, candidate.symbol))
		cond := Condition{Variable: variable, Operator: candidate.op}
		if candidate.op == OpExists {
			if literal != "" {
				return Condition{}, types.Errorf(types.ErrConditionEvaluation,
					"exists takes no operand: %q", expr)
			}
			return cond, nil
		}
		if literal == "" {
			return Condition{}, types.Errorf(types.ErrConditionEvaluation,
				"missing operand: %q", expr)
		}
		cond.Value = parseLiteral(literal)
		return cond, nil
	}
	return Condition{}, types.Errorf(types.ErrConditionEvaluation,
		"unknown operator in expression: %q", expr)
}

func parseLiteral(literal string) any {
	if unquoted := strings.Trim(literal, `"'`); unquoted != literal {
		return unquoted
	}
	switch literal {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(literal, 64); err == nil {
		return n
	}
	return literal
}

// Evaluate applies the condition to the current variables. Comparison
// against a missing variable fails for every operator except ne and the
// negative case of exists.
func (c Condition) Evaluate(vars map[string]any) (bool, error) {
	value, present := vars[c.Variable]

	switch c.Operator {
	case OpExists:
		return present, nil
	case OpEquals:
		return present && looseEqual(value, c.Value), nil
	case OpNotEquals:
		return !present || !looseEqual(value, c.Value), nil
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		if !present {
			return false, nil
		}
		left, lok := toFloat(value)
		right, rok := toFloat(c.Value)
		if !lok || !rok {
			return false, types.Errorf(types.ErrConditionEvaluation,
				"operator %s requires numeric operands for variable %s", c.Operator, c.Variable)
		}
		switch c.Operator {
		case OpGreaterThan:
			return left > right, nil
		case OpGreaterOrEqual:
			return left >= right, nil
		case OpLessThan:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpContains:
		if !present {
			return false, nil
		}
		return containsValue(value, c.Value), nil
	default:
		return false, types.Errorf(types.ErrConditionEvaluation,
			"unknown operator: %s", c.Operator)
	}
}

// looseEqual compares values the way workflow authors expect: numbers
// compare numerically regardless of concrete type, everything else by
// string form.
func looseEqual(a, b any) bool {
	if fa, aok := toFloat(a); aok {
		if fb, bok := toFloat(b); bok {
			return fa == fb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle))
	case []any:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range h {
			if item == fmt.Sprintf("%v", needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
