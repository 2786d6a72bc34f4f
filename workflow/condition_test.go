package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		expr     string
		expected Condition
	}{
		{`{{status}} == "confirmed"`, Condition{Variable: "status", Operator: OpEquals, Value: "confirmed"}},
		{`{{count}} > 3`, Condition{Variable: "count", Operator: OpGreaterThan, Value: 3.0}},
		{`{{count}} >= 3`, Condition{Variable: "count", Operator: OpGreaterOrEqual, Value: 3.0}},
		{`{{available}} == true`, Condition{Variable: "available", Operator: OpEquals, Value: true}},
		{`{{slot}} != booked`, Condition{Variable: "slot", Operator: OpNotEquals, Value: "booked"}},
		{`{{services}} contains manicure`, Condition{Variable: "services", Operator: OpContains, Value: "manicure"}},
		{`{{phone}} exists`, Condition{Variable: "phone", Operator: OpExists}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := ParseExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cond)
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	exprs := []string{
		"",
		"status == confirmed",
		"{{status == confirmed",
		"{{}} == x",
		"{{status}} ~= x",
		"{{status}} ==",
		"{{status}} exists now",
	}
	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseExpression(expr)
			assert.Error(t, err)
		})
	}
}

func TestConditionEvaluate(t *testing.T) {
	vars := map[string]any{
		"status":   "confirmed",
		"count":    float64(5),
		"retries":  2,
		"services": []any{"manicure", "pedicure"},
		"note":     "call before arrival",
	}

	tests := []struct {
		name     string
		cond     Condition
		expected bool
	}{
		{"eq match", Condition{Variable: "status", Operator: OpEquals, Value: "confirmed"}, true},
		{"eq mismatch", Condition{Variable: "status", Operator: OpEquals, Value: "pending"}, false},
		{"eq numeric across types", Condition{Variable: "retries", Operator: OpEquals, Value: 2.0}, true},
		{"ne", Condition{Variable: "status", Operator: OpNotEquals, Value: "pending"}, true},
		{"ne missing variable", Condition{Variable: "missing", Operator: OpNotEquals, Value: "x"}, true},
		{"gt", Condition{Variable: "count", Operator: OpGreaterThan, Value: 3.0}, true},
		{"gte boundary", Condition{Variable: "count", Operator: OpGreaterOrEqual, Value: 5.0}, true},
		{"lt", Condition{Variable: "count", Operator: OpLessThan, Value: 3.0}, false},
		{"lte boundary", Condition{Variable: "count", Operator: OpLessOrEqual, Value: 5.0}, true},
		{"contains slice", Condition{Variable: "services", Operator: OpContains, Value: "manicure"}, true},
		{"contains slice miss", Condition{Variable: "services", Operator: OpContains, Value: "massage"}, false},
		{"contains string", Condition{Variable: "note", Operator: OpContains, Value: "arrival"}, true},
		{"exists", Condition{Variable: "status", Operator: OpExists}, true},
		{"exists missing", Condition{Variable: "missing", Operator: OpExists}, false},
		{"eq missing variable", Condition{Variable: "missing", Operator: OpEquals, Value: "x"}, false},
		{"gt missing variable", Condition{Variable: "missing", Operator: OpGreaterThan, Value: 1.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cond.Evaluate(vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConditionEvaluateErrors(t *testing.T) {
	vars := map[string]any{"status": "confirmed"}

	t.Run("ordering on non-numeric", func(t *testing.T) {
		_, err := Condition{Variable: "status", Operator: OpGreaterThan, Value: 1.0}.Evaluate(vars)
		assert.Error(t, err)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := Condition{Variable: "status", Operator: "regex"}.Evaluate(vars)
		assert.Error(t, err)
	})
}

func TestResolveVariables(t *testing.T) {
	vars := map[string]any{
		"service_name": "manicure",
		"slots":        []string{"10:00", "11:00"},
	}

	args := map[string]any{
		"service": "{{service_name}}",
		"slots":   "{{slots}}",
		"missing": "{{unknown}}",
		"literal": "just a string",
		"partial": "prefix {{service_name}}",
		"number":  3,
	}
	resolved := resolveVariables(args, vars)

	assert.Equal(t, "manicure", resolved["service"])
	assert.Equal(t, []string{"10:00", "11:00"}, resolved["slots"])
	assert.Equal(t, "{{unknown}}", resolved["missing"])
	assert.Equal(t, "just a string", resolved["literal"])
	assert.Equal(t, "prefix {{service_name}}", resolved["partial"])
	assert.Equal(t, 3, resolved["number"])
}

func TestResolveString(t *testing.T) {
	vars := map[string]any{"phone": "+5511999990000", "count": 3}

	assert.Equal(t, "+5511999990000", resolveString("{{phone}}", vars))
	assert.Equal(t, "{{count}}", resolveString("{{count}}", vars)) // non-string stays a placeholder
	assert.Equal(t, "{{absent}}", resolveString("{{absent}}", vars))
	assert.Equal(t, "literal", resolveString("literal", vars))
}
