package workflow

import "strings"

// resolveVariables substitutes step argument values from the execution
// variables. Only values that are exactly "{{name}}" are replaced; any
// other string passes through literally, and a reference to a missing
// variable keeps its placeholder form.
func resolveVariables(args map[string]any, vars map[string]any) map[string]any {
	resolved := make(map[string]any, len(args))
	for key, value := range args {
		if s, ok := value.(string); ok {
			resolved[key] = resolveValue(s, vars)
			continue
		}
		resolved[key] = value
	}
	return resolved
}

func resolveValue(s string, vars map[string]any) any {
	name, ok := placeholderName(s)
	if !ok {
		return s
	}
	if v, present := vars[name]; present {
		return v
	}
	return s
}

// resolveString is resolveVariables for a single string value, always
// yielding a string.
func resolveString(s string, vars map[string]any) string {
	name, ok := placeholderName(s)
	if !ok {
		return s
	}
	if v, present := vars[name]; present {
		if str, isStr := v.(string); isStr {
			return str
		}
	}
	return s
}

func placeholderName(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	name := strings.TrimSpace(s[2 : len(s)-2])
	return name, name != ""
}
