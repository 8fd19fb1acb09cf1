package scenario

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ExpandTemplates replaces template placeholders in a string:
//   - {{target.url}} with the base URL of the application under test
//   - {{env.VARIABLE}} from environment variables
//   - {{variable_name}} from scenario and captured variables
func ExpandTemplates(s, targetURL string, vars map[string]string) (string, error) {
	result := s
	searchFrom := 0
	for {
		start := strings.Index(result[searchFrom:], "{{")
		if start == -1 {
			break
		}
		start += searchFrom
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			return "", errors.Errorf("unterminated template expression at position %d", start)
		}
		end += start + 2

		expr := strings.TrimSpace(result[start+2 : end-2])
		value, err := resolveExpr(expr, targetURL, vars)
		if err != nil {
			return "", err
		}

		result = result[:start] + value + result[end:]
		// substituted values are not expanded again
		searchFrom = start + len(value)
	}
	return result, nil
}

func resolveExpr(expr, targetURL string, vars map[string]string) (string, error) {
	if expr == "target.url" {
		return targetURL, nil
	}

	if strings.HasPrefix(expr, "env.") {
		return os.Getenv(expr[4:]), nil
	}

	if vars != nil {
		if val, ok := vars[expr]; ok {
			return val, nil
		}
	}

	return "", errors.Errorf("unresolved template expression: %q", expr)
}
