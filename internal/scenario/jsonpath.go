package scenario

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// jsonPathGet evaluates a dot-notation JSONPath ($.field, $.a.b, $.list[0].x)
// against decoded JSON. ok is false when the path does not match.
func jsonPathGet(doc any, path string) (val any, ok bool, err error) {
	if !strings.HasPrefix(path, "$") {
		return nil, false, errors.Errorf("JSONPath must start with $: %q", path)
	}
	rest := strings.TrimPrefix(path[1:], ".")
	if rest == "" {
		return doc, true, nil
	}

	current := doc
	for _, seg := range splitPathSegments(rest) {
		if seg == "" {
			continue
		}
		field, index, hasIndex := strings.Cut(seg, "[")
		if field != "" {
			m, isMap := current.(map[string]any)
			if !isMap {
				return nil, false, nil
			}
			if current, ok = m[field]; !ok {
				return nil, false, nil
			}
		}
		if !hasIndex {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSuffix(index, "]"))
		if err != nil {
			return nil, false, errors.Wrapf(err, "invalid array index in %q", seg)
		}
		arr, isArr := current.([]any)
		if !isArr || i < 0 || i >= len(arr) {
			return nil, false, nil
		}
		current = arr[i]
	}
	return current, true, nil
}

// splitPathSegments splits "field.nested[0].name" on dots outside brackets.
func splitPathSegments(path string) []string {
	var segments []string
	var current strings.Builder
	depth := 0
	for _, ch := range path {
		switch {
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == '.' && depth == 0:
			segments = append(segments, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// ExtractJSONPath returns the value at path in a JSON document as a string.
// Strings are returned unquoted; other values in their JSON form.
func ExtractJSONPath(body []byte, path string) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", errors.Wrap(err, "response body is not valid JSON")
	}
	val, ok, err := jsonPathGet(doc, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("JSONPath %q: no match found", path)
	}
	switch v := val.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "null", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", errors.Wrapf(err, "encoding value at %q", path)
		}
		return string(data), nil
	}
}
