package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/firerecord/internal/mapper"
)

// parseValue reads s as JSON when it is valid JSON, otherwise as a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// parseAssignments turns "field=value" arguments into filters, keeping order.
func parseAssignments(args []string) ([]mapper.Filter, error) {
	filters := make([]mapper.Filter, 0, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		filters = append(filters, mapper.Eq(k, parseValue(v)))
	}
	return filters, nil
}

func fieldMap(filters []mapper.Filter) map[string]any {
	m := make(map[string]any, len(filters))
	for _, f := range filters {
		m[f.Field] = f.Value
	}
	return m
}
