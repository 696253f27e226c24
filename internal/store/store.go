// Package store provides clients for a hierarchical JSON store addressed by
// path: a REST client for the hosted store and a SQLite-backed local store
// with the same semantics.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Verb is a store operation.
type Verb string

const (
	Get    Verb = "get"
	Push   Verb = "push"   // append under a store-assigned key
	Update Verb = "update" // merge top-level keys
	Set    Verb = "set"    // replace
	Delete Verb = "delete"
)

// Method returns the HTTP method the REST API uses for v.
func (v Verb) Method() string {
	switch v {
	case Push:
		return http.MethodPost
	case Update:
		return http.MethodPatch
	case Set:
		return http.MethodPut
	case Delete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

var (
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("store unavailable")
	// ErrConfiguration is returned when the store address cannot be resolved.
	ErrConfiguration = errors.New("store address not configured")
)

// Client issues one request against the store. The result is decoded JSON
// (map[string]any, []any, string, float64, bool) or nil when the path holds
// nothing. Push results carry the new key under "name". When the store
// rejects a request the result is a map with an "error" key and err is nil;
// err is reserved for transport failures.
type Client interface {
	Request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error)
}

// Query is the store's single-field equality filter.
type Query struct {
	OrderBy string
	EqualTo any
}

// Values encodes q as REST query parameters. Field names and string values
// are wrapped in double quotes; the store ignores the filter otherwise.
func (q *Query) Values() (url.Values, error) {
	if q == nil {
		return url.Values{}, nil
	}
	if strings.TrimSpace(q.OrderBy) == "" {
		return nil, fmt.Errorf("query: orderBy field is required")
	}
	field, err := marshalJSON(q.OrderBy)
	if err != nil {
		return nil, err
	}
	eq, err := EncodeValue(q.EqualTo)
	if err != nil {
		return nil, err
	}
	return url.Values{
		"orderBy": {string(field)},
		"equalTo": {eq},
	}, nil
}

// EncodeValue renders a filter value in the store's query syntax.
func EncodeValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		b, err := marshalJSON(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case json.Number:
		return x.String(), nil
	}
	return "", fmt.Errorf("query: unsupported equalTo type %T", v)
}

// Join builds a store path from segments, dropping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Field returns the value at a "/"-separated field path below node, or nil
// when any step is missing. Query fields are resolved this way.
func Field(node any, field string) any {
	return descend(node, splitPath(field))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ErrorMessage extracts the store's rejection message from a response.
func ErrorMessage(resp any) (string, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := m["error"]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func marshalJSON(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
