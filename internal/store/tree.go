package store

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// keySource hands out push keys: monotonic ULIDs, so key order equals
// insertion order.
type keySource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newKeySource() *keySource {
	return &keySource{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}
}

func (k *keySource) next() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), k.entropy).String()
}

// checkPath splits path and validates its segments. A non-nil payload is the
// store's rejection.
func checkPath(path string) ([]string, map[string]any) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, errorPayload("a path is required")
	}
	for _, seg := range segs {
		if strings.ContainsAny(seg, `."$#[]`) {
			return nil, errorPayload(fmt.Sprintf("invalid path segment %q", seg))
		}
	}
	return segs, nil
}

// descend returns the node at path below doc, or nil.
func descend(doc any, path []string) any {
	node := doc
	for _, seg := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

// applyWrite performs one write verb at path below doc and returns the new
// document and the response body, or the store's rejection.
func applyWrite(doc any, verb Verb, path []string, value any, newKey func() string) (any, any, map[string]any) {
	var resp any
	switch verb {
	case Push:
		id := newKey()
		doc = assign(doc, childPath(path, id), value)
		resp = map[string]any{"name": id}
	case Set:
		doc = assign(doc, path, value)
		resp = value
	case Update:
		fields, ok := value.(map[string]any)
		if !ok {
			return doc, nil, errorPayload("update requires an object")
		}
		for k, v := range fields {
			doc = assign(doc, childPath(path, splitPath(k)...), v)
		}
		resp = value
	case Delete:
		doc = assign(doc, path, nil)
	default:
		return doc, nil, errorPayload(fmt.Sprintf("unsupported verb %q", verb))
	}
	return prune(doc), resp, nil
}

// validOrderBy accepts a field name or a "/"-separated path to a nested field.
func validOrderBy(field string) bool {
	return len(splitPath(field)) > 0 && !strings.ContainsAny(field, `."$#[]`)
}

// matchChildren applies q to the object children of node. Values compare
// with their JSON types: true never equals 1, and null matches a missing
// field.
func matchChildren(node any, q *Query) (map[string]any, map[string]any) {
	if !validOrderBy(q.OrderBy) {
		return nil, errorPayload(fmt.Sprintf("invalid orderBy %q", q.OrderBy))
	}
	want, err := normalizeJSON(q.EqualTo)
	if err != nil {
		return nil, errorPayload(err.Error())
	}
	switch want.(type) {
	case nil, string, bool, float64:
	default:
		return nil, errorPayload(fmt.Sprintf("unsupported equalTo type %T", q.EqualTo))
	}

	out := make(map[string]any)
	children, _ := node.(map[string]any)
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, ok := children[k].(map[string]any)
		if !ok {
			continue
		}
		if reflect.DeepEqual(Field(data, q.OrderBy), want) {
			out[k] = data
		}
	}
	return out, nil
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func childPath(base []string, more ...string) []string {
	out := make([]string, 0, len(base)+len(more))
	out = append(out, base...)
	return append(out, more...)
}

// assign stores value at path below node, creating intermediate objects. A
// nil value removes the entry.
func assign(node any, path []string, value any) any {
	if len(path) == 0 {
		return value
	}
	m, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		m = make(map[string]any)
	}
	child := assign(m[path[0]], path[1:], value)
	if child == nil {
		delete(m, path[0])
	} else {
		m[path[0]] = child
	}
	return m
}

// prune drops nulls and empty objects; the store never holds either.
func prune(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}
	for k, v := range m {
		if p := prune(v); p == nil {
			delete(m, k)
		} else {
			m[k] = p
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func normalizeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
