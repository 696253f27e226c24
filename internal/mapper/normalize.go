package mapper

import (
	"sort"

	"github.com/rcliao/firerecord/internal/schema"
)

// Pair is one entry of a collection response: the store key and its data.
type Pair struct {
	Key  string
	Data map[string]any
}

// Normalize converts a store response into a canonical field map with the
// reserved id field set. raw may be a Pair, a two-element [key, data] slice,
// or a bare data map, in which case fallbackID supplies the id. Anything else
// yields nil, which callers treat as not found.
func Normalize(raw any, fallbackID string) map[string]any {
	switch v := raw.(type) {
	case Pair:
		return withID(v.Data, v.Key)
	case *Pair:
		if v == nil {
			return nil
		}
		return withID(v.Data, v.Key)
	case []any:
		if len(v) != 2 {
			return nil
		}
		key, ok := v[0].(string)
		if !ok {
			return nil
		}
		data, ok := v[1].(map[string]any)
		if !ok {
			return nil
		}
		return withID(data, key)
	case map[string]any:
		if fallbackID == "" {
			return nil
		}
		return withID(v, fallbackID)
	}
	return nil
}

// Pairs splits a whole-collection response into entries ordered by key.
// Push keys sort by creation time, so this is also insertion order. Entries
// whose data is not an object are skipped.
func Pairs(raw any) []Pair {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		data, ok := m[k].(map[string]any)
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{Key: k, Data: data})
	}
	return pairs
}

// NormalizeAll normalizes every entry of a whole-collection response.
func NormalizeAll(raw any) []map[string]any {
	pairs := Pairs(raw)
	out := make([]map[string]any, 0, len(pairs))
	for _, p := range pairs {
		if c := Normalize(p, ""); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func withID(data map[string]any, id string) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out[schema.IDField] = id
	return out
}
