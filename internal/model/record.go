// Package model defines the in-memory record type and relation references.
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/rcliao/firerecord/internal/schema"
)

// Ref is anything that resolves to a store id: a bare ID or a stored record.
type Ref interface {
	StoreID() string
}

// ID is a bare store identifier.
type ID string

func (id ID) StoreID() string { return string(id) }

// IDs wraps raw identifiers as refs.
func IDs(ids ...string) []Ref {
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = ID(id)
	}
	return refs
}

// Record is one materialized store entry. The field set is open: any key
// returned by the store is kept, declared or not.
type Record struct {
	schema *schema.Model
	fields map[string]any
}

// NewRecord returns an empty record of model m.
func NewRecord(m *schema.Model) *Record {
	return &Record{schema: m, fields: make(map[string]any)}
}

// Schema returns the model the record was materialized for.
func (r *Record) Schema() *schema.Model { return r.schema }

// ID returns the store key, or "" for a record that was never stored.
func (r *Record) ID() string {
	id, _ := r.fields[schema.IDField].(string)
	return id
}

// StoreID makes a record usable wherever a Ref is expected.
func (r *Record) StoreID() string { return r.ID() }

// Model returns the storage path tag.
func (r *Record) Model() string {
	tag, _ := r.fields[schema.ModelField].(string)
	return tag
}

// Get returns the raw value of field.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has reports whether field is present, even with a nil value.
func (r *Record) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Set assigns field. Fields unknown to the schema are accepted.
func (r *Record) Set(field string, value any) {
	r.fields[field] = value
}

// Keys returns the present field names, sorted.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the writable fields (everything but id and the
// storage path tag).
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if k == schema.IDField || k == schema.ModelField {
			continue
		}
		out[k] = v
	}
	return out
}

func (r *Record) String(field string) string {
	switch v := r.fields[field].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r *Record) Float(field string) (float64, bool) {
	switch v := r.fields[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func (r *Record) Int(field string) (int64, bool) {
	switch v := r.fields[field].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func (r *Record) Bool(field string) (bool, bool) {
	b, ok := r.fields[field].(bool)
	return b, ok
}

// Ref returns the id held by a belongs-to field, or "" when unset.
func (r *Record) Ref(field string) string {
	id, _ := r.fields[field].(string)
	return id
}

// RefIDs returns the ids held by a has-many field.
func (r *Record) RefIDs(field string) []string {
	switch v := r.fields[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

// SetBelongsTo points a declared belongs-to field at ref. Only the in-memory
// value changes; persist it with Save.
func (r *Record) SetBelongsTo(field string, ref Ref) error {
	if r.schema == nil || !r.schema.IsBelongsTo(field) {
		return fmt.Errorf("%s is not a belongs_to relation", field)
	}
	if ref == nil {
		r.fields[field] = nil
		return nil
	}
	r.fields[field] = ref.StoreID()
	return nil
}

// MarshalJSON encodes all fields, including id and the storage path tag.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}
