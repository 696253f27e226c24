// Package mapper maps store entries onto records: create, find, filtered
// finds, updates and relation writes for one model at a time.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/schema"
	"github.com/rcliao/firerecord/internal/store"
)

// Collection runs queries for a single model against a store client.
// Every method issues at most one or two store requests and performs no
// retries; transport errors are returned as the client reported them.
type Collection struct {
	client store.Client
	model  *schema.Model
	logger zerolog.Logger
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the query logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collection) {
		c.logger = l
	}
}

// New binds model m to client.
func New(client store.Client, m *schema.Model, opts ...Option) *Collection {
	c := &Collection{
		client: client,
		model:  m,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("model", m.Name()).Logger()
	return c
}

// Model returns the collection's schema.
func (c *Collection) Model() *schema.Model { return c.model }

// Filter is one equality condition of FindBy.
type Filter struct {
	Field string
	Value any
}

// Eq builds a Filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Create appends params under the model path and returns the stored record.
func (c *Collection) Create(ctx context.Context, params map[string]any) (*model.Record, error) {
	fields, err := jsonFields(params)
	if err != nil {
		return nil, err
	}
	path := c.model.StoragePath()
	resp, err := c.request(ctx, store.Push, path, nil, fields)
	if err != nil {
		return nil, err
	}
	var id string
	if m, ok := resp.(map[string]any); ok {
		id, _ = m["name"].(string)
	}
	if id == "" {
		return nil, &StoreError{Path: path, Message: "push response carried no key"}
	}
	return Materialize(c.model, Normalize(fields, id)), nil
}

// Find reads the record stored under id. A missing record yields ErrNotFound.
func (c *Collection) Find(ctx context.Context, id string) (*model.Record, error) {
	path := store.Join(c.model.StoragePath(), id)
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	resp, err := c.request(ctx, store.Get, path, nil, nil)
	if err != nil {
		return nil, err
	}
	canonical := Normalize(resp, id)
	if canonical == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return Materialize(c.model, canonical), nil
}

// All reads the whole collection. An empty collection is not an error.
func (c *Collection) All(ctx context.Context) ([]*model.Record, error) {
	resp, err := c.request(ctx, store.Get, c.model.StoragePath(), nil, nil)
	if err != nil {
		return nil, err
	}
	return c.materializeAll(NormalizeAll(resp)), nil
}

// FindBy returns the records matching every filter. Only the first filter is
// sent to the store; the rest are applied here against the raw entry data.
// A field containing "/" addresses a nested value, and filter values must be
// scalars (string, number, bool or nil) wherever they appear.
func (c *Collection) FindBy(ctx context.Context, filters ...Filter) ([]*model.Record, error) {
	if len(filters) == 0 {
		return c.All(ctx)
	}
	normalized := make([]Filter, len(filters))
	for i, f := range filters {
		nf, err := normalizeFilter(f)
		if err != nil {
			return nil, err
		}
		normalized[i] = nf
	}
	first := normalized[0]
	q := &store.Query{OrderBy: first.Field, EqualTo: first.Value}
	resp, err := c.request(ctx, store.Get, c.model.StoragePath(), q, nil)
	if err != nil {
		return nil, err
	}

	pairs := Pairs(resp)
	for _, f := range normalized[1:] {
		kept := pairs[:0]
		for _, p := range pairs {
			if reflect.DeepEqual(store.Field(p.Data, f.Field), f.Value) {
				kept = append(kept, p)
			}
		}
		pairs = kept
	}

	records := make([]*model.Record, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, Materialize(c.model, Normalize(p, "")))
	}
	c.logger.Debug().Int("filters", len(filters)).Int("matches", len(records)).Msg("find by")
	return records, nil
}

// FindOrCreateBy returns the first record matching filters, creating one with
// the filter values as its fields when nothing matches.
func (c *Collection) FindOrCreateBy(ctx context.Context, filters ...Filter) (*model.Record, error) {
	found, err := c.FindBy(ctx, filters...)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found[0], nil
	}
	params := make(map[string]any, len(filters))
	for _, f := range filters {
		setField(params, f.Field, f.Value)
	}
	return c.Create(ctx, params)
}

// DestroyAll deletes every record of the model. The store answers a
// successful delete with an empty body.
func (c *Collection) DestroyAll(ctx context.Context) error {
	_, err := c.request(ctx, store.Delete, c.model.StoragePath(), nil, nil)
	return err
}

// Save writes every non-reserved field of rec. Has-many id lists are written
// in the store's set encoding. Nothing is read back.
func (c *Collection) Save(ctx context.Context, rec *model.Record) error {
	fields := rec.Fields()
	for _, f := range c.model.HasManyFields() {
		if _, ok := fields[f]; ok {
			fields[f] = idSet(rec.RefIDs(f))
		}
	}
	return c.Update(ctx, rec, fields)
}

// Update merges exactly fields into the stored record. The in-memory record
// is left untouched.
func (c *Collection) Update(ctx context.Context, rec *model.Record, fields map[string]any) error {
	path, err := c.recordPath(rec)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, store.Update, path, nil, fields)
	return err
}

func (c *Collection) recordPath(rec *model.Record) (string, error) {
	if rec == nil || rec.ID() == "" {
		return "", fmt.Errorf("%s: record has no id", c.model.Name())
	}
	if m := rec.Schema(); m != nil && m != c.model {
		return "", fmt.Errorf("%s: record of model %s", c.model.Name(), m.Name())
	}
	return store.Join(c.model.StoragePath(), rec.ID()), nil
}

func (c *Collection) materializeAll(canonical []map[string]any) []*model.Record {
	records := make([]*model.Record, 0, len(canonical))
	for _, fields := range canonical {
		records = append(records, Materialize(c.model, fields))
	}
	return records
}

// request issues one store call and turns an error payload into a StoreError.
func (c *Collection) request(ctx context.Context, verb store.Verb, path string, q *store.Query, body any) (any, error) {
	resp, err := c.client.Request(ctx, verb, path, q, body)
	if err != nil {
		c.logger.Debug().Err(err).Str("verb", string(verb)).Str("path", path).Msg("store request failed")
		return nil, err
	}
	if msg, ok := store.ErrorMessage(resp); ok {
		return nil, &StoreError{Path: path, Message: msg}
	}
	c.logger.Debug().Str("verb", string(verb)).Str("path", path).Bool("empty", resp == nil).Msg("store request")
	return resp, nil
}

// jsonFields passes params through JSON so the in-memory record holds the
// same value types a later read returns (float64 numbers, []any lists).
func jsonFields(params map[string]any) (map[string]any, error) {
	if len(params) == 0 {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return out, nil
}

// setField assigns value at a "/"-separated field path, creating nested maps.
func setField(params map[string]any, field string, value any) {
	segs := strings.Split(strings.Trim(field, "/"), "/")
	m := params
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = value
}

func normalizeFilter(f Filter) (Filter, error) {
	if strings.Trim(strings.TrimSpace(f.Field), "/") == "" {
		return f, fmt.Errorf("filter field is required")
	}
	if strings.ContainsAny(f.Field, `."$#[]`) {
		return f, fmt.Errorf("filter %s: invalid field name", f.Field)
	}
	if f.Value == nil {
		return f, nil
	}
	raw, err := json.Marshal(f.Value)
	if err != nil {
		return f, fmt.Errorf("filter %s: %w", f.Field, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return f, fmt.Errorf("filter %s: %w", f.Field, err)
	}
	switch v.(type) {
	case string, bool, float64, nil:
	default:
		return f, fmt.Errorf("filter %s: unsupported value type %T", f.Field, f.Value)
	}
	return Filter{Field: f.Field, Value: v}, nil
}
