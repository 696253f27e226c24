// Package schema defines model metadata: storage paths and declared relations.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

const (
	// IDField is the reserved field holding a record's store key.
	IDField = "id"
	// ModelField is the reserved field tagging a record with its storage path.
	ModelField = "_model"

	namespacePrefix = "firebase_"
)

// RelationKind distinguishes the two supported association shapes.
type RelationKind string

const (
	HasManyRel   RelationKind = "has_many"
	BelongsToRel RelationKind = "belongs_to"
)

// Model describes one record type stored under a single path segment.
type Model struct {
	name      string
	path      string
	hasMany   []string
	belongsTo []string
	relations map[string]RelationKind
}

// Option configures a Model at definition time.
type Option func(*Model) error

// HasMany declares fields holding an ordered set of foreign ids.
func HasMany(fields ...string) Option {
	return func(m *Model) error {
		for _, f := range fields {
			if err := m.declare(f, HasManyRel); err != nil {
				return err
			}
		}
		return nil
	}
}

// BelongsTo declares fields holding a single foreign id.
func BelongsTo(fields ...string) Option {
	return func(m *Model) error {
		for _, f := range fields {
			if err := m.declare(f, BelongsToRel); err != nil {
				return err
			}
		}
		return nil
	}
}

// Path overrides the storage path derived from the model name.
func Path(p string) Option {
	return func(m *Model) error {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" {
			return fmt.Errorf("model %s: empty storage path", m.name)
		}
		m.path = p
		return nil
	}
}

// Define builds a model. The storage path is computed once here and never
// changes afterwards.
func Define(name string, opts ...Option) (*Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	m := &Model{
		name:      name,
		path:      StoragePath(name),
		relations: make(map[string]RelationKind),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustDefine is like Define but panics on error. Meant for package-level model vars.
func MustDefine(name string, opts ...Option) *Model {
	m, err := Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) declare(field string, kind RelationKind) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return fmt.Errorf("model %s: empty relation field", m.name)
	}
	if field == IDField || field == ModelField {
		return fmt.Errorf("model %s: %q is reserved", m.name, field)
	}
	if prev, ok := m.relations[field]; ok {
		if prev == kind {
			return nil
		}
		return fmt.Errorf("model %s: field %q already declared as %s", m.name, field, prev)
	}
	m.relations[field] = kind
	if kind == HasManyRel {
		m.hasMany = append(m.hasMany, field)
	} else {
		m.belongsTo = append(m.belongsTo, field)
	}
	return nil
}

// StoragePath converts a type name into its collection path segment:
// snake case, leading "firebase_" stripped, last word pluralized.
func StoragePath(name string) string {
	snake := strcase.ToSnake(strings.TrimSpace(name))
	if strings.HasPrefix(snake, namespacePrefix) && len(snake) > len(namespacePrefix) {
		snake = snake[len(namespacePrefix):]
	}
	if snake == "" {
		return ""
	}
	head, last := "", snake
	if i := strings.LastIndex(snake, "_"); i >= 0 {
		head, last = snake[:i+1], snake[i+1:]
	}
	return head + inflection.Plural(last)
}

func (m *Model) Name() string        { return m.name }
func (m *Model) StoragePath() string { return m.path }

// HasManyFields returns the declared has-many fields in declaration order.
func (m *Model) HasManyFields() []string { return append([]string(nil), m.hasMany...) }

// BelongsToFields returns the declared belongs-to fields in declaration order.
func (m *Model) BelongsToFields() []string { return append([]string(nil), m.belongsTo...) }

// Relation reports how field is declared, if at all.
func (m *Model) Relation(field string) (RelationKind, bool) {
	kind, ok := m.relations[field]
	return kind, ok
}

func (m *Model) IsHasMany(field string) bool   { return m.relations[field] == HasManyRel }
func (m *Model) IsBelongsTo(field string) bool { return m.relations[field] == BelongsToRel }

// DefaultFields returns the values materialization uses for relations missing
// from present: nil for belongs-to, an empty id list for has-many. The storage
// path tag is always included.
func (m *Model) DefaultFields(present map[string]any) map[string]any {
	out := map[string]any{ModelField: m.path}
	for _, f := range m.belongsTo {
		if _, ok := present[f]; !ok {
			out[f] = nil
		}
	}
	for _, f := range m.hasMany {
		if _, ok := present[f]; !ok {
			out[f] = []string{}
		}
	}
	return out
}

// ReshapeRelationValue turns the store's set encoding ({id: true}) of a
// has-many field into a sorted id list. Other values pass through, except
// that id slices of a has-many field are normalized to []string.
func (m *Model) ReshapeRelationValue(field string, value any) any {
	if !m.IsHasMany(field) {
		return value
	}
	switch v := value.(type) {
	case map[string]any:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	case map[string]bool:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return value
			}
			ids = append(ids, s)
		}
		return ids
	}
	return value
}
