package schema

import (
	"fmt"
	"sort"
	"sync"

)

// Registry maps model names to their definitions. It is filled once at
// startup and only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewRegistry returns a registry holding models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds m. Names and storage paths must be unique.
func (r *Registry) Register(m *Model) error {
	if m == nil {
		return fmt.Errorf("register: nil model")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.name]; ok {
		return fmt.Errorf("register: model %q already registered", m.name)
	}
	for _, other := range r.models {
		if other.path == m.path {
			return fmt.Errorf("register: models %q and %q share storage path %q", other.name, m.name, m.path)
		}
	}
	r.models[m.name] = m
	return nil
}

// Lookup finds a model by name, falling back to its storage path so CLI
// users can type either "FirebaseStock" or "stocks".
func (r *Registry) Lookup(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.models[name]; ok {
		return m, true
	}
	for _, m := range r.models {
		if m.path == name {
			return m, true
		}
	}
	return nil, false
}

// Models returns all registered models sorted by name.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// ModelSpec is the declarative (YAML) form of a model.
type ModelSpec struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path,omitempty"`
	HasMany   []string `yaml:"has_many,omitempty"`
	BelongsTo []string `yaml:"belongs_to,omitempty"`
}

// Build defines the model described by s.
func (s ModelSpec) Build() (*Model, error) {
	opts := []Option{HasMany(s.HasMany...), BelongsTo(s.BelongsTo...)}
	if s.Path != "" {
		opts = append(opts, Path(s.Path))
	}
	return Define(s.Name, opts...)
}

// BuildRegistry defines every model spec and registers the results.
func BuildRegistry(specs []ModelSpec) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model)}
	for _, s := range specs {
		m, err := s.Build()
		if err != nil {
			return nil, err
		}
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}
