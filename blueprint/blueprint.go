// Package blueprint defines the expansion blueprints: the dimensions an engine
// is expanded along, how the resulting shells are titled, and which link rules
// place them into clusters.
//
// Blueprints are static configuration. A Registry is built once at start-up
// and passed to the components that need it; nothing here is mutable.
package blueprint

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/aymerick/raymond"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/internal/registryfile"
)

var (
	// ErrNotFound is returned when a blueprint id is not registered.
	ErrNotFound = errors.New("blueprint: not found")
	// ErrInvalidConfiguration marks registry or link-rule problems.
	ErrInvalidConfiguration = errors.New("blueprint: invalid configuration")
)

// Engine is a rendering engine; every shell it produces is of ContentType.
type Engine struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	ContentType content.Type `json:"content_type"`
}

// Dimension is one axis of expansion. Values are unique and ordered.
type Dimension struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// LinkRule matches combinations of dimension values. A combination matches
// when, for every dimension named in When, its chosen value is listed.
// An empty When matches everything.
type LinkRule struct {
	ID      string              `json:"id"`
	Cluster string              `json:"cluster"`
	When    map[string][]string `json:"when"`
}

// Matches reports whether the chosen values satisfy the rule.
func (r LinkRule) Matches(chosen map[string]string) bool {
	ok, unknown := r.Evaluate(chosen)
	return ok && unknown == ""
}

// Evaluate checks the rule against chosen values. ok reports whether every
// dimension that chosen has a value for is satisfied; unknown is the first
// dimension, in name order, that chosen has no value for.
func (r LinkRule) Evaluate(chosen map[string]string) (ok bool, unknown string) {
	dims := make([]string, 0, len(r.When))
	for dim := range r.When {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	ok = true
	for _, dim := range dims {
		v, has := chosen[dim]
		if !has {
			if unknown == "" {
				unknown = dim
			}
			continue
		}
		if !contains(r.When[dim], v) {
			ok = false
		}
	}
	return ok, unknown
}

// Blueprint describes how one engine is expanded.
type Blueprint struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	EngineID      string         `json:"engine_id"`
	TitleTemplate string         `json:"title_template"`
	Dimensions    []Dimension    `json:"dimensions"`
	LinkRules     []LinkRule     `json:"link_rules"`
	Defaults      map[string]any `json:"defaults"`

	// ContentType is resolved from the engine when the registry is built.
	ContentType content.Type `json:"-"`

	title *raymond.Template
}

// PotentialShells is the size of the cartesian product of all dimensions.
func (b Blueprint) PotentialShells() int {
	n := 1
	for _, d := range b.Dimensions {
		n *= len(d.Values)
	}
	return n
}

// Title returns the parsed title template, or nil when TitleTemplate is empty.
func (b Blueprint) Title() (*raymond.Template, error) {
	if b.title != nil {
		return b.title, nil
	}
	if b.TitleTemplate == "" {
		return nil, nil
	}
	return raymond.Parse(b.TitleTemplate)
}

// Registry is the set of engines and blueprints known to the process.
type Registry struct {
	engines    map[string]Engine
	blueprints []Blueprint
	byID       map[string]int
}

//go:embed blueprints.yaml
var defaultBlueprints []byte

//go:embed blueprints.schema.json
var schema []byte

type document struct {
	Engines    []Engine    `json:"engines"`
	Blueprints []Blueprint `json:"blueprints"`
}

// Load returns the registry compiled into the binary.
func Load() (*Registry, error) {
	var doc document
	if err := registryfile.Decode(registryfile.YAML, defaultBlueprints, schema, &doc); err != nil {
		return nil, fmt.Errorf("%w: embedded registry: %v", ErrInvalidConfiguration, err)
	}
	return NewRegistry(doc.Engines, doc.Blueprints)
}

// LoadFile reads a YAML or TOML blueprint registry from disk.
func LoadFile(path string) (*Registry, error) {
	var doc document
	if err := registryfile.DecodeFile(path, schema, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return NewRegistry(doc.Engines, doc.Blueprints)
}

// NewRegistry validates engines and blueprints and builds a registry.
// Link rules are not checked here: unknown clusters and dimensions are
// resolved per shell during generation, which omits the shells they affect.
func NewRegistry(engines []Engine, blueprints []Blueprint) (*Registry, error) {
	r := &Registry{
		engines: make(map[string]Engine, len(engines)),
		byID:    make(map[string]int, len(blueprints)),
	}
	for _, e := range engines {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: engine with empty id", ErrInvalidConfiguration)
		}
		if _, dup := r.engines[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate engine %q", ErrInvalidConfiguration, e.ID)
		}
		if e.ContentType == "" {
			e.ContentType = content.TypeTool
		}
		r.engines[e.ID] = e
	}
	for _, b := range blueprints {
		if err := r.validate(&b); err != nil {
			return nil, err
		}
		r.byID[b.ID] = len(r.blueprints)
		r.blueprints = append(r.blueprints, b)
	}
	return r, nil
}

func (r *Registry) validate(b *Blueprint) error {
	if b.ID == "" {
		return fmt.Errorf("%w: blueprint with empty id", ErrInvalidConfiguration)
	}
	if _, dup := r.byID[b.ID]; dup {
		return fmt.Errorf("%w: duplicate blueprint %q", ErrInvalidConfiguration, b.ID)
	}
	engine, ok := r.engines[b.EngineID]
	if !ok {
		return fmt.Errorf("%w: blueprint %q: unknown engine %q", ErrInvalidConfiguration, b.ID, b.EngineID)
	}
	b.ContentType = engine.ContentType

	dims := make(map[string]struct{}, len(b.Dimensions))
	for _, d := range b.Dimensions {
		if d.ID == "" {
			return fmt.Errorf("%w: blueprint %q: dimension with empty id", ErrInvalidConfiguration, b.ID)
		}
		if _, dup := dims[d.ID]; dup {
			return fmt.Errorf("%w: blueprint %q: duplicate dimension %q", ErrInvalidConfiguration, b.ID, d.ID)
		}
		dims[d.ID] = struct{}{}
		seen := make(map[string]struct{}, len(d.Values))
		for _, v := range d.Values {
			if _, dup := seen[v]; dup {
				return fmt.Errorf("%w: blueprint %q: dimension %q repeats value %q", ErrInvalidConfiguration, b.ID, d.ID, v)
			}
			seen[v] = struct{}{}
		}
	}
	if b.TitleTemplate != "" {
		tpl, err := raymond.Parse(b.TitleTemplate)
		if err != nil {
			return fmt.Errorf("%w: blueprint %q: title template: %v", ErrInvalidConfiguration, b.ID, err)
		}
		b.title = tpl
	}
	return nil
}

// All returns every blueprint in declaration order.
func (r *Registry) All() []Blueprint {
	return append([]Blueprint(nil), r.blueprints...)
}

// Get returns the blueprint with the given id.
func (r *Registry) Get(id string) (Blueprint, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Blueprint{}, false
	}
	return r.blueprints[i], true
}

// Engine returns the engine with the given id.
func (r *Registry) Engine(id string) (Engine, bool) {
	e, ok := r.engines[id]
	return e, ok
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
