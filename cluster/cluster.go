// Package cluster holds the static topic-cluster registry: each cluster is a
// pillar page plus the tools and articles that hang off it.
package cluster

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/dimilowe/vcmstore/internal/registryfile"
)

// ErrNotFound is returned for unknown cluster ids on paths that need one.
var ErrNotFound = errors.New("cluster: not found")

// Cluster is one pillar and its ordered children.
type Cluster struct {
	ID           string   `json:"id"`
	PillarSlug   string   `json:"pillar_slug"`
	PillarTitle  string   `json:"pillar_title"`
	EngineID     string   `json:"engine_id"`
	ToolSlugs    []string `json:"tool_slugs"`
	ArticleSlugs []string `json:"article_slugs"`
}

// Registry is an immutable, ordered set of clusters.
type Registry struct {
	clusters []Cluster
	byID     map[string]int
}

//go:embed clusters.yaml
var defaultClusters []byte

//go:embed clusters.schema.json
var schema []byte

type document struct {
	Clusters []Cluster `json:"clusters"`
}

// Load returns the registry compiled into the binary.
func Load() (*Registry, error) {
	var doc document
	if err := registryfile.Decode(registryfile.YAML, defaultClusters, schema, &doc); err != nil {
		return nil, fmt.Errorf("cluster: embedded registry: %w", err)
	}
	return NewRegistry(doc.Clusters)
}

// LoadFile reads a YAML or TOML cluster registry from disk.
func LoadFile(path string) (*Registry, error) {
	var doc document
	if err := registryfile.DecodeFile(path, schema, &doc); err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	return NewRegistry(doc.Clusters)
}

// NewRegistry validates clusters and builds a registry. Cluster ids must be
// unique; slugs may repeat across clusters but not within one list.
func NewRegistry(clusters []Cluster) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(clusters))}
	for _, c := range clusters {
		if c.ID == "" {
			return nil, errors.New("cluster: empty id")
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("cluster: duplicate id %q", c.ID)
		}
		if c.PillarSlug == "" {
			return nil, fmt.Errorf("cluster %q: pillar_slug is required", c.ID)
		}
		if s, ok := firstDuplicate(c.ToolSlugs); ok {
			return nil, fmt.Errorf("cluster %q: tool %q listed twice", c.ID, s)
		}
		if s, ok := firstDuplicate(c.ArticleSlugs); ok {
			return nil, fmt.Errorf("cluster %q: article %q listed twice", c.ID, s)
		}
		r.byID[c.ID] = len(r.clusters)
		r.clusters = append(r.clusters, c.clone())
	}
	return r, nil
}

// List returns every cluster in declaration order.
func (r *Registry) List() []Cluster {
	out := make([]Cluster, len(r.clusters))
	for i, c := range r.clusters {
		out[i] = c.clone()
	}
	return out
}

// Get returns the cluster with the given id.
func (r *Registry) Get(id string) (Cluster, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Cluster{}, false
	}
	return r.clusters[i].clone(), true
}

// Has reports whether id names a registered cluster.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (c Cluster) clone() Cluster {
	c.ToolSlugs = append([]string(nil), c.ToolSlugs...)
	c.ArticleSlugs = append([]string(nil), c.ArticleSlugs...)
	return c
}

func firstDuplicate(vals []string) (string, bool) {
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			return v, true
		}
		seen[v] = struct{}{}
	}
	return "", false
}
