// Package expansion turns blueprints into tool and article shells and
// persists the ones that do not exist yet.
package expansion

import (
	"fmt"

	"github.com/dimilowe/vcmstore/blueprint"
	"github.com/dimilowe/vcmstore/content"
)

// ClusterLookup answers whether a cluster id exists.
type ClusterLookup interface {
	Has(id string) bool
}

// Shell is one candidate page: a single choice of value per dimension.
type Shell struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	BlueprintID string            `json:"blueprintId"`
	EngineID    string            `json:"engineId"`
	Type        content.Type      `json:"type"`
	Dimensions  map[string]string `json:"dimensions"`
	ClusterSlug string            `json:"clusterSlug,omitempty"`
	LinkTags    []string          `json:"linkTags"`
	Created     bool              `json:"created"`
}

// URL is the public path the shell will be served at.
func (s Shell) URL() string {
	return content.URLFor(s.Type, s.Slug)
}

// Omitted is a combination that could not become a shell.
type Omitted struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
	err    error
}

// Err returns the underlying error; it wraps blueprint.ErrInvalidConfiguration.
func (o Omitted) Err() error { return o.err }

// Generation is the output of GenerateAllShells.
type Generation struct {
	Shells  []Shell
	Omitted []Omitted
}

// GenerateAllShells expands bp into one shell per combination of dimension
// values, walking dimensions in declared order with the last dimension
// varying fastest. existing marks shells that are already persisted; it may
// be nil. The function has no side effects and is deterministic.
//
// A blueprint without dimensions yields exactly one shell. A dimension with
// no values yields none.
func GenerateAllShells(bp blueprint.Blueprint, clusters ClusterLookup, existing map[string]bool) Generation {
	var gen Generation
	seen := make(map[string]struct{})
	for _, combo := range combinations(bp.Dimensions) {
		chosen := make(map[string]string, len(combo))
		for i, d := range bp.Dimensions {
			chosen[d.ID] = combo[i]
		}
		slug := ShellSlug(bp.ID, combo)
		if _, dup := seen[slug]; dup {
			gen.Omitted = append(gen.Omitted, omit(slug, fmt.Errorf("%w: blueprint %q: slug collision", blueprint.ErrInvalidConfiguration, bp.ID)))
			continue
		}
		seen[slug] = struct{}{}

		title, err := bp.RenderTitle(chosen)
		if err != nil {
			gen.Omitted = append(gen.Omitted, omit(slug, err))
			continue
		}
		clusterSlug, tags, err := applyLinkRules(bp, chosen, clusters)
		if err != nil {
			gen.Omitted = append(gen.Omitted, omit(slug, err))
			continue
		}
		gen.Shells = append(gen.Shells, Shell{
			Slug:        slug,
			Title:       title,
			BlueprintID: bp.ID,
			EngineID:    bp.EngineID,
			Type:        bp.ContentType,
			Dimensions:  chosen,
			ClusterSlug: clusterSlug,
			LinkTags:    tags,
			Created:     existing[slug],
		})
	}
	return gen
}

func omit(slug string, err error) Omitted {
	return Omitted{Slug: slug, Reason: err.Error(), err: err}
}

// applyLinkRules returns the ids of every matching rule and the cluster of
// the first matching rule that names one.
func applyLinkRules(bp blueprint.Blueprint, chosen map[string]string, clusters ClusterLookup) (string, []string, error) {
	tags := []string{}
	clusterSlug := ""
	for _, rule := range bp.LinkRules {
		ok, unknown := rule.Evaluate(chosen)
		if !ok {
			continue
		}
		if unknown != "" {
			return "", nil, fmt.Errorf("%w: blueprint %q: link rule %q names unknown dimension %q",
				blueprint.ErrInvalidConfiguration, bp.ID, rule.ID, unknown)
		}
		tags = append(tags, rule.ID)
		if rule.Cluster == "" || clusterSlug != "" {
			continue
		}
		if clusters == nil || !clusters.Has(rule.Cluster) {
			return "", nil, fmt.Errorf("%w: blueprint %q: link rule %q references unknown cluster %q",
				blueprint.ErrInvalidConfiguration, bp.ID, rule.ID, rule.Cluster)
		}
		clusterSlug = rule.Cluster
	}
	return clusterSlug, tags, nil
}

// combinations returns the cartesian product of the dimensions' values.
func combinations(dims []blueprint.Dimension) [][]string {
	combos := [][]string{{}}
	for _, d := range dims {
		next := make([][]string, 0, len(combos)*len(d.Values))
		for _, prefix := range combos {
			for _, v := range d.Values {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}
	return combos
}
