package interlink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
)

// ExpectedLinks maps every page URL in clusters to its expected link count.
// A URL that appears in more than one cluster keeps the value from the first
// cluster that lists it.
func ExpectedLinks(clusters []cluster.Cluster, p Policy) map[string]int {
	out := make(map[string]int)
	set := func(url string, n int) {
		if _, ok := out[url]; !ok {
			out[url] = n
		}
	}
	for _, c := range clusters {
		e := p.Expect(len(c.ToolSlugs), len(c.ArticleSlugs))
		set(content.URLFor(content.TypePillar, c.PillarSlug), e.Pillar)
		for _, s := range c.ToolSlugs {
			set(content.URLFor(content.TypeTool, s), e.Tool)
		}
		for _, s := range c.ArticleSlugs {
			set(content.URLFor(content.TypeArticle, s), e.Article)
		}
	}
	return out
}

// Source is the read-only view of the content store the calculator uses.
type Source interface {
	ListByType(ctx context.Context, t content.Type) ([]content.Record, error)
	ListURLs(ctx context.Context) ([]content.URL, error)
}

// Report is the calculator's output.
type Report struct {
	ExpectedLinks map[string]int `json:"expectedLinks"`
	// LegacyTools are tool URLs in the index that no cluster lists.
	LegacyTools []string `json:"legacyTools"`
	// Unmigrated are cluster members with no row in the URL index.
	Unmigrated []string `json:"unmigrated"`
}

// Calculator computes link expectations from the static cluster registry.
// The store is read only to classify URLs; live cluster membership feeds
// Topology, which page rendering uses, and never moves an expectation.
type Calculator struct {
	clusters *cluster.Registry
	source   Source
	policy   Policy
	log      *zap.Logger
}

// NewCalculator wires a calculator. log may be nil.
func NewCalculator(clusters *cluster.Registry, source Source, policy Policy, log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{clusters: clusters, source: source, policy: policy, log: log.Named("interlink")}
}

// Policy returns the caps in use.
func (c *Calculator) Policy() Policy { return c.policy }

// Topology returns the static clusters with live members merged in.
func (c *Calculator) Topology(ctx context.Context) ([]cluster.Cluster, error) {
	var members []cluster.Member
	for _, t := range []content.Type{content.TypeTool, content.TypeArticle} {
		records, err := c.source.ListByType(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("interlink: list %s: %w", t, err)
		}
		for _, r := range records {
			if r.ClusterSlug == "" {
				continue
			}
			if !c.clusters.Has(r.ClusterSlug) {
				c.log.Debug("record names unknown cluster", zap.String("slug", r.Slug), zap.String("cluster", r.ClusterSlug))
				continue
			}
			members = append(members, cluster.Member{Slug: r.Slug, ClusterID: r.ClusterSlug, Article: t == content.TypeArticle})
		}
	}
	return cluster.Merge(c.clusters.List(), members), nil
}

// Compute returns expected links for every page the static registry lists,
// together with the legacy and unmigrated URL lists.
func (c *Calculator) Compute(ctx context.Context) (Report, error) {
	static := c.clusters.List()
	urls, err := c.source.ListURLs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("interlink: list urls: %w", err)
	}

	report := Report{
		ExpectedLinks: ExpectedLinks(static, c.policy),
		LegacyTools:   []string{},
		Unmigrated:    []string{},
	}

	clusteredTools := make(map[string]struct{})
	for _, cl := range static {
		for _, s := range cl.ToolSlugs {
			clusteredTools[content.URLFor(content.TypeTool, s)] = struct{}{}
		}
	}
	indexed := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		indexed[u.URL] = struct{}{}
		if !content.IsToolURL(u.URL) {
			continue
		}
		if _, ok := clusteredTools[u.URL]; !ok {
			report.LegacyTools = append(report.LegacyTools, u.URL)
		}
	}

	seen := make(map[string]struct{})
	for _, cl := range static {
		for _, url := range memberURLs(cl) {
			if _, ok := indexed[url]; ok {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			report.Unmigrated = append(report.Unmigrated, url)
		}
	}

	c.log.Debug("expected links computed",
		zap.Int("pages", len(report.ExpectedLinks)),
		zap.Int("legacy_tools", len(report.LegacyTools)),
		zap.Int("unmigrated", len(report.Unmigrated)))
	return report, nil
}

func memberURLs(c cluster.Cluster) []string {
	urls := make([]string, 0, len(c.ToolSlugs)+len(c.ArticleSlugs))
	for _, s := range c.ToolSlugs {
		urls = append(urls, content.URLFor(content.TypeTool, s))
	}
	for _, s := range c.ArticleSlugs {
		urls = append(urls, content.URLFor(content.TypeArticle, s))
	}
	return urls
}
