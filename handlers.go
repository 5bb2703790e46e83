package vcmstore

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
)

func (a *App) handleHome(c echo.Context) error {
	return Render(c, a.Views.Home(a.Clusters.List(), a.Config.URL))
}

func (a *App) handleTool(c echo.Context) error {
	page, err := a.recordPage(c, content.TypeTool)
	if err != nil {
		return err
	}
	return RenderPage(c, page.Meta, a.Views.Tool(page))
}

func (a *App) handleArticle(c echo.Context) error {
	page, err := a.recordPage(c, content.TypeArticle)
	if err != nil {
		return err
	}
	return RenderPage(c, page.Meta, a.Views.Article(page))
}

func (a *App) recordPage(c echo.Context, t content.Type) (Page, error) {
	ctx := c.Request().Context()
	rec, err := a.Store.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		return Page{}, err
	}
	if rec.Type != t {
		return Page{}, fmt.Errorf("%w: %s is a %s", content.ErrNotFound, rec.Slug, rec.Type)
	}
	topology, err := a.Links.Topology(ctx)
	if err != nil {
		return Page{}, err
	}

	ogType := "article"
	if t == content.TypeTool {
		ogType = "website"
	}
	page := Page{
		Meta: PageMeta{
			Title:       rec.Title,
			Description: dataString(rec.Data, "summary"),
			URL:         BuildURL(a.Config.URL, rec.URL()),
			OGType:      ogType,
			NoIndex:     !rec.Indexed,
			JsonLD:      RecordJsonLD(rec, a.Config),
		},
		Record: rec,
		Body:   dataString(rec.Data, "body"),
	}
	if cl, ok := clusterOf(topology, rec); ok {
		page.Pillar = &Link{Title: cl.PillarTitle, URL: content.URLFor(content.TypePillar, cl.PillarSlug)}
		page.Related = a.relatedLinks(cl, rec)
	}
	return page, nil
}

// clusterOf finds the cluster a record belongs to: its own cluster slug
// first, otherwise the first cluster that lists it.
func clusterOf(topology []cluster.Cluster, rec content.Record) (cluster.Cluster, bool) {
	for _, cl := range topology {
		if rec.ClusterSlug != "" && cl.ID == rec.ClusterSlug {
			return cl, true
		}
	}
	for _, cl := range topology {
		members := cl.ToolSlugs
		if rec.Type == content.TypeArticle {
			members = cl.ArticleSlugs
		}
		for _, s := range members {
			if s == rec.Slug {
				return cl, true
			}
		}
	}
	return cluster.Cluster{}, false
}

// relatedLinks picks the in-cluster links a page renders. The caps mirror
// the expected link formula: sibling tools up to the static tool count less
// one, then the policy caps for articles and tools.
func (a *App) relatedLinks(cl cluster.Cluster, rec content.Record) []Link {
	p := a.Links.Policy()
	var links []Link
	add := func(t content.Type, slugs []string, limit int) {
		n := 0
		for _, s := range slugs {
			if n >= limit {
				return
			}
			if s == rec.Slug {
				continue
			}
			links = append(links, Link{Title: TitleFromSlug(s), URL: content.URLFor(t, s)})
			n++
		}
	}
	if rec.Type == content.TypeTool {
		siblings := len(cl.ToolSlugs) - 1
		if static, ok := a.Clusters.Get(cl.ID); ok {
			siblings = len(static.ToolSlugs) - 1
		}
		add(content.TypeTool, cl.ToolSlugs, siblings)
		add(content.TypeArticle, cl.ArticleSlugs, p.ArticlesPerTool)
		return links
	}
	add(content.TypeTool, cl.ToolSlugs, p.ToolsPerArticle)
	add(content.TypeArticle, cl.ArticleSlugs, p.SiblingArticles)
	return links
}

func (a *App) handlePillar(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	topology, err := a.Links.Topology(ctx)
	if err != nil {
		return err
	}
	var (
		cl    cluster.Cluster
		found bool
	)
	for _, candidate := range topology {
		if candidate.PillarSlug == slug {
			cl, found = candidate, true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: pillar %q", cluster.ErrNotFound, slug)
	}

	path := content.URLFor(content.TypePillar, slug)
	indexed, err := a.Pages.IsIndexed(ctx, path)
	if err != nil {
		return err
	}
	page := PillarPage{
		Meta: PageMeta{
			Title:   cl.PillarTitle,
			URL:     BuildURL(a.Config.URL, path),
			OGType:  "website",
			NoIndex: !indexed,
		},
		Cluster: cl,
	}
	// A hand-authored pillar record, when present, supplies the intro copy.
	rec, err := a.Store.FindBySlug(ctx, slug)
	switch {
	case err == nil && rec.Type == content.TypePillar:
		page.Meta.Title = rec.Title
		page.Meta.Description = dataString(rec.Data, "summary")
		page.Intro = dataString(rec.Data, "body")
	case err != nil && !errors.Is(err, content.ErrNotFound):
		return err
	}
	for _, s := range cl.ToolSlugs {
		page.Tools = append(page.Tools, Link{Title: TitleFromSlug(s), URL: content.URLFor(content.TypeTool, s)})
	}
	for _, s := range cl.ArticleSlugs {
		page.Articles = append(page.Articles, Link{Title: TitleFromSlug(s), URL: content.URLFor(content.TypeArticle, s)})
	}
	return RenderPage(c, page.Meta, a.Views.Pillar(page))
}

func (a *App) handleSitemap(c echo.Context) error {
	urls, err := a.Pages.Indexed(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, urls)
}

func (a *App) handleFeed(c echo.Context) error {
	ctx := c.Request().Context()
	urls, err := a.Pages.IndexedOfType(ctx, content.TypeArticle)
	if err != nil {
		return err
	}
	records, err := a.Store.ListByType(ctx, content.TypeArticle)
	if err != nil {
		return err
	}
	bySlug := make(map[string]content.Record, len(records))
	for _, r := range records {
		bySlug[r.Slug] = r
	}
	return a.renderRSS(c, urls, bySlug)
}
