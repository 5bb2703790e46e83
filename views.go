package vcmstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/markdown"
)

// DefaultViews returns plain, unstyled components for every page.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           defaultHome,
		Tool:           defaultRecordPage,
		Article:        defaultRecordPage,
		Pillar:         defaultPillar,
		AdminLogin:     defaultAdminLogin,
		AdminDashboard: defaultAdminDashboard,
		NotFound:       func() templ.Component { return message("Not found", "That page does not exist.") },
		ServerError:    func() templ.Component { return message("Server error", "Something went wrong.") },
	}
}

func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Tool == nil {
		v.Tool = d.Tool
	}
	if v.Article == nil {
		v.Article = d.Article
	}
	if v.Pillar == nil {
		v.Pillar = d.Pillar
	}
	if v.AdminLogin == nil {
		v.AdminLogin = d.AdminLogin
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = d.AdminDashboard
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	return v
}

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *htmlWriter) head(meta PageMeta) {
	h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
	h.text(meta.Title)
	h.raw(`</title>`)
	if meta.Description != "" {
		h.raw(`<meta name="description" content="`)
		h.text(meta.Description)
		h.raw(`">`)
	}
	if meta.URL != "" {
		h.raw(`<link rel="canonical" href="`)
		h.text(meta.URL)
		h.raw(`"><meta property="og:url" content="`)
		h.text(meta.URL)
		h.raw(`">`)
	}
	if meta.OGType != "" {
		h.raw(`<meta property="og:type" content="`)
		h.text(meta.OGType)
		h.raw(`">`)
	}
	if meta.NoIndex {
		h.raw(`<meta name="robots" content="noindex">`)
	}
	if meta.JsonLD != "" {
		h.raw(`<script type="application/ld+json">`)
		h.raw(strings.ReplaceAll(meta.JsonLD, "</", `<\/`))
		h.raw(`</script>`)
	}
	h.raw(`</head><body>`)
}

func (h *htmlWriter) links(heading string, links []Link) {
	if len(links) == 0 {
		return
	}
	h.raw(`<h2>`)
	h.text(heading)
	h.raw(`</h2><ul>`)
	for _, l := range links {
		h.raw(`<li><a href="`)
		h.text(l.URL + "/")
		h.raw(`">`)
		h.text(l.Title)
		h.raw(`</a></li>`)
	}
	h.raw(`</ul>`)
}

func (h *htmlWriter) foot() { h.raw(`</body></html>`) }

func page(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		fn(h)
		return h.err
	})
}

func message(title, body string) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(PageMeta{Title: title, NoIndex: true})
		h.raw(`<h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(body)
		h.raw(`</p>`)
		h.foot()
	})
}

func defaultHome(clusters []cluster.Cluster, siteURL string) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(PageMeta{Title: "Creator tools", URL: BuildURL(siteURL), OGType: "website"})
		h.raw(`<h1>Creator tools</h1>`)
		links := make([]Link, 0, len(clusters))
		for _, c := range clusters {
			links = append(links, Link{Title: c.PillarTitle, URL: content.URLFor(content.TypePillar, c.PillarSlug)})
		}
		h.links("Topics", links)
		h.foot()
	})
}

func defaultRecordPage(p Page) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(p.Meta)
		if p.Pillar != nil {
			h.raw(`<nav><a href="`)
			h.text(p.Pillar.URL + "/")
			h.raw(`">`)
			h.text(p.Pillar.Title)
			h.raw(`</a></nav>`)
		}
		h.raw(`<article><h1>`)
		h.text(p.Record.Title)
		h.raw(`</h1>`)
		h.raw(markdown.Render(p.Body))
		h.raw(`</article>`)
		h.links("Related", p.Related)
		h.foot()
	})
}

func defaultPillar(p PillarPage) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(p.Meta)
		h.raw(`<h1>`)
		h.text(p.Meta.Title)
		h.raw(`</h1>`)
		h.raw(markdown.Render(p.Intro))
		h.links("Tools", p.Tools)
		h.links("Guides", p.Articles)
		h.foot()
	})
}

func defaultAdminLogin(showError bool, csrfToken string) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(PageMeta{Title: "Admin login", NoIndex: true})
		if showError {
			h.raw(`<p role="alert">Wrong password.</p>`)
		}
		h.raw(`<form method="post" action="/admin/login/"><input type="hidden" name="_csrf" value="`)
		h.text(csrfToken)
		h.raw(`"><input type="password" name="password" autofocus><button type="submit">Log in</button></form>`)
		h.foot()
	})
}

func defaultAdminDashboard(d Dashboard, csrfToken string) templ.Component {
	return page(func(h *htmlWriter) {
		h.head(PageMeta{Title: "Admin", NoIndex: true})
		h.raw(`<h1>Expansion</h1>`)
		h.text(fmt.Sprintf("%d blueprints, %d of %d shells created",
			d.Expansion.TotalBlueprints, d.Expansion.TotalCreatedShells, d.Expansion.TotalPotentialShells))
		h.raw(`<table><thead><tr><th>Blueprint</th><th>Engine</th><th>Type</th><th>Created</th><th>Potential</th></tr></thead><tbody>`)
		for _, b := range d.Blueprints {
			h.raw(`<tr><td>`)
			h.text(b.Name)
			h.raw(`</td><td>`)
			h.text(b.EngineName)
			h.raw(`</td><td>`)
			h.text(string(b.Type))
			h.raw(`</td><td>`)
			h.text(fmt.Sprint(b.Created))
			h.raw(`</td><td>`)
			h.text(fmt.Sprint(b.Potential))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table><h1>Readiness</h1><p>`)
		r := d.Readiness
		h.text(fmt.Sprintf("%d unindexed, %d ready, %d need review, %d need links (thin %d, ok %d, strong %d)",
			r.Total, r.Ready, r.NeedsReview, r.NeedsLinks, r.Thin, r.OK, r.Strong))
		h.raw(`</p><form method="post" action="/admin/logout/"><input type="hidden" name="_csrf" value="`)
		h.text(csrfToken)
		h.raw(`"><button type="submit">Log out</button></form>`)
		h.foot()
	})
}
