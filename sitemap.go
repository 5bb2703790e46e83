package vcmstore

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dimilowe/vcmstore/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// renderSitemap lists the home page and every indexed URL. Pages that have
// not passed the readiness gate are left out.
func (a *App) renderSitemap(c echo.Context, indexed []content.URL) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for _, u := range indexed {
		entry := sitemapURL{Loc: BuildURL(base, u.URL)}
		if !u.IndexedAt.IsZero() {
			entry.LastMod = u.IndexedAt.Format("2006-01-02")
		}
		urls = append(urls, entry)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
