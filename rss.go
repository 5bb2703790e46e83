package vcmstore

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dimilowe/vcmstore/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// renderRSS writes the feed of indexed articles, newest indexing first.
// Articles without a record (legacy pages) fall back to a slug title.
func (a *App) renderRSS(c echo.Context, indexed []content.URL, records map[string]content.Record) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(indexed))
	for _, u := range indexed {
		link := BuildURL(base, u.URL)
		item := rssItem{
			Title: TitleFromSlug(u.Slug),
			Link:  link,
			GUID:  link,
		}
		if rec, ok := records[u.Slug]; ok {
			item.Title = rec.Title
			item.Description = dataString(rec.Data, "summary")
		}
		if !u.IndexedAt.IsZero() {
			item.PubDate = u.IndexedAt.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
