package vcmstore

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dimilowe/vcmstore/content"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

var titleCaser = cases.Title(language.English)

// TitleFromSlug turns "youtube-seo-basics" into "Youtube Seo Basics". It is
// used for cluster members whose record has not been loaded.
func TitleFromSlug(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}

// dataString reads a string field from a record's data payload.
func dataString(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	return marshalJsonLD(map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	})
}

// RecordJsonLD returns JSON-LD for a tool (WebApplication) or an article
// (Article) record.
func RecordJsonLD(rec content.Record, cfg SiteConfig) string {
	pageURL := BuildURL(cfg.URL, rec.URL())
	data := map[string]any{
		"@context": "https://schema.org",
		"url":      pageURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   pageURL,
		},
	}
	switch rec.Type {
	case content.TypeTool:
		data["@type"] = "WebApplication"
		data["name"] = rec.Title
		data["applicationCategory"] = "UtilitiesApplication"
		data["offers"] = map[string]string{"@type": "Offer", "price": "0"}
	default:
		data["@type"] = "Article"
		data["headline"] = rec.Title
		if !rec.CreatedAt.IsZero() {
			data["datePublished"] = rec.CreatedAt.Format("2006-01-02")
		}
		if !rec.UpdatedAt.IsZero() {
			data["dateModified"] = rec.UpdatedAt.Format("2006-01-02")
		}
	}
	if summary := dataString(rec.Data, "summary"); summary != "" {
		data["description"] = summary
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
