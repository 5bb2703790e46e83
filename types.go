package vcmstore

import (
	"github.com/a-h/templ"

	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/expansion"
	"github.com/dimilowe/vcmstore/readiness"
)

// ViewFuncs holds the templ components the App renders. Any nil field is
// filled from DefaultViews, so callers override only the pages they own.
type ViewFuncs struct {
	Home           func(clusters []cluster.Cluster, siteURL string) templ.Component
	Tool           func(page Page) templ.Component
	Article        func(page Page) templ.Component
	Pillar         func(page PillarPage) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(d Dashboard, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	NoIndex     bool   // page is not yet in the indexed set
	JsonLD      string
}

// Link is an internal link rendered on a page.
type Link struct {
	Title string
	URL   string
}

// Page is a tool or article record ready to render.
type Page struct {
	Meta    PageMeta
	Record  content.Record
	Body    string // Markdown from the record's data payload
	Pillar  *Link
	Related []Link
}

// PillarPage is a cluster hub.
type PillarPage struct {
	Meta     PageMeta
	Cluster  cluster.Cluster
	Intro    string
	Tools    []Link
	Articles []Link
}

// Dashboard is the admin overview.
type Dashboard struct {
	Blueprints []expansion.BlueprintSummary
	Expansion  expansion.Stats
	Readiness  readiness.PageStats
}
