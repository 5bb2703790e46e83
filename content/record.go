// Package content is the persisted side of the site: content records and the
// global URL index that spans legacy presets, expansion shells and CMS objects.
package content

import "time"

// Type is the kind of page a record renders as.
type Type string

const (
	TypeTool           Type = "tool"
	TypeArticle        Type = "article"
	TypePillar         Type = "pillar"
	TypeMBB            Type = "mbb"
	TypeCloudDashboard Type = "cloud_dashboard"
)

// Valid reports whether t is one of the known page types.
func (t Type) Valid() bool {
	switch t {
	case TypeTool, TypeArticle, TypePillar, TypeMBB, TypeCloudDashboard:
		return true
	}
	return false
}

// Source records which subsystem introduced a URL.
type Source string

const (
	SourceLegacy    Source = "legacy"
	SourceExpansion Source = "expansion"
	SourceCMS       Source = "cms"
)

// Record is a content object stored in content_records. WordCount, Indexed and
// IndexedAt are read from the record's row in global_urls.
type Record struct {
	ID          string
	Slug        string
	Type        Type
	Title       string
	EngineID    string
	BlueprintID string
	ClusterSlug string
	Source      Source
	Data        map[string]any
	Dimensions  map[string]string
	LinkTags    []string
	WordCount   int
	Indexed     bool
	IndexedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// URL returns the public path of the record.
func (r Record) URL() string {
	return URLFor(r.Type, r.Slug)
}

// Health classifies the record's word count.
func (r Record) Health(t Thresholds) Tier {
	return t.Tier(r.WordCount)
}

// URL is one row of the global URL index.
type URL struct {
	ID                 string
	URL                string
	Type               Type
	Slug               string
	RecordID           string
	Source             Source
	WordCount          int
	InternalLinks      int
	LinksTracked       bool // InternalLinks is meaningful only when set
	ManualReviewPassed bool
	Indexed            bool
	IndexedAt          time.Time
	ReviewedAt         time.Time
	CreatedAt          time.Time
}

// Patch lists the fields UpdateFields may change. Nil fields are left alone.
// Review and indexing state change only through SetManualReview and
// MarkIndexed.
type Patch struct {
	Title         *string
	ClusterSlug   *string
	Data          map[string]any
	WordCount     *int
	InternalLinks *int
}

func (p Patch) recordChanged() bool {
	return p.Title != nil || p.ClusterSlug != nil || p.Data != nil
}

func (p Patch) urlChanged() bool {
	return p.WordCount != nil || p.InternalLinks != nil
}
