// Package readiness decides which unindexed pages may be submitted for
// indexing and flips the indexed flag on the ones that qualify.
package readiness

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/interlink"
)

// Reason names a failed readiness predicate.
type Reason string

const (
	ReasonWordCount     Reason = "insufficient_word_count"
	ReasonManualReview  Reason = "missing_manual_review"
	ReasonInternalLinks Reason = "insufficient_internal_links"
)

// Store is the slice of the content store the inspector needs.
type Store interface {
	ListUnindexedURLs(ctx context.Context) ([]content.URL, error)
	GetURL(ctx context.Context, id string) (content.URL, error)
	SetManualReview(ctx context.Context, id string, passed bool) error
	MarkIndexed(ctx context.Context, id string) (bool, error)
}

// Links supplies expected link counts.
type Links interface {
	Compute(ctx context.Context) (interlink.Report, error)
}

// Page is an unindexed URL with its readiness verdict.
type Page struct {
	ID                 string         `json:"id"`
	URL                string         `json:"url"`
	Slug               string         `json:"slug"`
	Type               content.Type   `json:"type"`
	Source             content.Source `json:"source"`
	WordCount          int            `json:"wordCount"`
	Health             content.Tier   `json:"health"`
	ManualReviewPassed bool           `json:"manualReviewPassed"`
	InternalLinks      *int           `json:"internalLinks"`
	ExpectedLinks      *int           `json:"expectedLinks"`
	IsReady            bool           `json:"isReadyToIndex"`
	BlockingReasons    []Reason       `json:"blockingReasons"`
}

// Result is one line of an inspector run.
type Result struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	IsReady         bool     `json:"isReady"`
	BlockingReasons []Reason `json:"blockingReasons"`
}

// Summary totals an inspector run.
type Summary struct {
	Inspected int            `json:"inspected"`
	Ready     int            `json:"ready"`
	NotReady  int            `json:"notReady"`
	ByReason  map[Reason]int `json:"byReason"`
}

// Report is the output of Run.
type Report struct {
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

// PageStats summarises the unindexed page list.
type PageStats struct {
	Total       int `json:"total"`
	Ready       int `json:"ready"`
	Thin        int `json:"thin"`
	OK          int `json:"ok"`
	Strong      int `json:"strong"`
	NeedsReview int `json:"needsReview"`
	NeedsLinks  int `json:"needsLinks"`
}

// PagesReport is the output of UnindexedPages.
type PagesReport struct {
	Pages []Page    `json:"pages"`
	Stats PageStats `json:"stats"`
}

// ToggleResult is the output of ToggleManualReview.
type ToggleResult struct {
	IsReadyToIndex bool `json:"isReadyToIndex"`
}

// IndexResult is the output of IndexReadyPages.
type IndexResult struct {
	IndexedCount int      `json:"indexedCount"`
	IndexedSlugs []string `json:"indexedSlugs"`
}

// Inspector evaluates unindexed URLs. Only IndexReadyPages and
// ToggleManualReview write, and neither ever clears the indexed flag.
type Inspector struct {
	store      Store
	links      Links
	thresholds content.Thresholds
	log        *zap.Logger
}

// NewInspector wires an inspector. log may be nil.
func NewInspector(store Store, links Links, thresholds content.Thresholds, log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{store: store, links: links, thresholds: thresholds, log: log.Named("readiness")}
}

// load fetches unindexed URLs and expected links concurrently; both reads
// are side-effect free.
func (in *Inspector) load(ctx context.Context) ([]content.URL, map[string]int, error) {
	var (
		urls     []content.URL
		expected map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		urls, err = in.store.ListUnindexedURLs(gctx)
		return err
	})
	g.Go(func() error {
		report, err := in.links.Compute(gctx)
		expected = report.ExpectedLinks
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("readiness: %w", err)
	}
	return urls, expected, nil
}

// Evaluate applies the predicates, in order, to one URL.
func (in *Inspector) Evaluate(u content.URL, expected map[string]int) Page {
	p := Page{
		ID:                 u.ID,
		URL:                u.URL,
		Slug:               u.Slug,
		Type:               u.Type,
		Source:             u.Source,
		WordCount:          u.WordCount,
		Health:             in.thresholds.Tier(u.WordCount),
		ManualReviewPassed: u.ManualReviewPassed,
		BlockingReasons:    []Reason{},
	}
	if u.LinksTracked {
		n := u.InternalLinks
		p.InternalLinks = &n
	}
	if want, ok := expected[u.URL]; ok {
		p.ExpectedLinks = &want
	}
	for _, pred := range predicates {
		if !pred.pass(p) {
			p.BlockingReasons = append(p.BlockingReasons, pred.reason)
		}
	}
	p.IsReady = !u.Indexed && len(p.BlockingReasons) == 0
	return p
}

// Run inspects every unindexed URL.
func (in *Inspector) Run(ctx context.Context) (Report, error) {
	urls, expected, err := in.load(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Summary: Summary{ByReason: map[Reason]int{}},
		Results: make([]Result, 0, len(urls)),
	}
	for _, u := range urls {
		p := in.Evaluate(u, expected)
		report.Results = append(report.Results, Result{
			ID:              p.ID,
			URL:             p.URL,
			IsReady:         p.IsReady,
			BlockingReasons: p.BlockingReasons,
		})
		report.Summary.Inspected++
		if p.IsReady {
			report.Summary.Ready++
		} else {
			report.Summary.NotReady++
		}
		for _, r := range p.BlockingReasons {
			report.Summary.ByReason[r]++
		}
	}
	in.log.Info("ready inspector finished",
		zap.Int("inspected", report.Summary.Inspected),
		zap.Int("ready", report.Summary.Ready))
	return report, nil
}

// UnindexedPages lists unindexed URLs with their verdicts and tier counts.
func (in *Inspector) UnindexedPages(ctx context.Context) (PagesReport, error) {
	urls, expected, err := in.load(ctx)
	if err != nil {
		return PagesReport{}, err
	}
	out := PagesReport{Pages: make([]Page, 0, len(urls))}
	for _, u := range urls {
		p := in.Evaluate(u, expected)
		out.Pages = append(out.Pages, p)
		out.Stats.Total++
		if p.IsReady {
			out.Stats.Ready++
		}
		switch p.Health {
		case content.TierStrong:
			out.Stats.Strong++
		case content.TierOK:
			out.Stats.OK++
		default:
			out.Stats.Thin++
		}
		for _, r := range p.BlockingReasons {
			switch r {
			case ReasonManualReview:
				out.Stats.NeedsReview++
			case ReasonInternalLinks:
				out.Stats.NeedsLinks++
			}
		}
	}
	return out, nil
}

// ToggleManualReview records the review verdict for a URL and reports
// whether the URL is now ready to index.
func (in *Inspector) ToggleManualReview(ctx context.Context, id string, passed bool) (ToggleResult, error) {
	if err := in.store.SetManualReview(ctx, id, passed); err != nil {
		return ToggleResult{}, fmt.Errorf("readiness: toggle review: %w", err)
	}
	u, err := in.store.GetURL(ctx, id)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("readiness: toggle review: %w", err)
	}
	report, err := in.links.Compute(ctx)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("readiness: toggle review: %w", err)
	}
	p := in.Evaluate(u, report.ExpectedLinks)
	in.log.Info("manual review set", zap.String("url", u.URL), zap.Bool("passed", passed), zap.Bool("ready", p.IsReady))
	return ToggleResult{IsReadyToIndex: p.IsReady}, nil
}

// IndexReadyPages flags every currently ready URL as indexed. URLs already
// indexed are never part of the ready set, so a converged site returns zero.
func (in *Inspector) IndexReadyPages(ctx context.Context) (IndexResult, error) {
	urls, expected, err := in.load(ctx)
	if err != nil {
		return IndexResult{}, err
	}
	res := IndexResult{IndexedSlugs: []string{}}
	for _, u := range urls {
		if !in.Evaluate(u, expected).IsReady {
			continue
		}
		changed, err := in.store.MarkIndexed(ctx, u.ID)
		if err != nil {
			return res, fmt.Errorf("readiness: index %s: %w", u.URL, err)
		}
		if !changed {
			continue
		}
		res.IndexedCount++
		res.IndexedSlugs = append(res.IndexedSlugs, slugOf(u))
	}
	in.log.Info("indexed ready pages", zap.Int("count", res.IndexedCount))
	return res, nil
}

func slugOf(u content.URL) string {
	if u.Slug != "" {
		return u.Slug
	}
	return path.Base(u.URL)
}
