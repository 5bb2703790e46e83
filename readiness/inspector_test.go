package readiness

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/interlink"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

type fixedLinks map[string]int

func (f fixedLinks) Compute(context.Context) (interlink.Report, error) {
	return interlink.Report{ExpectedLinks: f}, nil
}

type failingLinks struct{}

var errLinks = errors.New("cluster topology unavailable")

func (failingLinks) Compute(context.Context) (interlink.Report, error) {
	return interlink.Report{}, errLinks
}

func setup(t *testing.T, urls ...content.URL) (*content.Store, map[string]string) {
	t.Helper()
	s, err := content.NewStore(filepath.Join(t.TempDir(), "ready.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	_, err = s.SyncURLs(ctx, urls)
	require.NoError(t, err)
	all, err := s.ListURLs(ctx)
	require.NoError(t, err)
	ids := make(map[string]string, len(all))
	for _, u := range all {
		ids[u.Slug] = u.ID
	}
	return s, ids
}

func tool(slug string, words int) content.URL {
	return content.URL{URL: content.URLFor(content.TypeTool, slug), Type: content.TypeTool, Slug: slug, WordCount: words}
}

func withLinks(u content.URL, n int) content.URL {
	u.InternalLinks = n
	u.LinksTracked = true
	return u
}

func TestEvaluateOrdersReasons(t *testing.T) {
	in := NewInspector(nil, nil, content.DefaultThresholds, nil)
	u := withLinks(tool("thin", 120), 1)

	p := in.Evaluate(u, map[string]int{u.URL: 7})
	assert.False(t, p.IsReady)
	assert.Equal(t, content.TierThin, p.Health)
	assert.Equal(t, []Reason{ReasonWordCount, ReasonManualReview, ReasonInternalLinks}, p.BlockingReasons)
	require.NotNil(t, p.ExpectedLinks)
	assert.Equal(t, 7, *p.ExpectedLinks)
}

func TestEvaluateLinksPredicate(t *testing.T) {
	in := NewInspector(nil, nil, content.DefaultThresholds, nil)
	reviewed := func(u content.URL) content.URL {
		u.ManualReviewPassed = true
		return u
	}

	tests := []struct {
		name     string
		url      content.URL
		expected map[string]int
		ready    bool
	}{
		{"untracked", reviewed(tool("a", 400)), map[string]int{"/tools/a": 7}, true},
		{"no expectation", reviewed(withLinks(tool("a", 400), 0)), nil, true},
		{"below expectation", reviewed(withLinks(tool("a", 400), 6)), map[string]int{"/tools/a": 7}, false},
		{"meets expectation", reviewed(withLinks(tool("a", 400), 7)), map[string]int{"/tools/a": 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := in.Evaluate(tt.url, tt.expected)
			assert.Equal(t, tt.ready, p.IsReady, "reasons: %v", p.BlockingReasons)
		})
	}
}

func TestThinPageNeverReady(t *testing.T) {
	ctx := context.Background()
	s, ids := setup(t, withLinks(tool("thin", 299), 50))
	in := NewInspector(s, fixedLinks{}, content.DefaultThresholds, nil)

	toggled, err := in.ToggleManualReview(ctx, ids["thin"], true)
	require.NoError(t, err)
	assert.False(t, toggled.IsReadyToIndex)

	report, err := in.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, []Reason{ReasonWordCount}, report.Results[0].BlockingReasons)

	res, err := in.IndexReadyPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.IndexedCount)

	u, err := s.GetURL(ctx, ids["thin"])
	require.NoError(t, err)
	assert.False(t, u.Indexed)
}

func TestRunSummary(t *testing.T) {
	ctx := context.Background()
	s, ids := setup(t,
		tool("ready", 900),
		tool("unreviewed", 500),
		withLinks(tool("underlinked", 500), 1),
	)
	require.NoError(t, s.SetManualReview(ctx, ids["ready"], true))
	require.NoError(t, s.SetManualReview(ctx, ids["underlinked"], true))
	in := NewInspector(s, fixedLinks{"/tools/underlinked": 7}, content.DefaultThresholds, nil)

	report, err := in.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Inspected)
	assert.Equal(t, 1, report.Summary.Ready)
	assert.Equal(t, 2, report.Summary.NotReady)
	assert.Equal(t, map[Reason]int{ReasonManualReview: 1, ReasonInternalLinks: 1}, report.Summary.ByReason)

	pages, err := in.UnindexedPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, PageStats{Total: 3, Ready: 1, OK: 2, Strong: 1, NeedsReview: 1, NeedsLinks: 1}, pages.Stats)
}

func TestIndexReadyPagesConverges(t *testing.T) {
	ctx := context.Background()
	s, ids := setup(t, tool("one", 400), tool("two", 850), tool("draft", 400))
	require.NoError(t, s.SetManualReview(ctx, ids["one"], true))
	require.NoError(t, s.SetManualReview(ctx, ids["two"], true))
	in := NewInspector(s, fixedLinks{}, content.DefaultThresholds, nil)

	first, err := in.IndexReadyPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.IndexedCount)
	assert.ElementsMatch(t, []string{"one", "two"}, first.IndexedSlugs)

	for i := 0; i < 3; i++ {
		again, err := in.IndexReadyPages(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.IndexedCount)
		assert.Empty(t, again.IndexedSlugs)
	}

	pages, err := in.UnindexedPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages.Pages, 1)
	assert.Equal(t, "draft", pages.Pages[0].Slug)
}

func TestToggleOnIndexedPage(t *testing.T) {
	ctx := context.Background()
	s, ids := setup(t, tool("done", 400))
	require.NoError(t, s.SetManualReview(ctx, ids["done"], true))
	changed, err := s.MarkIndexed(ctx, ids["done"])
	require.NoError(t, err)
	require.True(t, changed)

	in := NewInspector(s, fixedLinks{}, content.DefaultThresholds, nil)
	res, err := in.ToggleManualReview(ctx, ids["done"], true)
	require.NoError(t, err)
	assert.False(t, res.IsReadyToIndex)

	u, err := s.GetURL(ctx, ids["done"])
	require.NoError(t, err)
	assert.True(t, u.Indexed)
}

func TestToggleMissingURL(t *testing.T) {
	s, _ := setup(t)
	in := NewInspector(s, fixedLinks{}, content.DefaultThresholds, nil)
	_, err := in.ToggleManualReview(context.Background(), "missing", true)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestRunPropagatesLinkErrors(t *testing.T) {
	s, _ := setup(t, tool("a", 400))
	in := NewInspector(s, failingLinks{}, content.DefaultThresholds, nil)
	_, err := in.Run(context.Background())
	assert.ErrorIs(t, err, errLinks)
	_, err = in.IndexReadyPages(context.Background())
	assert.ErrorIs(t, err, errLinks)
}
