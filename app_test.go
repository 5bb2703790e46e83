package vcmstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimilowe/vcmstore/content"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(SiteConfig{
		URL:           "https://example.com",
		DatabasePath:  filepath.Join(t.TempDir(), "app.db"),
		AdminPassword: "correct-horse",
		SessionSecret: "test-session-secret-0123456789",
	}, ViewFuncs{}, WithPresets([]content.URL{
		{URL: "/tools/tiktok-caption-generator", Type: content.TypeTool, Slug: "tiktok-caption-generator", WordCount: 940},
		{URL: "/tools/word-counter", Type: content.TypeTool, Slug: "word-counter", WordCount: 520},
	}))
	require.NoError(t, a.Open(context.Background()))
	a.Handler()
	t.Cleanup(func() { a.Close() })
	return a
}

type client struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, a *App) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.Handler().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	var r *strings.Reader
	if body == nil {
		r = strings.NewReader("")
	} else {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) login(password string) *httptest.ResponseRecorder {
	c.get("/admin/")
	csrf := c.cookies["_csrf"]
	require.NotNil(c.t, csrf, "csrf cookie")
	form := url.Values{"password": {password}, "_csrf": {csrf.Value}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAdminAPIRequiresSession(t *testing.T) {
	c := newClient(t, newTestApp(t))

	rec := c.get("/api/admin/links/")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "admin session required", decode[map[string]string](t, rec)["error"])

	rec = c.login("wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong password")
	assert.Equal(t, http.StatusUnauthorized, c.get("/api/admin/links/").Code)
}

func TestLoginAndLogout(t *testing.T) {
	c := newClient(t, newTestApp(t))

	rec := c.login("correct-horse")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusOK, c.get("/api/admin/links/").Code)

	dash := c.get("/admin/")
	assert.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), "Caption Generator")
	assert.Contains(t, dash.Body.String(), "Caption Engine")
}

func TestExpansionEndpoints(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.login("correct-horse")

	type listBody struct {
		Blueprints []struct {
			ID        string `json:"id"`
			Potential int    `json:"potential"`
			Created   int    `json:"created"`
		} `json:"blueprints"`
		Stats struct {
			TotalBlueprints      int `json:"totalBlueprints"`
			TotalPotentialShells int `json:"totalPotentialShells"`
			TotalCreatedShells   int `json:"totalCreatedShells"`
		} `json:"stats"`
	}
	list := decode[listBody](t, c.get("/api/admin/expansion/"))
	assert.Equal(t, 3, list.Stats.TotalBlueprints)
	assert.Equal(t, 22, list.Stats.TotalPotentialShells)
	assert.Equal(t, 0, list.Stats.TotalCreatedShells)

	type runBody struct {
		DryRun       bool     `json:"dryRun"`
		CreatedCount int      `json:"createdCount"`
		SkippedCount int      `json:"skippedCount"`
		CreatedSlugs []string `json:"createdSlugs"`
	}
	preview := decode[runBody](t, c.get("/api/admin/expansion/yt-title/preview"))
	assert.True(t, preview.DryRun)
	assert.Equal(t, 4, preview.CreatedCount)

	run := decode[runBody](t, c.json(http.MethodPost, "/api/admin/expansion/yt-title/run", nil))
	assert.Equal(t, 4, run.CreatedCount)
	assert.Contains(t, run.CreatedSlugs, "yt-title-gaming")

	again := decode[runBody](t, c.json(http.MethodPost, "/api/admin/expansion/yt-title/run", nil))
	assert.Equal(t, 0, again.CreatedCount)
	assert.Equal(t, 4, again.SkippedCount)

	all := decode[runBody](t, c.json(http.MethodPost, "/api/admin/expansion/run-all", nil))
	assert.Equal(t, 18, all.CreatedCount)
	assert.Equal(t, 4, all.SkippedCount)

	rec := c.get("/api/admin/expansion/missing/preview")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "missing")

	list = decode[listBody](t, c.get("/api/admin/expansion/"))
	assert.Equal(t, 22, list.Stats.TotalCreatedShells)

	page := c.get("/tools/yt-title-gaming/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Equal(t, "noindex", page.Header().Get("X-Robots-Tag"))
	assert.Contains(t, page.Body.String(), "YouTube Title Generator for Gaming Videos")
	assert.Contains(t, page.Body.String(), `href="/topics/youtube-growth-toolkit/"`)
}

func TestLinksEndpoint(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.login("correct-horse")

	type linksBody struct {
		ExpectedLinks map[string]int `json:"expectedLinks"`
		LegacyTools   []string       `json:"legacyTools"`
		Unmigrated    []string       `json:"unmigrated"`
	}
	body := decode[linksBody](t, c.get("/api/admin/links/"))
	assert.Equal(t, 6, body.ExpectedLinks["/topics/tiktok-growth-toolkit"])
	assert.Equal(t, []string{"/tools/word-counter"}, body.LegacyTools)
	assert.NotContains(t, body.Unmigrated, "/tools/tiktok-caption-generator")
	assert.Contains(t, body.Unmigrated, "/tools/tiktok-bio-generator")
}

func TestExpansionKeepsLegacyExpectations(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Store.SyncURLs(ctx, []content.URL{{
		URL: "/tools/tiktok-hashtag-generator", Type: content.TypeTool, Slug: "tiktok-hashtag-generator",
		Source: content.SourceLegacy, WordCount: 610, InternalLinks: 6, LinksTracked: true,
	}})
	require.NoError(t, err)
	var id string
	urls, err := a.Store.ListURLs(ctx)
	require.NoError(t, err)
	for _, u := range urls {
		if u.Slug == "tiktok-hashtag-generator" {
			id = u.ID
		}
	}
	require.NotEmpty(t, id)
	toggled, err := a.Inspector.ToggleManualReview(ctx, id, true)
	require.NoError(t, err)
	require.True(t, toggled.IsReadyToIndex)

	before, err := a.Links.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, before.ExpectedLinks["/tools/tiktok-hashtag-generator"])
	assert.Equal(t, 6, before.ExpectedLinks["/topics/tiktok-growth-toolkit"])

	res, err := a.Runner.RunAll(ctx)
	require.NoError(t, err)
	require.Positive(t, res.CreatedCount)

	after, err := a.Links.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.ExpectedLinks, after.ExpectedLinks)

	pages, err := a.Inspector.UnindexedPages(ctx)
	require.NoError(t, err)
	for _, p := range pages.Pages {
		if p.ID == id {
			assert.True(t, p.IsReady, "%v", p.BlockingReasons)
			assert.Empty(t, p.BlockingReasons)
		}
	}
}

func articleBody(words int, links ...string) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString("[link](" + l + ") ")
	}
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(strings.Repeat("hook ", words-len(links))))
	return b.String()
}

func TestContentReviewAndIndexFlow(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	c.login("correct-horse")

	// A statically listed tiktok-growth article: three tools and three articles
	// give it six expected links.
	links := []string{
		"/topics/tiktok-growth-toolkit", "/tools/tiktok-caption-generator", "/tools/tiktok-hashtag-generator",
		"/tools/tiktok-bio-generator", "/blog/how-to-write-tiktok-captions",
	}
	rec := c.json(http.MethodPut, "/api/admin/content/tiktok-hashtag-strategy", map[string]any{
		"type":        "article",
		"title":       "TikTok Hashtag Strategy",
		"clusterSlug": "tiktok-growth",
		"summary":     "Openers that stop the scroll.",
		"body":        articleBody(350, links...),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[map[string]any](t, rec)
	assert.Equal(t, "/blog/tiktok-hashtag-strategy", saved["url"])
	assert.Equal(t, float64(350), saved["wordCount"])
	assert.Equal(t, "ok", saved["health"])
	assert.Equal(t, float64(5), saved["internalLinks"])

	urls, err := a.Store.ListUnindexedURLs(context.Background())
	require.NoError(t, err)
	var id string
	for _, u := range urls {
		if u.Slug == "tiktok-hashtag-strategy" {
			id = u.ID
		}
	}
	require.NotEmpty(t, id)

	type toggle struct {
		IsReadyToIndex bool `json:"isReadyToIndex"`
	}
	got := decode[toggle](t, c.json(http.MethodPost, "/api/admin/ready/review/"+id, map[string]bool{"passed": true}))
	assert.False(t, got.IsReadyToIndex, "five of six expected links")

	type indexBody struct {
		IndexedCount int      `json:"indexedCount"`
		IndexedSlugs []string `json:"indexedSlugs"`
	}
	assert.Equal(t, 0, decode[indexBody](t, c.json(http.MethodPost, "/api/admin/ready/index", nil)).IndexedCount)

	rec = c.json(http.MethodPut, "/api/admin/content/tiktok-hashtag-strategy", map[string]any{
		"body": articleBody(350, append(links, "/blog/best-time-to-post-on-tiktok")...),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Openers that stop the scroll.", decode[map[string]any](t, rec)["data"].(map[string]any)["summary"])

	type pagesBody struct {
		Pages []struct {
			Slug            string   `json:"slug"`
			IsReady         bool     `json:"isReadyToIndex"`
			ExpectedLinks   *int     `json:"expectedLinks"`
			BlockingReasons []string `json:"blockingReasons"`
		} `json:"pages"`
	}
	pages := decode[pagesBody](t, c.get("/api/admin/ready/pages"))
	for _, p := range pages.Pages {
		if p.Slug == "tiktok-hashtag-strategy" {
			assert.True(t, p.IsReady, "%v", p.BlockingReasons)
			require.NotNil(t, p.ExpectedLinks)
			assert.Equal(t, 6, *p.ExpectedLinks)
		}
	}

	indexed := decode[indexBody](t, c.json(http.MethodPost, "/api/admin/ready/index", nil))
	assert.Equal(t, 1, indexed.IndexedCount)
	assert.Equal(t, []string{"tiktok-hashtag-strategy"}, indexed.IndexedSlugs)
	assert.Equal(t, 0, decode[indexBody](t, c.json(http.MethodPost, "/api/admin/ready/index", nil)).IndexedCount)

	sitemap := c.get("/sitemap.xml")
	assert.Equal(t, http.StatusOK, sitemap.Code)
	assert.Contains(t, sitemap.Body.String(), "<loc>https://example.com/blog/tiktok-hashtag-strategy/</loc>")
	assert.NotContains(t, sitemap.Body.String(), "word-counter")

	feed := c.get("/feed.xml")
	assert.Contains(t, feed.Body.String(), "<title>TikTok Hashtag Strategy</title>")
	assert.Contains(t, feed.Body.String(), "Openers that stop the scroll.")

	page := c.get("/blog/tiktok-hashtag-strategy/")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Empty(t, page.Header().Get("X-Robots-Tag"))
	assert.NotContains(t, page.Body.String(), "noindex")
}

func TestContentPutValidation(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.login("correct-horse")

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"bad slug", "/api/admin/content/Not%20A%20Slug", map[string]any{"type": "article", "title": "x"}},
		{"unknown type", "/api/admin/content/new-page", map[string]any{"type": "podcast", "title": "x"}},
		{"missing title", "/api/admin/content/new-page", map[string]any{"type": "article"}},
		{"unknown cluster", "/api/admin/content/new-page", map[string]any{"type": "article", "title": "x", "clusterSlug": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.json(http.MethodPut, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}

	rec := c.json(http.MethodPut, "/api/admin/content/new-page", map[string]any{"type": "article", "title": "New"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = c.json(http.MethodPut, "/api/admin/content/new-page", map[string]any{"type": "tool"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewRequiresPassed(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.login("correct-horse")
	rec := c.json(http.MethodPost, "/api/admin/ready/review/anything", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.json(http.MethodPost, "/api/admin/ready/review/missing", map[string]bool{"passed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicPages(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	ctx := context.Background()

	_, err := a.Store.Create(ctx, content.Record{
		Slug: "how-to-write-tiktok-captions", Type: content.TypeArticle, Title: "How to Write TikTok Captions",
		Data: map[string]any{"body": "Use a **hook**."},
	})
	require.NoError(t, err)

	home := c.get("/")
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), `href="/topics/tiktok-growth-toolkit/"`)

	article := c.get("/blog/how-to-write-tiktok-captions/")
	assert.Equal(t, http.StatusOK, article.Code)
	assert.Contains(t, article.Body.String(), "<strong>hook</strong>")
	assert.Contains(t, article.Body.String(), `href="/tools/tiktok-caption-generator/"`)
	assert.Contains(t, article.Body.String(), `<meta name="robots" content="noindex">`)

	assert.Equal(t, http.StatusMovedPermanently, c.get("/blog/how-to-write-tiktok-captions").Code)
	assert.Equal(t, http.StatusNotFound, c.get("/tools/how-to-write-tiktok-captions/").Code)
	assert.Equal(t, http.StatusNotFound, c.get("/blog/missing/").Code)

	_, err = a.Store.Create(ctx, content.Record{
		Slug: "tiktok-hashtag-generator", Type: content.TypeTool, Title: "TikTok Hashtag Generator",
	})
	require.NoError(t, err)
	tool := c.get("/tools/tiktok-hashtag-generator/")
	assert.Equal(t, http.StatusOK, tool.Code)
	body := tool.Body.String()
	assert.Contains(t, body, `href="/topics/tiktok-growth-toolkit/"`)
	assert.Contains(t, body, `href="/tools/tiktok-caption-generator/"`)
	assert.Contains(t, body, `href="/tools/tiktok-bio-generator/"`)
	assert.NotContains(t, body, `href="/tools/tiktok-hashtag-generator/"`)
	assert.Contains(t, body, `href="/blog/best-time-to-post-on-tiktok/"`)
	// Two sibling tools and three articles, plus the pillar: six, as expected for a tool here.
	assert.Equal(t, 5, strings.Count(body, "<li>"))

	pillar := c.get("/topics/tiktok-growth-toolkit/")
	assert.Equal(t, http.StatusOK, pillar.Code)
	assert.Contains(t, pillar.Body.String(), "The TikTok Growth Toolkit")
	assert.Contains(t, pillar.Body.String(), `href="/blog/how-to-write-tiktok-captions/"`)
	assert.Equal(t, http.StatusNotFound, c.get("/topics/nope/").Code)
}
