package vcmstore

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/expansion"
	"github.com/dimilowe/vcmstore/markdown"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	ctx := c.Request().Context()
	summaries, stats, err := a.Runner.Overview(ctx)
	if err != nil {
		return err
	}
	pages, err := a.Inspector.UnindexedPages(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(Dashboard{
		Blueprints: summaries,
		Expansion:  stats,
		Readiness:  pages.Stats,
	}, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Log.Warn("failed admin login", zap.String("ip", ip))
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleExpansionList(c echo.Context) error {
	summaries, stats, err := a.Runner.Overview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"blueprints": summaries,
		"stats":      stats,
	})
}

func (a *App) handleExpansionPreview(c echo.Context) error {
	res, err := a.Runner.Preview(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleExpansionRun(c echo.Context) error {
	res, err := a.Runner.Run(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleExpansionRunAll(c echo.Context) error {
	res, err := a.Runner.RunAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleLinks(c echo.Context) error {
	report, err := a.Links.Compute(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (a *App) handleReadyInspect(c echo.Context) error {
	report, err := a.Inspector.Run(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (a *App) handleReadyPages(c echo.Context) error {
	pages, err := a.Inspector.UnindexedPages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}

type reviewRequest struct {
	Passed *bool `json:"passed"`
}

func (a *App) handleReadyReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Passed == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "passed is required")
	}
	res, err := a.Inspector.ToggleManualReview(c.Request().Context(), c.Param("id"), *req.Passed)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) handleReadyIndex(c echo.Context) error {
	res, err := a.Inspector.IndexReadyPages(c.Request().Context())
	if res.IndexedCount > 0 {
		a.Pages.Invalidate()
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type contentRequest struct {
	Type        content.Type   `json:"type"`
	Title       string         `json:"title"`
	ClusterSlug *string        `json:"clusterSlug"`
	Summary     *string        `json:"summary"`
	Body        *string        `json:"body"`
	Data        map[string]any `json:"data"`
}

type contentResponse struct {
	ID            string         `json:"id"`
	Slug          string         `json:"slug"`
	Type          content.Type   `json:"type"`
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	ClusterSlug   string         `json:"clusterSlug"`
	Source        content.Source `json:"source"`
	WordCount     int            `json:"wordCount"`
	Health        content.Tier   `json:"health"`
	InternalLinks *int           `json:"internalLinks,omitempty"`
	Indexed       bool           `json:"indexed"`
	Data          map[string]any `json:"data"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// handleContentPut creates or updates a hand-authored record. A Markdown
// body sets the URL's word count and tracked internal link count.
func (a *App) handleContentPut(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	if slug == "" || expansion.Slugify(slug) != slug {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid slug %q", slug))
	}
	var req contentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.ClusterSlug != nil && *req.ClusterSlug != "" && !a.Clusters.Has(*req.ClusterSlug) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown cluster %q", *req.ClusterSlug))
	}

	data := make(map[string]any, len(req.Data)+2)
	for k, v := range req.Data {
		data[k] = v
	}
	if req.Summary != nil {
		data["summary"] = *req.Summary
	}
	if req.Body != nil {
		data["body"] = *req.Body
	}
	patch := content.Patch{Data: data}
	if req.Body != nil {
		stats := markdown.Analyze(*req.Body)
		patch.WordCount = &stats.Words
		patch.InternalLinks = &stats.InternalLinks
	}

	status := http.StatusOK
	existing, err := a.Store.FindBySlug(ctx, slug)
	switch {
	case errors.Is(err, content.ErrNotFound):
		if !req.Type.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid type %q", req.Type))
		}
		if req.Title == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "title is required")
		}
		rec := content.Record{Slug: slug, Type: req.Type, Title: req.Title, Source: content.SourceCMS, Data: data}
		if req.ClusterSlug != nil {
			rec.ClusterSlug = *req.ClusterSlug
		}
		if _, err := a.Store.Create(ctx, rec); err != nil {
			return err
		}
		patch.Data = nil
		status = http.StatusCreated
	case err != nil:
		return err
	default:
		if req.Type != "" && req.Type != existing.Type {
			return echo.NewHTTPError(http.StatusBadRequest, "type cannot be changed")
		}
		merged := make(map[string]any, len(existing.Data)+len(data))
		for k, v := range existing.Data {
			merged[k] = v
		}
		for k, v := range data {
			merged[k] = v
		}
		patch.Data = merged
		if req.Title != "" {
			patch.Title = &req.Title
		}
		patch.ClusterSlug = req.ClusterSlug
	}

	if patch.Data != nil || patch.Title != nil || patch.ClusterSlug != nil || patch.WordCount != nil {
		if err := a.Store.UpdateFields(ctx, slug, patch); err != nil {
			return err
		}
	}
	a.Pages.Invalidate()

	rec, err := a.Store.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	a.Log.Info("content saved", zap.String("slug", slug), zap.Int("status", status), zap.Int("words", rec.WordCount))
	res := contentResponse{
		ID:          rec.ID,
		Slug:        rec.Slug,
		Type:        rec.Type,
		Title:       rec.Title,
		URL:         rec.URL(),
		ClusterSlug: rec.ClusterSlug,
		Source:      rec.Source,
		WordCount:   rec.WordCount,
		Health:      rec.Health(a.Config.Health),
		Indexed:     rec.Indexed,
		Data:        rec.Data,
		UpdatedAt:   rec.UpdatedAt,
	}
	if patch.InternalLinks != nil {
		res.InternalLinks = patch.InternalLinks
	}
	return c.JSON(status, res)
}
