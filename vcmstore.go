// Package vcmstore is the creator-tools site: a content store fed by
// blueprint expansion, CMS edits and legacy presets, with cluster link
// expectations and an indexing readiness gate on top.
//
// The App wires every component together and serves public pages plus a
// session-protected admin JSON API. Page markup is supplied through
// ViewFuncs; DefaultViews covers anything left unset.
package vcmstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/blueprint"
	"github.com/dimilowe/vcmstore/cluster"
	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/expansion"
	"github.com/dimilowe/vcmstore/interlink"
	"github.com/dimilowe/vcmstore/readiness"
)

// App is the central application. It owns the store and the components
// built on it.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Log    *zap.Logger
	Views  ViewFuncs

	Store      *content.Store
	Blueprints *blueprint.Registry
	Clusters   *cluster.Registry
	Runner     *expansion.Runner
	Links      *interlink.Calculator
	Inspector  *readiness.Inspector
	Pages      *PageCache

	loginLimiter *LoginLimiter
	presets      []content.URL
	customRoutes []func(*App)
	serverReady  bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views.withDefaults(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	return a
}

// Open loads the registries, opens the store, syncs legacy presets and wires
// the expansion, interlink and readiness components. The CLI calls Open
// directly; Start calls it before serving.
func (a *App) Open(ctx context.Context) error {
	blueprints, clusters, err := loadRegistries(a.Config.RegistryPath)
	if err != nil {
		return fmt.Errorf("vcmstore: %w", err)
	}
	a.Blueprints, a.Clusters = blueprints, clusters

	if a.presets == nil {
		if a.presets, err = DefaultPresets(); err != nil {
			return err
		}
	}

	store, err := content.NewStore(a.Config.DatabasePath, a.Log)
	if err != nil {
		return fmt.Errorf("vcmstore: init store: %w", err)
	}
	a.Store = store

	a.Runner = expansion.NewRunner(a.Blueprints, a.Clusters, a.Store, a.Log)
	a.Links = interlink.NewCalculator(a.Clusters, a.Store, a.Config.Links, a.Log)
	a.Inspector = readiness.NewInspector(a.Store, a.Links, a.Config.Health, a.Log)
	a.Pages = NewPageCache(a.Store, a.Config.CacheTTL)

	added, err := a.SyncPresets(ctx)
	if err != nil {
		return fmt.Errorf("vcmstore: sync presets: %w", err)
	}
	a.Log.Info("app ready",
		zap.Int("blueprints", len(a.Blueprints.All())),
		zap.Int("clusters", len(a.Clusters.List())),
		zap.Int("presets_added", added))
	return nil
}

// Handler registers middleware and routes on first use and returns the
// Echo instance. Open must have been called.
func (a *App) Handler() http.Handler {
	if !a.serverReady {
		a.loginLimiter = NewLoginLimiter(5, time.Minute)
		a.setupMiddleware()
		a.setupRoutes()
		for _, fn := range a.customRoutes {
			fn(a)
		}
		a.serverReady = true
	}
	return a.Echo
}

// Start opens the App and serves HTTP until the server stops.
func (a *App) Start() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("vcmstore: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("vcmstore: SessionSecret is required")
	}
	if err := a.Open(context.Background()); err != nil {
		return err
	}
	a.Handler()

	a.Log.Info("listening", zap.String("addr", a.Config.Addr))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleHome)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/tools/:slug/", a.handleTool)
	e.GET("/blog/:slug/", a.handleArticle)
	e.GET("/topics/:slug/", a.handlePillar)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	api := e.Group("/api/admin", requireAdminAPI)
	api.GET("/expansion/", a.handleExpansionList)
	api.GET("/expansion/:id/preview", a.handleExpansionPreview)
	api.POST("/expansion/run-all", a.handleExpansionRunAll)
	api.POST("/expansion/:id/run", a.handleExpansionRun)
	api.GET("/links/", a.handleLinks)
	api.POST("/ready/inspect", a.handleReadyInspect)
	api.GET("/ready/pages", a.handleReadyPages)
	api.POST("/ready/review/:id", a.handleReadyReview)
	api.POST("/ready/index", a.handleReadyIndex)
	api.PUT("/content/:slug", a.handleContentPut)
}

// loadRegistries returns the compiled-in registries, or the files found in
// dir when one is configured.
func loadRegistries(dir string) (*blueprint.Registry, *cluster.Registry, error) {
	var (
		blueprints *blueprint.Registry
		clusters   *cluster.Registry
		err        error
	)
	if path := findRegistryFile(dir, "blueprints"); path != "" {
		blueprints, err = blueprint.LoadFile(path)
	} else {
		blueprints, err = blueprint.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if path := findRegistryFile(dir, "clusters"); path != "" {
		clusters, err = cluster.LoadFile(path)
	} else {
		clusters, err = cluster.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	return blueprints, clusters, nil
}

func findRegistryFile(dir, name string) string {
	if dir == "" {
		return ""
	}
	for _, ext := range []string{".yaml", ".yml", ".toml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
