package vcmstore

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore/content"
	"github.com/dimilowe/vcmstore/interlink"
)

// SiteConfig holds all configuration for a vcmstore site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Creator Tools")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Feed and meta description

	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/content.db")

	// RegistryPath is an optional directory holding blueprints.{yaml,toml}
	// and clusters.{yaml,toml} that replace the compiled-in registries.
	RegistryPath string `mapstructure:"registry_path"`

	AdminPassword string `mapstructure:"admin_password"` // Required by Start
	SessionSecret string `mapstructure:"session_secret"` // Required by Start
	CookieSecure  bool   `mapstructure:"cookie_secure"`

	CacheTTL time.Duration `mapstructure:"cache_ttl"` // Indexed page cache TTL (default 5min)

	Health content.Thresholds `mapstructure:"health"`
	Links  interlink.Policy   `mapstructure:"links"`
	Log    LogConfig          `mapstructure:"log"`
}

// LogConfig selects the zap logger built by NewLogger.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error (default info)
	Dev   bool   `mapstructure:"dev"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Creator Tools"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/content.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.Health == (content.Thresholds{}) {
		c.Health = content.DefaultThresholds
	}
	if c.Links == (interlink.Policy{}) {
		c.Links = interlink.DefaultPolicy()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// LoadConfig reads configuration from path (yaml, toml or json; optional)
// and from VCM_ prefixed environment variables, e.g. VCM_SITE_URL or
// VCM_LINKS_ARTICLES_PER_TOOL.
func LoadConfig(path string) (SiteConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("VCM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("site.name", "Creator Tools")
	v.SetDefault("site.url", "http://localhost:3000")
	v.SetDefault("site.description", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/content.db")
	v.SetDefault("registry_path", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("health.ok_words", content.DefaultThresholds.OK)
	v.SetDefault("health.strong_words", content.DefaultThresholds.Strong)
	v.SetDefault("links.articles_per_tool", interlink.DefaultArticlesPerTool)
	v.SetDefault("links.tools_per_article", interlink.DefaultToolsPerArticle)
	v.SetDefault("links.sibling_articles", interlink.DefaultSiblingArticles)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return SiteConfig{}, fmt.Errorf("vcmstore: read config: %w", err)
			}
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("vcmstore: decode config: %w", err)
	}
	// site.* keys live under a nested table but map onto top-level fields.
	cfg.Name = v.GetString("site.name")
	cfg.URL = v.GetString("site.url")
	cfg.Description = v.GetString("site.description")
	cfg.setDefaults()
	return cfg, nil
}

// NewLogger builds the process logger described by c.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	if c.Dev {
		return zap.NewDevelopment()
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("vcmstore: log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	return zc.Build()
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the logger used by the App and every component it wires.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithPresets replaces the compiled-in legacy URL presets.
func WithPresets(presets []content.URL) Option {
	return func(a *App) {
		a.presets = presets
	}
}
