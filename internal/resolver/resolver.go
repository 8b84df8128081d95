// Package resolver maps opaque image identifiers to local file paths and
// formats. A deployment runs exactly one strategy, chosen at startup:
// direct filesystem lookup, mounted-source caching, HTTP caching, or
// templated-HTTP caching. The caching strategies keep fetched copies on
// local disk and rely on filesystem rename atomicity, not locks, to stay
// correct when several workers populate the same entry at once.
package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Result is a successful resolution: a readable local file and its
// image format.
type Result struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// Resolver is the contract every strategy implements. IsResolvable may
// be cheaper than Resolve (a stat or a HEAD instead of a download).
type Resolver interface {
	IsResolvable(ctx context.Context, ident string) bool
	Resolve(ctx context.Context, ident string) (Result, error)
}

// TemplateConfig is one named URL pattern with optional per-template
// transport overrides. Override fields that are unset fall back to the
// top-level settings.
type TemplateConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"pw"`
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	SSLCheck *bool  `yaml:"ssl_check"`
}

// Config selects and parameterizes a strategy. Which keys are required
// depends on the strategy; constructors validate at startup.
type Config struct {
	Strategy string `yaml:"strategy"`

	// fs
	SourceRoots []string `yaml:"source_roots"`

	// mounted, http, template
	CacheRoot  string `yaml:"cache_root"`
	SourceRoot string `yaml:"source_root"`

	// http, template
	SourcePrefix   string `yaml:"source_prefix"`
	SourceSuffix   string `yaml:"source_suffix"`
	DefaultFormat  string `yaml:"default_format"`
	HeadResolvable bool   `yaml:"head_resolvable"`
	URIResolvable  bool   `yaml:"uri_resolvable"`
	IdentRegex     string `yaml:"ident_regex"`
	User           string `yaml:"user"`
	Password       string `yaml:"pw"`
	Cert           string `yaml:"cert"`
	Key            string `yaml:"key"`
	SSLCheck       *bool  `yaml:"ssl_check"`

	// template
	Delimiter string                    `yaml:"delimiter"`
	Templates map[string]TemplateConfig `yaml:"templates"`
}

// New builds the strategy named by cfg.Strategy. Configuration problems
// are returned as plain errors and are fatal to the caller.
func New(cfg Config, log *zap.Logger) (Resolver, error) {
	switch cfg.Strategy {
	case "fs":
		log.Info("using filesystem resolver", zap.Strings("source_roots", cfg.SourceRoots))
		return NewSimpleFS(cfg, log)
	case "mounted":
		log.Info("using mounted-source caching resolver",
			zap.String("source_root", cfg.SourceRoot),
			zap.String("cache_root", cfg.CacheRoot))
		return NewMounted(cfg, log)
	case "http":
		log.Info("using HTTP caching resolver",
			zap.String("source_prefix", cfg.SourcePrefix),
			zap.String("cache_root", cfg.CacheRoot))
		return NewHTTPCaching(cfg, log)
	case "template":
		log.Info("using templated HTTP caching resolver",
			zap.Int("templates", len(cfg.Templates)),
			zap.String("cache_root", cfg.CacheRoot))
		return NewTemplated(cfg, log)
	default:
		return nil, fmt.Errorf("unknown resolver strategy: %q (supported: fs, mounted, http, template)", cfg.Strategy)
	}
}
