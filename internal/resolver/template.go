package resolver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"imgsource/internal/fetch"
)

// templateURLs routes identifiers of the form "name:rest" through named
// URL patterns. Identifiers without a colon or with an unknown prefix
// are unroutable, not errors; stray traffic like favicon requests should
// 404 quietly instead of raising.
type templateURLs struct {
	templates map[string]templateEntry
	delimiter string
	logger    *zap.Logger
}

type templateEntry struct {
	pattern string
	client  *fetch.Client
}

func (t *templateURLs) requestURL(ident string) (string, *fetch.Client, error) {
	prefix, rest, found := strings.Cut(ident, ":")
	if !found {
		return "", nil, nil
	}

	entry, ok := t.templates[prefix]
	if !ok {
		return "", nil, nil
	}

	args := []any{rest}
	if t.delimiter != "" {
		parts := strings.Split(rest, t.delimiter)
		args = make([]any, len(parts))
		for i, part := range parts {
			args[i] = part
		}
	}

	if strings.Count(entry.pattern, "%s") != len(args) {
		t.logger.Warn("identifier does not match template arity",
			zap.String("template", prefix),
			zap.String("pattern", entry.pattern),
			zap.Int("values", len(args)))
		return "", nil, nil
	}

	return fmt.Sprintf(entry.pattern, args...), entry.client, nil
}

// NewTemplated builds an HTTP caching resolver whose URLs come from the
// configured template patterns. Per-template auth and TLS settings
// override the top-level ones; clients are constructed once at startup
// so credential problems surface as fatal configuration errors.
func NewTemplated(cfg Config, log *zap.Logger) (*HTTPCaching, error) {
	// Template patterns always yield absolute URLs.
	cfg.URIResolvable = true

	base, err := NewHTTPCaching(cfg, log)
	if err != nil {
		return nil, err
	}

	if len(cfg.Templates) == 0 {
		log.Warn("no templates configured; nothing will resolve")
	}

	entries := make(map[string]templateEntry, len(cfg.Templates))
	for name, tpl := range cfg.Templates {
		if tpl.URL == "" {
			log.Warn("no url pattern configured for template", zap.String("template", name))
			continue
		}

		opts := transportOptions(cfg)
		if tpl.Cert != "" && tpl.Key != "" {
			opts.CertFile = tpl.Cert
			opts.KeyFile = tpl.Key
		}
		if tpl.User != "" && tpl.Password != "" {
			opts.User = tpl.User
			opts.Password = tpl.Password
		}
		if tpl.SSLCheck != nil {
			opts.TLSVerify = *tpl.SSLCheck
		}

		client, err := fetch.New(opts)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		entries[name] = templateEntry{pattern: tpl.URL, client: client}
	}

	base.urls = &templateURLs{
		templates: entries,
		delimiter: cfg.Delimiter,
		logger:    log,
	}
	return base, nil
}
