package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imgsource/internal/fetch"
)

// Base name of the one published file per cache directory. The detected
// format supplies the extension.
const cacheBaseName = "cache"

// urlSource builds the request URL and picks the transport client for an
// identifier. An empty URL with a nil error means the identifier is
// unroutable; callers report not-found rather than an error.
type urlSource interface {
	requestURL(ident string) (string, *fetch.Client, error)
}

// prefixURLs is the plain URL scheme: passthrough for absolute http(s)
// identifiers when allowed, otherwise prefix + identifier + suffix.
type prefixURLs struct {
	prefix        string
	suffix        string
	uriResolvable bool
	client        *fetch.Client
}

func (p *prefixURLs) requestURL(ident string) (string, *fetch.Client, error) {
	var u string
	if p.uriResolvable && isHTTPURI(ident) {
		u = ident
	} else {
		u = p.prefix + ident + p.suffix
	}
	if !isHTTPURI(u) {
		return "", nil, errBadRequest(ident)
	}
	return u, p.client, nil
}

func isHTTPURI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// HTTPCaching fetches images over HTTP and caches them under a sharded
// hash path. Cache population is race-safe across processes: the body is
// streamed to a private temp file in the target directory and published
// with an atomic rename, so concurrent populators of the same identifier
// produce exactly one canonical file. A lost race costs only the
// discarded duplicate download.
type HTTPCaching struct {
	cacheRoot      string
	defaultFormat  string
	headResolvable bool
	identRegex     *regexp.Regexp
	urls           urlSource
	logger         *zap.Logger
}

func NewHTTPCaching(cfg Config, log *zap.Logger) (*HTTPCaching, error) {
	if cfg.CacheRoot == "" {
		return nil, fmt.Errorf("http resolver: missing required setting cache_root")
	}
	if !cfg.URIResolvable && cfg.SourcePrefix == "" {
		return nil, fmt.Errorf("http resolver: must set either uri_resolvable or source_prefix")
	}

	r := &HTTPCaching{
		cacheRoot:      cfg.CacheRoot,
		defaultFormat:  cfg.DefaultFormat,
		headResolvable: cfg.HeadResolvable,
		logger:         log,
	}

	if cfg.IdentRegex != "" {
		re, err := regexp.Compile(cfg.IdentRegex)
		if err != nil {
			return nil, fmt.Errorf("http resolver: invalid ident_regex: %w", err)
		}
		r.identRegex = re
	}

	client, err := fetch.New(transportOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("http resolver: %w", err)
	}
	r.urls = &prefixURLs{
		prefix:        cfg.SourcePrefix,
		suffix:        cfg.SourceSuffix,
		uriResolvable: cfg.URIResolvable,
		client:        client,
	}

	return r, nil
}

func transportOptions(cfg Config) fetch.Options {
	opts := fetch.DefaultOptions()
	opts.CertFile = cfg.Cert
	opts.KeyFile = cfg.Key
	opts.User = cfg.User
	opts.Password = cfg.Password
	if cfg.SSLCheck != nil {
		opts.TLSVerify = *cfg.SSLCheck
	}
	return opts
}

func (r *HTTPCaching) cacheDirPath(decoded string) string {
	return filepath.Join(r.cacheRoot, cacheKeyPath(decoded))
}

// cachedFile returns the published file in a cache directory, or "" when
// the entry has not been populated yet.
func (r *HTTPCaching) cachedFile(cacheDir string) string {
	matches, err := filepath.Glob(filepath.Join(cacheDir, cacheBaseName+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// IsResolvable checks the identifier against the validation regex, then
// the cache directory on disk, and only then the network (HEAD when
// configured, otherwise a GET closed after the headers). The stat saves
// a network round trip for anything resolved before.
func (r *HTTPCaching) IsResolvable(ctx context.Context, ident string) bool {
	decoded := decodeIdent(ident)

	if r.identRegex != nil && !r.identRegex.MatchString(decoded) {
		return false
	}

	if _, err := os.Stat(r.cacheDirPath(decoded)); err == nil {
		return true
	}

	url, client, err := r.urls.requestURL(decoded)
	if err != nil || url == "" {
		return false
	}

	var resp *http.Response
	if r.headResolvable {
		resp, err = client.Head(ctx, url)
	} else {
		resp, err = client.Get(ctx, url)
	}
	if err != nil {
		r.logger.Debug("source probe failed", zap.String("identifier", ident), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return statusOK(resp.StatusCode)
}

func statusOK(code int) bool {
	return code >= 200 && code < 300
}

// getFormat applies the format precedence: configured default, then the
// transport-derived hint, then the identifier's own extension.
func (r *HTTPCaching) getFormat(ident, potential string) (string, error) {
	if r.defaultFormat != "" {
		return r.defaultFormat, nil
	}
	if potential != "" {
		return potential, nil
	}
	return FormatFromIdent(ident)
}

// cacheFileExtension picks the extension for the canonical cache file
// from the response content type, falling back to the identifier when
// the reported type is missing or unmapped.
func (r *HTTPCaching) cacheFileExtension(ident string, resp *http.Response) (string, error) {
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		if format, ok := formatFromMediaType(contentType); ok {
			return r.getFormat(ident, format)
		}
		r.logger.Warn("origin reported an unrecognized content-type",
			zap.String("content_type", contentType),
			zap.String("identifier", ident))
	}
	return r.getFormat(ident, "")
}

// populateCache downloads the source image into the cache and returns
// the canonical file path. Safe to run concurrently for one identifier:
// directory creation tolerates existing directories, and publication is
// an exists-check plus rename, never an in-place write.
func (r *HTTPCaching) populateCache(ctx context.Context, decoded string) (string, error) {
	url, client, err := r.urls.requestURL(decoded)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", errNotFound(decoded)
	}

	// Created before the fetch so the temp file lands on the same
	// filesystem as the canonical name. MkdirAll treats a directory
	// racing into existence as success.
	cacheDir := r.cacheDirPath(decoded)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory %s: %w", cacheDir, err)
	}

	resp, err := client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch source image for %s: %w", decoded, err)
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		resErr := errSourceNotFound(decoded, url, resp.StatusCode)
		r.logger.Warn(resErr.LogMessage)
		return "", resErr
	}

	extension, err := r.cacheFileExtension(decoded, resp)
	if err != nil {
		return "", err
	}
	localFP := filepath.Join(cacheDir, cacheBaseName+"."+extension)

	tmpPath := filepath.Join(cacheDir, ".tmp-"+uuid.New().String())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", cacheDir, err)
	}

	// An aborted or failed transfer removes the temp file; only a fully
	// written one is eligible for publication.
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("download source image for %s: %w", decoded, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if _, err := os.Stat(localFP); err == nil {
		// A concurrent populator won the race; keep its file.
		os.Remove(tmpPath)
		r.logger.Info("another process downloaded source image", zap.String("cache", localFP))
	} else {
		if err := os.Rename(tmpPath, localFP); err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("publish cache file %s: %w", localFP, err)
		}
		r.logger.Info("copied source image to cache",
			zap.String("url", url),
			zap.String("cache", localFP))
	}

	return localFP, nil
}

func (r *HTTPCaching) Resolve(ctx context.Context, ident string) (Result, error) {
	decoded := decodeIdent(ident)

	cachedFP := r.cachedFile(r.cacheDirPath(decoded))
	if cachedFP == "" {
		fp, err := r.populateCache(ctx, decoded)
		if err != nil {
			return Result{}, err
		}
		cachedFP = fp
	} else {
		r.logger.Debug("image served from local cache", zap.String("cache", cachedFP))
	}

	// The cache filename's extension was fixed from the response
	// content-type at population time, so it is the authoritative
	// format source on the hit path.
	format, err := r.getFormat(cachedFP, "")
	if err != nil {
		return Result{}, err
	}
	return Result{Path: cachedFP, Format: format}, nil
}
