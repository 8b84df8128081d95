package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mounted caches images from mounted (typically network) storage on
// local disk. The cache mirrors the identifier's own relative path under
// the cache root, no hashing. Two concurrent callers may both copy the
// same file; the copies are identical, so the last rename winning is
// harmless.
type Mounted struct {
	sourceRoot string
	cacheRoot  string
	logger     *zap.Logger
}

func NewMounted(cfg Config, log *zap.Logger) (*Mounted, error) {
	if cfg.CacheRoot == "" {
		return nil, fmt.Errorf("mounted resolver: missing required setting cache_root")
	}
	if cfg.SourceRoot == "" {
		return nil, fmt.Errorf("mounted resolver: missing required setting source_root")
	}
	return &Mounted{sourceRoot: cfg.SourceRoot, cacheRoot: cfg.CacheRoot, logger: log}, nil
}

func (r *Mounted) sourcePath(ident string) string {
	return filepath.Join(r.sourceRoot, decodeIdent(ident))
}

func (r *Mounted) cachePath(ident string) string {
	return filepath.Join(r.cacheRoot, decodeIdent(ident))
}

func (r *Mounted) IsResolvable(_ context.Context, ident string) bool {
	_, err := os.Stat(r.sourcePath(ident))
	return err == nil
}

func (r *Mounted) Resolve(_ context.Context, ident string) (Result, error) {
	sourceFP := r.sourcePath(ident)
	if _, err := os.Stat(sourceFP); err != nil {
		r.logger.Warn("source image not found",
			zap.String("identifier", ident),
			zap.String("source", sourceFP))
		return Result{}, errNotFound(ident)
	}

	cacheFP := r.cachePath(ident)
	if _, err := os.Stat(cacheFP); err != nil {
		if err := r.copyToCache(sourceFP, cacheFP); err != nil {
			return Result{}, fmt.Errorf("copy %s to cache: %w", ident, err)
		}
		r.logger.Info("copied source image to cache",
			zap.String("source", sourceFP),
			zap.String("cache", cacheFP))
	} else {
		r.logger.Debug("image served from local cache", zap.String("cache", cacheFP))
	}

	format, err := FormatFromIdent(ident)
	if err != nil {
		return Result{}, err
	}
	return Result{Path: cacheFP, Format: format}, nil
}

// copyToCache writes through a temp file in the destination directory so
// readers never observe a partially written cache entry.
func (r *Mounted) copyToCache(sourceFP, cacheFP string) error {
	dir := filepath.Dir(cacheFP)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	src, err := os.Open(sourceFP)
	if err != nil {
		return err
	}
	defer src.Close()

	tmpPath := filepath.Join(dir, ".tmp-"+uuid.New().String())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, cacheFP); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
