package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// SimpleFS resolves identifiers directly against an ordered list of
// source root directories. No caching: the first root that contains the
// identifier's path wins.
type SimpleFS struct {
	roots  []string
	logger *zap.Logger
}

func NewSimpleFS(cfg Config, log *zap.Logger) (*SimpleFS, error) {
	roots := cfg.SourceRoots
	if len(roots) == 0 && cfg.SourceRoot != "" {
		roots = []string{cfg.SourceRoot}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("fs resolver: missing required setting source_roots")
	}
	return &SimpleFS{roots: roots, logger: log}, nil
}

func (r *SimpleFS) sourcePath(ident string) string {
	ident = decodeIdent(ident)
	for _, root := range r.roots {
		fp := filepath.Join(root, ident)
		if _, err := os.Stat(fp); err == nil {
			return fp
		}
	}
	return ""
}

func (r *SimpleFS) IsResolvable(_ context.Context, ident string) bool {
	return r.sourcePath(ident) != ""
}

func (r *SimpleFS) Resolve(_ context.Context, ident string) (Result, error) {
	fp := r.sourcePath(ident)
	if fp == "" {
		r.logger.Warn("source image not found", zap.String("identifier", ident))
		return Result{}, errNotFound(ident)
	}
	r.logger.Debug("resolved source image", zap.String("identifier", ident), zap.String("path", fp))

	format, err := FormatFromIdent(ident)
	if err != nil {
		return Result{}, err
	}
	return Result{Path: fp, Format: format}, nil
}
