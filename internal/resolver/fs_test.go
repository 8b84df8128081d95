package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestSimpleFSSearchesRootsInOrder(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootB, "img.jp2"), []byte("b-bytes"))

	r, err := NewSimpleFS(Config{SourceRoots: []string{rootA, rootB}}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, r.IsResolvable(context.Background(), "img.jp2"))

	result, err := r.Resolve(context.Background(), "img.jp2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rootB, "img.jp2"), result.Path)
	assert.Equal(t, "jp2", result.Format)
}

func TestSimpleFSFirstRootWins(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootA, "img.tif"), []byte("a"))
	writeFile(t, filepath.Join(rootB, "img.tif"), []byte("b"))

	r, err := NewSimpleFS(Config{SourceRoots: []string{rootA, rootB}}, zap.NewNop())
	require.NoError(t, err)

	result, err := r.Resolve(context.Background(), "img.tif")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rootA, "img.tif"), result.Path)
}

func TestSimpleFSNotFound(t *testing.T) {
	r, err := NewSimpleFS(Config{SourceRoots: []string{t.TempDir()}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, r.IsResolvable(context.Background(), "missing.jp2"))

	_, err = r.Resolve(context.Background(), "missing.jp2")
	require.Error(t, err)

	var resErr *Error
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, KindNotFound, resErr.Kind)
	assert.Contains(t, resErr.PublicMessage, "missing.jp2")
}

func TestSimpleFSDecodesIdentifier(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "img.jpg"), []byte("x"))

	r, err := NewSimpleFS(Config{SourceRoots: []string{root}}, zap.NewNop())
	require.NoError(t, err)

	result, err := r.Resolve(context.Background(), "dir%2Fimg.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "dir", "img.jpg"), result.Path)
}

func TestSimpleFSSingleRootFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "img.png"), []byte("x"))

	r, err := NewSimpleFS(Config{SourceRoot: root}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, r.IsResolvable(context.Background(), "img.png"))
}

func TestSimpleFSRequiresRoots(t *testing.T) {
	_, err := NewSimpleFS(Config{}, zap.NewNop())
	require.Error(t, err)
}
