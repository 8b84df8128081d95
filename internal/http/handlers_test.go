package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imgsource/internal/config"
	"imgsource/internal/resolver"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	sourceRoot := t.TempDir()
	res, err := resolver.New(resolver.Config{
		Strategy:    "fs",
		SourceRoots: []string{sourceRoot},
	}, zap.NewNop())
	require.NoError(t, err)

	handlers := New(&config.Config{}, zap.NewNop(), res)

	router := chi.NewRouter()
	router.Get("/healthz", handlers.HandleHealthz)
	router.Get("/images/*", handlers.HandleImage)
	router.Get("/resolve/*", handlers.HandleResolve)

	server := httptest.NewServer(handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(router)))
	t.Cleanup(server.Close)
	return server, sourceRoot
}

func TestHandleImage(t *testing.T) {
	server, sourceRoot := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "coll"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "coll", "pic.jpg"), []byte("jpeg-bytes"), 0o644))

	resp, err := nethttp.Get(server.URL + "/images/coll/pic.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestHandleImageNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := nethttp.Get(server.URL + "/images/absent.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestHandleResolve(t *testing.T) {
	server, sourceRoot := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "pic.tif"), []byte("x"), 0o644))

	resp, err := nethttp.Get(server.URL + "/resolve/pic.tif")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var body struct {
		Identifier string `json:"identifier"`
		Resolvable bool   `json:"resolvable"`
		Format     string `json:"format"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pic.tif", body.Identifier)
	assert.True(t, body.Resolvable)
	assert.Equal(t, "tif", body.Format)
}

func TestHandleResolveUnresolvable(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := nethttp.Get(server.URL + "/resolve/absent.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var body struct {
		Resolvable bool `json:"resolvable"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Resolvable)
}

func TestHandleHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := nethttp.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}
