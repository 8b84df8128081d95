package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imgsource/internal/config"
	"imgsource/internal/resolver"
)

type Handlers struct {
	config   *config.Config
	logger   *zap.Logger
	resolver resolver.Resolver
}

func New(config *config.Config, logger *zap.Logger, res resolver.Resolver) *Handlers {
	return &Handlers{
		config:   config,
		logger:   logger,
		resolver: res,
	}
}

func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		ip := h.extractIP(r)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("ip", ip),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigin := h.config.AllowedOrigin
		if allowedOrigin == "" {
			allowedOrigin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleImage resolves the identifier and streams the local file with
// the format's media type. No decoding happens here; the bytes are
// served exactly as cached.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	ident := identFromRequest(r)
	if ident == "" {
		http.NotFound(w, r)
		return
	}

	result, err := h.resolver.Resolve(r.Context(), ident)
	if err != nil {
		h.respondResolveError(w, ident, err)
		return
	}

	f, err := os.Open(result.Path)
	if err != nil {
		h.logger.Error("failed to open resolved file",
			zap.String("identifier", ident),
			zap.String("path", result.Path),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("failed to stat resolved file", zap.String("path", result.Path), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", resolver.MediaType(result.Format))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// HandleResolve reports resolution metadata without serving the bytes,
// for pipeline introspection.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ident := identFromRequest(r)
	if ident == "" {
		http.NotFound(w, r)
		return
	}

	type resolveResponse struct {
		Identifier string `json:"identifier"`
		Resolvable bool   `json:"resolvable"`
		Path       string `json:"path,omitempty"`
		Format     string `json:"format,omitempty"`
	}

	resp := resolveResponse{Identifier: ident}
	result, err := h.resolver.Resolve(r.Context(), ident)
	if err == nil {
		resp.Resolvable = true
		resp.Path = result.Path
		resp.Format = result.Format
	} else {
		var resErr *resolver.Error
		if !errors.As(err, &resErr) {
			h.logger.Error("resolution failed", zap.String("identifier", ident), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// respondResolveError maps resolution failures to a 404 carrying the
// sanitized public message; anything unclassified is a 500. The detailed
// message only goes to the log.
func (h *Handlers) respondResolveError(w http.ResponseWriter, ident string, err error) {
	var resErr *resolver.Error
	if errors.As(err, &resErr) {
		h.logger.Warn("resolution failed", zap.String("identifier", ident), zap.Error(resErr))
		http.Error(w, resErr.PublicMessage, http.StatusNotFound)
		return
	}
	h.logger.Error("resolution failed", zap.String("identifier", ident), zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// identFromRequest pulls the identifier from the route's wildcard.
// Identifiers may contain slashes and percent-escapes; chi hands back
// the still-encoded tail, which is what the resolver expects.
func identFromRequest(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

// Not for real production use due to potential spoofing
// but it's fine behind a trusted proxy
func (h *Handlers) extractIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip != "" {
		return strings.Split(ip, ":")[0]
	}

	addr := r.RemoteAddr
	if addr != "" {
		return strings.Split(addr, ":")[0]
	}

	return "unknown"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
