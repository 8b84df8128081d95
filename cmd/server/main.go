package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"imgsource/internal/config"
	httphandlers "imgsource/internal/http"
	"imgsource/internal/logger"
	"imgsource/internal/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting imgsource server",
		zap.Int("port", cfg.Port),
		zap.String("strategy", cfg.Resolver.Strategy),
	)

	res, err := resolver.New(cfg.Resolver, log)
	if err != nil {
		log.Fatal("failed to initialize resolver", zap.Error(err))
	}

	handlers := httphandlers.New(cfg, log, res)

	router := chi.NewRouter()
	router.Get("/healthz", handlers.HandleHealthz)
	router.Get("/images/*", handlers.HandleImage)
	router.Get("/resolve/*", handlers.HandleResolve)

	handler := handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(router))

	if cfg.PrewarmFile != "" {
		go prewarm(context.Background(), cfg.PrewarmFile, cfg.PrewarmWorkers, res, log)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// prewarm resolves a newline-separated list of identifiers through a
// bounded worker pool so the cache is hot before traffic arrives.
// Individual failures are logged and skipped.
func prewarm(ctx context.Context, path string, workers int, res resolver.Resolver, log *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("prewarm list not readable", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ident := strings.TrimSpace(scanner.Text())
		if ident == "" || strings.HasPrefix(ident, "#") {
			continue
		}
		count++

		g.Go(func() error {
			if _, err := res.Resolve(ctx, ident); err != nil {
				log.Debug("prewarm resolve failed", zap.String("identifier", ident), zap.Error(err))
			}
			return nil
		})
	}
	if err := scanner.Err(); err != nil {
		log.Warn("prewarm list read failed", zap.String("path", path), zap.Error(err))
	}

	g.Wait()
	log.Info("prewarm completed", zap.Int("identifiers", count))
}
