package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/cli"
	apphttp "backoffice/internal/http"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/web"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	schemas, err := schema.LoadFS(web.SchemasFS)
	if err != nil {
		logger.Error("Failed to load screen descriptors", log.FieldError, err)
		os.Exit(1)
	}

	result := cli.InitBackend(context.Background(), logger, cfg, true)

	cacheManager := cache.NewManager(logger)
	deps := apphttp.Dependencies{
		Backend: result.Backend,
		Schemas: schemas,
		Ready:   result.Ready,
	}
	if result.ReportCache != nil {
		cacheManager.Register(result.ReportCache)
		cacheManager.StartCleanup(time.Minute)
		deps.CacheEntries = result.ReportCache.Size
	}
	if result.Processor != nil {
		deps.Processor = result.Processor
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		RequestsPerMinute: cfg.RequestsPerMinute,
		ImageSources:      imageSources(cfg.S3EndpointURL),
		Logger:            logger,
	}, deps)

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting backoffice server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// imageSources lets the console show images served by a custom S3 endpoint.
func imageSources(endpoint string) []string {
	if endpoint == "" {
		return []string{"https:"}
	}
	return []string{endpoint}
}
