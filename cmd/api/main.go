package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"github.com/matCzelusniak/facefusion/internal/infra/cloudflare"
	"github.com/matCzelusniak/facefusion/internal/infra/config"
	"github.com/matCzelusniak/facefusion/internal/infra/facefusion"
	"github.com/matCzelusniak/facefusion/internal/infra/httpapi"
	"github.com/matCzelusniak/facefusion/internal/infra/metrics"
	"github.com/matCzelusniak/facefusion/internal/infra/tracing"
	"github.com/matCzelusniak/facefusion/internal/infra/webhook"
	"github.com/matCzelusniak/facefusion/internal/usecase"
	"github.com/matCzelusniak/facefusion/pkg/logger"
	"go.uber.org/zap"
)

const drainTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting facefusion-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	fatalOnErr(os.MkdirAll(cfg.WorkDir, 0o755), "create work dir")

	// Infra adapters
	images := cloudflare.NewImagesClient(cloudflare.ImagesConfig{
		AccountID: cfg.CloudflareAccountID,
		APIToken:  cfg.CloudflareAPIToken,
	}, log)
	stream := cloudflare.NewStreamClient(cloudflare.StreamConfig{
		AccountID: cfg.CloudflareAccountID,
		APIToken:  cfg.CloudflareAPIToken,
		Retention: time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
	}, log)
	uploader := cloudflare.NewUploader(images, stream)

	engine := facefusion.NewEngine(facefusion.EngineConfig{
		Python:     cfg.EnginePython,
		Entrypoint: cfg.EngineEntrypoint,
		WorkDir:    cfg.EngineDir,
	}, log)

	notifier := webhook.NewNotifier(cfg.CallbackURL, log)

	// Use case
	uc := usecase.NewProcessMediaUseCase(engine, uploader, notifier, log,
		usecase.ProcessMediaConfig{
			Defaults:      entity.DefaultOptions(),
			EngineTimeout: cfg.EngineTimeout,
			KeepWorkDir:   cfg.KeepWorkDir,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartServer(cfg.MetricsPort, log)

	// HTTP API
	handler := httpapi.NewHandler(uc, cfg.WorkDir, log)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.NewRouter(handler),
	}

	go func() {
		log.Info("http server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)

	// Give in-flight jobs a bounded window to finish their notification.
	done := make(chan struct{})
	go func() {
		uc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		log.Warn("shutdown with jobs still in flight")
	}

	log.Info("facefusion-api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
