package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/your-org/ytmerge/internal/api"
	"github.com/your-org/ytmerge/internal/api/handlers"
	"github.com/your-org/ytmerge/internal/api/ws"
	"github.com/your-org/ytmerge/internal/cache"
	"github.com/your-org/ytmerge/internal/config"
	"github.com/your-org/ytmerge/internal/convert"
	"github.com/your-org/ytmerge/internal/media"
	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/observability"
	"github.com/your-org/ytmerge/internal/queue"
	"github.com/your-org/ytmerge/internal/service"
	"github.com/your-org/ytmerge/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting ytmerge API service", "port", cfg.Server.Port, "resolver", cfg.Resolver.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Object store (required)
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}
	checks := map[string]handlers.Pinger{"minio": minioStore.Ping}

	// Formats cache (optional)
	var formatCache service.FormatCache
	if cfg.Redis.Addr != "" {
		fc, err := storage.NewFormatsCache(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, formats cache disabled", "error", err)
		} else {
			defer fc.Close()
			formatCache = fc
			checks["redis"] = fc.Ping
		}
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	sinks := []service.EventSink{}

	// Conversion ledger (optional)
	var ledger handlers.ConversionLister
	if cfg.Database.Enabled() {
		db, err := storage.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			slog.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("ensure postgres schema", "error", err)
			os.Exit(1)
		}
		ledger = db
		checks["postgres"] = db.Ping
		sinks = append(sinks, service.EventSinkFunc(func(ctx context.Context, ev *models.ConversionEvent) {
			if err := db.RecordConversion(ctx, ev); err != nil {
				slog.Error("record conversion", "key", ev.CacheKey, "error", err)
			}
		}))
	}

	// Event bus (optional). With NATS every replica's hub is fed from the
	// stream; without it the hub only sees local conversions.
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		checks["nats"] = func(context.Context) error { return producer.Ping() }
		sinks = append(sinks, service.EventSinkFunc(func(ctx context.Context, ev *models.ConversionEvent) {
			if err := producer.PublishConversion(ctx, ev); err != nil {
				slog.Error("publish conversion", "key", ev.CacheKey, "error", err)
			}
		}))

		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create conversion consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		err = consumer.ConsumeConversions(ctx, func(_ context.Context, ev models.ConversionEvent) {
			hub.BroadcastConversion(ev)
		})
		if err != nil {
			slog.Warn("start conversion consumer", "error", err)
		}
	} else {
		sinks = append(sinks, service.EventSinkFunc(func(_ context.Context, ev *models.ConversionEvent) {
			hub.BroadcastConversion(*ev)
		}))
	}

	resolver, err := newResolver(cfg.Resolver)
	if err != nil {
		slog.Error("create resolver", "error", err)
		os.Exit(1)
	}

	// Conversion pipeline
	osFs := afero.NewOsFs()
	orch := convert.NewOrchestrator(osFs, cfg.Transcoder.ScratchDir, &convert.FFmpeg{
		Binary:       cfg.Transcoder.FFmpegPath,
		AudioCodec:   cfg.Transcoder.AudioCodec,
		AudioBitrate: cfg.Transcoder.AudioBitrate,
		Timeout:      cfg.Transcoder.Timeout,
	})
	go orch.RunSweeper(ctx, cfg.Transcoder.SweepInterval, cfg.Transcoder.SweepMaxAge)

	// Merges outlive their requests but not the process.
	gateway := cache.NewGateway(ctx, minioStore, osFs)

	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		RateLimit: cfg.RateLimit,
		Resolver:  service.NewResolutionService(resolver, cfg.Resolver.DecipherConcurrency, formatCache),
		Converter: service.NewConversionService(gateway, orch, cfg.MinIO.SignedURLTTL, sinks...),
		Ledger:    ledger,
		Hub:       hub,
		Checks:    checks,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	cancel()
	gateway.Wait()

	slog.Info("API server stopped")
}

func newResolver(cfg config.ResolverConfig) (media.Resolver, error) {
	switch cfg.Backend {
	case "youtube":
		return media.NewYouTubeResolver(&http.Client{Timeout: 30 * time.Second}), nil
	case "ytdlp":
		var tokens media.TokenProvider
		if len(cfg.TokenCommand) > 0 {
			tokens = media.NewCommandTokenProvider(cfg.TokenCommand, cfg.TokenTTL)
		}
		return media.NewYtdlpResolver(cfg.YtdlpPath, tokens), nil
	default:
		return nil, fmt.Errorf("unknown resolver backend %q", cfg.Backend)
	}
}
