package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/completion"
	"github.com/your-org/encodeflow/internal/httpx"
	"github.com/your-org/encodeflow/internal/ingest"
	"github.com/your-org/encodeflow/internal/media"
	"github.com/your-org/encodeflow/internal/metrics"
	"github.com/your-org/encodeflow/pkg/config"
	"github.com/your-org/encodeflow/pkg/kafka"
	"github.com/your-org/encodeflow/pkg/logger"
	"github.com/your-org/encodeflow/pkg/storage/objectstore"
	"github.com/your-org/encodeflow/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Attributes:     parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.LifecycleTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  cfg.Kafka.Retries,
	})

	store, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}

	mediaClient := media.NewRESTClient(media.Config{
		TenantID:           cfg.Media.TenantID,
		LoginEndpoint:      cfg.Media.LoginEndpoint,
		ManagementEndpoint: cfg.Media.ManagementEndpoint,
		ClientID:           cfg.Media.ClientID,
		ClientSecret:       cfg.Media.ClientSecret,
		SubscriptionID:     cfg.Media.SubscriptionID,
		ResourceGroup:      cfg.Media.ResourceGroup,
		AccountName:        cfg.Media.AccountName,
		APIVersion:         cfg.Media.APIVersion,
	}, logr)

	ingestService := ingest.NewService(ingest.Params{
		Media:           mediaClient,
		Store:           store,
		Producer:        producer,
		Logger:          logr,
		TransformName:   cfg.Media.TransformName,
		UploadURLExpiry: cfg.Media.UploadURLExpiry,
	})
	completionService := completion.NewService(completion.Params{
		Media:      mediaClient,
		Producer:   producer,
		Logger:     logr,
		PolicyName: cfg.Media.StreamingPolicyName,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(2 * time.Minute))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	ingest.NewHTTPHandler(ingestService, logr, cfg.Upload.MaxSizeBytes, cfg.Upload.MultipartMemBytes).Register(router)
	completion.NewHTTPHandler(completionService, logr).Register(router)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	metricsServer := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logr.Error("metrics server shutdown failed", zap.Error(err))
		}
		if err := producer.Close(shutdownCtx); err != nil {
			logr.Error("producer shutdown failed", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			logr.Error("object store shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("bridge starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("metrics_addr", cfg.Metrics.Addr),
		zap.String("account", cfg.Media.AccountName))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func parseResourceAttributes(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	attrs := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
