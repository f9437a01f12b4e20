package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/discoveryflow/internal/audit"
	"github.com/your-org/discoveryflow/internal/intake"
	"github.com/your-org/discoveryflow/pkg/config"
	"github.com/your-org/discoveryflow/pkg/kafka"
	"github.com/your-org/discoveryflow/pkg/logger"
	"github.com/your-org/discoveryflow/pkg/mediaprobe"
	"github.com/your-org/discoveryflow/pkg/speech"
	"github.com/your-org/discoveryflow/pkg/storage/objectstore"
	"github.com/your-org/discoveryflow/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

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
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	store, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ProcessedTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  cfg.Kafka.Retries,
	})

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.NotificationsTopic,
		GroupID:  cfg.Kafka.NotificationsGroup,
		MinBytes: cfg.Kafka.FetchMinBytes,
		MaxBytes: cfg.Kafka.FetchMaxBytes,
		MaxWait:  cfg.Kafka.FetchMaxWait,
	})

	metrics := intake.NewPromMetrics("discoveryflow")

	auditLog := audit.New(store, audit.Config{
		Bucket:         cfg.Storage.OutputBucket,
		ObjectKey:      cfg.Audit.ObjectKey,
		MaxAttempts:    cfg.Audit.MaxAttempts,
		InitialBackoff: cfg.Audit.InitialBackoff,
		OnConflict:     metrics.IncAuditConflict,
	}, logr)

	prober := mediaprobe.New(cfg.Probe.Binary, cfg.Probe.Timeout)

	recognizer := speech.NewClient(speech.Config{
		Endpoint:   cfg.Speech.Endpoint,
		Recognizer: cfg.Speech.Recognizer,
		Language:   cfg.Speech.Language,
		Model:      cfg.Speech.Model,
		Timeout:    cfg.Speech.Timeout,
	})

	service := intake.NewService(intake.Params{
		Store:     store,
		Policy:    intake.NewPolicy(store, auditLog, logr),
		Validator: intake.NewValidator(prober),
		Transcriber: intake.NewTranscriber(intake.TranscriberParams{
			Recognizer:   recognizer,
			Store:        store,
			Audit:        auditLog,
			Metrics:      metrics,
			Logger:       logr,
			OutputBucket: cfg.Storage.OutputBucket,
			Timeout:      cfg.Speech.Timeout,
		}),
		Audit:     auditLog,
		Publisher: producer,
		Metrics:   metrics,
		Logger:    logr,
	})

	handler := intake.NewHTTPHandler(service, logr)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	metricsServer := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logr.Info("metrics listener starting", zap.String("addr", cfg.Metrics.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("metrics listener failed", zap.Error(err))
		}
	}()

	go func() {
		logr.Info("consuming storage notifications",
			zap.String("topic", cfg.Kafka.NotificationsTopic),
			zap.String("group", cfg.Kafka.NotificationsGroup),
		)
		err := consumer.Run(ctx, func(ctx context.Context, value []byte) error {
			ev, err := intake.ParseEvent(value)
			if err != nil {
				logr.Warn("dropping malformed notification", zap.Error(err))
				return nil
			}
			service.HandleEvent(ctx, ev)
			return nil
		})
		if err != nil {
			logr.Error("notification consumer stopped", zap.Error(err))
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
		if err := consumer.Close(); err != nil {
			logr.Error("consumer close failed", zap.Error(err))
		}
		if err := producer.Close(shutdownCtx); err != nil {
			logr.Error("producer close failed", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			logr.Error("object store close failed", zap.Error(err))
		}
	}()

	logr.Info("intake service starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func parseResourceAttributes(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	attrs := map[string]string{}
	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
