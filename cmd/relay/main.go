package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sapliy/status-relay/internal/config"
	"github.com/sapliy/status-relay/internal/notification"
	"github.com/sapliy/status-relay/pkg/messaging"
	"github.com/sapliy/status-relay/pkg/monitoring"
	"github.com/sapliy/status-relay/pkg/observability"
	"github.com/sapliy/status-relay/pkg/secrets"
)

const serviceVersion = "0.1.0"

func setupRoutes(h *RelayHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ai-process-request", h.ProcessRequest).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	return r
}

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file (or RELAY_CONFIG)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		observability.NewLogger(serviceName).Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLoggerWithOptions(serviceName, os.Stdout, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Resend.APIKey == "" && cfg.Resend.APIKeySecretID != "" {
		sm, err := secrets.NewSecretsManagerClient(ctx)
		if err != nil {
			logger.Error("Failed to create secrets manager client", "error", err)
			os.Exit(1)
		}
		cfg.Resend.APIKey, err = secrets.ResolveAPIKey(ctx, sm, cfg.Resend.APIKey, cfg.Resend.APIKeySecretID)
		if err != nil {
			logger.Error("Failed to resolve Resend API key", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(ctx, observability.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.OTel.Endpoint,
		Environment:    cfg.OTel.Environment,
	})
	if err != nil {
		logger.Warn("Failed to init tracer", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	emailService, err := notification.NewEmailService(notification.EmailConfig{
		APIKey:       cfg.Resend.APIKey,
		From:         cfg.Resend.From,
		ContactEmail: cfg.Resend.ContactEmail,
		BaseURL:      cfg.Resend.BaseURL,
	})
	if err != nil {
		logger.Error("Failed to create email service", "error", err)
		os.Exit(1)
	}
	if cfg.Resend.ContactEmail != "" {
		logger.Warn("Development redirect enabled, all emails go to the contact address",
			"contact_email", cfg.Resend.ContactEmail)
	}

	var opts []notification.ServiceOption

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, continuing without deduplication", "addr", cfg.Redis.Addr, "error", err)
		} else {
			opts = append(opts, notification.WithDeduper(notification.NewRedisDeduper(rdb, cfg.Redis.TTL)))
			logger.Info("Redis deduplication enabled", "addr", cfg.Redis.Addr)
		}
	}

	if brokers := messaging.SplitBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		producer := messaging.NewKafkaProducer(brokers, cfg.Kafka.Topic)
		defer producer.Close()
		opts = append(opts, notification.WithEventPublisher(producer))
		logger.Info("Delivery events enabled", "brokers", brokers, "topic", cfg.Kafka.Topic)
	}

	service := notification.NewService(emailService, logger, opts...)
	dispatcher := notification.NewDispatcher(service, logger, notification.DispatcherConfig{
		Workers:     cfg.Dispatcher.Workers,
		QueueSize:   cfg.Dispatcher.QueueSize,
		SendTimeout: cfg.Dispatcher.SendTimeout,
	})
	dispatcher.Start()

	amqpStatus := func() string { return "disabled" }
	consumerDone := make(chan struct{})
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	if cfg.RabbitMQ.URL != "" {
		rmqConfig := messaging.DefaultConfig(cfg.RabbitMQ.URL)
		rmqConfig.Logger = logger.Logger
		rmq, err := messaging.NewRabbitMQClient(rmqConfig)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer rmq.Close()

		if _, err := rmq.DeclareQueue(cfg.RabbitMQ.Queue); err != nil {
			logger.Error("Failed to declare queue", "queue", cfg.RabbitMQ.Queue, "error", err)
			os.Exit(1)
		}

		amqpStatus = func() string { return strconv.FormatBool(rmq.IsHealthy()) }
		consumer := notification.NewQueueConsumer(dispatcher, logger)
		go func() {
			defer close(consumerDone)
			if err := rmq.ConsumeWithContext(consumerCtx, cfg.RabbitMQ.Queue, consumer.Handle); err != nil {
				logger.Error("Queue consumer stopped", "error", err)
			}
		}()
		logger.Info("Queue ingestion enabled", "queue", cfg.RabbitMQ.Queue)
	} else {
		close(consumerDone)
	}

	handler := NewRelayHandler(dispatcher, logger, amqpStatus)
	router := setupRoutes(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           otelhttp.NewHandler(router, "relay-request"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := monitoring.StartMetricsServer(cfg.Server.MetricsAddr)

	go func() {
		logger.Info("Status relay starting", "port", cfg.Server.Port, "from", emailService.From())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down status relay...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	cancelConsumer()
	<-consumerDone

	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Error("Dispatcher shutdown error", "error", err)
	}

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown error", "error", err)
	}

	logger.Info("Status relay stopped")
}
