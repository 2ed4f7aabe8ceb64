package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	natsclient "github.com/vladislavdragonenkov/orders/internal/messaging/nats"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/dedup"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/service/outbox"
	transport "github.com/vladislavdragonenkov/orders/internal/transport/nats"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const paymentConsumerMaxRetries = 3

// Run собирает зависимости и держит сервис запущенным до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	orderMetrics := metrics.NewOrderMetrics()

	client, err := natsclient.Connect(cfg.NATSURL, logger.WithField("component", "nats"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer client.Close()

	catalogClient := natsclient.NewCatalogClient(client.Requester(), logger.WithField("component", "catalog_client"))
	paymentsClient := natsclient.NewPaymentsClient(client.Requester(), logger.WithField("component", "payments_client"))

	coordinator := orders.NewCoordinator(
		deps.Repo,
		catalogClient,
		paymentsClient,
		logger.WithField("component", "orders"),
		orders.WithOutbox(deps.OutboxRepo),
		orders.WithMetrics(orderMetrics),
	)

	server := transport.NewServer(coordinator, logger.WithField("component", "transport"))
	if err := server.Start(client.Conn()); err != nil {
		return fmt.Errorf("start nats server: %w", err)
	}
	defer server.Stop()
	logger.WithField("url", cfg.NATSURL).Info("nats api started")

	// Kafka опционален: без брокеров события остаются в outbox,
	// а подтверждения оплаты не обрабатываются.
	var kafkaProducer *kafka.Producer
	var paymentConsumer *kafka.Consumer

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

			outboxWorker := outbox.NewWorker(
				deps.OutboxRepo,
				kafka.NewOutboxPublisher(kafkaProducer),
				outbox.WithLogger(logger.WithField("component", "outbox_worker")),
				outbox.WithDLQPublisher(kafka.NewDLQPublisher(kafkaProducer)),
			)
			go outboxWorker.Run(ctx)

			paymentHandler := kafka.NewPaymentHandler(
				coordinator,
				deps.ProcessedRepo,
				logger.WithField("component", "payment_handler"),
			)
			consumer, err := kafka.NewConsumerWithDLQ(
				cfg.KafkaBrokers,
				cfg.KafkaGroupID,
				[]string{kafka.TopicPaymentSucceeded},
				paymentHandler.Handle,
				kafkaProducer,
				paymentConsumerMaxRetries,
			)
			if err != nil {
				logger.WithError(err).Warn("failed to create payment consumer, payment confirmations disabled")
			} else {
				paymentConsumer = consumer
				go func() {
					if err := consumer.Start(ctx); err != nil {
						logger.WithError(err).Error("payment consumer stopped with error")
					}
				}()
				logger.WithField("topic", kafka.TopicPaymentSucceeded).Info("payment consumer started")
			}

			cleanupWorker := dedup.NewCleanupWorker(
				deps.ProcessedRepo,
				dedup.WithLogger(logger.WithField("component", "dedup_cleanup")),
			)
			go cleanupWorker.Run(ctx)
		}
	} else {
		logger.Warn("kafka brokers are not set, order events and payment confirmations disabled")
	}

	healthHandler := healthcheck.NewHandler(version.Get().Version)
	healthHandler.RegisterChecker("nats", healthcheck.NewSimpleChecker("nats", func() error {
		if !client.Conn().IsConnected() {
			return errors.New("nats connection is down")
		}
		return nil
	}))
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			return deps.Store.Ping(context.Background())
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем сервис")

	server.Stop()
	if paymentConsumer != nil {
		if err := paymentConsumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop payment consumer")
		}
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			logger.Info("kafka producer closed")
		}
	}
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик метрик и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
