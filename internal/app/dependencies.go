package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Repo          domain.OrderRepository
	OutboxRepo    domain.OutboxRepository
	ProcessedRepo domain.ProcessedEventsRepository
	Store         *postgres.Store
	Logger        *log.Entry
}

// NewDependencies инициализирует хранилища: PostgreSQL при заданном DSN,
// in-memory режим для локальной разработки и тестов.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Warn("postgres dsn is not set, using in-memory storage")
		return &Dependencies{
			Repo:          memory.NewOrderRepository(),
			OutboxRepo:    memory.NewOutboxRepository(),
			ProcessedRepo: memory.NewProcessedEventsRepository(),
			Logger:        logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Repo:          postgres.NewOrderRepository(store),
		OutboxRepo:    postgres.NewOutboxRepository(store),
		ProcessedRepo: postgres.NewProcessedEventsRepository(store),
		Store:         store,
		Logger:        logger,
	}, nil
}

// Close освобождает ресурсы хранилищ.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
