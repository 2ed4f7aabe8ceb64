package domain

import (
	"context"
	"time"
)

// ProductCatalog описывает взаимодействие с удалённым валидатором товаров.
type ProductCatalog interface {
	// Validate возвращает записи каталога для каждого существующего id.
	// Запрошенный id, отсутствующий в ответе, трактуется вызывающей стороной
	// как неизвестный товар. Блокирующий вызов, отмена через ctx.
	Validate(ctx context.Context, ids []string) ([]Product, error)
}

// PaymentGateway описывает взаимодействие с платёжным шлюзом.
type PaymentGateway interface {
	// CreateSession создаёт платёжную сессию по позициям заказа.
	// Заказ при этом не мутируется.
	CreateSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// ProcessedEventsRepository хранит идентификаторы уже обработанных входящих
// событий. Используется messaging-слоем для дедупликации at-least-once
// доставок подтверждений оплаты; ядро координатора проверок не делает.
type ProcessedEventsRepository interface {
	// MarkProcessed атомарно регистрирует ключ и возвращает true, если ключ
	// встретился впервые.
	MarkProcessed(key string, at time.Time) (bool, error)
	// Forget снимает регистрацию ключа, чтобы повторная доставка события
	// не была отсечена как дубликат. Отсутствующий ключ не является ошибкой.
	Forget(key string) error
	// DeleteBefore удаляет записи старше before, не более limit за вызов.
	DeleteBefore(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
