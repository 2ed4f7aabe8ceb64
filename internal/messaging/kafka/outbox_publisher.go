package kafka

import (
	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// eventPublisher публикует сериализованные события.
type eventPublisher interface {
	PublishRaw(topic string, key string, payload []byte) error
}

// OutboxPublisher публикует события outbox в топик заказов.
type OutboxPublisher struct {
	producer eventPublisher
	topic    string
}

// NewOutboxPublisher создаёт адаптер поверх Kafka producer.
func NewOutboxPublisher(producer eventPublisher) *OutboxPublisher {
	return &OutboxPublisher{producer: producer, topic: TopicOrderEvents}
}

// NewDLQPublisher создаёт адаптер для неотправленных событий.
func NewDLQPublisher(producer eventPublisher) *OutboxPublisher {
	return &OutboxPublisher{producer: producer, topic: TopicDeadLetterQueue}
}

// Publish отправляет событие в Kafka. Ключом служит aggregate id, чтобы
// события одного заказа попадали в одну партицию и сохраняли порядок.
func (p *OutboxPublisher) Publish(event domain.OutboxMessage) error {
	return p.producer.PublishRaw(p.topic, event.AggregateID, event.Payload)
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
