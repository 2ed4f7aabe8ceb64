package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderPaid    EventType = "order.paid"

	// Входящее событие от платёжного провайдера
	EventTypePaymentSucceeded EventType = "payment.succeeded"
)

// Topics для Kafka
const (
	TopicOrderEvents      = "orders.order.events"
	TopicPaymentSucceeded = "orders.payment.succeeded"
	TopicDeadLetterQueue  = "orders.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType        EventType `json:"event_type"`
	OrderID          string    `json:"order_id"`
	Status           string    `json:"status"`
	TotalAmountMinor int64     `json:"total_amount_minor"`
	TotalItems       int32     `json:"total_items"`
	Timestamp        time.Time `json:"timestamp"`
}

// PaymentSucceededEvent — входящее подтверждение оплаты от провайдера
type PaymentSucceededEvent struct {
	OrderID         string    `json:"order_id"`
	StripePaymentID string    `json:"stripe_payment_id"`
	ReceiptURL      string    `json:"receipt_url"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, status string, amountMinor int64, totalItems int32) *OrderEvent {
	return &OrderEvent{
		EventType:        eventType,
		OrderID:          orderID,
		Status:           status,
		TotalAmountMinor: amountMinor,
		TotalItems:       totalItems,
		Timestamp:        time.Now(),
	}
}

// ParseOrderEvent парсит OrderEvent из сообщения
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return &event, nil
}

// ParsePaymentSucceededEvent парсит подтверждение оплаты из сообщения
func ParsePaymentSucceededEvent(message *sarama.ConsumerMessage) (*PaymentSucceededEvent, error) {
	var event PaymentSucceededEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment succeeded event: %w", err)
	}
	return &event, nil
}
