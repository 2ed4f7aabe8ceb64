package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// PaymentConfirmer подтверждает оплату заказа.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, confirmation domain.PaymentConfirmation) (domain.Order, error)
}

// PaymentHandler обрабатывает входящие подтверждения оплаты из Kafka.
// Kafka доставляет at-least-once, поэтому повторные доставки отсекаются
// по идентификатору платежа до вызова ядра.
type PaymentHandler struct {
	confirmer PaymentConfirmer
	processed domain.ProcessedEventsRepository
	logger    *log.Entry
}

// NewPaymentHandler создаёт обработчик подтверждений оплаты.
func NewPaymentHandler(confirmer PaymentConfirmer, processed domain.ProcessedEventsRepository, logger *log.Entry) *PaymentHandler {
	return &PaymentHandler{
		confirmer: confirmer,
		processed: processed,
		logger:    logger,
	}
}

// Handle разбирает событие, дедуплицирует его и подтверждает оплату.
// Возврат ошибки означает retry и, после исчерпания попыток, DLQ.
func (h *PaymentHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := ParsePaymentSucceededEvent(message)
	if err != nil {
		// Нечитаемое событие ретраить бессмысленно, пусть уходит в DLQ.
		return fmt.Errorf("parse payment event: %w", err)
	}

	entry := h.logger.WithFields(log.Fields{
		"order_id":          event.OrderID,
		"stripe_payment_id": event.StripePaymentID,
	})

	if event.StripePaymentID == "" {
		entry.Warn("payment event without payment id, skipping")
		return nil
	}

	first, err := h.processed.MarkProcessed(event.StripePaymentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deduplicate payment event: %w", err)
	}
	if !first {
		entry.Info("duplicate payment event skipped")
		return nil
	}

	_, err = h.confirmer.ConfirmPayment(ctx, domain.PaymentConfirmation{
		OrderID:         event.OrderID,
		StripePaymentID: event.StripePaymentID,
		ReceiptURL:      event.ReceiptURL,
	})
	if err != nil {
		switch domain.KindOf(err) {
		case domain.ErrorKindValidation, domain.ErrorKindNotFound:
			// Poison message: повтор не поможет, ключ остаётся занятым.
			entry.WithError(err).Warn("payment event rejected")
			return nil
		default:
			// Transient-ошибка уходит на retry, поэтому ключ нужно освободить:
			// иначе повторная доставка будет отсечена как дубликат и заказ
			// навсегда останется неоплаченным.
			if forgetErr := h.processed.Forget(event.StripePaymentID); forgetErr != nil {
				entry.WithError(forgetErr).Error("failed to release payment dedup key")
			}
			return fmt.Errorf("confirm payment for order %s: %w", event.OrderID, err)
		}
	}

	entry.Info("payment event processed")
	return nil
}
