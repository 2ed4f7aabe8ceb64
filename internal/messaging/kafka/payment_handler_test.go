package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

type fakeConfirmer struct {
	err   error
	calls int
	last  domain.PaymentConfirmation
}

func (f *fakeConfirmer) ConfirmPayment(_ context.Context, confirmation domain.PaymentConfirmation) (domain.Order, error) {
	f.calls++
	f.last = confirmation
	if f.err != nil {
		return domain.Order{}, f.err
	}
	return domain.Order{ID: confirmation.OrderID, Paid: true, Status: domain.OrderStatusPaid}, nil
}

func newPaymentHandler(confirmer *fakeConfirmer) *kafka.PaymentHandler {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return kafka.NewPaymentHandler(confirmer, memory.NewProcessedEventsRepository(),
		logger.WithField("component", "payment-handler-test"))
}

func paymentMessage(payload string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic: kafka.TopicPaymentSucceeded,
		Value: []byte(payload),
	}
}

func TestPaymentHandler_ConfirmsPayment(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := newPaymentHandler(confirmer)

	err := handler.Handle(context.Background(), paymentMessage(
		`{"order_id":"order-1","stripe_payment_id":"pi_1","receipt_url":"https://pay.example/r/1"}`))
	require.NoError(t, err)
	require.Equal(t, 1, confirmer.calls)
	require.Equal(t, "order-1", confirmer.last.OrderID)
	require.Equal(t, "pi_1", confirmer.last.StripePaymentID)
	require.Equal(t, "https://pay.example/r/1", confirmer.last.ReceiptURL)
}

func TestPaymentHandler_DeduplicatesByPaymentID(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := newPaymentHandler(confirmer)
	msg := paymentMessage(`{"order_id":"order-1","stripe_payment_id":"pi_1","receipt_url":"https://pay.example/r/1"}`)

	require.NoError(t, handler.Handle(context.Background(), msg))
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 1, confirmer.calls)
}

func TestPaymentHandler_MalformedPayload(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := newPaymentHandler(confirmer)

	err := handler.Handle(context.Background(), paymentMessage(`{not json`))
	require.Error(t, err)
	require.Zero(t, confirmer.calls)
}

func TestPaymentHandler_MissingPaymentID(t *testing.T) {
	confirmer := &fakeConfirmer{}
	handler := newPaymentHandler(confirmer)

	err := handler.Handle(context.Background(), paymentMessage(`{"order_id":"order-1"}`))
	require.NoError(t, err)
	require.Zero(t, confirmer.calls)
}

func TestPaymentHandler_PoisonEventsAreNotRetried(t *testing.T) {
	confirmer := &fakeConfirmer{
		err: domain.NewError(domain.ErrorKindNotFound, "order missing is not found", domain.ErrOrderNotFound),
	}
	handler := newPaymentHandler(confirmer)

	err := handler.Handle(context.Background(), paymentMessage(
		`{"order_id":"missing","stripe_payment_id":"pi_2","receipt_url":"https://pay.example/r/2"}`))
	require.NoError(t, err)
	require.Equal(t, 1, confirmer.calls)
}

func TestPaymentHandler_TransientErrorsAreRetried(t *testing.T) {
	confirmer := &fakeConfirmer{
		err: domain.NewError(domain.ErrorKindPersistence, "tx failed", errors.New("connection reset")),
	}
	handler := newPaymentHandler(confirmer)

	err := handler.Handle(context.Background(), paymentMessage(
		`{"order_id":"order-1","stripe_payment_id":"pi_3","receipt_url":"https://pay.example/r/3"}`))
	require.Error(t, err)
}

func TestPaymentHandler_RedeliveryAfterTransientErrorConfirms(t *testing.T) {
	confirmer := &fakeConfirmer{
		err: domain.NewError(domain.ErrorKindPersistence, "tx failed", errors.New("connection reset")),
	}
	handler := newPaymentHandler(confirmer)
	msg := paymentMessage(`{"order_id":"order-1","stripe_payment_id":"pi_4","receipt_url":"https://pay.example/r/4"}`)

	// Первая доставка падает transient-ошибкой и уходит на retry.
	require.Error(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 1, confirmer.calls)

	// Повторная доставка после восстановления должна дойти до ядра,
	// а не быть отсечённой как дубликат.
	confirmer.err = nil
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 2, confirmer.calls)

	// Успешно обработанное событие дальше дедуплицируется как обычно.
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Equal(t, 2, confirmer.calls)
}
