package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

func TestParsePaymentSucceededEvent(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Value: []byte(`{"order_id":"order-1","stripe_payment_id":"pi_1","receipt_url":"https://pay.example/r/1"}`),
	}

	event, err := ParsePaymentSucceededEvent(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.OrderID != "order-1" || event.StripePaymentID != "pi_1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.ReceiptURL != "https://pay.example/r/1" {
		t.Fatalf("unexpected receipt url: %s", event.ReceiptURL)
	}
}

func TestParsePaymentSucceededEvent_Malformed(t *testing.T) {
	msg := &sarama.ConsumerMessage{Value: []byte(`{broken`)}

	if _, err := ParsePaymentSucceededEvent(msg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewOrderEventRoundTrip(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderPaid, "order-1", "paid", 2500, 3)
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	parsed, err := ParseOrderEvent(&sarama.ConsumerMessage{Value: payload, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.EventType != EventTypeOrderPaid || parsed.OrderID != "order-1" {
		t.Fatalf("unexpected event: %+v", parsed)
	}
	if parsed.TotalAmountMinor != 2500 || parsed.TotalItems != 3 {
		t.Fatalf("unexpected totals: %+v", parsed)
	}
}
