package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	msgWithoutID := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	}
	stored1, err := repo.Enqueue(msgWithoutID)
	if err != nil {
		t.Fatalf("enqueue msg without id: %v", err)
	}
	if stored1.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	msgWithID := domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "order-2",
		EventType:     "order.paid",
		Payload:       []byte(`{"order_id":"order-2"}`),
	}
	stored2, err := repo.Enqueue(msgWithID)
	if err != nil {
		t.Fatalf("enqueue msg with id: %v", err)
	}
	if stored2.ID != msgWithID.ID {
		t.Fatalf("expected fixed id %q, got %q", msgWithID.ID, stored2.ID)
	}

	pending, err := repo.PullPending(0) // default limit path
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats before marks: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("expected pending=2 before marks, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp")
	}

	if err := repo.MarkSent(stored1.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(stored2.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	after, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending after marks: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected no pending after marks, got %d", len(after))
	}
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	if err := repo.MarkSent("missing-outbox"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound on mark sent missing id, got %v", err)
	}
	if err := repo.MarkFailed("missing-outbox"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound on mark failed missing id, got %v", err)
	}
}

func TestProcessedEventsRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProcessedEventsRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)

	first, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if !first {
		t.Fatal("expected first delivery")
	}

	again, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark processed duplicate: %v", err)
	}
	if again {
		t.Fatal("expected duplicate delivery to be reported")
	}

	if _, err := repo.MarkProcessed("  ", now); !errors.Is(err, domain.ErrPaymentIDRequired) {
		t.Fatalf("expected ErrPaymentIDRequired for blank key, got %v", err)
	}

	if err := repo.Forget("pi_1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	released, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark processed after forget: %v", err)
	}
	if !released {
		t.Fatal("expected key to be reusable after forget")
	}
	if err := repo.Forget("pi_unknown"); err != nil {
		t.Fatalf("forget of unknown key: %v", err)
	}
	if err := repo.Forget("  "); !errors.Is(err, domain.ErrPaymentIDRequired) {
		t.Fatalf("expected ErrPaymentIDRequired for blank forget, got %v", err)
	}

	old := now.Add(-48 * time.Hour)
	if _, err := repo.MarkProcessed("pi_old", old); err != nil {
		t.Fatalf("mark old processed: %v", err)
	}

	deleted, err := repo.DeleteBefore(now.Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	// Свежий ключ остаётся зарегистрированным.
	stillThere, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark processed after cleanup: %v", err)
	}
	if stillThere {
		t.Fatal("fresh key must survive cleanup")
	}
}
