package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func TestOutboxRepository_EnqueuePull(t *testing.T) {
	repo := memory.NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("unexpected pending: %+v", pending)
	}
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	repo := memory.NewOutboxRepository()
	msg, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound, got %v", err)
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %d", stats.PendingCount)
	}

	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestProcessedEvents_MarkProcessed(t *testing.T) {
	repo := memory.NewProcessedEventsRepository()
	now := time.Now().UTC()

	first, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !first {
		t.Fatal("expected first delivery")
	}

	again, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if again {
		t.Fatal("expected duplicate delivery to be reported")
	}
}

func TestProcessedEvents_ForgetReleasesKey(t *testing.T) {
	repo := memory.NewProcessedEventsRepository()
	now := time.Now().UTC()

	if _, err := repo.MarkProcessed("pi_1", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.Forget("pi_1"); err != nil {
		t.Fatalf("forget failed: %v", err)
	}

	// Освобождённый ключ снова регистрируется как первый.
	first, err := repo.MarkProcessed("pi_1", now)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !first {
		t.Fatal("expected key to be reusable after forget")
	}

	// Forget неизвестного ключа не является ошибкой.
	if err := repo.Forget("pi_unknown"); err != nil {
		t.Fatalf("forget of unknown key failed: %v", err)
	}
}

func TestProcessedEvents_DeleteBefore(t *testing.T) {
	repo := memory.NewProcessedEventsRepository()
	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	if _, err := repo.MarkProcessed("pi_old", old); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if _, err := repo.MarkProcessed("pi_fresh", fresh); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	deleted, err := repo.DeleteBefore(fresh.Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	// Свежий ключ остаётся зарегистрированным.
	first, err := repo.MarkProcessed("pi_fresh", fresh)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if first {
		t.Fatal("fresh key must survive cleanup")
	}
}
