package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// processedEventsInMemory хранит ключи уже обработанных входящих событий.
type processedEventsInMemory struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewProcessedEventsRepository создаёт in-memory реализацию дедупликации.
func NewProcessedEventsRepository() domain.ProcessedEventsRepository {
	return &processedEventsInMemory{seen: make(map[string]time.Time)}
}

// MarkProcessed регистрирует ключ и возвращает true при первой встрече.
func (r *processedEventsInMemory) MarkProcessed(key string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = at
	return true, nil
}

// Forget снимает регистрацию ключа. Отсутствующий ключ не является ошибкой.
func (r *processedEventsInMemory) Forget(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.seen, key)
	return nil
}

// DeleteBefore удаляет ключи старше before, не более limit за вызов.
func (r *processedEventsInMemory) DeleteBefore(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for key, at := range r.seen {
		if limit > 0 && deleted >= limit {
			break
		}
		if at.Before(before) {
			delete(r.seen, key)
			deleted++
		}
	}
	return deleted, nil
}

var _ domain.ProcessedEventsRepository = (*processedEventsInMemory)(nil)
