package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type processedEventsRepository struct {
	db *sql.DB
}

// NewProcessedEventsRepository создаёт PostgreSQL-реализацию ProcessedEventsRepository.
func NewProcessedEventsRepository(store *Store) domain.ProcessedEventsRepository {
	return &processedEventsRepository{db: store.DB()}
}

// MarkProcessed регистрирует ключ события. Конфликт по первичному ключу
// означает повторную доставку, в этом случае возвращается false.
func (r *processedEventsRepository) MarkProcessed(key string, at time.Time) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, domain.ErrPaymentIDRequired
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_events (event_key, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (event_key) DO NOTHING
	`, key, at)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("processed events rows affected: %w", err)
	}

	return affected > 0, nil
}

// Forget снимает регистрацию ключа, чтобы повторная доставка события прошла
// дедупликацию заново. Отсутствующий ключ не является ошибкой.
func (r *processedEventsRepository) Forget(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrPaymentIDRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM processed_events
		WHERE event_key = $1
	`, key); err != nil {
		return fmt.Errorf("forget processed event: %w", err)
	}

	return nil
}

func (r *processedEventsRepository) DeleteBefore(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	if limit > 0 {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM processed_events
			WHERE event_key IN (
				SELECT event_key
				FROM processed_events
				WHERE processed_at < $1
				ORDER BY processed_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM processed_events
			WHERE processed_at < $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete processed events: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("processed events rows affected: %w", err)
	}

	return int(affected), nil
}

var _ domain.ProcessedEventsRepository = (*processedEventsRepository)(nil)
