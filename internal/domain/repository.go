package domain

import "time"

// ListFilter ограничивает выборку заказов.
type ListFilter struct {
	// Status — опциональный фильтр по статусу; nil означает "все заказы".
	Status *OrderStatus
}

// OrderRepository описывает требования к хранилищу заказов.
// Каждая атомарная запись агрегата выражается одним вызовом, чтобы координатор
// не управлял границами транзакций сам.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями в одной транзакции.
	// Возвращает ErrOrderAlreadyExists, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ с позициями (и чеком, если он есть)
	// или ErrOrderNotFound.
	Get(id string) (Order, error)
	// List возвращает страницу заказов по фильтру. Позиции в списочной
	// выборке не загружаются.
	List(filter ListFilter, offset, limit int) ([]Order, error)
	// Count возвращает количество заказов, подходящих под фильтр.
	Count(filter ListFilter) (int64, error)
	// UpdateStatus безусловно меняет статус и возвращает обновлённый заказ.
	UpdateStatus(id string, status OrderStatus) (Order, error)
	// MarkPaid в одной транзакции выставляет status=paid, paid=true, paid_at,
	// ссылку на списание и создаёт чек. Возвращает обновлённый заказ.
	MarkPaid(confirmation PaymentConfirmation, paidAt time.Time) (Order, error)
}
