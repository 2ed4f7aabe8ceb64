package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена платёжным провайдером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus разбирает статус из внешнего представления без учёта регистра.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrStatusInvalid
	}
	return status, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — внешний идентификатор товара в каталоге. Каталог владеет
	// товаром, заказ хранит только ссылку.
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — снапшот цены за единицу на момент создания заказа,
	// в минимальных денежных единицах. Не пересчитывается при изменении
	// цен в каталоге.
	PriceMinor int64
	// Name — отображаемое имя товара из каталога. Транзиентное поле:
	// заполняется обогащением при чтении и никогда не сохраняется.
	Name string
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// OrderReceipt — чек, создаваемый один раз при подтверждении оплаты.
type OrderReceipt struct {
	ID         string
	OrderID    string
	ReceiptURL string
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа, его позиции и чек.
type Order struct {
	ID     string
	Status OrderStatus
	// Paid монотонно переходит false -> true и никогда не сбрасывается.
	Paid bool
	// PaidAt устанавливается ровно один раз, при подтверждении оплаты.
	PaidAt *time.Time
	// TotalAmountMinor — сумма qty * price по позициям на момент создания.
	TotalAmountMinor int64
	// TotalItems — суммарное количество единиц товара в заказе.
	TotalItems int32
	// StripeChargeID — внешняя ссылка на списание, приходит с подтверждением оплаты.
	StripeChargeID string
	Items          []OrderItem
	Receipt        *OrderReceipt
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if o.TotalAmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем агрегаты заказа с суммами по позициям.
	var amount int64
	var qty int32
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrProductIDRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		amount += int64(item.Qty) * item.PriceMinor
		qty += item.Qty
	}
	if amount != o.TotalAmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if qty != o.TotalItems {
		errs = append(errs, ErrTotalItemsMismatch)
	}

	if o.Paid && o.PaidAt == nil {
		errs = append(errs, ErrPaidAtRequired)
	}
	if !o.Paid && o.PaidAt != nil {
		errs = append(errs, ErrPaidAtUnexpected)
	}

	return errs
}

// PageMeta описывает метаданные постраничной выборки.
type PageMeta struct {
	Total    int64
	Page     int
	LastPage int
}

// OrderPage — страница заказов вместе с метаданными выборки.
type OrderPage struct {
	Data []Order
	Meta PageMeta
}
