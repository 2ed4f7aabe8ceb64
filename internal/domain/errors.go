package domain

import "errors"

var (
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если снапшот цены позиции отрицательный.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total_amount does not match items sum")
	// Ошибка несоответствия количества товаров и сумм позиций.
	ErrTotalItemsMismatch = errors.New("order total_items does not match items sum")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка неподдерживаемого статуса заказа.
	ErrStatusInvalid = errors.New("order status is invalid")
	// Ошибка отсутствующей ссылки на чек в подтверждении оплаты.
	ErrReceiptURLRequired = errors.New("receipt_url is required")
	// Ошибка отсутствующего идентификатора платежа в подтверждении оплаты.
	ErrPaymentIDRequired = errors.New("stripe_payment_id is required")
	// ErrPaidAtRequired — оплаченный заказ обязан иметь отметку времени оплаты.
	ErrPaidAtRequired = errors.New("paid order must have paid_at")
	// ErrPaidAtUnexpected — у неоплаченного заказа не может быть paid_at.
	ErrPaidAtUnexpected = errors.New("unpaid order must not have paid_at")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists сигнализирует о конфликте идентификаторов при создании.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrProductUnknown — каталог не знает хотя бы один из запрошенных товаров.
	ErrProductUnknown = errors.New("some products were not found in catalog")
	// ErrUpstreamUnavailable — удалённый каталог или платёжный шлюз недоступен.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrOutboxMessageNotFound — попытка пометить несуществующее сообщение outbox.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// ErrorKind — машиночитаемый класс ошибки, который координатор отдаёт вызывающей стороне.
type ErrorKind string

const (
	// ErrorKindValidation — некорректный запрос или неизвестный товар (аналог 400).
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindNotFound — заказ не найден (аналог 404).
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindUpstream — удалённый сервис недоступен или не ответил вовремя.
	ErrorKindUpstream ErrorKind = "upstream_unavailable"
	// ErrorKindPersistence — ошибка транзакции в хранилище.
	ErrorKindPersistence ErrorKind = "persistence"
)

// Error несёт класс ошибки вместе с человекочитаемым сообщением.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError оборачивает причину в классифицированную ошибку.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает класс ошибки или пустую строку, если ошибка не классифицирована.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
