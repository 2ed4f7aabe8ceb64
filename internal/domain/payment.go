package domain

// PaymentSessionItem — позиция заказа в запросе на платёжную сессию.
type PaymentSessionItem struct {
	Name       string
	PriceMinor int64
	Quantity   int32
}

// PaymentSessionRequest — запрос к платёжному шлюзу на создание сессии оплаты.
type PaymentSessionRequest struct {
	OrderID  string
	Currency string
	Items    []PaymentSessionItem
}

// PaymentSession — непрозрачный дескриптор сессии оплаты от шлюза.
// Возвращается вызывающей стороне без изменений.
type PaymentSession struct {
	// URL — ссылка, по которой клиент завершает оплату.
	URL        string
	CancelURL  string
	SuccessURL string
}

// PaymentConfirmation — входящее подтверждение оплаты от платёжного провайдера.
type PaymentConfirmation struct {
	OrderID         string
	StripePaymentID string
	ReceiptURL      string
}

// Validate проверяет обязательные поля подтверждения.
func (c *PaymentConfirmation) Validate() []error {
	var errs []error

	if c.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if c.StripePaymentID == "" {
		errs = append(errs, ErrPaymentIDRequired)
	}
	if c.ReceiptURL == "" {
		errs = append(errs, ErrReceiptURLRequired)
	}

	return errs
}
