package nats

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// SubjectCreatePaymentSession — subject удалённого платёжного шлюза.
const SubjectCreatePaymentSession = "create.payment.session"

type paymentSessionItemDTO struct {
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

type createPaymentSessionRequest struct {
	OrderID  string                  `json:"order_id"`
	Currency string                  `json:"currency"`
	Items    []paymentSessionItemDTO `json:"items"`
}

type paymentSessionDTO struct {
	URL        string `json:"url"`
	CancelURL  string `json:"cancel_url"`
	SuccessURL string `json:"success_url"`
}

// PaymentsClient — request/reply клиент платёжного шлюза.
type PaymentsClient struct {
	requester Requester
	logger    *log.Entry
}

// NewPaymentsClient создаёт клиента платёжного шлюза поверх Requester.
func NewPaymentsClient(requester Requester, logger *log.Entry) *PaymentsClient {
	return &PaymentsClient{requester: requester, logger: logger}
}

// CreateSession запрашивает у шлюза платёжную сессию для заказа.
// Дескриптор сессии возвращается без изменений.
func (c *PaymentsClient) CreateSession(ctx context.Context, req domain.PaymentSessionRequest) (domain.PaymentSession, error) {
	items := make([]paymentSessionItemDTO, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, paymentSessionItemDTO{
			Name:       item.Name,
			PriceMinor: item.PriceMinor,
			Quantity:   item.Quantity,
		})
	}

	payload, err := json.Marshal(createPaymentSessionRequest{
		OrderID:  req.OrderID,
		Currency: req.Currency,
		Items:    items,
	})
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("marshal payment session request: %w", err)
	}

	reqCtx, cancel := withRequestTimeout(ctx)
	defer cancel()

	reply, err := c.requester.Request(reqCtx, SubjectCreatePaymentSession, payload)
	if err != nil {
		c.logger.WithError(err).WithField("subject", SubjectCreatePaymentSession).
			Warn("payment gateway request failed")
		return domain.PaymentSession{}, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	var dto paymentSessionDTO
	if err := json.Unmarshal(reply, &dto); err != nil {
		return domain.PaymentSession{}, fmt.Errorf("decode payment session reply: %w", err)
	}

	return domain.PaymentSession{
		URL:        dto.URL,
		CancelURL:  dto.CancelURL,
		SuccessURL: dto.SuccessURL,
	}, nil
}

var _ domain.PaymentGateway = (*PaymentsClient)(nil)
