package nats

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type createOrderItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type createOrderRequestDTO struct {
	Items []createOrderItemDTO `json:"items"`
}

// Page и Limit — указатели, чтобы отличать отсутствующее поле (берётся
// значение по умолчанию) от явно переданного некорректного.
type findAllRequestDTO struct {
	Status string `json:"status,omitempty"`
	Page   *int   `json:"page"`
	Limit  *int   `json:"limit"`
}

type findOneRequestDTO struct {
	ID string `json:"id"`
}

type changeStatusRequestDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createPaymentSessionRequestDTO struct {
	OrderID string `json:"order_id"`
}

type orderItemDTO struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Qty        int32     `json:"qty"`
	PriceMinor int64     `json:"price_minor"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type orderReceiptDTO struct {
	ID         string    `json:"id"`
	ReceiptURL string    `json:"receipt_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type orderDTO struct {
	ID               string           `json:"id"`
	Status           string           `json:"status"`
	Paid             bool             `json:"paid"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	TotalAmountMinor int64            `json:"total_amount_minor"`
	TotalItems       int32            `json:"total_items"`
	StripeChargeID   string           `json:"stripe_charge_id,omitempty"`
	Items            []orderItemDTO   `json:"items,omitempty"`
	Receipt          *orderReceiptDTO `json:"receipt,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type pageMetaDTO struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"last_page"`
}

type orderPageDTO struct {
	Data []orderDTO  `json:"data"`
	Meta pageMetaDTO `json:"meta"`
}

type paymentSessionDTO struct {
	URL        string `json:"url"`
	CancelURL  string `json:"cancel_url"`
	SuccessURL string `json:"success_url"`
}

type errorDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type envelopeDTO struct {
	Data  any       `json:"data,omitempty"`
	Error *errorDTO `json:"error,omitempty"`
}

func toOrderDTO(order domain.Order) orderDTO {
	dto := orderDTO{
		ID:               order.ID,
		Status:           string(order.Status),
		Paid:             order.Paid,
		PaidAt:           order.PaidAt,
		TotalAmountMinor: order.TotalAmountMinor,
		TotalItems:       order.TotalItems,
		StripeChargeID:   order.StripeChargeID,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}

	if len(order.Items) > 0 {
		dto.Items = make([]orderItemDTO, 0, len(order.Items))
		for _, item := range order.Items {
			dto.Items = append(dto.Items, orderItemDTO{
				ID:         item.ID,
				ProductID:  item.ProductID,
				Qty:        item.Qty,
				PriceMinor: item.PriceMinor,
				Name:       item.Name,
				CreatedAt:  item.CreatedAt,
			})
		}
	}

	if order.Receipt != nil {
		dto.Receipt = &orderReceiptDTO{
			ID:         order.Receipt.ID,
			ReceiptURL: order.Receipt.ReceiptURL,
			CreatedAt:  order.Receipt.CreatedAt,
		}
	}

	return dto
}

func toOrderPageDTO(page domain.OrderPage) orderPageDTO {
	data := make([]orderDTO, 0, len(page.Data))
	for _, order := range page.Data {
		data = append(data, toOrderDTO(order))
	}
	return orderPageDTO{
		Data: data,
		Meta: pageMetaDTO{
			Total:    page.Meta.Total,
			Page:     page.Meta.Page,
			LastPage: page.Meta.LastPage,
		},
	}
}
