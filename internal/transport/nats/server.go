package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// Subjects входящего request/reply API сервиса заказов.
const (
	SubjectCreateOrder          = "createOrder"
	SubjectFindAllOrders        = "findAllOrders"
	SubjectFindOneOrder         = "findOneOrder"
	SubjectChangeOrderStatus    = "changeOrderStatus"
	SubjectCreatePaymentSession = "createPaymentSession"

	queueGroup     = "orders"
	handlerTimeout = 10 * time.Second
)

// OrderService — операции координатора, которые транспорт выставляет наружу.
type OrderService interface {
	Create(ctx context.Context, req orders.CreateOrderRequest) (domain.Order, error)
	FindAll(ctx context.Context, query orders.ListQuery) (domain.OrderPage, error)
	FindOne(ctx context.Context, id string) (domain.Order, error)
	ChangeStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)
	CreatePaymentSession(ctx context.Context, order domain.Order) (domain.PaymentSession, error)
}

// Server подписывает обработчики заказов на NATS subjects.
type Server struct {
	service OrderService
	logger  *log.Entry
	subs    []*nats.Subscription
}

// NewServer создаёт транспортный слой поверх координатора.
func NewServer(service OrderService, logger *log.Entry) *Server {
	return &Server{service: service, logger: logger}
}

// Start подписывает все обработчики в общей queue group, чтобы запросы
// распределялись между репликами сервиса.
func (s *Server) Start(conn *nats.Conn) error {
	handlers := map[string]func(context.Context, []byte) []byte{
		SubjectCreateOrder:          s.handleCreateOrder,
		SubjectFindAllOrders:        s.handleFindAll,
		SubjectFindOneOrder:         s.handleFindOne,
		SubjectChangeOrderStatus:    s.handleChangeStatus,
		SubjectCreatePaymentSession: s.handleCreatePaymentSession,
	}

	for subject, handler := range handlers {
		handler := handler
		sub, err := conn.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()

			reply := handler(ctx, msg.Data)
			if err := msg.Respond(reply); err != nil {
				s.logger.WithError(err).WithField("subject", msg.Subject).
					Warn("failed to send reply")
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	s.logger.WithField("queue", queueGroup).Info("nats handlers subscribed")
	return nil
}

// Stop снимает подписки. Вызывается при graceful shutdown.
func (s *Server) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.WithError(err).Warn("unsubscribe failed")
		}
	}
	s.subs = nil
}

func (s *Server) handleCreateOrder(ctx context.Context, data []byte) []byte {
	var req createOrderRequestDTO
	if err := json.Unmarshal(data, &req); err != nil {
		return s.replyError(SubjectCreateOrder, malformedRequest(err))
	}

	if len(req.Items) == 0 {
		return s.replyError(SubjectCreateOrder,
			domain.NewError(domain.ErrorKindValidation, "order must contain at least one item", domain.ErrItemsRequired))
	}

	items := make([]orders.CreateOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return s.replyError(SubjectCreateOrder,
				domain.NewError(domain.ErrorKindValidation, "product_id is required", domain.ErrProductIDRequired))
		}
		if item.Quantity <= 0 {
			return s.replyError(SubjectCreateOrder,
				domain.NewError(domain.ErrorKindValidation, "item quantity must be positive", domain.ErrItemQtyInvalid))
		}
		items = append(items, orders.CreateOrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	order, err := s.service.Create(ctx, orders.CreateOrderRequest{Items: items})
	if err != nil {
		return s.replyError(SubjectCreateOrder, err)
	}

	return s.replyData(toOrderDTO(order))
}

func (s *Server) handleFindAll(ctx context.Context, data []byte) []byte {
	query := orders.ListQuery{Page: 1, Limit: 10}

	if len(data) > 0 {
		var req findAllRequestDTO
		if err := json.Unmarshal(data, &req); err != nil {
			return s.replyError(SubjectFindAllOrders, malformedRequest(err))
		}
		if req.Page != nil {
			if *req.Page < 1 {
				return s.replyError(SubjectFindAllOrders,
					domain.NewError(domain.ErrorKindValidation, "page must be >= 1", nil))
			}
			query.Page = *req.Page
		}
		if req.Limit != nil {
			if *req.Limit < 1 {
				return s.replyError(SubjectFindAllOrders,
					domain.NewError(domain.ErrorKindValidation, "limit must be >= 1", nil))
			}
			query.Limit = *req.Limit
		}
		if strings.TrimSpace(req.Status) != "" {
			status, err := domain.ParseOrderStatus(req.Status)
			if err != nil {
				return s.replyError(SubjectFindAllOrders,
					domain.NewError(domain.ErrorKindValidation, "unsupported order status", err))
			}
			query.Status = &status
		}
	}

	page, err := s.service.FindAll(ctx, query)
	if err != nil {
		return s.replyError(SubjectFindAllOrders, err)
	}

	return s.replyData(toOrderPageDTO(page))
}

func (s *Server) handleFindOne(ctx context.Context, data []byte) []byte {
	var req findOneRequestDTO
	if err := json.Unmarshal(data, &req); err != nil {
		return s.replyError(SubjectFindOneOrder, malformedRequest(err))
	}
	if strings.TrimSpace(req.ID) == "" {
		return s.replyError(SubjectFindOneOrder,
			domain.NewError(domain.ErrorKindValidation, "order id is required", domain.ErrOrderIDRequired))
	}

	order, err := s.service.FindOne(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return s.replyError(SubjectFindOneOrder, err)
	}

	return s.replyData(toOrderDTO(order))
}

func (s *Server) handleChangeStatus(ctx context.Context, data []byte) []byte {
	var req changeStatusRequestDTO
	if err := json.Unmarshal(data, &req); err != nil {
		return s.replyError(SubjectChangeOrderStatus, malformedRequest(err))
	}
	if strings.TrimSpace(req.ID) == "" {
		return s.replyError(SubjectChangeOrderStatus,
			domain.NewError(domain.ErrorKindValidation, "order id is required", domain.ErrOrderIDRequired))
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return s.replyError(SubjectChangeOrderStatus,
			domain.NewError(domain.ErrorKindValidation, "unsupported order status", err))
	}

	order, err := s.service.ChangeStatus(ctx, strings.TrimSpace(req.ID), status)
	if err != nil {
		return s.replyError(SubjectChangeOrderStatus, err)
	}

	return s.replyData(toOrderDTO(order))
}

func (s *Server) handleCreatePaymentSession(ctx context.Context, data []byte) []byte {
	var req createPaymentSessionRequestDTO
	if err := json.Unmarshal(data, &req); err != nil {
		return s.replyError(SubjectCreatePaymentSession, malformedRequest(err))
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return s.replyError(SubjectCreatePaymentSession,
			domain.NewError(domain.ErrorKindValidation, "order id is required", domain.ErrOrderIDRequired))
	}

	order, err := s.service.FindOne(ctx, strings.TrimSpace(req.OrderID))
	if err != nil {
		return s.replyError(SubjectCreatePaymentSession, err)
	}

	session, err := s.service.CreatePaymentSession(ctx, order)
	if err != nil {
		return s.replyError(SubjectCreatePaymentSession, err)
	}

	return s.replyData(paymentSessionDTO{
		URL:        session.URL,
		CancelURL:  session.CancelURL,
		SuccessURL: session.SuccessURL,
	})
}

func (s *Server) replyData(data any) []byte {
	payload, err := json.Marshal(envelopeDTO{Data: data})
	if err != nil {
		s.logger.WithError(err).Error("failed to marshal reply")
		return []byte(`{"error":{"kind":"persistence","message":"internal error"}}`)
	}
	return payload
}

func (s *Server) replyError(subject string, err error) []byte {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.ErrorKindPersistence
	}

	entry := s.logger.WithField("subject", subject).WithField("kind", string(kind))
	switch kind {
	case domain.ErrorKindValidation, domain.ErrorKindNotFound:
		entry.WithError(err).Debug("request rejected")
	default:
		entry.WithError(err).Error("request failed")
	}

	payload, marshalErr := json.Marshal(envelopeDTO{
		Error: &errorDTO{Kind: string(kind), Message: err.Error()},
	})
	if marshalErr != nil {
		return []byte(`{"error":{"kind":"persistence","message":"internal error"}}`)
	}
	return payload
}

func malformedRequest(err error) error {
	return domain.NewError(domain.ErrorKindValidation, "malformed request payload", err)
}
