package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

const (
	// Currency платёжных сессий. Шлюз принимает только usd.
	sessionCurrency = "usd"

	upstreamCatalog = "catalog"
	upstreamGateway = "payment-gateway"

	resultOK    = "ok"
	resultError = "error"

	aggregateTypeOrder = "order"

	eventTypeOrderCreated = "order.created"
	eventTypeOrderPaid    = "order.paid"
)

// CreateOrderItem — одна позиция в запросе на создание заказа.
type CreateOrderItem struct {
	ProductID string
	Quantity  int32
}

// CreateOrderRequest — входной запрос координатора на создание заказа.
// Формальную валидацию DTO выполняет транспортный слой; координатор
// дополнительно сверяет инварианты агрегата перед записью.
type CreateOrderRequest struct {
	Items []CreateOrderItem
}

// ListQuery задаёт фильтр и страницу для выборки заказов.
type ListQuery struct {
	Status *domain.OrderStatus
	Page   int
	Limit  int
}

// Coordinator управляет жизненным циклом заказа: валидация позиций через
// удалённый каталог, расчёт сумм, транзакционная запись и смена статусов.
// Каждая операция либо полностью завершается, либо не оставляет следов.
type Coordinator struct {
	repo    domain.OrderRepository
	catalog domain.ProductCatalog
	gateway domain.PaymentGateway
	outbox  domain.OutboxRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

// WithOutbox включает публикацию событий заказа через transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(c *Coordinator) {
		c.outbox = outbox
	}
}

// WithMetrics включает сбор метрик операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator конструирует координатор с зависимостями.
func NewCoordinator(
	repo domain.OrderRepository,
	catalog domain.ProductCatalog,
	gateway domain.PaymentGateway,
	logger *log.Entry,
	options ...Option,
) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "order-coordinator")
	}
	c := &Coordinator{
		repo:    repo,
		catalog: catalog,
		gateway: gateway,
		logger:  logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Create валидирует позиции через каталог, рассчитывает суммы по ценам из
// ответа каталога и сохраняет заказ с позициями одной транзакцией.
// Возвращённый заказ обогащён именами товаров; имена не сохраняются.
func (c *Coordinator) Create(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	defer c.observe("create", time.Now())

	if len(req.Items) == 0 {
		return domain.Order{}, domain.NewError(domain.ErrorKindValidation, "order must contain at least one item", domain.ErrItemsRequired)
	}

	ids := distinctProductIDs(req.Items)
	index, err := c.lookupProducts(ctx, ids)
	if err != nil {
		return domain.Order{}, err
	}

	if missing := missingProductIDs(ids, index); len(missing) > 0 {
		return domain.Order{}, domain.NewError(
			domain.ErrorKindValidation,
			fmt.Sprintf("unknown products: %s", strings.Join(missing, ", ")),
			domain.ErrProductUnknown,
		)
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(req.Items))
	var totalAmount int64
	var totalItems int32
	for _, item := range req.Items {
		product := index[item.ProductID]
		items = append(items, domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Qty:       item.Quantity,
			// Снапшот цены строго из ответа валидатора, не из локальных данных.
			PriceMinor: product.PriceMinor,
			CreatedAt:  now,
		})
		totalAmount += int64(item.Quantity) * product.PriceMinor
		totalItems += item.Quantity
	}

	order := domain.Order{
		ID:               uuid.NewString(),
		Status:           domain.OrderStatusPending,
		TotalAmountMinor: totalAmount,
		TotalItems:       totalItems,
		Items:            items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, domain.NewError(domain.ErrorKindValidation, joinErrors(errs), errs[0])
	}

	if err := c.repo.Create(order); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return domain.Order{}, domain.NewError(domain.ErrorKindPersistence, "failed to persist order", err)
	}

	if c.metrics != nil {
		c.metrics.RecordOrderCreated()
	}
	c.enqueueOrderEvent(eventTypeOrderCreated, order)

	enrichItems(order.Items, index)
	return order, nil
}

// FindAll возвращает страницу заказов по опциональному фильтру статуса.
// Списочная выборка не обогащается именами товаров: это осознанная
// асимметрия относительно FindOne.
func (c *Coordinator) FindAll(ctx context.Context, query ListQuery) (domain.OrderPage, error) {
	defer c.observe("find_all", time.Now())

	if query.Page < 1 || query.Limit < 1 {
		return domain.OrderPage{}, domain.NewError(domain.ErrorKindValidation, "page and limit must be >= 1", nil)
	}

	filter := domain.ListFilter{Status: query.Status}

	total, err := c.repo.Count(filter)
	if err != nil {
		c.logger.WithError(err).Error("failed to count orders")
		return domain.OrderPage{}, domain.NewError(domain.ErrorKindPersistence, "failed to count orders", err)
	}

	offset := (query.Page - 1) * query.Limit
	rows, err := c.repo.List(filter, offset, query.Limit)
	if err != nil {
		c.logger.WithError(err).Error("failed to list orders")
		return domain.OrderPage{}, domain.NewError(domain.ErrorKindPersistence, "failed to list orders", err)
	}

	lastPage := int((total + int64(query.Limit) - 1) / int64(query.Limit))
	return domain.OrderPage{
		Data: rows,
		Meta: domain.PageMeta{
			Total:    total,
			Page:     query.Page,
			LastPage: lastPage,
		},
	}, nil
}

// FindOne возвращает заказ с позициями, обогащёнными актуальными именами из
// каталога. Недоступность каталога роняет всю операцию: частичный результат
// без имён молча не возвращается.
func (c *Coordinator) FindOne(ctx context.Context, id string) (domain.Order, error) {
	defer c.observe("find_one", time.Now())
	return c.findEnriched(ctx, id)
}

func (c *Coordinator) findEnriched(ctx context.Context, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, domain.NewError(domain.ErrorKindValidation, "order_id is required", domain.ErrOrderIDRequired)
	}

	order, err := c.repo.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NewError(domain.ErrorKindNotFound, fmt.Sprintf("order %s not found", id), err)
		}
		c.logger.WithError(err).WithField("order_id", id).Error("failed to load order")
		return domain.Order{}, domain.NewError(domain.ErrorKindPersistence, "failed to load order", err)
	}

	ids := make([]string, 0, len(order.Items))
	seen := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	index, err := c.lookupProducts(ctx, ids)
	if err != nil {
		return domain.Order{}, err
	}
	if missing := missingProductIDs(ids, index); len(missing) > 0 {
		return domain.Order{}, domain.NewError(
			domain.ErrorKindValidation,
			fmt.Sprintf("unknown products: %s", strings.Join(missing, ", ")),
			domain.ErrProductUnknown,
		)
	}

	enrichItems(order.Items, index)
	return order, nil
}

// ChangeStatus переводит заказ в новый статус. Существование заказа
// проверяется через FindOne, поэтому NOT_FOUND распространяется оттуда.
// Таблицы допустимых переходов нет: любой статус может сменить любой.
func (c *Coordinator) ChangeStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	defer c.observe("change_status", time.Now())

	if !status.Valid() {
		return domain.Order{}, domain.NewError(domain.ErrorKindValidation, "order status is invalid", domain.ErrStatusInvalid)
	}

	order, err := c.findEnriched(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status == status {
		return order, nil
	}

	updated, err := c.repo.UpdateStatus(id, status)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NewError(domain.ErrorKindNotFound, fmt.Sprintf("order %s not found", id), err)
		}
		c.logger.WithError(err).WithField("order_id", id).Error("failed to update order status")
		return domain.Order{}, domain.NewError(domain.ErrorKindPersistence, "failed to update order status", err)
	}

	// Имена уже получены при findEnriched, повторный поход в каталог не нужен.
	names := make(map[string]string, len(order.Items))
	for _, item := range order.Items {
		names[item.ProductID] = item.Name
	}
	for i := range updated.Items {
		updated.Items[i].Name = names[updated.Items[i].ProductID]
	}

	return updated, nil
}

// CreatePaymentSession запрашивает у шлюза сессию оплаты по позициям заказа.
// Заказ не мутируется: переход в paid происходит позже, по подтверждению.
// Дескриптор сессии возвращается вызывающей стороне без изменений.
func (c *Coordinator) CreatePaymentSession(ctx context.Context, order domain.Order) (domain.PaymentSession, error) {
	defer c.observe("create_payment_session", time.Now())

	if order.ID == "" {
		return domain.PaymentSession{}, domain.NewError(domain.ErrorKindValidation, "order_id is required", domain.ErrOrderIDRequired)
	}

	items := make([]domain.PaymentSessionItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.PaymentSessionItem{
			Name:       item.Name,
			PriceMinor: item.PriceMinor,
			Quantity:   item.Qty,
		})
	}

	session, err := c.gateway.CreateSession(ctx, domain.PaymentSessionRequest{
		OrderID:  order.ID,
		Currency: sessionCurrency,
		Items:    items,
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(upstreamGateway, resultError)
		}
		c.logger.WithError(err).WithField("order_id", order.ID).Error("payment gateway call failed")
		return domain.PaymentSession{}, domain.NewError(domain.ErrorKindUpstream, "payment gateway unavailable", err)
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(upstreamGateway, resultOK)
	}

	return session, nil
}

// ConfirmPayment применяет подтверждение оплаты: status=paid, paid=true,
// paid_at, ссылка на списание и чек — одной транзакцией. Повторный вызов
// повторно применит обновление; дедупликация доставок живёт в messaging-слое.
func (c *Coordinator) ConfirmPayment(ctx context.Context, confirmation domain.PaymentConfirmation) (domain.Order, error) {
	defer c.observe("confirm_payment", time.Now())

	if errs := confirmation.Validate(); len(errs) > 0 {
		return domain.Order{}, domain.NewError(domain.ErrorKindValidation, joinErrors(errs), errs[0])
	}

	paidAt := time.Now().UTC()
	order, err := c.repo.MarkPaid(confirmation, paidAt)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NewError(domain.ErrorKindNotFound, fmt.Sprintf("order %s not found", confirmation.OrderID), err)
		}
		c.logger.WithError(err).WithField("order_id", confirmation.OrderID).Error("failed to mark order as paid")
		return domain.Order{}, domain.NewError(domain.ErrorKindPersistence, "failed to mark order as paid", err)
	}

	if c.metrics != nil {
		c.metrics.RecordOrderPaid()
	}
	c.enqueueOrderEvent(eventTypeOrderPaid, order)

	c.logger.WithFields(log.Fields{
		"order_id":          order.ID,
		"stripe_payment_id": confirmation.StripePaymentID,
	}).Info("payment confirmed")

	return order, nil
}

// lookupProducts выполняет блокирующий запрос к каталогу и классифицирует сбой
// как UPSTREAM_UNAVAILABLE. Повторов нет: retry-политика принадлежит транспорту.
func (c *Coordinator) lookupProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products, err := c.catalog.Validate(ctx, ids)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(upstreamCatalog, resultError)
		}
		c.logger.WithError(err).Error("product catalog call failed")
		return nil, domain.NewError(domain.ErrorKindUpstream, "product catalog unavailable", err)
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(upstreamCatalog, resultOK)
	}
	return domain.IndexProducts(products), nil
}

func (c *Coordinator) enqueueOrderEvent(eventType string, order domain.Order) {
	if c.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"event_type":         eventType,
		"order_id":           order.ID,
		"status":             string(order.Status),
		"total_amount_minor": order.TotalAmountMinor,
		"total_items":        order.TotalItems,
		"timestamp":          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to encode order event")
		return
	}

	if _, err := c.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Warn("failed to enqueue order event")
		return
	}

	if c.metrics != nil {
		c.metrics.RecordOutboxEvent()
	}
}

func (c *Coordinator) observe(operation string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordOperationDuration(operation, time.Since(start))
}

func distinctProductIDs(items []CreateOrderItem) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func missingProductIDs(ids []string, index map[string]domain.Product) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func enrichItems(items []domain.OrderItem, index map[string]domain.Product) {
	for i := range items {
		items[i].Name = index[items[i].ProductID].Name
	}
}

func joinErrors(errs []error) string {
	builder := strings.Builder{}
	for i, err := range errs {
		builder.WriteString(err.Error())
		if i < len(errs)-1 {
			builder.WriteString("; ")
		}
	}
	return builder.String()
}
