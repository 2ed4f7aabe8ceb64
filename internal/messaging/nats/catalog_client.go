package nats

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// SubjectValidateProducts — subject удалённого валидатора каталога.
const SubjectValidateProducts = "validate_products"

type validateProductsRequest struct {
	IDs []string `json:"ids"`
}

type productDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
}

// CatalogClient — request/reply клиент удалённого каталога товаров.
type CatalogClient struct {
	requester Requester
	logger    *log.Entry
}

// NewCatalogClient создаёт клиента каталога поверх Requester.
func NewCatalogClient(requester Requester, logger *log.Entry) *CatalogClient {
	return &CatalogClient{requester: requester, logger: logger}
}

// Validate запрашивает у каталога записи для переданных идентификаторов.
// Отсутствующие в ответе id трактуются вызывающей стороной как неизвестные
// товары; сам клиент ответ не интерпретирует.
func (c *CatalogClient) Validate(ctx context.Context, ids []string) ([]domain.Product, error) {
	payload, err := json.Marshal(validateProductsRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal validate products request: %w", err)
	}

	reqCtx, cancel := withRequestTimeout(ctx)
	defer cancel()

	reply, err := c.requester.Request(reqCtx, SubjectValidateProducts, payload)
	if err != nil {
		c.logger.WithError(err).WithField("subject", SubjectValidateProducts).
			Warn("catalog request failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	var dtos []productDTO
	if err := json.Unmarshal(reply, &dtos); err != nil {
		return nil, fmt.Errorf("decode catalog reply: %w", err)
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, domain.Product{
			ID:         dto.ID,
			Name:       dto.Name,
			PriceMinor: dto.PriceMinor,
		})
	}

	return products, nil
}

var _ domain.ProductCatalog = (*CatalogClient)(nil)
