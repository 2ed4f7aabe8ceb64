package catalog

import (
	"context"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — конфигурируемая заглушка ProductCatalog для тестов и
// локальной разработки.
type MockService struct {
	// Products — записи каталога, которые возвращает Validate.
	Products map[string]domain.Product
	// Err подменяет результат любым сбоем (недоступный каталог).
	Err error

	ValidateCalls int
	// LastIDs — идентификаторы последнего запроса.
	LastIDs []string
}

// NewMockService возвращает mock с пустым каталогом.
func NewMockService() *MockService {
	return &MockService{Products: make(map[string]domain.Product)}
}

// Seed добавляет запись в каталог заглушки.
func (m *MockService) Seed(products ...domain.Product) *MockService {
	for _, p := range products {
		m.Products[p.ID] = p
	}
	return m
}

// Validate возвращает записи для известных id и считает вызовы.
// Неизвестные id просто отсутствуют в ответе, как в реальном контракте.
func (m *MockService) Validate(_ context.Context, ids []string) ([]domain.Product, error) {
	m.ValidateCalls++
	m.LastIDs = append([]string(nil), ids...)

	if m.Err != nil {
		return nil, m.Err
	}

	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := m.Products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

var _ domain.ProductCatalog = (*MockService)(nil)
