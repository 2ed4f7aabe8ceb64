package payments

import (
	"context"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MockService — конфигурируемая заглушка PaymentGateway для тестов.
type MockService struct {
	Session domain.PaymentSession
	Err     error

	CreateSessionCalls int
	// LastRequest — последний запрос на создание сессии.
	LastRequest domain.PaymentSessionRequest
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		Session: domain.PaymentSession{
			URL:        "https://pay.example/session/mock",
			CancelURL:  "https://pay.example/cancel",
			SuccessURL: "https://pay.example/success",
		},
	}
}

// CreateSession возвращает настроенный дескриптор сессии и считает вызовы.
func (m *MockService) CreateSession(_ context.Context, req domain.PaymentSessionRequest) (domain.PaymentSession, error) {
	m.CreateSessionCalls++
	m.LastRequest = req

	if m.Err != nil {
		return domain.PaymentSession{}, m.Err
	}
	return m.Session, nil
}

var _ domain.PaymentGateway = (*MockService)(nil)
