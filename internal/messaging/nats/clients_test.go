package nats_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	natsclient "github.com/vladislavdragonenkov/orders/internal/messaging/nats"
)

type fakeRequester struct {
	reply       []byte
	err         error
	lastSubject string
	lastPayload []byte
	calls       int
}

func (f *fakeRequester) Request(_ context.Context, subject string, data []byte) ([]byte, error) {
	f.calls++
	f.lastSubject = subject
	f.lastPayload = data
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger.WithField("component", "nats-test")
}

func TestCatalogClient_Validate(t *testing.T) {
	requester := &fakeRequester{
		reply: []byte(`[{"id":"p1","name":"A","price_minor":10},{"id":"p2","name":"B","price_minor":5}]`),
	}
	client := natsclient.NewCatalogClient(requester, testLogger())

	products, err := client.Validate(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	require.Equal(t, natsclient.SubjectValidateProducts, requester.lastSubject)

	var req struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(requester.lastPayload, &req))
	require.Equal(t, []string{"p1", "p2"}, req.IDs)

	require.Len(t, products, 2)
	require.Equal(t, domain.Product{ID: "p1", Name: "A", PriceMinor: 10}, products[0])
	require.Equal(t, domain.Product{ID: "p2", Name: "B", PriceMinor: 5}, products[1])
}

func TestCatalogClient_PartialReply(t *testing.T) {
	// Каталог возвращает только известные товары, клиент не фильтрует сам.
	requester := &fakeRequester{reply: []byte(`[{"id":"p1","name":"A","price_minor":10}]`)}
	client := natsclient.NewCatalogClient(requester, testLogger())

	products, err := client.Validate(context.Background(), []string{"p1", "ghost"})
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestCatalogClient_RequestError(t *testing.T) {
	requester := &fakeRequester{err: errors.New("nats: timeout")}
	client := natsclient.NewCatalogClient(requester, testLogger())

	_, err := client.Validate(context.Background(), []string{"p1"})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestCatalogClient_MalformedReply(t *testing.T) {
	requester := &fakeRequester{reply: []byte(`{not json`)}
	client := natsclient.NewCatalogClient(requester, testLogger())

	_, err := client.Validate(context.Background(), []string{"p1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestPaymentsClient_CreateSession(t *testing.T) {
	requester := &fakeRequester{
		reply: []byte(`{"url":"https://pay.example/s/1","cancel_url":"https://pay.example/cancel","success_url":"https://pay.example/success"}`),
	}
	client := natsclient.NewPaymentsClient(requester, testLogger())

	session, err := client.CreateSession(context.Background(), domain.PaymentSessionRequest{
		OrderID:  "order-1",
		Currency: "usd",
		Items: []domain.PaymentSessionItem{
			{Name: "A", PriceMinor: 10, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, natsclient.SubjectCreatePaymentSession, requester.lastSubject)
	require.Equal(t, "https://pay.example/s/1", session.URL)
	require.Equal(t, "https://pay.example/cancel", session.CancelURL)
	require.Equal(t, "https://pay.example/success", session.SuccessURL)

	var req struct {
		OrderID  string `json:"order_id"`
		Currency string `json:"currency"`
		Items    []struct {
			Name       string `json:"name"`
			PriceMinor int64  `json:"price_minor"`
			Quantity   int32  `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(requester.lastPayload, &req))
	require.Equal(t, "order-1", req.OrderID)
	require.Equal(t, "usd", req.Currency)
	require.Len(t, req.Items, 1)
	require.Equal(t, "A", req.Items[0].Name)
	require.Equal(t, int32(2), req.Items[0].Quantity)
}

func TestPaymentsClient_RequestError(t *testing.T) {
	requester := &fakeRequester{err: errors.New("nats: no responders available for request")}
	client := natsclient.NewPaymentsClient(requester, testLogger())

	_, err := client.CreateSession(context.Background(), domain.PaymentSessionRequest{OrderID: "order-1"})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
