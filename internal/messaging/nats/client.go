package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = 60
)

// Requester абстрагирует request/reply обмен через NATS.
// Юнит-тесты подставляют фейковую реализацию вместо живого подключения.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

type connRequester struct {
	conn *nats.Conn
}

func (r *connRequester) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := r.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// Client держит подключение к NATS и отдаёт Requester для RPC-клиентов.
type Client struct {
	conn   *nats.Conn
	logger *log.Entry
}

// Connect открывает подключение к NATS с автоматическим reconnect.
func Connect(url string, logger *log.Entry) (*Client, error) {
	conn, err := nats.Connect(url,
		nats.ReconnectWait(defaultReconnectWait),
		nats.MaxReconnects(defaultMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	logger.WithField("url", url).Info("nats connection established")
	return &Client{conn: conn, logger: logger}, nil
}

// Conn возвращает низкоуровневое подключение для подписок.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Requester возвращает request/reply обёртку над подключением.
func (c *Client) Requester() Requester {
	return &connRequester{conn: c.conn}
}

// Close дожидается отправки буферизованных сообщений и закрывает подключение.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.WithError(err).Warn("nats drain failed")
		c.conn.Close()
	}
}

// withRequestTimeout гарантирует дедлайн на блокирующий запрос.
func withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultRequestTimeout)
}
