package app

import (
	"os"
	"strings"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// NATSURL — адрес брокера для входящего API и клиентов удалённых сервисов.
	NATSURL string
	// PostgresDSN — DSN хранилища; пустое значение включает in-memory режим.
	PostgresDSN string
	// KafkaBrokers — список брокеров Kafka; пустой список отключает события.
	KafkaBrokers []string
	// KafkaGroupID — consumer group для подтверждений оплаты.
	KafkaGroupID string
	// MetricsAddr — адрес HTTP-сервера метрик и health checks.
	MetricsAddr string
}

// DefaultConfig возвращает базовую конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		NATSURL:      "nats://localhost:4222",
		KafkaGroupID: "orders-service",
		MetricsAddr:  ":9090",
	}
}

// ConfigFromEnv формирует конфигурацию, позволяя переопределить значения
// через переменные окружения.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("ORDERS_NATS_URL")); v != "" {
		cfg.NATSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ORDERS_POSTGRES_DSN")); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ORDERS_KAFKA_BROKERS")); v != "" {
		brokers := make([]string, 0)
		for _, broker := range strings.Split(v, ",") {
			broker = strings.TrimSpace(broker)
			if broker != "" {
				brokers = append(brokers, broker)
			}
		}
		cfg.KafkaBrokers = brokers
	}
	if v := strings.TrimSpace(os.Getenv("ORDERS_KAFKA_GROUP_ID")); v != "" {
		cfg.KafkaGroupID = v
	}
	if v := strings.TrimSpace(os.Getenv("ORDERS_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg
}
