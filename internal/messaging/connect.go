package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	connectMaxRetries = 30
	connectRetryDelay = 5 * time.Second
)

// Connect подключается к RabbitMQ с повторными попытками. maskedURL используется только для логов.
func Connect(ctx context.Context, url, maskedURL string, logger *zap.Logger) (*amqp.Connection, error) {
	logger.Info("Attempting to connect to RabbitMQ",
		zap.String("url", maskedURL),
		zap.Int("max_retries", connectMaxRetries),
		zap.Duration("retry_delay", connectRetryDelay),
	)

	var lastErr error
	for attempt := 1; attempt <= connectMaxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go watchClose(conn, logger)
			return conn, nil
		}
		lastErr = err
		logger.Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-time.After(connectRetryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connect cancelled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectMaxRetries, lastErr)
}

func watchClose(conn *amqp.Connection, logger *zap.Logger) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	if err := <-notifyClose; err != nil {
		logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(err))
		return
	}
	logger.Info("RabbitMQ connection closed gracefully")
}
