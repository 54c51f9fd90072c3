package messaging

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Decision - что сделать с сообщением после обработки.
type Decision int

const (
	// Ack - сообщение обработано.
	Ack Decision = iota
	// Reject - сообщение отклонено без возврата в очередь и уходит в DLQ.
	Reject
	// Requeue - сообщение возвращается в очередь.
	Requeue
)

// DeliveryHandler обрабатывает тело сообщения.
type DeliveryHandler interface {
	Handle(ctx context.Context, body []byte, correlationID string) Decision
}

// Consumer читает очередь по одному сообщению (prefetch 1).
type Consumer struct {
	conn         *amqp.Connection
	queueName    string
	consumerName string
	declare      func(ch *amqp.Channel, queue string) (amqp.Queue, error)
	handler      DeliveryHandler
	logger       *zap.Logger
}

// NewTaskConsumer читает очередь задач. Отклоненные задачи уходят в DLQ.
func NewTaskConsumer(conn *amqp.Connection, queueName, consumerName string, handler DeliveryHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:         conn,
		queueName:    queueName,
		consumerName: consumerName,
		declare:      DeclareTaskTopology,
		handler:      handler,
		logger:       logger.Named("TaskConsumer"),
	}
}

// NewResultConsumer читает очередь результатов батчей.
func NewResultConsumer(conn *amqp.Connection, queueName, consumerName string, handler DeliveryHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:         conn,
		queueName:    queueName,
		consumerName: consumerName,
		declare:      DeclareResultQueue,
		handler:      handler,
		logger:       logger.Named("ResultConsumer"),
	}
}

// Run блокируется до отмены ctx или закрытия канала брокером.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	q, err := c.declare(ch, c.queueName)
	if err != nil {
		return err
	}
	c.logger.Info("Queue declared", zap.String("queue", q.Name), zap.Int("messages", q.Messages), zap.Int("consumers", q.Consumers))

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,         // queue
		c.consumerName, // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Consumer started, waiting for messages...")

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Consumer channel closed by RabbitMQ")
				return fmt.Errorf("consumer channel closed")
			}
			c.dispatch(ctx, msg)
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer...")
			return nil
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) {
	log := c.logger.With(zap.Uint64("delivery_tag", msg.DeliveryTag), zap.String("correlation_id", msg.CorrelationId))
	log.Debug("Received a message")

	var err error
	switch c.handler.Handle(ctx, msg.Body, msg.CorrelationId) {
	case Ack:
		err = msg.Ack(false)
	case Requeue:
		err = msg.Nack(false, true)
	default:
		log.Warn("Rejecting message, it goes to DLQ")
		err = msg.Nack(false, false)
	}
	if err != nil {
		log.Error("Failed to acknowledge message", zap.Error(err))
	}
}
