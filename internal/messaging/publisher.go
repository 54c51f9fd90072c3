package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskPublisher публикует задачи генерации промптов.
type TaskPublisher interface {
	PublishTask(ctx context.Context, payload ScenePromptTaskPayload) error
}

// ResultPublisher публикует результаты батчей.
type ResultPublisher interface {
	PublishResult(ctx context.Context, payload ScenePromptResultPayload) error
}

var (
	_ TaskPublisher   = (*RabbitMQPublisher)(nil)
	_ ResultPublisher = (*RabbitMQPublisher)(nil)
)

// RabbitMQPublisher публикует JSON сообщения в очередь через exchange по умолчанию.
// Канал amqp не потокобезопасен, поэтому публикация сериализована мьютексом.
type RabbitMQPublisher struct {
	ch        *amqp.Channel
	queueName string
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewTaskPublisher открывает канал и объявляет очередь задач с DLX.
func NewTaskPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("task publisher: не удалось открыть канал: %w", err)
	}
	if _, err := DeclareTaskTopology(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("task publisher: %w", err)
	}
	logger.Info("Task queue declared", zap.String("queue", queueName))
	return &RabbitMQPublisher{ch: ch, queueName: queueName, logger: logger.Named("TaskPublisher")}, nil
}

// NewResultPublisher открывает канал и объявляет очередь результатов.
func NewResultPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("result publisher: не удалось открыть канал: %w", err)
	}
	if _, err := DeclareResultQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("result publisher: %w", err)
	}
	logger.Info("Result queue declared", zap.String("queue", queueName))
	return &RabbitMQPublisher{ch: ch, queueName: queueName, logger: logger.Named("ResultPublisher")}, nil
}

// PublishTask публикует задачу. BatchID используется как CorrelationId.
func (p *RabbitMQPublisher) PublishTask(ctx context.Context, payload ScenePromptTaskPayload) error {
	if err := p.publish(ctx, payload, payload.BatchID); err != nil {
		p.logger.Error("Failed to publish task", zap.String("batch_id", payload.BatchID), zap.Error(err))
		return fmt.Errorf("ошибка публикации задачи для BatchID %s: %w", payload.BatchID, err)
	}
	p.logger.Info("Task published", zap.String("batch_id", payload.BatchID), zap.Int("scenes", len(payload.Scenes)))
	return nil
}

// PublishResult публикует результат батча.
func (p *RabbitMQPublisher) PublishResult(ctx context.Context, payload ScenePromptResultPayload) error {
	if err := p.publish(ctx, payload, payload.BatchID); err != nil {
		p.logger.Error("Failed to publish result", zap.String("batch_id", payload.BatchID), zap.Error(err))
		return fmt.Errorf("ошибка публикации результата для BatchID %s: %w", payload.BatchID, err)
	}
	return nil
}

func (p *RabbitMQPublisher) publish(ctx context.Context, payload interface{}, correlationID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("publisher channel is closed")
	}
	return p.ch.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
		},
	)
}

// Close закрывает канал паблишера.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
