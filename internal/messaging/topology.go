package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dlqRoutingKey = "dlq"

// DeadLetterExchange возвращает имя DLX для очереди задач.
func DeadLetterExchange(taskQueue string) string { return taskQueue + "_dlx" }

// DeadLetterQueue возвращает имя DLQ для очереди задач.
func DeadLetterQueue(taskQueue string) string { return taskQueue + "_dlq" }

// taskQueueArgs - аргументы очереди задач. Паблишер и консьюмер должны объявлять очередь одинаково.
func taskQueueArgs(taskQueue string) amqp.Table {
	return amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    DeadLetterExchange(taskQueue),
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
}

// DeclareTaskTopology объявляет DLX, DLQ и очередь задач с пересылкой отклоненных сообщений в DLQ.
func DeclareTaskTopology(ch *amqp.Channel, taskQueue string) (amqp.Queue, error) {
	dlx := DeadLetterExchange(taskQueue)
	dlq := DeadLetterQueue(taskQueue)

	if err := ch.ExchangeDeclare(
		dlx,      // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return amqp.Queue{}, fmt.Errorf("не удалось объявить DLX '%s': %w", dlx, err)
	}

	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("не удалось объявить DLQ '%s': %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlqRoutingKey, dlx, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("не удалось связать DLQ '%s' с DLX '%s': %w", dlq, dlx, err)
	}

	q, err := ch.QueueDeclare(
		taskQueue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		taskQueueArgs(taskQueue),
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("не удалось объявить очередь задач '%s': %w", taskQueue, err)
	}
	return q, nil
}

// DeclareResultQueue объявляет durable очередь результатов.
func DeclareResultQueue(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("не удалось объявить очередь результатов '%s': %w", queue, err)
	}
	return q, nil
}
