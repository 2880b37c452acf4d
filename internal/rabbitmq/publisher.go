package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// Publisher публикует JSON-сообщения в обменник. Безопасен для конкурентного использования.
type Publisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish сериализует message в JSON и отправляет его с ключом routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
