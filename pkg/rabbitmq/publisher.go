package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
)

// Publisher submits jobs to a partition queue. Used by the HTTP surface and
// by requeue tooling; workers only consume.
type Publisher interface {
	Submit(ctx context.Context, partition constant.Partition, message dto.JobMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	return &publisher{conn: conn, cfg: cfg}
}

func (p *publisher) Submit(ctx context.Context, partition constant.Partition, message dto.JobMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeName, p.cfg.Kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	topology := ForPartition(partition)
	return ch.PublishWithContext(ctx, ExchangeName, topology.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    message.JobId.String(),
		Body:         body,
	})
}
