package events

import (
	"context"
	"sync"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type rabbitMQPublisher struct {
	Connection *amqp091.Connection
	QueueName  string
	Log        *zap.Logger
}

var (
	publisherInstance contracts.EventPublisher
	oncePublisher     sync.Once
)

func NewRabbitMQPublisher(connection *amqp091.Connection, queueName string, logger *zap.Logger) contracts.EventPublisher {
	oncePublisher.Do(func() {
		instance := &rabbitMQPublisher{
			Connection: connection,
			QueueName:  queueName,
			Log:        logger,
		}
		publisherInstance = instance
	})
	return publisherInstance
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	channel, err := p.Connection.Channel()
	if err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err)
	}
	defer channel.Close()

	_, err = channel.QueueDeclare(p.QueueName, true, false, false, false, nil)
	if err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	err = channel.PublishWithContext(ctx, "", p.QueueName, false, false, amqp091.Publishing{
		ContentType:  constvars.MIMEApplicationJSON,
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	if err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err)
	}

	p.Log.Debug("rabbitMQPublisher.Publish event published",
		zap.String(constvars.LoggingEventTypeKey, event.Type),
	)
	return nil
}
