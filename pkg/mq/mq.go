package mq

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fuzzgate/config"
)

// Publisher delivers verdict messages to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type rabbitPublisher struct {
	logger      *zap.Logger
	rabbitmqUrl string
	conn        *amqp.Connection
}

type RabbitMQParams struct {
	fx.In

	Config    *config.AppConfig
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// NewRabbitMQ connects to the broker when RABBITMQ_URL is configured. The
// gate is a short-lived batch process, so a single connection with a
// channel per publish is enough.
func NewRabbitMQ(p RabbitMQParams) Publisher {
	if p.Config.RabbitMQURL == "" {
		p.Logger.Info("RABBITMQ_URL not set, verdicts will not be published")
		return nil
	}

	pub := &rabbitPublisher{
		logger:      p.Logger,
		rabbitmqUrl: p.Config.RabbitMQURL,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := amqp.Dial(pub.rabbitmqUrl)
			if err != nil {
				pub.logger.Error("Failed to connect to RabbitMQ", zap.Error(err))
				return err
			}
			pub.conn = conn
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if pub.conn != nil {
				return pub.conn.Close()
			}
			return nil
		},
	})
	return pub
}

func (r *rabbitPublisher) Publish(ctx context.Context, queue string, body []byte) error {
	if r.conn == nil {
		return errors.New("rabbitmq connection not established")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
