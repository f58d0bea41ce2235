package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("pos-service/events")

// HandlerFunc processes one message body. Returning an error NACKs the message
// without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

// StartProductUpsertedConsumer binds a durable queue to ProductUpsertedRoutingKey
// and feeds deliveries to handler until ctx is cancelled. The returned func
// closes the channel.
func StartProductUpsertedConsumer(ctx context.Context, conn *amqp.Connection, handler HandlerFunc, logger *zap.Logger) (func(), error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	cleanup := func() { _ = ch.Close() }

	if err := declareEventsExchange(ch); err != nil {
		cleanup()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	queue := posQueueName(ProductUpsertedRoutingKey)
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		cleanup()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.QueueBind(queue, ProductUpsertedRoutingKey, EventsExchange, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Qos(10, 0, false); err != nil {
		cleanup()
		return nil, fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		posServiceName, // consumer tag
		false,          // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("consume: %w", err)
	}

	go consume(ctx, msgs, handler, logger.With(zap.String("queue", queue)))

	return cleanup, nil
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, handler HandlerFunc, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("messages channel closed")
				return
			}

			msgCtx, span := tracer.Start(extractTrace(ctx, msg.Headers), "consume "+msg.RoutingKey,
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(attribute.String("messaging.message.id", msg.MessageId)),
			)
			if err := handler(msgCtx, msg.Body); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
				logger.Error("handle message", zap.String("message_id", msg.MessageId), zap.Error(err))
				_ = msg.Nack(false, false)
				continue
			}
			span.End()
			_ = msg.Ack(false)
		}
	}
}
