package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sale"
)

// Sequencer hands out the per-partition sequence stamped on every envelope.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch                 amqpChannel
	seq                Sequencer
	producerIdentifier string
	storeID            string
	now                func() time.Time
}

type PublisherOptions struct {
	Producer string
	// StoreID is the partition key of every SaleConfirmed event: sales of
	// one store are totally ordered.
	StoreID string
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch amqpChannel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = "pos-service"
	}
	storeID := opts.StoreID
	if storeID == "" {
		storeID = "default"
	}
	return &Publisher{
		ch:                 ch,
		seq:                seq,
		producerIdentifier: producer,
		storeID:            storeID,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
	PartitionKey  string
}

// PublishSaleConfirmed announces a recorded sale. The sale ID doubles as the
// correlation ID so downstream consumers can trace it back.
func (p *Publisher) PublishSaleConfirmed(ctx context.Context, rec sale.Record) error {
	meta := EventMeta{
		CorrelationID: rec.ID.String(),
		PartitionKey:  p.storeID,
	}

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newSaleConfirmedEvent(meta, seq, p.producerIdentifier, saleConfirmedPayload(p.storeID, rec), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SaleConfirmed envelope: %w", err)
	}

	return p.publishJSON(ctx, SaleConfirmedRoutingKey, env.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if messageID == "" {
		messageID = uuid.NewString()
	}

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now(),
			Headers:      injectTrace(ctx),
			Body:         body,
		},
	)
}
