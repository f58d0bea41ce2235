package events

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type ackRecorder struct {
	acked  chan uint64
	nacked chan uint64
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{acked: make(chan uint64, 4), nacked: make(chan uint64, 4)}
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked <- tag
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked <- tag
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	a.nacked <- tag
	return nil
}

func TestConsumeAcksAndNacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acks := newAckRecorder()
	msgs := make(chan amqp.Delivery)
	handler := func(ctx context.Context, body []byte) error {
		if string(body) == "bad" {
			return errors.New("rejected")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		consume(ctx, msgs, handler, zap.NewNop())
		close(done)
	}()

	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: []byte("good")}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("bad")}

	assert.Equal(t, uint64(1), waitTag(t, acks.acked))
	assert.Equal(t, uint64(2), waitTag(t, acks.nacked))

	close(msgs)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after channel close")
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consume(ctx, make(chan amqp.Delivery), func(context.Context, []byte) error { return nil }, zap.NewNop())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func waitTag(t *testing.T, ch <-chan uint64) uint64 {
	t.Helper()
	select {
	case tag := <-ch:
		return tag
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ack")
		return 0
	}
}
