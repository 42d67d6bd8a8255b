package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"food-marketplace-api/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingConfirm resolves once the test decides how the broker answered.
type pendingConfirm struct {
	result chan bool
}

func (c *pendingConfirm) WaitContext(ctx context.Context) (bool, error) {
	select {
	case ack := <-c.result:
		return ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []amqp.Publishing
	keys     []string
	confirms []*pendingConfirm
}

func (f *fakeChannel) publish(_ context.Context, _ string, key string, msg amqp.Publishing) (confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.slot(len(f.sent))
	f.sent = append(f.sent, msg)
	f.keys = append(f.keys, key)
	return c, nil
}

// slot returns the confirm for the i-th message, so answers can be queued
// before the message is published. Callers hold f.mu.
func (f *fakeChannel) slot(i int) *pendingConfirm {
	for len(f.confirms) <= i {
		f.confirms = append(f.confirms, &pendingConfirm{result: make(chan bool, 1)})
	}
	return f.confirms[i]
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) confirm(i int, ack bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slot(i).result <- ack
}

func TestRabbitPublisherPairsEachConfirmWithItsMessage(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitPublisher{ch: ch, exchange: "orders_topic"}
	event := OrderEvent{Type: OrderStatusChanged, OrderID: 7, NewStatus: models.StatusPreparing}

	// the first message times out before the broker answers
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, event)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// its late ack must not be taken as the second message's confirm
	ch.confirm(0, true)
	ch.confirm(1, false)
	err = p.Publish(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NACK")

	ch.confirm(2, true)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.sent, 3)
	assert.Equal(t, "order.preparing", ch.keys[2])
	assert.Equal(t, amqp.Persistent, ch.sent[2].DeliveryMode)
	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(ch.sent[2].Body, &decoded))
	assert.Equal(t, uint(7), decoded.OrderID)
}
