package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishDeliversToSubscriber(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := p.Subscribe(ctx, TopicTrades)
	require.NoError(t, err)

	env := NewEnvelope(TradeExecuted, "test", 1, uuid.Nil, map[string]string{"hello": "world"})
	require.NoError(t, p.Publish(TopicTrades, env))

	select {
	case msg := <-msgs:
		var got Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, TradeExecuted, got.EventType)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestPublisher_NotDegradedInitially(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	assert.False(t, p.Degraded())
}

func TestNewEnvelope_AssignsDistinctIDs(t *testing.T) {
	a := NewEnvelope(OrderUpdated, "test", 1, uuid.Nil, nil)
	b := NewEnvelope(OrderUpdated, "test", 2, uuid.Nil, nil)
	assert.NotEqual(t, a.ID, b.ID)
}
