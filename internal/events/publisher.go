package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	defaultMaxRetries  = 3
	defaultRetryBase   = 20 * time.Millisecond
	defaultRetryCeil   = 500 * time.Millisecond
	breakerMaxRequests = 5
	breakerInterval    = 30 * time.Second
	breakerTimeout     = 30 * time.Second
)

// Publisher delivers Envelopes to topic-keyed subscribers over an
// in-process ordered log (watermill's gochannel pub/sub), standing in
// for the external Kafka-style broker spec.md §6 describes. Failed
// publishes are retried with a bounded backoff; a circuit breaker trips
// on sustained failure and marks the engine degraded rather than
// blocking the matching hot path indefinitely.
type Publisher struct {
	pubsub   *gochannel.GoChannel
	breaker  *gobreaker.CircuitBreaker
	degraded atomic.Bool
}

// NewPublisher constructs a Publisher backed by a fresh gochannel
// pub/sub instance.
func NewPublisher() *Publisher {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 1024},
		watermill.NewStdLogger(false, false),
	)

	p := &Publisher{pubsub: pubsub}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-publisher",
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures*2 >= counts.Requests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("event publisher circuit breaker state change")
			p.degraded.Store(to != gobreaker.StateClosed)
		},
	})
	return p
}

// Degraded reports whether the publisher's circuit breaker is open,
// meaning event delivery is currently failing and the engine should
// surface itself as degraded (spec.md §7).
func (p *Publisher) Degraded() bool {
	return p.degraded.Load()
}

// Publish delivers env to topic, retrying transient failures with
// exponential backoff up to defaultMaxRetries times after the first
// attempt, all guarded by
// the circuit breaker. A terminal failure is logged and returned but
// never panics the caller's matching loop.
func (p *Publisher) Publish(topic Topic, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := message.NewMessage(env.ID.String(), payload)
	msg.Metadata.Set("event_type", string(env.EventType))

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publishWithRetry(string(topic), msg)
	})
	if err != nil {
		log.Error().Err(err).Str("topic", string(topic)).Str("event_type", string(env.EventType)).
			Msg("failed to publish event after retries")
	}
	return err
}

func (p *Publisher) publishWithRetry(topic string, msg *message.Message) error {
	backoff := defaultRetryBase
	var lastErr error
	for attempt := 0; attempt <= defaultMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > defaultRetryCeil {
				backoff = defaultRetryCeil
			}
		}
		if lastErr = p.pubsub.Publish(topic, msg); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// Subscribe exposes a topic's message stream, for an alternate command
// intake path that consumes events rather than HTTP requests (spec.md
// §1's note that intake is pluggable).
func (p *Publisher) Subscribe(ctx context.Context, topic Topic) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, string(topic))
}

// Close releases the underlying pub/sub resources.
func (p *Publisher) Close() error {
	return p.pubsub.Close()
}
