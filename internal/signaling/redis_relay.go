package signaling

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayChannel = "signaling:relay"

// wireEvent is the message published to Redis for cross-instance relay.
// Origin lets the publishing instance ignore its own messages; Sender is the
// originating peer connection so remote instances keep the
// broadcast-except-sender contract.
type wireEvent struct {
	Origin string          `json:"origin"`
	Sender string          `json:"sender"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RedisRelay bridges signaling events across server instances via Redis pub/sub.
type RedisRelay struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

// NewRedisRelay creates a Redis pub/sub bridge for signaling events.
func NewRedisRelay(client *redis.Client, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:     client,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

// Publish sends a relayed event to the shared channel.
func (r *RedisRelay) Publish(ctx context.Context, senderID, event string, data []byte) error {
	body, err := json.Marshal(wireEvent{
		Origin: r.instanceID,
		Sender: senderID,
		Event:  event,
		Data:   data,
	})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, body).Err()
}

// Subscribe invokes handler for events published by other instances.
// The returned cancel stops the subscription.
func (r *RedisRelay) Subscribe(ctx context.Context, handler func(senderID, event string, data []byte)) (func(), error) {
	sub := r.client.Subscribe(ctx, relayChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	ch := sub.Channel()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev wireEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					r.logger.Warn("invalid relay payload", zap.Error(err))
					continue
				}
				if ev.Origin == r.instanceID {
					continue
				}
				handler(ev.Sender, ev.Event, ev.Data)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return cancel, nil
}
