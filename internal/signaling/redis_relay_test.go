package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type relayRecorder struct {
	mu     sync.Mutex
	events []wireEvent
}

func (r *relayRecorder) handle(senderID, event string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, wireEvent{Sender: senderID, Event: event, Data: data})
}

func (r *relayRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestRedisRelayForwardsToOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewRedisRelay(client, zap.NewNop())
	b := NewRedisRelay(client, zap.NewNop())

	rec := &relayRecorder{}
	cancelSub, err := b.Subscribe(ctx, rec.handle)
	require.NoError(t, err)
	t.Cleanup(cancelSub)

	data, _ := json.Marshal(map[string]string{"offer": "v=0"})
	require.NoError(t, a.Publish(ctx, "peer-1", EventSignal, data))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	got := rec.events[0]
	rec.mu.Unlock()
	require.Equal(t, "peer-1", got.Sender)
	require.Equal(t, EventSignal, got.Event)
	require.JSONEq(t, string(data), string(got.Data))
}

func TestRedisRelayIgnoresOwnMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := NewRedisRelay(client, zap.NewNop())

	rec := &relayRecorder{}
	cancelSub, err := a.Subscribe(ctx, rec.handle)
	require.NoError(t, err)
	t.Cleanup(cancelSub)

	require.NoError(t, a.Publish(ctx, "peer-1", EventCallEnded, nil))

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, rec.count())
}
