package signaling

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Publisher forwards relayed events to other server instances. Optional;
// a nil publisher keeps signaling local to this instance.
type Publisher interface {
	Publish(ctx context.Context, senderID, event string, data []byte) error
}

// Registry tracks live signaling connections and broadcasts messages to
// everyone except the sender. The peer set is mutated only by Register and
// Unregister; there are no other writers.
type Registry struct {
	mu     sync.RWMutex
	peers  map[string]*Peer
	logger *zap.Logger
	pub    Publisher
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *zap.Logger, pub Publisher) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		peers:  make(map[string]*Peer),
		logger: logger,
		pub:    pub,
	}
}

// Register adds a peer to the broadcast set.
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	r.peers[p.ID] = p
	n := len(r.peers)
	r.mu.Unlock()
	r.logger.Info("peer connected", zap.String("peer_id", p.ID), zap.Int("connections", n))
}

// Unregister removes a peer. Safe to call for a peer that was never
// registered or was already removed.
func (r *Registry) Unregister(p *Peer) {
	r.mu.Lock()
	_, ok := r.peers[p.ID]
	if ok {
		delete(r.peers, p.ID)
	}
	n := len(r.peers)
	r.mu.Unlock()
	if ok {
		r.logger.Info("peer disconnected", zap.String("peer_id", p.ID), zap.Int("connections", n))
	}
}

// Count returns the number of registered peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// BroadcastExcept sends msg to every registered peer except senderID.
// Best-effort: a peer whose send buffer is full is skipped, and zero
// receivers is a no-op.
func (r *Registry) BroadcastExcept(senderID string, msg Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, p := range r.peers {
		if id == senderID {
			continue
		}
		select {
		case p.send <- msg:
		default:
			// buffer full, drop
		}
	}
}

// Relay broadcasts an event locally and publishes it for other instances.
func (r *Registry) Relay(senderID, event string, data json.RawMessage) {
	r.BroadcastExcept(senderID, Message{Event: event, Data: data})
	if r.pub != nil {
		if err := r.pub.Publish(context.Background(), senderID, event, data); err != nil {
			r.logger.Warn("publish relay event failed", zap.Error(err), zap.String("event", event))
		}
	}
}
