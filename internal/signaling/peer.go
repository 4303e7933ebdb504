package signaling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// maxMessageSize bounds one inbound frame. SDP bodies can reach a few
	// hundred KB with many candidates.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced at the HTTP layer
	},
}

// Peer represents a single signaling connection.
type Peer struct {
	ID       string
	Name     string // guest display name when auth is enabled
	JoinedAt time.Time
	registry *Registry
	conn     *websocket.Conn
	send     chan Message
	strict   bool
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the peer loop.
// validateToken is optional; when set, a valid ?token= query is required.
func ServeWs(registry *Registry, logger *zap.Logger, strict bool, validateToken func(token string) (name string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := ""
		if validateToken != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
				return
			}
			n, err := validateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			name = n
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		peer := &Peer{
			ID:       uuid.New().String(),
			Name:     name,
			JoinedAt: time.Now(),
			registry: registry,
			conn:     conn,
			send:     make(chan Message, 256),
			strict:   strict,
			logger:   logger,
		}
		registry.Register(peer)
		go peer.writePump()
		peer.readPump()
	}
}

func (p *Peer) readPump() {
	defer func() {
		p.registry.Unregister(p)
		_ = p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	p.conn.SetPongHandler(func(string) error {
		_ = p.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.Warn("peer read error", zap.String("peer_id", p.ID), zap.Error(err))
			}
			break
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventSignal:
			if p.strict {
				if err := ValidateEnvelope(msg.Data); err != nil {
					p.sendError(err.Error())
					continue
				}
			}
			p.registry.Relay(p.ID, EventSignal, msg.Data)
		case EventCallEnded:
			p.registry.Relay(p.ID, EventCallEnded, nil)
		default:
			// ignore
		}
	}
}

// sendError delivers a typed error event to this peer only.
func (p *Peer) sendError(reason string) {
	data, _ := json.Marshal(map[string]string{"error": reason})
	select {
	case p.send <- Message{Event: EventError, Data: data}:
	default:
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-p.send:
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := p.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
