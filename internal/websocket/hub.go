package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"helpdesk/internal/model"
	"helpdesk/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin is enforced by CORS on the REST surface; the token gates this one
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AuthFunc resolves an access token to the connecting user
type AuthFunc func(token string) (userID, role string, err error)

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	Role   string
}

func (c *Client) wants(event notify.Event) bool {
	return c.Role == model.RoleHR || (event.OwnerID != "" && c.UserID == event.OwnerID)
}

type envelope struct {
	event notify.Event
	body  []byte
}

// Hub keeps the connected clients and routes channel events to HR staff and
// to the owner of the channel.
type Hub struct {
	clients    map[*Client]bool
	events     chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events:     make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run dispatches until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.String("user_id", client.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("websocket client disconnected", zap.String("user_id", client.UserID))
			}
			h.mu.Unlock()
		case env := <-h.events:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(env.event) {
					continue
				}
				select {
				case client.Send <- env.body:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify queues the event for delivery; it drops the event when the hub is saturated
func (h *Hub) Notify(ctx context.Context, event notify.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode websocket event", zap.Error(err))
		return
	}
	select {
	case h.events <- envelope{event: event, body: body}:
	case <-ctx.Done():
	default:
		h.logger.Warn("websocket hub saturated, dropping event",
			zap.String("type", event.Type),
			zap.String("channel_id", event.ChannelID),
		)
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive until the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades the request after checking the ?token= access token
func ServeWs(hub *Hub, c *gin.Context, auth AuthFunc) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.logger.Debug("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, role, err := auth(tokenString)
	if err != nil {
		hub.logger.Debug("websocket connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), UserID: userID, Role: role}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
