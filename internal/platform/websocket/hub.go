// Package websocket streams question result changes to connected screens.
// Kiosk screens follow their own session; triage dashboards follow every
// session.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/platform/auth"
)

// TopicAll receives the changes of every session.
const TopicAll = "sessions"

// SessionTopic is the topic carrying the changes of one session.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Event is the message pushed to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	SessionID string          `json:"session_id"`
	Code      int             `json:"question_code"`
	Timestamp time.Time       `json:"timestamp"`
	Change    question.Change `json:"change"`
}

// Event types.
const (
	EventResultChanged = "result.changed"
	EventResultCleared = "result.cleared"
)

// ClientMessage is an inbound subscription request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one connected screen.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func newClient(topics ...string) *Client {
	return &Client{ID: uuid.New().String(), Topics: topics, Send: make(chan []byte, 64)}
}

// Hub tracks clients by topic. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	h.subscribeLocked(client, client.Topics)
}

// Unregister removes a client and closes its Send channel. Unknown clients
// are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	h.unsubscribeLocked(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) subscribeLocked(client *Client, topics []string) {
	for _, topic := range topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

func (h *Hub) unsubscribeLocked(client *Client, topics []string) {
	for _, topic := range topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
}

// Process applies a subscribe or unsubscribe request from client.
func (h *Hub) Process(client *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		h.subscribeLocked(client, msg.Topics)
		client.Topics = append(client.Topics, msg.Topics...)
	case "unsubscribe":
		h.unsubscribeLocked(client, msg.Topics)
		drop := make(map[string]bool, len(msg.Topics))
		for _, t := range msg.Topics {
			drop[t] = true
		}
		kept := client.Topics[:0]
		for _, t := range client.Topics {
			if !drop[t] {
				kept = append(kept, t)
			}
		}
		client.Topics = kept
	}
}

// Notify pushes a change to the session's topic and to TopicAll. A client
// subscribed to both receives it once. Slow clients miss events instead of
// blocking the evaluation path.
func (h *Hub) Notify(_ context.Context, c question.Change) error {
	ev := Event{
		Type:      EventResultChanged,
		SessionID: c.SessionID,
		Code:      c.Code,
		Timestamp: h.now().UTC(),
		Change:    c,
	}
	if c.Result == nil {
		ev.Type = EventResultCleared
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[*Client]bool)
	for _, topic := range []string{SessionTopic(c.SessionID), TopicAll} {
		ev.Topic = topic
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		for client := range h.clients[topic] {
			if sent[client] {
				continue
			}
			sent[client] = true
			select {
			case client.Send <- data:
			default:
				h.logger.Warn().Str("client", client.ID).Str("topic", topic).Msg("live feed client buffer full, event dropped")
			}
		}
	}
	return nil
}

// Close is a no-op; connections end with their requests.
func (h *Hub) Close() error { return nil }

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades requests to WebSocket connections on the hub.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler creates a handler. An empty origins list accepts any origin.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// RegisterRoutes registers the live feed endpoint.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/live", h.Connect, auth.RequireRole(auth.RoleTriage, auth.RoleKiosk, auth.RoleViewer))
}

// Connect upgrades the request. With ?session=<id> the client follows that
// session; otherwise it follows every session.
func (h *Handler) Connect(c echo.Context) error {
	topic := TopicAll
	if s := c.QueryParam("session"); s != "" {
		topic = SessionTopic(s)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(topic)
	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.hub.Process(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}
