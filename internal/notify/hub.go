package notify

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
)

// Event kinds pushed over the notification stream. An event is a hint that
// something changed for the receiving user; subscribers re-query the API after
// any event instead of trusting the payload. Delivery is at-most-once.
const (
	EventNewRequest       = "new_request"
	EventRequestAccepted  = "request_accepted"
	EventRequestDeclined  = "request_declined"
	EventRequestCancelled = "request_cancelled"
	EventRequestExpired   = "request_expired"
	EventChatMessage      = "chat_message"
)

type Event struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	At        string `json:"at"`
}

func NewEvent(eventType string) Event {
	return Event{
		Type: eventType,
		At:   time.Now().UTC().Format(time.RFC3339),
	}
}

type envelope struct {
	targetID string
	payload  []byte
}

// Hub fans events out to per-user rooms. A user may hold several concurrent
// connections (multi-device); all of them receive every event for that user.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish pushes an event to every connection in the user's room. It never
// blocks and never reports failure to the caller: the state transition that
// triggered the event is already committed and remains the source of truth, so
// an undeliverable event is logged and dropped.
func (h *Hub) Publish(userID int64, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: encode %s event: %v", event.Type, err)
		return
	}

	select {
	case h.broadcast <- envelope{targetID: strconv.FormatInt(userID, 10), payload: payload}:
	default:
		log.Printf("notify: bus saturated, dropped %s event for user %d", event.Type, userID)
	}
}

func (h *Hub) deliver(message envelope) {
	set, ok := h.clients[message.targetID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- message.payload:
		default:
			// Slow consumer; drop the connection rather than the bus.
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, message.targetID)
	}
}

// ReadPump drains the connection until it errors, then releases the room
// registration. The stream is receive-only; inbound frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
