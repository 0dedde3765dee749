package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/avolab/guideline-api/internal/model"
)

// Client is one WebSocket subscriber watching a single job.
type Client struct {
	EventID string
	Conn    *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// trySend queues a message without blocking. It reports false when the
// client's buffer is full or the client is already closed; both the hub
// loop and the reader's pong reply go through here so nothing writes to
// a closed channel.
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans job status updates out to WebSocket subscribers, grouped by
// event ID. Polling GET /api/jobs/:event_id remains the canonical
// interface; the hub is additive.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	eventID string
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.EventID] == nil {
				h.clients[client.EventID] = make(map[*Client]bool)
			}
			h.clients[client.EventID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.EventID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.close()
					if len(clients) == 0 {
						delete(h.clients, client.EventID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			if clients, ok := h.clients[msg.eventID]; ok {
				for client := range clients {
					if !client.trySend(msg.message) {
						// Slow or gone; drop the subscriber rather than
						// stall the broadcaster.
						client.close()
						delete(clients, client)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.eventID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastStatus pushes a status/stage change to all job subscribers.
func (h *Hub) BroadcastStatus(eventID string, status model.JobStatus, currentStep string) {
	h.send(eventID, model.WSStatusMessage{
		Type:        model.WSMessageTypeStatus,
		EventID:     eventID,
		Status:      status,
		CurrentStep: currentStep,
	})
}

// BroadcastComplete pushes the final result to all job subscribers.
func (h *Hub) BroadcastComplete(eventID string, result *model.JobResult) {
	h.send(eventID, model.WSCompleteMessage{
		Type:    model.WSMessageTypeComplete,
		EventID: eventID,
		Result:  result,
	})
}

// BroadcastError pushes a failure message to all job subscribers.
func (h *Hub) BroadcastError(eventID string, message string) {
	h.send(eventID, model.WSErrorMessage{
		Type:    model.WSMessageTypeError,
		EventID: eventID,
		Error:   message,
	})
}

func (h *Hub) send(eventID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}
	h.broadcast <- &broadcastMessage{eventID: eventID, message: data}
}

// HandleConnection serves one subscriber connection until it closes.
func (h *Hub) HandleConnection(c *websocket.Conn, eventID string) {
	client := &Client{
		EventID: eventID,
		Conn:    c,
		send:    make(chan []byte, 256),
	}

	h.register <- client
	defer func() { h.unregister <- client }()

	// Writer goroutine with keep-alive pings.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop; the only client message we answer is ping.
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			client.trySend(pong)
		}
	}
}
