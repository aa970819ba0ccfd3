package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/observability"
	"github.com/your-org/ytmerge/pkg/dto"
)

const EventTypeConversion = "conversion"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a connected WebSocket client.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	contentID string // optional filter
}

type message struct {
	contentID string
	data      []byte
}

// Hub maintains active WebSocket clients and broadcasts conversion events.
// Only the Run goroutine touches the client set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop until ctx ends. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "filter", client.contentID)

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				slog.Debug("ws client disconnected")
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.contentID != "" && client.contentID != msg.contentID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Slow reader.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	observability.WSConnections.Dec()
}

// BroadcastConversion queues ev for every interested client. It never blocks;
// events are dropped when the hub is saturated.
func (h *Hub) BroadcastConversion(ev models.ConversionEvent) {
	data, err := json.Marshal(dto.WSEvent{
		Type:      EventTypeConversion,
		ContentID: ev.ContentID,
		Data:      dto.NewConversionResponse(ev),
	})
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	select {
	case h.broadcast <- message{contentID: ev.ContentID, data: data}:
	default:
		slog.Warn("ws broadcast queue full, dropping event", "content_id", ev.ContentID)
	}
}

// HandleWS handles WebSocket upgrade requests. ?vId= restricts the feed to one video.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, 64),
		contentID: c.Query("vId"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump only detects disconnection; clients send nothing.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
