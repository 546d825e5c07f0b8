package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/termgate/termgate/internal/bus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventStream pushes gateway events to connected WebSocket clients. It is
// the read-only window into the EventBus: clients only receive, the command
// surface stays on MCP and the REST endpoint.
type EventStream struct {
	eventBus *bus.EventBus
	logger   *logrus.Logger

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewEventStream creates the stream and subscribes it to all bus events.
func NewEventStream(eventBus *bus.EventBus, logger *logrus.Logger) *EventStream {
	es := &EventStream{
		eventBus: eventBus,
		logger:   logger,
		clients:  make(map[*wsClient]bool),
	}

	eventBus.SubscribeAll(es.broadcast)

	return es
}

// HandleConnection upgrades an HTTP request to a WebSocket connection.
func (es *EventStream) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		es.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	es.mu.Lock()
	es.clients[client] = true
	es.mu.Unlock()

	es.logger.Debug("WebSocket client connected")

	go es.writePump(client)
	go es.readPump(client)
}

func (es *EventStream) broadcast(event bus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		es.logger.Errorf("Failed to marshal event %s: %v", event.Type, err)
		return
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	for client := range es.clients {
		select {
		case client.send <- data:
		default:
			// Slow client, skip this event rather than blocking the bus.
		}
	}
}

func (es *EventStream) remove(client *wsClient) {
	es.mu.Lock()
	if _, ok := es.clients[client]; ok {
		delete(es.clients, client)
		close(client.send)
	}
	es.mu.Unlock()
}

// readPump discards client messages; its job is detecting disconnects and
// answering pings.
func (es *EventStream) readPump(client *wsClient) {
	defer func() {
		es.remove(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(1024)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (es *EventStream) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
