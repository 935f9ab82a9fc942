package ws

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Hub fans live updates out to connected POS and back-office screens.
// Broadcast reaches every client; SendToUsers targets specific user ids.
type Hub struct {
	Register   chan *Client
	Unregister chan *websocket.Conn
	Broadcast  chan []byte

	clients map[*websocket.Conn]string // conn -> user id
	mutex   sync.Mutex
	logger  *zap.Logger
}

// Client pairs a connection with the authenticated user it belongs to.
type Client struct {
	Conn   *websocket.Conn
	UserID string
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte),
		clients:    make(map[*websocket.Conn]string),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.Register:
			h.mutex.Lock()
			h.clients[c.Conn] = c.UserID
			h.mutex.Unlock()
			h.logger.Info("ws client connected", zap.String("user_id", c.UserID))

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// SendToUsers writes a message only to connections owned by the given user ids.
func (h *Hub) SendToUsers(userIDs []string, message []byte) {
	targets := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		targets[id] = true
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, userID := range h.clients {
		if !targets[userID] {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
