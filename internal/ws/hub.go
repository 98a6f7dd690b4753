package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
)

// Hub mantiene las consolas conectadas y les reparte eventos.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// La app sirve API y consola desde el mismo host; el chequeo de
			// origen queda en el middleware de sesión.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleConnection hace el upgrade y arranca las bombas de lectura/escritura.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn)
	h.register(c)

	// Ack de conexión antes de cualquier evento de negocio.
	c.enqueue(domain.NewEvent(domain.EventConnected, nil))

	go c.writePump()
	go c.readPump()
}

// Broadcast reparte el evento a todas las consolas; implementa
// service.Broadcaster.
func (h *Hub) Broadcast(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(event)
	}
}

// ClientCount informa cuántas consolas están conectadas.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("console connected", zap.Int("total", total))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		close(c.send)
		h.logger.Info("console disconnected", zap.Int("total", total))
	}
}
