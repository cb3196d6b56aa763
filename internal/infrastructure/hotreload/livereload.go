package hotreload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadMessage represents a live reload message sent to browsers
type ReloadMessage struct {
	Command   string `json:"command"`
	Path      string `json:"path,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

const writeWait = time.Second

// Hub keeps the websocket connections of open development pages and tells
// them to reload.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger.Named("livereload"),
	}
}

// ServeHTTP upgrades the request and keeps the connection until the page goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ReloadMessage{Command: "hello", Timestamp: time.Now().UnixMilli()}); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readUntilClosed(conn)
}

// Broadcast sends msg to every connected page
func (h *Hub) Broadcast(msg ReloadMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Reload asks every page to reload after path changed
func (h *Hub) Reload(path string) {
	h.Broadcast(ReloadMessage{Command: "reload", Path: path})
}

// ClientCount returns the number of connected pages
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every page
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) readUntilClosed(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket closed", zap.Error(err))
			}
			return
		}
	}
}

// ClientScript connects a page to the hub mounted at path.
func ClientScript(path string) string {
	return `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var socket = new WebSocket(scheme + location.host + "` + path + `");
  socket.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.command === "reload") {
      location.reload();
    }
  };
  socket.onclose = function () {
    setTimeout(function () { location.reload(); }, 2000);
  };
})();
`
}
