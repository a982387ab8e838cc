// Package analytics streams live search information to websocket
// observers. The engine behaves identically with zero subscribers; the
// hub drops messages rather than ever blocking a search thread.
package analytics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The hub serves localhost observers; origin checks add nothing.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SearchUpdate is the JSON payload sent to observers.
type SearchUpdate struct {
	Type     string   `json:"type"`
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth,omitempty"`
	MultiPV  int      `json:"multipv,omitempty"`
	ScoreCP  int      `json:"score_cp"`
	MateIn   int      `json:"mate_in,omitempty"`
	Nodes    uint64   `json:"nodes"`
	NPS      uint64   `json:"nps"`
	TimeMS   int64    `json:"time_ms"`
	PV       []string `json:"pv,omitempty"`
	BestMove string   `json:"bestmove,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans search updates out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     zerolog.Logger
	server  *http.Server
}

// NewHub creates an idle hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

// Listen starts serving websocket connections on the given port. Port 0
// disables the hub.
func (h *Hub) Listen(port int) error {
	if port == 0 {
		return nil
	}
	h.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.log.Warn().Err(err).Msg("analytics server stopped")
		}
	}()

	h.log.Info().Int("port", port).Msg("analytics hub listening")
	return nil
}

// Close shuts the server down and disconnects every client.
func (h *Hub) Close() {
	if h.server != nil {
		_ = h.server.Close()
		h.server = nil
	}
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.conn.Close()
}

// readPump drains and discards client traffic so pings keep working, and
// detaches the client on error.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

// Broadcast sends an update to every client, dropping it for clients
// whose buffers are full.
func (h *Hub) Broadcast(update SearchUpdate) {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	msg, err := json.Marshal(update)
	if err != nil {
		h.mu.Unlock()
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	h.mu.Unlock()
}
