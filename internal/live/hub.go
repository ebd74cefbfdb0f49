package live

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics"
	"github.com/artofscripting/networkvector/internal/scanning"
)

const (
	// WebSocket configuration constants.
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer
	pongWait       = 60 * time.Second    // Time to read next pong message from peer
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer (must be < pongWait)
	maxMessageSize = 512                 // Maximum message size allowed from peer
	bufferSize     = 256                 // Size of the broadcast and per-client queues
)

// Message types sent to live clients.
const (
	TypeHostComplete    = "host_complete"
	TypeProgress        = "progress"
	TypeSessionComplete = "session_complete"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// SessionSummary is the payload of a session_complete message.
type SessionSummary struct {
	ID      string                `json:"id"`
	Targets string                `json:"targets"`
	Phase   scanning.Phase        `json:"phase"`
	Stopped bool                  `json:"stopped"`
	Stats   scanning.SessionStats `json:"stats"`
	Report  string                `json:"report,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans scan events out to connected WebSocket clients. It implements
// scanning.Listener and scanning.ProgressObserver so it can be handed to the
// engine directly.
type Hub struct {
	logger   *logging.Logger
	recorder metrics.Recorder
	upgrader websocket.Upgrader

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
}

var (
	_ scanning.Listener         = (*Hub)(nil)
	_ scanning.ProgressObserver = (*Hub)(nil)
)

// NewHub creates a hub and starts its event loop. With no allowed origins the
// upgrader only accepts same-origin requests; "*" accepts any origin.
func NewHub(allowedOrigins []string, logger *logging.Logger, recorder metrics.Recorder) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	h := &Hub{
		logger:   logger.WithComponent("live-hub"),
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, bufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	go h.run()

	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// ServeWS upgrades the request and streams events until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket connection", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, bufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// run manages client connections and broadcasts.
func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.shutdown:
			h.drain()
			h.mutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mutex.Unlock()
			h.recorder.SetLiveClients(0)
			h.logger.Debug("Live hub shutting down")
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mutex.Unlock()

			h.recorder.SetLiveClients(n)
			h.logger.Debug("Client registered", "remote_addr", c.conn.RemoteAddr().String(), "total_clients", n)

		case c := <-h.unregister:
			h.mutex.Lock()
			removed := h.removeLocked(c)
			n := len(h.clients)
			h.mutex.Unlock()

			if removed {
				h.recorder.SetLiveClients(n)
				h.logger.Debug("Client unregistered", "total_clients", n)
			}

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// drain delivers messages published before shutdown. Each client's queue is
// flushed by its writePump before the close frame.
func (h *Hub) drain() {
	for {
		select {
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		default:
			return
		}
	}
}

func (h *Hub) removeLocked(c *client) bool {
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	return true
}

// broadcastToClients queues message on every client. A client whose queue is
// full is dropped.
func (h *Hub) broadcastToClients(message []byte) {
	h.mutex.Lock()
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.removeLocked(c)
			dropped++
		}
	}
	n := len(h.clients)
	h.mutex.Unlock()

	if dropped > 0 {
		h.recorder.SetLiveClients(n)
		h.logger.Warn("Dropped slow live clients", "dropped", dropped, "total_clients", n)
	}
}

// readPump drains the connection so control frames are processed. Clients
// are not expected to send anything.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket unexpected close", "error", err)
			}
			return
		}
	}
}

// writePump is the only writer on the connection: queued messages and pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("Write failed, closing connection", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("Ping failed, closing connection", "error", err)
				return
			}
		}
	}
}

// Publish queues a message for every connected client. It never blocks: when
// the broadcast queue is full the message is dropped.
func (h *Hub) Publish(messageType string, data any) error {
	payload, err := json.Marshal(Message{
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return errors.WrapScanError(errors.CodeUnknown, "failed to marshal live message", err).
			WithContext("type", messageType)
	}

	select {
	case <-h.done:
		return errors.NewScanError(errors.CodeServiceUnavailable, "live hub is closed")
	default:
	}

	select {
	case h.broadcast <- payload:
		return nil
	default:
		h.logger.Warn("Live broadcast queue full, dropping message", "type", messageType)
		return errors.NewScanError(errors.CodeRateLimited, "live broadcast queue full").
			WithContext("type", messageType)
	}
}

// OnHostComplete publishes a host_complete message.
func (h *Hub) OnHostComplete(host scanning.Host) {
	if err := h.Publish(TypeHostComplete, host); err != nil {
		h.logger.Debug("Host event not delivered", "host", host.Address.String(), "error", err)
	}
}

// OnProgress publishes a progress message.
func (h *Hub) OnProgress(s scanning.ProgressSnapshot) {
	if err := h.Publish(TypeProgress, s); err != nil {
		h.logger.Debug("Progress event not delivered", "error", err)
	}
}

// SessionComplete publishes the final summary of session. reportPath is the
// written artifact, if any.
func (h *Hub) SessionComplete(session *scanning.Session, reportPath string) {
	summary := SessionSummary{
		ID:      session.ID.String(),
		Targets: session.Config.Targets,
		Phase:   session.Phase,
		Stopped: session.Stopped,
		Stats:   session.Stats,
		Report:  reportPath,
	}
	if err := h.Publish(TypeSessionComplete, summary); err != nil {
		h.logger.Debug("Session summary not delivered", "error", err)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the event loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.shutdown)
	})
	<-h.done
}
