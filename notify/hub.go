package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
	ToastInfo    = "info"
)

// Toast is fire-and-forget feedback shown after a user action.
type Toast struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// Event is the payload written to websocket clients.
type Event struct {
	Type  string    `json:"type"`
	Toast Toast     `json:"toast"`
	At    time.Time `json:"at"`
}

// client wraps a websocket connection with a mutex for safe writes.
type client struct {
	conn   *ws.Conn
	userID uuid.UUID
	mu     sync.Mutex
}

// Hub keeps connected dashboard clients per user and pushes toasts to them.
type Hub struct {
	log      *logrus.Entry
	upgrader ws.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub returns a hub accepting browser upgrades from the given origins.
// "*" allows any origin. With no origins only same-host upgrades pass.
func NewHub(log *logrus.Entry, origins ...string) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &Hub{
		log:     log.WithField("component", "hub"),
		clients: make(map[*client]struct{}),
	}
	if len(origins) > 0 {
		h.upgrader.CheckOrigin = originChecker(origins)
	}
	return h
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests from one of origins.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = struct{}{}
	}
	_, anyOrigin := allowed["*"]
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok && c.conn != nil {
		_ = c.conn.Close()
	}
}

// Connected returns the number of open connections for userID.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.userID == userID {
			n++
		}
	}
	return n
}

// Notify pushes a toast to every connection of userID. Users with no
// connection simply miss it.
func (h *Hub) Notify(userID uuid.UUID, t Toast) {
	data, err := json.Marshal(Event{Type: "toast", Toast: t, At: time.Now()})
	if err != nil {
		h.log.WithError(err).Warn("toast marshal failed")
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, 1)
	for c := range h.clients {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		writeErr := func() (writeErr error) {
			defer func() {
				if r := recover(); r != nil {
					writeErr = fmt.Errorf("ws: write panic: %v", r)
				}
			}()
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			return c.conn.WriteMessage(ws.TextMessage, data)
		}()
		c.mu.Unlock()

		if writeErr != nil {
			h.log.WithError(writeErr).Debug("dropping websocket client")
			h.unregister(c)
		}
	}
}

// Serve upgrades the request and keeps the connection alive with pings
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, userID: userID}
	h.register(c)
	h.log.WithField("user_id", userID).Debug("websocket client connected")

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(5*time.Second))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.unregister(c)
	h.log.WithField("user_id", userID).Debug("websocket client disconnected")
}
