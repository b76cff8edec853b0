package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"geopoint/database"
	"geopoint/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // clients are native apps, not browsers
	},
}

// Client represents one WebSocket connection. Username is empty until the
// connection has an authenticated identity.
type Client struct {
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	done     chan struct{}
	limiter  *rate.Limiter
	server   *Server
}

// Hub maps authenticated usernames to their live connections. A user may
// hold several connections at once (multi-device). The hub is the only
// place the mapping is mutated.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
}

// NewHub creates an empty session directory
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Client]struct{})}
}

// Register adds a connection under the given username
func (h *Hub) Register(username string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[username]
	if !ok {
		set = make(map[*Client]struct{})
		h.sessions[username] = set
	}
	set[c] = struct{}{}
}

// Deregister removes a connection; a no-op if it was never registered or
// was already removed concurrently
func (h *Hub) Deregister(c *Client) {
	if c.Username == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[c.Username]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.sessions, c.Username)
	}
}

// IsOnline checks if a user has at least one live connection
func (h *Hub) IsOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[username]
	return ok
}

// Notify pushes an unsolicited frame to every live connection of the
// user. Delivery is best effort: a slow or closed connection is skipped
// and never fails the caller.
func (h *Hub) Notify(username, code string, data interface{}) {
	payload, err := json.Marshal(models.Success(models.PushID, code, data))
	if err != nil {
		log.Printf("Error marshaling push %s: %v", code, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[username] {
		c.push(payload)
	}
}

// reply serializes a response and queues it on this connection
func (c *Client) reply(resp models.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshaling reply: %v", err)
		return
	}
	c.push(payload)
}

// push queues a raw frame, dropping it if the connection is gone or its
// buffer is full
func (c *Client) push(payload []byte) {
	select {
	case <-c.done:
	default:
		select {
		case c.Send <- payload:
		default:
		}
	}
}

// HandleWebSocket handles connection establishment. With username and
// password query parameters the connection opens authenticated; without
// them it opens as a guest usable for register/activate.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")

	authenticated := false
	if username != "" {
		user, err := database.GetUserByUsername(username)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			http.Error(w, `{"error": "Invalid username or password"}`, http.StatusUnauthorized)
			return
		}
		authenticated = true
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		Conn:    conn,
		Send:    make(chan []byte, 256),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(20), 40),
		server:  s,
	}

	if authenticated {
		client.Username = username
		s.Hub.Register(username, client)
		client.reply(models.Success(models.PushID, "AUTH_SUCCESS", username))
	} else {
		client.reply(models.Success(models.PushID, "GUEST_SESSION", nil))
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		// Deregister before anything else so no further notification
		// is addressed to this connection.
		c.server.Hub.Deregister(c)
		close(c.done)
		c.Conn.Close()
	}()

	for {
		c.limiter.Wait(context.Background())

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// One task per inbound frame; a stalled handler never blocks
		// the read loop.
		go c.server.Dispatch(c, message)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for {
		select {
		case message := <-c.Send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
