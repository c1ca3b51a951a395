package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Masterjii/CodesForTomorrow/internal/auth"
	"github.com/Masterjii/CodesForTomorrow/internal/infrastructure/config"
	"github.com/Masterjii/CodesForTomorrow/internal/infrastructure/logging"
)

// WebSocket event names.
const (
	WSEventJoinRoom        = "joinRoom"
	WSEventClientMessage   = "clientMessage"
	WSEventServerMessage   = "serverMessage"
	WSEventResourceUpdated = "resourceUpdated"
	WSEventJoined          = "joined"
	WSEventPing            = "ping"
	WSEventPong            = "pong"
	WSEventError           = "error"
)

// WSMessage is the wire format for messages in both directions.
type WSMessage struct {
	Event     string `json:"event"`
	Room      string `json:"room,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// wsInbound mirrors WSMessage for parsing, keeping Data raw until the
// event type is known.
type wsInbound struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the payload relayed to other connections for a clientMessage.
type ServerMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// Hub manages WebSocket connections and their room memberships.
//
// Rooms exist only while they have members: joining creates the room on
// demand, and the last member leaving (always implicitly, on disconnect)
// removes it. Joining a room the client is already in is a no-op.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	rooms   map[string]map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	user *auth.User
	// boundRoom is the room given at handshake time, if any. Client
	// messages from this connection are relayed to it; empty means
	// relay to everyone. Immutable after handshake.
	boundRoom string
	// rooms this client joined; guarded by hub.mu alongside hub.rooms.
	rooms map[string]struct{}
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
		rooms:   make(map[string]map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	wsClientsGauge.Inc()
	h.logger.Debug("websocket client connected",
		"user", client.user.Username,
		"clients", h.ClientCount(),
	)
}

// Unregister removes a client from the hub and from every room it
// joined, deleting rooms left empty.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	for room := range client.rooms {
		h.removeFromRoomLocked(client, room)
	}
	h.mu.Unlock()

	if existed {
		close(client.send)
		wsClientsGauge.Dec()
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// JoinRoom adds the client to a room, creating it on first join.
// Re-joining a room the client is already in has no effect.
func (h *Hub) JoinRoom(client *WSClient, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*WSClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// removeFromRoomLocked removes the client from a room and deletes the
// room if it is now empty. Caller must hold h.mu.
func (h *Hub) removeFromRoomLocked(client *WSClient, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	delete(client.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastToRoom sends an event to every member of the given room and
// to nobody else. A room with no members delivers to zero recipients;
// an empty room name means global fan-out.
func (h *Hub) BroadcastToRoom(room, event string, payload any) {
	if room == "" {
		h.Broadcast(event, payload)
		return
	}

	data, err := marshalEvent(event, room, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	// Snapshot recipients under hub lock, then release before sending
	h.mu.RLock()
	members := h.rooms[room]
	recipients := make([]*WSClient, 0, len(members))
	for client := range members {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.trySend(data)
	}
	observeBroadcast(event)
	h.logger.Debug("broadcast sent", "event", event, "room", room, "recipients", len(recipients))
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := marshalEvent(event, "", payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
	observeBroadcast(event)
}

// PublishClientMessage relays a client-originated message as a
// serverMessage carrying the sender's username. A connection bound to a
// room at handshake time relays into that room only; a room-less
// connection relays to every connected client.
func (h *Hub) PublishClientMessage(from *WSClient, message string) {
	payload := ServerMessage{
		User:    from.user.Username,
		Message: message,
	}
	if from.boundRoom != "" {
		h.BroadcastToRoom(from.boundRoom, WSEventServerMessage, payload)
		return
	}
	h.Broadcast(WSEventServerMessage, payload)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of members in a room (0 if the room does
// not exist).
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
		wsClientsGauge.Dec()
	}
	h.rooms = make(map[string]map[*WSClient]struct{})
}

// marshalEvent builds the outbound wire message.
func marshalEvent(event, room string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Event:     event,
		Room:      room,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      payload,
	})
}

// handleWebSocket authenticates and upgrades the HTTP connection.
//
// The handshake reads the token from the Authorization header as
// "Bearer <token>", falling back to the token query parameter. Both the
// missing-token and rejected-token cases refuse the handshake with a 401
// before any upgrade happens, so no connection is ever established for a
// superseded session. A room query parameter joins that room immediately
// and binds the connection's client messages to it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeUnauthorized(w, "no token provided")
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		s.logger.Debug("websocket handshake rejected", "error", err)
		writeUnauthorized(w, "not authorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:   s.hub,
		conn:  conn,
		send:  make(chan []byte, s.wsCfg.SendBufferSize),
		user:  user,
		rooms: make(map[string]struct{}),
	}

	s.hub.Register(client)

	if room := r.URL.Query().Get("room"); room != "" {
		client.boundRoom = room
		s.hub.JoinRoom(client, room)
	}

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid JSON message")
		return
	}

	switch msg.Event {
	case WSEventJoinRoom:
		c.handleJoinRoom(msg)
	case WSEventClientMessage:
		c.handleClientMessage(msg)
	case WSEventPing:
		c.sendEvent(WSEventPong, nil)
	default:
		c.sendError("unknown event: " + msg.Event)
	}
}

// handleJoinRoom subscribes the client to a room.
func (c *WSClient) handleJoinRoom(msg wsInbound) {
	if msg.Room == "" {
		c.sendError("room is required")
		return
	}

	c.hub.JoinRoom(c, msg.Room)
	c.hub.logger.Info("websocket client joined room",
		"user", c.user.Username,
		"room", msg.Room,
	)
	c.sendEvent(WSEventJoined, map[string]string{"room": msg.Room})
}

// handleClientMessage relays a chat-style message, wrapped with the
// sender's username, to the connection's bound room or to all clients.
func (c *WSClient) handleClientMessage(msg wsInbound) {
	var text string
	if err := json.Unmarshal(msg.Data, &text); err != nil {
		// Not a JSON string; relay the raw payload text.
		text = string(msg.Data)
	}
	if text == "" {
		c.sendError("message is required")
		return
	}

	c.hub.PublishClientMessage(c, text)
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendEvent sends a single event to this client only.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendEvent(event string, payload any) {
	data, err := marshalEvent(event, "", payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error event to the client.
func (c *WSClient) sendError(message string) {
	c.sendEvent(WSEventError, map[string]string{"message": message})
}
