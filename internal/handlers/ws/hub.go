package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// ErrIdentityMismatch is returned when a transport session attempts to
// re-register under a different identity.
var ErrIdentityMismatch = errors.New("session registered to a different identity")

// Conn is the transport surface the hub needs from a WebSocket connection.
// *websocket.Conn from gofiber/websocket satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Frame types, mirroring the websocket package constants.
const (
	TextMessage   = 1
	BinaryMessage = 2
	PingMessage   = 9
)

// ClientConnection wraps one authenticated WebSocket session with metadata.
// A single identity may own several ClientConnections at once (multi-device).
type ClientConnection struct {
	Conn         Conn
	SessionID    string
	UserID       uint
	ConnectedAt  time.Time
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}

	writeMux sync.Mutex
}

// WriteJSON marshals and sends a frame, serializing writes per connection.
func (c *ClientConnection) WriteJSON(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.writeFrame(TextMessage, jsonData)
}

func (c *ClientConnection) writeFrame(frameType int, data []byte) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	return c.Conn.WriteMessage(frameType, data)
}

// Hub is the connection registry: it maps verified identities to their live
// sessions and owns connection health checking. Presence transitions hang off
// registration changes.
type Hub struct {
	sessions   map[string]*ClientConnection
	byUser     map[uint]map[string]*ClientConnection
	clientsMux sync.RWMutex

	presence *PresenceTracker

	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a new Hub instance and starts its health checker.
func NewHub() *Hub {
	hub := &Hub{
		sessions:     make(map[string]*ClientConnection),
		byUser:       make(map[uint]map[string]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// SetPresence wires the presence tracker in after construction; the tracker
// itself needs the hub to fan status updates out.
func (h *Hub) SetPresence(p *PresenceTracker) {
	h.presence = p
}

// Register adds an authenticated session. The first session for an identity
// marks it online; a rapid reconnect cancels any pending offline transition.
func (h *Hub) Register(userID uint, sessionID string, conn Conn, supportsGzip bool) (*ClientConnection, error) {
	clientConn := &ClientConnection{
		Conn:         conn,
		SessionID:    sessionID,
		UserID:       userID,
		ConnectedAt:  time.Now(),
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	h.clientsMux.Lock()
	if existing, ok := h.sessions[sessionID]; ok && existing.UserID != userID {
		h.clientsMux.Unlock()
		clientConn.PingTicker.Stop()
		return nil, ErrIdentityMismatch
	}
	h.sessions[sessionID] = clientConn
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[string]*ClientConnection)
	}
	h.byUser[userID][sessionID] = clientConn
	first := len(h.byUser[userID]) == 1
	total := len(h.sessions)
	h.clientsMux.Unlock()

	conn.SetPongHandler(func(appData string) error {
		h.clientsMux.Lock()
		clientConn.LastPong = time.Now()
		h.clientsMux.Unlock()
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	go h.pingRoutine(clientConn)

	if h.presence != nil {
		h.presence.CancelScheduledOffline(userID)
		if first {
			h.presence.MarkOnline(userID)
		}
	}

	log.Printf("User %d session %s connected to hub (total: %d, gzip: %v)", userID, sessionID, total, supportsGzip)
	return clientConn, nil
}

// Unregister removes a session. Closing an identity's last session schedules
// the delayed offline transition rather than flipping presence immediately.
func (h *Hub) Unregister(sessionID string) {
	h.clientsMux.Lock()
	clientConn, ok := h.sessions[sessionID]
	if !ok {
		h.clientsMux.Unlock()
		return
	}
	clientConn.PingTicker.Stop()
	close(clientConn.CloseChan)
	delete(h.sessions, sessionID)
	delete(h.byUser[clientConn.UserID], sessionID)
	last := len(h.byUser[clientConn.UserID]) == 0
	if last {
		delete(h.byUser, clientConn.UserID)
	}
	total := len(h.sessions)
	h.clientsMux.Unlock()

	if last && h.presence != nil {
		h.presence.ScheduleOffline(clientConn.UserID)
	}

	log.Printf("User %d session %s disconnected from hub (total: %d)", clientConn.UserID, sessionID, total)
}

// Session returns the connection for a transport session id, if live.
func (h *Hub) Session(sessionID string) (*ClientConnection, bool) {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	c, ok := h.sessions[sessionID]
	return c, ok
}

// ConnectionsFor returns every live session owned by an identity.
func (h *Hub) ConnectionsFor(userID uint) []*ClientConnection {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	conns := make([]*ClientConnection, 0, len(h.byUser[userID]))
	for _, c := range h.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline checks if a user has at least one live session.
func (h *Hub) IsOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.byUser[userID]) > 0
}

// OnlineUsers returns the ids of all users with a live session.
func (h *Hub) OnlineUsers() []uint {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	users := make([]uint, 0, len(h.byUser))
	for userID := range h.byUser {
		users = append(users, userID)
	}
	return users
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.sessions)
}

// SendToUser sends data to every session of a user.
func (h *Hub) SendToUser(userID uint, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling data for user %d: %v", userID, err)
		return err
	}

	for _, clientConn := range h.ConnectionsFor(userID) {
		if err := h.sendPayload(clientConn, jsonData); err != nil {
			log.Printf("Error sending to user %d session %s: %v", userID, clientConn.SessionID, err)
			h.Unregister(clientConn.SessionID)
		}
	}
	return nil
}

// sendPayload writes a marshaled frame, compressing when the client
// negotiated gzip and the payload is large enough to benefit.
func (h *Hub) sendPayload(c *ClientConnection, jsonData []byte) error {
	finalData := jsonData
	frameType := TextMessage
	if c.SupportsGzip && len(jsonData) > 512 {
		if compressed, err := compressData(jsonData); err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = BinaryMessage
		}
	}
	return c.writeFrame(frameType, finalData)
}

// pingRoutine sends periodic ping frames to keep the connection alive.
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for session %s: %v", client.SessionID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			if err := client.Conn.WriteControl(PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for session %s: %v", client.SessionID, err)
				h.Unregister(client.SessionID)
				return
			}
		}
	}
}

// connectionHealthChecker removes sessions that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		dead := make([]string, 0)
		now := time.Now()
		for sessionID, client := range h.sessions {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, sessionID)
			}
		}
		h.clientsMux.RUnlock()

		for _, sessionID := range dead {
			log.Printf("Removing dead session %s (no pong received)", sessionID)
			h.Unregister(sessionID)
		}
	}
}

// compressData compresses data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecompressMessage decompresses a gzip binary frame from a client.
func DecompressMessage(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
