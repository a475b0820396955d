package handlers

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/handlers/ws"
	"github.com/lumenchat/lumen-backend/internal/middleware"
	"github.com/lumenchat/lumen-backend/internal/service"
)

// AuthHandshakeTimeout bounds how long a fresh connection may sit idle
// before its first (authenticate) frame.
const AuthHandshakeTimeout = 10 * time.Second

type WebSocketHandler struct {
	hub      *ws.Hub
	channels *ws.ChannelRegistry
	typing   *ws.TypingCoordinator
	presence *ws.PresenceTracker

	messageService  *service.MessageService
	chatService     *service.ChatService
	reactionService *service.ReactionService
	readService     *service.ReadService
	userService     *service.UserService

	messageCache *cache.MessageCache
}

func NewWebSocketHandler(
	hub *ws.Hub,
	channels *ws.ChannelRegistry,
	typing *ws.TypingCoordinator,
	presence *ws.PresenceTracker,
	messageService *service.MessageService,
	chatService *service.ChatService,
	reactionService *service.ReactionService,
	readService *service.ReadService,
	userService *service.UserService,
	messageCache *cache.MessageCache,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		channels:        channels,
		typing:          typing,
		presence:        presence,
		messageService:  messageService,
		chatService:     chatService,
		reactionService: reactionService,
		readService:     readService,
		userService:     userService,
		messageCache:    messageCache,
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// GetChannels exposes the broadcast groups so REST handlers can fan out
// events for mutations they perform.
func (h *WebSocketHandler) GetChannels() *ws.ChannelRegistry {
	return h.channels
}

func (h *WebSocketHandler) GetPresence() *ws.PresenceTracker {
	return h.presence
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	sessionID := uuid.NewString()
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	client, userID, ok := h.handshake(c, sessionID, supportsGzip)
	if !ok {
		c.Close()
		return
	}

	defer func() {
		h.channels.LeaveAll(sessionID)
		h.hub.Unregister(sessionID)
	}()

	ctx := &ws.MessageContext{
		UserID:          userID,
		SessionID:       sessionID,
		Conn:            client,
		Hub:             h.hub,
		Channels:        h.channels,
		Typing:          h.typing,
		Presence:        h.presence,
		MessageService:  h.messageService,
		ChatService:     h.chatService,
		ReactionService: h.reactionService,
		ReadService:     h.readService,
		MessageCache:    h.messageCache,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d session %s: %v", userID, sessionID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d session=%s frame_type=%d size=%d", userID, sessionID, messageType, len(messageBytes))
		}

		// Binary frames carry gzip-compressed JSON
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				ws.SendError(client, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			ws.SendError(client, "invalid_message", "Failed to parse message", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing %s from user %d: %v", msg.GetType(), userID, err)
		}
	}
}

// handshake consumes the mandatory first frame. Anything other than a valid
// authenticate message inside the deadline terminates the connection.
func (h *WebSocketHandler) handshake(c *websocket.Conn, sessionID string, supportsGzip bool) (*ws.ClientConnection, uint, bool) {
	c.SetReadDeadline(time.Now().Add(AuthHandshakeTimeout))

	_, frame, err := c.ReadMessage()
	if err != nil {
		log.Printf("Handshake read failed for session %s: %v", sessionID, err)
		return nil, 0, false
	}

	msg, err := ws.Deserialize(frame)
	if err != nil {
		c.WriteJSON(ws.AuthErrorEvent{Type: ws.EventAuthError, Error: "First frame must be authenticate"})
		return nil, 0, false
	}
	auth, ok := msg.(*ws.MessageAuthenticate)
	if !ok {
		c.WriteJSON(ws.AuthErrorEvent{Type: ws.EventAuthError, Error: "First frame must be authenticate"})
		return nil, 0, false
	}

	claims, err := middleware.VerifyToken(auth.Token)
	if err != nil {
		c.WriteJSON(ws.AuthErrorEvent{Type: ws.EventAuthError, Error: "Invalid or expired token"})
		return nil, 0, false
	}

	client, err := h.hub.Register(claims.UserID, sessionID, c, supportsGzip)
	if err != nil {
		c.WriteJSON(ws.AuthErrorEvent{Type: ws.EventAuthError, Error: err.Error()})
		return nil, 0, false
	}

	authenticated := ws.AuthenticatedEvent{Type: ws.EventAuthenticated}
	if user, err := h.userService.GetUser(claims.UserID); err == nil {
		authenticated.User = user.ToResponse()
	} else {
		authenticated.User.ID = claims.UserID
		authenticated.User.Username = claims.Username
	}
	if err := client.WriteJSON(authenticated); err != nil {
		h.hub.Unregister(sessionID)
		return nil, 0, false
	}

	return client, claims.UserID, true
}
