// Package client is a Go client for the realtime backend. It maintains a
// websocket connection through a reconnection state machine, re-presents
// credentials and re-joins chats after a transport loss, and correlates
// optimistic sends with their server acknowledgments.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// State is the connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribing:
		return "subscribing"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// ErrConnectionLost is returned by Run once MaxAttempts consecutive
// reconnects have failed. The caller decides whether to start a fresh Run.
var ErrConnectionLost = errors.New("connection lost: reconnect attempts exhausted")

var errAuthRejected = errors.New("authentication rejected")

// wireConn is the subset of *websocket.Conn the client uses. Tests
// substitute an in-memory implementation.
type wireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a transport connection. The default uses
// websocket.DefaultDialer.
type DialFunc func(ctx context.Context, url string) (wireConn, error)

func defaultDial(ctx context.Context, url string) (wireConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config controls the connection and its retry policy.
type Config struct {
	URL   string
	Token string

	// Backoff: delay before reconnect attempt n is BackoffBase << (n-1),
	// capped at BackoffMax. After MaxAttempts consecutive failures Run
	// returns ErrConnectionLost.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxAttempts int

	// ResetAfter is how long a connection must stay ready before the
	// attempt counter rewinds to zero.
	ResetAfter time.Duration

	// TypingInterval floors the gap between typing_start frames per chat.
	TypingInterval time.Duration

	Dial  DialFunc
	sleep func(ctx context.Context, d time.Duration) error
}

func (c *Config) withDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.ResetAfter <= 0 {
		c.ResetAfter = 2 * time.Second
	}
	if c.TypingInterval <= 0 {
		c.TypingInterval = time.Second
	}
	if c.Dial == nil {
		c.Dial = defaultDial
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay computes the delay before reconnect attempt n (1-based).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << uint(attempt-1)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Client is a single-identity connection to the realtime backend. All
// exported methods are safe for concurrent use.
type Client struct {
	cfg Config

	mu       sync.Mutex
	state    State
	conn     wireConn
	joined   map[uint]struct{}
	pending  map[string]chan SendResult
	typing   map[uint]*rate.Limiter
	closed   bool
	stateSub func(State)

	events chan ServerEvent
}

func New(cfg Config) *Client {
	cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		joined:  make(map[uint]struct{}),
		pending: make(map[string]chan SendResult),
		typing:  make(map[uint]*rate.Limiter),
		events:  make(chan ServerEvent, 64),
	}
}

// Events delivers inbound server events. The channel is buffered; events
// arriving while the buffer is full are dropped.
func (c *Client) Events() <-chan ServerEvent {
	return c.events
}

// OnStateChange registers a single observer for lifecycle transitions.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.stateSub = fn
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close deliberately tears the connection down. Run returns nil and no
// reconnect is scheduled.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Run drives the connection until Close, context cancellation, or
// reconnect exhaustion. Each involuntary disconnect schedules a retry with
// exponential backoff; the attempt counter resets once a connection has
// held ready for ResetAfter.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		readyAt, err := c.connectOnce(ctx)
		if c.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Clean server-side close; treat like a transport loss.
			err = errors.New("connection closed by server")
		}
		if !readyAt.IsZero() && time.Since(readyAt) >= c.cfg.ResetAfter {
			attempt = 0
		}
		attempt++
		if attempt > c.cfg.MaxAttempts {
			return fmt.Errorf("%w: last error: %v", ErrConnectionLost, err)
		}
		delay := backoffDelay(c.cfg.BackoffBase, c.cfg.BackoffMax, attempt)
		log.Printf("Connection lost (%v); reconnect attempt %d/%d in %s", err, attempt, c.cfg.MaxAttempts, delay)
		if err := c.cfg.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// connectOnce walks disconnected → connecting → authenticating →
// subscribing → ready, then blocks in the read loop until the transport
// drops. It returns when the connection became ready (zero if it never did).
func (c *Client) connectOnce(ctx context.Context) (time.Time, error) {
	c.setState(StateConnecting)
	conn, err := c.cfg.Dial(ctx, c.cfg.URL)
	if err != nil {
		c.dropConnection(nil, err)
		return time.Time{}, err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateAuthenticating)
	if err := c.writeFrame("authenticate", authenticatePayload{Token: c.cfg.Token}); err != nil {
		c.dropConnection(conn, err)
		return time.Time{}, err
	}
	if err := c.awaitAuthenticated(conn); err != nil {
		c.dropConnection(conn, err)
		return time.Time{}, err
	}

	// The server forgets channel membership on disconnect; re-join
	// everything the application was subscribed to.
	c.setState(StateSubscribing)
	for _, chatID := range c.joinedChats() {
		if err := c.writeFrame("join_chat", chatPayload{ChatID: chatID}); err != nil {
			c.dropConnection(conn, err)
			return time.Time{}, err
		}
	}

	c.setState(StateReady)
	readyAt := time.Now()

	err = c.readLoop(conn)
	c.dropConnection(conn, err)
	return readyAt, err
}

func (c *Client) awaitAuthenticated(conn wireConn) error {
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	typ, err := eventType(frame)
	if err != nil {
		return err
	}
	switch typ {
	case "authenticated":
		c.deliver(ServerEvent{Type: typ, Raw: frame})
		return nil
	case "auth_error":
		var ev authErrorEvent
		if err := json.Unmarshal(frame, &ev); err == nil && ev.Error != "" {
			return fmt.Errorf("%w: %s", errAuthRejected, ev.Error)
		}
		return errAuthRejected
	default:
		return fmt.Errorf("unexpected handshake event %q", typ)
	}
}

func (c *Client) readLoop(conn wireConn) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		typ, err := eventType(frame)
		if err != nil {
			log.Printf("Discarding malformed frame: %v", err)
			continue
		}
		c.handleEvent(ServerEvent{Type: typ, Raw: frame})
	}
}

// handleEvent resolves pending sends and forwards everything to the
// application channel.
func (c *Client) handleEvent(ev ServerEvent) {
	if ev.Type == "message_sent" {
		var ack messageSentEvent
		if err := json.Unmarshal(ev.Raw, &ack); err == nil && ack.TempID != "" {
			c.resolvePending(ack.TempID, SendResult{Message: ack.Message})
		}
	}
	c.deliver(ev)
}

func (c *Client) deliver(ev ServerEvent) {
	select {
	case c.events <- ev:
	default:
		log.Printf("Event buffer full, dropping %s", ev.Type)
	}
}

// dropConnection tears down transport state and rejects every pending
// optimistic send. Joined chats stay tracked for resubscription.
func (c *Client) dropConnection(conn wireConn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	orphaned := c.pending
	c.pending = make(map[string]chan SendResult)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if cause == nil {
		cause = errors.New("connection closed")
	}
	for _, ch := range orphaned {
		ch <- SendResult{Err: cause}
	}
	c.setState(StateDisconnected)
}

// JoinChat subscribes to a chat's events. Membership is tracked so a
// reconnect re-joins automatically.
func (c *Client) JoinChat(chatID uint) error {
	c.mu.Lock()
	c.joined[chatID] = struct{}{}
	c.mu.Unlock()
	return c.writeFrame("join_chat", chatPayload{ChatID: chatID})
}

func (c *Client) LeaveChat(chatID uint) error {
	c.mu.Lock()
	delete(c.joined, chatID)
	delete(c.typing, chatID)
	c.mu.Unlock()
	return c.writeFrame("leave_chat", chatPayload{ChatID: chatID})
}

// SendMessage submits a message with a generated tempId and returns a
// channel that resolves when the server acknowledges (or the connection
// drops). The channel has capacity 1; the caller may discard it.
func (c *Client) SendMessage(chatID uint, content string, replyToID *uint) (string, <-chan SendResult, error) {
	tempID := uuid.NewString()
	result := make(chan SendResult, 1)

	c.mu.Lock()
	c.pending[tempID] = result
	c.mu.Unlock()

	err := c.writeFrame("send_message", sendMessagePayload{
		ChatID:    chatID,
		Content:   content,
		ReplyToID: replyToID,
		TempID:    tempID,
	})
	if err != nil {
		c.resolvePending(tempID, SendResult{Err: err})
		return tempID, result, err
	}
	return tempID, result, nil
}

func (c *Client) EditMessage(messageID uint, content string) error {
	return c.writeFrame("edit_message", editMessagePayload{MessageID: messageID, Content: content})
}

func (c *Client) DeleteMessage(messageID uint) error {
	return c.writeFrame("delete_message", deleteMessagePayload{MessageID: messageID})
}

func (c *Client) AddReaction(messageID uint, emoji string) error {
	return c.writeFrame("add_reaction", reactionPayload{MessageID: messageID, Emoji: emoji})
}

func (c *Client) RemoveReaction(messageID uint, emoji string) error {
	return c.writeFrame("remove_reaction", reactionPayload{MessageID: messageID, Emoji: emoji})
}

func (c *Client) MarkRead(chatID uint) error {
	return c.writeFrame("mark_read", chatPayload{ChatID: chatID})
}

func (c *Client) SetStatus(status, statusMessage string) error {
	return c.writeFrame("set_status", setStatusPayload{Status: status, StatusMessage: statusMessage})
}

// TypingStart emits a typing signal, rate-limited per chat so a keystroke
// storm does not flood the server. Suppressed signals are not an error.
func (c *Client) TypingStart(chatID uint) error {
	c.mu.Lock()
	limiter, ok := c.typing[chatID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.cfg.TypingInterval), 1)
		c.typing[chatID] = limiter
	}
	c.mu.Unlock()

	if !limiter.Allow() {
		return nil
	}
	return c.writeFrame("typing_start", chatPayload{ChatID: chatID})
}

func (c *Client) TypingStop(chatID uint) error {
	return c.writeFrame("typing_stop", chatPayload{ChatID: chatID})
}

func (c *Client) writeFrame(msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(serializedFrame{Type: msgType, Payload: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) resolvePending(tempID string, result SendResult) {
	c.mu.Lock()
	ch, ok := c.pending[tempID]
	if ok {
		delete(c.pending, tempID)
	}
	c.mu.Unlock()
	if ok {
		ch <- result
	}
}

func (c *Client) joinedChats() []uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint, 0, len(c.joined))
	for id := range c.joined {
		out = append(out, id)
	}
	return out
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	sub := c.stateSub
	c.mu.Unlock()
	if sub != nil {
		sub(s)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
