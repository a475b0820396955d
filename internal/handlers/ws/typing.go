package ws

import (
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing entry survives without a refresh.
const DefaultTypingTTL = 2 * time.Second

type typingKey struct {
	chatID uint
	userID uint
}

// TypingCoordinator keeps the ephemeral per-chat set of currently typing
// identities. Entries are never persisted; each expires automatically unless
// refreshed by another typing_start.
type TypingCoordinator struct {
	mux      sync.Mutex
	timers   map[typingKey]*time.Timer
	ttl      time.Duration
	channels *ChannelRegistry
}

func NewTypingCoordinator(channels *ChannelRegistry, ttl time.Duration) *TypingCoordinator {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingCoordinator{
		timers:   make(map[typingKey]*time.Timer),
		ttl:      ttl,
		channels: channels,
	}
}

// Start records that a user is typing in a chat and (re)arms the expiry
// timer. Only the transition into typing is broadcast; refreshes are silent.
// The originator's own connections never receive the event.
func (t *TypingCoordinator) Start(chatID, userID uint) {
	key := typingKey{chatID: chatID, userID: userID}

	t.mux.Lock()
	if timer, ok := t.timers[key]; ok {
		timer.Reset(t.ttl)
		t.mux.Unlock()
		return
	}
	t.timers[key] = time.AfterFunc(t.ttl, func() {
		t.expire(chatID, userID)
	})
	t.mux.Unlock()

	t.channels.BroadcastExceptUser(chatID, userID, UserTypingEvent{
		Type:   EventUserTyping,
		ChatID: chatID,
		UserID: userID,
	})
}

// Stop clears a typing entry before its timer fires.
func (t *TypingCoordinator) Stop(chatID, userID uint) {
	key := typingKey{chatID: chatID, userID: userID}

	t.mux.Lock()
	timer, ok := t.timers[key]
	if ok {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mux.Unlock()

	if !ok {
		return
	}
	t.channels.BroadcastExceptUser(chatID, userID, UserTypingEvent{
		Type:   EventUserStoppedTyping,
		ChatID: chatID,
		UserID: userID,
	})
}

func (t *TypingCoordinator) expire(chatID, userID uint) {
	key := typingKey{chatID: chatID, userID: userID}

	t.mux.Lock()
	if _, ok := t.timers[key]; !ok {
		t.mux.Unlock()
		return
	}
	delete(t.timers, key)
	t.mux.Unlock()

	t.channels.BroadcastExceptUser(chatID, userID, UserTypingEvent{
		Type:   EventUserStoppedTyping,
		ChatID: chatID,
		UserID: userID,
	})
}

// TypingUsers returns who is typing in a chat right now, filtered against the
// current broadcast group so an identity that left mid-type is implicitly
// dropped from the visible set.
func (t *TypingCoordinator) TypingUsers(chatID uint) []uint {
	t.mux.Lock()
	candidates := make([]uint, 0, len(t.timers))
	for key := range t.timers {
		if key.chatID == chatID {
			candidates = append(candidates, key.userID)
		}
	}
	t.mux.Unlock()

	users := make([]uint, 0, len(candidates))
	for _, userID := range candidates {
		if t.channels.HasUser(chatID, userID) {
			users = append(users, userID)
		}
	}
	return users
}
