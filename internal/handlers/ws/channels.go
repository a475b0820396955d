package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// ChannelRegistry tracks which sessions are subscribed to which chat's
// broadcast group. Access is verified once at join time; the group is never
// re-validated per message, so removal from a chat takes effect on the next
// join or reconnect.
type ChannelRegistry struct {
	mux    sync.RWMutex
	groups map[uint]map[string]*ClientConnection // chatID -> sessionID
	joined map[string]map[uint]struct{}          // sessionID -> chatIDs

	hub *Hub
}

func NewChannelRegistry(hub *Hub) *ChannelRegistry {
	return &ChannelRegistry{
		groups: make(map[uint]map[string]*ClientConnection),
		joined: make(map[string]map[uint]struct{}),
		hub:    hub,
	}
}

// Join adds a session to a chat's broadcast group. The caller verifies
// participant access first; Join itself is purely in-memory.
func (r *ChannelRegistry) Join(c *ClientConnection, chatID uint) {
	r.mux.Lock()
	defer r.mux.Unlock()

	if r.groups[chatID] == nil {
		r.groups[chatID] = make(map[string]*ClientConnection)
	}
	r.groups[chatID][c.SessionID] = c

	if r.joined[c.SessionID] == nil {
		r.joined[c.SessionID] = make(map[uint]struct{})
	}
	r.joined[c.SessionID][chatID] = struct{}{}
}

// Leave removes a session from a chat's broadcast group. It never touches
// persistent participant state and is always permitted.
func (r *ChannelRegistry) Leave(sessionID string, chatID uint) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.remove(sessionID, chatID)
}

// LeaveAll drops a session from every group, used on disconnect.
func (r *ChannelRegistry) LeaveAll(sessionID string) {
	r.mux.Lock()
	defer r.mux.Unlock()

	for chatID := range r.joined[sessionID] {
		r.remove(sessionID, chatID)
	}
}

// remove expects r.mux held.
func (r *ChannelRegistry) remove(sessionID string, chatID uint) {
	if group, ok := r.groups[chatID]; ok {
		delete(group, sessionID)
		if len(group) == 0 {
			delete(r.groups, chatID)
		}
	}
	if chats, ok := r.joined[sessionID]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(r.joined, sessionID)
		}
	}
}

// Contains reports whether a session is in a chat's broadcast group.
func (r *ChannelRegistry) Contains(chatID uint, sessionID string) bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	_, ok := r.groups[chatID][sessionID]
	return ok
}

// HasUser reports whether any of a user's sessions is in the group.
func (r *ChannelRegistry) HasUser(chatID, userID uint) bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	for _, c := range r.groups[chatID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// MemberUserIDs returns the distinct user ids currently subscribed to a chat.
func (r *ChannelRegistry) MemberUserIDs(chatID uint) []uint {
	r.mux.RLock()
	defer r.mux.RUnlock()

	seen := make(map[uint]struct{})
	ids := make([]uint, 0, len(r.groups[chatID]))
	for _, c := range r.groups[chatID] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}
	return ids
}

// Broadcast sends data to every session in a chat's group.
func (r *ChannelRegistry) Broadcast(chatID uint, data interface{}) {
	r.broadcast(chatID, data, "", 0)
}

// BroadcastExcept sends data to the group, skipping one session. Used for
// new_message so the sending connection gets its ack instead of a duplicate.
func (r *ChannelRegistry) BroadcastExcept(chatID uint, excludeSession string, data interface{}) {
	r.broadcast(chatID, data, excludeSession, 0)
}

// BroadcastExceptUser sends data to the group, skipping every session owned
// by one user. Used for typing and read-receipt events.
func (r *ChannelRegistry) BroadcastExceptUser(chatID uint, excludeUser uint, data interface{}) {
	r.broadcast(chatID, data, "", excludeUser)
}

func (r *ChannelRegistry) broadcast(chatID uint, data interface{}, excludeSession string, excludeUser uint) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling broadcast data for chat %d: %v", chatID, err)
		return
	}

	r.mux.RLock()
	targets := make([]*ClientConnection, 0, len(r.groups[chatID]))
	for sessionID, c := range r.groups[chatID] {
		if sessionID == excludeSession {
			continue
		}
		if excludeUser != 0 && c.UserID == excludeUser {
			continue
		}
		targets = append(targets, c)
	}
	r.mux.RUnlock()

	for _, c := range targets {
		if err := r.hub.sendPayload(c, jsonData); err != nil {
			log.Printf("Error broadcasting to chat %d session %s: %v", chatID, c.SessionID, err)
			r.hub.Unregister(c.SessionID)
			r.LeaveAll(c.SessionID)
		}
	}
}
