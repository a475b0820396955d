package cache

import (
	"fmt"
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// PresenceTTL is slightly above the hub's pong timeout so an entry for a
	// crashed process ages out on its own.
	PresenceTTL = 2 * time.Minute
)

// PresenceCache mirrors presence snapshots into Redis so the REST surface
// (and any sidecar process) can read them without touching the tracker.
type PresenceCache struct {
	redis *RedisCache
}

// NewPresenceCache creates a new presence cache
func NewPresenceCache(redis *RedisCache) *PresenceCache {
	return &PresenceCache{redis: redis}
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:%d", userID)
}

// SetPresence stores a presence snapshot and maintains the online users set
func (pc *PresenceCache) SetPresence(state models.PresenceState) error {
	if pc == nil || pc.redis == nil {
		return nil
	}

	data, err := msgpack.Marshal(&state)
	if err != nil {
		return err
	}
	if err := pc.redis.Set(presenceKey(state.UserID), data, PresenceTTL); err != nil {
		return err
	}

	key := "online:users"
	if state.Status == models.StatusOffline {
		return pc.redis.SetRemove(key, state.UserID)
	}
	return pc.redis.SetAdd(key, state.UserID)
}

// GetPresence retrieves a cached presence snapshot
func (pc *PresenceCache) GetPresence(userID uint) (*models.PresenceState, bool) {
	if pc == nil || pc.redis == nil {
		return nil, false
	}

	data, err := pc.redis.Get(presenceKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var state models.PresenceState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, false
	}
	return &state, true
}

// IsUserOnline checks the online users set
func (pc *PresenceCache) IsUserOnline(userID uint) bool {
	if pc == nil || pc.redis == nil {
		return false
	}
	return pc.redis.SetIsMember("online:users", userID)
}

// GetOnlineCount returns the number of users in the online set
func (pc *PresenceCache) GetOnlineCount() (int64, error) {
	if pc == nil || pc.redis == nil {
		return 0, nil
	}
	return pc.redis.SetCard("online:users")
}
