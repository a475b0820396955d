package cache

import (
	"fmt"
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	HistoryTTL     = 5 * time.Minute
	UnreadCountTTL = 1 * time.Minute
)

// MessageCache keeps the hot page of chat history in Redis so the REST
// history endpoint rarely hits Postgres for active chats.
type MessageCache struct {
	redis *RedisCache
}

// NewMessageCache creates a new message cache
func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func historyKey(chatID uint) string {
	return fmt.Sprintf("history:%d", chatID)
}

func unreadKey(chatID, userID uint) string {
	return fmt.Sprintf("unread:%d:%d", chatID, userID)
}

// GetHistory retrieves the cached first page of a chat's history
func (mc *MessageCache) GetHistory(chatID uint) ([]models.Message, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}

	data, err := mc.redis.Get(historyKey(chatID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetHistory caches the first page of a chat's history
func (mc *MessageCache) SetHistory(chatID uint, messages []models.Message) error {
	if mc == nil || mc.redis == nil {
		return nil
	}

	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return mc.redis.Set(historyKey(chatID), data, HistoryTTL)
}

// InvalidateHistory removes a chat's cached history. Called on every send,
// edit, delete and reaction change so the cache never serves stale pages.
func (mc *MessageCache) InvalidateHistory(chatID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(historyKey(chatID))
}

// GetUnreadCount retrieves a cached unread count
func (mc *MessageCache) GetUnreadCount(chatID, userID uint) (int64, bool) {
	if mc == nil || mc.redis == nil {
		return 0, false
	}

	data, err := mc.redis.Get(unreadKey(chatID, userID))
	if err != nil || data == nil {
		return 0, false
	}

	var count int64
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches unread count
func (mc *MessageCache) SetUnreadCount(chatID, userID uint, count int64) error {
	if mc == nil || mc.redis == nil {
		return nil
	}

	data, err := msgpack.Marshal(count)
	if err != nil {
		return err
	}
	return mc.redis.Set(unreadKey(chatID, userID), data, UnreadCountTTL)
}

// InvalidateUnreadCount removes unread count from cache
func (mc *MessageCache) InvalidateUnreadCount(chatID, userID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(unreadKey(chatID, userID))
}
