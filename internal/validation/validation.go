package validation

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func ValidateUsername(username string) bool {
	return usernameRe.MatchString(NormalizeUsername(username))
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

// TrimAndLimit collapses surrounding whitespace and truncates to limit
// runes. Truncation never splits a multi-byte character.
func TrimAndLimit(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

// ValidateMessageType accepts the types a client may send. The system type
// is deliberately absent: those messages are server-originated only.
func ValidateMessageType(messageType string) bool {
	switch messageType {
	case "", "text", "image", "file":
		return true
	}
	return false
}

func ValidateEmoji(emoji string) bool {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return false
	}
	return len([]rune(emoji)) <= 8
}
