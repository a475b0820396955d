package validation

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		username string
		want     bool
	}{
		{"alice", true},
		{"  alice  ", true},
		{"al", false},
		{"user_name_42", true},
		{"bad name", false},
		{strings.Repeat("a", 33), false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidateUsername(c.username); got != c.want {
			t.Errorf("ValidateUsername(%q) = %v, want %v", c.username, got, c.want)
		}
	}
}

func TestTrimAndLimit(t *testing.T) {
	if got := TrimAndLimit("  hello  ", 10); got != "hello" {
		t.Errorf("expected trimmed string, got %q", got)
	}
	if got := TrimAndLimit("hello world", 5); got != "hello" {
		t.Errorf("expected truncation, got %q", got)
	}
	// multi-byte runes must not be split
	if got := TrimAndLimit("héllo", 2); got != "hé" {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
	if got := TrimAndLimit("hello", 0); got != "hello" {
		t.Errorf("limit 0 should leave content intact, got %q", got)
	}
}

func TestValidateMessageType(t *testing.T) {
	for _, valid := range []string{"", "text", "image", "file"} {
		if !ValidateMessageType(valid) {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	if ValidateMessageType("video") {
		t.Error("expected unknown type to be rejected")
	}
	// system messages are server-originated and never accepted from clients
	if ValidateMessageType("system") {
		t.Error("expected system type to be rejected from client input")
	}
}

func TestValidateEmoji(t *testing.T) {
	if !ValidateEmoji("👍") {
		t.Error("expected emoji to be valid")
	}
	if ValidateEmoji("") || ValidateEmoji("   ") {
		t.Error("expected blank emoji to be rejected")
	}
	if ValidateEmoji(strings.Repeat("👍", 9)) {
		t.Error("expected oversized emoji payload to be rejected")
	}
}
