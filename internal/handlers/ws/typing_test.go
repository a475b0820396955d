package ws

import (
	"testing"
	"time"
)

func newTypingFixture(t *testing.T, ttl time.Duration) (*TypingCoordinator, *ChannelRegistry, *Hub) {
	t.Helper()
	hub := NewHub()
	channels := NewChannelRegistry(hub)
	return NewTypingCoordinator(channels, ttl), channels, hub
}

func TestTypingBroadcastExcludesOriginator(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, time.Second)

	clientA, connA := registerConn(t, hub, 1, "sess-a")
	clientB, connB := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)

	if connB.countEvents(EventUserTyping) != 1 {
		t.Errorf("peer got %d user_typing events, want 1", connB.countEvents(EventUserTyping))
	}
	if connA.countEvents(EventUserTyping) != 0 {
		t.Error("originator received its own typing event")
	}
}

func TestTypingRefreshDoesNotRebroadcast(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, time.Second)

	clientA, _ := registerConn(t, hub, 1, "sess-a")
	clientB, connB := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)
	typing.Start(7, 1)
	typing.Start(7, 1)

	if connB.countEvents(EventUserTyping) != 1 {
		t.Errorf("peer got %d user_typing events after refreshes, want 1", connB.countEvents(EventUserTyping))
	}
}

func TestTypingAutoExpiry(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, 50*time.Millisecond)

	clientA, _ := registerConn(t, hub, 1, "sess-a")
	clientB, connB := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)
	if got := typing.TypingUsers(7); len(got) != 1 || got[0] != 1 {
		t.Errorf("TypingUsers() = %v, want [1]", got)
	}

	if !connB.waitForEvent(EventUserStoppedTyping, 1, 500*time.Millisecond) {
		t.Fatal("no user_stopped_typing broadcast after expiry")
	}
	if got := typing.TypingUsers(7); len(got) != 0 {
		t.Errorf("TypingUsers() after expiry = %v, want empty", got)
	}
}

func TestTypingRefreshPostponesExpiry(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, 80*time.Millisecond)

	clientA, _ := registerConn(t, hub, 1, "sess-a")
	clientB, connB := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)
	time.Sleep(50 * time.Millisecond)
	typing.Start(7, 1) // refresh rearms the timer
	time.Sleep(50 * time.Millisecond)

	if connB.countEvents(EventUserStoppedTyping) != 0 {
		t.Error("typing expired despite refresh")
	}

	if !connB.waitForEvent(EventUserStoppedTyping, 1, 500*time.Millisecond) {
		t.Fatal("no user_stopped_typing broadcast after refreshed entry expired")
	}
}

func TestTypingExplicitStop(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, time.Second)

	clientA, _ := registerConn(t, hub, 1, "sess-a")
	clientB, connB := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)
	typing.Stop(7, 1)

	if connB.countEvents(EventUserStoppedTyping) != 1 {
		t.Errorf("peer got %d user_stopped_typing events, want 1", connB.countEvents(EventUserStoppedTyping))
	}

	// Stop without a prior start is a silent no-op
	typing.Stop(7, 2)
	if connB.countEvents(EventUserStoppedTyping) != 1 {
		t.Error("stop without start produced a broadcast")
	}
}

func TestTypingUsersFilteredByMembership(t *testing.T) {
	typing, channels, hub := newTypingFixture(t, time.Second)

	clientA, _ := registerConn(t, hub, 1, "sess-a")
	clientB, _ := registerConn(t, hub, 2, "sess-b")
	channels.Join(clientA, 7)
	channels.Join(clientB, 7)

	typing.Start(7, 1)

	// Leaving mid-type implicitly removes the identity from the visible set
	channels.Leave("sess-a", 7)
	if got := typing.TypingUsers(7); len(got) != 0 {
		t.Errorf("TypingUsers() after leave = %v, want empty", got)
	}
}
