package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/lumenchat/lumen-backend/internal/models"
)

// mockContactRepo returns a fixed accepted-contacts list per user.
type mockContactRepo struct {
	contacts map[uint][]uint
}

func (m *mockContactRepo) ListAcceptedContactIDs(userID uint) ([]uint, error) {
	return m.contacts[userID], nil
}

// mockUserRepo records presence writes.
type mockUserRepo struct {
	mu       sync.Mutex
	statuses map[uint]models.PresenceStatus
}

func (m *mockUserRepo) FindByID(id uint) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *mockUserRepo) FindByUsername(username string) (*models.User, error) {
	return &models.User{Username: username}, nil
}

func (m *mockUserRepo) UpdatePresence(userID uint, status models.PresenceStatus, statusMessage string, lastSeen *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[uint]models.PresenceStatus)
	}
	m.statuses[userID] = status
	return nil
}

func newPresenceFixture(grace time.Duration) (*Hub, *PresenceTracker, *mockUserRepo) {
	hub := NewHub()
	users := &mockUserRepo{}
	contacts := &mockContactRepo{contacts: map[uint][]uint{1: {2}}}
	tracker := NewPresenceTracker(hub, users, contacts, nil, grace)
	hub.SetPresence(tracker)
	return hub, tracker, users
}

func TestPresenceOnlineOnFirstConnection(t *testing.T) {
	hub, tracker, _ := newPresenceFixture(time.Minute)

	// user 2 is user 1's contact and is connected to observe the updates
	_, observer := registerConn(t, hub, 2, "sess-observer")

	registerConn(t, hub, 1, "sess-a")

	if !observer.waitForEvent(EventUserStatusUpdate, 1, 500*time.Millisecond) {
		t.Fatal("contact never received the online broadcast")
	}
	var event UserStatusEvent
	if err := observer.lastEvent(&event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if event.UserID != 1 || event.Status != models.StatusOnline {
		t.Errorf("event = %+v, want user 1 online", event)
	}

	// A second device must not rebroadcast online
	registerConn(t, hub, 1, "sess-b")
	time.Sleep(30 * time.Millisecond)
	if got := observer.countEvents(EventUserStatusUpdate); got != 1 {
		t.Errorf("contact got %d status updates, want 1", got)
	}

	if st := tracker.Status(1); st.Status != models.StatusOnline {
		t.Errorf("Status(1) = %q, want online", st.Status)
	}
}

func TestPresenceGracePeriodAbsorbsReconnect(t *testing.T) {
	hub, _, _ := newPresenceFixture(80 * time.Millisecond)

	_, observer := registerConn(t, hub, 2, "sess-observer")
	registerConn(t, hub, 1, "sess-a")
	observer.waitForEvent(EventUserStatusUpdate, 1, 500*time.Millisecond)

	// Drop the sole connection, then reconnect inside the grace window
	hub.Unregister("sess-a")
	time.Sleep(20 * time.Millisecond)
	registerConn(t, hub, 1, "sess-a2")

	time.Sleep(150 * time.Millisecond)
	var event UserStatusEvent
	observer.lastEvent(&event)
	if event.Status == models.StatusOffline {
		t.Error("offline broadcast emitted despite reconnect within grace period")
	}
}

func TestPresenceOfflineAfterGraceExpiry(t *testing.T) {
	hub, tracker, users := newPresenceFixture(60 * time.Millisecond)

	_, observer := registerConn(t, hub, 2, "sess-observer")
	registerConn(t, hub, 1, "sess-a")
	observer.waitForEvent(EventUserStatusUpdate, 1, 500*time.Millisecond)

	hub.Unregister("sess-a")

	if !observer.waitForEvent(EventUserStatusUpdate, 2, 500*time.Millisecond) {
		t.Fatal("no offline broadcast after grace expiry")
	}
	var event UserStatusEvent
	if err := observer.lastEvent(&event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if event.Status != models.StatusOffline {
		t.Errorf("event status = %q, want offline", event.Status)
	}
	if event.LastSeen == nil {
		t.Error("offline broadcast missing last_seen")
	}

	// Exactly one offline broadcast
	time.Sleep(100 * time.Millisecond)
	if got := observer.countEvents(EventUserStatusUpdate); got != 2 {
		t.Errorf("contact got %d status updates, want 2 (online then offline)", got)
	}

	if st := tracker.Status(1); st.Status != models.StatusOffline || st.LastSeen == nil {
		t.Errorf("Status(1) = %+v, want offline with last_seen", st)
	}

	users.mu.Lock()
	persisted := users.statuses[1]
	users.mu.Unlock()
	if persisted != models.StatusOffline {
		t.Errorf("persisted status = %q, want offline", persisted)
	}
}

func TestPresenceManualStatusLastWriteWins(t *testing.T) {
	hub, tracker, _ := newPresenceFixture(time.Minute)

	registerConn(t, hub, 1, "sess-a")

	now := time.Now().UTC()
	tracker.SetManualStatus(1, models.StatusAway, "lunch", now)
	if st := tracker.Status(1); st.Status != models.StatusAway || st.StatusMessage != "lunch" {
		t.Errorf("Status(1) = %+v, want away/lunch", st)
	}

	// A stale report from another device loses
	tracker.SetManualStatus(1, models.StatusOnline, "", now.Add(-time.Second))
	if st := tracker.Status(1); st.Status != models.StatusAway {
		t.Errorf("Status(1) = %q after stale write, want away", st.Status)
	}

	// A newer report wins
	tracker.SetManualStatus(1, models.StatusOnline, "", now.Add(time.Second))
	if st := tracker.Status(1); st.Status != models.StatusOnline {
		t.Errorf("Status(1) = %q after newer write, want online", st.Status)
	}
}

func TestPresenceStatusUnknownUser(t *testing.T) {
	_, tracker, _ := newPresenceFixture(time.Minute)

	if st := tracker.Status(42); st.Status != models.StatusOffline {
		t.Errorf("Status(42) = %q, want offline default", st.Status)
	}
}

// A grace timer can fire concurrently with a reconnect. If the session is
// already registered again when the expiry runs, the transition must be a
// no-op rather than marking a connected user offline.
func TestPresenceExpiryDuringActiveSessionIsNoop(t *testing.T) {
	hub, tracker, users := newPresenceFixture(time.Minute)

	_, observer := registerConn(t, hub, 2, "sess-observer")
	registerConn(t, hub, 1, "sess-a")

	if !observer.waitForEvent(EventUserStatusUpdate, 1, 500*time.Millisecond) {
		t.Fatal("contact never received the online broadcast")
	}

	// Simulate a stale timer expiring after the user reconnected.
	tracker.setOffline(1)

	if st := tracker.Status(1); st.Status != models.StatusOnline {
		t.Errorf("Status(1) = %q, want online after stale expiry", st.Status)
	}
	time.Sleep(30 * time.Millisecond)
	if got := observer.countEvents(EventUserStatusUpdate); got != 1 {
		t.Errorf("contact got %d status updates, want 1 (no offline broadcast)", got)
	}
	users.mu.Lock()
	persisted := users.statuses[1]
	users.mu.Unlock()
	if persisted == models.StatusOffline {
		t.Error("stale expiry must not persist offline for a connected user")
	}
}
