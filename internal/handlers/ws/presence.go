package ws

import (
	"log"
	"sync"
	"time"

	"github.com/lumenchat/lumen-backend/internal/cache"
	"github.com/lumenchat/lumen-backend/internal/models"
	"github.com/lumenchat/lumen-backend/internal/repository"
)

// DefaultOfflineGrace is how long an identity with no live sessions stays
// visibly online, absorbing quick reconnects like a tab refresh.
const DefaultOfflineGrace = 30 * time.Second

// PresenceTracker owns the online/away/offline state per identity and fans
// status changes out to the identity's accepted contacts.
type PresenceTracker struct {
	mux           sync.Mutex
	states        map[uint]*models.PresenceState
	offlineTimers map[uint]*time.Timer
	grace         time.Duration

	hub      *Hub
	users    repository.UserRepositoryInterface
	contacts repository.ContactRepositoryInterface
	cache    *cache.PresenceCache
}

func NewPresenceTracker(hub *Hub, users repository.UserRepositoryInterface, contacts repository.ContactRepositoryInterface, presenceCache *cache.PresenceCache, grace time.Duration) *PresenceTracker {
	if grace <= 0 {
		grace = DefaultOfflineGrace
	}
	return &PresenceTracker{
		states:        make(map[uint]*models.PresenceState),
		offlineTimers: make(map[uint]*time.Timer),
		grace:         grace,
		hub:           hub,
		users:         users,
		contacts:      contacts,
		cache:         presenceCache,
	}
}

// MarkOnline transitions an identity to online. Fires on the identity's first
// session; if it was already online nothing is broadcast.
func (p *PresenceTracker) MarkOnline(userID uint) {
	p.mux.Lock()
	p.cancelTimerLocked(userID)
	state := p.ensureLocked(userID)
	if state.Status == models.StatusOnline {
		p.mux.Unlock()
		return
	}
	state.Status = models.StatusOnline
	state.UpdatedAt = time.Now().UTC()
	snapshot := *state
	p.mux.Unlock()

	p.persist(snapshot)
	p.broadcast(snapshot)
}

// ScheduleOffline starts the grace timer after an identity's last session
// closed. A registration before expiry cancels it silently.
func (p *PresenceTracker) ScheduleOffline(userID uint) {
	p.mux.Lock()
	defer p.mux.Unlock()

	p.cancelTimerLocked(userID)
	p.offlineTimers[userID] = time.AfterFunc(p.grace, func() {
		p.setOffline(userID)
	})
}

// CancelScheduledOffline stops a pending offline transition, if any.
func (p *PresenceTracker) CancelScheduledOffline(userID uint) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.cancelTimerLocked(userID)
}

func (p *PresenceTracker) setOffline(userID uint) {
	p.mux.Lock()
	// A session may have registered between timer fire and lock acquisition;
	// the check must happen under the lock or a concurrent Register could be
	// overwritten.
	if p.hub.IsOnline(userID) {
		p.mux.Unlock()
		return
	}
	delete(p.offlineTimers, userID)
	state := p.ensureLocked(userID)
	if state.Status == models.StatusOffline {
		p.mux.Unlock()
		return
	}
	now := time.Now().UTC()
	state.Status = models.StatusOffline
	state.LastSeen = &now
	state.UpdatedAt = now
	snapshot := *state
	p.mux.Unlock()

	p.persist(snapshot)
	p.broadcast(snapshot)
}

// SetManualStatus applies a user-chosen status (away, custom message),
// bypassing the grace logic. Conflicting reports from multiple devices
// resolve last-write-wins by wall-clock timestamp.
func (p *PresenceTracker) SetManualStatus(userID uint, status models.PresenceStatus, statusMessage string, reportedAt time.Time) {
	p.mux.Lock()
	state := p.ensureLocked(userID)
	if reportedAt.Before(state.UpdatedAt) {
		p.mux.Unlock()
		return
	}
	state.Status = status
	state.StatusMessage = statusMessage
	state.UpdatedAt = reportedAt
	snapshot := *state
	p.mux.Unlock()

	p.persist(snapshot)
	p.broadcast(snapshot)
}

// Status returns the tracked presence snapshot for an identity, defaulting to
// offline for identities never seen.
func (p *PresenceTracker) Status(userID uint) models.PresenceState {
	p.mux.Lock()
	defer p.mux.Unlock()

	if state, ok := p.states[userID]; ok {
		return *state
	}
	return models.PresenceState{UserID: userID, Status: models.StatusOffline}
}

// ensureLocked expects p.mux held.
func (p *PresenceTracker) ensureLocked(userID uint) *models.PresenceState {
	state, ok := p.states[userID]
	if !ok {
		state = &models.PresenceState{UserID: userID, Status: models.StatusOffline}
		p.states[userID] = state
	}
	return state
}

// cancelTimerLocked expects p.mux held.
func (p *PresenceTracker) cancelTimerLocked(userID uint) {
	if timer, ok := p.offlineTimers[userID]; ok {
		timer.Stop()
		delete(p.offlineTimers, userID)
	}
}

func (p *PresenceTracker) persist(state models.PresenceState) {
	if p.users != nil {
		if err := p.users.UpdatePresence(state.UserID, state.Status, state.StatusMessage, state.LastSeen); err != nil {
			log.Printf("Failed to persist presence for user %d: %v", state.UserID, err)
		}
	}
	if err := p.cache.SetPresence(state); err != nil {
		log.Printf("Failed to cache presence for user %d: %v", state.UserID, err)
	}
}

// broadcast fans a status change out to the identity's accepted contacts.
func (p *PresenceTracker) broadcast(state models.PresenceState) {
	event := UserStatusEvent{
		Type:          EventUserStatusUpdate,
		UserID:        state.UserID,
		Status:        state.Status,
		StatusMessage: state.StatusMessage,
		LastSeen:      state.LastSeen,
	}

	if p.contacts == nil {
		return
	}
	contactIDs, err := p.contacts.ListAcceptedContactIDs(state.UserID)
	if err != nil {
		log.Printf("Failed to list contacts for user %d: %v", state.UserID, err)
		return
	}
	for _, contactID := range contactIDs {
		p.hub.SendToUser(contactID, event)
	}
}
