// Package preview implements the Preview Lock Manager (C6): a single-slot
// exclusive lease keyed by an opaque v4 UUID session_id, with liveness
// enforced by a background sweeper goroutine. The sweeper loop is grounded
// on the same time.NewTicker + select idiom the teacher's display engine
// uses for its render tick (internal/display/renderer.go's Start(ctx)).
package preview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// Timeout is the idle window after which a preview session with no ping is
// swept away, per spec.md §3/§4.6.
const Timeout = 5 * time.Second

const sweepInterval = 500 * time.Millisecond

// Manager owns the single outstanding PreviewSlot.
type Manager struct {
	mu   sync.Mutex
	slot *model.PreviewSlot
	bus  *bus.Bus
	now  func() time.Time
}

// New returns an empty Manager publishing lock transitions on b.
func New(b *bus.Bus) *Manager {
	return &Manager{bus: b, now: time.Now}
}

func (m *Manager) publishLockLocked() {
	if m.bus == nil {
		return
	}
	lock := model.EditorLock{}
	if m.slot != nil {
		lock.Locked = true
		id := m.slot.SessionID
		lock.LockedBy = &id
	}
	m.bus.Publish(bus.Event{Topic: bus.TopicEditor, Action: "", Data: lock})
}

// Acquire creates a new preview slot holding item, minting a fresh v4 UUID
// session_id. Fails with Conflict if a slot is already held.
func (m *Manager) Acquire(item model.DisplayItem) (model.DisplayItem, uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot != nil {
		return model.DisplayItem{}, uuid.Nil, model.Conflict("a preview session is already active")
	}

	sessionID := uuid.New()
	m.slot = &model.PreviewSlot{Item: item, SessionID: sessionID, LastPingAt: m.now()}
	m.publishLockLocked()
	return item, sessionID, nil
}

// Update replaces the previewed item for the existing session. Does not
// emit an editor event (the lock holder is unchanged), per spec.md §4.6.
func (m *Manager) Update(sessionID uuid.UUID, item model.DisplayItem) (model.DisplayItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot == nil {
		return model.DisplayItem{}, model.NotFound("no preview session is active")
	}
	if m.slot.SessionID != sessionID {
		return model.DisplayItem{}, model.Forbidden("session_id does not own the active preview")
	}
	m.slot.Item = item
	return item, nil
}

// Release clears the slot if sessionID owns it.
func (m *Manager) Release(sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot == nil {
		return model.NotFound("no preview session is active")
	}
	if m.slot.SessionID != sessionID {
		return model.Forbidden("session_id does not own the active preview")
	}
	m.slot = nil
	m.publishLockLocked()
	return nil
}

// Ping refreshes the liveness timestamp for sessionID.
func (m *Manager) Ping(sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot == nil {
		return model.NotFound("no preview session is active")
	}
	if m.slot.SessionID != sessionID {
		return model.Forbidden("session_id does not own the active preview")
	}
	m.slot.LastPingAt = m.now()
	return nil
}

// IsActive reports whether a preview slot is currently held.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot != nil
}

// IsOwner reports whether sessionID owns the active preview slot, if any.
func (m *Manager) IsOwner(sessionID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot != nil && m.slot.SessionID == sessionID
}

// Current returns the item currently held for preview, if any. Used by the
// Display Engine's tick loop to decide whether preview overrides playback.
func (m *Manager) Current() (model.DisplayItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return model.DisplayItem{}, false
	}
	return m.slot.Item, true
}

// Lock returns the current EditorLock projection.
func (m *Manager) Lock() model.EditorLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock := model.EditorLock{}
	if m.slot != nil {
		lock.Locked = true
		id := m.slot.SessionID
		lock.LockedBy = &id
	}
	return lock
}

// Run drives the liveness sweeper until ctx is canceled, clearing any slot
// whose last ping exceeds Timeout. It is the only authority for expiry;
// the acquire/update/release/ping operations above never expire on read.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot == nil {
		return
	}
	if m.now().Sub(m.slot.LastPingAt) > Timeout {
		m.slot = nil
		m.publishLockLocked()
	}
}
