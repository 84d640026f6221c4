package model

import (
	"time"

	"github.com/google/uuid"
)

// Brightness is a 0-100 percentage set by the operator. Effective brightness
// applied to the panel also factors in the process-wide max_brightness cap:
// effective = brightness * max_brightness / 100.
type Brightness int

// Clamp returns b clamped to [0, 100].
func (b Brightness) Clamp() Brightness {
	return Brightness(Clamp(int(b), 0, 100))
}

// Effective applies a 0-100 max_brightness cap.
func (b Brightness) Effective(maxBrightness int) int {
	return int(b) * Clamp(maxBrightness, 0, 100) / 100
}

// PreviewSlot is the single outstanding preview session, owned exclusively
// by the Preview Lock Manager.
type PreviewSlot struct {
	Item       DisplayItem
	SessionID  uuid.UUID
	LastPingAt time.Time
}

// EditorLock is the read-only projection of PreviewSlot published on the
// editor topic and returned by status endpoints.
type EditorLock struct {
	Locked   bool       `json:"locked"`
	LockedBy *uuid.UUID `json:"locked_by,omitempty"`
}
