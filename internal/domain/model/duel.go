package model

import "time"

type DuelStatus string

// Duel rooms move starting -> active -> ended, never backwards.
const (
	DuelStarting DuelStatus = "starting"
	DuelActive   DuelStatus = "active"
	DuelEnded    DuelStatus = "ended"
)

// MatchmakingEntry is one user waiting for an opponent. Owned by the
// matchmaking queue; removed on pairing, explicit leave, or disconnect.
type MatchmakingEntry struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"id"`
	Username     string    `json:"username"`
	EnqueuedAt   time.Time `json:"-"`
}

// PowerUpEvent is broadcast-only and never persisted. The type is opaque to
// the server; only the receiving client interprets it.
type PowerUpEvent struct {
	RoomID    string `json:"roomId"`
	Type      string `json:"type"`
	AppliedBy string `json:"appliedBy,omitempty"`
}
