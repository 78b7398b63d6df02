package duel

import (
	"time"

	"algoverse/internal/domain/model"
)

// Room is one live 1v1 match. It moves starting -> active -> ended and is
// removed from the registry the moment it ends; there is no re-entry and no
// spectating. All field access goes through the Manager's mutex.
type Room struct {
	ID        string
	Players   [2]model.MatchmakingEntry
	Status    model.DuelStatus
	ProblemID string
	StartTime time.Time
	WinnerID  string // connection id of the winner, set once

	countdown *time.Timer
}

func (r *Room) hasPlayer(connID string) bool {
	return r.Players[0].ConnectionID == connID || r.Players[1].ConnectionID == connID
}

func (r *Room) opponentOf(connID string) (model.MatchmakingEntry, bool) {
	switch connID {
	case r.Players[0].ConnectionID:
		return r.Players[1], true
	case r.Players[1].ConnectionID:
		return r.Players[0], true
	}
	return model.MatchmakingEntry{}, false
}

// stopCountdown cancels the pending activation timer, if any. Called on
// every teardown path so a dead room can never broadcast battleStart.
func (r *Room) stopCountdown() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}
