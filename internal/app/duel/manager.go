// Package duel implements the matchmaking queue and the per-match room
// state machine.
package duel

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"algoverse/internal/domain/model"

	"github.com/google/uuid"
)

// Realtime is the slice of the websocket hub the duel engine drives.
type Realtime interface {
	Join(connID, topic string)
	Leave(connID, topic string)
	Send(connID, event string, data interface{})
	Broadcast(topic, event string, data interface{})
	BroadcastExcept(topic, exceptConnID, event string, data interface{})
}

// ProblemPicker selects the problem a duel is fought over.
type ProblemPicker interface {
	FindRandomPublished(ctx context.Context) (*model.Problem, error)
}

// Manager owns the matchmaking FIFO and the room registry. Both are shared
// mutable state across every connection, so every mutation happens under
// one mutex: concurrent joins can never both observe a pairable queue and
// double-pair the same entries. Process-local by design; running more than
// one instance of the duel component needs an external coordination layer.
type Manager struct {
	mu    sync.Mutex
	queue []model.MatchmakingEntry
	rooms map[string]*Room

	rt        Realtime
	problems  ProblemPicker
	countdown time.Duration
}

func NewManager(rt Realtime, problems ProblemPicker, countdown time.Duration) *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		rt:        rt,
		problems:  problems,
		countdown: countdown,
	}
}

type opponentInfo struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

type matchFoundPayload struct {
	RoomID    string       `json:"roomId"`
	ProblemID string       `json:"problemId"`
	Opponent  opponentInfo `json:"opponent"`
}

// JoinQueue appends a waiting player. A connection already queued is
// rejected silently. As soon as two entries are queued, the two oldest are
// paired — strict FIFO, no skill ordering.
func (m *Manager) JoinQueue(ctx context.Context, entry model.MatchmakingEntry) {
	m.mu.Lock()
	for _, queued := range m.queue {
		if queued.ConnectionID == entry.ConnectionID {
			m.mu.Unlock()
			return
		}
	}
	entry.EnqueuedAt = time.Now()
	m.queue = append(m.queue, entry)
	log.Printf("User %s joined battle queue (%d waiting)", entry.Username, len(m.queue))

	if len(m.queue) < 2 {
		m.mu.Unlock()
		return
	}
	p1, p2 := m.queue[0], m.queue[1]
	m.queue = m.queue[2:]
	m.mu.Unlock()

	m.createRoom(ctx, p1, p2)
}

// LeaveQueue removes a waiting player; no-op when absent. Used both for
// explicit cancels and disconnect cleanup.
func (m *Manager) LeaveQueue(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, queued := range m.queue {
		if queued.ConnectionID == connID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// QueueLen reports how many players are waiting.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// GetRoom returns a registered room by id.
func (m *Manager) GetRoom(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// createRoom runs once per matched pair. The pair is already off the queue,
// so the problem lookup happens outside the lock.
func (m *Manager) createRoom(ctx context.Context, p1, p2 model.MatchmakingEntry) {
	problem, err := m.problems.FindRandomPublished(ctx)
	if err != nil {
		// Empty or unreachable catalog fails the match; the players are not
		// requeued and may rejoin.
		log.Printf("ERROR: Failed to pick a duel problem: %v", err)
		payload := map[string]string{"message": "could not start the battle, please rejoin the queue"}
		m.rt.Send(p1.ConnectionID, "matchError", payload)
		m.rt.Send(p2.ConnectionID, "matchError", payload)
		return
	}

	room := &Room{
		ID:        "battle_" + uuid.NewString(),
		Players:   [2]model.MatchmakingEntry{p1, p2},
		Status:    model.DuelStarting,
		ProblemID: problem.ID,
	}

	m.rt.Join(p1.ConnectionID, room.ID)
	m.rt.Join(p2.ConnectionID, room.ID)

	m.mu.Lock()
	m.rooms[room.ID] = room
	// The countdown proceeds regardless of player presence; a disconnect
	// tears the room down through HandleDisconnect instead.
	room.countdown = time.AfterFunc(m.countdown, func() { m.activate(room.ID) })
	m.mu.Unlock()

	m.rt.Send(p1.ConnectionID, "matchFound", matchFoundPayload{
		RoomID: room.ID, ProblemID: problem.ID,
		Opponent: opponentInfo{Username: p2.Username, ID: p2.UserID},
	})
	m.rt.Send(p2.ConnectionID, "matchFound", matchFoundPayload{
		RoomID: room.ID, ProblemID: problem.ID,
		Opponent: opponentInfo{Username: p1.Username, ID: p1.UserID},
	})
	log.Printf("Battle %s created: %s vs %s (problem %s)", room.ID, p1.Username, p2.Username, problem.ID)
}

func (m *Manager) activate(roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok || room.Status != model.DuelStarting {
		m.mu.Unlock()
		return
	}
	room.Status = model.DuelActive
	room.StartTime = time.Now()
	room.countdown = nil
	m.mu.Unlock()

	m.rt.Broadcast(roomID, "battleStart", nil)
}

// UsePowerUp relays an opaque power-up to the opponent. The room applies no
// effect of its own; display is the receiver's responsibility.
func (m *Manager) UsePowerUp(connID, roomID, powerUpType string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	allowed := ok && room.Status == model.DuelActive && room.hasPlayer(connID)
	m.mu.Unlock()
	if !allowed {
		return
	}
	m.rt.BroadcastExcept(roomID, connID, "powerUpApplied", model.PowerUpEvent{Type: powerUpType})
}

// RelayProgress forwards a player's code-run progress to the opponent. Like
// power-ups the payload is opaque; the server neither judges nor stores it.
func (m *Manager) RelayProgress(connID, roomID string, data json.RawMessage) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	allowed := ok && room.Status == model.DuelActive && room.hasPlayer(connID)
	m.mu.Unlock()
	if !allowed {
		return
	}
	m.rt.BroadcastExcept(roomID, connID, "opponentProgress", data)
}

// ReportWin handles a battleWon event. The first report while the room is
// active is authoritative: the reporter wins, the room ends and leaves the
// registry. Reports for a room no longer present are no-ops. Note the win
// is self-declared; the server does not verify the reporter actually solved
// the problem.
func (m *Manager) ReportWin(connID, roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok || room.Status != model.DuelActive || !room.hasPlayer(connID) {
		m.mu.Unlock()
		return
	}
	room.Status = model.DuelEnded
	room.WinnerID = connID
	room.stopCountdown()
	delete(m.rooms, roomID)
	m.mu.Unlock()

	m.rt.Broadcast(roomID, "battleEnded", map[string]string{"winner": connID})
	m.teardown(room)
	log.Printf("Battle %s won by connection %s", roomID, connID)
}

// HandleDisconnect cleans up after a dropped connection: the matchmaking
// entry is removed, and a room the player was in — starting or active — is
// forfeited to the opponent.
func (m *Manager) HandleDisconnect(connID string) {
	m.LeaveQueue(connID)

	m.mu.Lock()
	var forfeited *Room
	for id, room := range m.rooms {
		if room.hasPlayer(connID) {
			room.Status = model.DuelEnded
			if opponent, ok := room.opponentOf(connID); ok {
				room.WinnerID = opponent.ConnectionID
			}
			room.stopCountdown()
			delete(m.rooms, id)
			forfeited = room
			break
		}
	}
	m.mu.Unlock()

	if forfeited != nil {
		m.rt.Broadcast(forfeited.ID, "battleEnded", map[string]string{"winner": forfeited.WinnerID})
		m.teardown(forfeited)
		log.Printf("Battle %s forfeited by connection %s", forfeited.ID, connID)
	}
}

func (m *Manager) teardown(room *Room) {
	m.rt.Leave(room.Players[0].ConnectionID, room.ID)
	m.rt.Leave(room.Players[1].ConnectionID, room.ID)
}
