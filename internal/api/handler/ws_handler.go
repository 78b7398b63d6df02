package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"algoverse/internal/app/duel"
	"algoverse/internal/app/notifier"
	"algoverse/internal/domain/model"
	"algoverse/internal/realtime"

	"github.com/go-chi/chi/v5"
)

// WSHandler exposes the websocket endpoint and binds the inbound realtime
// events to the duel engine and the submission result topics.
type WSHandler struct {
	hub         *realtime.Hub
	duelManager *duel.Manager
}

func NewWSHandler(hub *realtime.Hub, duelManager *duel.Manager) *WSHandler {
	h := &WSHandler{hub: hub, duelManager: duelManager}
	h.bindEvents()
	return h
}

func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		h.hub.ServeWS(w, req)
	})
}

func (h *WSHandler) bindEvents() {
	h.hub.Handle("joinSubmission", func(connID string, data json.RawMessage) {
		var payload struct {
			SubmissionID string `json:"submissionId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.SubmissionID == "" {
			log.Printf("WARN: joinSubmission with bad payload from %s", connID)
			return
		}
		h.hub.Join(connID, notifier.SubmissionTopic(payload.SubmissionID))
	})

	h.hub.Handle("joinBattleQueue", func(connID string, data json.RawMessage) {
		var payload struct {
			Username string `json:"username"`
			ID       string `json:"id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.Username == "" {
			log.Printf("WARN: joinBattleQueue with bad payload from %s", connID)
			return
		}
		h.duelManager.JoinQueue(context.Background(), model.MatchmakingEntry{
			ConnectionID: connID,
			UserID:       payload.ID,
			Username:     payload.Username,
		})
	})

	h.hub.Handle("leaveBattleQueue", func(connID string, data json.RawMessage) {
		h.duelManager.LeaveQueue(connID)
	})

	h.hub.Handle("usePowerUp", func(connID string, data json.RawMessage) {
		var payload model.PowerUpEvent
		if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
			return
		}
		h.duelManager.UsePowerUp(connID, payload.RoomID, payload.Type)
	})

	h.hub.Handle("submitBattleCode", func(connID string, data json.RawMessage) {
		var payload struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
			return
		}
		h.duelManager.RelayProgress(connID, payload.RoomID, data)
	})

	h.hub.Handle("battleWon", func(connID string, data json.RawMessage) {
		var payload struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
			return
		}
		h.duelManager.ReportWin(connID, payload.RoomID)
	})

	h.hub.OnDisconnect(h.duelManager.HandleDisconnect)
}
