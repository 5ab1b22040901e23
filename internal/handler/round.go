package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dvanbeek/boodschap/internal/auth"
	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/round"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

type RoundHandler struct {
	rounds *store.RoundStore
	items  *store.ItemStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewRoundHandler(rs *store.RoundStore, is *store.ItemStore, hub *ws.Hub, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{rounds: rs, items: is, hub: hub, logger: logger}
}

// Current returns the single current round, creating a fresh OPEN one when
// the household has none, together with its items.
func (h *RoundHandler) Current(w http.ResponseWriter, r *http.Request) {
	current, err := h.rounds.Current()
	if err != nil {
		h.logger.Error("current round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load current round")
		return
	}

	items, err := h.items.ListByRound(current.ID)
	if err != nil {
		h.logger.Error("list round items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"round": current,
		"items": items,
	})
}

func (h *RoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rnd, err := h.rounds.GetByID(id)
	if err != nil {
		h.logger.Error("get round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return
	}
	if rnd == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}
	writeJSON(w, http.StatusOK, rnd)
}

func (h *RoundHandler) History(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.rounds.History()
	if err != nil {
		h.logger.Error("round history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rounds")
		return
	}
	if rounds == nil {
		rounds = []model.Round{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

// Lock starts a shopping trip: the caller becomes the shopper. The store's
// guarded update decides races, so two near-simultaneous lockers get one
// winner and one conflict.
func (h *RoundHandler) Lock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	locked, err := h.rounds.Lock(id, auth.UserID(r.Context()))
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.Error("lock round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to lock round")
		return
	}

	h.hub.Broadcast(ws.NewMessage("round", "locked", locked.ID, map[string]any{
		"locked_by_user_id": *locked.LockedByUserID,
	}))
	writeJSON(w, http.StatusOK, locked)
}

// Unlock cancels the trip and reopens the round. Shopper only.
func (h *RoundHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	opened, err := h.rounds.Unlock(id, auth.UserID(r.Context()))
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.Error("unlock round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to unlock round")
		return
	}

	h.hub.Broadcast(ws.NewMessage("round", "unlocked", opened.ID, nil))
	writeJSON(w, http.StatusOK, opened)
}

// Settle closes out a REVIEW round and opens the next one. Anyone in the
// household may settle; the caller is recorded as the reviewer.
func (h *RoundHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rnd, err := h.rounds.GetByID(id)
	if err != nil {
		h.logger.Error("get round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return
	}
	if rnd == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}
	if !round.CanTransition(rnd.State, model.RoundSettled) {
		writeDomainError(w, round.ErrInvalidTransition)
		return
	}

	// Body is optional; a note, when present, is stamped on the round.
	var req struct {
		Note *string `json:"note"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	settled, next, err := h.rounds.Settle(id, auth.UserID(r.Context()), req.Note)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.Error("settle round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to settle round")
		return
	}

	h.hub.Broadcast(ws.NewMessage("round", "settled", settled.ID, map[string]any{
		"total_amount":  settled.TotalAmount,
		"next_round_id": next.ID,
	}))
	writeJSON(w, http.StatusOK, map[string]any{
		"round": settled,
		"next":  next,
	})
}
