package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dvanbeek/boodschap/internal/allocation"
	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/round"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

type AllocationHandler struct {
	allocs *store.AllocationStore
	items  *store.ItemStore
	rounds *store.RoundStore
	users  *store.UserStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewAllocationHandler(as *store.AllocationStore, is *store.ItemStore, rs *store.RoundStore, us *store.UserStore, hub *ws.Hub, logger *slog.Logger) *AllocationHandler {
	return &AllocationHandler{allocs: as, items: is, rounds: rs, users: us, hub: hub, logger: logger}
}

type allocateRequest struct {
	Mode    string  `json:"mode"` // "full" or "split"
	UserID  int64   `json:"user_id"`
	UserIDs []int64 `json:"user_ids"`
}

// Allocate replaces an item's cost split: the whole price on one user, or an
// even split over the given users. Open to everyone in the household, but
// only while the round is under REVIEW.
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	item, err := h.items.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	rnd, err := h.rounds.GetByID(item.RoundID)
	if err != nil {
		h.logger.Error("get round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return
	}
	if rnd == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}
	if !round.CanAllocate(rnd) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var allocs []model.Allocation
	switch req.Mode {
	case "full":
		if !h.validUsers(w, []int64{req.UserID}) {
			return
		}
		allocs, err = allocation.Full(item, req.UserID)
	case "split":
		if !h.validUsers(w, req.UserIDs) {
			return
		}
		allocs, err = allocation.EqualSplit(item, req.UserIDs)
	default:
		writeError(w, http.StatusBadRequest, "mode must be full or split")
		return
	}
	if err != nil {
		if errors.Is(err, allocation.ErrNoPrice) {
			writeError(w, http.StatusConflict, "item has no estimated price")
			return
		}
		if errors.Is(err, allocation.ErrNoUsers) {
			writeError(w, http.StatusBadRequest, "at least one user required")
			return
		}
		h.logger.Error("build allocation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to allocate")
		return
	}

	saved, err := h.allocs.Replace(item.ID, allocs)
	if err != nil {
		h.logger.Error("replace allocations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save allocations")
		return
	}

	h.hub.Broadcast(ws.NewMessage("allocation", "updated", item.ID, map[string]any{"round_id": item.RoundID}))
	writeJSON(w, http.StatusOK, saved)
}

func (h *AllocationHandler) ListByRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	allocs, err := h.allocs.ListByRound(roundID)
	if err != nil {
		h.logger.Error("list allocations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list allocations")
		return
	}
	if allocs == nil {
		allocs = []model.Allocation{}
	}
	writeJSON(w, http.StatusOK, allocs)
}

// Totals reports where the round's money stands: what each member owes, how
// much of the list is allocated, and the round total being divided. The round
// total is the live sum of item prices, not the stamped settlement figure, so
// the page works while the round is still under review.
func (h *AllocationHandler) Totals(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rnd, err := h.rounds.GetByID(roundID)
	if err != nil {
		h.logger.Error("get round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return
	}
	if rnd == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	roundTotal, err := h.items.EstimatedTotal(roundID)
	if err != nil {
		h.logger.Error("round total", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute totals")
		return
	}

	totals, err := h.allocs.UserTotals(roundID)
	if err != nil {
		h.logger.Error("user totals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute totals")
		return
	}
	if totals == nil {
		totals = []model.UserTotal{}
	}
	allocated, err := h.allocs.Allocated(roundID)
	if err != nil {
		h.logger.Error("allocated sum", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute totals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"round_total": roundTotal,
		"allocated":   allocated,
		"user_totals": totals,
	})
}

func (h *AllocationHandler) validUsers(w http.ResponseWriter, ids []int64) bool {
	for _, id := range ids {
		u, err := h.users.GetByID(id)
		if err != nil {
			h.logger.Error("get user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check user")
			return false
		}
		if u == nil {
			writeError(w, http.StatusBadRequest, "unknown user in allocation")
			return false
		}
	}
	return true
}
