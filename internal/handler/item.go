package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dvanbeek/boodschap/internal/auth"
	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/round"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

type ItemHandler struct {
	items  *store.ItemStore
	rounds *store.RoundStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewItemHandler(is *store.ItemStore, rs *store.RoundStore, hub *ws.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: is, rounds: rs, hub: hub, logger: logger}
}

type itemRequest struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	items, err := h.items.ListByRound(roundID)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Add puts an item on the list directly, merging into the caller's own
// active item of the same name. Allowed for anyone while the round is OPEN
// and for the shopper while it is LOCKED.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	name, quantity, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	rnd, ok := h.loadRound(w, roundID)
	if !ok {
		return
	}
	actorID := auth.UserID(r.Context())
	if !round.CanAddItem(rnd, actorID) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	item, err := h.items.AddOrIncrement(roundID, name, quantity, actorID)
	if err != nil {
		h.logger.Error("add item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "created", item.ID, map[string]any{"round_id": roundID}))
	writeJSON(w, http.StatusCreated, item)
}

// Request files an item for the shopper to approve. Non-shoppers only, while
// LOCKED. The route carries a per-user cooldown on top of this.
func (h *ItemHandler) Request(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	name, quantity, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	rnd, ok := h.loadRound(w, roundID)
	if !ok {
		return
	}
	actorID := auth.UserID(r.Context())
	if !round.CanRequestItem(rnd, actorID) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	item, err := h.items.Request(roundID, name, quantity, actorID)
	if err != nil {
		h.logger.Error("request item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to request item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "requested", item.ID, map[string]any{"round_id": roundID}))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Approve(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}
	if !round.CanReviewRequest(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	approved, err := h.items.Approve(item.ID)
	if err != nil {
		h.logger.Error("approve item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve item")
		return
	}
	if approved == nil {
		writeError(w, http.StatusConflict, "item is not a pending request")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "approved", approved.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, approved)
}

func (h *ItemHandler) Decline(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}
	if !round.CanReviewRequest(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	declined, err := h.items.Decline(item.ID)
	if err != nil {
		h.logger.Error("decline item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decline item")
		return
	}
	if !declined {
		writeError(w, http.StatusConflict, "item is not a pending request")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "declined", item.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

// AdjustQuantity applies a +/- delta. Dropping below one removes the item,
// mirroring the list controls where minus on a single item means "never
// mind".
func (h *ItemHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	if !round.CanAdjustQuantity(rnd, item, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	updated, deleted, err := h.items.AdjustQuantity(item.ID, req.Delta)
	if err != nil {
		h.logger.Error("adjust quantity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to adjust quantity")
		return
	}
	if deleted {
		h.hub.Broadcast(ws.NewMessage("item", "deleted", item.ID, map[string]any{"round_id": rnd.ID}))
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "updated", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

// ToggleCart flips the shopper's in-cart flag.
func (h *ItemHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}
	if !round.CanToggleCart(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	updated, err := h.items.ToggleInCart(item.ID)
	if err != nil {
		h.logger.Error("toggle cart", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle cart")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "updated", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

type priceRequest struct {
	Price float64 `json:"price"`
}

// SetPrice records the estimated price allocation and settlement sum over.
// Shopper while LOCKED, anyone during REVIEW.
func (h *ItemHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	if !round.CanEditPrice(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	updated, err := h.items.SetEstimatedPrice(item.ID, req.Price)
	if err != nil {
		h.logger.Error("set price", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set price")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "updated", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, rnd, ok := h.loadItemAndRound(w, r)
	if !ok {
		return
	}
	if !round.CanDeleteItem(rnd, item, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	if err := h.items.Delete(item.ID); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.hub.Broadcast(ws.NewMessage("item", "deleted", item.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decodeItemRequest validates the add/request body. Quantity defaults to one
// when omitted; a submitted quantity below one is rejected rather than
// silently corrected.
func decodeItemRequest(w http.ResponseWriter, r *http.Request) (name string, quantity int, ok bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return "", 0, false
	}
	name = strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return "", 0, false
	}
	quantity = 1
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "quantity must be at least 1")
			return "", 0, false
		}
		quantity = *req.Quantity
	}
	return name, quantity, true
}

func (h *ItemHandler) loadRound(w http.ResponseWriter, roundID int64) (*model.Round, bool) {
	rnd, err := h.rounds.GetByID(roundID)
	if err != nil {
		h.logger.Error("get round", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return nil, false
	}
	if rnd == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return nil, false
	}
	return rnd, true
}

func (h *ItemHandler) loadItemAndRound(w http.ResponseWriter, r *http.Request) (*model.Item, *model.Round, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}
	item, err := h.items.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return nil, nil, false
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil, nil, false
	}
	rnd, ok := h.loadRound(w, item.RoundID)
	if !ok {
		return nil, nil, false
	}
	return item, rnd, true
}
