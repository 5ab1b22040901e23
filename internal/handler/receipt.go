package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dvanbeek/boodschap/internal/auth"
	"github.com/dvanbeek/boodschap/internal/model"
	"github.com/dvanbeek/boodschap/internal/receipt"
	"github.com/dvanbeek/boodschap/internal/round"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

// maxReceiptSize caps uploads at 15 MB; phone photos stay well under this.
const maxReceiptSize = 15 << 20

type ReceiptHandler struct {
	rounds  *store.RoundStore
	lines   *store.ReceiptLineStore
	items   *store.ItemStore
	storage receipt.Storage
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewReceiptHandler(rs *store.RoundStore, ls *store.ReceiptLineStore, is *store.ItemStore, st receipt.Storage, hub *ws.Hub, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{rounds: rs, lines: ls, items: is, storage: st, hub: hub, logger: logger}
}

// Upload stores the receipt photo and moves the round from LOCKED to REVIEW
// in one go. Shopper only.
func (h *ReceiptHandler) Upload(w http.ResponseWriter, r *http.Request) {
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
	if !round.CanUploadReceipt(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize)
	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	path, err := h.storage.Save(r.Context(), roundID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.logger.Error("save receipt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store receipt")
		return
	}

	reviewed, err := h.rounds.MarkUnderReview(roundID, path)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.Error("mark under review", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update round")
		return
	}

	h.hub.Broadcast(ws.NewMessage("round", "review", reviewed.ID, map[string]any{
		"receipt_path": path,
	}))
	writeJSON(w, http.StatusOK, reviewed)
}

// AddLine appends an empty line for manual transcription of the paper
// receipt.
func (h *ReceiptHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rnd, ok := h.requireLineEdit(w, r, roundID)
	if !ok {
		return
	}

	line, err := h.lines.Add(rnd.ID)
	if err != nil {
		h.logger.Error("add receipt line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add line")
		return
	}

	h.hub.Broadcast(ws.NewMessage("receipt_line", "created", line.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusCreated, line)
}

func (h *ReceiptHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	lines, err := h.lines.ListByRound(roundID)
	if err != nil {
		h.logger.Error("list receipt lines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list lines")
		return
	}
	if lines == nil {
		lines = []model.ReceiptLine{}
	}
	writeJSON(w, http.StatusOK, lines)
}

type receiptLineUpdate struct {
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
}

// UpdateLine edits whichever fields the request carries. Quantity and unit
// price edits recompute the line total in the store.
func (h *ReceiptHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	line, rnd, ok := h.loadLineAndRound(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireLineEdit(w, r, rnd.ID); !ok {
		return
	}

	var req receiptLineUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.UnitPrice != nil && *req.UnitPrice < 0 {
		writeError(w, http.StatusBadRequest, "unit price must not be negative")
		return
	}

	updated := line
	var err error
	if req.Description != nil {
		if updated, err = h.lines.UpdateDescription(line.ID, *req.Description); err != nil {
			h.logger.Error("update description", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update line")
			return
		}
	}
	if req.Quantity != nil {
		if updated, err = h.lines.UpdateQuantity(line.ID, *req.Quantity); err != nil {
			h.logger.Error("update quantity", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update line")
			return
		}
	}
	if req.UnitPrice != nil {
		if updated, err = h.lines.UpdateUnitPrice(line.ID, *req.UnitPrice); err != nil {
			h.logger.Error("update unit price", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update line")
			return
		}
	}

	h.hub.Broadcast(ws.NewMessage("receipt_line", "updated", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

type matchRequest struct {
	ItemID *int64 `json:"item_id"`
}

// MatchLine links a line to a list item, or clears the link with a null
// item_id.
func (h *ReceiptHandler) MatchLine(w http.ResponseWriter, r *http.Request) {
	line, rnd, ok := h.loadLineAndRound(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireLineEdit(w, r, rnd.ID); !ok {
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.ItemID != nil {
		item, err := h.items.GetByID(*req.ItemID)
		if err != nil {
			h.logger.Error("get item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get item")
			return
		}
		if item == nil || item.RoundID != rnd.ID {
			writeError(w, http.StatusBadRequest, "item does not belong to this round")
			return
		}
	}

	updated, err := h.lines.Match(line.ID, req.ItemID)
	if err != nil {
		h.logger.Error("match line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to match line")
		return
	}

	h.hub.Broadcast(ws.NewMessage("receipt_line", "matched", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

type ignoreRequest struct {
	Ignored bool `json:"ignored"`
}

func (h *ReceiptHandler) IgnoreLine(w http.ResponseWriter, r *http.Request) {
	line, rnd, ok := h.loadLineAndRound(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireLineEdit(w, r, rnd.ID); !ok {
		return
	}

	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updated, err := h.lines.SetIgnored(line.ID, req.Ignored)
	if err != nil {
		h.logger.Error("ignore line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update line")
		return
	}

	h.hub.Broadcast(ws.NewMessage("receipt_line", "updated", updated.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReceiptHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	line, rnd, ok := h.loadLineAndRound(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireLineEdit(w, r, rnd.ID); !ok {
		return
	}

	if err := h.lines.Delete(line.ID); err != nil {
		h.logger.Error("delete line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete line")
		return
	}

	h.hub.Broadcast(ws.NewMessage("receipt_line", "deleted", line.ID, map[string]any{"round_id": rnd.ID}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ReceiptHandler) Summary(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	summary, err := h.lines.Summary(roundID)
	if err != nil {
		h.logger.Error("receipt summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize receipt")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// requireLineEdit loads the round and applies the line-edit gate: shopper
// while LOCKED, anyone during REVIEW.
func (h *ReceiptHandler) requireLineEdit(w http.ResponseWriter, r *http.Request, roundID int64) (*model.Round, bool) {
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
	if !round.CanEditReceiptLines(rnd, auth.UserID(r.Context())) {
		writeDomainError(w, round.ErrNotPermitted)
		return nil, false
	}
	return rnd, true
}

func (h *ReceiptHandler) loadLineAndRound(w http.ResponseWriter, r *http.Request) (*model.ReceiptLine, *model.Round, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, nil, false
	}
	line, err := h.lines.GetByID(id)
	if err != nil {
		h.logger.Error("get receipt line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get line")
		return nil, nil, false
	}
	if line == nil {
		writeError(w, http.StatusNotFound, "receipt line not found")
		return nil, nil, false
	}
	rnd, err := h.rounds.GetByID(line.RoundID)
	if err != nil || rnd == nil {
		h.logger.Error("get round for line", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get round")
		return nil, nil, false
	}
	return line, rnd, true
}
