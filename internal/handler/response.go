package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dvanbeek/boodschap/internal/round"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// writeDomainError maps the round package's sentinels onto HTTP statuses:
// a state that does not allow the operation is a conflict, a role failure is
// forbidden.
func writeDomainError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, round.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "round state does not allow this")
		return true
	case errors.Is(err, round.ErrNotPermitted):
		writeError(w, http.StatusForbidden, "not permitted")
		return true
	}
	return false
}
