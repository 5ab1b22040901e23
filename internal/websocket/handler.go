package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dvanbeek/boodschap/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients. Must run inside RequireAuth so the
// client carries the member's identity for presence.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			return
		}

		client := NewClient(hub, conn, Presence{
			UserID: ac.UserID,
			Name:   ac.Name,
			Color:  ac.Color,
		})
		client.Run(r.Context())
	}
}
