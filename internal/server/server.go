package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dvanbeek/boodschap/internal/handler"
	"github.com/dvanbeek/boodschap/internal/middleware"
	"github.com/dvanbeek/boodschap/internal/receipt"
	"github.com/dvanbeek/boodschap/internal/store"
	ws "github.com/dvanbeek/boodschap/internal/websocket"
)

const (
	loginLimit      = 10
	loginWindow     = time.Minute
	requestCooldown = 5 * time.Second
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	roundH      *handler.RoundHandler
	itemH       *handler.ItemHandler
	receiptH    *handler.ReceiptHandler
	allocH      *handler.AllocationHandler
	userStore   *store.UserStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, receiptStorage receipt.Storage, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	roundStore := store.NewRoundStore(db)
	itemStore := store.NewItemStore(db)
	lineStore := store.NewReceiptLineStore(db)
	allocStore := store.NewAllocationStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, hub, logger.With("component", "auth")),
		roundH:      handler.NewRoundHandler(roundStore, itemStore, hub, logger.With("component", "round")),
		itemH:       handler.NewItemHandler(itemStore, roundStore, hub, logger.With("component", "item")),
		receiptH:    handler.NewReceiptHandler(roundStore, lineStore, itemStore, receiptStorage, hub, logger.With("component", "receipt")),
		allocH:      handler.NewAllocationHandler(allocStore, itemStore, roundStore, userStore, hub, logger.With("component", "allocation")),
		userStore:   userStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the WebSocket hub for out-of-band broadcasts.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	loginLimited := middleware.LimitByIP(s.rateLimiter, loginLimit, loginWindow)
	outerMux.Handle("POST /login", loginLimited(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("POST /logout", s.authH.Logout)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session + users
	mux.HandleFunc("GET /api/session", s.authH.Session)
	mux.HandleFunc("GET /api/users", s.authH.ListUsers)

	// Round lifecycle
	mux.HandleFunc("GET /api/rounds/current", s.roundH.Current)
	mux.HandleFunc("GET /api/rounds", s.roundH.History)
	mux.HandleFunc("GET /api/rounds/{id}", s.roundH.Get)
	mux.HandleFunc("POST /api/rounds/{id}/lock", s.roundH.Lock)
	mux.HandleFunc("POST /api/rounds/{id}/unlock", s.roundH.Unlock)
	mux.HandleFunc("POST /api/rounds/{id}/settle", s.roundH.Settle)

	// Items
	mux.HandleFunc("GET /api/rounds/{id}/items", s.itemH.List)
	mux.HandleFunc("POST /api/rounds/{id}/items", s.itemH.Add)
	cooldown := middleware.CooldownByUser(s.rateLimiter, requestCooldown)
	mux.Handle("POST /api/rounds/{id}/requests", cooldown(http.HandlerFunc(s.itemH.Request)))
	mux.HandleFunc("POST /api/items/{id}/approve", s.itemH.Approve)
	mux.HandleFunc("POST /api/items/{id}/decline", s.itemH.Decline)
	mux.HandleFunc("POST /api/items/{id}/quantity", s.itemH.AdjustQuantity)
	mux.HandleFunc("POST /api/items/{id}/cart", s.itemH.ToggleCart)
	mux.HandleFunc("PUT /api/items/{id}/price", s.itemH.SetPrice)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)

	// Receipt reconciliation
	mux.HandleFunc("POST /api/rounds/{id}/receipt", s.receiptH.Upload)
	mux.HandleFunc("GET /api/rounds/{id}/receipt-lines", s.receiptH.ListLines)
	mux.HandleFunc("POST /api/rounds/{id}/receipt-lines", s.receiptH.AddLine)
	mux.HandleFunc("GET /api/rounds/{id}/receipt-summary", s.receiptH.Summary)
	mux.HandleFunc("PUT /api/receipt-lines/{id}", s.receiptH.UpdateLine)
	mux.HandleFunc("POST /api/receipt-lines/{id}/match", s.receiptH.MatchLine)
	mux.HandleFunc("POST /api/receipt-lines/{id}/ignore", s.receiptH.IgnoreLine)
	mux.HandleFunc("DELETE /api/receipt-lines/{id}", s.receiptH.DeleteLine)

	// Allocations
	mux.HandleFunc("POST /api/items/{id}/allocate", s.allocH.Allocate)
	mux.HandleFunc("GET /api/rounds/{id}/allocations", s.allocH.ListByRound)
	mux.HandleFunc("GET /api/rounds/{id}/totals", s.allocH.Totals)

	// Realtime
	mux.Handle("GET /ws", ws.HandleWebSocket(s.hub))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
