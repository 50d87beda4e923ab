package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snake-arena/backend/internal/auth"
	"github.com/snake-arena/backend/internal/domain"
	"github.com/snake-arena/backend/internal/service"
	"github.com/snake-arena/backend/internal/websocket"
)

// Handler provides HTTP handlers for the arena API
type Handler struct {
	auth        *auth.Service
	leaderboard *service.Leaderboard
	spectate    *service.Spectate
	hub         *websocket.Hub
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *auth.Service,
	leaderboard *service.Leaderboard,
	spectate *service.Spectate,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		auth:        authService,
		leaderboard: leaderboard,
		spectate:    spectate,
		hub:         hub,
		logger:      logger,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(metricsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint for push leaderboard updates
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.With(h.RequireAuth).Post("/logout", h.Logout)
			r.With(h.RequireAuth).Get("/me", h.Me)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.GetLeaderboard)
			r.With(h.RequireAuth).Post("/score", h.SubmitScore)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/active", h.GetActiveGames)
			r.Get("/{id}", h.GetGame)
			r.Get("/{id}/subscribe", h.SubscribeGame)
		})
	})

	return r
}

// corsMiddleware adds CORS headers for the browser front end
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps a domain error to its HTTP status. Conflicts map to
// 400 rather than 409, matching the service's historical wire contract.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err) || domain.IsConflict(err):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsUnauthorized(err):
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.writeError(w, http.StatusUnauthorized, err)
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var creds domain.AuthCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	resp, err := h.auth.Signup(r.Context(), creds)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// Login handles credential verification
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.AuthCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	resp, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Logout acknowledges a logout. Tokens are stateless; the client discards
// its copy and the token ages out on its own.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"description": "Successfully logged out"})
}

// Me returns the authenticated caller's user record
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		h.writeDomainError(w, domain.ErrInvalidToken)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// GetLeaderboard returns the ordered, ranked leaderboard view
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	var mode *domain.GameMode
	if raw := r.URL.Query().Get("gameMode"); raw != "" {
		m, err := domain.ParseGameMode(raw)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		mode = &m
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.leaderboard.Top(r.Context(), mode, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// SubmitScore records a scored attempt for the authenticated user
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		h.writeDomainError(w, domain.ErrInvalidToken)
		return
	}

	var sub domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entry, err := h.leaderboard.Submit(r.Context(), user, sub)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// GetActiveGames returns all currently tracked game snapshots
func (h *Handler) GetActiveGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.spectate.ListActive(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, games)
}

// GetGame returns the current snapshot for one game
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.spectate.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, game)
}

// SubscribeGame opens a server-sent-event stream of full game snapshots, one
// per poll tick, until the game disappears or the client disconnects.
func (h *Handler) SubscribeGame(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	events, err := h.spectate.Subscribe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for game := range events {
		data, err := json.Marshal(game)
		if err != nil {
			h.logger.Error("failed to marshal snapshot event", "game_id", game.ID, "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}
