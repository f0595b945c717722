package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhub/internal/api/handler"
	"github.com/mcoot/roomhub/internal/api/response"
	"github.com/mcoot/roomhub/internal/notify"
	"github.com/mcoot/roomhub/internal/services/auth"
	"github.com/mcoot/roomhub/internal/services/room"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Engine      *room.Engine
	Notifier    notify.Notifier
	// WebSocket serves GET /ws. It is mounted outside the API middleware so the
	// long-lived connection is not logged as one request.
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(cfg.Logger)
	}

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, notifier, cfg.Logger)
	roomHandler := handler.NewRoomHandler(cfg.Engine, notifier, cfg.Logger)
	gameHandler := handler.NewGameHandler(cfg.Engine)
	health := healthHandler(cfg.Engine)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware(cfg.Logger))
	api.Use(loggingMiddleware(cfg.Logger))

	// Player routes
	api.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)

	// Room routes
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/code/{code}", roomHandler.GetByCode).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/current-game", roomHandler.SetCurrentGame).Methods(http.MethodPut)
	api.HandleFunc("/rooms/{id}/bans/{player_id}", roomHandler.ResolveBan).Methods(http.MethodDelete)

	// Game routes
	api.HandleFunc("/rooms/{id}/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/games", gameHandler.ListForRoom).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}/scores", gameHandler.AddScore).Methods(http.MethodPost)

	api.HandleFunc("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(engine *room.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{
			Status:      "ok",
			Connections: engine.Registry().Len(),
		})
	}
}
