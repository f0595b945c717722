package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhub/internal/api/request"
	"github.com/mcoot/roomhub/internal/api/response"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/notify"
	"github.com/mcoot/roomhub/internal/services/auth"
	"github.com/mcoot/roomhub/internal/storage"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService *auth.Service
	notifier    notify.Notifier
	logger      *slog.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, notifier notify.Notifier, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.authService.RegisterPlayer(r.Context(), req.Name, req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	notifyAfter(r.Context(), h.logger, "player_registered", func(ctx context.Context) error {
		return h.notifier.PlayerRegistered(ctx, player)
	})

	response.Created(w, "/api/v1/players/"+string(player.ID), response.PlayerFromModel(player))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.authService.GetPlayer(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// List handles GET /api/v1/players?page=&size=&room_id=&active=
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	filter := storage.PlayerFilter{RoomID: model.RoomID(r.URL.Query().Get("room_id"))}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, NewInvalidRequestError("active must be a boolean"))
			return
		}
		filter.ActiveOnly = active
	}

	players, err := h.authService.ListPlayers(r.Context(), filter, page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ListFromModels(players, response.PlayerFromModel, page.Number, page.Size))
}

// notifyAfter reports a change that has already been stored. A failed notification
// is logged and never fails the request.
func notifyAfter(ctx context.Context, logger *slog.Logger, kind string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		logger.Warn("notification failed",
			slog.String("kind", kind),
			slog.Any("error", err))
	}
}
