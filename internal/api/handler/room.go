package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhub/internal/api/request"
	"github.com/mcoot/roomhub/internal/api/response"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/notify"
	"github.com/mcoot/roomhub/internal/services/room"
	"github.com/mcoot/roomhub/internal/storage"
)

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	engine   *room.Engine
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(engine *room.Engine, notifier notify.Notifier, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	created, err := h.engine.CreateRoom(r.Context(), model.PlayerID(req.OwnerPlayerID), req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	notifyAfter(r.Context(), h.logger, "room_created", func(ctx context.Context) error {
		return h.notifier.RoomCreated(ctx, created)
	})

	response.Created(w, "/api/v1/rooms/"+string(created.ID), response.RoomFromModel(created))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.engine.GetRoom(r.Context(), model.RoomID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(found))
}

// GetByCode handles GET /api/v1/rooms/code/{code}
func (h *RoomHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	found, err := h.engine.GetRoomByCode(r.Context(), model.RoomCode(mux.Vars(r)["code"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(found))
}

// List handles GET /api/v1/rooms?page=&size=&owner_id=
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	filter := storage.RoomFilter{OwnerPlayerID: model.PlayerID(r.URL.Query().Get("owner_id"))}
	rooms, err := h.engine.ListRooms(r.Context(), filter, page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ListFromModels(rooms, response.RoomFromModel, page.Number, page.Size))
}

// SetCurrentGame handles PUT /api/v1/rooms/{id}/current-game
func (h *RoomHandler) SetCurrentGame(w http.ResponseWriter, r *http.Request) {
	var req request.SetCurrentGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.GameID == "" {
		WriteError(w, model.ErrMissingGameID)
		return
	}
	champion, err := req.ChampionUpdate()
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	updated, err := h.engine.SetCurrentGame(r.Context(), model.RoomID(mux.Vars(r)["id"]), model.GameID(req.GameID), champion)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(updated))
}

// ResolveBan handles DELETE /api/v1/rooms/{id}/bans/{player_id}
func (h *RoomHandler) ResolveBan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := model.RoomID(vars["id"])
	playerID := model.PlayerID(vars["player_id"])

	resolved, err := h.engine.ResolveBan(r.Context(), roomID, playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	if resolved {
		notifyAfter(r.Context(), h.logger, "ban_resolved", func(ctx context.Context) error {
			return h.notifier.BanResolved(ctx, roomID, playerID)
		})
	}

	response.JSON(w, http.StatusOK, response.BanResolution{
		RoomID:   string(roomID),
		PlayerID: string(playerID),
		Resolved: resolved,
	})
}
