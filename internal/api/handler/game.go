package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhub/internal/api/request"
	"github.com/mcoot/roomhub/internal/api/response"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/services/room"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	engine *room.Engine
}

// NewGameHandler creates a new game handler
func NewGameHandler(engine *room.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

// Create handles POST /api/v1/rooms/{id}/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	game, err := h.engine.CreateGame(r.Context(), model.RoomID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/games/"+string(game.ID), response.GameFromModel(game))
}

// ListForRoom handles GET /api/v1/rooms/{id}/games
func (h *GameHandler) ListForRoom(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	games, err := h.engine.ListGames(r.Context(), model.RoomID(mux.Vars(r)["id"]), page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ListFromModels(games, response.GameFromModel, page.Number, page.Size))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	game, err := h.engine.GetGame(r.Context(), model.GameID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(game))
}

// AddScore handles POST /api/v1/games/{id}/scores
func (h *GameHandler) AddScore(w http.ResponseWriter, r *http.Request) {
	var req request.AddScoreRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.PlayerID == "" {
		WriteError(w, model.ErrMissingPlayerID)
		return
	}

	game, err := h.engine.AddScore(r.Context(), model.GameID(mux.Vars(r)["id"]), model.PlayerID(req.PlayerID), req.Delta)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(game))
}
