package request

import (
	"encoding/json"
	"errors"

	"github.com/mcoot/roomhub/internal/model"
)

// CreatePlayerRequest is the request body for registering a player
type CreatePlayerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	OwnerPlayerID string `json:"owner_player_id"`
	Password      string `json:"password,omitempty"`
}

// SetCurrentGameRequest is the request body for changing a room's current game.
// Champion is tri-state: absent leaves the champion alone, null records a tie and
// a player id records a win.
type SetCurrentGameRequest struct {
	GameID   string          `json:"game_id"`
	Champion json.RawMessage `json:"champion,omitempty"`
}

// ChampionUpdate interprets the champion field
func (r SetCurrentGameRequest) ChampionUpdate() (model.ChampionUpdate, error) {
	if len(r.Champion) == 0 {
		return model.NoChampionUpdate(), nil
	}
	var winner *string
	if err := json.Unmarshal(r.Champion, &winner); err != nil {
		return model.ChampionUpdate{}, errors.New("champion must be a player id or null")
	}
	if winner == nil || *winner == "" {
		return model.ChampionTied(), nil
	}
	return model.ChampionWon(model.PlayerID(*winner)), nil
}

// AddScoreRequest is the request body for adjusting a player's score
type AddScoreRequest struct {
	PlayerID string `json:"player_id"`
	Delta    int    `json:"delta"`
}
