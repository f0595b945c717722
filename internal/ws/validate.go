package ws

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/mcoot/roomhub/internal/api/apierr"
	"github.com/mcoot/roomhub/internal/model"
)

// Validation runs in layers: required identifiers, then existence, then consistency
// between the referenced entities. The first failure wins.

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierr.NewInvalidRequestError("malformed payload")
	}
	return nil
}

func requireIDs(playerID model.PlayerID, roomID model.RoomID) error {
	if playerID == "" {
		return model.ErrMissingPlayerID
	}
	if roomID == "" {
		return model.ErrMissingRoomID
	}
	return nil
}

// parseDuration reads a kick duration in whole seconds; absent means indefinite
func parseDuration(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(string(n))
	if err != nil {
		return 0, model.ErrInvalidKickDuration
	}
	return seconds, nil
}

// roomReference finds the room a pass-through payload targets
func roomReference(raw json.RawMessage) string {
	for _, path := range []string{"context.roomID", "roomID"} {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func (d *Dispatcher) requirePlayer(ctx context.Context, playerID model.PlayerID) (*model.Player, error) {
	if playerID == "" {
		return nil, model.ErrMissingPlayerID
	}
	return d.storage.GetPlayer(ctx, playerID)
}

func (d *Dispatcher) requireRoom(ctx context.Context, roomID model.RoomID) (*model.Room, error) {
	if roomID == "" {
		return nil, model.ErrMissingRoomID
	}
	return d.storage.GetRoom(ctx, roomID)
}

// requireMember checks the room lists the player and the player agrees they are there
func requireMember(room *model.Room, player *model.Player) error {
	if !room.HasMember(player.ID) || player.CurrentRoomID != room.ID {
		return model.ErrPlayerNotInRoom
	}
	return nil
}

func (d *Dispatcher) requireRoomMember(ctx context.Context, playerID model.PlayerID, roomID model.RoomID) (*model.Player, *model.Room, error) {
	player, err := d.requirePlayer(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}
	rm, err := d.requireRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireMember(rm, player); err != nil {
		return nil, nil, err
	}
	return player, rm, nil
}

// gameScope says what a game-level event needs beyond room membership
type gameScope struct {
	gameRequired        bool // the context must name a game
	participantRequired bool // a named game must list the player as a participant
}

// requireGameScope validates a game-level context. When a game is named it must be
// the room's current game.
func (d *Dispatcher) requireGameScope(ctx context.Context, c model.EventContext, scope gameScope) (*model.Room, *model.Game, error) {
	if err := requireIDs(c.PlayerID, c.RoomID); err != nil {
		return nil, nil, err
	}
	if scope.gameRequired && c.GameID == "" {
		return nil, nil, model.ErrMissingGameID
	}

	player, err := d.storage.GetPlayer(ctx, c.PlayerID)
	if err != nil {
		return nil, nil, err
	}
	rm, err := d.storage.GetRoom(ctx, c.RoomID)
	if err != nil {
		return nil, nil, err
	}
	var game *model.Game
	if c.GameID != "" {
		game, err = d.storage.GetGame(ctx, c.GameID)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := requireMember(rm, player); err != nil {
		return nil, nil, err
	}
	if game != nil && (rm.CurrentGameID != game.ID || game.RoomID != rm.ID) {
		return nil, nil, model.ErrGameNotActive
	}
	if game != nil && scope.participantRequired && !game.HasParticipant(c.PlayerID) {
		return nil, nil, model.ErrPlayerNotInGame
	}
	return rm, game, nil
}
