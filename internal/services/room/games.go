package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/storage"
)

// JoinGame adds the player to the room's current game. Unlike joining a room, a full
// game refuses active players outright instead of seating them as spectators.
func (e *Engine) JoinGame(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, gameID model.GameID) error {
	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if !player.Spectating {
		if err := e.checkGameCapacity(ctx, roomID, gameID, playerID); err != nil {
			return err
		}
	}

	firstTime := false
	game, err := e.storage.UpdateGame(ctx, gameID, func(g *model.Game) error {
		firstTime = g.AddParticipant(playerID)
		if !firstTime {
			return storage.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}

	if firstTime {
		if _, err := e.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
			p.IncrementStat(model.StatGamesPlayed)
			return nil
		}); err != nil {
			return err
		}
	}

	e.register(conn, roomID, playerID)

	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundPlayerJoined,
		Payload: model.PlayerJoinedPayload{
			Context:    model.EventContext{RoomID: roomID, GameID: gameID, PlayerID: playerID},
			PlayerID:   playerID,
			Score:      game.Scores[playerID],
			Spectating: player.Spectating,
		},
	}, "")
	return nil
}

// checkGameCapacity rejects a player when the game already has the maximum number of
// live, non-spectating participants from the room
func (e *Engine) checkGameCapacity(ctx context.Context, roomID model.RoomID, gameID model.GameID, playerID model.PlayerID) error {
	game, err := e.storage.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	participants, err := e.loadPlayers(ctx, game.PlayerIDs)
	if err != nil {
		return err
	}
	if countActivePlayers(participants, roomID, playerID) >= e.cfg.MaxActivePlayersPerRoom {
		return model.ErrGameFull
	}
	return nil
}

// StartSpectating marks the player as a spectator
func (e *Engine) StartSpectating(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, gameID model.GameID) error {
	return e.setSpectating(ctx, conn, playerID, roomID, gameID, true)
}

// StopSpectating returns the player to active play, subject to the game's capacity
func (e *Engine) StopSpectating(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, gameID model.GameID) error {
	if gameID != "" {
		if err := e.checkGameCapacity(ctx, roomID, gameID, playerID); err != nil {
			return err
		}
	}
	return e.setSpectating(ctx, conn, playerID, roomID, gameID, false)
}

func (e *Engine) setSpectating(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, gameID model.GameID, spectating bool) error {
	_, err := e.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if p.Spectating == spectating {
			return storage.ErrNoChange
		}
		p.Spectating = spectating
		return nil
	})
	if err != nil {
		return err
	}

	e.register(conn, roomID, playerID)

	eventType := model.OutboundPlayerStoppedSpectating
	if spectating {
		eventType = model.OutboundPlayerStartedSpectating
	}
	e.fanout.Broadcast(ctx, model.Event{
		Type: eventType,
		Payload: model.SpectatingPayload{
			Context:  model.EventContext{RoomID: roomID, GameID: gameID, PlayerID: playerID},
			PlayerID: playerID,
		},
	}, "")
	return nil
}

// AbandonGame lets the host drop the room's current game
func (e *Engine) AbandonGame(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, gameID model.GameID) error {
	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := e.requireLiveHost(room, playerID, conn); err != nil {
		return err
	}

	if _, _, err := e.setCurrentGame(ctx, roomID, "", model.NoChampionUpdate()); err != nil {
		return err
	}

	e.logger.Info("game abandoned",
		slog.String("room_id", string(roomID)),
		slog.String("game_id", string(gameID)),
		slog.String("host_id", string(playerID)))

	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundHostAbandonedGame,
		Payload: model.HostAbandonedGamePayload{
			Context:      model.EventContext{RoomID: roomID, GameID: gameID, PlayerID: playerID},
			HostPlayerID: playerID,
		},
	}, "")
	return nil
}

// SetCurrentGame makes gameID the room's current game, retiring the previous one and
// applying the champion update. Setting the game that is already current changes
// nothing and broadcasts nothing.
func (e *Engine) SetCurrentGame(ctx context.Context, roomID model.RoomID, gameID model.GameID, champion model.ChampionUpdate) (*model.Room, error) {
	if gameID != "" {
		game, err := e.storage.GetGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if game.RoomID != roomID {
			return nil, model.ErrGameNotActive
		}
	}

	room, previous, err := e.setCurrentGame(ctx, roomID, gameID, champion)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return room, nil
	}

	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundCurrentGameChanged,
		Payload: model.CurrentGameChangedPayload{
			RoomID:               roomID,
			GameID:               room.CurrentGameID,
			PreviousGameID:       *previous,
			CurrentChampion:      room.CurrentChampion,
			CurrentWinningStreak: room.CurrentWinningStreak,
		},
	}, "")
	return room, nil
}

// setCurrentGame writes the transition and returns the game it replaced, or nil when
// the room already had gameID current
func (e *Engine) setCurrentGame(ctx context.Context, roomID model.RoomID, gameID model.GameID, champion model.ChampionUpdate) (*model.Room, *model.GameID, error) {
	var previous model.GameID
	changed := false
	room, err := e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		changed = false
		previous = r.CurrentGameID
		if r.CurrentGameID == gameID {
			return storage.ErrNoChange
		}
		if previous != "" {
			r.PreviousGameIDs = append(r.PreviousGameIDs, previous)
		}
		r.CurrentGameID = gameID
		r.ApplyChampion(champion)
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		return room, nil, nil
	}

	if previous != "" {
		now := e.clock.Now()
		_, err := e.storage.UpdateGame(ctx, previous, func(g *model.Game) error {
			if g.IsFinished() {
				return storage.ErrNoChange
			}
			g.FinishedAt = &now
			return nil
		})
		if err != nil && !errors.Is(err, model.ErrGameNotFound) {
			return nil, nil, err
		}
	}

	e.logger.Info("current game changed",
		slog.String("room_id", string(roomID)),
		slog.String("game_id", string(gameID)),
		slog.String("previous_game_id", string(previous)))
	return room, &previous, nil
}

// CreateGame creates a new game owned by the room
func (e *Engine) CreateGame(ctx context.Context, roomID model.RoomID) (*model.Game, error) {
	if _, err := e.storage.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	game := &model.Game{
		RoomID:    roomID,
		PlayerIDs: []model.PlayerID{},
		Scores:    map[model.PlayerID]int{},
		CreatedAt: e.clock.Now(),
	}
	if err := e.storage.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// GetGame retrieves a game by id
func (e *Engine) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	return e.storage.GetGame(ctx, gameID)
}

// ListGames lists a room's games, oldest first
func (e *Engine) ListGames(ctx context.Context, roomID model.RoomID, page storage.Page) ([]*model.Game, error) {
	return e.storage.ListGames(ctx, roomID, page)
}

// AddScore adds delta to a participant's score
func (e *Engine) AddScore(ctx context.Context, gameID model.GameID, playerID model.PlayerID, delta int) (*model.Game, error) {
	return e.storage.UpdateGame(ctx, gameID, func(g *model.Game) error {
		if !g.HasParticipant(playerID) {
			return model.ErrPlayerNotInGame
		}
		if g.Scores == nil {
			g.Scores = make(map[model.PlayerID]int)
		}
		g.Scores[playerID] += delta
		return nil
	})
}
