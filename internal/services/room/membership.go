package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/storage"
)

// JoinRoom adds the player to a room
func (e *Engine) JoinRoom(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID, password string) error {
	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	return e.joinRoom(ctx, conn, playerID, room, password)
}

// JoinRoomWithCode adds the player to the room bound to code
func (e *Engine) JoinRoomWithCode(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, code model.RoomCode, password string) error {
	room, err := e.storage.GetRoomByCode(ctx, code)
	if err != nil {
		return err
	}
	return e.joinRoom(ctx, conn, playerID, room, password)
}

func (e *Engine) joinRoom(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, room *model.Room, password string) error {
	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	if room.HasPassword() && !room.HasMember(playerID) && !room.IsOwner(playerID) {
		if !e.hasher.Verify(password, room.PasswordHash) {
			return model.ErrIncorrectPassword
		}
	}

	room, err = e.admit(ctx, room.ID, playerID)
	if err != nil {
		return err
	}

	if player.CurrentRoomID != "" && player.CurrentRoomID != room.ID {
		if err := e.leavePrevious(ctx, player.CurrentRoomID, playerID); err != nil {
			return err
		}
	}

	room, err = e.addMember(ctx, room.ID, playerID)
	if err != nil {
		return err
	}

	// A full room still admits the player, as a spectator
	spectating := player.Spectating
	if !spectating {
		members, err := e.loadMembers(ctx, room)
		if err != nil {
			return err
		}
		if countActivePlayers(members, room.ID, playerID) >= e.cfg.MaxActivePlayersPerRoom {
			spectating = true
			e.logger.Info("room full, joining as spectator",
				slog.String("room_id", string(room.ID)),
				slog.String("player_id", string(playerID)))
		}
	}

	updated, err := e.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		p.Active = true
		p.CurrentRoomID = room.ID
		p.Spectating = spectating
		return nil
	})
	if err != nil {
		return err
	}

	e.register(conn, room.ID, playerID)

	players, err := e.roster(ctx, room.ID, updated)
	if err != nil {
		return err
	}
	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundPlayerJoinedRoom,
		Payload: model.RosterPayload{
			RoomID:     room.ID,
			PlayerID:   playerID,
			Spectating: updated.Spectating,
			Players:    players,
		},
	}, "")
	return nil
}

// LeaveRoom removes the player from a room, defaulting to their current room
func (e *Engine) LeaveRoom(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID) error {
	if roomID == "" {
		player, err := e.storage.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		roomID = player.CurrentRoomID
	}
	if roomID == "" {
		return model.ErrPlayerNotInRoom
	}

	if err := e.leavePrevious(ctx, roomID, playerID); err != nil {
		return err
	}

	_, err := e.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		if p.CurrentRoomID != roomID {
			return storage.ErrNoChange
		}
		p.CurrentRoomID = ""
		return nil
	})
	if err != nil {
		return err
	}

	if conn != nil {
		e.registry.Add(realtime.NoRoom, playerID, conn)
	} else {
		e.evict(roomID, playerID)
	}
	return nil
}

// leavePrevious takes the player out of a room and tells the room, including the leaver
func (e *Engine) leavePrevious(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error {
	newHost, err := e.departRoom(ctx, roomID, playerID)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			e.logger.Warn("previous room no longer exists",
				slog.String("room_id", string(roomID)),
				slog.String("player_id", string(playerID)))
			return nil
		}
		return err
	}

	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundPlayerLeftRoom,
		Payload: model.PlayerLeftRoomPayload{
			RoomID:          roomID,
			PlayerID:        playerID,
			NewHostPlayerID: newHost,
		},
	}, "")
	return nil
}

// departRoom removes the player from the membership list and, when they held the
// host role, hands it on before returning. The returned host is nil when the role
// did not move.
func (e *Engine) departRoom(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) (*model.PlayerID, error) {
	var wasHost bool
	_, err := e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		wasHost = r.HostPlayerID == playerID
		if !r.RemoveMember(playerID) {
			return storage.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("player left room",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)),
		slog.Bool("was_host", wasHost))

	if !wasHost {
		return nil, nil
	}
	newHost, changed, err := e.reassignHost(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	return &newHost, nil
}

// addMember appends the player to the membership list if absent, refusing live bans
func (e *Engine) addMember(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) (*model.Room, error) {
	now := e.clock.Now()
	return e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.HasLiveBan(playerID, now) && !r.IsOwner(playerID) {
			return model.ErrBanned
		}
		if !r.AddMember(playerID) {
			return storage.ErrNoChange
		}
		return nil
	})
}
