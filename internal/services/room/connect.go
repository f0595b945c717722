package room

import (
	"context"
	"log/slog"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/storage"
)

// Connect attaches a live connection to the player, optionally inside a room.
// The player must already be a member of the room unless they own it.
func (e *Engine) Connect(ctx context.Context, conn realtime.Conn, playerID model.PlayerID, roomID model.RoomID) error {
	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	if roomID != "" {
		room, err := e.admit(ctx, roomID, playerID)
		if err != nil {
			return err
		}
		if !room.HasMember(playerID) {
			if !room.IsOwner(playerID) {
				return model.ErrPlayerNotInRoom
			}
			if _, err := e.addMember(ctx, roomID, playerID); err != nil {
				return err
			}
		}
	}

	if player.CurrentRoomID != "" && player.CurrentRoomID != roomID {
		if err := e.leavePrevious(ctx, player.CurrentRoomID, playerID); err != nil {
			return err
		}
	}

	now := e.clock.Now()
	updated, err := e.storage.UpdatePlayer(ctx, playerID, func(p *model.Player) error {
		p.Active = true
		p.LastConnectionAt = now
		p.CurrentRoomID = roomID
		p.ConnectionID = conn.ID()
		return nil
	})
	if err != nil {
		return err
	}

	e.register(conn, roomID, playerID)
	e.monitor.Start(conn)

	e.logger.Info("player connected",
		slog.String("player_id", string(playerID)),
		slog.String("room_id", string(roomID)),
		slog.String("conn_id", conn.ID()))

	players, err := e.roster(ctx, roomID, updated)
	if err != nil {
		return err
	}
	event := model.Event{
		Type: model.OutboundPlayerActive,
		Payload: model.RosterPayload{
			RoomID:     roomID,
			PlayerID:   playerID,
			Spectating: updated.Spectating,
			Players:    players,
		},
	}
	if roomID == "" {
		return e.fanout.Send(conn, event)
	}
	e.fanout.Broadcast(ctx, event, "")
	return nil
}

// HandleDisconnect releases everything bound to a closed connection: the player is
// marked inactive and roomless, the room hears about it and a delayed host check is
// scheduled.
func (e *Engine) HandleDisconnect(ctx context.Context, conn realtime.Conn) {
	e.monitor.Stop(conn)

	for _, entry := range e.registry.EntriesFor(conn) {
		if err := e.disconnectEntry(ctx, conn, entry); err != nil {
			e.logger.Error("failed to release connection",
				slog.String("player_id", string(entry.PlayerID)),
				slog.String("conn_id", conn.ID()),
				slog.Any("error", err))
		}
	}
}

func (e *Engine) disconnectEntry(ctx context.Context, conn realtime.Conn, entry realtime.Entry) error {
	// A newer connection for the same player owns the binding now
	if current, ok := e.registry.Get(entry.Scope, entry.PlayerID); !ok || current != conn {
		return nil
	}

	// The stored binding is rechecked inside the update so a reconnect racing this
	// release keeps its session
	roomID := entry.Scope.RoomID()
	var released bool
	_, err := e.storage.UpdatePlayer(ctx, entry.PlayerID, func(p *model.Player) error {
		released = false
		if !p.HoldsConnection(conn.ID()) {
			return storage.ErrNoChange
		}
		p.Active = false
		p.CurrentRoomID = ""
		p.ConnectionID = ""
		released = true
		return nil
	})
	e.registry.RemoveIf(entry.Scope, entry.PlayerID, conn)
	if err != nil {
		return err
	}
	if !released {
		e.logger.Debug("connection superseded before release",
			slog.String("player_id", string(entry.PlayerID)),
			slog.String("conn_id", conn.ID()))
		return nil
	}

	if roomID != "" {
		e.fanout.Broadcast(ctx, model.Event{
			Type:    model.OutboundPlayerInactive,
			Payload: model.PlayerInactivePayload{RoomID: roomID, PlayerID: entry.PlayerID},
		}, entry.PlayerID)
	}

	e.logger.Info("player disconnected",
		slog.String("player_id", string(entry.PlayerID)),
		slog.String("room_id", string(roomID)),
		slog.String("conn_id", conn.ID()))

	if roomID != "" {
		playerID := entry.PlayerID
		e.monitor.Schedule(hostCheckKey(roomID, playerID), e.cfg.HostReassignDelay, func() {
			ctx, cancel := context.WithTimeout(context.Background(), hostCheckTimeout)
			defer cancel()
			e.CheckHost(ctx, roomID, playerID)
		})
	}
	return nil
}

// CheckHost runs after a host's connection dropped. A host who came back in the same
// room keeps the role; one who went to another room leaves this one; one who stayed
// away or roomless is replaced.
func (e *Engine) CheckHost(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) {
	logger := e.logger.With(
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)))

	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		logger.Error("host check failed to load room", slog.Any("error", err))
		return
	}
	if room.HostPlayerID != playerID {
		return
	}

	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		logger.Error("host check failed to load player", slog.Any("error", err))
		return
	}

	switch {
	case player.Active && player.CurrentRoomID != "" && player.CurrentRoomID != roomID:
		logger.Info("host moved to another room")
		if err := e.leavePrevious(ctx, roomID, playerID); err != nil {
			logger.Error("host check failed to leave room", slog.Any("error", err))
		}

	case !player.Active || player.CurrentRoomID == "":
		newHost, changed, err := e.reassignHost(ctx, roomID, playerID)
		if err != nil {
			logger.Error("host check failed to reassign host", slog.Any("error", err))
			return
		}
		if !changed {
			return
		}
		logger.Info("host reassigned after disconnect", slog.String("new_host_id", string(newHost)))
		e.fanout.Broadcast(ctx, model.Event{
			Type: model.OutboundHostReassigned,
			Payload: model.HostReassignedPayload{
				RoomID:               roomID,
				PreviousHostPlayerID: playerID,
				NewHostPlayerID:      newHost,
			},
		}, playerID)
	}
}
