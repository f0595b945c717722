package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/storage"
)

// admit checks the player's ban in the room. Bans are only expired here, when a
// player tries to come back: a live ban rejects anyone but the owner, anything else
// is cleared.
func (e *Engine) admit(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) (*model.Room, error) {
	now := e.clock.Now()
	room, err := e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if !r.IsBanned(playerID) {
			return storage.ErrNoChange
		}
		if r.HasLiveBan(playerID, now) && !r.IsOwner(playerID) {
			return model.ErrBanned
		}
		r.ClearBan(playerID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// KickPlayer bans target from the room for durationSeconds, 0 meaning indefinitely.
// Only the host's registered connection may kick. The room is told before the
// target's connection leaves the room scope, so the target hears it too.
func (e *Engine) KickPlayer(
	ctx context.Context,
	conn realtime.Conn,
	requesterID model.PlayerID,
	roomID model.RoomID,
	targetID model.PlayerID,
	durationSeconds int,
) error {
	if durationSeconds < 0 || durationSeconds > e.cfg.MaxKickDurationSeconds {
		return model.ErrInvalidKickDuration
	}

	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if err := e.requireLiveHost(room, requesterID, conn); err != nil {
		return err
	}
	if targetID == requesterID || room.IsOwner(targetID) {
		return model.ErrInvalidKickTarget
	}

	now := e.clock.Now()
	var expiry *time.Time
	if durationSeconds > 0 {
		t := now.Add(time.Duration(durationSeconds) * time.Second)
		expiry = &t
	}

	_, err = e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.HostPlayerID != requesterID {
			return model.ErrNotHost
		}
		if r.HasLiveBan(targetID, now) {
			return model.ErrAlreadyKicked
		}
		r.Ban(targetID, expiry)
		r.RemoveMember(targetID)
		return nil
	})
	if err != nil {
		return err
	}

	_, err = e.storage.UpdatePlayer(ctx, targetID, func(p *model.Player) error {
		if p.CurrentRoomID != roomID {
			return storage.ErrNoChange
		}
		p.CurrentRoomID = ""
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("player kicked",
		slog.String("room_id", string(roomID)),
		slog.String("host_id", string(requesterID)),
		slog.String("target_id", string(targetID)),
		slog.Int("duration_seconds", durationSeconds))

	e.fanout.Broadcast(ctx, model.Event{
		Type: model.OutboundHostKickedPlayer,
		Payload: model.HostKickedPlayerPayload{
			RoomID:         roomID,
			HostPlayerID:   requesterID,
			TargetPlayerID: targetID,
			ExpiresAt:      expiry,
		},
	}, "")

	e.evict(roomID, targetID)
	return nil
}

// ResolveBan lifts a player's ban from the room and reports whether there was one
func (e *Engine) ResolveBan(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) (bool, error) {
	cleared := false
	_, err := e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		cleared = r.ClearBan(playerID)
		if !cleared {
			return storage.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if cleared {
		e.logger.Info("ban resolved",
			slog.String("room_id", string(roomID)),
			slog.String("player_id", string(playerID)))
	}
	return cleared, nil
}
