package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
)

// FindNewHost picks the member who should take over from the current host.
// Members are tried in join order: first a live player who is not spectating, then
// any live player, then the owner if they are not already host. It returns an empty
// id when nobody qualifies.
func FindNewHost(room *model.Room, members map[model.PlayerID]*model.Player) model.PlayerID {
	candidates := make([]*model.Player, 0, len(room.PlayerIDs))
	for _, id := range room.PlayerIDs {
		if id == room.HostPlayerID {
			continue
		}
		if p, ok := members[id]; ok && p.IsLiveIn(room.ID) {
			candidates = append(candidates, p)
		}
	}

	for _, p := range candidates {
		if !p.Spectating {
			return p.ID
		}
	}
	if len(candidates) > 0 {
		return candidates[0].ID
	}
	if room.OwnerPlayerID != "" && room.OwnerPlayerID != room.HostPlayerID {
		return room.OwnerPlayerID
	}
	return ""
}

// reassignHost replaces departed as host when they still hold the role. The swap is a
// compare-and-set on the host id, so a concurrent change wins and nothing is written.
func (e *Engine) reassignHost(ctx context.Context, roomID model.RoomID, departed model.PlayerID) (model.PlayerID, bool, error) {
	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		return "", false, err
	}
	if room.HostPlayerID != departed {
		return room.HostPlayerID, false, nil
	}

	members, err := e.loadMembers(ctx, room)
	if err != nil {
		return "", false, err
	}
	candidate := FindNewHost(room, members)
	if candidate == "" {
		e.logger.Warn("room left without a host",
			slog.String("room_id", string(roomID)),
			slog.String("previous_host_id", string(departed)))
		return "", false, nil
	}

	if err := e.swapHost(ctx, roomID, departed, candidate); err != nil {
		if errors.Is(err, model.ErrHostChanged) {
			return "", false, nil
		}
		return "", false, err
	}

	e.logger.Info("host reassigned",
		slog.String("room_id", string(roomID)),
		slog.String("previous_host_id", string(departed)),
		slog.String("new_host_id", string(candidate)))
	return candidate, true, nil
}

// swapHost sets the host to next only while it is still expected
func (e *Engine) swapHost(ctx context.Context, roomID model.RoomID, expected, next model.PlayerID) error {
	_, err := e.storage.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.HostPlayerID != expected {
			return model.ErrHostChanged
		}
		r.HostPlayerID = next
		return nil
	})
	return err
}

// ReassignHost hands the host role to another live member. Only the host or the
// owner may ask; asking for the current host changes nothing and is answered
// directly.
func (e *Engine) ReassignHost(ctx context.Context, conn realtime.Conn, requesterID model.PlayerID, roomID model.RoomID, newHostID model.PlayerID) error {
	room, err := e.storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostPlayerID != requesterID && !room.IsOwner(requesterID) {
		return model.ErrNotHost
	}

	if err := e.requireLiveMember(ctx, room, newHostID); err != nil {
		return err
	}

	event := model.Event{
		Type: model.OutboundHostReassigned,
		Payload: model.HostReassignedPayload{
			RoomID:               roomID,
			PreviousHostPlayerID: room.HostPlayerID,
			NewHostPlayerID:      newHostID,
		},
	}
	if room.HostPlayerID == newHostID {
		if conn == nil {
			return nil
		}
		return e.fanout.Send(conn, event)
	}

	if err := e.swapHost(ctx, roomID, room.HostPlayerID, newHostID); err != nil {
		return err
	}
	e.logger.Info("host reassigned by request",
		slog.String("room_id", string(roomID)),
		slog.String("requester_id", string(requesterID)),
		slog.String("new_host_id", string(newHostID)))

	e.fanout.Broadcast(ctx, event, "")
	return nil
}

// requireLiveMember checks the player is a member, active in the room and reachable there
func (e *Engine) requireLiveMember(ctx context.Context, room *model.Room, playerID model.PlayerID) error {
	if !room.HasMember(playerID) {
		return model.ErrPlayerNotInRoom
	}
	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if !player.IsLiveIn(room.ID) {
		return model.ErrPlayerNotInRoom
	}
	if _, ok := e.registry.Get(realtime.RoomScope(room.ID), playerID); !ok {
		return model.ErrPlayerNotInRoom
	}
	return nil
}

// requireLiveHost checks the requester is host and that conn is the session
// registered for them in the room
func (e *Engine) requireLiveHost(room *model.Room, requesterID model.PlayerID, conn realtime.Conn) error {
	if room.HostPlayerID != requesterID {
		return model.ErrNotHost
	}
	registered, ok := e.registry.Get(realtime.RoomScope(room.ID), requesterID)
	if !ok || registered != conn {
		return model.ErrNotHost
	}
	return nil
}
