package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/mcoot/roomhub/internal/dependencies/random"
	"github.com/mcoot/roomhub/internal/model"
)

// ErrConnClosed is returned when sending to a connection that is no longer open
var ErrConnClosed = errors.New("connection closed")

// Paths probed, in order, for the room an outbound frame belongs to
var roomPaths = []string{"payload.roomID", "payload.context.roomID"}

// Fanout delivers outbound events to every connection in a room scope
type Fanout struct {
	registry *Registry
	random   random.Random
	logger   *slog.Logger
}

// NewFanout creates a new Fanout
func NewFanout(registry *Registry, rnd random.Random, logger *slog.Logger) *Fanout {
	return &Fanout{
		registry: registry,
		random:   rnd,
		logger:   logger.With(slog.String("component", "fanout")),
	}
}

// Broadcast sends the event to the room named in its payload, skipping exclude when set.
// Delivery starts at a random offset so no recipient is consistently first or last.
// It returns the number of connections the frame was handed to.
func (f *Fanout) Broadcast(ctx context.Context, event model.Event, exclude model.PlayerID) int {
	data, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("failed to encode event",
			slog.String("event", string(event.Type)),
			slog.Any("error", err))
		return 0
	}

	roomID := roomOf(data)
	if roomID == "" {
		f.logger.Warn("dropping event without room",
			slog.String("event", string(event.Type)))
		return 0
	}

	recipients := f.registry.List(RoomScope(roomID))
	if len(recipients) == 0 {
		return 0
	}

	ids := make([]model.PlayerID, 0, len(recipients))
	for id := range recipients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	offset := f.random.Intn(len(ids))

	sent := 0
	for i := range ids {
		if ctx.Err() != nil {
			f.logger.Warn("broadcast cancelled",
				slog.String("event", string(event.Type)),
				slog.Int("sent", sent))
			return sent
		}

		id := ids[(offset+i)%len(ids)]
		if id == exclude {
			continue
		}
		conn := recipients[id]
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(data); err != nil {
			f.logger.Warn("broadcast delivery failed",
				slog.String("event", string(event.Type)),
				slog.String("player_id", string(id)),
				slog.String("conn_id", conn.ID()),
				slog.Any("error", err))
			continue
		}
		sent++
	}

	f.logger.Debug("event broadcast",
		slog.String("event", string(event.Type)),
		slog.String("room_id", string(roomID)),
		slog.Int("recipients", sent))
	return sent
}

// Send delivers the event to a single connection
func (f *Fanout) Send(conn Conn, event model.Event) error {
	if !conn.IsOpen() {
		return ErrConnClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

func roomOf(frame []byte) model.RoomID {
	for _, path := range roomPaths {
		if v := gjson.GetBytes(frame, path); v.Type == gjson.String && v.Str != "" {
			return model.RoomID(v.Str)
		}
	}
	return ""
}
