package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mcoot/roomhub/internal/api/apierr"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/services/room"
	"github.com/mcoot/roomhub/internal/storage"
)

// Handler consumes frames read from a connection and learns when it closes
type Handler interface {
	Dispatch(ctx context.Context, conn realtime.Conn, data []byte)
	Disconnect(ctx context.Context, conn realtime.Conn)
}

// frame is the envelope of every inbound message
type frame struct {
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
}

// flatPayload carries the identifiers of room-level events
type flatPayload struct {
	PlayerID        model.PlayerID `json:"playerID"`
	RoomID          model.RoomID   `json:"roomID"`
	RoomCode        model.RoomCode `json:"roomCode"`
	Password        string         `json:"password"`
	TargetPlayerID  model.PlayerID `json:"targetPlayerID"`
	NewHostPlayerID model.PlayerID `json:"newHostPlayerID"`
	Duration        json.Number    `json:"duration"`
}

// contextPayload carries the identifiers of game-level events
type contextPayload struct {
	Context model.EventContext `json:"context"`
}

// Dispatcher validates inbound frames and routes them to the room engine. Every
// failure is answered with an error frame to the originating connection only.
type Dispatcher struct {
	engine  *room.Engine
	storage storage.Storage
	logger  *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(engine *room.Engine, storage storage.Storage, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		storage: storage,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch handles one raw frame. Malformed frames and unknown event types are
// dropped after logging.
func (d *Dispatcher) Dispatch(ctx context.Context, conn realtime.Conn, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		d.logger.Warn("dropping malformed frame",
			slog.String("conn_id", conn.ID()),
			slog.Any("error", err))
		return
	}
	event, ok := model.ParseInboundEvent(f.EventType)
	if !ok {
		d.logger.Warn("dropping unknown event",
			slog.String("conn_id", conn.ID()),
			slog.String("event", f.EventType))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic handling event",
				slog.String("conn_id", conn.ID()),
				slog.String("event", f.EventType),
				slog.Any("panic", r))
			d.replyError(conn, f.EventType, http.StatusInternalServerError, fmt.Sprint(r))
		}
	}()

	if err := d.handle(ctx, conn, event, f.Payload); err != nil {
		status := apierr.Status(err)
		if status == http.StatusInternalServerError {
			d.logger.Error("event failed",
				slog.String("conn_id", conn.ID()),
				slog.String("event", f.EventType),
				slog.Any("error", err))
		} else {
			d.logger.Debug("event rejected",
				slog.String("conn_id", conn.ID()),
				slog.String("event", f.EventType),
				slog.Any("error", err))
		}
		d.replyError(conn, f.EventType, status, apierr.Message(err))
	}
}

// Disconnect runs the engine's disconnect path for a closed connection
func (d *Dispatcher) Disconnect(ctx context.Context, conn realtime.Conn) {
	d.engine.HandleDisconnect(ctx, conn)
}

func (d *Dispatcher) handle(ctx context.Context, conn realtime.Conn, event model.InboundEvent, payload json.RawMessage) error {
	switch event {
	case model.EventConnect:
		return d.handleConnect(ctx, conn, payload)
	case model.EventJoinRoom:
		return d.handleJoinRoom(ctx, conn, payload)
	case model.EventJoinRoomWithCode:
		return d.handleJoinRoomWithCode(ctx, conn, payload)
	case model.EventLeaveRoom:
		return d.handleLeaveRoom(ctx, conn, payload)
	case model.EventJoinGame:
		return d.handleJoinGame(ctx, conn, payload)
	case model.EventStartSpectating:
		return d.handleSpectating(ctx, conn, payload, true)
	case model.EventStopSpectating:
		return d.handleSpectating(ctx, conn, payload, false)
	case model.EventAbandonGame:
		return d.handleAbandonGame(ctx, conn, payload)
	case model.EventKickPlayer:
		return d.handleKickPlayer(ctx, conn, payload)
	case model.EventReassignHost:
		return d.handleReassignHost(ctx, conn, payload)
	case model.EventGameCreationFailed:
		return d.handlePassthrough(ctx, model.OutboundGameCreationFailed, payload)
	case model.EventGameSettingsChanged:
		return d.handlePassthrough(ctx, model.OutboundGameSettingsChanged, payload)
	default:
		panic(fmt.Sprintf("unhandled inbound event %d", event))
	}
}

func (d *Dispatcher) handleConnect(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if _, err := d.requirePlayer(ctx, p.PlayerID); err != nil {
		return err
	}
	if p.RoomID != "" {
		if _, err := d.requireRoom(ctx, p.RoomID); err != nil {
			return err
		}
	}
	return d.engine.Connect(ctx, conn, p.PlayerID, p.RoomID)
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if err := requireIDs(p.PlayerID, p.RoomID); err != nil {
		return err
	}
	if _, err := d.requirePlayer(ctx, p.PlayerID); err != nil {
		return err
	}
	if _, err := d.requireRoom(ctx, p.RoomID); err != nil {
		return err
	}
	return d.engine.JoinRoom(ctx, conn, p.PlayerID, p.RoomID, p.Password)
}

func (d *Dispatcher) handleJoinRoomWithCode(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if p.PlayerID == "" {
		return model.ErrMissingPlayerID
	}
	if p.RoomCode == "" {
		return model.ErrMissingRoomCode
	}
	if _, err := d.requirePlayer(ctx, p.PlayerID); err != nil {
		return err
	}
	if _, err := d.storage.GetRoomByCode(ctx, p.RoomCode); err != nil {
		return err
	}
	return d.engine.JoinRoomWithCode(ctx, conn, p.PlayerID, p.RoomCode, p.Password)
}

func (d *Dispatcher) handleLeaveRoom(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	player, err := d.requirePlayer(ctx, p.PlayerID)
	if err != nil {
		return err
	}
	if p.RoomID != "" {
		rm, err := d.requireRoom(ctx, p.RoomID)
		if err != nil {
			return err
		}
		if err := requireMember(rm, player); err != nil {
			return err
		}
	}
	return d.engine.LeaveRoom(ctx, conn, p.PlayerID, p.RoomID)
}

func (d *Dispatcher) handleJoinGame(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p contextPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	c := p.Context
	if _, _, err := d.requireGameScope(ctx, c, gameScope{gameRequired: true}); err != nil {
		return err
	}
	return d.engine.JoinGame(ctx, conn, c.PlayerID, c.RoomID, c.GameID)
}

func (d *Dispatcher) handleSpectating(ctx context.Context, conn realtime.Conn, payload json.RawMessage, start bool) error {
	var p contextPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	c := p.Context
	if _, _, err := d.requireGameScope(ctx, c, gameScope{participantRequired: true}); err != nil {
		return err
	}
	if start {
		return d.engine.StartSpectating(ctx, conn, c.PlayerID, c.RoomID, c.GameID)
	}
	return d.engine.StopSpectating(ctx, conn, c.PlayerID, c.RoomID, c.GameID)
}

func (d *Dispatcher) handleAbandonGame(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p contextPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	c := p.Context
	if _, _, err := d.requireGameScope(ctx, c, gameScope{gameRequired: true}); err != nil {
		return err
	}
	return d.engine.AbandonGame(ctx, conn, c.PlayerID, c.RoomID, c.GameID)
}

func (d *Dispatcher) handleKickPlayer(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if err := requireIDs(p.PlayerID, p.RoomID); err != nil {
		return err
	}
	if p.TargetPlayerID == "" {
		return model.ErrMissingTargetPlayerID
	}
	duration, err := parseDuration(p.Duration)
	if err != nil {
		return err
	}
	if _, _, err := d.requireRoomMember(ctx, p.PlayerID, p.RoomID); err != nil {
		return err
	}
	if _, err := d.requirePlayer(ctx, p.TargetPlayerID); err != nil {
		return err
	}
	return d.engine.KickPlayer(ctx, conn, p.PlayerID, p.RoomID, p.TargetPlayerID, duration)
}

func (d *Dispatcher) handleReassignHost(ctx context.Context, conn realtime.Conn, payload json.RawMessage) error {
	var p flatPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if err := requireIDs(p.PlayerID, p.RoomID); err != nil {
		return err
	}
	if p.NewHostPlayerID == "" {
		return model.ErrMissingNewHostID
	}
	if _, _, err := d.requireRoomMember(ctx, p.PlayerID, p.RoomID); err != nil {
		return err
	}
	if _, err := d.requirePlayer(ctx, p.NewHostPlayerID); err != nil {
		return err
	}
	return d.engine.ReassignHost(ctx, conn, p.PlayerID, p.RoomID, p.NewHostPlayerID)
}

// handlePassthrough rebroadcasts the client's payload to its room unchanged
func (d *Dispatcher) handlePassthrough(ctx context.Context, eventType model.OutboundEvent, payload json.RawMessage) error {
	if roomReference(payload) == "" {
		return model.ErrMissingRoomID
	}
	d.engine.Broadcast(ctx, model.Event{Type: eventType, Payload: payload}, "")
	return nil
}

func (d *Dispatcher) replyError(conn realtime.Conn, eventType string, status int, message string) {
	if !conn.IsOpen() {
		return
	}
	err := d.engine.Reply(conn, model.Event{
		Type: model.OutboundError,
		Payload: model.ErrorPayload{
			EventType: eventType,
			Error:     message,
			Status:    status,
		},
	})
	if err != nil {
		d.logger.Warn("failed to send error frame",
			slog.String("conn_id", conn.ID()),
			slog.Any("error", err))
	}
}
