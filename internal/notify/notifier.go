package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/roomhub/internal/dependencies/clock"
	"github.com/mcoot/roomhub/internal/model"
)

// Notifier tells systems outside the room engine about lifecycle events. It is
// called by the HTTP layer after a change has been stored.
type Notifier interface {
	RoomCreated(ctx context.Context, room *model.Room) error
	PlayerRegistered(ctx context.Context, player *model.Player) error
	BanResolved(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error
	Close() error
}

// Message kinds, also used as subject suffixes
const (
	KindRoomCreated      = "room_created"
	KindPlayerRegistered = "player_registered"
	KindBanResolved      = "ban_resolved"
)

// Message is the JSON body published for every notification
type Message struct {
	Kind       string         `json:"kind"`
	RoomID     model.RoomID   `json:"roomID,omitempty"`
	RoomCode   model.RoomCode `json:"roomCode,omitempty"`
	PlayerID   model.PlayerID `json:"playerID,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// LogNotifier records notifications in the log only
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) RoomCreated(ctx context.Context, room *model.Room) error {
	n.logger.InfoContext(ctx, "room created",
		slog.String("room_id", string(room.ID)),
		slog.String("code", string(room.Code)),
		slog.String("owner_id", string(room.OwnerPlayerID)))
	return nil
}

func (n *LogNotifier) PlayerRegistered(ctx context.Context, player *model.Player) error {
	n.logger.InfoContext(ctx, "player registered", slog.String("player_id", string(player.ID)))
	return nil
}

func (n *LogNotifier) BanResolved(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error {
	n.logger.InfoContext(ctx, "ban resolved",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// Publisher is the subset of *nats.Conn the NATS notifier needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes notifications as JSON on <prefix>.<kind>
type NATSNotifier struct {
	publisher Publisher
	prefix    string
	clock     clock.Clock
	logger    *slog.Logger
	close     func() error
}

// NewNATSNotifier connects to NATS and publishes through that connection
func NewNATSNotifier(url, prefix string, clock clock.Clock, logger *slog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("roomhub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	n := NewNATSNotifierWithPublisher(conn, prefix, clock, logger)
	n.close = conn.Drain
	return n, nil
}

// NewNATSNotifierWithPublisher creates a NATSNotifier over an existing publisher
func NewNATSNotifierWithPublisher(publisher Publisher, prefix string, clock clock.Clock, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{
		publisher: publisher,
		prefix:    prefix,
		clock:     clock,
		logger:    logger.With(slog.String("component", "notify")),
		close:     func() error { return nil },
	}
}

func (n *NATSNotifier) RoomCreated(ctx context.Context, room *model.Room) error {
	return n.publish(ctx, Message{
		Kind:     KindRoomCreated,
		RoomID:   room.ID,
		RoomCode: room.Code,
		PlayerID: room.OwnerPlayerID,
	})
}

func (n *NATSNotifier) PlayerRegistered(ctx context.Context, player *model.Player) error {
	return n.publish(ctx, Message{Kind: KindPlayerRegistered, PlayerID: player.ID})
}

func (n *NATSNotifier) BanResolved(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) error {
	return n.publish(ctx, Message{Kind: KindBanResolved, RoomID: roomID, PlayerID: playerID})
}

// Close drains the underlying connection when the notifier owns one
func (n *NATSNotifier) Close() error {
	return n.close()
}

// Subject returns the subject a message kind is published on
func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

func (n *NATSNotifier) publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.OccurredAt = n.clock.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := n.Subject(msg.Kind)
	if err := n.publisher.Publish(subject, data); err != nil {
		n.logger.Error("failed to publish notification",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
