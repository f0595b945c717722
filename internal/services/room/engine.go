package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/roomhub/internal/dependencies/clock"
	"github.com/mcoot/roomhub/internal/dependencies/random"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// hostCheckTimeout bounds a delayed host check, which runs outside any request
	hostCheckTimeout = 10 * time.Second
)

// Config holds the room coordination limits
type Config struct {
	// MaxActivePlayersPerRoom caps active, non-spectating players in a room and in a game
	MaxActivePlayersPerRoom int
	// MaxKickDurationSeconds is the longest timed ban; 0 seconds means indefinite
	MaxKickDurationSeconds int
	// HostReassignDelay is how long a disconnected host has to come back
	HostReassignDelay time.Duration
	// RoomCodeAttempts bounds rejection sampling of room codes
	RoomCodeAttempts int
}

// DefaultConfig returns the default limits
func DefaultConfig() Config {
	return Config{
		MaxActivePlayersPerRoom: 8,
		MaxKickDurationSeconds:  24 * 60 * 60,
		HostReassignDelay:       5 * time.Second,
		RoomCodeAttempts:        10,
	}
}

// Hasher hashes and verifies room passwords
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Engine runs the room state machine: membership, hosts, bans, spectating and
// game participation. It mutates storage, keeps the connection registry in step
// and decides what gets broadcast.
type Engine struct {
	storage  storage.Storage
	registry *realtime.Registry
	fanout   *realtime.Fanout
	monitor  *realtime.Monitor
	hasher   Hasher
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewEngine creates a new Engine
func NewEngine(
	storage storage.Storage,
	registry *realtime.Registry,
	fanout *realtime.Fanout,
	monitor *realtime.Monitor,
	hasher Hasher,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	defaults := DefaultConfig()
	if cfg.MaxActivePlayersPerRoom <= 0 {
		cfg.MaxActivePlayersPerRoom = defaults.MaxActivePlayersPerRoom
	}
	if cfg.MaxKickDurationSeconds <= 0 {
		cfg.MaxKickDurationSeconds = defaults.MaxKickDurationSeconds
	}
	if cfg.RoomCodeAttempts <= 0 {
		cfg.RoomCodeAttempts = defaults.RoomCodeAttempts
	}
	return &Engine{
		storage:  storage,
		registry: registry,
		fanout:   fanout,
		monitor:  monitor,
		hasher:   hasher,
		clock:    clock,
		random:   random,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "room")),
	}
}

// Config returns the engine's limits
func (e *Engine) Config() Config {
	return e.cfg
}

// Registry returns the connection registry the engine maintains
func (e *Engine) Registry() *realtime.Registry {
	return e.registry
}

// Broadcast sends an event to the room named in its payload
func (e *Engine) Broadcast(ctx context.Context, event model.Event, exclude model.PlayerID) int {
	return e.fanout.Broadcast(ctx, event, exclude)
}

// Reply sends an event to a single connection
func (e *Engine) Reply(conn realtime.Conn, event model.Event) error {
	return e.fanout.Send(conn, event)
}

// loadMembers fetches every player in the room's membership list
func (e *Engine) loadMembers(ctx context.Context, room *model.Room) (map[model.PlayerID]*model.Player, error) {
	return e.loadPlayers(ctx, room.PlayerIDs)
}

func (e *Engine) loadPlayers(ctx context.Context, ids []model.PlayerID) (map[model.PlayerID]*model.Player, error) {
	players, err := e.storage.GetPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[model.PlayerID]*model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	return byID, nil
}

// countActivePlayers counts players live in the room and not spectating, ignoring one id
func countActivePlayers(players map[model.PlayerID]*model.Player, roomID model.RoomID, ignore model.PlayerID) int {
	n := 0
	for id, p := range players {
		if id == ignore {
			continue
		}
		if p.IsLiveIn(roomID) && !p.Spectating {
			n++
		}
	}
	return n
}

// roster lists players attributed to the room, with fresh substituted for its stored copy
func (e *Engine) roster(ctx context.Context, roomID model.RoomID, fresh *model.Player) ([]model.PlayerSummary, error) {
	if roomID == "" {
		return []model.PlayerSummary{model.SummarizePlayer(fresh)}, nil
	}
	players, err := e.storage.ListPlayersInRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.PlayerSummary, 0, len(players)+1)
	found := false
	for _, p := range players {
		if p.ID == fresh.ID {
			p = fresh
			found = true
		}
		summaries = append(summaries, model.SummarizePlayer(p))
	}
	if !found {
		summaries = append(summaries, model.SummarizePlayer(fresh))
	}
	return summaries, nil
}

// register binds the connection to the room scope, or to NoRoom when roomID is empty
func (e *Engine) register(conn realtime.Conn, roomID model.RoomID, playerID model.PlayerID) {
	if conn == nil {
		return
	}
	e.registry.Add(realtime.RoomScope(roomID), playerID, conn)
}

// evict moves the player's connection, if it is in the room scope, to NoRoom
func (e *Engine) evict(roomID model.RoomID, playerID model.PlayerID) {
	e.registry.Move(realtime.RoomScope(roomID), realtime.NoRoom, playerID)
}

func hostCheckKey(roomID model.RoomID, playerID model.PlayerID) string {
	return "host-check:" + string(roomID) + ":" + string(playerID)
}
