package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/roomhub/internal/config"
	"github.com/mcoot/roomhub/internal/dependencies/clock"
	"github.com/mcoot/roomhub/internal/dependencies/random"
	"github.com/mcoot/roomhub/internal/notify"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/services/auth"
	"github.com/mcoot/roomhub/internal/services/room"
	"github.com/mcoot/roomhub/internal/storage"
	"github.com/mcoot/roomhub/internal/storage/memory"
	redisstorage "github.com/mcoot/roomhub/internal/storage/redis"
	"github.com/mcoot/roomhub/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Notifier notify.Notifier

	// Realtime plumbing
	Registry *realtime.Registry
	Fanout   *realtime.Fanout
	Monitor  *realtime.Monitor

	// Services
	Engine      *room.Engine
	AuthService *auth.Service

	// Transport
	Dispatcher *ws.Dispatcher
	WebSocket  *ws.Server

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Room holds the room rules; zero fields take room.DefaultConfig values
	Room room.Config
	// PingInterval is the liveness heartbeat; zero means 30s
	PingInterval time.Duration
	// Socket tunes WebSocket connections; zero value means ws.DefaultConfig
	Socket ws.Config
	// NotifierType selects "log" (default) or "nats"
	NotifierType  string
	NATSURL       string
	SubjectPrefix string
	// HasherCost is the bcrypt cost; zero means bcrypt.DefaultCost
	HasherCost int
}

// FromConfig builds a factory Config from loaded settings
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	rt := cfg.Realtime
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.Storage.Redis.URL
	redisCfg.PoolSize = cfg.Storage.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Storage.Redis.MinIdleConns
	redisCfg.MaxTxRetries = cfg.Storage.Redis.MaxTxRetries

	return Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		RedisConfig: &redisCfg,
		Room: room.Config{
			MaxActivePlayersPerRoom: rt.MaxActivePlayersPerRoom,
			MaxKickDurationSeconds:  rt.MaxKickDurationSeconds,
			HostReassignDelay:       rt.HostReassignDelay,
		},
		PingInterval: rt.PingInterval,
		Socket: ws.Config{
			PongWait:       rt.PongWait,
			WriteWait:      rt.WriteWait,
			SendBufferSize: rt.SendBufferSize,
			MaxFrameBytes:  rt.MaxFrameBytes,
			InboundRate:    rate.Limit(rt.InboundRate),
			InboundBurst:   rt.InboundBurst,
		},
		NotifierType:  cfg.Notifier.Type,
		NATSURL:       cfg.Notifier.NATSURL,
		SubjectPrefix: cfg.Notifier.SubjectPrefix,
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	notifier, err := newNotifier(cfg, clk, logger)
	if err != nil {
		closeStorage(store)
		return nil, err
	}

	return newWithDependencies(store, clk, rnd, notifier, auth.NewBcryptHasher(cfg.HasherCost), cfg, logger), nil
}

func newNotifier(cfg Config, clk clock.Clock, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.NotifierType {
	case "", config.NotifierLog:
		return notify.NewLogNotifier(logger), nil
	case config.NotifierNATS:
		prefix := cfg.SubjectPrefix
		if prefix == "" {
			prefix = "roomhub"
		}
		n, err := notify.NewNATSNotifier(cfg.NATSURL, prefix, clk, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("invalid NotifierType %q: must be 'log' or 'nats'", cfg.NotifierType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	notifier notify.Notifier,
	hasher room.Hasher,
	cfg Config,
	logger *slog.Logger,
) *App {
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	socket := cfg.Socket
	if socket == (ws.Config{}) {
		socket = ws.DefaultConfig()
	}

	registry := realtime.NewRegistry()
	fanout := realtime.NewFanout(registry, rnd, logger)
	monitor := realtime.NewMonitor(clk, pingInterval, logger)
	engine := room.NewEngine(store, registry, fanout, monitor, hasher, clk, rnd, cfg.Room, logger)
	dispatcher := ws.NewDispatcher(engine, store, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Notifier:    notifier,
		Registry:    registry,
		Fanout:      fanout,
		Monitor:     monitor,
		Engine:      engine,
		AuthService: auth.New(store, clk, logger),
		Dispatcher:  dispatcher,
		WebSocket:   ws.NewServer(dispatcher, socket, logger),
		Logger:      logger,
	}
}

// Close stops the sockets and releases the notifier and storage. Sockets go first
// so their disconnect writes still reach the store.
func (a *App) Close() error {
	a.WebSocket.Close()
	a.Monitor.Close()
	return errors.Join(a.Notifier.Close(), closeStorage(a.Storage))
}

func closeStorage(store storage.Storage) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
