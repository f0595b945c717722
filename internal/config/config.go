package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the server's complete configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readtimeout"`
	WriteTimeout    time.Duration `mapstructure:"writetimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects and tunes the store
type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis store
type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"poolsize"`
	MinIdleConns int    `mapstructure:"minidleconns"`
	MaxTxRetries int    `mapstructure:"maxtxretries"`
}

// RealtimeConfig tunes sockets and room rules
type RealtimeConfig struct {
	PingInterval            time.Duration `mapstructure:"pinginterval"`
	PongWait                time.Duration `mapstructure:"pongwait"`
	WriteWait               time.Duration `mapstructure:"writewait"`
	HostReassignDelay       time.Duration `mapstructure:"hostreassigndelay"`
	MaxActivePlayersPerRoom int           `mapstructure:"maxactiveplayersperroom"`
	MaxKickDurationSeconds  int           `mapstructure:"maxkickdurationseconds"`
	SendBufferSize          int           `mapstructure:"sendbuffersize"`
	MaxFrameBytes           int64         `mapstructure:"maxframebytes"`
	InboundRate             float64       `mapstructure:"inboundrate"`
	InboundBurst            int           `mapstructure:"inboundburst"`
}

// NotifierConfig selects where lifecycle notifications go
type NotifierConfig struct {
	Type          string `mapstructure:"type"`
	NATSURL       string `mapstructure:"natsurl"`
	SubjectPrefix string `mapstructure:"subjectprefix"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses the configured level
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log.level %q", c.Level)
	}
	return level, nil
}

// Storage and notifier types
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	NotifierLog   = "log"
	NotifierNATS  = "nats"
)

// Load reads configuration with precedence: environment > config file > defaults.
// The file is optional unless configPath names one explicitly.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("roomhub")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/roomhub")
	}

	v.SetEnvPrefix("ROOMHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "15s")
	v.SetDefault("server.shutdowntimeout", "10s")

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.poolsize", 10)
	v.SetDefault("storage.redis.minidleconns", 2)
	v.SetDefault("storage.redis.maxtxretries", 10)

	v.SetDefault("realtime.pinginterval", "30s")
	v.SetDefault("realtime.pongwait", "60s")
	v.SetDefault("realtime.writewait", "10s")
	v.SetDefault("realtime.hostreassigndelay", "5s")
	v.SetDefault("realtime.maxactiveplayersperroom", 8)
	v.SetDefault("realtime.maxkickdurationseconds", 86400)
	v.SetDefault("realtime.sendbuffersize", 256)
	v.SetDefault("realtime.maxframebytes", 64*1024)
	v.SetDefault("realtime.inboundrate", 20.0)
	v.SetDefault("realtime.inboundburst", 40)

	v.SetDefault("notifier.type", NotifierLog)
	v.SetDefault("notifier.natsurl", "nats://localhost:4222")
	v.SetDefault("notifier.subjectprefix", "roomhub")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdowntimeout must not be negative"))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			errs = append(errs, errors.New("storage.redis.url is required for redis storage"))
		}
		if c.Storage.Redis.MaxTxRetries < 1 {
			errs = append(errs, errors.New("storage.redis.maxtxretries must be at least 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}

	rt := c.Realtime
	if rt.PingInterval <= 0 {
		errs = append(errs, errors.New("realtime.pinginterval must be positive"))
	}
	if rt.PongWait <= rt.PingInterval {
		errs = append(errs, errors.New("realtime.pongwait must exceed realtime.pinginterval"))
	}
	if rt.WriteWait <= 0 {
		errs = append(errs, errors.New("realtime.writewait must be positive"))
	}
	if rt.HostReassignDelay < 0 {
		errs = append(errs, errors.New("realtime.hostreassigndelay must not be negative"))
	}
	if rt.MaxActivePlayersPerRoom < 1 {
		errs = append(errs, errors.New("realtime.maxactiveplayersperroom must be at least 1"))
	}
	if rt.MaxKickDurationSeconds < 0 {
		errs = append(errs, errors.New("realtime.maxkickdurationseconds must not be negative"))
	}
	if rt.SendBufferSize < 1 {
		errs = append(errs, errors.New("realtime.sendbuffersize must be at least 1"))
	}
	if rt.MaxFrameBytes < 1 {
		errs = append(errs, errors.New("realtime.maxframebytes must be at least 1"))
	}
	if rt.InboundRate <= 0 || rt.InboundBurst < 1 {
		errs = append(errs, errors.New("realtime.inboundrate and realtime.inboundburst must be positive"))
	}

	switch c.Notifier.Type {
	case NotifierLog:
	case NotifierNATS:
		if c.Notifier.NATSURL == "" {
			errs = append(errs, errors.New("notifier.natsurl is required for the nats notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notifier.type %q", c.Notifier.Type))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
