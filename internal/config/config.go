// Package config loads server configuration from defaults, an optional TOML
// file, an optional .env file and PARTY_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQL    = "sql"
)

// Config is the complete server configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Admin   AdminConfig   `toml:"admin"`
	Events  EventsConfig  `toml:"events"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type StorageConfig struct {
	// Type is memory, redis or sql
	Type      string `toml:"type"`
	RedisURL  string `toml:"redis_url"`
	SQLDriver string `toml:"sql_driver"`
	SQLDSN    string `toml:"sql_dsn"`
}

type LedgerConfig struct {
	AllowNegativeBalance bool          `toml:"allow_negative_balance"`
	StoreTimeout         time.Duration `toml:"store_timeout"`
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash; empty disables admin login
	PasswordHash    string        `toml:"password_hash"`
	SessionDuration time.Duration `toml:"session_duration"`
}

type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type:      StorageMemory,
			RedisURL:  "redis://localhost:6379",
			SQLDriver: "sqlite",
			SQLDSN:    "partycasino.db",
		},
		Ledger: LedgerConfig{
			AllowNegativeBalance: true,
			StoreTimeout:         5 * time.Second,
		},
		Admin: AdminConfig{
			SessionDuration: 12 * time.Hour,
		},
		Events: EventsConfig{
			KafkaTopic: "partycasino.events",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. path names a TOML file and envFile a .env
// file; either may be empty, and a missing .env file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PARTY_HOST", &cfg.Server.Host)
	num("PARTY_PORT", &cfg.Server.Port)
	str("PARTY_STORAGE_TYPE", &cfg.Storage.Type)
	str("PARTY_REDIS_URL", &cfg.Storage.RedisURL)
	str("PARTY_SQL_DRIVER", &cfg.Storage.SQLDriver)
	str("PARTY_SQL_DSN", &cfg.Storage.SQLDSN)
	flag("PARTY_ALLOW_NEGATIVE_BALANCE", &cfg.Ledger.AllowNegativeBalance)
	duration("PARTY_STORE_TIMEOUT", &cfg.Ledger.StoreTimeout)
	str("PARTY_ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	duration("PARTY_ADMIN_SESSION_DURATION", &cfg.Admin.SessionDuration)
	str("PARTY_KAFKA_TOPIC", &cfg.Events.KafkaTopic)
	str("PARTY_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := os.LookupEnv("PARTY_KAFKA_BROKERS"); ok {
		cfg.Events.KafkaBrokers = splitList(v)
	}

	return errors.Join(errs...)
}

// Validate reports settings that cannot work together
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory, StorageRedis, StorageSQL:
	default:
		return fmt.Errorf("unknown storage type %q: must be memory, redis or sql", c.Storage.Type)
	}
	if c.Storage.Type == StorageRedis && c.Storage.RedisURL == "" {
		return errors.New("redis storage needs redis_url")
	}
	if c.Storage.Type == StorageSQL && c.Storage.SQLDSN == "" {
		return errors.New("sql storage needs sql_dsn")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Ledger.StoreTimeout <= 0 {
		return errors.New("store_timeout must be positive")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
