package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/partycasino/internal/api"
	"github.com/mcoot/partycasino/internal/api/response"
	"github.com/mcoot/partycasino/internal/config"
	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/dependencies/ids"
	"github.com/mcoot/partycasino/internal/dependencies/keylock"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/events/kafka"
	"github.com/mcoot/partycasino/internal/events/sse"
	"github.com/mcoot/partycasino/internal/services/auth"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/services/game"
	"github.com/mcoot/partycasino/internal/services/ledger"
	"github.com/mcoot/partycasino/internal/services/players"
	"github.com/mcoot/partycasino/internal/services/reprocess"
	"github.com/mcoot/partycasino/internal/storage"
	"github.com/mcoot/partycasino/internal/storage/memory"
	redisstorage "github.com/mcoot/partycasino/internal/storage/redis"
	"github.com/mcoot/partycasino/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
	StorageTypeSQL    = config.StorageSQL
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator
	Locks *keylock.Locker

	// Events
	Hub     *sse.Hub
	Emitter *events.Emitter

	// Services
	Balances       *balance.Accessor
	Recorder       *ledger.Recorder
	GameController *game.Controller
	ReprocessGuard *reprocess.Guard
	PlayerService  *players.Service
	AuthService    *auth.Service

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sql")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sql")
	SQLConfig *sqlstore.Config
	// BalanceConfig is the balance policy (optional)
	// If zero value, defaults to balance.DefaultConfig()
	BalanceConfig balance.Config
	// AuthConfig holds configuration for the auth service (optional)
	AuthConfig auth.Config
	// KafkaBrokers enables publishing events to Kafka when non-empty
	KafkaBrokers []string
	KafkaTopic   string
}

// FromConfig translates the loaded server configuration into a factory Config
func FromConfig(cfg config.Config, logger *slog.Logger) Config {
	out := Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		BalanceConfig: balance.Config{
			AllowNegative: cfg.Ledger.AllowNegativeBalance,
			StoreTimeout:  cfg.Ledger.StoreTimeout,
		},
		AuthConfig: auth.Config{
			PasswordHash:    cfg.Admin.PasswordHash,
			SessionDuration: cfg.Admin.SessionDuration,
		},
		KafkaBrokers: cfg.Events.KafkaBrokers,
		KafkaTopic:   cfg.Events.KafkaTopic,
	}

	switch cfg.Storage.Type {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		out.RedisConfig = &redisCfg
	case StorageTypeSQL:
		sqlCfg := sqlstore.DefaultConfig()
		sqlCfg.Driver = cfg.Storage.SQLDriver
		sqlCfg.DSN = cfg.Storage.SQLDSN
		out.SQLConfig = &sqlCfg
	}
	return out
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	balanceCfg := cfg.BalanceConfig
	if balanceCfg.StoreTimeout == 0 {
		balanceCfg = balance.DefaultConfig()
	}

	hub := sse.NewHub(response.EncodeEvent, logger)
	publishers := events.Fanout{hub}
	closers := []io.Closer{store}

	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, response.EncodeEvent)
		publishers = append(publishers, pub)
		closers = append(closers, pub)
		logger.Info("publishing events to kafka",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}

	app := newWithDependencies(store, clock.New(), ids.New(), publishers, hub, balanceCfg, cfg.AuthConfig, logger)
	app.closers = closers
	go hub.Run()

	return app, nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageTypeSQL:
		if cfg.SQLConfig == nil {
			return nil, errors.New("SQLConfig required when StorageType is sql")
		}
		store, err := sqlstore.New(ctx, *cfg.SQLConfig)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sql'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	idGen ids.Generator,
	publisher events.Publisher,
	hub *sse.Hub,
	balanceCfg balance.Config,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	locks := keylock.New()
	emitter := events.NewEmitter(publisher, clk, logger.With(slog.String("component", "events")))

	balances := balance.New(store, locks, emitter, balanceCfg, logger.With(slog.String("component", "balance")))
	recorder := ledger.NewRecorder(store, balances, idGen, clk, emitter, logger.With(slog.String("component", "ledger")))
	gameController := game.NewController(store, balances, recorder, locks, emitter, clk, idGen, logger.With(slog.String("component", "game")))
	guard := reprocess.NewGuard(gameController, recorder, balances, logger.With(slog.String("component", "reprocess")))
	playerService := players.New(store, recorder, emitter, clk, idGen, balanceCfg.StoreTimeout, logger.With(slog.String("component", "players")))
	authService := auth.New(clk, authCfg, logger.With(slog.String("component", "auth")))

	return &App{
		Storage:        store,
		Clock:          clk,
		IDs:            idGen,
		Locks:          locks,
		Hub:            hub,
		Emitter:        emitter,
		Balances:       balances,
		Recorder:       recorder,
		GameController: gameController,
		ReprocessGuard: guard,
		PlayerService:  playerService,
		AuthService:    authService,
		logger:         logger,
		closers:        []io.Closer{store},
	}
}

// Router builds the HTTP API over the app's services
func (a *App) Router() http.Handler {
	var ping func(ctx context.Context) error
	if p, ok := a.Storage.(interface{ Ping(context.Context) error }); ok {
		ping = p.Ping
	}

	return api.NewRouter(api.RouterConfig{
		Logger:         a.logger,
		AuthService:    a.AuthService,
		PlayerService:  a.PlayerService,
		GameController: a.GameController,
		ReprocessGuard: a.ReprocessGuard,
		Hub:            a.Hub,
		Ping:           ping,
	})
}

// Close stops the event hub and releases publishers and storage
func (a *App) Close() error {
	a.Hub.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
