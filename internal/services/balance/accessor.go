package balance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/partycasino/internal/dependencies/keylock"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

// Config holds balance policy
type Config struct {
	// AllowNegative permits balances below zero
	AllowNegative bool

	// StoreTimeout bounds each store call
	StoreTimeout time.Duration
}

// DefaultConfig returns the default balance policy
func DefaultConfig() Config {
	return Config{
		AllowNegative: true,
		StoreTimeout:  storage.DefaultTimeout,
	}
}

// Accessor is the only path that mutates a player record after creation
type Accessor struct {
	storage storage.Storage
	locks   *keylock.Locker
	events  *events.Emitter
	cfg     Config
	logger  *slog.Logger
}

// New creates a new Accessor
func New(
	storage storage.Storage,
	locks *keylock.Locker,
	emitter *events.Emitter,
	cfg Config,
	logger *slog.Logger,
) *Accessor {
	return &Accessor{
		storage: storage,
		locks:   locks,
		events:  emitter,
		cfg:     cfg,
		logger:  logger,
	}
}

// AllowNegative reports whether balances may go below zero
func (a *Accessor) AllowNegative() bool {
	return a.cfg.AllowNegative
}

// StoreTimeout is the bound applied to each store call
func (a *Accessor) StoreTimeout() time.Duration {
	return a.cfg.StoreTimeout
}

// Adjust applies delta to the player's balance and returns the new balance.
// It does not record a transaction.
func (a *Accessor) Adjust(ctx context.Context, playerID model.PlayerID, delta model.Money) (model.Money, error) {
	return a.adjust(ctx, playerID, delta, a.cfg.AllowNegative)
}

// Restore applies delta regardless of the negative balance policy.
// It is used to undo an earlier Adjust, which must never be refused.
func (a *Accessor) Restore(ctx context.Context, playerID model.PlayerID, delta model.Money) (model.Money, error) {
	return a.adjust(ctx, playerID, delta, true)
}

func (a *Accessor) adjust(ctx context.Context, playerID model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error) {
	unlock := a.locks.Lock(PlayerLockKey(playerID))
	defer unlock()

	ctx, cancel := storage.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	newBalance, err := a.storage.AdjustBalance(ctx, playerID, delta, allowNegative)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientBalance) {
			metrics.BalanceAdjustments.WithLabelValues("insufficient").Inc()
		} else {
			metrics.BalanceAdjustments.WithLabelValues("error").Inc()
		}
		return 0, model.NewStorageError("adjust balance", err)
	}
	metrics.BalanceAdjustments.WithLabelValues("ok").Inc()

	a.logger.Debug("balance adjusted",
		slog.String("player_id", string(playerID)),
		slog.String("delta", delta.String()),
		slog.String("balance", newBalance.String()),
	)

	a.emitPlayer(ctx, playerID)
	return newBalance, nil
}

// RecordResult adds to the player's games played and won counters
func (a *Accessor) RecordResult(ctx context.Context, playerID model.PlayerID, played, won int) error {
	unlock := a.locks.Lock(PlayerLockKey(playerID))
	defer unlock()

	ctx, cancel := storage.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	if err := a.storage.IncrementStats(ctx, playerID, played, won); err != nil {
		return model.NewStorageError("increment stats", err)
	}

	a.emitPlayer(ctx, playerID)
	return nil
}

// emitPlayer publishes the player's current state. A failed read only skips the event.
func (a *Accessor) emitPlayer(ctx context.Context, playerID model.PlayerID) {
	player, err := a.storage.GetPlayer(ctx, playerID)
	if err != nil {
		a.logger.Warn("failed to load player for event",
			slog.String("player_id", string(playerID)),
			slog.String("error", err.Error()),
		)
		return
	}
	a.events.PlayerUpdated(ctx, player)
}

// PlayerLockKey is the key lock name guarding one player's record
func PlayerLockKey(id model.PlayerID) string {
	return "player:" + string(id)
}
