package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/dependencies/ids"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/storage"
)

// Receipt describes one applied balance change and the transaction recording it
type Receipt struct {
	Transaction model.Transaction
	Delta       model.Money
	Balance     model.Money // balance after the change
}

// Recorder appends immutable transactions and keeps them in step with balances
type Recorder struct {
	storage  storage.Storage
	balances *balance.Accessor
	ids      ids.Generator
	clock    clock.Clock
	events   *events.Emitter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(
	storage storage.Storage,
	balances *balance.Accessor,
	ids ids.Generator,
	clock clock.Clock,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		storage:  storage,
		balances: balances,
		ids:      ids,
		clock:    clock,
		events:   emitter,
		timeout:  balances.StoreTimeout(),
		logger:   logger,
	}
}

// Record appends tx, assigning an id and timestamp when missing
func (r *Recorder) Record(ctx context.Context, tx *model.Transaction) (model.TransactionID, error) {
	if err := r.append(ctx, tx); err != nil {
		return "", err
	}
	r.events.TransactionCreated(ctx, tx)
	return tx.ID, nil
}

func (r *Recorder) append(ctx context.Context, tx *model.Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}
	if tx.ID == "" {
		tx.ID = model.TransactionID(r.ids.NewID())
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = r.clock.Now()
	}

	ctx, cancel := storage.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.storage.AppendTransaction(ctx, tx); err != nil {
		return model.NewStorageError("append transaction", err)
	}
	metrics.TransactionsRecorded.WithLabelValues(string(tx.Type)).Inc()
	return nil
}

// WithBalanceChange records tx and applies delta to the player's balance as
// one failure unit. If the append fails the balance is never touched; if the
// balance change fails the appended transaction is retracted.
func (r *Recorder) WithBalanceChange(ctx context.Context, playerID model.PlayerID, delta model.Money, tx *model.Transaction) (*Receipt, error) {
	receipt, err := r.withBalanceChange(ctx, playerID, delta, tx)
	if err != nil {
		return nil, err
	}
	r.events.TransactionCreated(ctx, tx)
	return receipt, nil
}

func (r *Recorder) withBalanceChange(ctx context.Context, playerID model.PlayerID, delta model.Money, tx *model.Transaction) (*Receipt, error) {
	tx.PlayerID = playerID
	if err := r.append(ctx, tx); err != nil {
		return nil, err
	}

	newBalance, err := r.balances.Adjust(ctx, playerID, delta)
	if err != nil {
		if rbErr := r.retract(ctx, tx.ID); rbErr != nil {
			r.logger.Error("failed to retract transaction after balance change failed",
				slog.String("transaction_id", string(tx.ID)),
				slog.String("player_id", string(playerID)),
				slog.String("error", rbErr.Error()),
			)
			metrics.Compensations.WithLabelValues("failed").Inc()
			return nil, &model.StorageError{
				Op:     "record with balance change",
				GameID: tx.GameID,
				Err:    errors.Join(err, rbErr),
				Reconciliation: []model.Adjustment{
					{PlayerID: playerID, Delta: 0, TransactionID: tx.ID},
				},
			}
		}
		metrics.Compensations.WithLabelValues("ok").Inc()
		return nil, err
	}

	return &Receipt{
		Transaction: *tx,
		Delta:       delta,
		Balance:     newBalance,
	}, nil
}

// Revert undoes a receipt: the balance change is reversed and the transaction
// retracted. Only valid before the composed operation is acknowledged.
func (r *Recorder) Revert(ctx context.Context, receipt *Receipt) error {
	ctx, cancel := storage.Detached(ctx, r.timeout)
	defer cancel()

	if _, err := r.balances.Restore(ctx, receipt.Transaction.PlayerID, -receipt.Delta); err != nil {
		return err
	}
	return r.retract(ctx, receipt.Transaction.ID)
}

func (r *Recorder) retract(ctx context.Context, id model.TransactionID) error {
	ctx, cancel := storage.Detached(ctx, r.timeout)
	defer cancel()

	if err := r.storage.RetractTransaction(ctx, id); err != nil {
		return model.NewStorageError("retract transaction", err)
	}
	return nil
}

// GameTransactions lists every transaction for a game in append order
func (r *Recorder) GameTransactions(ctx context.Context, gameID model.GameID) ([]*model.Transaction, error) {
	return r.List(ctx, model.TransactionFilter{GameID: gameID})
}

// List returns transactions matching filter in append order
func (r *Recorder) List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	ctx, cancel := storage.WithTimeout(ctx, r.timeout)
	defer cancel()

	txs, err := r.storage.ListTransactions(ctx, filter)
	if err != nil {
		return nil, model.NewStorageError("list transactions", err)
	}
	return txs, nil
}
