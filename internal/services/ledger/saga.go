package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error

	// pending describes what stays applied if undo fails
	pending []model.Adjustment
}

// Saga composes several failure units into one. Each applied step registers
// how to undo it; Fail undoes them newest first.
type Saga struct {
	recorder *Recorder
	op       string
	gameID   model.GameID
	steps    []compensation
	receipts []*Receipt
	logger   *slog.Logger
}

// NewSaga starts a saga for op on a game
func (r *Recorder) NewSaga(op string, gameID model.GameID) *Saga {
	return &Saga{
		recorder: r,
		op:       op,
		gameID:   gameID,
		logger: r.logger.With(
			slog.String("op", op),
			slog.String("game_id", string(gameID)),
		),
	}
}

// Defer registers undo for a step that has been applied
func (s *Saga) Defer(name string, undo func(ctx context.Context) error, pending ...model.Adjustment) {
	s.steps = append(s.steps, compensation{name: name, undo: undo, pending: pending})
}

// WithBalanceChange runs Recorder.WithBalanceChange and registers its revert.
// The transaction.created event is held back until Commit.
func (s *Saga) WithBalanceChange(ctx context.Context, playerID model.PlayerID, delta model.Money, tx *model.Transaction) (*Receipt, error) {
	tx.GameID = s.gameID
	receipt, err := s.recorder.withBalanceChange(ctx, playerID, delta, tx)
	if err != nil {
		return nil, err
	}
	s.receipts = append(s.receipts, receipt)

	s.Defer("revert "+string(tx.Type)+" "+string(playerID), func(ctx context.Context) error {
		return s.recorder.Revert(ctx, receipt)
	}, model.Adjustment{PlayerID: playerID, Delta: delta, TransactionID: receipt.Transaction.ID})
	return receipt, nil
}

// Receipts returns the balance changes applied so far
func (s *Saga) Receipts() []*Receipt {
	return s.receipts
}

// Commit ends the saga successfully and announces its transactions
func (s *Saga) Commit(ctx context.Context) {
	for _, receipt := range s.receipts {
		s.recorder.events.TransactionCreated(ctx, &receipt.Transaction)
	}
	s.steps = nil
	s.receipts = nil
}

// Fail rolls back every registered step in reverse order and returns cause.
// If any undo fails, cause is escalated as a StorageError whose
// Reconciliation lists the changes still applied.
func (s *Saga) Fail(ctx context.Context, cause error) error {
	ctx, cancel := storage.Detached(ctx, s.recorder.timeout)
	defer cancel()

	var (
		rbErrs  []error
		pending []model.Adjustment
	)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.logger.Error("compensation failed",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			rbErrs = append(rbErrs, err)
			pending = append(pending, step.pending...)
		}
	}
	s.steps = nil
	s.receipts = nil

	if len(rbErrs) == 0 {
		metrics.Compensations.WithLabelValues("ok").Inc()
		s.logger.Warn("operation rolled back", slog.String("cause", cause.Error()))
		return cause
	}

	metrics.Compensations.WithLabelValues("failed").Inc()
	return &model.StorageError{
		Op:             s.op,
		GameID:         s.gameID,
		Err:            errors.Join(append([]error{cause}, rbErrs...)...),
		Reconciliation: pending,
	}
}
