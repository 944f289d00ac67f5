// Package reprocess rebuilds the ledger entries of games that were settled
// without writing transactions.
package reprocess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/services/ledger"
)

// GameLocker loads a game under its per-game lock
type GameLocker interface {
	LockGame(ctx context.Context, ref model.GameRef) (*model.Game, func(), error)
}

// Result is the outcome of Reprocess
type Result struct {
	GameID              model.GameID
	AlreadyProcessed    bool
	TransactionsCreated int
}

// Guard writes the missing transactions for a completed game exactly once
type Guard struct {
	games    GameLocker
	recorder *ledger.Recorder
	balances *balance.Accessor
	logger   *slog.Logger
}

// NewGuard creates a new Guard
func NewGuard(games GameLocker, recorder *ledger.Recorder, balances *balance.Accessor, logger *slog.Logger) *Guard {
	return &Guard{
		games:    games,
		recorder: recorder,
		balances: balances,
		logger:   logger,
	}
}

// Reprocess writes one bet per participant and one win for a completed game
// and applies the matching balance and counter changes. A game that already
// has a win transaction is reported as processed without any writes.
func (g *Guard) Reprocess(ctx context.Context, caller model.Caller, ref model.GameRef) (*Result, error) {
	if !caller.IsAdmin {
		return nil, model.ErrNotAuthorized
	}

	game, unlock, err := g.games.LockGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if game.Status != model.GameStatusCompleted || game.Winner == "" {
		return nil, model.ErrGameNotCompleted
	}

	wins, err := g.recorder.List(ctx, model.TransactionFilter{GameID: game.ID, Type: model.TransactionWin})
	if err != nil {
		return nil, err
	}
	if len(wins) > 0 {
		metrics.Reprocessed.WithLabelValues("already_processed").Inc()
		g.logger.Info("game already processed",
			slog.String("game_id", string(game.ID)),
			slog.String("caller", caller.ID),
		)
		return &Result{GameID: game.ID, AlreadyProcessed: true}, nil
	}

	saga := g.recorder.NewSaga("reprocess game", game.ID)
	for _, id := range game.PlayerIDs() {
		bet := game.Players[id].InitialBet
		_, err := saga.WithBalanceChange(ctx, id, -bet, &model.Transaction{
			Amount:      -bet,
			Type:        model.TransactionBet,
			Description: fmt.Sprintf("Bet in %s (reprocessed)", label(game)),
		})
		if err != nil {
			return nil, saga.Fail(ctx, err)
		}
	}

	_, err = saga.WithBalanceChange(ctx, game.Winner, game.TotalPot, &model.Transaction{
		Amount:      game.TotalPot,
		Type:        model.TransactionWin,
		Description: fmt.Sprintf("Won %s (reprocessed)", label(game)),
	})
	if err != nil {
		return nil, saga.Fail(ctx, err)
	}

	for _, id := range game.PlayerIDs() {
		won := 0
		if id == game.Winner {
			won = 1
		}
		if err := g.balances.RecordResult(ctx, id, 1, won); err != nil {
			return nil, saga.Fail(ctx, err)
		}
		saga.Defer("revert stats "+string(id), func(ctx context.Context) error {
			return g.balances.RecordResult(ctx, id, -1, -won)
		})
	}

	created := len(saga.Receipts())
	saga.Commit(ctx)

	metrics.Reprocessed.WithLabelValues("processed").Inc()
	g.logger.Info("game reprocessed",
		slog.String("game_id", string(game.ID)),
		slog.String("caller", caller.ID),
		slog.Int("transactions_created", created),
	)

	return &Result{GameID: game.ID, TransactionsCreated: created}, nil
}

func label(game *model.Game) string {
	if game.Name != "" {
		return game.Name
	}
	return "game " + string(game.ID)
}
