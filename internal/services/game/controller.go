package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/dependencies/ids"
	"github.com/mcoot/partycasino/internal/dependencies/keylock"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/metrics"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/services/ledger"
	"github.com/mcoot/partycasino/internal/storage"
)

// CreateGameRequest describes a new game and its initial players
type CreateGameRequest struct {
	Name      string
	Type      string
	CreatedBy string
	Players   []model.InitialPlayer

	// LocalID links the game to a client-side record when it is being synced
	LocalID string
}

// PlayerResult reports how one initial player's bet went
type PlayerResult struct {
	PlayerID      model.PlayerID
	Bet           model.Money
	TransactionID model.TransactionID // empty when Err is set
	Err           error
}

// CreateResult is the outcome of CreateGame
type CreateResult struct {
	Game    *model.Game
	Results []PlayerResult
}

// Failed returns the results whose bet could not be placed
func (r *CreateResult) Failed() []PlayerResult {
	var failed []PlayerResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Controller manages the game state machine and the money it moves
type Controller struct {
	storage  storage.Storage
	balances *balance.Accessor
	recorder *ledger.Recorder
	locks    *keylock.Locker
	events   *events.Emitter
	clock    clock.Clock
	ids      ids.Generator
	timeout  time.Duration
	logger   *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	storage storage.Storage,
	balances *balance.Accessor,
	recorder *ledger.Recorder,
	locks *keylock.Locker,
	emitter *events.Emitter,
	clock clock.Clock,
	ids ids.Generator,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:  storage,
		balances: balances,
		recorder: recorder,
		locks:    locks,
		events:   emitter,
		clock:    clock,
		ids:      ids,
		timeout:  balances.StoreTimeout(),
		logger:   logger,
	}
}

// GameLockKey is the key lock name guarding one game
func GameLockKey(id model.GameID) string {
	return "game:" + string(id)
}

// CreateGame validates the request, places every initial bet and saves the
// game. A player whose bet fails is left out of the game and reported in the
// results. If the game cannot be saved, every placed bet is reverted.
func (c *Controller) CreateGame(ctx context.Context, req CreateGameRequest) (*CreateResult, error) {
	if err := c.validateInitialPlayers(ctx, req.Players); err != nil {
		return nil, err
	}

	game := &model.Game{
		ID:        model.GameID(c.ids.NewID()),
		LocalID:   req.LocalID,
		Name:      req.Name,
		Type:      req.Type,
		Status:    model.GameStatusActive,
		StartTime: c.clock.Now(),
		Players:   make(map[model.PlayerID]model.Stake, len(req.Players)),
		CreatedBy: req.CreatedBy,
	}

	unlock := c.locks.Lock(GameLockKey(game.ID))
	defer unlock()

	// The game is only stored once it lists exactly the players who paid
	saga := c.recorder.NewSaga("create game", game.ID)
	result := &CreateResult{Game: game}
	for _, p := range req.Players {
		res := PlayerResult{PlayerID: p.PlayerID, Bet: p.Bet}
		receipt, err := saga.WithBalanceChange(ctx, p.PlayerID, p.Bet.Neg(), &model.Transaction{
			Amount:      p.Bet.Neg(),
			Type:        model.TransactionBet,
			Description: fmt.Sprintf("Bet in %s", gameLabel(game)),
		})
		if err != nil {
			res.Err = err
			metrics.PlayerJoinFailures.Inc()
			c.logger.Warn("initial bet failed, player left out of game",
				slog.String("game_id", string(game.ID)),
				slog.String("player_id", string(p.PlayerID)),
				slog.String("error", err.Error()),
			)
		} else {
			res.TransactionID = receipt.Transaction.ID
			game.Players[p.PlayerID] = model.Stake{InitialBet: p.Bet}
			// validateInitialPlayers checked that the full sum fits
			game.TotalPot += p.Bet
		}
		result.Results = append(result.Results, res)
	}

	if err := c.saveGame(ctx, game); err != nil {
		c.logger.Error("failed to save game, reverting bets",
			slog.String("game_id", string(game.ID)),
			slog.Int("bets", len(saga.Receipts())),
			slog.String("error", err.Error()),
		)
		return nil, saga.Fail(ctx, err)
	}
	saga.Commit(ctx)

	metrics.GameTransitions.WithLabelValues(string(model.GameStatusActive)).Inc()
	c.events.GameUpdated(ctx, game)

	c.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("type", game.Type),
		slog.Int("player_count", len(game.Players)),
		slog.Int("failed_players", len(result.Failed())),
		slog.String("total_pot", game.TotalPot.String()),
	)

	return result, nil
}

func (c *Controller) validateInitialPlayers(ctx context.Context, players []model.InitialPlayer) error {
	if len(players) == 0 {
		return model.ErrNoPlayers
	}

	var pot model.Money
	seen := make(map[model.PlayerID]bool, len(players))
	for _, p := range players {
		if !p.Bet.IsPositive() {
			return fmt.Errorf("%w: %s bet %s", model.ErrInvalidBet, p.PlayerID, p.Bet)
		}
		if seen[p.PlayerID] {
			return fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p.PlayerID)
		}
		seen[p.PlayerID] = true

		var err error
		if pot, err = pot.Add(p.Bet); err != nil {
			return fmt.Errorf("%w: total pot: %w", model.ErrInvalidBet, err)
		}

		if _, err := c.getPlayer(ctx, p.PlayerID); err != nil {
			return err
		}
	}
	return nil
}

// AddPlayer joins a player to an active game with a bet. The game update,
// the debit and the bet transaction succeed or fail together.
func (c *Controller) AddPlayer(ctx context.Context, ref model.GameRef, playerID model.PlayerID, bet model.Money) (*model.Game, error) {
	if !bet.IsPositive() {
		return nil, model.ErrInvalidBet
	}

	game, unlock, err := c.LockGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !game.IsActive() {
		return nil, model.ErrGameNotActive
	}
	if game.HasPlayer(playerID) {
		return nil, model.ErrDuplicatePlayer
	}

	player, err := c.getPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	// Fail fast; the store check still guards against a concurrent debit
	if !c.balances.AllowNegative() && player.Balance < bet {
		return nil, model.ErrInsufficientBalance
	}

	pot, err := game.TotalPot.Add(bet)
	if err != nil {
		return nil, fmt.Errorf("%w: total pot: %w", model.ErrInvalidBet, err)
	}

	prior := game.Clone()
	game.Players[playerID] = model.Stake{InitialBet: bet}
	game.TotalPot = pot

	if err := c.saveGame(ctx, game); err != nil {
		return nil, err
	}

	saga := c.recorder.NewSaga("add player", game.ID)
	saga.Defer("restore game", c.restoreGame(prior))

	_, err = saga.WithBalanceChange(ctx, playerID, bet.Neg(), &model.Transaction{
		Amount:      bet.Neg(),
		Type:        model.TransactionBet,
		Description: fmt.Sprintf("Bet in %s", gameLabel(game)),
	})
	if err != nil {
		return nil, saga.Fail(ctx, err)
	}
	saga.Commit(ctx)

	c.events.GameUpdated(ctx, game)
	c.logger.Info("player joined game",
		slog.String("game_id", string(game.ID)),
		slog.String("player_id", string(playerID)),
		slog.String("bet", bet.String()),
		slog.String("total_pot", game.TotalPot.String()),
	)

	return game, nil
}

// EndGame settles an active game: the winner is credited the whole pot and
// every participant's counters are updated. Any failure rolls back all of it.
func (c *Controller) EndGame(ctx context.Context, ref model.GameRef, winnerID model.PlayerID) (*model.Game, error) {
	game, unlock, err := c.LockGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !game.IsActive() {
		return nil, model.ErrGameNotActive
	}
	if !game.HasPlayer(winnerID) {
		return nil, model.ErrUnknownWinner
	}

	prior := game.Clone()
	now := c.clock.Now()
	game.Status = model.GameStatusCompleted
	game.Winner = winnerID
	game.EndTime = &now
	settle(game)

	if err := c.saveGame(ctx, game); err != nil {
		return nil, err
	}

	saga := c.recorder.NewSaga("end game", game.ID)
	saga.Defer("restore game", c.restoreGame(prior))

	_, err = saga.WithBalanceChange(ctx, winnerID, game.TotalPot, &model.Transaction{
		Amount:      game.TotalPot,
		Type:        model.TransactionWin,
		Description: fmt.Sprintf("Won %s", gameLabel(game)),
	})
	if err != nil {
		return nil, saga.Fail(ctx, err)
	}

	if err := c.recordResults(ctx, saga, game); err != nil {
		return nil, saga.Fail(ctx, err)
	}
	saga.Commit(ctx)

	metrics.GameTransitions.WithLabelValues(string(model.GameStatusCompleted)).Inc()
	c.events.GameUpdated(ctx, game)
	c.logger.Info("game ended",
		slog.String("game_id", string(game.ID)),
		slog.String("winner", string(winnerID)),
		slog.String("total_pot", game.TotalPot.String()),
	)

	return game, nil
}

// settle fills in every participant's final amount from the pot and winner
func settle(game *model.Game) {
	for id, stake := range game.Players {
		final := stake.InitialBet.Neg()
		if id == game.Winner {
			final = game.TotalPot - stake.InitialBet
		}
		stake.FinalAmount = &final
		game.Players[id] = stake
	}
}

// recordResults bumps games played for every participant and games won for the winner
func (c *Controller) recordResults(ctx context.Context, saga *ledger.Saga, game *model.Game) error {
	for _, id := range game.PlayerIDs() {
		won := 0
		if id == game.Winner {
			won = 1
		}
		if err := c.balances.RecordResult(ctx, id, 1, won); err != nil {
			return err
		}
		saga.Defer("revert stats "+string(id), func(ctx context.Context) error {
			return c.balances.RecordResult(ctx, id, -1, -won)
		})
	}
	return nil
}

// CancelGame refunds every participant and marks the game cancelled
func (c *Controller) CancelGame(ctx context.Context, ref model.GameRef) (*model.Game, error) {
	game, unlock, err := c.LockGame(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !game.IsActive() {
		return nil, model.ErrGameNotActive
	}

	prior := game.Clone()
	now := c.clock.Now()
	game.Status = model.GameStatusCancelled
	game.EndTime = &now
	for id, stake := range game.Players {
		var zero model.Money
		stake.FinalAmount = &zero
		game.Players[id] = stake
	}

	if err := c.saveGame(ctx, game); err != nil {
		return nil, err
	}

	saga := c.recorder.NewSaga("cancel game", game.ID)
	saga.Defer("restore game", c.restoreGame(prior))

	for _, id := range game.PlayerIDs() {
		bet := game.Players[id].InitialBet
		_, err := saga.WithBalanceChange(ctx, id, bet, &model.Transaction{
			Amount:      bet,
			Type:        model.TransactionRefund,
			Description: fmt.Sprintf("Refund for cancelled %s", gameLabel(game)),
		})
		if err != nil {
			return nil, saga.Fail(ctx, err)
		}
	}
	saga.Commit(ctx)

	metrics.GameTransitions.WithLabelValues(string(model.GameStatusCancelled)).Inc()
	c.events.GameUpdated(ctx, game)
	c.logger.Info("game cancelled",
		slog.String("game_id", string(game.ID)),
		slog.Int("refunds", len(game.Players)),
	)

	return game, nil
}

// GetGame retrieves a game by reference
func (c *Controller) GetGame(ctx context.Context, ref model.GameRef) (*model.Game, error) {
	id, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.getGame(ctx, id)
}

// ListGames returns games matching filter, newest first
func (c *Controller) ListGames(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	ctx, cancel := storage.WithTimeout(ctx, c.timeout)
	defer cancel()

	games, err := c.storage.ListGames(ctx, filter)
	if err != nil {
		return nil, model.NewStorageError("list games", err)
	}
	return games, nil
}

// GameTransactions lists a game's transactions in the order they were recorded
func (c *Controller) GameTransactions(ctx context.Context, ref model.GameRef) ([]*model.Transaction, error) {
	id, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := c.getGame(ctx, id); err != nil {
		return nil, err
	}
	return c.recorder.GameTransactions(ctx, id)
}

// Resolve turns a reference into a persisted game id. A local reference
// resolves only once its game has been synced.
func (c *Controller) Resolve(ctx context.Context, ref model.GameRef) (model.GameID, error) {
	if !ref.IsLocal() {
		return ref.GameID(), nil
	}

	games, err := c.ListGames(ctx, model.GameFilter{LocalID: ref.LocalID()})
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "", model.ErrLocalGameNotSynced
	}
	return games[0].ID, nil
}

// LockGame resolves ref, takes the game's lock and loads the game under it.
// The caller must call unlock once its mutation is finished.
func (c *Controller) LockGame(ctx context.Context, ref model.GameRef) (*model.Game, func(), error) {
	id, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	unlock := c.locks.Lock(GameLockKey(id))
	game, err := c.getGame(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return game, unlock, nil
}

func (c *Controller) getGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	ctx, cancel := storage.WithTimeout(ctx, c.timeout)
	defer cancel()

	game, err := c.storage.GetGame(ctx, id)
	if err != nil {
		return nil, model.NewStorageError("get game", err)
	}
	return game, nil
}

func (c *Controller) saveGame(ctx context.Context, game *model.Game) error {
	ctx, cancel := storage.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.storage.SaveGame(ctx, game); err != nil {
		return &model.StorageError{Op: "save game", GameID: game.ID, Err: err}
	}
	return nil
}

func (c *Controller) getPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	ctx, cancel := storage.WithTimeout(ctx, c.timeout)
	defer cancel()

	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, id)
		}
		return nil, model.NewStorageError("get player", err)
	}
	return player, nil
}

// restoreGame returns a compensation that writes back a snapshot
func (c *Controller) restoreGame(prior *model.Game) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return c.saveGame(ctx, prior)
	}
}

func gameLabel(game *model.Game) string {
	if game.Name != "" {
		return game.Name
	}
	if game.Type != "" {
		return game.Type + " game"
	}
	return "game " + string(game.ID)
}
