package storage

import (
	"context"

	"github.com/mcoot/partycasino/internal/model"
)

// Storage is the ledger store: the single source of truth for players, games
// and transactions. Implementations must make every write durable before
// returning, never expose a partially written entity, and hand out copies
// rather than shared pointers.
type Storage interface {
	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)

	// AdjustBalance adds delta to the player's balance as one atomic
	// read-modify-write and returns the new balance. When allowNegative is
	// false and the result would be below zero it returns
	// model.ErrInsufficientBalance and changes nothing.
	AdjustBalance(ctx context.Context, id model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error)

	// IncrementStats atomically adds to the games played / won counters
	IncrementStats(ctx context.Context, id model.PlayerID, played, won int) error

	// Game operations
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	ListGames(ctx context.Context, filter model.GameFilter) ([]*model.Game, error)

	// Transaction operations
	AppendTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error)

	// RetractTransaction removes an entry whose surrounding unit of work failed
	// before it was acknowledged. It is not a general delete.
	RetractTransaction(ctx context.Context, id model.TransactionID) error

	Close() error
}
