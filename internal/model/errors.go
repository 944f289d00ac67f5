package model

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the application
var (
	ErrNotFound = errors.New("not found")

	// Player errors
	ErrPlayerNotFound      = fmt.Errorf("player %w", ErrNotFound)
	ErrPlayerExists        = errors.New("player already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidPlayerName   = errors.New("invalid player name")

	// Game errors
	ErrGameNotFound       = fmt.Errorf("game %w", ErrNotFound)
	ErrGameNotActive      = errors.New("game is not active")
	ErrGameNotCompleted   = errors.New("game is not completed")
	ErrDuplicatePlayer    = errors.New("player is already in game")
	ErrUnknownWinner      = errors.New("winner is not a participant")
	ErrNoPlayers          = errors.New("game needs at least one player")
	ErrInvalidBet         = errors.New("bet must be positive")
	ErrInvalidGameRef     = errors.New("invalid game reference")
	ErrLocalGameNotSynced = errors.New("local game has not been synced")
	ErrInvalidLocalGame   = errors.New("invalid local game")

	// Ledger errors
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", ErrNotFound)
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrInvalidMoney         = errors.New("invalid money amount")

	// Access errors
	ErrNotAuthorized = errors.New("caller is not authorized")

	// ErrStorage matches every *StorageError via errors.Is
	ErrStorage = errors.New("storage failure")
)

// Adjustment is a balance change that was applied and may need manual reversal
type Adjustment struct {
	PlayerID      PlayerID
	Delta         Money
	TransactionID TransactionID
}

// StorageError reports an underlying store failure, including timeouts.
// Reconciliation is set only when automatic rollback itself failed and lists
// the changes that are still applied.
type StorageError struct {
	Op             string
	GameID         GameID
	Err            error
	Reconciliation []Adjustment
}

func (e *StorageError) Error() string {
	var b strings.Builder
	b.WriteString("storage: ")
	b.WriteString(e.Op)
	if e.GameID != "" {
		b.WriteString(" game=")
		b.WriteString(string(e.GameID))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Reconciliation) > 0 {
		fmt.Fprintf(&b, " (rollback incomplete, %d adjustments need reconciliation)", len(e.Reconciliation))
	}
	return b.String()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) true for every StorageError
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err unless it is already a StorageError or a domain error
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// isDomainError reports whether err is one of the sentinel errors a store may return
// to describe the data rather than a failure of the store itself
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrPlayerExists,
		ErrInsufficientBalance,
		ErrDuplicateTransaction,
		ErrInvalidMoney,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
