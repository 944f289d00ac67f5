package model

import "time"

// TransactionID uniquely identifies a ledger entry
type TransactionID string

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionBet    TransactionType = "bet"    // negative, paid into a pot
	TransactionWin    TransactionType = "win"    // positive, pot paid out
	TransactionRefund TransactionType = "refund" // positive, bet returned on cancel
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBet, TransactionWin, TransactionRefund:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry
type Transaction struct {
	ID          TransactionID
	GameID      GameID
	PlayerID    PlayerID
	Amount      Money
	Type        TransactionType
	Timestamp   time.Time
	Description string
}

// TransactionFilter selects transactions in store queries. Zero fields match everything.
type TransactionFilter struct {
	GameID   GameID
	PlayerID PlayerID
	Type     TransactionType
}

// Matches reports whether tx satisfies the filter
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.GameID != "" && tx.GameID != f.GameID {
		return false
	}
	if f.PlayerID != "" && tx.PlayerID != f.PlayerID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return true
}
