package redis

import (
	"fmt"

	"github.com/mcoot/partycasino/internal/model"
)

// Key prefix for all ledger data
const keyPrefix = "partycasino"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the ZSET of player ids scored by creation time
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamesIndexKey returns the ZSET of game ids scored by start time
func gamesIndexKey() string {
	return fmt.Sprintf("%s:idx:games", keyPrefix)
}

// transactionKey returns the Redis key for a Transaction
func transactionKey(id model.TransactionID) string {
	return fmt.Sprintf("%s:tx:%s", keyPrefix, id)
}

// transactionSeqKey is the counter that orders appended transactions
func transactionSeqKey() string {
	return fmt.Sprintf("%s:seq:tx", keyPrefix)
}

// transactionsIndexKey returns the ZSET of all transaction ids in append order
func transactionsIndexKey() string {
	return fmt.Sprintf("%s:idx:tx", keyPrefix)
}

// transactionsForGameIndexKey returns the ZSET of a game's transaction ids
func transactionsForGameIndexKey(id model.GameID) string {
	return fmt.Sprintf("%s:idx:tx_for_game:%s", keyPrefix, id)
}

// transactionsForPlayerIndexKey returns the ZSET of a player's transaction ids
func transactionsForPlayerIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:tx_for_player:%s", keyPrefix, id)
}
