package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a party guest with a running balance.
// Balance is only ever changed through the balance accessor.
type Player struct {
	ID          PlayerID
	Name        string
	Balance     Money
	GamesPlayed int
	GamesWon    int
	CreatedAt   time.Time
}

// Clone returns a copy of the player
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// PlayerStats summarises a player's history
type PlayerStats struct {
	PlayerID      PlayerID
	GamesPlayed   int
	GamesWon      int
	TotalWinnings Money // sum of win transactions
	TotalBets     Money // sum of bets placed, net of refunds
	Net           Money
}
