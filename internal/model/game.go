package model

import (
	"maps"
	"slices"
	"time"
)

// GameID uniquely identifies a persisted game
type GameID string

// GameStatus is the lifecycle state of a game
type GameStatus string

const (
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed" // terminal
	GameStatusCancelled GameStatus = "cancelled" // terminal
)

// Valid reports whether s is a known status
func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusActive, GameStatusCompleted, GameStatusCancelled:
		return true
	}
	return false
}

// Stake is one participant's position in a game
type Stake struct {
	InitialBet  Money
	FinalAmount *Money // set once the game is settled or cancelled
}

// Game is a single wagering round
type Game struct {
	ID        GameID
	LocalID   string // client id this game was promoted from, if any
	Name      string
	Type      string
	Status    GameStatus
	StartTime time.Time
	EndTime   *time.Time

	Players  map[PlayerID]Stake
	Winner   PlayerID // empty until completed
	TotalPot Money

	CreatedBy string
}

// IsActive returns true while the game still accepts players
func (g *Game) IsActive() bool {
	return g.Status == GameStatusActive
}

// HasPlayer reports whether id is a participant
func (g *Game) HasPlayer(id PlayerID) bool {
	_, ok := g.Players[id]
	return ok
}

// PlayerIDs returns the participants in a stable order
func (g *Game) PlayerIDs() []PlayerID {
	return slices.Sorted(maps.Keys(g.Players))
}

// SumBets returns the sum of all registered initial bets
func (g *Game) SumBets() Money {
	var total Money
	for _, s := range g.Players {
		total += s.InitialBet
	}
	return total
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	if g.EndTime != nil {
		t := *g.EndTime
		c.EndTime = &t
	}
	c.Players = make(map[PlayerID]Stake, len(g.Players))
	for id, s := range g.Players {
		if s.FinalAmount != nil {
			amt := *s.FinalAmount
			s.FinalAmount = &amt
		}
		c.Players[id] = s
	}
	return &c
}

// GameFilter selects games in store queries. Zero fields match everything.
type GameFilter struct {
	Status  GameStatus
	LocalID string
}

// Matches reports whether g satisfies the filter
func (f GameFilter) Matches(g *Game) bool {
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	if f.LocalID != "" && g.LocalID != f.LocalID {
		return false
	}
	return true
}

// InitialPlayer is a player joining a game at creation time
type InitialPlayer struct {
	PlayerID PlayerID
	Bet      Money
}

// LocalGame is a game the client recorded on its own before it reached the server
type LocalGame struct {
	LocalID   string
	Name      string
	Type      string
	CreatedBy string
	Players   []InitialPlayer
	Status    GameStatus
	Winner    PlayerID
}
