// Package request holds API request bodies. Money fields accept a decimal
// string ("12.50") or a bare number.
package request

import "github.com/mcoot/partycasino/internal/model"

// AdminLoginRequest is the request body for admin login
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// CreatePlayerRequest is the request body for registering a player
type CreatePlayerRequest struct {
	Name           string      `json:"name"`
	InitialBalance model.Money `json:"initial_balance"`
}

// GamePlayer is one initial participant of a new game
type GamePlayer struct {
	PlayerID string      `json:"player_id"`
	Bet      model.Money `json:"bet"`
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	CreatedBy string       `json:"created_by"`
	Players   []GamePlayer `json:"players"`
}

// AddPlayerRequest is the request body for joining a game
type AddPlayerRequest struct {
	PlayerID string      `json:"player_id"`
	Bet      model.Money `json:"bet"`
}

// EndGameRequest is the request body for ending a game
type EndGameRequest struct {
	WinnerID string `json:"winner_id"`
}

// SyncGameRequest is a game snapshot recorded by a client before it reached the server
type SyncGameRequest struct {
	LocalID   string       `json:"local_id"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	CreatedBy string       `json:"created_by"`
	Players   []GamePlayer `json:"players"`
	Status    string       `json:"status,omitempty"`
	WinnerID  string       `json:"winner_id,omitempty"`
}

// InitialPlayers converts the request players to model form
func InitialPlayers(players []GamePlayer) []model.InitialPlayer {
	out := make([]model.InitialPlayer, len(players))
	for i, p := range players {
		out[i] = model.InitialPlayer{PlayerID: model.PlayerID(p.PlayerID), Bet: p.Bet}
	}
	return out
}

// LocalGame converts the sync request to model form
func (r SyncGameRequest) LocalGame() model.LocalGame {
	return model.LocalGame{
		LocalID:   r.LocalID,
		Name:      r.Name,
		Type:      r.Type,
		CreatedBy: r.CreatedBy,
		Players:   InitialPlayers(r.Players),
		Status:    model.GameStatus(r.Status),
		Winner:    model.PlayerID(r.WinnerID),
	}
}
