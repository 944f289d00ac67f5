package response

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/auth"
	"github.com/mcoot/partycasino/internal/services/game"
	"github.com/mcoot/partycasino/internal/services/reprocess"
)

// Player represents a player in API responses
type Player struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Balance     model.Money `json:"balance"`
	GamesPlayed int         `json:"games_played"`
	GamesWon    int         `json:"games_won"`
	CreatedAt   time.Time   `json:"created_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		Name:        p.Name,
		Balance:     p.Balance,
		GamesPlayed: p.GamesPlayed,
		GamesWon:    p.GamesWon,
		CreatedAt:   p.CreatedAt,
	}
}

// PlayersFromModel converts a list of players
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// PlayerStats represents a player's history summary
type PlayerStats struct {
	PlayerID      string      `json:"player_id"`
	GamesPlayed   int         `json:"games_played"`
	GamesWon      int         `json:"games_won"`
	TotalWinnings model.Money `json:"total_winnings"`
	TotalBets     model.Money `json:"total_bets"`
	Net           model.Money `json:"net"`
}

// PlayerStatsFromModel converts model.PlayerStats
func PlayerStatsFromModel(s *model.PlayerStats) PlayerStats {
	return PlayerStats{
		PlayerID:      string(s.PlayerID),
		GamesPlayed:   s.GamesPlayed,
		GamesWon:      s.GamesWon,
		TotalWinnings: s.TotalWinnings,
		TotalBets:     s.TotalBets,
		Net:           s.Net,
	}
}

// Stake represents one participant of a game
type Stake struct {
	PlayerID    string       `json:"player_id"`
	InitialBet  model.Money  `json:"initial_bet"`
	FinalAmount *model.Money `json:"final_amount"`
}

// Game represents a game in API responses
type Game struct {
	ID        string      `json:"id"`
	LocalID   string      `json:"local_id,omitempty"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Status    string      `json:"status"`
	StartTime time.Time   `json:"start_time"`
	EndTime   *time.Time  `json:"end_time"`
	Players   []Stake     `json:"players"`
	Winner    *string     `json:"winner"`
	TotalPot  model.Money `json:"total_pot"`
	CreatedBy string      `json:"created_by,omitempty"`
}

// GameFromModel converts model.Game
func GameFromModel(g *model.Game) Game {
	stakes := make([]Stake, 0, len(g.Players))
	for _, id := range g.PlayerIDs() {
		s := g.Players[id]
		stakes = append(stakes, Stake{
			PlayerID:    string(id),
			InitialBet:  s.InitialBet,
			FinalAmount: s.FinalAmount,
		})
	}

	var winner *string
	if g.Winner != "" {
		w := string(g.Winner)
		winner = &w
	}

	return Game{
		ID:        string(g.ID),
		LocalID:   g.LocalID,
		Name:      g.Name,
		Type:      g.Type,
		Status:    string(g.Status),
		StartTime: g.StartTime,
		EndTime:   g.EndTime,
		Players:   stakes,
		Winner:    winner,
		TotalPot:  g.TotalPot,
		CreatedBy: g.CreatedBy,
	}
}

// GamesFromModel converts a list of games
func GamesFromModel(games []*model.Game) []Game {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = GameFromModel(g)
	}
	return out
}

// Transaction represents a ledger entry
type Transaction struct {
	ID          string      `json:"id"`
	GameID      string      `json:"game_id"`
	PlayerID    string      `json:"player_id"`
	Amount      model.Money `json:"amount"`
	Type        string      `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	Description string      `json:"description"`
}

// TransactionFromModel converts model.Transaction
func TransactionFromModel(tx *model.Transaction) Transaction {
	return Transaction{
		ID:          string(tx.ID),
		GameID:      string(tx.GameID),
		PlayerID:    string(tx.PlayerID),
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Timestamp:   tx.Timestamp,
		Description: tx.Description,
	}
}

// TransactionsFromModel converts a list of transactions
func TransactionsFromModel(txs []*model.Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = TransactionFromModel(tx)
	}
	return out
}

// PlayerResult reports how one initial bet went
type PlayerResult struct {
	PlayerID      string      `json:"player_id"`
	Bet           model.Money `json:"bet"`
	OK            bool        `json:"ok"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Error         *APIError   `json:"error,omitempty"`
}

// APIError mirrors apierr.APIError for embedding in successful responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateGameResponse is the response for game creation and sync
type CreateGameResponse struct {
	Game          Game           `json:"game"`
	Results       []PlayerResult `json:"results"`
	AlreadySynced bool           `json:"already_synced,omitempty"`
}

// PlayerResultsFromModel converts per-player results. describe turns an
// error into the client-facing code and message.
func PlayerResultsFromModel(results []game.PlayerResult, describe func(error) APIError) []PlayerResult {
	out := make([]PlayerResult, len(results))
	for i, r := range results {
		pr := PlayerResult{
			PlayerID:      string(r.PlayerID),
			Bet:           r.Bet,
			OK:            r.Err == nil,
			TransactionID: string(r.TransactionID),
		}
		if r.Err != nil {
			e := describe(r.Err)
			pr.Error = &e
		}
		out[i] = pr
	}
	return out
}

// ReprocessResponse is the response for reprocessing a game
type ReprocessResponse struct {
	GameID              string `json:"game_id"`
	AlreadyProcessed    bool   `json:"already_processed"`
	TransactionsCreated int    `json:"transactions_created"`
}

// ReprocessFromResult converts reprocess.Result
func ReprocessFromResult(r *reprocess.Result) ReprocessResponse {
	return ReprocessResponse{
		GameID:              string(r.GameID),
		AlreadyProcessed:    r.AlreadyProcessed,
		TransactionsCreated: r.TransactionsCreated,
	}
}

// AdminLoginResponse is the response for admin login
type AdminLoginResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AdminLoginFromSession creates an AdminLoginResponse from a session
func AdminLoginFromSession(s *auth.Session) AdminLoginResponse {
	return AdminLoginResponse{
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Event is the wire form of an entity-changed event
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	EntityID  string    `json:"entity_id"`
	Payload   any       `json:"payload"`
}

// EncodeEvent renders an event with the same snake_case payloads the API
// returns. It is the encoder for the SSE stream and the Kafka topic.
func EncodeEvent(event model.Event) ([]byte, error) {
	var payload any
	switch p := event.Payload.(type) {
	case *model.Player:
		payload = PlayerFromModel(p)
	case *model.Game:
		payload = GameFromModel(p)
	case *model.Transaction:
		payload = TransactionFromModel(p)
	case nil:
	default:
		return nil, fmt.Errorf("unsupported event payload %T", event.Payload)
	}

	return json.Marshal(Event{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		EntityID:  event.EntityID,
		Payload:   payload,
	})
}
