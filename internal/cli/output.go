package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: color.Output}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		danger.Fprintf(color.Error, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case []Player:
		o.printPlayers(v)
	case PlayerStats:
		o.printStats(v)
	case Game:
		o.printGame(v)
	case []Game:
		o.printGames(v)
	case CreateGameResult:
		o.printCreateGameResult(v)
	case []Transaction:
		o.printTransactions(v)
	case ReprocessResult:
		o.printReprocessResult(v)
	case LoginResult:
		o.printLoginResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Balance     string    `json:"balance"`
	GamesPlayed int       `json:"games_played"`
	GamesWon    int       `json:"games_won"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlayerStats response type
type PlayerStats struct {
	PlayerID      string `json:"player_id"`
	GamesPlayed   int    `json:"games_played"`
	GamesWon      int    `json:"games_won"`
	TotalWinnings string `json:"total_winnings"`
	TotalBets     string `json:"total_bets"`
	Net           string `json:"net"`
}

// Stake is one participant's bet and outcome
type Stake struct {
	PlayerID    string  `json:"player_id"`
	InitialBet  string  `json:"initial_bet"`
	FinalAmount *string `json:"final_amount"`
}

// Game response type
type Game struct {
	ID        string     `json:"id"`
	LocalID   string     `json:"local_id,omitempty"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Players   []Stake    `json:"players"`
	Winner    *string    `json:"winner"`
	TotalPot  string     `json:"total_pot"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// PlayerResult is the outcome of debiting one initial player
type PlayerResult struct {
	PlayerID      string    `json:"player_id"`
	Bet           string    `json:"bet"`
	OK            bool      `json:"ok"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Error         *APIError `json:"error,omitempty"`
}

// CreateGameResult is returned by create and sync
type CreateGameResult struct {
	Game          Game           `json:"game"`
	Results       []PlayerResult `json:"results"`
	AlreadySynced bool           `json:"already_synced,omitempty"`
}

// Transaction response type
type Transaction struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	PlayerID    string    `json:"player_id"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// ReprocessResult response type
type ReprocessResult struct {
	GameID              string `json:"game_id"`
	AlreadyProcessed    bool   `json:"already_processed"`
	TransactionsCreated int    `json:"transactions_created"`
}

// LoginResult response type
type LoginResult struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// money colours a signed amount
func money(amount string) string {
	switch {
	case strings.HasPrefix(amount, "-"):
		return danger.Sprint(amount)
	case strings.Trim(amount, "0.") == "":
		return neutral.Sprint(amount)
	default:
		return success.Sprint(amount)
	}
}

func status(s string) string {
	switch s {
	case "active":
		return warn.Sprint(s)
	case "completed":
		return success.Sprint(s)
	default:
		return neutral.Sprint(s)
	}
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", accent.Sprint(p.Name), p.ID)
	fmt.Fprintf(o.w, "Balance: %s\n", money(p.Balance))
	fmt.Fprintf(o.w, "Games: %d played, %d won\n", p.GamesPlayed, p.GamesWon)
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	for i, p := range players {
		fmt.Fprintf(o.w, "%3d. %-20s %12s  (%s)\n", i+1, p.Name, money(p.Balance), p.ID)
	}
}

func (o *Output) printStats(s PlayerStats) {
	fmt.Fprintf(o.w, "Player: %s\n", accent.Sprint(s.PlayerID))
	fmt.Fprintf(o.w, "Games: %d played, %d won\n", s.GamesPlayed, s.GamesWon)
	fmt.Fprintf(o.w, "Winnings: %s\n", money(s.TotalWinnings))
	fmt.Fprintf(o.w, "Bets: %s\n", s.TotalBets)
	fmt.Fprintf(o.w, "Net: %s\n", money(s.Net))
}

func (o *Output) printGame(g Game) {
	fmt.Fprintf(o.w, "Game: %s (%s)\n", accent.Sprint(g.Name), g.ID)
	if g.LocalID != "" {
		fmt.Fprintf(o.w, "Local ID: %s\n", g.LocalID)
	}
	if g.Type != "" {
		fmt.Fprintf(o.w, "Type: %s\n", g.Type)
	}
	fmt.Fprintf(o.w, "Status: %s\n", status(g.Status))
	fmt.Fprintf(o.w, "Pot: %s\n", g.TotalPot)
	fmt.Fprintf(o.w, "Players (%d):\n", len(g.Players))
	for _, p := range g.Players {
		line := fmt.Sprintf("  - %s bet %s", p.PlayerID, p.InitialBet)
		if p.FinalAmount != nil {
			line += " -> " + money(*p.FinalAmount)
		}
		if g.Winner != nil && *g.Winner == p.PlayerID {
			line += " " + success.Sprint("[winner]")
		}
		fmt.Fprintln(o.w, line)
	}
}

func (o *Output) printGames(games []Game) {
	if len(games) == 0 {
		fmt.Fprintln(o.w, "No games")
		return
	}
	for _, g := range games {
		fmt.Fprintf(o.w, "%-12s %-20s %-10s pot %s\n", g.ID, g.Name, status(g.Status), g.TotalPot)
	}
}

func (o *Output) printCreateGameResult(r CreateGameResult) {
	if r.AlreadySynced {
		warn.Fprintln(o.w, "Game was already synced")
	}
	o.printGame(r.Game)
	for _, res := range r.Results {
		if !res.OK && res.Error != nil {
			danger.Fprintf(o.w, "  ! %s dropped: %s\n", res.PlayerID, res.Error.Message)
		}
	}
}

func (o *Output) printTransactions(txs []Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(o.w, "No transactions")
		return
	}
	for _, tx := range txs {
		fmt.Fprintf(o.w, "%s  %-7s %-10s %12s  %s\n",
			tx.Timestamp.Format("2006-01-02 15:04:05"), tx.Type, tx.PlayerID, money(tx.Amount), tx.Description)
	}
}

func (o *Output) printReprocessResult(r ReprocessResult) {
	if r.AlreadyProcessed {
		fmt.Fprintf(o.w, "Game %s was already processed\n", r.GameID)
		return
	}
	success.Fprintf(o.w, "Game %s reprocessed: %d transactions written\n", r.GameID, r.TransactionsCreated)
}

func (o *Output) printLoginResult(r LoginResult) {
	success.Fprintln(o.w, "Logged in as admin")
	fmt.Fprintf(o.w, "Session expires: %s\n", r.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
