package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "games",
		Aliases: []string{"game"},
		Short:   "Game commands",
		Long: `Game commands. A game is addressed by its server id, or by
"local:<id>" for a game recorded offline and synced later.`,
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameAddPlayerCmd())
	cmd.AddCommand(newGameEndCmd())
	cmd.AddCommand(newGameCancelCmd())
	cmd.AddCommand(newGameTransactionsCmd())
	cmd.AddCommand(newGameSyncCmd())
	cmd.AddCommand(newGameReprocessCmd())

	return cmd
}

// gamePlayer is a participant in a create or sync request
type gamePlayer struct {
	PlayerID string `json:"player_id"`
	Bet      string `json:"bet"`
}

// parseStakes turns "player=bet" pairs into request players
func parseStakes(pairs []string) ([]gamePlayer, error) {
	players := make([]gamePlayer, 0, len(pairs))
	for _, pair := range pairs {
		id, bet, ok := strings.Cut(pair, "=")
		id, bet = strings.TrimSpace(id), strings.TrimSpace(bet)
		if !ok || id == "" || bet == "" {
			return nil, fmt.Errorf("invalid player %q: expected <id>=<bet>", pair)
		}
		players = append(players, gamePlayer{PlayerID: id, Bet: bet})
	}
	return players, nil
}

func gamePath(ref string, parts ...string) string {
	path := "/api/v1/games/" + url.PathEscape(ref)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func newGameCreateCmd() *cobra.Command {
	var name, gameType, createdBy string
	var stakes []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a game and take each player's bet",
		Example: `  partyctl games create --name "Friday poker" --type poker \
    --player alice=20 --player bob=20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			players, err := parseStakes(stakes)
			if err != nil {
				return err
			}

			req := map[string]any{
				"name":       name,
				"type":       gameType,
				"created_by": createdBy,
				"players":    players,
			}
			var result CreateGameResult

			if err := client.Post("/api/v1/games", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Game name")
	cmd.Flags().StringVar(&gameType, "type", "", "Game type, e.g. poker")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Who is running the game")
	cmd.Flags().StringArrayVar(&stakes, "player", nil, "Participant as <id>=<bet> (repeatable, required)")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newGameListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/games"
			if status != "" {
				path += "?status=" + url.QueryEscape(status)
			}

			var result []Game
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: active, completed, cancelled")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get(gamePath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameAddPlayerCmd() *cobra.Command {
	var playerID, bet string

	cmd := &cobra.Command{
		Use:   "add <ref>",
		Short: "Add a player to an active game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"player_id": playerID, "bet": bet}
			var result Game

			if err := client.Post(gamePath(args[0], "players"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "player", "", "Player id (required)")
	cmd.Flags().StringVar(&bet, "bet", "", "Bet amount (required)")
	_ = cmd.MarkFlagRequired("player")
	_ = cmd.MarkFlagRequired("bet")

	return cmd
}

func newGameEndCmd() *cobra.Command {
	var winner string

	cmd := &cobra.Command{
		Use:   "end <ref>",
		Short: "End a game and pay the pot to the winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Post(gamePath(args[0], "end"), map[string]string{"winner_id": winner}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&winner, "winner", "", "Winning player id (required)")
	_ = cmd.MarkFlagRequired("winner")

	return cmd
}

func newGameCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <ref>",
		Short: "Cancel a game and refund every bet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Post(gamePath(args[0], "cancel"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameTransactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transactions <ref>",
		Short: "List a game's transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Transaction

			if err := client.Get(gamePath(args[0], "transactions"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

// localGame is the on-disk form of a game recorded offline
type localGame struct {
	LocalID   string       `json:"local_id"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	CreatedBy string       `json:"created_by,omitempty"`
	Players   []gamePlayer `json:"players"`
	Status    string       `json:"status,omitempty"`
	WinnerID  string       `json:"winner_id,omitempty"`
}

func readLocalGame(path string) (localGame, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return localGame{}, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var g localGame
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return localGame{}, fmt.Errorf("parse local game: %w", err)
	}
	return g, nil
}

func newGameSyncCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload a game recorded offline",
		Long: `Upload a game recorded offline. The file is JSON with local_id, name,
type, players ([{"player_id","bet"}]) and optionally status and winner_id.
Syncing the same local_id twice returns the game created the first time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := readLocalGame(file)
			if err != nil {
				return err
			}

			var result CreateGameResult
			if err := client.Post("/api/v1/games/sync", game, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Local game JSON file, - for stdin")

	return cmd
}

func newGameReprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <ref>",
		Short: "Write missing ledger entries for a completed game (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ReprocessResult

			if err := client.Post(gamePath(args[0], "reprocess"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
