package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/partycasino/internal/model"
)

// SyncResult is the outcome of promoting a local game
type SyncResult struct {
	Game          *model.Game
	Results       []PlayerResult // empty when AlreadySynced
	AlreadySynced bool
}

// SyncLocalGame promotes a game the client recorded locally to a persisted
// one. The game is created through CreateGame and, if the snapshot is
// terminal, ended or cancelled the same way a live game would be. Syncing
// the same LocalID again returns the game created the first time.
func (c *Controller) SyncLocalGame(ctx context.Context, local model.LocalGame) (*SyncResult, error) {
	if err := validateLocalGame(local); err != nil {
		return nil, err
	}

	unlock := c.locks.Lock("local:" + local.LocalID)
	defer unlock()

	existing, err := c.ListGames(ctx, model.GameFilter{LocalID: local.LocalID})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		c.logger.Info("local game already synced",
			slog.String("local_id", local.LocalID),
			slog.String("game_id", string(existing[0].ID)),
		)
		return &SyncResult{Game: existing[0], AlreadySynced: true}, nil
	}

	created, err := c.CreateGame(ctx, CreateGameRequest{
		Name:      local.Name,
		Type:      local.Type,
		CreatedBy: local.CreatedBy,
		Players:   local.Players,
		LocalID:   local.LocalID,
	})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Game: created.Game, Results: created.Results}
	ref := model.Persisted(created.Game.ID)

	switch local.Status {
	case model.GameStatusCompleted:
		game, err := c.EndGame(ctx, ref, local.Winner)
		if err != nil {
			return nil, fmt.Errorf("settle synced game %s: %w", created.Game.ID, err)
		}
		result.Game = game
	case model.GameStatusCancelled:
		game, err := c.CancelGame(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("cancel synced game %s: %w", created.Game.ID, err)
		}
		result.Game = game
	}

	c.logger.Info("local game synced",
		slog.String("local_id", local.LocalID),
		slog.String("game_id", string(result.Game.ID)),
		slog.String("status", string(result.Game.Status)),
	)
	return result, nil
}

func validateLocalGame(local model.LocalGame) error {
	if strings.TrimSpace(local.LocalID) == "" {
		return fmt.Errorf("%w: missing local id", model.ErrInvalidLocalGame)
	}

	switch local.Status {
	case "", model.GameStatusActive, model.GameStatusCancelled:
	case model.GameStatusCompleted:
		if local.Winner == "" {
			return fmt.Errorf("%w: completed game has no winner", model.ErrInvalidLocalGame)
		}
		found := false
		for _, p := range local.Players {
			if p.PlayerID == local.Winner {
				found = true
				break
			}
		}
		if !found {
			return model.ErrUnknownWinner
		}
	default:
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidLocalGame, local.Status)
	}
	return nil
}
