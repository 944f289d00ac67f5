package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mcoot/partycasino/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const gameColumns = `id, local_id, name, game_type, status, start_time, end_time, winner, total_pot, created_by`

func scanGame(row rowScanner) (*model.Game, error) {
	var (
		g         model.Game
		startTime int64
		endTime   sql.NullInt64
		totalPot  int64
	)
	err := row.Scan(&g.ID, &g.LocalID, &g.Name, &g.Type, &g.Status, &startTime, &endTime, &g.Winner, &totalPot, &g.CreatedBy)
	if err != nil {
		return nil, err
	}
	g.StartTime = fromMicros(startTime)
	if endTime.Valid {
		t := fromMicros(endTime.Int64)
		g.EndTime = &t
	}
	g.TotalPot = model.Money(totalPot)
	g.Players = make(map[model.PlayerID]model.Stake)
	return &g, nil
}

// SaveGame writes the game row and replaces its participant rows in one transaction
func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	var endTime sql.NullInt64
	if game.EndTime != nil {
		endTime = sql.NullInt64{Int64: toMicros(*game.EndTime), Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO games (`+gameColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				local_id = excluded.local_id,
				name = excluded.name,
				game_type = excluded.game_type,
				status = excluded.status,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				winner = excluded.winner,
				total_pot = excluded.total_pot,
				created_by = excluded.created_by
		`), string(game.ID), game.LocalID, game.Name, game.Type, string(game.Status),
			toMicros(game.StartTime), endTime, string(game.Winner), int64(game.TotalPot), game.CreatedBy)
		if err != nil {
			return fmt.Errorf("upsert game: %w", err)
		}

		_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM game_players WHERE game_id = ?`), string(game.ID))
		if err != nil {
			return fmt.Errorf("clear game players: %w", err)
		}

		for _, pid := range game.PlayerIDs() {
			stake := game.Players[pid]
			var final sql.NullInt64
			if stake.FinalAmount != nil {
				final = sql.NullInt64{Int64: int64(*stake.FinalAmount), Valid: true}
			}
			_, err = tx.ExecContext(ctx, s.rebind(`
				INSERT INTO game_players (game_id, player_id, initial_bet, final_amount)
				VALUES (?, ?, ?, ?)
			`), string(game.ID), string(pid), int64(stake.InitialBet), final)
			if err != nil {
				return fmt.Errorf("insert game player: %w", err)
			}
		}
		return nil
	})
}

// GetGame reads the game row and its participants in one transaction so a
// concurrent SaveGame cannot land between the two reads
func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var game *model.Game
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+gameColumns+` FROM games WHERE id = ?`), string(id))
		g, err := scanGame(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrGameNotFound
			}
			return fmt.Errorf("get game: %w", err)
		}
		if err := s.loadStakes(ctx, tx, g); err != nil {
			return err
		}
		game = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Storage) ListGames(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.LocalID != "" {
		where = append(where, "local_id = ?")
		args = append(args, filter.LocalID)
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time DESC, id`

	var games []*model.Game
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		games, err = s.queryGames(ctx, tx, s.rebind(query), args...)
		if err != nil {
			return err
		}

		// Stakes are loaded after the game rows are closed; sqlite runs on one connection
		for _, g := range games {
			if err := s.loadStakes(ctx, tx, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (s *Storage) queryGames(ctx context.Context, q querier, query string, args ...any) ([]*model.Game, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Storage) loadStakes(ctx context.Context, q querier, game *model.Game) error {
	rows, err := q.QueryContext(ctx, s.rebind(`
		SELECT player_id, initial_bet, final_amount
		FROM game_players
		WHERE game_id = ?
	`), string(game.ID))
	if err != nil {
		return fmt.Errorf("load game players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid   model.PlayerID
			bet   int64
			final sql.NullInt64
		)
		if err := rows.Scan(&pid, &bet, &final); err != nil {
			return fmt.Errorf("scan game player: %w", err)
		}
		stake := model.Stake{InitialBet: model.Money(bet)}
		if final.Valid {
			amt := model.Money(final.Int64)
			stake.FinalAmount = &amt
		}
		game.Players[pid] = stake
	}
	return rows.Err()
}
