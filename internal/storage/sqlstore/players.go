package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/mcoot/partycasino/internal/model"
)

const playerColumns = `id, name, balance, games_played, games_won, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var (
		p         model.Player
		balance   int64
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &balance, &p.GamesPlayed, &p.GamesWon, &createdAt); err != nil {
		return nil, err
	}
	p.Balance = model.Money(balance)
	p.CreatedAt = fromMicros(createdAt)
	return &p, nil
}

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO players (`+playerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`), string(player.ID), player.Name, int64(player.Balance), player.GamesPlayed, player.GamesWon, toMicros(player.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPlayerExists
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+playerColumns+` FROM players WHERE id = ?`), string(id))
	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AdjustBalance applies delta in a single UPDATE so concurrent callers cannot
// interleave between read and write. The non-negative check and the int64
// bounds live in the WHERE clause, so a refused delta updates nothing.
func (s *Storage) AdjustBalance(ctx context.Context, id model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error) {
	if !allowNegative && delta == math.MinInt64 {
		return s.refusedAdjustment(ctx, id, delta)
	}

	query := `UPDATE players SET balance = balance + ? WHERE id = ?`
	args := []any{int64(delta), string(id)}

	floor, hasFloor := int64(math.MinInt64), false
	if delta < 0 {
		floor, hasFloor = math.MinInt64-int64(delta), true
	}
	if !allowNegative {
		floor, hasFloor = max(floor, -int64(delta)), true
	}
	if hasFloor {
		query += ` AND balance >= ?`
		args = append(args, floor)
	}
	if delta > 0 {
		query += ` AND balance <= ?`
		args = append(args, math.MaxInt64-int64(delta))
	}
	query += ` RETURNING balance`

	var balance int64
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&balance)
	if err == nil {
		return model.Money(balance), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return s.refusedAdjustment(ctx, id, delta)
}

// refusedAdjustment explains why no row was updated: the player is missing,
// the sum would overflow, or the balance would go negative
func (s *Storage) refusedAdjustment(ctx context.Context, id model.PlayerID, delta model.Money) (model.Money, error) {
	current, err := s.GetPlayer(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := current.Balance.Add(delta); err != nil {
		return current.Balance, err
	}
	return current.Balance, model.ErrInsufficientBalance
}

func (s *Storage) IncrementStats(ctx context.Context, id model.PlayerID, played, won int) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE players
		SET games_played = games_played + ?, games_won = games_won + ?
		WHERE id = ?
	`), played, won, string(id))
	if err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}
