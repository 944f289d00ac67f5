package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcoot/partycasino/internal/model"
)

func (s *Storage) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO transactions (id, game_id, player_id, amount, tx_type, ts, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), string(tx.ID), string(tx.GameID), string(tx.PlayerID), int64(tx.Amount), string(tx.Type), toMicros(tx.Timestamp), tx.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Storage) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.GameID != "" {
		where = append(where, "game_id = ?")
		args = append(args, string(filter.GameID))
	}
	if filter.PlayerID != "" {
		where = append(where, "player_id = ?")
		args = append(args, string(filter.PlayerID))
	}
	if filter.Type != "" {
		where = append(where, "tx_type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT id, game_id, player_id, amount, tx_type, ts, description FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			amount int64
			ts     int64
		)
		if err := rows.Scan(&t.ID, &t.GameID, &t.PlayerID, &amount, &t.Type, &ts, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = model.Money(amount)
		t.Timestamp = fromMicros(ts)
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

func (s *Storage) RetractTransaction(ctx context.Context, id model.TransactionID) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM transactions WHERE id = ?`), string(id))
	if err != nil {
		return fmt.Errorf("retract transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}
