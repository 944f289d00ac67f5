package players

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/dependencies/ids"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/ledger"
	"github.com/mcoot/partycasino/internal/storage"
)

// MaxNameLength is the longest accepted player name, in characters
const MaxNameLength = 50

// Service registers players and answers questions about them
type Service struct {
	storage  storage.Storage
	recorder *ledger.Recorder
	events   *events.Emitter
	clock    clock.Clock
	ids      ids.Generator
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a new player Service
func New(
	storage storage.Storage,
	recorder *ledger.Recorder,
	emitter *events.Emitter,
	clock clock.Clock,
	ids ids.Generator,
	timeout time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		recorder: recorder,
		events:   emitter,
		clock:    clock,
		ids:      ids,
		timeout:  timeout,
		logger:   logger,
	}
}

// Register creates a player with a starting balance
func (s *Service) Register(ctx context.Context, name string, initialBalance model.Money) (*model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.ErrInvalidPlayerName
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", model.ErrInvalidMoney)
	}

	player := &model.Player{
		ID:        model.PlayerID(s.ids.NewID()),
		Name:      name,
		Balance:   initialBalance,
		CreatedAt: s.clock.Now(),
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, model.NewStorageError("create player", err)
	}

	s.events.PlayerUpdated(ctx, player)
	s.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.String("name", player.Name),
		slog.String("balance", player.Balance.String()),
	)
	return player, nil
}

// GetPlayer retrieves a player by id
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, id)
		}
		return nil, model.NewStorageError("get player", err)
	}
	return player, nil
}

// ListPlayers returns every player in registration order
func (s *Service) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()

	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, model.NewStorageError("list players", err)
	}
	return players, nil
}

// GetPlayerStats summarises a player's counters and ledger history
func (s *Service) GetPlayerStats(ctx context.Context, id model.PlayerID) (*model.PlayerStats, error) {
	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	txs, err := s.recorder.List(ctx, model.TransactionFilter{PlayerID: id})
	if err != nil {
		return nil, err
	}

	stats := &model.PlayerStats{
		PlayerID:    id,
		GamesPlayed: player.GamesPlayed,
		GamesWon:    player.GamesWon,
	}
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionWin:
			stats.TotalWinnings += tx.Amount
		case model.TransactionBet:
			stats.TotalBets += tx.Amount.Abs()
		case model.TransactionRefund:
			stats.TotalBets -= tx.Amount
		}
	}
	stats.Net = stats.TotalWinnings - stats.TotalBets
	return stats, nil
}

// Leaderboard returns players ordered by balance, highest first, ties broken
// by name. A limit of zero or less returns everyone.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	players, err := s.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(players, func(a, b *model.Player) int {
		if a.Balance != b.Balance {
			if a.Balance > b.Balance {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

// PlayerTransactions lists a player's transactions in the order they were recorded
func (s *Service) PlayerTransactions(ctx context.Context, id model.PlayerID) ([]*model.Transaction, error) {
	if _, err := s.GetPlayer(ctx, id); err != nil {
		return nil, err
	}
	return s.recorder.List(ctx, model.TransactionFilter{PlayerID: id})
}
