package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players      map[model.PlayerID]*model.Player
	games        map[model.GameID]*model.Game
	transactions map[model.TransactionID]*model.Transaction
	txOrder      []model.TransactionID // append order
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:      make(map[model.PlayerID]*model.Player),
		games:        make(map[model.GameID]*model.Game),
		transactions: make(map[model.TransactionID]*model.Transaction),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; ok {
		return model.ErrPlayerExists
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p.Clone())
	}
	slices.SortFunc(players, func(a, b *model.Player) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return players, nil
}

func (s *Storage) AdjustBalance(ctx context.Context, id model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return 0, model.ErrPlayerNotFound
	}
	next, err := player.Balance.Add(delta)
	if err != nil {
		return player.Balance, err
	}
	if !allowNegative && next < 0 {
		return player.Balance, model.ErrInsufficientBalance
	}
	player.Balance = next
	return next, nil
}

func (s *Storage) IncrementStats(ctx context.Context, id model.PlayerID, played, won int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	player.GamesPlayed += played
	player.GamesWon += won
	return nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) ListGames(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var games []*model.Game
	for _, g := range s.games {
		if filter.Matches(g) {
			games = append(games, g.Clone())
		}
	}
	slices.SortFunc(games, func(a, b *model.Game) int {
		return cmp.Or(b.StartTime.Compare(a.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return games, nil
}

// Transaction operations

func (s *Storage) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; ok {
		return model.ErrDuplicateTransaction
	}
	c := *tx
	s.transactions[tx.ID] = &c
	s.txOrder = append(s.txOrder, tx.ID)
	return nil
}

func (s *Storage) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txs []*model.Transaction
	for _, id := range s.txOrder {
		tx := s.transactions[id]
		if filter.Matches(tx) {
			c := *tx
			txs = append(txs, &c)
		}
	}
	return txs, nil
}

func (s *Storage) RetractTransaction(ctx context.Context, id model.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return model.ErrTransactionNotFound
	}
	delete(s.transactions, id)
	s.txOrder = slices.DeleteFunc(s.txOrder, func(existing model.TransactionID) bool {
		return existing == id
	})
	return nil
}

func (s *Storage) Close() error {
	return nil
}
