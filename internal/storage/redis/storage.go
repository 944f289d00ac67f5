package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

// errTooManyRetries is returned when a WATCHed key keeps changing underneath us
var errTooManyRetries = errors.New("redis: too many conflicting writers")

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the server is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// watch runs fn under WATCH on keys, retrying when another client wins the race
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for range max(s.cfg.MaxRetries, 1) {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errTooManyRetries
}

// reader is the subset of commands shared by the client and a WATCH transaction
type reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func getJSON[T any](ctx context.Context, c reader, key string, notFound error) (*T, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// mgetJSON loads every key, skipping ones that vanished between index read and fetch
func mgetJSON[T any](ctx context.Context, c reader, keys []string) ([]*T, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	key := playerKey(player.ID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrPlayerExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, playersIndexKey(), redis.Z{
				Score:  float64(player.CreatedAt.UnixMicro()),
				Member: string(player.ID),
			})
			return nil
		})
		return err
	}, key)
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getJSON[model.Player](ctx, s.client, playerKey(id), model.ErrPlayerNotFound)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ids, err := s.client.ZRange(ctx, playersIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	players, err := mgetJSON[model.Player](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(players, func(a, b *model.Player) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return players, nil
}

// updatePlayer applies fn to the stored player as an optimistic read-modify-write
func (s *Storage) updatePlayer(ctx context.Context, id model.PlayerID, fn func(p *model.Player) error) (*model.Player, error) {
	key := playerKey(id)
	var updated *model.Player

	err := s.watch(ctx, func(tx *redis.Tx) error {
		player, err := getJSON[model.Player](ctx, tx, key, model.ErrPlayerNotFound)
		if err != nil {
			return err
		}
		if err := fn(player); err != nil {
			return err
		}

		data, err := json.Marshal(player)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = player
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) AdjustBalance(ctx context.Context, id model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error) {
	player, err := s.updatePlayer(ctx, id, func(p *model.Player) error {
		next, err := p.Balance.Add(delta)
		if err != nil {
			return err
		}
		if !allowNegative && next < 0 {
			return model.ErrInsufficientBalance
		}
		p.Balance = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return player.Balance, nil
}

func (s *Storage) IncrementStats(ctx context.Context, id model.PlayerID, played, won int) error {
	_, err := s.updatePlayer(ctx, id, func(p *model.Player) error {
		p.GamesPlayed += played
		p.GamesWon += won
		return nil
	})
	return err
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(game.ID), data, 0)
		pipe.ZAdd(ctx, gamesIndexKey(), redis.Z{
			Score:  float64(game.StartTime.UnixMicro()),
			Member: string(game.ID),
		})
		return nil
	})
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return getJSON[model.Game](ctx, s.client, gameKey(id), model.ErrGameNotFound)
}

func (s *Storage) ListGames(ctx context.Context, filter model.GameFilter) ([]*model.Game, error) {
	ids, err := s.client.ZRevRange(ctx, gamesIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}

	all, err := mgetJSON[model.Game](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}

	games := slices.DeleteFunc(all, func(g *model.Game) bool {
		return !filter.Matches(g)
	})
	slices.SortStableFunc(games, func(a, b *model.Game) int {
		return cmp.Or(b.StartTime.Compare(a.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return games, nil
}

// Transaction operations

func (s *Storage) AppendTransaction(ctx context.Context, t *model.Transaction) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	key := transactionKey(t.ID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrDuplicateTransaction
		}

		seq, err := tx.Incr(ctx, transactionSeqKey()).Result()
		if err != nil {
			return err
		}
		member := redis.Z{Score: float64(seq), Member: string(t.ID)}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, transactionsIndexKey(), member)
			pipe.ZAdd(ctx, transactionsForGameIndexKey(t.GameID), member)
			pipe.ZAdd(ctx, transactionsForPlayerIndexKey(t.PlayerID), member)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, error) {
	index := transactionsIndexKey()
	switch {
	case filter.GameID != "":
		index = transactionsForGameIndexKey(filter.GameID)
	case filter.PlayerID != "":
		index = transactionsForPlayerIndexKey(filter.PlayerID)
	}

	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = transactionKey(model.TransactionID(id))
	}

	txs, err := mgetJSON[model.Transaction](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(txs, func(t *model.Transaction) bool {
		return !filter.Matches(t)
	}), nil
}

func (s *Storage) RetractTransaction(ctx context.Context, id model.TransactionID) error {
	key := transactionKey(id)
	return s.watch(ctx, func(tx *redis.Tx) error {
		t, err := getJSON[model.Transaction](ctx, tx, key, model.ErrTransactionNotFound)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, transactionsIndexKey(), string(id))
			pipe.ZRem(ctx, transactionsForGameIndexKey(t.GameID), string(id))
			pipe.ZRem(ctx, transactionsForPlayerIndexKey(t.PlayerID), string(id))
			return nil
		})
		if err != nil {
			return fmt.Errorf("retract %s: %w", id, err)
		}
		return nil
	}, key)
}
