package reprocess

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycasino/internal/dependencies/keylock"
	"github.com/mcoot/partycasino/internal/dependencies/mocks"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/services/game"
	"github.com/mcoot/partycasino/internal/services/ledger"
	"github.com/mcoot/partycasino/internal/storage/memory"
	"github.com/mcoot/partycasino/internal/testutil"
)

var admin = model.Caller{ID: "admin", IsAdmin: true}

type GuardSuite struct {
	suite.Suite
	store      *testutil.FaultyStorage
	clock      *mocks.MockClock
	controller *game.Controller
	guard      *Guard
	ctx        context.Context
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = testutil.NewFaultyStorage(memory.New())
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC))

	logger := testutil.NopLogger()
	locks := keylock.New()
	ids := mocks.NewMockIDs()
	emitter := events.NewEmitter(mocks.NewMockPublisher(), s.clock, logger)
	balances := balance.New(s.store, locks, emitter, balance.DefaultConfig(), logger)
	recorder := ledger.NewRecorder(s.store, balances, ids, s.clock, emitter, logger)
	s.controller = game.NewController(s.store, balances, recorder, locks, emitter, s.clock, ids, logger)
	s.guard = NewGuard(s.controller, recorder, balances, logger)

	for _, id := range []model.PlayerID{"alice", "bob", "carol"} {
		s.Require().NoError(s.store.CreatePlayer(s.ctx, &model.Player{ID: id, Name: string(id), Balance: 300, CreatedAt: s.clock.Now()}))
	}
}

// legacyGame stores a completed game that was settled without any transactions
func (s *GuardSuite) legacyGame(id model.GameID, winner model.PlayerID, bets map[model.PlayerID]model.Money) *model.Game {
	end := s.clock.Now()
	g := &model.Game{
		ID:        id,
		Name:      "Old roulette",
		Status:    model.GameStatusCompleted,
		StartTime: end.Add(-time.Hour),
		EndTime:   &end,
		Players:   make(map[model.PlayerID]model.Stake),
		Winner:    winner,
	}
	for pid, bet := range bets {
		g.Players[pid] = model.Stake{InitialBet: bet}
		g.TotalPot += bet
	}
	s.Require().NoError(s.store.SaveGame(s.ctx, g))
	return g
}

func (s *GuardSuite) balance(id model.PlayerID) model.Money {
	p, err := s.store.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p.Balance
}

func (s *GuardSuite) txs(id model.GameID) []*model.Transaction {
	txs, err := s.store.ListTransactions(s.ctx, model.TransactionFilter{GameID: id})
	s.Require().NoError(err)
	return txs
}

func (s *GuardSuite) TestReprocessWritesMissingTransactions() {
	s.legacyGame("g1", "alice", map[model.PlayerID]model.Money{"alice": 50, "bob": 30, "carol": 20})

	res, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
	s.Require().NoError(err)
	s.False(res.AlreadyProcessed)
	s.Equal(4, res.TransactionsCreated)

	s.Len(s.txs("g1"), 4)
	s.Equal(model.Money(300-50+100), s.balance("alice"))
	s.Equal(model.Money(270), s.balance("bob"))
	s.Equal(model.Money(280), s.balance("carol"))

	alice, err := s.store.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, alice.GamesPlayed)
	s.Equal(1, alice.GamesWon)
}

func (s *GuardSuite) TestReprocessIsIdempotent() {
	s.legacyGame("g1", "bob", map[model.PlayerID]model.Money{"alice": 50, "bob": 50})

	_, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
	s.Require().NoError(err)

	for range 3 {
		res, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
		s.Require().NoError(err)
		s.True(res.AlreadyProcessed)
		s.Equal(0, res.TransactionsCreated)
	}

	s.Len(s.txs("g1"), 3)
	s.Equal(model.Money(350), s.balance("bob"))
	s.Equal(model.Money(250), s.balance("alice"))
}

func (s *GuardSuite) TestConcurrentReprocessWritesOnce() {
	s.legacyGame("g1", "bob", map[model.PlayerID]model.Money{"alice": 50, "bob": 50})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
			s.NoError(err)
			if err == nil && !res.AlreadyProcessed {
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, processed)
	s.Len(s.txs("g1"), 3)
}

func (s *GuardSuite) TestGameSettledByEndGameIsAlreadyProcessed() {
	res, err := s.controller.CreateGame(s.ctx, game.CreateGameRequest{
		Name:    "Live game",
		Players: []model.InitialPlayer{{PlayerID: "alice", Bet: 50}, {PlayerID: "bob", Bet: 50}},
	})
	s.Require().NoError(err)
	ref := model.Persisted(res.Game.ID)
	_, err = s.controller.EndGame(s.ctx, ref, "alice")
	s.Require().NoError(err)

	out, err := s.guard.Reprocess(s.ctx, admin, ref)
	s.Require().NoError(err)
	s.True(out.AlreadyProcessed)
	s.Equal(model.Money(350), s.balance("alice"))
}

func (s *GuardSuite) TestReprocessRequiresAdmin() {
	s.legacyGame("g1", "bob", map[model.PlayerID]model.Money{"alice": 50, "bob": 50})

	_, err := s.guard.Reprocess(s.ctx, model.Caller{ID: "guest"}, model.Persisted("g1"))
	s.ErrorIs(err, model.ErrNotAuthorized)
	s.Empty(s.txs("g1"))
}

func (s *GuardSuite) TestReprocessRejectsUnsettledGames() {
	res, err := s.controller.CreateGame(s.ctx, game.CreateGameRequest{
		Players: []model.InitialPlayer{{PlayerID: "alice", Bet: 50}},
	})
	s.Require().NoError(err)

	_, err = s.guard.Reprocess(s.ctx, admin, model.Persisted(res.Game.ID))
	s.ErrorIs(err, model.ErrGameNotCompleted)

	_, err = s.guard.Reprocess(s.ctx, admin, model.Persisted("missing"))
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GuardSuite) TestReprocessRollsBackOnFailure() {
	s.legacyGame("g1", "bob", map[model.PlayerID]model.Money{"alice": 50, "bob": 50})
	// both bets go through, the win is refused
	s.store.FailAfter(testutil.OpAppendTransaction, 2, nil)

	_, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
	s.ErrorIs(err, model.ErrStorage)

	s.Empty(s.txs("g1"))
	s.Equal(model.Money(300), s.balance("alice"))
	s.Equal(model.Money(300), s.balance("bob"))

	// a later attempt still succeeds
	res, err := s.guard.Reprocess(s.ctx, admin, model.Persisted("g1"))
	s.Require().NoError(err)
	s.Equal(3, res.TransactionsCreated)
}
