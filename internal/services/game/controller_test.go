package game

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycasino/internal/dependencies/keylock"
	"github.com/mcoot/partycasino/internal/dependencies/mocks"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/services/ledger"
	"github.com/mcoot/partycasino/internal/storage/memory"
	"github.com/mcoot/partycasino/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	store      *testutil.FaultyStorage
	clock      *mocks.MockClock
	ids        *mocks.MockIDs
	publisher  *mocks.MockPublisher
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = testutil.NewFaultyStorage(memory.New())
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	s.publisher = mocks.NewMockPublisher()
	s.newController(true)

	s.addPlayer("alice", 300)
	s.addPlayer("bob", 300)
	s.addPlayer("carol", 300)
}

func (s *ControllerSuite) newController(allowNegative bool) {
	logger := testutil.NopLogger()
	locks := keylock.New()
	emitter := events.NewEmitter(s.publisher, s.clock, logger)
	balances := balance.New(s.store, locks, emitter, balance.Config{AllowNegative: allowNegative, StoreTimeout: time.Second}, logger)
	recorder := ledger.NewRecorder(s.store, balances, s.ids, s.clock, emitter, logger)
	s.controller = NewController(s.store, balances, recorder, locks, emitter, s.clock, s.ids, logger)
}

func (s *ControllerSuite) addPlayer(id model.PlayerID, balance model.Money) {
	s.Require().NoError(s.store.CreatePlayer(s.ctx, &model.Player{ID: id, Name: string(id), Balance: balance, CreatedAt: s.clock.Now()}))
}

func (s *ControllerSuite) player(id model.PlayerID) *model.Player {
	p, err := s.store.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p
}

func (s *ControllerSuite) balance(id model.PlayerID) model.Money {
	return s.player(id).Balance
}

func (s *ControllerSuite) storedGame(id model.GameID) *model.Game {
	g, err := s.store.GetGame(s.ctx, id)
	s.Require().NoError(err)
	return g
}

func (s *ControllerSuite) gameTxs(id model.GameID) []*model.Transaction {
	txs, err := s.store.ListTransactions(s.ctx, model.TransactionFilter{GameID: id})
	s.Require().NoError(err)
	return txs
}

func (s *ControllerSuite) createGame(players ...model.InitialPlayer) *model.Game {
	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{Name: "Friday poker", Type: "poker", CreatedBy: "host", Players: players})
	s.Require().NoError(err)
	s.Require().Empty(res.Failed())
	return res.Game
}

func bet(id model.PlayerID, amount model.Money) model.InitialPlayer {
	return model.InitialPlayer{PlayerID: id, Bet: amount}
}

func sumByType(txs []*model.Transaction, typ model.TransactionType) model.Money {
	var total model.Money
	for _, tx := range txs {
		if tx.Type == typ {
			total += tx.Amount
		}
	}
	return total
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameDebitsEveryPlayer() {
	s.ids.Queue("game-1")

	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{
		Name: "Friday poker", Type: "poker", CreatedBy: "host",
		Players: []model.InitialPlayer{bet("alice", 50), bet("bob", 75)},
	})
	s.Require().NoError(err)

	game := res.Game
	s.Equal(model.GameID("game-1"), game.ID)
	s.Equal(model.GameStatusActive, game.Status)
	s.Equal(model.Money(125), game.TotalPot)
	s.Equal(s.clock.Now(), game.StartTime)
	s.Len(res.Results, 2)
	for _, r := range res.Results {
		s.NoError(r.Err)
		s.NotEmpty(r.TransactionID)
	}

	s.Equal(model.Money(250), s.balance("alice"))
	s.Equal(model.Money(225), s.balance("bob"))

	stored := s.storedGame("game-1")
	s.Equal(model.Money(125), stored.TotalPot)
	s.Equal(model.Money(75), stored.Players["bob"].InitialBet)

	txs := s.gameTxs("game-1")
	s.Len(txs, 2)
	s.Equal(model.Money(-125), sumByType(txs, model.TransactionBet))

	s.NotEmpty(s.publisher.OfType(model.EventGameUpdated))
}

func (s *ControllerSuite) TestCreateGameValidation() {
	cases := []struct {
		name    string
		players []model.InitialPlayer
		err     error
	}{
		{"no players", nil, model.ErrNoPlayers},
		{"zero bet", []model.InitialPlayer{bet("alice", 0)}, model.ErrInvalidBet},
		{"negative bet", []model.InitialPlayer{bet("alice", -10)}, model.ErrInvalidBet},
		{"duplicate player", []model.InitialPlayer{bet("alice", 10), bet("alice", 20)}, model.ErrDuplicatePlayer},
		{"unknown player", []model.InitialPlayer{bet("alice", 10), bet("zed", 20)}, model.ErrPlayerNotFound},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.controller.CreateGame(s.ctx, CreateGameRequest{Name: "x", Players: tc.players})
			s.ErrorIs(err, tc.err)
		})
	}

	games, err := s.store.ListGames(s.ctx, model.GameFilter{})
	s.Require().NoError(err)
	s.Empty(games, "validation happens before any write")
	s.Equal(model.Money(300), s.balance("alice"))
}

func (s *ControllerSuite) TestCreateGameDropsPlayersWhoseBetFails() {
	s.newController(false)
	s.addPlayer("broke", 20)

	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{
		Name:    "High stakes",
		Players: []model.InitialPlayer{bet("alice", 50), bet("broke", 100), bet("bob", 50)},
	})
	s.Require().NoError(err)

	failed := res.Failed()
	s.Require().Len(failed, 1)
	s.Equal(model.PlayerID("broke"), failed[0].PlayerID)
	s.ErrorIs(failed[0].Err, model.ErrInsufficientBalance)

	stored := s.storedGame(res.Game.ID)
	s.False(stored.HasPlayer("broke"))
	s.Len(stored.Players, 2)
	s.Equal(model.Money(100), stored.TotalPot)
	s.Equal(stored.SumBets(), stored.TotalPot)

	s.Equal(model.Money(20), s.balance("broke"))
	s.Len(s.gameTxs(res.Game.ID), 2)
}

func (s *ControllerSuite) TestCreateGameSurvivesWhenEveryBetFails() {
	s.store.FailAlways(testutil.OpAdjustBalance, nil)

	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{Players: []model.InitialPlayer{bet("alice", 50)}})
	s.Require().NoError(err)
	s.Len(res.Failed(), 1)
	s.ErrorIs(res.Failed()[0].Err, model.ErrStorage)

	stored := s.storedGame(res.Game.ID)
	s.Empty(stored.Players)
	s.Equal(model.Money(0), stored.TotalPot)
	s.Empty(s.gameTxs(res.Game.ID))
}

func (s *ControllerSuite) TestCreateGameInsertFailure() {
	s.ids.Queue("game-1")
	s.store.FailNext(testutil.OpSaveGame, nil)

	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{Players: []model.InitialPlayer{bet("alice", 50)}})
	s.ErrorIs(err, model.ErrStorage)
	s.Nil(res)

	s.Equal(model.Money(300), s.balance("alice"))
	s.Empty(s.gameTxs("game-1"))
	_, err = s.store.GetGame(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
	s.Empty(s.publisher.OfType(model.EventTransactionCreated))
}

func (s *ControllerSuite) TestCreateGameInsertFailureAfterRefusedBet() {
	s.ids.Queue("game-1")
	// alice pays, bob's bet record is refused, then the game cannot be stored
	s.store.FailAfter(testutil.OpAppendTransaction, 1, nil)
	s.store.FailNext(testutil.OpSaveGame, nil)

	res, err := s.controller.CreateGame(s.ctx, CreateGameRequest{
		Players: []model.InitialPlayer{bet("alice", 50), bet("bob", 50)},
	})
	s.ErrorIs(err, model.ErrStorage)
	s.Nil(res)

	s.Equal(model.Money(300), s.balance("alice"))
	s.Equal(model.Money(300), s.balance("bob"))
	s.Empty(s.gameTxs("game-1"))
	_, err = s.store.GetGame(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestCreateGameInsertFailureReportsUnrevertedBets() {
	s.ids.Queue("game-1")
	s.store.FailNext(testutil.OpSaveGame, nil)
	// the debit goes through, restoring it does not
	s.store.FailAfter(testutil.OpAdjustBalance, 1, nil)

	_, err := s.controller.CreateGame(s.ctx, CreateGameRequest{Players: []model.InitialPlayer{bet("alice", 50)}})

	var se *model.StorageError
	s.Require().ErrorAs(err, &se)
	s.Equal(model.GameID("game-1"), se.GameID)
	s.Equal("create game", se.Op)
	s.Require().Len(se.Reconciliation, 1)
	s.Equal(model.PlayerID("alice"), se.Reconciliation[0].PlayerID)
	s.Equal(model.Money(-50), se.Reconciliation[0].Delta)
	s.NotEmpty(se.Reconciliation[0].TransactionID)

	s.Equal(model.Money(250), s.balance("alice"))
}

func (s *ControllerSuite) TestCreateGameRejectsOverflowingPot() {
	half := model.Money(math.MaxInt64/2 + 1)

	_, err := s.controller.CreateGame(s.ctx, CreateGameRequest{
		Players: []model.InitialPlayer{bet("alice", half), bet("bob", half)},
	})
	s.ErrorIs(err, model.ErrInvalidBet)
	s.ErrorIs(err, model.ErrInvalidMoney)

	games, err := s.store.ListGames(s.ctx, model.GameFilter{})
	s.Require().NoError(err)
	s.Empty(games)
	s.Equal(model.Money(300), s.balance("alice"))
	s.Equal(0, s.store.Calls(testutil.OpAppendTransaction))
}

// AddPlayer tests

func (s *ControllerSuite) TestAddPlayer() {
	game := s.createGame(bet("alice", 50))

	updated, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "bob", 30)
	s.Require().NoError(err)
	s.Equal(model.Money(80), updated.TotalPot)

	stored := s.storedGame(game.ID)
	s.True(stored.HasPlayer("bob"))
	s.Equal(model.Money(80), stored.TotalPot)
	s.Equal(model.Money(270), s.balance("bob"))
	s.Len(s.gameTxs(game.ID), 2)
}

func (s *ControllerSuite) TestAddPlayerDuplicateRejected() {
	game := s.createGame(bet("alice", 50))

	_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "alice", 10)
	s.ErrorIs(err, model.ErrDuplicatePlayer)
	s.Equal(model.Money(250), s.balance("alice"))
	s.Equal(model.Money(50), s.storedGame(game.ID).TotalPot)
}

func (s *ControllerSuite) TestAddPlayerValidation() {
	game := s.createGame(bet("alice", 50))
	ref := model.Persisted(game.ID)

	_, err := s.controller.AddPlayer(s.ctx, ref, "bob", 0)
	s.ErrorIs(err, model.ErrInvalidBet)

	_, err = s.controller.AddPlayer(s.ctx, ref, "zed", 10)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.controller.AddPlayer(s.ctx, model.Persisted("missing"), "bob", 10)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestAddPlayerInsufficientBalance() {
	s.newController(false)
	game := s.createGame(bet("alice", 50))
	saves := s.store.Calls(testutil.OpSaveGame)

	_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "bob", 301)
	s.ErrorIs(err, model.ErrInsufficientBalance)
	s.Equal(saves, s.store.Calls(testutil.OpSaveGame), "rejected before any write")
	s.Equal(model.Money(300), s.balance("bob"))
}

func (s *ControllerSuite) TestAddPlayerRollsBackOnAppendFailure() {
	game := s.createGame(bet("alice", 50))
	s.store.FailNext(testutil.OpAppendTransaction, nil)

	_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "bob", 30)
	s.ErrorIs(err, model.ErrStorage)

	stored := s.storedGame(game.ID)
	s.False(stored.HasPlayer("bob"))
	s.Equal(model.Money(50), stored.TotalPot)
	s.Equal(model.Money(300), s.balance("bob"))
	s.Len(s.gameTxs(game.ID), 1)
}

func (s *ControllerSuite) TestAddPlayerRollsBackOnDebitFailure() {
	game := s.createGame(bet("alice", 50))
	s.store.FailNext(testutil.OpAdjustBalance, nil)

	_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "bob", 30)
	s.ErrorIs(err, model.ErrStorage)

	stored := s.storedGame(game.ID)
	s.False(stored.HasPlayer("bob"))
	s.Equal(model.Money(300), s.balance("bob"))
	s.Len(s.gameTxs(game.ID), 1)
}

func (s *ControllerSuite) TestAddPlayerRejectsOverflowingPot() {
	game := s.createGame(bet("alice", math.MaxInt64-10))
	saves := s.store.Calls(testutil.OpSaveGame)

	_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), "bob", 11)
	s.ErrorIs(err, model.ErrInvalidBet)
	s.ErrorIs(err, model.ErrInvalidMoney)

	s.Equal(saves, s.store.Calls(testutil.OpSaveGame))
	stored := s.storedGame(game.ID)
	s.False(stored.HasPlayer("bob"))
	s.Equal(model.Money(math.MaxInt64-10), stored.TotalPot)
	s.Equal(model.Money(300), s.balance("bob"))
}

func (s *ControllerSuite) TestConcurrentJoins() {
	game := s.createGame(bet("alice", 10))

	const n = 25
	for i := range n {
		s.addPlayer(model.PlayerID(fmt.Sprintf("guest-%02d", i)), 100)
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := model.PlayerID(fmt.Sprintf("guest-%02d", i))
			_, err := s.controller.AddPlayer(s.ctx, model.Persisted(game.ID), id, model.Money(i+1))
			s.NoError(err)
		}()
	}
	wg.Wait()

	stored := s.storedGame(game.ID)
	s.Len(stored.Players, n+1)
	// 10 from alice plus 1+2+...+n
	s.Equal(model.Money(10+n*(n+1)/2), stored.TotalPot)
	s.Equal(stored.SumBets(), stored.TotalPot)
	s.Len(s.gameTxs(game.ID), n+1)
}

// EndGame tests

func (s *ControllerSuite) TestBalanceExample() {
	game := s.createGame(bet("alice", 50), bet("bob", 50))
	s.Equal(model.Money(100), game.TotalPot)
	s.Equal(model.Money(250), s.balance("alice"))
	s.Equal(model.Money(250), s.balance("bob"))

	_, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "alice")
	s.Require().NoError(err)

	s.Equal(model.Money(350), s.balance("alice"))
	s.Equal(model.Money(250), s.balance("bob"))

	txs := s.gameTxs(game.ID)
	s.Len(txs, 3)
	var bets, wins int
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionBet:
			bets++
			s.Equal(model.Money(-50), tx.Amount)
		case model.TransactionWin:
			wins++
			s.Equal(model.Money(100), tx.Amount)
			s.Equal(model.PlayerID("alice"), tx.PlayerID)
		}
	}
	s.Equal(2, bets)
	s.Equal(1, wins)
}

func (s *ControllerSuite) TestConservation() {
	game := s.createGame(bet("alice", 40), bet("bob", 25))
	ref := model.Persisted(game.ID)
	_, err := s.controller.AddPlayer(s.ctx, ref, "carol", 35)
	s.Require().NoError(err)

	_, err = s.controller.EndGame(s.ctx, ref, "bob")
	s.Require().NoError(err)

	txs := s.gameTxs(game.ID)
	s.Equal(model.Money(0), sumByType(txs, model.TransactionBet)+sumByType(txs, model.TransactionWin))
	s.Equal(model.Money(900), s.balance("alice")+s.balance("bob")+s.balance("carol"))
}

func (s *ControllerSuite) TestEndGameSettlesGame() {
	game := s.createGame(bet("alice", 50), bet("bob", 30))
	s.clock.Advance(time.Hour)

	ended, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "bob")
	s.Require().NoError(err)

	s.Equal(model.GameStatusCompleted, ended.Status)
	s.Equal(model.PlayerID("bob"), ended.Winner)
	s.Require().NotNil(ended.EndTime)
	s.Equal(s.clock.Now(), *ended.EndTime)

	stored := s.storedGame(game.ID)
	s.Equal(model.GameStatusCompleted, stored.Status)
	s.Require().NotNil(stored.Players["bob"].FinalAmount)
	s.Equal(model.Money(50), *stored.Players["bob"].FinalAmount)
	s.Require().NotNil(stored.Players["alice"].FinalAmount)
	s.Equal(model.Money(-50), *stored.Players["alice"].FinalAmount)

	s.Equal(1, s.player("bob").GamesWon)
	s.Equal(1, s.player("bob").GamesPlayed)
	s.Equal(0, s.player("alice").GamesWon)
	s.Equal(1, s.player("alice").GamesPlayed)
	s.Equal(0, s.player("carol").GamesPlayed)
}

func (s *ControllerSuite) TestEndGameUnknownWinner() {
	game := s.createGame(bet("alice", 50))

	_, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "carol")
	s.ErrorIs(err, model.ErrUnknownWinner)
	s.Equal(model.GameStatusActive, s.storedGame(game.ID).Status)
}

func (s *ControllerSuite) TestTerminalStatesAreFinal() {
	completed := s.createGame(bet("alice", 50), bet("bob", 50))
	_, err := s.controller.EndGame(s.ctx, model.Persisted(completed.ID), "alice")
	s.Require().NoError(err)

	cancelled := s.createGame(bet("alice", 10))
	_, err = s.controller.CancelGame(s.ctx, model.Persisted(cancelled.ID))
	s.Require().NoError(err)

	for _, id := range []model.GameID{completed.ID, cancelled.ID} {
		ref := model.Persisted(id)
		before := s.storedGame(id)
		saves := s.store.Calls(testutil.OpSaveGame)
		appends := s.store.Calls(testutil.OpAppendTransaction)
		adjusts := s.store.Calls(testutil.OpAdjustBalance)

		_, err := s.controller.AddPlayer(s.ctx, ref, "carol", 10)
		s.ErrorIs(err, model.ErrGameNotActive)
		_, err = s.controller.EndGame(s.ctx, ref, "alice")
		s.ErrorIs(err, model.ErrGameNotActive)
		_, err = s.controller.CancelGame(s.ctx, ref)
		s.ErrorIs(err, model.ErrGameNotActive)

		s.Equal(saves, s.store.Calls(testutil.OpSaveGame))
		s.Equal(appends, s.store.Calls(testutil.OpAppendTransaction))
		s.Equal(adjusts, s.store.Calls(testutil.OpAdjustBalance))
		s.Equal(before, s.storedGame(id))
	}
}

func (s *ControllerSuite) TestEndGameRollsBackOnStatsFailure() {
	game := s.createGame(bet("alice", 50), bet("bob", 50))
	s.store.FailAfter(testutil.OpIncrementStats, 1, nil)

	_, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "alice")
	s.ErrorIs(err, model.ErrStorage)
	var se *model.StorageError
	s.Require().ErrorAs(err, &se)
	s.Empty(se.Reconciliation)

	stored := s.storedGame(game.ID)
	s.Equal(model.GameStatusActive, stored.Status)
	s.Empty(stored.Winner)
	s.Nil(stored.EndTime)
	s.Equal(model.Money(250), s.balance("alice"))
	s.Equal(0, s.player("alice").GamesPlayed)
	s.Equal(0, s.player("alice").GamesWon)
	s.Equal(model.Money(0), sumByType(s.gameTxs(game.ID), model.TransactionWin))

	// the game can still be settled afterwards
	_, err = s.controller.EndGame(s.ctx, model.Persisted(game.ID), "alice")
	s.Require().NoError(err)
	s.Equal(model.Money(350), s.balance("alice"))
}

func (s *ControllerSuite) TestEndGameFailedRollbackReportsReconciliation() {
	game := s.createGame(bet("alice", 50), bet("bob", 50))
	s.store.FailAlways(testutil.OpIncrementStats, nil)
	// the win credit goes through, reversing it does not
	s.store.FailAfter(testutil.OpAdjustBalance, 1, nil)

	_, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "alice")

	var se *model.StorageError
	s.Require().ErrorAs(err, &se)
	s.Equal(game.ID, se.GameID)
	s.Require().Len(se.Reconciliation, 1)
	s.Equal(model.PlayerID("alice"), se.Reconciliation[0].PlayerID)
	s.Equal(model.Money(100), se.Reconciliation[0].Delta)

	s.Equal(model.Money(350), s.balance("alice"))
	s.Equal(model.GameStatusActive, s.storedGame(game.ID).Status)
}

func (s *ControllerSuite) TestEndGameRollsBackWhenWinnerBalanceOverflows() {
	s.addPlayer("whale", math.MaxInt64-100)
	game := s.createGame(bet("whale", 10), bet("alice", 200))

	_, err := s.controller.EndGame(s.ctx, model.Persisted(game.ID), "whale")
	s.ErrorIs(err, model.ErrInvalidMoney)

	s.Equal(model.Money(math.MaxInt64-110), s.balance("whale"))
	s.Equal(model.GameStatusActive, s.storedGame(game.ID).Status)
	s.Equal(model.Money(0), sumByType(s.gameTxs(game.ID), model.TransactionWin))
	s.Equal(0, s.player("whale").GamesPlayed)
}

// CancelGame tests

func (s *ControllerSuite) TestCancelGameRefundsEveryone() {
	game := s.createGame(bet("alice", 50), bet("bob", 20))

	cancelled, err := s.controller.CancelGame(s.ctx, model.Persisted(game.ID))
	s.Require().NoError(err)
	s.Equal(model.GameStatusCancelled, cancelled.Status)

	s.Equal(model.Money(300), s.balance("alice"))
	s.Equal(model.Money(300), s.balance("bob"))

	txs := s.gameTxs(game.ID)
	s.Len(txs, 4)
	s.Equal(model.Money(70), sumByType(txs, model.TransactionRefund))

	stored := s.storedGame(game.ID)
	for _, stake := range stored.Players {
		s.Require().NotNil(stake.FinalAmount)
		s.Equal(model.Money(0), *stake.FinalAmount)
	}
}

func (s *ControllerSuite) TestCancelGameRollsBackPartialRefunds() {
	game := s.createGame(bet("alice", 50), bet("bob", 20))
	s.store.FailAfter(testutil.OpAdjustBalance, 1, nil)

	_, err := s.controller.CancelGame(s.ctx, model.Persisted(game.ID))
	s.ErrorIs(err, model.ErrStorage)

	s.Equal(model.GameStatusActive, s.storedGame(game.ID).Status)
	s.Equal(model.Money(250), s.balance("alice"))
	s.Equal(model.Money(280), s.balance("bob"))
	s.Equal(model.Money(0), sumByType(s.gameTxs(game.ID), model.TransactionRefund))
}

// Queries and refs

func (s *ControllerSuite) TestListGamesAndTransactions() {
	g1 := s.createGame(bet("alice", 10))
	s.clock.Advance(time.Minute)
	g2 := s.createGame(bet("bob", 10))
	_, err := s.controller.CancelGame(s.ctx, model.Persisted(g1.ID))
	s.Require().NoError(err)

	active, err := s.controller.ListGames(s.ctx, model.GameFilter{Status: model.GameStatusActive})
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(g2.ID, active[0].ID)

	txs, err := s.controller.GameTransactions(s.ctx, model.Persisted(g1.ID))
	s.Require().NoError(err)
	s.Len(txs, 2)

	_, err = s.controller.GameTransactions(s.ctx, model.Persisted("missing"))
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestLocalRefBeforeSync() {
	_, err := s.controller.GetGame(s.ctx, model.Local("phone-1"))
	s.ErrorIs(err, model.ErrLocalGameNotSynced)

	_, err = s.controller.EndGame(s.ctx, model.Local("phone-1"), "alice")
	s.ErrorIs(err, model.ErrLocalGameNotSynced)
}

func (s *ControllerSuite) TestSyncLocalGameActive() {
	res, err := s.controller.SyncLocalGame(s.ctx, model.LocalGame{
		LocalID: "phone-1",
		Name:    "Blackjack",
		Type:    "blackjack",
		Players: []model.InitialPlayer{bet("alice", 20), bet("bob", 20)},
	})
	s.Require().NoError(err)
	s.False(res.AlreadySynced)
	s.Equal(model.GameStatusActive, res.Game.Status)
	s.Equal("phone-1", res.Game.LocalID)

	// the local ref now resolves and works with every operation
	_, err = s.controller.AddPlayer(s.ctx, model.Local("phone-1"), "carol", 20)
	s.Require().NoError(err)
	game, err := s.controller.GetGame(s.ctx, model.Local("phone-1"))
	s.Require().NoError(err)
	s.Equal(res.Game.ID, game.ID)
	s.Equal(model.Money(60), game.TotalPot)
}

func (s *ControllerSuite) TestSyncLocalGameCompletedIsIdempotent() {
	local := model.LocalGame{
		LocalID: "phone-2",
		Name:    "Roulette",
		Players: []model.InitialPlayer{bet("alice", 50), bet("bob", 50)},
		Status:  model.GameStatusCompleted,
		Winner:  "bob",
	}

	first, err := s.controller.SyncLocalGame(s.ctx, local)
	s.Require().NoError(err)
	s.Equal(model.GameStatusCompleted, first.Game.Status)
	s.Equal(model.Money(350), s.balance("bob"))

	second, err := s.controller.SyncLocalGame(s.ctx, local)
	s.Require().NoError(err)
	s.True(second.AlreadySynced)
	s.Equal(first.Game.ID, second.Game.ID)
	s.Equal(model.Money(350), s.balance("bob"))
	s.Len(s.gameTxs(first.Game.ID), 3)
}

func (s *ControllerSuite) TestSyncLocalGameCancelled() {
	res, err := s.controller.SyncLocalGame(s.ctx, model.LocalGame{
		LocalID: "phone-3",
		Players: []model.InitialPlayer{bet("alice", 50)},
		Status:  model.GameStatusCancelled,
	})
	s.Require().NoError(err)
	s.Equal(model.GameStatusCancelled, res.Game.Status)
	s.Equal(model.Money(300), s.balance("alice"))
}

func (s *ControllerSuite) TestSyncLocalGameValidation() {
	_, err := s.controller.SyncLocalGame(s.ctx, model.LocalGame{Players: []model.InitialPlayer{bet("alice", 5)}})
	s.ErrorIs(err, model.ErrInvalidLocalGame)

	_, err = s.controller.SyncLocalGame(s.ctx, model.LocalGame{
		LocalID: "x", Players: []model.InitialPlayer{bet("alice", 5)}, Status: model.GameStatusCompleted, Winner: "bob",
	})
	s.ErrorIs(err, model.ErrUnknownWinner)

	_, err = s.controller.SyncLocalGame(s.ctx, model.LocalGame{
		LocalID: "x", Players: []model.InitialPlayer{bet("alice", 5)}, Status: "paused",
	})
	s.ErrorIs(err, model.ErrInvalidLocalGame)

	games, err := s.store.ListGames(s.ctx, model.GameFilter{})
	s.Require().NoError(err)
	s.Empty(games)
}
