// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite in their own testify suite and provide a
// fresh store in SetupTest.
package storagetest

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

// Suite runs the common storage contract against Store
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

var baseTime = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func (s *Suite) createPlayer(id model.PlayerID, balance model.Money, offset time.Duration) *model.Player {
	p := &model.Player{
		ID:        id,
		Name:      "Player " + string(id),
		Balance:   balance,
		CreatedAt: baseTime.Add(offset),
	}
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, p))
	return p
}

func money(m model.Money) *model.Money {
	return &m
}

// Player tests

func (s *Suite) TestCreateAndGetPlayer() {
	created := s.createPlayer("p1", 1000, 0)

	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(created.Name, got.Name)
	s.Equal(model.Money(1000), got.Balance)
	s.True(created.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestCreatePlayerDuplicate() {
	s.createPlayer("p1", 0, 0)
	err := s.Store.CreatePlayer(s.Ctx, &model.Player{ID: "p1", Name: "Again", CreatedAt: baseTime})
	s.ErrorIs(err, model.ErrPlayerExists)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestListPlayersInCreationOrder() {
	s.createPlayer("b", 0, time.Minute)
	s.createPlayer("a", 0, 2*time.Minute)
	s.createPlayer("c", 0, 0)

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal(model.PlayerID("c"), players[0].ID)
	s.Equal(model.PlayerID("b"), players[1].ID)
	s.Equal(model.PlayerID("a"), players[2].ID)
}

func (s *Suite) TestReturnedPlayerIsACopy() {
	s.createPlayer("p1", 500, 0)
	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	got.Balance = 999999

	again, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.Money(500), again.Balance)
}

func (s *Suite) TestAdjustBalance() {
	s.createPlayer("p1", 1000, 0)

	balance, err := s.Store.AdjustBalance(s.Ctx, "p1", -250, false)
	s.Require().NoError(err)
	s.Equal(model.Money(750), balance)

	balance, err = s.Store.AdjustBalance(s.Ctx, "p1", 50, false)
	s.Require().NoError(err)
	s.Equal(model.Money(800), balance)

	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.Money(800), got.Balance)
}

func (s *Suite) TestAdjustBalanceInsufficient() {
	s.createPlayer("p1", 100, 0)

	_, err := s.Store.AdjustBalance(s.Ctx, "p1", -101, false)
	s.ErrorIs(err, model.ErrInsufficientBalance)

	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.Money(100), got.Balance)
}

func (s *Suite) TestAdjustBalanceAllowNegative() {
	s.createPlayer("p1", 100, 0)

	balance, err := s.Store.AdjustBalance(s.Ctx, "p1", -300, true)
	s.Require().NoError(err)
	s.Equal(model.Money(-200), balance)
}

func (s *Suite) TestAdjustBalanceMissingPlayer() {
	_, err := s.Store.AdjustBalance(s.Ctx, "missing", 10, false)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestAdjustBalanceOverflow() {
	s.createPlayer("rich", math.MaxInt64-10, 0)
	s.createPlayer("poor", math.MinInt64+10, time.Second)

	_, err := s.Store.AdjustBalance(s.Ctx, "rich", 11, false)
	s.ErrorIs(err, model.ErrInvalidMoney)
	_, err = s.Store.AdjustBalance(s.Ctx, "poor", -11, true)
	s.ErrorIs(err, model.ErrInvalidMoney)

	rich, err := s.Store.GetPlayer(s.Ctx, "rich")
	s.Require().NoError(err)
	s.Equal(model.Money(math.MaxInt64-10), rich.Balance)
	poor, err := s.Store.GetPlayer(s.Ctx, "poor")
	s.Require().NoError(err)
	s.Equal(model.Money(math.MinInt64+10), poor.Balance)

	// Reaching the limit exactly is fine
	balance, err := s.Store.AdjustBalance(s.Ctx, "rich", 10, false)
	s.Require().NoError(err)
	s.Equal(model.Money(math.MaxInt64), balance)
}

func (s *Suite) TestAdjustBalanceConcurrent() {
	s.createPlayer("p1", 0, 0)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Store.AdjustBalance(s.Ctx, "p1", 5, false)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.Money(workers*5), got.Balance)
}

func (s *Suite) TestIncrementStats() {
	s.createPlayer("p1", 0, 0)

	s.Require().NoError(s.Store.IncrementStats(s.Ctx, "p1", 1, 0))
	s.Require().NoError(s.Store.IncrementStats(s.Ctx, "p1", 1, 1))

	got, err := s.Store.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(2, got.GamesPlayed)
	s.Equal(1, got.GamesWon)

	s.ErrorIs(s.Store.IncrementStats(s.Ctx, "missing", 1, 0), model.ErrPlayerNotFound)
}

// Game tests

func (s *Suite) newGame(id model.GameID, status model.GameStatus, offset time.Duration) *model.Game {
	return &model.Game{
		ID:        id,
		Name:      "Game " + string(id),
		Type:      "poker",
		Status:    status,
		StartTime: baseTime.Add(offset),
		Players: map[model.PlayerID]model.Stake{
			"p1": {InitialBet: 100},
			"p2": {InitialBet: 250},
		},
		TotalPot:  350,
		CreatedBy: "tester",
	}
}

func (s *Suite) TestSaveAndGetGame() {
	game := s.newGame("g1", model.GameStatusActive, 0)
	game.LocalID = "client-1"
	s.Require().NoError(s.Store.SaveGame(s.Ctx, game))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(game.Name, got.Name)
	s.Equal(game.Type, got.Type)
	s.Equal(model.GameStatusActive, got.Status)
	s.Equal("client-1", got.LocalID)
	s.Equal(model.Money(350), got.TotalPot)
	s.Nil(got.EndTime)
	s.Require().Len(got.Players, 2)
	s.Equal(model.Money(250), got.Players["p2"].InitialBet)
	s.Nil(got.Players["p2"].FinalAmount)
	s.True(game.StartTime.Equal(got.StartTime))
}

func (s *Suite) TestSaveGameOverwrites() {
	game := s.newGame("g1", model.GameStatusActive, 0)
	s.Require().NoError(s.Store.SaveGame(s.Ctx, game))

	end := baseTime.Add(time.Hour)
	game.Status = model.GameStatusCompleted
	game.EndTime = &end
	game.Winner = "p2"
	game.Players["p1"] = model.Stake{InitialBet: 100, FinalAmount: money(0)}
	game.Players["p2"] = model.Stake{InitialBet: 250, FinalAmount: money(350)}
	s.Require().NoError(s.Store.SaveGame(s.Ctx, game))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusCompleted, got.Status)
	s.Equal(model.PlayerID("p2"), got.Winner)
	s.Require().NotNil(got.EndTime)
	s.True(end.Equal(*got.EndTime))
	s.Require().NotNil(got.Players["p2"].FinalAmount)
	s.Equal(model.Money(350), *got.Players["p2"].FinalAmount)
	s.Require().NotNil(got.Players["p1"].FinalAmount)
	s.Equal(model.Money(0), *got.Players["p1"].FinalAmount)
}

func (s *Suite) TestSaveGameDropsRemovedPlayers() {
	game := s.newGame("g1", model.GameStatusActive, 0)
	s.Require().NoError(s.Store.SaveGame(s.Ctx, game))

	delete(game.Players, "p1")
	game.TotalPot = 250
	s.Require().NoError(s.Store.SaveGame(s.Ctx, game))

	got, err := s.Store.GetGame(s.Ctx, "g1")
	s.Require().NoError(err)
	s.Len(got.Players, 1)
	s.False(got.HasPlayer("p1"))
}

func (s *Suite) TestGetGameSeesWholeSaves() {
	small := s.newGame("g1", model.GameStatusActive, 0)
	large := s.newGame("g1", model.GameStatusActive, 0)
	large.Players["p3"] = model.Stake{InitialBet: 400}
	large.TotalPot = 750
	s.Require().NoError(s.Store.SaveGame(s.Ctx, small))

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range rounds {
			game := small
			if i%2 == 0 {
				game = large
			}
			s.NoError(s.Store.SaveGame(s.Ctx, game))
		}
	}()
	go func() {
		defer wg.Done()
		for range rounds {
			got, err := s.Store.GetGame(s.Ctx, "g1")
			if s.NoError(err) {
				s.Equal(got.TotalPot, got.SumBets(), "participants and pot come from the same save")
			}
		}
	}()
	wg.Wait()
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestListGamesFilters() {
	s.Require().NoError(s.Store.SaveGame(s.Ctx, s.newGame("old", model.GameStatusCompleted, 0)))
	s.Require().NoError(s.Store.SaveGame(s.Ctx, s.newGame("mid", model.GameStatusActive, time.Minute)))
	synced := s.newGame("new", model.GameStatusActive, 2*time.Minute)
	synced.LocalID = "client-7"
	s.Require().NoError(s.Store.SaveGame(s.Ctx, synced))

	all, err := s.Store.ListGames(s.Ctx, model.GameFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.GameID("new"), all[0].ID, "newest first")
	s.Equal(model.GameID("old"), all[2].ID)

	active, err := s.Store.ListGames(s.Ctx, model.GameFilter{Status: model.GameStatusActive})
	s.Require().NoError(err)
	s.Len(active, 2)

	byLocal, err := s.Store.ListGames(s.Ctx, model.GameFilter{LocalID: "client-7"})
	s.Require().NoError(err)
	s.Require().Len(byLocal, 1)
	s.Equal(model.GameID("new"), byLocal[0].ID)
}

// Transaction tests

func (s *Suite) newTx(id model.TransactionID, game model.GameID, player model.PlayerID, amount model.Money, typ model.TransactionType, offset time.Duration) *model.Transaction {
	return &model.Transaction{
		ID:          id,
		GameID:      game,
		PlayerID:    player,
		Amount:      amount,
		Type:        typ,
		Timestamp:   baseTime.Add(offset),
		Description: string(typ) + " " + string(player),
	}
}

func (s *Suite) TestAppendAndListTransactions() {
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t1", "g1", "p1", -100, model.TransactionBet, 0)))
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t2", "g1", "p2", -250, model.TransactionBet, time.Second)))
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t3", "g2", "p1", -50, model.TransactionBet, 2*time.Second)))
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t4", "g1", "p2", 350, model.TransactionWin, 3*time.Second)))

	all, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal(model.TransactionID("t1"), all[0].ID)
	s.Equal(model.TransactionID("t4"), all[3].ID)
	s.Equal("bet p1", all[0].Description)
	s.True(baseTime.Equal(all[0].Timestamp))

	byGame, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{GameID: "g1"})
	s.Require().NoError(err)
	s.Len(byGame, 3)

	byPlayer, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{PlayerID: "p1"})
	s.Require().NoError(err)
	s.Require().Len(byPlayer, 2)
	s.Equal(model.TransactionID("t1"), byPlayer[0].ID)
	s.Equal(model.TransactionID("t3"), byPlayer[1].ID)

	wins, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{GameID: "g1", Type: model.TransactionWin})
	s.Require().NoError(err)
	s.Require().Len(wins, 1)
	s.Equal(model.Money(350), wins[0].Amount)
}

func (s *Suite) TestAppendTransactionDuplicate() {
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t1", "g1", "p1", -100, model.TransactionBet, 0)))
	err := s.Store.AppendTransaction(s.Ctx, s.newTx("t1", "g1", "p1", -100, model.TransactionBet, 0))
	s.ErrorIs(err, model.ErrDuplicateTransaction)
}

func (s *Suite) TestRetractTransaction() {
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t1", "g1", "p1", -100, model.TransactionBet, 0)))
	s.Require().NoError(s.Store.AppendTransaction(s.Ctx, s.newTx("t2", "g1", "p2", -100, model.TransactionBet, time.Second)))

	s.Require().NoError(s.Store.RetractTransaction(s.Ctx, "t1"))

	txs, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{GameID: "g1"})
	s.Require().NoError(err)
	s.Require().Len(txs, 1)
	s.Equal(model.TransactionID("t2"), txs[0].ID)

	s.ErrorIs(s.Store.RetractTransaction(s.Ctx, "t1"), model.ErrTransactionNotFound)
}

func (s *Suite) TestListTransactionsEmpty() {
	txs, err := s.Store.ListTransactions(s.Ctx, model.TransactionFilter{PlayerID: "nobody"})
	s.Require().NoError(err)
	s.Empty(txs)
}
