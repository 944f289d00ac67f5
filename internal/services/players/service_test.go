package players

import (
	"context"
	"strings"
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

type ServiceSuite struct {
	suite.Suite
	ids        *mocks.MockIDs
	clock      *mocks.MockClock
	publisher  *mocks.MockPublisher
	service    *Service
	controller *game.Controller
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ids = mocks.NewMockIDs()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC))
	s.publisher = mocks.NewMockPublisher()

	store := memory.New()
	logger := testutil.NopLogger()
	locks := keylock.New()
	emitter := events.NewEmitter(s.publisher, s.clock, logger)
	balances := balance.New(store, locks, emitter, balance.DefaultConfig(), logger)
	recorder := ledger.NewRecorder(store, balances, s.ids, s.clock, emitter, logger)

	s.service = New(store, recorder, emitter, s.clock, s.ids, time.Second, logger)
	s.controller = game.NewController(store, balances, recorder, locks, emitter, s.clock, s.ids, logger)
}

func (s *ServiceSuite) register(id, name string, balance model.Money) *model.Player {
	s.ids.Queue(id)
	p, err := s.service.Register(s.ctx, name, balance)
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) TestRegister() {
	s.ids.Queue("p1")

	p, err := s.service.Register(s.ctx, "  Alice  ", model.Money(10000))
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), p.ID)
	s.Equal("Alice", p.Name)
	s.Equal(model.Money(10000), p.Balance)
	s.Equal(s.clock.Now(), p.CreatedAt)

	got, err := s.service.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(p, got)

	s.Len(s.publisher.OfType(model.EventPlayerUpdated), 1)
}

func (s *ServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(s.ctx, "   ", 0)
	s.ErrorIs(err, model.ErrInvalidPlayerName)

	_, err = s.service.Register(s.ctx, strings.Repeat("x", MaxNameLength+1), 0)
	s.ErrorIs(err, model.ErrInvalidPlayerName)

	_, err = s.service.Register(s.ctx, "Bob", -1)
	s.ErrorIs(err, model.ErrInvalidMoney)

	players, err := s.service.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *ServiceSuite) TestGetPlayerNotFound() {
	_, err := s.service.GetPlayer(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestListPlayersInRegistrationOrder() {
	s.register("p1", "Zed", 0)
	s.clock.Advance(time.Second)
	s.register("p2", "Amy", 0)

	players, err := s.service.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal("Zed", players[0].Name)
	s.Equal("Amy", players[1].Name)
}

func (s *ServiceSuite) TestLeaderboard() {
	s.register("p1", "Carol", 100)
	s.register("p2", "Alice", 500)
	s.register("p3", "Bob", 100)
	s.register("p4", "Dan", 50)

	board, err := s.service.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	var names []string
	for _, p := range board {
		names = append(names, p.Name)
	}
	s.Equal([]string{"Alice", "Bob", "Carol", "Dan"}, names)

	top, err := s.service.Leaderboard(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)
}

func (s *ServiceSuite) TestPlayerStats() {
	s.register("alice", "Alice", 300)
	s.register("bob", "Bob", 300)

	won, err := s.controller.CreateGame(s.ctx, game.CreateGameRequest{
		Players: []model.InitialPlayer{{PlayerID: "alice", Bet: 50}, {PlayerID: "bob", Bet: 50}},
	})
	s.Require().NoError(err)
	_, err = s.controller.EndGame(s.ctx, model.Persisted(won.Game.ID), "alice")
	s.Require().NoError(err)

	cancelled, err := s.controller.CreateGame(s.ctx, game.CreateGameRequest{
		Players: []model.InitialPlayer{{PlayerID: "alice", Bet: 20}},
	})
	s.Require().NoError(err)
	_, err = s.controller.CancelGame(s.ctx, model.Persisted(cancelled.Game.ID))
	s.Require().NoError(err)

	stats, err := s.service.GetPlayerStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, stats.GamesPlayed)
	s.Equal(1, stats.GamesWon)
	s.Equal(model.Money(100), stats.TotalWinnings)
	s.Equal(model.Money(50), stats.TotalBets)
	s.Equal(model.Money(50), stats.Net)

	bobStats, err := s.service.GetPlayerStats(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(0, bobStats.GamesWon)
	s.Equal(model.Money(-50), bobStats.Net)

	txs, err := s.service.PlayerTransactions(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(txs, 4)

	_, err = s.service.PlayerTransactions(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
