package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage/storagetest"
)

// postgresDSNEnv names a database that the postgres suite may truncate freely
const postgresDSNEnv = "PARTYCASINO_TEST_POSTGRES_DSN"

type SQLiteSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.Ctx = context.Background()

	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(s.T().TempDir(), "ledger.db")

	store, err := New(s.Ctx, cfg)
	s.Require().NoError(err)
	s.storage = store
	s.Store = store
}

func (s *SQLiteSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *SQLiteSuite) TestReopenKeepsData() {
	path := filepath.Join(s.T().TempDir(), "reopen.db")
	cfg := DefaultConfig()
	cfg.DSN = path

	first, err := New(s.Ctx, cfg)
	s.Require().NoError(err)
	s.Require().NoError(first.CreatePlayer(s.Ctx, &model.Player{ID: "p1", Name: "Alice", Balance: 1200}))
	s.Require().NoError(first.Close())

	second, err := New(s.Ctx, cfg)
	s.Require().NoError(err)
	defer second.Close()

	p, err := second.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.Money(1200), p.Balance)
}

type PostgresSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestPostgresSuite(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}

	store, err := New(context.Background(), Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer store.Close()

	suite.Run(t, &PostgresSuite{storage: store})
}

func (s *PostgresSuite) SetupTest() {
	s.Ctx = context.Background()
	s.Store = s.storage

	_, err := s.storage.db.ExecContext(s.Ctx, `TRUNCATE transactions, game_players, games, players RESTART IDENTITY`)
	s.Require().NoError(err)
}

func TestRebind(t *testing.T) {
	pg := &Storage{driver: DriverPostgres}
	require.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.rebind("UPDATE t SET a = ? WHERE id = ?"))

	lite := &Storage{driver: DriverSQLite}
	require.Equal(t, "SELECT ? FROM t", lite.rebind("SELECT ? FROM t"))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
}
