package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/partycasino/internal/api/response"
	"github.com/mcoot/partycasino/internal/dependencies/mocks"
	"github.com/mcoot/partycasino/internal/events"
	"github.com/mcoot/partycasino/internal/events/sse"
	"github.com/mcoot/partycasino/internal/services/auth"
	"github.com/mcoot/partycasino/internal/services/balance"
	"github.com/mcoot/partycasino/internal/storage/memory"
	"github.com/mcoot/partycasino/internal/testutil"
)

// TestAdminPassword is the admin password accepted by a TestApp
const TestAdminPassword = "test-admin-password"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockIDs       *mocks.MockIDs
	MockPublisher *mocks.MockPublisher
	FaultyStorage *testutil.FaultyStorage
}

// TestOption adjusts a TestApp before it is wired
type TestOption func(*testOptions)

type testOptions struct {
	balance   balance.Config
	logOutput io.Writer
}

// WithNegativeBalancesDisallowed makes the ledger refuse overdrafts
func WithNegativeBalancesDisallowed() TestOption {
	return func(o *testOptions) {
		o.balance.AllowNegative = false
	}
}

// WithLogOutput sends the app's JSON logs to w instead of discarding them
func WithLogOutput(w io.Writer) TestOption {
	return func(o *testOptions) {
		o.logOutput = w
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The store is wrapped in a FaultyStorage so tests can inject failures.
func NewTestApp(opts ...TestOption) *TestApp {
	o := testOptions{
		balance:   balance.Config{AllowNegative: true, StoreTimeout: time.Second},
		logOutput: io.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := testutil.NewFaultyStorage(memory.New())
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	mockPublisher := mocks.NewMockPublisher()
	logger := slog.New(slog.NewJSONHandler(o.logOutput, nil))

	hash, err := auth.HashPassword(TestAdminPassword)
	if err != nil {
		panic(err)
	}

	hub := sse.NewHub(response.EncodeEvent, logger)
	app := newWithDependencies(
		store, mockClock, mockIDs,
		events.Fanout{mockPublisher, hub}, hub,
		o.balance,
		auth.Config{PasswordHash: hash, SessionDuration: time.Hour},
		logger,
	)
	go hub.Run()

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockIDs:       mockIDs,
		MockPublisher: mockPublisher,
		FaultyStorage: store,
	}
}
