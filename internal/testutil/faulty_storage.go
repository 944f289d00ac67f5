package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/storage"
)

// ErrInjected is the default failure returned by FaultyStorage
var ErrInjected = errors.New("injected storage failure")

// Operation names understood by FaultyStorage
const (
	OpCreatePlayer       = "CreatePlayer"
	OpAdjustBalance      = "AdjustBalance"
	OpIncrementStats     = "IncrementStats"
	OpSaveGame           = "SaveGame"
	OpAppendTransaction  = "AppendTransaction"
	OpRetractTransaction = "RetractTransaction"
)

type fault struct {
	skip   int // calls to let through before failing
	err    error
	sticky bool
}

// FaultyStorage wraps a real store and fails selected writes on demand
type FaultyStorage struct {
	storage.Storage

	mu     sync.Mutex
	faults map[string]*fault
	calls  map[string]int
}

// NewFaultyStorage wraps inner
func NewFaultyStorage(inner storage.Storage) *FaultyStorage {
	return &FaultyStorage{
		Storage: inner,
		faults:  make(map[string]*fault),
		calls:   make(map[string]int),
	}
}

// FailNext fails the next call to op once
func (f *FaultyStorage) FailNext(op string, err error) {
	f.FailAfter(op, 0, err)
}

// FailAfter lets n calls to op succeed, then fails the next one once
func (f *FaultyStorage) FailAfter(op string, n int, err error) {
	f.set(op, &fault{skip: n, err: err})
}

// FailAlways fails every call to op until Clear
func (f *FaultyStorage) FailAlways(op string, err error) {
	f.set(op, &fault{err: err, sticky: true})
}

// Clear removes every injected fault
func (f *FaultyStorage) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[string]*fault)
}

// Calls returns how many times op reached the wrapper
func (f *FaultyStorage) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyStorage) set(op string, ft *fault) {
	if ft.err == nil {
		ft.err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = ft
}

// check records the call and returns the injected error, if any
func (f *FaultyStorage) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++

	ft, ok := f.faults[op]
	if !ok {
		return nil
	}
	if ft.skip > 0 {
		ft.skip--
		return nil
	}
	if !ft.sticky {
		delete(f.faults, op)
	}
	return ft.err
}

func (f *FaultyStorage) CreatePlayer(ctx context.Context, player *model.Player) error {
	if err := f.check(OpCreatePlayer); err != nil {
		return err
	}
	return f.Storage.CreatePlayer(ctx, player)
}

func (f *FaultyStorage) AdjustBalance(ctx context.Context, id model.PlayerID, delta model.Money, allowNegative bool) (model.Money, error) {
	if err := f.check(OpAdjustBalance); err != nil {
		return 0, err
	}
	return f.Storage.AdjustBalance(ctx, id, delta, allowNegative)
}

func (f *FaultyStorage) IncrementStats(ctx context.Context, id model.PlayerID, played, won int) error {
	if err := f.check(OpIncrementStats); err != nil {
		return err
	}
	return f.Storage.IncrementStats(ctx, id, played, won)
}

func (f *FaultyStorage) SaveGame(ctx context.Context, game *model.Game) error {
	if err := f.check(OpSaveGame); err != nil {
		return err
	}
	return f.Storage.SaveGame(ctx, game)
}

func (f *FaultyStorage) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	if err := f.check(OpAppendTransaction); err != nil {
		return err
	}
	return f.Storage.AppendTransaction(ctx, tx)
}

func (f *FaultyStorage) RetractTransaction(ctx context.Context, id model.TransactionID) error {
	if err := f.check(OpRetractTransaction); err != nil {
		return err
	}
	return f.Storage.RetractTransaction(ctx, id)
}
