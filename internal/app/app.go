// Package app is the application core boundary: the command and query
// surface the host (CLI, UI) talks to. It owns no sync or storage logic
// of its own; it validates commands, shapes projections, and delegates
// to the local store and the sync controller.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/store"
	"github.com/roach88/possum/internal/syncer"
)

// App wires the local store and the sync controller behind the
// application's command/query entry points. Explicitly constructed at
// startup; no process-wide singletons.
type App struct {
	store      *store.Store
	controller *syncer.Controller
	taxRate    decimal.Decimal
	idGen      pos.IDGenerator
	now        func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithTaxRate overrides the default 10% sales tax.
func WithTaxRate(rate decimal.Decimal) Option {
	return func(a *App) {
		a.taxRate = rate
	}
}

// WithIDGenerator replaces the transaction id source (tests).
func WithIDGenerator(g pos.IDGenerator) Option {
	return func(a *App) {
		a.idGen = g
	}
}

// WithNow replaces the wall clock (tests).
func WithNow(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates the application core around a store and controller.
func New(s *store.Store, c *syncer.Controller, opts ...Option) *App {
	a := &App{
		store:      s,
		controller: c,
		taxRate:    pos.DefaultTaxRate,
		idGen:      pos.UUIDGenerator{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordSale validates the cart, builds an immutable transaction
// snapshot and hands it to the sync controller.
//
// The returned transaction is committed locally in every non-storage
// outcome: a nil error means delivered to the remote too, an error
// matching syncer.ErrSavedOffline or wrapping a gateway.RemoteError
// means saved-but-unsynced (recoverable; the sale is safe). Only a
// local storage failure leaves no record.
func (a *App) RecordSale(ctx context.Context, items []pos.CartItem) (pos.Transaction, error) {
	if err := a.validateAgainstCatalog(ctx, items); err != nil {
		return pos.Transaction{}, err
	}

	tx := pos.NewTransaction(items, a.taxRate, a.now(), a.idGen)
	if err := a.controller.SaveTransaction(ctx, tx); err != nil {
		return tx, err
	}
	return tx, nil
}

// validateAgainstCatalog checks cart invariants and that every product
// exists in the local catalog with sufficient stock.
func (a *App) validateAgainstCatalog(ctx context.Context, items []pos.CartItem) error {
	if err := pos.ValidateCart(items); err != nil {
		return err
	}

	products, err := a.store.Products(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]pos.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, it := range items {
		p, ok := byID[it.Product.ID]
		if !ok {
			return fmt.Errorf("product %s not in catalog", it.Product.ID)
		}
		if it.Quantity > p.Stock {
			return fmt.Errorf("product %s: quantity %d exceeds stock %d", p.ID, it.Quantity, p.Stock)
		}
	}
	return nil
}

// ListProducts returns the local catalog snapshot.
func (a *App) ListProducts(ctx context.Context) ([]pos.Product, error) {
	return a.store.Products(ctx)
}

// ListTransactions returns recorded transactions newest-first.
// Ordering is applied here: it is a presentation concern, not storage's.
func (a *App) ListTransactions(ctx context.Context) ([]pos.Transaction, error) {
	txs, err := a.store.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
	return txs, nil
}

// SyncStatusOf projects the delivery status of one transaction.
func (a *App) SyncStatusOf(ctx context.Context, id string) (pos.SyncStatus, error) {
	return a.controller.Status(ctx, id)
}

// LastSyncTime returns the last successful sync time, zero if never.
func (a *App) LastSyncTime(ctx context.Context) (time.Time, error) {
	return a.controller.LastSyncTime(ctx)
}

// Online reports the last persisted connectivity flag.
func (a *App) Online(ctx context.Context) (bool, error) {
	return a.controller.Online(ctx)
}

// RequestSync triggers a sync cycle. A nil report means a cycle was
// already in progress and the request was dropped.
func (a *App) RequestSync(ctx context.Context) (*syncer.Report, error) {
	return a.controller.Sync(ctx)
}

// SetOnline forwards a connectivity notification to the controller.
func (a *App) SetOnline(ctx context.Context, online bool) (*syncer.Report, error) {
	return a.controller.SetOnline(ctx, online)
}
