package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/possum/internal/app"
	"github.com/roach88/possum/internal/config"
	"github.com/roach88/possum/internal/gateway"
	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/store"
	"github.com/roach88/possum/internal/syncer"
)

// openApp builds the full application stack from the root options:
// config, local store, remote gateway, sync controller, application
// core. The returned cleanup closes the store.
func openApp(opts *RootOptions) (*app.App, func(), error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.DB != "" {
		cfg.Database = opts.DB
	}

	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid tax rate %q", cfg.TaxRate), err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var gw gateway.Gateway
	if cfg.Remote.BaseURL != "" {
		gw = gateway.NewHTTP(cfg.Remote.BaseURL, cfg.Remote.APIKey,
			gateway.WithTimeout(cfg.Remote.Timeout.Std()))
	} else {
		gw = noRemoteGateway{}
	}

	controller := syncer.New(st, gw,
		syncer.WithMaxRetries(cfg.Sync.MaxRetries),
		syncer.WithRetryDelay(cfg.Sync.RetryDelay.Std()),
	)
	a := app.New(st, controller, app.WithTaxRate(taxRate))

	cleanup := func() { st.Close() }
	return a, cleanup, nil
}

// noRemoteGateway stands in when no remote is configured. Every call
// fails with a RemoteError, which the sync controller already knows how
// to recover from: catalog stays as-is, transactions stay pending.
type noRemoteGateway struct{}

func (noRemoteGateway) FetchCatalog(ctx context.Context) ([]pos.Product, error) {
	return nil, &gateway.RemoteError{Op: "fetch catalog", Err: errNoRemote}
}

func (noRemoteGateway) InsertTransaction(ctx context.Context, t pos.Transaction) error {
	return &gateway.RemoteError{Op: "insert transaction", Err: errNoRemote}
}

var errNoRemote = fmt.Errorf("no remote configured (set remote.base_url)")
