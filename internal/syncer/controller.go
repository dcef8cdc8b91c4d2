package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/possum/internal/gateway"
	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/store"
)

// Retry policy defaults. The budget is per transaction per cycle: a
// transaction that exhausts it stays pending and gets a fresh budget on
// the next cycle trigger.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// ErrSavedOffline reports the deliberate outcome of SaveTransaction
// while offline: the transaction is durably saved and queued for the
// next cycle. It is informational, not a fault.
var ErrSavedOffline = errors.New("offline: transaction saved locally, queued for sync")

// Sleeper waits for the retry delay. Injectable so tests can simulate
// elapsed time without real waiting. Returns early with the context's
// error if ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepWithContext is the production Sleeper.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report summarizes one sync cycle for the host.
type Report struct {
	// CatalogPulled is the number of products upserted by the pull phase.
	CatalogPulled int

	// PullErr is the pull-phase failure, if any. A pull failure leaves
	// the last good catalog snapshot in place and never aborts the push
	// phase.
	PullErr error

	// Pushed lists transaction ids acknowledged by the remote this cycle.
	Pushed []string

	// Failed lists transaction ids that exhausted their retry budget.
	// They remain pending for the next cycle.
	Failed []string

	// Skipped lists pending ids that had no matching local transaction
	// (stale references, dropped from the pending set).
	Skipped []string
}

// Controller orchestrates pull and push against the local store and the
// remote gateway. Construct with New; the zero value is not usable.
type Controller struct {
	store      *store.Store
	gw         gateway.Gateway
	maxRetries int
	retryDelay time.Duration
	sleep      Sleeper
	now        func() time.Time
	logger     *slog.Logger

	// mu guards inProgress, the single-flight flag. Process-local,
	// non-distributed mutual exclusion: one client instance runs per
	// local store.
	mu         sync.Mutex
	inProgress bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxRetries sets the per-transaction, per-cycle attempt budget.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed wait between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.retryDelay = d
	}
}

// WithSleeper replaces the delay function (deterministic tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		c.sleep = s
	}
}

// WithNow replaces the wall clock (deterministic tests).
func WithNow(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithLogger sets the controller's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller bound to a local store and a remote gateway.
func New(s *store.Store, gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		store:      s,
		gw:         gw,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		sleep:      sleepWithContext,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tryAcquire test-and-sets the single-flight flag.
func (c *Controller) tryAcquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress {
		return false
	}
	c.inProgress = true
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	c.inProgress = false
	c.mu.Unlock()
}

// Sync runs one sync cycle: pull the catalog, then push pending
// transactions. If a cycle is already in progress the call is a no-op
// and returns (nil, nil) immediately.
//
// Remote failures are recovered locally and reported via the Report,
// never returned as the error: a pull failure leaves the catalog stale,
// a push failure leaves the transaction pending. The returned error is
// reserved for local storage failures and context cancellation.
func (c *Controller) Sync(ctx context.Context) (*Report, error) {
	if !c.tryAcquire() {
		c.logger.Debug("sync already in progress, skipping")
		return nil, nil
	}
	defer c.release()

	c.logger.Info("sync cycle started")
	report := &Report{}

	if err := c.pullCatalog(ctx, report); err != nil {
		return report, err
	}
	if err := c.pushPending(ctx, report); err != nil {
		return report, err
	}

	// Completion stamp, regardless of partial failures.
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return report, err
	}
	state.LastSync = c.now()
	if err := c.store.PutSyncState(ctx, state); err != nil {
		return report, err
	}

	c.logger.Info("sync cycle completed",
		"catalog", report.CatalogPulled,
		"pushed", len(report.Pushed),
		"failed", len(report.Failed),
		"pull_err", report.PullErr != nil)
	return report, nil
}

// pullCatalog refreshes the local catalog from the remote. A remote
// failure is recorded in the report; only storage failures become the
// returned error.
func (c *Controller) pullCatalog(ctx context.Context, report *Report) error {
	products, err := c.gw.FetchCatalog(ctx)
	if err != nil {
		c.logger.Warn("catalog pull failed, keeping last snapshot", "error", err)
		report.PullErr = err
		return nil
	}
	if err := c.store.PutProducts(ctx, products); err != nil {
		return err
	}
	report.CatalogPulled = len(products)
	return nil
}

// pushPending delivers each pending transaction with a bounded retry
// budget. One transaction's exhaustion never blocks the others.
func (c *Controller) pushPending(ctx context.Context, report *Report) error {
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return err
	}

	// Walk a snapshot: the durable set mutates as ids resolve.
	pending := make([]string, len(state.Pending))
	copy(pending, state.Pending)
	c.logger.Debug("pushing pending transactions", "count", len(pending))

	for _, id := range pending {
		tx, ok, err := c.store.Transaction(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			// Stale reference: nothing local to deliver. Drop the id so
			// the pending set stays a subset of stored transactions.
			c.logger.Warn("pending id has no local transaction, dropping", "id", id)
			if err := c.store.RemovePending(ctx, id); err != nil {
				return err
			}
			report.Skipped = append(report.Skipped, id)
			continue
		}

		delivered, err := c.deliver(ctx, tx)
		if err != nil {
			return err
		}
		if delivered {
			// Persist the acknowledgement immediately, not batched: a
			// crash after this point must not re-deliver what the remote
			// already confirmed (it would be harmless but wasteful).
			if err := c.store.RemovePending(ctx, id); err != nil {
				return err
			}
			report.Pushed = append(report.Pushed, id)
			continue
		}

		// Budget exhausted: leave pending, mark failed, move on.
		st, err := c.store.SyncState(ctx)
		if err != nil {
			return err
		}
		st.MarkFailed(id)
		if err := c.store.PutSyncState(ctx, st); err != nil {
			return err
		}
		report.Failed = append(report.Failed, id)
	}

	return nil
}

// deliver attempts one transaction up to maxRetries times, waiting
// retryDelay between attempts. Returns whether the remote acknowledged
// it; the error is non-nil only for context cancellation.
func (c *Controller) deliver(ctx context.Context, tx pos.Transaction) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.gw.InsertTransaction(ctx, tx)
		if err == nil {
			c.logger.Info("transaction delivered", "id", tx.ID, "attempt", attempt)
			return true, nil
		}
		lastErr = err
		c.logger.Warn("transaction delivery failed",
			"id", tx.ID, "attempt", attempt, "max", c.maxRetries, "error", err)

		if attempt < c.maxRetries {
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return false, err
			}
		}
	}
	c.logger.Error("transaction exhausted retry budget", "id", tx.ID, "error", lastErr)
	return false, nil
}

// SaveTransaction records a completed sale. The local durable write
// always happens first; the network is only attempted afterwards, and
// only while online.
//
// Online: one immediate delivery attempt (outside the cycle retry
// budget). Success updates the last-sync stamp and skips the pending
// set; failure queues the id and returns the wrapped RemoteError -
// recoverable, the sale itself is safe.
//
// Offline: the id is queued without touching the network and
// ErrSavedOffline is returned.
func (c *Controller) SaveTransaction(ctx context.Context, tx pos.Transaction) error {
	if err := c.store.PutTransaction(ctx, tx); err != nil {
		return err
	}

	state, err := c.store.SyncState(ctx)
	if err != nil {
		return err
	}

	if !state.Online {
		if err := c.store.AddPending(ctx, tx.ID); err != nil {
			return err
		}
		c.logger.Info("transaction saved offline", "id", tx.ID)
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrSavedOffline)
	}

	if err := c.gw.InsertTransaction(ctx, tx); err != nil {
		if addErr := c.store.AddPending(ctx, tx.ID); addErr != nil {
			return addErr
		}
		c.logger.Warn("immediate delivery failed, queued for sync", "id", tx.ID, "error", err)
		return fmt.Errorf("transaction %s saved locally, delivery pending: %w", tx.ID, err)
	}

	state.LastSync = c.now()
	if err := c.store.PutSyncState(ctx, state); err != nil {
		return err
	}
	c.logger.Info("transaction saved and delivered", "id", tx.ID)
	return nil
}

// SetOnline forwards a connectivity notification. The flag is persisted
// either way; an offline-to-online transition additionally triggers a
// sync cycle (subject to single-flight). Going offline never aborts an
// in-flight cycle.
func (c *Controller) SetOnline(ctx context.Context, online bool) (*Report, error) {
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return nil, err
	}
	wasOnline := state.Online
	state.Online = online
	if err := c.store.PutSyncState(ctx, state); err != nil {
		return nil, err
	}

	if online && !wasOnline {
		c.logger.Info("connectivity restored, starting sync")
		return c.Sync(ctx)
	}
	if !online {
		c.logger.Info("connectivity lost")
	}
	return nil, nil
}

// Status projects the sync status of one transaction for the UI:
// error if it exhausted retries in the latest cycle, pending if queued,
// synced otherwise.
func (c *Controller) Status(ctx context.Context, id string) (pos.SyncStatus, error) {
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case state.HasFailed(id):
		return pos.StatusError, nil
	case state.HasPending(id):
		return pos.StatusPending, nil
	default:
		return pos.StatusSynced, nil
	}
}

// LastSyncTime returns the completion time of the last successful sync
// activity; zero if none yet.
func (c *Controller) LastSyncTime(ctx context.Context) (time.Time, error) {
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return state.LastSync, nil
}

// Online reports the last persisted connectivity flag.
func (c *Controller) Online(ctx context.Context) (bool, error) {
	state, err := c.store.SyncState(ctx)
	if err != nil {
		return false, err
	}
	return state.Online, nil
}
