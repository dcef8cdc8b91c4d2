package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/possum/internal/gateway"
	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/store"
)

// fakeGateway is a scriptable in-memory Gateway.
//
// insertErrs maps a transaction id to the errors its successive insert
// attempts should return; once the script is exhausted, inserts succeed.
type fakeGateway struct {
	mu          sync.Mutex
	catalog     []pos.Product
	catalogErr  error
	fetchCalls  int
	fetchBlock  chan struct{} // non-nil: FetchCatalog waits until closed
	insertErrs  map[string][]error
	insertCalls map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		insertErrs:  make(map[string][]error),
		insertCalls: make(map[string]int),
	}
}

func (f *fakeGateway) FetchCatalog(ctx context.Context) ([]pos.Product, error) {
	f.mu.Lock()
	f.fetchCalls++
	block := f.fetchBlock
	catalog, err := f.catalog, f.catalogErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func (f *fakeGateway) InsertTransaction(ctx context.Context, t pos.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls[t.ID]++
	if script := f.insertErrs[t.ID]; len(script) > 0 {
		err := script[0]
		f.insertErrs[t.ID] = script[1:]
		return err
	}
	return nil
}

func (f *fakeGateway) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertCalls[id]
}

func (f *fakeGateway) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// alwaysFail scripts enough failures that the id never succeeds within
// one cycle's budget.
func (f *fakeGateway) alwaysFail(id string, n int) {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = &gateway.RemoteError{Op: "insert transaction", Status: 503, Err: errors.New("unavailable")}
	}
	f.mu.Lock()
	f.insertErrs[id] = errs
	f.mu.Unlock()
}

// countingSleeper records requested delays and returns immediately.
type countingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *countingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return nil
}

func (s *countingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

func newTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func testProduct(id, price string, stock int) pos.Product {
	return pos.Product{
		ID:       id,
		Name:     "product " + id,
		Price:    decimal.RequireFromString(price),
		Category: "coffee",
		Stock:    stock,
	}
}

func testTransaction(id string) pos.Transaction {
	cart := []pos.CartItem{{Product: testProduct("p1", "10.00", 5), Quantity: 2}}
	tx := pos.NewTransaction(cart, pos.DefaultTaxRate, fixedNow(), pos.NewFixedIDGenerator(id))
	return tx
}

func newController(t *testing.T, s *store.Store, gw gateway.Gateway, sleeper *countingSleeper) *Controller {
	t.Helper()
	return New(s, gw,
		WithSleeper(sleeper.sleep),
		WithNow(fixedNow),
	)
}

// --- SaveTransaction ------------------------------------------------

func TestSaveTransaction_Offline_DurableAndQueued(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t) // default offline
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	tx := testTransaction("t1")
	err := c.SaveTransaction(ctx, tx)
	require.ErrorIs(t, err, ErrSavedOffline)

	// Durable regardless of the network outcome.
	got, ok, err := s.Transaction(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok, "transaction must be durable after SaveTransaction")
	assert.True(t, got.Total.Equal(decimal.RequireFromString("22.00")))

	// Offline never touches the network.
	assert.Equal(t, 0, gw.calls("t1"))

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.True(t, state.HasPending("t1"))

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusPending, status)
}

func TestSaveTransaction_OfflineSale_Totals(t *testing.T) {
	// Offline sale of 2 x 10.00: subtotal 20.00, tax 2.00, total 22.00,
	// locally completed, sync status pending.
	ctx := context.Background()
	s := newTestStore(t)
	c := newController(t, s, newFakeGateway(), &countingSleeper{})

	tx := testTransaction("t1")
	assert.True(t, tx.Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, tx.Tax.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, tx.Total.Equal(decimal.RequireFromString("22.00")))
	assert.Equal(t, pos.TxCompleted, tx.Status)

	require.ErrorIs(t, c.SaveTransaction(ctx, tx), ErrSavedOffline)
	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusPending, status)
}

func TestSaveTransaction_OnlineSuccess_NotQueued(t *testing.T) {
	// Online and the gateway succeeds - no pending entry,
	// last-sync stamp updated.
	ctx := context.Background()
	s := newTestStore(t, store.WithDefaultOnline(true))
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	require.NoError(t, c.SaveTransaction(ctx, testTransaction("t1")))

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, state.HasPending("t1"))
	assert.Equal(t, fixedNow(), state.LastSync)
	assert.Equal(t, 1, gw.calls("t1"))

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, status)
}

func TestSaveTransaction_OnlineFailure_QueuedAndRecoverable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.WithDefaultOnline(true))
	gw := newFakeGateway()
	gw.alwaysFail("t1", 1)
	c := newController(t, s, gw, &countingSleeper{})

	err := c.SaveTransaction(ctx, testTransaction("t1"))
	require.Error(t, err)
	assert.True(t, gateway.IsRemote(err), "failure must carry the remote cause")
	assert.NotErrorIs(t, err, ErrSavedOffline)

	// Saved-but-unsynced: durable, queued, one attempt only (the
	// immediate path does not consume the cycle retry budget).
	_, ok, err := s.Transaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, gw.calls("t1"))

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.True(t, state.HasPending("t1"))
	assert.True(t, state.LastSync.IsZero(), "failed delivery must not stamp last-sync")
}

// --- Sync cycle -----------------------------------------------------

func TestSync_SingleFlight(t *testing.T) {
	// A trigger during an in-progress cycle is a dropped no-op.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.fetchBlock = make(chan struct{})
	c := newController(t, s, gw, &countingSleeper{})

	started := make(chan *Report, 1)
	go func() {
		report, _ := c.Sync(ctx)
		started <- report
	}()

	// Wait until the first cycle is inside the pull phase.
	require.Eventually(t, func() bool { return gw.fetches() == 1 },
		time.Second, time.Millisecond)

	second, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Nil(t, second, "second trigger must be a no-op")

	close(gw.fetchBlock)
	first := <-started
	require.NotNil(t, first)
	assert.Equal(t, 1, gw.fetches(), "exactly one catalog pull")
}

func TestSync_PullRefreshesCatalog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.catalog = []pos.Product{testProduct("p1", "2.50", 10), testProduct("p2", "4.00", 3)}
	c := newController(t, s, gw, &countingSleeper{})

	report, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CatalogPulled)

	products, err := s.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestSync_IdempotentPull(t *testing.T) {
	// Pulling identical remote data twice leaves the product set
	// unchanged.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.catalog = []pos.Product{testProduct("p1", "2.50", 10)}
	c := newController(t, s, gw, &countingSleeper{})

	_, err := c.Sync(ctx)
	require.NoError(t, err)
	_, err = c.Sync(ctx)
	require.NoError(t, err)

	products, err := s.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 10, products[0].Stock)
}

func TestSync_PullFailureDoesNotBlockPush(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.catalogErr = &gateway.RemoteError{Op: "fetch catalog", Err: errors.New("down")}
	c := newController(t, s, gw, &countingSleeper{})

	require.NoError(t, s.PutTransaction(ctx, testTransaction("t1")))
	require.NoError(t, s.AddPending(ctx, "t1"))

	report, err := c.Sync(ctx)
	require.NoError(t, err, "pull failure is reported, not returned")
	require.NotNil(t, report)
	assert.Error(t, report.PullErr)
	assert.Equal(t, []string{"t1"}, report.Pushed)

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, state.HasPending("t1"))
	assert.Equal(t, fixedNow(), state.LastSync, "cycle completion stamps last-sync despite pull failure")
}

func TestSync_BoundedRetryPerTransaction(t *testing.T) {
	// A permanently failing push is attempted exactly maxRetries
	// times, stays pending, and does not block its peers.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	sleeper := &countingSleeper{}
	c := newController(t, s, gw, sleeper)

	require.NoError(t, s.PutTransaction(ctx, testTransaction("t1")))
	require.NoError(t, s.PutTransaction(ctx, testTransaction("t2")))
	require.NoError(t, s.AddPending(ctx, "t1"))
	require.NoError(t, s.AddPending(ctx, "t2"))
	gw.alwaysFail("t1", 10)

	report, err := c.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxRetries, gw.calls("t1"))
	assert.Equal(t, 1, gw.calls("t2"), "peer transaction still attempted")
	assert.Equal(t, []string{"t2"}, report.Pushed)
	assert.Equal(t, []string{"t1"}, report.Failed)

	// Two waits between three attempts, each the configured delay.
	require.Equal(t, 2, sleeper.count())
	assert.Equal(t, DefaultRetryDelay, sleeper.delays[0])

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.True(t, state.HasPending("t1"))
	assert.False(t, state.HasPending("t2"))

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusError, status, "exhausted retries surface as error status")
}

func TestSync_RetrySucceedsWithinCycle(t *testing.T) {
	// Two failures then success on the third attempt, all in one cycle.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.alwaysFail("t1", 2)
	c := newController(t, s, gw, &countingSleeper{})

	require.NoError(t, s.PutTransaction(ctx, testTransaction("t1")))
	require.NoError(t, s.AddPending(ctx, "t1"))

	report, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, report.Pushed)
	assert.Equal(t, 3, gw.calls("t1"))

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, status)
}

func TestSync_NextCycleResolvesFailed(t *testing.T) {
	// Exhausted in one cycle, delivered in the next.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	gw.alwaysFail("t1", DefaultMaxRetries)
	c := newController(t, s, gw, &countingSleeper{})

	require.NoError(t, s.PutTransaction(ctx, testTransaction("t1")))
	require.NoError(t, s.AddPending(ctx, "t1"))

	report, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, report.Failed)

	// The script is exhausted, so the next cycle's attempts succeed.
	report, err = c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, report.Pushed)

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, state.HasPending("t1"))

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, status)
}

func TestSync_DropsStalePendingIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	require.NoError(t, s.AddPending(ctx, "ghost"))

	report, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, report.Skipped)
	assert.Equal(t, 0, gw.calls("ghost"), "stale ids are never sent")

	state, err := s.SyncState(ctx)
	require.NoError(t, err)
	assert.False(t, state.HasPending("ghost"))
}

// --- Connectivity ---------------------------------------------------

func TestSetOnline_TransitionTriggersSync(t *testing.T) {
	// A transaction recorded offline is delivered when connectivity
	// returns.
	ctx := context.Background()
	s := newTestStore(t)
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	require.ErrorIs(t, c.SaveTransaction(ctx, testTransaction("t1")), ErrSavedOffline)

	report, err := c.SetOnline(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, report, "offline-to-online must trigger a cycle")
	assert.Equal(t, []string{"t1"}, report.Pushed)

	status, err := c.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, status)
}

func TestSetOnline_AlreadyOnlineDoesNotSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.WithDefaultOnline(true))
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	report, err := c.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, 0, gw.fetches())
}

func TestSetOnline_GoingOfflineOnlyPersistsFlag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.WithDefaultOnline(true))
	gw := newFakeGateway()
	c := newController(t, s, gw, &countingSleeper{})

	report, err := c.SetOnline(ctx, false)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, 0, gw.fetches())

	online, err := c.Online(ctx)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestLastSyncTime_ZeroUntilFirstCycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := newController(t, s, newFakeGateway(), &countingSleeper{})

	ts, err := c.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = c.Sync(ctx)
	require.NoError(t, err)

	ts, err = c.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), ts)
}
