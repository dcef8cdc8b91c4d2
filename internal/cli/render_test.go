package cli

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/possum/internal/pos"
	"github.com/roach88/possum/internal/syncer"
)

func goldenTransaction() pos.Transaction {
	return pos.Transaction{
		ID:   "tx-0001",
		Date: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Items: []pos.LineItem{
			{ProductID: "p1", Name: "Espresso", Price: decimal.RequireFromString("2.50"), Category: "drinks", Stock: 10, Quantity: 2},
			{ProductID: "p2", Name: "Croissant", Price: decimal.RequireFromString("3.50"), Category: "food", Stock: 5, Quantity: 1},
		},
		Subtotal: decimal.RequireFromString("8.50"),
		Tax:      decimal.RequireFromString("0.85"),
		Total:    decimal.RequireFromString("9.35"),
		Status:   pos.TxCompleted,
	}
}

func TestRenderReceipt_Golden(t *testing.T) {
	out := renderReceipt(goldenTransaction(), pos.StatusPending)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "receipt_pending", []byte(out))
}

func TestRenderStatus_Golden(t *testing.T) {
	out := renderStatus(false, time.Time{}, 2, 1)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "status_offline", []byte(out))
}

func TestRenderReport_NilMeansDropped(t *testing.T) {
	assert.Equal(t, "sync already in progress, request dropped\n", renderReport(nil))
}

func TestRenderReport_PullFailureKeepsSnapshotNote(t *testing.T) {
	r := &syncer.Report{PullErr: assert.AnError, Pushed: []string{"tx-1"}, Failed: []string{"tx-2"}}
	out := renderReport(r)
	assert.Contains(t, out, "catalog pull failed")
	assert.Contains(t, out, "keeping last snapshot")
	assert.Contains(t, out, "pushed: 1  failed: 1  skipped: 0")
	assert.Contains(t, out, "still pending: tx-2")
}

func TestRenderTime(t *testing.T) {
	assert.Equal(t, "never", renderTime(time.Time{}))
	assert.Equal(t, "2025-06-01 12:00:00 UTC",
		renderTime(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestRenderProducts_Empty(t *testing.T) {
	assert.Contains(t, renderProducts(nil), "catalog is empty")
}
